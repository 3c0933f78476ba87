// Gray Logic Remote - gateway companion service
//
// This is the main entry point for Gray Logic Remote. It binds to one
// configured home automation gateway, keeps a local snapshot of its
// entities, and exposes that snapshot over a REST/WebSocket API, an
// optional MQTT mirror, and a terminal dashboard.
//
// Usage:
//
//	graylogic-remote                   run the service (default)
//	graylogic-remote serve             same as above
//	graylogic-remote dash              run the terminal dashboard
//	graylogic-remote token CLIENT ROLE mint an API token
//	graylogic-remote version           print build information
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/nerrad567/gray-logic-remote/internal/api"
	"github.com/nerrad567/gray-logic-remote/internal/gateway"
	"github.com/nerrad567/gray-logic-remote/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-remote/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-remote/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-remote/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-remote/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-remote/internal/statesync"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

var errUsage = errors.New("usage: graylogic-remote [serve|dash|token CLIENT ROLE|version]")

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := dispatch(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		cancel()
		os.Exit(1) //nolint:gocritic // cancel called explicitly above
	}
}

// dispatch routes a command line to its subcommand.
func dispatch(ctx context.Context, args []string, stdout io.Writer) error {
	if len(args) == 0 {
		return run(ctx)
	}
	switch args[0] {
	case "serve":
		return run(ctx)
	case "dash":
		return runDash(ctx)
	case "token":
		return runToken(args[1:], stdout)
	case "version":
		fmt.Fprintf(stdout, "graylogic-remote %s (commit %s, built %s)\n", version, commit, date)
		return nil
	default:
		return fmt.Errorf("unknown command %q: %w", args[0], errUsage)
	}
}

// run is the service logic, separated from main for testability.
// It returns nil on clean shutdown.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting Gray Logic Remote",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	st, err := openStack(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.close()

	// An unreachable gateway is not fatal: the API reports the failure and
	// the next refresh retries.
	if _, fetchErr := st.engine.FetchAll(ctx); fetchErr != nil {
		if errors.Is(fetchErr, gateway.ErrNoActiveConfiguration) {
			log.Info("no active gateway profile, waiting for configuration")
		} else {
			log.Warn("initial fetch failed", "error", fetchErr)
		}
	}

	// Connect to MQTT broker (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		var mirror *mqtt.Mirror
		mqttClient, mirror, err = startMirror(ctx, cfg, st, log)
		if err != nil {
			return err
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		// Runs before the client closes: stop taking commands, then drain.
		defer mirror.Stop()
	} else {
		log.Info("MQTT mirror disabled")
	}

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
			st := influxClient.Stats()
			log.Info("InfluxDB recorder closed",
				"points", st.Points,
				"failed", st.Failed,
				"dropped", st.Dropped,
			)
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		st.engine.AddNotifier(influxClient)
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	// Start API server (optional)
	var apiServer *api.Server
	if cfg.API.Enabled {
		apiServer, err = api.New(api.Deps{
			Config:    cfg.API,
			WS:        cfg.WebSocket,
			Security:  cfg.Security,
			Logger:    log.Component("api"),
			Engine:    st.engine,
			Profiles:  st.profiles,
			Selection: st.selection,
			Tabs:      st.tabs,
			History:   st.history,
			Version:   version,
		})
		if err != nil {
			return fmt.Errorf("creating API server: %w", err)
		}
		if startErr := apiServer.Start(ctx); startErr != nil {
			return fmt.Errorf("starting API server: %w", startErr)
		}
		defer func() {
			if closeErr := apiServer.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	} else {
		log.Info("API server disabled")
	}

	if err := healthCheck(ctx, st.db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	checkGateway(ctx, st.engine, log)
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	// Deferred closes run in reverse: API, InfluxDB, MQTT, then the stack
	// (engine, database).
	log.Info("Gray Logic Remote stopped")
	return nil
}

// startMirror connects to the broker and wires the engine's events and
// the command topics through a Mirror. Stop the mirror before closing
// the client so in-flight commands finish.
func startMirror(ctx context.Context, cfg *config.Config, st *stack, log *logging.Logger) (*mqtt.Client, *mqtt.Mirror, error) {
	client, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to MQTT: %w", err)
	}
	mqttLog := log.Component("mqtt")
	client.SetLogger(mqttLog)
	client.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	client.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	mirror := mqtt.NewMirror(client, st.engine, byte(cfg.MQTT.QoS)) //nolint:gosec // QoS validated 0-2 by config
	mirror.SetLogger(mqttLog)
	if err := mirror.HandleCommands(ctx); err != nil {
		client.Close() //nolint:errcheck // Already failing
		return nil, nil, fmt.Errorf("subscribing to MQTT commands: %w", err)
	}
	st.engine.AddNotifier(mirror)

	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)
	return client, mirror, nil
}

// getConfigPath returns the configuration file path.
// Uses GRAYLOGIC_REMOTE_CONFIG if set, otherwise the default.
func getConfigPath() string {
	if path := os.Getenv("GRAYLOGIC_REMOTE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// checkGateway logs whether the active gateway answers. The gateway is
// remote and may be down at boot, so this never stops startup.
func checkGateway(ctx context.Context, engine *statesync.Engine, log *logging.Logger) {
	err := engine.CheckGateway(ctx)
	switch {
	case err == nil:
		log.Info("gateway reachable")
	case errors.Is(err, gateway.ErrNoActiveConfiguration):
		log.Info("no gateway to check, no active profile")
	default:
		log.Warn("gateway not reachable", "kind", gateway.KindOf(err), "error", err)
	}
}

// healthCheck verifies the infrastructure connections. mqttClient and
// influxClient may be nil when disabled.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}
	return nil
}
