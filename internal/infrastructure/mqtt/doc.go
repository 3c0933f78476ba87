// Package mqtt mirrors the remote's sync events onto an MQTT broker and
// accepts entity commands from it.
//
// This package provides:
//   - Connection to the broker with auto-reconnect and subscription restore
//   - Last Will and Testament (LWT) so consumers see an unexpected exit
//   - Topic builders for the graylogic/remote/ hierarchy
//   - Mirror, an engine notifier that publishes events and routes
//     commands back into the engine
//
// # Topics
//
//	graylogic/remote/status                      online/offline (retained, LWT)
//	graylogic/remote/snapshot                    full snapshot after each fetch
//	graylogic/remote/entity/{entity_id}/state    latest entity (retained)
//	graylogic/remote/reconcile/{entity_id}       verification result
//	graylogic/remote/error                       sync failures
//	graylogic/remote/command/{entity_id}         inbound {"action": ...}
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	mirror := mqtt.NewMirror(client, engine, byte(cfg.MQTT.QoS))
//	engine.AddNotifier(mirror)
//	if err := mirror.HandleCommands(ctx); err != nil {
//	    return err
//	}
//	defer mirror.Stop() // before client.Close
package mqtt
