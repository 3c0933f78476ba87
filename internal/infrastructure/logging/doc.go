// Package logging provides structured logging for Gray Logic Remote.
//
// This package wraps Go's standard log/slog package so every component
// logs with the same service and version fields.
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr, discard
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("gateway bound", "profile", p.Name, "token", logging.Secret(p.Token))
//
// # Security
//
// Never log gateway tokens or the JWT secret. Use Secret to render them.
package logging
