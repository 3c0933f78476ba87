package main

import (
	"fmt"
	"io"
	"time"

	"github.com/nerrad567/gray-logic-remote/internal/auth"
	"github.com/nerrad567/gray-logic-remote/internal/infrastructure/config"
)

// runToken mints an API token for a client. It reads the signing secret
// and lifetime from the same config the service uses.
func runToken(args []string, stdout io.Writer) error {
	if len(args) != 2 {
		return fmt.Errorf("token needs CLIENT and ROLE: %w", errUsage)
	}
	client, role := args[0], auth.Role(args[1])
	if !auth.IsValidRole(role) {
		return fmt.Errorf("%w: %q (want one of %v)", auth.ErrInvalidRole, role, auth.ValidRoles)
	}

	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.Security.JWT.Secret == "" {
		return fmt.Errorf("security.jwt.secret is not set")
	}

	ttl := time.Duration(cfg.Security.JWT.AccessTokenTTL) * time.Minute
	token, err := auth.GenerateToken(client, role, cfg.Security.JWT.Secret, ttl)
	if err != nil {
		return fmt.Errorf("generating token: %w", err)
	}
	fmt.Fprintln(stdout, token)
	return nil
}
