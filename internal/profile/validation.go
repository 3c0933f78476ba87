package profile

import (
	"fmt"
	"net/url"
	"strings"
)

const maxNameLength = 100

// Validate checks the fields a profile needs before it is stored.
// URLs are only checked for shape; reachability is the gateway's concern.
func (p *Profile) Validate() error {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidProfile)
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidProfile, maxNameLength)
	}

	if p.InternalURL == "" && p.ExternalURL == "" {
		return fmt.Errorf("%w: internal_url or external_url is required", ErrInvalidProfile)
	}
	for field, raw := range map[string]string{"internal_url": p.InternalURL, "external_url": p.ExternalURL} {
		if raw == "" {
			continue
		}
		if err := validateURL(raw); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidProfile, field, err)
		}
	}

	if p.PreferExternal && p.ExternalURL == "" {
		return fmt.Errorf("%w: prefer_external set without external_url", ErrInvalidProfile)
	}
	return nil
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https")
	}
	if u.Host == "" {
		return fmt.Errorf("missing host")
	}
	return nil
}

// ValidateEntityID checks the "domain.slug" shape of an entity id.
func ValidateEntityID(id string) error {
	domain, slug, ok := strings.Cut(id, ".")
	if !ok || domain == "" || slug == "" || strings.ContainsAny(id, " /?#") {
		return fmt.Errorf("%w: %q", ErrInvalidEntityID, id)
	}
	return nil
}
