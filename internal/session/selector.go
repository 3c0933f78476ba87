package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/nerrad567/gray-logic-remote/internal/gateway"
	"github.com/nerrad567/gray-logic-remote/internal/profile"
)

// ProfileStore is the subset of the profile repository the selector needs.
type ProfileStore interface {
	GetByID(ctx context.Context, id string) (*profile.Profile, error)
	GetActive(ctx context.Context) (*profile.Profile, error)
	SetActive(ctx context.Context, id string) error
}

// Logger defines the logging interface used by the selector.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Binding is a profile bound to one of its base URLs.
type Binding struct {
	Profile profile.Profile
	Which   profile.Which
	Client  *gateway.Client
}

// BaseURL returns the URL the binding talks to.
func (b *Binding) BaseURL() string {
	return b.Client.BaseURL()
}

// Selector owns the current binding.
//
// Thread Safety: all methods are safe for concurrent use.
type Selector struct {
	store  ProfileStore
	opts   gateway.Options
	logger Logger

	mu      sync.Mutex
	current *Binding
}

// NewSelector creates a selector over store. opts configures every
// gateway client it builds.
func NewSelector(store ProfileStore, opts gateway.Options) *Selector {
	return &Selector{store: store, opts: opts, logger: noopLogger{}}
}

// SetLogger sets the logger for the selector.
func (s *Selector) SetLogger(logger Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger = logger
}

// Activate makes profileID the single active profile and binds to its
// preferred URL.
func (s *Selector) Activate(ctx context.Context, profileID string) (*Binding, error) {
	if err := s.store.SetActive(ctx, profileID); err != nil {
		return nil, fmt.Errorf("activating profile %s: %w", profileID, err)
	}
	p, err := s.store.GetByID(ctx, profileID)
	if err != nil {
		return nil, fmt.Errorf("loading profile %s: %w", profileID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := s.bind(*p, p.Preferred())
	if err != nil {
		return nil, err
	}
	s.logger.Info("profile activated", "profile", p.Name, "url", b.BaseURL(), "which", b.Which)
	return b, nil
}

// Current returns the binding for the active profile, rebinding when the
// active profile or its stored URLs changed since the last call.
// Returns gateway.ErrNoActiveConfiguration when no profile is active.
func (s *Selector) Current(ctx context.Context) (*Binding, error) {
	p, err := s.store.GetActive(ctx)
	if errors.Is(err, profile.ErrNoActiveProfile) {
		s.mu.Lock()
		s.current = nil
		s.mu.Unlock()
		return nil, gateway.ErrNoActiveConfiguration
	}
	if err != nil {
		return nil, fmt.Errorf("reading active profile: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if b := s.current; b != nil && b.Profile.ID == p.ID {
		if sameEndpoints(b.Profile, *p) {
			return b, nil
		}
		// Same profile edited: keep the chosen side if it still has a URL.
		if p.URL(b.Which) != "" {
			return s.bind(*p, b.Which)
		}
	}

	b, err := s.bind(*p, p.Preferred())
	if err != nil {
		return nil, err
	}
	s.logger.Debug("bound active profile", "profile", p.Name, "url", b.BaseURL())
	return b, nil
}

// SwitchURL flips the current binding between its internal and external
// URL. The token is unchanged.
func (s *Selector) SwitchURL(ctx context.Context) (*Binding, error) {
	cur, err := s.Current(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := cur.Which.Other()
	if cur.Profile.URL(next) == "" {
		return nil, fmt.Errorf("%w: %s url not set for %q", ErrNoAlternateURL, next, cur.Profile.Name)
	}
	b, err := s.bind(cur.Profile, next)
	if err != nil {
		return nil, err
	}
	s.logger.Info("switched gateway url", "profile", cur.Profile.Name, "which", next, "url", b.BaseURL())
	return b, nil
}

// bind builds a client for p's URL w and stores it. Callers hold s.mu.
func (s *Selector) bind(p profile.Profile, w profile.Which) (*Binding, error) {
	client, err := gateway.NewClient(p.URL(w), p.Token, s.opts)
	if err != nil {
		return nil, fmt.Errorf("binding profile %q to %s url: %w", p.Name, w, err)
	}
	b := &Binding{Profile: p, Which: w, Client: client}
	s.current = b
	return b, nil
}

func sameEndpoints(a, b profile.Profile) bool {
	return a.InternalURL == b.InternalURL &&
		a.ExternalURL == b.ExternalURL &&
		a.Token == b.Token
}
