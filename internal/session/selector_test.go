package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/nerrad567/gray-logic-remote/internal/gateway"
	"github.com/nerrad567/gray-logic-remote/internal/profile"
)

// memStore is an in-memory ProfileStore.
type memStore struct {
	mu       sync.Mutex
	profiles map[string]profile.Profile
	active   string
}

func newMemStore(profiles ...profile.Profile) *memStore {
	s := &memStore{profiles: make(map[string]profile.Profile)}
	for _, p := range profiles {
		s.profiles[p.ID] = p
	}
	return s
}

func (s *memStore) GetByID(_ context.Context, id string) (*profile.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[id]
	if !ok {
		return nil, profile.ErrProfileNotFound
	}
	p.Active = id == s.active
	return &p, nil
}

func (s *memStore) GetActive(ctx context.Context) (*profile.Profile, error) {
	s.mu.Lock()
	id := s.active
	s.mu.Unlock()
	if id == "" {
		return nil, profile.ErrNoActiveProfile
	}
	return s.GetByID(ctx, id)
}

func (s *memStore) SetActive(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[id]; !ok {
		return profile.ErrProfileNotFound
	}
	s.active = id
	return nil
}

func (s *memStore) put(p profile.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.ID] = p
}

func (s *memStore) remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.profiles, id)
	if s.active == id {
		s.active = ""
	}
}

// authRecorder is a gateway endpoint that remembers the last bearer token.
type authRecorder struct {
	mu   sync.Mutex
	auth string
	srv  *httptest.Server
}

func newAuthRecorder(t *testing.T) *authRecorder {
	t.Helper()
	ar := &authRecorder{}
	ar.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ar.mu.Lock()
		ar.auth = r.Header.Get("Authorization")
		ar.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(ar.srv.Close)
	return ar
}

func (ar *authRecorder) lastAuth() string {
	ar.mu.Lock()
	defer ar.mu.Unlock()
	return ar.auth
}

func homeProfile() profile.Profile {
	return profile.Profile{
		ID:          "home",
		Name:        "Home",
		InternalURL: "http://ha.local:8123",
		ExternalURL: "https://ha.example.com",
		Token:       "shared-token",
	}
}

func TestSelector_ActivateBindsPreferredURL(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(p *profile.Profile)
		wantWhich profile.Which
		wantURL   string
	}{
		{"internal by default", func(*profile.Profile) {}, profile.Internal, "http://ha.local:8123"},
		{"external when preferred", func(p *profile.Profile) { p.PreferExternal = true }, profile.External, "https://ha.example.com"},
		{"falls back when preferred missing", func(p *profile.Profile) {
			p.PreferExternal = true
			p.ExternalURL = ""
		}, profile.Internal, "http://ha.local:8123"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := homeProfile()
			tt.mutate(&p)
			sel := NewSelector(newMemStore(p), gateway.Options{})

			b, err := sel.Activate(context.Background(), p.ID)
			if err != nil {
				t.Fatalf("Activate() error = %v", err)
			}
			if b.Which != tt.wantWhich || b.BaseURL() != tt.wantURL {
				t.Errorf("binding = %s %s, want %s %s", b.Which, b.BaseURL(), tt.wantWhich, tt.wantURL)
			}
		})
	}
}

func TestSelector_ActivateUnknownProfile(t *testing.T) {
	sel := NewSelector(newMemStore(homeProfile()), gateway.Options{})
	if _, err := sel.Activate(context.Background(), "nope"); !errors.Is(err, profile.ErrProfileNotFound) {
		t.Errorf("Activate() error = %v, want ErrProfileNotFound", err)
	}
}

func TestSelector_ActivateMalformedURL(t *testing.T) {
	p := homeProfile()
	p.InternalURL = "ha.local:8123"
	sel := NewSelector(newMemStore(p), gateway.Options{})

	_, err := sel.Activate(context.Background(), p.ID)
	if !errors.Is(err, gateway.ErrInvalidURL) {
		t.Errorf("Activate() error = %v, want ErrInvalidURL", err)
	}
}

func TestSelector_CurrentWithoutActiveProfile(t *testing.T) {
	sel := NewSelector(newMemStore(homeProfile()), gateway.Options{})

	_, err := sel.Current(context.Background())
	if !errors.Is(err, gateway.ErrNoActiveConfiguration) {
		t.Errorf("Current() error = %v, want ErrNoActiveConfiguration", err)
	}
	if got := gateway.KindOf(err); got != gateway.KindNoActiveConfiguration {
		t.Errorf("KindOf() = %q", got)
	}
}

func TestSelector_CurrentReusesAndRebinds(t *testing.T) {
	ctx := context.Background()
	other := profile.Profile{ID: "cabin", Name: "Cabin", InternalURL: "http://cabin.local:8123", Token: "t2"}
	store := newMemStore(homeProfile(), other)
	sel := NewSelector(store, gateway.Options{})

	first, err := sel.Activate(ctx, "home")
	if err != nil {
		t.Fatalf("Activate() error = %v", err)
	}
	again, err := sel.Current(ctx)
	if err != nil {
		t.Fatalf("Current() error = %v", err)
	}
	if again != first {
		t.Error("Current() rebuilt an unchanged binding")
	}

	// Activated elsewhere; the selector must notice on the next read.
	if err := store.SetActive(ctx, "cabin"); err != nil {
		t.Fatal(err)
	}
	b, err := sel.Current(ctx)
	if err != nil {
		t.Fatalf("Current() error = %v", err)
	}
	if b.Profile.ID != "cabin" || b.BaseURL() != "http://cabin.local:8123" {
		t.Errorf("Current() = %s %s, want cabin binding", b.Profile.ID, b.BaseURL())
	}

	store.remove("cabin")
	if _, err := sel.Current(ctx); !errors.Is(err, gateway.ErrNoActiveConfiguration) {
		t.Errorf("Current() after delete error = %v, want ErrNoActiveConfiguration", err)
	}
}

func TestSelector_CurrentKeepsSwitchedSideAcrossEdits(t *testing.T) {
	ctx := context.Background()
	store := newMemStore(homeProfile())
	sel := NewSelector(store, gateway.Options{})

	if _, err := sel.Activate(ctx, "home"); err != nil {
		t.Fatal(err)
	}
	if _, err := sel.SwitchURL(ctx); err != nil {
		t.Fatal(err)
	}

	edited := homeProfile()
	edited.ExternalURL = "https://new.example.com"
	store.put(edited)

	b, err := sel.Current(ctx)
	if err != nil {
		t.Fatalf("Current() error = %v", err)
	}
	if b.Which != profile.External || b.BaseURL() != "https://new.example.com" {
		t.Errorf("Current() = %s %s, want external new url", b.Which, b.BaseURL())
	}
}

func TestSelector_SwitchURLKeepsToken(t *testing.T) {
	ctx := context.Background()
	internal := newAuthRecorder(t)
	external := newAuthRecorder(t)

	p := homeProfile()
	p.InternalURL = internal.srv.URL
	p.ExternalURL = external.srv.URL
	sel := NewSelector(newMemStore(p), gateway.Options{})

	b, err := sel.Activate(ctx, p.ID)
	if err != nil {
		t.Fatalf("Activate() error = %v", err)
	}
	if err := b.Client.HealthCheck(ctx); err != nil {
		t.Fatalf("HealthCheck() error = %v", err)
	}

	switched, err := sel.SwitchURL(ctx)
	if err != nil {
		t.Fatalf("SwitchURL() error = %v", err)
	}
	if switched.Which != profile.External || switched.BaseURL() != external.srv.URL {
		t.Fatalf("SwitchURL() = %s %s", switched.Which, switched.BaseURL())
	}
	if err := switched.Client.HealthCheck(ctx); err != nil {
		t.Fatalf("HealthCheck() error = %v", err)
	}

	want := "Bearer shared-token"
	if internal.lastAuth() != want || external.lastAuth() != want {
		t.Errorf("auth headers = %q / %q, want %q on both", internal.lastAuth(), external.lastAuth(), want)
	}

	back, err := sel.SwitchURL(ctx)
	if err != nil {
		t.Fatalf("second SwitchURL() error = %v", err)
	}
	if back.Which != profile.Internal {
		t.Errorf("second SwitchURL() = %s, want internal", back.Which)
	}
}

func TestSelector_SwitchURLWithoutAlternate(t *testing.T) {
	ctx := context.Background()
	p := homeProfile()
	p.ExternalURL = ""
	sel := NewSelector(newMemStore(p), gateway.Options{})

	if _, err := sel.Activate(ctx, p.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := sel.SwitchURL(ctx); !errors.Is(err, ErrNoAlternateURL) {
		t.Errorf("SwitchURL() error = %v, want ErrNoAlternateURL", err)
	}
}

func TestSelector_SwitchURLWithoutActiveProfile(t *testing.T) {
	sel := NewSelector(newMemStore(), gateway.Options{})
	if _, err := sel.SwitchURL(context.Background()); !errors.Is(err, gateway.ErrNoActiveConfiguration) {
		t.Errorf("SwitchURL() error = %v, want ErrNoActiveConfiguration", err)
	}
}
