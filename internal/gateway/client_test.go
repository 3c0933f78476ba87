package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-remote/internal/entity"
)

// fakeGateway records requests and answers from a handler func.
type fakeGateway struct {
	mu       sync.Mutex
	requests []recordedRequest
	handler  http.HandlerFunc
}

type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Auth   string
	Body   map[string]any
}

func newFakeGateway(t *testing.T, handler http.HandlerFunc) (*fakeGateway, *Client) {
	t.Helper()
	fg := &fakeGateway{handler: handler}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recordedRequest{
			Method: r.Method,
			Path:   r.URL.EscapedPath(),
			Query:  r.URL.RawQuery,
			Auth:   r.Header.Get("Authorization"),
		}
		if r.Body != nil {
			data, _ := io.ReadAll(r.Body)
			if len(data) > 0 {
				_ = json.Unmarshal(data, &rec.Body)
			}
		}
		fg.mu.Lock()
		fg.requests = append(fg.requests, rec)
		fg.mu.Unlock()
		fg.handler(w, r)
	}))
	t.Cleanup(srv.Close)

	c, err := NewClient(srv.URL+"/", "secret-token", Options{RequestTimeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return fg, c
}

func (fg *fakeGateway) last() recordedRequest {
	fg.mu.Lock()
	defer fg.mu.Unlock()
	return fg.requests[len(fg.requests)-1]
}

func respond(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

func TestNewClient_InvalidURL(t *testing.T) {
	for _, raw := range []string{"", "   ", "homeassistant.local:8123", "ftp://ha.local", "http://", "http://ha.local/?x=1", "://bad"} {
		t.Run(raw, func(t *testing.T) {
			_, err := NewClient(raw, "t", Options{})
			if !errors.Is(err, ErrInvalidURL) {
				t.Errorf("NewClient(%q) error = %v, want ErrInvalidURL", raw, err)
			}
		})
	}
}

func TestNewClient_NormalisesBaseURL(t *testing.T) {
	c, err := NewClient(" https://ha.example.com:8443/ ", "t", Options{})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	if c.BaseURL() != "https://ha.example.com:8443" {
		t.Errorf("BaseURL() = %q", c.BaseURL())
	}
}

func TestClient_ListAll(t *testing.T) {
	fg, c := newFakeGateway(t, respond(http.StatusOK, `[
		{"entity_id":"switch.garage","state":"off","attributes":{}},
		{"entity_id":"light.kitchen","state":"on","attributes":{"friendly_name":"Kitchen"}},
		{"entity_id":"sensor.temp","state":"23.5","attributes":{"unit_of_measurement":"°C"}}
	]`))

	snap, err := c.ListAll(context.Background())
	if err != nil {
		t.Fatalf("ListAll() error = %v", err)
	}

	want := []string{"light.kitchen", "sensor.temp", "switch.garage"}
	if !slices.Equal(ids(snap), want) {
		t.Errorf("ids = %v, want %v", ids(snap), want)
	}

	req := fg.last()
	if req.Method != http.MethodGet || req.Path != "/api/states" {
		t.Errorf("request = %s %s", req.Method, req.Path)
	}
	if req.Auth != "Bearer secret-token" {
		t.Errorf("Authorization = %q", req.Auth)
	}
}

func TestClient_ListAll_Empty(t *testing.T) {
	_, c := newFakeGateway(t, respond(http.StatusOK, `[]`))

	snap, err := c.ListAll(context.Background())
	if err != nil {
		t.Fatalf("ListAll() error = %v", err)
	}
	if snap.Len() != 0 {
		t.Errorf("Len() = %d, want 0", snap.Len())
	}
}

func TestClient_ErrorClassification(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    error
		kind    Kind
	}{
		{"unauthorized", respond(http.StatusUnauthorized, `401: Unauthorized`), ErrAuthenticationFailed, KindAuthenticationFailed},
		{"forbidden", respond(http.StatusForbidden, ``), ErrAuthenticationFailed, KindAuthenticationFailed},
		{"not found", respond(http.StatusNotFound, ``), ErrNotFound, KindNotFound},
		{"server error", respond(http.StatusInternalServerError, `boom`), ErrServerError, KindServerError},
		{"bad request", respond(http.StatusBadRequest, ``), ErrServerError, KindServerError},
		{"malformed", respond(http.StatusOK, `{"not":"an array"`), ErrMalformedResponse, KindMalformedResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, c := newFakeGateway(t, tt.handler)
			_, err := c.ListAll(context.Background())
			if !errors.Is(err, tt.want) {
				t.Fatalf("ListAll() error = %v, want %v", err, tt.want)
			}
			if KindOf(err) != tt.kind {
				t.Errorf("KindOf() = %q, want %q", KindOf(err), tt.kind)
			}
		})
	}
}

func TestClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	c, err := NewClient(addr, "t", Options{ConnectTimeout: time.Second, RequestTimeout: time.Second})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	_, err = c.ListAll(context.Background())
	if !errors.Is(err, ErrUnreachable) {
		t.Errorf("ListAll() error = %v, want ErrUnreachable", err)
	}
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	c, err := NewClient(srv.URL, "t", Options{RequestTimeout: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	_, err = c.ListAll(context.Background())
	if KindOf(err) != KindUnreachable {
		t.Errorf("ListAll() error = %v, want unreachable", err)
	}
}

func TestClient_GetOne(t *testing.T) {
	fg, c := newFakeGateway(t, respond(http.StatusOK, `{"entity_id":"light.kitchen","state":"on","attributes":{}}`))

	e, err := c.GetOne(context.Background(), "light.kitchen")
	if err != nil {
		t.Fatalf("GetOne() error = %v", err)
	}
	if e.ID != "light.kitchen" || e.State != "on" {
		t.Errorf("GetOne() = %+v", e)
	}
	if fg.last().Path != "/api/states/light.kitchen" {
		t.Errorf("path = %q", fg.last().Path)
	}
}

func TestClient_Invoke(t *testing.T) {
	brightness := 128
	tests := []struct {
		name     string
		entityID string
		action   Action
		wantPath string
		wantBody map[string]any
	}{
		{
			name: "turn on uses entity domain", entityID: "switch.garage", action: TurnOn{},
			wantPath: "/api/services/switch/turn_on",
			wantBody: map[string]any{"entity_id": "switch.garage"},
		},
		{
			name: "turn off", entityID: "fan.bedroom", action: TurnOff{},
			wantPath: "/api/services/fan/turn_off",
			wantBody: map[string]any{"entity_id": "fan.bedroom"},
		},
		{
			name: "toggle", entityID: "cover.blind", action: Toggle{},
			wantPath: "/api/services/cover/toggle",
			wantBody: map[string]any{"entity_id": "cover.blind"},
		},
		{
			name: "set temperature", entityID: "climate.lounge", action: SetTemperature{Temperature: 21.5},
			wantPath: "/api/services/climate/set_temperature",
			wantBody: map[string]any{"entity_id": "climate.lounge", "temperature": 21.5},
		},
		{
			name: "set hvac mode", entityID: "climate.lounge", action: SetHVACMode{Mode: "heat"},
			wantPath: "/api/services/climate/set_hvac_mode",
			wantBody: map[string]any{"entity_id": "climate.lounge", "hvac_mode": "heat"},
		},
		{
			name: "set preset mode", entityID: "climate.lounge", action: SetPresetMode{Mode: "eco"},
			wantPath: "/api/services/climate/set_preset_mode",
			wantBody: map[string]any{"entity_id": "climate.lounge", "preset_mode": "eco"},
		},
		{
			name: "light attributes", entityID: "light.kitchen",
			action:   SetLightAttributes{Brightness: &brightness, RGB: []int{255, 0, 10}},
			wantPath: "/api/services/light/turn_on",
			wantBody: map[string]any{"entity_id": "light.kitchen", "brightness": float64(128), "rgb_color": []any{float64(255), float64(0), float64(10)}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fg, c := newFakeGateway(t, respond(http.StatusOK, `[]`))

			if err := c.Invoke(context.Background(), tt.entityID, tt.action); err != nil {
				t.Fatalf("Invoke() error = %v", err)
			}

			req := fg.last()
			if req.Method != http.MethodPost || req.Path != tt.wantPath {
				t.Errorf("request = %s %s, want POST %s", req.Method, req.Path, tt.wantPath)
			}
			gotJSON, _ := json.Marshal(req.Body)
			wantJSON, _ := json.Marshal(tt.wantBody)
			if string(gotJSON) != string(wantJSON) {
				t.Errorf("body = %s, want %s", gotJSON, wantJSON)
			}
		})
	}
}

func TestClient_InvokeRejectsBeforeSending(t *testing.T) {
	tooBright := 300
	tests := []struct {
		name     string
		entityID string
		action   Action
	}{
		{"no domain", "kitchen", TurnOn{}},
		{"temperature on light", "light.kitchen", SetTemperature{Temperature: 20}},
		{"empty hvac mode", "climate.lounge", SetHVACMode{}},
		{"light attributes on switch", "switch.x", SetLightAttributes{RGB: []int{1, 2, 3}}},
		{"light attributes empty", "light.x", SetLightAttributes{}},
		{"brightness out of range", "light.x", SetLightAttributes{Brightness: &tooBright}},
		{"rgb wrong length", "light.x", SetLightAttributes{RGB: []int{1, 2}}},
		{"nil action", "light.x", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fg, c := newFakeGateway(t, respond(http.StatusOK, `[]`))

			err := c.Invoke(context.Background(), tt.entityID, tt.action)
			if !errors.Is(err, ErrInvalidAction) {
				t.Fatalf("Invoke() error = %v, want ErrInvalidAction", err)
			}
			if len(fg.requests) != 0 {
				t.Errorf("sent %d requests, want 0", len(fg.requests))
			}
		})
	}
}

func TestClient_InvokeFailureNotRetried(t *testing.T) {
	fg, c := newFakeGateway(t, respond(http.StatusBadGateway, ``))

	err := c.Invoke(context.Background(), "switch.garage", TurnOn{})
	if !errors.Is(err, ErrServerError) {
		t.Fatalf("Invoke() error = %v, want ErrServerError", err)
	}
	if len(fg.requests) != 1 {
		t.Errorf("sent %d requests, want exactly 1", len(fg.requests))
	}
}

func TestClient_History(t *testing.T) {
	fg, c := newFakeGateway(t, respond(http.StatusOK, `[
		[{"entity_id":"light.kitchen","state":"off","last_changed":"2026-03-01T08:00:00+00:00"},
		 {"entity_id":"light.kitchen","state":"on","last_changed":"2026-03-01T08:30:00+00:00"}],
		[{"entity_id":"switch.garage","state":"off","last_changed":"2026-03-01T08:10:00+00:00"}]
	]`))

	start := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	events, err := c.History(context.Background(), HistoryQuery{
		Start:    start,
		End:      start.Add(time.Hour),
		EntityID: "light.kitchen",
	})
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("History() returned %d events, want 3", len(events))
	}

	req := fg.last()
	if !strings.HasPrefix(req.Path, "/api/history/period/2026-03-01T08:00:00Z") {
		t.Errorf("path = %q", req.Path)
	}
	if !strings.Contains(req.Query, "filter_entity_id=light.kitchen") || !strings.Contains(req.Query, "end_time=2026-03-01T09%3A00%3A00Z") {
		t.Errorf("query = %q", req.Query)
	}
}

func TestClient_HistoryValidation(t *testing.T) {
	_, c := newFakeGateway(t, respond(http.StatusOK, `[]`))
	now := time.Now()

	if _, err := c.History(context.Background(), HistoryQuery{}); !errors.Is(err, ErrInvalidAction) {
		t.Errorf("zero start error = %v", err)
	}
	if _, err := c.History(context.Background(), HistoryQuery{Start: now, End: now.Add(-time.Hour)}); !errors.Is(err, ErrInvalidAction) {
		t.Errorf("reversed range error = %v", err)
	}
}

func TestClient_HealthCheck(t *testing.T) {
	_, c := newFakeGateway(t, respond(http.StatusOK, `{"message":"API running."}`))
	if err := c.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}

	_, bad := newFakeGateway(t, respond(http.StatusUnauthorized, ``))
	if err := bad.HealthCheck(context.Background()); !errors.Is(err, ErrAuthenticationFailed) {
		t.Errorf("HealthCheck() error = %v, want ErrAuthenticationFailed", err)
	}
}

func ids(s entity.Snapshot) []string {
	out := make([]string, 0, s.Len())
	for e := range s.All {
		out = append(out, e.ID)
	}
	return out
}
