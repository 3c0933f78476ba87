package history

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-remote/internal/entity"
	"github.com/nerrad567/gray-logic-remote/internal/gateway"
)

type fakeSource struct {
	mu      sync.Mutex
	queries []gateway.HistoryQuery
	events  []entity.Entity
	err     error
}

func (f *fakeSource) History(_ context.Context, q gateway.HistoryQuery) ([]entity.Entity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	return append([]entity.Entity(nil), f.events...), f.err
}

type resolverFunc func(ctx context.Context) (Source, error)

func (f resolverFunc) Source(ctx context.Context) (Source, error) { return f(ctx) }

func fixed(src Source) Resolver {
	return resolverFunc(func(context.Context) (Source, error) { return src, nil })
}

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func event(id, state string, ago time.Duration, name string) entity.Entity {
	e := entity.Entity{ID: id, State: state, LastChanged: now.Add(-ago)}
	if name != "" {
		e.Attributes.FriendlyName = &name
	}
	return e
}

func TestParseWindow(t *testing.T) {
	tests := []struct {
		in      string
		want    Window
		wantErr bool
	}{
		{"", LastHour, false},
		{"last_hour", LastHour, false},
		{"last_day", LastDay, false},
		{"last_week", LastWeek, false},
		{"last_month", "", true},
	}
	for _, tt := range tests {
		got, err := ParseWindow(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseWindow(%q) = %q, %v", tt.in, got, err)
		}
		if tt.wantErr && !errors.Is(err, ErrInvalidWindow) {
			t.Errorf("ParseWindow(%q) error = %v, want ErrInvalidWindow", tt.in, err)
		}
	}
}

func TestService_LoadNewestFirst(t *testing.T) {
	src := &fakeSource{events: []entity.Entity{
		event("light.kitchen", "on", 50*time.Minute, ""),
		event("light.kitchen", "off", 5*time.Minute, ""),
		event("switch.garage", "on", 20*time.Minute, ""),
	}}
	svc := NewService(fixed(src))
	svc.now = func() time.Time { return now }

	got, err := svc.Load(context.Background(), LastDay, "light.kitchen")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	var order []string
	for _, e := range got {
		order = append(order, e.ID+"="+e.State)
	}
	want := []string{"light.kitchen=off", "switch.garage=on", "light.kitchen=on"}
	if !slices.Equal(order, want) {
		t.Errorf("Load() order = %v, want %v", order, want)
	}

	q := src.queries[0]
	if !q.End.Equal(now) || !q.Start.Equal(now.Add(-24*time.Hour)) || q.EntityID != "light.kitchen" {
		t.Errorf("query = %+v", q)
	}
}

func TestService_LoadErrors(t *testing.T) {
	t.Run("no active configuration", func(t *testing.T) {
		svc := NewService(resolverFunc(func(context.Context) (Source, error) {
			return nil, gateway.ErrNoActiveConfiguration
		}))
		if _, err := svc.Load(context.Background(), LastHour, ""); !errors.Is(err, gateway.ErrNoActiveConfiguration) {
			t.Errorf("Load() error = %v", err)
		}
	})
	t.Run("gateway failure", func(t *testing.T) {
		svc := NewService(fixed(&fakeSource{err: gateway.ErrUnreachable}))
		if _, err := svc.Load(context.Background(), LastHour, ""); !errors.Is(err, gateway.ErrUnreachable) {
			t.Errorf("Load() error = %v", err)
		}
	})
}

func TestSearch(t *testing.T) {
	events := []entity.Entity{
		event("light.kitchen", "on", time.Minute, "Kitchen Ceiling"),
		event("light.hall", "off", time.Minute, "Hall Lamp"),
		event("switch.garage", "on", time.Minute, ""),
	}

	tests := []struct {
		query string
		want  []string
	}{
		{"", []string{"light.kitchen", "light.hall", "switch.garage"}},
		{"ceiling", []string{"light.kitchen"}},
		{"LIGHT on", []string{"light.kitchen"}},
		{"on", []string{"light.kitchen", "switch.garage"}},
		{"garage off", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got := []string{}
			for _, e := range Search(events, tt.query) {
				got = append(got, e.ID)
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("Search(%q) = %v, want %v", tt.query, got, tt.want)
			}
		})
	}
}
