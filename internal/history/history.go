package history

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/nerrad567/gray-logic-remote/internal/entity"
	"github.com/nerrad567/gray-logic-remote/internal/gateway"
	"github.com/nerrad567/gray-logic-remote/internal/session"
)

// ErrInvalidWindow is returned by ParseWindow for an unknown window name.
var ErrInvalidWindow = errors.New("history: invalid window")

// Window is a look-back period ending now.
type Window string

// Supported windows.
const (
	LastHour Window = "last_hour"
	LastDay  Window = "last_day"
	LastWeek Window = "last_week"
)

// Duration returns the length of w.
func (w Window) Duration() time.Duration {
	switch w {
	case LastDay:
		return 24 * time.Hour
	case LastWeek:
		return 7 * 24 * time.Hour
	default:
		return time.Hour
	}
}

// ParseWindow parses a window name. An empty string is LastHour.
func ParseWindow(s string) (Window, error) {
	switch w := Window(strings.TrimSpace(s)); w {
	case "":
		return LastHour, nil
	case LastHour, LastDay, LastWeek:
		return w, nil
	default:
		return "", fmt.Errorf("%w: %q (want last_hour, last_day or last_week)", ErrInvalidWindow, s)
	}
}

// Source reads history from a gateway.
type Source interface {
	History(ctx context.Context, q gateway.HistoryQuery) ([]entity.Entity, error)
}

// Resolver returns the Source for the active profile.
type Resolver interface {
	Source(ctx context.Context) (Source, error)
}

// SelectorResolver resolves through a session.Selector.
type SelectorResolver struct {
	Selector *session.Selector
}

// Source implements Resolver.
func (r SelectorResolver) Source(ctx context.Context) (Source, error) {
	b, err := r.Selector.Current(ctx)
	if err != nil {
		return nil, err
	}
	return b.Client, nil
}

// Service loads history for the active profile.
type Service struct {
	resolver Resolver
	now      func() time.Time
}

// NewService creates a history service.
func NewService(resolver Resolver) *Service {
	return &Service{resolver: resolver, now: time.Now}
}

// Load returns state changes within w, newest first. entityID narrows the
// query to one entity when non-empty.
func (s *Service) Load(ctx context.Context, w Window, entityID string) ([]entity.Entity, error) {
	src, err := s.resolver.Source(ctx)
	if err != nil {
		return nil, err
	}

	end := s.now().UTC()
	events, err := src.History(ctx, gateway.HistoryQuery{
		Start:    end.Add(-w.Duration()),
		End:      end,
		EntityID: entityID,
	})
	if err != nil {
		return nil, fmt.Errorf("loading %s history: %w", w, err)
	}

	slices.SortStableFunc(events, func(a, b entity.Entity) int {
		return b.LastChanged.Compare(a.LastChanged)
	})
	return events, nil
}

// Search keeps the events matching every whitespace-separated keyword in
// query. A keyword matches when it appears, case-insensitively, in the
// event's display name, entity id or state.
func Search(events []entity.Entity, query string) []entity.Entity {
	keywords := strings.Fields(strings.ToLower(query))
	if len(keywords) == 0 {
		return events
	}

	out := []entity.Entity{}
	for _, e := range events {
		text := strings.ToLower(e.DisplayName() + " " + e.ID + " " + e.State)
		if matchesAll(text, keywords) {
			out = append(out, e)
		}
	}
	return out
}

func matchesAll(text string, keywords []string) bool {
	for _, k := range keywords {
		if !strings.Contains(text, k) {
			return false
		}
	}
	return true
}
