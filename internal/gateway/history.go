package gateway

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/nerrad567/gray-logic-remote/internal/entity"
)

// HistoryQuery selects state changes in [Start, End], optionally for one entity.
type HistoryQuery struct {
	Start    time.Time
	End      time.Time
	EntityID string
}

// History fetches recorded state changes (GET /api/history/period/{start}).
// The gateway groups results per entity; they are returned flattened in
// the order received.
func (c *Client) History(ctx context.Context, q HistoryQuery) ([]entity.Entity, error) {
	if q.Start.IsZero() {
		return nil, fmt.Errorf("%w: history start is required", ErrInvalidAction)
	}
	if !q.End.IsZero() && q.End.Before(q.Start) {
		return nil, fmt.Errorf("%w: history end is before start", ErrInvalidAction)
	}

	params := url.Values{}
	if !q.End.IsZero() {
		params.Set("end_time", q.End.UTC().Format(time.RFC3339))
	}
	if q.EntityID != "" {
		params.Set("filter_entity_id", q.EntityID)
	}

	path := "/api/history/period/" + url.PathEscape(q.Start.UTC().Format(time.RFC3339))
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var groups [][]entity.Entity
	if err := c.getJSON(ctx, path, &groups); err != nil {
		return nil, err
	}

	var out []entity.Entity
	for _, g := range groups {
		out = append(out, g...)
	}
	return out, nil
}
