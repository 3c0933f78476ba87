package influxdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/gray-logic-remote/internal/entity"
	"github.com/nerrad567/gray-logic-remote/internal/statesync"
)

// Measurement names.
const (
	MeasurementEntityState = "entity_state"
	MeasurementReconcile   = "reconcile"
)

// EntityStatePoint builds an entity_state point. The numeric value field
// is only present when the state parses as a float.
func EntityStatePoint(e entity.Entity, at time.Time) *write.Point {
	fields := map[string]any{"state": e.State}
	if v, err := strconv.ParseFloat(e.State, 64); err == nil {
		fields["value"] = v
	}
	return write.NewPoint(
		MeasurementEntityState,
		map[string]string{
			"entity_id": e.ID,
			"domain":    e.Domain(),
			"room":      e.Room(),
		},
		fields,
		at,
	)
}

// ReconcilePoint builds a reconcile point from a dispatch result.
func ReconcilePoint(r statesync.Result, at time.Time) *write.Point {
	return write.NewPoint(
		MeasurementReconcile,
		map[string]string{
			"entity_id":  r.EntityID,
			"action":     r.Action,
			"resolution": string(r.Resolution),
		},
		map[string]any{
			"attempts":  len(r.Attempts),
			"converged": r.Converged(),
		},
		at,
	)
}

// WriteEntityState records one entity sample. Writes are dropped while
// disconnected.
func (c *Client) WriteEntityState(e entity.Entity, at time.Time) {
	c.write(EntityStatePoint(e, at))
}

// WriteReconcile records one reconciliation outcome.
func (c *Client) WriteReconcile(r statesync.Result, at time.Time) {
	c.write(ReconcilePoint(r, at))
}

func (c *Client) write(p *write.Point) {
	if !c.IsConnected() {
		c.dropped.Add(1)
		return
	}
	c.writeAPI.WritePoint(p)
	c.points.Add(1)
}

// Notify implements statesync.Notifier. Sync errors are not recorded.
func (c *Client) Notify(ev statesync.Event) {
	at := ev.Timestamp
	if at.IsZero() {
		at = time.Now()
	}

	switch ev.Type {
	case statesync.EventSnapshotUpdated:
		for e := range ev.Snapshot.All {
			c.WriteEntityState(e, at)
		}
	case statesync.EventEntityUpdated:
		if ev.Entity != nil {
			c.WriteEntityState(*ev.Entity, at)
		}
	case statesync.EventReconcileCompleted:
		if ev.Reconcile != nil {
			c.WriteReconcile(*ev.Reconcile, at)
		}
	}
}
