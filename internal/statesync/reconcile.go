package statesync

import (
	"context"
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-remote/internal/entity"
	"github.com/nerrad567/gray-logic-remote/internal/gateway"
)

// Outcome is the result of one verification attempt.
type Outcome string

// Verification attempt outcomes.
const (
	// OutcomePending: the target was read but has not reached the wanted state.
	OutcomePending Outcome = "pending"
	// OutcomeMissing: the read succeeded but did not contain the target.
	OutcomeMissing Outcome = "missing"
	// OutcomeConverged: the target reached the wanted state.
	OutcomeConverged Outcome = "converged"
	// OutcomeIgnoredRetryable: the read failed; the loop moved on.
	OutcomeIgnoredRetryable Outcome = "ignored_retryable"
)

// Resolution says how a dispatch ended.
type Resolution string

// Dispatch resolutions.
const (
	// ResolutionConverged: a verification attempt saw the wanted state.
	ResolutionConverged Resolution = "converged"
	// ResolutionFinalRead: attempts ran out; the state from one last read was patched in.
	ResolutionFinalRead Resolution = "final_read"
	// ResolutionFullRefresh: the last read failed too; the snapshot was refetched.
	ResolutionFullRefresh Resolution = "full_refresh"
	// ResolutionFailed: the action call or the recovery failed.
	ResolutionFailed Resolution = "failed"
)

// Attempt records one verification read.
type Attempt struct {
	Number  int          `json:"number"`
	DelayMS int64        `json:"delay_ms"`
	Outcome Outcome      `json:"outcome"`
	State   string       `json:"state,omitempty"`
	Kind    gateway.Kind `json:"error_kind,omitempty"`
}

// Result describes a completed Dispatch.
type Result struct {
	EntityID   string     `json:"entity_id"`
	Action     string     `json:"action"`
	Baseline   string     `json:"baseline"`
	Expected   string     `json:"expected,omitempty"`
	State      string     `json:"state"`
	Resolution Resolution `json:"resolution"`
	Attempts   []Attempt  `json:"attempts"`
}

// Converged reports whether a verification attempt saw the wanted state.
func (r Result) Converged() bool {
	return r.Resolution == ResolutionConverged
}

// Dispatch sends action a to entityID and reconciles the held snapshot
// with the outcome.
//
// An error from the action call is returned as is, with no polling. After
// a successful call Dispatch only returns an error when the context ends
// or when both the final read and the fallback FetchAll fail. Exhausting
// the attempts is not an error: the last observed state is reported
// instead, and a target that has vanished is left unpatched.
func (e *Engine) Dispatch(ctx context.Context, entityID string, a gateway.Action) (Result, error) {
	res := Result{EntityID: entityID, Attempts: []Attempt{}}
	if a == nil {
		return res, fmt.Errorf("%w: nil action", gateway.ErrInvalidAction)
	}
	res.Action = a.Name()
	if err := gateway.Validate(entityID, a); err != nil {
		return res, err
	}

	b, err := e.conn.Current(ctx)
	if err != nil {
		e.publishError("dispatch", entityID, err)
		return res, err
	}

	baseline, hadBaseline := e.Snapshot().Get(entityID)
	res.Baseline = baseline.State
	expected, hasExpected := gateway.ExpectedState(a)
	res.Expected = expected

	if err := b.Gateway.Invoke(ctx, entityID, a); err != nil {
		err = fmt.Errorf("dispatching %s to %s: %w", a.Name(), entityID, err)
		e.logger.Warn("action failed", "entity_id", entityID, "action", a.Name(), "kind", gateway.KindOf(err), "error", err)
		res.Resolution = ResolutionFailed
		e.publishError("dispatch", entityID, err)
		e.publishResult(res)
		return res, err
	}

	converged := func(got entity.Entity) bool {
		if hadBaseline && got.State == baseline.State {
			return false
		}
		return !hasExpected || got.State == expected
	}

	for n := 0; n < e.opts.VerifyAttempts; n++ {
		delay := e.opts.verifyDelay(n)
		if err := sleep(ctx, delay); err != nil {
			res.Resolution = ResolutionFailed
			e.publishResult(res)
			return res, err
		}

		att := Attempt{Number: n + 1, DelayMS: delay.Milliseconds()}
		snap, err := b.Gateway.ListAll(ctx)
		switch {
		case err != nil:
			att.Outcome = OutcomeIgnoredRetryable
			att.Kind = gateway.KindOf(err)
			e.logger.Warn("verification read failed, ignoring",
				"entity_id", entityID,
				"attempt", att.Number,
				"outcome", att.Outcome,
				"kind", att.Kind,
				"error", err,
			)
		default:
			got, ok := snap.Get(entityID)
			if !ok {
				att.Outcome = OutcomeMissing
				break
			}
			att.State = got.State
			if converged(got) {
				att.Outcome = OutcomeConverged
				res.Attempts = append(res.Attempts, att)
				res.State = got.State
				res.Resolution = ResolutionConverged
				e.patch(got)
				e.logger.Debug("action converged", "entity_id", entityID, "action", a.Name(), "attempt", att.Number, "state", got.State)
				e.publishResult(res)
				return res, nil
			}
			att.Outcome = OutcomePending
		}
		res.Attempts = append(res.Attempts, att)
	}

	return e.settle(ctx, b, res)
}

// settle runs after the verification attempts are exhausted.
func (e *Engine) settle(ctx context.Context, b Binding, res Result) (Result, error) {
	snap, err := b.Gateway.ListAll(ctx)
	if err == nil {
		res.Resolution = ResolutionFinalRead
		got, ok := snap.Get(res.EntityID)
		if !ok {
			e.logger.Info("target missing after action, snapshot left as is", "entity_id", res.EntityID, "action", res.Action)
			e.publishResult(res)
			return res, nil
		}
		res.State = got.State
		e.patch(got)
		e.logger.Info("action did not converge, accepted observed state",
			"entity_id", res.EntityID,
			"action", res.Action,
			"state", got.State,
			"expected", res.Expected,
		)
		e.publishResult(res)
		return res, nil
	}

	e.logger.Warn("final read failed, refetching snapshot", "entity_id", res.EntityID, "kind", gateway.KindOf(err), "error", err)
	snap, err = e.FetchAll(ctx)
	if err != nil {
		res.Resolution = ResolutionFailed
		e.publishResult(res)
		return res, err
	}
	res.Resolution = ResolutionFullRefresh
	if got, ok := snap.Get(res.EntityID); ok {
		res.State = got.State
	}
	e.publishResult(res)
	return res, nil
}

func (e *Engine) publishResult(res Result) {
	r := res
	r.Attempts = append([]Attempt(nil), res.Attempts...)
	e.events.publish(Event{
		Type:      EventReconcileCompleted,
		Timestamp: time.Now().UTC(),
		BaseURL:   e.BaseURL(),
		Reconcile: &r,
	})
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
