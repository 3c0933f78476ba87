// Package statesync owns what the program currently believes the state of
// the gateway is.
//
// The Engine holds one id-sorted entity.Snapshot. It is replaced wholesale
// by FetchAll and patched one entity at a time by Dispatch, which sends an
// action and then polls the gateway until the target entity reflects it
// (or a fixed number of attempts run out). Readers get immutable copies;
// nothing outside the engine mutates the held snapshot.
//
// # Fetch-all
//
// At most one full fetch is in flight per engine. A caller arriving while
// one runs joins it and receives its result; no second request is sent.
//
// # Reconciliation
//
// After a successful action call the engine re-reads the full state set
// up to VerifyAttempts times, waiting VerifyBaseDelay + VerifyStep*n
// before attempt n (n from 0). Verification reads never touch the held
// snapshot. The action converges on the first attempt where the target's
// state differs from its pre-dispatch baseline and, for turn_on/turn_off,
// equals "on"/"off". On convergence only the target entity is patched.
// When attempts run out one final read is made and whatever it shows is
// patched in; if that read fails a full FetchAll is done instead.
//
// Read errors during verification do not fail the dispatch. They are
// recorded on the attempt as OutcomeIgnoredRetryable and logged. The
// action call itself is never retried.
//
// # Events
//
// Every state change and failure is published as an Event. Subscribe
// returns a buffered channel; AddNotifier attaches a sink (WebSocket hub,
// MQTT, InfluxDB) that runs on its own goroutine. A slow consumer loses
// events rather than stalling the engine.
package statesync
