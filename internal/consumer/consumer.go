// Package consumer implements the Consumer Registry (C10): the set of
// configured consumer/pull-consumer handles a Record may be dispatched to,
// plus two built-in handle implementations.
//
// Grounded on transport/file's Transport interface (Send/Close) generalized
// from "one formatted byte slice" to "one Record plus dispatch metadata",
// and on its mutex-guarded single-destination shape for DebugFileConsumer.
package consumer

import (
	"context"

	"github.com/f5devcentral/telemetry-streaming-agent/models"
)

// Event is what a consumer Handle receives for one dispatched record.
type Event struct {
	Record   models.Record
	Metadata map[string]any
}

// Handle is the pipeline contract every consumer implementation satisfies.
// Push consumers are invoked once per matching record; pull consumers are
// invoked on-demand by their own endpoint (see PullHandle).
type Handle interface {
	Send(ctx context.Context, ev Event) error
	Close() error
}

// PullHandle is implemented by consumers that serve data on request (e.g. a
// Prometheus exposition endpoint) rather than receiving a push per record.
// Records pushed to a pull consumer accumulate until Collect is called.
type PullHandle interface {
	Handle
	Collect(ctx context.Context) ([]byte, string, error)
}

// Filter decides whether a record should be dispatched to a consumer at all,
// e.g. a type-category gate (§4.8 step 2).
type Filter func(*models.Record) bool

// Entry is one registered consumer: its handle plus the routing/shaping
// configuration the pipeline applies before invoking it.
type Entry struct {
	ID        string
	Namespace string
	Enabled   bool
	Filter    Filter
	Actions   []models.ActionSpec
	Handle    Handle
}
