// Package pipeline implements the Data Pipeline (C9): routing a Record to
// every consumer its source maps to, with per-consumer isolation.
//
// Grounded on pkg/snmpcollector/app/app.go's channel fan-out and explicit
// per-stage WaitGroup shutdown, adapted from app.go's single linear pipeline
// into a fan-out-to-N-consumers pipeline (§4.8): one goroutine per enabled
// target consumer for each dispatched record, a per-record WaitGroup for
// settle-all dispatch, and a
// recovered consumer invocation so one bad consumer never sinks the batch.
package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/f5devcentral/telemetry-streaming-agent/internal/actions"
	"github.com/f5devcentral/telemetry-streaming-agent/internal/consumer"
	"github.com/f5devcentral/telemetry-streaming-agent/models"
)

// Mappings resolves a record's sourceId to the consumer ids it should be
// dispatched to (models.ResolvedSet.Mappings, a read-only snapshot swapped
// in by the reconciler).
type Mappings func(sourceID string) []string

// Pipeline dispatches records to the consumer registry according to the
// current mapping table.
type Pipeline struct {
	registry  *consumer.Registry
	mappings  Mappings
	processor *actions.Processor
	logger    *slog.Logger

	onDispatch func(consumerID string, err error, elapsed time.Duration)
}

// Config holds constructor options for Pipeline.
type Config struct {
	Registry *consumer.Registry
	Mappings Mappings

	// OnDispatch, if set, is called once per consumer invocation with its
	// outcome, used to feed self-metrics (receiver restarts aside, §5
	// "consumer dispatch failures").
	OnDispatch func(consumerID string, err error, elapsed time.Duration)
}

// New constructs a Pipeline.
func New(cfg Config, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(noopWriter{}, nil))
	}
	return &Pipeline{
		registry:   cfg.Registry,
		mappings:   cfg.Mappings,
		processor:  actions.New(logger),
		logger:     logger,
		onDispatch: cfg.OnDispatch,
	}
}

// Dispatch routes rec to every enabled, matching consumer and waits for all
// of them to settle (§4.8: "dispatch complete when all consumers have
// either completed or failed"). It never returns an error itself: failures
// are per-consumer and are swallowed-and-logged per the isolation contract.
func (p *Pipeline) Dispatch(ctx context.Context, rec models.Record) {
	ids := p.mappings(rec.SourceID)
	if len(ids) == 0 {
		return
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		entry, ok := p.registry.Get(id)
		if !ok || !entry.Enabled {
			continue
		}
		wg.Add(1)
		go func(e *consumer.Entry) {
			defer wg.Done()
			p.dispatchOne(ctx, e, rec)
		}(entry)
	}
	wg.Wait()
}

// dispatchOne implements §4.8 steps 1-3 for a single consumer: deep-copy,
// filter + actions, invoke, with the invocation itself recovered so a
// panicking consumer handle cannot crash the pipeline goroutine.
func (p *Pipeline) dispatchOne(ctx context.Context, e *consumer.Entry, rec models.Record) {
	start := time.Now()
	cp := rec.Clone()

	if e.Filter != nil && !e.Filter(cp) {
		return
	}
	p.processor.Apply(e.Actions, cp)

	err := p.invoke(ctx, e, cp)
	elapsed := time.Since(start)
	if err != nil {
		p.logger.Warn("pipeline: consumer dispatch failed", "consumer", e.ID, "error", err.Error())
	}
	if p.onDispatch != nil {
		p.onDispatch(e.ID, err, elapsed)
	}
}

// invoke calls the consumer handle with a panic recovery, matching the
// isolation contract: "thrown exceptions and rejections are swallowed and
// logged, never propagated".
func (p *Pipeline) invoke(ctx context.Context, e *consumer.Entry, rec *models.Record) (err error) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("pipeline: consumer panicked", "consumer", e.ID, "panic", r)
			err = errPanic
		}
	}()
	return e.Handle.Send(ctx, consumer.Event{Record: *rec})
}

var errPanic = panicError{}

type panicError struct{}

func (panicError) Error() string { return "pipeline: recovered consumer panic" }

type noopWriter struct{}

func (noopWriter) Write(p []byte) (int, error) { return len(p), nil }
