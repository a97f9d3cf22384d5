// Package worker implements the Config Worker / Reconciler (C11): the
// single orchestrator that accepts declarations, resolves them, and
// reconciles the receiver/listener/scheduler/consumer subsystems to match.
//
// Grounded on pkg/snmpcollector/app/app.go's New/Start/Stop lifecycle and
// its "pre-count goroutines before the WaitGroup-gated close" discipline,
// retargeted from a single linear SNMP pipeline to the telemetry agent's
// declaration-driven reconcile loop. Declaration applies are serialized
// through a single-item job queue, mirroring the teacher's single
// scheduler goroutine model (§4.9 "concurrent calls are queued").
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/f5devcentral/telemetry-streaming-agent/internal/actions"
	"github.com/f5devcentral/telemetry-streaming-agent/internal/config"
	"github.com/f5devcentral/telemetry-streaming-agent/internal/consumer"
	"github.com/f5devcentral/telemetry-streaming-agent/internal/httpclient"
	"github.com/f5devcentral/telemetry-streaming-agent/internal/listener"
	"github.com/f5devcentral/telemetry-streaming-agent/internal/pipeline"
	"github.com/f5devcentral/telemetry-streaming-agent/internal/receiver"
	"github.com/f5devcentral/telemetry-streaming-agent/internal/scheduler"
	"github.com/f5devcentral/telemetry-streaming-agent/internal/vault"
	"github.com/f5devcentral/telemetry-streaming-agent/models"
	"go.opentelemetry.io/otel/metric"
)

// ProcessOptions mirror §4.9's processDeclaration(decl, opts) options.
type ProcessOptions struct {
	Expanded          bool
	Save              bool
	Metadata          any
	NamespaceToUpdate string
}

// Config holds constructor options for Worker.
type Config struct {
	Storage Storage // nil defaults to an in-memory store
	Vault   vault.Config
	// Meter, if set, enables pipeline dispatch latency/failure instruments
	// (§5 self-metrics) against the given OpenTelemetry meter.
	Meter metric.Meter
}

// Worker is the Config Worker / Reconciler.
type Worker struct {
	cfg     Config
	storage Storage
	logger  *slog.Logger

	vault     *vault.Vault
	receivers *receiver.Manager
	scheduler *scheduler.Scheduler
	consumers *consumer.Registry
	pipe      *pipeline.Pipeline
	sysPoller *systemPoller
	events    *eventBus

	liveMu    sync.RWMutex
	current   models.ResolvedSet
	rawDecl   models.Declaration
	listeners map[string]*listener.Listener

	jobs   chan func()
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New constructs a Worker. Call Start to begin running it.
func New(cfg Config, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(noopWriter{}, nil))
	}
	storage := cfg.Storage
	if storage == nil {
		storage = newMemStorage()
	}

	w := &Worker{
		cfg:       cfg,
		storage:   storage,
		logger:    logger,
		vault:     vault.New(cfg.Vault, logger),
		receivers: receiver.New(logger),
		consumers: consumer.NewRegistry(),
		events:    newEventBus(logger),
		listeners: map[string]*listener.Listener{},
		jobs:      make(chan func(), 1),
	}
	pipeCfg := pipeline.Config{Registry: w.consumers, Mappings: w.mappingsFunc()}
	if cfg.Meter != nil {
		if pm, err := pipeline.NewMetrics(cfg.Meter); err != nil {
			logger.Error("worker: pipeline metrics unavailable", "error", err.Error())
		} else {
			pipeCfg.OnDispatch = pm.OnDispatch
		}
	}
	w.pipe = pipeline.New(pipeCfg, logger)
	w.sysPoller = newSystemPoller(httpclient.NewPool(httpclient.PoolOptions{}), w.vault, actions.New(logger), logger, w.pipe.Dispatch)
	w.scheduler = scheduler.New(w.pollOne, logger)
	return w
}

// Subscribe registers h to receive every future event (§4.9 event surface).
func (w *Worker) Subscribe(h EventHandler) { w.events.Subscribe(h) }

// Start launches the worker's processing goroutine and the scheduler.
func (w *Worker) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.runJobs(ctx)
	}()

	w.scheduler.Start(ctx)
}

// Stop ends the scheduler, processing loop, and every live listener/consumer.
func (w *Worker) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.scheduler.Stop()
	close(w.jobs)
	w.wg.Wait()

	w.liveMu.RLock()
	listeners := w.listeners
	w.liveMu.RUnlock()
	for _, l := range listeners {
		l.Stop()
	}
	w.consumers.Swap(map[string]*consumer.Entry{})
}

func (w *Worker) runJobs(ctx context.Context) {
	for {
		select {
		case job, ok := <-w.jobs:
			if !ok {
				return
			}
			job()
		case <-ctx.Done():
			return
		}
	}
}

// pollOne is the scheduler.PollFunc: it looks up the live component for
// pollerID and runs one HTTP poll cycle for it.
func (w *Worker) pollOne(ctx context.Context, pollerID string) {
	w.liveMu.RLock()
	c, ok := w.current.ByID(pollerID)
	w.liveMu.RUnlock()
	if !ok {
		return
	}
	w.sysPoller.Poll(ctx, c)
}

// GetDeclaration returns the stored raw declaration, optionally sliced to
// one namespace (§4.9).
func (w *Worker) GetDeclaration(namespace string) (models.Declaration, error) {
	w.liveMu.RLock()
	defer w.liveMu.RUnlock()

	if namespace == "" {
		return w.rawDecl, nil
	}
	body, ok := w.rawDecl[namespace].(map[string]any)
	if !ok || body["class"] != "Telemetry_Namespace" {
		return nil, &config.ObjectNotFoundInConfigError{Namespace: namespace}
	}
	return models.Declaration(body), nil
}

// ProcessDeclaration validates, resolves, optionally persists, and
// reconciles decl, firing the §4.9 event surface along the way. Applies are
// serialized through the single-item job queue.
func (w *Worker) ProcessDeclaration(ctx context.Context, decl models.Declaration, opts ProcessOptions) error {
	result := make(chan error, 1)
	job := func() {
		result <- w.applyDeclaration(ctx, decl, opts)
	}
	select {
	case w.jobs <- job:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ProcessNamespaceDeclaration validates nsDecl as a namespace fragment, then
// merges it into the full declaration and processes the result (§4.9).
func (w *Worker) ProcessNamespaceDeclaration(ctx context.Context, nsDecl models.Declaration, namespace string, opts ProcessOptions) error {
	w.liveMu.RLock()
	merged := cloneDeclaration(w.rawDecl)
	w.liveMu.RUnlock()

	body := make(map[string]any, len(nsDecl)+1)
	for k, v := range nsDecl {
		body[k] = v
	}
	body["class"] = "Telemetry_Namespace"
	merged[namespace] = body

	opts.NamespaceToUpdate = namespace
	return w.ProcessDeclaration(ctx, merged, opts)
}

func (w *Worker) applyDeclaration(ctx context.Context, decl models.Declaration, opts ProcessOptions) error {
	txID := newTransactionID()
	w.events.emit(EventReceived, txID, opts.NamespaceToUpdate, opts.Metadata, nil)

	w.liveMu.RLock()
	previous := w.current.Components
	w.liveMu.RUnlock()

	next, err := config.Resolve(decl, previous)
	if err != nil {
		w.events.emit(EventValidationFailed, txID, opts.NamespaceToUpdate, opts.Metadata, err)
		return fmt.Errorf("worker: resolve: %w", err)
	}
	w.events.emit(EventValidationSucceed, txID, opts.NamespaceToUpdate, opts.Metadata, nil)

	if err := w.reconcile(ctx, next); err != nil {
		return fmt.Errorf("worker: reconcile: %w", err)
	}

	w.liveMu.Lock()
	w.rawDecl = decl
	w.liveMu.Unlock()

	if opts.Save {
		raw, err := json.Marshal(decl)
		if err != nil {
			return fmt.Errorf("worker: marshal declaration: %w", err)
		}
		if err := w.storage.Save(ctx, raw); err != nil {
			return fmt.Errorf("worker: persist declaration: %w", err)
		}
	}

	w.events.emit(EventChange, txID, opts.NamespaceToUpdate, opts.Metadata, nil)
	return nil
}

// Load rehydrates the declaration from storage at startup. On failure it
// falls back to an empty declaration and logs, without overwriting the
// stored blob (§4.9 load()).
func (w *Worker) Load(ctx context.Context) error {
	raw, err := w.storage.Load(ctx)
	if err != nil {
		w.logger.Error("worker: load from storage failed, starting empty", "error", err.Error())
		return nil
	}
	if raw == nil {
		return nil
	}
	var decl models.Declaration
	if err := json.Unmarshal(raw, &decl); err != nil {
		w.logger.Error("worker: decode persisted declaration failed, starting empty", "error", err.Error())
		return nil
	}
	if err := w.ProcessDeclaration(ctx, decl, ProcessOptions{Expanded: true}); err != nil {
		w.logger.Error("worker: persisted declaration rejected, starting empty", "error", err.Error())
	}
	return nil
}

// Cleanup drops in-memory state and removes the persisted declaration
// (§4.9 cleanup()).
func (w *Worker) Cleanup(ctx context.Context) error {
	if err := w.reconcile(ctx, models.ResolvedSet{}); err != nil {
		return err
	}
	w.liveMu.Lock()
	w.rawDecl = nil
	w.liveMu.Unlock()
	w.sysPoller.tokens.Clear()
	return w.storage.Delete(ctx)
}

// CollectPullConsumer drives every system poller belonging to the pull
// consumer's synthesized group and returns its consumer handle's rendered
// output (§4.8's pull path, exercised end to end via PrometheusConsumer).
func (w *Worker) CollectPullConsumer(ctx context.Context, pullConsumerID string) ([]byte, string, error) {
	w.liveMu.RLock()
	groupIDs := w.current.Mappings[pullConsumerID]
	var group models.Component
	found := false
	for _, c := range w.current.Components {
		if c.Class == "Telemetry_Pull_Consumer_System_Poller_Group" {
			for _, target := range w.current.Mappings[c.ID] {
				if target == pullConsumerID {
					group, found = c, true
				}
			}
		}
	}
	_ = groupIDs
	w.liveMu.RUnlock()

	if !found {
		return nil, "", fmt.Errorf("worker: no poller group for pull consumer %q", pullConsumerID)
	}
	fields := group.Fields.(models.PullConsumerGroupFields)
	for _, pollerID := range fields.PollerIDs {
		w.liveMu.RLock()
		c, ok := w.current.ByID(pollerID)
		w.liveMu.RUnlock()
		if ok {
			w.sysPoller.Poll(ctx, c)
		}
	}

	entry, ok := w.consumers.Get(pullConsumerID)
	if !ok {
		return nil, "", fmt.Errorf("worker: pull consumer %q not registered", pullConsumerID)
	}
	pullable, ok := entry.Handle.(consumer.PullHandle)
	if !ok {
		return nil, "", fmt.Errorf("worker: consumer %q does not support pull collection", pullConsumerID)
	}
	return pullable.Collect(ctx)
}

func cloneDeclaration(d models.Declaration) models.Declaration {
	out := make(models.Declaration, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

type noopWriter struct{}

func (noopWriter) Write(p []byte) (int, error) { return len(p), nil }
