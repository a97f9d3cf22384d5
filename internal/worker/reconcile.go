package worker

import (
	"context"
	"time"

	"github.com/f5devcentral/telemetry-streaming-agent/internal/consumer"
	"github.com/f5devcentral/telemetry-streaming-agent/internal/listener"
	"github.com/f5devcentral/telemetry-streaming-agent/models"
)

// reconcile brings the live receiver/listener/scheduler/consumer state in
// line with next, starting new components, stopping removed ones, and
// leaving unchanged ones alone. Grounded on pkg/snmpcollector/app.go's
// Start/Stop discipline, generalized from "build once" to "diff and
// re-apply on every declaration change".
func (w *Worker) reconcile(ctx context.Context, next models.ResolvedSet) error {
	w.liveMu.Lock()
	prevListeners := w.listeners
	w.liveMu.Unlock()

	nextListeners := map[string]*listener.Listener{}
	pollers := map[string]int{}

	for _, c := range next.Components {
		switch c.Class {
		case "Telemetry_Listener":
			if !c.Enable {
				continue
			}
			l, err := w.reconcileListener(ctx, c, prevListeners)
			if err != nil {
				w.logger.Error("worker: listener reconcile failed", "id", c.ID, "error", err.Error())
				continue
			}
			nextListeners[c.ID] = l
		case "Telemetry_System_Poller":
			if !c.Enable {
				continue
			}
			fields, ok := c.Fields.(models.SystemPollerFields)
			if ok && fields.Interval > 0 {
				pollers[c.ID] = fields.Interval
			}
		}
	}

	for id, l := range prevListeners {
		if _, stillLive := nextListeners[id]; !stillLive {
			l.Stop()
		}
	}

	w.liveMu.Lock()
	w.listeners = nextListeners
	w.current = next
	w.liveMu.Unlock()

	w.scheduler.SetPollers(durationsFromSeconds(pollers))
	w.reconcileConsumers(next)
	return nil
}

func (w *Worker) reconcileListener(ctx context.Context, c models.Component, prev map[string]*listener.Listener) (*listener.Listener, error) {
	fields := c.Fields.(models.ListenerFields)
	cfg := listener.Config{
		ID:          c.ID,
		Namespace:   c.Namespace,
		Port:        fields.Port,
		Match:       fields.Match,
		Tag:         fields.Tag,
		Actions:     fields.Actions,
		TraceEnable: c.Trace.Enable,
		TracePath:   c.Trace.Path,
		TraceType:   c.Trace.Type,
	}

	if l, ok := prev[c.ID]; ok {
		if l.Port() == cfg.Port {
			if err := l.Update(cfg); err != nil {
				return nil, err
			}
			return l, nil
		}
		// Port changed: the old socket subscription no longer applies, so
		// this id needs a fresh Listener bound to the new port.
		l.Stop()
	}

	l, err := listener.New(cfg, w.receivers, w.logger)
	if err != nil {
		return nil, err
	}
	if err := l.Start(ctx); err != nil {
		return nil, err
	}
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for rec := range l.Output() {
			w.pipe.Dispatch(ctx, *rec)
		}
	}()
	return l, nil
}

// reconcileConsumers rebuilds the consumer registry from next's push and
// pull consumer components. Handles are recreated on every reconcile for
// simplicity; their own state (e.g. a Prometheus registry) is reset, which
// is acceptable since configuration changes are infrequent control-plane
// events, not a data-plane hot path.
func (w *Worker) reconcileConsumers(next models.ResolvedSet) {
	entries := map[string]*consumer.Entry{}
	for _, c := range next.Components {
		switch c.Class {
		case "Telemetry_Consumer":
			fields := c.Fields.(models.ConsumerFields)
			entries[c.ID] = &consumer.Entry{
				ID:        c.ID,
				Namespace: c.Namespace,
				Enabled:   c.Enable,
				Actions:   fields.Actions,
				Handle:    w.buildHandle(fields.Type),
			}
		case "Telemetry_Pull_Consumer":
			fields := c.Fields.(models.PullConsumerFields)
			entries[c.ID] = &consumer.Entry{
				ID:        c.ID,
				Namespace: c.Namespace,
				Enabled:   c.Enable,
				Actions:   fields.Actions,
				Handle:    w.buildHandle(fields.Type),
			}
		}
	}
	w.consumers.Swap(entries)
}

// buildHandle resolves a consumer's declared "type" to a registered handle
// implementation. Unknown types fall back to the debug file consumer so a
// typo in configuration degrades to visible output rather than silent loss.
func (w *Worker) buildHandle(consumerType string) consumer.Handle {
	switch consumerType {
	case "Prometheus":
		return consumer.NewPrometheusConsumer([]string{"namespace"})
	default:
		return consumer.NewDebugFileConsumer(consumer.DebugFileConfig{}, w.logger)
	}
}

func durationsFromSeconds(pollers map[string]int) map[string]time.Duration {
	out := make(map[string]time.Duration, len(pollers))
	for id, sec := range pollers {
		out[id] = time.Duration(sec) * time.Second
	}
	return out
}

// mappingsFunc returns a pipeline.Mappings closure reading the live
// ResolvedSet under a short read lock, matching the shared-resource policy:
// "snapshot-read under a short critical section".
func (w *Worker) mappingsFunc() func(sourceID string) []string {
	return func(sourceID string) []string {
		w.liveMu.RLock()
		defer w.liveMu.RUnlock()
		return w.current.Mappings[sourceID]
	}
}
