package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/f5devcentral/telemetry-streaming-agent/models"
)

// InjectDebugEvent implements the debug injection endpoint (§6): arbitrary
// JSON posted against a listener's identity becomes the Data of a record
// carrying that listener's tags and actions, dispatched to its consumers.
// The listener's match filter and category inference are not applied: the
// record's category is always "event". Requires Controls.debug=true on the
// current declaration.
func (w *Worker) InjectDebugEvent(ctx context.Context, namespace, listenerName string, body map[string]any) error {
	w.liveMu.RLock()
	controls, _ := w.rawDecl["Controls"].(map[string]any)
	debugEnabled, _ := controls["debug"].(bool)
	id := namespace + "::" + listenerName
	c, ok := w.current.ByID(id)
	w.liveMu.RUnlock()

	if !debugEnabled {
		return fmt.Errorf("worker: debug injection requires Controls.debug=true")
	}
	if !ok || c.Class != "Telemetry_Listener" {
		return fmt.Errorf("worker: no enabled listener %q in namespace %q", listenerName, namespace)
	}

	fields := c.Fields.(models.ListenerFields)
	rec := models.Record{
		Timestamp:              time.Now().UTC(),
		TelemetryEventCategory: "event",
		SourceID:               c.ID,
		Namespace:              c.Namespace,
		Data:                   body,
		Tags:                   fields.Tag,
	}
	w.sysPoller.processor.Apply(fields.Actions, &rec)
	w.pipe.Dispatch(ctx, rec)
	return nil
}
