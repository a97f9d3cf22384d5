package config

import "github.com/f5devcentral/telemetry-streaming-agent/models"

func (r *resolver) resolveConsumers() error {
	for _, key := range sortedKeys(r.consumers) {
		o := r.consumers[key]
		typ := stringField(o.Body, "type")
		if typ == "" {
			return fmtErr(key, "missing required property \"type\"")
		}
		fields := models.ConsumerFields{
			Type:    typ,
			Actions: parseActions(o.Body),
			Options: o.Body,
		}
		c := models.Component{
			ID:        key,
			Class:     "Telemetry_Consumer",
			Namespace: o.Namespace,
			Name:      o.Name,
			Enable:    boolField(o.Body, "enable", true),
			Trace:     parseTraceSpec(o.Body),
			Fields:    fields,
		}
		if err := r.addComponent(c); err != nil {
			return err
		}
		// Every enabled push consumer subscribes to every enabled producer
		// (listener or system poller) in its own namespace; the declaration
		// has no narrower producer selector than namespace scope.
		if c.Enable {
			r.subscribeNamespaceConsumer(o.Namespace, key)
		}
	}
	return nil
}

// subscribeNamespaceConsumer records that consumerID should receive records
// from every producer resolved so far (or later) in namespace ns. Since
// listeners are resolved before consumers and systems after, this records a
// pending subscription keyed by namespace; buildMappings reconciles it
// against the final producer set.
func (r *resolver) subscribeNamespaceConsumer(ns, consumerID string) {
	r.pushMapping[ns] = append(r.pushMapping[ns], consumerID)
}
