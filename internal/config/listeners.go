package config

import "github.com/f5devcentral/telemetry-streaming-agent/models"

func (r *resolver) resolveListeners() error {
	for _, key := range sortedKeys(r.listeners) {
		o := r.listeners[key]
		port := intField(o.Body, "port", 0)
		if port == 0 {
			return fmtErr(key, "missing required property \"port\"")
		}
		fields := models.ListenerFields{
			Protocols: []string{"tcp", "udp4", "udp6"},
			Port:      port,
			Match:     stringField(o.Body, "match"),
			Tag:       toTagMap(o.Body, "tag"),
			Actions:   parseActions(o.Body),
		}
		c := models.Component{
			ID:        key,
			Class:     "Telemetry_Listener",
			Namespace: o.Namespace,
			Name:      o.Name,
			Enable:    boolField(o.Body, "enable", true),
			Trace:     parseTraceSpec(o.Body),
			Fields:    fields,
		}
		if err := r.addComponent(c); err != nil {
			return err
		}
	}
	return nil
}
