package config

import "github.com/f5devcentral/telemetry-streaming-agent/models"

// resolvePullConsumers resolves each Telemetry_Pull_Consumer and synthesizes
// its Pull Consumer System Poller Group (§4.1 step 4).
//
// Ordering algorithm (pinned by the worked example in spec §8 scenario 5):
// walk systems in ascending system id order; for each system, walk its own
// systemPoller references in declared order; whenever a referenced poller
// name is also requested by the pull consumer, emit that system's fully
// qualified poller id. Once every system has been walked, any requested
// poller name that was never matched by a system is synthesized as its own
// system (host "localhost") named after the poller, appended in the pull
// consumer's own declared order. Matches are de-duplicated by id.
func (r *resolver) resolvePullConsumers() error {
	for _, key := range sortedKeys(r.pullConsumers) {
		o := r.pullConsumers[key]
		typ := stringField(o.Body, "type")
		if typ == "" {
			return fmtErr(key, "missing required property \"type\"")
		}

		requested, err := parseSystemPollerField(o.Body["systemPoller"])
		if err != nil {
			return fmtErr(key, err.Error())
		}
		requestedNames := make([]string, 0, len(requested))
		requestedSet := map[string]bool{}
		for _, ref := range requested {
			if ref.name == "" {
				continue // inline pollers cannot be referenced by name in a pull consumer
			}
			requestedNames = append(requestedNames, ref.name)
			requestedSet[ref.name] = true
		}

		var orderedIDs []string
		seen := map[string]bool{}
		matched := map[string]bool{}

		for _, ref := range r.systemRefs {
			if !requestedSet[ref.name] {
				continue
			}
			if seen[ref.id] {
				continue
			}
			seen[ref.id] = true
			matched[ref.name] = true
			orderedIDs = append(orderedIDs, ref.id)
		}

		for _, name := range requestedNames {
			if matched[name] {
				continue
			}
			synthID := o.Namespace + "::" + name + "::" + name
			if seen[synthID] {
				continue
			}
			seen[synthID] = true

			tmplKey := o.Namespace + "::" + name
			body := map[string]any{"connection": map[string]any{"host": "localhost"}}
			if tmpl, ok := r.pollerTemplates[tmplKey]; ok {
				body = tmpl.Body
			}
			pc := buildPollerComponent(synthID, o.Namespace, name, body)
			if pc.Fields.(models.SystemPollerFields).Connection.Host == "" {
				f := pc.Fields.(models.SystemPollerFields)
				f.Connection.Host = "localhost"
				pc.Fields = f
			}
			if err := r.addComponent(pc); err != nil {
				return err
			}
			orderedIDs = append(orderedIDs, synthID)
		}

		groupID := o.Namespace + "::Telemetry_Pull_Consumer_System_Poller_Group_" + o.Name
		groupFields := models.PullConsumerGroupFields{PollerIDs: orderedIDs}
		group := models.Component{
			ID:        groupID,
			Class:     "Telemetry_Pull_Consumer_System_Poller_Group",
			Namespace: o.Namespace,
			Name:      "Telemetry_Pull_Consumer_System_Poller_Group_" + o.Name,
			Enable:    true,
			Fields:    groupFields,
		}
		if err := r.addComponent(group); err != nil {
			return err
		}

		fields := models.PullConsumerFields{
			Type:    typ,
			Actions: parseActions(o.Body),
			Options: o.Body,
		}
		c := models.Component{
			ID:        key,
			Class:     "Telemetry_Pull_Consumer",
			Namespace: o.Namespace,
			Name:      o.Name,
			Enable:    boolField(o.Body, "enable", true),
			Trace:     parseTraceSpec(o.Body),
			Fields:    fields,
		}
		if err := r.addComponent(c); err != nil {
			return err
		}

		r.pullGroupOf[key] = groupID
	}
	return nil
}
