package config

import (
	"fmt"

	"github.com/f5devcentral/telemetry-streaming-agent/models"
)

// systemPollerRef tracks, per system, the ordered poller names it
// references (by their *template* name, before id-qualification) so that
// pull-consumer group synthesis can match consumer references against
// system references in ascending system id order (§4.1 step 4, §8
// scenario 5).
type systemPollerRef struct {
	system string // fully-qualified system id, "<ns>::<systemName>"
	name   string // poller template name as referenced from the system
	id     string // fully-qualified poller component id
}

// resolveSystems unfolds every system's systemPoller field into one
// System-scoped poller Component per element (§4.1 step 5) and records the
// reference list used later by resolvePullConsumers.
func (r *resolver) resolveSystems() error {
	r.systemRefs = nil

	for _, key := range sortedKeys(r.systems) {
		o := r.systems[key]
		refs, err := parseSystemPollerField(o.Body["systemPoller"])
		if err != nil {
			return fmtErr(key, err.Error())
		}

		seq := 0
		for _, ref := range refs {
			var body map[string]any
			var name string

			if ref.inline != nil {
				seq++
				name = fmt.Sprintf("SystemPoller_%d", seq)
				body = ref.inline
			} else {
				name = ref.name
				tmplKey := o.Namespace + "::" + ref.name
				tmpl, ok := r.pollerTemplates[tmplKey]
				if !ok {
					return fmtErr(key, "systemPoller references unknown poller \""+ref.name+"\"")
				}
				body = tmpl.Body
			}

			id := key + "::" + name
			c := buildPollerComponent(id, o.Namespace, name, body)
			if err := r.addComponent(c); err != nil {
				return err
			}

			r.systemRefs = append(r.systemRefs, systemPollerRef{
				system: key,
				name:   name,
				id:     id,
			})
		}
	}
	return nil
}

type pollerRef struct {
	name   string
	inline map[string]any
}

// parseSystemPollerField normalizes the systemPoller field, which may be a
// bare string, an inline object, or an array mixing both, into an ordered
// list of references.
func parseSystemPollerField(v any) ([]pollerRef, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case string:
		return []pollerRef{{name: x}}, nil
	case map[string]any:
		return []pollerRef{{inline: x}}, nil
	case []any:
		out := make([]pollerRef, 0, len(x))
		for _, item := range x {
			switch e := item.(type) {
			case string:
				out = append(out, pollerRef{name: e})
			case map[string]any:
				out = append(out, pollerRef{inline: e})
			default:
				return nil, fmt.Errorf("systemPoller entry must be a string or object")
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("systemPoller must be a string, object, or array")
	}
}

func buildPollerComponent(id, namespace, name string, body map[string]any) models.Component {
	fields := models.SystemPollerFields{
		Interval:        intField(body, "interval", 0),
		IsIHealthPoller: stringField(body, "class") == "Telemetry_iHealth_Poller",
		Connection: models.ConnectionSpec{
			Host:                stringField(connObj(body), "host"),
			Port:                intField(connObj(body), "port", 443),
			Protocol:            defaultString(stringField(connObj(body), "protocol"), "https"),
			AllowSelfSignedCert: boolField(connObj(body), "allowSelfSignedCert", false),
		},
		Credentials: models.CredentialSpec{
			Username: stringField(credObj(body), "username"),
			Passphrase: models.Secret{
				CipherText: stringField(credObj(body), "passphrase"),
			},
		},
		Tag:     toTagMap(body, "tag"),
		Actions: parseActions(body),
	}
	if eps, ok := body["endpointList"].([]any); ok {
		for _, e := range eps {
			em, ok := e.(map[string]any)
			if !ok {
				continue
			}
			fields.Endpoints = append(fields.Endpoints, models.EndpointSpec{
				Name: stringField(em, "name"),
				Path: stringField(em, "path"),
			})
		}
	}

	return models.Component{
		ID:        id,
		Class:     "Telemetry_System_Poller",
		Namespace: namespace,
		Name:      name,
		Enable:    boolField(body, "enable", true),
		Trace:     parseTraceSpec(body),
		Fields:    fields,
	}
}

func connObj(body map[string]any) map[string]any {
	m, _ := body["connection"].(map[string]any)
	return m
}

func credObj(body map[string]any) map[string]any {
	m, _ := body["credentials"].(map[string]any)
	return m
}

func defaultString(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

