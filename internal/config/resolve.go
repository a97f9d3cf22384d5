// Package config implements the Config Resolver (C1): it takes a raw
// declaration tree, validates it, and expands it into a flat, id-addressed
// ResolvedSet of models.Component plus a producer->consumer mapping table.
//
// Grounded on pkg/snmpcollector/config/loader.go's one-function-per-step
// shape, generalized from "load YAML files from disk" to "resolve an
// in-memory declaration tree".
package config

import (
	"fmt"
	"sort"

	"github.com/f5devcentral/telemetry-streaming-agent/models"
)

// Resolve validates decl and expands it into a ResolvedSet. previous is the
// currently running component set, consulted only to reject a class change
// for an id it already holds (checkClassStability); it may be nil.
func Resolve(decl models.Declaration, previous []models.Component) (models.ResolvedSet, error) {
	raw := map[string]any(decl)

	if err := validateRoot(raw); err != nil {
		return models.ResolvedSet{}, err
	}

	objs, err := flattenNamespaces(raw)
	if err != nil {
		return models.ResolvedSet{}, err
	}

	// Namespace-scoped validation (step 1, continued): re-validate each
	// namespace's objects as a group so a namespace fragment applied via
	// processNamespaceDeclaration gets the same checks as a full apply.
	byNamespace := map[string]map[string]any{}
	for _, o := range objs {
		if byNamespace[o.Namespace] == nil {
			byNamespace[o.Namespace] = map[string]any{}
		}
		byNamespace[o.Namespace][o.Name] = o.Body
	}
	for ns, body := range byNamespace {
		if ns == defaultNamespace {
			continue // already validated against root rules
		}
		if err := validateNamespaceBody(ns, body); err != nil {
			return models.ResolvedSet{}, err
		}
	}

	r := &resolver{
		seenIDs: map[string]bool{},
	}
	if err := r.index(objs); err != nil {
		return models.ResolvedSet{}, err
	}

	if err := r.resolveListeners(); err != nil {
		return models.ResolvedSet{}, err
	}
	if err := r.resolveConsumers(); err != nil {
		return models.ResolvedSet{}, err
	}
	if err := r.resolveSystems(); err != nil {
		return models.ResolvedSet{}, err
	}
	if err := r.resolvePullConsumers(); err != nil {
		return models.ResolvedSet{}, err
	}

	if err := checkClassStability(r.components, previous); err != nil {
		return models.ResolvedSet{}, err
	}

	assignTracePaths(r.components)
	mappings := buildMappings(r.components, r.pushMapping, r.pullGroupOf)

	sort.Slice(r.components, func(i, j int) bool { return r.components[i].ID < r.components[j].ID })

	return models.ResolvedSet{Components: r.components, Mappings: mappings}, nil
}

// checkClassStability rejects a declaration that would change the class of
// an id that already exists in the previous component set (§4.1 tie-breaks:
// "cannot override class").
func checkClassStability(next, previous []models.Component) error {
	if len(previous) == 0 {
		return nil
	}
	prevClassByID := make(map[string]string, len(previous))
	for _, c := range previous {
		prevClassByID[c.ID] = c.Class
	}
	for _, c := range next {
		if prevClass, ok := prevClassByID[c.ID]; ok && prevClass != c.Class {
			return &ValidationError{Path: c.ID, Reason: "cannot override class: was \"" + prevClass + "\", now \"" + c.Class + "\""}
		}
	}
	return nil
}

// resolver accumulates state across the resolution steps.
type resolver struct {
	components []models.Component
	seenIDs    map[string]bool

	systems         map[string]namespacedObject
	pollerTemplates map[string]namespacedObject // "<ns>::<name>" -> poller object, referenceable by bare name
	listeners       map[string]namespacedObject
	consumers       map[string]namespacedObject
	pullConsumers   map[string]namespacedObject

	// pushMapping: namespace -> ids of the enabled push consumers declared
	// in it. Filled in as push consumers are resolved; buildMappings then
	// routes every enabled producer of a namespace to these ids (the mapping
	// model has no explicit consumer->producer selector beyond namespace
	// scope and enable state).
	pushMapping map[string][]string

	// pullGroupOf: pull consumer id -> its synthesized group id.
	pullGroupOf map[string]string

	// systemRefs records, in ascending system id order and then each
	// system's declared poller order, every (system, pollerName)
	// reference produced while unfolding systems, used to match pull
	// consumer references against the systems that reference them.
	systemRefs []systemPollerRef
}

func (r *resolver) index(objs []namespacedObject) error {
	r.systems = map[string]namespacedObject{}
	r.pollerTemplates = map[string]namespacedObject{}
	r.listeners = map[string]namespacedObject{}
	r.consumers = map[string]namespacedObject{}
	r.pullConsumers = map[string]namespacedObject{}
	r.pushMapping = map[string][]string{}
	r.pullGroupOf = map[string]string{}

	for _, o := range objs {
		key := o.Namespace + "::" + o.Name
		switch o.Class {
		case "Telemetry_System":
			r.systems[key] = o
		case "Telemetry_System_Poller", "Telemetry_iHealth_Poller":
			r.pollerTemplates[key] = o
		case "Telemetry_Listener":
			r.listeners[key] = o
		case "Telemetry_Consumer":
			r.consumers[key] = o
		case "Telemetry_Pull_Consumer":
			r.pullConsumers[key] = o
		default:
			return &ValidationError{Path: key, Reason: "unrecognized class \"" + o.Class + "\""}
		}
	}
	return nil
}

// sortedKeys returns m's keys in ascending order so resolution steps that
// range over a namespacedObject map produce the same component and mapping
// order on every run (P3: re-resolving the same declaration twice must be
// byte-identical). Go's map iteration order is randomized per process, so
// every resolve* step ranges over this instead of the map directly.
func sortedKeys(m map[string]namespacedObject) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (r *resolver) addComponent(c models.Component) error {
	if r.seenIDs[c.ID] {
		return &ValidationError{Path: c.ID, Reason: "duplicate component id"}
	}
	r.seenIDs[c.ID] = true
	r.components = append(r.components, c)
	return nil
}

func boolField(obj map[string]any, key string, def bool) bool {
	if v, ok := obj[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

func stringField(obj map[string]any, key string) string {
	if v, ok := obj[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func intField(obj map[string]any, key string, def int) int {
	if v, ok := obj[key]; ok {
		switch n := v.(type) {
		case int:
			return n
		case float64:
			return int(n)
		}
	}
	return def
}

func fmtErr(path, reason string) error {
	return fmt.Errorf("config: %s: %s", path, reason)
}
