package config

import "sort"

const defaultNamespace = "f5telemetry_default"

// namespacedObject is one named object after namespace flattening: it knows
// which namespace it belongs to and carries its raw declared body.
type namespacedObject struct {
	Namespace string
	Name      string
	Class     string
	Body      map[string]any
}

// flattenNamespaces walks the declaration root and produces one
// namespacedObject per named object, tagging each with its owning
// namespace. Telemetry_Namespace objects are consumed here and never
// emitted as components themselves (§4.1 step 2).
func flattenNamespaces(decl map[string]any) ([]namespacedObject, error) {
	var out []namespacedObject

	for _, key := range sortedStringKeys(decl) {
		val := decl[key]
		if key == "class" || rootOnlyKeys[key] {
			continue
		}
		obj := val.(map[string]any)
		cls, _ := obj["class"].(string)

		if cls == "Telemetry_Namespace" {
			for _, innerKey := range sortedStringKeys(obj) {
				if innerKey == "class" {
					continue
				}
				innerVal := obj[innerKey]
				innerObj, ok := innerVal.(map[string]any)
				if !ok {
					return nil, &ValidationError{Path: key + "." + innerKey, Reason: "expected an object"}
				}
				innerCls, _ := innerObj["class"].(string)
				out = append(out, namespacedObject{
					Namespace: key,
					Name:      innerKey,
					Class:     innerCls,
					Body:      innerObj,
				})
			}
			continue
		}

		out = append(out, namespacedObject{
			Namespace: defaultNamespace,
			Name:      key,
			Class:     cls,
			Body:      obj,
		})
	}

	return out, nil
}

// sortedStringKeys returns m's keys in ascending order, so every caller that
// walks a raw declaration map (itself unordered once decoded into
// map[string]any) produces a deterministic, repeatable object order.
func sortedStringKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
