package config

import "fmt"

// ValidationError is returned when a declaration fails schema validation.
// It surfaces to the caller (control plane surfaces, §7); nothing is
// persisted when this error is returned.
type ValidationError struct {
	Path   string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("config: validation: %s", e.Reason)
	}
	return fmt.Sprintf("config: validation: %s: %s", e.Path, e.Reason)
}

// ObjectNotFoundInConfigError is returned when a namespace or named object is
// requested but absent from the current declaration.
type ObjectNotFoundInConfigError struct {
	Namespace string
	Name      string
}

func (e *ObjectNotFoundInConfigError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("config: namespace not found: %s", e.Namespace)
	}
	return fmt.Sprintf("config: object not found: %s::%s", e.Namespace, e.Name)
}
