// Package credential turns provider config fields into usable secrets.
//
// A field is either a literal value or a reference of the form "env:NAME" or
// "secret:NAME", which is looked up in the process-wide secret store.
package credential

import (
	"fmt"
	"os"
	"strings"
)

var referencePrefixes = []string{"env:", "secret:"}

// LookupFunc finds a named secret. It mirrors os.LookupEnv.
type LookupFunc func(name string) (string, bool)

// Resolver resolves config fields into literal credential strings.
type Resolver struct {
	lookup LookupFunc
}

func NewResolver(lookup LookupFunc) *Resolver {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	return &Resolver{lookup: lookup}
}

// NewEnvResolver resolves references against the process environment.
func NewEnvResolver() *Resolver {
	return NewResolver(os.LookupEnv)
}

// Resolve returns the literal value for raw. Blank input and references to unset
// names both resolve to "", so callers decide whether the field is required.
func (r *Resolver) Resolve(raw string) string {
	value := strings.TrimSpace(raw)
	if value == "" {
		return ""
	}

	name, ok := referenceName(value)
	if !ok {
		return value
	}
	if name == "" || r == nil || r.lookup == nil {
		return ""
	}

	resolved, found := r.lookup(name)
	if !found {
		return ""
	}
	return strings.TrimSpace(resolved)
}

// Field resolves config[key]. Non-string values are formatted as-is; a missing
// key resolves to "".
func (r *Resolver) Field(config map[string]any, key string) string {
	if config == nil {
		return ""
	}
	switch v := config[key].(type) {
	case nil:
		return ""
	case string:
		return r.Resolve(v)
	default:
		return r.Resolve(fmt.Sprint(v))
	}
}

// IsReference reports whether raw is an indirection rather than a literal.
func IsReference(raw string) bool {
	_, ok := referenceName(strings.TrimSpace(raw))
	return ok
}

func referenceName(value string) (string, bool) {
	for _, prefix := range referencePrefixes {
		if len(value) >= len(prefix) && strings.EqualFold(value[:len(prefix)], prefix) {
			return strings.TrimSpace(value[len(prefix):]), true
		}
	}
	return "", false
}
