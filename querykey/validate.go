package querykey

import (
	"fmt"
	"reflect"
)

// Wildcard matches any single segment in MatchPattern.
const Wildcard = "*"

// NamespaceSet is the read-only view of registered namespaces the validator
// needs. The entity graph satisfies it.
type NamespaceSet interface {
	Has(ns Namespace) bool
}

// ValidationError reports a structurally invalid key. Callers on best-effort
// paths (invalidation, prefetch) should log it rather than propagate.
type ValidationError struct {
	Key    Key
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid query key %v: %s", e.Key, e.Reason)
}

// Validate checks a key against the structural invariants: non-empty, depth
// within MaxDepth, a registered namespace as the first segment, and no
// callable anywhere in the segment tree.
func Validate(registered NamespaceSet, key Key) error {
	if len(key) == 0 {
		return &ValidationError{Key: key, Reason: "key is empty"}
	}
	if len(key) > MaxDepth {
		return &ValidationError{Key: key, Reason: fmt.Sprintf("depth %d exceeds maximum %d", len(key), MaxDepth)}
	}

	ns, ok := key[0].(string)
	if !ok {
		return &ValidationError{Key: key, Reason: "first segment is not a namespace string"}
	}
	if registered != nil && !registered.Has(Namespace(ns)) {
		return &ValidationError{Key: key, Reason: fmt.Sprintf("namespace %q is not registered", ns)}
	}

	for i, segment := range key {
		if containsCallable(reflect.ValueOf(segment)) {
			return &ValidationError{Key: key, Reason: fmt.Sprintf("segment %d contains a callable", i)}
		}
	}
	return nil
}

// containsCallable walks a segment's value tree looking for function values.
func containsCallable(rv reflect.Value) bool {
	if !rv.IsValid() {
		return false
	}
	switch rv.Kind() {
	case reflect.Func:
		return true
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return false
		}
		return containsCallable(rv.Elem())
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			if containsCallable(rv.Index(i)) {
				return true
			}
		}
	case reflect.Map:
		iter := rv.MapRange()
		for iter.Next() {
			if containsCallable(iter.Key()) || containsCallable(iter.Value()) {
				return true
			}
		}
	case reflect.Struct:
		for i := 0; i < rv.NumField(); i++ {
			field := rv.Field(i)
			if !field.CanInterface() {
				continue
			}
			if containsCallable(field) {
				return true
			}
		}
	}
	return false
}

// MatchPattern performs segment-wise comparison of a key against a pattern.
// A pattern segment equal to Wildcard matches any candidate segment. Lengths
// must match exactly.
func MatchPattern(key, pattern Key) bool {
	if len(key) != len(pattern) {
		return false
	}
	for i, want := range pattern {
		if s, ok := want.(string); ok && s == Wildcard {
			continue
		}
		if !reflect.DeepEqual(key[i], want) {
			return false
		}
	}
	return true
}

// Migrate upgrades a key that predates the versioned scheme by inserting the
// version segment after the namespace. Already-versioned keys pass through
// untouched, making the operation idempotent. The returned key is always a
// fresh slice.
func Migrate(legacy Key, ns Namespace) Key {
	if len(legacy) == 0 {
		return Key{string(ns), Version}
	}

	head, hasNamespace := legacy[0].(string)
	if hasNamespace && head == string(ns) {
		if len(legacy) > 1 {
			if v, ok := legacy[1].(string); ok && v == Version {
				out := make(Key, len(legacy))
				copy(out, legacy)
				return out
			}
		}
		out := make(Key, 0, len(legacy)+1)
		out = append(out, legacy[0], Version)
		out = append(out, legacy[1:]...)
		return out
	}

	out := make(Key, 0, len(legacy)+2)
	out = append(out, string(ns), Version)
	out = append(out, legacy...)
	return out
}
