// Package probe implements the independent host signal probes. Every probe
// degrades to the unavailable sentinel on failure and never returns an error
// to its caller.
package probe

import (
	"fmt"
	"log"
)

// guard runs fn and converts any error or panic into fallback, logging the
// cause. It is the single place where probe failures stop propagating.
func guard[T any](name string, fallback T, fn func() (T, error)) (out T) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("probe: %s panicked: %v", name, r)
			out = fallback
		}
	}()

	v, err := fn()
	if err != nil {
		log.Printf("probe: %s unavailable: %v", name, err)
		return fallback
	}
	return v
}

// errMissing builds the error used when an optional platform capability is absent.
func errMissing(what string) error {
	return fmt.Errorf("%s not present", what)
}
