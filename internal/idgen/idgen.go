// Package idgen provides the default wrapped-object id generator. A Channel
// embedder may supply its own createUuid hook (spec.md section 4.5); this
// package is the out-of-the-box implementation, grounded on cellorg's use
// of github.com/google/uuid throughout internal/envelope.
package idgen

import "github.com/google/uuid"

// New returns a fresh random identifier suitable for a wrapped object's id.
func New() string {
	return uuid.NewString()
}
