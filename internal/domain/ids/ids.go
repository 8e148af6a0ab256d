// Package ids generates opaque unique identifiers for new records.
package ids

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Formats accepted by New.
const (
	FormatUUID   = "uuid"
	FormatNanoID = "nanoid"
)

// Generator produces a new identifier on every call.
type Generator interface {
	NewID() string
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func() string

// NewID calls f.
func (f GeneratorFunc) NewID() string { return f() }

// UUID returns a random (v4) UUID generator.
func UUID() Generator {
	return GeneratorFunc(uuid.NewString)
}

// NanoID returns a 21 character URL-safe nanoid generator.
func NanoID() Generator {
	return GeneratorFunc(func() string {
		return gonanoid.Must()
	})
}

// New returns the generator for format.
func New(format string) (Generator, error) {
	switch format {
	case "", FormatUUID:
		return UUID(), nil
	case FormatNanoID:
		return NanoID(), nil
	default:
		return nil, fmt.Errorf("unknown id format %q", format)
	}
}

// Sequence returns a deterministic generator yielding prefix-1, prefix-2, ...
func Sequence(prefix string) Generator {
	var n atomic.Int64
	return GeneratorFunc(func() string {
		return fmt.Sprintf("%s-%d", prefix, n.Add(1))
	})
}
