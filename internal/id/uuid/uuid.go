// Package uuid generates and validates run identifiers.
package uuid

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/JakeFAU/movie-harvester/internal/runs"
)

// Generator creates time-ordered UUIDv7 run ids.
type Generator struct{}

var _ runs.IDGenerator = Generator{}

// New creates a new Generator.
func New() Generator {
	return Generator{}
}

// NewID returns a UUIDv7 string.
func (Generator) NewID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate uuid7: %w", err)
	}
	return id.String(), nil
}

// Valid reports whether s parses as a UUID. Used to reject malformed run
// ids before they reach the store.
func Valid(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
