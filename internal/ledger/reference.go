package ledger

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// ReferenceGenerator hands out time-sortable ULID references.
type ReferenceGenerator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// NewReferenceGenerator builds a generator backed by crypto/rand.
func NewReferenceGenerator() *ReferenceGenerator {
	return &ReferenceGenerator{entropy: ulid.Monotonic(rand.Reader, 0)}
}

// Next returns a fresh reference. Safe for concurrent use.
func (g *ReferenceGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy).String()
}

// ReversalReference is the reference offsetting rows are written under.
func ReversalReference(reference string) string {
	return reference + ":reversal"
}
