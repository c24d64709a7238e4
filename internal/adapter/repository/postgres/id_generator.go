package postgres

import (
	"github.com/oklog/ulid/v2"
)

// ULIDGenerator generates lexically sortable ULID ids for accounts,
// entries, postings and outbox events.
type ULIDGenerator struct{}

// NewULIDGenerator creates a new ULIDGenerator.
func NewULIDGenerator() *ULIDGenerator {
	return &ULIDGenerator{}
}

// Generate returns a new ULID. ulid.Make is monotonic within a process.
func (g *ULIDGenerator) Generate() string {
	return ulid.Make().String()
}
