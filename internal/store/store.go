// Package store persists consolidated drug records and maintains their
// full-text search representation. The engine itself is pure compute; all
// I/O for a run lives behind these collaborators.
package store

import (
	"context"

	"github.com/drugmerge/drugmerge/internal/model"
)

// Store is the persistence contract for consolidated records. Each record is
// replaced whole, keyed by generic name, every run — last-writer-wins at
// record granularity, no partial writes.
type Store interface {
	// CanonicalNames returns the existing generic names used to seed the
	// match cascade
	CanonicalNames(ctx context.Context) ([]string, error)
	// Upsert writes the given records, replacing any prior record with the
	// same generic name
	Upsert(ctx context.Context, records []model.ConsolidatedDrugRecord) error
	Close() error
}
