package recordops

import (
	"context"
)

// RecordStore is the persistence layer the record operations run against.
// Each primitive is atomic over its argument set; a sequence of primitive
// calls is not atomic across the sequence.
type RecordStore interface {
	// Insert persists new records and assigns their identifiers. The whole
	// call fails on any validation violation; no record is written.
	Insert(ctx context.Context, records []SObject) error

	// Update applies changes to existing records. Fails if any record's
	// identifier does not resolve.
	Update(ctx context.Context, records []SObject) error

	// Upsert inserts records tagged RefNew and updates records tagged
	// RefExisting (see Classify). No external-id matching is performed.
	Upsert(ctx context.Context, records []SObject) error

	// Delete removes records. Fails if any identifier does not resolve.
	Delete(ctx context.Context, records []SObject) error

	// Query returns records matching the exact-match criteria. Result
	// ordering is store-defined.
	Query(ctx context.Context, query *Query) ([]SObject, error)
}
