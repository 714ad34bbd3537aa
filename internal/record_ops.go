package internal

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/meridian-crm/recordops"
)

// recordOps is the stateless facade over a RecordStore. Every method opens
// and closes its own interaction with the store; nothing is retained across
// calls.
type recordOps struct {
	store recordops.RecordStore
	clock recordops.Clock
}

// NewRecordOperations creates a RecordOperations facade bound to the given
// store and clock.
func NewRecordOperations(store recordops.RecordStore, clock recordops.Clock) recordops.RecordOperations {
	if clock == nil {
		clock = recordops.SystemClock()
	}
	return &recordOps{
		store: store,
		clock: clock,
	}
}

// fetchExactlyOne queries a record by id and asserts the result cardinality
// is exactly one. Zero or multiple matches fail with a not-found error; the
// first match is never taken silently.
func (ops *recordOps) fetchExactlyOne(ctx context.Context, recordType recordops.RecordType, id uuid.UUID) (recordops.SObject, error) {
	matches, err := ops.store.Query(ctx, &recordops.Query{
		RecordType: recordType,
		ID:         &id,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query %s by id: %w", recordType, err)
	}
	if len(matches) != 1 {
		return nil, recordops.NewRecordNotFoundError(recordops.RecordIdentifier{
			RecordType: recordType,
			ID:         id,
		}).WithDetail("matches", len(matches))
	}
	return matches[0], nil
}
