package internal

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/meridian-crm/recordops"
	"go.uber.org/zap"
)

// memoryRecord is the stored form of a record: type, identifier, and a
// detached payload copy. Callers never see the stored instance itself.
type memoryRecord struct {
	recordType recordops.RecordType
	rowID      uuid.UUID
	fields     map[string]any
}

// MemoryRecordStore is a mutex-guarded in-memory RecordStore. It mirrors the
// platform semantics the Postgres store provides: whole-call validation
// before any write, reference-integrity checks on account links, and
// per-primitive atomicity.
type MemoryRecordStore struct {
	mu         sync.RWMutex
	records    map[recordops.RecordType]map[uuid.UUID]*memoryRecord
	order      map[recordops.RecordType][]uuid.UUID
	maxPerCall int
}

// NewMemoryRecordStore creates an empty in-memory store. maxPerCall bounds
// the record count accepted by a single bulk call; zero means unbounded.
func NewMemoryRecordStore(maxPerCall int) *MemoryRecordStore {
	return &MemoryRecordStore{
		records:    make(map[recordops.RecordType]map[uuid.UUID]*memoryRecord),
		order:      make(map[recordops.RecordType][]uuid.UUID),
		maxPerCall: maxPerCall,
	}
}

func (s *MemoryRecordStore) checkBulkSize(count int) error {
	if s.maxPerCall > 0 && count > s.maxPerCall {
		return recordops.NewBulkError(recordops.ErrCodeBulkSizeExceeded, "bulk call exceeds platform limit").
			WithDetail("count", count).
			WithDetail("limit", s.maxPerCall)
	}
	return nil
}

// Insert validates every record, then assigns identifiers and writes all of
// them. No record is written when any record fails validation.
func (s *MemoryRecordStore) Insert(ctx context.Context, records []recordops.SObject) error {
	if err := s.checkBulkSize(len(records)); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, obj := range records {
		if err := validateForWrite(obj); err != nil {
			return err
		}
	}
	if err := s.checkReferencesLocked(records); err != nil {
		return err
	}

	for _, obj := range records {
		obj.SetRecordID(uuid.Must(uuid.NewV7()))
		s.putLocked(obj)
	}

	zap.S().Debugw("memory store insert", "count", len(records))
	return nil
}

// Update applies changes to existing records. The whole call fails when any
// identifier does not resolve.
func (s *MemoryRecordStore) Update(ctx context.Context, records []recordops.SObject) error {
	if err := s.checkBulkSize(len(records)); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, obj := range records {
		if err := validateForWrite(obj); err != nil {
			return err
		}
		if !s.existsLocked(obj.RecordType(), obj.RecordID()) {
			return recordops.NewRecordNotFoundError(recordops.Identify(obj))
		}
	}
	if err := s.checkReferencesLocked(records); err != nil {
		return err
	}

	for _, obj := range records {
		s.putLocked(obj)
	}
	return nil
}

// Upsert inserts records tagged new and updates records tagged existing.
func (s *MemoryRecordStore) Upsert(ctx context.Context, records []recordops.SObject) error {
	if err := s.checkBulkSize(len(records)); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, obj := range records {
		if err := validateForWrite(obj); err != nil {
			return err
		}
		if recordops.Classify(obj) == recordops.RefExisting && !s.existsLocked(obj.RecordType(), obj.RecordID()) {
			return recordops.NewRecordNotFoundError(recordops.Identify(obj))
		}
	}
	if err := s.checkReferencesLocked(records); err != nil {
		return err
	}

	for _, obj := range records {
		switch recordops.Classify(obj) {
		case recordops.RefNew:
			obj.SetRecordID(uuid.Must(uuid.NewV7()))
			s.putLocked(obj)
		case recordops.RefExisting:
			s.putLocked(obj)
		}
	}
	return nil
}

// Delete removes records. The whole call fails when any identifier does not
// resolve; nothing is removed in that case.
func (s *MemoryRecordStore) Delete(ctx context.Context, records []recordops.SObject) error {
	if err := s.checkBulkSize(len(records)); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, obj := range records {
		if !s.existsLocked(obj.RecordType(), obj.RecordID()) {
			return recordops.NewRecordNotFoundError(recordops.Identify(obj))
		}
	}

	for _, obj := range records {
		delete(s.records[obj.RecordType()], obj.RecordID())
		s.order[obj.RecordType()] = removeID(s.order[obj.RecordType()], obj.RecordID())
	}
	return nil
}

// Query returns hydrated copies of matching records in insertion order.
func (s *MemoryRecordStore) Query(ctx context.Context, query *recordops.Query) ([]recordops.SObject, error) {
	if query == nil {
		return nil, recordops.NewQueryError("query cannot be nil")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]recordops.SObject, 0)
	for _, id := range s.order[query.RecordType] {
		stored := s.records[query.RecordType][id]
		if stored == nil {
			continue
		}
		if query.ID != nil && stored.rowID != *query.ID {
			continue
		}
		if !matchesEquals(stored.fields, query.Equals) {
			continue
		}

		obj, err := recordops.NewSObject(query.RecordType)
		if err != nil {
			return nil, err
		}
		if err := obj.SetFields(copyFields(stored.fields)); err != nil {
			return nil, recordops.NewQueryError("failed to hydrate record").WithCause(err)
		}
		obj.SetRecordID(stored.rowID)
		results = append(results, obj)

		if query.Limit > 0 && len(results) >= query.Limit {
			break
		}
	}
	return results, nil
}

// Count returns the number of stored records of a type. Test helper.
func (s *MemoryRecordStore) Count(recordType recordops.RecordType) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records[recordType])
}

func (s *MemoryRecordStore) putLocked(obj recordops.SObject) {
	recordType := obj.RecordType()
	if s.records[recordType] == nil {
		s.records[recordType] = make(map[uuid.UUID]*memoryRecord)
	}
	if _, exists := s.records[recordType][obj.RecordID()]; !exists {
		s.order[recordType] = append(s.order[recordType], obj.RecordID())
	}
	s.records[recordType][obj.RecordID()] = &memoryRecord{
		recordType: recordType,
		rowID:      obj.RecordID(),
		fields:     copyFields(obj.Fields()),
	}
}

func (s *MemoryRecordStore) existsLocked(recordType recordops.RecordType, id uuid.UUID) bool {
	if id == uuid.Nil {
		return false
	}
	_, ok := s.records[recordType][id]
	return ok
}

// checkReferencesLocked verifies that every account link in the batch
// resolves to a stored Account. Records inside the same batch cannot satisfy
// a link; the platform resolves references against committed state only.
func (s *MemoryRecordStore) checkReferencesLocked(records []recordops.SObject) error {
	for _, id := range referencedAccountIDs(records) {
		if !s.existsLocked(recordops.RecordTypeAccount, id) {
			return recordops.NewReferenceError(recordops.FieldAccountID, "referenced account does not resolve").
				WithDetail("accountId", id.String())
		}
	}
	return nil
}

func matchesEquals(fields map[string]any, equals map[string]any) bool {
	for name, want := range equals {
		if fields[name] != want {
			return false
		}
	}
	return true
}

func copyFields(fields map[string]any) map[string]any {
	dup := make(map[string]any, len(fields))
	for k, v := range fields {
		dup[k] = v
	}
	return dup
}

func removeID(ids []uuid.UUID, id uuid.UUID) []uuid.UUID {
	out := ids[:0]
	for _, candidate := range ids {
		if candidate != id {
			out = append(out, candidate)
		}
	}
	return out
}
