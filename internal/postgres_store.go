package internal

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/meridian-crm/recordops"
	"go.uber.org/zap"
)

// DBConn is the slice of pgxpool.Pool the store depends on. Narrowing the
// dependency lets tests substitute a pgxmock pool.
type DBConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresRecordStore is a RecordStore over a single JSONB-payload records
// table. Every primitive runs inside one transaction, which gives the
// whole-call atomicity the platform contract requires.
type PostgresRecordStore struct {
	db         DBConn
	table      string
	maxPerCall int
	clock      recordops.Clock
}

// NewPostgresRecordStore creates a Postgres-backed RecordStore. maxPerCall
// bounds the record count accepted by a single bulk call; zero means
// unbounded.
func NewPostgresRecordStore(db DBConn, table string, maxPerCall int, clock recordops.Clock) *PostgresRecordStore {
	if clock == nil {
		clock = recordops.SystemClock()
	}
	return &PostgresRecordStore{
		db:         db,
		table:      table,
		maxPerCall: maxPerCall,
		clock:      clock,
	}
}

// EnsureRecordsTable creates the records table when it does not exist.
func (s *PostgresRecordStore) EnsureRecordsTable(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, buildCreateTableStatement(s.table)); err != nil {
		return fmt.Errorf("failed to create records table: %w", err)
	}
	return nil
}

func (s *PostgresRecordStore) checkBulkSize(count int) error {
	if s.maxPerCall > 0 && count > s.maxPerCall {
		return recordops.NewBulkError(recordops.ErrCodeBulkSizeExceeded, "bulk call exceeds platform limit").
			WithDetail("count", count).
			WithDetail("limit", s.maxPerCall)
	}
	return nil
}

// Insert validates, assigns UUIDv7 identifiers, and writes all records with
// one multi-value statement.
func (s *PostgresRecordStore) Insert(ctx context.Context, records []recordops.SObject) error {
	if err := s.checkBulkSize(len(records)); err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	for _, obj := range records {
		if err := validateForWrite(obj); err != nil {
			return err
		}
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := s.checkReferences(ctx, tx, records); err != nil {
		return err
	}

	now := s.clock.Now().UnixMilli()
	args := make([]any, 0, len(records)*5)
	for _, obj := range records {
		obj.SetRecordID(uuid.Must(uuid.NewV7()))
		payload, err := json.Marshal(obj.Fields())
		if err != nil {
			return fmt.Errorf("failed to marshal record payload: %w", err)
		}
		args = append(args, string(obj.RecordType()), obj.RecordID(), payload, now, now)
	}

	if _, err := tx.Exec(ctx, buildInsertStatement(s.table, len(records)), args...); err != nil {
		return fmt.Errorf("failed to insert records: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit insert: %w", err)
	}

	zap.S().Debugw("postgres store insert", "table", s.table, "count", len(records))
	return nil
}

// Update rewrites the payload of every record. Any unresolved identifier
// rolls the whole call back with a not-found error.
func (s *PostgresRecordStore) Update(ctx context.Context, records []recordops.SObject) error {
	if err := s.checkBulkSize(len(records)); err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	for _, obj := range records {
		if err := validateForWrite(obj); err != nil {
			return err
		}
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := s.checkReferences(ctx, tx, records); err != nil {
		return err
	}
	if err := s.updateInTx(ctx, tx, records); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit update: %w", err)
	}
	return nil
}

// Upsert partitions records on their tag: RefNew records are inserted with
// fresh identifiers, RefExisting records are updated. Both halves run in the
// same transaction.
func (s *PostgresRecordStore) Upsert(ctx context.Context, records []recordops.SObject) error {
	if err := s.checkBulkSize(len(records)); err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	for _, obj := range records {
		if err := validateForWrite(obj); err != nil {
			return err
		}
	}

	created := make([]recordops.SObject, 0, len(records))
	updated := make([]recordops.SObject, 0, len(records))
	for _, obj := range records {
		switch recordops.Classify(obj) {
		case recordops.RefNew:
			created = append(created, obj)
		case recordops.RefExisting:
			updated = append(updated, obj)
		}
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := s.checkReferences(ctx, tx, records); err != nil {
		return err
	}

	if len(created) > 0 {
		now := s.clock.Now().UnixMilli()
		args := make([]any, 0, len(created)*5)
		for _, obj := range created {
			obj.SetRecordID(uuid.Must(uuid.NewV7()))
			payload, err := json.Marshal(obj.Fields())
			if err != nil {
				return fmt.Errorf("failed to marshal record payload: %w", err)
			}
			args = append(args, string(obj.RecordType()), obj.RecordID(), payload, now, now)
		}
		if _, err := tx.Exec(ctx, buildInsertStatement(s.table, len(created)), args...); err != nil {
			return fmt.Errorf("failed to insert records: %w", err)
		}
	}

	if err := s.updateInTx(ctx, tx, updated); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit upsert: %w", err)
	}

	zap.S().Debugw("postgres store upsert", "table", s.table, "inserted", len(created), "updated", len(updated))
	return nil
}

// Delete removes every record, rolling back on the first identifier that
// does not resolve.
func (s *PostgresRecordStore) Delete(ctx context.Context, records []recordops.SObject) error {
	if err := s.checkBulkSize(len(records)); err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	statement := buildDeleteStatement(s.table)
	for _, obj := range records {
		tag, err := tx.Exec(ctx, statement, string(obj.RecordType()), obj.RecordID())
		if err != nil {
			return fmt.Errorf("failed to delete record: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return recordops.NewRecordNotFoundError(recordops.Identify(obj))
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit delete: %w", err)
	}
	return nil
}

// Query runs an exact-match lookup and hydrates typed records from the JSONB
// payloads.
func (s *PostgresRecordStore) Query(ctx context.Context, query *recordops.Query) ([]recordops.SObject, error) {
	if query == nil {
		return nil, recordops.NewQueryError("query cannot be nil")
	}

	statement, args := buildQueryStatement(s.table, query)
	rows, err := s.db.Query(ctx, statement, args...)
	if err != nil {
		return nil, recordops.NewQueryError("failed to query records").WithCause(err)
	}
	defer rows.Close()

	results := make([]recordops.SObject, 0)
	for rows.Next() {
		var rawID any
		var payload []byte
		if err := rows.Scan(&rawID, &payload); err != nil {
			return nil, recordops.NewQueryError("failed to scan record row").WithCause(err)
		}

		rowID, ok := toUUID(rawID)
		if !ok {
			return nil, recordops.NewQueryError(fmt.Sprintf("invalid row id value %v", rawID))
		}

		fields := make(map[string]any)
		if err := json.Unmarshal(payload, &fields); err != nil {
			return nil, recordops.NewQueryError("failed to decode record payload").WithCause(err)
		}

		obj, err := recordops.NewSObject(query.RecordType)
		if err != nil {
			return nil, err
		}
		if err := obj.SetFields(fields); err != nil {
			return nil, recordops.NewQueryError("failed to hydrate record").WithCause(err)
		}
		obj.SetRecordID(rowID)
		results = append(results, obj)
	}
	if err := rows.Err(); err != nil {
		return nil, recordops.NewQueryError("error iterating record rows").WithCause(err)
	}

	return results, nil
}

func (s *PostgresRecordStore) updateInTx(ctx context.Context, tx pgx.Tx, records []recordops.SObject) error {
	if len(records) == 0 {
		return nil
	}

	now := s.clock.Now().UnixMilli()
	statement := buildUpdateStatement(s.table)
	for _, obj := range records {
		payload, err := json.Marshal(obj.Fields())
		if err != nil {
			return fmt.Errorf("failed to marshal record payload: %w", err)
		}
		tag, err := tx.Exec(ctx, statement, payload, now, string(obj.RecordType()), obj.RecordID())
		if err != nil {
			return fmt.Errorf("failed to update record: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return recordops.NewRecordNotFoundError(recordops.Identify(obj))
		}
	}
	return nil
}

// checkReferences verifies every account link in the batch against committed
// rows. Links cannot be satisfied by records inside the same call.
func (s *PostgresRecordStore) checkReferences(ctx context.Context, tx pgx.Tx, records []recordops.SObject) error {
	ids := referencedAccountIDs(records)
	if len(ids) == 0 {
		return nil
	}

	rows, err := tx.Query(ctx, buildReferenceCheckStatement(s.table), string(recordops.RecordTypeAccount), ids)
	if err != nil {
		return recordops.NewQueryError("failed to resolve account references").WithCause(err)
	}
	defer rows.Close()

	found := make(map[uuid.UUID]struct{}, len(ids))
	for rows.Next() {
		var rawID any
		if err := rows.Scan(&rawID); err != nil {
			return recordops.NewQueryError("failed to scan reference row").WithCause(err)
		}
		if rowID, ok := toUUID(rawID); ok {
			found[rowID] = struct{}{}
		}
	}
	if err := rows.Err(); err != nil {
		return recordops.NewQueryError("error iterating reference rows").WithCause(err)
	}

	for _, id := range ids {
		if _, ok := found[id]; !ok {
			return recordops.NewReferenceError(recordops.FieldAccountID, "referenced account does not resolve").
				WithDetail("accountId", id.String())
		}
	}
	return nil
}
