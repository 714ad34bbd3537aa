package internal

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/meridian-crm/recordops"
)

// recordsTableColumns is the column list shared by insert and query
// statements.
const recordsTableColumns = "record_type, row_id, payload, created_at, updated_at"

func sanitizeIdentifier(name string) string {
	if name == "" {
		return ""
	}
	parts := strings.Split(name, ".")
	clean := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.Trim(part, " \"")
		if trimmed == "" {
			continue
		}
		clean = append(clean, trimmed)
	}
	if len(clean) == 0 {
		clean = []string{name}
	}
	return pgx.Identifier(clean).Sanitize()
}

// buildCreateTableStatement returns the DDL for the records table. One table
// holds every record type; payloads are stored as JSONB keyed by field name.
func buildCreateTableStatement(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	record_type TEXT NOT NULL,
	row_id UUID NOT NULL,
	payload JSONB NOT NULL,
	created_at BIGINT NOT NULL,
	updated_at BIGINT NOT NULL,
	PRIMARY KEY (record_type, row_id)
)`, sanitizeIdentifier(table))
}

// buildInsertStatement constructs a multi-value INSERT covering count
// records, five parameters per record.
func buildInsertStatement(table string, count int) string {
	valuesClauses := make([]string, 0, count)
	paramIndex := 1
	for i := 0; i < count; i++ {
		valuesClauses = append(valuesClauses, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d)",
			paramIndex, paramIndex+1, paramIndex+2, paramIndex+3, paramIndex+4))
		paramIndex += 5
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
		sanitizeIdentifier(table), recordsTableColumns, strings.Join(valuesClauses, ", "))
}

func buildUpdateStatement(table string) string {
	return fmt.Sprintf("UPDATE %s SET payload = $1, updated_at = $2 WHERE record_type = $3 AND row_id = $4",
		sanitizeIdentifier(table))
}

func buildDeleteStatement(table string) string {
	return fmt.Sprintf("DELETE FROM %s WHERE record_type = $1 AND row_id = $2",
		sanitizeIdentifier(table))
}

// buildReferenceCheckStatement resolves which of the given identifiers exist
// as Account rows.
func buildReferenceCheckStatement(table string) string {
	return fmt.Sprintf("SELECT row_id FROM %s WHERE record_type = $1 AND row_id = ANY($2)",
		sanitizeIdentifier(table))
}

// buildQueryStatement constructs an exact-match SELECT. Identifier and
// payload-field criteria are ANDed; payload fields are compared through the
// JSONB text extraction operator. Ordering by insertion time keeps results
// stable without promising any contract beyond "store-defined".
func buildQueryStatement(table string, query *recordops.Query) (string, []any) {
	var sb strings.Builder
	args := []any{string(query.RecordType)}

	fmt.Fprintf(&sb, "SELECT row_id, payload FROM %s WHERE record_type = $1", sanitizeIdentifier(table))

	if query.ID != nil {
		args = append(args, *query.ID)
		fmt.Fprintf(&sb, " AND row_id = $%d", len(args))
	}

	fields := make([]string, 0, len(query.Equals))
	for name := range query.Equals {
		fields = append(fields, name)
	}
	// Stable parameter order for repeatable statements.
	sort.Strings(fields)
	for _, name := range fields {
		args = append(args, fmt.Sprint(query.Equals[name]))
		fmt.Fprintf(&sb, " AND payload->>'%s' = $%d", escapeFieldName(name), len(args))
	}

	sb.WriteString(" ORDER BY created_at, row_id")
	if query.Limit > 0 {
		args = append(args, query.Limit)
		fmt.Fprintf(&sb, " LIMIT $%d", len(args))
	}

	return sb.String(), args
}

func escapeFieldName(name string) string {
	return strings.ReplaceAll(name, "'", "''")
}

func toUUID(obj any) (uuid.UUID, bool) {
	switch v := obj.(type) {
	case uuid.UUID:
		return v, true
	case *uuid.UUID:
		return *v, true
	case string:
		data, err := uuid.Parse(v)
		return data, err == nil
	case [16]byte:
		return uuid.UUID(v), true
	case []byte:
		if len(v) == 16 {
			data, err := uuid.FromBytes(v)
			return data, err == nil
		}
		data, err := uuid.Parse(string(v))
		return data, err == nil
	default:
		return uuid.Nil, false
	}
}
