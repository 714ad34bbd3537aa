package internal

import (
	"github.com/google/uuid"
	"github.com/meridian-crm/recordops"
)

// validateForWrite enforces the platform's required-field rules for a single
// record. Both store implementations run it before any insert or upsert.
func validateForWrite(obj recordops.SObject) error {
	switch rec := obj.(type) {
	case *recordops.Account:
		if rec.Name == "" {
			return recordops.NewValidationError(recordops.FieldName, "required field missing").
				WithRecord(recordops.Identify(rec))
		}
	case *recordops.Contact:
		if rec.LastName == "" {
			return recordops.NewValidationError(recordops.FieldLastName, "required field missing").
				WithRecord(recordops.Identify(rec))
		}
	case *recordops.Opportunity:
		if rec.Name == "" {
			return recordops.NewValidationError(recordops.FieldName, "required field missing").
				WithRecord(recordops.Identify(rec))
		}
		if rec.StageName == "" {
			return recordops.NewValidationError(recordops.FieldStageName, "required field missing").
				WithRecord(recordops.Identify(rec))
		}
	case *recordops.Lead:
		if rec.LastName == "" {
			return recordops.NewValidationError(recordops.FieldLastName, "required field missing").
				WithRecord(recordops.Identify(rec))
		}
		if rec.Company == "" {
			return recordops.NewValidationError(recordops.FieldCompany, "required field missing").
				WithRecord(recordops.Identify(rec))
		}
	case *recordops.Case:
		// no required fields
	default:
		return recordops.NewValidationError("record", "unsupported record type")
	}
	return nil
}

// referencedAccountIDs collects the distinct account identifiers the given
// records link to, for reference-integrity checks.
func referencedAccountIDs(records []recordops.SObject) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{})
	ids := make([]uuid.UUID, 0)
	for _, obj := range records {
		var link *uuid.UUID
		switch rec := obj.(type) {
		case *recordops.Contact:
			link = rec.AccountID
		case *recordops.Opportunity:
			link = rec.AccountID
		case *recordops.Case:
			link = rec.AccountID
		}
		if link == nil {
			continue
		}
		if _, ok := seen[*link]; ok {
			continue
		}
		seen[*link] = struct{}{}
		ids = append(ids, *link)
	}
	return ids
}
