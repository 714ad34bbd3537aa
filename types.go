package recordops

import (
	"time"

	"github.com/google/uuid"
)

// RecordType names one of the business-object record types managed by the
// platform.
type RecordType string

const (
	RecordTypeAccount     RecordType = "Account"
	RecordTypeContact     RecordType = "Contact"
	RecordTypeOpportunity RecordType = "Opportunity"
	RecordTypeLead        RecordType = "Lead"
	RecordTypeCase        RecordType = "Case"
)

// Opportunity stage names used by the record operations.
const (
	StageProspecting   = "Prospecting"
	StageQualification = "Qualification"
)

// Well-known field names shared by queries and record payloads.
const (
	FieldID          = "Id"
	FieldName        = "Name"
	FieldIndustry    = "Industry"
	FieldDescription = "Description"
	FieldLastName    = "LastName"
	FieldFirstName   = "FirstName"
	FieldCompany     = "Company"
	FieldAccountID   = "AccountId"
	FieldStageName   = "StageName"
	FieldCloseDate   = "CloseDate"
	FieldAmount      = "Amount"
)

// closeDateLayout is the wire format for date-only fields.
const closeDateLayout = "2006-01-02"

// SObject is a single record handed to the record store. Identifiers are
// assigned by the store on insert; a zero RecordID marks a record that has
// never been persisted.
type SObject interface {
	RecordType() RecordType
	RecordID() uuid.UUID
	SetRecordID(id uuid.UUID)

	// Fields returns the record's payload keyed by field name. Identifier
	// and record type are not part of the payload.
	Fields() map[string]any
	// SetFields hydrates the record from a payload previously produced by
	// Fields.
	SetFields(fields map[string]any) error
}

// RefKind tags a record as new or already persisted. Upsert branches on this
// tag rather than on inline nil-identifier checks.
type RefKind string

const (
	RefNew      RefKind = "new"
	RefExisting RefKind = "existing"
)

// Classify returns the upsert tag for a record.
func Classify(obj SObject) RefKind {
	if obj.RecordID() == uuid.Nil {
		return RefNew
	}
	return RefExisting
}

// RecordIdentifier identifies a record for error reporting.
type RecordIdentifier struct {
	RecordType RecordType `json:"recordType"`
	ID         uuid.UUID  `json:"id"`
}

// Identify builds a RecordIdentifier for a record.
func Identify(obj SObject) RecordIdentifier {
	return RecordIdentifier{RecordType: obj.RecordType(), ID: obj.RecordID()}
}

// Query describes an exact-match lookup against the record store. All
// populated criteria are ANDed. Result ordering is store-defined.
type Query struct {
	RecordType RecordType     `json:"recordType"`
	ID         *uuid.UUID     `json:"id,omitempty"`
	Equals     map[string]any `json:"equals,omitempty"`
	Limit      int            `json:"limit,omitempty"`
}

// Account is a company record.
type Account struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Industry    string    `json:"industry,omitempty"`
	Description string    `json:"description,omitempty"`
}

func (a *Account) RecordType() RecordType    { return RecordTypeAccount }
func (a *Account) RecordID() uuid.UUID      { return a.ID }
func (a *Account) SetRecordID(id uuid.UUID) { a.ID = id }

func (a *Account) Fields() map[string]any {
	return map[string]any{
		FieldName:        a.Name,
		FieldIndustry:    a.Industry,
		FieldDescription: a.Description,
	}
}

func (a *Account) SetFields(fields map[string]any) error {
	var err error
	if a.Name, err = stringField(fields, FieldName); err != nil {
		return err
	}
	if a.Industry, err = stringField(fields, FieldIndustry); err != nil {
		return err
	}
	if a.Description, err = stringField(fields, FieldDescription); err != nil {
		return err
	}
	return nil
}

// Contact is a person record, optionally linked to an Account.
type Contact struct {
	ID        uuid.UUID  `json:"id"`
	LastName  string     `json:"lastName"`
	AccountID *uuid.UUID `json:"accountId,omitempty"`
}

func (c *Contact) RecordType() RecordType    { return RecordTypeContact }
func (c *Contact) RecordID() uuid.UUID      { return c.ID }
func (c *Contact) SetRecordID(id uuid.UUID) { c.ID = id }

func (c *Contact) Fields() map[string]any {
	fields := map[string]any{
		FieldLastName: c.LastName,
	}
	if c.AccountID != nil {
		fields[FieldAccountID] = c.AccountID.String()
	}
	return fields
}

func (c *Contact) SetFields(fields map[string]any) error {
	var err error
	if c.LastName, err = stringField(fields, FieldLastName); err != nil {
		return err
	}
	if c.AccountID, err = uuidField(fields, FieldAccountID); err != nil {
		return err
	}
	return nil
}

// Opportunity is a potential deal linked to an Account.
type Opportunity struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	AccountID *uuid.UUID `json:"accountId,omitempty"`
	StageName string     `json:"stageName"`
	CloseDate time.Time  `json:"closeDate"`
	Amount    float64    `json:"amount,omitempty"`
}

func (o *Opportunity) RecordType() RecordType    { return RecordTypeOpportunity }
func (o *Opportunity) RecordID() uuid.UUID      { return o.ID }
func (o *Opportunity) SetRecordID(id uuid.UUID) { o.ID = id }

func (o *Opportunity) Fields() map[string]any {
	fields := map[string]any{
		FieldName:      o.Name,
		FieldStageName: o.StageName,
		FieldAmount:    o.Amount,
	}
	if o.AccountID != nil {
		fields[FieldAccountID] = o.AccountID.String()
	}
	if !o.CloseDate.IsZero() {
		fields[FieldCloseDate] = o.CloseDate.Format(closeDateLayout)
	}
	return fields
}

func (o *Opportunity) SetFields(fields map[string]any) error {
	var err error
	if o.Name, err = stringField(fields, FieldName); err != nil {
		return err
	}
	if o.StageName, err = stringField(fields, FieldStageName); err != nil {
		return err
	}
	if o.AccountID, err = uuidField(fields, FieldAccountID); err != nil {
		return err
	}
	if o.CloseDate, err = dateField(fields, FieldCloseDate); err != nil {
		return err
	}
	if o.Amount, err = numericField(fields, FieldAmount); err != nil {
		return err
	}
	return nil
}

// Lead is an unqualified prospect record.
type Lead struct {
	ID        uuid.UUID `json:"id"`
	FirstName string    `json:"firstName,omitempty"`
	LastName  string    `json:"lastName"`
	Company   string    `json:"company"`
}

func (l *Lead) RecordType() RecordType    { return RecordTypeLead }
func (l *Lead) RecordID() uuid.UUID      { return l.ID }
func (l *Lead) SetRecordID(id uuid.UUID) { l.ID = id }

func (l *Lead) Fields() map[string]any {
	return map[string]any{
		FieldFirstName: l.FirstName,
		FieldLastName:  l.LastName,
		FieldCompany:   l.Company,
	}
}

func (l *Lead) SetFields(fields map[string]any) error {
	var err error
	if l.FirstName, err = stringField(fields, FieldFirstName); err != nil {
		return err
	}
	if l.LastName, err = stringField(fields, FieldLastName); err != nil {
		return err
	}
	if l.Company, err = stringField(fields, FieldCompany); err != nil {
		return err
	}
	return nil
}

// Case is a support case linked to an Account. The record operations only
// ever create empty cases, so the payload carries the account link alone.
type Case struct {
	ID        uuid.UUID  `json:"id"`
	AccountID *uuid.UUID `json:"accountId,omitempty"`
}

func (cs *Case) RecordType() RecordType    { return RecordTypeCase }
func (cs *Case) RecordID() uuid.UUID      { return cs.ID }
func (cs *Case) SetRecordID(id uuid.UUID) { cs.ID = id }

func (cs *Case) Fields() map[string]any {
	fields := map[string]any{}
	if cs.AccountID != nil {
		fields[FieldAccountID] = cs.AccountID.String()
	}
	return fields
}

func (cs *Case) SetFields(fields map[string]any) error {
	var err error
	if cs.AccountID, err = uuidField(fields, FieldAccountID); err != nil {
		return err
	}
	return nil
}

// NewSObject returns an empty record of the given type, used to hydrate
// query results.
func NewSObject(recordType RecordType) (SObject, error) {
	switch recordType {
	case RecordTypeAccount:
		return &Account{}, nil
	case RecordTypeContact:
		return &Contact{}, nil
	case RecordTypeOpportunity:
		return &Opportunity{}, nil
	case RecordTypeLead:
		return &Lead{}, nil
	case RecordTypeCase:
		return &Case{}, nil
	default:
		return nil, NewValidationError("recordType", "unknown record type: "+string(recordType))
	}
}

func stringField(fields map[string]any, name string) (string, error) {
	raw, ok := fields[name]
	if !ok || raw == nil {
		return "", nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", NewValidationError(name, "expected string value")
	}
	return s, nil
}

func uuidField(fields map[string]any, name string) (*uuid.UUID, error) {
	raw, ok := fields[name]
	if !ok || raw == nil {
		return nil, nil
	}
	switch v := raw.(type) {
	case uuid.UUID:
		return &v, nil
	case string:
		parsed, err := uuid.Parse(v)
		if err != nil {
			return nil, NewValidationError(name, "invalid record identifier").WithCause(err)
		}
		return &parsed, nil
	default:
		return nil, NewValidationError(name, "expected identifier value")
	}
}

func dateField(fields map[string]any, name string) (time.Time, error) {
	raw, ok := fields[name]
	if !ok || raw == nil {
		return time.Time{}, nil
	}
	switch v := raw.(type) {
	case time.Time:
		return v, nil
	case string:
		parsed, err := time.Parse(closeDateLayout, v)
		if err != nil {
			return time.Time{}, NewValidationError(name, "invalid date value").WithCause(err)
		}
		return parsed, nil
	default:
		return time.Time{}, NewValidationError(name, "expected date value")
	}
}

func numericField(fields map[string]any, name string) (float64, error) {
	raw, ok := fields[name]
	if !ok || raw == nil {
		return 0, nil
	}
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	default:
		return 0, NewValidationError(name, "expected numeric value")
	}
}
