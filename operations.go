package recordops

import (
	"context"

	"github.com/google/uuid"
)

// Fixed field values used by the parameterless create operations.
const (
	DefaultAccountName     = "Acme Corporation"
	DefaultContactLastName = "Doe"
	DefaultLeadLastName    = "Prospect"
	DefaultLeadCompany     = "Acme Corporation"
)

// Description values written by FindOrCreateAccountByName.
const (
	DescriptionNewAccount     = "New Account"
	DescriptionUpdatedAccount = "Updated Account"
)

// Normalized opportunity amount applied by NormalizeAndUpsertOpportunities.
const NormalizedOpportunityAmount = 50000

// RecordOperations is a stateless facade over the record store: each
// operation builds or fetches records in memory, mutates fields, and invokes
// a single chain of store primitives. Nothing is cached across calls, and no
// operation performs local recovery; store failures surface unchanged to the
// caller.
type RecordOperations interface {
	// CreateMinimalAccount inserts an Account carrying only the fixed
	// default name and returns its new identifier.
	CreateMinimalAccount(ctx context.Context) (uuid.UUID, error)

	// CreateAccount inserts an Account with the given name and industry.
	CreateAccount(ctx context.Context, name, industry string) error

	// CreateContact inserts a Contact with the fixed default last name,
	// linked to the given account, and returns its new identifier.
	CreateContact(ctx context.Context, accountID uuid.UUID) (uuid.UUID, error)

	// RenameContact fetches the contact by id (exactly-one contract),
	// replaces its last name, and updates it.
	RenameContact(ctx context.Context, contactID uuid.UUID, newLastName string) error

	// UpdateOpportunityStage fetches the opportunity by id (exactly-one
	// contract), replaces its stage, and updates it.
	UpdateOpportunityStage(ctx context.Context, oppID uuid.UUID, newStage string) error

	// UpdateAccountFields fetches the account by id (exactly-one contract),
	// replaces name and industry, and updates it.
	UpdateAccountFields(ctx context.Context, accountID uuid.UUID, newName, newIndustry string) error

	// NormalizeAndUpsertOpportunities sets every opportunity to the
	// Qualification stage, a close date three calendar months from today,
	// and the normalized amount, then upserts the whole list in one call.
	NormalizeAndUpsertOpportunities(ctx context.Context, opps []*Opportunity) error

	// CreateAccountWithOpportunities inserts a new account, builds one
	// Prospecting-stage opportunity per name (close date today) linked to
	// it, and upserts the opportunities in one call. A failed account
	// insert aborts the whole operation; a failed upsert leaves the
	// already-inserted account in place.
	CreateAccountWithOpportunities(ctx context.Context, accountName string, oppNames []string) error

	// FindOrCreateAccountByName queries accounts by exact name. When at
	// least one matches, every match gets the updated-account description
	// and all are upserted; when none match, a single new account with the
	// new-account description is upserted. The first record of the
	// upserted set is returned.
	FindOrCreateAccountByName(ctx context.Context, accountName string) (*Account, error)

	// LinkContactsToAccountsByLastName resolves (or creates) an Account
	// named after each contact's last name, links the contact to it, and
	// upserts the whole contact list in one call. Resolution is
	// sequential, not transactional: a per-contact failure aborts before
	// the bulk upsert.
	LinkContactsToAccountsByLastName(ctx context.Context, contacts []*Contact) error

	// CreateAndDeleteLeads builds one lead per name with fixed last name
	// and company, bulk-inserts them, then bulk-deletes the same list. A
	// failed insert aborts before the delete.
	CreateAndDeleteLeads(ctx context.Context, names []string) error

	// CreateAndDeleteCases builds count empty cases linked to the account,
	// bulk-inserts them, then bulk-deletes the same list. A failed insert
	// aborts before the delete.
	CreateAndDeleteCases(ctx context.Context, accountID uuid.UUID, count int) error
}
