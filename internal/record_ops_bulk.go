package internal

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/meridian-crm/recordops"
	"go.uber.org/zap"
)

// NormalizeAndUpsertOpportunities rewrites every opportunity to the
// Qualification stage, a close date three calendar months from today, and
// the normalized amount, then upserts the whole list in one call. New and
// existing opportunities may be mixed freely; the store branches on each
// record's tag.
func (ops *recordOps) NormalizeAndUpsertOpportunities(ctx context.Context, opps []*recordops.Opportunity) error {
	closeDate := recordops.AddMonths(recordops.Today(ops.clock), 3)

	records := make([]recordops.SObject, 0, len(opps))
	for _, opp := range opps {
		opp.StageName = recordops.StageQualification
		opp.CloseDate = closeDate
		opp.Amount = recordops.NormalizedOpportunityAmount
		records = append(records, opp)
	}

	if err := ops.store.Upsert(ctx, records); err != nil {
		return fmt.Errorf("failed to upsert opportunities: %w", err)
	}

	zap.S().Debugw("normalized opportunities", "count", len(records), "closeDate", closeDate)
	return nil
}

// CreateAccountWithOpportunities inserts a new account and upserts one
// Prospecting-stage opportunity per name linked to it. The two store calls
// are not atomic across the sequence: a failed opportunity upsert leaves the
// inserted account in place.
func (ops *recordOps) CreateAccountWithOpportunities(ctx context.Context, accountName string, oppNames []string) error {
	account := &recordops.Account{
		Name: accountName,
	}
	if err := ops.store.Insert(ctx, []recordops.SObject{account}); err != nil {
		return fmt.Errorf("failed to insert account: %w", err)
	}

	today := recordops.Today(ops.clock)
	records := make([]recordops.SObject, 0, len(oppNames))
	for _, name := range oppNames {
		accountID := account.ID
		records = append(records, &recordops.Opportunity{
			Name:      name,
			AccountID: &accountID,
			StageName: recordops.StageProspecting,
			CloseDate: today,
		})
	}

	if err := ops.store.Upsert(ctx, records); err != nil {
		return fmt.Errorf("failed to upsert opportunities: %w", err)
	}

	zap.S().Debugw("created account with opportunities",
		"accountId", account.ID, "accountName", accountName, "opportunityCount", len(records))
	return nil
}

// FindOrCreateAccountByName queries accounts by exact name. Every existing
// match gets the updated-account description and all matches are upserted;
// with no match, a single new account carrying the new-account description
// is upserted. Only the first record of the upserted set is returned even
// when several matches were updated; callers relying on the full set must
// query again.
func (ops *recordOps) FindOrCreateAccountByName(ctx context.Context, accountName string) (*recordops.Account, error) {
	matches, err := ops.store.Query(ctx, &recordops.Query{
		RecordType: recordops.RecordTypeAccount,
		Equals:     map[string]any{recordops.FieldName: accountName},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts by name: %w", err)
	}

	accounts := make([]*recordops.Account, 0, len(matches))
	for _, match := range matches {
		account, ok := match.(*recordops.Account)
		if !ok {
			return nil, recordops.NewOpsError(recordops.ErrorTypeInternal, recordops.ErrCodeInternalError,
				fmt.Sprintf("query returned unexpected record type %T", match))
		}
		account.Description = recordops.DescriptionUpdatedAccount
		accounts = append(accounts, account)
	}

	if len(accounts) == 0 {
		accounts = append(accounts, &recordops.Account{
			Name:        accountName,
			Description: recordops.DescriptionNewAccount,
		})
	}

	records := make([]recordops.SObject, 0, len(accounts))
	for _, account := range accounts {
		records = append(records, account)
	}
	if err := ops.store.Upsert(ctx, records); err != nil {
		return nil, fmt.Errorf("failed to upsert accounts: %w", err)
	}

	zap.S().Debugw("resolved account by name", "name", accountName, "matches", len(matches))
	if len(accounts) == 0 {
		return nil, nil
	}
	return accounts[0], nil
}

// LinkContactsToAccountsByLastName resolves an Account named after each
// contact's last name, creating it when absent, links the contact, and then
// upserts the whole contact list in one call. Resolution runs sequentially;
// a per-contact failure aborts before the bulk upsert is reached, leaving
// any accounts created so far in place.
func (ops *recordOps) LinkContactsToAccountsByLastName(ctx context.Context, contacts []*recordops.Contact) error {
	records := make([]recordops.SObject, 0, len(contacts))
	for _, contact := range contacts {
		account, err := ops.FindOrCreateAccountByName(ctx, contact.LastName)
		if err != nil {
			return fmt.Errorf("failed to resolve account for contact %q: %w", contact.LastName, err)
		}
		accountID := account.ID
		contact.AccountID = &accountID
		records = append(records, contact)
	}

	if err := ops.store.Upsert(ctx, records); err != nil {
		return fmt.Errorf("failed to upsert contacts: %w", err)
	}

	zap.S().Debugw("linked contacts to accounts", "count", len(records))
	return nil
}

// CreateAndDeleteLeads builds one lead per name with the fixed last name and
// company, bulk-inserts them, then bulk-deletes the same list. A failed
// insert aborts before the delete is attempted.
func (ops *recordOps) CreateAndDeleteLeads(ctx context.Context, names []string) error {
	records := make([]recordops.SObject, 0, len(names))
	for _, name := range names {
		records = append(records, &recordops.Lead{
			FirstName: name,
			LastName:  recordops.DefaultLeadLastName,
			Company:   recordops.DefaultLeadCompany,
		})
	}

	if err := ops.store.Insert(ctx, records); err != nil {
		return fmt.Errorf("failed to insert leads: %w", err)
	}
	if err := ops.store.Delete(ctx, records); err != nil {
		return fmt.Errorf("failed to delete leads: %w", err)
	}

	zap.S().Debugw("created and deleted leads", "count", len(records))
	return nil
}

// CreateAndDeleteCases builds count empty cases linked to the account,
// bulk-inserts them, then bulk-deletes the same list. A failed insert aborts
// before the delete is attempted.
func (ops *recordOps) CreateAndDeleteCases(ctx context.Context, accountID uuid.UUID, count int) error {
	if count < 0 {
		return recordops.NewValidationError("count", "must not be negative")
	}

	records := make([]recordops.SObject, 0, count)
	for i := 0; i < count; i++ {
		linkedID := accountID
		records = append(records, &recordops.Case{
			AccountID: &linkedID,
		})
	}

	if err := ops.store.Insert(ctx, records); err != nil {
		return fmt.Errorf("failed to insert cases: %w", err)
	}
	if err := ops.store.Delete(ctx, records); err != nil {
		return fmt.Errorf("failed to delete cases: %w", err)
	}

	zap.S().Debugw("created and deleted cases", "accountId", accountID, "count", count)
	return nil
}
