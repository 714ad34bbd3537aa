package internal

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/meridian-crm/recordops"
	"go.uber.org/zap"
)

// RenameContact fetches the contact by id, replaces its last name, and
// updates it in place.
func (ops *recordOps) RenameContact(ctx context.Context, contactID uuid.UUID, newLastName string) error {
	match, err := ops.fetchExactlyOne(ctx, recordops.RecordTypeContact, contactID)
	if err != nil {
		return err
	}

	contact, ok := match.(*recordops.Contact)
	if !ok {
		return recordops.NewOpsError(recordops.ErrorTypeInternal, recordops.ErrCodeInternalError,
			fmt.Sprintf("query returned unexpected record type %T", match))
	}

	contact.LastName = newLastName
	if err := ops.store.Update(ctx, []recordops.SObject{contact}); err != nil {
		return fmt.Errorf("failed to update contact: %w", err)
	}

	zap.S().Debugw("renamed contact", "contactId", contactID, "lastName", newLastName)
	return nil
}

// UpdateOpportunityStage fetches the opportunity by id, replaces its stage,
// and updates it in place.
func (ops *recordOps) UpdateOpportunityStage(ctx context.Context, oppID uuid.UUID, newStage string) error {
	match, err := ops.fetchExactlyOne(ctx, recordops.RecordTypeOpportunity, oppID)
	if err != nil {
		return err
	}

	opp, ok := match.(*recordops.Opportunity)
	if !ok {
		return recordops.NewOpsError(recordops.ErrorTypeInternal, recordops.ErrCodeInternalError,
			fmt.Sprintf("query returned unexpected record type %T", match))
	}

	opp.StageName = newStage
	if err := ops.store.Update(ctx, []recordops.SObject{opp}); err != nil {
		return fmt.Errorf("failed to update opportunity: %w", err)
	}

	zap.S().Debugw("updated opportunity stage", "opportunityId", oppID, "stage", newStage)
	return nil
}

// UpdateAccountFields fetches the account by id, replaces name and industry,
// and updates it in place.
func (ops *recordOps) UpdateAccountFields(ctx context.Context, accountID uuid.UUID, newName, newIndustry string) error {
	match, err := ops.fetchExactlyOne(ctx, recordops.RecordTypeAccount, accountID)
	if err != nil {
		return err
	}

	account, ok := match.(*recordops.Account)
	if !ok {
		return recordops.NewOpsError(recordops.ErrorTypeInternal, recordops.ErrCodeInternalError,
			fmt.Sprintf("query returned unexpected record type %T", match))
	}

	account.Name = newName
	account.Industry = newIndustry
	if err := ops.store.Update(ctx, []recordops.SObject{account}); err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}

	zap.S().Debugw("updated account fields", "accountId", accountID, "name", newName, "industry", newIndustry)
	return nil
}
