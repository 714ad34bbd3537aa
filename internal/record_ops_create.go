package internal

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/meridian-crm/recordops"
	"go.uber.org/zap"
)

// CreateMinimalAccount inserts an Account carrying only the fixed default
// name and returns the identifier the store assigned.
func (ops *recordOps) CreateMinimalAccount(ctx context.Context) (uuid.UUID, error) {
	account := &recordops.Account{
		Name: recordops.DefaultAccountName,
	}

	if err := ops.store.Insert(ctx, []recordops.SObject{account}); err != nil {
		return uuid.Nil, fmt.Errorf("failed to insert account: %w", err)
	}

	zap.S().Debugw("created minimal account", "accountId", account.ID)
	return account.ID, nil
}

// CreateAccount inserts an Account with the given name and industry.
func (ops *recordOps) CreateAccount(ctx context.Context, name, industry string) error {
	account := &recordops.Account{
		Name:     name,
		Industry: industry,
	}

	if err := ops.store.Insert(ctx, []recordops.SObject{account}); err != nil {
		return fmt.Errorf("failed to insert account: %w", err)
	}

	zap.S().Debugw("created account", "accountId", account.ID, "name", name, "industry", industry)
	return nil
}

// CreateContact inserts a Contact with the fixed default last name, linked
// to the given account, and returns the identifier the store assigned. An
// unresolvable account id surfaces as the store's reference error.
func (ops *recordOps) CreateContact(ctx context.Context, accountID uuid.UUID) (uuid.UUID, error) {
	contact := &recordops.Contact{
		LastName:  recordops.DefaultContactLastName,
		AccountID: &accountID,
	}

	if err := ops.store.Insert(ctx, []recordops.SObject{contact}); err != nil {
		return uuid.Nil, fmt.Errorf("failed to insert contact: %w", err)
	}

	zap.S().Debugw("created contact", "contactId", contact.ID, "accountId", accountID)
	return contact.ID, nil
}
