package internal

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/meridian-crm/recordops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedClock pins "today" so date-dependent operations stay deterministic.
var fixedClock = recordops.ClockFunc(func() time.Time {
	return time.Date(2024, time.March, 15, 10, 30, 0, 0, time.UTC)
})

func newTestOps(t *testing.T) (recordops.RecordOperations, *MemoryRecordStore) {
	t.Helper()
	store := NewMemoryRecordStore(0)
	return NewRecordOperations(store, fixedClock), store
}

func queryAll(t *testing.T, store *MemoryRecordStore, recordType recordops.RecordType) []recordops.SObject {
	t.Helper()
	results, err := store.Query(context.Background(), &recordops.Query{RecordType: recordType})
	require.NoError(t, err)
	return results
}

func insertAccount(t *testing.T, store *MemoryRecordStore, account *recordops.Account) *recordops.Account {
	t.Helper()
	require.NoError(t, store.Insert(context.Background(), []recordops.SObject{account}))
	return account
}

// =============================================================================
// Create operations
// =============================================================================

func TestCreateMinimalAccount(t *testing.T) {
	ops, store := newTestOps(t)

	id, err := ops.CreateMinimalAccount(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, id)

	accounts := queryAll(t, store, recordops.RecordTypeAccount)
	require.Len(t, accounts, 1)
	account := accounts[0].(*recordops.Account)
	assert.Equal(t, id, account.ID)
	assert.Equal(t, recordops.DefaultAccountName, account.Name)
}

func TestCreateAccount(t *testing.T) {
	ops, store := newTestOps(t)

	require.NoError(t, ops.CreateAccount(context.Background(), "Globex", "Energy"))

	accounts := queryAll(t, store, recordops.RecordTypeAccount)
	require.Len(t, accounts, 1)
	account := accounts[0].(*recordops.Account)
	assert.NotEqual(t, uuid.Nil, account.ID)
	assert.Equal(t, "Globex", account.Name)
	assert.Equal(t, "Energy", account.Industry)
}

func TestCreateAccountValidationPropagates(t *testing.T) {
	ops, _ := newTestOps(t)

	err := ops.CreateAccount(context.Background(), "", "Energy")
	require.Error(t, err)
	assert.True(t, recordops.IsValidation(err))
}

func TestCreateContact(t *testing.T) {
	ops, store := newTestOps(t)
	account := insertAccount(t, store, &recordops.Account{Name: "Globex"})

	id, err := ops.CreateContact(context.Background(), account.ID)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, id)

	contacts := queryAll(t, store, recordops.RecordTypeContact)
	require.Len(t, contacts, 1)
	contact := contacts[0].(*recordops.Contact)
	assert.Equal(t, recordops.DefaultContactLastName, contact.LastName)
	require.NotNil(t, contact.AccountID)
	assert.Equal(t, account.ID, *contact.AccountID)
}

func TestCreateContactInvalidAccountPropagates(t *testing.T) {
	ops, store := newTestOps(t)

	_, err := ops.CreateContact(context.Background(), uuid.Must(uuid.NewV7()))
	require.Error(t, err)

	var opsErr *recordops.OpsError
	require.ErrorAs(t, err, &opsErr)
	assert.Equal(t, recordops.ErrorTypeReference, opsErr.Type)
	assert.Equal(t, 0, store.Count(recordops.RecordTypeContact))
}

// =============================================================================
// Fetch-then-update operations
// =============================================================================

func TestRenameContact(t *testing.T) {
	ops, store := newTestOps(t)
	account := insertAccount(t, store, &recordops.Account{Name: "Globex"})

	contactID, err := ops.CreateContact(context.Background(), account.ID)
	require.NoError(t, err)

	require.NoError(t, ops.RenameContact(context.Background(), contactID, "Updated"))

	contacts := queryAll(t, store, recordops.RecordTypeContact)
	require.Len(t, contacts, 1)
	contact := contacts[0].(*recordops.Contact)
	assert.Equal(t, "Updated", contact.LastName)
	// the account link survives the rewrite
	require.NotNil(t, contact.AccountID)
	assert.Equal(t, account.ID, *contact.AccountID)
}

func TestRenameContactIsIdempotent(t *testing.T) {
	ops, store := newTestOps(t)
	account := insertAccount(t, store, &recordops.Account{Name: "Globex"})

	contactID, err := ops.CreateContact(context.Background(), account.ID)
	require.NoError(t, err)

	require.NoError(t, ops.RenameContact(context.Background(), contactID, "Twice"))
	require.NoError(t, ops.RenameContact(context.Background(), contactID, "Twice"))

	contacts := queryAll(t, store, recordops.RecordTypeContact)
	require.Len(t, contacts, 1)
	assert.Equal(t, "Twice", contacts[0].(*recordops.Contact).LastName)
}

func TestRenameContactNotFound(t *testing.T) {
	ops, _ := newTestOps(t)

	err := ops.RenameContact(context.Background(), uuid.Must(uuid.NewV7()), "Nobody")
	require.Error(t, err)
	assert.True(t, recordops.IsNotFound(err))
}

func TestUpdateOpportunityStage(t *testing.T) {
	ops, store := newTestOps(t)
	opp := &recordops.Opportunity{Name: "Deal", StageName: recordops.StageProspecting}
	require.NoError(t, store.Insert(context.Background(), []recordops.SObject{opp}))

	require.NoError(t, ops.UpdateOpportunityStage(context.Background(), opp.ID, "Closed Won"))

	opps := queryAll(t, store, recordops.RecordTypeOpportunity)
	require.Len(t, opps, 1)
	assert.Equal(t, "Closed Won", opps[0].(*recordops.Opportunity).StageName)
}

func TestUpdateOpportunityStageNotFound(t *testing.T) {
	ops, _ := newTestOps(t)

	err := ops.UpdateOpportunityStage(context.Background(), uuid.Must(uuid.NewV7()), "Closed Won")
	require.Error(t, err)
	assert.True(t, recordops.IsNotFound(err))
}

func TestUpdateAccountFields(t *testing.T) {
	ops, store := newTestOps(t)
	account := insertAccount(t, store, &recordops.Account{Name: "Globex", Industry: "Energy"})

	require.NoError(t, ops.UpdateAccountFields(context.Background(), account.ID, "Initech", "Software"))

	accounts := queryAll(t, store, recordops.RecordTypeAccount)
	require.Len(t, accounts, 1)
	got := accounts[0].(*recordops.Account)
	assert.Equal(t, "Initech", got.Name)
	assert.Equal(t, "Software", got.Industry)
}

func TestUpdateAccountFieldsNotFound(t *testing.T) {
	ops, _ := newTestOps(t)

	err := ops.UpdateAccountFields(context.Background(), uuid.Must(uuid.NewV7()), "Initech", "Software")
	require.Error(t, err)
	assert.True(t, recordops.IsNotFound(err))
}

// =============================================================================
// Bulk operations
// =============================================================================

func TestNormalizeAndUpsertOpportunities(t *testing.T) {
	ops, store := newTestOps(t)

	existing := &recordops.Opportunity{Name: "Old Deal", StageName: recordops.StageProspecting, Amount: 100}
	require.NoError(t, store.Insert(context.Background(), []recordops.SObject{existing}))

	input := []*recordops.Opportunity{
		existing,
		{Name: "Fresh Deal", StageName: recordops.StageProspecting},
	}

	require.NoError(t, ops.NormalizeAndUpsertOpportunities(context.Background(), input))

	wantCloseDate := time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC)
	opps := queryAll(t, store, recordops.RecordTypeOpportunity)
	require.Len(t, opps, 2)
	for _, obj := range opps {
		opp := obj.(*recordops.Opportunity)
		assert.Equal(t, recordops.StageQualification, opp.StageName)
		assert.Equal(t, float64(recordops.NormalizedOpportunityAmount), opp.Amount)
		assert.Equal(t, wantCloseDate, opp.CloseDate)
	}
}

func TestNormalizeAndUpsertOpportunitiesCloseDateClamps(t *testing.T) {
	clock := recordops.ClockFunc(func() time.Time {
		return time.Date(2024, time.November, 30, 9, 0, 0, 0, time.UTC)
	})
	store := NewMemoryRecordStore(0)
	ops := NewRecordOperations(store, clock)

	input := []*recordops.Opportunity{{Name: "Deal", StageName: recordops.StageProspecting}}
	require.NoError(t, ops.NormalizeAndUpsertOpportunities(context.Background(), input))

	opps := queryAll(t, store, recordops.RecordTypeOpportunity)
	require.Len(t, opps, 1)
	// Nov 30 + 3 months lands on the short February and clamps.
	assert.Equal(t, time.Date(2025, time.February, 28, 0, 0, 0, 0, time.UTC),
		opps[0].(*recordops.Opportunity).CloseDate)
}

func TestNormalizeAndUpsertOpportunitiesEmptyList(t *testing.T) {
	ops, store := newTestOps(t)
	require.NoError(t, ops.NormalizeAndUpsertOpportunities(context.Background(), nil))
	assert.Equal(t, 0, store.Count(recordops.RecordTypeOpportunity))
}

func TestCreateAccountWithOpportunities(t *testing.T) {
	ops, store := newTestOps(t)

	err := ops.CreateAccountWithOpportunities(context.Background(), "Globex", []string{"Deal One", "Deal Two"})
	require.NoError(t, err)

	accounts := queryAll(t, store, recordops.RecordTypeAccount)
	require.Len(t, accounts, 1)
	accountID := accounts[0].RecordID()

	today := time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)
	opps := queryAll(t, store, recordops.RecordTypeOpportunity)
	require.Len(t, opps, 2)
	names := make([]string, 0, 2)
	for _, obj := range opps {
		opp := obj.(*recordops.Opportunity)
		names = append(names, opp.Name)
		assert.Equal(t, recordops.StageProspecting, opp.StageName)
		assert.Equal(t, today, opp.CloseDate)
		require.NotNil(t, opp.AccountID)
		assert.Equal(t, accountID, *opp.AccountID)
	}
	assert.ElementsMatch(t, []string{"Deal One", "Deal Two"}, names)
}

func TestCreateAccountWithOpportunitiesAccountFailureAborts(t *testing.T) {
	ops, store := newTestOps(t)

	err := ops.CreateAccountWithOpportunities(context.Background(), "", []string{"Deal"})
	require.Error(t, err)
	assert.True(t, recordops.IsValidation(err))
	assert.Equal(t, 0, store.Count(recordops.RecordTypeAccount))
	assert.Equal(t, 0, store.Count(recordops.RecordTypeOpportunity))
}

func TestCreateAccountWithOpportunitiesNoRollbackOnUpsertFailure(t *testing.T) {
	ops, store := newTestOps(t)

	// An empty opportunity name fails store validation after the account
	// insert already committed; the account stays behind.
	err := ops.CreateAccountWithOpportunities(context.Background(), "Globex", []string{""})
	require.Error(t, err)
	assert.Equal(t, 1, store.Count(recordops.RecordTypeAccount))
	assert.Equal(t, 0, store.Count(recordops.RecordTypeOpportunity))
}

// =============================================================================
// FindOrCreateAccountByName
// =============================================================================

func TestFindOrCreateAccountByNameCreates(t *testing.T) {
	ops, store := newTestOps(t)

	account, err := ops.FindOrCreateAccountByName(context.Background(), "Acme")
	require.NoError(t, err)
	require.NotNil(t, account)
	assert.NotEqual(t, uuid.Nil, account.ID)
	assert.Equal(t, "Acme", account.Name)
	assert.Equal(t, recordops.DescriptionNewAccount, account.Description)
	assert.Equal(t, 1, store.Count(recordops.RecordTypeAccount))
}

func TestFindOrCreateAccountByNameUpdatesExisting(t *testing.T) {
	ops, store := newTestOps(t)

	created, err := ops.FindOrCreateAccountByName(context.Background(), "Acme")
	require.NoError(t, err)

	updated, err := ops.FindOrCreateAccountByName(context.Background(), "Acme")
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, recordops.DescriptionUpdatedAccount, updated.Description)
	// no second account appears
	assert.Equal(t, 1, store.Count(recordops.RecordTypeAccount))
}

func TestFindOrCreateAccountByNameUpdatesAllButReturnsFirst(t *testing.T) {
	// When several accounts share the exact name, every one is updated but
	// only the first is returned. The asymmetry is preserved deliberately.
	ops, store := newTestOps(t)

	first := insertAccount(t, store, &recordops.Account{Name: "Acme"})
	insertAccount(t, store, &recordops.Account{Name: "Acme"})

	returned, err := ops.FindOrCreateAccountByName(context.Background(), "Acme")
	require.NoError(t, err)
	require.NotNil(t, returned)
	assert.Equal(t, first.ID, returned.ID)

	accounts := queryAll(t, store, recordops.RecordTypeAccount)
	require.Len(t, accounts, 2)
	for _, obj := range accounts {
		assert.Equal(t, recordops.DescriptionUpdatedAccount, obj.(*recordops.Account).Description)
	}
}

func TestFindOrCreateAccountByNameExactMatchOnly(t *testing.T) {
	ops, store := newTestOps(t)
	insertAccount(t, store, &recordops.Account{Name: "Acme Corporation"})

	account, err := ops.FindOrCreateAccountByName(context.Background(), "Acme")
	require.NoError(t, err)
	require.NotNil(t, account)
	assert.Equal(t, recordops.DescriptionNewAccount, account.Description)
	assert.Equal(t, 2, store.Count(recordops.RecordTypeAccount))
}

// =============================================================================
// LinkContactsToAccountsByLastName
// =============================================================================

func TestLinkContactsToAccountsByLastName(t *testing.T) {
	ops, store := newTestOps(t)

	contacts := []*recordops.Contact{
		{LastName: "Doe"},
		{LastName: "Jane"},
	}
	require.NoError(t, ops.LinkContactsToAccountsByLastName(context.Background(), contacts))

	accounts := queryAll(t, store, recordops.RecordTypeAccount)
	require.Len(t, accounts, 2)
	accountsByName := make(map[string]uuid.UUID, 2)
	for _, obj := range accounts {
		account := obj.(*recordops.Account)
		accountsByName[account.Name] = account.ID
	}
	require.Contains(t, accountsByName, "Doe")
	require.Contains(t, accountsByName, "Jane")

	stored := queryAll(t, store, recordops.RecordTypeContact)
	require.Len(t, stored, 2)
	for _, obj := range stored {
		contact := obj.(*recordops.Contact)
		require.NotNil(t, contact.AccountID)
		assert.Equal(t, accountsByName[contact.LastName], *contact.AccountID)
	}
}

func TestLinkContactsReusesExistingAccount(t *testing.T) {
	ops, store := newTestOps(t)
	existing := insertAccount(t, store, &recordops.Account{Name: "Doe"})

	contacts := []*recordops.Contact{{LastName: "Doe"}}
	require.NoError(t, ops.LinkContactsToAccountsByLastName(context.Background(), contacts))

	assert.Equal(t, 1, store.Count(recordops.RecordTypeAccount))
	require.NotNil(t, contacts[0].AccountID)
	assert.Equal(t, existing.ID, *contacts[0].AccountID)
}

func TestLinkContactsResolutionFailureAbortsBeforeUpsert(t *testing.T) {
	ops, store := newTestOps(t)

	// The empty last name makes account resolution fail on the second
	// contact, after the first contact's account was already created. The
	// contact upsert is never reached.
	contacts := []*recordops.Contact{
		{LastName: "Doe"},
		{LastName: ""},
	}
	err := ops.LinkContactsToAccountsByLastName(context.Background(), contacts)
	require.Error(t, err)
	assert.Equal(t, 1, store.Count(recordops.RecordTypeAccount))
	assert.Equal(t, 0, store.Count(recordops.RecordTypeContact))
}

// =============================================================================
// Create-and-delete round trips
// =============================================================================

func TestCreateAndDeleteLeads(t *testing.T) {
	ops, store := newTestOps(t)

	require.NoError(t, ops.CreateAndDeleteLeads(context.Background(), []string{"A", "B"}))
	assert.Equal(t, 0, store.Count(recordops.RecordTypeLead))
}

func TestCreateAndDeleteLeadsEmpty(t *testing.T) {
	ops, store := newTestOps(t)

	require.NoError(t, ops.CreateAndDeleteLeads(context.Background(), nil))
	assert.Equal(t, 0, store.Count(recordops.RecordTypeLead))
}

func TestCreateAndDeleteCases(t *testing.T) {
	ops, store := newTestOps(t)
	account := insertAccount(t, store, &recordops.Account{Name: "Globex"})

	require.NoError(t, ops.CreateAndDeleteCases(context.Background(), account.ID, 5))
	assert.Equal(t, 0, store.Count(recordops.RecordTypeCase))
}

func TestCreateAndDeleteCasesNegativeCount(t *testing.T) {
	ops, _ := newTestOps(t)

	err := ops.CreateAndDeleteCases(context.Background(), uuid.Must(uuid.NewV7()), -1)
	require.Error(t, err)
	assert.True(t, recordops.IsValidation(err))
}

func TestCreateAndDeleteCasesInsertFailureAbortsBeforeDelete(t *testing.T) {
	ops, store := newTestOps(t)

	// Unknown account: the bulk insert fails its reference check and the
	// delete never runs.
	err := ops.CreateAndDeleteCases(context.Background(), uuid.Must(uuid.NewV7()), 3)
	require.Error(t, err)

	var opsErr *recordops.OpsError
	require.ErrorAs(t, err, &opsErr)
	assert.Equal(t, recordops.ErrorTypeReference, opsErr.Type)
	assert.Equal(t, 0, store.Count(recordops.RecordTypeCase))
}
