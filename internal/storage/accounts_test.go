package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/caixahub/caixahub/internal/common"
	"github.com/caixahub/caixahub/internal/model"
)

func TestSQLiteStorage_CursorRoundTrip(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()
	account := createTestAccount(t, store)

	// New accounts start with no cursor
	got, err := store.GetAccount(ctx, account.ID)
	if err != nil {
		t.Fatalf("Failed to get account: %v", err)
	}
	if _, ok := got.Cursor.Time(); ok {
		t.Error("Expected new account to have no cursor")
	}

	syncedAt := time.Date(2026, 2, 1, 8, 30, 0, 0, time.UTC)
	if err := store.AdvanceCursor(ctx, account.ID, syncedAt); err != nil {
		t.Fatalf("Failed to advance cursor: %v", err)
	}

	got, err = store.GetAccount(ctx, account.ID)
	if err != nil {
		t.Fatalf("Failed to get account: %v", err)
	}
	at, ok := got.Cursor.Time()
	if !ok {
		t.Fatal("Expected cursor to be set after advance")
	}
	if !at.Equal(syncedAt) {
		t.Errorf("Expected cursor at %v, got %v", syncedAt, at)
	}

	if err := store.ResetCursor(ctx, account.ID); err != nil {
		t.Fatalf("Failed to reset cursor: %v", err)
	}

	got, err = store.GetAccount(ctx, account.ID)
	if err != nil {
		t.Fatalf("Failed to get account: %v", err)
	}
	if _, ok := got.Cursor.Time(); ok {
		t.Error("Expected cursor to be cleared after reset")
	}
}

func TestSQLiteStorage_AdvanceCursorUnknownAccount(t *testing.T) {
	store := createTestStorage(t)

	err := store.AdvanceCursor(context.Background(), "no-such-account", time.Now())
	if !errors.Is(err, common.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteStorage_ListSyncableAccounts(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	company, err := store.CreateCompany(ctx, "Acme Ltda")
	if err != nil {
		t.Fatalf("Failed to create company: %v", err)
	}

	accounts := []model.Account{
		{CompanyID: company.ID, Name: "linked active", ItemID: "item-1", ExternalID: "ext-1"},
		{CompanyID: company.ID, Name: "unlinked"},
		{CompanyID: company.ID, Name: "needs relink", ItemID: "item-2", ExternalID: "ext-2", Status: model.StatusWaitingUserAction},
		{CompanyID: company.ID, Name: "deleted", ItemID: "item-3", ExternalID: "ext-3", Status: model.StatusDeleted},
	}
	for i := range accounts {
		if err := store.CreateAccount(ctx, &accounts[i]); err != nil {
			t.Fatalf("Failed to create account %q: %v", accounts[i].Name, err)
		}
	}

	syncable, err := store.ListSyncableAccounts(ctx)
	if err != nil {
		t.Fatalf("Failed to list syncable accounts: %v", err)
	}

	if len(syncable) != 1 {
		t.Fatalf("Expected 1 syncable account, got %d", len(syncable))
	}
	if syncable[0].Name != "linked active" {
		t.Errorf("Expected 'linked active', got %q", syncable[0].Name)
	}
}

func TestSQLiteStorage_LinkAccount(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	company, err := store.CreateCompany(ctx, "Acme Ltda")
	if err != nil {
		t.Fatalf("Failed to create company: %v", err)
	}

	account := &model.Account{CompanyID: company.ID, Name: "manual"}
	if err := store.CreateAccount(ctx, account); err != nil {
		t.Fatalf("Failed to create account: %v", err)
	}

	if err := store.LinkAccount(ctx, account.ID, "item-9", "ext-9"); err != nil {
		t.Fatalf("Failed to link account: %v", err)
	}

	got, err := store.GetAccountByExternalID(ctx, "ext-9")
	if err != nil {
		t.Fatalf("Failed to get account by external ID: %v", err)
	}
	if got.ID != account.ID {
		t.Errorf("Expected account %s, got %s", account.ID, got.ID)
	}
	if got.ItemID != "item-9" {
		t.Errorf("Expected item-9, got %q", got.ItemID)
	}
	if !got.Syncable() {
		t.Error("Expected linked active account to be syncable")
	}
}

func TestSQLiteStorage_DuplicateExternalID(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()
	account := createTestAccount(t, store)

	dup := &model.Account{
		CompanyID:  account.CompanyID,
		Name:       "duplicate link",
		ItemID:     account.ItemID,
		ExternalID: account.ExternalID,
	}
	err := store.CreateAccount(ctx, dup)
	if !errors.Is(err, common.ErrDuplicateEntry) {
		t.Errorf("Expected ErrDuplicateEntry, got %v", err)
	}
}

func TestSQLiteStorage_UpdateAccountStatus(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()
	account := createTestAccount(t, store)

	if err := store.UpdateAccountStatus(ctx, account.ID, model.StatusWaitingUserAction); err != nil {
		t.Fatalf("Failed to update status: %v", err)
	}

	got, err := store.GetAccount(ctx, account.ID)
	if err != nil {
		t.Fatalf("Failed to get account: %v", err)
	}
	if got.Status != model.StatusWaitingUserAction {
		t.Errorf("Expected status %s, got %s", model.StatusWaitingUserAction, got.Status)
	}
	if got.Syncable() {
		t.Error("Account waiting for user action must not be syncable")
	}
}
