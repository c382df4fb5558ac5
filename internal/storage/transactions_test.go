package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/caixahub/caixahub/internal/common"
	"github.com/caixahub/caixahub/internal/model"
	"github.com/caixahub/caixahub/internal/service"
)

func TestSQLiteStorage_UpsertTransactions(t *testing.T) {
	tests := []struct {
		name        string
		setup       func(ctx context.Context, t *testing.T, s *SQLiteStorage, accountID string)
		incoming    func(accountID string) []model.Transaction
		wantCreated int
		wantUpdated int
	}{
		{
			name: "new transactions are created",
			incoming: func(accountID string) []model.Transaction {
				return createTestTransactions(accountID, 3)
			},
			wantCreated: 3,
		},
		{
			name: "identical re-ingestion is a no-op",
			setup: func(ctx context.Context, t *testing.T, s *SQLiteStorage, accountID string) {
				t.Helper()
				if _, err := s.UpsertTransactions(ctx, createTestTransactions(accountID, 2)); err != nil {
					t.Fatalf("Failed to seed transactions: %v", err)
				}
			},
			incoming: func(accountID string) []model.Transaction {
				return createTestTransactions(accountID, 2)
			},
			wantCreated: 0,
			wantUpdated: 0,
		},
		{
			name: "changed mutable fields are updated",
			setup: func(ctx context.Context, t *testing.T, s *SQLiteStorage, accountID string) {
				t.Helper()
				if _, err := s.UpsertTransactions(ctx, createTestTransactions(accountID, 2)); err != nil {
					t.Fatalf("Failed to seed transactions: %v", err)
				}
			},
			incoming: func(accountID string) []model.Transaction {
				txns := createTestTransactions(accountID, 2)
				txns[0].Description = "CORRECTED DESCRIPTION"
				return txns
			},
			wantCreated: 0,
			wantUpdated: 1,
		},
		{
			name: "mixed batch of new and known",
			setup: func(ctx context.Context, t *testing.T, s *SQLiteStorage, accountID string) {
				t.Helper()
				if _, err := s.UpsertTransactions(ctx, createTestTransactions(accountID, 1)); err != nil {
					t.Fatalf("Failed to seed transactions: %v", err)
				}
			},
			incoming: func(accountID string) []model.Transaction {
				return createTestTransactions(accountID, 3)
			},
			wantCreated: 2,
			wantUpdated: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := createTestStorage(t)
			ctx := context.Background()
			account := createTestAccount(t, store)

			if tt.setup != nil {
				tt.setup(ctx, t, store, account.ID)
			}

			stats, err := store.UpsertTransactions(ctx, tt.incoming(account.ID))
			if err != nil {
				t.Fatalf("UpsertTransactions failed: %v", err)
			}
			if stats.Created != tt.wantCreated {
				t.Errorf("Expected %d created, got %d", tt.wantCreated, stats.Created)
			}
			if stats.Updated != tt.wantUpdated {
				t.Errorf("Expected %d updated, got %d", tt.wantUpdated, stats.Updated)
			}
		})
	}
}

func TestSQLiteStorage_UpsertRejectsInvalidRows(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()
	account := createTestAccount(t, store)

	txns := createTestTransactions(account.ID, 1)
	txns[0].ExternalID = ""

	if _, err := store.UpsertTransactions(ctx, txns); err == nil {
		t.Error("Expected error for transaction without external ID")
	}
}

func TestSQLiteStorage_UserCategorySurvivesUpsert(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()
	account := createTestAccount(t, store)

	txns := createTestTransactions(account.ID, 1)
	if _, err := store.UpsertTransactions(ctx, txns); err != nil {
		t.Fatalf("Failed to seed transaction: %v", err)
	}

	saved, err := store.GetTransactionByExternalID(ctx, account.ID, txns[0].ExternalID)
	if err != nil {
		t.Fatalf("Failed to get transaction: %v", err)
	}

	category, err := store.GetCategoryByName(ctx, "Transfers")
	if err != nil {
		t.Fatalf("Failed to get seeded category: %v", err)
	}

	// User picks a category by hand
	if err := store.SetTransactionCategory(ctx, saved.ID, category.ID, model.CategorySourceUser); err != nil {
		t.Fatalf("Failed to set user category: %v", err)
	}

	// Re-ingest the same transaction with a changed description
	txns[0].Description = "UPDATED BY BANK"
	if _, err := store.UpsertTransactions(ctx, txns); err != nil {
		t.Fatalf("Failed to re-upsert: %v", err)
	}

	got, err := store.GetTransactionByExternalID(ctx, account.ID, txns[0].ExternalID)
	if err != nil {
		t.Fatalf("Failed to get transaction: %v", err)
	}
	if !got.UserCategorized() {
		t.Fatal("Expected transaction to remain user-categorized after upsert")
	}
	if *got.CategoryID != category.ID {
		t.Errorf("Expected category %d, got %d", category.ID, *got.CategoryID)
	}
	if got.Description != "UPDATED BY BANK" {
		t.Errorf("Expected mutable fields to update, got description %q", got.Description)
	}
}

func TestSQLiteStorage_ProviderCannotOverwriteUserCategory(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()
	account := createTestAccount(t, store)

	txns := createTestTransactions(account.ID, 1)
	if _, err := store.UpsertTransactions(ctx, txns); err != nil {
		t.Fatalf("Failed to seed transaction: %v", err)
	}
	saved, err := store.GetTransactionByExternalID(ctx, account.ID, txns[0].ExternalID)
	if err != nil {
		t.Fatalf("Failed to get transaction: %v", err)
	}

	userCat, err := store.GetCategoryByName(ctx, "Transfers")
	if err != nil {
		t.Fatalf("Failed to get category: %v", err)
	}
	providerCat, err := store.GetCategoryByName(ctx, "Revenue")
	if err != nil {
		t.Fatalf("Failed to get category: %v", err)
	}

	if err := store.SetTransactionCategory(ctx, saved.ID, userCat.ID, model.CategorySourceUser); err != nil {
		t.Fatalf("Failed to set user category: %v", err)
	}

	// Provider assignment silently yields to the user's choice
	if err := store.SetTransactionCategory(ctx, saved.ID, providerCat.ID, model.CategorySourceProvider); err != nil {
		t.Fatalf("Provider category set should not error: %v", err)
	}

	got, err := store.GetTransactionByExternalID(ctx, account.ID, txns[0].ExternalID)
	if err != nil {
		t.Fatalf("Failed to get transaction: %v", err)
	}
	if *got.CategoryID != userCat.ID {
		t.Errorf("Expected user category %d to survive, got %d", userCat.ID, *got.CategoryID)
	}
	if got.CategorySource != model.CategorySourceUser {
		t.Errorf("Expected category source user, got %s", got.CategorySource)
	}
}

func TestSQLiteStorage_SoftDelete(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()
	account := createTestAccount(t, store)

	txns := createTestTransactions(account.ID, 2)
	if _, err := store.UpsertTransactions(ctx, txns); err != nil {
		t.Fatalf("Failed to seed transactions: %v", err)
	}
	saved, err := store.GetTransactionByExternalID(ctx, account.ID, txns[0].ExternalID)
	if err != nil {
		t.Fatalf("Failed to get transaction: %v", err)
	}

	if err := store.SoftDeleteTransaction(ctx, saved.ID); err != nil {
		t.Fatalf("Failed to soft delete: %v", err)
	}

	// Gone from active views
	active, err := store.GetTransactions(ctx, service.TransactionFilter{AccountID: account.ID})
	if err != nil {
		t.Fatalf("Failed to list transactions: %v", err)
	}
	if len(active) != 1 {
		t.Errorf("Expected 1 active transaction, got %d", len(active))
	}

	// Still present under its dedup key so re-ingestion can't resurrect it
	deleted, err := store.GetTransactionByExternalID(ctx, account.ID, txns[0].ExternalID)
	if err != nil {
		t.Fatalf("Expected soft-deleted transaction to stay addressable: %v", err)
	}
	if !deleted.Deleted() {
		t.Error("Expected transaction to report as deleted")
	}

	// Re-ingesting the deleted row does not create a duplicate
	stats, err := store.UpsertTransactions(ctx, txns[:1])
	if err != nil {
		t.Fatalf("Failed to re-upsert: %v", err)
	}
	if stats.Created != 0 {
		t.Errorf("Expected no new rows, got %d created", stats.Created)
	}

	// Deleting twice reports not found
	if err := store.SoftDeleteTransaction(ctx, saved.ID); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("Expected ErrNotFound on double delete, got %v", err)
	}
}

func TestSQLiteStorage_GetTransactionsFilter(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()
	account := createTestAccount(t, store)

	txns := createTestTransactions(account.ID, 5)
	if _, err := store.UpsertTransactions(ctx, txns); err != nil {
		t.Fatalf("Failed to seed transactions: %v", err)
	}

	start := txns[2].Date
	got, err := store.GetTransactions(ctx, service.TransactionFilter{
		AccountID: account.ID,
		StartDate: &start,
	})
	if err != nil {
		t.Fatalf("Failed to filter transactions: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("Expected 3 transactions from %v on, got %d", start, len(got))
	}

	got, err = store.GetTransactions(ctx, service.TransactionFilter{AccountID: account.ID, Limit: 2})
	if err != nil {
		t.Fatalf("Failed to limit transactions: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("Expected 2 transactions with limit, got %d", len(got))
	}
	// Newest first
	if !got[0].Date.After(got[1].Date) {
		t.Error("Expected transactions ordered newest first")
	}
}

func TestSQLiteStorage_GetCashFlow(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()
	account := createTestAccount(t, store)

	revenue, err := store.GetCategoryByName(ctx, "Revenue")
	if err != nil {
		t.Fatalf("Failed to get category: %v", err)
	}

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	txns := []model.Transaction{
		{AccountID: account.ID, ExternalID: "cf-1", Date: base, Amount: 1000, Description: "PIX RECEBIDO"},
		{AccountID: account.ID, ExternalID: "cf-2", Date: base.AddDate(0, 0, 1), Amount: -300, Description: "ALUGUEL"},
		{AccountID: account.ID, ExternalID: "cf-3", Date: base.AddDate(0, 0, 2), Amount: -200, Description: "SOFTWARE"},
	}
	if _, err := store.UpsertTransactions(ctx, txns); err != nil {
		t.Fatalf("Failed to seed transactions: %v", err)
	}

	saved, err := store.GetTransactionByExternalID(ctx, account.ID, "cf-1")
	if err != nil {
		t.Fatalf("Failed to get transaction: %v", err)
	}
	if err := store.SetTransactionCategory(ctx, saved.ID, revenue.ID, model.CategorySourceProvider); err != nil {
		t.Fatalf("Failed to categorize: %v", err)
	}

	summary, err := store.GetCashFlow(ctx, base, base.AddDate(0, 0, 7))
	if err != nil {
		t.Fatalf("Failed to compute cash flow: %v", err)
	}

	if summary.TotalIncome != 1000 {
		t.Errorf("Expected income 1000, got %.2f", summary.TotalIncome)
	}
	if summary.TotalExpenses != 500 {
		t.Errorf("Expected expenses 500, got %.2f", summary.TotalExpenses)
	}
	if summary.NetCashFlow != 500 {
		t.Errorf("Expected net 500, got %.2f", summary.NetCashFlow)
	}
	if entry := summary.IncomeByCategory["Revenue"]; entry.Count != 1 || entry.Amount != 1000 {
		t.Errorf("Expected Revenue {1, 1000}, got %+v", entry)
	}
	if entry := summary.ExpensesByCategory["Uncategorized"]; entry.Count != 2 || entry.Amount != 500 {
		t.Errorf("Expected Uncategorized {2, 500}, got %+v", entry)
	}
}
