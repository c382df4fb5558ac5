package storage

import (
	"context"
	"testing"
)

func TestMigrate_ReachesExpectedVersion(t *testing.T) {
	store := createTestStorage(t)

	var version int
	if err := store.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		t.Fatalf("Failed to read schema version: %v", err)
	}
	if version != ExpectedSchemaVersion {
		t.Errorf("Expected schema version %d, got %d", ExpectedSchemaVersion, version)
	}
}

func TestMigrate_IsIdempotent(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	// createTestStorage already migrated once
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("Second migration should be a no-op: %v", err)
	}
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("Third migration should be a no-op: %v", err)
	}
}

func TestMigrate_SeedsDefaultCategories(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	categories, err := store.GetCategories(ctx)
	if err != nil {
		t.Fatalf("Failed to list categories: %v", err)
	}

	want := []string{"Payroll", "Rent & Utilities", "Revenue", "Software & Services", "Taxes & Fees", "Transfers"}
	got := make(map[string]bool, len(categories))
	for _, c := range categories {
		got[c.Name] = true
	}

	for _, name := range want {
		if !got[name] {
			t.Errorf("Expected seeded category %q", name)
		}
	}
}

func TestMigrate_EnforcesDedupKey(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()
	account := createTestAccount(t, store)

	txns := createTestTransactions(account.ID, 1)
	if _, err := store.UpsertTransactions(ctx, txns); err != nil {
		t.Fatalf("Failed to seed transaction: %v", err)
	}

	// Direct insert bypassing the upsert must hit the UNIQUE constraint
	_, err := store.db.ExecContext(ctx, `
		INSERT INTO transactions (id, account_id, external_id, date, amount, description, hash)
		VALUES ('dup-id', ?, ?, ?, ?, 'dup', 'dup-hash')`,
		account.ID, txns[0].ExternalID, txns[0].Date, txns[0].Amount)
	if err == nil {
		t.Error("Expected UNIQUE constraint violation for duplicate (account_id, external_id)")
	}
}
