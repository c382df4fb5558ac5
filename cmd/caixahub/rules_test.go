package main

import (
	"context"
	"testing"

	"github.com/caixahub/caixahub/internal/common"
	"github.com/caixahub/caixahub/internal/model"
	"github.com/caixahub/caixahub/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRulesTestStore(t *testing.T) *storage.SQLiteStorage {
	t.Helper()
	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrate(context.Background()))
	return store
}

func TestAddMerchantRule(t *testing.T) {
	store := newRulesTestStore(t)
	ctx := context.Background()

	rule, err := addMerchantRule(ctx, store, "PADARIA CENTRAL", "Revenue")
	require.NoError(t, err)
	assert.Equal(t, model.RuleSourceManual, rule.Source)

	saved, err := store.GetMerchantRule(ctx, "PADARIA CENTRAL")
	require.NoError(t, err)
	assert.Equal(t, rule.CategoryID, saved.CategoryID)
	assert.Equal(t, model.RuleSourceManual, saved.Source)
}

func TestAddMerchantRule_ReplacesExisting(t *testing.T) {
	store := newRulesTestStore(t)
	ctx := context.Background()

	_, err := addMerchantRule(ctx, store, "PADARIA CENTRAL", "Revenue")
	require.NoError(t, err)

	updated, err := addMerchantRule(ctx, store, "PADARIA CENTRAL", "Taxes & Fees")
	require.NoError(t, err)

	saved, err := store.GetMerchantRule(ctx, "PADARIA CENTRAL")
	require.NoError(t, err)
	assert.Equal(t, updated.CategoryID, saved.CategoryID)
}

func TestAddMerchantRule_UnknownCategory(t *testing.T) {
	store := newRulesTestStore(t)

	_, err := addMerchantRule(context.Background(), store, "PADARIA CENTRAL", "No Such Category")
	assert.ErrorIs(t, err, common.ErrNotFound)
}
