package model

import (
	"testing"
	"time"
)

func TestTransaction_GenerateHash(t *testing.T) {
	base := Transaction{
		AccountID:  "acc-1",
		ExternalID: "tx-1",
		Amount:     -42.50,
		Date:       time.Date(2026, 1, 15, 14, 30, 0, 0, time.UTC),
	}

	if base.GenerateHash() != base.GenerateHash() {
		t.Error("Hash must be stable for identical input")
	}

	// Time of day does not change the hash, the calendar date does
	sameDay := base
	sameDay.Date = sameDay.Date.Add(3 * time.Hour)
	if base.GenerateHash() != sameDay.GenerateHash() {
		t.Error("Hash must ignore time of day")
	}

	tests := []struct {
		name   string
		mutate func(*Transaction)
	}{
		{"different account", func(tx *Transaction) { tx.AccountID = "acc-2" }},
		{"different external id", func(tx *Transaction) { tx.ExternalID = "tx-2" }},
		{"different amount", func(tx *Transaction) { tx.Amount = -42.51 }},
		{"different date", func(tx *Transaction) { tx.Date = tx.Date.AddDate(0, 0, 1) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			other := base
			tt.mutate(&other)
			if base.GenerateHash() == other.GenerateHash() {
				t.Error("Expected hash to differ")
			}
		})
	}
}

func TestTransaction_UserCategorized(t *testing.T) {
	categoryID := 3

	var tx Transaction
	if tx.UserCategorized() {
		t.Error("Uncategorized transaction must not report user-categorized")
	}

	tx = Transaction{CategoryID: &categoryID, CategorySource: CategorySourceProvider}
	if tx.UserCategorized() {
		t.Error("Provider-categorized transaction must not report user-categorized")
	}

	tx = Transaction{CategoryID: &categoryID, CategorySource: CategorySourceUser}
	if !tx.UserCategorized() {
		t.Error("Expected user-categorized transaction to report true")
	}
}

func TestTransaction_Deleted(t *testing.T) {
	var tx Transaction
	if tx.Deleted() {
		t.Error("Fresh transaction must not report deleted")
	}

	now := time.Now()
	tx.DeletedAt = &now
	if !tx.Deleted() {
		t.Error("Expected transaction with DeletedAt to report deleted")
	}
}
