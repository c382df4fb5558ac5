package model

import (
	"crypto/sha256"
	"fmt"
	"time"
)

// CategorySource records who assigned a transaction's category.
type CategorySource string

const (
	// CategorySourceProvider means the category came from the aggregator's
	// own classification or a merchant rule.
	CategorySourceProvider CategorySource = "provider"
	// CategorySourceUser means the user set the category by hand. User
	// assignments are never overwritten by re-sync or re-categorization.
	CategorySourceUser CategorySource = "user"
)

// Transaction represents a single bank transaction ingested from the
// aggregator or an OFX statement.
type Transaction struct {
	Date             time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
	DeletedAt        *time.Time // soft delete; excluded from active views
	CategoryID       *int
	ID               string // internal identifier
	ExternalID       string // provider identifier; unique per account
	AccountID        string
	Description      string // raw transaction description
	MerchantName     string // cleaned merchant name
	ProviderCategory string // category hint from the aggregator
	Hash             string
	CategorySource   CategorySource
	Amount           float64
}

// GenerateHash creates a stable hash for duplicate detection across sources.
func (t *Transaction) GenerateHash() string {
	data := fmt.Sprintf("%s:%s:%.2f:%s",
		t.AccountID,
		t.ExternalID,
		t.Amount,
		t.Date.Format("2006-01-02"))
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}

// UserCategorized reports whether a user set this transaction's category.
func (t *Transaction) UserCategorized() bool {
	return t.CategorySource == CategorySourceUser && t.CategoryID != nil
}

// Deleted reports whether the transaction is soft-deleted.
func (t *Transaction) Deleted() bool {
	return t.DeletedAt != nil
}
