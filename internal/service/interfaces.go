// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/caixahub/caixahub/internal/model"
)

// TransactionFilter defines filtering options for transaction queries.
type TransactionFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
	AccountID string
	Limit     int
	Offset    int
}

// UpsertStats reports the outcome of an idempotent transaction upsert.
type UpsertStats struct {
	Created int
	Updated int
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	// Company operations
	CreateCompany(ctx context.Context, name string) (*model.Company, error)
	GetCompany(ctx context.Context, id string) (*model.Company, error)
	ListCompanies(ctx context.Context) ([]model.Company, error)

	// Account operations
	CreateAccount(ctx context.Context, account *model.Account) error
	GetAccount(ctx context.Context, id string) (*model.Account, error)
	GetAccountByExternalID(ctx context.Context, externalID string) (*model.Account, error)
	ListAccounts(ctx context.Context) ([]model.Account, error)
	ListAccountsByItem(ctx context.Context, itemID string) ([]model.Account, error)
	ListSyncableAccounts(ctx context.Context) ([]model.Account, error)
	LinkAccount(ctx context.Context, id, itemID, externalID string) error
	UpdateAccountStatus(ctx context.Context, id string, status model.AccountStatus) error

	// Cursor operations. AdvanceCursor must only be called by the sync
	// service after a confirmed persist; ResetCursor forces a full backfill.
	AdvanceCursor(ctx context.Context, accountID string, syncedAt time.Time) error
	ResetCursor(ctx context.Context, accountID string) error

	// Transaction operations
	UpsertTransactions(ctx context.Context, transactions []model.Transaction) (UpsertStats, error)
	GetTransactionByExternalID(ctx context.Context, accountID, externalID string) (*model.Transaction, error)
	GetTransactions(ctx context.Context, filter TransactionFilter) ([]model.Transaction, error)
	SetTransactionCategory(ctx context.Context, id string, categoryID int, source model.CategorySource) error
	SoftDeleteTransaction(ctx context.Context, id string) error
	GetCashFlow(ctx context.Context, start, end time.Time) (*CashFlowSummary, error)

	// Category operations
	GetCategories(ctx context.Context) ([]model.Category, error)
	GetCategoryByName(ctx context.Context, name string) (*model.Category, error)
	GetCategoryByID(ctx context.Context, id int) (*model.Category, error)
	CreateCategory(ctx context.Context, name, description string, categoryType model.CategoryType) (*model.Category, error)

	// Merchant rule operations
	GetMerchantRule(ctx context.Context, merchant string) (*model.MerchantRule, error)
	SaveMerchantRule(ctx context.Context, rule *model.MerchantRule) error
	ListMerchantRules(ctx context.Context) ([]model.MerchantRule, error)
	IncrementMerchantRuleUse(ctx context.Context, merchant string) error

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// BankAccount is an account as reported by the aggregator.
type BankAccount struct {
	ExternalID string
	Name       string
	Type       string
	Currency   string
	Balance    float64
}

// BankClient fetches accounts and transactions from the aggregator.
type BankClient interface {
	GetAccounts(ctx context.Context, itemID string) ([]BankAccount, error)
	GetTransactions(ctx context.Context, accountExternalID string, startDate, endDate time.Time) ([]model.Transaction, error)
}

// SyncResult shows the outcome of one sync cycle.
type SyncResult struct {
	StartedAt time.Time
	Errors    []error
	Created   int
	Updated   int
	Accounts  int
}

// ReportWriter writes a cash flow report to an external destination.
type ReportWriter interface {
	Write(ctx context.Context, summary *CashFlowSummary) error
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// DateRange represents a time period with start and end dates.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// CategorySummary contains aggregated statistics for a category.
type CategorySummary struct {
	Count  int
	Amount float64
}

// CashFlowSummary contains income, expense, and net flow calculations.
type CashFlowSummary struct {
	IncomeByCategory   map[string]CategorySummary
	ExpensesByCategory map[string]CategorySummary
	DateRange          DateRange
	TotalIncome        float64
	TotalExpenses      float64
	NetCashFlow        float64
}
