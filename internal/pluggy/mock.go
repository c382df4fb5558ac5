package pluggy

import (
	"context"
	"time"

	"github.com/caixahub/caixahub/internal/model"
	"github.com/caixahub/caixahub/internal/service"
)

// MockClient is a test double for the BankClient interface.
type MockClient struct {
	AccountsFunc     func(ctx context.Context, itemID string) ([]service.BankAccount, error)
	TransactionsFunc func(ctx context.Context, accountExternalID string, startDate, endDate time.Time) ([]model.Transaction, error)

	// Call recording
	TransactionCalls []TransactionCall
}

// TransactionCall records one GetTransactions invocation.
type TransactionCall struct {
	StartDate         time.Time
	EndDate           time.Time
	AccountExternalID string
}

// GetAccounts implements service.BankClient.
func (m *MockClient) GetAccounts(ctx context.Context, itemID string) ([]service.BankAccount, error) {
	if m.AccountsFunc != nil {
		return m.AccountsFunc(ctx, itemID)
	}
	return nil, nil
}

// GetTransactions implements service.BankClient.
func (m *MockClient) GetTransactions(ctx context.Context, accountExternalID string, startDate, endDate time.Time) ([]model.Transaction, error) {
	m.TransactionCalls = append(m.TransactionCalls, TransactionCall{
		AccountExternalID: accountExternalID,
		StartDate:         startDate,
		EndDate:           endDate,
	})
	if m.TransactionsFunc != nil {
		return m.TransactionsFunc(ctx, accountExternalID, startDate, endDate)
	}
	return nil, nil
}

// Ensure MockClient implements the BankClient interface.
var _ service.BankClient = (*MockClient)(nil)
