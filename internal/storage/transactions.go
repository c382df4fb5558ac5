package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/caixahub/caixahub/internal/common"
	"github.com/caixahub/caixahub/internal/model"
	"github.com/caixahub/caixahub/internal/service"
	"github.com/google/uuid"
)

const transactionColumns = `id, account_id, external_id, date, amount, description,
	merchant_name, provider_category, category_id, category_source, hash,
	deleted_at, created_at, updated_at`

// UpsertTransactions idempotently persists a batch of transactions. Incoming
// rows are matched by (account_id, external_id): new rows are inserted,
// existing rows have only their mutable fields updated. Category assignments
// made by users are never touched.
func (s *SQLiteStorage) UpsertTransactions(ctx context.Context, transactions []model.Transaction) (service.UpsertStats, error) {
	var stats service.UpsertStats

	if err := validateContext(ctx); err != nil {
		return stats, err
	}
	if err := validateTransactions(transactions); err != nil {
		return stats, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return stats, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i := range transactions {
		txn := &transactions[i]
		if txn.Hash == "" {
			txn.Hash = txn.GenerateHash()
		}

		var existingID string
		var existing model.Transaction
		err := tx.QueryRowContext(ctx, `
			SELECT id, amount, description, merchant_name, provider_category
			FROM transactions WHERE account_id = ? AND external_id = ?`,
			txn.AccountID, txn.ExternalID,
		).Scan(&existingID, &existing.Amount, &existing.Description,
			&existing.MerchantName, &existing.ProviderCategory)

		switch {
		case errors.Is(err, sql.ErrNoRows):
			if txn.ID == "" {
				txn.ID = uuid.NewString()
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO transactions (
					id, account_id, external_id, date, amount, description,
					merchant_name, provider_category, category_id, category_source, hash
				) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				txn.ID, txn.AccountID, txn.ExternalID, txn.Date.UTC(), txn.Amount,
				txn.Description, txn.MerchantName, txn.ProviderCategory,
				txn.CategoryID, nullableString(string(txn.CategorySource)), txn.Hash,
			); err != nil {
				return stats, fmt.Errorf("failed to insert transaction %s: %w", txn.ExternalID, err)
			}
			stats.Created++

		case err != nil:
			return stats, fmt.Errorf("failed to look up transaction %s: %w", txn.ExternalID, err)

		default:
			txn.ID = existingID
			if existing.Amount == txn.Amount &&
				existing.Description == txn.Description &&
				existing.MerchantName == txn.MerchantName &&
				existing.ProviderCategory == txn.ProviderCategory {
				continue
			}
			if _, err := tx.ExecContext(ctx, `
				UPDATE transactions
				SET amount = ?, description = ?, merchant_name = ?,
					provider_category = ?, updated_at = CURRENT_TIMESTAMP
				WHERE id = ?`,
				txn.Amount, txn.Description, txn.MerchantName,
				txn.ProviderCategory, existingID,
			); err != nil {
				return stats, fmt.Errorf("failed to update transaction %s: %w", txn.ExternalID, err)
			}
			stats.Updated++
		}
	}

	if err := tx.Commit(); err != nil {
		return stats, fmt.Errorf("failed to commit upsert: %w", err)
	}

	return stats, nil
}

// GetTransactionByExternalID retrieves a transaction by its dedup key,
// including soft-deleted rows so re-ingestion can't resurrect them.
func (s *SQLiteStorage) GetTransactionByExternalID(ctx context.Context, accountID, externalID string) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(accountID, "accountID"); err != nil {
		return nil, err
	}
	if err := validateString(externalID, "externalID"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions WHERE account_id = ? AND external_id = ?`,
		accountID, externalID)

	txn, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("transaction %s/%s: %w", accountID, externalID, common.ErrNotFound)
	}
	return txn, err
}

// GetTransactions returns active (not soft-deleted) transactions matching the filter.
func (s *SQLiteStorage) GetTransactions(ctx context.Context, filter service.TransactionFilter) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE deleted_at IS NULL`
	args := []any{}

	if filter.AccountID != "" {
		query += " AND account_id = ?"
		args = append(args, filter.AccountID)
	}
	if filter.StartDate != nil {
		query += " AND date >= ?"
		args = append(args, filter.StartDate.UTC())
	}
	if filter.EndDate != nil {
		query += " AND date <= ?"
		args = append(args, filter.EndDate.UTC())
	}

	query += " ORDER BY date DESC"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var transactions []model.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, *txn)
	}

	return transactions, rows.Err()
}

// SetTransactionCategory assigns a category. User assignments overwrite
// anything; provider assignments never overwrite a user's choice.
func (s *SQLiteStorage) SetTransactionCategory(ctx context.Context, id string, categoryID int, source model.CategorySource) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	query := `UPDATE transactions
		SET category_id = ?, category_source = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`
	args := []any{categoryID, string(source), id}

	if source != model.CategorySourceUser {
		query += ` AND (category_source IS NULL OR category_source != ?)`
		args = append(args, string(model.CategorySourceUser))
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to set transaction category: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 && source == model.CategorySourceUser {
		return fmt.Errorf("transaction %s: %w", id, common.ErrNotFound)
	}

	return nil
}

// SoftDeleteTransaction marks a transaction as deleted without removing the
// row, so the dedup key keeps blocking re-ingestion.
func (s *SQLiteStorage) SoftDeleteTransaction(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE transactions
		SET deleted_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND deleted_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("failed to soft delete transaction: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("transaction %s: %w", id, common.ErrNotFound)
	}

	return nil
}

// GetCashFlow aggregates income and expenses by category over a date range.
// Positive amounts are income, negative amounts are expenses.
func (s *SQLiteStorage) GetCashFlow(ctx context.Context, start, end time.Time) (*service.CashFlowSummary, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if end.Before(start) {
		return nil, fmt.Errorf("end date %v is before start date %v", end, start)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT COALESCE(c.name, 'Uncategorized'), t.amount
		FROM transactions t
		LEFT JOIN categories c ON t.category_id = c.id
		WHERE t.deleted_at IS NULL AND t.date >= ? AND t.date <= ?`,
		start.UTC(), end.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query cash flow: %w", err)
	}
	defer func() { _ = rows.Close() }()

	summary := &service.CashFlowSummary{
		DateRange:          service.DateRange{Start: start, End: end},
		IncomeByCategory:   make(map[string]service.CategorySummary),
		ExpensesByCategory: make(map[string]service.CategorySummary),
	}

	for rows.Next() {
		var category string
		var amount float64
		if err := rows.Scan(&category, &amount); err != nil {
			return nil, fmt.Errorf("failed to scan cash flow row: %w", err)
		}

		if amount >= 0 {
			entry := summary.IncomeByCategory[category]
			entry.Count++
			entry.Amount += amount
			summary.IncomeByCategory[category] = entry
			summary.TotalIncome += amount
		} else {
			entry := summary.ExpensesByCategory[category]
			entry.Count++
			entry.Amount += -amount
			summary.ExpensesByCategory[category] = entry
			summary.TotalExpenses += -amount
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cash flow rows: %w", err)
	}

	summary.NetCashFlow = summary.TotalIncome - summary.TotalExpenses

	return summary, nil
}

func scanTransaction(row rowScanner) (*model.Transaction, error) {
	var txn model.Transaction
	var merchantName, providerCategory, categorySource sql.NullString
	var categoryID sql.NullInt64
	var deletedAt sql.NullTime

	err := row.Scan(
		&txn.ID,
		&txn.AccountID,
		&txn.ExternalID,
		&txn.Date,
		&txn.Amount,
		&txn.Description,
		&merchantName,
		&providerCategory,
		&categoryID,
		&categorySource,
		&txn.Hash,
		&deletedAt,
		&txn.CreatedAt,
		&txn.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan transaction: %w", err)
	}

	if merchantName.Valid {
		txn.MerchantName = merchantName.String
	}
	if providerCategory.Valid {
		txn.ProviderCategory = providerCategory.String
	}
	if categoryID.Valid {
		id := int(categoryID.Int64)
		txn.CategoryID = &id
	}
	if categorySource.Valid {
		txn.CategorySource = model.CategorySource(categorySource.String)
	}
	if deletedAt.Valid {
		t := deletedAt.Time
		txn.DeletedAt = &t
	}

	return &txn, nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func validateTransactions(transactions []model.Transaction) error {
	for i := range transactions {
		txn := &transactions[i]
		if txn.AccountID == "" {
			return fmt.Errorf("transaction %d: account id cannot be empty", i)
		}
		if txn.ExternalID == "" {
			return fmt.Errorf("transaction %d: external id cannot be empty", i)
		}
		if txn.Date.IsZero() {
			return fmt.Errorf("transaction %d: date cannot be zero", i)
		}
	}
	return nil
}
