package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caixahub/caixahub/internal/common"
	"github.com/caixahub/caixahub/internal/model"
	"github.com/google/uuid"
)

const accountColumns = `id, company_id, name, item_id, external_id, status, last_sync_at, created_at`

// CreateAccount persists a new account. An empty ID is assigned automatically.
func (s *SQLiteStorage) CreateAccount(ctx context.Context, account *model.Account) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateAccount(account); err != nil {
		return err
	}

	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	if account.Status == "" {
		account.Status = model.StatusActive
	}

	var lastSync any
	if t, ok := account.Cursor.Time(); ok {
		lastSync = t
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (id, company_id, name, item_id, external_id, status, last_sync_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		account.ID, account.CompanyID, account.Name, account.ItemID,
		account.ExternalID, string(account.Status), lastSync)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return fmt.Errorf("account with external id %q: %w", account.ExternalID, common.ErrDuplicateEntry)
		}
		return fmt.Errorf("failed to create account: %w", err)
	}

	return nil
}

// GetAccount retrieves an account by internal ID.
func (s *SQLiteStorage) GetAccount(ctx context.Context, id string) (*model.Account, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
	return scanAccount(row)
}

// GetAccountByExternalID retrieves an account by its aggregator identifier.
func (s *SQLiteStorage) GetAccountByExternalID(ctx context.Context, externalID string) (*model.Account, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(externalID, "externalID"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE external_id = ?`, externalID)
	return scanAccount(row)
}

// ListAccounts returns all accounts that are not deleted.
func (s *SQLiteStorage) ListAccounts(ctx context.Context) ([]model.Account, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.queryAccounts(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE status != ? ORDER BY created_at`,
		string(model.StatusDeleted))
}

// ListAccountsByItem returns all accounts belonging to one aggregator item.
func (s *SQLiteStorage) ListAccountsByItem(ctx context.Context, itemID string) ([]model.Account, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(itemID, "itemID"); err != nil {
		return nil, err
	}
	return s.queryAccounts(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE item_id = ? AND status != ? ORDER BY created_at`,
		itemID, string(model.StatusDeleted))
}

// ListSyncableAccounts returns linked, active accounts eligible for sync.
func (s *SQLiteStorage) ListSyncableAccounts(ctx context.Context) ([]model.Account, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.queryAccounts(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE status = ? AND external_id != '' ORDER BY created_at`,
		string(model.StatusActive))
}

// LinkAccount records the aggregator identifiers after a successful link
// handshake and activates the account.
func (s *SQLiteStorage) LinkAccount(ctx context.Context, id, itemID, externalID string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}
	if err := validateString(externalID, "externalID"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE accounts SET item_id = ?, external_id = ?, status = ? WHERE id = ?`,
		itemID, externalID, string(model.StatusActive), id)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return fmt.Errorf("external id %q already linked: %w", externalID, common.ErrDuplicateEntry)
		}
		return fmt.Errorf("failed to link account: %w", err)
	}

	return requireRowAffected(result, id)
}

// UpdateAccountStatus transitions an account to the given status.
func (s *SQLiteStorage) UpdateAccountStatus(ctx context.Context, id string, status model.AccountStatus) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE accounts SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("failed to update account status: %w", err)
	}

	return requireRowAffected(result, id)
}

// AdvanceCursor moves the sync watermark forward. Only the sync service may
// call this, and only after a confirmed persist.
func (s *SQLiteStorage) AdvanceCursor(ctx context.Context, accountID string, syncedAt time.Time) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(accountID, "accountID"); err != nil {
		return err
	}
	if syncedAt.IsZero() {
		return fmt.Errorf("syncedAt cannot be zero")
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE accounts SET last_sync_at = ? WHERE id = ?`, syncedAt.UTC(), accountID)
	if err != nil {
		return fmt.Errorf("failed to advance cursor: %w", err)
	}

	return requireRowAffected(result, accountID)
}

// ResetCursor clears the sync watermark, forcing a full backfill on the next sync.
func (s *SQLiteStorage) ResetCursor(ctx context.Context, accountID string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(accountID, "accountID"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE accounts SET last_sync_at = NULL WHERE id = ?`, accountID)
	if err != nil {
		return fmt.Errorf("failed to reset cursor: %w", err)
	}

	return requireRowAffected(result, accountID)
}

func (s *SQLiteStorage) queryAccounts(ctx context.Context, query string, args ...any) ([]model.Account, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var accounts []model.Account
	for rows.Next() {
		account, err := scanAccountRow(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *account)
	}

	return accounts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccountRow(row rowScanner) (*model.Account, error) {
	var account model.Account
	var status string
	var lastSync sql.NullTime

	err := row.Scan(
		&account.ID,
		&account.CompanyID,
		&account.Name,
		&account.ItemID,
		&account.ExternalID,
		&status,
		&lastSync,
		&account.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan account: %w", err)
	}

	account.Status = model.AccountStatus(status)
	if lastSync.Valid {
		account.Cursor = model.SyncedAt(lastSync.Time)
	} else {
		account.Cursor = model.NeverSynced()
	}

	return &account, nil
}

func scanAccount(row *sql.Row) (*model.Account, error) {
	account, err := scanAccountRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("account: %w", common.ErrNotFound)
		}
		return nil, err
	}
	return account, nil
}

func requireRowAffected(result sql.Result, id string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("account %s: %w", id, common.ErrNotFound)
	}
	return nil
}

func validateAccount(account *model.Account) error {
	if account == nil {
		return fmt.Errorf("account cannot be nil")
	}
	if account.CompanyID == "" {
		return fmt.Errorf("account company id cannot be empty")
	}
	if account.Name == "" {
		return fmt.Errorf("account name cannot be empty")
	}
	return nil
}
