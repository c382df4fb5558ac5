// Package sync implements incremental ingestion of bank transactions from the
// aggregator, with idempotent re-ingestion and per-account cursors.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/caixahub/caixahub/internal/categorize"
	"github.com/caixahub/caixahub/internal/common"
	"github.com/caixahub/caixahub/internal/model"
	"github.com/caixahub/caixahub/internal/service"
	"golang.org/x/sync/singleflight"
)

// DefaultBackfillDays is the fetch window for accounts that have never
// completed a sync. Matches the aggregator's default transaction history.
const DefaultBackfillDays = 90

// Option configures a Service.
type Option func(*Service)

// WithBackfillDays overrides the full-backfill window length.
func WithBackfillDays(days int) Option {
	return func(s *Service) {
		if days > 0 {
			s.backfillDays = days
		}
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// Service coordinates fetch, dedup, categorization, and cursor advancement
// for account syncs. Syncs for the same account are single-flighted:
// concurrent requests collapse into one execution and share its result.
type Service struct {
	store        service.Storage
	bank         service.BankClient
	categorizer  *categorize.Categorizer
	logger       *slog.Logger
	now          func() time.Time
	group        singleflight.Group
	backfillDays int
}

// NewService creates a sync service.
func NewService(store service.Storage, bank service.BankClient, opts ...Option) *Service {
	s := &Service{
		store:        store,
		bank:         bank,
		categorizer:  categorize.New(store),
		logger:       slog.Default().With("component", "sync"),
		now:          time.Now,
		backfillDays: DefaultBackfillDays,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sync runs one sync cycle for the account. The cursor only advances after
// the fetched transactions are durably persisted, so an interrupted sync
// re-fetches the same window next time and deduplicates by external ID.
func (s *Service) Sync(ctx context.Context, accountID string) (*service.SyncResult, error) {
	if accountID == "" {
		return nil, fmt.Errorf("account ID cannot be empty")
	}

	v, err, shared := s.group.Do(accountID, func() (any, error) {
		return s.syncOne(ctx, accountID)
	})
	if shared {
		s.logger.Debug("Joined in-flight sync", "account_id", accountID)
	}
	if err != nil {
		return nil, err
	}

	result, ok := v.(*service.SyncResult)
	if !ok {
		return nil, fmt.Errorf("unexpected sync result type %T", v)
	}
	return result, nil
}

// ForceResync clears the account's cursor and runs a full backfill.
func (s *Service) ForceResync(ctx context.Context, accountID string) (*service.SyncResult, error) {
	if accountID == "" {
		return nil, fmt.Errorf("account ID cannot be empty")
	}

	if err := s.store.ResetCursor(ctx, accountID); err != nil {
		return nil, fmt.Errorf("failed to reset cursor: %w", err)
	}

	s.logger.Info("Cursor reset, forcing full resync", "account_id", accountID)

	return s.Sync(ctx, accountID)
}

// SyncAll syncs every eligible account, isolating per-account failures.
// progress may be nil.
func (s *Service) SyncAll(ctx context.Context, progress func(done, total int)) (*service.SyncResult, error) {
	accounts, err := s.store.ListSyncableAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list syncable accounts: %w", err)
	}

	total := &service.SyncResult{StartedAt: s.now()}

	for i, account := range accounts {
		if ctx.Err() != nil {
			return total, ctx.Err()
		}

		result, syncErr := s.Sync(ctx, account.ID)
		if syncErr != nil {
			s.logger.Error("Account sync failed",
				"account_id", account.ID,
				"account", account.Name,
				"error", syncErr)
			total.Errors = append(total.Errors, fmt.Errorf("account %s: %w", account.ID, syncErr))
		} else {
			total.Created += result.Created
			total.Updated += result.Updated
			total.Accounts++
		}

		if progress != nil {
			progress(i+1, len(accounts))
		}
	}

	return total, nil
}

func (s *Service) syncOne(ctx context.Context, accountID string) (*service.SyncResult, error) {
	account, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	if !account.Syncable() {
		return nil, fmt.Errorf("%w: account %s has status %s and external id %q",
			common.ErrPrecondition, account.ID, account.Status, account.ExternalID)
	}

	start := s.now()
	windowStart, full := s.fetchWindow(account, start)

	s.logger.Info("Starting sync",
		"account_id", account.ID,
		"account", account.Name,
		"window_start", windowStart.Format("2006-01-02"),
		"full_backfill", full)

	incoming, err := s.bank.GetTransactions(ctx, account.ExternalID, windowStart, start)
	if err != nil {
		if errors.Is(err, common.ErrAuthExpired) {
			// Terminal: the user must re-link the account
			if stErr := s.store.UpdateAccountStatus(ctx, account.ID, model.StatusWaitingUserAction); stErr != nil {
				s.logger.Error("Failed to mark account as waiting for user action",
					"account_id", account.ID, "error", stErr)
			}
			return nil, fmt.Errorf("sync aborted, user re-authentication required: %w", err)
		}
		return nil, fmt.Errorf("failed to fetch transactions: %w", err)
	}

	if err := s.prepare(ctx, account, incoming); err != nil {
		return nil, err
	}

	var stats service.UpsertStats
	if len(incoming) > 0 {
		stats, err = s.store.UpsertTransactions(ctx, incoming)
		if err != nil {
			return nil, fmt.Errorf("failed to persist transactions: %w", err)
		}
	}

	// The cursor is the sole durability checkpoint: it advances to the sync
	// start time, and only after the persist above committed. Anything
	// posted during the sync falls into the next window.
	if err := s.store.AdvanceCursor(ctx, account.ID, start); err != nil {
		return nil, fmt.Errorf("transactions persisted but cursor not advanced: %w", err)
	}

	s.logger.Info("Sync complete",
		"account_id", account.ID,
		"fetched", len(incoming),
		"created", stats.Created,
		"updated", stats.Updated)

	return &service.SyncResult{
		StartedAt: start,
		Created:   stats.Created,
		Updated:   stats.Updated,
		Accounts:  1,
	}, nil
}

// fetchWindow computes the window start for an account. full reports whether
// this is a complete backfill.
func (s *Service) fetchWindow(account *model.Account, now time.Time) (time.Time, bool) {
	if cursorAt, ok := account.Cursor.Time(); ok {
		return cursorAt, false
	}
	return now.AddDate(0, 0, -s.backfillDays), true
}

// prepare stamps incoming transactions with the internal account ID and
// resolves categories for rows not seen before. Existing rows keep whatever
// category they have; the upsert never touches category fields on update.
func (s *Service) prepare(ctx context.Context, account *model.Account, incoming []model.Transaction) error {
	for i := range incoming {
		txn := &incoming[i]
		txn.AccountID = account.ID
		txn.Hash = txn.GenerateHash()

		_, err := s.store.GetTransactionByExternalID(ctx, account.ID, txn.ExternalID)
		switch {
		case err == nil:
			continue
		case !errors.Is(err, common.ErrNotFound):
			return fmt.Errorf("failed to check transaction %s: %w", txn.ExternalID, err)
		}

		categoryID, err := s.categorizer.Resolve(ctx, txn)
		if err != nil {
			return err
		}
		if categoryID != nil {
			txn.CategoryID = categoryID
			txn.CategorySource = model.CategorySourceProvider
		}
	}
	return nil
}
