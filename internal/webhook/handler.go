package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/caixahub/caixahub/internal/common"
	"github.com/caixahub/caixahub/internal/service"
	"github.com/google/uuid"
)

// maxPayloadBytes caps webhook bodies; aggregator events are small.
const maxPayloadBytes = 1 << 20

// defaultSyncTimeout bounds the async sync triggered by an event.
const defaultSyncTimeout = 5 * time.Minute

// Syncer triggers a sync cycle for one account.
type Syncer interface {
	Sync(ctx context.Context, accountID string) (*service.SyncResult, error)
}

// Event is the payload the aggregator posts on data changes. Deletion
// events carry the external ids of the removed transactions.
type Event struct {
	Event          string   `json:"event"`
	ItemID         string   `json:"itemId"`
	AccountID      string   `json:"accountId"`
	TransactionIDs []string `json:"transactionIds"`
}

// handledEvents are the event types that trigger a resync. Everything else
// is acknowledged and ignored.
var handledEvents = map[string]bool{
	"transactions/created": true,
	"transactions/updated": true,
	"transactions/deleted": true,
	"item/updated":         true,
}

// Handler validates inbound webhooks and dispatches account syncs
// asynchronously. Deletion events are applied inline (a resync cannot
// remove rows); everything else acknowledges quickly and syncs in the
// background.
type Handler struct {
	validator *Validator
	store     service.Storage
	syncer    Syncer
	logger    *slog.Logger
	timeout   time.Duration

	// dispatch is replaceable in tests; the default runs syncAccount in a
	// goroutine.
	dispatch func(accountID string)
}

// NewHandler creates a webhook handler.
func NewHandler(validator *Validator, store service.Storage, syncer Syncer) *Handler {
	h := &Handler{
		validator: validator,
		store:     store,
		syncer:    syncer,
		logger:    slog.Default().With("component", "webhook"),
		timeout:   defaultSyncTimeout,
	}
	h.dispatch = func(accountID string) {
		go h.syncAccount(accountID)
	}
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	deliveryID := uuid.NewString()
	logger := h.logger.With("delivery_id", deliveryID)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPayloadBytes))
	if err != nil {
		logger.Warn("Failed to read webhook body", "error", err)
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	if err := h.validator.Validate(body, r.Header.Get(SignatureHeader)); err != nil {
		logger.Warn("Rejected webhook", "error", err)
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	var event Event
	if err := json.Unmarshal(body, &event); err != nil {
		logger.Warn("Malformed webhook payload", "error", err)
		http.Error(w, "malformed payload", http.StatusBadRequest)
		return
	}

	logger.Info("Received webhook",
		"event", event.Event,
		"item_id", event.ItemID,
		"account_id", event.AccountID)

	switch {
	case event.Event == "transactions/deleted" && len(event.TransactionIDs) > 0:
		if err := h.deleteTransactions(r.Context(), event); err != nil {
			// Still acknowledged: the deletion is retried on redelivery
			logger.Warn("Could not apply transaction deletions", "error", err)
		}
	case handledEvents[event.Event]:
		if err := h.dispatchEvent(r.Context(), event); err != nil {
			// Still acknowledged: the scheduled sync will catch up
			logger.Warn("Could not dispatch sync for webhook", "error", err)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(map[string]string{"deliveryId": deliveryID})
}

// dispatchEvent resolves the accounts an event refers to and hands each one
// to the async dispatcher.
func (h *Handler) dispatchEvent(ctx context.Context, event Event) error {
	if event.AccountID != "" {
		account, err := h.store.GetAccountByExternalID(ctx, event.AccountID)
		if err != nil {
			if errors.Is(err, common.ErrNotFound) {
				return fmt.Errorf("no account linked to external id %s", event.AccountID)
			}
			return err
		}
		h.dispatch(account.ID)
		return nil
	}

	if event.ItemID != "" {
		accounts, err := h.store.ListAccountsByItem(ctx, event.ItemID)
		if err != nil {
			return err
		}
		if len(accounts) == 0 {
			return fmt.Errorf("no accounts linked to item %s", event.ItemID)
		}
		for _, account := range accounts {
			h.dispatch(account.ID)
		}
		return nil
	}

	return fmt.Errorf("event carries neither account nor item id")
}

// deleteTransactions soft-deletes the transactions a deletion event names.
// Deletion events without explicit transaction ids fall through to a resync.
func (h *Handler) deleteTransactions(ctx context.Context, event Event) error {
	if event.AccountID == "" {
		return fmt.Errorf("deletion event carries no account id")
	}

	account, err := h.store.GetAccountByExternalID(ctx, event.AccountID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return fmt.Errorf("no account linked to external id %s", event.AccountID)
		}
		return err
	}

	for _, externalID := range event.TransactionIDs {
		txn, err := h.store.GetTransactionByExternalID(ctx, account.ID, externalID)
		if errors.Is(err, common.ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		if err := h.store.SoftDeleteTransaction(ctx, txn.ID); err != nil && !errors.Is(err, common.ErrNotFound) {
			return err
		}
		h.logger.Info("Transaction deleted by aggregator",
			"account_id", account.ID, "external_id", externalID)
	}
	return nil
}

func (h *Handler) syncAccount(accountID string) {
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	result, err := h.syncer.Sync(ctx, accountID)
	if err != nil {
		h.logger.Error("Webhook-triggered sync failed",
			"account_id", accountID, "error", err)
		return
	}

	h.logger.Info("Webhook-triggered sync complete",
		"account_id", accountID,
		"created", result.Created,
		"updated", result.Updated)
}
