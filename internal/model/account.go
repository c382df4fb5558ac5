// Package model defines the core domain types shared across the application.
package model

import "time"

// AccountStatus represents the lifecycle state of a linked bank account.
type AccountStatus string

const (
	// StatusActive means the account is linked and eligible for sync.
	StatusActive AccountStatus = "active"
	// StatusWaitingUserAction means provider credentials expired and the
	// user must re-authenticate before syncing can resume.
	StatusWaitingUserAction AccountStatus = "waiting_user_action"
	// StatusDeleted means the account was unlinked by the user.
	StatusDeleted AccountStatus = "deleted"
	// StatusError means the provider reported an unrecoverable problem.
	StatusError AccountStatus = "error"
)

// SyncCursor is the per-account watermark that determines the next fetch
// window. An account that has never completed a sync carries the NeverSynced
// variant, which forces a full backfill.
type SyncCursor struct {
	at     time.Time
	synced bool
}

// NeverSynced returns a cursor indicating no successful sync has happened.
func NeverSynced() SyncCursor {
	return SyncCursor{}
}

// SyncedAt returns a cursor positioned at the given time.
func SyncedAt(t time.Time) SyncCursor {
	return SyncCursor{at: t, synced: true}
}

// Time reports the cursor position. ok is false for the NeverSynced variant.
func (c SyncCursor) Time() (t time.Time, ok bool) {
	return c.at, c.synced
}

// Company is the tenant that owns a set of bank accounts.
type Company struct {
	CreatedAt time.Time
	ID        string
	Name      string
}

// Account represents a bank account connected through the aggregator.
type Account struct {
	CreatedAt  time.Time
	Cursor     SyncCursor
	ID         string
	CompanyID  string
	Name       string
	ItemID     string // aggregator connection (item) identifier
	ExternalID string // aggregator account identifier; empty until linked
	Status     AccountStatus
}

// Syncable reports whether the account meets the sync preconditions.
func (a *Account) Syncable() bool {
	return a.ExternalID != "" && a.Status == StatusActive
}
