package model

import (
	"testing"
	"time"
)

func TestSyncCursor(t *testing.T) {
	if _, ok := NeverSynced().Time(); ok {
		t.Error("NeverSynced cursor must report no position")
	}

	at := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	got, ok := SyncedAt(at).Time()
	if !ok {
		t.Fatal("SyncedAt cursor must report a position")
	}
	if !got.Equal(at) {
		t.Errorf("Expected cursor at %v, got %v", at, got)
	}

	// The zero value behaves like NeverSynced
	var zero SyncCursor
	if _, ok := zero.Time(); ok {
		t.Error("Zero cursor must behave like NeverSynced")
	}
}

func TestAccount_Syncable(t *testing.T) {
	tests := []struct {
		name    string
		account Account
		want    bool
	}{
		{
			name:    "linked and active",
			account: Account{ExternalID: "ext-1", Status: StatusActive},
			want:    true,
		},
		{
			name:    "never linked",
			account: Account{Status: StatusActive},
			want:    false,
		},
		{
			name:    "waiting for user action",
			account: Account{ExternalID: "ext-1", Status: StatusWaitingUserAction},
			want:    false,
		},
		{
			name:    "deleted",
			account: Account{ExternalID: "ext-1", Status: StatusDeleted},
			want:    false,
		},
		{
			name:    "error state",
			account: Account{ExternalID: "ext-1", Status: StatusError},
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.account.Syncable(); got != tt.want {
				t.Errorf("Syncable() = %v, want %v", got, tt.want)
			}
		})
	}
}
