package verification

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusLifecycle(t *testing.T) {
	store := NewMemoryStatusStore()
	ctx := context.Background()

	status, err := store.Get(ctx, "did:key:zalice")
	require.NoError(t, err)
	assert.Equal(t, StatusNone, status, "absent applicant reads as NONE")

	require.NoError(t, store.MarkPending(ctx, "did:key:zalice"))
	status, _ = store.Get(ctx, "did:key:zalice")
	assert.Equal(t, StatusPending, status)

	require.NoError(t, store.MarkCompleted(ctx, "did:key:zalice"))
	status, _ = store.Get(ctx, "did:key:zalice")
	assert.Equal(t, StatusCompleted, status)
}

func TestCompletedIsTerminal(t *testing.T) {
	store := NewMemoryStatusStore()
	ctx := context.Background()

	require.NoError(t, store.MarkPending(ctx, "did:key:zalice"))
	require.NoError(t, store.MarkCompleted(ctx, "did:key:zalice"))

	// A late or replayed SIOP response must not revert the status.
	require.NoError(t, store.MarkPending(ctx, "did:key:zalice"))
	status, _ := store.Get(ctx, "did:key:zalice")
	assert.Equal(t, StatusCompleted, status)

	// Completion is idempotent.
	require.NoError(t, store.MarkCompleted(ctx, "did:key:zalice"))
	status, _ = store.Get(ctx, "did:key:zalice")
	assert.Equal(t, StatusCompleted, status)
}

func TestApplicantsAreIndependent(t *testing.T) {
	store := NewMemoryStatusStore()
	ctx := context.Background()

	require.NoError(t, store.MarkPending(ctx, "did:key:zalice"))
	require.NoError(t, store.MarkCompleted(ctx, "did:key:zbob"))

	alice, _ := store.Get(ctx, "did:key:zalice")
	bob, _ := store.Get(ctx, "did:key:zbob")
	assert.Equal(t, StatusPending, alice)
	assert.Equal(t, StatusCompleted, bob)
}
