package memstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/ballotdesk/internal/resource"
	"github.com/dshills/ballotdesk/internal/resource/resourcetest"
)

func TestStore(t *testing.T) {
	resourcetest.RunStoreTests(t, func(t *testing.T) resource.Store { return New() })
}

func TestGetVotingConfigIsDetached(t *testing.T) {
	ctx := context.Background()
	store := New()

	_, err := store.ImportVotingConfig(ctx, resource.VotingConfig{
		Code:       "main",
		Title:      "Main",
		Categories: []resource.Category{{Key: "goty"}},
	}, false)
	require.NoError(t, err)

	got, err := store.GetVotingConfig(ctx, "main")
	require.NoError(t, err)
	got.Categories[0].Key = "changed"

	again, err := store.GetVotingConfig(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, "goty", again.Categories[0].Key)
}

func TestCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().CreateGame(ctx, resource.GameInput{Title: "x"})
	assert.ErrorIs(t, err, context.Canceled)
}
