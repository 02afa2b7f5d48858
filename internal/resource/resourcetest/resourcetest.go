// Package resourcetest holds a conformance suite shared by the resource
// store implementations.
package resourcetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/ballotdesk/internal/resource"
)

// RunStoreTests exercises a store created by newStore. Each subtest gets a
// fresh store.
func RunStoreTests(t *testing.T, newStore func(t *testing.T) resource.Store) {
	t.Run("games", func(t *testing.T) { testGames(t, newStore(t)) })
	t.Run("voting configs", func(t *testing.T) { testVotingConfigs(t, newStore(t)) })
	t.Run("nominations", func(t *testing.T) { testNominations(t, newStore(t)) })
	t.Run("delete game cascades", func(t *testing.T) { testDeleteGameCascades(t, newStore(t)) })
	t.Run("explicit ids", func(t *testing.T) { testExplicitIDs(t, newStore(t)) })
}

func testGames(t *testing.T, store resource.Store) {
	ctx := context.Background()

	_, err := store.GetGame(ctx, "missing")
	assert.ErrorIs(t, err, resource.ErrNotFound)

	_, err = store.CreateGame(ctx, resource.GameInput{})
	assert.ErrorIs(t, err, resource.ErrValidation)

	created, err := store.CreateGame(ctx, resource.GameInput{Title: "Spring Jam", Description: "48h"})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Spring Jam", created.Title)
	assert.Equal(t, resource.GameDraft, created.Status)
	assert.False(t, created.CreatedAt.IsZero())

	got, err := store.GetGame(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Title, got.Title)
	assert.Equal(t, created.Description, got.Description)

	updated, err := store.UpdateGame(ctx, created.ID, resource.GameInput{Title: "Summer Jam", Status: resource.GameOpen})
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "Summer Jam", updated.Title)
	assert.Equal(t, resource.GameOpen, updated.Status)
	assert.Empty(t, updated.Description)

	_, err = store.UpdateGame(ctx, "missing", resource.GameInput{Title: "x"})
	assert.ErrorIs(t, err, resource.ErrNotFound)

	second, err := store.CreateGame(ctx, resource.GameInput{Title: "Autumn Jam"})
	require.NoError(t, err)

	games, err := store.ListGames(ctx)
	require.NoError(t, err)
	require.Len(t, games, 2)
	ids := []string{games[0].ID, games[1].ID}
	assert.ElementsMatch(t, []string{created.ID, second.ID}, ids)

	require.NoError(t, store.DeleteGame(ctx, created.ID))
	_, err = store.GetGame(ctx, created.ID)
	assert.ErrorIs(t, err, resource.ErrNotFound)
	assert.ErrorIs(t, store.DeleteGame(ctx, created.ID), resource.ErrNotFound)
}

func testVotingConfigs(t *testing.T, store resource.Store) {
	ctx := context.Background()

	_, err := store.GetVotingConfig(ctx, "main")
	assert.ErrorIs(t, err, resource.ErrNotFound)

	old := resource.VotingConfig{
		Code:  "main",
		Title: "Old",
		Categories: []resource.Category{
			{Key: "goty", Title: "Game of the Year", MaxNominations: 5},
		},
	}
	imported, err := store.ImportVotingConfig(ctx, old, false)
	require.NoError(t, err)
	assert.Equal(t, "Old", imported.Title)

	_, err = store.ImportVotingConfig(ctx, resource.VotingConfig{Code: "main", Title: "New"}, false)
	assert.ErrorIs(t, err, resource.ErrConflict)

	replaced, err := store.ImportVotingConfig(ctx, resource.VotingConfig{Code: "main", Title: "New"}, true)
	require.NoError(t, err)
	assert.Equal(t, "New", replaced.Title)

	got, err := store.GetVotingConfig(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, "New", got.Title)
	assert.Empty(t, got.Categories)

	_, err = store.ImportVotingConfig(ctx, old, true)
	require.NoError(t, err)
	got, err = store.GetVotingConfig(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, old.Categories, got.Categories)

	_, err = store.ImportVotingConfig(ctx, resource.VotingConfig{Code: "bad"}, true)
	assert.ErrorIs(t, err, resource.ErrValidation)

	require.NoError(t, store.DeleteVotingConfig(ctx, "main"))
	_, err = store.GetVotingConfig(ctx, "main")
	assert.ErrorIs(t, err, resource.ErrNotFound)
	assert.ErrorIs(t, store.DeleteVotingConfig(ctx, "main"), resource.ErrNotFound)
}

func testNominations(t *testing.T, store resource.Store) {
	ctx := context.Background()

	game, err := store.CreateGame(ctx, resource.GameInput{Title: "Jam"})
	require.NoError(t, err)

	_, err = store.CreateNomination(ctx, resource.NominationInput{GameID: game.ID, Category: "art"})
	assert.ErrorIs(t, err, resource.ErrValidation)

	_, err = store.CreateNomination(ctx, resource.NominationInput{GameID: "missing", Category: "art", Nominee: "Team A"})
	assert.ErrorIs(t, err, resource.ErrValidation)

	a, err := store.CreateNomination(ctx, resource.NominationInput{GameID: game.ID, Category: "art", Nominee: "Team A"})
	require.NoError(t, err)
	assert.NotEmpty(t, a.ID)

	_, err = store.CreateNomination(ctx, resource.NominationInput{GameID: game.ID, Category: "art", Nominee: "Team A"})
	assert.ErrorIs(t, err, resource.ErrConflict)

	b, err := store.CreateNomination(ctx, resource.NominationInput{GameID: game.ID, Category: "audio", Nominee: "Team A"})
	require.NoError(t, err)

	got, err := store.GetNomination(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.Input(), got.Input())

	list, err := store.ListNominations(ctx, game.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.ElementsMatch(t, []string{a.ID, b.ID}, []string{list[0].ID, list[1].ID})

	_, err = store.ListNominations(ctx, "missing")
	assert.ErrorIs(t, err, resource.ErrNotFound)

	require.NoError(t, store.DeleteNomination(ctx, a.ID))
	_, err = store.GetNomination(ctx, a.ID)
	assert.ErrorIs(t, err, resource.ErrNotFound)
	assert.ErrorIs(t, store.DeleteNomination(ctx, a.ID), resource.ErrNotFound)
}

func testDeleteGameCascades(t *testing.T, store resource.Store) {
	ctx := context.Background()

	game, err := store.CreateGame(ctx, resource.GameInput{Title: "Jam"})
	require.NoError(t, err)
	n, err := store.CreateNomination(ctx, resource.NominationInput{GameID: game.ID, Category: "art", Nominee: "Team A"})
	require.NoError(t, err)

	require.NoError(t, store.DeleteGame(ctx, game.ID))
	_, err = store.GetNomination(ctx, n.ID)
	assert.ErrorIs(t, err, resource.ErrNotFound)
}

func testExplicitIDs(t *testing.T, store resource.Store) {
	ctx := context.Background()

	game, err := store.CreateGame(ctx, resource.GameInput{ID: "game-1", Title: "Jam"})
	require.NoError(t, err)
	assert.Equal(t, "game-1", game.ID)

	_, err = store.CreateGame(ctx, resource.GameInput{ID: "game-1", Title: "Again"})
	assert.ErrorIs(t, err, resource.ErrConflict)

	n, err := store.CreateNomination(ctx, resource.NominationInput{ID: "nom-1", GameID: game.ID, Category: "art", Nominee: "Team A"})
	require.NoError(t, err)
	assert.Equal(t, "nom-1", n.ID)

	require.NoError(t, store.DeleteNomination(ctx, n.ID))
	again, err := store.CreateNomination(ctx, n.Input())
	require.NoError(t, err)
	assert.Equal(t, n.ID, again.ID)
}
