package commands

import (
	"context"

	"github.com/dshills/ballotdesk/internal/resource"
)

// Factory builds commands bound to one store and, optionally, one mirror.
type Factory struct {
	Store  resource.Store
	Mirror *Mirror
}

// ImportVotingConfig builds an import of cfg.
func (f Factory) ImportVotingConfig(cfg resource.VotingConfig) *ImportVotingConfig {
	return NewImportVotingConfig(f.Store, cfg, f.Mirror.VotingConfigSync())
}

// CreateGame builds the creation of a game.
func (f Factory) CreateGame(in resource.GameInput) *SaveGame {
	return NewSaveGame(f.Store, nil, in, f.Mirror.GameSync())
}

// UpdateGame fetches the current value of the game and builds an update.
func (f Factory) UpdateGame(ctx context.Context, id string, in resource.GameInput) (*SaveGame, error) {
	previous, err := f.Store.GetGame(ctx, id)
	if err != nil {
		return nil, err
	}
	return NewSaveGame(f.Store, &previous, in, f.Mirror.GameSync()), nil
}

// AddNomination builds a nomination.
func (f Factory) AddNomination(in resource.NominationInput) *AddNomination {
	return NewAddNomination(f.Store, in, f.Mirror.NominationSync())
}

// RemoveNomination builds the removal of a nomination.
func (f Factory) RemoveNomination(id string) *RemoveNomination {
	return NewRemoveNomination(f.Store, id, f.Mirror.NominationSync())
}

// PatchGame fetches the game and builds an update that starts from its
// current fields, changed by patch.
func (f Factory) PatchGame(ctx context.Context, id string, patch func(in *resource.GameInput)) (*SaveGame, error) {
	previous, err := f.Store.GetGame(ctx, id)
	if err != nil {
		return nil, err
	}
	in := previous.Input()
	patch(&in)
	return NewSaveGame(f.Store, &previous, in, f.Mirror.GameSync()), nil
}
