package commands

import (
	"context"
	"fmt"

	"github.com/dshills/ballotdesk/internal/engine/history"
	"github.com/dshills/ballotdesk/internal/resource"
)

// SaveGame creates a game, or updates one when the value before the edit
// is known.
type SaveGame struct {
	history.Base

	service  resource.GameService
	input    resource.GameInput
	previous *resource.Game
	sync     SyncFunc[resource.Game]

	// createdID is the id returned by the last create.
	createdID string
	applied   bool
}

// NewSaveGame creates the command. previous is the game before the edit,
// or nil to create a new game. sync may be nil.
func NewSaveGame(service resource.GameService, previous *resource.Game, input resource.GameInput, sync SyncFunc[resource.Game]) *SaveGame {
	name := fmt.Sprintf("Create game %q", input.Title)
	var prev *resource.Game
	if previous != nil {
		snapshot := *previous
		prev = &snapshot
		name = fmt.Sprintf("Update game %q", previous.Title)
	}
	return &SaveGame{
		Base:     history.NewBase(history.KindSaveGame, name),
		service:  service,
		input:    input,
		previous: prev,
		sync:     sync,
	}
}

// Execute updates or creates the game.
func (c *SaveGame) Execute(ctx context.Context) error {
	return c.apply(ctx, ActionApply)
}

// Redo repeats Execute. A redo after an undone create creates the game
// again under the id it had, so later commands that refer to it still
// apply.
func (c *SaveGame) Redo(ctx context.Context) error {
	if !c.applied {
		return ErrNotApplied
	}
	return c.apply(ctx, ActionRedo)
}

func (c *SaveGame) apply(ctx context.Context, action Action) error {
	var (
		game resource.Game
		err  error
	)
	if c.previous != nil {
		game, err = c.service.UpdateGame(ctx, c.previous.ID, c.input)
	} else {
		in := c.input
		if action == ActionRedo {
			in.ID = c.createdID
		}
		game, err = c.service.CreateGame(ctx, in)
		if err == nil {
			c.createdID = game.ID
		}
	}
	if err != nil {
		return err
	}
	c.applied = true
	c.sync.call(&game, action, Meta{})
	return nil
}

// Undo restores the previous value, or deletes the created game.
func (c *SaveGame) Undo(ctx context.Context) error {
	if !c.applied {
		return ErrNotApplied
	}
	if c.previous != nil {
		game, err := c.service.UpdateGame(ctx, c.previous.ID, c.previous.Input())
		if err != nil {
			return err
		}
		c.sync.call(&game, ActionUndo, Meta{})
		return nil
	}

	if err := c.service.DeleteGame(ctx, c.createdID); err != nil {
		return err
	}
	c.sync.call(nil, ActionUndo, Meta{DeletedID: c.createdID})
	return nil
}

// GameID returns the id of the game the command edits. For a create it
// is the id of the most recent creation.
func (c *SaveGame) GameID() string {
	if c.previous != nil {
		return c.previous.ID
	}
	return c.createdID
}

// SaveGamePayload is the serialized form of the command.
type SaveGamePayload struct {
	GameID        string `json:"game_id,omitempty" yaml:"game_id,omitempty"`
	Created       bool   `json:"created" yaml:"created"`
	Title         string `json:"title" yaml:"title"`
	Status        string `json:"status,omitempty" yaml:"status,omitempty"`
	PreviousTitle string `json:"previous_title,omitempty" yaml:"previous_title,omitempty"`
}

// Serialize describes the save.
func (c *SaveGame) Serialize() any {
	p := SaveGamePayload{
		GameID:  c.GameID(),
		Created: c.previous == nil,
		Title:   c.input.Title,
		Status:  c.input.Status,
	}
	if c.previous != nil {
		p.PreviousTitle = c.previous.Title
	}
	return p
}
