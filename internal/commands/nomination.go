package commands

import (
	"context"
	"fmt"

	"github.com/dshills/ballotdesk/internal/engine/history"
	"github.com/dshills/ballotdesk/internal/resource"
)

// AddNomination creates a nomination; undo deletes it.
type AddNomination struct {
	history.Base

	service resource.NominationService
	input   resource.NominationInput
	sync    SyncFunc[resource.Nomination]

	createdID string
}

// NewAddNomination creates the command. sync may be nil.
func NewAddNomination(service resource.NominationService, in resource.NominationInput, sync SyncFunc[resource.Nomination]) *AddNomination {
	return &AddNomination{
		Base:    history.NewBase(history.KindAddNomination, fmt.Sprintf("Nominate %q for %q", in.Nominee, in.Category)),
		service: service,
		input:   in,
		sync:    sync,
	}
}

// Execute creates the nomination.
func (c *AddNomination) Execute(ctx context.Context) error {
	return c.create(ctx, ActionApply)
}

// Undo deletes the nomination created last.
func (c *AddNomination) Undo(ctx context.Context) error {
	if c.createdID == "" {
		return ErrNotApplied
	}
	if err := c.service.DeleteNomination(ctx, c.createdID); err != nil {
		return err
	}
	c.sync.call(nil, ActionUndo, Meta{DeletedID: c.createdID})
	return nil
}

// Redo creates the nomination again under the same id.
func (c *AddNomination) Redo(ctx context.Context) error {
	if c.createdID == "" {
		return ErrNotApplied
	}
	return c.create(ctx, ActionRedo)
}

func (c *AddNomination) create(ctx context.Context, action Action) error {
	in := c.input
	if action == ActionRedo {
		in.ID = c.createdID
	}
	n, err := c.service.CreateNomination(ctx, in)
	if err != nil {
		return err
	}
	c.createdID = n.ID
	c.sync.call(&n, action, Meta{})
	return nil
}

// NominationID returns the id of the created nomination.
func (c *AddNomination) NominationID() string { return c.createdID }

// NominationPayload is the serialized form of nomination commands.
type NominationPayload struct {
	NominationID string `json:"nomination_id,omitempty" yaml:"nomination_id,omitempty"`
	GameID       string `json:"game_id" yaml:"game_id"`
	Category     string `json:"category" yaml:"category"`
	Nominee      string `json:"nominee" yaml:"nominee"`
}

// Serialize describes the nomination.
func (c *AddNomination) Serialize() any {
	return NominationPayload{
		NominationID: c.createdID,
		GameID:       c.input.GameID,
		Category:     c.input.Category,
		Nominee:      c.input.Nominee,
	}
}

// RemoveNomination deletes a nomination; undo recreates it from a
// snapshot.
type RemoveNomination struct {
	history.Base

	service resource.NominationService
	sync    SyncFunc[resource.Nomination]

	// currentID is the id the store reported on the last recreation.
	currentID string
	snapshot  *resource.Nomination
}

// NewRemoveNomination creates the command. sync may be nil.
func NewRemoveNomination(service resource.NominationService, id string, sync SyncFunc[resource.Nomination]) *RemoveNomination {
	return &RemoveNomination{
		Base:      history.NewBase(history.KindRemoveNomination, fmt.Sprintf("Remove nomination %s", id)),
		service:   service,
		sync:      sync,
		currentID: id,
	}
}

// Execute captures the nomination and deletes it.
func (c *RemoveNomination) Execute(ctx context.Context) error {
	if c.snapshot == nil {
		n, err := c.service.GetNomination(ctx, c.currentID)
		if err != nil {
			return fmt.Errorf("fetch nomination %s: %w", c.currentID, err)
		}
		c.snapshot = &n
	}
	return c.remove(ctx, ActionApply)
}

// Undo recreates the nomination from the snapshot, keeping its id.
func (c *RemoveNomination) Undo(ctx context.Context) error {
	if c.snapshot == nil {
		return ErrNotApplied
	}
	n, err := c.service.CreateNomination(ctx, c.snapshot.Input())
	if err != nil {
		return err
	}
	c.currentID = n.ID
	c.sync.call(&n, ActionUndo, Meta{})
	return nil
}

// Redo deletes the nomination again.
func (c *RemoveNomination) Redo(ctx context.Context) error {
	if c.snapshot == nil {
		return ErrNotApplied
	}
	return c.remove(ctx, ActionRedo)
}

func (c *RemoveNomination) remove(ctx context.Context, action Action) error {
	if err := c.service.DeleteNomination(ctx, c.currentID); err != nil {
		return err
	}
	c.sync.call(nil, action, Meta{DeletedID: c.currentID})
	return nil
}

// Serialize describes the removal.
func (c *RemoveNomination) Serialize() any {
	p := NominationPayload{NominationID: c.currentID}
	if c.snapshot != nil {
		p.GameID = c.snapshot.GameID
		p.Category = c.snapshot.Category
		p.Nominee = c.snapshot.Nominee
	}
	return p
}
