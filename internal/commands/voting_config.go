package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/dshills/ballotdesk/internal/engine/history"
	"github.com/dshills/ballotdesk/internal/resource"
)

// ImportVotingConfig creates or replaces the voting configuration with a
// given code.
//
// The first Execute captures the configuration it replaces. Undo restores
// that snapshot, or deletes the configuration when the import created it.
type ImportVotingConfig struct {
	history.Base

	service resource.VotingConfigService
	config  resource.VotingConfig
	sync    SyncFunc[resource.VotingConfig]

	captured bool
	previous *resource.VotingConfig
}

// NewImportVotingConfig creates the command. sync may be nil.
func NewImportVotingConfig(service resource.VotingConfigService, cfg resource.VotingConfig, sync SyncFunc[resource.VotingConfig]) *ImportVotingConfig {
	return &ImportVotingConfig{
		Base:    history.NewBase(history.KindImportVotingConfig, fmt.Sprintf("Import voting config %q", cfg.Code)),
		service: service,
		config:  cfg.Clone(),
		sync:    sync,
	}
}

// Execute captures any existing configuration, then imports.
func (c *ImportVotingConfig) Execute(ctx context.Context) error {
	if !c.captured {
		existing, err := c.service.GetVotingConfig(ctx, c.config.Code)
		switch {
		case err == nil:
			snapshot := existing.Clone()
			c.previous = &snapshot
		case errors.Is(err, resource.ErrNotFound):
			c.previous = nil
		default:
			return fmt.Errorf("fetch voting config %q: %w", c.config.Code, err)
		}
		c.captured = true
	}

	stored, err := c.service.ImportVotingConfig(ctx, c.config, c.previous != nil)
	if err != nil {
		return err
	}
	c.sync.call(&stored, ActionApply, Meta{})
	return nil
}

// Undo restores the snapshot or deletes a configuration this command
// created.
func (c *ImportVotingConfig) Undo(ctx context.Context) error {
	if !c.captured {
		return ErrNotApplied
	}
	if c.previous == nil {
		if err := c.service.DeleteVotingConfig(ctx, c.config.Code); err != nil {
			return err
		}
		c.sync.call(nil, ActionUndo, Meta{DeletedID: c.config.Code})
		return nil
	}

	restored, err := c.service.ImportVotingConfig(ctx, *c.previous, true)
	if err != nil {
		return err
	}
	c.sync.call(&restored, ActionUndo, Meta{})
	return nil
}

// Redo imports the new configuration again, overwriting.
func (c *ImportVotingConfig) Redo(ctx context.Context) error {
	if !c.captured {
		return ErrNotApplied
	}
	stored, err := c.service.ImportVotingConfig(ctx, c.config, true)
	if err != nil {
		return err
	}
	c.sync.call(&stored, ActionRedo, Meta{})
	return nil
}

// ImportVotingConfigPayload is the serialized form of the command.
type ImportVotingConfigPayload struct {
	Code          string `json:"code" yaml:"code"`
	Title         string `json:"title" yaml:"title"`
	Categories    int    `json:"categories" yaml:"categories"`
	Replaced      bool   `json:"replaced" yaml:"replaced"`
	PreviousTitle string `json:"previous_title,omitempty" yaml:"previous_title,omitempty"`
}

// Serialize describes the import.
func (c *ImportVotingConfig) Serialize() any {
	p := ImportVotingConfigPayload{
		Code:       c.config.Code,
		Title:      c.config.Title,
		Categories: len(c.config.Categories),
		Replaced:   c.previous != nil,
	}
	if c.previous != nil {
		p.PreviousTitle = c.previous.Title
	}
	return p
}
