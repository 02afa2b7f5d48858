package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Kind identifies the operation category of a command.
type Kind string

// Command kinds. The set is closed; Valid reports membership.
const (
	KindImportVotingConfig Kind = "voting_config.import"
	KindSaveGame           Kind = "game.save"
	KindAddNomination      Kind = "nomination.add"
	KindRemoveNomination   Kind = "nomination.remove"
	KindBatch              Kind = "batch"
)

var kindLabels = map[Kind]string{
	KindImportVotingConfig: "Import voting configuration",
	KindSaveGame:           "Save game",
	KindAddNomination:      "Add nomination",
	KindRemoveNomination:   "Remove nomination",
	KindBatch:              "Batch",
}

// Kinds returns every known kind in declaration order.
func Kinds() []Kind {
	return []Kind{
		KindImportVotingConfig,
		KindSaveGame,
		KindAddNomination,
		KindRemoveNomination,
		KindBatch,
	}
}

// Valid returns true if k is one of the known kinds.
func (k Kind) Valid() bool {
	_, ok := kindLabels[k]
	return ok
}

// Label returns a human-readable label for the kind.
func (k Kind) Label() string {
	if label, ok := kindLabels[k]; ok {
		return label
	}
	return string(k)
}

// Command represents a reversible unit of administrative work.
type Command interface {
	// ID returns an identifier that is stable for the life of the command.
	ID() string

	// Kind returns the operation category.
	Kind() Kind

	// Name returns a human-readable description.
	Name() string

	// Timestamp returns when the command was created.
	Timestamp() time.Time

	// Execute performs the forward action.
	Execute(ctx context.Context) error

	// Undo reverses the most recent forward effect.
	Undo(ctx context.Context) error

	// Redo re-applies the forward action, reusing any captured snapshot.
	Redo(ctx context.Context) error

	// Serialize returns a plain payload describing the command.
	// The payload must not reference live command state.
	Serialize() any
}

// Base carries the identity shared by every command.
// Embed it in concrete commands.
type Base struct {
	id        string
	kind      Kind
	name      string
	timestamp time.Time
}

// NewBase creates an identity with a fresh id and the current time.
func NewBase(kind Kind, name string) Base {
	return Base{
		id:        uuid.NewString(),
		kind:      kind,
		name:      name,
		timestamp: time.Now(),
	}
}

// ID returns the command id.
func (b Base) ID() string { return b.id }

// Kind returns the command kind.
func (b Base) Kind() Kind { return b.kind }

// Name returns the command name.
func (b Base) Name() string { return b.name }

// Timestamp returns the creation time.
func (b Base) Timestamp() time.Time { return b.timestamp }

// Batch groups multiple commands as one undo unit.
// It tracks how many leading steps are applied, so an undo or redo that
// fails halfway resumes from the failing step when retried.
type Batch struct {
	Base
	commands []Command
	applied  int
}

// NewBatch creates a batch. An empty name is replaced by a summary.
func NewBatch(name string, commands ...Command) *Batch {
	if name == "" {
		if len(commands) == 1 {
			name = commands[0].Name()
		} else {
			name = fmt.Sprintf("%d operations", len(commands))
		}
	}
	cmds := make([]Command, len(commands))
	copy(cmds, commands)
	return &Batch{
		Base:     NewBase(KindBatch, name),
		commands: cmds,
	}
}

// newAppliedBatch wraps commands that were already executed.
func newAppliedBatch(name string, commands ...Command) *Batch {
	b := NewBatch(name, commands...)
	b.applied = len(b.commands)
	return b
}

// Execute runs all commands in order. If a step fails, the steps that
// already ran are undone in reverse before the error is returned.
func (b *Batch) Execute(ctx context.Context) error {
	for b.applied < len(b.commands) {
		i := b.applied
		if err := b.commands[i].Execute(ctx); err != nil {
			err = fmt.Errorf("batch %q step %d: %w", b.Name(), i, err)
			if uerr := b.Undo(ctx); uerr != nil {
				return errors.Join(err, uerr)
			}
			return err
		}
		b.applied++
	}
	return nil
}

// Undo reverses the applied commands in reverse order.
func (b *Batch) Undo(ctx context.Context) error {
	for b.applied > 0 {
		i := b.applied - 1
		if err := b.commands[i].Undo(ctx); err != nil {
			return fmt.Errorf("undo batch %q step %d: %w", b.Name(), i, err)
		}
		b.applied--
	}
	return nil
}

// Redo re-applies the commands that are not applied, in order.
func (b *Batch) Redo(ctx context.Context) error {
	for b.applied < len(b.commands) {
		i := b.applied
		if err := b.commands[i].Redo(ctx); err != nil {
			return fmt.Errorf("redo batch %q step %d: %w", b.Name(), i, err)
		}
		b.applied++
	}
	return nil
}

// Applied returns the number of leading steps currently applied.
func (b *Batch) Applied() int {
	return b.applied
}

// BatchPayload is the serialized form of a batch.
type BatchPayload struct {
	Steps []Record `json:"steps"`
}

// Serialize returns the records of the grouped commands.
func (b *Batch) Serialize() any {
	steps := make([]Record, len(b.commands))
	for i, cmd := range b.commands {
		steps[i] = RecordVisitor{}.Visit(cmd)
	}
	return BatchPayload{Steps: steps}
}

// Commands returns a copy of the grouped commands.
func (b *Batch) Commands() []Command {
	cmds := make([]Command, len(b.commands))
	copy(cmds, b.commands)
	return cmds
}

// Len returns the number of grouped commands.
func (b *Batch) Len() int {
	return len(b.commands)
}
