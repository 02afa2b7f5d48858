// Package resource defines the remote entities the console edits and the
// service interfaces the commands call.
package resource

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"
)

// Game statuses.
const (
	GameDraft     = "draft"
	GameOpen      = "open"
	GameClosed    = "closed"
	defaultStatus = GameDraft
)

// Game is a voting round.
type Game struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Input returns the editable fields of g.
func (g Game) Input() GameInput {
	return GameInput{Title: g.Title, Description: g.Description, Status: g.Status}
}

// GameInput is the payload for creating or updating a game.
type GameInput struct {
	// ID requests a specific id on create. It is ignored on update.
	ID          string `json:"id,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status,omitempty"`
}

// Normalize trims fields and fills the default status.
func (in GameInput) Normalize() GameInput {
	in.ID = strings.TrimSpace(in.ID)
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Status = strings.TrimSpace(in.Status)
	if in.Status == "" {
		in.Status = defaultStatus
	}
	return in
}

// Validate checks a normalized input.
func (in GameInput) Validate() error {
	if in.Title == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	switch in.Status {
	case GameDraft, GameOpen, GameClosed:
		return nil
	default:
		return fmt.Errorf("%w: unknown status %q", ErrValidation, in.Status)
	}
}

// Category is one award a voting configuration offers.
type Category struct {
	Key            string `json:"key" toml:"key" yaml:"key"`
	Title          string `json:"title" toml:"title" yaml:"title"`
	MaxNominations int    `json:"max_nominations,omitempty" toml:"max_nominations" yaml:"max_nominations"`
}

// VotingConfig is a named set of categories, identified by a stable code.
type VotingConfig struct {
	Code       string     `json:"code" toml:"code" yaml:"code"`
	Title      string     `json:"title" toml:"title" yaml:"title"`
	Categories []Category `json:"categories" toml:"categories" yaml:"categories"`
	UpdatedAt  time.Time  `json:"updated_at,omitzero" toml:"-" yaml:"-"`
}

// Clone returns a deep copy of c.
func (c VotingConfig) Clone() VotingConfig {
	c.Categories = slices.Clone(c.Categories)
	return c
}

// Category returns the category with the given key.
func (c VotingConfig) Category(key string) (Category, bool) {
	for _, cat := range c.Categories {
		if cat.Key == key {
			return cat, true
		}
	}
	return Category{}, false
}

// Validate checks the code, title and category keys.
func (c VotingConfig) Validate() error {
	if strings.TrimSpace(c.Code) == "" {
		return fmt.Errorf("%w: code is required", ErrValidation)
	}
	if strings.TrimSpace(c.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	seen := make(map[string]bool, len(c.Categories))
	for i, cat := range c.Categories {
		if cat.Key == "" {
			return fmt.Errorf("%w: category %d has no key", ErrValidation, i)
		}
		if seen[cat.Key] {
			return fmt.Errorf("%w: duplicate category %q", ErrValidation, cat.Key)
		}
		if cat.MaxNominations < 0 {
			return fmt.Errorf("%w: category %q: negative max_nominations", ErrValidation, cat.Key)
		}
		seen[cat.Key] = true
	}
	return nil
}

// Nomination puts a nominee forward in a category of a game.
type Nomination struct {
	ID        string    `json:"id"`
	GameID    string    `json:"game_id"`
	Category  string    `json:"category"`
	Nominee   string    `json:"nominee"`
	CreatedAt time.Time `json:"created_at"`
}

// Input returns the fields needed to recreate n under the same id.
func (n Nomination) Input() NominationInput {
	return NominationInput{ID: n.ID, GameID: n.GameID, Category: n.Category, Nominee: n.Nominee}
}

// NominationInput is the payload for creating a nomination.
type NominationInput struct {
	// ID requests a specific id. Empty means the store assigns one.
	ID       string `json:"id,omitempty"`
	GameID   string `json:"game_id"`
	Category string `json:"category"`
	Nominee  string `json:"nominee"`
}

// Validate checks that every field is set.
func (in NominationInput) Validate() error {
	switch {
	case strings.TrimSpace(in.GameID) == "":
		return fmt.Errorf("%w: game_id is required", ErrValidation)
	case strings.TrimSpace(in.Category) == "":
		return fmt.Errorf("%w: category is required", ErrValidation)
	case strings.TrimSpace(in.Nominee) == "":
		return fmt.Errorf("%w: nominee is required", ErrValidation)
	}
	return nil
}

// GameService manages games.
type GameService interface {
	GetGame(ctx context.Context, id string) (Game, error)
	ListGames(ctx context.Context) ([]Game, error)
	CreateGame(ctx context.Context, in GameInput) (Game, error)
	UpdateGame(ctx context.Context, id string, in GameInput) (Game, error)
	DeleteGame(ctx context.Context, id string) error
}

// VotingConfigService manages voting configurations.
type VotingConfigService interface {
	GetVotingConfig(ctx context.Context, code string) (VotingConfig, error)

	// ImportVotingConfig creates the configuration, or replaces it when
	// force is set. Without force an existing code yields ErrConflict.
	ImportVotingConfig(ctx context.Context, cfg VotingConfig, force bool) (VotingConfig, error)

	DeleteVotingConfig(ctx context.Context, code string) error
}

// NominationService manages nominations.
type NominationService interface {
	GetNomination(ctx context.Context, id string) (Nomination, error)
	CreateNomination(ctx context.Context, in NominationInput) (Nomination, error)
	DeleteNomination(ctx context.Context, id string) error
	ListNominations(ctx context.Context, gameID string) ([]Nomination, error)
}

// Store implements every service.
type Store interface {
	GameService
	VotingConfigService
	NominationService
}
