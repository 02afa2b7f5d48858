// Package memstore is an in-memory implementation of the resource services.
package memstore

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/ballotdesk/internal/resource"
)

// Store keeps games, voting configurations and nominations in maps.
// It is safe for concurrent use.
type Store struct {
	mu          sync.RWMutex
	games       map[string]resource.Game
	configs     map[string]resource.VotingConfig
	nominations map[string]resource.Nomination

	now func() time.Time
}

var _ resource.Store = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		games:       make(map[string]resource.Game),
		configs:     make(map[string]resource.VotingConfig),
		nominations: make(map[string]resource.Nomination),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// GetGame returns the game with the given id.
func (s *Store) GetGame(ctx context.Context, id string) (resource.Game, error) {
	if err := ctx.Err(); err != nil {
		return resource.Game{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	game, ok := s.games[id]
	if !ok {
		return resource.Game{}, fmt.Errorf("game %q: %w", id, resource.ErrNotFound)
	}
	return game, nil
}

// ListGames returns all games ordered by creation time.
func (s *Store) ListGames(ctx context.Context) ([]resource.Game, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	games := slices.Collect(maps.Values(s.games))
	slices.SortFunc(games, func(a, b resource.Game) int {
		return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), strings.Compare(a.ID, b.ID))
	})
	return games, nil
}

// CreateGame stores a new game with a fresh id.
func (s *Store) CreateGame(ctx context.Context, in resource.GameInput) (resource.Game, error) {
	if err := ctx.Err(); err != nil {
		return resource.Game{}, err
	}
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return resource.Game{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := cmp.Or(in.ID, uuid.NewString())
	if _, exists := s.games[id]; exists {
		return resource.Game{}, fmt.Errorf("game %q: %w", id, resource.ErrConflict)
	}
	now := s.now()
	game := resource.Game{
		ID:          id,
		Title:       in.Title,
		Description: in.Description,
		Status:      in.Status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.games[game.ID] = game
	return game, nil
}

// UpdateGame replaces the editable fields of a game.
func (s *Store) UpdateGame(ctx context.Context, id string, in resource.GameInput) (resource.Game, error) {
	if err := ctx.Err(); err != nil {
		return resource.Game{}, err
	}
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return resource.Game{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	game, ok := s.games[id]
	if !ok {
		return resource.Game{}, fmt.Errorf("game %q: %w", id, resource.ErrNotFound)
	}
	game.Title = in.Title
	game.Description = in.Description
	game.Status = in.Status
	game.UpdatedAt = s.now()
	s.games[id] = game
	return game, nil
}

// DeleteGame removes a game and its nominations.
func (s *Store) DeleteGame(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.games[id]; !ok {
		return fmt.Errorf("game %q: %w", id, resource.ErrNotFound)
	}
	delete(s.games, id)
	maps.DeleteFunc(s.nominations, func(_ string, n resource.Nomination) bool {
		return n.GameID == id
	})
	return nil
}

// GetVotingConfig returns the configuration with the given code.
func (s *Store) GetVotingConfig(ctx context.Context, code string) (resource.VotingConfig, error) {
	if err := ctx.Err(); err != nil {
		return resource.VotingConfig{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	cfg, ok := s.configs[code]
	if !ok {
		return resource.VotingConfig{}, fmt.Errorf("voting config %q: %w", code, resource.ErrNotFound)
	}
	return cfg.Clone(), nil
}

// ImportVotingConfig creates or, with force, replaces a configuration.
func (s *Store) ImportVotingConfig(ctx context.Context, cfg resource.VotingConfig, force bool) (resource.VotingConfig, error) {
	if err := ctx.Err(); err != nil {
		return resource.VotingConfig{}, err
	}
	if err := cfg.Validate(); err != nil {
		return resource.VotingConfig{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.configs[cfg.Code]; exists && !force {
		return resource.VotingConfig{}, fmt.Errorf("voting config %q: %w", cfg.Code, resource.ErrConflict)
	}
	stored := cfg.Clone()
	stored.UpdatedAt = s.now()
	s.configs[cfg.Code] = stored
	return stored.Clone(), nil
}

// DeleteVotingConfig removes a configuration.
func (s *Store) DeleteVotingConfig(ctx context.Context, code string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.configs[code]; !ok {
		return fmt.Errorf("voting config %q: %w", code, resource.ErrNotFound)
	}
	delete(s.configs, code)
	return nil
}

// GetNomination returns the nomination with the given id.
func (s *Store) GetNomination(ctx context.Context, id string) (resource.Nomination, error) {
	if err := ctx.Err(); err != nil {
		return resource.Nomination{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.nominations[id]
	if !ok {
		return resource.Nomination{}, fmt.Errorf("nomination %q: %w", id, resource.ErrNotFound)
	}
	return n, nil
}

// CreateNomination stores a nomination for an existing game. The same
// nominee cannot be put forward twice in one category.
func (s *Store) CreateNomination(ctx context.Context, in resource.NominationInput) (resource.Nomination, error) {
	if err := ctx.Err(); err != nil {
		return resource.Nomination{}, err
	}
	if err := in.Validate(); err != nil {
		return resource.Nomination{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.games[in.GameID]; !ok {
		return resource.Nomination{}, fmt.Errorf("%w: game %q does not exist", resource.ErrValidation, in.GameID)
	}
	for _, n := range s.nominations {
		if n.GameID == in.GameID && n.Category == in.Category && n.Nominee == in.Nominee {
			return resource.Nomination{}, fmt.Errorf("nomination %q in %q: %w", in.Nominee, in.Category, resource.ErrConflict)
		}
	}

	id := cmp.Or(in.ID, uuid.NewString())
	if _, exists := s.nominations[id]; exists {
		return resource.Nomination{}, fmt.Errorf("nomination %q: %w", id, resource.ErrConflict)
	}
	n := resource.Nomination{
		ID:        id,
		GameID:    in.GameID,
		Category:  in.Category,
		Nominee:   in.Nominee,
		CreatedAt: s.now(),
	}
	s.nominations[n.ID] = n
	return n, nil
}

// DeleteNomination removes a nomination.
func (s *Store) DeleteNomination(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.nominations[id]; !ok {
		return fmt.Errorf("nomination %q: %w", id, resource.ErrNotFound)
	}
	delete(s.nominations, id)
	return nil
}

// ListNominations returns the nominations of a game ordered by creation
// time.
func (s *Store) ListNominations(ctx context.Context, gameID string) ([]resource.Nomination, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.games[gameID]; !ok {
		return nil, fmt.Errorf("game %q: %w", gameID, resource.ErrNotFound)
	}
	var out []resource.Nomination
	for _, n := range s.nominations {
		if n.GameID == gameID {
			out = append(out, n)
		}
	}
	slices.SortFunc(out, func(a, b resource.Nomination) int {
		return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), strings.Compare(a.ID, b.ID))
	})
	return out, nil
}
