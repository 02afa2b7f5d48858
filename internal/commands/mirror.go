package commands

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/dshills/ballotdesk/internal/resource"
)

// Mirror is a local cache of remote entities kept current by the
// SyncFuncs it hands out. A nil Mirror hands out nil SyncFuncs.
type Mirror struct {
	mu          sync.RWMutex
	games       map[string]resource.Game
	configs     map[string]resource.VotingConfig
	nominations map[string]resource.Nomination
}

// NewMirror creates an empty cache.
func NewMirror() *Mirror {
	return &Mirror{
		games:       make(map[string]resource.Game),
		configs:     make(map[string]resource.VotingConfig),
		nominations: make(map[string]resource.Nomination),
	}
}

func mirrorInto[T any](mu *sync.RWMutex, items map[string]T, key func(T) string) SyncFunc[T] {
	return func(entity *T, _ Action, meta Meta) {
		mu.Lock()
		defer mu.Unlock()
		if entity == nil {
			delete(items, meta.DeletedID)
			return
		}
		items[key(*entity)] = *entity
	}
}

// GameSync returns the SyncFunc for game commands.
func (m *Mirror) GameSync() SyncFunc[resource.Game] {
	if m == nil {
		return nil
	}
	return mirrorInto(&m.mu, m.games, func(g resource.Game) string { return g.ID })
}

// VotingConfigSync returns the SyncFunc for voting config commands.
func (m *Mirror) VotingConfigSync() SyncFunc[resource.VotingConfig] {
	if m == nil {
		return nil
	}
	return mirrorInto(&m.mu, m.configs, func(c resource.VotingConfig) string { return c.Code })
}

// NominationSync returns the SyncFunc for nomination commands.
func (m *Mirror) NominationSync() SyncFunc[resource.Nomination] {
	if m == nil {
		return nil
	}
	return mirrorInto(&m.mu, m.nominations, func(n resource.Nomination) string { return n.ID })
}

// Load replaces the cached games and nominations with the remote state.
// Voting configurations cannot be listed remotely and are left alone.
func (m *Mirror) Load(ctx context.Context, store resource.Store) error {
	games, err := store.ListGames(ctx)
	if err != nil {
		return err
	}
	nominations := make(map[string]resource.Nomination)
	for _, g := range games {
		list, err := store.ListNominations(ctx, g.ID)
		if err != nil {
			return err
		}
		for _, n := range list {
			nominations[n.ID] = n
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	clear(m.games)
	for _, g := range games {
		m.games[g.ID] = g
	}
	// Sync funcs handed out earlier hold these maps, so refill in place
	clear(m.nominations)
	for id, n := range nominations {
		m.nominations[id] = n
	}
	return nil
}

// Game returns a cached game.
func (m *Mirror) Game(id string) (resource.Game, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.games[id]
	return g, ok
}

// Games returns the cached games sorted by title.
func (m *Mirror) Games() []resource.Game {
	m.mu.RLock()
	defer m.mu.RUnlock()
	games := slices.Collect(maps.Values(m.games))
	slices.SortFunc(games, func(a, b resource.Game) int {
		return cmp.Or(strings.Compare(a.Title, b.Title), strings.Compare(a.ID, b.ID))
	})
	return games
}

// VotingConfigs returns the cached configurations sorted by code.
func (m *Mirror) VotingConfigs() []resource.VotingConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	configs := slices.Collect(maps.Values(m.configs))
	slices.SortFunc(configs, func(a, b resource.VotingConfig) int {
		return strings.Compare(a.Code, b.Code)
	})
	return configs
}

// Nominations returns the cached nominations of a game.
func (m *Mirror) Nominations(gameID string) []resource.Nomination {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []resource.Nomination
	for _, n := range m.nominations {
		if n.GameID == gameID {
			out = append(out, n)
		}
	}
	slices.SortFunc(out, func(a, b resource.Nomination) int {
		return cmp.Or(strings.Compare(a.Category, b.Category), strings.Compare(a.Nominee, b.Nominee))
	})
	return out
}
