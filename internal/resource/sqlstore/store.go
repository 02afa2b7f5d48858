// Package sqlstore provides a SQLite-backed implementation of the resource
// services.
package sqlstore

import (
	"cmp"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/dshills/ballotdesk/internal/resource"
	"github.com/dshills/ballotdesk/internal/resource/sqlstore/migrations"
)

// Store persists resources in SQLite.
type Store struct {
	sqlDB *sql.DB
	now   func() time.Time
}

var _ resource.Store = (*Store)(nil)

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) +
		"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(context.Background(), sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB, now: time.Now}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// GetGame returns one game by id.
func (s *Store) GetGame(ctx context.Context, id string) (resource.Game, error) {
	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT id, title, description, status, created_at, updated_at
		   FROM games
		  WHERE id = ?`,
		id,
	)
	game, err := scanGame(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return resource.Game{}, fmt.Errorf("game %q: %w", id, resource.ErrNotFound)
		}
		return resource.Game{}, fmt.Errorf("get game: %w", err)
	}
	return game, nil
}

// ListGames returns all games ordered by creation time.
func (s *Store) ListGames(ctx context.Context) ([]resource.Game, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT id, title, description, status, created_at, updated_at
		   FROM games
		  ORDER BY created_at, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	defer rows.Close()

	var games []resource.Game
	for rows.Next() {
		game, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("scan game: %w", err)
		}
		games = append(games, game)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	return games, nil
}

// CreateGame inserts a game with a fresh id.
func (s *Store) CreateGame(ctx context.Context, in resource.GameInput) (resource.Game, error) {
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return resource.Game{}, err
	}

	now := s.now().UTC()
	game := resource.Game{
		ID:          cmp.Or(in.ID, uuid.NewString()),
		Title:       in.Title,
		Description: in.Description,
		Status:      in.Status,
		CreatedAt:   fromMillis(toMillis(now)),
		UpdatedAt:   fromMillis(toMillis(now)),
	}
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO games (id, title, description, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		game.ID, game.Title, game.Description, game.Status,
		toMillis(game.CreatedAt), toMillis(game.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return resource.Game{}, fmt.Errorf("game %q: %w", game.ID, resource.ErrConflict)
		}
		return resource.Game{}, fmt.Errorf("create game: %w", err)
	}
	return game, nil
}

// UpdateGame replaces the editable fields of a game.
func (s *Store) UpdateGame(ctx context.Context, id string, in resource.GameInput) (resource.Game, error) {
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return resource.Game{}, err
	}

	res, err := s.sqlDB.ExecContext(ctx,
		`UPDATE games
		    SET title = ?, description = ?, status = ?, updated_at = ?
		  WHERE id = ?`,
		in.Title, in.Description, in.Status, toMillis(s.now()), id,
	)
	if err != nil {
		return resource.Game{}, fmt.Errorf("update game: %w", err)
	}
	if err := requireAffected(res, "game", id); err != nil {
		return resource.Game{}, err
	}
	return s.GetGame(ctx, id)
}

// DeleteGame removes a game and its nominations.
func (s *Store) DeleteGame(ctx context.Context, id string) error {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete game: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM nominations WHERE game_id = ?`, id); err != nil {
		return fmt.Errorf("delete game nominations: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM games WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete game: %w", err)
	}
	if err := requireAffected(res, "game", id); err != nil {
		return err
	}
	return tx.Commit()
}

// GetVotingConfig returns one configuration by code.
func (s *Store) GetVotingConfig(ctx context.Context, code string) (resource.VotingConfig, error) {
	var (
		cfg        resource.VotingConfig
		categories string
		updatedAt  int64
	)
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT code, title, categories, updated_at
		   FROM voting_configs
		  WHERE code = ?`,
		code,
	).Scan(&cfg.Code, &cfg.Title, &categories, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return resource.VotingConfig{}, fmt.Errorf("voting config %q: %w", code, resource.ErrNotFound)
		}
		return resource.VotingConfig{}, fmt.Errorf("get voting config: %w", err)
	}
	if err := json.Unmarshal([]byte(categories), &cfg.Categories); err != nil {
		return resource.VotingConfig{}, fmt.Errorf("decode categories of %q: %w", code, err)
	}
	cfg.UpdatedAt = fromMillis(updatedAt)
	return cfg, nil
}

// ImportVotingConfig inserts a configuration, or replaces it when force
// is set.
func (s *Store) ImportVotingConfig(ctx context.Context, cfg resource.VotingConfig, force bool) (resource.VotingConfig, error) {
	if err := cfg.Validate(); err != nil {
		return resource.VotingConfig{}, err
	}
	categories, err := json.Marshal(cfg.Categories)
	if err != nil {
		return resource.VotingConfig{}, fmt.Errorf("encode categories: %w", err)
	}

	query := `INSERT INTO voting_configs (code, title, categories, updated_at) VALUES (?, ?, ?, ?)`
	if force {
		query += ` ON CONFLICT(code) DO UPDATE SET
		             title = excluded.title,
		             categories = excluded.categories,
		             updated_at = excluded.updated_at`
	}

	now := fromMillis(toMillis(s.now()))
	if _, err := s.sqlDB.ExecContext(ctx, query, cfg.Code, cfg.Title, string(categories), toMillis(now)); err != nil {
		if isUniqueViolation(err) {
			return resource.VotingConfig{}, fmt.Errorf("voting config %q: %w", cfg.Code, resource.ErrConflict)
		}
		return resource.VotingConfig{}, fmt.Errorf("import voting config: %w", err)
	}

	stored := cfg.Clone()
	stored.UpdatedAt = now
	return stored, nil
}

// DeleteVotingConfig removes one configuration.
func (s *Store) DeleteVotingConfig(ctx context.Context, code string) error {
	res, err := s.sqlDB.ExecContext(ctx, `DELETE FROM voting_configs WHERE code = ?`, code)
	if err != nil {
		return fmt.Errorf("delete voting config: %w", err)
	}
	return requireAffected(res, "voting config", code)
}

// GetNomination returns one nomination by id.
func (s *Store) GetNomination(ctx context.Context, id string) (resource.Nomination, error) {
	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT id, game_id, category, nominee, created_at
		   FROM nominations
		  WHERE id = ?`,
		id,
	)
	n, err := scanNomination(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return resource.Nomination{}, fmt.Errorf("nomination %q: %w", id, resource.ErrNotFound)
		}
		return resource.Nomination{}, fmt.Errorf("get nomination: %w", err)
	}
	return n, nil
}

// CreateNomination inserts a nomination for an existing game.
func (s *Store) CreateNomination(ctx context.Context, in resource.NominationInput) (resource.Nomination, error) {
	if err := in.Validate(); err != nil {
		return resource.Nomination{}, err
	}
	exists, err := s.gameExists(ctx, in.GameID)
	if err != nil {
		return resource.Nomination{}, err
	}
	if !exists {
		return resource.Nomination{}, fmt.Errorf("%w: game %q does not exist", resource.ErrValidation, in.GameID)
	}

	n := resource.Nomination{
		ID:        cmp.Or(in.ID, uuid.NewString()),
		GameID:    in.GameID,
		Category:  in.Category,
		Nominee:   in.Nominee,
		CreatedAt: fromMillis(toMillis(s.now())),
	}
	_, err = s.sqlDB.ExecContext(ctx,
		`INSERT INTO nominations (id, game_id, category, nominee, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		n.ID, n.GameID, n.Category, n.Nominee, toMillis(n.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return resource.Nomination{}, fmt.Errorf("nomination %q in %q: %w", in.Nominee, in.Category, resource.ErrConflict)
		}
		return resource.Nomination{}, fmt.Errorf("create nomination: %w", err)
	}
	return n, nil
}

// DeleteNomination removes one nomination.
func (s *Store) DeleteNomination(ctx context.Context, id string) error {
	res, err := s.sqlDB.ExecContext(ctx, `DELETE FROM nominations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete nomination: %w", err)
	}
	return requireAffected(res, "nomination", id)
}

// ListNominations returns the nominations of a game ordered by creation
// time.
func (s *Store) ListNominations(ctx context.Context, gameID string) ([]resource.Nomination, error) {
	exists, err := s.gameExists(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("game %q: %w", gameID, resource.ErrNotFound)
	}

	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT id, game_id, category, nominee, created_at
		   FROM nominations
		  WHERE game_id = ?
		  ORDER BY created_at, id`,
		gameID,
	)
	if err != nil {
		return nil, fmt.Errorf("list nominations: %w", err)
	}
	defer rows.Close()

	var out []resource.Nomination
	for rows.Next() {
		n, err := scanNomination(rows)
		if err != nil {
			return nil, fmt.Errorf("scan nomination: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list nominations: %w", err)
	}
	return out, nil
}

func (s *Store) gameExists(ctx context.Context, id string) (bool, error) {
	var found int
	err := s.sqlDB.QueryRowContext(ctx, `SELECT 1 FROM games WHERE id = ?`, id).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check game: %w", err)
	}
	return true, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanGame(row scanner) (resource.Game, error) {
	var (
		game                 resource.Game
		createdAt, updatedAt int64
	)
	if err := row.Scan(&game.ID, &game.Title, &game.Description, &game.Status, &createdAt, &updatedAt); err != nil {
		return resource.Game{}, err
	}
	game.CreatedAt = fromMillis(createdAt)
	game.UpdatedAt = fromMillis(updatedAt)
	return game, nil
}

func scanNomination(row scanner) (resource.Nomination, error) {
	var (
		n         resource.Nomination
		createdAt int64
	)
	if err := row.Scan(&n.ID, &n.GameID, &n.Category, &n.Nominee, &createdAt); err != nil {
		return resource.Nomination{}, err
	}
	n.CreatedAt = fromMillis(createdAt)
	return n, nil
}

func requireAffected(res sql.Result, what, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s %q: rows affected: %w", what, id, err)
	}
	if affected == 0 {
		return fmt.Errorf("%s %q: %w", what, id, resource.ErrNotFound)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
