package resource

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tomlConfig = `
code = "jam-2025"
title = "Game Jam 2025"

[[categories]]
key = "best-art"
title = "Best Art"
max_nominations = 3

[[categories]]
key = "best-audio"
title = "Best Audio"
`

const yamlConfig = `
code: main
title: Main Awards
categories:
  - key: goty
    title: Game of the Year
`

func TestDecodeVotingConfig(t *testing.T) {
	t.Run("toml", func(t *testing.T) {
		cfg, err := DecodeVotingConfig([]byte(tomlConfig), "toml")
		require.NoError(t, err)
		assert.Equal(t, "jam-2025", cfg.Code)
		assert.Len(t, cfg.Categories, 2)
		cat, ok := cfg.Category("best-art")
		require.True(t, ok)
		assert.Equal(t, 3, cat.MaxNominations)
	})

	t.Run("yaml", func(t *testing.T) {
		cfg, err := DecodeVotingConfig([]byte(yamlConfig), "yaml")
		require.NoError(t, err)
		assert.Equal(t, "main", cfg.Code)
		assert.Equal(t, "Game of the Year", cfg.Categories[0].Title)
	})

	t.Run("json", func(t *testing.T) {
		cfg, err := DecodeVotingConfig([]byte(`{"code":"x","title":"X","categories":[]}`), "JSON")
		require.NoError(t, err)
		assert.Equal(t, "x", cfg.Code)
	})

	t.Run("unknown field", func(t *testing.T) {
		_, err := DecodeVotingConfig([]byte(`{"code":"x","title":"X","bogus":1}`), "json")
		assert.Error(t, err)
	})

	t.Run("unknown format", func(t *testing.T) {
		_, err := DecodeVotingConfig([]byte(tomlConfig), "ini")
		assert.ErrorContains(t, err, "unsupported")
	})

	t.Run("invalid", func(t *testing.T) {
		_, err := DecodeVotingConfig([]byte(`code = "x"`), "toml")
		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestReadVotingConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "awards.yml")
	require.NoError(t, os.WriteFile(path, []byte(yamlConfig), 0o644))

	cfg, err := ReadVotingConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "Main Awards", cfg.Title)

	_, err = ReadVotingConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestVotingConfigValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  VotingConfig
		ok   bool
	}{
		{"valid", VotingConfig{Code: "a", Title: "A", Categories: []Category{{Key: "k"}}}, true},
		{"no code", VotingConfig{Title: "A"}, false},
		{"no title", VotingConfig{Code: "a"}, false},
		{"empty key", VotingConfig{Code: "a", Title: "A", Categories: []Category{{}}}, false},
		{"duplicate key", VotingConfig{Code: "a", Title: "A", Categories: []Category{{Key: "k"}, {Key: "k"}}}, false},
		{"negative max", VotingConfig{Code: "a", Title: "A", Categories: []Category{{Key: "k", MaxNominations: -1}}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrValidation)
			}
		})
	}
}

func TestVotingConfigClone(t *testing.T) {
	cfg := VotingConfig{Code: "a", Title: "A", Categories: []Category{{Key: "k"}}}
	clone := cfg.Clone()
	clone.Categories[0].Key = "changed"
	assert.Equal(t, "k", cfg.Categories[0].Key)
}

func TestGameInput(t *testing.T) {
	in := GameInput{Title: "  Jam  "}.Normalize()
	assert.Equal(t, "Jam", in.Title)
	assert.Equal(t, GameDraft, in.Status)
	assert.NoError(t, in.Validate())

	assert.ErrorIs(t, GameInput{Status: GameOpen}.Validate(), ErrValidation)
	assert.ErrorIs(t, GameInput{Title: "x", Status: "archived"}.Validate(), ErrValidation)
}

func TestNominationInputValidate(t *testing.T) {
	assert.NoError(t, NominationInput{GameID: "g", Category: "c", Nominee: "n"}.Validate())
	assert.ErrorIs(t, NominationInput{Category: "c", Nominee: "n"}.Validate(), ErrValidation)
	assert.ErrorIs(t, NominationInput{GameID: "g", Nominee: "n"}.Validate(), ErrValidation)
	assert.ErrorIs(t, NominationInput{GameID: "g", Category: "c"}.Validate(), ErrValidation)
}

func TestAPIErrorIs(t *testing.T) {
	err := error(&APIError{Status: http.StatusNotFound, Code: CodeNotFound, Message: "game g1"})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrConflict)
	assert.Contains(t, err.Error(), "game g1")

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Status)

	assert.ErrorIs(t, &APIError{Code: CodeConflict}, ErrConflict)
	assert.ErrorIs(t, &APIError{Code: CodeValidation}, ErrValidation)
}

func TestStatusMapping(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, StatusCode(ErrNotFound))
	assert.Equal(t, http.StatusConflict, StatusCode(ErrConflict))
	assert.Equal(t, http.StatusUnprocessableEntity, StatusCode(ErrValidation))
	assert.Equal(t, http.StatusInternalServerError, StatusCode(errors.New("boom")))

	assert.Equal(t, CodeValidation, ErrorCode(ErrValidation))
	assert.Equal(t, CodeInternal, ErrorCode(errors.New("boom")))
	assert.Equal(t, CodeValidation, CodeForStatus(http.StatusBadRequest))
	assert.Equal(t, CodeInternal, CodeForStatus(http.StatusBadGateway))
}
