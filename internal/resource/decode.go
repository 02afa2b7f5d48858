package resource

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"
)

// ReadVotingConfig loads a voting configuration from a file. The file
// extension selects the format (TOML, YAML or JSON).
func ReadVotingConfig(path string) (VotingConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return VotingConfig{}, err
	}
	cfg, err := DecodeVotingConfig(data, strings.TrimPrefix(filepath.Ext(path), "."))
	if err != nil {
		return VotingConfig{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// DecodeVotingConfig parses data in the given format and validates the
// result. Unknown fields are rejected.
func DecodeVotingConfig(data []byte, format string) (VotingConfig, error) {
	var cfg VotingConfig
	switch strings.ToLower(format) {
	case "toml":
		if err := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields().Decode(&cfg); err != nil {
			return VotingConfig{}, fmt.Errorf("parse toml: %w", err)
		}
	case "yml", "yaml":
		if err := yaml.UnmarshalWithOptions(data, &cfg, yaml.Strict()); err != nil {
			return VotingConfig{}, fmt.Errorf("parse yaml: %w", err)
		}
	case "json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&cfg); err != nil {
			return VotingConfig{}, fmt.Errorf("parse json: %w", err)
		}
	default:
		return VotingConfig{}, fmt.Errorf("unsupported voting config format: %q", format)
	}

	if err := cfg.Validate(); err != nil {
		return VotingConfig{}, err
	}
	return cfg, nil
}
