// Package audit exports the command history for review.
//
// An export lists every command on the stack in chronological order with
// its serialized payload and whether it is currently applied.
package audit

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/dshills/ballotdesk/internal/engine/history"
)

// Format is an output encoding.
type Format string

// Formats.
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ErrUnknownFormat is returned for unsupported formats or extensions.
var ErrUnknownFormat = errors.New("unknown audit format")

// Source is the part of a history an export reads.
type Source interface {
	Serialize(v history.Visitor) []history.Record
	State() history.State
}

// Entry is one command in an export.
type Entry struct {
	Position  int          `json:"position" yaml:"position"`
	Applied   bool         `json:"applied" yaml:"applied"`
	ID        string       `json:"id" yaml:"id"`
	Kind      history.Kind `json:"kind" yaml:"kind"`
	Name      string       `json:"name" yaml:"name"`
	Timestamp time.Time    `json:"timestamp" yaml:"timestamp"`
	Payload   any          `json:"payload,omitempty" yaml:"payload,omitempty"`
}

// Export is a point-in-time view of a history.
type Export struct {
	ExportedAt     time.Time `json:"exported_at" yaml:"exported_at"`
	Cursor         int       `json:"cursor" yaml:"cursor"`
	Size           int       `json:"size" yaml:"size"`
	Desynchronized bool      `json:"desynchronized" yaml:"desynchronized"`
	Suspect        string    `json:"suspect,omitempty" yaml:"suspect,omitempty"`
	Entries        []Entry   `json:"entries" yaml:"entries"`
}

// Snapshot builds an export from src using v, or history.RecordVisitor
// when v is nil.
func Snapshot(src Source, v history.Visitor, now time.Time) (Export, error) {
	state := src.State()
	records := src.Serialize(v)

	exp := Export{
		ExportedAt:     now.UTC(),
		Cursor:         state.Cursor,
		Size:           state.Size,
		Desynchronized: state.Desynchronized,
		Entries:        make([]Entry, 0, len(records)),
	}
	if state.Suspect != nil {
		exp.Suspect = state.Suspect.ID
	}

	for i, rec := range records {
		entry := Entry{
			Position:  i,
			Applied:   i <= state.Cursor,
			ID:        rec.ID,
			Kind:      rec.Kind,
			Name:      rec.Name,
			Timestamp: rec.Timestamp.UTC(),
		}
		if len(rec.Payload) > 0 {
			if err := json.Unmarshal(rec.Payload, &entry.Payload); err != nil {
				return Export{}, fmt.Errorf("payload of %s: %w", rec.ID, err)
			}
		}
		exp.Entries = append(exp.Entries, entry)
	}
	return exp, nil
}

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, filepath.Ext(path))
}

// Write encodes exp to w.
func Write(w io.Writer, format Format, exp Export) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(exp)
	case FormatYAML:
		data, err := yaml.Marshal(exp)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

// WriteFile writes exp to path in the format its extension names.
func WriteFile(path string, exp Export) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(f, format, exp); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Read decodes an export written by Write.
func Read(r io.Reader, format Format) (Export, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Export{}, err
	}
	var exp Export
	switch format {
	case FormatJSON:
		err = json.Unmarshal(data, &exp)
	case FormatYAML:
		err = yaml.Unmarshal(data, &exp)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	return exp, err
}
