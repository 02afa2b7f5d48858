package history

import (
	"encoding/json"
	"time"
)

// Record is the display-safe projection of a command.
// It holds no references to live command state.
type Record struct {
	ID        string          `json:"id"`
	Kind      Kind            `json:"kind"`
	Name      string          `json:"name"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// Visitor converts a command into a Record.
type Visitor interface {
	Visit(cmd Command) Record
}

// VisitorFunc adapts a function to the Visitor interface.
type VisitorFunc func(cmd Command) Record

// Visit calls f(cmd).
func (f VisitorFunc) Visit(cmd Command) Record {
	return f(cmd)
}

// RecordVisitor is the default Visitor. It copies the public fields and
// encodes the command's Serialize payload as JSON.
type RecordVisitor struct {
	// OmitPayload skips Serialize entirely.
	OmitPayload bool
}

// Visit builds the record for cmd.
func (v RecordVisitor) Visit(cmd Command) Record {
	rec := Record{
		ID:        cmd.ID(),
		Kind:      cmd.Kind(),
		Name:      cmd.Name(),
		Timestamp: cmd.Timestamp(),
	}
	if v.OmitPayload {
		return rec
	}

	payload := cmd.Serialize()
	if payload == nil {
		return rec
	}

	data, err := json.Marshal(payload)
	if err != nil {
		// A map of strings always encodes.
		data, _ = json.Marshal(map[string]string{"error": err.Error()})
	}
	rec.Payload = data
	return rec
}
