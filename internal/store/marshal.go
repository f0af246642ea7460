package store

import (
	"fmt"
	"time"

	"github.com/roach88/sebo/internal/ir"
)

const timeLayout = time.RFC3339Nano

// marshalPayload converts an operation payload to canonical JSON TEXT.
// An absent payload is stored as the empty string.
func marshalPayload(v ir.Value) (string, error) {
	if v == nil {
		return "", nil
	}
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	return string(data), nil
}

// unmarshalPayload parses stored payload TEXT. The empty string yields nil.
func unmarshalPayload(data string) (ir.Value, error) {
	if data == "" {
		return nil, nil
	}
	v, err := ir.Parse([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return v, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
