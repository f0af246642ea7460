package classify

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Reply is the invocation server's reply envelope. Failed invocations arrive
// wrapped as {"detail": Reply}.
type Reply struct {
	RequestID   int64           `json:"requestId"`
	IsException bool            `json:"isException"`
	Result      json.RawMessage `json:"result,omitempty"`
	Error       string          `json:"error,omitempty"`
}

// DecodeReply parses an invocation reply body, accepting both the bare reply
// and the {"detail": ...} error wrapper. Classify never calls it; it exists
// for callers that want to look inside the body themselves.
func DecodeReply(body string) (*Reply, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, fmt.Errorf("empty reply body")
	}

	var wrapper struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal([]byte(body), &wrapper); err != nil {
		return nil, fmt.Errorf("failed to decode reply: %w", err)
	}

	raw := []byte(body)
	if len(wrapper.Detail) > 0 && wrapper.Detail[0] == '{' {
		raw = wrapper.Detail
	}

	var reply Reply
	if err := json.Unmarshal(raw, &reply); err != nil {
		return nil, fmt.Errorf("failed to decode reply: %w", err)
	}
	return &reply, nil
}
