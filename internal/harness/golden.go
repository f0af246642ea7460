package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/sebo/internal/ir"
)

// Snapshot renders the deterministic part of a run as canonical JSON:
// scenario name, final state and the trace events. Response bodies and
// timings are excluded so snapshots do not depend on server formatting.
func Snapshot(name string, result *Result) ([]byte, error) {
	trace := result.Trace()
	events := make([]any, len(trace))
	for i, ev := range trace {
		m := map[string]any{
			"seq":       ev.Seq,
			"name":      ev.Name,
			"style":     ev.Style,
			"target":    ev.Target,
			"policy":    ev.Policy,
			"status":    ev.Status,
			"succeeded": ev.Succeeded,
		}
		if ev.RequestID != 0 {
			m["request_id"] = ev.RequestID
		}
		events[i] = m
	}

	return ir.MarshalCanonical(map[string]any{
		"scenario_name": name,
		"state":         string(result.State),
		"fatal":         result.Fatal,
		"trace":         events,
	})
}

// AssertGolden compares the result's snapshot against
// testdata/golden/{name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./... -update
func AssertGolden(t *testing.T, name string, result *Result) {
	t.Helper()

	data, err := Snapshot(name, result)
	if err != nil {
		t.Fatalf("failed to snapshot %s: %v", name, err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
}
