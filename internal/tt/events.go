package tt

import (
	"strings"
	"testing"
	"time"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/rickchristie/harness"
)

// EventTypes extracts the type tags of an event sequence, in order.
func EventTypes(events []harness.Event) []string {
	types := make([]string, len(events))
	for i, ev := range events {
		types[i] = ev.Type
	}
	return types
}

// DiffEventTypes renders a unified diff between two type sequences.
// Returns "" when they match.
func DiffEventTypes(want, got []string) string {
	if len(want) == len(got) {
		same := true
		for i := range want {
			if want[i] != got[i] {
				same = false
				break
			}
		}
		if same {
			return ""
		}
	}

	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        joinLines(want),
		B:        joinLines(got),
		FromFile: "want",
		ToFile:   "got",
		Context:  3,
	})
	if err != nil {
		return "diff failed: " + err.Error()
	}
	return diff
}

func joinLines(types []string) []string {
	lines := make([]string, len(types))
	for i, typ := range types {
		lines[i] = typ + "\n"
	}
	return lines
}

// RequireEventTypes fails the test with a readable diff when the event
// sequence's type tags differ from want.
func RequireEventTypes(t *testing.T, events []harness.Event, want ...string) {
	t.Helper()
	got := EventTypes(events)
	if diff := DiffEventTypes(want, got); diff != "" {
		t.Fatalf("event sequence mismatch:\n%s", diff)
	}
}

// CollectStream drains a stream channel into a slice, bounded by
// timeout so a stuck stream fails the test instead of hanging it.
func CollectStream(t *testing.T, ch <-chan harness.Event, timeout time.Duration) []harness.Event {
	t.Helper()

	var events []harness.Event
	deadline := time.After(timeout)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-deadline:
			t.Fatalf("stream did not close within %v; collected %v", timeout, strings.Join(EventTypes(events), ", "))
			return events
		}
	}
}
