package mockcore

import (
	"testing"

	"github.com/wdstat/statmock/config"
	"github.com/wdstat/statmock/harness"
)

// recordingHarness captures every Fail/Ignore signal for assertions,
// instead of panicking or skipping the way a *testing.T adapter would.
type recordingHarness struct {
	fails   []string
	ignores []string
}

func (r *recordingHarness) Fail(msg string)   { r.fails = append(r.fails, msg) }
func (r *recordingHarness) Ignore(msg string) { r.ignores = append(r.ignores, msg) }

func newTestMock(t *testing.T, size int) (*Mock, *recordingHarness) {
	t.Helper()
	h := &recordingHarness{}
	m, err := New(config.Config{ArenaSize: size}, h, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return m, h
}

var _ harness.Harness = (*recordingHarness)(nil)
