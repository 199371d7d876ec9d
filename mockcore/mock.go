package mockcore

import (
	"github.com/wdstat/statmock/arena"
	"github.com/wdstat/statmock/config"
	"github.com/wdstat/statmock/harness"
	"github.com/wdstat/statmock/internal/statlog"
	"go.uber.org/zap"
)

// Callback is invoked after a mock is consumed, purely as an observer — it
// cannot change what Pop returns (spec.md §4.3, the original's
// STAT_MOCK_CALLBACK_T).
type Callback func(callOrder uint32, mock []byte, spy []byte)

// Handler replaces a mock's payload entirely: Pop returns whatever Handler
// produces (spec.md §4.3 "override", the original's STAT_MOCK_HANDLER_T).
// callOrder is the global sequence number of this particular invocation.
type Handler func(callOrder uint32, spy []byte) []byte

// Mock is the top-level facade: one Arena, one harness, one logger, wired
// together the way the teacher's SABInitializer/Logger pairing threads a
// validated config into a long-lived runtime object (kernel/threads/sab,
// kernel/utils.Logger).
type Mock struct {
	arena *arena.Arena
	h     harness.Harness
	log   *statlog.Logger
	cfg   config.Config
}

// New validates cfg, builds the backing arena, and returns a ready Mock.
// h receives every Fail/Ignore signal the core raises; log, if nil,
// produces no output.
func New(cfg config.Config, h harness.Harness, log *statlog.Logger) (*Mock, error) {
	a, err := arena.New(cfg)
	if err != nil {
		return nil, err
	}
	return &Mock{arena: a, h: h, log: log, cfg: cfg}, nil
}

// Reset clears the arena back to its initial empty state (spec.md §6,
// "between tests").
func (m *Mock) Reset() {
	m.arena.Reset()
	m.log.Debug("arena reset", zap.Int("size", m.arena.Size()))
}

// EnforceCallOrderTracking switches the Mock into strict consumption-order
// mode (spec.md §4.4 "enforce_order").
func (m *Mock) EnforceCallOrderTracking() { m.arena.SetEnforceOrder(true) }

// CeaseCallOrderTracking switches the Mock back to unordered consumption.
func (m *Mock) CeaseCallOrderTracking() { m.arena.SetEnforceOrder(false) }

// report routes a core failure to the harness, downgrading to Ignore when
// the Mock is configured for permissive validation (spec.md §4.4, §6).
func (m *Mock) report(err error) {
	if err == nil {
		return
	}
	if m.cfg.Permissive {
		m.log.Warn("permissive validation downgraded a failure", zap.Error(err))
		m.h.Ignore(err.Error())
		return
	}
	m.log.Warn("reporting failure to harness", zap.Error(err))
	m.h.Fail(err.Error())
}

// TearDown validates that every callable mock was consumed (spec.md §4.5
// "teardown validation"), reporting through the harness exactly as any
// other core failure would, and returns the error (nil on success) so a
// caller that isn't itself the harness can still inspect it.
func (m *Mock) TearDown() error {
	err := m.checkUnconsumed()
	if err != nil {
		m.report(err)
	}
	return err
}
