package mockcore

import (
	"github.com/wdstat/statmock/arena"
	"go.uber.org/multierr"
)

// Query Surface (spec.md §4.5): read-only inspection of what's registered
// and what's been consumed, plus the teardown validation every test run
// finishes with.

// Handle identifies one specific entry, obtained via GetHandle, so
// repeated queries about the same entry don't have to re-scan the arena.
type Handle struct {
	offset int
	valid  bool
}

// GetHandle returns a Handle for the occurrence'th (0-indexed) consumption
// registered for declarator, in arena order (spec.md §4.5 "get_handle",
// the original's Stat_GetMockHandle). A primitive, pure-spy, or override
// entry occupies exactly one index step. A reusable/infinite entry
// occupies one step per consumption so far — the same entry is returned
// for each of its occurrence indices in turn.
func (m *Mock) GetHandle(declarator string, occurrence int) (Handle, error) {
	a := m.arena
	id, known := a.Lookup(declarator)
	if !known {
		return Handle{}, newErr(arena.KindNotFound, declarator, "STAT-Mock: no mock was ever registered for")
	}
	buf := a.Bytes()
	countDown := occurrence
	result := Handle{}
	iterate(a, func(offset int, h Header) bool {
		if h.DeclID != id {
			return true
		}
		if HasExtendedMeta(h, offset) {
			g := geometryOf(h, offset)
			callCount := int(ReadExtMeta(buf, g.AfterCallback).UsedCount)
			if callCount > countDown {
				result = Handle{offset: offset, valid: true}
				return false
			}
			countDown -= callCount
			return true
		}
		if countDown == 0 {
			result = Handle{offset: offset, valid: true}
			return false
		}
		countDown--
		return true
	})
	if !result.valid {
		return Handle{}, newErr(arena.KindNotFound, declarator, "STAT-Mock: no such occurrence registered for")
	}
	return result, nil
}

// GetMockData returns the payload the entry behind h was registered with
// (not its spy data), regardless of whether it's been consumed yet.
func (m *Mock) GetMockData(h Handle) ([]byte, error) {
	if !h.valid {
		return nil, newErr(arena.KindNotFound, "", "STAT-Mock: invalid handle")
	}
	buf := m.arena.Bytes()
	hdr := ReadHeader(buf, h.offset)
	return cloneBytes(evaluatePayload(buf, hdr, h.offset)), nil
}

// GetSpyData returns the most recently recorded observation data for the
// entry behind h, or nil if it's never been popped or was popped without
// any spy bytes (spec.md §4.5 "get_spy_data": "null if none were
// recorded" — an unconsumed/spy-less entry is not an error).
func (m *Mock) GetSpyData(h Handle) ([]byte, error) {
	if !h.valid {
		return nil, newErr(arena.KindNotFound, "", "STAT-Mock: invalid handle")
	}
	buf := m.arena.Bytes()
	hdr := ReadHeader(buf, h.offset)
	if hdr.CallDataOffset == 0 {
		return nil, nil
	}
	if !m.usesExtendedCallData(hdr) {
		// Compact shape: the whole block is raw spy bytes.
		return cloneBytes(buf[hdr.CallDataOffset:]), nil
	}
	cd := ReadCallDataHeader(buf, int(hdr.CallDataOffset))
	if !cd.HasSpyData {
		return nil, nil
	}
	start := int(hdr.CallDataOffset) + CallDataHeaderSize
	return cloneBytes(buf[start : start+int(cd.Size)]), nil
}

// GetCallOrder returns the global call order the entry behind h was last
// consumed at, or 0 if it's never been popped.
func (m *Mock) GetCallOrder(h Handle) (uint32, error) {
	if !h.valid {
		return 0, newErr(arena.KindNotFound, "", "STAT-Mock: invalid handle")
	}
	buf := m.arena.Bytes()
	hdr := ReadHeader(buf, h.offset)
	if hdr.CallDataOffset != 0 && m.usesExtendedCallData(hdr) {
		cd := ReadCallDataHeader(buf, int(hdr.CallDataOffset))
		return cd.CallOrder, nil
	}
	return hdr.CallOrder, nil
}

// usesExtendedCallData reports whether an entry's true call order/spy
// data lives in an Extended call-data block rather than the header's own
// fields — true for every extended entry (pure spy, override,
// reusable/infinite, which can't fit "the" order in a single header word)
// and for any primitive entry whose call order overflowed the header's
// field (spec.md §4.2).
func (m *Mock) usesExtendedCallData(h Header) bool {
	return h.IsExtended || h.CallOrder == m.arena.CallOrderMax()
}

// CountCalls returns how many times declarator has been popped in total,
// across every entry registered for it (spec.md §4.5 "count_calls").
func (m *Mock) CountCalls(declarator string) uint32 {
	a := m.arena
	id, known := a.Lookup(declarator)
	if !known {
		return 0
	}
	buf := a.Bytes()
	var total uint32
	iterate(a, func(offset int, h Header) bool {
		if h.DeclID != id {
			return true
		}
		switch {
		case IsOverride(h, offset):
			total += h.CallOrder // repurposed as an invocation counter, see engine.go
		case HasExtendedMeta(h, offset):
			g := geometryOf(h, offset)
			total += ReadExtMeta(buf, g.AfterCallback).UsedCount
		case h.CallOrder != 0:
			total++
		}
		return true
	})
	return total
}

// CountCallables returns the total expected number of uses registered for
// declarator, across every entry (spec.md §4.5 "count_callables", the
// original's Stat_CountCallables): primitive and spy-only entries count 1
// each, reusable counts its use_count_target, infinite counts its
// used_count so far (past uses only), and override counts 1.
func (m *Mock) CountCallables(declarator string) uint32 {
	a := m.arena
	id, known := a.Lookup(declarator)
	if !known {
		return 0
	}
	buf := a.Bytes()
	var total uint32
	iterate(a, func(offset int, h Header) bool {
		if h.DeclID != id {
			return true
		}
		if HasExtendedMeta(h, offset) {
			g := geometryOf(h, offset)
			ext := ReadExtMeta(buf, g.AfterCallback)
			if ext.Variant == VariantInfinite {
				total += ext.UsedCount
			} else {
				total += ext.UseCountTarget
			}
			return true
		}
		total++ // primitive, pure-spy, and override all count 1
		return true
	})
	return total
}

// HasMocks reports whether any entry has ever been registered for
// declarator.
func (m *Mock) HasMocks(declarator string) bool {
	_, known := m.arena.Lookup(declarator)
	return known
}

// HasUnconsumedMocks reports whether any registered mock, for any
// declarator, still has a pending (never-run) call (spec.md §4.5
// "has_unconsumed_mocks").
func (m *Mock) HasUnconsumedMocks() bool {
	found := false
	iterate(m.arena, func(offset int, h Header) bool {
		if isUnconsumedForTeardown(m.arena.Bytes(), offset, h) {
			found = true
			return false
		}
		return true
	})
	return found
}

// FindAnyUnconsumed returns the declarator name of the first still-pending
// mock in arena order, for diagnostic reporting (spec.md §4.5
// "find_any_unconsumed").
func (m *Mock) FindAnyUnconsumed() (string, bool) {
	decl := ""
	found := false
	iterate(m.arena, func(offset int, h Header) bool {
		if isUnconsumedForTeardown(m.arena.Bytes(), offset, h) {
			decl = m.arena.DeclaratorAt(h.DeclID)
			found = true
			return false
		}
		return true
	})
	return decl, found
}

// isUnconsumedForTeardown decides whether an entry should block teardown.
// Infinite entries and overrides are permanent/optional and never block it
// (spec.md §4.3): there's no obligation to ever call them.
func isUnconsumedForTeardown(buf []byte, offset int, h Header) bool {
	switch {
	case IsPureSpy(h, offset), IsOverride(h, offset):
		return false
	case HasExtendedMeta(h, offset):
		g := geometryOf(h, offset)
		ext := ReadExtMeta(buf, g.AfterCallback)
		if ext.Variant == VariantInfinite {
			return false
		}
		return ext.UsedCount < ext.UseCountTarget
	default:
		return h.CallOrder == 0
	}
}

// checkUnconsumed is TearDown's validation step (spec.md §4.5, §7
// "UnconsumedAtTeardown"). Every still-pending declarator is collected and
// combined into a single diagnostic via multierr, rather than reporting
// only the first one found, so a failing teardown names everything that
// needs fixing in one pass.
func (m *Mock) checkUnconsumed() error {
	seen := make(map[string]bool)
	var errs []error
	iterate(m.arena, func(offset int, h Header) bool {
		if !isUnconsumedForTeardown(m.arena.Bytes(), offset, h) {
			return true
		}
		decl := m.arena.DeclaratorAt(h.DeclID)
		if seen[decl] {
			return true
		}
		seen[decl] = true
		errs = append(errs, newErr(arena.KindUnconsumedAtTeardown, decl, "STAT-Mock: mock(s) left unconsumed at teardown for"))
		return true
	})
	return multierr.Combine(errs...)
}
