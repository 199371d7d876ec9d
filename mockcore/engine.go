package mockcore

import "github.com/wdstat/statmock/arena"

// Pop/Spy Engine (spec.md §4.4): consumes the next poppable entry for
// declarator, dispatching by variant, and returns whatever payload the
// caller should observe. spy carries this call's observation data (may be
// nil/empty); it's recorded into the entry's call-data block regardless
// of variant.

// findPoppable scans the arena in order looking for the next poppable
// entry matching declarator. When enforceOrder is set, encountering any
// unconsumed entry for a *different* declarator before reaching the
// target is reported as out-of-order (spec.md §4.4 "enforce_order": a
// consumer may not skip ahead of mocks still waiting their turn).
func (m *Mock) findPoppable(declarator string) (int, Header, error) {
	a := m.arena
	buf := a.Bytes()
	id, known := a.Lookup(declarator)
	if !known {
		return 0, Header{}, newErr(arena.KindNoMoreMocks, declarator, "STAT-Mock: no mocks were ever registered for")
	}

	enforce := a.EnforceOrder()
	found := -1
	var foundHeader Header

	iterate(a, func(offset int, h Header) bool {
		if h.DeclID == id && isThisEntryPoppable(buf, offset, h) {
			found = offset
			foundHeader = h
			return false
		}
		if h.DeclID != id && enforce && !entryFullyConsumed(buf, offset, h) {
			found = -2 // sentinel: out-of-order
			foundHeader = h
			return false
		}
		return true
	})

	switch found {
	case -1:
		return 0, Header{}, newErr(arena.KindNoMoreMocks, declarator, "STAT-Mock: no more mocks available for")
	case -2:
		return 0, Header{}, newErr(arena.KindOutOfOrder, declarator, "STAT-Mock: call order violated, an earlier mock was skipped before")
	default:
		return found, foundHeader, nil
	}
}

// isThisEntryPoppable is poppable's real implementation, with buf access
// to read extended-meta use counts.
func isThisEntryPoppable(buf []byte, offset int, h Header) bool {
	switch {
	case IsPureSpy(h, offset):
		return false
	case IsOverride(h, offset):
		return true
	case HasExtendedMeta(h, offset):
		g := geometryOf(h, offset)
		ext := ReadExtMeta(buf, g.AfterCallback)
		if ext.Variant == VariantInfinite {
			return true
		}
		return ext.UsedCount < ext.UseCountTarget
	default:
		return h.CallOrder == 0
	}
}

// entryFullyConsumed is the complement used for order enforcement: an
// entry blocks enforcement only while it still has a usable pop left.
func entryFullyConsumed(buf []byte, offset int, h Header) bool {
	if IsPureSpy(h, offset) {
		return true
	}
	return !isThisEntryPoppable(buf, offset, h)
}

// Pop consumes the next poppable entry for declarator and returns its
// payload (nil for empty/override-with-nil-result). spy, if non-empty, is
// recorded as this call's observation data (spec.md §4.4 "pop").
func (m *Mock) Pop(declarator string, spy []byte) ([]byte, error) {
	offset, h, err := m.findPoppable(declarator)
	if err != nil {
		m.report(err)
		return nil, err
	}

	callOrder := m.arena.BumpCallCount()
	buf := m.arena.Bytes()

	switch {
	case IsOverride(h, offset):
		return m.popOverride(buf, offset, h, callOrder, spy)
	case HasExtendedMeta(h, offset):
		return m.popReusableOrInfinite(buf, offset, h, callOrder, spy)
	default:
		return m.popPrimitive(buf, offset, h, callOrder, spy)
	}
}

// popPrimitive consumes a one-shot entry. Its header call-order field is
// the canonical record of "when was this consumed" — it only moves to the
// call-data block if the arena-wide call counter has overflowed the
// header's natural width (spec.md §4.2).
func (m *Mock) popPrimitive(buf []byte, offset int, h Header, callOrder uint32, spy []byte) ([]byte, error) {
	overflow := callOrder >= m.arena.CallOrderMax()
	if overflow {
		setCallOrder(buf, offset, m.arena.CallOrderMax())
	} else {
		setCallOrder(buf, offset, callOrder)
	}
	if err := m.recordCallData(&h, offset, callOrder, spy, overflow); err != nil {
		m.report(err)
		return nil, err
	}
	payload := evaluatePayload(buf, h, offset)

	if h.HasCallback {
		cb, _ := m.arena.CallbackAt(readCallbackID(buf, offset)).(Callback)
		if cb != nil {
			cb(callOrder, payload, spy)
		}
	}
	return cloneBytes(payload), nil
}

// popReusableOrInfinite consumes a reusable/infinite entry. Because it may
// be popped many times, the header's single call-order field can't carry
// "the" call order — the call-data block always does instead.
func (m *Mock) popReusableOrInfinite(buf []byte, offset int, h Header, callOrder uint32, spy []byte) ([]byte, error) {
	g := geometryOf(h, offset)
	ext := ReadExtMeta(buf, g.AfterCallback)
	ext.UsedCount++
	WriteExtMeta(buf, g.AfterCallback, ext)

	if err := m.recordCallData(&h, offset, callOrder, spy, true); err != nil {
		m.report(err)
		return nil, err
	}
	payload := evaluatePayload(buf, h, offset)

	if h.HasCallback {
		cb, _ := m.arena.CallbackAt(readCallbackID(buf, offset)).(Callback)
		if cb != nil {
			cb(callOrder, payload, spy)
		}
	}
	return cloneBytes(payload), nil
}

// popOverride invokes the registered handler in place of any stored
// payload. Because it's repeatable, the header's call-order field is
// repurposed as a plain invocation counter (read by CountCalls); the true
// per-call order always lives in the call-data block.
func (m *Mock) popOverride(buf []byte, offset int, h Header, callOrder uint32, spy []byte) ([]byte, error) {
	setCallOrder(buf, offset, h.CallOrder+1)
	if err := m.recordCallData(&h, offset, callOrder, spy, true); err != nil {
		m.report(err)
		return nil, err
	}
	handler, _ := m.arena.CallbackAt(readCallbackID(buf, offset)).(Handler)
	var result []byte
	if handler != nil {
		result = handler(callOrder, spy)
	}
	return result, nil
}

func readCallbackID(buf []byte, entryOffset int) uint32 {
	return getU32(buf, entryOffset+HeaderSize)
}

func getU32(buf []byte, offset int) uint32 {
	return uint32(buf[offset]) | uint32(buf[offset+1])<<8 | uint32(buf[offset+2])<<16 | uint32(buf[offset+3])<<24
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// recordCallData lays down or reuses the call-data (spy) block for an
// entry, enforcing Invariant C1 (a reusable/infinite/override block's
// capacity, fixed at first use, never grows to fit a later, larger spy
// payload) and Invariant C2 (hasSpyData iff size > 0). extended forces
// the Extended call-data shape even if this pop's order would otherwise
// fit the entry header's narrow field.
func (m *Mock) recordCallData(h *Header, entryOffset int, callOrder uint32, spy []byte, extended bool) error {
	overflow := callOrder >= m.arena.CallOrderMax()
	buf := m.arena.Bytes()

	if !extended && !overflow {
		if len(spy) == 0 {
			return nil
		}
		off, err := m.arena.AllocHigh(len(spy), m.arena.DeclaratorAt(h.DeclID))
		if err != nil {
			return err
		}
		copy(buf[off:], spy)
		setCallDataOffset(buf, entryOffset, uint32(off))
		h.CallDataOffset = uint32(off)
		return nil
	}

	if h.CallDataOffset == 0 {
		off, err := m.arena.AllocHigh(CallDataHeaderSize+len(spy), m.arena.DeclaratorAt(h.DeclID))
		if err != nil {
			return err
		}
		WriteCallDataHeader(buf, off, CallDataHeader{
			CallOrder:  callOrder,
			HasSpyData: len(spy) > 0,
			Size:       uint32(len(spy)),
		})
		copy(buf[off+CallDataHeaderSize:], spy)
		setCallDataOffset(buf, entryOffset, uint32(off))
		h.CallDataOffset = uint32(off)
		return nil
	}

	existing := ReadCallDataHeader(buf, int(h.CallDataOffset))
	if uint32(len(spy)) > existing.Size {
		return newErr(arena.KindSpySizeInconsistent, m.arena.DeclaratorAt(h.DeclID),
			"STAT-Mock: spy data size grew across reuses of")
	}
	WriteCallDataHeader(buf, int(h.CallDataOffset), CallDataHeader{
		CallOrder:  callOrder,
		HasSpyData: len(spy) > 0,
		Size:       existing.Size,
	})
	copy(buf[int(h.CallDataOffset)+CallDataHeaderSize:], spy)
	return nil
}

// SpyOnly synthesizes an already-consumed entry purely to record an
// observation, with no corresponding registered mock (spec.md §4.3/§4.4
// "spy_only", the original's Stat_SpyOnWithoutMock). It never fails with
// NoMoreMocks/OutOfOrder — there's nothing to run out of.
func (m *Mock) SpyOnly(declarator string, spy []byte) error {
	callOrder := m.arena.BumpCallCount()
	offset, err := m.allocEntry(declarator, true, nil, nil, nil, nil)
	if err != nil {
		m.report(err)
		return err
	}
	buf := m.arena.Bytes()
	h := ReadHeader(buf, offset)
	err = m.recordCallData(&h, offset, callOrder, spy, true)
	m.report(err)
	return err
}
