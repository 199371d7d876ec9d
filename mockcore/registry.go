package mockcore

import (
	"github.com/wdstat/statmock/arena"
	"go.uber.org/multierr"
)

// Mock Registry: the Add* family (spec.md §4.3) appends entries at the
// arena's low watermark. Every entry is laid out header-first, optional
// callback slot second, optional extended-meta third, payload last — the
// same fixed order Stat_AllocateMockEntry/Stat_AllocateEntry build in the
// original, just without the bitfield packing.

func (m *Mock) allocEntry(declarator string, extended bool, cb, handler any, ext *ExtMeta, payload []byte) (int, error) {
	a := m.arena
	id := a.Intern(declarator)

	hasCB := cb != nil || handler != nil
	size := HeaderSize
	if hasCB {
		size += CallbackSlotSize
	}
	if ext != nil {
		size += ExtMetaSize
	}
	size += len(payload)

	offset, err := a.AllocLow(size, declarator)
	if err != nil {
		return 0, err
	}
	entryEnd := offset + arena.AlignUp(size)

	var cbID uint32
	if hasCB {
		if handler != nil {
			cbID = a.StoreCallback(handler)
		} else {
			cbID = a.StoreCallback(cb)
		}
	}

	WriteHeader(a.Bytes(), offset, Header{
		NextOffset:  uint32(entryEnd),
		IsExtended:  extended,
		HasCallback: hasCB,
		DeclID:      id,
	})

	pos := offset + HeaderSize
	if hasCB {
		buf := a.Bytes()
		for i := 0; i < CallbackSlotSize; i++ {
			buf[pos+i] = 0
		}
		putU32(buf, pos, cbID)
		pos += CallbackSlotSize
	}
	if ext != nil {
		WriteExtMeta(a.Bytes(), pos, *ext)
		pos += ExtMetaSize
	}
	if len(payload) > 0 {
		copy(a.Bytes()[pos:], payload)
	}

	return offset, nil
}

func putU32(buf []byte, offset int, v uint32) {
	buf[offset] = byte(v)
	buf[offset+1] = byte(v >> 8)
	buf[offset+2] = byte(v >> 16)
	buf[offset+3] = byte(v >> 24)
}

// Add registers a one-shot mock: declarator will yield payload exactly
// once, optionally notifying cb after it's popped.
func (m *Mock) Add(declarator string, payload []byte, cb Callback) error {
	var cbAny any
	if cb != nil {
		cbAny = cb
	}
	_, err := m.allocEntry(declarator, false, cbAny, nil, nil, payload)
	m.report(err)
	return err
}

// AddEmpty registers a one-shot mock with no payload — useful purely to
// count and order a call (spec.md §4.3 "add_empty").
func (m *Mock) AddEmpty(declarator string, cb Callback) error {
	return m.Add(declarator, nil, cb)
}

// AddMany registers len(payloads) one-shot mocks for declarator in a
// single call, each entry holding its own distinct payload so consecutive
// pops see distinct data (spec.md §4.3 "add_many", carrying forward the
// original's Stat_AddManyMocks "distinct payload per call" behavior).
func (m *Mock) AddMany(declarator string, payloads [][]byte, cb Callback) error {
	var errs []error
	for _, p := range payloads {
		if err := m.Add(declarator, p, cb); err != nil {
			errs = append(errs, err)
		}
	}
	return multierr.Combine(errs...)
}

// AddIdentical is explicitly unsupported (Open Question decision, see
// DESIGN.md): the original's STAT_ADD_IDENTICAL_MOCKS macro has no
// rendition here.
func (m *Mock) AddIdentical(declarator string, payload []byte, count int) error {
	m.report(ErrNotSupported)
	return ErrNotSupported
}

// AddReusable registers a mock that survives useCount pops, re-serving
// the same payload and reusing its call-data block across every reuse,
// with the block's capacity fixed at first use and never growing (spec.md
// Invariant C1; spec.md §4.3 "add_reusable").
func (m *Mock) AddReusable(declarator string, payload []byte, useCount uint32, cb Callback) error {
	var cbAny any
	if cb != nil {
		cbAny = cb
	}
	ext := ExtMeta{Variant: VariantReusable, UseCountTarget: useCount}
	_, err := m.allocEntry(declarator, true, cbAny, nil, &ext, payload)
	m.report(err)
	return err
}

// AddInfinite registers a mock with no reuse limit (spec.md §4.3
// "add_infinite").
func (m *Mock) AddInfinite(declarator string, payload []byte, cb Callback) error {
	var cbAny any
	if cb != nil {
		cbAny = cb
	}
	ext := ExtMeta{Variant: VariantInfinite}
	_, err := m.allocEntry(declarator, true, cbAny, nil, &ext, payload)
	m.report(err)
	return err
}

// Override replaces every pop of declarator with handler's return value
// for as long as the test runs (spec.md §4.3 "override").
func (m *Mock) Override(declarator string, handler Handler) error {
	_, err := m.allocEntry(declarator, true, nil, handler, nil, nil)
	m.report(err)
	return err
}
