// Package arena implements the dual-ended, bump-allocated byte buffer that
// is the substrate of the mock core (spec.md §3 "Arena", §4.1).
//
// A single fixed-size []byte backs every entry header, mock payload, and
// spy/call-data block for one test. Mock records grow from offset 0
// upward (the "low" watermark); per-call observation blocks grow from the
// end of the buffer downward (the "high" watermark); the two watermarks
// must never cross (Invariant A1). Every offset handed out is a multiple
// of Align (Invariant A2).
//
// The arena carries no global state — mirroring spec.md §9's note that the
// C original's process-wide mutable control block should become an
// explicit context threaded through every call, not a singleton.
package arena

import (
	"fmt"

	"github.com/wdstat/statmock/config"
)

// Align is the alignment unit every allocation and offset is rounded to.
const Align = config.Alignment

// Kind identifies one of the error kinds spec.md §7 enumerates. Arena
// itself only ever raises KindOutOfSpace and KindUnaligned; the remaining
// kinds are raised by the mockcore package, which reuses this type so
// callers can type-switch uniformly.
type Kind int

const (
	KindOutOfSpace Kind = iota
	KindUnaligned
	KindNoMoreMocks
	KindOutOfOrder
	KindNotFound
	KindSpySizeInconsistent
	KindUnconsumedAtTeardown
)

// Error is a typed failure naming the declarator it was raised for, per
// spec.md §7 ("all emitted with the offending declarator name appended").
type Error struct {
	Kind       Kind
	Declarator string
	msg        string
}

func (e *Error) Error() string {
	if e.Declarator == "" {
		return e.msg
	}
	return fmt.Sprintf("%s %s", e.msg, e.Declarator)
}

func newError(kind Kind, declarator, msg string) *Error {
	return &Error{Kind: kind, Declarator: declarator, msg: msg}
}

// NewError constructs an Error of kind for declarator, for use by the
// mockcore package so every one of spec.md §7's seven error kinds is
// reported through this single type.
func NewError(kind Kind, declarator, msg string) *Error {
	return newError(kind, declarator, msg)
}

// Arena is the dual-watermark byte buffer. The zero value is not usable;
// construct with New.
type Arena struct {
	buf  []byte
	wide bool

	mockWatermark uint32 // next mock-entry allocation starts here
	callWatermark uint32 // next call-data allocation ends here; starts at len(buf)
	callCount     uint32
	enforceOrder  bool

	// declarators interns declarator strings by value, so that two
	// distinct Go string values with identical content compare equal —
	// matching the original's "bytewise string equality, not pointer
	// identity" (spec.md §9).
	declarators map[string]uint32
	declList    []string

	// callbacks and handlers can't be serialized as raw bytes the way a C
	// function pointer can; each callback- or handler-bearing entry stores a
	// fixed-size index into this side table instead of the function value
	// itself (spec.md §9 "Function-pointer callbacks").
	callbacks []any
}

// New constructs an Arena from cfg. The arena size is rounded down to a
// multiple of Align and must be positive.
func New(cfg config.Config) (*Arena, error) {
	size, err := cfg.Validate()
	if err != nil {
		return nil, err
	}
	a := &Arena{}
	a.buf = make([]byte, size)
	a.wide = config.WideFields(size)
	a.Reset()
	return a, nil
}

// Reset returns the arena to its initial state: both watermarks restored,
// call counter zeroed, declarator/callback side tables cleared. Idempotent.
func (a *Arena) Reset() {
	a.mockWatermark = 0
	a.callWatermark = uint32(len(a.buf))
	a.callCount = 0
	a.enforceOrder = false
	a.declarators = make(map[string]uint32)
	a.declList = a.declList[:0]
	a.callbacks = a.callbacks[:0]
	clear(a.buf)
}

// Size returns the total aligned arena size in bytes.
func (a *Arena) Size() int { return len(a.buf) }

// Wide reports whether this arena uses the wide (32-bit call-order) field
// class of spec.md §4.2.
func (a *Arena) Wide() bool { return a.wide }

// CallOrderMax returns the sentinel/overflow boundary for this arena's
// entry call-order field (spec.md §4.2).
func (a *Arena) CallOrderMax() uint32 {
	if a.wide {
		return ^uint32(0)
	}
	return (1 << 8) - 1
}

// FreeSpace returns the number of bytes still available between the two
// watermarks.
func (a *Arena) FreeSpace() int {
	return int(a.callWatermark) - int(a.mockWatermark)
}

// CallCount returns the current global call counter (0 until the first
// pop of this test).
func (a *Arena) CallCount() uint32 { return a.callCount }

// BumpCallCount increments and returns the new global call counter.
func (a *Arena) BumpCallCount() uint32 {
	a.callCount++
	return a.callCount
}

// EnforceOrder reports whether strict arena-wide consumption order is
// being enforced.
func (a *Arena) EnforceOrder() bool { return a.enforceOrder }

// SetEnforceOrder toggles strict consumption-order enforcement.
func (a *Arena) SetEnforceOrder(v bool) { a.enforceOrder = v }

func alignUp(size int) int {
	return (size + Align - 1) &^ (Align - 1)
}

// AlignUp rounds size up to the next multiple of Align.
func AlignUp(size int) int { return alignUp(size) }

// AllocLow allocates size bytes (rounded up to Align) from the low
// watermark, growing it upward, and returns the byte offset the block
// starts at. declarator is only used to annotate a failure.
func (a *Arena) AllocLow(size int, declarator string) (int, error) {
	n := alignUp(size)
	next := a.mockWatermark + uint32(n)
	if next > a.callWatermark {
		return 0, newError(KindOutOfSpace, declarator, "STAT-Mock: not enough space to add a new entry for")
	}
	offset := a.mockWatermark
	a.mockWatermark = next
	return int(offset), nil
}

// AllocHigh allocates size bytes (rounded up to Align) from the high
// watermark, shrinking it downward, and returns the byte offset the block
// starts at (i.e. the new watermark). declarator is only used to annotate
// a failure.
func (a *Arena) AllocHigh(size int, declarator string) (int, error) {
	n := alignUp(size)
	if uint32(n) > a.callWatermark {
		return 0, newError(KindOutOfSpace, declarator, "STAT-Mock: not enough space to add a new Call-Data (e.g. spy-data) for")
	}
	next := a.callWatermark - uint32(n)
	if next < a.mockWatermark {
		return 0, newError(KindOutOfSpace, declarator, "STAT-Mock: not enough space to add a new Call-Data (e.g. spy-data) for")
	}
	a.callWatermark = next
	return int(next), nil
}

// Bytes returns the raw backing buffer. Callers use this to read/write
// entry headers, payloads, and call-data blocks at specific offsets; the
// returned slice is only valid until the next Reset.
func (a *Arena) Bytes() []byte { return a.buf }

// MockWatermark returns the current low-region allocation boundary, in
// bytes. Entry iteration stops here.
func (a *Arena) MockWatermark() uint32 { return a.mockWatermark }

// Intern returns a stable id for declarator, comparing by value so that
// repeated uses of the same string content — even across distinct Go
// string values — map to the same id.
func (a *Arena) Intern(declarator string) uint32 {
	if id, ok := a.declarators[declarator]; ok {
		return id
	}
	id := uint32(len(a.declList))
	a.declList = append(a.declList, declarator)
	a.declarators[declarator] = id
	return id
}

// Lookup returns the id for declarator without interning it, and whether
// it has ever been seen by Intern.
func (a *Arena) Lookup(declarator string) (uint32, bool) {
	id, ok := a.declarators[declarator]
	return id, ok
}

// DeclaratorAt returns the interned string for id.
func (a *Arena) DeclaratorAt(id uint32) string {
	return a.declList[id]
}

// StoreCallback appends v (a Callback or Handler function value) to the
// side table and returns its index.
func (a *Arena) StoreCallback(v any) uint32 {
	id := uint32(len(a.callbacks))
	a.callbacks = append(a.callbacks, v)
	return id
}

// CallbackAt returns the function value stored at id.
func (a *Arena) CallbackAt(id uint32) any {
	return a.callbacks[id]
}
