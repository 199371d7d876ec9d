// Package mockcore implements the STAT-Mock record codec, mock registry,
// pop/spy engine, and read-only query surface (spec.md §4.2-§4.5) on top
// of the arena package.
//
// This file is the Record Codec (spec.md §4.2): header packing/unpacking,
// entry traversal, and variant detection. No allocation or mutation lives
// here — only the geometry of reading and writing fixed-shape records at
// a given byte offset in an *arena.Arena's backing buffer. This mirrors
// the teacher's kernel/threads/arena.BuddyAllocator.writeU32/getNextFree
// style of manual little-endian packing directly into a []byte.
package mockcore

import (
	"encoding/binary"

	"github.com/wdstat/statmock/arena"
)

// Fixed byte sizes of every record fragment the codec lays out. Unlike
// the original C bitfields (which shrink the header to save flash), the
// Go rendition always uses a uniform, generously-sized layout — offset
// economy isn't a concern here, so only the width-dependent behavior that
// spec.md's testable properties actually exercise (the entry call-order
// field and its CALL_ORDER_MAX sentinel) varies by arena size class.
const (
	// HeaderSize is the size in bytes of every entry header: one packed
	// word (next-entry offset, is-extended, call-data offset,
	// has-callback), one call-order word, and one declarator-id word.
	HeaderSize = 12

	// CallbackSlotSize is the size of the fixed-size side-table index that
	// stands in for a C function pointer wherever HasCallback is set.
	CallbackSlotSize = 4

	// ExtMetaSize is the size of the extended-meta fragment present on
	// reusable/infinite entries: variant tag, target use count, used count.
	ExtMetaSize = 12

	// CallDataHeaderSize is the size of the extended call-data header: the
	// true call order (used once the entry header's own call-order field
	// has overflowed), a has-spy-data flag, and the observed payload size.
	CallDataHeaderSize = 12

	// OverrideCounterSize is the size of a single raw invocation counter.
	// The engine does not use it: an override entry keeps its counter in
	// the header's call-order word and records each call in an Extended
	// call-data block.
	OverrideCounterSize = 4

	offsetFieldBits = 15
	offsetFieldMask = (1 << offsetFieldBits) - 1
)

// ExtendedVariant discriminates the two extended-meta record shapes.
type ExtendedVariant uint32

const (
	VariantReusable ExtendedVariant = iota
	VariantInfinite
)

// Header is the decoded form of an entry's packed metadata word plus its
// call-order and declarator-id words (spec.md §3 "Entry (mock record)").
type Header struct {
	NextOffset     uint32 // absolute byte offset of the next entry (stored in Align units)
	IsExtended     bool
	CallDataOffset uint32 // absolute byte offset of this entry's call-data block (stored in Align units); 0 if none
	HasCallback    bool
	CallOrder      uint32 // global call_count at last consumption; 0 until first consumed
	DeclID         uint32 // interned declarator id
}

// packWord0/unpackWord0 store NextOffset/CallDataOffset in Align-unit
// counts, not raw byte offsets (spec.md §4.2, Invariant A2: "every byte
// offset exchanged through metadata is a multiple of A"). This is what
// lets a 15-bit field address the full 4 × 2^15 = 128 KiB wide-regime
// arena instead of topping out at 32767 bytes.
func packWord0(h Header) uint32 {
	w := (h.NextOffset / arena.Align) & offsetFieldMask
	if h.IsExtended {
		w |= 1 << 15
	}
	w |= ((h.CallDataOffset / arena.Align) & offsetFieldMask) << 16
	if h.HasCallback {
		w |= 1 << 31
	}
	return w
}

func unpackWord0(w uint32) (nextOffset uint32, isExtended bool, callDataOffset uint32, hasCallback bool) {
	nextOffset = (w & offsetFieldMask) * arena.Align
	isExtended = w&(1<<15) != 0
	callDataOffset = ((w >> 16) & offsetFieldMask) * arena.Align
	hasCallback = w&(1<<31) != 0
	return
}

// WriteHeader serializes h at offset into buf.
func WriteHeader(buf []byte, offset int, h Header) {
	binary.LittleEndian.PutUint32(buf[offset:], packWord0(h))
	binary.LittleEndian.PutUint32(buf[offset+4:], h.CallOrder)
	binary.LittleEndian.PutUint32(buf[offset+8:], h.DeclID)
}

// ReadHeader decodes the header stored at offset in buf.
func ReadHeader(buf []byte, offset int) Header {
	w0 := binary.LittleEndian.Uint32(buf[offset:])
	next, ext, cd, hasCB := unpackWord0(w0)
	return Header{
		NextOffset:     next,
		IsExtended:     ext,
		CallDataOffset: cd,
		HasCallback:    hasCB,
		CallOrder:      binary.LittleEndian.Uint32(buf[offset+4:]),
		DeclID:         binary.LittleEndian.Uint32(buf[offset+8:]),
	}
}

// setCallOrder rewrites only the call-order word of the header at offset.
func setCallOrder(buf []byte, offset int, callOrder uint32) {
	binary.LittleEndian.PutUint32(buf[offset+4:], callOrder)
}

// setCallDataOffset rewrites only the call-data-offset bits of the packed
// word at offset, leaving next/isExtended/hasCallback untouched. Like
// packWord0, the stored value is in Align units, not raw bytes.
func setCallDataOffset(buf []byte, offset int, callDataOffset uint32) {
	w0 := binary.LittleEndian.Uint32(buf[offset:])
	w0 &^= offsetFieldMask << 16
	w0 |= ((callDataOffset / arena.Align) & offsetFieldMask) << 16
	binary.LittleEndian.PutUint32(buf[offset:], w0)
}

// ExtMeta is the reusable/infinite variant's extra header fragment.
type ExtMeta struct {
	Variant        ExtendedVariant
	UseCountTarget uint32
	UsedCount      uint32
}

func WriteExtMeta(buf []byte, offset int, m ExtMeta) {
	binary.LittleEndian.PutUint32(buf[offset:], uint32(m.Variant))
	binary.LittleEndian.PutUint32(buf[offset+4:], m.UseCountTarget)
	binary.LittleEndian.PutUint32(buf[offset+8:], m.UsedCount)
}

func ReadExtMeta(buf []byte, offset int) ExtMeta {
	return ExtMeta{
		Variant:        ExtendedVariant(binary.LittleEndian.Uint32(buf[offset:])),
		UseCountTarget: binary.LittleEndian.Uint32(buf[offset+4:]),
		UsedCount:      binary.LittleEndian.Uint32(buf[offset+8:]),
	}
}

func setUsedCount(buf []byte, offset int, usedCount uint32) {
	binary.LittleEndian.PutUint32(buf[offset+4:], usedCount)
}

// CallDataHeader is the extended call-data block's leading fragment
// (spec.md §3 "Call-data block", Extended shape). It's used whenever the
// entry is extended, or whenever the entry header's own call-order field
// would overflow (spec.md §4.2: the header then carries the CallOrderMax
// sentinel and the true order lives here instead).
type CallDataHeader struct {
	CallOrder  uint32
	HasSpyData bool
	Size       uint32
}

func WriteCallDataHeader(buf []byte, offset int, h CallDataHeader) {
	binary.LittleEndian.PutUint32(buf[offset:], h.CallOrder)
	flag := uint32(0)
	if h.HasSpyData {
		flag = 1
	}
	binary.LittleEndian.PutUint32(buf[offset+4:], flag)
	binary.LittleEndian.PutUint32(buf[offset+8:], h.Size)
}

func ReadCallDataHeader(buf []byte, offset int) CallDataHeader {
	return CallDataHeader{
		CallOrder:  binary.LittleEndian.Uint32(buf[offset:]),
		HasSpyData: binary.LittleEndian.Uint32(buf[offset+4:]) != 0,
		Size:       binary.LittleEndian.Uint32(buf[offset+8:]),
	}
}

// geometry captures the byte offsets that separate an entry's optional
// fragments, used to detect which of the five record variants an entry
// is without a discriminant tag (spec.md §4.2 "Variant detection").
type geometry struct {
	AfterHeader   int
	AfterCallback int
	AfterExtMeta  int
	EntryEnd      int
}

func geometryOf(h Header, entryOffset int) geometry {
	afterHeader := entryOffset + HeaderSize
	afterCallback := afterHeader
	if h.HasCallback {
		afterCallback += CallbackSlotSize
	}
	return geometry{
		AfterHeader:   afterHeader,
		AfterCallback: afterCallback,
		AfterExtMeta:  afterCallback + ExtMetaSize,
		EntryEnd:      int(h.NextOffset),
	}
}

// IsPrimitive reports the primitive variant: a plain Add/AddReusable-less
// mock, not extended at all.
func IsPrimitive(h Header) bool { return !h.IsExtended }

// IsPureSpy reports the spy-only variant: extended, no callback, no
// extended meta, no payload.
func IsPureSpy(h Header, entryOffset int) bool {
	g := geometryOf(h, entryOffset)
	return h.IsExtended && g.AfterHeader == g.EntryEnd
}

// IsOverride reports the override variant: extended, has a callback slot
// (which holds the handler), nothing else.
func IsOverride(h Header, entryOffset int) bool {
	g := geometryOf(h, entryOffset)
	return h.IsExtended && h.HasCallback && g.AfterCallback == g.EntryEnd
}

// HasExtendedMeta reports whether this is a reusable/infinite entry: it's
// extended and there's more past the optional callback slot.
func HasExtendedMeta(h Header, entryOffset int) bool {
	g := geometryOf(h, entryOffset)
	return h.IsExtended && g.AfterCallback != g.EntryEnd
}

// payloadStart returns the byte offset the mock payload begins at for an
// entry whose geometry is known.
func payloadStart(h Header, entryOffset int) int {
	g := geometryOf(h, entryOffset)
	if HasExtendedMeta(h, entryOffset) {
		return g.AfterExtMeta
	}
	return g.AfterCallback
}

// evaluatePayload returns the payload slice for an entry, or nil if the
// payload would be zero-length or would extend past the entry's end
// (spec.md §4.4 "Stat_EvaluateMock").
func evaluatePayload(buf []byte, h Header, entryOffset int) []byte {
	start := payloadStart(h, entryOffset)
	g := geometryOf(h, entryOffset)
	if start >= g.EntryEnd {
		return nil
	}
	return buf[start:g.EntryEnd]
}

// nextEntry returns the byte offset of the entry following h.
func nextEntry(h Header) int { return int(h.NextOffset) }

// iterate walks every entry header in arena order, starting at offset 0,
// stopping once the next entry address would reach the mock watermark
// (spec.md §4.2 "Traversal").
func iterate(a *arena.Arena, visit func(offset int, h Header) bool) {
	buf := a.Bytes()
	offset := 0
	for offset < int(a.MockWatermark()) {
		h := ReadHeader(buf, offset)
		if !visit(offset, h) {
			return
		}
		offset = nextEntry(h)
	}
}
