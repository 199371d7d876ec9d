// Package config carries the two build-time knobs the original STAT-Mock
// framework wired through preprocessor defines (spec.md §6): the arena size
// and the permissive-validation mode. Here they're plain constructor
// arguments instead of compile-time macros, following the teacher's
// validate-then-construct pattern (kernel/threads/sab.NewSABInitializer,
// kernel/utils.LoggerConfig).
package config

import "fmt"

// Alignment is the maximal natural alignment of structures the arena
// supports (spec.md §3, "typically 4 bytes").
const Alignment = 4

// widthThreshold is the ARENA_SIZE boundary (spec.md §4.2) above which the
// entry call-order field switches from 8-bit to 32-bit range. The codec's
// offset fields are 15 bits wide on both sides of the boundary.
const widthThreshold = 4 << 11 // 8192

// Config configures one Mock instance.
type Config struct {
	// ArenaSize is the number of bytes backing the arena. It is rounded
	// down to a multiple of Alignment. Must be > 0 after rounding.
	ArenaSize int

	// Permissive, when true, downgrades every core failure to a harness
	// "ignore" signal instead of "fail" (spec.md §4.4, §6).
	Permissive bool
}

// Validate checks ArenaSize is usable and returns the aligned size.
func (c Config) Validate() (alignedSize int, err error) {
	alignedSize = (c.ArenaSize / Alignment) * Alignment
	if alignedSize <= 0 {
		return 0, fmt.Errorf("statmock: config: ARENA_SIZE %d rounds down to %d, must be > 0", c.ArenaSize, alignedSize)
	}
	return alignedSize, nil
}

// WideFields reports whether the given aligned arena size requires the
// wide (32-bit call-order) field class described in spec.md §4.2.
func WideFields(alignedSize int) bool {
	return alignedSize > widthThreshold
}

// CallOrderMax returns the natural maximum (and overflow sentinel) for the
// entry header's call-order field at the given arena size, per spec.md
// §4.2: 2^8-1 for the narrow layout, 2^32-1 for the wide one.
func CallOrderMax(alignedSize int) uint32 {
	if WideFields(alignedSize) {
		return ^uint32(0)
	}
	return (1 << 8) - 1
}
