/*
Copyright (C) 2024-2026  Carl-Philip Hänsch

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/
package engine

import (
	"math"
	"strconv"
)

// Value is a NaN-boxed 64-bit word. Doubles are stored as their raw IEEE754
// bits whenever that bit pattern is not a quiet NaN. Every other payload is
// packed into a quiet-NaN shell: the high 16 bits (48-63) hold the quiet-NaN
// marker 0x7FF8 with the tag's low three bits in bits 48-50 and its bit 3 in
// the sign bit (63), and a 48-bit payload sits below them. Tags 0-15 fit.
type Value uint64

const (
	qnanMask uint64 = 0x7FF8_0000_0000_0000
	tagMask  uint64 = 0xFFFF_0000_0000_0000
	payMask  uint64 = 0x0000_FFFF_FFFF_FFFF
)

// Tag identifies the dynamic type packed into a boxed Value.
type Tag uint16

const (
	TagFloat  Tag = 0 // never actually stored; float64s that are not NaN carry no tag
	TagNil    Tag = 1
	TagBool   Tag = 2
	TagInt    Tag = 3
	TagSymbol Tag = 4
	TagString Tag = 5
	TagCons   Tag = 6
	TagAtom   Tag = 7
	TagNative Tag = 8 // native-compiled entry point, see entry.go
	TagUnit    Tag = 9  // the zero-information "done" value distinct from Nil (spec.md §3)
	TagVar     Tag = 10 // unbound pattern-variable id, distinct from an interned symbol
	TagError   Tag = 11 // heap pointer plus error discriminator (spec.md §3, §7)
	TagClosure Tag = 12 // heap pointer to a Closure (captured chunk + upvalues)
)

func box(tag Tag, payload uint64) Value {
	hi := qnanMask | uint64(tag&7)<<48 | uint64(tag&8)<<60
	return Value(hi | (payload & payMask))
}

// GetTag returns the dynamic type of v. A plain (non-NaN-boxed) double
// reports TagFloat.
func (v Value) GetTag() Tag {
	bits := uint64(v)
	if bits&qnanMask != qnanMask {
		return TagFloat
	}
	// A real NaN payload (not one of ours) still decodes to *some* tag;
	// producers never emit raw NaNs outside this package so this is safe.
	hi := (bits & tagMask) >> 48
	return Tag(hi&7 | (hi>>12)&8)
}

func (v Value) payload() uint64 { return uint64(v) & payMask }

// NewNil returns the canonical nil value.
func NewNil() Value { return box(TagNil, 0) }

// NewBool boxes a boolean.
func NewBool(b bool) Value {
	if b {
		return box(TagBool, 1)
	}
	return box(TagBool, 0)
}

// NewInt boxes a 48-bit signed integer. Values outside that range lose bits,
// matching the fixed-width contract in SPEC_FULL.md.
func NewInt(i int64) Value {
	return box(TagInt, uint64(i)&payMask)
}

// NewFloat returns the IEEE754 bit pattern directly unless it happens to be
// one of our boxed shells, in which case it is normalized to a quiet NaN
// with TagFloat's reserved all-zero tag so GetTag still reports TagFloat.
func NewFloat(f float64) Value {
	bits := math.Float64bits(f)
	if bits&qnanMask == qnanMask {
		bits = math.Float64bits(math.NaN())
	}
	return Value(bits)
}

// NewSymbol boxes an interned symbol id.
func NewSymbol(id uint32) Value { return box(TagSymbol, uint64(id)) }

// NewStringRef boxes a handle into the string/atom heap.
func NewStringRef(id uint32) Value { return box(TagString, uint64(id)) }

// NewConsRef boxes a handle into the cons-cell heap.
func NewConsRef(id uint32) Value { return box(TagCons, uint64(id)) }

// NewAtomRef boxes a handle into an external Space (spec.md §6).
func NewAtomRef(id uint64) Value { return box(TagAtom, id) }

// NewUnit returns the canonical "no value" result distinct from Nil —
// produced by statements executed purely for effect (space mutation,
// binding-frame push/pop) that have nothing meaningful to push.
func NewUnit() Value { return box(TagUnit, 0) }

// NewVar boxes an unbound pattern-variable id, distinct from TagSymbol's
// interned-identifier space (spec.md §3's Var tag).
func NewVar(id uint32) Value { return box(TagVar, uint64(id)) }

// NewErrorRef boxes a heap-allocated error record plus a small
// discriminator identifying its kind, read back with ErrorKind.
func NewErrorRef(heapID uint32, kind uint16) Value {
	return box(TagError, uint64(kind)<<32|uint64(heapID))
}

func (v Value) IsNil() bool  { return v.GetTag() == TagNil }
func (v Value) IsUnit() bool { return v.GetTag() == TagUnit }
func (v Value) IsBool() bool { return v.GetTag() == TagBool }
func (v Value) IsInt() bool  { return v.GetTag() == TagInt }
func (v Value) IsFloat() bool {
	return v.GetTag() == TagFloat
}
func (v Value) IsVar() bool   { return v.GetTag() == TagVar }
func (v Value) IsError() bool { return v.GetTag() == TagError }

// IsHeap reports whether v's payload is an index into the shared Heap
// (spec.md §3/§4.A's generic "is_heap(v)" operation) rather than an
// immediate value packed directly into the 48-bit payload. Callers that
// don't care which concrete heap-backed shape they're holding — generic
// tracing, equality, GC-less lifetime reasoning — test this instead of
// enumerating TagString/TagCons/TagClosure themselves.
func (v Value) IsHeap() bool {
	switch v.GetTag() {
	case TagString, TagCons, TagClosure:
		return true
	default:
		return false
	}
}

// HeapPtr returns v's raw Heap index plus ok=true when IsHeap(v); the
// generic "heap_ptr(v)" counterpart to IsHeap, returning the same 48-bit
// payload every NewStringRef/NewConsRef/box(TagClosure,...) constructor
// packs, just without requiring the caller to already know the tag.
func (v Value) HeapPtr() (idx uint32, ok bool) {
	if !v.IsHeap() {
		return 0, false
	}
	return uint32(v.payload()), true
}

func (v Value) VarID() uint32     { return uint32(v.payload()) }
func (v Value) ErrorHeapID() uint32 { return uint32(v.payload() & 0xFFFFFFFF) }
func (v Value) ErrorKind() uint16   { return uint16(v.payload() >> 32) }

func (v Value) Bool() bool { return v.payload() != 0 }

func (v Value) Int() int64 {
	p := v.payload()
	if p&(1<<47) != 0 {
		// sign-extend from bit 47
		p |= ^payMask
	}
	return int64(p)
}

func (v Value) Float() float64 { return math.Float64frombits(uint64(v)) }

func (v Value) SymbolID() uint32 { return uint32(v.payload()) }
func (v Value) StringID() uint32 { return uint32(v.payload()) }
func (v Value) ConsID() uint32   { return uint32(v.payload()) }
func (v Value) AtomID() uint64   { return v.payload() }

// ToBool applies the truthiness rule used by guards and conditional jumps:
// nil and boolean-false are false, everything else (including 0 and "") is
// true.
func (v Value) ToBool() bool {
	switch v.GetTag() {
	case TagNil:
		return false
	case TagBool:
		return v.Bool()
	default:
		return true
	}
}

func (v Value) String() string {
	switch v.GetTag() {
	case TagNil:
		return "nil"
	case TagBool:
		if v.Bool() {
			return "true"
		}
		return "false"
	case TagInt:
		return strconv.FormatInt(v.Int(), 10)
	case TagFloat:
		return strconv.FormatFloat(v.Float(), 'g', -1, 64)
	case TagSymbol:
		return "#sym:" + strconv.FormatUint(uint64(v.SymbolID()), 10)
	case TagString:
		return "#str:" + strconv.FormatUint(uint64(v.StringID()), 10)
	case TagCons:
		return "#cons:" + strconv.FormatUint(uint64(v.ConsID()), 10)
	case TagAtom:
		return "#atom:" + strconv.FormatUint(v.AtomID(), 10)
	case TagUnit:
		return "#unit"
	case TagVar:
		return "#var:" + strconv.FormatUint(uint64(v.VarID()), 10)
	case TagError:
		return "#error:" + strconv.FormatUint(uint64(v.ErrorKind()), 10)
	default:
		return "#unknown"
	}
}
