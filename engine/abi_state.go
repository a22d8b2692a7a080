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

// Space/state runtime ABI, grounded on spec.md §4.B's "new-state/get/
// change" family: a mutable single-slot cell distinct from the otherwise
// immutable Cons/String/Closure heap records. Rather than add a fourth
// heap-backed tag to Value (spec.md §3's tag space is already fully
// assigned — see engine/value.go), a state cell reuses Cons: Car holds
// the current payload, Cdr is unused. engine/heap.go's SetCar is the one
// piece of in-place heap mutation this system allows, added specifically
// to support this opcode family.

// abiNewState allocates a fresh mutable state cell holding init.
func abiNewState(ctx *JitContext, init Value, ip int32) (Value, Signal) {
	return ctx.Heap.NewCons(init, NewNil()), SigOK
}

// abiStateGet reads a state cell's current value. Bails with
// BailoutTypeMismatch if handle isn't a state/cons handle — the same
// failure mode abiCar/abiCdr use for a non-cons argument.
func abiStateGet(ctx *JitContext, handle Value, ip int32) (Value, Signal) {
	if handle.GetTag() != TagCons {
		return NewNil(), ctx.bailout(ip, BailoutTypeMismatch)
	}
	return ctx.Heap.Cons(handle).Car, SigOK
}

// abiStateChange mutates a state cell's value in place and returns the
// canonical unit value, per spec.md's "statements executed purely for
// effect have nothing meaningful to push" convention (engine/value.go's
// NewUnit doc comment).
func abiStateChange(ctx *JitContext, handle, newValue Value, ip int32) (Value, Signal) {
	if handle.GetTag() != TagCons {
		return NewNil(), ctx.bailout(ip, BailoutTypeMismatch)
	}
	ctx.Heap.SetCar(handle, newValue)
	return NewUnit(), SigOK
}
