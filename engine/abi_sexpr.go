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

// S-expression / list runtime ABI helpers, grounded on _scm_ref/list.go's
// cons/car/cdr/append family.

func abiCons(ctx *JitContext, car, cdr Value, ip int32) (Value, Signal) {
	return ctx.Heap.NewCons(car, cdr), SigOK
}

func abiCar(ctx *JitContext, v Value, ip int32) (Value, Signal) {
	if v.GetTag() != TagCons {
		return NewNil(), ctx.bailout(ip, BailoutTypeMismatch)
	}
	return ctx.Heap.Cons(v).Car, SigOK
}

func abiCdr(ctx *JitContext, v Value, ip int32) (Value, Signal) {
	if v.GetTag() != TagCons {
		return NewNil(), ctx.bailout(ip, BailoutTypeMismatch)
	}
	return ctx.Heap.Cons(v).Cdr, SigOK
}

// abiListLen walks a proper cons list and returns its length, or fails if
// v is not nil-terminated (matching _scm_ref/list.go's strict `count`).
func abiListLen(ctx *JitContext, v Value, ip int32) (Value, Signal) {
	n := int64(0)
	cur := v
	for cur.GetTag() == TagCons {
		n++
		cur = ctx.Heap.Cons(cur).Cdr
	}
	if !cur.IsNil() {
		return NewNil(), ctx.bailout(ip, BailoutTypeMismatch)
	}
	return NewInt(n), SigOK
}
