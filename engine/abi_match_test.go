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

import "testing"

func TestMatchListAcceptsExactArityProperList(t *testing.T) {
	chunk := NewChunk("t", nil, nil, 0)
	ctx := NewJitContext(chunk, NewMemSpace(), nil)

	list := ctx.Heap.NewCons(NewInt(1), ctx.Heap.NewCons(NewInt(2), NewNil()))
	if !abiMatchList(ctx, list, 2) {
		t.Fatal("expected 2-element list to match arity 2")
	}
	if abiMatchList(ctx, list, 3) {
		t.Fatal("expected 2-element list not to match arity 3")
	}
}

func TestMatchListRejectsImproperList(t *testing.T) {
	chunk := NewChunk("t", nil, nil, 0)
	ctx := NewJitContext(chunk, NewMemSpace(), nil)

	improper := ctx.Heap.NewCons(NewInt(1), NewInt(2))
	if abiMatchList(ctx, improper, 2) {
		t.Fatal("expected dotted pair not to match as a 2-element list")
	}
}

func TestMatchConsSplitsPair(t *testing.T) {
	chunk := NewChunk("t", nil, nil, 0)
	ctx := NewJitContext(chunk, NewMemSpace(), nil)

	pair := ctx.Heap.NewCons(NewInt(7), NewInt(8))
	car, cdr, ok := abiMatchCons(ctx, pair)
	if !ok || car.Int() != 7 || cdr.Int() != 8 {
		t.Fatalf("expected (7, 8, true), got (%v, %v, %v)", car, cdr, ok)
	}

	_, _, ok = abiMatchCons(ctx, NewInt(5))
	if ok {
		t.Fatal("expected non-cons value not to match a cons pattern")
	}
}

func TestMatchBindAlwaysSucceeds(t *testing.T) {
	chunk := NewChunk("t", nil, nil, 1)
	ctx := NewJitContext(chunk, NewMemSpace(), nil)

	abiMatchBind(ctx, 0, NewInt(99))
	if ctx.Locals[0].Int() != 99 {
		t.Fatalf("expected local 0 to be bound to 99, got %v", ctx.Locals[0])
	}
}

func TestMatchListOpcodesThroughInterpreter(t *testing.T) {
	code := []Instruction{
		{Op: OpConst, A: 0},
		{Op: OpConst, A: 1},
		{Op: OpCons},
		{Op: OpMatchList, A: 1},
		{Op: OpHalt},
	}
	ctx, sig := runChunk(t, code, []Value{NewInt(1), NewNil()})
	if sig != SigHalt {
		t.Fatalf("expected SigHalt, got %v", sig)
	}
	if ctx.top().ToBool() != true {
		t.Fatal("expected (1) to match as a 1-element list")
	}
}
