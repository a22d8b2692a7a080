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

func runChunk(t *testing.T, code []Instruction, consts []Value) (*JitContext, Signal) {
	t.Helper()
	chunk := NewChunk("test", code, consts, 0)
	space, rules := NewMemSpace(), RuleDB(nil)
	ctx := NewJitContext(chunk, space, rules)
	sig := Run(ctx, 0)
	return ctx, sig
}

func TestArithmeticFastPath(t *testing.T) {
	code := []Instruction{
		{Op: OpConst, A: 0},
		{Op: OpConst, A: 1},
		{Op: OpAdd},
		{Op: OpHalt},
	}
	ctx, sig := runChunk(t, code, []Value{NewInt(2), NewInt(3)})
	if sig != SigHalt {
		t.Fatalf("expected SigHalt, got %v", sig)
	}
	if got := ctx.top().Int(); got != 5 {
		t.Fatalf("expected 5, got %d", got)
	}
}

func TestDivisionByZeroBailsOut(t *testing.T) {
	code := []Instruction{
		{Op: OpConst, A: 0},
		{Op: OpConst, A: 1},
		{Op: OpDiv},
		{Op: OpHalt},
	}
	ctx, sig := runChunk(t, code, []Value{NewInt(10), NewInt(0)})
	if sig != SigBailout {
		t.Fatalf("expected SigBailout for div-by-zero, got %v", sig)
	}
	if ctx.BailoutReason != BailoutDivByZero {
		t.Fatalf("expected BailoutDivByZero, got %v", ctx.BailoutReason)
	}
	if ctx.ResumeIP != 2 {
		t.Fatalf("expected resume ip at the Div instruction (2), got %d", ctx.ResumeIP)
	}
}

func TestTypedBailoutOnNonNumericArithmetic(t *testing.T) {
	code := []Instruction{
		{Op: OpConst, A: 0},
		{Op: OpConst, A: 1},
		{Op: OpAdd},
		{Op: OpHalt},
	}
	_, sig := runChunk(t, code, []Value{NewBool(true), NewBool(false)})
	if sig != SigBailout {
		t.Fatalf("expected SigBailout for non-numeric add, got %v", sig)
	}
}

// TestNondeterministicEnumerationDepthFirst drives a fork/yield/fail loop
// to exhaustion and checks every alternative was visited in depth-first
// order (spec.md §9).
func TestNondeterministicEnumerationDepthFirst(t *testing.T) {
	code := []Instruction{
		{Op: OpConst, A: 0}, // 1
		{Op: OpConst, A: 1}, // 2
		{Op: OpConst, A: 2}, // 3
		{Op: OpFork, A: 3, B: 4},
		{Op: OpYield},
		{Op: OpFail},
	}
	ctx, sig := runChunk(t, code, []Value{NewInt(1), NewInt(2), NewInt(3)})
	if sig != SigFail {
		t.Fatalf("expected SigFail once search space exhausted, got %v", sig)
	}
	want := []int64{3, 2, 1}
	if len(ctx.Results) != len(want) {
		t.Fatalf("expected %d yielded values, got %d: %v", len(want), len(ctx.Results), ctx.Results)
	}
	for i, w := range want {
		if ctx.Results[i].Int() != w {
			t.Fatalf("Results[%d] = %d, want %d (depth-first order)", i, ctx.Results[i].Int(), w)
		}
	}
}

// TestCutPrunesRemainingAlternatives confirms Cut stops further
// backtracking into a fork's untried alternatives.
func TestCutPrunesRemainingAlternatives(t *testing.T) {
	code := []Instruction{
		{Op: OpConst, A: 0},
		{Op: OpConst, A: 1},
		{Op: OpConst, A: 2},
		{Op: OpFork, A: 3, B: 4},
		{Op: OpYield},
		{Op: OpCut, A: 0},
		{Op: OpFail},
	}
	ctx, sig := runChunk(t, code, []Value{NewInt(1), NewInt(2), NewInt(3)})
	if sig != SigFail {
		t.Fatalf("expected SigFail, got %v", sig)
	}
	if len(ctx.Results) != 1 || ctx.Results[0].Int() != 3 {
		t.Fatalf("expected exactly one yielded value (3) after cut, got %v", ctx.Results)
	}
}

func TestCallReturnJumpsAndLinks(t *testing.T) {
	// 0: jump to 4, skipping over the subroutine body on first pass
	// 1: const 0   -- subroutine body: push the constant
	// 2: return    -- pop the call stack, resume after the call site
	// 3: halt      -- unreachable
	// 4: call 1    -- link return address 5, jump into the subroutine
	// 5: halt
	code := []Instruction{
		{Op: OpJump, A: 4},
		{Op: OpConst, A: 0},
		{Op: OpReturn},
		{Op: OpHalt},
		{Op: OpCall, A: 1},
		{Op: OpHalt},
	}
	ctx, sig := runChunk(t, code, []Value{NewInt(11)})
	if sig != SigHalt {
		t.Fatalf("expected SigHalt, got %v", sig)
	}
	if ctx.top().Int() != 11 {
		t.Fatalf("expected subroutine to have pushed 11, got %v", ctx.top())
	}
}

func TestReturnWithEmptyCallStackHalts(t *testing.T) {
	code := []Instruction{
		{Op: OpConst, A: 0},
		{Op: OpReturn},
	}
	_, sig := runChunk(t, code, []Value{NewInt(1)})
	if sig != SigHalt {
		t.Fatalf("expected top-level OpReturn to behave like OpHalt, got %v", sig)
	}
}

func TestConsCarCdrRoundTrip(t *testing.T) {
	code := []Instruction{
		{Op: OpConst, A: 0},
		{Op: OpConst, A: 1},
		{Op: OpCons},
		{Op: OpDup},
		{Op: OpCar},
		{Op: OpHalt},
	}
	ctx, sig := runChunk(t, code, []Value{NewInt(1), NewInt(2)})
	if sig != SigHalt {
		t.Fatalf("expected SigHalt, got %v", sig)
	}
	if ctx.top().Int() != 1 {
		t.Fatalf("expected car of (1 . 2) to be 1, got %v", ctx.top())
	}
}
