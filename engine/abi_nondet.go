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

// Nondeterminism runtime ABI helpers. memcp has no native equivalent; this
// whole family is grounded on original_source's
// src/backend/bytecode/jit/handlers/nondet.rs, whose compile_* functions
// pin down the exact stack effect and helper shape reproduced here.

// abiFork installs a choice point over alternatives and returns the first
// one to try, resuming at resume on every subsequent backtrack into it.
// Stack effect: [] -> [alt0].
func abiFork(ctx *JitContext, alternatives []Value, resume int32, ip int32) (Value, Signal) {
	if len(alternatives) == 0 {
		return NewNil(), SigFail
	}
	rest := alternatives[:len(alternatives)-1]
	first := alternatives[len(alternatives)-1]
	ctx.Choices.Push(ChoicePoint{
		Alternatives: rest,
		Resume:       resume,
		StackMarker:  len(ctx.Stack),
		FrameMarker:  len(ctx.Frames),
	})
	return first, SigOK
}

// abiYield appends v to the results buffer and signals YIELD so the
// dispatcher can re-enter at the next instruction once it has drained or
// otherwise handled the yield (spec.md §4.I).
func abiYield(ctx *JitContext, v Value, ip int32) (Value, Signal) {
	ctx.Results = append(ctx.Results, v)
	return v, SigYield
}

// abiCollect drains the results buffer into a single cons-list value
// (first yielded becomes the list head) and clears the buffer.
func abiCollect(ctx *JitContext, ip int32) (Value, Signal) {
	result := NewNil()
	for i := len(ctx.Results) - 1; i >= 0; i-- {
		result = ctx.Heap.NewCons(ctx.Results[i], result)
	}
	ctx.Results = ctx.Results[:0]
	return result, SigOK
}

// abiCut prunes every choice point at or above marker, committing to the
// current branch of the search.
func abiCut(ctx *JitContext, marker int32, ip int32) (Value, Signal) {
	ctx.Choices.Cut(int(marker))
	return NewNil(), SigOK
}

// abiGuard converts a false condition into a FAIL signal, which the
// dispatcher turns into a backtrack; a true condition is a no-op pass
// through. abiDiv does not FAIL on divide-by-zero (it bails out with
// BailoutDivByZero), so a guard ahead of the division is what turns a zero
// divisor into a backtrack.
func abiGuard(ctx *JitContext, cond Value, ip int32) (Value, Signal) {
	if !cond.ToBool() {
		return NewNil(), SigFail
	}
	return cond, SigOK
}

// abiAmb installs a choice point over already-evaluated alternatives
// (distinct from fork, whose alternatives are compile-time targets — see
// SPEC_FULL.md §4) and returns the first to try.
func abiAmb(ctx *JitContext, alternatives []Value, resume int32, ip int32) (Value, Signal) {
	return abiFork(ctx, alternatives, resume, ip)
}

// abiCommit is an alias for Cut at the current choice-stack depth: commit
// to the branch reached so far, discarding every alternative still open
// at or above it.
func abiCommit(ctx *JitContext, ip int32) (Value, Signal) {
	ctx.Choices.Cut(ctx.Choices.Len())
	return NewNil(), SigOK
}

// abiBacktrack pops the next untried alternative off the top choice
// point and reports where execution should resume. It restores the
// evaluation stack to its depth at fork time first (spec.md §3's "saved
// sp" / "saved-stack slice descriptor" and §4.H's restore contract) so
// values pushed by the failed branch never leak into the retried one. When
// the top point is exhausted it is discarded and the caller (the
// dispatcher's FAIL/BACKTRACK loop) retries one level down.
func abiBacktrack(ctx *JitContext) (alt Value, resume int32, ok bool) {
	top := ctx.Choices.Top()
	if top == nil {
		return Value(0), 0, false
	}
	if top.StackMarker <= len(ctx.Stack) {
		ctx.Stack = ctx.Stack[:top.StackMarker]
	}
	if top.FrameMarker <= len(ctx.Frames) {
		ctx.Frames = ctx.Frames[:top.FrameMarker]
	}
	alt, resume, ok = ctx.Choices.Backtrack()
	if !ok {
		ctx.Choices.PopExhausted()
	}
	return
}

// abiFail is the raw FAIL signal emitted by opcode handlers (guards,
// pattern-match misses, user `fail`) with no value to carry.
func abiFail(ctx *JitContext, ip int32) (Value, Signal) {
	return NewNil(), SigFail
}

// abiBeginNondet increments the fork-depth counter ctx.NondetDepth. Only
// abiBeginNondet/abiEndNondet touch it; the dispatcher does not read it.
func abiBeginNondet(ctx *JitContext, ip int32) (Value, Signal) {
	ctx.NondetDepth++
	return NewNil(), SigOK
}

func abiEndNondet(ctx *JitContext, ip int32) (Value, Signal) {
	ctx.NondetDepth--
	return NewNil(), SigOK
}
