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

// BailoutReason classifies why emitted/interpreted code handed control
// back to the dispatcher with SigBailout, per spec.md §3's "bailout flag
// plus reason enum" and §7's typed-trap error handling. Numeric values
// are not part of the ABI (unlike Signal) and may grow freely.
type BailoutReason int32

const (
	BailoutNone BailoutReason = iota
	BailoutTypeMismatch
	BailoutDivByZero
	BailoutArityMismatch
	BailoutUndefinedGlobal
	BailoutChoicePointOverflow
	BailoutUnsupportedOpcode
)

func (r BailoutReason) String() string {
	switch r {
	case BailoutTypeMismatch:
		return "TypeMismatch"
	case BailoutDivByZero:
		return "DivByZero"
	case BailoutArityMismatch:
		return "ArityMismatch"
	case BailoutUndefinedGlobal:
		return "UndefinedGlobal"
	case BailoutChoicePointOverflow:
		return "ChoicePointOverflow"
	case BailoutUnsupportedOpcode:
		return "UnsupportedOpcode"
	default:
		return "None"
	}
}

// JitContext is the per-execution runtime state shared by the bytecode
// interpreter and any native code compiled for the same chunk: the
// evaluation stack, locals, the choice-point stack for nondeterminism,
// and the yielded-results buffer. One JitContext exists per top-level
// dispatch (spec.md §4.I); forked alternatives share it, since fork/cut/
// backtrack all operate on the same choice stack by design.
type JitContext struct {
	Chunk       *Chunk
	Stack       []Value
	Locals      []Value
	Calls       []int32 // return-address stack for OpCall/OpReturn
	Choices     ChoiceStack
	Results     []Value // collected yields, drained by OpCollect
	Space       Space
	Rules       RuleDB
	Heap        *Heap
	NondetDepth int // incremented by OpBeginNondet, decremented by OpEndNondet

	// Frames is the binding-frame stack (spec.md §3's "Binding frame"):
	// each entry is one lexical/rule scope's (var-id -> value) bindings,
	// pushed by OpPushFrame and popped by OpPopFrame. Choice points save
	// len(Frames) at fork time and truncate back to it on backtrack
	// (abiBacktrack in engine/abi_nondet.go), matching "restoring truncates the current
	// frame list back to the saved length" (spec.md §4.H).
	Frames []BindingFrame

	// Globals is the process-wide named-value table `load-global`/
	// `store-global` read and write. Passed in explicitly rather than held
	// as a package-level map, per spec.md §9's "pass handles explicitly"
	// design note.
	Globals *GlobalTable

	// Bailout state, written by the ABI helper that detects the
	// recoverable condition and read by the dispatcher once a native body
	// or Step returns SigBailout (spec.md §3, §7).
	Bailout       bool
	BailoutReason BailoutReason
	ResumeIP      int32

	// NativeResult is the fixed-offset slot a compiled chunk body's native
	// code writes its final value into before returning — NativeFunc's Go
	// signature returns only a Signal (spec.md §6), so there is no register
	// Go itself will read a Value back from. Native code stores here via a
	// SIB-addressed move through the saved ctx pointer (the same technique
	// it uses to read Locals); the dispatcher then pushes this onto Stack
	// on SigHalt so native and interpreted chunk bodies leave an identical
	// "result is Stack's top" contract for callers like abiCallClosure.
	NativeResult Value

	// Natives is the call_native/call_cached/call_external registry
	// (engine/abi_calls.go). nil means no extension functions are wired up
	// for this context, matching Rules/Space's "nil is a legal, inert
	// value" convention elsewhere in this struct.
	Natives NativeRegistry

	// EvalHook lets a host wire `eval` (spec.md §4.B's OpEval) up to a
	// real source-to-chunk compiler. Surface syntax is out of scope for
	// this engine (spec.md §1), so by default OpEval has nothing to call
	// and bails with BailoutUnsupportedOpcode — see abi_special.go.
	EvalHook func(ctx *JitContext, expr Value) (Value, Signal)
}

// bailout records the reason/resume-ip pair and returns SigBailout, so
// every ABI helper that detects a recoverable error reports it the same
// way instead of re-deriving the ctx writes at each call site.
func (ctx *JitContext) bailout(ip int32, reason BailoutReason) Signal {
	ctx.Bailout = true
	ctx.BailoutReason = reason
	ctx.ResumeIP = ip
	return SigBailout
}

// clearBailout resets the bailout flags on re-entry, matching spec.md §6's
// "pre-entry invariant: ctx.bailout cleared".
func (ctx *JitContext) clearBailout() {
	ctx.Bailout = false
	ctx.BailoutReason = BailoutNone
}

// NewJitContext builds a fresh runtime context for executing chunk, with
// its own private GlobalTable and Heap. Callers that want `load-global`/
// `store-global`, or heap-backed records (cons cells, strings, closures),
// visible across multiple top-level dispatches (the usual case for a
// long-lived evaluator, and mandatory once any Value crosses into Space —
// spec.md §3's shared-ownership heap-record discipline) should overwrite
// ctx.Globals/ctx.Heap with shared instances before the first Run —
// spec.md §9 asks for explicit handle passing rather than a package-level
// global, and a field assignment is the simplest way to satisfy that
// without growing this constructor's signature for every caller that
// doesn't need sharing. engine/dispatcher.go's Dispatcher does exactly
// this: one Heap per Dispatcher, installed into every Task it runs.
func NewJitContext(chunk *Chunk, space Space, rules RuleDB) *JitContext {
	return &JitContext{
		Chunk:   chunk,
		Locals:  make([]Value, chunk.Locals),
		Space:   space,
		Rules:   rules,
		Globals: NewGlobalTable(),
		Heap:    NewHeap(),
	}
}

func (ctx *JitContext) push(v Value) { ctx.Stack = append(ctx.Stack, v) }

func (ctx *JitContext) pop() Value {
	n := len(ctx.Stack)
	v := ctx.Stack[n-1]
	ctx.Stack = ctx.Stack[:n-1]
	return v
}

func (ctx *JitContext) top() Value { return ctx.Stack[len(ctx.Stack)-1] }
