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

import "sync"

// Special forms' runtime half. Surface syntax (parsing `let`, `case`,
// `quote`, ...) is out of scope (spec.md §1); what's here is what the
// frontend's lowering pass targets once it has already parsed one of
// these forms, grounded the same way _scm_ref/scm.go's eval switch
// handles each special form as one case over an already-parsed Cons tree
// rather than as raw text.

// MemoCache is a chunk-scoped cache backing OpMemo/OpMemoFirst (by a
// compiler-assigned slot number) and OpCallCached (by a call-site key —
// engine/abi_calls.go). One MemoCache per Chunk (engine/chunk.go); guarded
// by a mutex since a hot chunk can be running concurrently across several
// Dispatcher workers (engine/dispatcher.go), all sharing the same Chunk
// pointer by construction.
type MemoCache struct {
	mu    sync.Mutex
	slots map[int32]Value
	calls map[uint64]Value
}

// NewMemoCache builds an empty cache.
func NewMemoCache() *MemoCache {
	return &MemoCache{slots: make(map[int32]Value), calls: make(map[uint64]Value)}
}

// Store unconditionally overwrites slot's cached value, OpMemo's behavior.
func (m *MemoCache) Store(slot int32, v Value) Value {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slots[slot] = v
	return v
}

// StoreFirst writes v only the first time slot is seen; every later call
// returns whatever was stored first, OpMemoFirst's behavior.
func (m *MemoCache) StoreFirst(slot int32, v Value) Value {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.slots[slot]; ok {
		return existing
	}
	m.slots[slot] = v
	return v
}

// GetCall/PutCall back OpCallCached's argument-tuple memoization.
func (m *MemoCache) GetCall(key uint64) (Value, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.calls[key]
	return v, ok
}

func (m *MemoCache) PutCall(key uint64, v Value) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[key] = v
}

// abiLet and abiLetStar both fold push_frame+bind_store into one opcode
// (opcode.go's doc comment on OpLet/OpLetStar); the sequential-vs-
// simultaneous distinction a real `let`/`let*` makes is entirely a
// frontend lowering-order concern (how many OpLet/OpLetStar instructions
// get emitted and in what order relative to their value expressions), not
// a different runtime action, so both opcodes share this one helper.
func abiLet(ctx *JitContext, id uint32, v Value) {
	abiPushFrame(ctx)
	abiBindStore(ctx, id, v)
}

// abiNew binds id in the already-open innermost frame without opening a
// new one — the non-lexical "fresh variable" shape OpNew documents itself
// as an alias of, minus the framing.
func abiNew(ctx *JitContext, id uint32, v Value) {
	abiBindStore(ctx, id, v)
}

// abiCase resolves `case`'s scrutinee: it records the value under elseVar
// (so an else-clause compiled against the same frame can still name it)
// before handing back the jump-table target, matching OpJumpTable's
// Lookup call exactly but with the extra bind first.
func abiCase(ctx *JitContext, scrutinee Value, jumpTable int32, elseVar uint32) int32 {
	abiBindStore(ctx, elseVar, scrutinee)
	jt := ctx.Chunk.JumpTables[jumpTable]
	return jt.Lookup(scrutinee.Int())
}

// abiCollapse takes the first element of a cons-list of nondeterministic
// alternatives and discards the rest without installing a choice point —
// the deterministic counterpart to abiFork/abiSuperpose. A non-cons,
// non-nil value collapses to itself, and nil collapses to nil, both
// matching "push a deterministic single value" for the degenerate cases a
// compiler-generated alternative list can still produce.
func abiCollapse(ctx *JitContext, alternatives Value) Value {
	if alternatives.GetTag() != TagCons {
		return alternatives
	}
	return ctx.Heap.Cons(alternatives).Car
}

// valuesFromList walks a proper cons-list into a slice in list order,
// shared by OpSuperpose and anywhere else a pre-listed (rather than
// individually-pushed) alternative set needs unpacking.
func valuesFromList(ctx *JitContext, list Value) []Value {
	var out []Value
	for list.GetTag() == TagCons {
		c := ctx.Heap.Cons(list)
		out = append(out, c.Car)
		list = c.Cdr
	}
	return out
}

// abiSuperpose is OpSuperpose's helper: fork over every element of a
// pre-listed alternative set, the same underlying choice-point machinery
// OpFork uses for individually-pushed alternatives (engine/abi_nondet.go).
func abiSuperpose(ctx *JitContext, list Value, resume int32, ip int32) (Value, Signal) {
	alts := valuesFromList(ctx, list)
	if len(alts) == 0 {
		return NewNil(), SigFail
	}
	return abiFork(ctx, alts, resume, ip)
}

// abiEval hands expr to the host-wired EvalHook (runtime.go), the runtime
// half of `eval` once a frontend compiler is attached. Without a hook
// installed, bails with BailoutUnsupportedOpcode — the same failure mode
// abiCallExternal uses for the other "this engine doesn't do source-level
// work" opcode (engine/abi_calls.go), since spec.md §1 excludes surface
// syntax from this engine's own scope.
func abiEval(ctx *JitContext, expr Value, ip int32) (Value, Signal) {
	if ctx.EvalHook == nil {
		return NewNil(), ctx.bailout(ip, BailoutUnsupportedOpcode)
	}
	return ctx.EvalHook(ctx, expr)
}
