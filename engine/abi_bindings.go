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

// binding is one (variable-id -> value) entry in a BindingFrame. Frames
// are kept as an ordered slice rather than a map (spec.md §3 calls this
// "an ordered sequence") since lookups walk the common case of a handful
// of pattern/rule variables per scope, not a large symbol table.
type binding struct {
	VarID uint32
	Val   Value
}

// BindingFrame is one scope's worth of bindings, a unit of save/restore
// on backtracking (spec.md §3). OpPushFrame/OpPopFrame stack and unstack
// frames on JitContext.Frames; a choice point's saved frame count (not a
// copy of the frames themselves) is enough to restore on backtrack since
// restoring only ever truncates, never reinserts (spec.md §4.H).
type BindingFrame struct {
	entries []binding
}

func (f *BindingFrame) set(id uint32, v Value) {
	for i := range f.entries {
		if f.entries[i].VarID == id {
			f.entries[i].Val = v
			return
		}
	}
	f.entries = append(f.entries, binding{id, v})
}

func (f *BindingFrame) get(id uint32) (Value, bool) {
	for i := range f.entries {
		if f.entries[i].VarID == id {
			return f.entries[i].Val, true
		}
	}
	return Value(0), false
}

func (f *BindingFrame) clear(id uint32) {
	for i := range f.entries {
		if f.entries[i].VarID == id {
			f.entries = append(f.entries[:i], f.entries[i+1:]...)
			return
		}
	}
}

// abiPushFrame opens a new binding scope.
func abiPushFrame(ctx *JitContext) {
	ctx.Frames = append(ctx.Frames, BindingFrame{})
}

// abiPopFrame closes the innermost binding scope. Popping past the
// bottom is a compiler bug (stack discipline violation), not a runtime
// condition callers should guard against — mirrors OpCall/OpReturn's
// assumption that emitted bytecode is well-formed.
func abiPopFrame(ctx *JitContext) {
	ctx.Frames = ctx.Frames[:len(ctx.Frames)-1]
}

// abiBindStore and abiBindClear operate on the innermost open frame only;
// abiBindLoad and abiBindHas search every open frame from the innermost
// outward and use the first frame that binds the id.
func abiBindStore(ctx *JitContext, id uint32, v Value) {
	ctx.Frames[len(ctx.Frames)-1].set(id, v)
}

func abiBindLoad(ctx *JitContext, id uint32, ip int32) (Value, Signal) {
	for i := len(ctx.Frames) - 1; i >= 0; i-- {
		if v, ok := ctx.Frames[i].get(id); ok {
			return v, SigOK
		}
	}
	return NewNil(), ctx.bailout(ip, BailoutUndefinedGlobal)
}

func abiBindHas(ctx *JitContext, id uint32) bool {
	for i := len(ctx.Frames) - 1; i >= 0; i-- {
		if _, ok := ctx.Frames[i].get(id); ok {
			return true
		}
	}
	return false
}

func abiBindClear(ctx *JitContext, id uint32) {
	if len(ctx.Frames) == 0 {
		return
	}
	ctx.Frames[len(ctx.Frames)-1].clear(id)
}

// GlobalTable is the shared store `load-global`/`store-global` read and
// write, mutex-guarded the same way engine/space.go's MemSpace is — a
// cheap RLock path for the common read, an exclusive path for definition.
type GlobalTable struct {
	mu   sync.RWMutex
	vars map[uint32]Value
}

func NewGlobalTable() *GlobalTable {
	return &GlobalTable{vars: make(map[uint32]Value)}
}

func (g *GlobalTable) Load(id uint32) (Value, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	v, ok := g.vars[id]
	return v, ok
}

func (g *GlobalTable) Store(id uint32, v Value) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.vars[id] = v
}

func abiLoadGlobal(ctx *JitContext, id uint32, ip int32) (Value, Signal) {
	v, ok := ctx.Globals.Load(id)
	if !ok {
		return NewNil(), ctx.bailout(ip, BailoutUndefinedGlobal)
	}
	return v, SigOK
}

func abiStoreGlobal(ctx *JitContext, id uint32, v Value) {
	ctx.Globals.Store(id, v)
}

// abiMakeClosure captures the top n stack values (in push order) as
// upvalues for nested chunk idx, the runtime half of spec.md §4.B's
// `function`/`lambda` opcodes.
func abiMakeClosure(ctx *JitContext, idx int32, upvalues []Value) (Value, Signal) {
	if int(idx) >= len(ctx.Chunk.Closures) {
		return NewNil(), SigError
	}
	return ctx.Heap.NewClosure(Closure{Chunk: ctx.Chunk.Closures[idx], Upvalues: upvalues}), SigOK
}

// abiCallClosure runs a closure's chunk to completion in a fresh
// sub-context sharing Heap/Space/Rules/Globals with the caller, the
// runtime half of `apply`. Locals[0:len(upvalues)] are the captured
// values (read back via OpLoadUpvalue), followed by the call's own
// arguments. A non-halting signal from the callee (YIELD/FAIL/BAILOUT)
// propagates to the caller unchanged rather than being silently absorbed,
// since a closure can itself be nondeterministic.
func abiCallClosure(ctx *JitContext, closure Value, args []Value, ip int32) (Value, Signal) {
	if closure.GetTag() != TagClosure {
		return NewNil(), ctx.bailout(ip, BailoutTypeMismatch)
	}
	c := ctx.Heap.Closure(closure)
	sub := NewJitContext(c.Chunk, ctx.Space, ctx.Rules)
	sub.Globals = ctx.Globals
	sub.Heap = ctx.Heap // same shared Heap, not a copy — records the callee allocates are visible to the caller for free
	n := copy(sub.Locals, c.Upvalues)
	copy(sub.Locals[n:], args)

	sig := Run(sub, 0)
	switch sig {
	case SigHalt:
		if len(sub.Stack) == 0 {
			return NewNil(), SigOK
		}
		return sub.Stack[len(sub.Stack)-1], SigOK
	case SigBailout:
		return NewNil(), ctx.bailout(sub.ResumeIP, sub.BailoutReason)
	default:
		return NewNil(), sig
	}
}

// abiLoadUpvalue reads a closure's captured value by index, used inside
// the closure's own chunk (Locals[i] already holds it by construction —
// see abiCallClosure — so this is mostly a documented alias kept for
// chunks compiled against an explicit load-upvalue opcode rather than a
// plain load).
func abiLoadUpvalue(ctx *JitContext, idx int32, ip int32) (Value, Signal) {
	if int(idx) >= len(ctx.Locals) {
		return NewNil(), ctx.bailout(ip, BailoutArityMismatch)
	}
	return ctx.Locals[idx], SigOK
}
