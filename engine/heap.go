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

// Cons is a single pair cell. Cons cells, interned strings and closures
// all live on one Heap shared by every JitContext a Dispatcher spawns
// (engine/dispatcher.go), not a fresh per-context arena: spec.md §3 says
// plainly that "heap records are shared... going out of scope on the
// stack does not free it", so a Value a rule defined in one top-level
// dispatch hands to Space.Add must still resolve correctly when a later,
// different dispatch reads it back out of Space/RuleDB.
type Cons struct {
	Car, Cdr Value
}

// Closure pairs a nested chunk with the locals it captured at creation
// time (spec.md §4.B's "function/lambda" opcodes, "load-upvalue"). Calling
// a closure runs its chunk to completion in a fresh sub-context that
// shares the caller's Heap/Space/Rules, per abiCallClosure.
type Closure struct {
	Chunk    *Chunk
	Upvalues []Value
}

// Heap owns every cons cell, string body, and closure record live across
// a Dispatcher's lifetime. Mutex-guarded the same way engine/space.go's
// MemSpace and abi_bindings.go's GlobalTable are: an RLock path for the
// ordinary read (Cons/String/Closure), an exclusive path for
// allocation and in-place mutation, since concurrent workers
// (engine/dispatcher.go) read and write the same arrays.
type Heap struct {
	mu       sync.RWMutex
	cons     []Cons
	strings  []string
	closures []Closure
}

// NewHeap returns an empty, ready-to-share Heap. One instance is owned by
// a Dispatcher and installed into every JitContext it spawns.
func NewHeap() *Heap { return &Heap{} }

func (h *Heap) NewCons(car, cdr Value) Value {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cons = append(h.cons, Cons{car, cdr})
	return NewConsRef(uint32(len(h.cons) - 1))
}

func (h *Heap) Cons(v Value) Cons {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.cons[v.ConsID()]
}

// SetCar mutates a cons cell's Car in place — the runtime primitive
// behind the space/state `change` opcode (engine/abi_state.go): a
// "state" value is simply a cons cell whose Car is the mutable payload
// and whose Cdr goes unused, so no new Value tag is needed to support
// mutable cells on top of an otherwise immutable Cons model.
func (h *Heap) SetCar(v Value, newCar Value) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cons[v.ConsID()].Car = newCar
}

func (h *Heap) NewString(s string) Value {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.strings = append(h.strings, s)
	return NewStringRef(uint32(len(h.strings) - 1))
}

func (h *Heap) String(v Value) string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.strings[v.StringID()]
}

func (h *Heap) NewClosure(c Closure) Value {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closures = append(h.closures, c)
	return box(TagClosure, uint64(len(h.closures)-1))
}

func (h *Heap) Closure(v Value) Closure {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.closures[v.payload()]
}
