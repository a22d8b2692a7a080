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

// Instruction is one decoded bytecode instruction: an opcode plus up to two
// operands. Chunk.Code holds these structs directly as a slice; there is no
// separate byte encoding.
type Instruction struct {
	Op  Opcode
	A   int32
	B   int32
}

// Chunk is an immutable, shareable unit of compiled code: an instruction
// slice, its constant pool, and optional jump tables. Once built by
// NewChunk a Chunk's code is never mutated — concurrent dispatcher workers
// and the profiler only ever read it.
type Chunk struct {
	Name       string
	Code       []Instruction
	Constants  []Value
	JumpTables []*JumpTable
	Closures   []*Chunk // nested chunks OpMakeClosure can reference by index
	Locals     int      // number of local slots this chunk expects
	Profile    *Profile
	Memo       *MemoCache // OpMemo/OpMemoFirst's cache, one per chunk (engine/abi_special.go)
	bodyHash   uint64 // cached for pagepool lookups, computed on first BodyHash call
}

// BodyHash returns a stable hash of the chunk's instruction stream, used as
// the pagepool cache key (engine/pagepool.go). Computed lazily and memoized
// since Chunk is immutable after construction.
func (c *Chunk) BodyHash() uint64 {
	if c.bodyHash != 0 {
		return c.bodyHash
	}
	var h uint64 = 1469598103934665603 // FNV-1a offset basis
	for _, ins := range c.Code {
		h ^= uint64(ins.Op)
		h *= 1099511628211
		h ^= uint64(uint32(ins.A))
		h *= 1099511628211
		h ^= uint64(uint32(ins.B))
		h *= 1099511628211
	}
	c.bodyHash = h
	return h
}

// NewChunk allocates a chunk with its profile record pre-attached; every
// chunk is profiled from instruction zero (spec.md §4.C).
func NewChunk(name string, code []Instruction, constants []Value, locals int) *Chunk {
	return &Chunk{
		Name:      name,
		Code:      code,
		Constants: constants,
		Locals:    locals,
		Profile:   NewProfile(),
		Memo:      NewMemoCache(),
	}
}

// Const fetches a constant-pool entry. Panics on out-of-range index: a
// well-formed chunk never references past its own pool.
func (c *Chunk) Const(idx int32) Value {
	return c.Constants[idx]
}
