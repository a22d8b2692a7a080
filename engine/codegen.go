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

// Reg represents a hardware register index; concrete constants live in
// jit_amd64.go.
type Reg uint8

// JITTypeUnknown marks a value whose tag isn't known until runtime.
const JITTypeUnknown uint16 = 0xFFFF

// JITLoc describes where a simulated value lives during compilation.
type JITLoc uint8

const (
	LocNone JITLoc = iota
	LocReg
	LocStack
	LocMem
	LocImm
	LocAny
)

// JITValueDesc describes one simulated stack-slot value: its type (when
// known at compile time) and storage location. Ported from
// _scm_ref/jit_types.go's descriptor model, retargeted from AST
// expressions to bytecode-offset simulation.
type JITValueDesc struct {
	Type     uint16
	Loc      JITLoc
	Reg      Reg
	StackOff int32
	MemPtr   uintptr
	Imm      Value
}

// block is one basic block discovered while walking a Chunk's
// instructions: the set of bytecode offsets that can jump to it
// (predecessors) decide whether it needs a block argument carrying the
// live stack top (a merge point), mirroring jit_types.go's JITEnv scoping
// discipline applied to offsets instead of lexical scope.
type block struct {
	start        int32
	preds        []int32
	isMerge      bool
	liveTopType  uint16
}

// JITContext is the central structure threaded through native codegen for
// one chunk: simulated SSA-ish value stack, offset->block map, local
// slots, and the register allocator.
type JITContext struct {
	Chunk       *Chunk
	W           *JITWriter
	FreeRegs    uint64
	stack       []JITValueDesc
	locals      []JITValueDesc
	blocks      map[int32]*block
	terminated  bool
}

// NewJITContext seeds a codegen context for compiling chunk from offset 0.
func NewJITContext(chunk *Chunk, w *JITWriter, freeRegs uint64) *JITContext {
	return &JITContext{
		Chunk:    chunk,
		W:        w,
		FreeRegs: freeRegs,
		locals:   make([]JITValueDesc, chunk.Locals),
		blocks:   make(map[int32]*block),
	}
}

// AllocReg picks a free register from the bitmap and marks it used.
func (ctx *JITContext) AllocReg() Reg {
	if ctx.FreeRegs == 0 {
		panic("jit: no free registers")
	}
	bit := ctx.FreeRegs & (-ctx.FreeRegs)
	ctx.FreeRegs &^= bit
	r := Reg(0)
	for b := bit; b > 1; b >>= 1 {
		r++
	}
	return r
}

// FreeReg returns a register to the free pool.
func (ctx *JITContext) FreeReg(r Reg) {
	ctx.FreeRegs |= 1 << uint(r)
}

// FreeDesc releases any register held by a value descriptor.
func (ctx *JITContext) FreeDesc(desc *JITValueDesc) {
	if desc.Loc == LocReg {
		ctx.FreeReg(desc.Reg)
	}
	desc.Loc = LocNone
}

// push records a simulated stack-top value.
func (ctx *JITContext) push(d JITValueDesc) { ctx.stack = append(ctx.stack, d) }

// pop removes and returns the simulated stack-top value.
func (ctx *JITContext) pop() JITValueDesc {
	n := len(ctx.stack)
	d := ctx.stack[n-1]
	ctx.stack = ctx.stack[:n-1]
	return d
}

// markBlock registers offset as a jump target, recording pred as one of
// its predecessors. A target reached from more than one predecessor is a
// merge point: codegen must materialize its live stack-top into a fixed
// location (a register or stack slot) rather than carry a LocImm across
// the merge, since different predecessors may disagree on the constant.
func (ctx *JITContext) markBlock(offset int32, pred int32) *block {
	b, ok := ctx.blocks[offset]
	if !ok {
		b = &block{start: offset}
		ctx.blocks[offset] = b
	}
	b.preds = append(b.preds, pred)
	if len(b.preds) > 1 {
		b.isMerge = true
	}
	return b
}
