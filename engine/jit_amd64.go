//go:build amd64

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

import "unsafe"

// localsOffset is ctx.Locals' byte offset within JitContext, computed
// once so emitted code can load the slice header straight out of the
// *JitContext it's handed at entry (see jitNthArgument's equivalent
// pointer-offset trick in _scm_ref/jit_amd64.go, adapted from "the n-th
// variadic argument" to "this context's locals slice").
var localsOffset = int32(unsafe.Offsetof(JitContext{}.Locals))

// resultOffset is ctx.NativeResult's byte offset, the slot compiled code
// writes its final value into before returning (see runtime.go and
// EmitReturnValue's doc comment).
var resultOffset = int32(unsafe.Offsetof(JitContext{}.NativeResult))

// compileChunkNative emits amd64 machine code for chunk's straight-line
// arithmetic/comparison/local-access instructions, plus forward-only
// jumps whose stack depth is statically zero at both the branch and its
// target (verifyNativeControlFlow below) — a merge point never needs to
// reconcile a value the register allocator left live in two different
// places, since nothing is ever live in a register across a branch.
// Calls, pattern matching, bindings, rules, nondeterminism and space ops
// always bail to the interpreter (JitError), matching
// _scm_ref/jit_amd64.go's jitCompileProc "trivial patterns, else nil"
// shape — and, unlike the teacher, the compiled body here really is
// executed once emitted: see makeNativeFunc.
func compileChunkNative(chunk *Chunk) (*NativeEntry, error) {
	allowed := map[Opcode]bool{
		OpNop: true, OpConst: true, OpLoad: true,
		OpAdd: true, OpSub: true, OpMul: true, OpNeg: true,
		OpEq: true, OpNe: true, OpLt: true, OpLe: true, OpGt: true, OpGe: true,
		OpJump: true, OpJumpIfFalse: true,
		OpReturn: true, OpHalt: true,
	}
	for _, ins := range chunk.Code {
		if !allowed[ins.Op] {
			return nil, &JitError{Chunk: chunk.Name, Msg: "unsupported opcode " + ins.Op.String()}
		}
	}
	if err := verifyNativeControlFlow(chunk); err != nil {
		return nil, err
	}

	codeBuf := make([]byte, 4096)
	w := &JITWriter{
		Ptr:   unsafe.Pointer(&codeBuf[0]),
		Start: unsafe.Pointer(&codeBuf[0]),
		End:   unsafe.Add(unsafe.Pointer(&codeBuf[0]), len(codeBuf)-64),
	}
	ctx := NewJITContext(chunk, w,
		(1<<uint(RegRCX))|(1<<uint(RegRDX))|(1<<uint(RegRSI))|(1<<uint(RegRDI))|
			(1<<uint(RegR8))|(1<<uint(RegR9))|(1<<uint(RegR10))|(1<<uint(RegR13)))

	// The incoming *JitContext arrives in RAX under Go's register-based
	// amd64 calling convention (the first integer/pointer argument), same
	// convention _scm_ref/jit_amd64.go's jitNthArgument relies on to read
	// the variadic-argument slice header. Move it to R12 — reserved out of
	// the allocator's free-register bitmap above — before any instruction
	// lowering below gets a chance to clobber RAX. The incoming ip (RBX) is
	// intentionally never read: none of the opcodes this function lowers
	// ever bails out, so a compiled body is only ever entered at ip 0 and
	// always runs to its own OpReturn/OpHalt in one call.
	w.emitMovRegReg(RegR12, RegRAX)

	labelForIP := map[int32]uint8{}
	for _, ins := range chunk.Code {
		if ins.Op == OpJump || ins.Op == OpJumpIfFalse {
			if _, ok := labelForIP[ins.A]; !ok {
				labelForIP[ins.A] = w.ReserveLabel()
			}
		}
	}

	var simStack []JITValueDesc
	for i, ins := range chunk.Code {
		if id, ok := labelForIP[int32(i)]; ok {
			w.MarkLabel(id)
		}
		switch ins.Op {
		case OpNop:
			continue
		case OpConst:
			simStack = append(simStack, JITValueDesc{Loc: LocImm, Imm: chunk.Const(ins.A)})
		case OpLoad:
			simStack = append(simStack, emitLoadLocal(ctx, ins.A))
		case OpAdd, OpSub, OpMul:
			n := len(simStack)
			b := simStack[n-1]
			a := simStack[n-2]
			simStack = simStack[:n-2]
			simStack = append(simStack, emitArithFold(ctx, ins.Op, a, b))
		case OpNeg:
			n := len(simStack)
			a := simStack[n-1]
			simStack = simStack[:n-1]
			simStack = append(simStack, emitNegOp(ctx, a))
		case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe:
			n := len(simStack)
			b := simStack[n-1]
			a := simStack[n-2]
			simStack = simStack[:n-2]
			simStack = append(simStack, emitCompare(ctx, ins.Op, a, b))
		case OpJump:
			w.emitJmpRel32(labelForIP[ins.A])
		case OpJumpIfFalse:
			n := len(simStack)
			cond := simStack[n-1]
			simStack = simStack[:n-1]
			condReg := materialize(ctx, cond)
			falsyReg := emitIsFalsy(ctx, condReg)
			ctx.FreeReg(condReg)
			w.emitTestRegReg(falsyReg, falsyReg)
			ctx.FreeReg(falsyReg)
			w.emitJccRel32(0x85, labelForIP[ins.A]) // JNZ: taken when falsy != 0
		case OpReturn, OpHalt:
			var result JITValueDesc
			if len(simStack) > 0 {
				result = simStack[len(simStack)-1]
			} else {
				result = JITValueDesc{Loc: LocImm, Imm: NewNil()}
			}
			w.EmitReturnValue(RegR12, resultOffset, result, SigHalt)
		}
	}
	w.ResolveFixups()

	codeLen := int(uintptr(w.Ptr) - uintptr(w.Start))
	page, err := allocExec(codeLen)
	if err != nil {
		return nil, err
	}
	dst := (*[1 << 30]byte)(page.Base)[:codeLen:codeLen]
	copy(dst, codeBuf[:codeLen])
	if err := page.makeRX(); err != nil {
		freeExec([]*JITPage{page})
		return nil, err
	}

	entry := &NativeEntry{
		Pages:    []*JITPage{page},
		BodyHash: chunk.BodyHash(),
		Arch:     "amd64",
	}
	entry.Native = makeNativeFunc((*byte)(page.Base))
	return entry, nil
}

// makeNativeFunc reinterprets a raw code pointer as a NativeFunc value,
// the same trick _scm_ref/jit.go uses to turn an mmap'd page into a
// callable Go function: a func value is itself just a pointer to a
// struct whose first word is the code address, so wrapping codePtr in a
// single-field struct and reinterpreting that wrapper's address as
// *NativeFunc produces a function value that, when called, jumps
// straight into the emitted machine code under Go's own calling
// convention: ctx arrives in RAX, ip in RBX, and the Signal result is
// read back from RAX — EmitReturnValue's ABI (spec.md §6).
func makeNativeFunc(codePtr *byte) NativeFunc {
	fn := unsafe.Pointer(&struct{ *byte }{codePtr})
	return *(*NativeFunc)(unsafe.Pointer(&fn))
}

// verifyNativeControlFlow rejects any chunk whose jumps aren't provably
// safe for this codegen's no-register-lives-across-a-branch design: only
// forward jumps, and the simulated operand-stack depth (computed by
// walking the fixed per-opcode stack effect of the allowed subset) must
// be exactly zero at every jump instruction (after popping
// OpJumpIfFalse's condition) and at every jump target. That invariant is
// exactly spec.md §8's "static stack-effect sums to zero over a
// straight-line block" law applied at each branch boundary, and it means
// no value ever needs to be reconciled between two predecessors of a
// merge point — there is nothing live to reconcile.
func verifyNativeControlFlow(chunk *Chunk) error {
	depth := 0
	targetDepth := map[int32]int{}
	for i, ins := range chunk.Code {
		if d, ok := targetDepth[int32(i)]; ok && d != depth {
			return &JitError{Chunk: chunk.Name, IP: int32(i), Msg: "native codegen requires a balanced stack at merge points"}
		}
		switch ins.Op {
		case OpConst, OpLoad:
			depth++
		case OpAdd, OpSub, OpMul, OpEq, OpNe, OpLt, OpLe, OpGt, OpGe:
			depth--
		case OpJump:
			if ins.A <= int32(i) {
				return &JitError{Chunk: chunk.Name, IP: int32(i), Msg: "native codegen does not lower backward jumps"}
			}
			if depth != 0 {
				return &JitError{Chunk: chunk.Name, IP: int32(i), Msg: "native codegen requires an empty operand stack across a jump"}
			}
			targetDepth[ins.A] = 0
		case OpJumpIfFalse:
			if ins.A <= int32(i) {
				return &JitError{Chunk: chunk.Name, IP: int32(i), Msg: "native codegen does not lower backward jumps"}
			}
			depth--
			if depth != 0 {
				return &JitError{Chunk: chunk.Name, IP: int32(i), Msg: "native codegen requires an empty operand stack across a jump"}
			}
			targetDepth[ins.A] = 0
		}
	}
	return nil
}

// emitLoadLocal reads ctx.Locals[idx] into a freshly allocated register:
// first the slice header's data pointer (the word at Locals' struct
// offset, loaded through R12, the saved ctx pointer), then the element at
// that pointer plus idx*8 (sizeof(Value)).
func emitLoadLocal(ctx *JITContext, idx int32) JITValueDesc {
	r := ctx.AllocReg()
	ctx.W.emitMovRegMem(r, RegR12, localsOffset)
	ctx.W.emitMovRegMem(r, r, idx*8)
	return JITValueDesc{Loc: LocReg, Reg: r}
}

// unboxLong materializes d and sign-extends its 48-bit payload out to a
// full int64 by shifting left 16 then arithmetic-right 16 — spec.md
// §4.A's required unboxing sequence for is_long/as_long-style access,
// now emitted as real machine code rather than only performed by Value.Int
// in the interpreter.
func unboxLong(ctx *JITContext, d JITValueDesc) Reg {
	r := materialize(ctx, d)
	ctx.W.emitShlRegImm8(r, 16)
	ctx.W.emitSarRegImm8(r, 16)
	return r
}

// boxAsInt reboxes a raw int64 in r as a TagInt Value in place: mask to
// 48 bits, then OR in the quiet-NaN shell plus TagInt's tag bits.
func boxAsInt(ctx *JITContext, r Reg) {
	mask := ctx.AllocReg()
	ctx.W.emitMovRegImm64(mask, payMask)
	ctx.W.emitAndRegReg(r, mask)
	ctx.FreeReg(mask)
	tag := ctx.AllocReg()
	ctx.W.emitMovRegImm64(tag, qnanMask|(uint64(TagInt)<<48))
	ctx.W.emitOrRegReg(r, tag)
	ctx.FreeReg(tag)
}

// emitNegOp lowers unary negate: unbox, two's-complement NEG, rebox.
func emitNegOp(ctx *JITContext, a JITValueDesc) JITValueDesc {
	if a.Loc == LocImm && a.Imm.IsInt() {
		return JITValueDesc{Loc: LocImm, Imm: NewInt(-a.Imm.Int())}
	}
	r := unboxLong(ctx, a)
	ctx.W.emitNegReg(r)
	boxAsInt(ctx, r)
	return JITValueDesc{Loc: LocReg, Reg: r}
}

// emitArithFold constant-folds when both operands are LocImm (the
// JITEmit contract's required fast path, _scm_ref/jit_types.go); else it
// unboxes both operands, computes on the raw int64s, and reboxes the
// result as a TagInt Value — real arithmetic, not just folding.
func emitArithFold(ctx *JITContext, op Opcode, a, b JITValueDesc) JITValueDesc {
	if a.Loc == LocImm && b.Loc == LocImm && a.Imm.IsInt() && b.Imm.IsInt() {
		var v Value
		switch op {
		case OpAdd:
			v = NewInt(a.Imm.Int() + b.Imm.Int())
		case OpSub:
			v = NewInt(a.Imm.Int() - b.Imm.Int())
		case OpMul:
			v = NewInt(a.Imm.Int() * b.Imm.Int())
		}
		return JITValueDesc{Loc: LocImm, Imm: v}
	}

	ra := unboxLong(ctx, a)
	rb := unboxLong(ctx, b)
	switch op {
	case OpAdd:
		ctx.W.emitAddRegReg(ra, rb)
	case OpSub:
		ctx.W.emitSubRegReg(ra, rb)
	case OpMul:
		ctx.W.emitImulRegReg(ra, rb)
	}
	ctx.FreeReg(rb)
	boxAsInt(ctx, ra)
	return JITValueDesc{Loc: LocReg, Reg: ra}
}

// emitCompare lowers the six comparison opcodes identically: unbox both
// sides, CMP, SETcc into a clean 0/1, then OR that bit straight into a
// TagBool shell (NewBool(false)|bit == NewBool(bit!=0), since TagBool's
// payload is exactly that one bit).
func emitCompare(ctx *JITContext, op Opcode, a, b JITValueDesc) JITValueDesc {
	ra := unboxLong(ctx, a)
	rb := unboxLong(ctx, b)
	ctx.W.emitCmpRegReg(ra, rb)
	var cc byte
	switch op {
	case OpEq:
		cc = 0x94 // SETE
	case OpNe:
		cc = 0x95 // SETNE
	case OpLt:
		cc = 0x9C // SETL
	case OpLe:
		cc = 0x9E // SETLE
	case OpGt:
		cc = 0x9F // SETG
	case OpGe:
		cc = 0x9D // SETGE
	}
	ctx.W.emitSetccReg(cc, ra)
	ctx.W.emitMovzxReg8(ra)
	ctx.FreeReg(rb)
	boxAsBool(ctx, ra)
	return JITValueDesc{Loc: LocReg, Reg: ra}
}

// boxAsBool ORs a clean 0/1 register with the TagBool quiet-NaN shell.
func boxAsBool(ctx *JITContext, r Reg) {
	tag := ctx.AllocReg()
	ctx.W.emitMovRegImm64(tag, qnanMask|(uint64(TagBool)<<48))
	ctx.W.emitOrRegReg(r, tag)
	ctx.FreeReg(tag)
}

// emitIsFalsy implements Value.ToBool's negation as machine code: v is
// falsy iff it equals the boxed nil or the boxed false, the same two-case
// rule ToBool applies in the interpreter (spec.md's truthiness law).
// Returns a register holding 1 when falsy, 0 otherwise.
func emitIsFalsy(ctx *JITContext, vReg Reg) Reg {
	isNil := ctx.AllocReg()
	ctx.W.emitMovRegImm64(isNil, uint64(NewNil()))
	ctx.W.emitCmpRegReg(vReg, isNil)
	ctx.W.emitSetccReg(0x94, isNil) // SETE
	ctx.W.emitMovzxReg8(isNil)

	isFalse := ctx.AllocReg()
	ctx.W.emitMovRegImm64(isFalse, uint64(NewBool(false)))
	ctx.W.emitCmpRegReg(vReg, isFalse)
	ctx.W.emitSetccReg(0x94, isFalse) // SETE
	ctx.W.emitMovzxReg8(isFalse)

	ctx.W.emitOrRegReg(isNil, isFalse)
	ctx.FreeReg(isFalse)
	return isNil
}

func materialize(ctx *JITContext, d JITValueDesc) Reg {
	if d.Loc == LocReg {
		return d.Reg
	}
	r := ctx.AllocReg()
	ctx.W.emitMovRegImm64(r, uint64(d.Imm))
	return r
}
