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

import (
	"fmt"
	"sync/atomic"
)

// JitError is the one place in this package that returns a Go error, used
// by the compiler driver (engine/compiler.go) to report a failed
// promotion attempt without panicking the caller — mirrors
// _scm_ref/jit.go's OptimizeForValues falling back to the interpreted
// path on any recognition failure.
type JitError struct {
	Chunk string
	IP    int32
	Msg   string
}

func (e *JitError) Error() string {
	return fmt.Sprintf("jit: %s@%d: %s", e.Chunk, e.IP, e.Msg)
}

// Step executes exactly one instruction at ip and returns the next ip to
// execute along with the re-entry signal. Grounded on _scm_ref/scm.go's
// goto-restart tail-call loop, reshaped around bytecode offsets and the
// fixed Signal ABI (spec.md §4.I, §6) instead of a Go-level goto.
func Step(ctx *JitContext, ip int32) (nextIP int32, sig Signal) {
	atomic.AddInt64(&TotalSteps, 1)
	ins := ctx.Chunk.Code[ip]
	switch ins.Op {
	case OpNop:
		return ip + 1, SigOK

	case OpConst:
		ctx.push(ctx.Chunk.Const(ins.A))
		return ip + 1, SigOK
	case OpPop:
		ctx.pop()
		return ip + 1, SigOK
	case OpDup:
		ctx.push(ctx.top())
		return ip + 1, SigOK
	case OpLoad:
		ctx.push(ctx.Locals[ins.A])
		return ip + 1, SigOK
	case OpStore:
		ctx.Locals[ins.A] = ctx.pop()
		return ip + 1, SigOK
	case OpPushNil:
		ctx.push(NewNil())
		return ip + 1, SigOK
	case OpPushTrue:
		ctx.push(NewBool(true))
		return ip + 1, SigOK
	case OpPushFalse:
		ctx.push(NewBool(false))
		return ip + 1, SigOK
	case OpPushUnit:
		ctx.push(NewUnit())
		return ip + 1, SigOK

	case OpAdd, OpSub, OpMul, OpDiv, OpMod, OpEq, OpNe, OpLt, OpLe, OpGt, OpGe, OpStructEq, OpStructEqDeep:
		b := ctx.pop()
		a := ctx.pop()
		var v Value
		var s Signal
		switch ins.Op {
		case OpAdd:
			v, s = abiAdd(ctx, a, b, ip)
		case OpSub:
			v, s = abiSub(ctx, a, b, ip)
		case OpMul:
			v, s = abiMul(ctx, a, b, ip)
		case OpDiv:
			v, s = abiDiv(ctx, a, b, ip)
		case OpMod:
			v, s = abiMod(ctx, a, b, ip)
		case OpEq:
			v, s = abiEq(ctx, a, b, ip)
		case OpNe:
			v, s = abiNe(ctx, a, b, ip)
		case OpLt:
			v, s = abiLt(ctx, a, b, ip)
		case OpLe:
			v, s = abiLe(ctx, a, b, ip)
		case OpGt:
			v, s = abiGt(ctx, a, b, ip)
		case OpGe:
			v, s = abiGe(ctx, a, b, ip)
		case OpStructEq:
			v, s = abiStructEq(ctx, a, b, ip)
		case OpStructEqDeep:
			v, s = abiStructEqDeep(ctx, a, b, ip)
		}
		if s != SigOK {
			return ip, s
		}
		ctx.push(v)
		return ip + 1, SigOK

	case OpNeg:
		v, s := abiNeg(ctx, ctx.pop(), ip)
		if s != SigOK {
			return ip, s
		}
		ctx.push(v)
		return ip + 1, SigOK

	case OpAnd, OpOr, OpXor:
		b := ctx.pop()
		a := ctx.pop()
		var v Value
		var s Signal
		switch ins.Op {
		case OpAnd:
			v, s = abiAnd(ctx, a, b, ip)
		case OpOr:
			v, s = abiOr(ctx, a, b, ip)
		case OpXor:
			v, s = abiXor(ctx, a, b, ip)
		}
		if s != SigOK {
			return ip, s
		}
		ctx.push(v)
		return ip + 1, SigOK
	case OpNot:
		v, s := abiNot(ctx, ctx.pop(), ip)
		if s != SigOK {
			return ip, s
		}
		ctx.push(v)
		return ip + 1, SigOK

	case OpCallHelper:
		id := HelperID(ins.A)
		arity := int(ins.B)
		args := make([]Value, arity)
		for i := arity - 1; i >= 0; i-- {
			args[i] = ctx.pop()
		}
		v, s := callHelper(ctx, id, args, ip)
		if s != SigOK {
			return ip, s
		}
		ctx.push(v)
		return ip + 1, SigOK

	case OpJump:
		return ins.A, SigOK
	case OpJumpIfFalse:
		cond := ctx.pop()
		if !cond.ToBool() {
			return ins.A, SigOK
		}
		return ip + 1, SigOK
	case OpJumpTable:
		key := ctx.pop()
		jt := ctx.Chunk.JumpTables[ins.A]
		return jt.Lookup(key.Int()), SigOK

	case OpCall:
		ctx.Calls = append(ctx.Calls, ip+1)
		return ins.A, SigOK
	case OpReturn:
		n := len(ctx.Calls)
		if n == 0 {
			return ip, SigHalt
		}
		ret := ctx.Calls[n-1]
		ctx.Calls = ctx.Calls[:n-1]
		return ret, SigOK
	case OpHalt:
		return ip, SigHalt

	case OpCons:
		b := ctx.pop()
		a := ctx.pop()
		v, s := abiCons(ctx, a, b, ip)
		if s != SigOK {
			return ip, s
		}
		ctx.push(v)
		return ip + 1, SigOK
	case OpCar:
		v, s := abiCar(ctx, ctx.pop(), ip)
		if s != SigOK {
			return ip, s
		}
		ctx.push(v)
		return ip + 1, SigOK
	case OpCdr:
		v, s := abiCdr(ctx, ctx.pop(), ip)
		if s != SigOK {
			return ip, s
		}
		ctx.push(v)
		return ip + 1, SigOK
	case OpListLen:
		v, s := abiListLen(ctx, ctx.pop(), ip)
		if s != SigOK {
			return ip, s
		}
		ctx.push(v)
		return ip + 1, SigOK

	case OpMatchList:
		ok := abiMatchList(ctx, ctx.pop(), ins.A)
		ctx.push(NewBool(ok))
		return ip + 1, SigOK
	case OpMatchCons:
		car, cdr, ok := abiMatchCons(ctx, ctx.pop())
		if !ok {
			ctx.push(NewBool(false))
			return ip + 1, SigOK
		}
		ctx.push(car)
		ctx.push(cdr)
		ctx.push(NewBool(true))
		return ip + 1, SigOK
	case OpMatchBind:
		abiMatchBind(ctx, ins.A, ctx.pop())
		ctx.push(NewBool(true))
		return ip + 1, SigOK
	case OpMatchGuard:
		cond := ctx.pop()
		if !cond.ToBool() {
			return ip, SigFail
		}
		return ip + 1, SigOK
	case OpUnify:
		b := ctx.pop()
		a := ctx.pop()
		v, s := abiUnify(ctx, a, b, ip)
		if s != SigOK {
			return ip, s
		}
		ctx.push(v)
		return ip + 1, SigOK
	case OpUnifyBind:
		val := ctx.pop()
		pattern := ctx.pop()
		v, s := abiUnifyBind(ctx, pattern, val, ip)
		if s != SigOK {
			return ip, s
		}
		ctx.push(v)
		return ip + 1, SigOK

	case OpPushFrame:
		abiPushFrame(ctx)
		return ip + 1, SigOK
	case OpPopFrame:
		abiPopFrame(ctx)
		return ip + 1, SigOK
	case OpBindStore:
		abiBindStore(ctx, uint32(ins.A), ctx.pop())
		return ip + 1, SigOK
	case OpBindLoad:
		v, s := abiBindLoad(ctx, uint32(ins.A), ip)
		if s != SigOK {
			return ip, s
		}
		ctx.push(v)
		return ip + 1, SigOK
	case OpBindHas:
		ctx.push(NewBool(abiBindHas(ctx, uint32(ins.A))))
		return ip + 1, SigOK
	case OpBindClear:
		abiBindClear(ctx, uint32(ins.A))
		return ip + 1, SigOK

	case OpLoadGlobal:
		v, s := abiLoadGlobal(ctx, uint32(ins.A), ip)
		if s != SigOK {
			return ip, s
		}
		ctx.push(v)
		return ip + 1, SigOK
	case OpStoreGlobal:
		abiStoreGlobal(ctx, uint32(ins.A), ctx.pop())
		return ip + 1, SigOK
	case OpMakeClosure:
		n := int(ins.B)
		upvalues := make([]Value, n)
		for i := n - 1; i >= 0; i-- {
			upvalues[i] = ctx.pop()
		}
		v, s := abiMakeClosure(ctx, ins.A, upvalues)
		if s != SigOK {
			return ip, s
		}
		ctx.push(v)
		return ip + 1, SigOK
	case OpCallClosure:
		n := int(ins.B)
		args := make([]Value, n)
		for i := n - 1; i >= 0; i-- {
			args[i] = ctx.pop()
		}
		closure := ctx.pop()
		v, s := abiCallClosure(ctx, closure, args, ip)
		if s != SigOK {
			return ip, s
		}
		ctx.push(v)
		return ip + 1, SigOK
	case OpLoadUpvalue:
		v, s := abiLoadUpvalue(ctx, ins.A, ip)
		if s != SigOK {
			return ip, s
		}
		ctx.push(v)
		return ip + 1, SigOK

	case OpReturnMulti:
		n := int(ins.A)
		vals := make([]Value, n)
		for i := n - 1; i >= 0; i-- {
			vals[i] = ctx.pop()
		}
		ctx.Results = append(ctx.Results, vals...)
		return ip, SigHalt
	case OpCollectN:
		n := int(ins.A)
		avail := len(ctx.Results)
		if n > avail {
			n = avail
		}
		tail := ctx.Results[avail-n:]
		result := NewNil()
		for i := len(tail) - 1; i >= 0; i-- {
			result = ctx.Heap.NewCons(tail[i], result)
		}
		ctx.Results = ctx.Results[:avail-n]
		ctx.push(result)
		return ip + 1, SigOK

	case OpSpaceAdd:
		v, s := abiSpaceAdd(ctx, ctx.pop(), ip)
		if s != SigOK {
			return ip, s
		}
		ctx.push(v)
		return ip + 1, SigOK
	case OpSpaceRemove:
		v, s := abiSpaceRemove(ctx, ctx.pop(), ip)
		if s != SigOK {
			return ip, s
		}
		ctx.push(v)
		return ip + 1, SigOK
	case OpSpaceGetAtoms:
		vs, s := abiSpaceGetAtoms(ctx, ip)
		if s != SigOK {
			return ip, s
		}
		result := NewNil()
		for i := len(vs) - 1; i >= 0; i-- {
			result = ctx.Heap.NewCons(vs[i], result)
		}
		ctx.push(result)
		return ip + 1, SigOK
	case OpSpaceMatch:
		vs, s := abiSpaceMatch(ctx, ctx.pop(), ip)
		if s != SigOK {
			return ip, s
		}
		result := NewNil()
		for i := len(vs) - 1; i >= 0; i-- {
			result = ctx.Heap.NewCons(vs[i], result)
		}
		ctx.push(result)
		return ip + 1, SigOK

	case OpRuleDispatch:
		args := ctx.pop()
		head := ctx.pop()
		var argv []Value
		for args.GetTag() == TagCons {
			c := ctx.Heap.Cons(args)
			argv = append(argv, c.Car)
			args = c.Cdr
		}
		v, s := abiRuleDispatch(ctx, head, argv, ip)
		if s != SigOK {
			return ip, s
		}
		ctx.push(v)
		return ip + 1, SigOK
	case OpRuleLookup:
		head := ctx.pop()
		v, s := abiRuleLookup(ctx, head, ip)
		if s != SigOK {
			return ip, s
		}
		ctx.push(v)
		return ip + 1, SigOK
	case OpRuleTry:
		head := ctx.pop()
		v, s := abiRuleTry(ctx, head, ins.A, ip)
		if s != SigOK {
			return ip, s
		}
		ctx.push(v)
		return ip + 1, SigOK
	case OpRuleNext:
		alt, resume, ok := abiBacktrack(ctx)
		if !ok {
			return ip, SigFail
		}
		ctx.push(alt)
		return resume, SigOK
	case OpRuleCommit:
		_, s := abiCommit(ctx, ip)
		return ip + 1, s
	case OpRuleFail:
		_, s := abiFail(ctx, ip)
		return ip, s
	case OpRuleApplySubst:
		ctx.push(abiApplySubst(ctx, ctx.pop()))
		return ip + 1, SigOK
	case OpRuleDefine:
		body := ctx.pop()
		head := ctx.pop()
		if ctx.Rules == nil {
			return ip, ctx.bailout(ip, BailoutUnsupportedOpcode)
		}
		ctx.Rules.Define(head, body)
		ctx.push(NewUnit())
		return ip + 1, SigOK

	case OpNewState:
		v, s := abiNewState(ctx, ctx.pop(), ip)
		if s != SigOK {
			return ip, s
		}
		ctx.push(v)
		return ip + 1, SigOK
	case OpStateGet:
		v, s := abiStateGet(ctx, ctx.pop(), ip)
		if s != SigOK {
			return ip, s
		}
		ctx.push(v)
		return ip + 1, SigOK
	case OpStateChange:
		newValue := ctx.pop()
		handle := ctx.pop()
		v, s := abiStateChange(ctx, handle, newValue, ip)
		if s != SigOK {
			return ip, s
		}
		ctx.push(v)
		return ip + 1, SigOK

	case OpTailCall:
		return abiTailCall(ins.A)
	case OpCallN:
		n := int(ins.A)
		args := make([]Value, n)
		for i := n - 1; i >= 0; i-- {
			args[i] = ctx.pop()
		}
		closure := ctx.pop()
		v, s := abiCallN(ctx, closure, args, ip)
		if s != SigOK {
			return ip, s
		}
		ctx.push(v)
		return ip + 1, SigOK
	case OpTailCallN:
		n := int(ins.A)
		args := make([]Value, n)
		for i := n - 1; i >= 0; i-- {
			args[i] = ctx.pop()
		}
		closure := ctx.pop()
		v, s := abiTailCallN(ctx, closure, args, ip)
		if s != SigOK {
			return ip, s
		}
		ctx.push(v)
		return ip + 1, SigOK
	case OpCallNative:
		n := int(ins.B)
		args := make([]Value, n)
		for i := n - 1; i >= 0; i-- {
			args[i] = ctx.pop()
		}
		v, s := abiCallNative(ctx, NativeID(ins.A), args, ip)
		if s != SigOK {
			return ip, s
		}
		ctx.push(v)
		return ip + 1, SigOK
	case OpCallExternal:
		v, s := abiCallExternal(ctx, NativeID(ins.A), ip)
		if s != SigOK {
			return ip, s
		}
		ctx.push(v)
		return ip + 1, SigOK
	case OpCallCached:
		n := int(ins.B)
		args := make([]Value, n)
		for i := n - 1; i >= 0; i-- {
			args[i] = ctx.pop()
		}
		v, s := abiCallCached(ctx, NativeID(ins.A), ins.A, args, ip)
		if s != SigOK {
			return ip, s
		}
		ctx.push(v)
		return ip + 1, SigOK

	case OpLet, OpLetStar:
		abiLet(ctx, uint32(ins.A), ctx.pop())
		return ip + 1, SigOK
	case OpCase:
		scrutinee := ctx.pop()
		next := abiCase(ctx, scrutinee, ins.A, uint32(ins.B))
		return next, SigOK
	case OpChain:
		second := ctx.pop()
		ctx.pop()
		ctx.push(second)
		return ip + 1, SigOK
	case OpQuote:
		ctx.push(ctx.Chunk.Const(ins.A))
		return ip + 1, SigOK
	case OpUnquote:
		return ip + 1, SigOK
	case OpEval:
		v, s := abiEval(ctx, ctx.pop(), ip)
		if s != SigOK {
			return ip, s
		}
		ctx.push(v)
		return ip + 1, SigOK
	case OpBind:
		abiBindStore(ctx, uint32(ins.A), ctx.pop())
		return ip + 1, SigOK
	case OpNew:
		abiNew(ctx, uint32(ins.A), ctx.pop())
		return ip + 1, SigOK
	case OpCollapse:
		ctx.push(abiCollapse(ctx, ctx.pop()))
		return ip + 1, SigOK
	case OpSuperpose:
		v, s := abiSuperpose(ctx, ctx.pop(), ins.A, ip)
		if s != SigOK {
			return ip, s
		}
		ctx.push(v)
		return ip + 1, SigOK
	case OpMemo:
		ctx.push(ctx.Chunk.Memo.Store(ins.A, ctx.pop()))
		return ip + 1, SigOK
	case OpMemoFirst:
		ctx.push(ctx.Chunk.Memo.StoreFirst(ins.A, ctx.pop()))
		return ip + 1, SigOK
	case OpPragma:
		return ip + 1, SigOK

	case OpFork:
		n := int(ins.A)
		alts := make([]Value, n)
		for i := n - 1; i >= 0; i-- {
			alts[i] = ctx.pop()
		}
		v, s := abiFork(ctx, alts, ins.B, ip)
		if s != SigOK {
			return ip, s
		}
		ctx.push(v)
		return ip + 1, SigOK
	case OpYield:
		v, s := abiYield(ctx, ctx.pop(), ip)
		ctx.push(v)
		return ip + 1, s
	case OpCollect:
		v, s := abiCollect(ctx, ip)
		if s != SigOK {
			return ip, s
		}
		ctx.push(v)
		return ip + 1, SigOK
	case OpCut:
		_, s := abiCut(ctx, ins.A, ip)
		return ip + 1, s
	case OpGuard:
		v, s := abiGuard(ctx, ctx.pop(), ip)
		if s != SigOK {
			return ip, s
		}
		ctx.push(v)
		return ip + 1, SigOK
	case OpAmb:
		n := int(ins.A)
		alts := make([]Value, n)
		for i := n - 1; i >= 0; i-- {
			alts[i] = ctx.pop()
		}
		v, s := abiAmb(ctx, alts, ins.B, ip)
		if s != SigOK {
			return ip, s
		}
		ctx.push(v)
		return ip + 1, SigOK
	case OpCommit:
		_, s := abiCommit(ctx, ip)
		return ip + 1, s
	case OpBacktrack:
		alt, resume, ok := abiBacktrack(ctx)
		if !ok {
			return ip, SigFail
		}
		ctx.push(alt)
		return resume, SigOK
	case OpFail:
		_, s := abiFail(ctx, ip)
		return ip, s
	case OpBeginNondet:
		_, s := abiBeginNondet(ctx, ip)
		return ip + 1, s
	case OpEndNondet:
		_, s := abiEndNondet(ctx, ip)
		return ip + 1, s

	default:
		return ip, SigError
	}
}

// Run drives the interpreter from ip until it halts, fails past the
// bottom of the choice stack, or errors. On SigFail it backtracks
// automatically as long as choice points remain, matching the dispatcher's
// signal-driven re-entry loop (spec.md §4.I) collapsed into a single call
// for callers that don't need to observe YIELD/BAILOUT themselves.
func Run(ctx *JitContext, ip int32) Signal {
	ctx.clearBailout()
	for {
		nextIP, sig := Step(ctx, ip)
		switch sig {
		case SigOK:
			ip = nextIP
		case SigHalt:
			return SigHalt
		case SigYield:
			ip = nextIP
		case SigFail:
			alt, resume, ok := abiBacktrack(ctx)
			for !ok && ctx.Choices.Len() > 0 {
				alt, resume, ok = abiBacktrack(ctx)
			}
			if !ok {
				return SigFail
			}
			ctx.push(alt)
			ip = resume
		case SigBailout:
			return SigBailout
		default:
			return SigError
		}
	}
}
