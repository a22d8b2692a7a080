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

import "math"

// HelperID selects one runtime ABI routine from the extended families
// spec.md §4.B lists (extended math, type ops, type predicates, expression
// ops, debug/meta, higher-order) that the compiler never inlines — per
// spec.md §4.F, "Power and transcendental functions are not inlined; they
// are emitted as calls to the runtime helpers." OpCallHelper carries one
// of these plus an arity; the interpreter and codegen both dispatch
// through helperTable so adding a family member never grows the opcode
// enum itself, matching spec.md §9's "any dispatch mechanism... a table
// keyed by opcode is simplest" note applied one level down.
type HelperID int32

const (
	// extended math
	HSqrt HelperID = iota
	HLog
	HTrunc
	HCeil
	HFloor
	HRound
	HSin
	HCos
	HTan
	HAsin
	HAcos
	HAtan
	HIsNaN
	HIsInf
	HAbs
	HPow
	HFloorDiv

	// type ops / predicates
	HGetType
	HCheckType
	HAssertType
	HIsVariable
	HIsSExpr
	HIsSymbol

	// expression ops
	HIndexAtom
	HMinAtom
	HMaxAtom
	HDeconAtom
	HRepr

	// debug/meta
	HTrace
	HBreakpoint
	HGetMetatype
	HBloomCheck

	// higher-order (dispatch element-wise through the RuleDB)
	HMap
	HFilter
	HFoldl
)

// helperArity records the number of stack operands each helper takes.
// Nothing in the engine reads it: OpCallHelper pops as many operands as
// its B operand says, and no compile step compares B against this table.
var helperArity = map[HelperID]int{
	HSqrt: 1, HLog: 1, HTrunc: 1, HCeil: 1, HFloor: 1, HRound: 1,
	HSin: 1, HCos: 1, HTan: 1, HAsin: 1, HAcos: 1, HAtan: 1,
	HIsNaN: 1, HIsInf: 1, HAbs: 1, HPow: 2, HFloorDiv: 2,
	HGetType: 1, HCheckType: 2, HAssertType: 2,
	HIsVariable: 1, HIsSExpr: 1, HIsSymbol: 1,
	HIndexAtom: 2, HMinAtom: 1, HMaxAtom: 1, HDeconAtom: 1, HRepr: 1,
	HTrace: 1, HBreakpoint: 0, HGetMetatype: 1, HBloomCheck: 1,
	HMap: 2, HFilter: 2, HFoldl: 3,
}

// callHelper dispatches id against args, mirroring every other ABI
// helper's (ctx, ..., ip) -> (Value, Signal) shape.
func callHelper(ctx *JitContext, id HelperID, args []Value, ip int32) (Value, Signal) {
	switch id {
	case HSqrt, HLog, HTrunc, HCeil, HFloor, HRound, HSin, HCos, HTan, HAsin, HAcos, HAtan:
		f, ok := toFloat(args[0])
		if !ok {
			return NewNil(), ctx.bailout(ip, BailoutTypeMismatch)
		}
		return NewFloat(mathFn(id, f)), SigOK

	case HIsNaN:
		f, ok := toFloat(args[0])
		if !ok {
			return NewBool(false), SigOK
		}
		return NewBool(math.IsNaN(f)), SigOK
	case HIsInf:
		f, ok := toFloat(args[0])
		if !ok {
			return NewBool(false), SigOK
		}
		return NewBool(math.IsInf(f, 0)), SigOK

	case HAbs:
		if args[0].IsInt() {
			n := args[0].Int()
			if n < 0 {
				n = -n
			}
			return NewInt(n), SigOK
		}
		if f, ok := toFloat(args[0]); ok {
			return NewFloat(math.Abs(f)), SigOK
		}
		return NewNil(), ctx.bailout(ip, BailoutTypeMismatch)

	case HPow:
		af, bf, ok := toFloatPair(args[0], args[1])
		if !ok {
			return NewNil(), ctx.bailout(ip, BailoutTypeMismatch)
		}
		return NewFloat(math.Pow(af, bf)), SigOK

	case HFloorDiv:
		if args[0].IsInt() && args[1].IsInt() {
			if args[1].Int() == 0 {
				return NewNil(), ctx.bailout(ip, BailoutDivByZero)
			}
			return NewInt(int64(math.Floor(float64(args[0].Int()) / float64(args[1].Int())))), SigOK
		}
		af, bf, ok := toFloatPair(args[0], args[1])
		if !ok {
			return NewNil(), ctx.bailout(ip, BailoutTypeMismatch)
		}
		if bf == 0 {
			return NewNil(), ctx.bailout(ip, BailoutDivByZero)
		}
		return NewFloat(math.Floor(af / bf)), SigOK

	case HGetType:
		return NewInt(int64(args[0].GetTag())), SigOK
	case HCheckType:
		return NewBool(args[0].GetTag() == Tag(args[1].Int())), SigOK
	case HAssertType:
		if args[0].GetTag() != Tag(args[1].Int()) {
			return NewNil(), ctx.bailout(ip, BailoutTypeMismatch)
		}
		return args[0], SigOK

	case HIsVariable:
		return NewBool(args[0].IsVar()), SigOK
	case HIsSExpr:
		return NewBool(args[0].GetTag() == TagCons || args[0].IsNil()), SigOK
	case HIsSymbol:
		return NewBool(args[0].GetTag() == TagSymbol), SigOK

	case HIndexAtom:
		return abiIndexAtom(ctx, args[0], args[1], ip)
	case HMinAtom:
		return abiMinMaxAtom(ctx, args[0], true, ip)
	case HMaxAtom:
		return abiMinMaxAtom(ctx, args[0], false, ip)
	case HDeconAtom:
		return abiDeconAtom(ctx, args[0], ip)
	case HRepr:
		return ctx.Heap.NewString(args[0].String()), SigOK

	case HTrace:
		traceValue(args[0])
		return args[0], SigOK
	case HBreakpoint:
		return NewUnit(), SigOK
	case HGetMetatype:
		return NewInt(int64(args[0].GetTag())), SigOK
	case HBloomCheck:
		// The real bloom filter lives in the external rule cache (spec.md
		// §1's black box); without one, report "maybe present" so callers
		// always fall through to the authoritative Space lookup.
		return NewBool(true), SigOK

	case HMap:
		return abiHigherOrder(ctx, HMap, args[0], args[1], NewNil(), ip)
	case HFilter:
		return abiHigherOrder(ctx, HFilter, args[0], args[1], NewNil(), ip)
	case HFoldl:
		return abiHigherOrder(ctx, HFoldl, args[0], args[1], args[2], ip)

	default:
		return NewNil(), ctx.bailout(ip, BailoutUnsupportedOpcode)
	}
}

func mathFn(id HelperID, f float64) float64 {
	switch id {
	case HSqrt:
		return math.Sqrt(f)
	case HLog:
		return math.Log(f)
	case HTrunc:
		return math.Trunc(f)
	case HCeil:
		return math.Ceil(f)
	case HFloor:
		return math.Floor(f)
	case HRound:
		return math.Round(f)
	case HSin:
		return math.Sin(f)
	case HCos:
		return math.Cos(f)
	case HTan:
		return math.Tan(f)
	case HAsin:
		return math.Asin(f)
	case HAcos:
		return math.Acos(f)
	case HAtan:
		return math.Atan(f)
	default:
		return f
	}
}

// abiIndexAtom returns the n-th element of a cons list, bailing out (not
// panicking) past the end — matching every other ABI helper's recoverable
// error contract.
func abiIndexAtom(ctx *JitContext, list, idx Value, ip int32) (Value, Signal) {
	if !idx.IsInt() {
		return NewNil(), ctx.bailout(ip, BailoutTypeMismatch)
	}
	cur := list
	for i := int64(0); i < idx.Int(); i++ {
		if cur.GetTag() != TagCons {
			return NewNil(), ctx.bailout(ip, BailoutTypeMismatch)
		}
		cur = ctx.Heap.Cons(cur).Cdr
	}
	if cur.GetTag() != TagCons {
		return NewNil(), ctx.bailout(ip, BailoutTypeMismatch)
	}
	return ctx.Heap.Cons(cur).Car, SigOK
}

func abiMinMaxAtom(ctx *JitContext, list Value, wantMin bool, ip int32) (Value, Signal) {
	if list.GetTag() != TagCons {
		return NewNil(), ctx.bailout(ip, BailoutTypeMismatch)
	}
	cur := ctx.Heap.Cons(list)
	best := cur.Car
	rest := cur.Cdr
	for rest.GetTag() == TagCons {
		c := ctx.Heap.Cons(rest)
		bf, ok1 := toFloat(best)
		cf, ok2 := toFloat(c.Car)
		if !ok1 || !ok2 {
			return NewNil(), ctx.bailout(ip, BailoutTypeMismatch)
		}
		if (wantMin && cf < bf) || (!wantMin && cf > bf) {
			best = c.Car
		}
		rest = c.Cdr
	}
	return best, SigOK
}

// abiDeconAtom splits a cons cell into the two-element list (head tail), the ABI mirror of
// the round-trip law in spec.md §8: decon_atom(cons_atom(h, t)) == (h, t).
func abiDeconAtom(ctx *JitContext, v Value, ip int32) (Value, Signal) {
	if v.GetTag() != TagCons {
		return NewNil(), ctx.bailout(ip, BailoutTypeMismatch)
	}
	c := ctx.Heap.Cons(v)
	return ctx.Heap.NewCons(c.Car, ctx.Heap.NewCons(c.Cdr, NewNil())), SigOK
}

// abiHigherOrder implements map/filter/foldl by dispatching head against
// each element through the RuleDB, the same external-rule boundary
// abi_rules.go's abiRuleDispatch already crosses — higher-order opcodes
// never embed a Go closure, matching spec.md §6's "the compiler never
// emits calls into unevaluated sub-expressions" rule.
func abiHigherOrder(ctx *JitContext, kind HelperID, list, head, acc Value, ip int32) (Value, Signal) {
	if ctx.Rules == nil {
		return NewNil(), ctx.bailout(ip, BailoutUndefinedGlobal)
	}
	items := make([]Value, 0)
	cur := list
	for cur.GetTag() == TagCons {
		c := ctx.Heap.Cons(cur)
		items = append(items, c.Car)
		cur = c.Cdr
	}
	switch kind {
	case HMap:
		out := NewNil()
		for i := len(items) - 1; i >= 0; i-- {
			v, sig := ctx.Rules.Dispatch(ctx, head, []Value{items[i]}, ip)
			if sig != SigOK {
				return NewNil(), sig
			}
			out = ctx.Heap.NewCons(v, out)
		}
		return out, SigOK
	case HFilter:
		kept := make([]Value, 0, len(items))
		for _, it := range items {
			v, sig := ctx.Rules.Dispatch(ctx, head, []Value{it}, ip)
			if sig != SigOK {
				return NewNil(), sig
			}
			if v.ToBool() {
				kept = append(kept, it)
			}
		}
		out := NewNil()
		for i := len(kept) - 1; i >= 0; i-- {
			out = ctx.Heap.NewCons(kept[i], out)
		}
		return out, SigOK
	case HFoldl:
		result := acc
		for _, it := range items {
			v, sig := ctx.Rules.Dispatch(ctx, head, []Value{result, it}, ip)
			if sig != SigOK {
				return NewNil(), sig
			}
			result = v
		}
		return result, SigOK
	default:
		return NewNil(), ctx.bailout(ip, BailoutUnsupportedOpcode)
	}
}
