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

// Arithmetic runtime ABI helpers, grounded on _scm_ref/alu.go's
// ToInt/ToFloat/ToBool conversion family. Every helper here is callable
// both from the bytecode interpreter (engine/interp.go) and, once a chunk
// is hot, from native code via the same flat C-like signature, taking an
// ip for bailout addressing (spec.md §4.D).

func abiAdd(ctx *JitContext, a, b Value, ip int32) (Value, Signal) {
	if a.IsInt() && b.IsInt() {
		return NewInt(a.Int() + b.Int()), SigOK
	}
	if af, bf, ok := toFloatPair(a, b); ok {
		return NewFloat(af + bf), SigOK
	}
	return NewNil(), ctx.bailout(ip, BailoutTypeMismatch)
}

func abiSub(ctx *JitContext, a, b Value, ip int32) (Value, Signal) {
	if a.IsInt() && b.IsInt() {
		return NewInt(a.Int() - b.Int()), SigOK
	}
	if af, bf, ok := toFloatPair(a, b); ok {
		return NewFloat(af - bf), SigOK
	}
	return NewNil(), ctx.bailout(ip, BailoutTypeMismatch)
}

func abiMul(ctx *JitContext, a, b Value, ip int32) (Value, Signal) {
	if a.IsInt() && b.IsInt() {
		return NewInt(a.Int() * b.Int()), SigOK
	}
	if af, bf, ok := toFloatPair(a, b); ok {
		return NewFloat(af * bf), SigOK
	}
	return NewNil(), ctx.bailout(ip, BailoutTypeMismatch)
}

// abiDiv guards division by zero explicitly: spec.md §8's boundary
// behaviors and end-to-end scenario 2 both require a zero divisor to
// signal BAILOUT with reason DivByZero, resuming at the Div instruction
// itself — never a trap into the OS and never a plain FAIL.
func abiDiv(ctx *JitContext, a, b Value, ip int32) (Value, Signal) {
	if a.IsInt() && b.IsInt() {
		if b.Int() == 0 {
			return NewNil(), ctx.bailout(ip, BailoutDivByZero)
		}
		return NewInt(a.Int() / b.Int()), SigOK
	}
	if af, bf, ok := toFloatPair(a, b); ok {
		if bf == 0 {
			return NewNil(), ctx.bailout(ip, BailoutDivByZero)
		}
		return NewFloat(af / bf), SigOK
	}
	return NewNil(), ctx.bailout(ip, BailoutTypeMismatch)
}

// abiMod mirrors abiDiv's zero-guard; floats use math.Mod rather than the
// Go '%' operator, which is undefined for non-integers.
func abiMod(ctx *JitContext, a, b Value, ip int32) (Value, Signal) {
	if a.IsInt() && b.IsInt() {
		if b.Int() == 0 {
			return NewNil(), ctx.bailout(ip, BailoutDivByZero)
		}
		return NewInt(a.Int() % b.Int()), SigOK
	}
	if af, bf, ok := toFloatPair(a, b); ok {
		if bf == 0 {
			return NewNil(), ctx.bailout(ip, BailoutDivByZero)
		}
		return NewFloat(mathMod(af, bf)), SigOK
	}
	return NewNil(), ctx.bailout(ip, BailoutTypeMismatch)
}

// abiNeg negates an int or float in place; unlike the binary ops there is
// no second operand to mismatch against, so the only bailout case is a
// non-numeric operand.
func abiNeg(ctx *JitContext, a Value, ip int32) (Value, Signal) {
	if a.IsInt() {
		return NewInt(-a.Int()), SigOK
	}
	if a.IsFloat() {
		return NewFloat(-a.Float()), SigOK
	}
	return NewNil(), ctx.bailout(ip, BailoutTypeMismatch)
}

func abiEq(ctx *JitContext, a, b Value, ip int32) (Value, Signal) {
	return NewBool(valuesEqual(a, b)), SigOK
}

func abiNe(ctx *JitContext, a, b Value, ip int32) (Value, Signal) {
	return NewBool(!valuesEqual(a, b)), SigOK
}

func valuesEqual(a, b Value) bool {
	if a.GetTag() != b.GetTag() {
		return false
	}
	switch a.GetTag() {
	case TagInt:
		return a.Int() == b.Int()
	case TagFloat:
		return a.Float() == b.Float()
	case TagBool:
		return a.Bool() == b.Bool()
	case TagNil, TagUnit:
		return true
	default:
		return a == b
	}
}

func abiLt(ctx *JitContext, a, b Value, ip int32) (Value, Signal) {
	if a.IsInt() && b.IsInt() {
		return NewBool(a.Int() < b.Int()), SigOK
	}
	if af, bf, ok := toFloatPair(a, b); ok {
		return NewBool(af < bf), SigOK
	}
	return NewNil(), ctx.bailout(ip, BailoutTypeMismatch)
}

func abiLe(ctx *JitContext, a, b Value, ip int32) (Value, Signal) {
	if a.IsInt() && b.IsInt() {
		return NewBool(a.Int() <= b.Int()), SigOK
	}
	if af, bf, ok := toFloatPair(a, b); ok {
		return NewBool(af <= bf), SigOK
	}
	return NewNil(), ctx.bailout(ip, BailoutTypeMismatch)
}

func abiGt(ctx *JitContext, a, b Value, ip int32) (Value, Signal) {
	if a.IsInt() && b.IsInt() {
		return NewBool(a.Int() > b.Int()), SigOK
	}
	if af, bf, ok := toFloatPair(a, b); ok {
		return NewBool(af > bf), SigOK
	}
	return NewNil(), ctx.bailout(ip, BailoutTypeMismatch)
}

func abiGe(ctx *JitContext, a, b Value, ip int32) (Value, Signal) {
	if a.IsInt() && b.IsInt() {
		return NewBool(a.Int() >= b.Int()), SigOK
	}
	if af, bf, ok := toFloatPair(a, b); ok {
		return NewBool(af >= bf), SigOK
	}
	return NewNil(), ctx.bailout(ip, BailoutTypeMismatch)
}

// abiStructEq compares raw bit patterns directly (spec.md §4.F): correct
// for primitives, and for heap-tagged values this is identity rather than
// deep equality — deep structural comparison of cons trees is
// abiStructEqDeep's job, reached only from the interpreter's slow path.
func abiStructEq(ctx *JitContext, a, b Value, ip int32) (Value, Signal) {
	return NewBool(a == b), SigOK
}

func abiStructEqDeep(ctx *JitContext, a, b Value, ip int32) (Value, Signal) {
	return NewBool(structEqDeep(ctx, a, b)), SigOK
}

func structEqDeep(ctx *JitContext, a, b Value) bool {
	if a == b {
		return true
	}
	if a.GetTag() != b.GetTag() {
		return false
	}
	switch a.GetTag() {
	case TagCons:
		ca, cb := ctx.Heap.Cons(a), ctx.Heap.Cons(b)
		return structEqDeep(ctx, ca.Car, cb.Car) && structEqDeep(ctx, ca.Cdr, cb.Cdr)
	case TagString:
		return ctx.Heap.String(a) == ctx.Heap.String(b)
	default:
		return valuesEqual(a, b)
	}
}

func toFloatPair(a, b Value) (float64, float64, bool) {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	return af, bf, aok && bok
}

// toFloat widens ints to float64; bools do not convert, so bool arithmetic
// always bails rather than silently treating true/false as 1/0.
func toFloat(v Value) (float64, bool) {
	switch v.GetTag() {
	case TagInt:
		return float64(v.Int()), true
	case TagFloat:
		return v.Float(), true
	default:
		return 0, false
	}
}

// mathMod is floating-point modulus with the same sign convention as Go's
// integer '%': the result carries the dividend's sign.
func mathMod(a, b float64) float64 {
	return math.Mod(a, b)
}
