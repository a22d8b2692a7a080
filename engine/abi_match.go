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

// Pattern-unification ABI, grounded on _scm_ref/match.go's recursive
// match(val, pattern, env) taxonomy: that function dispatches on the
// pattern's shape (literal, Symbol, list, cons, concat, regex) and either
// compares by equality or binds a variable. The compiler lowers a pattern
// tree into a sequence of these three opcodes plus the existing
// OpCar/OpCdr/OpEq, one opcode per node of the pattern rather than one
// recursive call: MatchList/MatchCons test shape, MatchBind always
// succeeds the way an unconditional Symbol binding does.

// abiMatchList reports whether val is a proper cons-terminated list of
// exactly n elements, the list-pattern arm of match(). It does not bind
// any element itself; the compiler emits OpCar/OpCdr/OpMatchBind (or
// nested OpMatchList/OpMatchCons) for each element after this check
// passes, mirroring match()'s per-item recursive calls.
func abiMatchList(ctx *JitContext, val Value, n int32) bool {
	cur := val
	for i := int32(0); i < n; i++ {
		if cur.GetTag() != TagCons {
			return false
		}
		cur = ctx.Heap.Cons(cur).Cdr
	}
	return cur.IsNil()
}

// abiMatchCons splits val into its car and cdr, the (cons x y) pattern
// arm of match(). ok is false when val isn't a cons cell, matching
// match()'s "non-strings/non-lists don't match" default case.
func abiMatchCons(ctx *JitContext, val Value) (car, cdr Value, ok bool) {
	if val.GetTag() != TagCons {
		return NewNil(), NewNil(), false
	}
	c := ctx.Heap.Cons(val)
	return c.Car, c.Cdr, true
}

// abiMatchBind unconditionally stores val into the local slot a pattern
// Symbol names, the Symbol arm of match() ("en.Vars[p] = val; return
// true") — binding a pattern variable never fails.
func abiMatchBind(ctx *JitContext, slot int32, val Value) {
	ctx.Locals[slot] = val
}

// unifyInto performs two-way structural unification between a and b,
// binding any TagVar leaf on either side to the other side's value in the
// innermost binding frame (spec.md §4.B's `unify`/`unify-bind`). Unlike
// abiMatchBind's one-way "pattern variable always binds", a variable that
// is already bound must itself unify with the new value rather than be
// silently overwritten — the recursive re-entry through unifyInto handles
// that (a second binding of the same variable becomes an equality check
// against what it's already bound to).
func unifyInto(ctx *JitContext, a, b Value) bool {
	if a.IsVar() {
		return bindVar(ctx, a, b)
	}
	if b.IsVar() {
		return bindVar(ctx, b, a)
	}
	if a.GetTag() == TagCons && b.GetTag() == TagCons {
		ca, cb := ctx.Heap.Cons(a), ctx.Heap.Cons(b)
		return unifyInto(ctx, ca.Car, cb.Car) && unifyInto(ctx, ca.Cdr, cb.Cdr)
	}
	return structEqDeep(ctx, a, b)
}

func bindVar(ctx *JitContext, v, val Value) bool {
	frame := len(ctx.Frames) - 1
	if frame < 0 {
		return false
	}
	if existing, ok := ctx.Frames[frame].get(v.VarID()); ok {
		return unifyInto(ctx, existing, val)
	}
	ctx.Frames[frame].set(v.VarID(), val)
	return true
}

// abiUnify is OpUnify's helper: a boolean-returning unification that never
// fails the dispatch signal, leaving the caller (compiled `case`/`match`
// arms that want to try several patterns) to decide what a false result
// means.
func abiUnify(ctx *JitContext, a, b Value, ip int32) (Value, Signal) {
	return NewBool(unifyInto(ctx, a, b)), SigOK
}

// abiUnifyBind is OpUnifyBind's helper: same unification, but a mismatch
// is reported as FAIL directly (the shape a `match` statement arm wants —
// backtrack into the next arm rather than test a boolean itself).
func abiUnifyBind(ctx *JitContext, pattern, val Value, ip int32) (Value, Signal) {
	if !unifyInto(ctx, pattern, val) {
		return NewNil(), SigFail
	}
	return val, SigOK
}
