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

// abiRuleDispatch hands head and args to ctx.Rules.Dispatch (MemSpace's
// Dispatch forks over every matching rule). Dispatcher workers reach this
// while holding the reader side of the rule barrier (engine/dispatcher.go),
// so dispatch never overlaps a rule definition run through the writer side.
func abiRuleDispatch(ctx *JitContext, head Value, args []Value, ip int32) (Value, Signal) {
	if ctx.Rules == nil {
		return NewNil(), SigFail
	}
	return ctx.Rules.Dispatch(ctx, head, args, ip)
}

// abiRuleLookup returns every matching rule body for head as a cons-list,
// without installing a choice point — compiled code reaches for this when
// it wants to inspect or count candidates before committing to one, as
// opposed to OpRuleDispatch/OpRuleTry which always fork immediately.
func abiRuleLookup(ctx *JitContext, head Value, ip int32) (Value, Signal) {
	if ctx.Rules == nil {
		return NewNil(), SigOK
	}
	rules := ctx.Rules.Lookup(head)
	result := NewNil()
	for i := len(rules) - 1; i >= 0; i-- {
		result = ctx.Heap.NewCons(rules[i].Body, result)
	}
	return result, SigOK
}

// abiRuleTry is OpRuleDispatch with an explicit resume target instead of
// the implicit ip+1 every MemSpace.Dispatch call resumes at — used when
// the compiler needs extra bookkeeping between a rule choice and the
// chunk's normal flow (e.g. a dedicated cleanup block).
func abiRuleTry(ctx *JitContext, head Value, resume int32, ip int32) (Value, Signal) {
	if ctx.Rules == nil {
		return NewNil(), SigFail
	}
	rules := ctx.Rules.Lookup(head)
	if len(rules) == 0 {
		return NewNil(), SigFail
	}
	bodies := make([]Value, len(rules))
	for i, r := range rules {
		bodies[len(rules)-1-i] = r.Body
	}
	return abiFork(ctx, bodies, resume, ip)
}

// abiApplySubst walks body, a (possibly nested) rule body that may contain
// TagVar leaves bound by the match that selected it, and returns a copy
// with every bound variable replaced by its current value. Unbound
// variables and non-Var/non-Cons leaves pass through unchanged — this is
// the runtime half of "apply-subst" (spec.md §4.B): the compiler emits
// OpRuleApplySubst right after a successful OpUnify/OpMatchBind sequence
// has populated the binding frame, before handing the instantiated body
// on to the evaluator.
func abiApplySubst(ctx *JitContext, body Value) Value {
	switch body.GetTag() {
	case TagVar:
		for i := len(ctx.Frames) - 1; i >= 0; i-- {
			if v, ok := ctx.Frames[i].get(body.VarID()); ok {
				return abiApplySubst(ctx, v)
			}
		}
		return body
	case TagCons:
		c := ctx.Heap.Cons(body)
		car := abiApplySubst(ctx, c.Car)
		cdr := abiApplySubst(ctx, c.Cdr)
		if car == c.Car && cdr == c.Cdr {
			return body
		}
		return ctx.Heap.NewCons(car, cdr)
	default:
		return body
	}
}
