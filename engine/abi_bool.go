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

// Boolean-family runtime ABI helpers, grounded on _scm_ref/alu.go's ToBool
// plus spec.md §4.B's boolean opcode family. These operate on the
// truthiness rule (Value.ToBool), not a strict Bool-tag guard — `and`/`or`
// short-circuit at the bytecode level via jump_if_false on the same
// truthiness, so the ABI forms only need to cover the case both operands
// were already pushed (e.g. a non-short-circuiting `xor`).
func abiAnd(ctx *JitContext, a, b Value, ip int32) (Value, Signal) {
	return NewBool(a.ToBool() && b.ToBool()), SigOK
}

func abiOr(ctx *JitContext, a, b Value, ip int32) (Value, Signal) {
	return NewBool(a.ToBool() || b.ToBool()), SigOK
}

func abiNot(ctx *JitContext, a Value, ip int32) (Value, Signal) {
	return NewBool(!a.ToBool()), SigOK
}

func abiXor(ctx *JitContext, a, b Value, ip int32) (Value, Signal) {
	return NewBool(a.ToBool() != b.ToBool()), SigOK
}
