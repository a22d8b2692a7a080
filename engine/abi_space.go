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

// Space/atom-space runtime ABI helpers. The Space itself is the external
// black box pinned down in SPEC_FULL.md §5 (folding in the "mork"
// space-pattern handlers original_source keeps separate); these helpers
// are just the ABI-shaped wrappers the dispatcher and native code call
// through, each taking an ip for bailout addressing.

func abiSpaceAdd(ctx *JitContext, atom Value, ip int32) (Value, Signal) {
	id := ctx.Space.Add(atom)
	return NewAtomRef(id), SigOK
}

func abiSpaceRemove(ctx *JitContext, atomRef Value, ip int32) (Value, Signal) {
	if atomRef.GetTag() != TagAtom {
		return NewBool(false), ctx.bailout(ip, BailoutTypeMismatch)
	}
	ok := ctx.Space.Remove(atomRef.AtomID())
	return NewBool(ok), SigOK
}

func abiSpaceGetAtoms(ctx *JitContext, ip int32) ([]Value, Signal) {
	return ctx.Space.GetAtoms(), SigOK
}

func abiSpaceMatch(ctx *JitContext, pattern Value, ip int32) ([]Value, Signal) {
	return ctx.Space.Match(pattern), SigOK
}
