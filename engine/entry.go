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

// NativeFunc is the runtime ABI entry signature: a compiled chunk body,
// taking the executing JitContext and a resume ip (used by the bailout
// protocol to know exactly where interpreted execution must pick up) and
// returning the re-entry signal (spec.md §6).
type NativeFunc func(ctx *JitContext, ip int32) Signal

// NativeEntry holds a JIT-compiled chunk body alongside the bookkeeping
// needed to free its pages and fall back cleanly.
type NativeEntry struct {
	Native   NativeFunc
	Pages    []*JITPage
	BodyHash uint64
	Arch     string
}
