//go:build arm64

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

// arm64 codegen is not implemented, same state _scm_ref/jit_arm64.go
// leaves it in. Every chunk bails to the bytecode interpreter, which is
// always correct — spec.md §4.E treats native codegen as an optional
// fast path, never a requirement for correctness.
//
// TODO: port the amd64 register allocator and instruction encoder once
// there's a concrete arm64 deployment target.
func compileChunkNative(chunk *Chunk) (*NativeEntry, error) {
	return nil, &JitError{Chunk: chunk.Name, Msg: "arm64 codegen not implemented"}
}
