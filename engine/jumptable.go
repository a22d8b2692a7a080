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

import "github.com/google/btree"

// jtEntry is one key/offset pair stored in the sparse jump table's btree.
type jtEntry struct {
	key    int64
	offset int32
}

func jtLess(a, b jtEntry) bool { return a.key < b.key }

// JumpTable backs OpJumpTable: a compile-time-built key -> bytecode-offset
// map with a default branch for unmatched keys. Dense integer key ranges
// use a plain slice (fast, cache-friendly); anything sparser falls back to
// a btree.BTreeG. Only the bytecode interpreter uses jump tables: the native
// codegen (engine/jit_amd64.go) does not lower OpJumpTable, and a chunk
// containing it stays interpreted.
type JumpTable struct {
	dense   []int32 // used when dense != nil; dense[key-denseBase] is the offset
	denseBase int64
	sparse  *btree.BTreeG[jtEntry]
	Default int32
}

// NewDenseJumpTable builds a jump table over a contiguous key range
// [base, base+len(offsets)).
func NewDenseJumpTable(base int64, offsets []int32, def int32) *JumpTable {
	return &JumpTable{dense: offsets, denseBase: base, Default: def}
}

// NewSparseJumpTable builds a jump table over arbitrary keys, backed by an
// ordered btree.
func NewSparseJumpTable(pairs map[int64]int32, def int32) *JumpTable {
	bt := btree.NewG(32, jtLess)
	for k, v := range pairs {
		bt.ReplaceOrInsert(jtEntry{key: k, offset: v})
	}
	return &JumpTable{sparse: bt, Default: def}
}

// Lookup resolves a key to a bytecode offset, or the table's Default.
func (jt *JumpTable) Lookup(key int64) int32 {
	if jt.dense != nil {
		idx := key - jt.denseBase
		if idx >= 0 && idx < int64(len(jt.dense)) {
			return jt.dense[idx]
		}
		return jt.Default
	}
	if entry, ok := jt.sparse.Get(jtEntry{key: key}); ok {
		return entry.offset
	}
	return jt.Default
}

// Ascend visits every (key, offset) pair in ascending key order. Nothing in
// the engine calls it; the native codegen does not lower jump tables.
func (jt *JumpTable) Ascend(fn func(key int64, offset int32) bool) {
	if jt.dense != nil {
		for i, off := range jt.dense {
			if !fn(jt.denseBase+int64(i), off) {
				return
			}
		}
		return
	}
	jt.sparse.Ascend(func(e jtEntry) bool {
		return fn(e.key, e.offset)
	})
}

// Len reports the number of explicit entries (excluding the default).
func (jt *JumpTable) Len() int {
	if jt.dense != nil {
		return len(jt.dense)
	}
	return jt.sparse.Len()
}
