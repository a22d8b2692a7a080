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
	lru "github.com/hashicorp/golang-lru"
)

// PagePool bounds the number of compiled native bodies kept resident,
// keyed by Chunk.BodyHash. _scm_ref/jit_writer.go's JITPage list never
// evicts anything; this system's chunks can be recompiled after a
// profile reset, so eviction needs a policy. hashicorp/golang-lru's old
// non-generic Cache (matching the pin used elsewhere in the retrieved
// pack) is enough: values are *NativeEntry, looked up by uint64 key.
type PagePool struct {
	cache *lru.Cache
}

// NewPagePool returns a pool bounded to cap compiled entries. Eviction
// unmaps the evicted entry's pages via the registered eviction callback.
func NewPagePool(cap int) *PagePool {
	c, err := lru.NewWithEvict(cap, func(key interface{}, value interface{}) {
		if entry, ok := value.(*NativeEntry); ok {
			freeExec(entry.Pages)
		}
	})
	if err != nil {
		// only returns an error for cap <= 0, which is a programmer error
		panic(err)
	}
	return &PagePool{cache: c}
}

// Get returns the cached native entry for a body hash, if present.
func (p *PagePool) Get(bodyHash uint64) (*NativeEntry, bool) {
	v, ok := p.cache.Get(bodyHash)
	if !ok {
		return nil, false
	}
	return v.(*NativeEntry), true
}

// Put installs a freshly compiled native entry, possibly evicting the
// least recently used one.
func (p *PagePool) Put(bodyHash uint64, entry *NativeEntry) {
	p.cache.Add(bodyHash, entry)
}

// Len reports the number of resident compiled entries.
func (p *PagePool) Len() int { return p.cache.Len() }
