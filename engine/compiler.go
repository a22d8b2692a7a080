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
	"context"

	"golang.org/x/sync/semaphore"
)

// Compiler drives promotion attempts for hot chunks. Bounded by a
// semaphore so a burst of chunks crossing HotThreshold at once can't spin
// up unbounded concurrent compiles — _scm_ref/jit.go's OptimizeForValues
// has no such cap since memcp always compiles synchronously inline.
type Compiler struct {
	pool *PagePool
	sem  *semaphore.Weighted
}

// NewCompiler returns a compiler bounding concurrent native compiles to
// maxConcurrent and caching results in a pool of the given capacity.
func NewCompiler(maxConcurrent int64, cacheCap int) *Compiler {
	return &Compiler{
		pool: NewPagePool(cacheCap),
		sem:  semaphore.NewWeighted(maxConcurrent),
	}
}

// MaybePromote is called by the dispatcher after every RecordExecution.
// It only compiles chunks that just won the Hot->Compiling CAS, so two
// workers racing on the same chunk never both attempt compilation
// (engine/profile.go's TryStartCompiling).
func (c *Compiler) MaybePromote(ctx context.Context, chunk *Chunk) {
	if !chunk.Profile.TryStartCompiling() {
		return
	}
	if err := c.sem.Acquire(ctx, 1); err != nil {
		chunk.Profile.SetFailed()
		return
	}
	defer c.sem.Release(1)

	if cached, ok := c.pool.Get(chunk.BodyHash()); ok {
		chunk.Profile.SetCompiled(cached)
		return
	}

	entry, err := compileChunkNative(chunk)
	if err != nil {
		chunk.Profile.SetFailed()
		return
	}
	c.pool.Put(chunk.BodyHash(), entry)
	chunk.Profile.SetCompiled(entry)
}
