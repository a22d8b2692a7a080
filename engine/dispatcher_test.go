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
	"testing"
)

func constChunk(name string, value int64) *Chunk {
	return NewChunk(name, []Instruction{
		{Op: OpConst, A: 0},
		{Op: OpHalt},
	}, []Value{NewInt(value)}, 0)
}

func TestDispatcherReordersResultsBySourceIndex(t *testing.T) {
	space, rules := NewMemSpace(), RuleDB(nil)
	d := NewDispatcher(space, rules, nil, 4)

	tasks := make([]Task, 0, 8)
	for i := 7; i >= 0; i-- { // deliberately submit out of order
		tasks = append(tasks, Task{SourceIndex: i, Chunk: constChunk("c", int64(i))})
	}
	results := d.RunTasks(context.Background(), tasks)

	if len(results) != 8 {
		t.Fatalf("expected 8 results, got %d", len(results))
	}
	for i, r := range results {
		if r.SourceIndex != i {
			t.Fatalf("results[%d].SourceIndex = %d, want %d (out-of-order submission must be reordered)", i, r.SourceIndex, i)
		}
		if r.Signal != SigHalt {
			t.Fatalf("results[%d].Signal = %v, want SigHalt", i, r.Signal)
		}
	}
}

// TestConcurrentPromotionRaceSettlesJittedOrFailed drives the same chunk
// past HotThreshold from many concurrent dispatcher workers and checks that
// every dispatch still halts and the chunk ends up Jitted or Failed.
func TestConcurrentPromotionRaceSettlesJittedOrFailed(t *testing.T) {
	space, rules := NewMemSpace(), RuleDB(nil)
	compiler := NewCompiler(4, 16)
	d := NewDispatcher(space, rules, compiler, 8)

	chunk := constChunk("hot", 42)
	tasks := make([]Task, 0, int(HotThreshold)+20)
	for i := 0; i < int(HotThreshold)+20; i++ {
		tasks = append(tasks, Task{SourceIndex: i, Chunk: chunk})
	}
	results := d.RunTasks(context.Background(), tasks)

	for _, r := range results {
		if r.Signal != SigHalt {
			t.Fatalf("expected every dispatch to halt cleanly, got %v", r.Signal)
		}
	}
	if chunk.Profile.State() != StateJitted && chunk.Profile.State() != StateFailed {
		t.Fatalf("expected chunk to finish Jitted or Failed after crossing HotThreshold, got %v", chunk.Profile.State())
	}
}
