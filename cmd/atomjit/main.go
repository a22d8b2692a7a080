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

// atomjit is a minimal demo binary, not a REPL or CLI (those are explicit
// non-goals): it wires a Space, builds two chunks, runs each once through
// the dispatcher (too few runs to trigger native compilation), and prints
// each task's signal and collected results.
package main

import (
	"context"
	"fmt"

	"github.com/atomjit/atomjit/engine"
)

func main() {
	fmt.Println("atomjit demo: JIT over a nondeterministic pattern-matching atom-space")

	space := engine.NewMemSpace()
	stopMetrics := engine.StartMetricsSampler()
	engine.RegisterShutdown(stopMetrics)

	compiler := engine.NewCompiler(2, 64)
	dispatcher := engine.NewDispatcher(space, space, compiler, 4)

	arithmetic := engine.NewChunk("arithmetic", []engine.Instruction{
		{Op: engine.OpConst, A: 0},
		{Op: engine.OpConst, A: 1},
		{Op: engine.OpAdd},
		{Op: engine.OpHalt},
	}, []engine.Value{engine.NewInt(19), engine.NewInt(23)}, 0)

	enumerate := engine.NewChunk("enumerate", []engine.Instruction{
		{Op: engine.OpConst, A: 0},
		{Op: engine.OpConst, A: 1},
		{Op: engine.OpConst, A: 2},
		{Op: engine.OpFork, A: 3, B: 4},
		{Op: engine.OpYield},
		{Op: engine.OpFail},
	}, []engine.Value{engine.NewInt(1), engine.NewInt(2), engine.NewInt(3)}, 0)

	tasks := []engine.Task{
		{SourceIndex: 0, Chunk: arithmetic},
		{SourceIndex: 1, Chunk: enumerate},
	}
	results := dispatcher.RunTasks(context.Background(), tasks)

	for _, r := range results {
		fmt.Printf("task %d: signal=%v yielded=%v\n", r.SourceIndex, r.Signal, r.Values)
	}

	stopMetrics()
}
