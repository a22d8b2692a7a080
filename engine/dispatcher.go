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
	"sort"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Task is one top-level chunk dispatch. SourceIndex orders "!"-marked
// parallel top-level evaluations back into source order once all of them
// complete, per spec.md §9's reordering requirement; workers otherwise
// race freely.
type Task struct {
	SourceIndex int
	Chunk       *Chunk
}

// Result is one completed dispatch, carrying the final signal and
// whatever values were collected along the way.
type Result struct {
	SourceIndex int
	Signal      Signal
	Values      []Value
	Err         error
}

// Dispatcher runs a pool of worker goroutines over a batch of tasks,
// generalizing _scm_ref/scheduler.go's single-goroutine heap scheduler
// into the worker-thread pool spec.md §5 requires. A sync.RWMutex guards
// rule-table mutation: readers (ordinary rule dispatch) take the cheap
// RLock path, writers (rule definition, space mutation) take the
// exclusive path and form the "sequential barrier" spec.md §5 calls for.
type Dispatcher struct {
	Space    Space
	Rules    RuleDB
	Compiler *Compiler
	// Heap is shared by every JitContext this dispatcher spawns (see
	// runOne), so a cons/string/closure Value a rule stashes into Space in
	// one dispatch still resolves correctly when a later dispatch reads it
	// back out — engine/heap.go's mutex makes that safe under the worker
	// pool below.
	Heap        *Heap
	ruleBarrier sync.RWMutex
	workers     int
}

// NewDispatcher builds a dispatcher over the given space/rule database
// with the given worker-pool width.
func NewDispatcher(space Space, rules RuleDB, compiler *Compiler, workers int) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	return &Dispatcher{Space: space, Rules: rules, Compiler: compiler, Heap: NewHeap(), workers: workers}
}

// WithSequentialBarrier runs fn while holding the exclusive rule/space
// mutation lock, blocking every concurrent dispatch from observing a
// half-installed rule set (spec.md §5).
func (d *Dispatcher) WithSequentialBarrier(fn func()) {
	d.ruleBarrier.Lock()
	defer d.ruleBarrier.Unlock()
	fn()
}

// RunTasks dispatches every task across the worker pool and returns
// results reordered back into SourceIndex order, mirroring the
// "!"-marked parallel top-level evaluation reordering spec.md §9 adopts.
// Every task runs to completion: a SigError is reported in that task's
// Result only and cancels no other worker, and FAIL/BAILOUT never abort
// the batch either. Each task takes the reader side of the sequential
// barrier for the duration of its run.
func (d *Dispatcher) RunTasks(parent context.Context, tasks []Task) []Result {
	g, ctx := errgroup.WithContext(parent)
	sem := make(chan struct{}, d.workers)

	results := make([]Result, len(tasks))
	for i, task := range tasks {
		i, task := i, task
		sem <- struct{}{}
		g.Go(func() error {
			defer func() { <-sem }()
			results[i] = d.runOne(ctx, task)
			if results[i].Signal == SigError {
				return results[i].Err
			}
			return nil
		})
	}
	_ = g.Wait() // per-task errors are already captured in results[i]

	sort.Slice(results, func(a, b int) bool {
		return results[a].SourceIndex < results[b].SourceIndex
	})
	return results
}

func (d *Dispatcher) runOne(ctx context.Context, task Task) Result {
	runID := uuid.NewString()
	_ = runID // not recorded anywhere; no trace event is written per run

	d.ruleBarrier.RLock()
	defer d.ruleBarrier.RUnlock()

	rctx := NewJitContext(task.Chunk, d.Space, d.Rules)
	rctx.Heap = d.Heap

	if d.Compiler != nil {
		task.Chunk.Profile.RecordExecution()
		d.Compiler.MaybePromote(ctx, task.Chunk)
	}

	sig := d.drive(rctx, task.Chunk)

	return Result{
		SourceIndex: task.SourceIndex,
		Signal:      sig,
		Values:      rctx.Results,
	}
}

// drive implements the dispatcher's signal loop (spec.md §4.I): OK/HALT
// end the run; YIELD's value is already in rctx.Results, so backtrack for
// the next alternative; BAILOUT resumes in the bytecode interpreter at
// the instruction the native body or Step recorded, and a subsequent call
// into the same chunk may again take the native path; FAIL/ERROR end the
// run with no further re-entry.
func (d *Dispatcher) drive(rctx *JitContext, chunk *Chunk) Signal {
	ip := int32(0)
	for {
		var sig Signal
		if native := chunk.Profile.Native(); native != nil {
			RecordDispatch(true)
			sig = native.Native(rctx, ip)
			if sig == SigHalt {
				// Interpreted chunk bodies leave their result as Stack's top by
				// construction (every OpReturn/OpHalt is reached only after the
				// value-producing instruction before it already pushed); native
				// bodies can't append to a Go slice from emitted code, so they
				// stash the result in NativeResult instead (see runtime.go) and
				// it's pushed here to restore the same contract.
				rctx.push(rctx.NativeResult)
			}
		} else {
			RecordDispatch(false)
			sig = Run(rctx, ip)
		}

		switch sig {
		case SigYield:
			alt, resume, ok := abiBacktrack(rctx)
			for !ok && rctx.Choices.Len() > 0 {
				alt, resume, ok = abiBacktrack(rctx)
			}
			if !ok {
				return SigYield
			}
			rctx.push(alt)
			ip = resume
			continue
		case SigBailout:
			ip = rctx.ResumeIP
			continue
		default:
			return sig
		}
	}
}
