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
	"sync/atomic"
	"unsafe"
)

// JitState is the tiered-promotion state machine. Transitions only ever
// move forward: Cold -> Warming -> Hot -> Compiling -> Jitted|Failed.
// Ported from original_source's jit/profile.rs; this system has no prior
// native analogue.
type JitState uint8

const (
	StateCold JitState = iota
	StateWarming
	StateHot
	StateCompiling
	StateJitted
	StateFailed
)

const (
	// WarmThreshold is the execution count crossing Cold -> Warming.
	WarmThreshold uint32 = 10
	// HotThreshold is the execution count crossing Warming -> Hot.
	HotThreshold uint32 = 100
	// maxExecutionCount saturates the counter so long-lived chunks don't
	// wrap a uint32 under sustained load.
	maxExecutionCount uint32 = 1 << 30
)

// Profile is the per-chunk tiering record. All fields are touched only via
// atomics — no mutex, mirroring _scm_ref/metrics.go's lock-free counters
// and the original profile.rs's AtomicU32/AtomicU8/AtomicPtr fields.
type Profile struct {
	execCount uint32
	state     uint32 // JitState, stored as uint32 for atomic ops
	native    unsafe.Pointer // *nativeEntry once Jitted, nil otherwise
}

// NewProfile returns a fresh Cold profile.
func NewProfile() *Profile {
	return &Profile{}
}

// RecordExecution increments the execution counter and returns the state
// that should now be used for dispatch. Promotion from Cold to Warming to
// Hot happens here; the actual compile trigger is a separate CAS
// (TryStartCompiling) so only one goroutine ever compiles a given chunk.
func (p *Profile) RecordExecution() JitState {
	n := atomic.AddUint32(&p.execCount, 1)
	if n > maxExecutionCount {
		atomic.StoreUint32(&p.execCount, maxExecutionCount)
	}
	for {
		cur := JitState(atomic.LoadUint32(&p.state))
		switch cur {
		case StateCold:
			if n >= WarmThreshold {
				if atomic.CompareAndSwapUint32(&p.state, uint32(StateCold), uint32(StateWarming)) {
					continue
				}
			}
		case StateWarming:
			if n >= HotThreshold {
				atomic.CompareAndSwapUint32(&p.state, uint32(StateWarming), uint32(StateHot))
			}
		}
		return JitState(atomic.LoadUint32(&p.state))
	}
}

// State returns the current tier without recording an execution.
func (p *Profile) State() JitState {
	return JitState(atomic.LoadUint32(&p.state))
}

// IsHot reports whether the chunk has crossed into the Hot tier.
func (p *Profile) IsHot() bool {
	return p.State() == StateHot
}

// ShouldUseJIT reports whether dispatch should prefer the native entry
// point over the bytecode interpreter.
func (p *Profile) ShouldUseJIT() bool {
	return p.State() == StateJitted
}

// TryStartCompiling attempts the Hot -> Compiling transition. Only the
// caller that wins the CAS may compile; everyone else keeps interpreting.
func (p *Profile) TryStartCompiling() bool {
	return atomic.CompareAndSwapUint32(&p.state, uint32(StateHot), uint32(StateCompiling))
}

// SetCompiled publishes a native entry point and moves Compiling -> Jitted.
// The pointer store uses release ordering semantics (via atomic.StorePointer,
// Go's atomics are always sequentially consistent) so any goroutine
// observing StateJitted also observes a fully-written entry.
func (p *Profile) SetCompiled(entry *NativeEntry) {
	atomic.StorePointer(&p.native, unsafe.Pointer(entry))
	atomic.StoreUint32(&p.state, uint32(StateJitted))
}

// SetFailed records a permanent compilation failure; dispatch falls back to
// the bytecode interpreter forever after (spec.md §9: BAILOUT recoverable,
// but a hard compile failure is not retried).
func (p *Profile) SetFailed() {
	atomic.StoreUint32(&p.state, uint32(StateFailed))
}

// Native loads the published entry point, or nil if not yet compiled.
func (p *Profile) Native() *NativeEntry {
	return (*NativeEntry)(atomic.LoadPointer(&p.native))
}
