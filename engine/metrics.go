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
	"time"
	"unsafe"
)

// TotalSteps counts every Step() call across all dispatcher workers —
// single atomic, no mutex, same shape as _scm_ref/metrics.go's
// TotalHTTPRequests.
var TotalSteps int64

// ActiveChoicePoints is a gauge slot for the number of open choice points
// across live JitContexts; nothing in the engine updates or reads it, so
// it stays 0.
var ActiveChoicePoints int64

type dispatchSnapshot struct {
	stepsPerSec float64
	jitHitRate  float64 // fraction of dispatches served by native code
}

var currentDispatchSnapshot unsafe.Pointer // *dispatchSnapshot

func loadDispatchSnapshot() *dispatchSnapshot {
	p := atomic.LoadPointer(&currentDispatchSnapshot)
	if p == nil {
		return &dispatchSnapshot{}
	}
	return (*dispatchSnapshot)(p)
}

var jitHits, jitMisses int64

// RecordDispatch tags one top-level dispatch as served by native code or
// the bytecode interpreter, feeding the sampled hit-rate metric.
func RecordDispatch(native bool) {
	if native {
		atomic.AddInt64(&jitHits, 1)
	} else {
		atomic.AddInt64(&jitMisses, 1)
	}
}

// StartMetricsSampler launches the single background goroutine that
// samples throughput once a second, mirroring _scm_ref/metrics.go's
// initMetricsSampler. Returns a stop function wired into
// engine/shutdown.go.
func StartMetricsSampler() (stop func()) {
	done := make(chan struct{})
	go func() {
		var prevSteps int64
		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				cur := atomic.LoadInt64(&TotalSteps)
				delta := cur - prevSteps
				prevSteps = cur

				hits := atomic.LoadInt64(&jitHits)
				misses := atomic.LoadInt64(&jitMisses)
				rate := 0.0
				if hits+misses > 0 {
					rate = float64(hits) / float64(hits+misses)
				}

				snap := &dispatchSnapshot{stepsPerSec: float64(delta), jitHitRate: rate}
				atomic.StorePointer(&currentDispatchSnapshot, unsafe.Pointer(snap))
			}
		}
	}()
	return func() { close(done) }
}

// StepsPerSecond returns the last sampled throughput.
func StepsPerSecond() float64 { return loadDispatchSnapshot().stepsPerSec }

// JitHitRate returns the fraction of dispatches served by native code.
func JitHitRate() float64 { return loadDispatchSnapshot().jitHitRate }
