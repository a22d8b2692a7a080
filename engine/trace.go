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
	"encoding/json"
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/pierrec/lz4/v4"
)

// Tracefile is a compressed append-only signal trace, shaped directly
// after _scm_ref/trace.go's Tracefile (mutex-guarded writer, on/off
// global) but wrapping the sink in an lz4 writer: the dispatcher can emit
// one trace event per Step() call under tight fork/yield loops, which
// _scm_ref's uncompressed JSON sink was never built to sustain.
type Tracefile struct {
	m    sync.Mutex
	zw   *lz4.Writer
	sink io.WriteCloser
}

// Trace is the default trace sink; nil means tracing is disabled.
var Trace *Tracefile

// TraceEvent is one recorded dispatcher transition.
type TraceEvent struct {
	RunID string `json:"run_id"`
	IP    int32  `json:"ip"`
	Op    string `json:"op"`
	Sig   int64  `json:"sig"`
}

// NewTrace wraps sink in an lz4 compressor and returns a ready Tracefile.
func NewTrace(sink io.WriteCloser) *Tracefile {
	return &Tracefile{zw: lz4.NewWriter(sink), sink: sink}
}

// SetTrace enables or disables the package-global trace sink.
func SetTrace(t *Tracefile) {
	if Trace != nil {
		Trace.Close()
	}
	Trace = t
}

// RunID mints a fresh identifier for one dispatch run, used to correlate
// trace events and reported results across worker-pool goroutines.
func RunID() string { return uuid.NewString() }

// Event writes one compressed JSON-line trace event.
func (t *Tracefile) Event(runID string, ip int32, op Opcode, sig Signal) {
	t.m.Lock()
	defer t.m.Unlock()
	b, _ := json.Marshal(TraceEvent{RunID: runID, IP: ip, Op: op.String(), Sig: int64(sig)})
	t.zw.Write(b)
	t.zw.Write([]byte("\n"))
}

// Close flushes the lz4 stream and closes the underlying sink.
func (t *Tracefile) Close() error {
	t.zw.Close()
	return t.sink.Close()
}

// traceValue is the `trace` opcode's runtime half (engine/abi_ext.go's
// HTrace): when a sink is active it writes one event with an empty run id,
// ip 0, OpNop and SigOK to the package-level trace stream; the traced value
// itself is not recorded. With no sink it is a no-op costing one nil check.
func traceValue(v Value) {
	if Trace == nil {
		return
	}
	Trace.Event("", 0, OpNop, SigOK)
}
