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

import "github.com/jtolds/gls"

// gls associates the active JitContext with the executing goroutine so
// trace/panic diagnostics (engine/trace.go) can report which run they
// belong to without an extra parameter on every ABI helper signature.
var glsMgr = gls.NewContextManager()

const glsCtxKey = "atomjit.ctx"

// WithContext runs fn with ctx associated to the current goroutine for
// the duration of the call.
func WithContext(ctx *JitContext, fn func()) {
	glsMgr.SetValues(gls.Values{glsCtxKey: ctx}, fn)
}

// CurrentContext returns the JitContext associated with the calling
// goroutine by the nearest enclosing WithContext, or nil if none.
func CurrentContext() *JitContext {
	v, ok := glsMgr.GetValue(glsCtxKey)
	if !ok {
		return nil
	}
	return v.(*JitContext)
}
