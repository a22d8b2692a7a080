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

import "github.com/dc0d/onexit"

// RegisterShutdown wires stop (the dispatcher worker pool's and the
// metrics sampler's stop functions) into onexit so a process embedding
// this package always winds down cleanly, even on an unhandled signal.
func RegisterShutdown(stop func()) {
	onexit.Register(func() {
		stop()
	})
}
