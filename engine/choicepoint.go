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

// ChoicePoint is one frame of nondeterministic backtracking state, modeled
// on original_source's jit/handlers/nondet.rs fork/cut/backtrack trio: a
// set of not-yet-tried alternatives, the bytecode offset to resume at, and
// a stack marker cut prunes back to.
type ChoicePoint struct {
	Alternatives []Value // remaining untried alternatives, LIFO
	Resume       int32   // bytecode offset to resume execution at
	StackMarker  int     // evaluation-stack depth at fork time
	FrameMarker  int     // len(JitContext.Frames) at fork time
	Marker       int     // choice-point-stack depth this point itself sits at
}

// ChoiceStack is the growable LIFO of active choice points for one
// JitContext. Depth-first yield ordering (spec.md §9) falls directly out
// of always resuming the most-recently-pushed point first.
type ChoiceStack struct {
	points []ChoicePoint
}

// Push installs a new choice point and returns its marker (used by Cut).
func (s *ChoiceStack) Push(cp ChoicePoint) int {
	cp.Marker = len(s.points)
	s.points = append(s.points, cp)
	return cp.Marker
}

// Len reports the number of active choice points.
func (s *ChoiceStack) Len() int { return len(s.points) }

// Top returns a pointer to the most recent choice point, or nil if empty.
func (s *ChoiceStack) Top() *ChoicePoint {
	if len(s.points) == 0 {
		return nil
	}
	return &s.points[len(s.points)-1]
}

// PopExhausted removes the top choice point once it has no alternatives
// left to try. Called by abiBacktrack (engine/abi_nondet.go) once Backtrack
// reports that the top point has nothing left.
func (s *ChoiceStack) PopExhausted() {
	if len(s.points) == 0 {
		return
	}
	s.points = s.points[:len(s.points)-1]
}

// Cut discards every choice point above (and including, per guard/commit
// semantics in nondet.rs) the given marker, committing to the current
// branch and pruning the remaining alternatives.
func (s *ChoiceStack) Cut(marker int) {
	if marker < 0 || marker >= len(s.points) {
		return
	}
	s.points = s.points[:marker]
}

// Backtrack pops the next untried alternative off the top choice point,
// returning it and the resume offset. ok is false when the top point has
// been fully exhausted (caller should PopExhausted and try the one below).
func (s *ChoiceStack) Backtrack() (alt Value, resume int32, ok bool) {
	top := s.Top()
	if top == nil || len(top.Alternatives) == 0 {
		return Value(0), 0, false
	}
	n := len(top.Alternatives)
	alt = top.Alternatives[n-1]
	top.Alternatives = top.Alternatives[:n-1]
	return alt, top.Resume, true
}

// Empty reports whether there are no more choice points to backtrack into,
// i.e. the search space has been fully explored.
func (s *ChoiceStack) Empty() bool { return len(s.points) == 0 }
