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

import "testing"

func TestChoiceStackDepthFirstOrder(t *testing.T) {
	var s ChoiceStack
	s.Push(ChoicePoint{Alternatives: []Value{NewInt(1), NewInt(2)}, Resume: 10})
	s.Push(ChoicePoint{Alternatives: []Value{NewInt(3), NewInt(4)}, Resume: 20})

	// depth-first: the most recently pushed point (resume=20) backtracks first
	alt, resume, ok := s.Backtrack()
	if !ok || alt.Int() != 4 || resume != 20 {
		t.Fatalf("expected (4, 20, true), got (%v, %d, %v)", alt, resume, ok)
	}
	alt, resume, ok = s.Backtrack()
	if !ok || alt.Int() != 3 || resume != 20 {
		t.Fatalf("expected (3, 20, true), got (%v, %d, %v)", alt, resume, ok)
	}
	// top point exhausted now
	_, _, ok = s.Backtrack()
	if ok {
		t.Fatal("expected top point exhausted")
	}
	s.PopExhausted()

	alt, resume, ok = s.Backtrack()
	if !ok || alt.Int() != 2 || resume != 10 {
		t.Fatalf("expected (2, 10, true), got (%v, %d, %v)", alt, resume, ok)
	}
}

func TestChoiceStackCutPrunesAboveMarker(t *testing.T) {
	var s ChoiceStack
	s.Push(ChoicePoint{Alternatives: []Value{NewInt(1)}, Resume: 1})
	marker := s.Push(ChoicePoint{Alternatives: []Value{NewInt(2)}, Resume: 2})
	s.Push(ChoicePoint{Alternatives: []Value{NewInt(3)}, Resume: 3})

	s.Cut(marker)
	if s.Len() != marker {
		t.Fatalf("expected Len()==%d after Cut, got %d", marker, s.Len())
	}
}

func TestChoiceStackEmpty(t *testing.T) {
	var s ChoiceStack
	if !s.Empty() {
		t.Fatal("fresh stack should be empty")
	}
	s.Push(ChoicePoint{Alternatives: []Value{NewInt(1)}})
	if s.Empty() {
		t.Fatal("stack with a point should not be empty")
	}
}
