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
	"math"
	"runtime"
	"testing"
)

func TestValueTagRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		v    Value
		tag  Tag
	}{
		{"nil", NewNil(), TagNil},
		{"true", NewBool(true), TagBool},
		{"false", NewBool(false), TagBool},
		{"int", NewInt(42), TagInt},
		{"negative int", NewInt(-7), TagInt},
		{"symbol", NewSymbol(3), TagSymbol},
		{"string", NewStringRef(9), TagString},
		{"cons", NewConsRef(1), TagCons},
		{"atom", NewAtomRef(123456789), TagAtom},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.v.GetTag(); got != c.tag {
				t.Fatalf("GetTag() = %v, want %v", got, c.tag)
			}
		})
	}
}

func TestValueFloatDoesNotCollideWithBoxedTags(t *testing.T) {
	floats := []float64{0, 1.5, -1.5, math.MaxFloat64, math.SmallestNonzeroFloat64, math.Inf(1), math.Inf(-1)}
	for _, f := range floats {
		v := NewFloat(f)
		if v.GetTag() != TagFloat {
			t.Fatalf("NewFloat(%v).GetTag() = %v, want TagFloat", f, v.GetTag())
		}
		if v.Float() != f && !(math.IsNaN(f) && math.IsNaN(v.Float())) {
			t.Fatalf("NewFloat(%v).Float() = %v", f, v.Float())
		}
	}
}

func TestValueIntRoundTrip(t *testing.T) {
	for _, i := range []int64{0, 1, -1, 1000000, -1000000} {
		v := NewInt(i)
		if got := v.Int(); got != i {
			t.Fatalf("NewInt(%d).Int() = %d", i, got)
		}
	}
}

func TestValueToBool(t *testing.T) {
	if NewNil().ToBool() {
		t.Fatal("nil should be falsy")
	}
	if NewBool(false).ToBool() {
		t.Fatal("false should be falsy")
	}
	if !NewBool(true).ToBool() {
		t.Fatal("true should be truthy")
	}
	if !NewInt(0).ToBool() {
		t.Fatal("int 0 should be truthy, unlike nil/false")
	}
}

// stress-test pattern adapted from _scm_ref/scmer_gc_safety_test.go: force
// a deep stack and a GC cycle while holding boxed Values, confirming the
// NaN-boxed representation survives stack growth/copying untouched since
// it carries no pointers the GC could move independently.
func TestValueSurvivesStackGrowthAndGC(t *testing.T) {
	var stackGrow func(n int, v Value) Value
	stackGrow = func(n int, v Value) Value {
		if n == 0 {
			runtime.GC()
			return v
		}
		var buf [256]byte
		_ = buf
		return stackGrow(n-1, v)
	}
	in := NewInt(99)
	out := stackGrow(2000, in)
	if out.Int() != 99 {
		t.Fatalf("value corrupted across stack growth: got %d", out.Int())
	}
}
