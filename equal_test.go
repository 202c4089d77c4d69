package delta

import (
	"math"
	"testing"
	"time"
)

type point struct {
	X, Y int
	Tags []string
}

type node struct {
	Value int
	Next  *node
}

func TestEqual_Shallow(t *testing.T) {
	s := []int{1, 2}
	tags := []string{"a"}
	m := map[string]int{"a": 1}

	tests := []struct {
		name string
		a, b any
		want bool
	}{
		{"same int", 1, 1, true},
		{"different int", 1, 2, false},
		{"same string", "a", "a", true},
		{"nil nil", nil, nil, true},
		{"nil value", nil, 0, false},
		{"different types", int32(1), int64(1), false},
		{"same slice", s, s, true},
		{"copied slice", s, []int{1, 2}, false},
		{"resliced", s, s[:1], false},
		{"same map", m, m, true},
		{"copied map", m, map[string]int{"a": 1}, false},
		{"comparable struct", struct{ A int }{1}, struct{ A int }{1}, true},
		{"struct sharing slice", point{1, 2, tags}, point{1, 2, tags}, true},
		{"struct with copied slice", point{Tags: []string{"a"}}, point{Tags: []string{"a"}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Equal(tt.a, tt.b, false); got != tt.want {
				t.Errorf("Equal(%v, %v, false) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestEqual_NaNNeverEqual(t *testing.T) {
	nan := math.NaN()
	if Equal(nan, nan, false) {
		t.Error("expected NaN != NaN in shallow mode")
	}
	if Equal(nan, nan, true) {
		t.Error("expected NaN != NaN in deep mode")
	}
}

func TestEqual_DeepRoundTrip(t *testing.T) {
	a := map[string]any{"name": "a", "points": []point{{X: 1, Tags: []string{"x"}}}}
	b := map[string]any{"name": "a", "points": []point{{X: 1, Tags: []string{"x"}}}}

	if !Equal(a, b, true) {
		t.Error("expected structurally identical maps to be equal in deep mode")
	}
	if Equal(a, b, false) {
		t.Error("expected distinct maps to differ in shallow mode")
	}

	b["name"] = "b"
	if Equal(a, b, true) {
		t.Error("expected changed value to differ")
	}
}

func TestEqual_DeepKeySets(t *testing.T) {
	a := map[string]int{"a": 1}
	b := map[string]int{"b": 1}
	if Equal(a, b, true) {
		t.Error("expected different key sets to differ")
	}
	if Equal(map[string]int{}, map[string]int(nil), true) {
		t.Error("expected empty and nil maps to differ")
	}
}

func TestEqual_DeepPointers(t *testing.T) {
	if !Equal(&point{X: 1}, &point{X: 1}, true) {
		t.Error("expected pointees to be compared")
	}
	if Equal(&point{X: 1}, (*point)(nil), true) {
		t.Error("expected nil pointer to differ")
	}
}

func TestEqual_DeepCycles(t *testing.T) {
	a := &node{Value: 1}
	a.Next = a
	b := &node{Value: 1}
	b.Next = b

	if !Equal(a, b, true) {
		t.Error("expected equal cyclic values to compare equal")
	}

	c := &node{Value: 2}
	c.Next = c
	if Equal(a, c, true) {
		t.Error("expected different cyclic values to differ")
	}
}

// Plain deep Equal compares time.Time by representation; EqualDates compares
// by instant. Watchers differ in which one they use.
func TestEqual_DeepAliasedSubslices(t *testing.T) {
	type pair struct {
		A, B []int
	}
	x := []int{1, 2, 3}
	y := []int{1, 2, 3}

	a := pair{A: x[:1], B: x[:2]}
	b := pair{A: y[:1], B: y[:3]}
	if Equal(a, b, true) {
		t.Error("expected sub-slices of different lengths to differ")
	}
	if EqualDates(a, b) {
		t.Error("expected EqualDates to see the length difference")
	}

	c := pair{A: y[:1], B: y[:2]}
	if !Equal(a, c, true) {
		t.Error("expected matching sub-slices to be equal")
	}
}

func TestEqual_DatesOnlyInEqualDates(t *testing.T) {
	utc := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	shifted := utc.In(time.FixedZone("UTC+1", 3600))

	if Equal(utc, shifted, true) {
		t.Error("expected plain deep Equal to treat different locations as different")
	}
	if !EqualDates(utc, shifted) {
		t.Error("expected EqualDates to compare by instant")
	}
	if EqualDates(utc, utc.Add(time.Second)) {
		t.Error("expected different instants to differ")
	}

	type event struct{ At time.Time }
	if !EqualDates(event{utc}, event{shifted}) {
		t.Error("expected EqualDates to compare nested times by instant")
	}
}

func TestTruthy(t *testing.T) {
	var nilSlice []int
	tests := []struct {
		name string
		v    any
		want bool
	}{
		{"nil", nil, false},
		{"false", false, false},
		{"true", true, true},
		{"zero", 0, false},
		{"one", 1, true},
		{"empty string", "", false},
		{"string", "a", true},
		{"NaN", math.NaN(), false},
		{"float", 0.5, true},
		{"nil slice", nilSlice, false},
		{"empty slice", []int{}, true},
		{"empty map", map[string]int{}, true},
		{"zero struct", point{}, false},
		{"struct", point{X: 1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Truthy(tt.v); got != tt.want {
				t.Errorf("Truthy(%v) = %v, want %v", tt.v, got, tt.want)
			}
		})
	}
}
