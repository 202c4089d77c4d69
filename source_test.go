package delta

import (
	"errors"
	"testing"
)

func TestResolve_Value(t *testing.T) {
	if got := Resolve(Value(3)); got != 3 {
		t.Errorf("expected 3, got %d", got)
	}
	if Value(3).IsGetter() {
		t.Error("expected literal source")
	}
}

func TestResolve_Getter(t *testing.T) {
	calls := 0
	src := Getter(func() int {
		calls++
		return calls
	})

	if !src.IsGetter() {
		t.Error("expected getter source")
	}
	if Resolve(src) != 1 || Resolve(src) != 2 {
		t.Error("expected getter to be invoked on every resolution")
	}
}

func TestResolve_ZeroSource(t *testing.T) {
	var src Source[string]
	if got := Resolve(src); got != "" {
		t.Errorf("expected zero value, got %q", got)
	}
}

func TestResolve_GetterPanicPropagates(t *testing.T) {
	defer func() {
		if r := recover(); r != "boom" {
			t.Errorf("expected panic 'boom', got %v", r)
		}
	}()
	Resolve(Getter(func() int { panic("boom") }))
}

func TestSnapshot_ShallowReturnsLiveValue(t *testing.T) {
	live := []int{1, 2}
	snap, err := Snapshot(Value(live), false, nil)
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	live[0] = 9
	if snap[0] != 9 {
		t.Error("expected shallow snapshot to share the live slice")
	}
}

func TestSnapshot_DeepIsIsolated(t *testing.T) {
	live := map[string][]int{"a": {1, 2}}
	snap, err := Snapshot(Value(live), true, nil)
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	live["a"][0] = 9
	live["b"] = nil

	if snap["a"][0] != 1 {
		t.Errorf("expected snapshot to keep 1, got %d", snap["a"][0])
	}
	if _, ok := snap["b"]; ok {
		t.Error("expected snapshot to miss later keys")
	}
}

func TestSnapshot_CustomClone(t *testing.T) {
	clone := func(v int) (int, error) { return v * 10, nil }
	snap, err := Snapshot(Value(2), true, clone)
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if snap != 20 {
		t.Errorf("expected custom clone result 20, got %d", snap)
	}
}

func TestSnapshot_CloneErrorWrapped(t *testing.T) {
	_, err := Snapshot(Value(map[string]any{"fn": func() {}}), true, nil)
	if !errors.Is(err, ErrSnapshot) {
		t.Errorf("expected ErrSnapshot, got %v", err)
	}
}

func TestCodecClone_YAML(t *testing.T) {
	type item struct {
		Name  string `yaml:"name"`
		Count int    `yaml:"count"`
	}
	clone := CodecClone[item](YAMLCodec{})
	got, err := clone(item{Name: "a", Count: 2})
	if err != nil {
		t.Fatalf("clone failed: %v", err)
	}
	if got.Name != "a" || got.Count != 2 {
		t.Errorf("unexpected clone %+v", got)
	}
}

func TestRef(t *testing.T) {
	r := NewRef("a")
	src := r.Source()
	r.Set("b")
	if r.Get() != "b" || Resolve(src) != "b" {
		t.Error("expected Ref and its source to see the latest value")
	}
}
