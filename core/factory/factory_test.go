package factory

import (
	"reflect"
	"testing"
)

type sample struct{ Ratio float64 }

type sampleConf struct {
	Ratio float64 `json:"ratio"`
}

// Test registry registration and instantiation using Decode.
func TestRegistry_Create(t *testing.T) {
	reg := NewRegistry[*sample]()
	if err := reg.Register("s", func(conf map[string]any) (*sample, error) {
		var c sampleConf
		if err := Decode(conf, &c); err != nil {
			return nil, err
		}
		return &sample{Ratio: c.Ratio}, nil
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	inst, err := reg.Create(ModuleConfig{Type: "s", Conf: map[string]any{"ratio": 0.1}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if inst.Ratio != 0.1 {
		t.Fatalf("expected 0.1 got %v", inst.Ratio)
	}
}

// Test duplicate registration and unknown type errors.
func TestRegistry_Errors(t *testing.T) {
	reg := NewRegistry[int]()
	if err := reg.Register("x", func(map[string]any) (int, error) { return 1, nil }); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := reg.Register("x", func(map[string]any) (int, error) { return 2, nil }); err == nil {
		t.Fatal("expected duplicate error")
	}
	if err := reg.Register("z", nil); err == nil {
		t.Fatal("expected nil factory error")
	}
	if _, err := reg.Create(ModuleConfig{Type: "y"}); err == nil {
		t.Fatal("expected unknown type error")
	}
}

func TestRegistry_Names(t *testing.T) {
	reg := NewRegistry[int]()
	for _, n := range []string{"simplex", "cbc"} {
		if err := reg.Register(n, func(map[string]any) (int, error) { return 0, nil }); err != nil {
			t.Fatalf("register: %v", err)
		}
	}
	if got := reg.Names(); !reflect.DeepEqual(got, []string{"cbc", "simplex"}) {
		t.Fatalf("unexpected names %v", got)
	}
}

// Environment overrides arrive as strings.
func TestDecode_WeakTypes(t *testing.T) {
	var c sampleConf
	if err := Decode(map[string]any{"ratio": "0.25"}, &c); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if c.Ratio != 0.25 {
		t.Fatalf("expected 0.25 got %v", c.Ratio)
	}
}
