package adapter

import (
	"context"
	"errors"
	"testing"
)

type fakeAdapter struct{ id string }

func (f *fakeAdapter) Info() SourceInfo { return SourceInfo{ID: f.id, DisplayName: f.id} }

func (f *fakeAdapter) FetchModels(context.Context) ([]RawModel, error) { return nil, nil }

func ids(as []Adapter) []string {
	out := make([]string, 0, len(as))
	for _, a := range as {
		out = append(out, a.Info().ID)
	}
	return out
}

func TestRegistryPreservesOrder(t *testing.T) {
	r := NewRegistry()
	for _, id := range []string{"wolfai", "dmx", "aihubmix", "deepseek"} {
		if err := r.Register(&fakeAdapter{id: id}); err != nil {
			t.Fatalf("Register(%s): %v", id, err)
		}
	}

	got := ids(r.List())
	want := []string{"wolfai", "dmx", "aihubmix", "deepseek"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("List() = %v, want %v", got, want)
		}
	}
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&fakeAdapter{id: "dmx"}); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(&fakeAdapter{id: "dmx"}); err == nil {
		t.Error("expected error for duplicate source id")
	}
	if err := r.Register(&fakeAdapter{}); err == nil {
		t.Error("expected error for empty source id")
	}
}

func TestRegistryEnableDisable(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(&fakeAdapter{id: "a"})
	_ = r.Register(&fakeAdapter{id: "b"})
	_ = r.Register(&fakeAdapter{id: "c"})

	if err := r.SetEnabled("b", false); err != nil {
		t.Fatalf("SetEnabled: %v", err)
	}

	got := ids(r.Enabled())
	if len(got) != 2 || got[0] != "a" || got[1] != "c" {
		t.Errorf("Enabled() = %v, want [a c]", got)
	}

	status := r.Status()
	if len(status) != 3 || status[1].Enabled {
		t.Errorf("Status() = %+v, want b disabled", status)
	}

	if err := r.SetEnabled("b", true); err != nil {
		t.Fatal(err)
	}
	if len(r.Enabled()) != 3 {
		t.Error("expected b to be re-enabled")
	}
}

func TestRegistryUnknownSource(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Get("missing"); !errors.Is(err, ErrUnknownSource) {
		t.Errorf("Get() error = %v, want ErrUnknownSource", err)
	}
	if err := r.SetEnabled("missing", true); !errors.Is(err, ErrUnknownSource) {
		t.Errorf("SetEnabled() error = %v, want ErrUnknownSource", err)
	}
}
