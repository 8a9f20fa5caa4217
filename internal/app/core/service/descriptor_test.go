package service

import "testing"

func TestWithCapabilitiesDoesNotAlias(t *testing.T) {
	base := Descriptor{Name: "agents", Domain: "agent", Capabilities: []string{"list"}}
	extended := base.WithCapabilities("create", "delete")

	if len(base.Capabilities) != 1 {
		t.Fatalf("base mutated: %v", base.Capabilities)
	}
	if got := len(extended.Capabilities); got != 3 {
		t.Fatalf("extended capabilities = %d, want 3", got)
	}
	if same := base.WithCapabilities(); len(same.Capabilities) != 1 {
		t.Fatalf("empty extension changed descriptor")
	}
}

func TestSorted(t *testing.T) {
	in := []Descriptor{{Name: "tools"}, {Name: "agents"}, {Name: "chat"}}
	out := Sorted(in)
	if out[0].Name != "agents" || out[2].Name != "tools" {
		t.Fatalf("unexpected order %v", out)
	}
	if in[0].Name != "tools" {
		t.Fatalf("input reordered")
	}
}
