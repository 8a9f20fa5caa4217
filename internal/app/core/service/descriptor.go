package service

import "sort"

// Descriptor advertises a domain service and the operations it offers. It
// does not change runtime behavior; health checks and tooling read it.
type Descriptor struct {
	Name         string   `json:"name"`
	Domain       string   `json:"domain"`
	Capabilities []string `json:"capabilities,omitempty"`
}

// WithCapabilities returns a copy of the descriptor with additional
// capabilities appended.
func (d Descriptor) WithCapabilities(caps ...string) Descriptor {
	if len(caps) == 0 {
		return d
	}
	combined := make([]string, 0, len(d.Capabilities)+len(caps))
	combined = append(combined, d.Capabilities...)
	combined = append(combined, caps...)
	d.Capabilities = combined
	return d
}

// Sorted returns descriptors ordered by name.
func Sorted(descs []Descriptor) []Descriptor {
	out := append([]Descriptor(nil), descs...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
