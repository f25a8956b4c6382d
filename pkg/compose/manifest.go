package compose

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Manifest is the serializable record of a composed binding list.
type Manifest struct {
	// BuildID identifies the build the bindings were composed for.
	BuildID string `json:"build_id,omitempty" yaml:"build_id,omitempty"`

	// Bindings are the composed bindings in installation order.
	Bindings []BindingSpec `json:"bindings" yaml:"bindings"`
}

// MarshalManifest renders bindings as a YAML manifest.
func MarshalManifest(buildID string, bindings []BindingSpec) ([]byte, error) {
	data, err := yaml.Marshal(&Manifest{BuildID: buildID, Bindings: bindings})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal binding manifest: %w", err)
	}
	return data, nil
}

// ParseManifest reads a YAML manifest. Conditions are not part of the
// manifest; parsed bindings are already selected.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse binding manifest: %w", err)
	}

	for i, b := range m.Bindings {
		if !b.Capability.IsValid() {
			return nil, fmt.Errorf("binding %d: unknown capability %q", i, b.Capability)
		}
		if b.Target == "" {
			return nil, fmt.Errorf("binding %d: target is required", i)
		}
	}
	return &m, nil
}
