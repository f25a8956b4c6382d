package scenario

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadNetwork reads a network YAML file.
func LoadNetwork(path string) (*Network, error) {
	var n Network
	if err := loadYAML(path, &n); err != nil {
		return nil, fmt.Errorf("failed to load network: %w", err)
	}
	return &n, nil
}

// LoadPopulation reads a population YAML file.
func LoadPopulation(path string) (*Population, error) {
	var p Population
	if err := loadYAML(path, &p); err != nil {
		return nil, fmt.Errorf("failed to load population: %w", err)
	}
	return &p, nil
}

// Load reads the network and population files into a scenario. An empty
// path yields an empty entity.
func Load(networkPath, populationPath string) (*Scenario, error) {
	scn := &Scenario{Network: &Network{}, Population: &Population{}}

	if networkPath != "" {
		n, err := LoadNetwork(networkPath)
		if err != nil {
			return nil, err
		}
		scn.Network = n
	}
	if populationPath != "" {
		p, err := LoadPopulation(populationPath)
		if err != nil {
			return nil, err
		}
		scn.Population = p
	}
	return scn, nil
}

// Save writes v as YAML to path.
func Save(path string, v interface{}) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func loadYAML(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, v)
}
