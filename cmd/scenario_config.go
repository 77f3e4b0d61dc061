package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	sim "github.com/phylodyn/bdsim/sim"
)

// Define struct for YAML
type ScenarioConfig struct {
	Scenarios map[string]Scenario `yaml:"scenarios"`
}

type Scenario struct {
	R0         float64 `yaml:"r0"`
	DI         float64 `yaml:"di"`
	Rho        float64 `yaml:"rho"`
	MaxCases   int     `yaml:"max_cases"`
	MaxSamples int     `yaml:"max_samples"`
}

// GetScenarioConfig loads a named scenario preset from a YAML file. It
// returns nil when the scenario is not present.
func GetScenarioConfig(scenarioFilePath string, scenarioType string) *sim.Config {
	// Read YAML file
	data, err := os.ReadFile(scenarioFilePath)
	if err != nil {
		panic(err)
	}

	// Parse YAML
	var cfg ScenarioConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		panic(err)
	}

	if scenario, scenarioExists := cfg.Scenarios[scenarioType]; scenarioExists {
		logrus.Infof("Using preset scenario %v", scenarioType)
		return &sim.Config{
			R0:         scenario.R0,
			DI:         scenario.DI,
			Rho:        scenario.Rho,
			MaxCases:   scenario.MaxCases,
			MaxSamples: scenario.MaxSamples,
		}
	}
	return nil
}
