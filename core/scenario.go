package core

import (
	"os"

	"gopkg.in/yaml.v3"
)

// ScenarioConfig describes one simulation run: its roster, communication
// topology, apps, and goal — the scenario-author-facing surface, kept in
// YAML (distinct from the TOML EngineConfig) the way the teacher separates
// operator configuration from domain definitions.
type ScenarioConfig struct {
	Name     string               `yaml:"name"`
	Agents   []ScenarioAgent      `yaml:"agents"`
	Topology TopologyConfig       `yaml:"topology"`
	Apps     []ScenarioAppBinding `yaml:"apps"`
	Goal     *GoalSpec            `yaml:"goal,omitempty"`
}

// ScenarioAgent is one agent's static description in a scenario file.
type ScenarioAgent struct {
	ID          string             `yaml:"id"`
	Name        string             `yaml:"name"`
	Personality PersonalityTraits  `yaml:"personality"`
	Background  string             `yaml:"background,omitempty"`
}

// TopologyConfig names which Topology Graph builder to use and its params.
type TopologyConfig struct {
	Type       string           `yaml:"type"` // mesh|hub_spoke|hierarchical|small_world|scale_free|custom
	Directed   bool             `yaml:"directed"`
	Hub        string           `yaml:"hub,omitempty"`
	Branching  int              `yaml:"branching,omitempty"`
	K          int              `yaml:"k,omitempty"`
	P          float64          `yaml:"p,omitempty"`
	M          int              `yaml:"m,omitempty"`
	OnOverflow string           `yaml:"on_overflow,omitempty"` // drop|attach_root
	Edges      []TopologyEdgeIn `yaml:"edges,omitempty"`
	RoutingMode string          `yaml:"routing_mode,omitempty"` // direct_only|multi_hop|broadcast
}

// TopologyEdgeIn is one custom-topology edge as authored in YAML.
type TopologyEdgeIn struct {
	From   string  `yaml:"from"`
	To     string  `yaml:"to"`
	Weight float64 `yaml:"weight,omitempty"`
}

// ScenarioAppBinding wires an App Definition (by id, loaded from a JSON file
// or the native registry) into the scenario with its initial config overlay.
type ScenarioAppBinding struct {
	AppID         string         `yaml:"app_id"`
	DefinitionFile string        `yaml:"definition_file,omitempty"`
	ConfigOverlay map[string]any `yaml:"config_overlay,omitempty"`
}

// LoadScenarioConfig reads a ScenarioConfig from a YAML file.
func LoadScenarioConfig(path string) (*ScenarioConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, Wrap(ErrStorage, "reading scenario file", err)
	}
	var sc ScenarioConfig
	if err := yaml.Unmarshal(b, &sc); err != nil {
		return nil, Wrap(ErrStorage, "parsing scenario file", err)
	}
	return &sc, nil
}
