package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/arunmenon/AgentWorld-sub001/core"
)

var validateCmd = &cobra.Command{
	Use:   "validate <scenario.yaml>",
	Short: "Check a scenario file for structural errors",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		issues := validateScenario(args[0])
		for _, issue := range issues {
			fmt.Println("-", issue)
		}
		if len(issues) > 0 {
			fmt.Printf("\n%d issue(s) found\n", len(issues))
			os.Exit(1)
		}
		fmt.Println("scenario is valid")
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

var validTopologyTypes = map[string]bool{
	"": true, "mesh": true, "hub_spoke": true, "hierarchical": true,
	"small_world": true, "scale_free": true, "custom": true,
}

// validateScenario checks a scenario file's structural invariants without
// constructing a Runner: unique non-empty agent ids, a known topology type
// with its required parameters, a non-empty app_id on every app binding and
// an existing file for any definition file it names. Whether an app_id
// names a registered native app is not checked.
func validateScenario(path string) []string {
	var issues []string

	sc, err := core.LoadScenarioConfig(path)
	if err != nil {
		return []string{err.Error()}
	}

	if len(sc.Agents) == 0 {
		issues = append(issues, "scenario declares no agents")
	}
	seen := map[string]bool{}
	for _, a := range sc.Agents {
		if a.ID == "" {
			issues = append(issues, "agent with empty id")
			continue
		}
		if seen[a.ID] {
			issues = append(issues, fmt.Sprintf("duplicate agent id %q", a.ID))
		}
		seen[a.ID] = true
	}

	if !validTopologyTypes[sc.Topology.Type] {
		issues = append(issues, fmt.Sprintf("unknown topology type %q", sc.Topology.Type))
	}
	if sc.Topology.Type == "hub_spoke" && sc.Topology.Hub == "" {
		issues = append(issues, "hub_spoke topology requires a hub agent id")
	}
	if sc.Topology.Type == "custom" && len(sc.Topology.Edges) == 0 {
		issues = append(issues, "custom topology declares no edges")
	}
	for _, e := range sc.Topology.Edges {
		if !seen[e.From] {
			issues = append(issues, fmt.Sprintf("topology edge references unknown agent %q", e.From))
		}
		if !seen[e.To] {
			issues = append(issues, fmt.Sprintf("topology edge references unknown agent %q", e.To))
		}
	}

	for _, binding := range sc.Apps {
		if binding.AppID == "" {
			issues = append(issues, "app binding with empty app_id")
			continue
		}
		if binding.DefinitionFile != "" {
			if _, err := os.Stat(binding.DefinitionFile); err != nil {
				issues = append(issues, fmt.Sprintf("app %q: definition file %q not found", binding.AppID, binding.DefinitionFile))
			}
		}
	}

	if sc.Goal != nil && len(sc.Goal.Conditions) == 0 {
		issues = append(issues, "goal spec declares no conditions")
	}

	return issues
}
