package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestValidateScenarioValid(t *testing.T) {
	dir := t.TempDir()
	path := writeScenario(t, dir, "town.yaml", `
name: town
agents:
  - id: alice
    name: Alice
  - id: bob
    name: Bob
topology:
  type: mesh
`)
	assert.Empty(t, validateScenario(path))
}

func TestValidateScenarioNoAgents(t *testing.T) {
	dir := t.TempDir()
	path := writeScenario(t, dir, "empty.yaml", `
name: empty
topology:
  type: mesh
`)
	issues := validateScenario(path)
	require.NotEmpty(t, issues)
	assert.Contains(t, issues[0], "no agents")
}

func TestValidateScenarioDuplicateAgentID(t *testing.T) {
	dir := t.TempDir()
	path := writeScenario(t, dir, "dup.yaml", `
name: dup
agents:
  - id: alice
    name: Alice
  - id: alice
    name: Alice Again
topology:
  type: mesh
`)
	issues := validateScenario(path)
	found := false
	for _, issue := range issues {
		if issue == `duplicate agent id "alice"` {
			found = true
		}
	}
	assert.True(t, found, "expected a duplicate agent id issue, got %v", issues)
}

func TestValidateScenarioUnknownTopology(t *testing.T) {
	dir := t.TempDir()
	path := writeScenario(t, dir, "bad-topo.yaml", `
name: bad
agents:
  - id: alice
    name: Alice
topology:
  type: ring
`)
	issues := validateScenario(path)
	found := false
	for _, issue := range issues {
		if issue == `unknown topology type "ring"` {
			found = true
		}
	}
	assert.True(t, found, "expected an unknown topology issue, got %v", issues)
}

func TestValidateScenarioHubSpokeRequiresHub(t *testing.T) {
	dir := t.TempDir()
	path := writeScenario(t, dir, "hub.yaml", `
name: hub
agents:
  - id: alice
    name: Alice
  - id: bob
    name: Bob
topology:
  type: hub_spoke
`)
	issues := validateScenario(path)
	found := false
	for _, issue := range issues {
		if issue == "hub_spoke topology requires a hub agent id" {
			found = true
		}
	}
	assert.True(t, found, "expected a missing hub issue, got %v", issues)
}

func TestValidateScenarioMissingAppDefinitionFile(t *testing.T) {
	dir := t.TempDir()
	path := writeScenario(t, dir, "app.yaml", `
name: app
agents:
  - id: alice
    name: Alice
topology:
  type: mesh
apps:
  - app_id: shop
    definition_file: does-not-exist.json
`)
	issues := validateScenario(path)
	found := false
	for _, issue := range issues {
		if issue == `app "shop": definition file "does-not-exist.json" not found` {
			found = true
		}
	}
	assert.True(t, found, "expected a missing definition file issue, got %v", issues)
}

func TestValidateScenarioFileNotFound(t *testing.T) {
	issues := validateScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Len(t, issues, 1)
}
