// Command agentworldctl runs and inspects AgentWorld simulations from
// scenario and engine configuration files.
package main

import "github.com/arunmenon/AgentWorld-sub001/cmd/agentworldctl/cmd"

func main() {
	cmd.Execute()
}
