package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/arunmenon/AgentWorld-sub001/internal/checkpoint"
)

var checkpointCmd = &cobra.Command{
	Use:   "checkpoint",
	Short: "Inspect serialized checkpoint blobs",
}

var checkpointInspectCmd = &cobra.Command{
	Use:   "inspect <checkpoint-file>",
	Short: "Print a checkpoint's metadata and a summary of its state",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		data, err := os.ReadFile(args[0])
		if err != nil {
			fail(err)
		}
		cp, err := checkpoint.Deserialize(data)
		if err != nil {
			fail(err)
		}

		fmt.Printf("checkpoint %s (version %d)\n", cp.Metadata.ID, cp.Version)
		fmt.Printf("  simulation: %s\n", cp.Metadata.SimulationID)
		fmt.Printf("  step:       %d\n", cp.Metadata.Step)
		fmt.Printf("  reason:     %s\n", cp.Metadata.Reason)
		fmt.Printf("  created at: %s\n", cp.Metadata.CreatedAt.Format("2006-01-02T15:04:05Z07:00"))
		fmt.Printf("  agents:     %d\n", len(cp.State.Agents))
		fmt.Printf("  messages:   %d\n", len(cp.State.Messages))
		fmt.Printf("  topology:   %s (%d edges)\n", cp.State.TopologyType, len(cp.State.TopologyEdges))
		fmt.Printf("  apps:       %d\n", len(cp.State.AppStates))
		for _, rec := range cp.State.Agents {
			fmt.Printf("    - %s (%s): %d memories, suspended=%v\n", rec.ID, rec.Name, len(rec.Memories), rec.Suspended)
		}
	},
}

func init() {
	rootCmd.AddCommand(checkpointCmd)
	checkpointCmd.AddCommand(checkpointInspectCmd)
}
