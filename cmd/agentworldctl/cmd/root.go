package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/arunmenon/AgentWorld-sub001/core"
	zerologprovider "github.com/arunmenon/AgentWorld-sub001/plugins/logging/zerolog"

	// Side-effect imports: each plugin registers itself by name with core's
	// provider registries from its init(), unlike the gateway's DurableStore
	// and the scheduler's AgentExecutor, which are wired by construction.
	_ "github.com/arunmenon/AgentWorld-sub001/plugins/llm/ollama"
	_ "github.com/arunmenon/AgentWorld-sub001/plugins/llm/openai"
)

var (
	logLevel  string
	logFormat string
	logFile   string
)

var rootCmd = &cobra.Command{
	Use:   "agentworldctl",
	Short: "Run and inspect AgentWorld multi-agent simulations",
	Long: `agentworldctl drives AgentWorld simulations from scenario and engine
configuration files.

  run        Create a simulation from a scenario and run it to completion or N steps
  validate   Check a scenario file for structural errors before running it
  checkpoint Inspect a serialized checkpoint blob
  version    Show build version information

Use "agentworldctl <command> --help" for details on a specific command.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		zerologprovider.Configure(logLevel, logFormat, logFile)
	},
}

// Execute runs the root command. Called once from main.main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "console", "log format (console, json)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "optional rotating log file path")
}

func fail(err error) {
	core.Logger().Error().Err(err).Msg("agentworldctl: command failed")
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}
