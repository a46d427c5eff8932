package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/arunmenon/AgentWorld-sub001/core"
	"github.com/arunmenon/AgentWorld-sub001/internal/appruntime"
	"github.com/arunmenon/AgentWorld-sub001/internal/memory"
	"github.com/arunmenon/AgentWorld-sub001/internal/scheduler"
	"github.com/arunmenon/AgentWorld-sub001/plugins/cache/badger"
	"github.com/arunmenon/AgentWorld-sub001/plugins/memory/pgvector"
	"github.com/arunmenon/AgentWorld-sub001/plugins/memory/weaviate"
	"github.com/arunmenon/AgentWorld-sub001/simulation"
)

var (
	runScenarioPath  string
	runEnginePath    string
	runSteps         int
	runLLMProvider   string
	runEmbedProvider string
	runCheckpointOut string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Create a simulation from a scenario and run it",
	Long: `run loads a scenario and (optionally) an engine configuration file,
wires the configured LLM/embedding/memory providers, and steps the
simulation until it completes, its goal is achieved, or --steps is
exhausted, whichever comes first.

Examples:
  agentworldctl run --scenario town.yaml --engine engine.toml --steps 20
  agentworldctl run --scenario town.yaml --llm-provider ollama`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runSimulation(); err != nil {
			fail(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVar(&runScenarioPath, "scenario", "", "scenario YAML file (required)")
	runCmd.Flags().StringVar(&runEnginePath, "engine", "", "engine TOML file (defaults to built-in defaults)")
	runCmd.Flags().IntVar(&runSteps, "steps", 0, "max steps to run; 0 runs until the goal is achieved or the simulation completes")
	runCmd.Flags().StringVar(&runLLMProvider, "llm-provider", "", "override engine.llm.provider (openai, ollama)")
	runCmd.Flags().StringVar(&runEmbedProvider, "embed-provider", "", "override embedding provider name (defaults to --llm-provider)")
	runCmd.Flags().StringVar(&runCheckpointOut, "checkpoint-out", "", "write a final snapshot to this path on completion")
	_ = runCmd.MarkFlagRequired("scenario")
}

func runSimulation() error {
	scenario, err := core.LoadScenarioConfig(runScenarioPath)
	if err != nil {
		return err
	}

	engine := core.DefaultEngineConfig()
	if runEnginePath != "" {
		engine, err = core.LoadEngineConfig(runEnginePath)
		if err != nil {
			return err
		}
	}
	if runLLMProvider != "" {
		engine.LLM.Provider = runLLMProvider
	}

	llmFactory, ok := core.LLMProviderFactory(engine.LLM.Provider)
	if !ok {
		return core.NewError(core.ErrValidation, fmt.Sprintf("no LLM provider registered under %q", engine.LLM.Provider))
	}
	llmProvider := llmFactory()

	embedName := runEmbedProvider
	if embedName == "" {
		embedName = engine.LLM.Provider
	}
	var embedProvider core.EmbeddingProvider
	if embedFactory, ok := core.EmbeddingProviderFactory(embedName); ok {
		embedProvider = embedFactory()
	} else {
		core.Logger().Warn().Str("provider", embedName).Msg("agentworldctl: no embedding provider registered, memory retrieval will use zero vectors")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	go func() {
		<-sigCh
		core.Logger().Warn().Msg("agentworldctl: interrupted, cancelling run")
		cancel()
	}()

	var durableCache *badger.Store
	if engine.LLM.DurableCache == "badger" {
		durableCache, err = badger.Open(engine.LLM.DurableCachePath)
		if err != nil {
			return err
		}
		defer durableCache.Close()
	}

	memDurable, closeMem, err := openMemoryDurableStore(ctx, engine, embedProvider)
	if err != nil {
		return err
	}
	if closeMem != nil {
		defer closeMem()
	}

	cfg := simulation.Config{
		Name:     scenario.Name,
		Engine:   engine,
		Scenario: scenario,
		Registry: appruntime.NewRegistry(),
		LLM:      llmProvider,
		Embed:    embedProvider,
	}
	if durableCache != nil {
		cfg.Durable = durableCache
	}
	if memDurable != nil {
		cfg.MemoryDurable = memDurable
	}

	runner, err := simulation.Create(cfg)
	if err != nil {
		return err
	}

	fmt.Printf("simulation %s created with %d agent(s), topology=%s\n", runner.ID(), len(scenario.Agents), scenario.Topology.Type)

	// maxSteps caps an unbounded (--steps 0) run so a scenario whose goal is
	// never satisfied still terminates.
	maxSteps := runSteps
	if maxSteps <= 0 {
		maxSteps = 100000
	}
	for i := 0; i < maxSteps; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		result, err := runner.Step(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("step %d: status=%s outcomes=%d errors=%d\n", result.Step, result.Status, len(result.Outcomes), len(result.Errors))

		if result.Status == scheduler.StatusCancelled || result.Status == scheduler.StatusFailed {
			break
		}
		status := runner.Status()
		if status.GoalAchieved {
			fmt.Println("goal achieved")
			break
		}
		if status.Status == simulation.StatusCompleted || status.Status == simulation.StatusCancelled || status.Status == simulation.StatusFailed {
			break
		}
	}

	usage := runner.UsageReport()
	fmt.Printf("\ntotal tokens: %d  total cost: %.4f\n", usage.TotalTokens, usage.TotalCost)

	if runCheckpointOut != "" {
		data, err := runner.Snapshot("cli run complete")
		if err != nil {
			return err
		}
		if err := os.WriteFile(runCheckpointOut, data, 0o644); err != nil {
			return core.Wrap(core.ErrStorage, "writing checkpoint file", err)
		}
		fmt.Printf("checkpoint written to %s\n", runCheckpointOut)
	}

	return nil
}

// openMemoryDurableStore builds the durable memory tier named by
// engine.Memory.Provider, if any, returning a close function the caller
// must defer.
func openMemoryDurableStore(ctx context.Context, engine *core.EngineConfig, embed core.EmbeddingProvider) (memory.DurableStore, func(), error) {
	switch engine.Memory.Provider {
	case "", "memory":
		return nil, nil, nil
	case "pgvector":
		dims := 1536
		if embed != nil {
			dims = embed.Dimensions()
		}
		store, err := pgvector.Open(ctx, engine.Memory.Connection, dims)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	case "weaviate":
		store, err := weaviate.Open(ctx, engine.Memory.Connection)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	default:
		return nil, nil, core.NewError(core.ErrValidation, fmt.Sprintf("unknown memory provider %q", engine.Memory.Provider))
	}
}
