package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mudler/LocalCraft/core/agent"
	"github.com/mudler/LocalCraft/core/config"
	"github.com/mudler/LocalCraft/core/coordinator"
	"github.com/mudler/LocalCraft/core/journal"
	"github.com/mudler/LocalCraft/core/types"
	"github.com/mudler/LocalCraft/pkg/llm"
	"github.com/mudler/LocalCraft/services"
	"github.com/mudler/LocalCraft/services/modules"
	"github.com/mudler/xlog"
	"github.com/spf13/cobra"
)

var (
	configPath      string
	embeddingsModel string
	toolCall        bool
	stopTimeout     time.Duration
)

func main() {
	root := &cobra.Command{
		Use:           "localcraft",
		Short:         "Run an autonomous agent against an in-memory world",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}
	root.Flags().StringVarP(&configPath, "config", "c", "localcraft.yaml", "path to the YAML configuration")
	root.Flags().StringVar(&embeddingsModel, "embeddings-model", "text-embedding-ada-002", "model used by the memory module")
	root.Flags().BoolVar(&toolCall, "tool-call", false, "ask the model for decisions through a function call")
	root.Flags().DurationVar(&stopTimeout, "stop-timeout", 30*time.Second, "how long to wait for modules to drain on shutdown")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Read(configPath)
	if err != nil {
		return err
	}

	opts := []agent.Option{}
	deps := services.Dependencies{
		Connector: modules.NewInMemoryConnector(nil, types.Location{}),
	}

	if cfg.LLM.APIURL != "" {
		client := llm.NewClient(cfg.LLM.APIKey, cfg.LLM.APIURL, cfg.LLM.TimeoutDuration())
		sourceOpts := []llm.SourceOption{llm.WithModel(cfg.LLM.Model), llm.WithRequestTimeout(cfg.LLM.TimeoutDuration())}
		if toolCall {
			sourceOpts = append(sourceOpts, llm.EnableToolCall)
		}
		source, err := llm.NewDecisionSource(client, sourceOpts...)
		if err != nil {
			return err
		}
		opts = append(opts, agent.WithDecisionSource(source))
		deps.Embedding = llm.Embeddings(client, embeddingsModel)
	} else {
		xlog.Warn("No LLM configured, the agent will idle")
		opts = append(opts, agent.WithDecisionSource(coordinator.IdleSource{}))
	}

	if cfg.Journal.Path != "" {
		store, err := journal.NewJSONStore(cfg.Journal.Path)
		if err != nil {
			return err
		}
		defer store.Close()
		opts = append(opts, agent.WithJournal(store))
		if cfg.Journal.Schedule != "" {
			opts = append(opts, agent.WithCheckpointSchedule(cfg.Journal.Schedule))
		}
	}

	opts = append(opts, agent.WithModules(services.Modules(cfg, deps)...))

	a, err := agent.New(cfg, opts...)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// modules get a context that outlives the signal so in-flight work can drain
	if err := a.Start(context.WithoutCancel(ctx)); err != nil {
		return err
	}

	<-ctx.Done()
	xlog.Info("Shutting down")

	stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	return a.Stop(stopCtx)
}
