package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/koopa0/ragent/internal/app"
	"github.com/koopa0/ragent/internal/config"
	"github.com/koopa0/ragent/internal/log"
)

var (
	askThreadID string
	askURLs     []string
	askFiles    []string
	askVerbose  bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question over the corpus",
	Long: `Ask runs one question-answering turn: ingest the configured corpus,
retrieve context, judge sufficiency, and answer directly or via the agent.

The --thread flag continues an existing conversation thread; without it a
new thread id is generated and printed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAsk(cmd.Context(), args[0])
	},
}

func init() {
	askCmd.Flags().StringVar(&askThreadID, "thread", "", "conversation thread id (generated when empty)")
	askCmd.Flags().StringSliceVar(&askURLs, "url", nil, "web page to ingest into the corpus (repeatable)")
	askCmd.Flags().StringSliceVar(&askFiles, "file", nil, "local text file to ingest into the corpus (repeatable)")
	askCmd.Flags().BoolVarP(&askVerbose, "verbose", "v", false, "show agent steps and retrieved sources")
	rootCmd.AddCommand(askCmd)
}

func runAsk(ctx context.Context, question string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := newLogger(askVerbose)
	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer a.Close()

	urls := append(cfg.Ingest.URLs, askURLs...)
	files := append(cfg.Ingest.Files, askFiles...)
	if _, err := a.LoadCorpus(ctx, urls, files); err != nil {
		return fmt.Errorf("loading corpus: %w", err)
	}

	threadID := askThreadID
	if threadID == "" {
		threadID = uuid.NewString()
	}

	result, err := a.Orchestrator.Run(ctx, threadID, question)
	if err != nil && result == nil {
		return err
	}

	fmt.Printf("Thread: %s\n", threadID)
	fmt.Printf("Route:  %s\n\n", result.Decision)
	fmt.Println(result.Answer)

	if askVerbose {
		if len(result.RetrievedDocs) > 0 {
			fmt.Println("\nRetrieved sources:")
			for _, doc := range result.RetrievedDocs {
				fmt.Printf("  - %s\n", doc.Source())
			}
		}
		for _, step := range result.AgentSteps {
			fmt.Printf("\n[step %d] %s(%s)\n%s\n", step.Iteration, step.Tool, step.Input, step.Observation)
		}
	}

	// A persistence failure degrades the turn but the answer already printed.
	if err != nil {
		fmt.Printf("\nwarning: %v\n", err)
	}
	return nil
}

func newLogger(verbose bool) log.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return log.New(log.Config{Level: level})
}
