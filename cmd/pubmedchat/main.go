// Command pubmedchat asks medical questions against PubMed from the terminal.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"pubmed-chat/internal/app"
	"pubmed-chat/internal/config"
	"pubmed-chat/internal/domain"
	"pubmed-chat/internal/logger"
	"pubmed-chat/internal/usecase"
)

// version is set at build time via ldflags.
var version = "dev"

// asker is the part of the ask service the commands drive.
type asker interface {
	Ask(ctx context.Context, in usecase.AskInput) (usecase.AskOutput, error)
	History(ctx context.Context, conversationID string) ([]domain.ConversationTurn, error)
}

var rootCmd = &cobra.Command{
	Use:   "pubmedchat",
	Short: "Search PubMed with natural-language medical questions",
	Long: `pubmedchat turns a medical question into a PubMed search query with an LLM,
fetches the top matching articles and summarizes each abstract in Japanese.

Configuration is read from the environment (and an optional .env file).
Transcripts are kept in memory unless --persist is given and STATE_TABLE
names a DynamoDB table.`,
	Version:      version,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().String("backend", "", "LLM backend override: bedrock, azure or openai")
	rootCmd.PersistentFlags().String("model", "", "Bedrock model label override")
	rootCmd.PersistentFlags().Int("max-results", 0, "maximum number of articles per question")
	rootCmd.PersistentFlags().Bool("persist", false, "store the transcript in STATE_TABLE")
	rootCmd.PersistentFlags().Bool("verbose", false, "log pipeline steps to stderr")
}

// buildService loads config, applies flag overrides and assembles the ask
// service.
func buildService(cmd *cobra.Command) (asker, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if v, _ := flags.GetString("backend"); v != "" {
		cfg.LLMBackend = v
	}
	if v, _ := flags.GetString("model"); v != "" {
		cfg.BedrockModel = v
	}
	if v, _ := flags.GetInt("max-results"); v > 0 {
		cfg.PubMedMaxResults = v
	}
	persist, _ := flags.GetBool("persist")
	if !persist {
		cfg.StateTable = ""
	} else if cfg.StateTable == "" {
		return nil, errors.New("--persist requires STATE_TABLE")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	level := "warn"
	if verbose, _ := flags.GetBool("verbose"); verbose {
		level = cfg.LogLevel
	}
	deps, err := app.BuildWith(cmd.Context(), cfg, logger.New(cmd.ErrOrStderr(), level, "text"))
	if err != nil {
		return nil, err
	}
	return deps.Ask, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
