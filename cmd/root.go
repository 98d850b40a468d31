// Package cmd contains the docchat CLI commands.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/docchat/docchat/internal/config"
	"github.com/docchat/docchat/internal/log"
)

var rootCmd = &cobra.Command{
	Use:   "docchat",
	Short: "docchat - chat with your documents in the terminal",
	Long: `docchat answers questions about your indexed documents, grounding every
answer in retrieved passages and citing the source files and pages it used.

Running docchat without a subcommand starts the interactive chat.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(cmd, args)
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// initLogger builds the process logger. Log level is controlled by the
// DEBUG environment variable; logs go to stderr so stdout stays clean for
// command output.
func initLogger() *slog.Logger {
	cfg := log.Config{Level: slog.LevelInfo}
	if os.Getenv("DEBUG") != "" {
		cfg.Level = slog.LevelDebug
		cfg.AddSource = true
	}
	logger := log.New(cfg)
	slog.SetDefault(logger)
	return logger
}

// checkRequiredEnv verifies the provider's API key is present before any
// network setup, so the failure is a clear instruction instead of a 401.
func checkRequiredEnv(cfg *config.Config) error {
	switch cfg.Provider {
	case config.ProviderOllama:
		// Local server, no key needed
		return nil
	case config.ProviderOpenAI:
		if os.Getenv("OPENAI_API_KEY") == "" {
			fmt.Fprintln(os.Stderr, "Error: OPENAI_API_KEY environment variable not set")
			fmt.Fprintln(os.Stderr, "")
			fmt.Fprintln(os.Stderr, "To set your API key:")
			fmt.Fprintln(os.Stderr, "  export OPENAI_API_KEY=your-api-key")
			return fmt.Errorf("OPENAI_API_KEY not set")
		}
	default: // gemini
		if os.Getenv("GEMINI_API_KEY") == "" {
			fmt.Fprintln(os.Stderr, "Error: GEMINI_API_KEY environment variable not set")
			fmt.Fprintln(os.Stderr, "")
			fmt.Fprintln(os.Stderr, "docchat requires a Gemini API key by default.")
			fmt.Fprintln(os.Stderr, "")
			fmt.Fprintln(os.Stderr, "To set your API key:")
			fmt.Fprintln(os.Stderr, "  export GEMINI_API_KEY=your-api-key")
			fmt.Fprintln(os.Stderr, "")
			fmt.Fprintln(os.Stderr, "Get your API key at: https://ai.google.dev/")
			return fmt.Errorf("GEMINI_API_KEY not set")
		}
	}
	return nil
}

// loadConfig loads and validates configuration and checks provider credentials.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	if err := checkRequiredEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
