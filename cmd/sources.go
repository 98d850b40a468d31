package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/docchat/docchat/internal/app"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List indexed sources and their page counts",
	Args:  cobra.NoArgs,
	RunE:  runSources,
}

var deleteSource string

func init() {
	sourcesCmd.Flags().StringVar(&deleteSource, "delete", "", "remove every page of the named source")
	rootCmd.AddCommand(sourcesCmd)
}

func runSources(cmd *cobra.Command, _ []string) error {
	logger := initLogger()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("closing application", "error", err)
		}
	}()

	if deleteSource != "" {
		removed, err := a.Knowledge.DeleteSource(ctx, deleteSource)
		if err != nil {
			return fmt.Errorf("deleting source %q: %w", deleteSource, err)
		}
		fmt.Printf("Removed %d pages of %s.\n", removed, deleteSource)
		return nil
	}

	sources, err := a.Knowledge.Sources(ctx)
	if err != nil {
		return fmt.Errorf("listing sources: %w", err)
	}
	if len(sources) == 0 {
		fmt.Println("No documents indexed yet. Run: docchat index <path>")
		return nil
	}

	for _, s := range sources {
		fmt.Printf("%-40s %d pages\n", s.Source, s.Pages)
	}
	return nil
}
