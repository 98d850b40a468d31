package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/docchat/docchat/internal/app"
)

var indexCmd = &cobra.Command{
	Use:   "index [path...]",
	Short: "Index documents into the vector store",
	Long: `Index loads .txt and .md files, splits them into pages, embeds each
page, and stores it with source and page metadata. Directories are walked
recursively; re-indexing a changed file updates its pages in place.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
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

	var totalFiles, totalPages int
	for _, path := range args {
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("inspecting %s: %w", path, err)
		}

		if info.IsDir() {
			files, pages, err := a.Indexer.IndexDir(ctx, path)
			if err != nil {
				return err
			}
			totalFiles += files
			totalPages += pages
		} else {
			pages, err := a.Indexer.IndexFile(ctx, path)
			if err != nil {
				return err
			}
			totalFiles++
			totalPages += pages
		}
	}

	fmt.Printf("Indexed %d pages from %d files.\n", totalPages, totalFiles)
	return nil
}
