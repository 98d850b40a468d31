package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/docchat/docchat/internal/app"
	"github.com/docchat/docchat/internal/chat"
	"github.com/docchat/docchat/internal/rag"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a single question and print the answer",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
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

	question := strings.Join(args, " ")
	resp, err := a.Bot.Respond(ctx, chat.NewHistory(), question)
	if err != nil {
		return fmt.Errorf("answering question: %w", err)
	}

	fmt.Println(resp.Answer)

	citations := rag.GroupCitations(resp.Context)
	if len(citations) > 0 {
		fmt.Println()
		fmt.Println("Sources:")
		for _, c := range citations {
			line := "  " + c.Source
			if len(c.Pages) > 0 {
				pages := make([]string, len(c.Pages))
				for i, p := range c.Pages {
					pages[i] = fmt.Sprintf("%d", p)
				}
				line += " (pages " + strings.Join(pages, ", ") + ")"
			}
			fmt.Println(line)
		}
	}

	return nil
}
