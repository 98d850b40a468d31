package tui

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	tea "charm.land/bubbletea/v2"

	"github.com/docchat/docchat/internal/rag"
)

// responseMsg carries a completed answer and its grouped citations.
type responseMsg struct {
	answer    string
	citations []rag.Citation
}

// errorMsg carries a failed request.
type errorMsg struct {
	err error
}

// ask creates a command that runs one question through the bot.
//
// The round-trip is bounded by responseTimeout; cancellation via Esc or
// Ctrl+C cancels the derived context and surfaces context.Canceled.
func (t *TUI) ask(question string) tea.Cmd {
	ctx, cancel := context.WithTimeout(t.ctx, responseTimeout)
	t.askCancel = cancel

	bot := t.bot
	conversation := t.conversation
	return func() tea.Msg {
		defer cancel()

		// Panic recovery to prevent TUI lockup
		defer func() {
			if r := recover(); r != nil {
				slog.Error("respond panic recovered", "panic", r)
			}
		}()

		resp, err := bot.Respond(ctx, conversation, question)
		if err != nil {
			// Prefer the context cause so Esc shows "(Canceled)" instead of a
			// wrapped transport error.
			if ctxErr := ctx.Err(); ctxErr != nil {
				return errorMsg{err: ctxErr}
			}
			return errorMsg{err: fmt.Errorf("answering %q: %w", truncate(question, 40), err)}
		}

		return responseMsg{
			answer:    resp.Answer,
			citations: rag.GroupCitations(resp.Context),
		}
	}
}

// cancelAsk cancels the in-flight request, if any.
func (t *TUI) cancelAsk() {
	if t.askCancel != nil {
		t.askCancel()
		t.askCancel = nil
	}
}

// clearAskCancel releases timer resources after a request settles.
func (t *TUI) clearAskCancel() {
	if t.askCancel != nil {
		t.askCancel()
		t.askCancel = nil
	}
}

// truncate shortens s to at most n runes for log and error display.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "…"
}

// joinPages formats page numbers as "1, 3, 7".
func joinPages(pages []int) string {
	parts := make([]string, len(pages))
	for i, p := range pages {
		parts[i] = strconv.Itoa(p)
	}
	return strings.Join(parts, ", ")
}
