package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/firebase/genkit/go/ai"
)

// ErrEmptyQuestion indicates the user submitted nothing but whitespace.
// The pipeline is not invoked and the history is not modified.
var ErrEmptyQuestion = errors.New("question is empty")

// Asker runs the retrieval-augmented pipeline for one question.
// *rag.Chain satisfies this.
type Asker interface {
	Ask(ctx context.Context, input string, history []*ai.Message) (string, []*ai.Document, error)
}

// Response is one answered turn: the generated answer plus the documents it
// was grounded on, for citation display.
type Response struct {
	Answer  string
	Context []*ai.Document
}

// Bot drives the conversation: it validates input, invokes the pipeline with
// the history recorded so far, and records the completed exchange.
type Bot struct {
	chain  Asker
	logger *slog.Logger
}

// NewBot creates a Bot around the given pipeline.
func NewBot(chain Asker, logger *slog.Logger) (*Bot, error) {
	if chain == nil {
		return nil, errors.New("chain is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Bot{chain: chain, logger: logger}, nil
}

// Respond answers one question in the context of history.
//
// A whitespace-only question returns ErrEmptyQuestion without invoking the
// pipeline or touching the history. On success exactly two messages are
// appended: the human question followed by the assistant answer. On pipeline
// failure the error propagates and the history is left unchanged.
func (b *Bot) Respond(ctx context.Context, history *History, question string) (*Response, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}
	if history == nil {
		return nil, errors.New("history is required")
	}

	answer, docs, err := b.chain.Ask(ctx, question, history.ModelMessages())
	if err != nil {
		return nil, fmt.Errorf("answering question: %w", err)
	}

	history.Append(RoleHuman, question)
	history.Append(RoleAssistant, answer)

	b.logger.Debug("turn completed",
		"question_len", len(question),
		"answer_len", len(answer),
		"context_docs", len(docs),
	)

	return &Response{Answer: answer, Context: docs}, nil
}
