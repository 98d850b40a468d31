package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// ChainConfig contains the parameters for assembling a Chain.
type ChainConfig struct {
	Genkit    *genkit.Genkit
	Retriever ai.Retriever
	Logger    *slog.Logger

	// ModelName is the provider-qualified model name
	// (e.g. "googleai/gemini-2.5-flash", "ollama/llama3.3").
	ModelName string

	// Temperature for generation, 0.0 - 2.0.
	Temperature float32

	// Language forces answers into one language. Empty or "auto" keeps the
	// template's mirror-the-input behavior.
	Language string

	// TopK documents retrieved per question.
	TopK int

	// MaxHistoryMessages bounds how many trailing chat messages are sent to
	// the model. Zero means DefaultMaxHistory.
	MaxHistoryMessages int

	// SystemMessageWorkaround sends the instruction block as a leading user
	// message instead of a system message, for models without system-role
	// support.
	SystemMessageWorkaround bool
}

// DefaultMaxHistory is the trailing history window sent to the model.
const DefaultMaxHistory = 10

// Chain composes retrieval, prompt rendering, and generation into a single
// callable pipeline: question + history in, answer + supporting documents out.
//
// The chain performs no retries and no response validation: every failure
// from the retriever, the embedder, or the model propagates wrapped to the
// caller.
type Chain struct {
	g          *genkit.Genkit
	retriever  ai.Retriever
	logger     *slog.Logger
	modelName  string
	temp       float32
	language   string
	topK       int
	maxHistory int
	sysCompat  bool

	// generate is swappable in tests; production uses genkit.Generate.
	generate func(ctx context.Context, g *genkit.Genkit, opts ...ai.GenerateOption) (*ai.ModelResponse, error)
}

// NewChain assembles the pipeline.
func NewChain(cfg ChainConfig) (*Chain, error) {
	if cfg.Genkit == nil {
		return nil, errors.New("genkit instance is required")
	}
	if cfg.Retriever == nil {
		return nil, errors.New("retriever is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	topK := cfg.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}
	maxHistory := cfg.MaxHistoryMessages
	if maxHistory <= 0 {
		maxHistory = DefaultMaxHistory
	}

	return &Chain{
		g:          cfg.Genkit,
		retriever:  cfg.Retriever,
		logger:     cfg.Logger,
		modelName:  cfg.ModelName,
		temp:       cfg.Temperature,
		language:   cfg.Language,
		topK:       topK,
		maxHistory: maxHistory,
		sysCompat:  cfg.SystemMessageWorkaround,
		generate:   genkit.Generate,
	}, nil
}

// Ask runs the pipeline for one question: retrieve supporting documents,
// render them into the instruction template, and generate an answer with the
// trailing history window as conversational context.
//
// Returns the answer text and the documents the answer was grounded on.
func (c *Chain) Ask(ctx context.Context, input string, history []*ai.Message) (string, []*ai.Document, error) {
	resp, err := c.retriever.Retrieve(ctx, &ai.RetrieverRequest{
		Query:   ai.DocumentFromText(input, nil),
		Options: map[string]any{"k": c.topK},
	})
	if err != nil {
		return "", nil, fmt.Errorf("retrieving context: %w", err)
	}
	docs := resp.Documents

	systemPrompt := c.systemPrompt(docs)
	messages := c.buildMessages(systemPrompt, history, input)

	// Map config stays provider-agnostic; each plugin coerces it into its
	// native config type.
	opts := []ai.GenerateOption{
		ai.WithMessages(messages...),
		ai.WithConfig(map[string]any{"temperature": c.temp}),
	}
	if c.modelName != "" {
		opts = append(opts, ai.WithModelName(c.modelName))
	}
	if !c.sysCompat {
		opts = append(opts, ai.WithSystem(systemPrompt))
	}

	c.logger.Debug("invoking chain",
		"model", c.modelName,
		"retrieved", len(docs),
		"history_messages", len(messages)-1,
	)

	modelResp, err := c.generate(ctx, c.g, opts...)
	if err != nil {
		return "", nil, fmt.Errorf("generating answer: %w", err)
	}

	return modelResp.Text(), docs, nil
}

// systemPrompt renders the instruction block, appending a fixed-language
// override when one is configured.
func (c *Chain) systemPrompt(docs []*ai.Document) string {
	prompt := RenderSystemPrompt(docs)
	if c.language != "" && c.language != "auto" {
		prompt += "\n\nAlways respond in " + c.language + ", regardless of the input language."
	}
	return prompt
}

// buildMessages assembles the message sequence: (instruction block when the
// workaround is on) + trailing history window + current input.
func (c *Chain) buildMessages(systemPrompt string, history []*ai.Message, input string) []*ai.Message {
	tail := historyTail(history, c.maxHistory)

	size := len(tail) + 1
	if c.sysCompat {
		size++
	}
	messages := make([]*ai.Message, 0, size)
	if c.sysCompat {
		messages = append(messages, ai.NewUserMessage(ai.NewTextPart(systemPrompt)))
	}
	messages = append(messages, tail...)
	messages = append(messages, ai.NewUserMessage(ai.NewTextPart(input)))
	return messages
}

// historyTail returns the last n messages of history.
func historyTail(history []*ai.Message, n int) []*ai.Message {
	if len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}
