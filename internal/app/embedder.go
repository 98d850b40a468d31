package app

import (
	"context"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"
	"google.golang.org/genai"
)

// dimensionEmbedder wraps a Gemini embedder so every request without explicit
// options truncates output to the schema's vector dimension.
// gemini-embedding-001 outputs 3072 dimensions by default but supports
// truncation via OutputDimensionality (Matryoshka Representation Learning);
// the pgvector schema stores vector(768).
type dimensionEmbedder struct {
	base ai.Embedder
	dim  int32
}

func newDimensionEmbedder(base ai.Embedder, dim int32) ai.Embedder {
	return &dimensionEmbedder{base: base, dim: dim}
}

func (e *dimensionEmbedder) Name() string { return e.base.Name() }

func (e *dimensionEmbedder) Register(r api.Registry) { e.base.Register(r) }

func (e *dimensionEmbedder) Embed(ctx context.Context, req *ai.EmbedRequest) (*ai.EmbedResponse, error) {
	if req.Options == nil {
		dim := e.dim
		req = &ai.EmbedRequest{
			Input:   req.Input,
			Options: &genai.EmbedContentConfig{OutputDimensionality: &dim},
		}
	}
	return e.base.Embed(ctx, req)
}
