// Package rag assembles the retrieval pipeline: a Genkit retriever over the
// knowledge store, a static instruction template, and a chain that composes
// retrieval, prompting, and generation into a single callable.
package rag

import (
	"context"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/docchat/docchat/internal/knowledge"
)

// RetrieverName is the registered name of the document retriever in Genkit.
const RetrieverName = "documents"

// DefaultTopK is used when a retrieve request carries no k option.
const DefaultTopK = 4

// searcher is the slice of knowledge.Store the retriever needs.
type searcher interface {
	Search(ctx context.Context, query string, opts ...knowledge.SearchOption) ([]knowledge.Result, error)
}

// DefineRetriever registers a Genkit retriever backed by the knowledge store.
// The retriever accepts an optional map option {"k": int} bounding result
// count to [1, 20].
func DefineRetriever(g *genkit.Genkit, store searcher) ai.Retriever {
	return genkit.DefineRetriever(
		g, RetrieverName, nil,
		func(ctx context.Context, req *ai.RetrieverRequest) (*ai.RetrieverResponse, error) {
			queryText := extractQueryText(req)
			topK := extractTopK(req, DefaultTopK)

			results, err := store.Search(ctx, queryText, knowledge.WithTopK(topK))
			if err != nil {
				return nil, err
			}

			return &ai.RetrieverResponse{
				Documents: toGenkitDocuments(results),
			}, nil
		},
	)
}

func extractQueryText(req *ai.RetrieverRequest) string {
	if req.Query != nil && len(req.Query.Content) > 0 {
		return req.Query.Content[0].Text
	}
	return ""
}

// extractTopK reads the k option from the request, falling back to defaultK.
// Values outside [1, 20] fall back as well.
func extractTopK(req *ai.RetrieverRequest, defaultK int) int {
	opts, ok := req.Options.(map[string]any)
	if !ok {
		return defaultK
	}
	raw, exists := opts["k"]
	if !exists {
		return defaultK
	}

	var k int
	switch v := raw.(type) {
	case int:
		k = v
	case int32:
		k = int(v)
	case int64:
		k = int(v)
	case float64:
		k = int(v)
	default:
		return defaultK
	}

	if k < 1 || k > 20 {
		return defaultK
	}
	return k
}

// toGenkitDocuments converts knowledge results to Genkit documents,
// carrying source/page metadata and the similarity score.
func toGenkitDocuments(results []knowledge.Result) []*ai.Document {
	docs := make([]*ai.Document, len(results))
	for i, result := range results {
		metadata := make(map[string]any, len(result.Document.Metadata)+1)
		for k, v := range result.Document.Metadata {
			metadata[k] = v
		}
		metadata["similarity"] = result.Similarity
		docs[i] = ai.DocumentFromText(result.Document.Content, metadata)
	}
	return docs
}
