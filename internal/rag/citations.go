package rag

import "github.com/firebase/genkit/go/ai"

// Citation is one source file with the pages that supported an answer,
// pages in retrieval order.
type Citation struct {
	Source string
	Pages  []int
}

// GroupCitations groups retrieved documents by source, preserving first-seen
// source order and retrieval order of pages within a source.
//
// Documents without source metadata group under "unknown"; documents without
// a usable page contribute no page number.
func GroupCitations(docs []*ai.Document) []Citation {
	var citations []Citation
	index := make(map[string]int)

	for _, doc := range docs {
		source, page := DocumentOrigin(doc)

		i, seen := index[source]
		if !seen {
			i = len(citations)
			index[source] = i
			citations = append(citations, Citation{Source: source})
		}
		if page > 0 {
			citations[i].Pages = append(citations[i].Pages, page)
		}
	}

	return citations
}
