package rag

import (
	"strings"
	"testing"

	"github.com/firebase/genkit/go/ai"

	"github.com/docchat/docchat/internal/knowledge"
)

func doc(text, source string, page string) *ai.Document {
	meta := map[string]any{}
	if source != "" {
		meta[knowledge.MetaSource] = source
	}
	if page != "" {
		meta[knowledge.MetaPage] = page
	}
	return ai.DocumentFromText(text, meta)
}

func TestSystemPromptTemplate_ContainsPlaceholders(t *testing.T) {
	for _, placeholder := range []string{PlaceholderContext, PlaceholderHistory, PlaceholderInput} {
		if !strings.Contains(SystemPromptTemplate, placeholder) {
			t.Errorf("template missing placeholder %q", placeholder)
		}
	}
}

func TestRenderSystemPrompt_SubstitutesContext(t *testing.T) {
	docs := []*ai.Document{
		doc("The capital is Cairo.", "geo.md", "3"),
		doc("النيل أطول نهر في العالم.", "geo.md", "7"),
	}

	prompt := RenderSystemPrompt(docs)

	if strings.Contains(prompt, PlaceholderContext) {
		t.Error("context placeholder not substituted")
	}
	if !strings.Contains(prompt, "The capital is Cairo.") {
		t.Error("document content missing from prompt")
	}
	if !strings.Contains(prompt, "[geo.md, page 3]") {
		t.Error("source/page header missing from prompt")
	}
	// History and input placeholders stay: they mark message positions.
	if !strings.Contains(prompt, PlaceholderHistory) || !strings.Contains(prompt, PlaceholderInput) {
		t.Error("history/input markers must survive rendering")
	}
}

func TestRenderSystemPrompt_NoDocuments(t *testing.T) {
	prompt := RenderSystemPrompt(nil)
	if !strings.Contains(prompt, "(no relevant documents found)") {
		t.Error("expected empty-context marker")
	}
}

func TestDocumentOrigin(t *testing.T) {
	tests := []struct {
		name       string
		doc        *ai.Document
		wantSource string
		wantPage   int
	}{
		{"string page", doc("x", "a.md", "12"), "a.md", 12},
		{"missing page", doc("x", "a.md", ""), "a.md", 0},
		{"unparsable page", doc("x", "a.md", "twelve"), "a.md", 0},
		{"missing source", doc("x", "", "3"), "unknown", 3},
		{"nil metadata", ai.DocumentFromText("x", nil), "unknown", 0},
		{"nil document", nil, "unknown", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source, page := DocumentOrigin(tt.doc)
			if source != tt.wantSource || page != tt.wantPage {
				t.Errorf("DocumentOrigin() = (%q, %d), want (%q, %d)",
					source, page, tt.wantSource, tt.wantPage)
			}
		})
	}
}

func TestDocumentOrigin_NumericPage(t *testing.T) {
	d := ai.DocumentFromText("x", map[string]any{
		knowledge.MetaSource: "a.md",
		knowledge.MetaPage:   float64(5), // JSON round-trips numbers as float64
	})
	source, page := DocumentOrigin(d)
	if source != "a.md" || page != 5 {
		t.Errorf("DocumentOrigin() = (%q, %d), want (a.md, 5)", source, page)
	}
}
