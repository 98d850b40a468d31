package rag

import (
	"fmt"
	"strings"

	"github.com/firebase/genkit/go/ai"

	"github.com/docchat/docchat/internal/knowledge"
)

// Template placeholders. The instruction template references retrieved
// context inline; chat history and the current input travel as messages,
// and their placeholders mark where the model sees them in the exchange.
const (
	PlaceholderContext = "{{context}}"
	PlaceholderHistory = "{{chat_history}}"
	PlaceholderInput   = "{{input}}"
)

// SystemPromptTemplate is the static instruction block for the document
// chatbot. {{context}} is replaced with the retrieved documents before the
// prompt is sent; {{chat_history}} and {{input}} are carried as messages.
const SystemPromptTemplate = `You are a multilingual document assistant powered by retrieval-augmented generation. Answer the user's question using ONLY the context provided below. Follow these rules:

1. Language: respond in the same language as the user's input. If the input is in Arabic, respond in Arabic. If the input is in English, respond in English.
2. Grounding: use ONLY the information from the provided context. Do not rely on your own knowledge or invent answers.
3. Insufficient context: if the context does not contain enough information to answer, politely ask the user for more details or clarification.
4. Ambiguity: if the question is ambiguous or unclear, ask the user to rephrase or provide more context.

Here is the context retrieved from the document store:
{{context}}

The prior conversation follows as {{chat_history}}, ending with the current question {{input}}.`

// RenderSystemPrompt substitutes the retrieved documents into the
// instruction template. Each document is prefixed with its source and page
// so the model can cite them.
func RenderSystemPrompt(docs []*ai.Document) string {
	var b strings.Builder
	for i, doc := range docs {
		if i > 0 {
			b.WriteString("\n---\n")
		}
		source, page := DocumentOrigin(doc)
		if source != "" {
			if page > 0 {
				fmt.Fprintf(&b, "[%s, page %d]\n", source, page)
			} else {
				fmt.Fprintf(&b, "[%s]\n", source)
			}
		}
		b.WriteString(documentText(doc))
	}
	if b.Len() == 0 {
		b.WriteString("(no relevant documents found)")
	}
	return strings.Replace(SystemPromptTemplate, PlaceholderContext, b.String(), 1)
}

// DocumentOrigin extracts the source and page metadata from a retrieved
// document. A missing source yields "unknown"; a missing or unparsable page
// yields 0.
func DocumentOrigin(doc *ai.Document) (source string, page int) {
	source = "unknown"
	if doc == nil || doc.Metadata == nil {
		return source, 0
	}
	if s, ok := doc.Metadata[knowledge.MetaSource].(string); ok && s != "" {
		source = s
	}
	switch p := doc.Metadata[knowledge.MetaPage].(type) {
	case int:
		page = p
	case float64:
		page = int(p)
	case string:
		fmt.Sscanf(p, "%d", &page)
	}
	return source, page
}

func documentText(doc *ai.Document) string {
	if doc == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range doc.Content {
		if part != nil && part.Text != "" {
			b.WriteString(part.Text)
		}
	}
	return b.String()
}
