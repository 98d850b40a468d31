package knowledge

import "time"

// VectorDimension is the embedding width stored in the documents table.
// The schema declares vector(768); embedders must produce or truncate to
// this dimension.
const VectorDimension int32 = 768

// Metadata keys every indexed document carries.
const (
	// MetaSource is the source identifier (base filename) of a document.
	MetaSource = "source"

	// MetaPage is the 1-based page number within the source, as a decimal string.
	MetaPage = "page"
)

// Document is a chunk of indexed text with its metadata.
type Document struct {
	ID        string            // Unique identifier
	Content   string            // Chunk text
	Metadata  map[string]string // At least source and page
	CreatedAt time.Time         // Indexing timestamp
}

// Result is a single search hit with its similarity score.
type Result struct {
	Document   Document
	Similarity float64 // Cosine similarity (0-1)
}

// SearchOption configures search behavior using the functional options pattern.
type SearchOption func(*searchConfig)

type searchConfig struct {
	topK    int
	filter  map[string]string
	timeout time.Duration
}

// WithTopK sets the maximum number of results to return. Default is 5.
func WithTopK(k int) SearchOption {
	return func(c *searchConfig) {
		c.topK = k
	}
}

// WithFilter adds a metadata filter (AND logic across calls).
func WithFilter(key, value string) SearchOption {
	return func(c *searchConfig) {
		if c.filter == nil {
			c.filter = make(map[string]string)
		}
		c.filter[key] = value
	}
}

// WithTimeout overrides the per-search timeout. Default is 10 seconds.
func WithTimeout(d time.Duration) SearchOption {
	return func(c *searchConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func buildSearchConfig(opts []SearchOption) *searchConfig {
	cfg := &searchConfig{
		topK:    5,
		timeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
