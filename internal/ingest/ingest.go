// Package ingest loads text documents, splits them into pages, and indexes
// them into the vector store with source and page metadata so answers can
// cite where they came from.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/docchat/docchat/internal/knowledge"
)

// Supported file extensions.
var supportedExts = map[string]bool{
	".txt": true,
	".md":  true,
}

// pageSize is the fallback page length in runes when a file carries no
// form-feed page breaks.
const pageSize = 2000

// ErrUnsupportedFile indicates a file extension the loader cannot handle.
var ErrUnsupportedFile = errors.New("unsupported file type")

// Page is one page of a source document, ready for indexing.
type Page struct {
	Source string // base file name, e.g. "handbook.md"
	Number int    // 1-based page number
	Text   string
}

// adder is the slice of the vector store the indexer needs.
type adder interface {
	Add(ctx context.Context, doc knowledge.Document) error
}

// Indexer loads files and writes their pages into the vector store.
type Indexer struct {
	store  adder
	logger *slog.Logger
}

// NewIndexer creates an Indexer over the given store.
func NewIndexer(store adder, logger *slog.Logger) (*Indexer, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{store: store, logger: logger}, nil
}

// IndexFile loads one file, splits it into pages, and upserts each page.
// Page IDs are deterministic (source + page number), so re-indexing a
// changed file updates its pages in place.
//
// Returns the number of pages indexed.
func (ix *Indexer) IndexFile(ctx context.Context, path string) (int, error) {
	pages, err := LoadFile(path)
	if err != nil {
		return 0, err
	}

	for _, page := range pages {
		doc := knowledge.Document{
			ID:      PageID(page.Source, page.Number),
			Content: page.Text,
			Metadata: map[string]string{
				knowledge.MetaSource: page.Source,
				knowledge.MetaPage:   strconv.Itoa(page.Number),
			},
		}
		if err := ix.store.Add(ctx, doc); err != nil {
			return 0, fmt.Errorf("indexing %s page %d: %w", page.Source, page.Number, err)
		}
	}

	ix.logger.Info("file indexed", "path", path, "pages", len(pages))
	return len(pages), nil
}

// IndexDir walks a directory tree and indexes every supported file.
// Unsupported files are skipped, not errors.
//
// Returns (files indexed, pages indexed).
func (ix *Indexer) IndexDir(ctx context.Context, root string) (int, int, error) {
	var files, pages int

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !supportedExts[strings.ToLower(filepath.Ext(path))] {
			return nil
		}

		n, err := ix.IndexFile(ctx, path)
		if err != nil {
			return err
		}
		files++
		pages += n
		return nil
	})
	if err != nil {
		return files, pages, fmt.Errorf("indexing directory %s: %w", root, err)
	}

	return files, pages, nil
}

// PageID builds the deterministic document ID for one page of a source.
func PageID(source string, page int) string {
	return fmt.Sprintf("%s:%d", source, page)
}

// LoadFile reads a .txt or .md file and splits it into pages.
//
// Files containing form-feed characters split on them, matching documents
// converted from paginated formats. Everything else falls back to
// fixed-size pages split on paragraph boundaries where possible.
func LoadFile(path string) ([]Page, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if !supportedExts[ext] {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	source := filepath.Base(path)
	return SplitPages(source, string(data)), nil
}

// SplitPages splits content into pages for one source document.
// Empty pages are dropped; page numbers stay 1-based and sequential.
func SplitPages(source, content string) []Page {
	var rawPages []string
	if strings.ContainsRune(content, '\f') {
		rawPages = strings.Split(content, "\f")
	} else {
		rawPages = splitFixed(content, pageSize)
	}

	pages := make([]Page, 0, len(rawPages))
	for _, raw := range rawPages {
		text := strings.TrimSpace(raw)
		if text == "" {
			continue
		}
		pages = append(pages, Page{
			Source: source,
			Number: len(pages) + 1,
			Text:   text,
		})
	}
	return pages
}

// splitFixed chunks content into pieces of at most size runes, preferring
// to break at a paragraph boundary within the trailing quarter of a chunk.
func splitFixed(content string, size int) []string {
	runes := []rune(content)
	if len(runes) <= size {
		return []string{content}
	}

	var chunks []string
	for len(runes) > 0 {
		if len(runes) <= size {
			chunks = append(chunks, string(runes))
			break
		}

		end := size
		if i := lastParagraphBreak(runes[:size], size/4); i > 0 {
			end = i
		}
		chunks = append(chunks, string(runes[:end]))
		runes = runes[end:]
	}
	return chunks
}

// lastParagraphBreak returns the index just past the last blank line within
// the final window runes, or 0 if none exists there.
func lastParagraphBreak(runes []rune, window int) int {
	limit := len(runes) - window
	for i := len(runes) - 2; i >= limit && i >= 0; i-- {
		if runes[i] == '\n' && runes[i+1] == '\n' {
			return i + 2
		}
	}
	return 0
}
