package retrieval

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/philippgille/chromem-go"
	"github.com/tmc/langchaingo/embeddings"

	"github.com/randalmurphal/supportflow/workflow"
)

//go:embed samples/*_docs.json
var samples embed.FS

// Document is one knowledge base entry as stored on disk.
type Document struct {
	Content  string   `json:"content"`
	Source   string   `json:"source"`
	Category string   `json:"category,omitempty"`
	Tags     []string `json:"tags,omitempty"`
	Priority string   `json:"priority,omitempty"`
}

// FileName returns the knowledge base file name for a category.
func FileName(c workflow.Category) string {
	return strings.ToLower(string(c)) + "_docs.json"
}

// Options configures a KnowledgeBase.
type Options struct {
	// Dir holds the <category>_docs.json files. Empty uses the samples.
	Dir string

	// Embedder computes document vectors in batches and query vectors one at
	// a time, e.g. FastEmbedder or a langchaingo OpenAI embedder. It takes
	// precedence over Embedding.
	Embedder embeddings.Embedder

	// Embedding computes document and query vectors with one function. If
	// both are nil a TF-IDF model is fitted to each category's documents on
	// every load.
	Embedding chromem.EmbeddingFunc

	// Logger (default: slog.Default()).
	Logger *slog.Logger

	// Debounce delays a reload after a file change (default: 500ms).
	Debounce time.Duration
}

// KnowledgeBase is a categorised document index. It is safe for concurrent
// use.
type KnowledgeBase struct {
	dir      string
	embedder embeddings.Embedder
	embed    chromem.EmbeddingFunc
	logger   *slog.Logger
	debounce time.Duration

	mu       sync.RWMutex
	index    *index
	loadedAt time.Time
}

// index is one immutable generation of the knowledge base.
type index struct {
	db          *chromem.DB
	embeds      map[workflow.Category]chromem.EmbeddingFunc
	docs        map[workflow.Category][]Document
	fromSamples bool
}

// New loads and indexes the knowledge base.
func New(ctx context.Context, opts Options) (*KnowledgeBase, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Debounce <= 0 {
		opts.Debounce = 500 * time.Millisecond
	}

	kb := &KnowledgeBase{
		dir:      opts.Dir,
		embedder: opts.Embedder,
		embed:    opts.Embedding,
		logger:   opts.Logger,
		debounce: opts.Debounce,
	}
	if err := kb.Reload(ctx); err != nil {
		return nil, err
	}
	return kb, nil
}

// Reload re-reads the knowledge base files and swaps in a fresh index. On
// error the previous index stays in place.
func (kb *KnowledgeBase) Reload(ctx context.Context) error {
	docs, fromSamples, err := kb.load()
	if err != nil {
		return err
	}

	idx, err := kb.build(ctx, docs)
	if err != nil {
		return err
	}
	idx.fromSamples = fromSamples

	kb.mu.Lock()
	kb.index = idx
	kb.loadedAt = time.Now()
	kb.mu.Unlock()

	attrs := []any{"samples", fromSamples}
	for _, c := range workflow.Categories {
		attrs = append(attrs, strings.ToLower(string(c)), len(docs[c]))
	}
	kb.logger.Info("knowledge base loaded", attrs...)
	return nil
}

// load reads the directory, falling back to the embedded samples when it
// holds no knowledge base files.
func (kb *KnowledgeBase) load() (map[workflow.Category][]Document, bool, error) {
	if kb.dir != "" {
		docs, files, err := loadFS(os.DirFS(kb.dir))
		if err != nil {
			return nil, false, err
		}
		if files > 0 {
			return docs, false, nil
		}
		kb.logger.Warn("no knowledge base files found, using samples", "dir", kb.dir)
	}

	sampleFS, err := fs.Sub(samples, "samples")
	if err != nil {
		return nil, false, err
	}
	docs, _, err := loadFS(sampleFS)
	if err != nil {
		return nil, false, fmt.Errorf("load samples: %w", err)
	}
	return docs, true, nil
}

// loadFS reads every <category>_docs.json present in fsys and reports how
// many files it found. Entries without content are skipped.
func loadFS(fsys fs.FS) (map[workflow.Category][]Document, int, error) {
	docs := make(map[workflow.Category][]Document, len(workflow.Categories))
	files := 0
	for _, c := range workflow.Categories {
		name := FileName(c)
		data, err := fs.ReadFile(fsys, name)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, 0, fmt.Errorf("read %s: %w", name, err)
		}
		files++

		var raw []Document
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, 0, fmt.Errorf("parse %s: %w", name, err)
		}
		for _, d := range raw {
			if strings.TrimSpace(d.Content) == "" {
				continue
			}
			if d.Source == "" {
				d.Source = strings.ToLower(string(c)) + "_doc"
			}
			if d.Priority == "" {
				d.Priority = "normal"
			}
			d.Category = string(c)
			docs[c] = append(docs[c], d)
		}
	}
	return docs, files, nil
}

func (kb *KnowledgeBase) build(ctx context.Context, docs map[workflow.Category][]Document) (*index, error) {
	idx := &index{
		db:     chromem.NewDB(),
		embeds: make(map[workflow.Category]chromem.EmbeddingFunc, len(workflow.Categories)),
		docs:   docs,
	}
	for _, c := range workflow.Categories {
		list := docs[c]
		if len(list) == 0 {
			continue
		}

		embed, vectors, err := kb.embedCategory(ctx, list)
		if err != nil {
			return nil, fmt.Errorf("embed %s documents: %w", c, err)
		}
		idx.embeds[c] = embed

		coll, err := idx.db.GetOrCreateCollection(collectionName(c), nil, embed)
		if err != nil {
			return nil, fmt.Errorf("create collection %s: %w", c, err)
		}

		entries := make([]chromem.Document, 0, len(list))
		for i, d := range list {
			entry := chromem.Document{
				ID:      fmt.Sprintf("%s-%d", collectionName(c), i),
				Content: d.Content,
				Metadata: map[string]string{
					"source":   d.Source,
					"category": d.Category,
					"priority": d.Priority,
				},
			}
			if vectors != nil {
				if vectors[i] == nil {
					kb.logger.Debug("document has no searchable terms", "category", c, "source", d.Source)
					continue
				}
				entry.Embedding = vectors[i]
			}
			entries = append(entries, entry)
		}
		if len(entries) == 0 {
			continue
		}
		if err := coll.AddDocuments(ctx, entries, 1); err != nil {
			return nil, fmt.Errorf("index %s documents: %w", c, err)
		}
	}
	return idx, nil
}

// embedCategory returns the query function for one category and, when the
// vectors are computed up front, one vector per document. A nil vector marks
// a document that cannot be indexed.
func (kb *KnowledgeBase) embedCategory(ctx context.Context, list []Document) (chromem.EmbeddingFunc, [][]float32, error) {
	texts := make([]string, len(list))
	for i, d := range list {
		texts[i] = d.Content
	}

	switch {
	case kb.embedder != nil:
		raw, err := kb.embedder.EmbedDocuments(ctx, texts)
		if err != nil {
			return nil, nil, err
		}
		if len(raw) != len(texts) {
			return nil, nil, fmt.Errorf("embedder returned %d vectors for %d documents", len(raw), len(texts))
		}
		vectors := make([][]float32, len(raw))
		for i, vec := range raw {
			if vectors[i], err = normalize(vec); err != nil {
				return nil, nil, err
			}
		}
		return FromLangChain(kb.embedder), vectors, nil

	case kb.embed != nil:
		return kb.embed, nil, nil

	default:
		v := fitVectorizer(texts)
		vectors := make([][]float32, len(texts))
		for i, t := range texts {
			vectors[i] = v.documentVector(t)
		}
		return v.embeddingFunc(), vectors, nil
	}
}

func collectionName(c workflow.Category) string {
	return strings.ToLower(string(c))
}

func (kb *KnowledgeBase) current() *index {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	return kb.index
}

// Documents returns the loaded documents for a category.
func (kb *KnowledgeBase) Documents(c workflow.Category) []Document {
	return append([]Document(nil), kb.current().docs[c]...)
}

// =============================================================================
// Statistics
// =============================================================================

// CategoryStats describes one category's documents.
type CategoryStats struct {
	DocumentCount         int `json:"document_count"`
	TotalContentLength    int `json:"total_content_length"`
	AverageDocumentLength int `json:"average_document_length"`
}

// Stats describes the loaded knowledge base.
type Stats struct {
	TotalDocuments     int                                 `json:"total_documents"`
	TotalContentLength int                                 `json:"total_content_length"`
	Categories         map[workflow.Category]CategoryStats `json:"categories"`
	FromSamples        bool                                `json:"from_samples"`
	LoadedAt           time.Time                           `json:"loaded_at"`
}

// Stats returns document counts and content sizes per category.
func (kb *KnowledgeBase) Stats() Stats {
	kb.mu.RLock()
	idx, loadedAt := kb.index, kb.loadedAt
	kb.mu.RUnlock()

	st := Stats{
		Categories:  make(map[workflow.Category]CategoryStats, len(workflow.Categories)),
		FromSamples: idx.fromSamples,
		LoadedAt:    loadedAt,
	}
	for _, c := range workflow.Categories {
		var cs CategoryStats
		for _, d := range idx.docs[c] {
			cs.DocumentCount++
			cs.TotalContentLength += len(d.Content)
		}
		if cs.DocumentCount > 0 {
			cs.AverageDocumentLength = cs.TotalContentLength / cs.DocumentCount
		}
		st.Categories[c] = cs
		st.TotalDocuments += cs.DocumentCount
		st.TotalContentLength += cs.TotalContentLength
	}
	return st
}
