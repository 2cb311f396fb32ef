package retrieval

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	fastembed "github.com/anush008/fastembed-go"
)

// ErrUnsupportedModel is returned for a model fastembed cannot load.
var ErrUnsupportedModel = errors.New("unsupported embedding model")

// DefaultFastEmbedModel is used when FastEmbedConfig.Model is empty.
const DefaultFastEmbedModel = "BAAI/bge-small-en-v1.5"

// FastEmbedConfig configures a FastEmbedder.
type FastEmbedConfig struct {
	// Model name (default: BAAI/bge-small-en-v1.5).
	Model string

	// CacheDir holds downloaded model files (default: ./local_cache).
	CacheDir string

	// MaxLength is the maximum input sequence length (default: 512).
	MaxLength int
}

var fastEmbedModels = map[string]fastembed.EmbeddingModel{
	"BAAI/bge-small-en-v1.5":                 fastembed.BGESmallENV15,
	"BAAI/bge-small-en":                      fastembed.BGESmallEN,
	"BAAI/bge-base-en-v1.5":                  fastembed.BGEBaseENV15,
	"BAAI/bge-base-en":                       fastembed.BGEBaseEN,
	"sentence-transformers/all-MiniLM-L6-v2": fastembed.AllMiniLML6V2,
	"fast-bge-small-en-v1.5":                 fastembed.BGESmallENV15,
	"fast-bge-small-en":                      fastembed.BGESmallEN,
	"fast-bge-base-en-v1.5":                  fastembed.BGEBaseENV15,
	"fast-bge-base-en":                       fastembed.BGEBaseEN,
	"fast-all-MiniLM-L6-v2":                  fastembed.AllMiniLML6V2,
}

// FastEmbedModel resolves a model name. It reports ErrUnsupportedModel
// without loading anything.
func FastEmbedModel(name string) (fastembed.EmbeddingModel, error) {
	if name == "" {
		name = DefaultFastEmbedModel
	}
	m, ok := fastEmbedModels[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedModel, name)
	}
	return m, nil
}

// FastEmbedder embeds text with a local ONNX model. It implements the
// langchaingo embeddings.Embedder interface and is safe for concurrent use.
type FastEmbedder struct {
	mu    sync.RWMutex
	model *fastembed.FlagEmbedding
}

// NewFastEmbedder loads the model, downloading it into the cache directory
// on first use. Close releases it.
func NewFastEmbedder(cfg FastEmbedConfig) (*FastEmbedder, error) {
	model, err := FastEmbedModel(cfg.Model)
	if err != nil {
		return nil, err
	}
	if cfg.CacheDir == "" {
		cfg.CacheDir = filepath.Join(".", "local_cache")
	}
	if cfg.MaxLength <= 0 {
		cfg.MaxLength = 512
	}

	showProgress := false
	flag, err := fastembed.NewFlagEmbedding(&fastembed.InitOptions{
		Model:                model,
		CacheDir:             cfg.CacheDir,
		MaxLength:            cfg.MaxLength,
		ShowDownloadProgress: &showProgress,
	})
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", model, err)
	}
	return &FastEmbedder{model: flag}, nil
}

// EmbedDocuments embeds passages in batches of 256.
func (f *FastEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(texts) == 0 {
		return nil, nil
	}

	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.model == nil {
		return nil, errEmbedderClosed
	}
	vecs, err := f.model.PassageEmbed(texts, 256)
	if err != nil {
		return nil, fmt.Errorf("embed documents: %w", err)
	}
	return vecs, nil
}

// EmbedQuery embeds a search query.
func (f *FastEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.model == nil {
		return nil, errEmbedderClosed
	}
	vec, err := f.model.QueryEmbed(text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return vec, nil
}

var errEmbedderClosed = errors.New("embedder closed")

// Close releases the model. It is safe to call more than once.
func (f *FastEmbedder) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.model == nil {
		return nil
	}
	err := f.model.Destroy()
	f.model = nil
	return err
}
