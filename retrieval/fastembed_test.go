package retrieval

import (
	"errors"
	"testing"

	fastembed "github.com/anush008/fastembed-go"
)

func TestFastEmbedModel(t *testing.T) {
	tests := []struct {
		name    string
		want    fastembed.EmbeddingModel
		wantErr bool
	}{
		{"", fastembed.BGESmallENV15, false},
		{"BAAI/bge-base-en-v1.5", fastembed.BGEBaseENV15, false},
		{"fast-all-MiniLM-L6-v2", fastembed.AllMiniLML6V2, false},
		{"text-embedding-3-small", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FastEmbedModel(tt.name)
			if tt.wantErr {
				if !errors.Is(err, ErrUnsupportedModel) {
					t.Errorf("error = %v, want ErrUnsupportedModel", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("FastEmbedModel(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestNewFastEmbedder_UnsupportedModel(t *testing.T) {
	_, err := NewFastEmbedder(FastEmbedConfig{Model: "no-such-model", CacheDir: t.TempDir()})
	if !errors.Is(err, ErrUnsupportedModel) {
		t.Errorf("error = %v, want ErrUnsupportedModel", err)
	}
}

func TestFastEmbedder_Closed(t *testing.T) {
	f := &FastEmbedder{}
	if err := f.Close(); err != nil {
		t.Errorf("Close() = %v", err)
	}
	if _, err := f.EmbedQuery(t.Context(), "refund"); !errors.Is(err, errEmbedderClosed) {
		t.Errorf("EmbedQuery after Close = %v", err)
	}
}
