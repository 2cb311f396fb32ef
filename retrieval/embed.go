package retrieval

import (
	"context"
	"errors"
	"math"
	"strings"
	"unicode"

	"github.com/philippgille/chromem-go"
	"github.com/tmc/langchaingo/embeddings"
)

var errEmptyEmbedding = errors.New("embedder returned an empty vector")

// stopWords are dropped before weighting.
var stopWords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "by": true, "can": true, "do": true, "for": true, "from": true,
	"has": true, "have": true, "i": true, "if": true, "in": true, "is": true,
	"it": true, "me": true, "my": true, "no": true, "not": true, "of": true,
	"on": true, "or": true, "our": true, "so": true, "that": true, "the": true,
	"this": true, "to": true, "was": true, "we": true, "will": true, "with": true,
	"you": true, "your": true,
}

// Terms splits text into lowercase, lightly stemmed word tokens, dropping
// stop words and single characters.
func Terms(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		if len([]rune(f)) < 2 || stopWords[f] {
			continue
		}
		terms = append(terms, stem(f))
	}
	return terms
}

// stem strips common English inflections so "refunds" matches "refund" and
// "charged" matches "charges".
func stem(w string) string {
	if len(w) <= 4 {
		return w
	}
	switch {
	case strings.HasSuffix(w, "ies"):
		w = w[:len(w)-3] + "y"
	case strings.HasSuffix(w, "ing"):
		w = w[:len(w)-3]
	case strings.HasSuffix(w, "ed"), strings.HasSuffix(w, "es"):
		w = w[:len(w)-2]
	case strings.HasSuffix(w, "s") && !strings.HasSuffix(w, "ss"):
		w = w[:len(w)-1]
	}
	if len(w) > 3 {
		w = strings.TrimSuffix(w, "e")
	}
	return w
}

// =============================================================================
// TF-IDF
// =============================================================================

// vectorizer is a TF-IDF model fitted to one category's documents. Terms
// outside the fitted vocabulary are ignored. The last dimension is reserved
// for queries with no known terms, so such queries score zero against every
// document. Documents never use it.
type vectorizer struct {
	vocab map[string]int
	idf   []float64
}

func fitVectorizer(texts []string) *vectorizer {
	df := make(map[string]int)
	for _, t := range texts {
		seen := make(map[string]bool)
		for _, term := range Terms(t) {
			if !seen[term] {
				seen[term] = true
				df[term]++
			}
		}
	}

	v := &vectorizer{vocab: make(map[string]int, len(df)), idf: make([]float64, 0, len(df))}
	n := float64(len(texts))
	for term, count := range df {
		v.vocab[term] = len(v.idf)
		// Smoothed inverse document frequency.
		v.idf = append(v.idf, math.Log((1+n)/(1+float64(count)))+1)
	}
	return v
}

// weights returns the raw TF-IDF weights of text and whether any term is in
// the vocabulary.
func (v *vectorizer) weights(text string) ([]float64, bool) {
	w := make([]float64, len(v.idf)+1)
	found := false
	for _, term := range Terms(text) {
		if i, ok := v.vocab[term]; ok {
			w[i] += v.idf[i]
			found = true
		}
	}
	return w, found
}

// vector embeds a query.
func (v *vectorizer) vector(text string) []float32 {
	w, found := v.weights(text)
	if !found {
		w[len(v.idf)] = 1
	}
	return unit(w)
}

// documentVector embeds a document, or returns nil when it has no terms to
// index (only stop words, digits or single characters).
func (v *vectorizer) documentVector(text string) []float32 {
	w, found := v.weights(text)
	if !found {
		return nil
	}
	return unit(w)
}

func unit(weights []float64) []float32 {
	var norm float64
	for _, w := range weights {
		norm += w * w
	}
	norm = math.Sqrt(norm)

	out := make([]float32, len(weights))
	for i, w := range weights {
		out[i] = float32(w / norm)
	}
	return out
}

func (v *vectorizer) embeddingFunc() chromem.EmbeddingFunc {
	return func(_ context.Context, text string) ([]float32, error) {
		return v.vector(text), nil
	}
}

// =============================================================================
// External embedders
// =============================================================================

// FromLangChain adapts a langchaingo embedder. Results are normalised to unit
// length as chromem expects.
func FromLangChain(e embeddings.Embedder) chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		vec, err := e.EmbedQuery(ctx, text)
		if err != nil {
			return nil, err
		}
		return normalize(vec)
	}
}

func normalize(vec []float32) ([]float32, error) {
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return nil, errEmptyEmbedding
	}
	norm = math.Sqrt(norm)
	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = float32(float64(v) / norm)
	}
	return out, nil
}
