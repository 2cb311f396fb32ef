// Package retrieval provides the knowledge base searched by the support
// pipeline.
//
// Documents are grouped by ticket category and loaded from
// <category>_docs.json files in a directory. When the directory holds no
// such files, a small built-in sample knowledge base is used instead. Each
// category is indexed in its own chromem-go collection.
//
// # Searching
//
// KnowledgeBase implements workflow.Retriever:
//
//	kb, err := retrieval.New(ctx, retrieval.Options{Dir: "data"})
//	docs, err := kb.Search(ctx, workflow.SearchRequest{
//	    Query:          workflow.EnhanceQuery(ticket),
//	    Category:       workflow.CategoryBilling,
//	    TopK:           3,
//	    MinRelevance:   0.1,
//	    IncludeRelated: true,
//	})
//
// With IncludeRelated set, a primary search that returns fewer than TopK
// documents is topped up from related categories (see RelatedCategories).
//
// # Embeddings
//
// By default each category gets a TF-IDF model fitted to its own documents,
// so the knowledge base works offline and scores are comparable to a
// classic keyword search. Documents with no indexable terms are skipped.
//
// Options.Embedder swaps in a dense embedding model. FastEmbedder runs a
// local ONNX model through fastembed-go:
//
//	fe, err := retrieval.NewFastEmbedder(retrieval.FastEmbedConfig{Model: "BAAI/bge-small-en-v1.5"})
//	defer fe.Close()
//	kb, err := retrieval.New(ctx, retrieval.Options{Dir: "data", Embedder: fe})
//
// Any langchaingo embeddings.Embedder works the same way. Dense models score
// differently from TF-IDF, so the relevance floors usually need retuning.
//
// # Hot reload
//
// Watch reloads the knowledge base when its files change. Searches running
// during a reload see either the old or the new index, never a mix.
package retrieval
