package retrieval

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/randalmurphal/supportflow/workflow"
)

// relatedCategories lists where to look when a category's own documents are
// not enough.
var relatedCategories = map[workflow.Category][]workflow.Category{
	workflow.CategoryBilling:   {workflow.CategoryGeneral},
	workflow.CategoryTechnical: {workflow.CategoryGeneral, workflow.CategorySecurity},
	workflow.CategorySecurity:  {workflow.CategoryTechnical, workflow.CategoryGeneral},
	workflow.CategoryGeneral:   {workflow.CategoryBilling, workflow.CategoryTechnical, workflow.CategorySecurity},
}

// RelatedCategories returns the categories searched after c, in order.
func RelatedCategories(c workflow.Category) []workflow.Category {
	if related, ok := relatedCategories[c]; ok {
		return slices.Clone(related)
	}
	return []workflow.Category{workflow.CategoryGeneral}
}

// Search implements workflow.Retriever. Unknown categories search General.
// Results are ordered by descending relevance and hold at most req.TopK
// documents, each scoring at least req.MinRelevance.
func (kb *KnowledgeBase) Search(ctx context.Context, req workflow.SearchRequest) ([]workflow.ContextDocument, error) {
	if req.TopK <= 0 {
		return []workflow.ContextDocument{}, nil
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return []workflow.ContextDocument{}, nil
	}

	primary := req.Category
	if !primary.Valid() {
		kb.logger.Debug("unknown category, searching General", "category", req.Category)
		primary = workflow.CategoryGeneral
	}

	idx := kb.current()
	results, err := kb.searchCategory(ctx, idx, query, primary, req.TopK, req.MinRelevance)
	if err != nil {
		return nil, err
	}

	if req.IncludeRelated && len(results) < req.TopK {
		for _, related := range RelatedCategories(primary) {
			more, err := kb.searchCategory(ctx, idx, query, related, req.TopK-len(results), req.MinRelevance)
			if err != nil {
				return nil, err
			}
			results = append(results, more...)
			if len(results) >= req.TopK {
				break
			}
		}
	}

	if results == nil {
		return []workflow.ContextDocument{}, nil
	}
	sortByRelevance(results)
	if len(results) > req.TopK {
		results = results[:req.TopK]
	}
	return results, nil
}

func (kb *KnowledgeBase) searchCategory(ctx context.Context, idx *index, query string, c workflow.Category, k int, minRelevance float64) ([]workflow.ContextDocument, error) {
	embed, ok := idx.embeds[c]
	if !ok {
		return nil, nil
	}
	coll := idx.db.GetCollection(collectionName(c), embed)
	if coll == nil {
		return nil, nil
	}
	// chromem rejects k larger than the collection.
	n := coll.Count()
	if n == 0 {
		return nil, nil
	}
	if k > n {
		k = n
	}

	hits, err := coll.Query(ctx, query, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", c, err)
	}

	out := make([]workflow.ContextDocument, 0, len(hits))
	for _, h := range hits {
		score := float64(h.Similarity)
		if score < minRelevance {
			continue
		}
		out = append(out, workflow.ContextDocument{
			Content:        h.Content,
			Source:         h.Metadata["source"],
			RelevanceScore: score,
			Category:       string(c),
		})
	}
	sortByRelevance(out)
	return out, nil
}

func sortByRelevance(docs []workflow.ContextDocument) {
	slices.SortStableFunc(docs, func(a, b workflow.ContextDocument) int {
		switch {
		case a.RelevanceScore > b.RelevanceScore:
			return -1
		case a.RelevanceScore < b.RelevanceScore:
			return 1
		}
		return 0
	})
}
