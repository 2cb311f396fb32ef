package workflow

import (
	"context"
	"fmt"
	"slices"
)

// Retrieve fetches knowledge-base context for the ticket.
//
// Prerequisites: state.Category must be set
// Updates: state.RetrievedContext (replaced), state.Status
//
// Retriever failures leave the run with no context rather than failing it.
func (n *Nodes) Retrieve(ctx context.Context, state State) (State, error) {
	docs := []ContextDocument{}
	action := ""

	if n.deps.Retriever == nil {
		n.fallback(state, StageRetrieve, fallbackUnavailable, nil)
		action = "No retriever configured, proceeding without context"
	} else {
		found, err := n.search(ctx, EnhanceQuery(state.Ticket), state.Category, n.cfg.Retrieval)
		if err != nil {
			n.fallback(state, StageRetrieve, fallbackFailed, err)
			action = "Retrieval failed, proceeding without context"
		} else {
			docs = found
			action = fmt.Sprintf("Retrieved %d documents", len(docs))
		}
	}

	state.RetrievedContext = docs
	state.Status = StatusContextRetrieved
	state.LogTransition(StageRetrieve, action)

	n.logger.Debug("context retrieved", "runId", state.RunID, "documents", len(docs))
	return state, nil
}

// Refine repeats retrieval after a rejection with a wider net, folding the
// reviewer's feedback into the query. It does not touch state.Retries; the
// router increments it on the way in.
//
// Prerequisites: a rejected review in state.ReviewFeedback
// Updates: state.RetrievedContext (replaced on success), state.Status
func (n *Nodes) Refine(ctx context.Context, state State) (State, error) {
	action := ""

	if n.deps.Retriever == nil {
		n.fallback(state, StageRefine, fallbackUnavailable, nil)
		action = "No retriever configured, keeping existing context"
	} else {
		query := RefineQuery(state.Ticket, state.LatestFeedback)
		found, err := n.search(ctx, query, state.Category, n.cfg.Refinement)
		if err != nil {
			n.fallback(state, StageRefine, fallbackFailed, err)
			action = "Refinement failed, keeping existing context"
		} else {
			state.RetrievedContext = found
			action = fmt.Sprintf("Refined to %d documents", len(found))
		}
	}

	state.Status = StatusContextRefined
	state.LogTransition(StageRefine, action)
	return state, nil
}

func (n *Nodes) search(ctx context.Context, query string, category Category, cfg SearchConfig) ([]ContextDocument, error) {
	callCtx, cancel := n.callContext(ctx)
	defer cancel()

	docs, err := n.deps.Retriever.Search(callCtx, SearchRequest{
		Query:          query,
		Category:       category,
		TopK:           cfg.TopK,
		MinRelevance:   cfg.MinRelevance,
		IncludeRelated: true,
	})
	if err != nil {
		return nil, err
	}
	return normalizeContext(docs, cfg), nil
}

// normalizeContext drops documents below the relevance floor, orders the
// rest by descending relevance and keeps the top cfg.TopK.
func normalizeContext(docs []ContextDocument, cfg SearchConfig) []ContextDocument {
	out := make([]ContextDocument, 0, len(docs))
	for _, d := range docs {
		if d.RelevanceScore >= cfg.MinRelevance {
			out = append(out, d)
		}
	}
	slices.SortStableFunc(out, func(a, b ContextDocument) int {
		switch {
		case a.RelevanceScore > b.RelevanceScore:
			return -1
		case a.RelevanceScore < b.RelevanceScore:
			return 1
		}
		return 0
	})
	if cfg.TopK > 0 && len(out) > cfg.TopK {
		out = out[:cfg.TopK]
	}
	return out
}
