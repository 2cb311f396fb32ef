package workflow

// Stage identifies a node in the support pipeline graph.
type Stage string

// Pipeline stages. StageEnd is the implicit sink both terminal stages lead to.
const (
	StageClassify Stage = "classify_ticket"
	StageRetrieve Stage = "retrieve_context"
	StageGenerate Stage = "generate_response"
	StageReview   Stage = "review_response"
	StageRefine   Stage = "refine_context"
	StageEscalate Stage = "escalate_ticket"
	StageFinalize Stage = "finalize_response"
	StageEnd      Stage = "__end__"
)

// EntryStage is where every new run starts.
const EntryStage = StageClassify

// Stages lists every executable stage in graph order.
var Stages = []Stage{
	StageClassify,
	StageRetrieve,
	StageGenerate,
	StageReview,
	StageRefine,
	StageEscalate,
	StageFinalize,
}

// staticEdges holds every unconditional edge. StageReview is the only stage
// missing here; its successor is chosen by Route.
var staticEdges = map[Stage]Stage{
	StageClassify: StageRetrieve,
	StageRetrieve: StageGenerate,
	StageGenerate: StageReview,
	StageRefine:   StageGenerate,
	StageEscalate: StageEnd,
	StageFinalize: StageEnd,
}

// Terminal reports whether the stage ends the run once it completes.
func (s Stage) Terminal() bool {
	return s == StageEscalate || s == StageFinalize
}

// Valid reports whether s names an executable stage.
func (s Stage) Valid() bool {
	for _, st := range Stages {
		if st == s {
			return true
		}
	}
	return false
}

// =============================================================================
// Graph description
// =============================================================================

// Edge is a directed transition between two stages.
type Edge struct {
	From        Stage `json:"from"`
	To          Stage `json:"to"`
	Conditional bool  `json:"conditional,omitempty"`
}

// Graph describes the pipeline topology for tooling and documentation.
type Graph struct {
	Entry     Stage   `json:"entry"`
	Stages    []Stage `json:"stages"`
	Terminals []Stage `json:"terminals"`
	Edges     []Edge  `json:"edges"`
}

// Describe returns the pipeline graph.
func Describe() Graph {
	g := Graph{
		Entry:     EntryStage,
		Stages:    append([]Stage(nil), Stages...),
		Terminals: []Stage{StageFinalize, StageEscalate},
	}
	for _, from := range Stages {
		if to, ok := staticEdges[from]; ok {
			g.Edges = append(g.Edges, Edge{From: from, To: to})
			continue
		}
		g.Edges = append(g.Edges,
			Edge{From: from, To: StageFinalize, Conditional: true},
			Edge{From: from, To: StageRefine, Conditional: true},
			Edge{From: from, To: StageEscalate, Conditional: true},
		)
	}
	return g
}
