package task

import (
	"github.com/randalmurphal/llmkit/model"
)

// Type is a capability the pipeline asks a language model for. It
// determines which model tier is appropriate.
type Type string

const (
	// Fast tasks - short structured answers
	Classify Type = "classify"

	// Standard tasks - default tier
	Generate Type = "generate"
	Review   Type = "review"
)

// Types lists every capability.
var Types = []Type{Classify, Generate, Review}

// DefaultModelMap maps task types to default models.
var DefaultModelMap = map[Type]model.ModelName{
	Classify: model.ModelHaiku,
	Generate: model.ModelSonnet,
	Review:   model.ModelSonnet,
}

// TierForTask returns the appropriate tier for a task type.
func TierForTask(t Type) model.Tier {
	switch t {
	case Classify:
		return model.TierFast
	default:
		return model.TierDefault
	}
}

// NewSelector creates a model selector configured for support tasks.
func NewSelector(opts ...model.SelectorOption) *model.Selector {
	allOpts := append([]model.SelectorOption{
		model.WithTierFunc(func(task any) model.Tier {
			if t, ok := task.(Type); ok {
				return TierForTask(t)
			}
			return model.TierDefault
		}),
	}, opts...)

	return model.NewSelector(allOpts...)
}

// SelectModel selects the model for a task type. Uses the default model
// map unless overridden.
func SelectModel(t Type) model.ModelName {
	if m, ok := DefaultModelMap[t]; ok {
		return m
	}
	switch TierForTask(t) {
	case model.TierFast:
		return model.ModelHaiku
	default:
		return model.ModelSonnet
	}
}

// Models resolves the model name for each capability. Non-empty entries in
// overrides win over the defaults.
func Models(overrides map[Type]string) map[Type]string {
	out := make(map[Type]string, len(Types))
	for _, t := range Types {
		if m := overrides[t]; m != "" {
			out[t] = m
			continue
		}
		out[t] = string(SelectModel(t))
	}
	return out
}
