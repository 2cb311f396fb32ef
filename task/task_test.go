package task

import (
	"testing"

	"github.com/randalmurphal/llmkit/model"
)

func TestTierForTask(t *testing.T) {
	tests := []struct {
		task         Type
		expectedTier model.Tier
	}{
		{Classify, model.TierFast},
		{Generate, model.TierDefault},
		{Review, model.TierDefault},
		{Type("unknown"), model.TierDefault},
	}

	for _, tt := range tests {
		t.Run(string(tt.task), func(t *testing.T) {
			if got := TierForTask(tt.task); got != tt.expectedTier {
				t.Errorf("TierForTask(%s) = %v, want %v", tt.task, got, tt.expectedTier)
			}
		})
	}
}

func TestSelectModel(t *testing.T) {
	tests := []struct {
		task     Type
		expected model.ModelName
	}{
		{Classify, model.ModelHaiku},
		{Generate, model.ModelSonnet},
		{Review, model.ModelSonnet},
		{Type("unknown"), model.ModelSonnet},
	}

	for _, tt := range tests {
		t.Run(string(tt.task), func(t *testing.T) {
			if got := SelectModel(tt.task); got != tt.expected {
				t.Errorf("SelectModel(%s) = %s, want %s", tt.task, got, tt.expected)
			}
		})
	}
}

func TestNewSelector(t *testing.T) {
	selector := NewSelector()

	if got := selector.Select(Classify); got != model.ModelHaiku {
		t.Errorf("Select(Classify) = %s, want %s", got, model.ModelHaiku)
	}
	if got := selector.Select(Generate); got != model.ModelSonnet {
		t.Errorf("Select(Generate) = %s, want %s", got, model.ModelSonnet)
	}
}

func TestModels(t *testing.T) {
	got := Models(map[Type]string{Review: "custom-review-model", Generate: ""})

	if got[Review] != "custom-review-model" {
		t.Errorf("Review = %s, want override", got[Review])
	}
	if got[Generate] != string(model.ModelSonnet) {
		t.Errorf("Generate = %s, want default", got[Generate])
	}
	if got[Classify] != string(model.ModelHaiku) {
		t.Errorf("Classify = %s, want default", got[Classify])
	}
	if len(got) != len(Types) {
		t.Errorf("len = %d", len(got))
	}
}
