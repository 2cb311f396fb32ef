package workflow

import (
	"errors"
	"testing"
)

func reviewed(verdict Verdict, retries int) State {
	s := NewState("r", Ticket{})
	s.ReviewStatus = verdict
	s.Retries = retries
	return s
}

func TestRoute(t *testing.T) {
	tests := []struct {
		name    string
		verdict Verdict
		retries int
		want    Decision
	}{
		{"approved first attempt", VerdictApproved, 0, Decision{Next: StageFinalize}},
		{"approved after retries", VerdictApproved, 2, Decision{Next: StageFinalize}},
		{"rejected first attempt", VerdictRejected, 0, Decision{Next: StageRefine, IncrementRetries: true}},
		{"rejected second attempt", VerdictRejected, 1, Decision{Next: StageRefine, IncrementRetries: true}},
		{"rejected at bound", VerdictRejected, 2, Decision{Next: StageEscalate}},
		{"unknown status treated as rejection", Verdict("maybe"), 0, Decision{Next: StageRefine, IncrementRetries: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Route(reviewed(tt.verdict, tt.retries), DefaultMaxRetries); got != tt.want {
				t.Errorf("Route() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestRoute_DoesNotMutate(t *testing.T) {
	s := reviewed(VerdictRejected, 0)
	Route(s, DefaultMaxRetries)
	if s.Retries != 0 {
		t.Errorf("Route changed retries to %d", s.Retries)
	}
}

func TestRoute_NeverRefinesPastBound(t *testing.T) {
	// Walk every reachable retry count and confirm the increment can always
	// be applied.
	for retries := 0; retries <= DefaultMaxRetries; retries++ {
		s := reviewed(VerdictRejected, retries)
		d := Route(s, DefaultMaxRetries)
		if err := d.Apply(&s, DefaultMaxRetries); err != nil {
			t.Fatalf("retries=%d: Apply() error = %v", retries, err)
		}
		if s.Retries > DefaultMaxRetries {
			t.Fatalf("retries=%d: exceeded bound", s.Retries)
		}
	}
}

func TestNextStage(t *testing.T) {
	s := reviewed(VerdictApproved, 0)
	tests := []struct {
		from Stage
		want Stage
	}{
		{StageClassify, StageRetrieve},
		{StageRetrieve, StageGenerate},
		{StageGenerate, StageReview},
		{StageReview, StageFinalize},
		{StageRefine, StageGenerate},
		{StageEscalate, StageEnd},
		{StageFinalize, StageEnd},
	}

	for _, tt := range tests {
		t.Run(string(tt.from), func(t *testing.T) {
			d, err := NextStage(tt.from, s, DefaultMaxRetries)
			if err != nil {
				t.Fatal(err)
			}
			if d.Next != tt.want || d.IncrementRetries {
				t.Errorf("NextStage(%s) = %+v, want %s", tt.from, d, tt.want)
			}
		})
	}

	if _, err := NextStage(Stage("bogus"), s, DefaultMaxRetries); !errors.Is(err, ErrUnknownStage) {
		t.Errorf("NextStage(bogus) error = %v, want ErrUnknownStage", err)
	}
}

func TestDecision_Apply(t *testing.T) {
	s := reviewed(VerdictRejected, 1)
	if err := (Decision{Next: StageRefine, IncrementRetries: true}).Apply(&s, 2); err != nil {
		t.Fatal(err)
	}
	if s.Retries != 2 {
		t.Errorf("Retries = %d, want 2", s.Retries)
	}

	err := (Decision{Next: StageRefine, IncrementRetries: true}).Apply(&s, 2)
	if !errors.Is(err, ErrRetryBudgetExceeded) {
		t.Errorf("Apply() at bound error = %v, want ErrRetryBudgetExceeded", err)
	}
	if s.Retries != 2 {
		t.Errorf("Retries changed to %d on rejected increment", s.Retries)
	}

	if err := (Decision{Next: StageFinalize}).Apply(&s, 2); err != nil {
		t.Errorf("Apply() without increment error = %v", err)
	}
}

func TestDescribe(t *testing.T) {
	g := Describe()
	if g.Entry != StageClassify {
		t.Errorf("Entry = %s", g.Entry)
	}
	if len(g.Stages) != 7 {
		t.Errorf("Stages = %d, want 7", len(g.Stages))
	}

	conditional := 0
	for _, e := range g.Edges {
		if e.Conditional {
			conditional++
			if e.From != StageReview {
				t.Errorf("conditional edge from %s, only review branches", e.From)
			}
		}
	}
	if conditional != 3 {
		t.Errorf("conditional edges = %d, want 3", conditional)
	}
	if len(g.Edges) != 9 {
		t.Errorf("edges = %d, want 9", len(g.Edges))
	}
}

func TestStage_Terminal(t *testing.T) {
	for _, s := range Stages {
		want := s == StageEscalate || s == StageFinalize
		if s.Terminal() != want {
			t.Errorf("%s.Terminal() = %v", s, s.Terminal())
		}
		if !s.Valid() {
			t.Errorf("%s.Valid() = false", s)
		}
	}
	if StageEnd.Valid() {
		t.Error("StageEnd should not be executable")
	}
}
