package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/aryonoco/divban/internal/logging"
)

type counterState struct {
	acquired []string
	released []string
}

func step(name string, fail bool) Step[*counterState] {
	return Step[*counterState]{
		Name: name,
		Acquire: func(ctx context.Context, s *counterState) (*counterState, func(context.Context) error, error) {
			if fail {
				return s, nil, errors.New(name + " failed")
			}
			s.acquired = append(s.acquired, name)
			release := func(ctx context.Context) error {
				s.released = append(s.released, name)
				return nil
			}
			return s, release, nil
		},
	}
}

func TestPipelineSuccessRunsEveryStepInOrder(t *testing.T) {
	logger := logging.New(logging.Config{Level: logging.LevelError})
	p := Pipeline[*counterState]{
		Steps:  []Step[*counterState]{step("a", false), step("b", false), step("c", false)},
		Logger: logger,
	}
	state, outcome, err := p.Execute(context.Background(), &counterState{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if outcome.StepsCompleted != 3 || outcome.RolledBack {
		t.Fatalf("got outcome %+v", outcome)
	}
	want := []string{"a", "b", "c"}
	if !equal(state.acquired, want) {
		t.Errorf("got acquired %v, want %v", state.acquired, want)
	}
}

func TestPipelineFailureRollsBackInReverseOrder(t *testing.T) {
	logger := logging.New(logging.Config{Level: logging.LevelError})
	p := Pipeline[*counterState]{
		Steps: []Step[*counterState]{
			step("a", false),
			step("b", false),
			step("c", true), // fails; a and b must be rolled back
		},
		Logger: logger,
	}
	state, outcome, err := p.Execute(context.Background(), &counterState{})
	if err == nil {
		t.Fatalf("expected step c to fail")
	}
	if !outcome.RolledBack || outcome.StepsCompleted != 2 {
		t.Fatalf("got outcome %+v", outcome)
	}
	want := []string{"b", "a"}
	if !equal(state.released, want) {
		t.Errorf("got released order %v, want %v (reverse of acquisition)", state.released, want)
	}
}

func TestPipelineCancellationBetweenStepsRollsBack(t *testing.T) {
	logger := logging.New(logging.Config{Level: logging.LevelError})
	ctx, cancel := context.WithCancel(context.Background())

	cancelling := Step[*counterState]{
		Name: "b",
		Acquire: func(_ context.Context, s *counterState) (*counterState, func(context.Context) error, error) {
			s.acquired = append(s.acquired, "b")
			cancel() // simulates a signal arriving while the step runs
			release := func(context.Context) error {
				s.released = append(s.released, "b")
				return nil
			}
			return s, release, nil
		},
	}

	p := Pipeline[*counterState]{
		Steps:  []Step[*counterState]{step("a", false), cancelling, step("c", false)},
		Logger: logger,
	}
	state, outcome, err := p.Execute(ctx, &counterState{})
	if err == nil {
		t.Fatalf("expected cancellation to abort the pipeline")
	}
	if !outcome.RolledBack {
		t.Fatalf("got outcome %+v, want rollback", outcome)
	}
	want := []string{"b", "a"}
	if !equal(state.released, want) {
		t.Errorf("got released order %v, want %v", state.released, want)
	}
	if equal(state.acquired, []string{"a", "b", "c"}) {
		t.Errorf("step c must not run after cancellation")
	}
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
