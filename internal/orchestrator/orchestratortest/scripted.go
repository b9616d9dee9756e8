// Package orchestratortest provides test helpers for the orchestrator package.
package orchestratortest

import (
	"context"
	"errors"
	"sync"

	"github.com/flemzord/mategen/internal/orchestrator"
	"github.com/flemzord/mategen/internal/provider"
)

// ErrScriptExhausted is returned when a checkpoint is reached with no
// scripted answer left.
var ErrScriptExhausted = errors.New("orchestratortest: no scripted decision left")

// Scripted is a HumanDecision that answers each checkpoint from its own
// queue, in order, and records what it was shown. Set the queues before the
// turn starts; an empty queue yields ErrScriptExhausted.
type Scripted struct {
	Failures  []orchestrator.FailureDecision
	Rephrases []string
	Texts     []orchestrator.TextDecision
	Plans     []orchestrator.TextDecision
	Calls     []orchestrator.CallDecision

	// DeclineRephrase makes Rephrase return ok=false.
	DeclineRephrase bool

	mu            sync.Mutex
	ShownDrafts   []string
	ShownPlans    []string
	ShownCode     []string
	ShownGuidance []string
	FailureErrors []error
}

var _ orchestrator.HumanDecision = (*Scripted)(nil)

func pop[T any](q *[]T) (T, error) {
	var zero T
	if len(*q) == 0 {
		return zero, ErrScriptExhausted
	}
	v := (*q)[0]
	*q = (*q)[1:]
	return v, nil
}

// OnTransientFailure implements orchestrator.HumanDecision.
func (s *Scripted) OnTransientFailure(_ context.Context, err error, _ int) (orchestrator.FailureDecision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.FailureErrors = append(s.FailureErrors, err)
	return pop(&s.Failures)
}

// Rephrase implements orchestrator.HumanDecision.
func (s *Scripted) Rephrase(_ context.Context, guidance string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ShownGuidance = append(s.ShownGuidance, guidance)
	if s.DeclineRephrase {
		return "", false, nil
	}
	q, err := pop(&s.Rephrases)
	return q, err == nil, err
}

// ReviewText implements orchestrator.HumanDecision.
func (s *Scripted) ReviewText(_ context.Context, draft string) (orchestrator.TextDecision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ShownDrafts = append(s.ShownDrafts, draft)
	return pop(&s.Texts)
}

// ReviewPlan implements orchestrator.HumanDecision.
func (s *Scripted) ReviewPlan(_ context.Context, plan string) (orchestrator.TextDecision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ShownPlans = append(s.ShownPlans, plan)
	return pop(&s.Plans)
}

// ReviewToolCall implements orchestrator.HumanDecision.
func (s *Scripted) ReviewToolCall(_ context.Context, _ provider.ToolCall, code string) (orchestrator.CallDecision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ShownCode = append(s.ShownCode, code)
	return pop(&s.Calls)
}
