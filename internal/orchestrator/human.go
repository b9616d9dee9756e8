package orchestrator

import (
	"context"

	"github.com/flemzord/mategen/internal/provider"
)

// FailureAction is the human choice after a transient model failure.
type FailureAction int

const (
	// FailureWait sleeps the cooldown and retries.
	FailureWait FailureAction = iota

	// FailureSwitchModel retries with another model.
	FailureSwitchModel

	// FailureAbort gives up and returns the failure.
	FailureAbort
)

// FailureDecision carries a FailureAction and, for FailureSwitchModel, the
// new model name.
type FailureDecision struct {
	Action FailureAction
	Model  string
}

// TextAction is the human choice on a text draft or a decomposition plan.
type TextAction int

const (
	// TextAccept stores the draft. For a plan it also starts step-by-step
	// execution.
	TextAccept TextAction = iota

	// TextRevise sends Feedback to the model and asks again.
	TextRevise

	// TextNewQuestion replaces the last question with Text and asks again.
	TextNewQuestion

	// TextAbort ends the conversation without storing the draft.
	TextAbort
)

// TextDecision carries a TextAction and its free text (revision feedback or
// the new question).
type TextDecision struct {
	Action TextAction
	Text   string
}

// CallAction is the human choice on a pending tool call.
type CallAction int

const (
	// CallRun executes the tool call.
	CallRun CallAction = iota

	// CallRevise sends Feedback to the model instead of running the call.
	CallRevise
)

// CallDecision carries a CallAction and its revision feedback.
type CallDecision struct {
	Action   CallAction
	Feedback string
}

// HumanDecision is the human-in-the-loop capability the orchestrator calls
// at its checkpoints. An interactive terminal implements it in the console
// package; tests supply a scripted one.
type HumanDecision interface {
	// OnTransientFailure is asked in developer mode when the model is
	// unreachable.
	OnTransientFailure(ctx context.Context, err error, attempt int) (FailureDecision, error)

	// Rephrase shows the model-written guidance in enhanced mode and
	// returns a new question, or ok=false to end the conversation.
	Rephrase(ctx context.Context, guidance string) (question string, ok bool, err error)

	// ReviewText is asked in developer mode for every text draft.
	ReviewText(ctx context.Context, draft string) (TextDecision, error)

	// ReviewPlan is asked for every task-decomposition plan.
	ReviewPlan(ctx context.Context, plan string) (TextDecision, error)

	// ReviewToolCall is asked in developer mode before a tool runs. code is
	// the call rendered as a markdown code block.
	ReviewToolCall(ctx context.Context, call provider.ToolCall, code string) (CallDecision, error)
}

// AutoDecision accepts every draft and plan, runs every tool call, and waits
// on every transient failure. It is the non-interactive default.
type AutoDecision struct{}

var _ HumanDecision = AutoDecision{}

// OnTransientFailure implements HumanDecision.
func (AutoDecision) OnTransientFailure(context.Context, error, int) (FailureDecision, error) {
	return FailureDecision{Action: FailureWait}, nil
}

// Rephrase implements HumanDecision.
func (AutoDecision) Rephrase(context.Context, string) (string, bool, error) {
	return "", false, nil
}

// ReviewText implements HumanDecision.
func (AutoDecision) ReviewText(context.Context, string) (TextDecision, error) {
	return TextDecision{Action: TextAccept}, nil
}

// ReviewPlan implements HumanDecision.
func (AutoDecision) ReviewPlan(context.Context, string) (TextDecision, error) {
	return TextDecision{Action: TextAccept}, nil
}

// ReviewToolCall implements HumanDecision.
func (AutoDecision) ReviewToolCall(context.Context, provider.ToolCall, string) (CallDecision, error) {
	return CallDecision{Action: CallRun}, nil
}
