package console

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/flemzord/mategen/internal/orchestrator"
	"github.com/flemzord/mategen/internal/provider"
)

// ExitWord ends a chat or a rephrase prompt.
const ExitWord = "exit"

// Console is the interactive orchestrator.HumanDecision.
type Console struct {
	prompt Prompter
	render *Renderer
}

var _ orchestrator.HumanDecision = (*Console)(nil)

// New returns a Console asking through p and printing through r.
func New(p Prompter, r *Renderer) *Console {
	return &Console{prompt: p, render: r}
}

// NextQuestion asks for the next chat question. ok is false when the user
// types the exit word.
func (c *Console) NextQuestion(ctx context.Context) (question string, ok bool, err error) {
	q, err := c.requireInput(ctx, fmt.Sprintf("Do you have any other questions? (enter %q to end the conversation)", ExitWord))
	if err != nil {
		return "", false, err
	}
	if isExit(q) {
		return "", false, nil
	}
	return q, true, nil
}

// Answer prints a final assistant answer.
func (c *Console) Answer(text string) {
	c.render.Markdown(text)
}

// OnTransientFailure implements orchestrator.HumanDecision.
func (c *Console) OnTransientFailure(ctx context.Context, err error, attempt int) (orchestrator.FailureDecision, error) {
	c.render.Println("The model is unavailable (attempt %d): %v", attempt, err)

	choice, perr := c.prompt.Select(ctx, "How do you want to continue?", []string{
		"Wait and retry",
		"Switch to another model",
		"Stop with an error",
	})
	if perr != nil {
		return orchestrator.FailureDecision{}, perr
	}

	switch choice {
	case 1:
		model, perr := c.prompt.Input(ctx, "New model name")
		if perr != nil {
			return orchestrator.FailureDecision{}, perr
		}
		if model == "" {
			return orchestrator.FailureDecision{Action: orchestrator.FailureWait}, nil
		}
		return orchestrator.FailureDecision{Action: orchestrator.FailureSwitchModel, Model: model}, nil
	case 2:
		return orchestrator.FailureDecision{Action: orchestrator.FailureAbort}, nil
	default:
		return orchestrator.FailureDecision{Action: orchestrator.FailureWait}, nil
	}
}

// Rephrase implements orchestrator.HumanDecision.
func (c *Console) Rephrase(ctx context.Context, guidance string) (string, bool, error) {
	c.render.Markdown(guidance)
	q, err := c.prompt.Input(ctx, fmt.Sprintf("Please re-enter your question (enter %q to end the conversation)", ExitWord))
	if err != nil {
		return "", false, err
	}
	if q == "" || isExit(q) {
		return "", false, nil
	}
	return q, true, nil
}

// ReviewText implements orchestrator.HumanDecision.
func (c *Console) ReviewText(ctx context.Context, draft string) (orchestrator.TextDecision, error) {
	c.render.Markdown(draft)
	return c.review(ctx, "Record this answer")
}

// ReviewPlan implements orchestrator.HumanDecision.
func (c *Console) ReviewPlan(ctx context.Context, plan string) (orchestrator.TextDecision, error) {
	c.render.Markdown(plan)
	return c.review(ctx, "Execute the task following this plan")
}

func (c *Console) review(ctx context.Context, accept string) (orchestrator.TextDecision, error) {
	choice, err := c.prompt.Select(ctx, "What next?", []string{
		accept,
		"Give feedback and let the model revise",
		"Ask a new question",
		"End the conversation",
	})
	if err != nil {
		return orchestrator.TextDecision{}, err
	}

	switch choice {
	case 1:
		feedback, err := c.requireInput(ctx, "Your feedback")
		if err != nil {
			return orchestrator.TextDecision{}, err
		}
		return orchestrator.TextDecision{Action: orchestrator.TextRevise, Text: feedback}, nil
	case 2:
		q, err := c.requireInput(ctx, "Your new question")
		if err != nil {
			return orchestrator.TextDecision{}, err
		}
		return orchestrator.TextDecision{Action: orchestrator.TextNewQuestion, Text: q}, nil
	case 3:
		return orchestrator.TextDecision{Action: orchestrator.TextAbort}, nil
	default:
		return orchestrator.TextDecision{Action: orchestrator.TextAccept}, nil
	}
}

// ReviewToolCall implements orchestrator.HumanDecision.
func (c *Console) ReviewToolCall(ctx context.Context, call provider.ToolCall, code string) (orchestrator.CallDecision, error) {
	c.render.Println("About to run %s:", call.Name)
	c.render.Markdown(code)

	choice, err := c.prompt.Select(ctx, "Run this code?", []string{
		"Run it",
		"Give feedback and let the model rewrite it",
	})
	if err != nil {
		return orchestrator.CallDecision{}, err
	}
	if choice != 1 {
		return orchestrator.CallDecision{Action: orchestrator.CallRun}, nil
	}

	feedback, err := c.requireInput(ctx, "Your feedback")
	if err != nil {
		return orchestrator.CallDecision{}, err
	}
	return orchestrator.CallDecision{Action: orchestrator.CallRevise, Feedback: feedback}, nil
}

// Observer returns narration hooks printing orchestrator progress.
func (c *Console) Observer() orchestrator.Observer {
	return orchestrator.Observer{
		OnToolCall: func(call provider.ToolCall, code string) {
			c.render.Println("Running %s", call.Name)
			c.render.Markdown(code)
		},
		OnDebugStart: func(mode orchestrator.DebugMode) {
			c.render.Println("The code failed, entering %s debug mode", mode)
		},
		OnDebugPrompt: func(prompt string) {
			c.render.Markdown(prompt)
		},
		OnRetry: func(err error, attempt int, wait time.Duration) {
			c.render.Println("The model is unavailable (attempt %d): %v. Retrying in %s", attempt, err, wait)
		},
		OnNoDecomposition: func() {
			c.render.Println("This question needs no decomposition, answering directly")
		},
	}
}

// requireInput asks until the answer is non-empty.
func (c *Console) requireInput(ctx context.Context, title string) (string, error) {
	for {
		text, err := c.prompt.Input(ctx, title)
		if err != nil {
			return "", err
		}
		if text != "" {
			return text, nil
		}
		if err := ctx.Err(); err != nil {
			return "", err
		}
	}
}

func isExit(s string) bool {
	return strings.EqualFold(strings.TrimSpace(s), ExitWord)
}

// IsAborted reports whether err ends the session because the user dismissed
// a prompt.
func IsAborted(err error) bool {
	return errors.Is(err, ErrAborted)
}
