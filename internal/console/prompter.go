// Package console is the interactive terminal front end: huh prompts for
// the human-in-the-loop checkpoints and glamour rendering for model output.
package console

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/charmbracelet/huh"
)

// ErrAborted is returned when the user dismisses a prompt (Ctrl+C, Esc).
var ErrAborted = errors.New("console: prompt aborted")

// Prompter asks the user one question at a time.
type Prompter interface {
	// Select returns the index of the chosen option.
	Select(ctx context.Context, title string, options []string) (int, error)

	// Input returns a line of free text.
	Input(ctx context.Context, title string) (string, error)
}

// HuhPrompter implements Prompter with huh forms.
type HuhPrompter struct {
	In  io.Reader
	Out io.Writer

	// Accessible switches huh to plain line-based prompts, for pipes and
	// screen readers.
	Accessible bool
}

var _ Prompter = (*HuhPrompter)(nil)

// Select implements Prompter.
func (p *HuhPrompter) Select(ctx context.Context, title string, options []string) (int, error) {
	opts := make([]huh.Option[int], len(options))
	for i, o := range options {
		opts[i] = huh.NewOption(o, i)
	}

	var choice int
	field := huh.NewSelect[int]().
		Title(title).
		Options(opts...).
		Value(&choice)
	if err := p.run(ctx, field); err != nil {
		return 0, err
	}
	return choice, nil
}

// Input implements Prompter.
func (p *HuhPrompter) Input(ctx context.Context, title string) (string, error) {
	var text string
	field := huh.NewInput().
		Title(title).
		Value(&text)
	if err := p.run(ctx, field); err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (p *HuhPrompter) run(ctx context.Context, field huh.Field) error {
	form := huh.NewForm(huh.NewGroup(field)).
		WithShowHelp(false).
		WithAccessible(p.Accessible)
	if p.In != nil {
		form = form.WithInput(p.In)
	}
	if p.Out != nil {
		form = form.WithOutput(p.Out)
	}

	err := form.RunWithContext(ctx)
	if errors.Is(err, huh.ErrUserAborted) {
		return ErrAborted
	}
	return err
}
