package main

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/flemzord/mategen/internal/config"
	"github.com/flemzord/mategen/internal/console"
	"github.com/flemzord/mategen/pkg/app"
)

// assistantFlags override the assistant section of the configuration.
type assistantFlags struct {
	model     string
	project   string
	part      string
	developer bool
	enhanced  bool
}

func (f *assistantFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.model, "model", "m", "", "Model override")
	cmd.Flags().StringVarP(&f.project, "project", "p", "", "Project to persist the transcript in")
	cmd.Flags().StringVar(&f.part, "part", "", "Part (document) of the project")
	cmd.Flags().BoolVarP(&f.developer, "developer", "d", false, "Review every draft and tool call")
	cmd.Flags().BoolVarP(&f.enhanced, "enhanced", "e", false, "Decompose tasks and debug failing code in depth")
}

func (f *assistantFlags) apply(cmd *cobra.Command) func(*config.AssistantConfig) {
	return func(a *config.AssistantConfig) {
		if f.model != "" {
			a.Model = f.model
		}
		if f.project != "" {
			a.Project = f.project
		}
		if f.part != "" {
			a.Part = f.part
		}
		if cmd.Flags().Changed("developer") {
			a.DeveloperMode = f.developer
		}
		if cmd.Flags().Changed("enhanced") {
			a.EnhancedMode = f.enhanced
		}
	}
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// newConsole builds the interactive console on the process's stdio.
// Without a terminal, huh falls back to line-based prompts.
func newConsole(out io.Writer) (*console.Console, error) {
	width := console.DefaultWidth
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		width = min(w, 120)
	}
	r, err := console.NewRenderer(out, isTerminal(os.Stdout), width)
	if err != nil {
		return nil, err
	}
	p := &console.HuhPrompter{
		In:         os.Stdin,
		Out:        out,
		Accessible: !isTerminal(os.Stdin),
	}
	return console.New(p, r), nil
}

// openSession starts the configured modules with the given console as the
// human in the loop. A nil console runs unattended.
func openSession(ctx context.Context, g *globalFlags, c *console.Console, overrides func(*config.AssistantConfig)) (*app.Session, error) {
	level, err := g.level()
	if err != nil {
		return nil, err
	}
	p := app.Params{
		ConfigPath: g.configPath,
		DataDir:    g.dataDir,
		LogLevel:   level,
		Overrides:  overrides,
	}
	if c != nil {
		p.Human = c
		p.Observer = c.Observer()
	}
	return app.Open(ctx, p)
}
