package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/flemzord/mategen/internal/console"
	"github.com/flemzord/mategen/pkg/app"
)

func chatCmd(g *globalFlags) *cobra.Command {
	var (
		af      assistantFlags
		restore bool
		upload  bool
	)
	cmd := &cobra.Command{
		Use:   "chat [question]",
		Short: "Start a multi-turn conversation (type \"exit\" to end it)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM)
			defer stop()

			c, err := newConsole(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			s, err := openSession(ctx, g, c, af.apply(cmd))
			if err != nil {
				return err
			}
			defer s.Close()

			a := s.Assistant
			fmt.Fprintf(cmd.OutOrStdout(), "Model set to %s\n", a.Status().Model)

			if restore {
				n, err := a.Restore(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Restored %d messages\n", n)
			}

			err = a.Chat(ctx, strings.Join(args, " "), c)
			if console.IsAborted(err) {
				err = nil
			}
			if err != nil {
				return err
			}
			if upload {
				return uploadTranscript(ctx, cmd, a)
			}
			return nil
		},
	}
	af.register(cmd)
	cmd.Flags().BoolVar(&restore, "restore", false, "Continue from the transcript stored in the project")
	cmd.Flags().BoolVar(&upload, "upload", false, "Append the transcript to the project when the chat ends")
	return cmd
}

func askCmd(g *globalFlags) *cobra.Command {
	var (
		af     assistantFlags
		upload bool
	)
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a single question and print the answer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			c, err := newConsole(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			// Only developer mode needs a human in the loop.
			human := c
			if !af.developer {
				human = nil
			}
			s, err := openSession(ctx, g, human, af.apply(cmd))
			if err != nil {
				return err
			}
			defer s.Close()

			answer, err := s.Assistant.Ask(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			c.Answer(answer)

			if upload {
				return uploadTranscript(ctx, cmd, s.Assistant)
			}
			return nil
		},
	}
	af.register(cmd)
	cmd.Flags().BoolVar(&upload, "upload", false, "Append the exchange to the project")
	return cmd
}

func serveCmd(g *globalFlags) *cobra.Command {
	var af assistantFlags
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the configured modules (gateway, telemetry) until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(cmd.Context(), g, nil, af.apply(cmd))
			if err != nil {
				return err
			}
			defer s.Close()

			s.Logger.Info("mategen running", "model", s.Assistant.Status().Model)
			return s.Wait(cmd.Context())
		},
	}
	af.register(cmd)
	return cmd
}

func uploadTranscript(ctx context.Context, cmd *cobra.Command, a *app.Assistant) error {
	if err := a.Upload(ctx); err != nil {
		if errors.Is(err, app.ErrNoProject) {
			return errors.New("--upload needs a project (set assistant.project or --project)")
		}
		return err
	}
	p := a.Project()
	fmt.Fprintf(cmd.OutOrStdout(), "Transcript appended to %s/%s\n", p.Name, p.Part)
	return nil
}
