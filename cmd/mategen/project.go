package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/flemzord/mategen/internal/config"
	"github.com/flemzord/mategen/internal/store"
)

// projectFlags select the project and part a command works on.
type projectFlags struct {
	project string
	part    string
}

func (f *projectFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.project, "project", "p", "", "Project name (defaults to assistant.project)")
	cmd.Flags().StringVar(&f.part, "part", "", "Part name (defaults to assistant.part)")
}

// withProject opens an unattended session bound to the selected project
// and runs fn on it.
func withProject(cmd *cobra.Command, g *globalFlags, f *projectFlags, fn func(*store.Project) error) error {
	s, err := openSession(cmd.Context(), g, nil, func(a *config.AssistantConfig) {
		if f.project != "" {
			a.Project = f.project
		}
		if f.part != "" {
			a.Part = f.part
		}
	})
	if err != nil {
		return err
	}
	defer s.Close()

	p := s.Assistant.Project()
	if p == nil {
		return errors.New("no project selected (set assistant.project or --project)")
	}
	return fn(p)
}

func historyCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect the transcript stored in a project part",
	}

	var show projectFlags
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the stored transcript",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withProject(cmd, g, &show, func(p *store.Project) error {
				msgs, err := p.Restore(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(msgs) == 0 {
					fmt.Fprintf(out, "%s/%s is empty\n", p.Name, p.Part)
					return nil
				}
				for _, m := range msgs {
					switch {
					case m.IsToolCall():
						fmt.Fprintf(out, "[%s] call %s(%s)\n", m.Role, m.ToolCall.Name, m.ToolCall.Arguments)
					case m.Name != "":
						fmt.Fprintf(out, "[%s:%s] %s\n", m.Role, m.Name, m.Content)
					default:
						fmt.Fprintf(out, "[%s] %s\n", m.Role, m.Content)
					}
				}
				return nil
			})
		},
	}
	show.register(showCmd)

	var clearFlags projectFlags
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Empty the stored transcript",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withProject(cmd, g, &clearFlags, func(p *store.Project) error {
				if err := p.Clear(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %s/%s\n", p.Name, p.Part)
				return nil
			})
		},
	}
	clearFlags.register(clearCmd)

	cmd.AddCommand(showCmd, clearCmd)
	return cmd
}

func projectCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Manage project parts",
	}

	var parts projectFlags
	partsCmd := &cobra.Command{
		Use:   "parts",
		Short: "List the parts of a project",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withProject(cmd, g, &parts, func(p *store.Project) error {
				docs, err := p.Documents(cmd.Context())
				if err != nil {
					return err
				}
				names := make([]string, len(docs))
				for i, d := range docs {
					names[i] = d.Name
				}
				fmt.Fprintln(cmd.OutOrStdout(), strings.Join(names, "\n"))
				return nil
			})
		},
	}
	parts.register(partsCmd)

	var rename projectFlags
	renameCmd := &cobra.Command{
		Use:   "rename <new-part-name>",
		Short: "Rename a project part",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := store.ValidateName(args[0]); err != nil {
				return err
			}
			return withProject(cmd, g, &rename, func(p *store.Project) error {
				old := p.Part
				if err := p.Rename(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Renamed %s/%s to %s\n", p.Name, old, p.Part)
				return nil
			})
		},
	}
	rename.register(renameCmd)

	var (
		del projectFlags
		yes bool
	)
	deleteCmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete every part of a project",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return errors.New("refusing to delete without --yes")
			}
			return withProject(cmd, g, &del, func(p *store.Project) error {
				if err := p.DeleteAll(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted every part of %s\n", p.Name)
				return nil
			})
		},
	}
	del.register(deleteCmd)
	deleteCmd.Flags().BoolVar(&yes, "yes", false, "Confirm the deletion")

	cmd.AddCommand(partsCmd, renameCmd, deleteCmd)
	return cmd
}
