package main

import (
	"context"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"opsmap/internal/app"
	"opsmap/internal/domain"
	"opsmap/internal/store"
)

func workflowCmd() *cobra.Command {
	wf := &cobra.Command{Use: "workflow", Aliases: []string{"wf"}, Short: "Manage workflows"}
	wf.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List workflows",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				items, err := a.Store.Workflows()
				if err != nil {
					return err
				}
				rows := make([]table.Row, 0, len(items))
				for _, w := range items {
					rows = append(rows, table.Row{w.ID, w.Name, w.Status})
				}
				return printRows(items, table.Row{"ID", "Name", "Status"}, rows)
			})
		},
	})

	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a workflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			placeholder, _ := cmd.Flags().GetBool("placeholder")
			in := store.WorkflowInput{Name: args[0], Description: deref(changed(cmd, "description")), Placeholder: placeholder}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				w, err := a.Store.AddWorkflow(ctx, in)
				if err != nil {
					return err
				}
				return printResult(w, "Added workflow %s (%s)", w.ID, w.Name)
			})
		},
	}
	add.Flags().String("description", "", "description")
	add.Flags().Bool("placeholder", false, "create as a gap placeholder")
	wf.AddCommand(add)

	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a workflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch := store.WorkflowPatch{Name: changed(cmd, "name"), Description: changed(cmd, "description")}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				w, err := a.Store.UpdateWorkflow(ctx, args[0], patch)
				if err != nil {
					return err
				}
				return printResult(w, "Updated workflow %s (%s)", w.ID, w.Status)
			})
		},
	}
	update.Flags().String("name", "", "name")
	update.Flags().String("description", "", "description")
	wf.AddCommand(update)

	wf.AddCommand(deleteCmd("workflow", func(ctx context.Context, a *app.App, id string) error {
		return a.Store.DeleteWorkflow(ctx, id)
	}))
	wf.AddCommand(workflowTreeCmd())
	return wf
}

// workflowTreeCmd prints phases, steps and the activities linked to each step.
func workflowTreeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tree <id>",
		Short: "Show a workflow's phases, steps and linked activities",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				type stepNode struct {
					Step       domain.Step           `json:"step"`
					Activities []domain.CoreActivity `json:"activities,omitempty"`
				}
				type phaseNode struct {
					Phase domain.Phase `json:"phase"`
					Steps []stepNode   `json:"steps,omitempty"`
				}
				phases, err := a.Store.Phases(args[0])
				if err != nil {
					return err
				}
				var tree []phaseNode
				for _, p := range phases {
					steps, err := a.Store.Steps(p.ID)
					if err != nil {
						return err
					}
					node := phaseNode{Phase: p}
					for _, s := range steps {
						acts, err := a.Store.GetActivitiesForStep(s.ID)
						if err != nil {
							return err
						}
						node.Steps = append(node.Steps, stepNode{Step: s, Activities: acts})
					}
					tree = append(tree, node)
				}
				if isJSON() {
					return printJSON(tree)
				}
				for _, p := range tree {
					fmt.Printf("%d. %s (%s)\n", p.Phase.OrderIndex+1, p.Phase.Name, p.Phase.ID)
					for _, s := range p.Steps {
						fmt.Printf("   %d. %s (%s)\n", s.Step.OrderIndex+1, s.Step.Name, s.Step.ID)
						for _, act := range s.Activities {
							fmt.Printf("      - %s [%s]\n", act.Name, act.Status)
						}
					}
				}
				return nil
			})
		},
	}
}

func phaseCmd() *cobra.Command {
	ph := &cobra.Command{Use: "phase", Short: "Manage workflow phases"}
	ph.AddCommand(orderedListCmd("list <workflow-id>", "List a workflow's phases", func(a *app.App, parent string) (any, []table.Row, error) {
		items, err := a.Store.Phases(parent)
		rows := make([]table.Row, 0, len(items))
		for _, p := range items {
			rows = append(rows, table.Row{p.OrderIndex, p.ID, p.Name})
		}
		return items, rows, err
	}))
	ph.AddCommand(orderedAddCmd("add <workflow-id> <name>", "Add a phase", func(ctx context.Context, a *app.App, parent, name string, index *int) (any, string, error) {
		p, err := a.Store.AddPhase(ctx, parent, name, index)
		return p, p.ID, err
	}))
	ph.AddCommand(renameCmd("phase", func(ctx context.Context, a *app.App, id, name string) error {
		_, err := a.Store.UpdatePhase(ctx, id, name)
		return err
	}))
	ph.AddCommand(deleteCmd("phase", func(ctx context.Context, a *app.App, id string) error {
		return a.Store.DeletePhase(ctx, id)
	}))
	ph.AddCommand(moveCmd("move <id> <workflow-id> <index>", "Move a phase within or across workflows", func(ctx context.Context, a *app.App, id, parent string, index int) error {
		return a.Store.MovePhase(ctx, id, parent, index)
	}))
	return ph
}

func stepCmd() *cobra.Command {
	st := &cobra.Command{Use: "step", Short: "Manage phase steps"}
	st.AddCommand(orderedListCmd("list <phase-id>", "List a phase's steps", func(a *app.App, parent string) (any, []table.Row, error) {
		items, err := a.Store.Steps(parent)
		rows := make([]table.Row, 0, len(items))
		for _, s := range items {
			rows = append(rows, table.Row{s.OrderIndex, s.ID, s.Name})
		}
		return items, rows, err
	}))
	st.AddCommand(orderedAddCmd("add <phase-id> <name>", "Add a step", func(ctx context.Context, a *app.App, parent, name string, index *int) (any, string, error) {
		s, err := a.Store.AddStep(ctx, parent, name, index)
		return s, s.ID, err
	}))
	st.AddCommand(renameCmd("step", func(ctx context.Context, a *app.App, id, name string) error {
		_, err := a.Store.UpdateStep(ctx, id, name)
		return err
	}))
	st.AddCommand(deleteCmd("step", func(ctx context.Context, a *app.App, id string) error {
		return a.Store.DeleteStep(ctx, id)
	}))
	st.AddCommand(&cobra.Command{
		Use:   "remove-at <phase-id> <index>",
		Short: "Remove the step at a position",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := parseIndex(args[1])
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				if err := a.Store.RemoveStepAt(ctx, args[0], idx); err != nil {
					return err
				}
				return printResult(map[string]any{"phase_id": args[0], "index": idx}, "Removed step %d of phase %s", idx, args[0])
			})
		},
	})
	st.AddCommand(moveCmd("move <id> <phase-id> <index>", "Move a step within or across phases", func(ctx context.Context, a *app.App, id, parent string, index int) error {
		return a.Store.MoveStep(ctx, id, parent, index)
	}))
	return st
}

func orderedListCmd(use, short string, list func(a *app.App, parent string) (any, []table.Row, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				items, rows, err := list(a, args[0])
				if err != nil {
					return err
				}
				return printRows(items, table.Row{"#", "ID", "Name"}, rows)
			})
		},
	}
}

func orderedAddCmd(use, short string, add func(ctx context.Context, a *app.App, parent, name string, index *int) (any, string, error)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			index := indexFlag(cmd)
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				out, id, err := add(ctx, a, args[0], args[1], index)
				if err != nil {
					return err
				}
				return printResult(out, "Added %s (%s)", id, args[1])
			})
		},
	}
	cmd.Flags().Int("index", 0, "position among siblings (default: append)")
	return cmd
}

func renameCmd(noun string, rename func(ctx context.Context, a *app.App, id, name string) error) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <id> <name>",
		Short: "Rename a " + noun,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				if err := rename(ctx, a, args[0], args[1]); err != nil {
					return err
				}
				return printResult(map[string]string{"id": args[0], "name": args[1]}, "Renamed %s %s", noun, args[0])
			})
		},
	}
}

func moveCmd(use, short string, move func(ctx context.Context, a *app.App, id, parent string, index int) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := parseIndex(args[2])
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				if err := move(ctx, a, args[0], args[1], idx); err != nil {
					return err
				}
				return printResult(map[string]any{"id": args[0], "parent_id": args[1], "index": idx}, "Moved %s to %s at %d", args[0], args[1], idx)
			})
		},
	}
}
