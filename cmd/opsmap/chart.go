package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"opsmap/internal/app"
	"opsmap/internal/store"
)

func functionCmd() *cobra.Command {
	fn := &cobra.Command{Use: "function", Aliases: []string{"fn"}, Short: "Manage functions of the active workspace"}
	fn.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List functions in chart order",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				items, err := a.Store.Functions()
				if err != nil {
					return err
				}
				rows := make([]table.Row, 0, len(items))
				for _, f := range items {
					rows = append(rows, table.Row{f.OrderIndex, f.ID, f.Name, f.Status, f.Color})
				}
				return printRows(items, table.Row{"#", "ID", "Name", "Status", "Color"}, rows)
			})
		},
	})

	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a function",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			placeholder, _ := cmd.Flags().GetBool("placeholder")
			in := store.FunctionInput{
				Name:        args[0],
				Description: deref(changed(cmd, "description")),
				Color:       deref(changed(cmd, "color")),
				Placeholder: placeholder,
				Index:       indexFlag(cmd),
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				f, err := a.Store.AddFunction(ctx, in)
				if err != nil {
					return err
				}
				return printResult(f, "Added function %s (%s) at %d", f.ID, f.Name, f.OrderIndex)
			})
		},
	}
	add.Flags().String("description", "", "description")
	add.Flags().String("color", "", "display color")
	add.Flags().Bool("placeholder", false, "create as a gap placeholder")
	add.Flags().Int("index", 0, "position among functions (default: append)")
	fn.AddCommand(add)

	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a function",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch := store.FunctionPatch{
				Name:        changed(cmd, "name"),
				Description: changed(cmd, "description"),
				Color:       changed(cmd, "color"),
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				f, err := a.Store.UpdateFunction(ctx, args[0], patch)
				if err != nil {
					return err
				}
				return printResult(f, "Updated function %s (%s)", f.ID, f.Status)
			})
		},
	}
	update.Flags().String("name", "", "name")
	update.Flags().String("description", "", "description")
	update.Flags().String("color", "", "display color")
	fn.AddCommand(update)

	fn.AddCommand(deleteCmd("function", func(ctx context.Context, a *app.App, id string) error {
		return a.Store.DeleteFunction(ctx, id)
	}))
	fn.AddCommand(&cobra.Command{
		Use:   "move <id> <index>",
		Short: "Move a function to a new position",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := parseIndex(args[1])
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				if err := a.Store.MoveFunction(ctx, args[0], idx); err != nil {
					return err
				}
				return printResult(map[string]any{"id": args[0], "index": idx}, "Moved function %s", args[0])
			})
		},
	})
	return fn
}

func subFunctionCmd() *cobra.Command {
	sf := &cobra.Command{Use: "subfunction", Aliases: []string{"sf"}, Short: "Manage sub-functions"}
	sf.AddCommand(&cobra.Command{
		Use:   "list <function-id>",
		Short: "List the sub-functions of a function",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				items, err := a.Store.SubFunctions(args[0])
				if err != nil {
					return err
				}
				rows := make([]table.Row, 0, len(items))
				for _, s := range items {
					rows = append(rows, table.Row{s.OrderIndex, s.ID, s.Name, s.Status})
				}
				return printRows(items, table.Row{"#", "ID", "Name", "Status"}, rows)
			})
		},
	})

	add := &cobra.Command{
		Use:   "add <function-id> <name>",
		Short: "Add a sub-function",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			placeholder, _ := cmd.Flags().GetBool("placeholder")
			in := store.SubFunctionInput{
				Name:        args[1],
				Description: deref(changed(cmd, "description")),
				Placeholder: placeholder,
				Index:       indexFlag(cmd),
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				s, err := a.Store.AddSubFunction(ctx, args[0], in)
				if err != nil {
					return err
				}
				return printResult(s, "Added sub-function %s (%s) at %d", s.ID, s.Name, s.OrderIndex)
			})
		},
	}
	add.Flags().String("description", "", "description")
	add.Flags().Bool("placeholder", false, "create as a gap placeholder")
	add.Flags().Int("index", 0, "position within the function (default: append)")
	sf.AddCommand(add)

	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a sub-function",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch := store.SubFunctionPatch{Name: changed(cmd, "name"), Description: changed(cmd, "description")}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				s, err := a.Store.UpdateSubFunction(ctx, args[0], patch)
				if err != nil {
					return err
				}
				return printResult(s, "Updated sub-function %s (%s)", s.ID, s.Status)
			})
		},
	}
	update.Flags().String("name", "", "name")
	update.Flags().String("description", "", "description")
	sf.AddCommand(update)

	sf.AddCommand(deleteCmd("sub-function", func(ctx context.Context, a *app.App, id string) error {
		return a.Store.DeleteSubFunction(ctx, id)
	}))
	sf.AddCommand(&cobra.Command{
		Use:   "move <id> <function-id> <index>",
		Short: "Move a sub-function within or across functions",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := parseIndex(args[2])
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				if err := a.Store.MoveSubFunction(ctx, args[0], args[1], idx); err != nil {
					return err
				}
				return printResult(map[string]any{"id": args[0], "function_id": args[1], "index": idx}, "Moved sub-function %s", args[0])
			})
		},
	})
	return sf
}

func activityCmd() *cobra.Command {
	act := &cobra.Command{Use: "activity", Aliases: []string{"act"}, Short: "Manage core activities and their links"}
	act.AddCommand(&cobra.Command{
		Use:   "list [sub-function-id]",
		Short: "List core activities, or those linked into a sub-function",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				items, err := a.Store.CoreActivities()
				if len(args) == 1 {
					items, err = a.Store.GetActivitiesForSubFunction(args[0])
				}
				if err != nil {
					return err
				}
				rows := make([]table.Row, 0, len(items))
				for _, c := range items {
					rows = append(rows, table.Row{c.ID, c.Name, c.Status, deref(c.OwnerID), deref(c.RoleID)})
				}
				return printRows(items, table.Row{"ID", "Name", "Status", "Owner", "Role"}, rows)
			})
		},
	})

	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a core activity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			placeholder, _ := cmd.Flags().GetBool("placeholder")
			in := store.ActivityInput{
				Name:        args[0],
				Notes:       deref(changed(cmd, "notes")),
				OwnerID:     changed(cmd, "owner"),
				RoleID:      changed(cmd, "role"),
				Placeholder: placeholder,
			}
			link := deref(changed(cmd, "sub-function"))
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				c, err := a.Store.AddCoreActivity(ctx, in)
				if err != nil {
					return err
				}
				if link != "" {
					if _, err := a.Store.LinkActivityToSubFunction(ctx, link, c.ID, nil); err != nil {
						return err
					}
				}
				return printResult(c, "Added activity %s (%s)", c.ID, c.Name)
			})
		},
	}
	add.Flags().String("notes", "", "notes")
	add.Flags().String("owner", "", "owner person id")
	add.Flags().String("role", "", "role id")
	add.Flags().String("sub-function", "", "also link into this sub-function")
	add.Flags().Bool("placeholder", false, "create as a gap placeholder")
	act.AddCommand(add)

	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a core activity; pass an empty --owner or --role to clear it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch := store.ActivityPatch{
				Name:    changed(cmd, "name"),
				Notes:   changed(cmd, "notes"),
				OwnerID: changed(cmd, "owner"),
				RoleID:  changed(cmd, "role"),
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				c, err := a.Store.UpdateCoreActivity(ctx, args[0], patch)
				if err != nil {
					return err
				}
				return printResult(c, "Updated activity %s (%s)", c.ID, c.Status)
			})
		},
	}
	update.Flags().String("name", "", "name")
	update.Flags().String("notes", "", "notes")
	update.Flags().String("owner", "", "owner person id")
	update.Flags().String("role", "", "role id")
	act.AddCommand(update)

	act.AddCommand(deleteCmd("activity", func(ctx context.Context, a *app.App, id string) error {
		return a.Store.DeleteCoreActivity(ctx, id)
	}))
	act.AddCommand(activityShowCmd())
	act.AddCommand(linkCmd("link", "Link an activity into a sub-function", "<sub-function-id> <activity-id>",
		func(ctx context.Context, a *app.App, args []string, index *int) error {
			_, err := a.Store.LinkActivityToSubFunction(ctx, args[0], args[1], index)
			return err
		}))
	act.AddCommand(linkCmd("unlink", "Remove an activity from a sub-function", "<sub-function-id> <activity-id>",
		func(ctx context.Context, a *app.App, args []string, _ *int) error {
			return a.Store.UnlinkActivityFromSubFunction(ctx, args[0], args[1])
		}))
	act.AddCommand(linkCmd("link-step", "Link an activity into a workflow step", "<step-id> <activity-id>",
		func(ctx context.Context, a *app.App, args []string, index *int) error {
			_, err := a.Store.LinkActivityToStep(ctx, args[0], args[1], index)
			return err
		}))
	act.AddCommand(linkCmd("unlink-step", "Remove an activity from a workflow step", "<step-id> <activity-id>",
		func(ctx context.Context, a *app.App, args []string, _ *int) error {
			return a.Store.UnlinkActivityFromStep(ctx, args[0], args[1])
		}))
	act.AddCommand(&cobra.Command{
		Use:   "move <sub-function-id> <activity-id> <to-sub-function-id> <index>",
		Short: "Move an activity link within or across sub-functions",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := parseIndex(args[3])
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				if err := a.Store.MoveSubFunctionActivity(ctx, args[0], args[1], args[2], idx); err != nil {
					return err
				}
				return printResult(map[string]any{"activity_id": args[1], "sub_function_id": args[2], "index": idx}, "Moved activity %s", args[1])
			})
		},
	})
	act.AddCommand(linkCmd("use-software", "Record that an activity uses a software product", "<activity-id> <software-id>",
		func(ctx context.Context, a *app.App, args []string, _ *int) error {
			return a.Store.LinkSoftware(ctx, args[0], args[1])
		}))
	act.AddCommand(linkCmd("drop-software", "Remove a software product from an activity", "<activity-id> <software-id>",
		func(ctx context.Context, a *app.App, args []string, _ *int) error {
			return a.Store.UnlinkSoftware(ctx, args[0], args[1])
		}))
	act.AddCommand(checklistCmd())
	return act
}

func activityShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show an activity with its software and checklist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				c, err := a.Store.CoreActivity(args[0])
				if err != nil {
					return err
				}
				sw, err := a.Store.SoftwareForActivity(c.ID)
				if err != nil {
					return err
				}
				items, err := a.Store.ChecklistItems(c.ID)
				if err != nil {
					return err
				}
				out := map[string]any{"activity": c, "software": sw, "checklist": items}
				names := make([]string, 0, len(sw))
				for _, s := range sw {
					names = append(names, s.Name)
				}
				if err := printResult(out, "%s (%s) status=%s software=[%s]", c.Name, c.ID, c.Status, strings.Join(names, ", ")); err != nil {
					return err
				}
				if isJSON() {
					return nil
				}
				for _, it := range items {
					box := "[ ]"
					if it.Completed {
						box = "[x]"
					}
					fmt.Printf("  %s %s (%s)\n", box, it.Text, it.ID)
				}
				return nil
			})
		},
	}
}

func checklistCmd() *cobra.Command {
	cl := &cobra.Command{Use: "checklist", Short: "Manage an activity's checklist"}
	add := &cobra.Command{
		Use:   "add <activity-id> <text>",
		Short: "Add a checklist item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			index := indexFlag(cmd)
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				it, err := a.Store.AddChecklistItem(ctx, args[0], args[1], index)
				if err != nil {
					return err
				}
				return printResult(it, "Added checklist item %s", it.ID)
			})
		},
	}
	add.Flags().Int("index", 0, "position in the checklist (default: append)")
	cl.AddCommand(add)
	cl.AddCommand(&cobra.Command{
		Use:   "toggle <item-id>",
		Short: "Flip an item's completed flag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				it, err := a.Store.ToggleChecklistItem(ctx, args[0])
				if err != nil {
					return err
				}
				return printResult(it, "%s completed=%t", it.ID, it.Completed)
			})
		},
	})
	cl.AddCommand(deleteCmd("checklist item", func(ctx context.Context, a *app.App, id string) error {
		return a.Store.DeleteChecklistItem(ctx, id)
	}))
	cl.AddCommand(&cobra.Command{
		Use:   "move <item-id> <index>",
		Short: "Reorder a checklist item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := parseIndex(args[1])
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				if err := a.Store.MoveChecklistItem(ctx, args[0], idx); err != nil {
					return err
				}
				return printResult(map[string]any{"id": args[0], "index": idx}, "Moved checklist item %s", args[0])
			})
		},
	})
	return cl
}

// deleteCmd builds the "delete <id>" subcommand shared by every collection.
func deleteCmd(noun string, del func(ctx context.Context, a *app.App, id string) error) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a " + noun,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				if err := del(ctx, a, args[0]); err != nil {
					return err
				}
				return printResult(map[string]string{"deleted": args[0]}, "Deleted %s %s", noun, args[0])
			})
		},
	}
}

// linkCmd builds a two-argument link/unlink subcommand.
func linkCmd(use, short, argsUsage string, run func(ctx context.Context, a *app.App, args []string, index *int) error) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use + " " + argsUsage,
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			index := indexFlag(cmd)
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				if err := run(ctx, a, args, index); err != nil {
					return err
				}
				return printResult(map[string]string{"parent_id": args[0], "child_id": args[1], "op": use}, "%s: %s -> %s", use, args[0], args[1])
			})
		},
	}
	if strings.HasPrefix(use, "link") {
		cmd.Flags().Int("index", 0, "position among the linked activities (default: append)")
	}
	return cmd
}
