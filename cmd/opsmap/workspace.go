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

func workspaceCmd() *cobra.Command {
	ws := &cobra.Command{Use: "workspace", Aliases: []string{"ws"}, Short: "Manage workspaces"}
	ws.AddCommand(workspaceListCmd())
	ws.AddCommand(workspaceCreateCmd())
	ws.AddCommand(workspaceUseCmd())
	ws.AddCommand(workspaceRenameCmd())
	ws.AddCommand(workspaceDeleteCmd())
	ws.AddCommand(workspaceShowCmd())
	ws.AddCommand(companyCmd())
	return ws
}

func workspaceListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List your workspaces",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				items := a.Store.VisibleWorkspaces()
				active := a.Store.ActiveWorkspaceID()
				rows := make([]table.Row, 0, len(items))
				for _, w := range items {
					mark := ""
					if w.ID == active {
						mark = "*"
					}
					rows = append(rows, table.Row{mark, w.ID, w.Name, w.Company.Name, w.CreatedAt})
				}
				return printRows(items, table.Row{"", "ID", "Name", "Company", "Created"}, rows)
			})
		},
	}
}

func workspaceCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <name>",
		Short: "Create a workspace and make it active",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				w, err := a.Store.CreateWorkspaceForUser(ctx, args[0], a.Session.UserID())
				if err != nil {
					return err
				}
				return printResult(w, "Created workspace %s (%s)", w.ID, w.Name)
			})
		},
	}
}

func workspaceUseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "use <id>",
		Short: "Switch the active workspace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				w, err := a.Store.Workspace(args[0])
				if err != nil {
					return err
				}
				if w.OwnerUserID != a.Session.UserID() {
					return domain.NotFoundError{Kind: domain.KindWorkspace, ID: args[0]}
				}
				a.Store.SwitchWorkspace(ctx, w.ID)
				return printResult(w, "Active workspace: %s (%s)", w.ID, w.Name)
			})
		},
	}
}

func workspaceRenameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <name>",
		Short: "Rename the active workspace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				if err := a.Store.RenameWorkspace(ctx, args[0]); err != nil {
					return err
				}
				w, _ := a.Store.ActiveWorkspace()
				return printResult(w, "Renamed workspace %s to %s", w.ID, w.Name)
			})
		},
	}
}

func workspaceDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a workspace locally",
		Long:  "Deletes the workspace from this device. The deletion is remembered so sync does not bring it back.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				if err := a.Store.DeleteWorkspace(ctx, args[0]); err != nil {
					return err
				}
				return printResult(map[string]string{"deleted": args[0]}, "Deleted workspace %s", args[0])
			})
		},
	}
}

func workspaceShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Summarize the active workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				w, ok := a.Store.ActiveWorkspace()
				if !ok {
					return fmt.Errorf("no active workspace")
				}
				rows := []table.Row{
					{"functions", len(w.Functions)},
					{"sub-functions", len(w.SubFunctions)},
					{"core activities", len(w.CoreActivities)},
					{"workflows", len(w.Workflows)},
					{"phases", len(w.Phases)},
					{"steps", len(w.Steps)},
					{"people", len(w.People)},
					{"roles", len(w.Roles)},
					{"software", len(w.Software)},
				}
				if isJSON() {
					return printJSON(w)
				}
				fmt.Printf("%s (%s), company %s\n", w.Name, w.ID, w.Company.Name)
				return printRows(nil, table.Row{"Collection", "Count"}, rows)
			})
		},
	}
}

func companyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "company",
		Short: "Update the company profile of the active workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			patch := store.CompanyPatch{
				Name:     changed(cmd, "name"),
				Industry: changed(cmd, "industry"),
				Size:     changed(cmd, "size"),
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				c, err := a.Store.UpdateCompany(ctx, patch)
				if err != nil {
					return err
				}
				return printResult(c, "Company: %s (%s, %s)", c.Name, c.Industry, c.Size)
			})
		},
	}
	cmd.Flags().String("name", "", "company name")
	cmd.Flags().String("industry", "", "industry")
	cmd.Flags().String("size", "", "company size")
	return cmd
}
