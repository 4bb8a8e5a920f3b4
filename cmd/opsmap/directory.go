package main

import (
	"context"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"opsmap/internal/app"
	"opsmap/internal/store"
)

func peopleCmd() *cobra.Command {
	pc := &cobra.Command{Use: "people", Aliases: []string{"person"}, Short: "Manage people"}
	pc.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List people",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				items, err := a.Store.People()
				if err != nil {
					return err
				}
				rows := make([]table.Row, 0, len(items))
				for _, p := range items {
					rows = append(rows, table.Row{p.ID, p.Name, p.Email, deref(p.RoleID)})
				}
				return printRows(items, table.Row{"ID", "Name", "Email", "Role"}, rows)
			})
		},
	})
	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a person",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := store.PersonInput{Name: args[0], Email: deref(changed(cmd, "email")), RoleID: changed(cmd, "role")}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				p, err := a.Store.AddPerson(ctx, in)
				if err != nil {
					return err
				}
				return printResult(p, "Added person %s (%s)", p.ID, p.Name)
			})
		},
	}
	add.Flags().String("email", "", "email address")
	add.Flags().String("role", "", "role id")
	pc.AddCommand(add)

	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a person; pass an empty --role to clear it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch := store.PersonPatch{Name: changed(cmd, "name"), Email: changed(cmd, "email"), RoleID: changed(cmd, "role")}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				p, err := a.Store.UpdatePerson(ctx, args[0], patch)
				if err != nil {
					return err
				}
				return printResult(p, "Updated person %s", p.ID)
			})
		},
	}
	update.Flags().String("name", "", "name")
	update.Flags().String("email", "", "email address")
	update.Flags().String("role", "", "role id")
	pc.AddCommand(update)
	pc.AddCommand(deleteCmd("person", func(ctx context.Context, a *app.App, id string) error {
		return a.Store.DeletePerson(ctx, id)
	}))
	return pc
}

func rolesCmd() *cobra.Command {
	rc := &cobra.Command{Use: "roles", Aliases: []string{"role"}, Short: "Manage roles"}
	rc.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List roles",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				items, err := a.Store.Roles()
				if err != nil {
					return err
				}
				rows := make([]table.Row, 0, len(items))
				for _, r := range items {
					rows = append(rows, table.Row{r.ID, r.Name, r.Description})
				}
				return printRows(items, table.Row{"ID", "Name", "Description"}, rows)
			})
		},
	})
	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a role",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			desc := deref(changed(cmd, "description"))
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				r, err := a.Store.AddRole(ctx, args[0], desc)
				if err != nil {
					return err
				}
				return printResult(r, "Added role %s (%s)", r.ID, r.Name)
			})
		},
	}
	add.Flags().String("description", "", "description")
	rc.AddCommand(add)

	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a role",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch := store.RolePatch{Name: changed(cmd, "name"), Description: changed(cmd, "description")}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				r, err := a.Store.UpdateRole(ctx, args[0], patch)
				if err != nil {
					return err
				}
				return printResult(r, "Updated role %s", r.ID)
			})
		},
	}
	update.Flags().String("name", "", "name")
	update.Flags().String("description", "", "description")
	rc.AddCommand(update)
	rc.AddCommand(deleteCmd("role", func(ctx context.Context, a *app.App, id string) error {
		return a.Store.DeleteRole(ctx, id)
	}))
	return rc
}

func softwareCmd() *cobra.Command {
	sc := &cobra.Command{Use: "software", Short: "Manage the software catalog"}
	sc.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List software",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				items, err := a.Store.SoftwareCatalog()
				if err != nil {
					return err
				}
				rows := make([]table.Row, 0, len(items))
				for _, s := range items {
					rows = append(rows, table.Row{s.ID, s.Name, s.Vendor})
				}
				return printRows(items, table.Row{"ID", "Name", "Vendor"}, rows)
			})
		},
	})
	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a software product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := store.SoftwareInput{Name: args[0], Vendor: deref(changed(cmd, "vendor")), Description: deref(changed(cmd, "description"))}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				s, err := a.Store.AddSoftware(ctx, in)
				if err != nil {
					return err
				}
				return printResult(s, "Added software %s (%s)", s.ID, s.Name)
			})
		},
	}
	add.Flags().String("vendor", "", "vendor")
	add.Flags().String("description", "", "description")
	sc.AddCommand(add)

	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a software product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch := store.SoftwarePatch{Name: changed(cmd, "name"), Vendor: changed(cmd, "vendor"), Description: changed(cmd, "description")}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				s, err := a.Store.UpdateSoftware(ctx, args[0], patch)
				if err != nil {
					return err
				}
				return printResult(s, "Updated software %s", s.ID)
			})
		},
	}
	update.Flags().String("name", "", "name")
	update.Flags().String("vendor", "", "vendor")
	update.Flags().String("description", "", "description")
	sc.AddCommand(update)
	sc.AddCommand(deleteCmd("software", func(ctx context.Context, a *app.App, id string) error {
		return a.Store.DeleteSoftware(ctx, id)
	}))
	return sc
}
