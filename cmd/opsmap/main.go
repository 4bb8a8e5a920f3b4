package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"opsmap/internal/app"
	"opsmap/internal/config"
	"opsmap/internal/domain"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "opsmap",
	Short: "opsmap CLI",
	Long: `opsmap maps how a business operates and keeps the map in sync across devices.
Core concepts:
- Workspace: one company's map. Each user owns their workspaces; one is active at a time.
- Functions and sub-functions: the organizational chart of what the company does.
- Core activities: the concrete work, linked into sub-functions and into workflow steps.
- Workflows, phases and steps: how work flows through the company over time.
- Status: gap -> draft -> active -> archived. Editing an active entity moves it back to draft; adding content to a gap makes it a draft.
- Gaps: functions without sub-functions, sub-functions without activities, phases without steps.
- Sync: local changes are merged with the remote copy, newest modification wins per entity.`,
	SilenceUsage: true,
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	dir := viper.GetString("dir")
	if dir == "" {
		dir = "."
	}
	if err := godotenv.Load(filepath.Join(dir, ".env")); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "warning: .env:", err)
	}
	viper.SetEnvPrefix("OPSMAP")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("dir", "d", ".", "workspace directory holding opsmap.yml and .opsmap/")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("user", "", "user id (overrides user.id)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (overrides log.level)")
	rootCmd.PersistentFlags().Bool("offline", false, "skip the sync cycle on startup")
	for _, name := range []string{"dir", "json", "user", "log-level", "offline"} {
		_ = viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name))
	}
}

func registerCommands() {
	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(workspaceCmd())
	rootCmd.AddCommand(functionCmd())
	rootCmd.AddCommand(subFunctionCmd())
	rootCmd.AddCommand(activityCmd())
	rootCmd.AddCommand(workflowCmd())
	rootCmd.AddCommand(phaseCmd())
	rootCmd.AddCommand(stepCmd())
	rootCmd.AddCommand(peopleCmd())
	rootCmd.AddCommand(rolesCmd())
	rootCmd.AddCommand(softwareCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(gapsCmd())
	rootCmd.AddCommand(syncCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(tokenCmd())
	rootCmd.AddCommand(assistCmd())
}

func initCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter opsmap.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := viper.GetString("dir")
			path := config.Path(dir)
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			user := strings.TrimSpace(viper.GetString("user"))
			if user == "" {
				user = "local-user"
			}
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault(user)), 0o644); err != nil {
				return err
			}
			conn, err := app.OpenDB(cmd.Context(), dir)
			if err != nil {
				return err
			}
			defer conn.Close()
			fmt.Printf("Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config")
	return cmd
}

// loadConfig reads opsmap.yml from --dir and applies flag and env overrides.
func loadConfig() (*config.Config, error) {
	dir := viper.GetString("dir")
	cfg, err := config.LoadOptional(dir)
	if err != nil {
		return nil, err
	}
	if dir != "" {
		cfg.Local.Dir = dir
	}
	if v := strings.TrimSpace(viper.GetString("user")); v != "" {
		cfg.User.ID = v
	}
	if v := viper.GetString("log-level"); v != "" {
		cfg.Log.Level = v
	}
	if v := viper.GetString("remote-token"); v != "" {
		cfg.Remote.Token = v
	}
	if v := viper.GetString("jwt-secret"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := viper.GetString("assist-api-key"); v != "" {
		cfg.Assist.APIKey = v
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// withApp opens the local workspace and runs the startup sync cycle. A failed
// cycle is reported but does not block local work. Local changes made by fn are
// pushed with a second cycle.
func withApp(ctx context.Context, fn func(context.Context, *app.App) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.User.ID == "" {
		return fmt.Errorf("no user configured; set user.id in opsmap.yml, --user or OPSMAP_USER")
	}
	a, err := app.Open(ctx, cfg, app.Options{LogOutput: os.Stderr})
	if err != nil {
		return err
	}
	defer a.Close()
	if viper.GetBool("offline") {
		if err := a.Store.SetCurrentUser(ctx, cfg.User.ID); err != nil {
			return err
		}
		if _, _, err := a.Store.EnsureDefaultWorkspace(ctx, cfg.User.ID); err != nil {
			return err
		}
	} else if _, err := a.Sync.OnSessionChange(ctx); err != nil && !errors.Is(err, domain.ErrNotConfigured) {
		a.Log.Warn().Err(err).Msg("startup sync failed; working from local state")
	}
	before := a.Store.Snapshot().Version
	if err := fn(ctx, a); err != nil {
		return err
	}
	if viper.GetBool("offline") || !a.Sync.Enabled() || a.Store.Snapshot().Version == before {
		return nil
	}
	if _, err := a.Sync.Sync(ctx); err != nil {
		a.Log.Warn().Err(err).Msg("push failed; changes stay local until the next sync")
	}
	return nil
}

func isJSON() bool {
	return viper.GetBool("json")
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printRows prints v as JSON with --json and otherwise renders the table.
func printRows(v any, header table.Row, rows []table.Row) error {
	if isJSON() {
		return printJSON(v)
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(header)
	tw.AppendRows(rows)
	tw.Render()
	return nil
}

func printResult(v any, format string, args ...any) error {
	if isJSON() {
		return printJSON(v)
	}
	fmt.Printf(format+"\n", args...)
	return nil
}

// changed returns a pointer to the flag value when the flag was set.
func changed(cmd *cobra.Command, name string) *string {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetString(name)
	return &v
}

// indexFlag returns the --index value when set; nil appends.
func indexFlag(cmd *cobra.Command) *int {
	if !cmd.Flags().Changed("index") {
		return nil
	}
	v, _ := cmd.Flags().GetInt("index")
	return &v
}

func parseIndex(arg string) (int, error) {
	n, err := strconv.Atoi(arg)
	if err != nil {
		return 0, fmt.Errorf("index %q is not a number", arg)
	}
	return n, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
