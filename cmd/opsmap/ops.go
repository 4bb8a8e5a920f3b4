package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"opsmap/internal/app"
	"opsmap/internal/assist"
	"opsmap/internal/authn"
	"opsmap/internal/config"
	"opsmap/internal/domain"
	"opsmap/internal/events"
	"opsmap/internal/gaps"
	"opsmap/internal/lifecycle"
	"opsmap/internal/logging"
	"opsmap/internal/remote"
	"opsmap/internal/repo"
	"opsmap/internal/server"
	opsmapsdk "opsmap/sdk/go"
)

var kindAliases = map[string]domain.EntityKind{
	"function":      domain.KindFunction,
	"fn":            domain.KindFunction,
	"subfunction":   domain.KindSubFunction,
	"sub_function":  domain.KindSubFunction,
	"sf":            domain.KindSubFunction,
	"activity":      domain.KindCoreActivity,
	"core_activity": domain.KindCoreActivity,
	"workflow":      domain.KindWorkflow,
	"wf":            domain.KindWorkflow,
}

func parseKind(arg string) (domain.EntityKind, error) {
	k, ok := kindAliases[strings.ToLower(arg)]
	if !ok {
		return "", fmt.Errorf("unknown kind %q (function, subfunction, activity, workflow)", arg)
	}
	return k, nil
}

func statusCmd() *cobra.Command {
	sc := &cobra.Command{
		Use:   "status",
		Short: "Move entities through gap/draft/active/archived",
		Long:  "Lifecycle actions: publish (draft -> active), edit (active -> draft), archive (any -> archived), restore (archived -> draft).",
	}
	actions := []struct {
		use    string
		action lifecycle.Action
	}{
		{"publish", lifecycle.ActionPublish},
		{"edit", lifecycle.ActionStartEdit},
		{"archive", lifecycle.ActionArchive},
		{"restore", lifecycle.ActionRestore},
	}
	for _, spec := range actions {
		action := spec.action
		sc.AddCommand(&cobra.Command{
			Use:   spec.use + " <kind> <id>",
			Short: "Apply " + string(action) + " to an entity",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				kind, err := parseKind(args[0])
				if err != nil {
					return err
				}
				return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
					next, err := a.Store.Apply(ctx, kind, args[1], action)
					if err != nil {
						return err
					}
					return printResult(map[string]any{"kind": kind, "id": args[1], "status": next}, "%s %s is now %s", kind, args[1], next)
				})
			},
		})
	}
	sc.AddCommand(&cobra.Command{
		Use:   "allowed <kind> <id>",
		Short: "List the actions an entity currently accepts",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseKind(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				allowed, err := a.Store.AllowedActions(kind, args[1])
				if err != nil {
					return err
				}
				names := make([]string, 0, len(allowed))
				for _, act := range allowed {
					names = append(names, string(act))
				}
				return printResult(allowed, "%s", strings.Join(names, ", "))
			})
		},
	})
	return sc
}

func gapsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gaps",
		Short: "List structural gaps in the active workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				report, err := a.Store.GapAnalysis()
				if err != nil {
					return err
				}
				unlinked, err := a.Store.UnlinkedActivities()
				if err != nil {
					return err
				}
				var rows []table.Row
				for _, k := range gaps.Kinds {
					for _, id := range report[k] {
						rows = append(rows, table.Row{k, id})
					}
				}
				for _, id := range unlinked {
					rows = append(rows, table.Row{"unlinkedActivities", id})
				}
				out := map[string]any{"gaps": report, "total": report.Total(), "unlinked_activities": unlinked}
				if !isJSON() && len(rows) == 0 {
					fmt.Println("No gaps found.")
					return nil
				}
				return printRows(out, table.Row{"Gap", "Entity"}, rows)
			})
		},
	}
}

func syncCmd() *cobra.Command {
	sc := &cobra.Command{
		Use:   "sync",
		Short: "Merge the local workspaces with the remote copy",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := app.Open(cmd.Context(), cfg, app.Options{LogOutput: os.Stderr})
			if err != nil {
				return err
			}
			defer a.Close()
			res, err := a.Sync.Sync(cmd.Context())
			if err != nil && !errors.Is(err, domain.ErrNotConfigured) {
				return err
			}
			out := map[string]any{"result": res, "status": a.Sync.Status()}
			if isJSON() {
				return printJSON(out)
			}
			if res.Skipped != "" {
				fmt.Printf("Sync skipped: %s\n", res.Skipped)
				return nil
			}
			fmt.Printf("Synced %s: adopted=%d merged=%d local_only=%d uploaded=%d\n",
				res.UserID, res.Stats.Adopted, res.Stats.Merged, res.Stats.LocalOnly, res.Uploaded)
			return nil
		},
	}
	sc.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the last sync state",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := app.Open(cmd.Context(), cfg, app.Options{LogOutput: os.Stderr})
			if err != nil {
				return err
			}
			defer a.Close()
			meta := a.Sync.Status()
			return printResult(meta, "enabled=%t status=%s last=%s user=%s %s", meta.Enabled, meta.Status, meta.LastSyncedAt, meta.LastUserID, meta.Error)
		},
	})
	return sc
}

func logCmd() *cobra.Command {
	lc := &cobra.Command{Use: "log", Short: "Inspect the lifecycle event log"}
	var limit int
	var typ, kind, entity string
	tail := &cobra.Command{
		Use:   "tail",
		Short: "Show recent lifecycle events",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			conn, err := app.OpenDB(cmd.Context(), cfg.Local.Dir)
			if err != nil {
				return err
			}
			defer conn.Close()
			w := events.Writer{DB: conn}
			items, err := w.Latest(cmd.Context(), events.Filter{Type: typ, EntityKind: kind, EntityID: entity, Limit: limit})
			if err != nil {
				return err
			}
			rows := make([]table.Row, 0, len(items))
			for _, e := range items {
				rows = append(rows, table.Row{e.ID, e.TS, e.Type, e.EntityKind, e.EntityID, e.ActorID})
			}
			return printRows(items, table.Row{"ID", "Time", "Type", "Kind", "Entity", "Actor"}, rows)
		},
	}
	tail.Flags().IntVar(&limit, "limit", 20, "number of events")
	tail.Flags().StringVar(&typ, "type", "", "event type filter")
	tail.Flags().StringVar(&kind, "kind", "", "entity kind filter")
	tail.Flags().StringVar(&entity, "entity", "", "entity id filter")
	lc.AddCommand(tail)
	return lc
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	var devLogin bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the hosted backend API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Server.Addr
			}
			if basePath == "" {
				basePath = cfg.Server.BasePath
			}
			if cfg.Auth.JWTSecret == "" {
				return fmt.Errorf("auth.jwt_secret (or OPSMAP_JWT_SECRET) is required for bearer auth")
			}
			log, err := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
			if err != nil {
				return err
			}

			var st server.WorkspaceStore
			switch cfg.Server.Store {
			case config.RemoteRedis:
				rs, err := remote.NewRedisStore(cfg.Remote.RedisURL)
				if err != nil {
					return err
				}
				defer rs.Close()
				st = rs
			default:
				conn, err := app.OpenDB(cmd.Context(), cfg.Local.Dir)
				if err != nil {
					return err
				}
				defer conn.Close()
				st = repo.Repo{DB: conn}
			}
			var gen assist.Generator
			if cfg.Assist.Endpoint != "" {
				gen = assist.NewHTTPGenerator(cfg.Assist.Endpoint, cfg.Assist.APIKey, cfg.Assist.Timeout)
			}
			handler, err := server.New(server.Config{
				Store:        st,
				Assist:       gen,
				DefaultModel: cfg.Assist.DefaultModel,
				BasePath:     basePath,
				Auth:         server.AuthConfig{JWTSecret: cfg.Auth.JWTSecret, TokenTTL: cfg.Auth.TokenTTL, AllowDevLogin: devLogin},
				Version:      version,
				Logger:       &log,
			})
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(shutdownCtx)
			}()
			log.Info().Str("addr", addr).Str("store", cfg.Server.Store).Bool("dev_login", devLogin).Msg("serving opsmap API")
			fmt.Printf("Serving opsmap API on http://%s (OpenAPI under the base path, Swagger UI at /docs, metrics at /metrics)\n", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default server.addr)")
	cmd.Flags().StringVar(&basePath, "base-path", "", "base path for API routes (default /v0)")
	cmd.Flags().BoolVar(&devLogin, "dev-login", false, "enable POST {base}/auth/dev/login")
	return cmd
}

func tokenCmd() *cobra.Command {
	var ttl time.Duration
	var save bool
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for the configured user",
		Long:  "Signs a token with auth.jwt_secret. With --save the token is written to .env as OPSMAP_REMOTE_TOKEN.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Auth.JWTSecret == "" {
				return fmt.Errorf("auth.jwt_secret (or OPSMAP_JWT_SECRET) is required to mint tokens")
			}
			if cfg.User.ID == "" {
				return fmt.Errorf("no user configured; set user.id, --user or OPSMAP_USER")
			}
			if ttl <= 0 {
				ttl = cfg.Auth.TokenTTL
			}
			tok, err := authn.Mint(cfg.Auth.JWTSecret, cfg.User.ID, ttl, time.Now())
			if err != nil {
				return err
			}
			if save {
				if err := saveEnv(filepath.Join(cfg.Local.Dir, ".env"), "OPSMAP_REMOTE_TOKEN", tok); err != nil {
					return err
				}
			}
			return printResult(map[string]any{"access_token": tok, "expires_in": int64(ttl / time.Second)}, "%s", tok)
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default auth.token_ttl)")
	cmd.Flags().BoolVar(&save, "save", false, "store the token in .env")
	return cmd
}

// saveEnv sets key in the dotenv file at path, keeping the other entries.
func saveEnv(path, key, value string) error {
	env, err := godotenv.Read(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		env = map[string]string{}
	}
	env[key] = value
	return godotenv.Write(env, path)
}

func assistCmd() *cobra.Command {
	var model, inputFile string
	cmd := &cobra.Command{
		Use:   "assist <workflows|functionChart|gapAnalysis|meetingAnalysis>",
		Short: "Ask the generation service for drafts or findings",
		Long: `workflows reads a transcript and drafts workflows.
functionChart proposes a function chart from the workspace's workflows.
gapAnalysis reviews the current chart.
meetingAnalysis reads meeting notes and suggests chart changes.
Text input comes from --input or stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			action := assist.Action(args[0])
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				ws, ok := a.Store.ActiveWorkspace()
				if !ok {
					return fmt.Errorf("no active workspace")
				}
				req := assist.Request{Action: action, Model: model}
				switch action {
				case assist.ActionWorkflows, assist.ActionMeetingAnalysis:
					text, err := readInput(inputFile, cmd.InOrStdin())
					if err != nil {
						return err
					}
					if action == assist.ActionWorkflows {
						req.Transcript = text
						req.CompanyProfile = &assist.CompanyProfile{Name: ws.Company.Name, Industry: ws.Company.Industry, Size: ws.Company.Size}
					} else {
						req.Notes = text
						req.Chart = assist.ChartOf(ws)
					}
				case assist.ActionFunctionChart:
					req.Workflows, req.Phases, req.Steps = ws.Workflows, ws.Phases, ws.Steps
				case assist.ActionGapAnalysis:
					req.Chart = assist.ChartOf(ws)
				}
				resp, err := runAssist(ctx, a, req)
				if err != nil {
					return err
				}
				return printAssist(resp)
			})
		},
	}
	cmd.Flags().StringVar(&model, "model", "", "model selector (default assist.default_model)")
	cmd.Flags().StringVar(&inputFile, "input", "", "file holding the transcript or notes")
	return cmd
}

// runAssist prefers the hosted backend when one is configured and otherwise
// calls the generation endpoint directly.
func runAssist(ctx context.Context, a *app.App, req assist.Request) (assist.Response, error) {
	cfg := a.Config
	if cfg.Remote.Kind == config.RemoteHTTP {
		if req.Model == "" {
			req.Model = cfg.Assist.DefaultModel
		}
		if err := assist.Validate(req); err != nil {
			return assist.Response{}, err
		}
		client := opsmapsdk.New(cfg.Remote.URL)
		client.TokenSource = a.Session.Token
		return client.Assist(ctx, req)
	}
	var gen assist.Generator
	if cfg.Assist.Endpoint != "" {
		gen = assist.NewHTTPGenerator(cfg.Assist.Endpoint, cfg.Assist.APIKey, cfg.Assist.Timeout)
	}
	return assist.Run(ctx, gen, req, cfg.Assist.DefaultModel)
}

func printAssist(resp assist.Response) error {
	if isJSON() {
		return printJSON(resp)
	}
	for _, wf := range resp.Workflows {
		fmt.Printf("Workflow: %s\n", wf.Name)
		for _, p := range wf.Phases {
			fmt.Printf("  %s: %s\n", p.Name, strings.Join(p.Steps, " -> "))
		}
	}
	if resp.Chart != nil {
		rows := make([]table.Row, 0, len(resp.Chart.Functions))
		for _, f := range resp.Chart.Functions {
			var subs []string
			for _, s := range resp.Chart.SubFunctions {
				if s.FunctionID == f.ID {
					subs = append(subs, s.Name)
				}
			}
			rows = append(rows, table.Row{f.Name, strings.Join(subs, ", ")})
		}
		if err := printRows(nil, table.Row{"Function", "Sub-functions"}, rows); err != nil {
			return err
		}
	}
	for _, f := range resp.Findings {
		fmt.Printf("[%s] %s: %s\n", f.Severity, f.Title, f.Detail)
	}
	for _, d := range resp.Deltas {
		fmt.Printf("%s %s %s %s\n", d.Op, d.Kind, d.ID, d.Name)
	}
	return nil
}

func readInput(path string, stdin io.Reader) (string, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func init() {
	_ = viper.BindEnv("remote-token", "OPSMAP_REMOTE_TOKEN")
	_ = viper.BindEnv("jwt-secret", "OPSMAP_JWT_SECRET")
	_ = viper.BindEnv("assist-api-key", "OPSMAP_ASSIST_API_KEY")
}
