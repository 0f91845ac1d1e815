// Package main provides the CLI entrypoint for franklin.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/verte-zerg/franklin/internal/auth"
	"github.com/verte-zerg/franklin/internal/calendar"
	"github.com/verte-zerg/franklin/internal/config"
	"github.com/verte-zerg/franklin/internal/csvio"
	"github.com/verte-zerg/franklin/internal/generator"
	"github.com/verte-zerg/franklin/internal/logging"
	"github.com/verte-zerg/franklin/internal/model"
	"github.com/verte-zerg/franklin/internal/server"
	"github.com/verte-zerg/franklin/internal/stats"
	"github.com/verte-zerg/franklin/internal/statsui"
	"github.com/verte-zerg/franklin/internal/store"
	"github.com/verte-zerg/franklin/internal/tui"
)

const (
	defaultUser        = "local@franklin"
	defaultDays        = 7
	defaultPeriod      = string(calendar.PeriodWeek)
	defaultTickProb    = 0.7
	defaultCurveWindow = 7
	defaultWeakTop     = 3
	defaultLogLevel    = "info"
)

var (
	dbPath   string
	userFlag string

	serveAddr     string
	serveLogLevel string

	gridDays   int
	gridPeriod string

	statsPeriod      string
	statsJSON        bool
	statsPlain       bool
	statsCurveWindow int
	statsWeakTop     int

	ruleNumber      int
	ruleDescription string

	seedDays int
	seedTick float64

	tokenTTL time.Duration
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "franklin",
		Short:         "Benjamin Franklin Method habit tracker",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runGridCmd,
	}

	rootCmd.PersistentFlags().StringVar(&dbPath, "db", config.DefaultDBPath(), "path to the SQLite database")
	rootCmd.PersistentFlags().StringVar(&userFlag, "user", defaultUser, "email of the local user")
	addGridFlags(rootCmd)

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newGridCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newRulesCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newImportCmd())
	rootCmd.AddCommand(newSeedCmd())
	rootCmd.AddCommand(newTokenCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}

func loadFileConfig() (config.FileConfig, error) {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return config.FileConfig{}, fmt.Errorf("failed to load config: %w", err)
	}
	return fileCfg, nil
}

func openStore() (*store.Store, func(), error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open db: %w", err)
	}
	closeFn := func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}
	return st, closeFn, nil
}

// localUser returns the account the terminal commands act on, creating it on first use.
func localUser(ctx context.Context, st *store.Store, cmd *cobra.Command, fileCfg config.FileConfig) (model.User, error) {
	applyStringConfig(cmd, "user", &userFlag, fileCfg.Tracker.User)
	email := store.NormalizeEmail(userFlag)
	if email == "" {
		return model.User{}, fmt.Errorf("--user must not be empty")
	}
	user, err := st.GetUserByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return model.User{}, fmt.Errorf("failed to load user: %w", err)
	}
	user, err = st.UpsertUserByEmail(ctx, model.User{Email: email})
	if err != nil {
		return model.User{}, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE:  runServeCmd,
	}
	cmd.Flags().StringVar(&serveAddr, "addr", server.DefaultAddr, "listen address")
	cmd.Flags().StringVar(&serveLogLevel, "log-level", defaultLogLevel, "log level (debug, info, warn, error)")
	return cmd
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := loadFileConfig()
	if err != nil {
		return err
	}
	srvCfg := fileCfg.Server
	applyStringConfig(cmd, "addr", &serveAddr, srvCfg.Addr)
	applyStringConfig(cmd, "log-level", &serveLogLevel, srvCfg.LogLevel)

	logger, err := logging.New(serveLogLevel)
	if err != nil {
		return err
	}
	defer func() {
		// Best-effort flush; stderr sync fails on some terminals.
		_ = logger.Sync()
	}()

	secret := stringValue(srvCfg.JWTSecret)
	if env := os.Getenv("FRANKLIN_JWT_SECRET"); env != "" {
		secret = env
	}
	issuer, err := auth.NewIssuer(secret, 0)
	if err != nil {
		return fmt.Errorf("%w (set [server] jwt-secret or FRANKLIN_JWT_SECRET)", err)
	}
	clientID := stringValue(srvCfg.GoogleClientID)
	if clientID == "" {
		logger.Warn("google-client-id is not configured; Google sign-in will be rejected")
	}

	st, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	opts := server.Options{
		AdminEmails: srvCfg.AdminEmails,
		CORSOrigin:  stringValue(srvCfg.CORSOrigin),
	}
	if srvCfg.AuthRate != nil {
		opts.AuthRate = *srvCfg.AuthRate
	}
	srv := server.New(st, issuer, auth.NewIDTokenVerifier(clientID), logger, opts)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	logger.Info("starting server", zap.String("addr", serveAddr), zap.String("db", dbPath))
	if err := srv.Run(ctx, serveAddr); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

func addGridFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&gridDays, "days", defaultDays, "number of days shown")
	cmd.Flags().StringVar(&gridPeriod, "period", defaultPeriod, "statistics period in the footer")
}

func newGridCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grid",
		Short: "Open the habit grid",
		Args:  cobra.NoArgs,
		RunE:  runGridCmd,
	}
	addGridFlags(cmd)
	return cmd
}

func runGridCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := loadFileConfig()
	if err != nil {
		return err
	}
	applyIntConfig(cmd, "days", &gridDays, fileCfg.Tracker.Days)
	applyStringConfig(cmd, "period", &gridPeriod, fileCfg.Tracker.Period)
	if gridDays <= 0 {
		return fmt.Errorf("--days must be > 0")
	}

	st, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	ctx := context.Background()
	user, err := localUser(ctx, st, cmd, fileCfg)
	if err != nil {
		return err
	}
	cfg := model.TrackerConfig{
		UserEmail: user.Email,
		Period:    calendar.ParsePeriod(gridPeriod),
		Days:      gridDays,
	}
	m, err := tui.NewModel(ctx, cfg, st, user.ID, time.Now)
	if err != nil {
		return err
	}
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show statistics",
		Args:  cobra.NoArgs,
		RunE:  runStatsCmd,
	}
	cmd.Flags().StringVar(&statsPeriod, "period", defaultPeriod, "1week, 1month, 3months, 6months, 1year or forever")
	cmd.Flags().BoolVar(&statsJSON, "json", false, "print statistics as JSON")
	cmd.Flags().BoolVar(&statsPlain, "plain", false, "print a text report instead of the browser")
	cmd.Flags().IntVar(&statsCurveWindow, "curve-window", defaultCurveWindow, "moving average window in days")
	cmd.Flags().IntVar(&statsWeakTop, "weak-top", defaultWeakTop, "number of weakest rules shown")
	return cmd
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := loadFileConfig()
	if err != nil {
		return err
	}
	applyStringConfig(cmd, "period", &statsPeriod, fileCfg.Tracker.Period)
	if statsCurveWindow < 1 {
		return fmt.Errorf("--curve-window must be >= 1")
	}
	if statsWeakTop < 1 {
		return fmt.Errorf("--weak-top must be >= 1")
	}

	st, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	ctx := context.Background()
	user, err := localUser(ctx, st, cmd, fileCfg)
	if err != nil {
		return err
	}
	cfg := model.StatsConfig{
		UserEmail:   user.Email,
		Period:      calendar.ParsePeriod(statsPeriod),
		CurveWindow: statsCurveWindow,
		WeakTop:     statsWeakTop,
	}

	out := cmd.OutOrStdout()
	if statsJSON || statsPlain || !isTerminal(os.Stdout) {
		report, err := stats.BuildReport(ctx, st, user.ID, cfg.Period, time.Now(), cfg.CurveWindow)
		if err != nil {
			return fmt.Errorf("failed to compute stats: %w", err)
		}
		if statsJSON {
			return writeJSON(out, report.Stats)
		}
		return writePlainReport(out, report, cfg.WeakTop)
	}

	m := statsui.NewModel(st, user.ID, cfg, time.Now)
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run stats TUI: %w", err)
	}
	return nil
}

func writePlainReport(w io.Writer, report stats.Report, weakTop int) error {
	if err := stats.RenderSummary(w, report); err != nil {
		return err
	}
	if len(report.Stats.RuleProgress) == 0 {
		return nil
	}
	if err := stats.RenderRuleTable(w, report.Stats.RuleProgress); err != nil {
		return err
	}
	if weak := stats.WeakestRules(report.Stats.RuleProgress, weakTop); len(weak) > 0 {
		names := make([]string, len(weak))
		for i, rp := range weak {
			names[i] = fmt.Sprintf("%d. %s (%.2f%%)", rp.RuleNumber, rp.RuleName, rp.CompletionRate)
		}
		if _, err := fmt.Fprintf(w, "Needs attention: %s\n\n", strings.Join(names, ", ")); err != nil {
			return err
		}
	}
	return stats.RenderTrend(w, report.Daily, report.Window)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func newRulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage rules",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List rules",
		Args:  cobra.NoArgs,
		RunE:  runRulesListCmd,
	}
	add := &cobra.Command{
		Use:   "add NAME",
		Short: "Add a rule",
		Args:  cobra.ExactArgs(1),
		RunE:  runRulesAddCmd,
	}
	add.Flags().IntVar(&ruleNumber, "number", 0, "rule number (default: next free number)")
	add.Flags().StringVar(&ruleDescription, "description", "", "rule description")
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create the default rules",
		Args:  cobra.NoArgs,
		RunE:  runRulesInitCmd,
	}
	remove := &cobra.Command{
		Use:   "remove NUMBER",
		Short: "Delete a rule by number",
		Args:  cobra.ExactArgs(1),
		RunE:  runRulesRemoveCmd,
	}

	cmd.AddCommand(list, add, initCmd, remove)
	return cmd
}

// withLocalUser opens the store, resolves the local user and runs fn.
func withLocalUser(cmd *cobra.Command, fn func(ctx context.Context, st *store.Store, user model.User) error) error {
	fileCfg, err := loadFileConfig()
	if err != nil {
		return err
	}
	st, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	user, err := localUser(ctx, st, cmd, fileCfg)
	if err != nil {
		return err
	}
	return fn(ctx, st, user)
}

func runRulesListCmd(cmd *cobra.Command, _ []string) error {
	return withLocalUser(cmd, func(ctx context.Context, st *store.Store, user model.User) error {
		rules, err := st.ListRules(ctx, user.ID)
		if err != nil {
			return fmt.Errorf("failed to list rules: %w", err)
		}
		if len(rules) == 0 {
			logErrln("No rules yet. Create the defaults with: franklin rules init")
			return nil
		}
		return printRules(cmd.OutOrStdout(), rules)
	})
}

func printRules(w io.Writer, rules []model.Rule) error {
	for _, r := range rules {
		state := "active"
		if !r.IsActive {
			state = "inactive"
		}
		line := fmt.Sprintf("%3d  %-12s %-8s %s", r.Number, r.Name, state, r.Description)
		if _, err := fmt.Fprintln(w, strings.TrimRight(line, " ")); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func runRulesAddCmd(cmd *cobra.Command, args []string) error {
	name := strings.TrimSpace(args[0])
	if name == "" {
		return fmt.Errorf("rule name must not be empty")
	}
	if ruleNumber < 0 {
		return fmt.Errorf("--number must be >= 1")
	}
	return withLocalUser(cmd, func(ctx context.Context, st *store.Store, user model.User) error {
		number := ruleNumber
		if number == 0 {
			rules, err := st.ListRules(ctx, user.ID)
			if err != nil {
				return fmt.Errorf("failed to list rules: %w", err)
			}
			number = nextRuleNumber(rules)
		}
		rule, err := st.CreateRule(ctx, model.Rule{
			UserID:      user.ID,
			Number:      number,
			Name:        name,
			Description: strings.TrimSpace(ruleDescription),
			IsActive:    true,
		})
		if err != nil {
			if errors.Is(err, store.ErrDuplicateRuleNumber) {
				return fmt.Errorf("rule number %d is already taken", number)
			}
			return fmt.Errorf("failed to create rule: %w", err)
		}
		logErrf("Added rule %d (%s)\n", rule.Number, rule.Name)
		return nil
	})
}

func nextRuleNumber(rules []model.Rule) int {
	next := 1
	for _, r := range rules {
		if r.Number >= next {
			next = r.Number + 1
		}
	}
	return next
}

func runRulesInitCmd(cmd *cobra.Command, _ []string) error {
	return withLocalUser(cmd, func(ctx context.Context, st *store.Store, user model.User) error {
		rules, created, err := st.InitDefaultRules(ctx, user.ID)
		if err != nil {
			return fmt.Errorf("failed to create default rules: %w", err)
		}
		if !created {
			logErrln("Rules already exist; nothing created.")
		}
		return printRules(cmd.OutOrStdout(), rules)
	})
}

func runRulesRemoveCmd(cmd *cobra.Command, args []string) error {
	number, err := parsePositive(args[0])
	if err != nil {
		return fmt.Errorf("invalid rule number %q", args[0])
	}
	return withLocalUser(cmd, func(ctx context.Context, st *store.Store, user model.User) error {
		rules, err := st.ListRules(ctx, user.ID)
		if err != nil {
			return fmt.Errorf("failed to list rules: %w", err)
		}
		for _, r := range rules {
			if r.Number != number {
				continue
			}
			if err := st.DeleteRule(ctx, user.ID, r.ID); err != nil {
				return fmt.Errorf("failed to delete rule: %w", err)
			}
			logErrf("Removed rule %d (%s)\n", r.Number, r.Name)
			return nil
		}
		return fmt.Errorf("rule %d not found", number)
	})
}

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write CSV to stdout",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "progress",
		Short: "Export grid entries (date, rule, status)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withLocalUser(cmd, func(ctx context.Context, st *store.Store, user model.User) error {
				entries, err := st.ListGridEntries(ctx, user.ID)
				if err != nil {
					return fmt.Errorf("failed to load grid: %w", err)
				}
				return csvio.WriteProgress(cmd.OutOrStdout(), entries)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "rules",
		Short: "Export rules (number, name, description, active)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withLocalUser(cmd, func(ctx context.Context, st *store.Store, user model.User) error {
				rules, err := st.ListRules(ctx, user.ID)
				if err != nil {
					return fmt.Errorf("failed to list rules: %w", err)
				}
				return csvio.WriteRules(cmd.OutOrStdout(), rules)
			})
		},
	})
	return cmd
}

func newImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Replace data from a CSV file",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "progress FILE",
		Short: "Replace grid entries from CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := readCSVFile(args[0], csvio.ReadProgress)
			if err != nil {
				return err
			}
			return withLocalUser(cmd, func(ctx context.Context, st *store.Store, user model.User) error {
				n, err := st.ReplaceGridEntries(ctx, user.ID, entries)
				if err != nil {
					return fmt.Errorf("failed to import progress: %w", err)
				}
				logErrf("Imported %d grid entries\n", n)
				return nil
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "rules FILE",
		Short: "Replace rules from CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rules, err := readCSVFile(args[0], csvio.ReadRules)
			if err != nil {
				return err
			}
			return withLocalUser(cmd, func(ctx context.Context, st *store.Store, user model.User) error {
				n, err := st.ReplaceRules(ctx, user.ID, rules)
				if err != nil {
					return fmt.Errorf("failed to import rules: %w", err)
				}
				logErrf("Imported %d rules\n", n)
				return nil
			})
		},
	})
	return cmd
}

func readCSVFile[T any](path string, read func(io.Reader) ([]T, error)) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			logErrf("failed to close %s: %v\n", path, cerr)
		}
	}()
	rows, err := read(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return rows, nil
}

func newSeedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Fill the local grid with demo data",
		Args:  cobra.NoArgs,
		RunE:  runSeedCmd,
	}
	cmd.Flags().IntVar(&seedDays, "days", defaultDays, "number of days to fill")
	cmd.Flags().Float64Var(&seedTick, "tick", defaultTickProb, "probability of a tick per cell (0-1)")
	return cmd
}

func runSeedCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := loadFileConfig()
	if err != nil {
		return err
	}
	applyFloatConfig(cmd, "tick", &seedTick, fileCfg.Tracker.TickProbability)
	if seedDays <= 0 {
		return fmt.Errorf("--days must be > 0")
	}
	if seedTick < 0 || seedTick > 1 {
		return fmt.Errorf("--tick must be between 0 and 1")
	}
	return withLocalUser(cmd, func(ctx context.Context, st *store.Store, user model.User) error {
		summary, err := generator.New().Seed(ctx, st, user.ID, calendar.DayOf(time.Now()), seedDays, seedTick)
		if err != nil {
			return fmt.Errorf("failed to seed: %w", err)
		}
		logErrf("Seeded %d rules, %d grid entries, %d notes\n", summary.Rules, summary.GridData, summary.Texts)
		return nil
	})
}

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token EMAIL",
		Short: "Issue an API bearer token for a user",
		Args:  cobra.ExactArgs(1),
		RunE:  runTokenCmd,
	}
	cmd.Flags().DurationVar(&tokenTTL, "ttl", auth.DefaultTokenTTL, "token lifetime")
	return cmd
}

func runTokenCmd(cmd *cobra.Command, args []string) error {
	fileCfg, err := loadFileConfig()
	if err != nil {
		return err
	}
	secret := stringValue(fileCfg.Server.JWTSecret)
	if env := os.Getenv("FRANKLIN_JWT_SECRET"); env != "" {
		secret = env
	}
	issuer, err := auth.NewIssuer(secret, tokenTTL)
	if err != nil {
		return fmt.Errorf("%w (set [server] jwt-secret or FRANKLIN_JWT_SECRET)", err)
	}

	st, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	ctx := context.Background()
	email := store.NormalizeEmail(args[0])
	user, err := st.GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		user, err = st.UpsertUserByEmail(ctx, model.User{
			Email:   email,
			IsAdmin: fileCfg.Server.IsAdminEmail(email),
		})
	}
	if err != nil {
		return fmt.Errorf("failed to resolve user: %w", err)
	}
	token, err := issuer.Issue(user)
	if err != nil {
		return fmt.Errorf("failed to issue token: %w", err)
	}
	if _, err := fmt.Fprintln(cmd.OutOrStdout(), token); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o600); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if flagChanged(cmd, name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if flagChanged(cmd, name) {
		return
	}
	*target = *value
}

func applyFloatConfig(cmd *cobra.Command, name string, target, value *float64) {
	if value == nil {
		return
	}
	if flagChanged(cmd, name) {
		return
	}
	*target = *value
}

// flagChanged also looks at inherited flags such as --user.
func flagChanged(cmd *cobra.Command, name string) bool {
	if f := cmd.Flags().Lookup(name); f != nil {
		return f.Changed
	}
	if f := cmd.InheritedFlags().Lookup(name); f != nil {
		return f.Changed
	}
	return false
}

func stringValue(v *string) string {
	if v == nil {
		return ""
	}
	return strings.TrimSpace(*v)
}

func parsePositive(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 0, fmt.Errorf("not a positive integer: %q", s)
	}
	return n, nil
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# franklin configuration
# Uncomment a value to enable it. CLI flags override config values.

[server]
# addr = %q                 # Listen address for "franklin serve"
# jwt-secret = ""              # Secret for API bearer tokens (or FRANKLIN_JWT_SECRET)
# google-client-id = ""        # OAuth client id accepted for Google sign-in
# admin-emails = []            # Accounts with access to /api/admin
# cors-origin = ""             # Allowed browser origin, empty disables CORS
# log-level = %q             # debug, info, warn or error
# auth-rate = %.1f             # Sign-in requests per second

[tracker]
# user = %q       # Email of the local user
# period = %q            # Default statistics period
# days = %d                    # Days shown by the grid
# tick-probability = %.1f      # Tick probability used by "franklin seed"
`,
		server.DefaultAddr,
		defaultLogLevel,
		server.DefaultAuthRate,
		defaultUser,
		defaultPeriod,
		defaultDays,
		defaultTickProb,
	)
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

func logErrln(args ...any) {
	if _, err := fmt.Fprintln(os.Stderr, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
