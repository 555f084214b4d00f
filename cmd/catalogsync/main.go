package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/sadopc/catalogsync/internal/adapter"
	"github.com/sadopc/catalogsync/internal/audit"
	"github.com/sadopc/catalogsync/internal/config"
	"github.com/sadopc/catalogsync/internal/history"
	"github.com/sadopc/catalogsync/internal/suggest"
	"github.com/sadopc/catalogsync/internal/theme"

	// Register catalog adapters
	_ "github.com/sadopc/catalogsync/internal/adapter/databricks"
	_ "github.com/sadopc/catalogsync/internal/adapter/duckdb"
	_ "github.com/sadopc/catalogsync/internal/adapter/mysql"
	_ "github.com/sadopc/catalogsync/internal/adapter/postgres"
	_ "github.com/sadopc/catalogsync/internal/adapter/sqlite"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// errChanges makes the process exit with status 1: differences were found or
// SQL was generated.
var errChanges = errors.New("changes found")

// Exit statuses.
const (
	exitOK      = 0
	exitChanges = 1
	exitError   = 2
)

// globalFlags are the persistent flags of the root command.
type globalFlags struct {
	configPath string
	verbose    bool
	quiet      bool
	noColor    bool
}

// connFlags select the live catalog source.
type connFlags struct {
	source   string
	adapter  string
	dsn      string
	host     string
	token    string
	httpPath string
	workers  int
}

// runtime is the per-invocation state shared by all commands.
type runtime struct {
	cfg    *config.Config
	log    *slog.Logger
	stdout io.Writer
	stderr io.Writer
	// th colors stdout output; nil when color is off.
	th    *theme.Theme
	quiet bool
	hist  *history.History
	audit *audit.Logger
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the command line and returns the process exit status.
func run(args []string, stdout, stderr io.Writer) int {
	var g globalFlags
	rt := &runtime{stdout: stdout, stderr: stderr}
	defer rt.close()

	rootCmd := &cobra.Command{
		Use:   "catalogsync",
		Short: "Snapshot, diff and migrate catalog schemas",
		Long: `catalogsync extracts catalog schemas (Databricks Unity Catalog, PostgreSQL,
MySQL, SQLite, DuckDB) into per-schema YAML or JSON files, compares a live
catalog against those files, and generates the SQL that reconciles them.

Examples:
  catalogsync extract prod -o schemas/           # Snapshot every schema
  catalogsync diff prod schemas/                 # Report drift, exit 1 on changes
  catalogsync generate-sql prod schemas/ -o sql/ # One migration file per schema
  catalogsync browse prod schemas/               # Interactive diff browser`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return rt.setup(g)
		},
	}
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&g.configPath, "config", "c", "", "Config file path")
	pf.BoolVarP(&g.verbose, "verbose", "v", false, "Enable debug logging")
	pf.BoolVarP(&g.quiet, "quiet", "q", false, "Only log errors")
	pf.BoolVar(&g.noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(
		newExtractCmd(rt),
		newDiffCmd(rt),
		newCompareCmd(rt),
		newGenerateSQLCmd(rt),
		newBrowseCmd(rt),
		newListCatalogsCmd(rt),
		newListSchemasCmd(rt),
		newHistoryCmd(rt),
		newVersionCmd(rt),
	)

	err := rootCmd.Execute()
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errChanges):
		return exitChanges
	}
	fmt.Fprintf(rt.stderr, "Error: %v\n", err)
	return exitError
}

// setup loads configuration and opens the logger, history and audit log.
// Failures to open history or audit are warnings, not errors.
func (rt *runtime) setup(g globalFlags) error {
	var (
		cfg *config.Config
		err error
	)
	if g.configPath != "" {
		cfg, err = config.Load(g.configPath)
	} else {
		cfg, err = config.LoadDefault()
	}
	if err != nil {
		return err
	}
	cfg.ApplyEnv(os.Getenv)
	rt.cfg = cfg
	rt.quiet = g.quiet
	rt.log = newLogger(rt.stderr, g.verbose, g.quiet)
	slog.SetDefault(rt.log)

	if useColor(g.noColor, os.Getenv, rt.stdout) {
		rt.th = theme.Get(cfg.Theme)
		theme.Current = rt.th
	}

	if cfg.History.Enabled {
		path, err := cfg.HistoryPath()
		if err == nil {
			rt.hist, err = history.Open(path)
		}
		if err != nil {
			rt.log.Warn("could not open history", "err", err)
		}
	}
	if cfg.Audit.Enabled {
		path, err := cfg.AuditPath()
		if err == nil {
			rt.audit, err = audit.New(path, cfg.Audit.MaxSizeMB)
		}
		if err != nil {
			rt.log.Warn("could not open audit log", "err", err)
		}
	}
	return nil
}

func (rt *runtime) close() {
	if rt.hist != nil {
		_ = rt.hist.Close()
	}
	if rt.audit != nil {
		_ = rt.audit.Close()
	}
}

// progress prints a user-facing progress line on stderr unless --quiet.
func (rt *runtime) progress(format string, args ...any) {
	if rt.quiet {
		return
	}
	fmt.Fprintf(rt.stderr, format+"\n", args...)
}

// record stores a finished run in the history database.
func (rt *runtime) record(r history.Run, start time.Time, err error) {
	if rt.hist == nil {
		return
	}
	r.ExecutedAt = start
	r.DurationMS = time.Since(start).Milliseconds()
	r.IsError = err != nil && !errors.Is(err, errChanges)
	if addErr := rt.hist.Add(r); addErr != nil {
		rt.log.Warn("could not record run", "err", addErr)
	}
}

func newLogger(w io.Writer, verbose, quiet bool) *slog.Logger {
	level := slog.LevelInfo
	switch {
	case quiet:
		level = slog.LevelError
	case verbose:
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// useColor reports whether output to w should be colored: w must be a
// terminal, and neither --no-color nor NO_COLOR may be set.
func useColor(noColor bool, getenv func(string) string, w io.Writer) bool {
	if noColor || getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// addConnFlags registers the live-source flags on cmd.
func addConnFlags(cmd *cobra.Command, cf *connFlags) {
	f := cmd.Flags()
	f.StringVar(&cf.source, "source", "", "Saved source name from the config file")
	f.StringVarP(&cf.adapter, "adapter", "a", "", "Catalog adapter ("+strings.Join(adapter.Names(), ", ")+")")
	f.StringVar(&cf.dsn, "dsn", "", "Connection string")
	f.StringVar(&cf.host, "host", "", "Databricks workspace host (default $DATABRICKS_HOST)")
	f.StringVar(&cf.token, "token", "", "Databricks access token (default $DATABRICKS_TOKEN)")
	f.StringVar(&cf.httpPath, "http-path", "", "Databricks SQL warehouse HTTP path (default $DATABRICKS_HTTP_PATH)")
	f.IntVar(&cf.workers, "workers", 0, "Parallel table fetches (default from config, 4)")
}

// resolveSource picks the live source: --source, then explicit connection
// flags, then the config's default source.
func resolveSource(cfg *config.Config, cf connFlags, getenv func(string) string) (*config.Source, error) {
	if cf.source != "" {
		return lookupSource(cfg, cf.source)
	}
	if cf.dsn != "" || cf.host != "" || cf.adapter != "" {
		src := &config.Source{
			Name:     "flags",
			Adapter:  cf.adapter,
			DSN:      cf.dsn,
			Host:     cf.host,
			Token:    cf.token,
			HTTPPath: cf.httpPath,
		}
		if src.Adapter == "" && src.DSN == "" {
			src.Adapter = "databricks"
		}
		if src.AdapterName() == "databricks" && src.DSN == "" {
			if src.Token == "" {
				src.Token = getenv("DATABRICKS_TOKEN")
			}
			if src.HTTPPath == "" {
				src.HTTPPath = getenv("DATABRICKS_HTTP_PATH")
			}
		}
		if src.AdapterName() == "" {
			return nil, fmt.Errorf("cannot detect adapter from DSN; pass --adapter (%s)", strings.Join(adapter.Names(), ", "))
		}
		return src, nil
	}
	if cfg.DefaultSource != "" {
		return lookupSource(cfg, cfg.DefaultSource)
	}
	return nil, errors.New("no live source: pass --source or --dsn, or set DATABRICKS_HOST and DATABRICKS_TOKEN")
}

func lookupSource(cfg *config.Config, name string) (*config.Source, error) {
	src, err := cfg.Source(name)
	if err != nil {
		names := make([]string, len(cfg.Sources))
		for i, s := range cfg.Sources {
			names[i] = s.Name
		}
		return nil, fmt.Errorf("%w%s", err, suggest.Hint(name, names))
	}
	return src, nil
}

// connect opens and pings a connection to src.
func connect(ctx context.Context, src *config.Source) (adapter.Connection, error) {
	a, err := adapter.Lookup(src.AdapterName())
	if err != nil {
		return nil, err
	}
	conn, err := a.Connect(ctx, src.BuildDSN())
	if err != nil {
		return nil, err
	}
	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

// workers returns the pool size from the flag, falling back to the config.
func (rt *runtime) workers(cf connFlags) int {
	if cf.workers > 0 {
		return cf.workers
	}
	return rt.cfg.Workers
}

// warnMissing logs requested schema names that do not exist, with
// suggestions drawn from the names that do.
func (rt *runtime) warnMissing(where string, wanted, have []string) {
	for _, name := range suggest.Missing(wanted, have) {
		rt.log.Warn("schema not found"+suggest.Hint(name, have), "schema", name, "in", where)
	}
}
