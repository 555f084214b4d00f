package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/sadopc/catalogsync/internal/adapter"
	"github.com/sadopc/catalogsync/internal/app"
	"github.com/sadopc/catalogsync/internal/audit"
	"github.com/sadopc/catalogsync/internal/config"
	"github.com/sadopc/catalogsync/internal/diff"
	"github.com/sadopc/catalogsync/internal/extract"
	"github.com/sadopc/catalogsync/internal/highlight"
	"github.com/sadopc/catalogsync/internal/history"
	"github.com/sadopc/catalogsync/internal/report"
	"github.com/sadopc/catalogsync/internal/schema"
	"github.com/sadopc/catalogsync/internal/snapshot"
	"github.com/sadopc/catalogsync/internal/sqlgen"
	"github.com/sadopc/catalogsync/internal/ui/historybrowser"
)

// Migration targets for generate-sql and browse.
const (
	targetStored = "stored"
	targetLive   = "live"
)

// diffFlags are shared by the commands that compare a live catalog with a
// snapshot directory.
type diffFlags struct {
	conn        connFlags
	schemas     []string
	includeMeta bool
	noTags      bool
	ignoreAdded []string
}

func addDiffFlags(cmd *cobra.Command, df *diffFlags) {
	addConnFlags(cmd, &df.conn)
	f := cmd.Flags()
	f.StringSliceVarP(&df.schemas, "schema", "s", nil, "Schema filter (repeatable)")
	f.BoolVar(&df.includeMeta, "include-metadata", false, "Compare owner and storage_location too")
	f.BoolVar(&df.noTags, "no-tags", false, "Skip tag lookups (faster, omits tags from the comparison)")
	f.StringSliceVar(&df.ignoreAdded, "ignore-added", nil, "Live-only schemas to leave out (default from config: default)")
}

// comparison is a live catalog diffed against a snapshot directory.
type comparison struct {
	source *config.Source
	diff   *diff.CatalogDiff
}

// migration returns the diff SQL should be generated from for target.
func (c *comparison) migration(target string) *diff.CatalogDiff {
	if target == targetLive {
		return c.diff
	}
	return c.diff.Reverse()
}

func parseTarget(s string) (string, error) {
	switch s {
	case targetStored, targetLive:
		return s, nil
	}
	return "", fmt.Errorf("unknown target %q (want %s or %s)", s, targetStored, targetLive)
}

func newExtractCmd(rt *runtime) *cobra.Command {
	var (
		cf          connFlags
		schemas     []string
		outDir      string
		format      string
		includeMeta bool
		noTags      bool
	)

	cmd := &cobra.Command{
		Use:   "extract <catalog>",
		Short: "Extract catalog schemas to YAML or JSON files",
		Long: `Extract writes one file per schema into --output-dir. Without --output-dir
the schema is printed to stdout, which requires the filters to match exactly
one schema.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			ctx := cmd.Context()
			catalog := args[0]
			run := history.Run{Command: "extract", Catalog: catalog}
			defer func(start time.Time) { rt.record(run, start, err) }(time.Now())

			if format == "" {
				format = rt.cfg.Format
			}
			f, err := snapshot.ParseFormat(format)
			if err != nil {
				return err
			}

			src, err := resolveSource(rt.cfg, cf, os.Getenv)
			if err != nil {
				return err
			}
			run.Source = src.DisplayString()
			conn, err := connect(ctx, src)
			if err != nil {
				return err
			}
			defer conn.Close()

			e := extract.New(conn, rt.workers(cf))
			e.Logger = rt.log
			opts := extract.Options{
				Schemas:         schemas,
				SkipSystem:      true,
				IncludeMetadata: includeMeta || rt.cfg.IncludeMetadata,
				Tags:            !noTags,
			}

			rt.progress("Extracting catalog '%s'...", catalog)
			headers, err := rt.schemaHeaders(ctx, e, catalog, opts)
			if err != nil {
				return err
			}

			if len(headers) == 0 {
				return fmt.Errorf("no schemas to extract in catalog %q", catalog)
			}
			if outDir == "" {
				if len(headers) != 1 {
					return fmt.Errorf("--output-dir is required when extracting %d schemas", len(headers))
				}
				s, err := e.ExtractSchema(ctx, catalog, headers[0], opts)
				if err != nil {
					return err
				}
				data, err := snapshot.MarshalSchema(s, f)
				if err != nil {
					return err
				}
				_, err = rt.stdout.Write(data)
				return err
			}

			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return fmt.Errorf("create output dir: %w", err)
			}
			for _, h := range headers {
				s, err := e.ExtractSchema(ctx, catalog, h, opts)
				if err != nil {
					return err
				}
				path, err := snapshot.WriteSchema(outDir, s, f)
				if err != nil {
					return err
				}
				rt.progress("  Wrote %s", path)
			}
			rt.progress("Done: %d schema(s) written to %s", len(headers), outDir)
			return nil
		},
	}

	addConnFlags(cmd, &cf)
	fl := cmd.Flags()
	fl.StringSliceVarP(&schemas, "schema", "s", nil, "Schema filter (repeatable)")
	fl.StringVarP(&outDir, "output-dir", "o", "", "Directory for per-schema files")
	fl.StringVarP(&format, "format", "f", "", "Output format: yaml or json (default from config, yaml)")
	fl.BoolVar(&includeMeta, "include-metadata", false, "Include owner and storage_location")
	fl.BoolVar(&noTags, "no-tags", false, "Skip tag lookups (faster, omits tags from output)")
	return cmd
}

func newDiffCmd(rt *runtime) *cobra.Command {
	var df diffFlags

	cmd := &cobra.Command{
		Use:   "diff <catalog> <schema_dir>",
		Short: "Compare a live catalog against snapshot files",
		Long: `Diff reports what changed in the live catalog since the snapshot was taken:
ADDED objects exist only in the live catalog, REMOVED objects only in the
files. The exit status is 1 when differences are found.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			catalog, dir := args[0], args[1]
			run := history.Run{Command: "diff", Catalog: catalog, Stored: dir}
			defer func(start time.Time) { rt.record(run, start, err) }(time.Now())

			rt.progress("Comparing catalog '%s' against %s...", catalog, dir)
			c, err := rt.compareLive(cmd.Context(), catalog, dir, df)
			if err != nil {
				return err
			}
			run.Source = c.source.DisplayString()
			setCounts(&run, c.diff)
			return rt.printDiff(c.diff)
		},
	}

	addDiffFlags(cmd, &df)
	return cmd
}

func newCompareCmd(rt *runtime) *cobra.Command {
	var (
		schemas     []string
		catalog     string
		includeMeta bool
	)

	cmd := &cobra.Command{
		Use:   "compare <old_dir> <new_dir>",
		Short: "Compare two snapshot directories",
		Long: `Compare diffs two snapshots without touching a live catalog. ADDED objects
exist only in <new_dir>, REMOVED objects only in <old_dir>.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			oldDir, newDir := args[0], args[1]
			run := history.Run{Command: "compare", Catalog: catalog, Source: newDir, Stored: oldDir}
			defer func(start time.Time) { rt.record(run, start, err) }(time.Now())

			older, err := snapshot.LoadDir(oldDir, schemas)
			if err != nil {
				return err
			}
			newer, err := snapshot.LoadDir(newDir, schemas)
			if err != nil {
				return err
			}
			if len(schemas) > 0 {
				rt.warnMissing(oldDir, schemas, older.Names())
				rt.warnMissing(newDir, schemas, newer.Names())
			}

			d := diff.Catalogs(newer.Catalog(catalog), older.Catalog(catalog), diff.Options{
				IncludeMetadata: includeMeta || rt.cfg.IncludeMetadata,
			})
			setCounts(&run, d)
			return rt.printDiff(d)
		},
	}

	f := cmd.Flags()
	f.StringSliceVarP(&schemas, "schema", "s", nil, "Schema filter (repeatable)")
	f.StringVar(&catalog, "catalog", "catalog", "Catalog name used in the report")
	f.BoolVar(&includeMeta, "include-metadata", false, "Compare owner and storage_location too")
	return cmd
}

func newGenerateSQLCmd(rt *runtime) *cobra.Command {
	var (
		df        diffFlags
		outDir    string
		allowDrop bool
		target    string
	)

	cmd := &cobra.Command{
		Use:   "generate-sql <catalog> <schema_dir>",
		Short: "Generate the SQL that reconciles a live catalog and snapshot files",
		Long: `Generate-sql prints the statements grouped by schema, or writes one .sql
file per schema into --output-dir. With --target stored (the default) the SQL
brings the live catalog in line with the files; with --target live it brings
the files' catalog in line with the live one. Destructive statements are
commented out unless --allow-drop is set. The exit status is 1 when any SQL
was generated.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			catalog, dir := args[0], args[1]
			run := history.Run{Command: "generate-sql", Catalog: catalog, Stored: dir}
			defer func(start time.Time) { rt.record(run, start, err) }(time.Now())

			target, err := parseTarget(target)
			if err != nil {
				return err
			}
			rt.progress("Generating SQL for catalog '%s' against %s...", catalog, dir)
			c, err := rt.compareLive(cmd.Context(), catalog, dir, df)
			if err != nil {
				return err
			}
			run.Source = c.source.DisplayString()
			setCounts(&run, c.diff)

			opts := sqlgen.Options{AllowDrop: allowDrop || rt.cfg.AllowDrop}
			plans := sqlgen.PlanSchemas(catalog, c.migration(target))
			if len(plans) == 0 {
				fmt.Fprintln(rt.stdout, "No differences found; no SQL generated.")
				return nil
			}

			outputs, err := rt.emitSQL(plans, opts, outDir, c.source.AdapterName())
			if err != nil {
				return err
			}
			for i, p := range plans {
				run.Statements += len(p.Statements)
				rt.audit.Log(audit.Entry{
					Command:     "generate-sql",
					Catalog:     catalog,
					Schema:      p.Schema,
					Target:      target,
					Statements:  p.Render(opts).Statements,
					Destructive: sqlgen.CountDestructive(p.Statements),
					AllowDrop:   opts.AllowDrop,
					Output:      outputs[i],
					Adapter:     c.source.AdapterName(),
					DSN:         c.source.BuildDSN(),
				})
			}
			return errChanges
		},
	}

	addDiffFlags(cmd, &df)
	f := cmd.Flags()
	f.StringVarP(&outDir, "output-dir", "o", "", "Write one .sql file per schema instead of printing")
	f.BoolVar(&allowDrop, "allow-drop", false, "Emit real DROP statements instead of commented-out ones")
	f.StringVar(&target, "target", targetStored, "Side the SQL is applied to: stored or live")
	return cmd
}

func newBrowseCmd(rt *runtime) *cobra.Command {
	var (
		df        diffFlags
		allowDrop bool
		target    string
		sqlDir    string
	)

	cmd := &cobra.Command{
		Use:   "browse <catalog> <schema_dir>",
		Short: "Browse the diff and its SQL interactively",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			catalog, dir := args[0], args[1]
			run := history.Run{Command: "browse", Catalog: catalog, Stored: dir}
			defer func(start time.Time) { rt.record(run, start, err) }(time.Now())

			target, err := parseTarget(target)
			if err != nil {
				return err
			}
			c, err := rt.compareLive(cmd.Context(), catalog, dir, df)
			if err != nil {
				return err
			}
			run.Source = c.source.DisplayString()
			setCounts(&run, c.diff)

			opts := app.Options{
				Catalog:   catalog,
				Source:    c.source.DisplayString(),
				Dialect:   c.source.AdapterName(),
				Diff:      c.diff,
				Migration: c.migration(target),
				Target:    target,
				AllowDrop: allowDrop || rt.cfg.AllowDrop,
				SQLDir:    sqlDir,
				Theme:     rt.cfg.Theme,
				Audit:     rt.audit,
				Adapter:   c.source.AdapterName(),
				DSN:       c.source.BuildDSN(),
			}
			if rt.hist != nil {
				opts.History = rt.hist
			}
			rt.log.Debug("starting browser", "session", opts.String())
			return app.Run(opts)
		},
	}

	addDiffFlags(cmd, &df)
	f := cmd.Flags()
	f.BoolVar(&allowDrop, "allow-drop", false, "Start with destructive statements enabled")
	f.StringVar(&target, "target", targetStored, "Side the SQL is applied to: stored or live")
	f.StringVar(&sqlDir, "sql-dir", app.DefaultSQLDir, "Default directory for written SQL files")
	return cmd
}

func newListCatalogsCmd(rt *runtime) *cobra.Command {
	var cf connFlags

	cmd := &cobra.Command{
		Use:   "list-catalogs",
		Short: "List the catalogs visible to the source",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := rt.open(cmd.Context(), cf)
			if err != nil {
				return err
			}
			defer conn.Close()

			names, err := conn.Catalogs(cmd.Context())
			if err != nil {
				return err
			}
			for _, n := range names {
				fmt.Fprintln(rt.stdout, n)
			}
			return nil
		},
	}

	addConnFlags(cmd, &cf)
	return cmd
}

func newListSchemasCmd(rt *runtime) *cobra.Command {
	var (
		cf  connFlags
		all bool
	)

	cmd := &cobra.Command{
		Use:   "list-schemas <catalog>",
		Short: "List the schemas of a catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := rt.open(cmd.Context(), cf)
			if err != nil {
				return err
			}
			defer conn.Close()

			e := extract.New(conn, rt.workers(cf))
			e.Logger = rt.log
			headers, err := e.SchemaHeaders(cmd.Context(), args[0], extract.Options{SkipSystem: !all})
			if err != nil {
				return err
			}
			for _, h := range headers {
				fmt.Fprintln(rt.stdout, h.Name)
			}
			return nil
		},
	}

	addConnFlags(cmd, &cf)
	cmd.Flags().BoolVar(&all, "all", false, "Include system schemas such as information_schema")
	return cmd
}

func newHistoryCmd(rt *runtime) *cobra.Command {
	var (
		limit    int
		search   string
		clearAll bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if rt.hist == nil {
				return errors.New("history is disabled or could not be opened")
			}
			if clearAll {
				if err := rt.hist.Clear(); err != nil {
					return err
				}
				rt.progress("History cleared.")
				return nil
			}

			var (
				runs []history.Run
				err  error
			)
			if search != "" {
				runs, err = rt.hist.Search("%"+search+"%", limit)
			} else {
				runs, err = rt.hist.Recent(limit)
			}
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(rt.stdout, "No runs recorded.")
				return nil
			}
			for _, r := range runs {
				fmt.Fprintln(rt.stdout, historybrowser.FormatRun(r, 0))
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.IntVarP(&limit, "limit", "n", 20, "Maximum number of runs")
	f.StringVar(&search, "search", "", "Only runs whose command, catalog or source contains text")
	f.BoolVar(&clearAll, "clear", false, "Delete all recorded runs")
	return cmd
}

func newVersionCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(rt.stdout, "catalogsync %s (commit: %s, built: %s)\n", version, commit, date)
			fmt.Fprintln(rt.stdout, "\nSupported adapters:")
			for _, name := range adapter.Names() {
				fmt.Fprintf(rt.stdout, "  - %s\n", name)
			}
		},
	}
}

// ---------------------------------------------------------------------------
// Shared steps
// ---------------------------------------------------------------------------

// open resolves the live source and connects to it.
func (rt *runtime) open(ctx context.Context, cf connFlags) (adapter.Connection, error) {
	src, err := resolveSource(rt.cfg, cf, os.Getenv)
	if err != nil {
		return nil, err
	}
	rt.log.Debug("connecting", "source", src.DisplayString())
	return connect(ctx, src)
}

// schemaHeaders lists the catalog's schemas selected by opts and warns about
// requested names that do not exist.
func (rt *runtime) schemaHeaders(ctx context.Context, e *extract.Extractor, catalog string, opts extract.Options) ([]schema.Schema, error) {
	all := opts
	all.Schemas = nil
	headers, err := e.SchemaHeaders(ctx, catalog, all)
	if err != nil {
		return nil, err
	}
	if len(opts.Schemas) == 0 {
		return headers, nil
	}
	rt.warnMissing(catalog, opts.Schemas, schemaNames(headers))
	return slices.DeleteFunc(headers, func(s schema.Schema) bool {
		return !slices.Contains(opts.Schemas, s.Name)
	}), nil
}

// compareLive loads the snapshot in dir, extracts the matching part of the
// live catalog and diffs the two.
func (rt *runtime) compareLive(ctx context.Context, catalog, dir string, df diffFlags) (*comparison, error) {
	stored, err := snapshot.LoadDir(dir, df.schemas)
	if err != nil {
		return nil, err
	}
	if len(df.schemas) > 0 {
		rt.warnMissing(dir, df.schemas, stored.Names())
	}

	src, err := resolveSource(rt.cfg, df.conn, os.Getenv)
	if err != nil {
		return nil, err
	}
	conn, err := connect(ctx, src)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	includeMeta := df.includeMeta || rt.cfg.IncludeMetadata
	e := extract.New(conn, rt.workers(df.conn))
	e.Logger = rt.log
	opts := extract.Options{
		Schemas:         df.schemas,
		SkipSystem:      true,
		IncludeMetadata: includeMeta,
		Tags:            !df.noTags,
	}
	headers, err := rt.schemaHeaders(ctx, e, catalog, opts)
	if err != nil {
		return nil, err
	}
	live := &schema.Catalog{Name: catalog}
	for _, h := range headers {
		s, err := e.ExtractSchema(ctx, catalog, h, opts)
		if err != nil {
			return nil, err
		}
		live.Schemas = append(live.Schemas, *s)
	}

	ignore := df.ignoreAdded
	if ignore == nil {
		ignore = rt.cfg.IgnoreAdded
	}
	d := diff.Catalogs(live, stored.Catalog(catalog), diff.Options{
		IncludeMetadata: includeMeta,
		IgnoreAdded:     ignore,
	})
	return &comparison{source: src, diff: d}, nil
}

// printDiff writes the report to stdout and returns errChanges when there is
// anything to report.
func (rt *runtime) printDiff(d *diff.CatalogDiff) error {
	if !d.HasChanges() {
		fmt.Fprintln(rt.stdout, "No differences found.")
		return nil
	}
	if err := report.Write(rt.stdout, d, rt.th); err != nil {
		return err
	}
	rt.progress("%s", report.Summary(d))
	return errChanges
}

// emitSQL prints the plans grouped by schema, or writes one file per schema
// into outDir. It returns the output of each plan: a file path, or "stdout".
func (rt *runtime) emitSQL(plans []sqlgen.SchemaPlan, opts sqlgen.Options, outDir, dialect string) ([]string, error) {
	outputs := make([]string, len(plans))
	if outDir != "" {
		files := make([]snapshot.SQLFile, len(plans))
		for i, p := range plans {
			r := p.Render(opts)
			files[i] = snapshot.SQLFile{Schema: r.Schema, Statements: r.Statements}
		}
		paths, err := snapshot.WriteSQLDir(outDir, files)
		if err != nil {
			return nil, err
		}
		for _, path := range paths {
			rt.progress("  Wrote %s", path)
		}
		copy(outputs, paths)
		return outputs, nil
	}

	hl := highlight.New(dialect)
	for i, p := range plans {
		fmt.Fprintf(rt.stdout, "-- Schema: %s\n", p.Schema)
		for _, stmt := range p.Render(opts).Statements {
			if rt.th != nil {
				stmt = hl.Highlight(stmt, rt.th)
			}
			fmt.Fprintln(rt.stdout, stmt)
		}
		fmt.Fprintln(rt.stdout)
		outputs[i] = "stdout"
	}
	return outputs, nil
}

func setCounts(r *history.Run, d *diff.CatalogDiff) {
	c := d.Summary().All()
	r.HasChanges = d.HasChanges()
	r.Added, r.Removed, r.Modified = c.Added, c.Removed, c.Modified
}

func schemaNames(schemas []schema.Schema) []string {
	names := make([]string, len(schemas))
	for i, s := range schemas {
		names[i] = s.Name
	}
	return names
}
