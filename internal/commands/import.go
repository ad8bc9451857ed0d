package commands

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/txray/internal/importer"
	"github.com/cleared-dev/txray/internal/model"
	"github.com/cleared-dev/txray/internal/report"
	"github.com/cleared-dev/txray/internal/store"
)

type importOptions struct {
	dir           string
	format        string
	clear         bool
	yes           bool
	stats         bool
	markProcessed bool
}

func newImportCommand(a *app) *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "import [files...]",
		Short: "Import bank and card CSV exports",
		Long: "Import CSV files given as arguments, or every CSV in the import\n" +
			"directory when none are given. The format is detected from each\n" +
			"file's header unless --format is set.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runImport(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.dir, "dir", "d", "", "import every CSV in this directory (default import.dir)")
	cmd.Flags().StringVar(&opts.format, "format", "", "skip detection and parse as amex, apple or checking")
	cmd.Flags().BoolVar(&opts.clear, "clear", false, "delete all stored transactions first")
	cmd.Flags().BoolVarP(&opts.yes, "yes", "y", false, "do not ask before --clear")
	cmd.Flags().BoolVar(&opts.stats, "stats", false, "print statistics after the import")
	cmd.Flags().BoolVar(&opts.markProcessed, "mark-processed", false, "move imported files into processed/")

	return cmd
}

func (a *app) runImport(cmd *cobra.Command, args []string, opts importOptions) error {
	out := cmd.OutOrStdout()

	st, err := a.openStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()
	defer a.flushMetrics()
	ctx := cmd.Context()

	engine, err := a.newEngine(ctx, st)
	if err != nil {
		return err
	}
	reg := importer.DefaultRegistry(engine)

	format := model.Format(strings.ToLower(opts.format))
	if format != "" && reg.Get(format) == nil {
		return fmt.Errorf("unknown format %q (supported: %s)", opts.format, joinFormats(reg.Formats()))
	}

	if opts.clear {
		if !opts.yes && !confirm(cmd.InOrStdin(), out, "Clear all stored transactions? (yes/no): ") {
			fmt.Fprintln(out, "Clear cancelled")
			return nil
		}
		n, err := st.ClearTransactions(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Cleared %d transactions\n", n)
	}

	paths, err := a.collectFiles(out, args, opts.dir)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return errors.New("no CSV files to import")
	}

	batch := importer.NewBatch(reg, st)
	batch.Format = format
	batch.MarkProcessed = opts.markProcessed || a.cfg.Import.MarkProcessed
	batch.LogPath = a.cfg.ImportLog.Path
	batch.Metrics = a.metrics

	res, err := batch.ImportFiles(ctx, paths)
	if err != nil {
		return err
	}
	printImportResult(out, res)

	total, err := st.CountTransactions(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Database now holds %d transactions\n", total)

	if opts.stats {
		fmt.Fprintln(out)
		if err := printStats(cmd, st); err != nil {
			return err
		}
	}
	return nil
}

// collectFiles returns explicit paths that exist, or the CSVs in dir (or
// the configured import dir) when no paths are given.
func (a *app) collectFiles(out io.Writer, args []string, dir string) ([]string, error) {
	var paths []string

	if dir != "" || len(args) == 0 {
		if dir == "" {
			dir = a.cfg.Import.Dir
		}
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			return nil, fmt.Errorf("%s is not a valid directory", dir)
		}
		files, err := importer.Scan(dir)
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(out, "Found %d CSV files in %s\n", len(files), dir)
		for _, f := range files {
			paths = append(paths, f.Path)
		}
	}

	for _, p := range args {
		if _, err := os.Stat(p); err != nil {
			fmt.Fprintf(out, "Warning: %s does not exist, skipping\n", p)
			continue
		}
		paths = append(paths, p)
	}
	return paths, nil
}

func printImportResult(out io.Writer, res *importer.Result) {
	for _, f := range res.Files {
		if f.Err != "" {
			fmt.Fprintf(out, "  %s: error: %s\n", f.File, f.Err)
			continue
		}
		fmt.Fprintf(out, "  %s [%s]: %d imported, %d duplicates, %d skipped\n",
			f.File, f.Format, f.Imported, f.Duplicates, f.Skipped)
	}

	fmt.Fprintf(out, "Imported %d transactions from %d file(s)", res.Imported, res.FilesProcessed)
	if res.Duplicates > 0 {
		fmt.Fprintf(out, ", %d duplicates skipped", res.Duplicates)
	}
	fmt.Fprintln(out)

	if len(res.Errors) > 0 {
		fmt.Fprintln(out, "Errors:")
		for _, e := range res.Errors {
			fmt.Fprintf(out, "  - %s: %s\n", e.File, e.Message)
		}
	}
}

func printStats(cmd *cobra.Command, st *store.Store) error {
	txns, err := st.QueryAll(cmd.Context(), store.Filter{})
	if err != nil {
		return err
	}
	report.Write(cmd.OutOrStdout(), report.Summarize(txns), report.DefaultTopCategories)
	return nil
}

func confirm(in io.Reader, out io.Writer, prompt string) bool {
	fmt.Fprint(out, prompt)
	answer, _ := bufio.NewReader(in).ReadString('\n')
	return strings.EqualFold(strings.TrimSpace(answer), "yes")
}

func joinFormats(formats []model.Format) string {
	names := make([]string, len(formats))
	for i, f := range formats {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}

func newDetectFormatCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "detect-format <file>",
		Short: "Print the source format of a CSV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := importer.DetectFile(args[0])
			if err != nil {
				return fmt.Errorf("%w (supported: %s)", err, joinFormats(model.Formats()))
			}
			fmt.Fprintln(cmd.OutOrStdout(), format)
			return nil
		},
	}
}

func newStatsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print totals, per-account spending and top categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()
			return printStats(cmd, st)
		},
	}
}
