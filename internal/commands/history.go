package commands

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/txray/internal/importlog"
)

func newHistoryCommand(a *app) *cobra.Command {
	var limit int
	var failedOnly bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the import log, newest last",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(cmd); err != nil {
				return err
			}
			if a.cfg.ImportLog.Path == "" {
				return fmt.Errorf("import log is disabled (import_log.path is empty)")
			}

			entries, err := importlog.Read(a.cfg.ImportLog.Path)
			if err != nil {
				return err
			}
			if failedOnly {
				kept := entries[:0]
				for _, e := range entries {
					if e.Failed() {
						kept = append(kept, e)
					}
				}
				entries = kept
			}
			if limit > 0 && len(entries) > limit {
				entries = entries[len(entries)-limit:]
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No imports recorded")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tFILE\tFORMAT\tIMPORTED\tDUPLICATES\tSTATUS")
			for _, e := range entries {
				status := "ok"
				if e.Failed() {
					status = "failed: " + e.Error
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\n",
					e.Timestamp.Local().Format(time.DateTime), e.File, e.Format, e.Imported, e.Duplicates, status)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "show at most this many entries, 0 for all")
	cmd.Flags().BoolVar(&failedOnly, "failed", false, "only show files that failed")

	return cmd
}
