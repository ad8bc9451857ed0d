package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/txray/internal/model"
	"github.com/cleared-dev/txray/internal/recurrence"
	"github.com/cleared-dev/txray/internal/report"
	"github.com/cleared-dev/txray/internal/store"
)

func newRecurringCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recurring",
		Short: "Detect and manage recurring payments",
	}
	cmd.AddCommand(
		newRecurringDetectCommand(a),
		newRecurringListCommand(a),
		newRecurringSetCommand(a),
		newRecurringDeleteCommand(a),
	)
	return cmd
}

func newRecurringDetectCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "detect",
		Short: "Scan stored expenses for recurring payments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()
			defer a.flushMetrics()

			ctx := cmd.Context()
			before, err := st.RecurringTransactions(ctx, false)
			if err != nil {
				return err
			}

			detector := recurrence.NewDetector(st, recurrence.WithMetrics(a.metrics))
			n, err := detector.Detect(ctx)
			if err != nil {
				return err
			}

			after, err := st.RecurringTransactions(ctx, false)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Detected %d recurring payments (%d new or changed)\n",
				n, countChanged(before, after))
			return nil
		},
	}
}

func newRecurringListCommand(a *app) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recurring payments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			recs, err := st.RecurringTransactions(cmd.Context(), !all)
			if err != nil {
				return err
			}
			if len(recs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No recurring payments")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tMERCHANT\tFREQUENCY\tAVERAGE\tLAST\tCOUNT\tSUBSCRIPTION\tACTIVE\tNOTES")
			for _, r := range recs {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%d\t%t\t%t\t%s\n",
					r.ID, r.MerchantPattern, r.Frequency, report.Money(r.AverageAmount),
					r.LastDate, r.OccurrenceCount, r.IsSubscription, r.IsActive, r.Notes)
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "include inactive records")

	return cmd
}

func newRecurringSetCommand(a *app) *cobra.Command {
	var active bool
	var notes string

	cmd := &cobra.Command{
		Use:   "set <id>",
		Short: "Update the active flag or notes of a recurring payment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			var u store.RecurringUpdate
			if cmd.Flags().Changed("active") {
				u.IsActive = &active
			}
			if cmd.Flags().Changed("notes") {
				u.Notes = &notes
			}
			if u.IsActive == nil && u.Notes == nil {
				return fmt.Errorf("nothing to update: pass --active or --notes")
			}

			st, err := a.openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.UpdateRecurring(cmd.Context(), id, u); err != nil {
				return err
			}
			rec, err := st.RecurringByID(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated recurring %d: %s active=%t notes=%q\n",
				rec.ID, rec.MerchantPattern, rec.IsActive, rec.Notes)
			return nil
		},
	}

	cmd.Flags().BoolVar(&active, "active", true, "mark as active (--active=false to hide)")
	cmd.Flags().StringVar(&notes, "notes", "", "free-form notes")

	return cmd
}

func newRecurringDeleteCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a recurring payment record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			st, err := a.openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.DeleteRecurring(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted recurring %d\n", id)
			return nil
		},
	}
}

// countChanged counts records in after that are new or whose detector
// output differs from before.
func countChanged(before, after []model.RecurringTransaction) int {
	prev := make(map[string]model.RecurringTransaction, len(before))
	for _, r := range before {
		prev[r.MerchantPattern] = r
	}

	changed := 0
	for _, r := range after {
		old, ok := prev[r.MerchantPattern]
		if !ok || !old.SameDerived(r) {
			changed++
		}
	}
	return changed
}
