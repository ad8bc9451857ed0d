package commands

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newCategorizeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "categorize <description>",
		Short: "Show which category a description would get",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			engine, err := a.newEngine(cmd.Context(), st)
			if err != nil {
				return err
			}

			m := engine.Explain(strings.Join(args, " "))
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (%s", m.Category, m.Phase)
			if m.Pattern != "" {
				fmt.Fprintf(out, ": %s", m.Pattern)
			}
			fmt.Fprintln(out, ")")
			return nil
		},
	}
}

func newMappingsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mappings",
		Short: "Manage learned merchant to category mappings",
	}
	cmd.AddCommand(
		newMappingsListCommand(a),
		newMappingsAddCommand(a),
		newMappingsDeleteCommand(a),
		newMappingsMatchesCommand(a),
	)
	return cmd
}

func newMappingsListCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List learned mappings, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			mappings, err := st.CategoryMappings(cmd.Context())
			if err != nil {
				return err
			}
			if len(mappings) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No mappings")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tPATTERN\tCATEGORY")
			for _, m := range mappings {
				fmt.Fprintf(w, "%d\t%s\t%s\n", m.ID, m.MerchantPattern, m.Category)
			}
			return w.Flush()
		},
	}
}

func newMappingsAddCommand(a *app) *cobra.Command {
	var apply bool

	cmd := &cobra.Command{
		Use:   "add <pattern> <category>",
		Short: "Map descriptions containing pattern to category",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			m, err := st.SaveCategoryMapping(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Saved mapping %d: %s -> %s\n", m.ID, m.MerchantPattern, m.Category)

			if apply {
				n, err := st.RecategorizeByPattern(cmd.Context(), m.MerchantPattern, m.Category)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Recategorized %d transactions\n", n)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&apply, "apply", false, "recategorize stored Other/Uncategorized transactions that match")

	return cmd
}

func newMappingsDeleteCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a learned mapping",
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

			if err := st.DeleteCategoryMapping(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted mapping %d\n", id)
			return nil
		},
	}
}

func newMappingsMatchesCommand(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "matches <pattern>",
		Short: "List stored transactions whose description contains pattern",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			txns, err := st.TransactionsByPattern(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "DATE\tACCOUNT\tAMOUNT\tCATEGORY\tDESCRIPTION")
			for _, t := range txns {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", t.Date, t.AccountType, t.Amount.StringFixed(2), t.Category, t.Description)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "maximum rows to show, 0 for all")

	return cmd
}

func parseID(s string) (uint, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return uint(id), nil
}
