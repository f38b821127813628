package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/meddiag/platform/pkg/client"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List stored diagnoses, newest first",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().String("name", "", "Filter by patient name")
	historyCmd.Flags().String("email", "", "Filter by patient email (ignored when --name is set)")
	historyCmd.Flags().Int("limit", 0, "Maximum rows (server default when 0)")
	historyCmd.Flags().Int("offset", 0, "Rows to skip")
}

func runHistory(cmd *cobra.Command, args []string) error {
	name, _ := cmd.Flags().GetString("name")
	email, _ := cmd.Flags().GetString("email")
	limit, _ := cmd.Flags().GetInt("limit")
	offset, _ := cmd.Flags().GetInt("offset")

	items, err := newClient(cmd).History(cmd.Context(), client.HistoryQuery{
		Name:   name,
		Email:  email,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No diagnoses found.")
		return nil
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tPATIENT\tDISEASE\tPROBABILITY\tSTATUS")
	for _, item := range items {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%.2f%%\t%s\n",
			item.ID,
			item.GeneratedAt.Local().Format("2006-01-02 15:04"),
			item.UserName,
			item.DiseaseCode,
			item.Probability*100,
			item.Status,
		)
	}
	return tw.Flush()
}
