package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status <diagnosis-id> <pending|confirmed|discarded>",
	Short: "Change the review status of a stored diagnosis",
	Args:  cobra.ExactArgs(2),
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil || id == 0 {
		return fmt.Errorf("invalid diagnosis id %q", args[0])
	}
	if err := newClient(cmd).UpdateStatus(cmd.Context(), uint(id), args[1]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Diagnosis #%d marked %s\n", id, args[1])
	return nil
}
