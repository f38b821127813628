package main

import (
	"time"

	"github.com/meddiag/platform/pkg/client"
	"github.com/meddiag/platform/pkg/common/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "meddiag",
	Short:         "Disease risk predictions from the command line",
	Long:          "meddiag submits patient features to the MedDiag API and shows predictions and stored history.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("api", "", "API base URL (overrides API_BASE_URL env var)")
	rootCmd.PersistentFlags().Duration("timeout", 0, "Request timeout (overrides CLIENT_TIMEOUT env var)")

	rootCmd.AddCommand(predictCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(statusCmd)
}

// newClient builds an API client from --api and --timeout, then the
// environment.
func newClient(cmd *cobra.Command) *client.Client {
	cfg := config.Load()
	baseURL := cfg.APIBaseURL
	if v, _ := cmd.Flags().GetString("api"); v != "" {
		baseURL = v
	}
	timeout := cfg.ClientTimeout
	if v, _ := cmd.Flags().GetDuration("timeout"); v > 0 {
		timeout = v
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return client.New(baseURL, timeout)
}
