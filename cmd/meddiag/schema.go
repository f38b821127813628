package main

import (
	"fmt"
	"strings"

	"github.com/meddiag/platform/pkg/features"
	"github.com/spf13/cobra"
)

var schemaCmd = &cobra.Command{
	Use:   "schema <disease>",
	Short: "Show the features a disease model expects",
	Args:  cobra.ExactArgs(1),
	RunE:  runSchema,
}

func init() {
	schemaCmd.Flags().String("file", "", "Schema catalog file (built-in schemas when empty)")
	schemaCmd.Flags().Bool("remote", false, "Ask the API server for the schema it serves")
}

func runSchema(cmd *cobra.Command, args []string) error {
	if remote, _ := cmd.Flags().GetBool("remote"); remote {
		return runRemoteSchema(cmd, args[0])
	}

	path, _ := cmd.Flags().GetString("file")
	registry, err := features.LoadRegistry(path)
	if err != nil {
		return err
	}
	schema, err := registry.SchemaFor(features.ResolveAlias(args[0]))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s (%d features)\n", schema.Code(), schema.Len())
	for i, name := range schema.Order() {
		line := fmt.Sprintf("%2d. %s", i+1, name)
		if value, ok := schema.Default(name); ok {
			line += fmt.Sprintf("  [optional, default %g]", value)
		}
		fmt.Fprintln(out, line)
	}
	fmt.Fprintf(out, "required: %s\n", strings.Join(schema.Required(), ", "))
	return nil
}

func runRemoteSchema(cmd *cobra.Command, disease string) error {
	desc, err := newClient(cmd).Schema(cmd.Context(), disease)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s (%d features)\n", desc.DiseaseCode, len(desc.Order))
	for i, name := range desc.Order {
		line := fmt.Sprintf("%2d. %s", i+1, name)
		if value, ok := desc.Defaults[name]; ok {
			line += fmt.Sprintf("  [optional, default %g]", value)
		}
		fmt.Fprintln(out, line)
	}
	fmt.Fprintf(out, "required: %s\n", strings.Join(desc.Required, ", "))
	return nil
}
