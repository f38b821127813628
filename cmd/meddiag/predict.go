package main

import (
	"fmt"
	"strings"

	"github.com/meddiag/platform/pkg/common/models"
	"github.com/spf13/cobra"
)

var predictCmd = &cobra.Command{
	Use:   "predict <disease>",
	Short: "Submit features and print the prediction",
	Long:  "Submit features for diabetes, heart or parkinson (or a disease code) and print the stored prediction.",
	Args:  cobra.ExactArgs(1),
	RunE:  runPredict,
}

func init() {
	predictCmd.Flags().StringArrayP("feature", "f", nil, "Feature as name=value, repeatable")
	predictCmd.Flags().String("name", "", "Patient name")
	predictCmd.Flags().String("email", "", "Patient email")
	predictCmd.Flags().String("phone", "", "Patient phone number")
	predictCmd.Flags().String("gender", "", "Patient gender (M, F or O)")
	predictCmd.Flags().Int("age", -1, "Patient age")
	predictCmd.Flags().StringArray("symptom", nil, "Reported symptom, repeatable")
	predictCmd.Flags().String("lang", "", "Message language (es or en)")
}

func runPredict(cmd *cobra.Command, args []string) error {
	pairs, _ := cmd.Flags().GetStringArray("feature")
	submission, err := parseFeatures(pairs)
	if err != nil {
		return err
	}

	name, _ := cmd.Flags().GetString("name")
	patient := models.Patient{Name: name}
	patient.Email = optionalFlag(cmd, "email")
	patient.PhoneNumber = optionalFlag(cmd, "phone")
	patient.Gender = optionalFlag(cmd, "gender")
	if age, _ := cmd.Flags().GetInt("age"); age >= 0 {
		patient.Age = &age
	}
	symptoms, _ := cmd.Flags().GetStringArray("symptom")
	lang, _ := cmd.Flags().GetString("lang")

	resp, err := newClient(cmd).Predict(cmd.Context(), args[0], models.PredictRequest{
		Patient:  patient,
		Features: submission,
		Symptoms: symptoms,
		Language: lang,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Diagnosis #%d (%s)\n", resp.DiagnosisID, resp.DiseaseCode)
	fmt.Fprintf(out, "Prediction:  %d\n", resp.Prediction)
	fmt.Fprintf(out, "Probability: %.2f%%\n", resp.Probability*100)
	fmt.Fprintln(out, resp.Message)
	if resp.Recommendation != "" {
		fmt.Fprintln(out, resp.Recommendation)
	}
	return nil
}

// parseFeatures turns name=value pairs into a submission. Values are sent as
// strings and converted by the server.
func parseFeatures(pairs []string) (map[string]interface{}, error) {
	submission := make(map[string]interface{}, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid feature %q, expected name=value", pair)
		}
		submission[name] = strings.TrimSpace(value)
	}
	return submission, nil
}

func optionalFlag(cmd *cobra.Command, name string) *string {
	value, _ := cmd.Flags().GetString(name)
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return &value
}
