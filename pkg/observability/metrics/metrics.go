package metrics

import (
	"fmt"
	"net/http"
	"sync/atomic"
)

var (
	predictionsPositive  atomic.Int64
	predictionsNegative  atomic.Int64
	validationRejected   atomic.Int64
	predictionFailures   atomic.Int64
	recordFailures       atomic.Int64
	unknownDiseaseLookup atomic.Int64
)

func ObservePrediction(positive bool) {
	if positive {
		predictionsPositive.Add(1)
		return
	}
	predictionsNegative.Add(1)
}

func ObserveValidationRejected() { validationRejected.Add(1) }

func ObservePredictionFailure() { predictionFailures.Add(1) }

func ObserveRecordFailure() { recordFailures.Add(1) }

func ObserveUnknownDisease() { unknownDiseaseLookup.Add(1) }

func WritePrometheus(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	fmt.Fprintf(w, "# HELP meddiag_predictions_total Number of completed predictions by outcome.\n")
	fmt.Fprintf(w, "# TYPE meddiag_predictions_total counter\n")
	fmt.Fprintf(w, "meddiag_predictions_total{outcome=\"positive\"} %d\n", predictionsPositive.Load())
	fmt.Fprintf(w, "meddiag_predictions_total{outcome=\"negative\"} %d\n", predictionsNegative.Load())

	fmt.Fprintf(w, "# HELP meddiag_validation_rejected_total Number of submissions rejected for missing or non-numeric features.\n")
	fmt.Fprintf(w, "# TYPE meddiag_validation_rejected_total counter\n")
	fmt.Fprintf(w, "meddiag_validation_rejected_total %d\n", validationRejected.Load())

	fmt.Fprintf(w, "# HELP meddiag_prediction_failures_total Number of model invocations that failed.\n")
	fmt.Fprintf(w, "# TYPE meddiag_prediction_failures_total counter\n")
	fmt.Fprintf(w, "meddiag_prediction_failures_total %d\n", predictionFailures.Load())

	fmt.Fprintf(w, "# HELP meddiag_record_failures_total Number of diagnoses that could not be stored.\n")
	fmt.Fprintf(w, "# TYPE meddiag_record_failures_total counter\n")
	fmt.Fprintf(w, "meddiag_record_failures_total %d\n", recordFailures.Load())

	fmt.Fprintf(w, "# HELP meddiag_unknown_disease_total Number of requests naming an unsupported disease.\n")
	fmt.Fprintf(w, "# TYPE meddiag_unknown_disease_total counter\n")
	fmt.Fprintf(w, "meddiag_unknown_disease_total %d\n", unknownDiseaseLookup.Load())
}
