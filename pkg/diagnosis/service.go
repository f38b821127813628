package diagnosis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/meddiag/platform/pkg/common/logger"
	"github.com/meddiag/platform/pkg/common/models"
	"github.com/meddiag/platform/pkg/features"
	"github.com/meddiag/platform/pkg/i18n"
	"github.com/meddiag/platform/pkg/observability/metrics"
	"github.com/meddiag/platform/pkg/serving/predictor"
)

const EventDiagnosisRecorded = "diagnosis.recorded"

var (
	ErrInvalidLimit  = errors.New("limit out of range")
	ErrInvalidOffset = errors.New("offset must not be negative")
	ErrCacheDisabled = errors.New("feature cache is disabled")
)

type ModelSource interface {
	Get(code features.Code) (*predictor.Predictor, error)
}

type EventPublisher interface {
	PublishEvent(ctx context.Context, eventType string, key string, data map[string]interface{}) error
}

type SubmissionStore interface {
	Save(ctx context.Context, code features.Code, email string, submission map[string]interface{}) error
	Latest(ctx context.Context, code features.Code, email string) (map[string]interface{}, error)
}

// Dependencies wires a Service. Events and Store are optional.
type Dependencies struct {
	Schemas      *features.Registry
	Models       ModelSource
	Messages     i18n.Catalog
	Repo         *Repository
	Events       EventPublisher
	Store        SubmissionStore
	DefaultLimit int
	MaxLimit     int
}

type Service struct {
	schemas      *features.Registry
	models       ModelSource
	messages     i18n.Catalog
	repo         *Repository
	events       EventPublisher
	store        SubmissionStore
	defaultLimit int
	maxLimit     int
}

func NewService(deps Dependencies) *Service {
	schemas := deps.Schemas
	if schemas == nil {
		schemas = features.DefaultRegistry()
	}
	messages := deps.Messages
	if len(messages.Languages) == 0 {
		messages = i18n.DefaultCatalog()
	}
	defaultLimit := deps.DefaultLimit
	if defaultLimit <= 0 {
		defaultLimit = 50
	}
	maxLimit := deps.MaxLimit
	if maxLimit <= 0 {
		maxLimit = 500
	}
	if defaultLimit > maxLimit {
		defaultLimit = maxLimit
	}
	return &Service{
		schemas:      schemas,
		models:       deps.Models,
		messages:     messages,
		repo:         deps.Repo,
		events:       deps.Events,
		store:        deps.Store,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
	}
}

// Diagnose runs one submission through schema lookup, validation, assembly
// and prediction, then stores the outcome for the patient. Validation errors
// are returned unchanged so the caller can report the offending fields.
func (s *Service) Diagnose(ctx context.Context, code string, req models.PredictRequest) (models.DiagnosisResponse, error) {
	schema, err := s.schemas.SchemaFor(code)
	if err != nil {
		metrics.ObserveUnknownDisease()
		s.logUnknownDisease(err, code, req.Patient)
		return models.DiagnosisResponse{}, err
	}
	disease := schema.Code()

	patient, err := NormalizePatient(req.Patient)
	if err != nil {
		return models.DiagnosisResponse{}, err
	}

	submission := features.Submission(req.Features)
	if err := features.Validate(schema, submission); err != nil {
		metrics.ObserveValidationRejected()
		return models.DiagnosisResponse{}, err
	}
	vector, err := features.Assemble(schema, submission)
	if err != nil {
		if features.IsValidationError(err) {
			metrics.ObserveValidationRejected()
		}
		return models.DiagnosisResponse{}, err
	}

	model, err := s.models.Get(disease)
	if err != nil {
		metrics.ObserveUnknownDisease()
		s.logUnknownDisease(err, string(disease), patient)
		return models.DiagnosisResponse{}, err
	}

	text := s.text(req.Language, disease)
	result, err := model.Predict(vector, predictor.Messages{Positive: text.Positive, Negative: text.Negative})
	if err != nil {
		metrics.ObservePredictionFailure()
		s.logFailure(err, disease, patient, "Prediction failed")
		return models.DiagnosisResponse{}, err
	}

	named := vector.Named(schema)
	recorded, err := s.repo.RecordDiagnosis(ctx, RecordInput{
		Patient:     patient,
		DiseaseCode: disease,
		Probability: result.Probability,
		Message:     result.Message,
		Features:    named,
		Symptoms:    req.Symptoms,
	})
	if err != nil {
		metrics.ObserveRecordFailure()
		s.logFailure(err, disease, patient, "Failed to record diagnosis")
		return models.DiagnosisResponse{}, fmt.Errorf("recording diagnosis: %w", err)
	}

	if s.store != nil && patient.Email != nil {
		if err := s.store.Save(ctx, disease, *patient.Email, named); err != nil {
			logger.Log.WithError(err).WithField("disease_code", disease).Warn("Failed to cache submitted features")
		}
	}

	if s.events != nil {
		event := map[string]interface{}{
			"diagnosis_id": recorded.DiagnosisID,
			"user_id":      recorded.UserID,
			"disease_code": string(disease),
			"prediction":   result.Label,
			"probability":  result.Probability,
			"generated_at": recorded.GeneratedAt,
		}
		key := fmt.Sprintf("%d", recorded.UserID)
		if err := s.events.PublishEvent(ctx, EventDiagnosisRecorded, key, event); err != nil {
			logger.Log.WithError(err).WithField("diagnosis_id", recorded.DiagnosisID).Warn("Failed to publish diagnosis event")
		}
	}

	metrics.ObservePrediction(result.IsPositive())

	recommendation := text.NegativeRecommendation
	if result.IsPositive() {
		recommendation = text.PositiveRecommendation
	}

	logger.Log.WithFields(map[string]interface{}{
		"diagnosis_id": recorded.DiagnosisID,
		"disease_code": disease,
		"prediction":   result.Label,
		"probability":  result.Probability,
	}).Info("Diagnosis recorded")

	return models.DiagnosisResponse{
		DiagnosisID:    recorded.DiagnosisID,
		DiseaseCode:    string(disease),
		Prediction:     result.Label,
		Probability:    result.Probability,
		Message:        result.Message,
		Recommendation: recommendation,
	}, nil
}

func (s *Service) text(lang string, code features.Code) i18n.DiseaseText {
	if text, ok := s.messages.Text(lang, code); ok {
		return text
	}
	text, _ := i18n.DefaultCatalog().Text(lang, code)
	return text
}

func (s *Service) logFailure(err error, disease features.Code, patient models.Patient, msg string) {
	fields := map[string]interface{}{
		"disease_code": disease,
		"patient_name": patient.Name,
	}
	if patient.Email != nil {
		fields["patient_email"] = *patient.Email
	}
	logger.Log.WithError(err).WithFields(fields).Error(msg)
}

func (s *Service) logUnknownDisease(err error, code string, patient models.Patient) {
	fields := map[string]interface{}{
		"disease_code": code,
		"patient_name": patient.Name,
	}
	if patient.Email != nil {
		fields["patient_email"] = *patient.Email
	}
	logger.Log.WithError(err).WithFields(fields).Warn("Prediction requested for unavailable disease")
}

func (s *Service) CreateUser(ctx context.Context, patient models.Patient) (models.User, error) {
	return s.repo.GetOrCreateUser(ctx, patient)
}

// History applies the configured default when filter.Limit is zero.
func (s *Service) History(ctx context.Context, filter HistoryFilter) ([]models.HistoryEntry, error) {
	if filter.Limit == 0 {
		filter.Limit = s.defaultLimit
	}
	if filter.Limit < 1 || filter.Limit > s.maxLimit {
		return nil, fmt.Errorf("%w: must be between 1 and %d", ErrInvalidLimit, s.maxLimit)
	}
	if filter.Offset < 0 {
		return nil, ErrInvalidOffset
	}
	return s.repo.History(ctx, filter)
}

func (s *Service) UpdateStatus(ctx context.Context, id uint, status string) error {
	return s.repo.UpdateStatus(ctx, id, status)
}

func (s *Service) Schema(code string) (models.SchemaDescription, error) {
	schema, err := s.schemas.SchemaFor(code)
	if err != nil {
		return models.SchemaDescription{}, err
	}
	return models.SchemaDescription{
		DiseaseCode: string(schema.Code()),
		Order:       schema.Order(),
		Required:    schema.Required(),
		Defaults:    schema.Defaults(),
	}, nil
}

// LastSubmission returns the features most recently submitted by the patient
// registered under email.
func (s *Service) LastSubmission(ctx context.Context, code string, email string) (map[string]interface{}, error) {
	schema, err := s.schemas.SchemaFor(code)
	if err != nil {
		return nil, err
	}
	if s.store == nil {
		return nil, ErrCacheDisabled
	}
	return s.store.Latest(ctx, schema.Code(), strings.ToLower(strings.TrimSpace(email)))
}
