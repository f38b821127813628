package diagnosis

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/meddiag/platform/pkg/common/models"
	"github.com/meddiag/platform/pkg/features"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const unnamedPatient = "Unnamed patient"

var (
	ErrDiseaseNotFound    = errors.New("disease not found")
	ErrDiagnosisNotFound  = errors.New("diagnosis not found")
	ErrInvalidProbability = errors.New("probability must be within [0, 1]")
	ErrInvalidStatus      = errors.New("status must be pending, confirmed or discarded")
	ErrInvalidGender      = errors.New("gender must be M, F or O")
	ErrInvalidAge         = errors.New("age must be between 0 and 120")
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(
		&UserModel{},
		&DiseaseModel{},
		&DiagnosisModel{},
		&DiagnosisDetailModel{},
		&SymptomModel{},
		&DiagnosisSymptomModel{},
	)
}

type diseaseSeed struct {
	code        features.Code
	name        string
	description string
}

var defaultDiseases = []diseaseSeed{
	{features.Diabetes, "Diabetes risk (ML model)", "Model trained on the Pima Indians diabetes dataset."},
	{features.Heart, "Heart disease risk", "Model trained on the UCI heart disease dataset."},
	{features.Parkinsons, "Parkinson's disease risk", "Model based on voice recording parameters."},
}

// SeedDiseases inserts the supported diseases that are not stored yet.
func (r *Repository) SeedDiseases(ctx context.Context) error {
	for _, seed := range defaultDiseases {
		disease := DiseaseModel{DiseaseCode: string(seed.code), Name: seed.name, Description: seed.description}
		err := r.db.WithContext(ctx).
			Where(DiseaseModel{DiseaseCode: string(seed.code)}).
			FirstOrCreate(&disease).Error
		if err != nil {
			return fmt.Errorf("seeding disease %s: %w", seed.code, err)
		}
	}
	return nil
}

// NormalizePatient trims the optional fields, lower-cases the email and
// checks gender and age against the table constraints.
func NormalizePatient(p models.Patient) (models.Patient, error) {
	out := models.Patient{Name: strings.TrimSpace(p.Name), Age: p.Age}
	if out.Name == "" {
		out.Name = unnamedPatient
	}
	out.Email = normalizeOptional(p.Email, strings.ToLower)
	out.PhoneNumber = normalizeOptional(p.PhoneNumber, nil)
	out.Gender = normalizeOptional(p.Gender, strings.ToUpper)
	if out.Gender != nil {
		switch *out.Gender {
		case "M", "F", "O":
		default:
			return models.Patient{}, ErrInvalidGender
		}
	}
	if out.Age != nil && (*out.Age < 0 || *out.Age > 120) {
		return models.Patient{}, ErrInvalidAge
	}
	return out, nil
}

func normalizeOptional(value *string, transform func(string) string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	if transform != nil {
		trimmed = transform(trimmed)
	}
	return &trimmed
}

// GetOrCreateUser reuses the user registered under the patient's email, or
// creates one. Patients without an email always get a new row.
func (r *Repository) GetOrCreateUser(ctx context.Context, patient models.Patient) (models.User, error) {
	var user UserModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		user, err = getOrCreateUser(tx, patient)
		return err
	})
	if err != nil {
		return models.User{}, err
	}
	return mapUserModel(user), nil
}

func getOrCreateUser(tx *gorm.DB, patient models.Patient) (UserModel, error) {
	normalized, err := NormalizePatient(patient)
	if err != nil {
		return UserModel{}, err
	}

	if normalized.Email != nil {
		var existing UserModel
		err := tx.Where("email = ?", *normalized.Email).First(&existing).Error
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return UserModel{}, err
		}
	}

	user := UserModel{
		Name:        normalized.Name,
		Email:       normalized.Email,
		Gender:      normalized.Gender,
		PhoneNumber: normalized.PhoneNumber,
		Age:         normalized.Age,
	}
	if err := tx.Create(&user).Error; err != nil {
		return UserModel{}, err
	}
	return user, nil
}

type RecordInput struct {
	Patient     models.Patient
	DiseaseCode features.Code
	Probability float64
	Message     string
	Features    map[string]interface{}
	Symptoms    []string
}

type Recorded struct {
	DiagnosisID uint
	UserID      uint
	GeneratedAt time.Time
}

// RecordDiagnosis stores a prediction for a patient. The user lookup, the
// diagnosis row, its probability detail and any symptom links commit together.
func (r *Repository) RecordDiagnosis(ctx context.Context, input RecordInput) (Recorded, error) {
	probability, err := normalizeProbability(input.Probability)
	if err != nil {
		return Recorded{}, err
	}

	var recorded Recorded
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := getOrCreateUser(tx, input.Patient)
		if err != nil {
			return err
		}

		var disease DiseaseModel
		err = tx.Where("disease_code = ?", string(input.DiseaseCode)).First(&disease).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: %s", ErrDiseaseNotFound, input.DiseaseCode)
		}
		if err != nil {
			return err
		}

		diagnosis := DiagnosisModel{
			UserID:           user.ID,
			GeneratedAt:      time.Now().UTC(),
			Status:           StatusPending,
			FinalDescription: input.Message,
		}
		if input.Features != nil {
			diagnosis.Features = datatypes.JSONMap(input.Features)
		}
		if err := tx.Omit(clause.Associations).Create(&diagnosis).Error; err != nil {
			return err
		}

		detail := DiagnosisDetailModel{
			DiagnosisID: diagnosis.ID,
			DiseaseID:   disease.ID,
			Probability: probability,
		}
		if err := tx.Omit(clause.Associations).Create(&detail).Error; err != nil {
			return err
		}

		if err := attachSymptoms(tx, diagnosis.ID, input.Symptoms); err != nil {
			return err
		}

		recorded = Recorded{DiagnosisID: diagnosis.ID, UserID: user.ID, GeneratedAt: diagnosis.GeneratedAt}
		return nil
	})
	return recorded, err
}

func attachSymptoms(tx *gorm.DB, diagnosisID uint, names []string) error {
	seen := map[string]struct{}{}
	for _, raw := range names {
		name := strings.ToLower(strings.TrimSpace(raw))
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}

		symptom := SymptomModel{Name: name}
		if err := tx.Where(SymptomModel{Name: name}).FirstOrCreate(&symptom).Error; err != nil {
			return err
		}
		link := DiagnosisSymptomModel{DiagnosisID: diagnosisID, SymptomID: symptom.ID}
		if err := tx.Omit(clause.Associations).Create(&link).Error; err != nil {
			return err
		}
	}
	return nil
}

// normalizeProbability rounds to the four decimals the column keeps.
func normalizeProbability(p float64) (float64, error) {
	if math.IsNaN(p) || p < 0 || p > 1 {
		return 0, fmt.Errorf("%w: %v", ErrInvalidProbability, p)
	}
	return math.Round(p*10000) / 10000, nil
}

type HistoryFilter struct {
	Name   string
	Email  string
	Limit  int
	Offset int
}

type historyRow struct {
	ID               uint
	GeneratedAt      time.Time
	Status           string
	FinalDescription string
	UserName         string
	UserEmail        *string
	DiseaseName      string
	DiseaseCode      string
	Probability      float64
}

// History returns stored diagnoses, newest first. A name filter takes
// precedence over an email filter.
func (r *Repository) History(ctx context.Context, filter HistoryFilter) ([]models.HistoryEntry, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := r.db.WithContext(ctx).
		Table("diagnoses").
		Select(strings.Join([]string{
			"diagnoses.id",
			"diagnoses.generated_at",
			"diagnoses.status",
			"diagnoses.final_description",
			"users.name AS user_name",
			"users.email AS user_email",
			"diseases.name AS disease_name",
			"diseases.disease_code",
			"diagnosis_details.probability",
		}, ", ")).
		Joins("JOIN users ON diagnoses.user_id = users.id").
		Joins("JOIN diagnosis_details ON diagnosis_details.diagnosis_id = diagnoses.id").
		Joins("JOIN diseases ON diagnosis_details.disease_id = diseases.id")

	switch {
	case strings.TrimSpace(filter.Name) != "":
		query = query.Where("users.name = ?", strings.TrimSpace(filter.Name))
	case strings.TrimSpace(filter.Email) != "":
		query = query.Where("users.email = ?", strings.ToLower(strings.TrimSpace(filter.Email)))
	}

	var rows []historyRow
	err := query.
		Order("diagnoses.generated_at DESC").
		Order("diagnoses.id DESC").
		Limit(limit).
		Offset(offset).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	entries := make([]models.HistoryEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, models.HistoryEntry{
			ID:               row.ID,
			GeneratedAt:      row.GeneratedAt,
			Status:           row.Status,
			FinalDescription: row.FinalDescription,
			UserName:         row.UserName,
			UserEmail:        row.UserEmail,
			DiseaseName:      row.DiseaseName,
			DiseaseCode:      row.DiseaseCode,
			Probability:      row.Probability,
		})
	}
	return entries, nil
}

func (r *Repository) UpdateStatus(ctx context.Context, id uint, status string) error {
	status = strings.ToLower(strings.TrimSpace(status))
	switch status {
	case StatusPending, StatusConfirmed, StatusDiscarded:
	default:
		return ErrInvalidStatus
	}
	result := r.db.WithContext(ctx).Model(&DiagnosisModel{}).Where("id = ?", id).Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrDiagnosisNotFound
	}
	return nil
}

// Symptoms returns the symptom names linked to a diagnosis.
func (r *Repository) Symptoms(ctx context.Context, diagnosisID uint) ([]string, error) {
	var names []string
	err := r.db.WithContext(ctx).
		Table("diagnosis_symptoms").
		Select("symptoms.name").
		Joins("JOIN symptoms ON symptoms.id = diagnosis_symptoms.symptom_id").
		Where("diagnosis_symptoms.diagnosis_id = ?", diagnosisID).
		Order("symptoms.name").
		Pluck("symptoms.name", &names).Error
	return names, err
}

func mapUserModel(user UserModel) models.User {
	return models.User{
		ID:          user.ID,
		Name:        user.Name,
		Email:       user.Email,
		Gender:      user.Gender,
		PhoneNumber: user.PhoneNumber,
		Age:         user.Age,
	}
}
