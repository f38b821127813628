package diagnosis

import (
	"context"
	"testing"

	"github.com/meddiag/platform/pkg/common/database"
	"github.com/meddiag/platform/pkg/common/models"
	"github.com/meddiag/platform/pkg/features"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	db, err := database.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	repo := NewRepository(db)
	require.NoError(t, repo.AutoMigrate())
	require.NoError(t, repo.SeedDiseases(context.Background()))
	return repo
}

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }

func TestSeedDiseasesIsIdempotent(t *testing.T) {
	repo := newTestRepository(t)
	require.NoError(t, repo.SeedDiseases(context.Background()))

	var count int64
	require.NoError(t, repo.db.Model(&DiseaseModel{}).Count(&count).Error)
	assert.Equal(t, int64(3), count)
}

func TestGetOrCreateUserReusesEmail(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	first, err := repo.GetOrCreateUser(ctx, models.Patient{Name: "Ana", Email: strPtr("Ana@Example.com"), Gender: strPtr("f")})
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", *first.Email)
	assert.Equal(t, "F", *first.Gender)

	second, err := repo.GetOrCreateUser(ctx, models.Patient{Name: "Ana B.", Email: strPtr("ana@example.com")})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestGetOrCreateUserWithoutEmail(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	a, err := repo.GetOrCreateUser(ctx, models.Patient{Name: "  "})
	require.NoError(t, err)
	b, err := repo.GetOrCreateUser(ctx, models.Patient{Name: "  "})
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, unnamedPatient, a.Name)
	assert.Nil(t, a.Email)
}

func TestGetOrCreateUserRejectsInvalidFields(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	_, err := repo.GetOrCreateUser(ctx, models.Patient{Name: "X", Gender: strPtr("Q")})
	assert.ErrorIs(t, err, ErrInvalidGender)

	_, err = repo.GetOrCreateUser(ctx, models.Patient{Name: "X", Age: intPtr(130)})
	assert.ErrorIs(t, err, ErrInvalidAge)
}

func TestRecordDiagnosis(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	recorded, err := repo.RecordDiagnosis(ctx, RecordInput{
		Patient:     models.Patient{Name: "Ana", Email: strPtr("ana@example.com")},
		DiseaseCode: features.Diabetes,
		Probability: 0.123456,
		Message:     "at risk",
		Features:    map[string]interface{}{"Glucose": 150.0},
		Symptoms:    []string{"Thirst", "thirst ", "fatigue"},
	})
	require.NoError(t, err)
	assert.NotZero(t, recorded.DiagnosisID)

	var detail DiagnosisDetailModel
	require.NoError(t, repo.db.Where("diagnosis_id = ?", recorded.DiagnosisID).First(&detail).Error)
	assert.InDelta(t, 0.1235, detail.Probability, 1e-9)

	var stored DiagnosisModel
	require.NoError(t, repo.db.First(&stored, recorded.DiagnosisID).Error)
	assert.Equal(t, StatusPending, stored.Status)
	assert.Equal(t, "at risk", stored.FinalDescription)
	assert.Equal(t, 150.0, stored.Features["Glucose"])

	symptoms, err := repo.Symptoms(ctx, recorded.DiagnosisID)
	require.NoError(t, err)
	assert.Equal(t, []string{"fatigue", "thirst"}, symptoms)
}

func TestRecordDiagnosisRollsBack(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	_, err := repo.RecordDiagnosis(ctx, RecordInput{
		Patient:     models.Patient{Name: "Ana", Email: strPtr("ana@example.com")},
		DiseaseCode: features.Code("XXXX"),
		Probability: 0.5,
	})
	assert.ErrorIs(t, err, ErrDiseaseNotFound)

	var users int64
	require.NoError(t, repo.db.Model(&UserModel{}).Count(&users).Error)
	assert.Zero(t, users)

	_, err = repo.RecordDiagnosis(ctx, RecordInput{
		Patient:     models.Patient{Name: "Ana"},
		DiseaseCode: features.Diabetes,
		Probability: 1.5,
	})
	assert.ErrorIs(t, err, ErrInvalidProbability)
}

func TestHistoryFiltersAndOrders(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	record := func(name, email string, code features.Code, p float64) uint {
		var mail *string
		if email != "" {
			mail = strPtr(email)
		}
		recorded, err := repo.RecordDiagnosis(ctx, RecordInput{
			Patient:     models.Patient{Name: name, Email: mail},
			DiseaseCode: code,
			Probability: p,
			Message:     "msg",
		})
		require.NoError(t, err)
		return recorded.DiagnosisID
	}

	first := record("Ana", "ana@example.com", features.Diabetes, 0.2)
	second := record("Ana", "ana@example.com", features.Heart, 0.8)
	record("Luis", "", features.Parkinsons, 1)

	all, err := repo.History(ctx, HistoryFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)

	byEmail, err := repo.History(ctx, HistoryFilter{Email: "ANA@example.com"})
	require.NoError(t, err)
	require.Len(t, byEmail, 2)
	assert.Equal(t, second, byEmail[0].ID)
	assert.Equal(t, first, byEmail[1].ID)
	assert.Equal(t, "HEART", byEmail[0].DiseaseCode)
	assert.InDelta(t, 0.8, byEmail[0].Probability, 1e-9)

	// name wins over email
	byName, err := repo.History(ctx, HistoryFilter{Name: "Luis", Email: "ana@example.com"})
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, "PARK", byName[0].DiseaseCode)
	assert.Nil(t, byName[0].UserEmail)

	page, err := repo.History(ctx, HistoryFilter{Email: "ana@example.com", Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, first, page[0].ID)
}

func TestUpdateStatus(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	recorded, err := repo.RecordDiagnosis(ctx, RecordInput{
		Patient:     models.Patient{Name: "Ana"},
		DiseaseCode: features.Diabetes,
		Probability: 0.4,
	})
	require.NoError(t, err)

	require.NoError(t, repo.UpdateStatus(ctx, recorded.DiagnosisID, "Confirmed"))
	var stored DiagnosisModel
	require.NoError(t, repo.db.First(&stored, recorded.DiagnosisID).Error)
	assert.Equal(t, StatusConfirmed, stored.Status)

	assert.ErrorIs(t, repo.UpdateStatus(ctx, recorded.DiagnosisID, "archived"), ErrInvalidStatus)
	assert.ErrorIs(t, repo.UpdateStatus(ctx, 9999, StatusDiscarded), ErrDiagnosisNotFound)
}
