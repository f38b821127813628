package diagnosis

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/meddiag/platform/pkg/common/models"
	"github.com/meddiag/platform/pkg/gateway/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) (*mux.Router, *serviceFixture) {
	t.Helper()
	fx := newServiceFixture(t)
	router := mux.NewRouter()
	NewHandler(fx.service).Register(router)
	return router, fx
}

func doRequest(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

const diabetesBody = `{
	"patient": {"name": "Ana", "email": "ana@example.com", "gender": "F"},
	"features": {"Pregnancies": 2, "Glucose": 150, "BloodPressure": 80, "BMI": "28.5", "Age": 45},
	"language": "en"
}`

func TestPredictEndpoint(t *testing.T) {
	router, fx := newTestRouter(t)

	rec := doRequest(router, http.MethodPost, "/predict/diabetes", diabetesBody)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp models.DiagnosisResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "DIAB", resp.DiseaseCode)
	assert.Equal(t, 1, resp.Prediction)
	assert.Equal(t, "The person may be diabetic, consult your doctor.", resp.Message)
	assert.Equal(t, []float64{2, 150, 80, 20, 80, 28.5, 0.5, 45}, fx.diabetes.rows[0])
}

func TestPredictEndpointMissingFeatures(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doRequest(router, http.MethodPost, "/predict/DIAB", `{"patient":{"name":"Ana"},"features":{"Pregnancies":1}}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"Glucose", "BloodPressure", "BMI", "Age"}, resp.Fields)
}

func TestPredictEndpointErrors(t *testing.T) {
	router, fx := newTestRouter(t)

	rec := doRequest(router, http.MethodPost, "/predict/diabetes", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(router, http.MethodPost, "/predict/lungs", diabetesBody)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), unavailable)

	rec = doRequest(router, http.MethodPost, "/predict/diabetes",
		`{"patient":{"name":"Ana","gender":"Z"},"features":{"Pregnancies":2,"Glucose":150,"BloodPressure":80,"BMI":28.5,"Age":45}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	fx.diabetes.err = errors.New("boom")
	rec = doRequest(router, http.MethodPost, "/predict/diabetes", diabetesBody)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), unavailable)
}

func TestHistoryAndStatusEndpoints(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doRequest(router, http.MethodPost, "/predict/diabetes", diabetesBody)
	require.Equal(t, http.StatusOK, rec.Code)
	var created models.DiagnosisResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = doRequest(router, http.MethodGet, "/diagnoses/history?email=ana@example.com", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var page struct {
		Items []models.HistoryEntry `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Len(t, page.Items, 1)
	assert.Equal(t, StatusPending, page.Items[0].Status)

	rec = doRequest(router, http.MethodGet, "/diagnoses/history?limit=0", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = doRequest(router, http.MethodGet, "/diagnoses/history?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	path := "/diagnoses/" + jsonNumber(created.DiagnosisID) + "/status"
	rec = doRequest(router, http.MethodPatch, path, `{"status":"confirmed"}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(router, http.MethodPatch, path, `{"status":"lost"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(router, http.MethodPatch, "/diagnoses/424242/status", `{"status":"confirmed"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateUserEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doRequest(router, http.MethodPost, "/users", `{"name":"Ana","email":"ANA@example.com","age":34}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), "ana@example.com")

	rec = doRequest(router, http.MethodPost, "/users", `{"name":"Ana","age":200}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSchemaAndFeaturesEndpoints(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doRequest(router, http.MethodGet, "/schemas/heart", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var desc models.SchemaDescription
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &desc))
	assert.Equal(t, "HEART", desc.DiseaseCode)
	assert.Equal(t, "age", desc.Order[0])

	rec = doRequest(router, http.MethodGet, "/patients/features?email=ana@example.com&disease=diabetes", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(router, http.MethodPost, "/predict/diabetes", diabetesBody)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(router, http.MethodGet, "/patients/features?email=ana@example.com&disease=diabetes", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"Glucose":150`)

	rec = doRequest(router, http.MethodGet, "/patients/features?disease=diabetes", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPredictEndpointBodyTooLarge(t *testing.T) {
	router, fx := newTestRouter(t)
	handler := middleware.BodyLimit(32)(router)

	rec := doRequest(handler, http.MethodPost, "/predict/diabetes", diabetesBody)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Nil(t, fx.diabetes.rows)

	rec = doRequest(handler, http.MethodPatch, "/diagnoses/1/status", `{"status":"`+strings.Repeat("x", 64)+`"}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func jsonNumber(id uint) string {
	b, _ := json.Marshal(id)
	return string(b)
}
