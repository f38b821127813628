package models

import "time"

// Event is the envelope published on the event bus.
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
}

// Patient identifies the person a diagnosis is stored for.
type Patient struct {
	Name        string  `json:"name"`
	Email       *string `json:"email,omitempty"`
	Gender      *string `json:"gender,omitempty"`
	PhoneNumber *string `json:"phone_number,omitempty"`
	Age         *int    `json:"age,omitempty"`
}

// PredictRequest is the body of POST /predict/{disease}.
type PredictRequest struct {
	Patient  Patient                `json:"patient"`
	Features map[string]interface{} `json:"features"`
	Symptoms []string               `json:"symptoms,omitempty"`
	Language string                 `json:"language,omitempty"`
}

type DiagnosisResponse struct {
	DiagnosisID    uint    `json:"diagnosis_id"`
	DiseaseCode    string  `json:"disease_code"`
	Prediction     int     `json:"prediction"`
	Probability    float64 `json:"probability"`
	Message        string  `json:"message"`
	Recommendation string  `json:"recommendation,omitempty"`
}

type User struct {
	ID          uint    `json:"id"`
	Name        string  `json:"name"`
	Email       *string `json:"email"`
	Gender      *string `json:"gender,omitempty"`
	PhoneNumber *string `json:"phone_number,omitempty"`
	Age         *int    `json:"age,omitempty"`
}

// HistoryEntry is one joined diagnosis row as shown in the history view.
type HistoryEntry struct {
	ID               uint      `json:"id"`
	GeneratedAt      time.Time `json:"generated_at"`
	Status           string    `json:"status"`
	FinalDescription string    `json:"final_description"`
	UserName         string    `json:"user_name"`
	UserEmail        *string   `json:"user_email"`
	DiseaseName      string    `json:"disease_name"`
	DiseaseCode      string    `json:"disease_code"`
	Probability      float64   `json:"probability"`
}

type StatusUpdateRequest struct {
	Status string `json:"status"`
}

// SchemaDescription describes the inputs a disease model expects.
type SchemaDescription struct {
	DiseaseCode string             `json:"disease_code"`
	Order       []string           `json:"order"`
	Required    []string           `json:"required"`
	Defaults    map[string]float64 `json:"defaults"`
}

// ErrorResponse is returned for every non-2xx API answer.
type ErrorResponse struct {
	Error  string   `json:"error"`
	Fields []string `json:"fields,omitempty"`
}
