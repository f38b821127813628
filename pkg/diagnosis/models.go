package diagnosis

import (
	"time"

	"gorm.io/datatypes"
)

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusDiscarded = "discarded"
)

type UserModel struct {
	ID          uint    `gorm:"primaryKey;autoIncrement"`
	Name        string  `gorm:"type:text;not null"`
	PhoneNumber *string `gorm:"type:text"`
	Age         *int    `gorm:"check:ck_users_age,age BETWEEN 0 AND 120"`
	Gender      *string `gorm:"type:varchar(1);check:ck_users_gender,gender IN ('M','F','O')"`
	Email       *string `gorm:"type:text;uniqueIndex"`
}

func (UserModel) TableName() string {
	return "users"
}

type DiseaseModel struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	DiseaseCode string `gorm:"type:text;not null;uniqueIndex"`
	Name        string `gorm:"type:text;not null"`
	Description string `gorm:"type:text"`
}

func (DiseaseModel) TableName() string {
	return "diseases"
}

type DiagnosisModel struct {
	ID               uint              `gorm:"primaryKey;autoIncrement"`
	UserID           uint              `gorm:"not null;index"`
	GeneratedAt      time.Time         `gorm:"not null;index"`
	Status           string            `gorm:"type:text;not null;default:pending;check:ck_diagnosis_status,status IN ('pending','confirmed','discarded')"`
	FinalDescription string            `gorm:"type:text"`
	Features         datatypes.JSONMap `gorm:"column:features"`

	User UserModel `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

func (DiagnosisModel) TableName() string {
	return "diagnoses"
}

// DiagnosisDetailModel stores the probability assigned to one candidate
// disease of a diagnosis.
type DiagnosisDetailModel struct {
	ID          uint    `gorm:"primaryKey;autoIncrement"`
	DiagnosisID uint    `gorm:"not null;uniqueIndex:uq_diag_disease"`
	DiseaseID   uint    `gorm:"not null;uniqueIndex:uq_diag_disease"`
	Probability float64 `gorm:"type:numeric(5,4);not null;check:ck_probability_range,probability >= 0 AND probability <= 1"`

	Diagnosis DiagnosisModel `gorm:"foreignKey:DiagnosisID;constraint:OnDelete:CASCADE"`
	Disease   DiseaseModel   `gorm:"foreignKey:DiseaseID;constraint:OnDelete:RESTRICT"`
}

func (DiagnosisDetailModel) TableName() string {
	return "diagnosis_details"
}

type SymptomModel struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	Name        string `gorm:"type:text;not null;uniqueIndex"`
	Description string `gorm:"type:text"`
}

func (SymptomModel) TableName() string {
	return "symptoms"
}

type DiagnosisSymptomModel struct {
	ID          uint `gorm:"primaryKey;autoIncrement"`
	DiagnosisID uint `gorm:"not null;uniqueIndex:uq_diag_symptom"`
	SymptomID   uint `gorm:"not null;uniqueIndex:uq_diag_symptom"`

	Diagnosis DiagnosisModel `gorm:"foreignKey:DiagnosisID;constraint:OnDelete:CASCADE"`
	Symptom   SymptomModel   `gorm:"foreignKey:SymptomID;constraint:OnDelete:RESTRICT"`
}

func (DiagnosisSymptomModel) TableName() string {
	return "diagnosis_symptoms"
}
