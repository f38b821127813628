package i18n

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/meddiag/platform/pkg/features"
	"gopkg.in/yaml.v3"
)

// DiseaseText is the localized outcome text for one disease.
type DiseaseText struct {
	Positive               string `yaml:"positive" json:"positive"`
	Negative               string `yaml:"negative" json:"negative"`
	PositiveRecommendation string `yaml:"positive_recommendation" json:"positive_recommendation"`
	NegativeRecommendation string `yaml:"negative_recommendation" json:"negative_recommendation"`
}

// Catalog maps language -> disease code -> text. It is built once and passed
// to whoever renders results; there is no package-level current language.
type Catalog struct {
	DefaultLanguage string                            `yaml:"default_language" json:"default_language"`
	Languages       map[string]map[string]DiseaseText `yaml:"languages" json:"languages"`
}

func Load(path string) (Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Catalog{}, err
	}
	var cat Catalog
	if err := yaml.Unmarshal(content, &cat); err != nil {
		return Catalog{}, err
	}
	if len(cat.Languages) == 0 {
		return Catalog{}, fmt.Errorf("message catalog %s is empty", path)
	}
	if cat.DefaultLanguage == "" {
		cat.DefaultLanguage = "es"
	}
	if _, ok := cat.Languages[cat.DefaultLanguage]; !ok {
		return Catalog{}, fmt.Errorf("message catalog %s has no %q section", path, cat.DefaultLanguage)
	}
	return cat, nil
}

// WithDefault returns a copy of c that falls back to lang.
func (c Catalog) WithDefault(lang string) Catalog {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if _, ok := c.Languages[lang]; ok {
		c.DefaultLanguage = lang
	}
	return c
}

// Text returns the text for code in lang, falling back to the default
// language when lang is empty or unknown.
func (c Catalog) Text(lang string, code features.Code) (DiseaseText, bool) {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if table, ok := c.Languages[lang]; ok {
		if text, ok := table[string(code)]; ok {
			return text, true
		}
	}
	text, ok := c.Languages[c.DefaultLanguage][string(code)]
	return text, ok
}

func DefaultCatalog() Catalog {
	return Catalog{
		DefaultLanguage: "es",
		Languages: map[string]map[string]DiseaseText{
			"es": {
				string(features.Diabetes): {
					Positive:               "La persona puede ser diabética, consulte a su médico.",
					Negative:               "La persona no es diabética.",
					PositiveRecommendation: "Programe una consulta médica y solicite una prueba de glucosa en ayunas o HbA1c. Reduzca azúcares y harinas refinadas y mantenga actividad física regular.",
					NegativeRecommendation: "Mantenga una alimentación balanceada, actividad física regular y controles periódicos de glucosa.",
				},
				string(features.Heart): {
					Positive:               "La persona puede ser cardiaca, consulte a su médico.",
					Negative:               "La persona no es cardiaca.",
					PositiveRecommendation: "Consulte a un cardiólogo para una valoración con electrocardiograma y perfil lipídico. Controle la presión arterial y evite el tabaco.",
					NegativeRecommendation: "Conserve hábitos cardiosaludables: ejercicio, dieta baja en grasas saturadas y control de la presión arterial.",
				},
				string(features.Parkinsons): {
					Positive:               "La persona puede tener Parkinson, consulte a su médico.",
					Negative:               "La persona no tiene Parkinson.",
					PositiveRecommendation: "Solicite una valoración por neurología. Este resultado se basa solo en parámetros de voz.",
					NegativeRecommendation: "Si aparecen temblores, rigidez o cambios en la voz, consulte a un especialista.",
				},
			},
			"en": {
				string(features.Diabetes): {
					Positive:               "The person may be diabetic, consult your doctor.",
					Negative:               "The person is not diabetic.",
					PositiveRecommendation: "Book a medical appointment and ask for a fasting glucose or HbA1c test. Cut down on sugar and refined flour and stay physically active.",
					NegativeRecommendation: "Keep a balanced diet, regular exercise and periodic glucose checks.",
				},
				string(features.Heart): {
					Positive:               "The person may have a heart condition, consult your doctor.",
					Negative:               "The person does not have a heart condition.",
					PositiveRecommendation: "See a cardiologist for an ECG and lipid panel. Monitor blood pressure and avoid tobacco.",
					NegativeRecommendation: "Keep heart-healthy habits: exercise, low saturated fat and blood pressure control.",
				},
				string(features.Parkinsons): {
					Positive:               "The person may have Parkinson's disease, consult your doctor.",
					Negative:               "The person does not have Parkinson's disease.",
					PositiveRecommendation: "Ask for a neurology assessment. This result relies on voice parameters only.",
					NegativeRecommendation: "If tremor, stiffness or voice changes appear, see a specialist.",
				},
			},
		},
	}
}
