package features

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaForUnknownDisease(t *testing.T) {
	_, err := SchemaFor("XXXX")
	require.Error(t, err)

	var unknown *UnknownDiseaseError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "XXXX", unknown.Code)
}

func TestSchemaForNormalizesCode(t *testing.T) {
	schema, err := SchemaFor(" diab ")
	require.NoError(t, err)
	assert.Equal(t, Diabetes, schema.Code())
}

func TestBuiltinSchemasHoldInvariants(t *testing.T) {
	for _, code := range Codes {
		schema, err := SchemaFor(string(code))
		require.NoError(t, err, code)

		order := schema.Order()
		seen := map[string]bool{}
		for _, name := range order {
			assert.False(t, seen[name], "%s: duplicate %s", code, name)
			seen[name] = true
		}
		for name := range schema.Defaults() {
			assert.True(t, seen[name], "%s: default %s outside order", code, name)
		}
	}
}

func TestBuiltinSchemaSizes(t *testing.T) {
	cases := map[Code]int{Diabetes: 8, Heart: 13, Parkinsons: 22}
	for code, want := range cases {
		schema, err := SchemaFor(string(code))
		require.NoError(t, err)
		assert.Equal(t, want, schema.Len(), code)
	}
}

func TestNewSchemaRejectsBrokenTables(t *testing.T) {
	_, err := NewSchema(Diabetes, nil, nil)
	assert.ErrorIs(t, err, errEmptyOrder)

	_, err = NewSchema(Diabetes, []string{"a", "b", "a"}, nil)
	assert.ErrorIs(t, err, errDuplicateName)

	_, err = NewSchema(Diabetes, []string{"a"}, map[string]float64{"b": 1})
	assert.ErrorIs(t, err, errOrphanDefault)

	_, err = NewSchema(Diabetes, []string{"a", " "}, nil)
	assert.ErrorIs(t, err, errBlankFeature)
}

func TestSchemaIsImmutable(t *testing.T) {
	order := []string{"a", "b"}
	defaults := map[string]float64{"b": 2}
	schema, err := NewSchema(Heart, order, defaults)
	require.NoError(t, err)

	order[0] = "z"
	defaults["b"] = 99
	got := schema.Order()
	got[1] = "y"
	schema.Defaults()["b"] = 42

	assert.Equal(t, []string{"a", "b"}, schema.Order())
	value, ok := schema.Default("b")
	require.True(t, ok)
	assert.Equal(t, 2.0, value)
}

func TestRequiredExcludesDefaults(t *testing.T) {
	schema, err := SchemaFor("DIAB")
	require.NoError(t, err)
	assert.Equal(t, []string{"Pregnancies", "Glucose", "BloodPressure", "BMI", "Age"}, schema.Required())
}

func TestNewRegistryNeedsEveryDisease(t *testing.T) {
	diab, err := SchemaFor("DIAB")
	require.NoError(t, err)
	_, err = NewRegistry(diab)
	assert.Error(t, err)
}

func TestResolveAlias(t *testing.T) {
	assert.Equal(t, "DIAB", ResolveAlias("diabetes"))
	assert.Equal(t, "HEART", ResolveAlias(" Heart "))
	assert.Equal(t, "PARK", ResolveAlias("parkinson"))
	assert.Equal(t, "park", ResolveAlias("park"))
	assert.Equal(t, "XXXX", ResolveAlias("XXXX"))
}
