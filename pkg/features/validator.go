package features

// Submission maps feature names to raw user-supplied values. Values may be
// any numeric type, json.Number or a numeric string.
type Submission map[string]interface{}

// Validate checks that every required feature of schema is present in
// submission. All missing names are reported together, in schema order.
func Validate(schema *Schema, submission Submission) error {
	var missing []string
	for _, name := range schema.order {
		if _, hasDefault := schema.defaults[name]; hasDefault {
			continue
		}
		if _, ok := submission[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return &MissingFeaturesError{Disease: schema.code, Names: missing}
	}
	return nil
}
