package ai

import (
	_ "embed"
	"errors"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed scoring.schema.json
var scoringSchemaSource string

var scoringSchema = jsonschema.MustCompileString("scoring.schema.json", scoringSchemaSource)

// schemaViolations validates a decoded payload against the scoring schema and
// returns one line per leaf violation.
func schemaViolations(payload interface{}) []string {
	err := scoringSchema.Validate(payload)
	if err == nil {
		return nil
	}

	var validationErr *jsonschema.ValidationError
	if !errors.As(err, &validationErr) {
		return []string{err.Error()}
	}

	var violations []string
	collectViolations(validationErr, &violations)
	return violations
}

func collectViolations(err *jsonschema.ValidationError, out *[]string) {
	if len(err.Causes) == 0 {
		location := err.InstanceLocation
		if location == "" {
			location = "/"
		}
		*out = append(*out, fmt.Sprintf("%s: %s", location, err.Message))
		return
	}
	for _, cause := range err.Causes {
		collectViolations(cause, out)
	}
}
