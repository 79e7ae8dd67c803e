package validation

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// DocumentSchema validates untrusted JSON documents such as model output.
type DocumentSchema struct {
	schema *gojsonschema.Schema
}

// MustCompile compiles a JSON Schema literal and panics on a malformed schema.
func MustCompile(schemaJSON string) *DocumentSchema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
	if err != nil {
		panic(fmt.Sprintf("validation: compile schema: %v", err))
	}
	return &DocumentSchema{schema: schema}
}

// Validate returns an error listing every violation, or nil.
func (s *DocumentSchema) Validate(doc []byte) error {
	result, err := s.schema.Validate(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return fmt.Errorf("document is not valid JSON: %w", err)
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("document does not match schema: %s", strings.Join(msgs, "; "))
}
