package validation

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strings"

	apperrors "signalx/internal/common/errors"
)

// JSONSchema describes the accepted shape of a request body.
type JSONSchema struct {
	Type                 string              `json:"type"`
	Properties           map[string]Property `json:"properties"`
	Required             []string            `json:"required,omitempty"`
	AdditionalProperties bool                `json:"additionalProperties,omitempty"`
}

type Property struct {
	Type       string              `json:"type"`
	Minimum    *float64            `json:"minimum,omitempty"`
	Maximum    *float64            `json:"maximum,omitempty"`
	Enum       []string            `json:"enum,omitempty"`
	MinLength  *int                `json:"minLength,omitempty"`
	MaxLength  *int                `json:"maxLength,omitempty"`
	Items      *Property           `json:"items,omitempty"`
	Properties map[string]Property `json:"properties,omitempty"`
	Required   []string            `json:"required,omitempty"`
}

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ValidateInput validates a decoded JSON object against schema. A required
// field that is null or an empty string counts as missing.
func ValidateInput(input map[string]interface{}, schema JSONSchema) *ValidationResult {
	errors := []ValidationError{}

	for _, requiredField := range schema.Required {
		value, exists := input[requiredField]
		if !exists || value == nil || value == "" {
			errors = append(errors, ValidationError{
				Field:   requiredField,
				Message: "required field missing",
				Code:    "REQUIRED_FIELD_MISSING",
			})
		}
	}

	for fieldName, value := range input {
		prop, exists := schema.Properties[fieldName]
		if !exists {
			if !schema.AdditionalProperties {
				errors = append(errors, ValidationError{
					Field:   fieldName,
					Message: "field not allowed in schema",
					Code:    "EXTRA_FIELD",
				})
			}
			continue
		}
		if value == nil {
			continue
		}

		errors = append(errors, validateField(fieldName, value, prop)...)
	}

	return &ValidationResult{
		Valid:  len(errors) == 0,
		Errors: errors,
	}
}

func validateField(fieldName string, value interface{}, prop Property) []ValidationError {
	errors := []ValidationError{}

	if typeErr := validateType(value, prop.Type); typeErr != nil {
		return append(errors, ValidationError{
			Field:   fieldName,
			Message: typeErr.Error(),
			Code:    "INVALID_TYPE",
		})
	}

	if strVal, ok := value.(string); ok {
		if prop.MinLength != nil && len(strVal) < *prop.MinLength {
			errors = append(errors, ValidationError{
				Field:   fieldName,
				Message: fmt.Sprintf("value must be at least %d characters", *prop.MinLength),
				Code:    "MIN_LENGTH_VIOLATION",
			})
		}
		if prop.MaxLength != nil && len(strVal) > *prop.MaxLength {
			errors = append(errors, ValidationError{
				Field:   fieldName,
				Message: fmt.Sprintf("value must be at most %d characters", *prop.MaxLength),
				Code:    "MAX_LENGTH_VIOLATION",
			})
		}
		if len(prop.Enum) > 0 && !contains(prop.Enum, strVal) {
			errors = append(errors, ValidationError{
				Field:   fieldName,
				Message: fmt.Sprintf("value must be one of %v", prop.Enum),
				Code:    "INVALID_ENUM_VALUE",
			})
		}
	}

	if numVal, ok := value.(float64); ok {
		if prop.Minimum != nil && numVal < *prop.Minimum {
			errors = append(errors, ValidationError{
				Field:   fieldName,
				Message: fmt.Sprintf("value must be >= %v", *prop.Minimum),
				Code:    "MINIMUM_VIOLATION",
			})
		}
		if prop.Maximum != nil && numVal > *prop.Maximum {
			errors = append(errors, ValidationError{
				Field:   fieldName,
				Message: fmt.Sprintf("value must be <= %v", *prop.Maximum),
				Code:    "MAXIMUM_VIOLATION",
			})
		}
	}

	if arrVal, ok := value.([]interface{}); ok && prop.Items != nil {
		for i, item := range arrVal {
			errors = append(errors, validateField(fmt.Sprintf("%s[%d]", fieldName, i), item, *prop.Items)...)
		}
	}

	if objVal, ok := value.(map[string]interface{}); ok && prop.Properties != nil {
		nested := ValidateInput(objVal, JSONSchema{
			Type:                 "object",
			Properties:           prop.Properties,
			Required:             prop.Required,
			AdditionalProperties: true,
		})
		for _, nestedErr := range nested.Errors {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("%s.%s", fieldName, nestedErr.Field),
				Message: nestedErr.Message,
				Code:    nestedErr.Code,
			})
		}
	}

	return errors
}

// validateType checks decoded JSON values, so every number arrives as float64.
func validateType(value interface{}, expectedType string) error {
	switch expectedType {
	case "string":
		if _, ok := value.(string); !ok {
			return fmt.Errorf("expected string, got %T", value)
		}
	case "number":
		if _, ok := value.(float64); !ok {
			return fmt.Errorf("expected number, got %T", value)
		}
	case "integer":
		f, ok := value.(float64)
		if !ok || f != math.Trunc(f) {
			return fmt.Errorf("expected integer, got %v", value)
		}
	case "boolean":
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("expected boolean, got %T", value)
		}
	case "object":
		if _, ok := value.(map[string]interface{}); !ok {
			return fmt.Errorf("expected object, got %T", value)
		}
	case "array":
		if _, ok := value.([]interface{}); !ok {
			return fmt.Errorf("expected array, got %T", value)
		}
	}
	return nil
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

func (vr *ValidationResult) GetErrorMessages() []string {
	messages := make([]string, len(vr.Errors))
	for i, err := range vr.Errors {
		messages[i] = fmt.Sprintf("%s: %s", err.Field, err.Message)
	}
	return messages
}

// Bind decodes raw into out after validating it against schema. Failures come
// back as VALIDATION_FAILED errors naming the offending fields.
func Bind(raw []byte, schema JSONSchema, out interface{}) error {
	var doc map[string]interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return apperrors.NewValidationError("request body must be a JSON object")
	}

	if result := ValidateInput(doc, schema); !result.Valid {
		return apperrors.NewValidationError(describe(result))
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return apperrors.NewValidationError(fmt.Sprintf("invalid request body: %v", err))
	}
	return nil
}

func describe(result *ValidationResult) string {
	var missing []string
	for _, e := range result.Errors {
		if e.Code == "REQUIRED_FIELD_MISSING" {
			missing = append(missing, e.Field)
		}
	}
	if len(missing) > 0 {
		return fmt.Sprintf("missing required field(s): %s", strings.Join(missing, ", "))
	}
	return strings.Join(result.GetErrorMessages(), "; ")
}

var (
	emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	phonePattern = regexp.MustCompile(`^\+?[\d\s\-\(\)]{10,}$`)
)

func ValidateEmail(email string) bool {
	return emailPattern.MatchString(strings.TrimSpace(email))
}

func ValidatePhone(phone string) bool {
	return phonePattern.MatchString(phone)
}
