package services

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/insighted/schoolprofile/internal/models"
)

// SchoolIDRule is the format of a school identifier.
const SchoolIDRule = "required,len=6,numeric"

// NewValidator returns a validator that understands the model tags and
// reports fields by their JSON names.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})

	// Registration only fails for empty tags or nil functions.
	_ = v.RegisterValidation("gradekey", func(fl validator.FieldLevel) bool {
		return models.IsGradeKey(fl.Field().String())
	})
	_ = v.RegisterValidation("strandkey", func(fl validator.FieldLevel) bool {
		return models.IsStrandKey(fl.Field().String())
	})
	_ = v.RegisterValidation("projectstatus", func(fl validator.FieldLevel) bool {
		return models.ProjectStatus(fl.Field().String()).Valid()
	})

	return v
}

// validateSchoolID checks the identifier format before any storage access.
func validateSchoolID(v *validator.Validate, schoolID string) error {
	if err := v.Var(schoolID, SchoolIDRule); err != nil {
		return fmt.Errorf("%w: school id must be exactly 6 digits, got %q", ErrInvalidSchoolID, schoolID)
	}
	return nil
}

// validateStruct wraps validator failures in ErrValidation while keeping the
// field errors reachable with errors.As.
func validateStruct(v *validator.Validate, s interface{}) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		return &ValidationError{Fields: ve}
	}
	return fmt.Errorf("%w: %w", ErrValidation, err)
}

// ValidationError carries the field errors of a rejected input.
type ValidationError struct {
	Fields validator.ValidationErrors
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		names = append(names, f.Namespace())
	}
	return fmt.Sprintf("%s: invalid fields %s", ErrValidation, strings.Join(names, ", "))
}

// Unwrap lets errors.Is match ErrValidation and errors.As reach the field errors.
func (e *ValidationError) Unwrap() []error {
	return []error{ErrValidation, e.Fields}
}
