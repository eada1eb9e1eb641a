package ledger

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// AddParams holds the input for creating a new ledger entry.
type AddParams struct {
	Title       string      `json:"title" validate:"required,max=200"`
	Type        FeatureType `json:"type" validate:"required,oneof=feature bug task"`
	ExternalID  string      `json:"external_id,omitempty" validate:"omitempty,max=200"`
	Description string      `json:"description,omitempty" validate:"max=4000"`
}

// MetadataEdit holds partial metadata updates. Nil fields are left
// unchanged. Type and phase are deliberately absent.
type MetadataEdit struct {
	Title       *string `json:"title,omitempty" validate:"omitempty,max=200"`
	ExternalID  *string `json:"external_id,omitempty" validate:"omitempty,max=200"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=4000"`
}

func (p *AddParams) normalize() {
	p.Title = strings.TrimSpace(p.Title)
	p.ExternalID = strings.TrimSpace(p.ExternalID)
	p.Description = strings.TrimSpace(p.Description)
}

func (e *MetadataEdit) normalize() {
	for _, s := range []*string{e.Title, e.ExternalID, e.Description} {
		if s != nil {
			*s = strings.TrimSpace(*s)
		}
	}
}

// validateStruct runs the struct tags and folds the result into
// ErrValidationFailed with a readable message.
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return fmt.Errorf("%w: %s", ErrValidationFailed, strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " must not be empty"
	case "oneof":
		return fmt.Sprintf("%s %q must be one of: %s", field, fe.Value(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}
