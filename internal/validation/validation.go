package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"learnhub/internal/models"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// badge_type accepts only the closed set of badge evaluation kinds
	_ = v.RegisterValidation("badge_type", func(fl validator.FieldLevel) bool {
		return models.BadgeType(fl.Field().String()).Valid()
	})
	return v
}

// ValidateStruct validates a struct using go-playground/validator
func ValidateStruct(s interface{}) error {
	if s == nil {
		return nil
	}

	// Check if it's a pointer to a struct
	val := reflect.ValueOf(s)
	if val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return nil
		}
		val = val.Elem()
	}

	if val.Kind() != reflect.Struct {
		return fmt.Errorf("validator: expected a struct, got %T", s)
	}

	err := validate.Struct(s)
	if err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			errMsgs := make([]string, 0, len(ve))
			for _, e := range ve {
				errMsgs = append(errMsgs, fmt.Sprintf("field '%s' failed validation: %s", e.Namespace(), e.Tag()))
			}
			return errors.New(strings.Join(errMsgs, "; "))
		}
		return fmt.Errorf("validation failed: %w", err)
	}

	return nil
}

// ValidateBadge checks a badge definition before it is evaluated. The
// percentage rule is only enforced for perfectionist badges.
func ValidateBadge(b *models.Badge) error {
	if b == nil {
		return errors.New("badge is nil")
	}
	if err := ValidateStruct(b); err != nil {
		return err
	}
	if b.Type == models.BadgeTypePerfectionist && b.Rule.MinPercentage == 0 && b.Rule.MinVideos == 0 {
		return errors.New("perfectionist badge needs min_percentage or min_videos")
	}
	return nil
}
