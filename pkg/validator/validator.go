package validator

import (
	"fmt"

	v10 "github.com/go-playground/validator/v10"

	"github.com/gramseva/swasthya-sahayak/pkg/errors"
)

// Validator checks entity invariants before a store write.
type Validator interface {
	Validate(interface{}) error
}

type validator struct {
	v *v10.Validate
}

func New() Validator {
	v := v10.New(v10.WithRequiredStructEnabled())

	// latitude/longitude come built in with validator/v10; register the
	// domain-specific rules on top.
	_ = v.RegisterValidation("language", validLanguage)

	return &validator{v: v}
}

var supportedLanguages = map[string]bool{
	"hi": true, // Hindi
	"bn": true, // Bengali
	"te": true, // Telugu
	"mr": true, // Marathi
	"ta": true, // Tamil
	"en": true, // English
}

func validLanguage(fl v10.FieldLevel) bool {
	return supportedLanguages[fl.Field().String()]
}

func (va *validator) Validate(obj interface{}) error {
	if err := va.v.Struct(obj); err != nil {
		var fieldErrs v10.ValidationErrors
		if ok := asValidationErrors(err, &fieldErrs); ok && len(fieldErrs) > 0 {
			first := fieldErrs[0]
			return errors.Validation(
				fmt.Sprintf("%s failed on %q", first.Field(), first.Tag()), err)
		}
		return errors.Validation("entity failed validation", err)
	}
	return nil
}

func asValidationErrors(err error, target *v10.ValidationErrors) bool {
	if ve, ok := err.(v10.ValidationErrors); ok {
		*target = ve
		return true
	}
	return false
}
