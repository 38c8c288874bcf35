package validator

import (
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"
)

var hhmmPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// Validator validates request payloads. It wraps go-playground/validator
// with the domain rules used across handlers.
type Validator interface {
	Validate(interface{}) error
	ValidateVar(value interface{}, rules string) error
}

type playgroundValidator struct {
	v *validator.Validate
}

func New() Validator {
	v := validator.New()

	// hhmm: 24h wall-clock string, e.g. "09:00"
	_ = v.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
		return hhmmPattern.MatchString(fl.Field().String())
	})

	// weekday: integer 0-6, Sunday=0
	_ = v.RegisterValidation("weekday", func(fl validator.FieldLevel) bool {
		d := fl.Field().Int()
		return d >= 0 && d <= 6
	})

	return &playgroundValidator{v: v}
}

func (p *playgroundValidator) Validate(obj interface{}) error {
	if err := p.v.Struct(obj); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
			first := errs[0]
			return fmt.Errorf("field %s failed on %s", first.Field(), first.Tag())
		}
		return err
	}
	return nil
}

func (p *playgroundValidator) ValidateVar(value interface{}, rules string) error {
	return p.v.Var(value, rules)
}
