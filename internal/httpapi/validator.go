package httpapi

import "github.com/go-playground/validator/v10"

// Validator adapts go-playground/validator to echo.Echo's Validator
// interface, the pattern the teacher's composition root wires in.
type Validator struct {
	v *validator.Validate
}

func NewValidator() *Validator {
	return &Validator{v: validator.New()}
}

func (cv *Validator) Validate(i any) error {
	return cv.v.Struct(i)
}
