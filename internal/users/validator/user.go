package validator

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"wanderly/pkg/model"
)

type UserValidator struct {
	validate *validator.Validate
}

func NewUserValidator() *UserValidator {
	return &UserValidator{
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (v *UserValidator) Validate(user *model.User) error {
	if err := v.validate.Struct(user); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			for _, fieldErr := range validationErrors {
				return fmt.Errorf("field %s failed validation on %s", fieldErr.Field(), fieldErr.Tag())
			}
		}
		return err
	}
	return nil
}
