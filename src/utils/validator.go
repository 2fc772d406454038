package utils

import (
	"github.com/go-playground/validator/v10"
)

var Validate = validator.New()

// ValidateStruct runs the shared validator over a request DTO.
func ValidateStruct(s interface{}) error {
	return Validate.Struct(s)
}
