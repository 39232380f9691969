package handlers

import (
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

const maxListNameLen = 255

// RegisterValidators installs the custom binding rules used by request
// structs. Call once before serving.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	return v.RegisterValidation("listname", validListName)
}

// validListName accepts non-blank names without surrounding whitespace.
func validListName(fl validator.FieldLevel) bool {
	name := fl.Field().String()
	return strings.TrimSpace(name) == name &&
		name != "" &&
		utf8.RuneCountInString(name) <= maxListNameLen
}
