// Package validation holds the input checks shared by the HTTP handlers.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

const (
	DrainCodeTag = "draincode"

	MaxSearchRunes = 100
)

var drainCodePattern = regexp.MustCompile(`^[A-Za-z0-9-]{1,20}$`)

// IsValidDrainCode accepts management codes such as "SD-001" once surrounding
// whitespace is removed.
func IsValidDrainCode(s string) bool {
	return drainCodePattern.MatchString(strings.TrimSpace(s))
}

// SanitizeSearch trims the query and cuts it to MaxSearchRunes runes.
func SanitizeSearch(s string) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= MaxSearchRunes {
		return s
	}
	return string([]rune(s)[:MaxSearchRunes])
}

// Register adds the custom tags to v.
func Register(v *validator.Validate) error {
	return v.RegisterValidation(DrainCodeTag, func(fl validator.FieldLevel) bool {
		return IsValidDrainCode(fl.Field().String())
	})
}

// RegisterGin installs the custom tags on gin's default binding engine.
func RegisterGin() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected gin validator engine %T", binding.Validator.Engine())
	}
	return Register(v)
}
