// Package validation holds the literal-format checks applied to identifiers
// and dates before they are sent upstream.
package validation

import (
	"regexp"

	e "github.com/gartstein/gbizinfo/internal/gbizinfo/errors"
)

var (
	corporateNumberPattern = regexp.MustCompile(`^[0-9]{13}$`)
	yyyymmddPattern        = regexp.MustCompile(`^[0-9]{8}$`)
)

// ValidateCorporateNumber returns s unchanged when it is exactly 13 ASCII digits.
func ValidateCorporateNumber(s string) (string, error) {
	return ValidateCorporateNumberField("corporate_number", s)
}

// ValidateCorporateNumberField is ValidateCorporateNumber reporting failures
// against the given argument name.
func ValidateCorporateNumberField(field, s string) (string, error) {
	if !corporateNumberPattern.MatchString(s) {
		return "", e.NewValidationError(e.ErrFormat, field, "corporate_number must be 13 digits")
	}
	return s, nil
}

// ValidateYYYYMMDD returns s unchanged when it is exactly 8 ASCII digits.
// Calendar validity is not checked.
func ValidateYYYYMMDD(s string) (string, error) {
	return ValidateYYYYMMDDField("date", s)
}

// ValidateYYYYMMDDField is ValidateYYYYMMDD reporting failures against the
// given argument name.
func ValidateYYYYMMDDField(field, s string) (string, error) {
	if !yyyymmddPattern.MatchString(s) {
		return "", e.NewValidationError(e.ErrFormat, field, "date must be yyyyMMdd (8 digits)")
	}
	return s, nil
}
