package auth

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// NormalizePhoneNumber parses and formats a phone number as E.164 so lookups
// and uniqueness checks see one canonical form. Empty input stays empty;
// input that cannot be parsed as a valid number is a validation error.
func NormalizePhoneNumber(raw, region string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", nil
	}

	num, err := phonenumbers.Parse(trimmed, region)
	if err != nil {
		return "", ValidationError("invalid phone number")
	}

	if !phonenumbers.IsValidNumber(num) {
		return "", ValidationError("invalid phone number")
	}

	return phonenumbers.Format(num, phonenumbers.E164), nil
}
