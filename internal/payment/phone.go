package payment

import (
	"strings"

	errors "github.com/perejack/globalvisaapplication/internal"
)

const DefaultCountryCode = "254"

var ErrInvalidPhone = errors.NewValidationFieldError("phone", "Please enter a valid phone number", errors.ErrCodeInvalidPhone)

// NormalizePhone converts a locally typed mobile number into the international form the
// gateway expects. "0712345678" and "712345678" both become "254712345678". A nine-digit
// input is always a subscriber number, so only longer numbers may already carry the prefix.
func NormalizePhone(raw, countryCode string) (string, error) {
	if countryCode == "" {
		countryCode = DefaultCountryCode
	}

	phone := strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' || r == '(' || r == ')' {
			return -1
		}
		return r
	}, strings.TrimSpace(raw))
	phone = strings.TrimPrefix(phone, "+")

	if len(phone) < 9 {
		return "", ErrInvalidPhone
	}
	for _, r := range phone {
		if r < '0' || r > '9' {
			return "", ErrInvalidPhone
		}
	}

	switch {
	case len(phone) == 9:
		return countryCode + phone, nil
	case len(phone) == 10 && strings.HasPrefix(phone, "0"):
		return countryCode + phone[1:], nil
	case strings.HasPrefix(phone, countryCode):
		return phone, nil
	default:
		return countryCode + phone, nil
	}
}
