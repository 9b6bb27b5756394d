package utils

import (
	"regexp"
	"strings"
)

var (
	localPhoneRegex = regexp.MustCompile(`^[0-9]{6,15}$`)
	dialCodeRegex   = regexp.MustCompile(`^\+[0-9]{1,4}$`)
)

// IsValidLocalPhone reports whether phone, once trimmed, is 6 to 15 digits.
func IsValidLocalPhone(phone string) bool {
	return localPhoneRegex.MatchString(strings.TrimSpace(phone))
}

func IsValidDialCode(code string) bool {
	return dialCodeRegex.MatchString(NormalizeDialCode(code))
}

// NormalizeDialCode trims the code and makes sure it carries exactly one
// leading "+".
func NormalizeDialCode(code string) string {
	code = strings.TrimLeft(strings.TrimSpace(code), "+")
	if code == "" {
		return ""
	}
	return "+" + code
}

// ComposeFullPhone joins dial code and local number with a single space,
// trimming both parts. The result never starts with "++".
func ComposeFullPhone(dialCode, localNumber string) string {
	return strings.TrimSpace(NormalizeDialCode(dialCode) + " " + strings.TrimSpace(localNumber))
}
