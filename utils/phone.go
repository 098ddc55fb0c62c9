package utils

import (
	"regexp"
	"strings"
)

var (
	nonDigitRe   = regexp.MustCompile(`\D`)
	mpesaPhoneRe = regexp.MustCompile(`^(254|0)\d{9}$`)
)

// ValidatePhoneNumber reports whether a phone number can be charged via STK
// push: either international format (254XXXXXXXXX) or local (0XXXXXXXXX).
func ValidatePhoneNumber(phoneNumber string) bool {
	return mpesaPhoneRe.MatchString(strings.TrimSpace(phoneNumber))
}

// FormatPhoneNumber normalizes a valid phone number to the 254XXXXXXXXX form
// the gateway expects. Invalid input is returned stripped of non-digits.
func FormatPhoneNumber(phoneNumber string) string {
	digits := nonDigitRe.ReplaceAllString(phoneNumber, "")
	if strings.HasPrefix(digits, "0") && len(digits) == 10 {
		return "254" + digits[1:]
	}
	return digits
}

// DisplayPhoneNumber formats a stored number for human display.
func DisplayPhoneNumber(phoneNumber string) string {
	formatted := FormatPhoneNumber(phoneNumber)
	if len(formatted) == 12 && strings.HasPrefix(formatted, "254") {
		// +254 7XX XXX XXX
		return "+" + formatted[:3] + " " + formatted[3:6] + " " + formatted[6:9] + " " + formatted[9:]
	}
	return phoneNumber
}
