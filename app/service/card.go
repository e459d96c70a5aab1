package service

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	vpaPattern      = regexp.MustCompile(`^[a-zA-Z0-9._-]+@[a-zA-Z0-9]+$`)
	nonDigitPattern = regexp.MustCompile(`\D`)
)

// ValidateVPA checks the local-part@handle shape of a UPI virtual payment
// address.
func ValidateVPA(vpa string) bool {
	return vpaPattern.MatchString(vpa)
}

// ValidateLuhn strips non-digits and checks length (13-19) plus the Luhn
// mod-10 checksum.
func ValidateLuhn(number string) bool {
	digits := nonDigitPattern.ReplaceAllString(number, "")
	if len(digits) < 13 || len(digits) > 19 {
		return false
	}

	sum := 0
	for i := 0; i < len(digits); i++ {
		d := int(digits[len(digits)-1-i] - '0')
		if i%2 == 1 {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
	}
	return sum%10 == 0
}

// DetectNetwork infers the card network from the leading digits.
func DetectNetwork(number string) string {
	n := nonDigitPattern.ReplaceAllString(number, "")
	switch {
	case strings.HasPrefix(n, "4"):
		return "visa"
	case len(n) >= 2 && n[0] == '5' && n[1] >= '1' && n[1] <= '5':
		return "mastercard"
	case strings.HasPrefix(n, "34"), strings.HasPrefix(n, "37"):
		return "amex"
	case isRuPayPrefix(n):
		return "rupay"
	default:
		return "unknown"
	}
}

func isRuPayPrefix(n string) bool {
	if len(n) < 2 {
		return false
	}
	switch n[:2] {
	case "60", "65", "81", "82", "83", "84", "85", "86", "87", "88", "89":
		return true
	}
	return false
}

// ValidateExpiry reports whether the card's expiry month/year is not
// strictly before the current month/year. Two-digit years normalize to
// 2000+y.
func ValidateExpiry(month, year string, now time.Time) bool {
	m, err := strconv.Atoi(strings.TrimSpace(month))
	if err != nil || m < 1 || m > 12 {
		return false
	}
	y, err := strconv.Atoi(strings.TrimSpace(year))
	if err != nil {
		return false
	}
	if y < 100 {
		y += 2000
	}

	if y != now.Year() {
		return y > now.Year()
	}
	return m >= int(now.Month())
}
