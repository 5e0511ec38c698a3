// Package card implements local validation and brand estimation for raw
// card input. Everything here is pure and synchronous; nothing touches the
// network and nothing retains the PAN.
package card

import (
	"strings"
	"time"
)

// Validity is the outcome of validating a single card field.
type Validity int

const (
	// Invalid input can never become valid by typing more characters.
	Invalid Validity = iota
	// Partial input is incomplete but could still become valid.
	Partial
	// Valid input passed all checks for the field.
	Valid
)

func (v Validity) String() string {
	switch v {
	case Invalid:
		return "invalid"
	case Partial:
		return "partial"
	case Valid:
		return "valid"
	default:
		return "unknown"
	}
}

const (
	minNumberLength = 8
	maxNumberLength = 19

	// Expiry window in whole months relative to the current month.
	expiryPastMonths   = 3
	expiryFutureMonths = 20 * 12
)

// ValidateNumber validates a card number, returning its validity and the
// normalized (digits-only) form. Spaces and dashes are accepted as
// separators; any other non-digit makes the input invalid. A Luhn failure
// below the maximum length is Partial, since the shopper may still be typing.
func ValidateNumber(number string) (Validity, string) {
	var b strings.Builder
	b.Grow(maxNumberLength)
	for i := 0; i < len(number); i++ {
		c := number[i]
		switch {
		case c >= '0' && c <= '9':
			b.WriteByte(c)
		case c == ' ' || c == '-':
			// separator, skip
		default:
			return Invalid, ""
		}
	}
	normalized := b.String()

	switch {
	case len(normalized) > maxNumberLength:
		return Invalid, normalized
	case len(normalized) < minNumberLength:
		return Partial, normalized
	case luhn(normalized):
		return Valid, normalized
	case len(normalized) == maxNumberLength:
		return Invalid, normalized
	default:
		return Partial, normalized
	}
}

// luhn computes the mod-10 checksum: double every second digit from the
// right, subtract 9 from results above 9, sum everything.
func luhn(digits string) bool {
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

// Expiry is a parsed card expiry date.
type Expiry struct {
	Month int
	Year  int
}

// months is the whole-month ordinal used for window comparisons.
func (e Expiry) months() int {
	return e.Year*12 + e.Month - 1
}

// ValidateExpiry parses "MM/YY" or "MM/YYYY" and checks it against the
// accepted window: at most three months in the past and at most twenty
// years in the future, computed in whole months relative to now. The past
// tolerance matches the backend's freshness window for recently expired
// cards.
func ValidateExpiry(value string, now time.Time) (Validity, Expiry) {
	value = strings.TrimSpace(value)
	if value == "" {
		return Partial, Expiry{}
	}

	monthPart, yearPart, hasYear := strings.Cut(value, "/")
	month, ok := parseDigits(monthPart)
	if !ok {
		return Invalid, Expiry{}
	}

	if !hasYear {
		// Month only: a single digit may still grow into a valid month, a
		// complete two-digit month must already be in range.
		if len(monthPart) >= 2 && (month < 1 || month > 12) {
			return Invalid, Expiry{}
		}
		return Partial, Expiry{Month: month}
	}

	if month < 1 || month > 12 {
		return Invalid, Expiry{}
	}

	year, ok := parseDigits(yearPart)
	if !ok {
		return Invalid, Expiry{}
	}
	switch len(yearPart) {
	case 0, 1:
		return Partial, Expiry{Month: month}
	case 2:
		year += 2000
	case 4:
		// already a full year
	default:
		return Invalid, Expiry{}
	}

	expiry := Expiry{Month: month, Year: year}
	nowMonths := int(now.Year())*12 + int(now.Month()) - 1
	if expiry.months() < nowMonths-expiryPastMonths {
		return Invalid, expiry
	}
	if expiry.months() > nowMonths+expiryFutureMonths {
		return Invalid, expiry
	}
	return Valid, expiry
}

// securityCodeLength returns the expected CVC length for a brand.
func securityCodeLength(brand Brand) int {
	if brand == AmericanExpress {
		return 4
	}
	return 3
}

// ValidateSecurityCode validates a CVC for the given brand. An empty code is
// valid only when the field is not required.
func ValidateSecurityCode(code string, brand Brand, required bool) (Validity, string) {
	code = strings.TrimSpace(code)
	if code == "" {
		if required {
			return Partial, ""
		}
		return Valid, ""
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return Invalid, ""
		}
	}
	want := securityCodeLength(brand)
	switch {
	case len(code) < want:
		return Partial, code
	case len(code) == want:
		return Valid, code
	default:
		return Invalid, code
	}
}

// ValidateHolderName validates the cardholder name. An empty name is invalid
// only when the field is required.
func ValidateHolderName(name string, required bool) (Validity, string) {
	name = strings.TrimSpace(name)
	if name == "" && required {
		return Invalid, ""
	}
	return Valid, name
}

func parseDigits(s string) (int, bool) {
	if s == "" {
		return 0, true
	}
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
		n = n*10 + int(s[i]-'0')
	}
	return n, true
}
