package card

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidateNumber(t *testing.T) {
	tests := []struct {
		name       string
		number     string
		validity   Validity
		normalized string
	}{
		{
			name:       "valid visa",
			number:     "4111111111111111",
			validity:   Valid,
			normalized: "4111111111111111",
		},
		{
			name:       "valid with spaces",
			number:     "4111 1111 1111 1111",
			validity:   Valid,
			normalized: "4111111111111111",
		},
		{
			name:       "valid with dashes",
			number:     "4111-1111-1111-1111",
			validity:   Valid,
			normalized: "4111111111111111",
		},
		{
			name:       "valid amex",
			number:     "378282246310005",
			validity:   Valid,
			normalized: "378282246310005",
		},
		{
			name:       "valid 19 digits",
			number:     "4111111111111111110",
			validity:   Valid,
			normalized: "4111111111111111110",
		},
		{
			name:     "checksum failure below max length is partial",
			number:   "4111111111111112",
			validity: Partial,
		},
		{
			name:     "checksum failure at 8 digits is partial",
			number:   "41111111",
			validity: Partial,
		},
		{
			name:     "checksum failure at max length is invalid",
			number:   "4111111111111111111",
			validity: Invalid,
		},
		{
			name:     "too short",
			number:   "4111111",
			validity: Partial,
		},
		{
			name:     "too long",
			number:   "41111111111111111109",
			validity: Invalid,
		},
		{
			name:     "letters",
			number:   "4111x11111111111",
			validity: Invalid,
		},
		{
			name:     "empty",
			number:   "",
			validity: Partial,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			validity, normalized := ValidateNumber(tt.number)
			assert.Equal(t, tt.validity, validity)
			if tt.normalized != "" {
				assert.Equal(t, tt.normalized, normalized)
			}
		})
	}
}

func TestValidateExpiry(t *testing.T) {
	now := time.Date(2026, time.August, 29, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		value    string
		validity Validity
	}{
		{name: "current month", value: "08/26", validity: Valid},
		{name: "four digit year", value: "08/2026", validity: Valid},
		{name: "exactly three months past", value: "05/26", validity: Valid},
		{name: "four months past", value: "04/26", validity: Invalid},
		{name: "exactly twenty years ahead", value: "08/2046", validity: Valid},
		{name: "twenty years one month ahead", value: "09/2046", validity: Invalid},
		{name: "month out of range", value: "13/26", validity: Invalid},
		{name: "zero month", value: "00/26", validity: Invalid},
		{name: "single digit month typing", value: "0", validity: Partial},
		{name: "month without year", value: "08", validity: Partial},
		{name: "month with slash only", value: "08/", validity: Partial},
		{name: "single year digit", value: "08/2", validity: Partial},
		{name: "three year digits", value: "08/202", validity: Invalid},
		{name: "letters", value: "ab/cd", validity: Invalid},
		{name: "empty", value: "", validity: Partial},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			validity, _ := ValidateExpiry(tt.value, now)
			assert.Equal(t, tt.validity, validity)
		})
	}
}

func TestValidateSecurityCode(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		brand    Brand
		required bool
		validity Validity
	}{
		{name: "three digits", code: "737", validity: Valid},
		{name: "two digits typing", code: "73", validity: Partial},
		{name: "four digits non amex", code: "7373", validity: Invalid},
		{name: "four digits amex", code: "7373", brand: AmericanExpress, validity: Valid},
		{name: "three digits amex", code: "737", brand: AmericanExpress, validity: Partial},
		{name: "empty optional", code: "", validity: Valid},
		{name: "empty required", code: "", required: true, validity: Partial},
		{name: "non digits", code: "73a", validity: Invalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			validity, _ := ValidateSecurityCode(tt.code, tt.brand, tt.required)
			assert.Equal(t, tt.validity, validity)
		})
	}
}

func TestValidateHolderName(t *testing.T) {
	validity, name := ValidateHolderName("  S. Hopper  ", true)
	assert.Equal(t, Valid, validity)
	assert.Equal(t, "S. Hopper", name)

	validity, _ = ValidateHolderName("   ", true)
	assert.Equal(t, Invalid, validity)

	validity, _ = ValidateHolderName("", false)
	assert.Equal(t, Valid, validity)
}

func TestMaskNumber(t *testing.T) {
	assert.Equal(t, "411111******1111", MaskNumber("4111111111111111"))
	assert.Equal(t, "378282*****0005", MaskNumber("378282246310005"))
	assert.Equal(t, "********", MaskNumber("41111111"))
}
