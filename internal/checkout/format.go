package checkout

import "strings"

const (
	cardDigits      = 16
	cardGroupSize   = 4
	cardDisplayLen  = cardDigits + cardDigits/cardGroupSize - 1 // 19
	expiryMonthSize = 2
	expiryYearSize  = 2
)

// FormatCardNumber groups the digits of input in blocks of four separated by
// hyphens, truncated to 19 characters.
// Example: "4111111111111111" → "4111-1111-1111-1111"
func FormatCardNumber(input string) string {
	digits := digitsOnly(input)

	var b strings.Builder
	for i, r := range digits {
		if i > 0 && i%cardGroupSize == 0 {
			b.WriteByte('-')
		}
		b.WriteRune(r)
	}

	out := b.String()
	if len(out) > cardDisplayLen {
		out = out[:cardDisplayLen]
	}
	return out
}

// FormatExpiryDate inserts the slash after the month once two digits are typed.
// Examples: "1" → "1", "12" → "12/", "1225" → "12/25", "12/2599" → "12/25"
func FormatExpiryDate(input string) string {
	digits := digitsOnly(input)
	if len(digits) < expiryMonthSize {
		return digits
	}

	year := digits[expiryMonthSize:]
	if len(year) > expiryYearSize {
		year = year[:expiryYearSize]
	}
	return digits[:expiryMonthSize] + "/" + year
}

// MaskCardNumber hides everything but the last four digits.
// Example: "4111-1111-1111-1234" → "**** **** **** 1234"
func MaskCardNumber(input string) string {
	digits := digitsOnly(input)
	if len(digits) < cardGroupSize {
		return ""
	}
	return "**** **** **** " + digits[len(digits)-cardGroupSize:]
}

func digitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
