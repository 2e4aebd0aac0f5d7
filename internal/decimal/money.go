package decimal

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rezonia/mdfe-builder/internal/codes"
)

// Precision of the emitted numeric encodings
const (
	MoneyPrecision    int32 = 2
	QuantityPrecision int32 = 3
	IntegerPrecision  int32 = 0
)

var (
	// ErrEmpty is returned when the input holds no digits at all
	ErrEmpty = errors.New("empty number")

	// ErrInvalidNumber is returned when the input is not a decimal number
	ErrInvalidNumber = errors.New("invalid number")

	// ErrNotInteger is returned when an integer quantity carries a fraction
	ErrNotInteger = errors.New("not an integer")
)

// Zero is decimal zero
var Zero = decimal.Zero

// FromString parses decimal from a user-entered string in any supported locale
func FromString(s string) (decimal.Decimal, error) {
	return parse(s, QuantityPrecision)
}

// Normalize resolves thousands and decimal separators and returns a
// dot-decimal string. precision is the number of fraction digits the target
// encoding carries: a single separator followed by exactly three digits is a
// thousands separator when precision is below three ("1.234" is 1234 as
// money, 1.234 as a mass).
func Normalize(s string, precision int32) (string, error) {
	raw := s
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "R$")
	s = strings.Map(func(r rune) rune {
		if r == ' ' || r == '\u00a0' || r == '\t' {
			return -1
		}
		return r
	}, s)
	if s == "" {
		return "", ErrEmpty
	}

	negative := strings.HasPrefix(s, "-")
	if negative {
		s = s[1:]
		if s == "" {
			return "", fmt.Errorf("%w: %q", ErrInvalidNumber, raw)
		}
	}

	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")

	var intPart, fracPart string
	switch {
	case lastComma >= 0 && lastDot >= 0:
		sep := max(lastComma, lastDot)
		intPart = strings.NewReplacer(",", "", ".", "").Replace(s[:sep])
		fracPart = s[sep+1:]
	case lastComma >= 0 || lastDot >= 0:
		sepChar, idx := ",", lastComma
		if lastDot >= 0 {
			sepChar, idx = ".", lastDot
		}
		tail := s[idx+1:]
		if strings.Count(s, sepChar) > 1 || (len(tail) == 3 && precision < 3) {
			intPart = strings.ReplaceAll(s, sepChar, "")
		} else {
			intPart = s[:idx]
			fracPart = tail
		}
	default:
		intPart = s
	}

	if intPart == "" {
		intPart = "0"
	}
	if !isDigits(intPart) || (fracPart != "" && !isDigits(fracPart)) {
		return "", fmt.Errorf("%w: %q", ErrInvalidNumber, raw)
	}

	result := intPart
	if fracPart != "" {
		result += "." + fracPart
	}
	if negative {
		result = "-" + result
	}
	return result, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func parse(s string, precision int32) (decimal.Decimal, error) {
	normalized, err := Normalize(s, precision)
	if err != nil {
		return Zero, err
	}
	d, err := decimal.NewFromString(normalized)
	if err != nil {
		return Zero, fmt.Errorf("%w: %q", ErrInvalidNumber, s)
	}
	return d, nil
}

// ParseMoney parses a currency amount into integer cents, rounding half away from zero
func ParseMoney(s string) (int64, error) {
	d, err := parse(s, MoneyPrecision)
	if err != nil {
		return 0, err
	}
	return d.Shift(MoneyPrecision).Round(0).IntPart(), nil
}

// ParseQuantity parses a fractional quantity such as a weight
func ParseQuantity(s string) (decimal.Decimal, error) {
	return parse(s, QuantityPrecision)
}

// ParseInteger parses an integer quantity; separators are treated as grouping
func ParseInteger(s string) (int64, error) {
	d, err := parse(s, IntegerPrecision)
	if err != nil {
		return 0, err
	}
	if !d.Equal(d.Truncate(0)) {
		return 0, fmt.Errorf("%w: %q", ErrNotInteger, s)
	}
	return d.IntPart(), nil
}

// FormatCents renders integer cents as a 2-decimal string
func FormatCents(cents int64) string {
	return decimal.New(cents, -MoneyPrecision).StringFixed(MoneyPrecision)
}

// FormatMoney renders an amount with 2 decimals
func FormatMoney(d decimal.Decimal) string {
	return d.StringFixed(MoneyPrecision)
}

// FormatQuantity renders a mass or volume with 3 decimals
func FormatQuantity(d decimal.Decimal) string {
	return d.StringFixed(QuantityPrecision)
}

// FormatForUnit renders a quantity with the precision of its cargo unit
func FormatForUnit(d decimal.Decimal, unit codes.Unit) string {
	return d.StringFixed(unit.Precision)
}

// MoneyString converts user input straight to the emitted currency encoding
func MoneyString(s string) (string, error) {
	cents, err := ParseMoney(s)
	if err != nil {
		return "", err
	}
	return FormatCents(cents), nil
}

// QuantityString converts user input straight to the emitted mass encoding
func QuantityString(s string) (string, error) {
	d, err := ParseQuantity(s)
	if err != nil {
		return "", err
	}
	return FormatQuantity(d), nil
}

// IntegerString converts user input straight to an integer string
func IntegerString(s string) (string, error) {
	n, err := ParseInteger(s)
	if err != nil {
		return "", err
	}
	return decimal.NewFromInt(n).String(), nil
}

// Sum sums a slice of decimals
func Sum(values []decimal.Decimal) decimal.Decimal {
	result := Zero
	for _, v := range values {
		result = result.Add(v)
	}
	return result
}

// IsPositive returns true if decimal is greater than zero
func IsPositive(d decimal.Decimal) bool {
	return d.GreaterThan(Zero)
}

// IsNonNegative returns true if decimal is >= zero
func IsNonNegative(d decimal.Decimal) bool {
	return d.GreaterThanOrEqual(Zero)
}

// PositiveMoney reports whether s parses to a currency amount above zero
func PositiveMoney(s string) bool {
	cents, err := ParseMoney(s)
	return err == nil && cents > 0
}

// PositiveQuantity reports whether s parses to a quantity above zero
func PositiveQuantity(s string) bool {
	d, err := ParseQuantity(s)
	return err == nil && IsPositive(d)
}
