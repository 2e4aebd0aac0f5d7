package validation

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/rezonia/mdfe-builder/internal/model"
)

var (
	legacyPlatePattern   = regexp.MustCompile(`^[A-Z]{3}[0-9]{4}$`)
	mercosulPlatePattern = regexp.MustCompile(`^[A-Z]{3}[0-9][A-Z][0-9]{2}$`)
	renavamPattern       = regexp.MustCompile(`^[0-9]{11}$`)
)

// NormalizePlate uppercases a plate and drops everything but letters and digits
func NormalizePlate(plate string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(plate) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// IsValidPlate accepts the legacy (ABC1234) and Mercosul (ABC1D23) plate shapes
func IsValidPlate(plate string) bool {
	p := NormalizePlate(plate)
	if len(p) != 7 {
		return false
	}
	return legacyPlatePattern.MatchString(p) || mercosulPlatePattern.MatchString(p)
}

// IsValidRenavam reports whether s is an 11-digit national vehicle registry number
func IsValidRenavam(s string) bool {
	return renavamPattern.MatchString(strings.TrimSpace(s))
}

// OnlyDigits strips formatting from a CPF/CNPJ
func OnlyDigits(s string) string {
	return model.OnlyDigits(s)
}

// IsTaxID reports whether s holds an 11-digit CPF or a 14-digit CNPJ, ignoring punctuation
func IsTaxID(s string) bool {
	d := OnlyDigits(s)
	if len(d) != 11 && len(d) != 14 {
		return false
	}
	return strings.IndexFunc(s, func(r rune) bool {
		return (r < '0' || r > '9') && !strings.ContainsRune("./- ", r)
	}) < 0
}
