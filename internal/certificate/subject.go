package certificate

import (
	"regexp"
	"strings"
)

// Subject patterns, tried in fixed priority order. ICP-Brasil e-CNPJ
// certificates usually carry "CN=LEGAL NAME:CNPJ", but some issuers only put
// the CNPJ in a bare attribute or in serialNumber.
var (
	cnTaxIDPattern   = regexp.MustCompile(`(?:^|,)\s*CN=[^,:]*:(\d{14})`)
	bareTaxIDPattern = regexp.MustCompile(`(?:^|\D)(\d{14})(?:\D|$)`)
	serialPattern    = regexp.MustCompile(`(?i)(?:^|,)\s*serialNumber=([^,]+)`)
	cnPattern        = regexp.MustCompile(`(?:^|,)\s*CN=([^,]+)`)
	orgPattern       = regexp.MustCompile(`(?:^|,)\s*O=([^,]+)`)
	cnSuffixPattern  = regexp.MustCompile(`^(.*?)\s*:\s*\d{14}\s*$`)
)

// DeriveTaxID extracts a 14-digit CNPJ from a subject DN.
// Returns "" when no pattern matches.
func DeriveTaxID(subject string) string {
	if m := cnTaxIDPattern.FindStringSubmatch(subject); m != nil {
		return m[1]
	}
	if m := bareTaxIDPattern.FindStringSubmatch(subject); m != nil {
		return m[1]
	}
	if m := serialPattern.FindStringSubmatch(subject); m != nil {
		serial := strings.TrimSpace(m[1])
		if len(serial) == 14 {
			return serial
		}
	}
	return ""
}

// DeriveLegalName extracts the company name from a subject DN: the CN text
// before ":CNPJ", else the whole CN, else the organization.
// Returns "" when no pattern matches.
func DeriveLegalName(subject string) string {
	if m := cnPattern.FindStringSubmatch(subject); m != nil {
		cn := strings.TrimSpace(m[1])
		if s := cnSuffixPattern.FindStringSubmatch(cn); s != nil && s[1] != "" {
			return s[1]
		}
		if cn != "" {
			return cn
		}
	}
	if m := orgPattern.FindStringSubmatch(subject); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}
