package model

import "time"

// CertificateInfo holds metadata read from a PKCS#12 credential container.
// TaxID and LegalName are best-effort and may be empty.
type CertificateInfo struct {
	SubjectDN    string    `json:"subject"`
	IssuerDN     string    `json:"issuer"`
	SerialNumber string    `json:"serial_number,omitempty"`
	ValidFrom    time.Time `json:"valid_from"`
	ValidTo      time.Time `json:"valid_to"`
	TaxID        string    `json:"tax_id,omitempty"`
	LegalName    string    `json:"legal_name,omitempty"`

	// ChainTrusted is nil when no trust roots were configured
	ChainTrusted *bool `json:"chain_trusted,omitempty"`

	// Revocation is good, revoked or unknown; empty when not checked
	Revocation string `json:"revocation,omitempty"`
}

// Expired reports whether the certificate is outside its validity window at now
func (c *CertificateInfo) Expired(now time.Time) bool {
	return now.Before(c.ValidFrom) || now.After(c.ValidTo)
}

// DaysRemaining returns the whole days left until ValidTo, negative once expired
func (c *CertificateInfo) DaysRemaining(now time.Time) int {
	return int(c.ValidTo.Sub(now).Hours() / 24)
}
