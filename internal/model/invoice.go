package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Document type codes carried in the ide/mod element
const (
	DocumentTypeNFe  = "55"
	DocumentTypeNFCe = "65"
)

// InvoiceRecord is the canonical projection of one NF-e XML file.
// Records are immutable once extracted.
type InvoiceRecord struct {
	DocumentType   string          `json:"document_type"`
	Number         string          `json:"number"`
	Series         string          `json:"series"`
	AccessKey      string          `json:"access_key"`
	IssuerName     string          `json:"issuer_name"`
	IssuerTaxID    string          `json:"issuer_tax_id,omitempty"`
	RecipientName  string          `json:"recipient_name"`
	RecipientTaxID string          `json:"recipient_tax_id,omitempty"`
	TotalValue     decimal.Decimal `json:"total_value"`
	GrossWeight    decimal.Decimal `json:"gross_weight"`
	IssueDate      time.Time       `json:"issue_date"`

	// SealNumbers is nil when the invoice carries no seals
	SealNumbers []string `json:"seal_numbers,omitempty"`

	// Destination is nil when the recipient address is absent
	Destination *Destination `json:"destination,omitempty"`

	// Redelivery is the indReentrega flag; empty means "0"
	Redelivery string `json:"redelivery,omitempty"`

	// SourceFile is the path the record was read from, if any
	SourceFile string `json:"source_file,omitempty"`

	// Signature is nil unless the extractor was asked to check signatures
	Signature *SignatureStatus `json:"signature,omitempty"`
}

// SignatureStatus is the outcome of checking an invoice's XML signature
type SignatureStatus struct {
	Present bool   `json:"present"`
	Valid   bool   `json:"valid"`
	Trusted bool   `json:"trusted"`
	Signer  string `json:"signer,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Destination is the recipient location of an invoice
type Destination struct {
	State            string `json:"state"`
	Municipality     string `json:"municipality"`
	MunicipalityCode string `json:"municipality_code,omitempty"`
}

// HasDestination reports whether the invoice carries usable destination metadata
func (r *InvoiceRecord) HasDestination() bool {
	return r.Destination != nil && r.Destination.State != "" && r.Destination.Municipality != ""
}

// SumInvoices returns the count, total value and gross weight of the given invoices
func SumInvoices(invoices []InvoiceRecord) (int, decimal.Decimal, decimal.Decimal) {
	value := decimal.Zero
	weight := decimal.Zero
	for _, inv := range invoices {
		value = value.Add(inv.TotalValue)
		weight = weight.Add(inv.GrossWeight)
	}
	return len(invoices), value, weight
}
