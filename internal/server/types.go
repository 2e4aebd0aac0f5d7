package server

import (
	"github.com/rezonia/mdfe-builder/internal/model"
)

// CertificateResponse is the response for the certificate inspection endpoint
type CertificateResponse struct {
	Certificate   *model.CertificateInfo `json:"certificate"`
	Expired       bool                   `json:"expired"`
	DaysRemaining int                    `json:"days_remaining"`
}

// InvoiceResponse is the response for the invoice extraction endpoint
type InvoiceResponse struct {
	Invoice *model.InvoiceRecord `json:"invoice"`
}

// ValidationResponse is the response for the form validation endpoint
type ValidationResponse struct {
	Valid    bool                    `json:"valid"`
	FirstTab model.Tab               `json:"first_tab,omitempty"`
	Errors   []model.ValidationError `json:"errors"`
}

// GenerateRequest is the body of the document generation endpoint
type GenerateRequest struct {
	Form        model.FormState        `json:"form"`
	Certificate *model.CertificateInfo `json:"certificate,omitempty"`
}

// GenerateResponse is the response for the document generation endpoint
type GenerateResponse struct {
	Document *model.Document `json:"document"`
}

// ErrorResponse is the standard error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Kind    string `json:"kind,omitempty"`
	Field   string `json:"field,omitempty"`
	Details string `json:"details,omitempty"`
}
