// Package mdfelib provides a public API for assembling MDF-e cargo manifests.
//
// This package exposes the core types and a Builder that inspects the
// issuer's A1 certificate, imports the NF-e invoices being carried,
// validates the manifest form and assembles the MDF-e document.
//
// Example usage:
//
//	b, err := mdfelib.NewBuilder(mdfelib.DefaultBuilderOptions())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if _, err := b.LoadCertificateFile(ctx, "empresa.pfx", password); err != nil {
//	    log.Fatal(err)
//	}
//	b.AddInvoiceFiles(ctx, paths)
//	b.Form().Route.LoadingState = "SP"
//	doc, err := b.Build(ctx)
package mdfelib

import (
	"github.com/rezonia/mdfe-builder/internal/certificate"
	"github.com/rezonia/mdfe-builder/internal/model"
	"github.com/rezonia/mdfe-builder/internal/nfe"
	"github.com/rezonia/mdfe-builder/internal/pipeline"
	"github.com/rezonia/mdfe-builder/internal/registry"
)

// Re-export core types for public API
type (
	FormState       = model.FormState
	InvoiceRecord   = model.InvoiceRecord
	SignatureStatus = model.SignatureStatus
	CertificateInfo = model.CertificateInfo
	LegalEntity     = model.LegalEntity
	Document        = model.Document
	Driver          = model.Driver
	Tab             = model.Tab
	BatchResult     = nfe.BatchResult
	SkippedFile     = nfe.SkippedFile
)

// Re-export modal constants
const (
	ModalRoad  = model.ModalRoad
	ModalAir   = model.ModalAir
	ModalWater = model.ModalWater
	ModalRail  = model.ModalRail
)

// Re-export form tabs
const (
	TabDocuments  = model.TabDocuments
	TabTransport  = model.TabTransport
	TabDrivers    = model.TabDrivers
	TabRoute      = model.TabRoute
	TabFreight    = model.TabFreight
	TabInsurance  = model.TabInsurance
	TabTotalizers = model.TabTotalizers
)

// Re-export error types
type (
	ParseError        = model.ParseError
	ValidationError   = model.ValidationError
	CredentialError   = certificate.CredentialError
	PreconditionError = pipeline.PreconditionError
)

// Re-export sentinel errors
var (
	ErrWrongPassword        = certificate.ErrWrongPassword
	ErrInvalidContainer     = certificate.ErrInvalidContainer
	ErrUnreadable           = certificate.ErrUnreadable
	ErrInspectionTimeout    = certificate.ErrInspectionTimeout
	ErrToolUnavailable      = certificate.ErrToolUnavailable
	ErrNotInvoice           = nfe.ErrNotInvoice
	ErrDuplicateKey         = nfe.ErrDuplicateKey
	ErrAssemblyPrecondition = pipeline.ErrAssemblyPrecondition
	ErrCompanyNotFound      = registry.ErrNotFound
)
