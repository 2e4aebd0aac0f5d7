// Package pipeline runs the manifest workflow: certificate inspection,
// invoice import, validation and validation-gated assembly.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rezonia/mdfe-builder/internal/assembler"
	"github.com/rezonia/mdfe-builder/internal/certificate"
	"github.com/rezonia/mdfe-builder/internal/model"
	"github.com/rezonia/mdfe-builder/internal/nfe"
	"github.com/rezonia/mdfe-builder/internal/registry"
	"github.com/rezonia/mdfe-builder/internal/validation"
)

// ErrAssemblyPrecondition is matched by errors.Is when Generate refuses a
// form that does not pass validation
var ErrAssemblyPrecondition = errors.New("form must pass validation before assembly")

// PreconditionError carries the violations that blocked assembly
type PreconditionError struct {
	Violations []model.ValidationError
}

func (e *PreconditionError) Error() string {
	first := e.Violations[0]
	return fmt.Sprintf("%s: %d violation(s), first on %s.%s: %s",
		ErrAssemblyPrecondition, len(e.Violations), first.Tab, first.Field, first.Message)
}

func (e *PreconditionError) Unwrap() error {
	return ErrAssemblyPrecondition
}

// Session is the state one user builds a manifest from. The pipeline fills
// it in step by step; a session must not be shared between goroutines.
type Session struct {
	Form        *model.FormState       `json:"form"`
	Certificate *model.CertificateInfo `json:"certificate,omitempty"`
}

// NewSession starts a session on form, or on an empty form when nil
func NewSession(form *model.FormState) *Session {
	if form == nil {
		form = &model.FormState{}
	}
	return &Session{Form: form}
}

// Pipeline wires the inspector, extractor, registry and assembler together
type Pipeline struct {
	inspector certificate.Inspector
	extractor *nfe.Extractor
	lookup    registry.Lookup
	assembler *assembler.Assembler
	logger    *slog.Logger
	now       func() time.Time

	extractorOpts []nfe.Option
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithLogger sets the structured logger
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = l
	}
}

// WithInspector replaces the certificate inspector
func WithInspector(i certificate.Inspector) Option {
	return func(p *Pipeline) {
		p.inspector = i
	}
}

// WithExtractor replaces the invoice extractor
func WithExtractor(e *nfe.Extractor) Option {
	return func(p *Pipeline) {
		p.extractor = e
	}
}

// WithInvoiceSignatureCheck makes the default extractor verify invoice
// signatures, checking signer chains against roots when it is not nil
func WithInvoiceSignatureCheck(roots *certificate.TrustStore) Option {
	return func(p *Pipeline) {
		p.extractorOpts = append(p.extractorOpts, nfe.WithSignatureCheck(roots))
	}
}

// WithLookup enables the legal-entity lookup used by Generate
func WithLookup(l registry.Lookup) Option {
	return func(p *Pipeline) {
		p.lookup = l
	}
}

// WithAssembler replaces the document assembler
func WithAssembler(a *assembler.Assembler) Option {
	return func(p *Pipeline) {
		p.assembler = a
	}
}

// WithClock sets the clock used for certificate expiry warnings
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		p.now = now
	}
}

// New creates a pipeline. Unset parts default to the native inspector, a
// fresh extractor and an assembler with default settings; there is no
// registry lookup unless one is given.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	if p.inspector == nil {
		p.inspector = certificate.NewNativeInspector()
	}
	if p.extractor == nil {
		opts := append([]nfe.Option{nfe.WithLogger(p.logger)}, p.extractorOpts...)
		p.extractor = nfe.NewExtractor(opts...)
	}
	if p.assembler == nil {
		p.assembler = assembler.New(assembler.DefaultAssemblyConfig())
	}
	return p
}

// Extractor returns the invoice extractor
func (p *Pipeline) Extractor() *nfe.Extractor {
	return p.extractor
}

// InspectCertificate reads the credential container and records the result
// on the session. Credential errors are returned unchanged so callers can
// tell a wrong password from a timeout.
func (p *Pipeline) InspectCertificate(ctx context.Context, s *Session, path, password string) (*model.CertificateInfo, error) {
	info, err := p.inspector.Inspect(ctx, path, password)
	if err != nil {
		p.logger.Warn("certificate inspection failed", "file", path, "error", err)
		return nil, err
	}

	s.Certificate = info
	p.logger.Info("certificate inspected",
		"file", path,
		"tax_id", info.TaxID,
		"valid_to", info.ValidTo,
	)
	if info.Expired(p.now()) {
		p.logger.Warn("certificate is outside its validity window", "file", path, "valid_to", info.ValidTo)
	}
	if info.Revocation == certificate.RevocationRevoked {
		p.logger.Warn("certificate has been revoked", "file", path, "serial_number", info.SerialNumber)
	}
	return info, nil
}

// ImportInvoices extracts the files and appends the new records to the
// session's documents tab, recomputing the totalizers. Files whose access
// key is already attached are reported as skipped.
func (p *Pipeline) ImportInvoices(ctx context.Context, s *Session, paths []string) *nfe.BatchResult {
	batch := p.extractor.ExtractBatch(ctx, paths)

	attached := make(map[string]bool, len(s.Form.Documents.Invoices))
	for _, inv := range s.Form.Documents.Invoices {
		attached[inv.AccessKey] = true
	}

	merged := append([]model.InvoiceRecord(nil), s.Form.Documents.Invoices...)
	fresh := make([]model.InvoiceRecord, 0, len(batch.Records))
	for _, rec := range batch.Records {
		if attached[rec.AccessKey] {
			err := fmt.Errorf("%w: %s is already attached", nfe.ErrDuplicateKey, rec.AccessKey)
			batch.Skipped = append(batch.Skipped, nfe.SkippedFile{Path: rec.SourceFile, Err: err, Reason: err.Error()})
			continue
		}
		attached[rec.AccessKey] = true
		merged = append(merged, rec)
		fresh = append(fresh, rec)
	}
	batch.Records = fresh

	s.Form.ApplyInvoices(merged)
	return batch
}

// Validate runs the rule table against the session form
func (p *Pipeline) Validate(s *Session) []model.ValidationError {
	errs := validation.Validate(s.Form)
	if len(errs) > 0 {
		p.logger.Debug("form validation failed", "violations", len(errs), "first_tab", errs[0].Tab)
	}
	return errs
}

// Generate validates the form and, when it is clean, assembles the
// document. The issuer is looked up in the registry by the certificate tax
// ID when a lookup is configured; lookup failures fall back to the
// remaining issuer sources.
func (p *Pipeline) Generate(ctx context.Context, s *Session) (*model.Document, error) {
	if errs := p.Validate(s); len(errs) > 0 {
		return nil, &PreconditionError{Violations: errs}
	}

	entity := p.lookupIssuer(ctx, s.Certificate)
	doc := p.assembler.Assemble(s.Form, nil, s.Certificate, entity)

	p.logger.Info("manifest assembled",
		"control_code", doc.Identification.ControlCode,
		"modal", doc.Identification.Modal,
		"invoices", len(s.Form.Documents.Invoices),
		"unloading_groups", len(doc.Index.Unloading),
	)
	return doc, nil
}

func (p *Pipeline) lookupIssuer(ctx context.Context, cert *model.CertificateInfo) *model.LegalEntity {
	if p.lookup == nil || cert == nil || len(validation.OnlyDigits(cert.TaxID)) != 14 {
		return nil
	}
	entity, err := p.lookup.Find(ctx, cert.TaxID)
	if err != nil {
		p.logger.Warn("issuer lookup failed", "cnpj", cert.TaxID, "error", err)
		return nil
	}
	return entity
}
