package mdfelib

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/rezonia/mdfe-builder/internal/config"
	"github.com/rezonia/mdfe-builder/internal/model"
	"github.com/rezonia/mdfe-builder/internal/nfe"
	"github.com/rezonia/mdfe-builder/internal/pipeline"
)

// BuilderOptions configures a Builder
type BuilderOptions struct {
	// Assembly
	Environment   string       // "1" production, "2" homologation (default: "2")
	DefaultSeries string       // Series used when the form leaves it empty (default: "1")
	Issuer        *LegalEntity // Tenant issuer used when no registry record is found

	// Certificate inspection
	CertificateBackend string        // "native" or "openssl" (default: native)
	CertificateTimeout time.Duration // Inspection timeout (default: 30s)
	TrustRoots         string        // PEM bundle for the chain check (optional)

	// Invoice import
	VerifySignatures bool // Check each invoice's XML signature on import

	// Issuer lookup
	EnableRegistry bool   // Look the issuer up by the certificate CNPJ
	RegistryURL    string // Registry base URL (default: BrasilAPI)

	Logger *slog.Logger
}

// DefaultBuilderOptions returns homologation settings with the native
// inspector and no network lookup
func DefaultBuilderOptions() BuilderOptions {
	cfg := config.Default()
	return BuilderOptions{
		Environment:        cfg.Assembly.Environment,
		DefaultSeries:      cfg.Assembly.DefaultSeries,
		CertificateBackend: cfg.Certificate.Backend,
		CertificateTimeout: cfg.Certificate.Timeout,
		RegistryURL:        cfg.Registry.BaseURL,
	}
}

func (o BuilderOptions) config() config.Config {
	cfg := config.Default()
	if o.Environment != "" {
		cfg.Assembly.Environment = o.Environment
	}
	if o.DefaultSeries != "" {
		cfg.Assembly.DefaultSeries = o.DefaultSeries
	}
	cfg.Assembly.Issuer = o.Issuer
	if o.CertificateBackend != "" {
		cfg.Certificate.Backend = o.CertificateBackend
	}
	if o.CertificateTimeout > 0 {
		cfg.Certificate.Timeout = o.CertificateTimeout
	}
	cfg.Certificate.TrustRoots = o.TrustRoots
	cfg.Invoices.VerifySignatures = o.VerifySignatures
	cfg.Registry.Enabled = o.EnableRegistry
	if o.RegistryURL != "" {
		cfg.Registry.BaseURL = o.RegistryURL
	}
	return cfg
}

// Builder holds one manifest in progress. It is not safe for concurrent use.
type Builder struct {
	pipeline *pipeline.Pipeline
	session  *pipeline.Session
}

// NewBuilder creates a builder with an empty form
func NewBuilder(opts BuilderOptions) (*Builder, error) {
	cfg := opts.config()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var popts []pipeline.Option
	if opts.Logger != nil {
		popts = append(popts, pipeline.WithLogger(opts.Logger))
	}
	p, err := pipeline.NewFromConfig(cfg, popts...)
	if err != nil {
		return nil, err
	}

	return &Builder{
		pipeline: p,
		session:  pipeline.NewSession(nil),
	}, nil
}

// Form returns the form being edited; changes are seen by Validate and Build
func (b *Builder) Form() *FormState {
	return b.session.Form
}

// SetForm replaces the form, keeping the loaded certificate
func (b *Builder) SetForm(form *FormState) {
	if form == nil {
		form = &FormState{}
	}
	b.session.Form = form
}

// Certificate returns the loaded certificate, or nil
func (b *Builder) Certificate() *CertificateInfo {
	return b.session.Certificate
}

// LoadCertificateFile inspects a PKCS#12 container on disk
func (b *Builder) LoadCertificateFile(ctx context.Context, path, password string) (*CertificateInfo, error) {
	return b.pipeline.InspectCertificate(ctx, b.session, path, password)
}

// LoadCertificate inspects a PKCS#12 container read from r
func (b *Builder) LoadCertificate(ctx context.Context, r io.Reader, password string) (*CertificateInfo, error) {
	tmp, err := os.CreateTemp("", "mdfe-cert-*.pfx")
	if err != nil {
		return nil, fmt.Errorf("stage certificate: %w", err)
	}
	defer os.Remove(tmp.Name())

	_, err = io.Copy(tmp, r)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return nil, fmt.Errorf("stage certificate: %w", err)
	}

	return b.LoadCertificateFile(ctx, tmp.Name(), password)
}

// AddInvoice extracts one NF-e document and attaches it to the form
func (b *Builder) AddInvoice(r io.Reader) (*InvoiceRecord, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &model.ParseError{Field: "input", Message: "failed to read input", Cause: err}
	}

	rec, err := b.pipeline.Extractor().ExtractOne(data)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrNotInvoice
	}

	invoices := b.session.Form.Documents.Invoices
	for _, existing := range invoices {
		if existing.AccessKey == rec.AccessKey {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateKey, rec.AccessKey)
		}
	}
	b.session.Form.ApplyInvoices(append(invoices, *rec))
	return rec, nil
}

// AddInvoiceFiles imports invoice files; failures are reported in the
// result's Skipped list
func (b *Builder) AddInvoiceFiles(ctx context.Context, paths []string) *BatchResult {
	return b.pipeline.ImportInvoices(ctx, b.session, paths)
}

// ExtractInvoices parses several documents concurrently without touching
// the form. Each input is isolated: one that fails to read or parse lands in
// Skipped as "input N" and the others still produce records. Records and
// skipped entries keep the input order, and a repeated access key is skipped
// the way ExtractBatch does.
func (b *Builder) ExtractInvoices(ctx context.Context, inputs []io.Reader) *BatchResult {
	type outcome struct {
		rec *InvoiceRecord
		err error
	}
	outcomes := make([]outcome, len(inputs))
	extractor := b.pipeline.Extractor()

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i, input := range inputs {
		g.Go(func() error {
			outcomes[i].rec, outcomes[i].err = extractReader(ctx, extractor, input)
			return nil
		})
	}
	_ = g.Wait()

	result := &BatchResult{
		ID:      uuid.NewString(),
		Records: make([]InvoiceRecord, 0, len(inputs)),
	}
	seen := make(map[string]int, len(inputs))
	for i, o := range outcomes {
		name := fmt.Sprintf("input %d", i)
		err := o.err
		if err == nil {
			if first, dup := seen[o.rec.AccessKey]; dup {
				err = fmt.Errorf("%w: %s already read from input %d", ErrDuplicateKey, o.rec.AccessKey, first)
			}
		}
		if err != nil {
			result.Skipped = append(result.Skipped, SkippedFile{Path: name, Err: err, Reason: err.Error()})
			continue
		}
		seen[o.rec.AccessKey] = i
		result.Records = append(result.Records, *o.rec)
	}
	return result
}

func extractReader(ctx context.Context, extractor *nfe.Extractor, r io.Reader) (*InvoiceRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &model.ParseError{Field: "input", Message: "failed to read input", Cause: err}
	}
	rec, err := extractor.ExtractOne(data)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrNotInvoice
	}
	return rec, nil
}

// Validate returns every violation in tab order
func (b *Builder) Validate() []ValidationError {
	return b.pipeline.Validate(b.session)
}

// Build validates the form and assembles the document. It returns a
// *PreconditionError wrapping ErrAssemblyPrecondition when validation fails.
func (b *Builder) Build(ctx context.Context) (*Document, error) {
	return b.pipeline.Generate(ctx, b.session)
}
