package pipeline

import (
	"fmt"
	"net/http"

	"github.com/rezonia/mdfe-builder/internal/assembler"
	"github.com/rezonia/mdfe-builder/internal/certificate"
	"github.com/rezonia/mdfe-builder/internal/config"
	"github.com/rezonia/mdfe-builder/internal/registry"
)

// NewFromConfig builds a pipeline from loaded settings. opts are applied
// after the configured parts and may replace any of them.
func NewFromConfig(cfg config.Config, opts ...Option) (*Pipeline, error) {
	var (
		inspectorOpts []certificate.InspectorOption
		roots         *certificate.TrustStore
	)
	if cfg.Certificate.TrustRoots != "" {
		ts, err := certificate.LoadTrustStore(cfg.Certificate.TrustRoots)
		if err != nil {
			return nil, fmt.Errorf("failed to load trust roots: %w", err)
		}
		roots = ts
		inspectorOpts = append(inspectorOpts, certificate.WithTrustStore(ts))
	}
	if cfg.Certificate.CheckRevocation {
		checker := certificate.NewOCSPChecker(
			certificate.WithOCSPHTTPClient(&http.Client{Timeout: cfg.Certificate.OCSPTimeout}),
		)
		inspectorOpts = append(inspectorOpts, certificate.WithRevocationCheck(checker))
	}

	var inspector certificate.Inspector
	switch cfg.Certificate.Backend {
	case config.BackendOpenSSL:
		ossl := certificate.NewOpenSSLInspector(cfg.Certificate.OpenSSLPath, inspectorOpts...)
		ossl.SetTimeout(cfg.Certificate.Timeout)
		inspector = ossl
	default:
		inspector = certificate.NewNativeInspector(inspectorOpts...)
	}

	base := []Option{
		WithInspector(inspector),
		WithAssembler(assembler.New(cfg.Assembly)),
	}
	if cfg.Invoices.VerifySignatures {
		base = append(base, WithInvoiceSignatureCheck(roots))
	}
	if cfg.Registry.Enabled {
		client := registry.NewClient(cfg.Registry.BaseURL, registry.WithTimeout(cfg.Registry.Timeout))
		base = append(base, WithLookup(registry.NewCache(client, cfg.Registry.CacheTTL)))
	}

	return New(append(base, opts...)...), nil
}
