// Package certificate reads metadata from PKCS#12 credential containers
// (A1 e-CNPJ certificates) and derives the holder's tax ID and legal name.
package certificate

import (
	"context"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"os"

	"software.sslmate.com/src/go-pkcs12"

	"github.com/rezonia/mdfe-builder/internal/model"
)

// Inspector opens a credential container and returns its certificate metadata
type Inspector interface {
	Inspect(ctx context.Context, path, password string) (*model.CertificateInfo, error)
}

// InspectorOption configures an inspector
type InspectorOption func(*options)

type options struct {
	trust *TrustStore
	ocsp  *OCSPChecker
}

// WithTrustStore enables the chain check against the given roots
func WithTrustStore(ts *TrustStore) InspectorOption {
	return func(o *options) {
		o.trust = ts
	}
}

// NativeInspector decodes PKCS#12 containers in-process
type NativeInspector struct {
	opts options
}

// NewNativeInspector creates a new in-process inspector
func NewNativeInspector(opts ...InspectorOption) *NativeInspector {
	i := &NativeInspector{}
	for _, opt := range opts {
		opt(&i.opts)
	}
	return i
}

// Inspect reads the container at path and returns its leaf certificate metadata
func (i *NativeInspector) Inspect(ctx context.Context, path, password string) (*model.CertificateInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, TimeoutError(path, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, UnreadableError(path, err)
	}

	info, err := i.InspectData(ctx, data, password)
	if err != nil {
		var credErr *CredentialError
		if errors.As(err, &credErr) {
			credErr.Path = path
		}
		return nil, err
	}
	return info, nil
}

// InspectData decodes an in-memory container
func (i *NativeInspector) InspectData(ctx context.Context, data []byte, password string) (*model.CertificateInfo, error) {
	if len(data) == 0 {
		return nil, InvalidContainerError("", "empty container", nil)
	}

	_, leaf, chain, err := pkcs12.DecodeChain(data, password)
	if err != nil {
		if errors.Is(err, pkcs12.ErrIncorrectPassword) {
			return nil, WrongPasswordError("", err)
		}
		return nil, InvalidContainerError("", "cannot decode PKCS#12 data", err)
	}

	certs := append([]*x509.Certificate{leaf}, chain...)
	info := describe(certs, i.opts.trust)
	i.opts.checkRevocation(ctx, info, certs)
	return info, nil
}

func certificatesFromBlocks(blocks []*pem.Block) ([]*x509.Certificate, error) {
	var certs []*x509.Certificate
	for _, block := range blocks {
		if block.Type != "CERTIFICATE" {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, InvalidContainerError("", "cannot parse certificate", err)
		}
		certs = append(certs, cert)
	}
	if len(certs) == 0 {
		return nil, InvalidContainerError("", "no certificate in container", nil)
	}
	return certs, nil
}

// describe builds the metadata of the leaf certificate; any other
// certificates in the container are treated as intermediates
func describe(certs []*x509.Certificate, ts *TrustStore) *model.CertificateInfo {
	leaf, intermediates := splitChain(certs)

	subject := leaf.Subject.String()
	info := &model.CertificateInfo{
		SubjectDN:    subject,
		IssuerDN:     leaf.Issuer.String(),
		SerialNumber: leaf.SerialNumber.String(),
		ValidFrom:    leaf.NotBefore,
		ValidTo:      leaf.NotAfter,
		TaxID:        DeriveTaxID(subject),
		LegalName:    DeriveLegalName(subject),
	}

	if ts != nil {
		trusted := ts.Trusted(leaf, intermediates)
		info.ChainTrusted = &trusted
	}

	return info
}

// splitChain picks the first non-CA certificate as the leaf
func splitChain(certs []*x509.Certificate) (*x509.Certificate, []*x509.Certificate) {
	leafIdx := 0
	for idx, cert := range certs {
		if !cert.IsCA {
			leafIdx = idx
			break
		}
	}

	others := make([]*x509.Certificate, 0, len(certs)-1)
	for idx, cert := range certs {
		if idx != leafIdx {
			others = append(others, cert)
		}
	}
	return certs[leafIdx], others
}
