package certificate

import (
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"time"
)

// TrustStore holds the CA certificates a credential chain is checked against
type TrustStore struct {
	roots     *x509.CertPool
	rootCerts []*x509.Certificate
	now       func() time.Time
}

// TrustStoreOption configures a TrustStore
type TrustStoreOption func(*TrustStore)

// WithClock sets the time used for chain validity checks
func WithClock(now func() time.Time) TrustStoreOption {
	return func(s *TrustStore) {
		s.now = now
	}
}

// NewTrustStore creates an empty trust store
func NewTrustStore(opts ...TrustStoreOption) *TrustStore {
	store := &TrustStore{
		roots:     x509.NewCertPool(),
		rootCerts: make([]*x509.Certificate, 0),
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(store)
	}

	return store
}

// LoadTrustStore creates a trust store from a PEM bundle of root CAs
func LoadTrustStore(path string, opts ...TrustStoreOption) (*TrustStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read trust roots: %w", err)
	}

	store := NewTrustStore(opts...)
	if err := store.AddCertificatesFromPEM(data); err != nil {
		return nil, err
	}
	return store, nil
}

// AddCertificate adds a single certificate to the trust store
func (s *TrustStore) AddCertificate(cert *x509.Certificate) {
	if cert != nil {
		s.roots.AddCert(cert)
		s.rootCerts = append(s.rootCerts, cert)
	}
}

// AddCertificatesFromPEM parses and adds certificates from PEM data
func (s *TrustStore) AddCertificatesFromPEM(pemData []byte) error {
	var added int
	for {
		block, rest := pem.Decode(pemData)
		if block == nil {
			break
		}
		if block.Type == "CERTIFICATE" {
			cert, err := x509.ParseCertificate(block.Bytes)
			if err != nil {
				return fmt.Errorf("failed to parse certificate: %w", err)
			}
			s.AddCertificate(cert)
			added++
		}
		pemData = rest
	}
	if added == 0 {
		return fmt.Errorf("no certificates found in PEM data")
	}
	return nil
}

// Len returns the number of root certificates
func (s *TrustStore) Len() int {
	return len(s.rootCerts)
}

// VerifyChain verifies the certificate chain against trusted roots
func (s *TrustStore) VerifyChain(cert *x509.Certificate, intermediates []*x509.Certificate) ([]*x509.Certificate, error) {
	if cert == nil {
		return nil, fmt.Errorf("certificate is nil")
	}

	var interPool *x509.CertPool
	if len(intermediates) > 0 {
		interPool = x509.NewCertPool()
		for _, inter := range intermediates {
			interPool.AddCert(inter)
		}
	}

	opts := x509.VerifyOptions{
		Roots:         s.roots,
		Intermediates: interPool,
		CurrentTime:   s.now(),
		KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
	}

	chains, err := cert.Verify(opts)
	if err != nil {
		return nil, fmt.Errorf("chain verification failed: %w", err)
	}
	if len(chains) == 0 {
		return nil, fmt.Errorf("no valid certificate chains found")
	}

	return chains[0], nil
}

// Trusted reports whether cert chains up to one of the roots
func (s *TrustStore) Trusted(cert *x509.Certificate, intermediates []*x509.Certificate) bool {
	_, err := s.VerifyChain(cert, intermediates)
	return err == nil
}
