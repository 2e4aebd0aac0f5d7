package certificate

import (
	"bytes"
	"context"
	"crypto"
	"crypto/x509"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/crypto/ocsp"

	"github.com/rezonia/mdfe-builder/internal/model"
)

// Default OCSP configuration
const (
	DefaultOCSPTimeout  = 10 * time.Second
	DefaultOCSPCacheTTL = 1 * time.Hour
)

// Revocation statuses reported in CertificateInfo.Revocation
const (
	RevocationGood    = "good"
	RevocationRevoked = "revoked"
	RevocationUnknown = "unknown"
)

// OCSPCache caches revocation answers per issuer and serial number
type OCSPCache struct {
	mu      sync.RWMutex
	entries map[string]ocspCacheEntry
	ttl     time.Duration
	now     func() time.Time
}

type ocspCacheEntry struct {
	revoked   bool
	expiresAt time.Time
}

// NewOCSPCache creates a new OCSP response cache
func NewOCSPCache(ttl time.Duration) *OCSPCache {
	return &OCSPCache{
		entries: make(map[string]ocspCacheEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get retrieves a cached answer
func (c *OCSPCache) Get(cert *x509.Certificate) (revoked bool, found bool) {
	if cert == nil {
		return false, false
	}
	key := certCacheKey(cert)

	c.mu.RLock()
	entry, exists := c.entries[key]
	c.mu.RUnlock()

	if !exists {
		return false, false
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return false, false
	}
	return entry.revoked, true
}

// Set caches an answer
func (c *OCSPCache) Set(cert *x509.Certificate, revoked bool) {
	if cert == nil {
		return
	}
	c.mu.Lock()
	c.entries[certCacheKey(cert)] = ocspCacheEntry{
		revoked:   revoked,
		expiresAt: c.now().Add(c.ttl),
	}
	c.mu.Unlock()
}

// Size returns the number of cached entries
func (c *OCSPCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func certCacheKey(cert *x509.Certificate) string {
	return fmt.Sprintf("%s:%s", cert.Issuer.String(), cert.SerialNumber.String())
}

// OCSPChecker asks the responders named in a certificate whether it was revoked
type OCSPChecker struct {
	client *http.Client
	cache  *OCSPCache
}

// OCSPOption configures an OCSPChecker
type OCSPOption func(*OCSPChecker)

// WithOCSPHTTPClient sets the HTTP client used to reach responders
func WithOCSPHTTPClient(client *http.Client) OCSPOption {
	return func(c *OCSPChecker) {
		c.client = client
	}
}

// WithOCSPCache replaces the default response cache
func WithOCSPCache(cache *OCSPCache) OCSPOption {
	return func(c *OCSPChecker) {
		c.cache = cache
	}
}

// NewOCSPChecker creates a checker with a DefaultOCSPTimeout client and a
// DefaultOCSPCacheTTL cache
func NewOCSPChecker(opts ...OCSPOption) *OCSPChecker {
	c := &OCSPChecker{}
	for _, opt := range opts {
		opt(c)
	}
	if c.client == nil {
		c.client = &http.Client{Timeout: DefaultOCSPTimeout}
	}
	if c.cache == nil {
		c.cache = NewOCSPCache(DefaultOCSPCacheTTL)
	}
	return c
}

// Check reports whether cert was revoked by issuer. Only definite answers
// are cached.
func (c *OCSPChecker) Check(ctx context.Context, cert, issuer *x509.Certificate) (bool, error) {
	if revoked, ok := c.cache.Get(cert); ok {
		return revoked, nil
	}
	if len(cert.OCSPServer) == 0 {
		return false, fmt.Errorf("no OCSP server URL in certificate")
	}

	request, err := ocsp.CreateRequest(cert, issuer, &ocsp.RequestOptions{Hash: crypto.SHA256})
	if err != nil {
		return false, fmt.Errorf("failed to create OCSP request: %w", err)
	}

	var lastErr error
	for _, server := range cert.OCSPServer {
		revoked, err := c.query(ctx, server, request, issuer)
		if err == nil {
			c.cache.Set(cert, revoked)
			return revoked, nil
		}
		lastErr = err
	}
	return false, fmt.Errorf("all OCSP servers failed: %w", lastErr)
}

func (c *OCSPChecker) query(ctx context.Context, serverURL string, request []byte, issuer *x509.Certificate) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, serverURL, bytes.NewReader(request))
	if err != nil {
		return false, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/ocsp-request")
	req.Header.Set("Accept", "application/ocsp-response")

	resp, err := c.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("OCSP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("OCSP server returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, fmt.Errorf("failed to read OCSP response: %w", err)
	}

	parsed, err := ocsp.ParseResponseForCert(body, nil, issuer)
	if err != nil {
		return false, fmt.Errorf("failed to parse OCSP response: %w", err)
	}

	switch parsed.Status {
	case ocsp.Good:
		return false, nil
	case ocsp.Revoked:
		return true, nil
	case ocsp.Unknown:
		return false, fmt.Errorf("OCSP status unknown")
	default:
		return false, fmt.Errorf("unexpected OCSP status: %d", parsed.Status)
	}
}

// WithRevocationCheck asks the leaf's OCSP responders for its status after
// decoding. The result lands in CertificateInfo.Revocation.
func WithRevocationCheck(checker *OCSPChecker) InspectorOption {
	return func(o *options) {
		o.ocsp = checker
	}
}

// checkRevocation fills info.Revocation; it is left empty when the check is
// disabled or the leaf names no responder, and set to unknown when the issuer
// cannot be found or every responder fails
func (o options) checkRevocation(ctx context.Context, info *model.CertificateInfo, certs []*x509.Certificate) {
	if o.ocsp == nil {
		return
	}
	leaf, others := splitChain(certs)
	if len(leaf.OCSPServer) == 0 {
		return
	}

	candidates := others
	if o.trust != nil {
		candidates = append(append([]*x509.Certificate{}, others...), o.trust.rootCerts...)
	}
	var issuer *x509.Certificate
	for _, c := range candidates {
		if leaf.CheckSignatureFrom(c) == nil {
			issuer = c
			break
		}
	}
	if issuer == nil {
		info.Revocation = RevocationUnknown
		return
	}

	revoked, err := o.ocsp.Check(ctx, leaf, issuer)
	switch {
	case err != nil:
		info.Revocation = RevocationUnknown
	case revoked:
		info.Revocation = RevocationRevoked
	default:
		info.Revocation = RevocationGood
	}
}
