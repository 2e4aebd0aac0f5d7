package nfe

import (
	"crypto/x509"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/beevik/etree"
	dsig "github.com/russellhaering/goxmldsig"

	"github.com/rezonia/mdfe-builder/internal/certificate"
	"github.com/rezonia/mdfe-builder/internal/model"
)

// Namespace is the NF-e layout namespace
const Namespace = "http://www.portalfiscal.inf.br/nfe"

var errNoSignature = errors.New("invoice is not signed")

// WithSignatureCheck verifies the XML signature of every extracted invoice
// and records the outcome on the record. A nil trust store checks the
// signature against the embedded certificate only.
func WithSignatureCheck(roots *certificate.TrustStore) Option {
	return func(e *Extractor) {
		e.verifySignatures = true
		e.roots = roots
	}
}

// checkSignature validates the enveloped signature over infNFe. The
// Signature element sits next to infNFe under NFe, so the signed element is
// detached with its namespace made explicit and the signature moved inside
// it before validation.
func (e *Extractor) checkSignature(inf *etree.Element) *model.SignatureStatus {
	status := &model.SignatureStatus{}

	sig := findSignature(inf)
	if sig == nil {
		status.Error = errNoSignature.Error()
		return status
	}
	status.Present = true

	cert, err := embeddedCertificate(sig)
	if err != nil {
		status.Error = err.Error()
		return status
	}
	status.Signer = cert.Subject.CommonName

	signed := inf.Copy()
	if signed.SelectAttr("xmlns") == nil {
		ns := inf.NamespaceURI()
		if ns == "" {
			ns = Namespace
		}
		signed.CreateAttr("xmlns", ns)
	}
	if sig.Parent() != inf {
		signed.AddChild(sig.Copy())
	}

	vctx := dsig.NewDefaultValidationContext(&dsig.MemoryX509CertificateStore{
		Roots: []*x509.Certificate{cert},
	})
	vctx.IdAttribute = "Id"
	vctx.Clock = dsig.NewFakeClockAt(e.signingTime(inf))

	if _, err := vctx.Validate(signed); err != nil {
		status.Error = fmt.Sprintf("signature validation failed: %v", err)
		return status
	}
	status.Valid = true

	if e.roots != nil {
		status.Trusted = e.roots.Trusted(cert, nil)
	}
	return status
}

// findSignature looks for the dsig Signature inside infNFe, then beside it
func findSignature(inf *etree.Element) *etree.Element {
	if sig := signatureChild(inf); sig != nil {
		return sig
	}
	if parent := inf.Parent(); parent != nil {
		return signatureChild(parent)
	}
	return nil
}

func signatureChild(el *etree.Element) *etree.Element {
	for _, child := range el.ChildElements() {
		if child.Tag == dsig.SignatureTag {
			return child
		}
	}
	return nil
}

func embeddedCertificate(sig *etree.Element) (*x509.Certificate, error) {
	var raw string
	for _, el := range sig.FindElements(".//X509Certificate") {
		if raw = strings.TrimSpace(el.Text()); raw != "" {
			break
		}
	}
	if raw == "" {
		return nil, errors.New("signature carries no X509Certificate")
	}

	der, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(raw), ""))
	if err != nil {
		return nil, fmt.Errorf("failed to decode signer certificate: %w", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("failed to parse signer certificate: %w", err)
	}
	return cert, nil
}

// signingTime is the full dhEmi timestamp, or the extractor clock when the
// invoice carries none
func (e *Extractor) signingTime(inf *etree.Element) time.Time {
	if t, err := time.Parse(time.RFC3339, text(inf, "ide/dhEmi")); err == nil {
		return t
	}
	return e.now()
}
