package nfe_test

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"log/slog"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/beevik/etree"
	dsig "github.com/russellhaering/goxmldsig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/mdfe-builder/internal/certificate"
	"github.com/rezonia/mdfe-builder/internal/nfe"
)

const unsignedInvoice = `<infNFe xmlns="http://www.portalfiscal.inf.br/nfe" Id="NFe35240112345678000190550010000012341000012345" versao="4.00">` +
	`<ide><mod>55</mod><serie>1</serie><nNF>1234</nNF><dhEmi>2024-01-15T10:30:00-03:00</dhEmi></ide>` +
	`<emit><CNPJ>12345678000190</CNPJ><xNome>EMPRESA LTDA</xNome></emit>` +
	`<total><ICMSTot><vNF>1500.50</vNF></ICMSTot></total>` +
	`</infNFe>`

type signer struct {
	key  *rsa.PrivateKey
	cert *x509.Certificate
}

func newSigner(t *testing.T, notAfter time.Time) *signer {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(42),
		Subject:               pkix.Name{CommonName: "EMPRESA LTDA:12345678000190"},
		NotBefore:             time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		NotAfter:              notAfter,
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		BasicConstraintsValid: true,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)

	return &signer{key: key, cert: cert}
}

// sign produces an NFe element with the Signature placed beside infNFe, the
// way authorized invoices are laid out
func (s *signer) sign(t *testing.T) []byte {
	t.Helper()

	src := etree.NewDocument()
	require.NoError(t, src.ReadFromString(unsignedInvoice))

	ctx, err := dsig.NewSigningContext(s.key, [][]byte{s.cert.Raw})
	require.NoError(t, err)
	ctx.IdAttribute = "Id"
	ctx.Prefix = ""
	ctx.Canonicalizer = dsig.MakeC14N10RecCanonicalizer()

	sig, err := ctx.ConstructSignature(src.Root(), true)
	require.NoError(t, err)

	inf := src.Root().Copy()
	inf.RemoveAttr("xmlns")

	out := etree.NewDocument()
	root := out.CreateElement("NFe")
	root.CreateAttr("xmlns", nfe.Namespace)
	root.AddChild(inf)
	root.AddChild(sig)

	data, err := out.WriteToBytes()
	require.NoError(t, err)
	return data
}

func TestSignatureCheck(t *testing.T) {
	s := newSigner(t, time.Date(2036, 1, 1, 0, 0, 0, 0, time.UTC))
	signed := s.sign(t)

	t.Run("valid", func(t *testing.T) {
		record, err := nfe.NewExtractor(nfe.WithSignatureCheck(nil)).ExtractOne(signed)
		require.NoError(t, err)
		require.NotNil(t, record.Signature)

		assert.True(t, record.Signature.Present)
		assert.True(t, record.Signature.Valid, record.Signature.Error)
		assert.False(t, record.Signature.Trusted)
		assert.Equal(t, "EMPRESA LTDA:12345678000190", record.Signature.Signer)
		assert.Equal(t, "1234", record.Number)
	})

	t.Run("tampered", func(t *testing.T) {
		tampered := bytes.Replace(signed, []byte("1500.50"), []byte("9500.50"), 1)
		record, err := nfe.NewExtractor(nfe.WithSignatureCheck(nil)).ExtractOne(tampered)
		require.NoError(t, err)

		assert.True(t, record.Signature.Present)
		assert.False(t, record.Signature.Valid)
		assert.Contains(t, record.Signature.Error, "signature validation failed")
	})

	t.Run("trusted", func(t *testing.T) {
		roots := certificate.NewTrustStore()
		roots.AddCertificate(s.cert)

		record, err := nfe.NewExtractor(nfe.WithSignatureCheck(roots)).ExtractOne(signed)
		require.NoError(t, err)
		assert.True(t, record.Signature.Valid, record.Signature.Error)
		assert.True(t, record.Signature.Trusted)
	})

	t.Run("unsigned", func(t *testing.T) {
		record, err := nfe.NewExtractor(nfe.WithSignatureCheck(nil)).ExtractOne(readFixture(t, "nfe_sp.xml"))
		require.NoError(t, err)

		assert.False(t, record.Signature.Present)
		assert.False(t, record.Signature.Valid)
		assert.NotEmpty(t, record.Signature.Error)
	})

	t.Run("disabled", func(t *testing.T) {
		record, err := nfe.NewExtractor().ExtractOne(signed)
		require.NoError(t, err)
		assert.Nil(t, record.Signature)
	})
}

func TestSignatureCheck_CertificateExpiredAtIssue(t *testing.T) {
	s := newSigner(t, time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC))

	record, err := nfe.NewExtractor(nfe.WithSignatureCheck(nil)).ExtractOne(s.sign(t))
	require.NoError(t, err)

	assert.True(t, record.Signature.Present)
	assert.False(t, record.Signature.Valid)
}

func TestExtractBatch_WarnsOnUnverifiedSignature(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tampered.xml")
	signed := newSigner(t, time.Date(2036, 1, 1, 0, 0, 0, 0, time.UTC)).sign(t)
	require.NoError(t, os.WriteFile(path, bytes.Replace(signed, []byte("<nNF>1234<"), []byte("<nNF>1235<"), 1), 0o600))

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	result := nfe.NewExtractor(nfe.WithLogger(logger), nfe.WithSignatureCheck(nil)).
		ExtractBatch(context.Background(), []string{path})

	require.Len(t, result.Records, 1, "an unverified signature does not reject the file")
	assert.False(t, result.Records[0].Signature.Valid)
	assert.Contains(t, logs.String(), "invoice signature not verified")
}
