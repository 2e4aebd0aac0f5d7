package mdfelib_test

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"errors"
	"io"
	"log/slog"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/iotest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"software.sslmate.com/src/go-pkcs12"

	"github.com/rezonia/mdfe-builder/pkg/mdfelib"
)

const testPassword = "s3cret"

func invoiceFixture(name string) string {
	return filepath.Join("..", "..", "internal", "nfe", "testdata", name)
}

func openFixture(t *testing.T, name string) io.Reader {
	t.Helper()
	data, err := os.ReadFile(invoiceFixture(name))
	require.NoError(t, err)
	return bytes.NewReader(data)
}

// selfSignedPFX packs a self-signed e-CNPJ style certificate
func selfSignedPFX(t *testing.T) []byte {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber: big.NewInt(7),
		Subject: pkix.Name{
			CommonName:   "TRANSPORTES EXEMPLO LTDA:12345678000190",
			Organization: []string{"ICP-Brasil"},
			Country:      []string{"BR"},
		},
		NotBefore: time.Now().Add(-time.Hour),
		NotAfter:  time.Now().Add(30 * 24 * time.Hour),
		KeyUsage:  x509.KeyUsageDigitalSignature,
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)
	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)

	pfx, err := pkcs12.LegacyDES.Encode(key, cert, nil, testPassword)
	require.NoError(t, err)
	return pfx
}

func newBuilder(t *testing.T) *mdfelib.Builder {
	t.Helper()
	b, err := mdfelib.NewBuilder(mdfelib.DefaultBuilderOptions())
	require.NoError(t, err)
	return b
}

func fillForm(form *mdfelib.FormState) {
	form.Transport.Modal = mdfelib.ModalRoad
	form.Transport.Vehicle.Plate = "ABC1D23"
	form.Transport.Vehicle.Renavam = "12345678901"
	form.Drivers.Drivers = append(form.Drivers.Drivers, mdfelib.Driver{Name: "JOAO DA SILVA", CPF: "12345678909"})
	form.Route.LoadingState = "SP"
	form.Route.LoadingMunicipality = "Campinas"
	form.Route.UnloadingState = "RJ"
	form.Route.UnloadingMunicipality = "Rio de Janeiro"
	form.Freight.PayeeDocument = "12345678000190"
	form.Freight.ContractValue = "2.000,00"
	form.Freight.PaymentMethod = "upfront"
	form.Freight.PixKey = "financeiro@empresa.com.br"
	form.Insurance.Responsible = "issuer"
	form.Insurance.InsurerName = "SEGURADORA BRASIL SA"
	form.Insurance.InsurerDocument = "11222333000181"
	form.Insurance.PolicyNumber = "APL-2024-001"
	form.Insurance.EndorsementNumber = "AVB-0001"
}

func TestDefaultBuilderOptions(t *testing.T) {
	opts := mdfelib.DefaultBuilderOptions()

	assert.Equal(t, "2", opts.Environment)
	assert.Equal(t, "1", opts.DefaultSeries)
	assert.Equal(t, "native", opts.CertificateBackend)
	assert.Equal(t, 30*time.Second, opts.CertificateTimeout)
	assert.False(t, opts.EnableRegistry)
}

func TestNewBuilder_InvalidOptions(t *testing.T) {
	opts := mdfelib.DefaultBuilderOptions()
	opts.CertificateBackend = "pkcs11"

	_, err := mdfelib.NewBuilder(opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backend")
}

func TestBuilder_LoadCertificate(t *testing.T) {
	b := newBuilder(t)
	pfx := selfSignedPFX(t)

	_, err := b.LoadCertificate(context.Background(), bytes.NewReader(pfx), "wrong")
	require.ErrorIs(t, err, mdfelib.ErrWrongPassword)
	assert.Nil(t, b.Certificate())

	var credErr *mdfelib.CredentialError
	require.True(t, errors.As(err, &credErr))
	assert.Contains(t, credErr.UserMessage(), "password")

	info, err := b.LoadCertificate(context.Background(), bytes.NewReader(pfx), testPassword)
	require.NoError(t, err)
	assert.Equal(t, "12345678000190", info.TaxID)
	assert.Same(t, info, b.Certificate())
}

func TestBuilder_AddInvoice(t *testing.T) {
	b := newBuilder(t)

	rec, err := b.AddInvoice(openFixture(t, "nfe_sp.xml"))
	require.NoError(t, err)
	assert.Equal(t, "1234", rec.Number)
	assert.Equal(t, "1", b.Form().Totalizers.InvoiceCount)
	assert.Equal(t, "1500.50", b.Form().Totalizers.CargoValue)

	_, err = b.AddInvoice(openFixture(t, "nfe_sp.xml"))
	assert.ErrorIs(t, err, mdfelib.ErrDuplicateKey)

	_, err = b.AddInvoice(openFixture(t, "not_invoice.xml"))
	assert.ErrorIs(t, err, mdfelib.ErrNotInvoice)

	_, err = b.AddInvoice(openFixture(t, "malformed.xml"))
	var parseErr *mdfelib.ParseError
	assert.True(t, errors.As(err, &parseErr))

	assert.Len(t, b.Form().Documents.Invoices, 1)
	assert.Nil(t, rec.Signature)
}

func TestBuilder_AddInvoiceVerifiesSignatures(t *testing.T) {
	opts := mdfelib.DefaultBuilderOptions()
	opts.VerifySignatures = true
	opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	b, err := mdfelib.NewBuilder(opts)
	require.NoError(t, err)

	rec, err := b.AddInvoice(openFixture(t, "nfe_sp.xml"))
	require.NoError(t, err)
	require.NotNil(t, rec.Signature)
	assert.False(t, rec.Signature.Present)
}

func TestBuilder_AddInvoiceFiles(t *testing.T) {
	b := newBuilder(t)

	batch := b.AddInvoiceFiles(context.Background(), []string{
		invoiceFixture("nfe_sp.xml"),
		invoiceFixture("nfe_rj.xml"),
		invoiceFixture("not_invoice.xml"),
	})
	assert.Len(t, batch.Records, 2)
	require.Len(t, batch.Skipped, 1)
	assert.ErrorIs(t, batch.Skipped[0].Err, mdfelib.ErrNotInvoice)
	assert.Equal(t, "1820.50", b.Form().Totalizers.CargoValue)
	assert.Equal(t, "1292.750", b.Form().Totalizers.CargoWeight)
}

func TestBuilder_ExtractInvoices(t *testing.T) {
	b := newBuilder(t)

	result := b.ExtractInvoices(context.Background(), []io.Reader{
		openFixture(t, "nfe_sp.xml"),
		openFixture(t, "nfe_rj.xml"),
	})
	assert.NotEmpty(t, result.ID)
	assert.Empty(t, result.Skipped)
	require.Len(t, result.Records, 2)
	assert.Equal(t, "São Paulo", result.Records[0].Destination.Municipality)
	assert.Equal(t, "Rio de Janeiro", result.Records[1].Destination.Municipality)
	assert.Empty(t, b.Form().Documents.Invoices)
}

func TestBuilder_ExtractInvoices_IsolatesBadInput(t *testing.T) {
	tests := []struct {
		name    string
		bad     io.Reader
		wantErr error
	}{
		{"not an invoice", strings.NewReader("<root/>"), mdfelib.ErrNotInvoice},
		{"malformed xml", strings.NewReader(`<NFe><infNFe Id="NFe1></NFe>`), nil},
		{"read failure", iotest.ErrReader(errors.New("disk gone")), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newBuilder(t)

			result := b.ExtractInvoices(context.Background(), []io.Reader{
				openFixture(t, "nfe_sp.xml"),
				tt.bad,
				openFixture(t, "nfe_rj.xml"),
			})

			require.Len(t, result.Records, 2)
			assert.Equal(t, "São Paulo", result.Records[0].Destination.Municipality)
			assert.Equal(t, "Rio de Janeiro", result.Records[1].Destination.Municipality)

			require.Len(t, result.Skipped, 1)
			assert.Equal(t, "input 1", result.Skipped[0].Path)
			assert.Error(t, result.Skipped[0].Err)
			assert.NotEmpty(t, result.Skipped[0].Reason)
			if tt.wantErr != nil {
				assert.ErrorIs(t, result.Skipped[0].Err, tt.wantErr)
			}
		})
	}
}

func TestBuilder_ExtractInvoices_DuplicateKey(t *testing.T) {
	b := newBuilder(t)

	result := b.ExtractInvoices(context.Background(), []io.Reader{
		openFixture(t, "nfe_sp.xml"),
		openFixture(t, "nfe_sp.xml"),
	})
	require.Len(t, result.Records, 1)
	require.Len(t, result.Skipped, 1)
	assert.Equal(t, "input 1", result.Skipped[0].Path)
	assert.ErrorIs(t, result.Skipped[0].Err, mdfelib.ErrDuplicateKey)
}

func TestBuilder_ExtractInvoices_CancelledContext(t *testing.T) {
	b := newBuilder(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := b.ExtractInvoices(ctx, []io.Reader{openFixture(t, "nfe_sp.xml")})
	assert.Empty(t, result.Records)
	require.Len(t, result.Skipped, 1)
	assert.ErrorIs(t, result.Skipped[0].Err, context.Canceled)
}

func TestBuilder_Build(t *testing.T) {
	b := newBuilder(t)

	_, err := b.Build(context.Background())
	require.ErrorIs(t, err, mdfelib.ErrAssemblyPrecondition)
	var pre *mdfelib.PreconditionError
	require.True(t, errors.As(err, &pre))
	assert.Equal(t, mdfelib.TabDocuments, pre.Violations[0].Tab)

	_, err = b.LoadCertificate(context.Background(), bytes.NewReader(selfSignedPFX(t)), testPassword)
	require.NoError(t, err)
	b.AddInvoiceFiles(context.Background(), []string{invoiceFixture("nfe_sp.xml"), invoiceFixture("nfe_rj.xml")})
	fillForm(b.Form())
	require.Empty(t, b.Validate())

	doc, err := b.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "12345678000190", doc.Issuer.CNPJ)
	assert.Equal(t, "2", doc.Identification.Environment)
	assert.Equal(t, "1", doc.Identification.Series)
	assert.Equal(t, "2", doc.Totals.InvoiceCount)
	assert.Len(t, doc.Index.Unloading, 2)
	require.NotNil(t, doc.Modal.Road)
	assert.Equal(t, "ABC1D23", doc.Modal.Road.Vehicle.Plate)
}

func TestBuilder_SetForm(t *testing.T) {
	b := newBuilder(t)
	b.SetForm(&mdfelib.FormState{})
	assert.NotNil(t, b.Form())

	b.SetForm(nil)
	require.NotNil(t, b.Form())
	assert.Empty(t, b.Form().Documents.Invoices)
}

func TestReExportedConstants(t *testing.T) {
	assert.Equal(t, "road", mdfelib.ModalRoad)
	assert.Equal(t, "rail", mdfelib.ModalRail)
	assert.Equal(t, mdfelib.Tab("documents"), mdfelib.TabDocuments)
	assert.Equal(t, mdfelib.Tab("totalizers"), mdfelib.TabTotalizers)
}
