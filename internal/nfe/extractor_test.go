package nfe_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/mdfe-builder/internal/model"
	"github.com/rezonia/mdfe-builder/internal/nfe"
)

func fixture(name string) string {
	return filepath.Join("testdata", name)
}

func readFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(fixture(name))
	require.NoError(t, err)
	return data
}

func TestExtractOne_ProcessedInvoice(t *testing.T) {
	record, err := nfe.NewExtractor().ExtractOne(readFixture(t, "nfe_sp.xml"))
	require.NoError(t, err)
	require.NotNil(t, record)

	assert.Equal(t, model.DocumentTypeNFe, record.DocumentType)
	assert.Equal(t, "1234", record.Number)
	assert.Equal(t, "1", record.Series)
	assert.Equal(t, "35240112345678000190550010000012341000012345", record.AccessKey)
	assert.Len(t, record.AccessKey, 44)
	assert.Equal(t, "EMPRESA LTDA", record.IssuerName)
	assert.Equal(t, "12345678000190", record.IssuerTaxID)
	assert.Equal(t, "CLIENTE SAO PAULO SA", record.RecipientName)
	assert.Equal(t, "98765432000110", record.RecipientTaxID)
	assert.True(t, record.TotalValue.Equal(decimal.RequireFromString("1500.50")))
	assert.True(t, record.GrossWeight.Equal(decimal.RequireFromString("1250.25")), "weight %s", record.GrossWeight)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), record.IssueDate)
	assert.Equal(t, []string{"L-001", "L-002"}, record.SealNumbers)

	require.NotNil(t, record.Destination)
	assert.Equal(t, "SP", record.Destination.State)
	assert.Equal(t, "São Paulo", record.Destination.Municipality)
	assert.Equal(t, "3550308", record.Destination.MunicipalityCode)
	assert.True(t, record.HasDestination())
}

func TestExtractOne_Fallbacks(t *testing.T) {
	record, err := nfe.NewExtractor().ExtractOne(readFixture(t, "nfe_rj.xml"))
	require.NoError(t, err)
	require.NotNil(t, record)

	assert.Equal(t, "567", record.Number)
	assert.Equal(t, "12345678909", record.RecipientTaxID)
	assert.True(t, record.GrossWeight.Equal(decimal.RequireFromString("42.5")), "root-level pesoB")
	assert.Nil(t, record.SealNumbers, "no seals is absent, not empty")
	require.NotNil(t, record.Destination)
	assert.Equal(t, "RJ", record.Destination.State)
}

func TestExtractOne_MissingIssueDateUsesToday(t *testing.T) {
	clock := func() time.Time { return time.Date(2025, 3, 9, 18, 45, 0, 0, time.UTC) }
	content := []byte(`<NFe><infNFe Id="NFe35240112345678000190550010000012341000012345">
		<ide><mod>55</mod><nNF>1</nNF></ide>
		<total><ICMSTot><vNF>10.00</vNF></ICMSTot></total>
	</infNFe></NFe>`)

	record, err := nfe.NewExtractor(nfe.WithClock(clock)).ExtractOne(content)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC), record.IssueDate)
	assert.True(t, record.GrossWeight.IsZero())
	assert.Nil(t, record.Destination)
}

func TestExtractOne_NotAnInvoice(t *testing.T) {
	record, err := nfe.NewExtractor().ExtractOne(readFixture(t, "not_invoice.xml"))
	require.NoError(t, err)
	assert.Nil(t, record)
}

func TestExtractOne_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		field   string
	}{
		{
			name:    "plain text",
			content: "NF 1234 | R$ 1.500,50",
			field:   "xml",
		},
		{
			name:    "broken markup",
			content: `<NFe><infNFe Id="NFe1></NFe>`,
			field:   "xml",
		},
		{
			name:    "missing access key",
			content: `<NFe><infNFe><ide><nNF>1</nNF></ide></infNFe></NFe>`,
			field:   "infNFe@Id",
		},
		{
			name:    "short access key",
			content: `<NFe><infNFe Id="NFe123"><ide><nNF>1</nNF></ide></infNFe></NFe>`,
			field:   "infNFe@Id",
		},
		{
			name:    "access key with letters",
			content: `<NFe><infNFe Id="NFe3524011234567800019055001000001234100001234X"><ide><nNF>1</nNF></ide></infNFe></NFe>`,
			field:   "infNFe@Id",
		},
		{
			name:    "access key too long",
			content: `<NFe><infNFe Id="NFe352401123456780001905500100000123410000123456"><ide><nNF>1</nNF></ide></infNFe></NFe>`,
			field:   "infNFe@Id",
		},
		{
			name:    "missing number",
			content: `<NFe><infNFe Id="NFe35240112345678000190550010000012341000012345"><ide><mod>55</mod></ide></infNFe></NFe>`,
			field:   "ide/nNF",
		},
		{
			name:    "invalid total",
			content: `<NFe><infNFe Id="NFe35240112345678000190550010000012341000012345"><ide><nNF>1</nNF></ide><total><ICMSTot><vNF>abc</vNF></ICMSTot></total></infNFe></NFe>`,
			field:   "total/ICMSTot/vNF",
		},
		{
			name:    "negative total",
			content: `<NFe><infNFe Id="NFe35240112345678000190550010000012341000012345"><ide><nNF>1</nNF></ide><total><ICMSTot><vNF>-10.00</vNF></ICMSTot></total></infNFe></NFe>`,
			field:   "total/ICMSTot/vNF",
		},
		{
			name:    "negative volume weight",
			content: `<NFe><infNFe Id="NFe35240112345678000190550010000012341000012345"><ide><nNF>1</nNF></ide><transp><vol><pesoB>100.000</pesoB></vol><vol><pesoB>-5.000</pesoB></vol></transp></infNFe></NFe>`,
			field:   "pesoB",
		},
		{
			name:    "negative loose weight",
			content: `<NFe><infNFe Id="NFe35240112345678000190550010000012341000012345"><ide><nNF>1</nNF></ide><pesoB>-1</pesoB></infNFe></NFe>`,
			field:   "pesoB",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record, err := nfe.NewExtractor().ExtractOne([]byte(tt.content))
			require.Error(t, err)
			assert.Nil(t, record)

			var parseErr *model.ParseError
			require.True(t, errors.As(err, &parseErr))
			assert.Equal(t, tt.field, parseErr.Field)
		})
	}
}

func TestIsInvoice(t *testing.T) {
	assert.True(t, nfe.IsInvoice(readFixture(t, "nfe_sp.xml")))
	assert.True(t, nfe.IsInvoice([]byte(`<nfe:infNFe Id="x"/>`)))
	assert.False(t, nfe.IsInvoice(readFixture(t, "not_invoice.xml")))
}

func TestExtractBatch_SkipsMalformedFile(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))

	paths := []string{fixture("nfe_sp.xml"), fixture("malformed.xml"), fixture("nfe_rj.xml")}
	result := nfe.NewExtractor(nfe.WithLogger(logger)).ExtractBatch(context.Background(), paths)

	require.Len(t, result.Records, 2)
	assert.Equal(t, "1234", result.Records[0].Number)
	assert.Equal(t, "567", result.Records[1].Number)
	assert.Equal(t, fixture("nfe_rj.xml"), result.Records[1].SourceFile)

	require.Len(t, result.Skipped, 1)
	assert.Equal(t, fixture("malformed.xml"), result.Skipped[0].Path)
	assert.NotEmpty(t, result.Skipped[0].Reason)
	assert.NotEmpty(t, result.ID)

	assert.Equal(t, 1, bytes.Count(logs.Bytes(), []byte("skipping invoice file")))
	assert.Contains(t, logs.String(), "malformed.xml")
}

func TestExtractBatch_SkipsDuplicatesAndNonInvoices(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	paths := []string{
		fixture("nfe_sp.xml"),
		fixture("nfe_sp.xml"),
		fixture("not_invoice.xml"),
		fixture("missing.xml"),
	}

	result := nfe.NewExtractor(nfe.WithLogger(logger)).ExtractBatch(context.Background(), paths)

	require.Len(t, result.Records, 1)
	require.Len(t, result.Skipped, 3)
	assert.ErrorIs(t, result.Skipped[0].Err, nfe.ErrDuplicateKey)
	assert.ErrorIs(t, result.Skipped[1].Err, nfe.ErrNotInvoice)
	assert.Equal(t, fixture("missing.xml"), result.Skipped[2].Path)
}

func TestExtractBatch_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	result := nfe.NewExtractor(nfe.WithLogger(logger)).ExtractBatch(ctx, []string{fixture("nfe_sp.xml")})

	assert.Empty(t, result.Records)
	require.Len(t, result.Skipped, 1)
	assert.ErrorIs(t, result.Skipped[0].Err, context.Canceled)
}
