// Package nfe projects NF-e invoice XML into model.InvoiceRecord values.
package nfe

import (
	"bytes"
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"

	"github.com/rezonia/mdfe-builder/internal/certificate"
	"github.com/rezonia/mdfe-builder/internal/model"
)

// AccessKeyPrefix is the textual prefix of the infNFe Id attribute
const AccessKeyPrefix = "NFe"

const dateLayout = "2006-01-02"

var (
	accessKeyPattern = regexp.MustCompile(`^[0-9]{44}$`)

	errNegative = errors.New("value is negative")
)

// Extractor reads NF-e documents. It holds no per-call state.
type Extractor struct {
	logger *slog.Logger
	now    func() time.Time

	verifySignatures bool
	roots            *certificate.TrustStore
}

// Option configures an Extractor
type Option func(*Extractor)

// WithLogger sets the logger used for skipped batch files
func WithLogger(l *slog.Logger) Option {
	return func(e *Extractor) {
		e.logger = l
	}
}

// WithClock sets the clock used when an invoice carries no issue date
func WithClock(now func() time.Time) Option {
	return func(e *Extractor) {
		e.now = now
	}
}

// NewExtractor creates a new extractor
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// IsInvoice reports whether content looks like an NF-e document
func IsInvoice(content []byte) bool {
	return bytes.Contains(content, []byte("<infNFe")) || bytes.Contains(content, []byte(":infNFe"))
}

// ExtractOne parses one NF-e document. It returns (nil, nil) when the XML is
// well formed but holds no infNFe element.
func (e *Extractor) ExtractOne(content []byte) (*model.InvoiceRecord, error) {
	return e.extract("nfe", content)
}

func (e *Extractor) extract(source string, content []byte) (*model.InvoiceRecord, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(content); err != nil {
		return nil, model.NewParseError(source, "xml", "failed to parse XML", err)
	}
	if doc.Root() == nil {
		return nil, model.NewParseError(source, "xml", "no root element", nil)
	}

	inf := doc.FindElement("//infNFe")
	if inf == nil {
		return nil, nil
	}

	key := strings.TrimPrefix(strings.TrimSpace(inf.SelectAttrValue("Id", "")), AccessKeyPrefix)
	if key == "" {
		return nil, model.NewParseError(source, "infNFe@Id", "missing access key", nil)
	}
	if !accessKeyPattern.MatchString(key) {
		return nil, model.NewParseError(source, "infNFe@Id", "access key must have 44 digits", nil)
	}

	number := text(inf, "ide/nNF")
	if number == "" {
		return nil, model.NewParseError(source, "ide/nNF", "missing invoice number", nil)
	}

	total, err := decimalAt(inf, "total/ICMSTot/vNF")
	if err == nil && total.IsNegative() {
		err = errNegative
	}
	if err != nil {
		return nil, model.NewParseError(source, "total/ICMSTot/vNF", "invalid total value", err)
	}

	weight, err := grossWeight(inf)
	if err == nil && weight.IsNegative() {
		err = errNegative
	}
	if err != nil {
		return nil, model.NewParseError(source, "pesoB", "invalid gross weight", err)
	}

	record := &model.InvoiceRecord{
		DocumentType:   text(inf, "ide/mod"),
		Number:         number,
		Series:         text(inf, "ide/serie"),
		AccessKey:      key,
		IssuerName:     text(inf, "emit/xNome"),
		IssuerTaxID:    firstText(inf, "emit/CNPJ", "emit/CPF"),
		RecipientName:  text(inf, "dest/xNome"),
		RecipientTaxID: firstText(inf, "dest/CNPJ", "dest/CPF", "dest/idEstrangeiro"),
		TotalValue:     total,
		GrossWeight:    weight,
		IssueDate:      e.issueDate(inf),
		SealNumbers:    seals(inf),
		Destination:    destination(inf),
	}
	if e.verifySignatures {
		record.Signature = e.checkSignature(inf)
	}

	return record, nil
}

// issueDate truncates dhEmi (or the older dEmi) to its date, defaulting to today
func (e *Extractor) issueDate(inf *etree.Element) time.Time {
	raw := firstText(inf, "ide/dhEmi", "ide/dEmi")
	if len(raw) >= len(dateLayout) {
		if d, err := time.Parse(dateLayout, raw[:len(dateLayout)]); err == nil {
			return d
		}
	}
	now := e.now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// grossWeight sums pesoB over the transport volumes, falling back to the
// first pesoB anywhere in the invoice
func grossWeight(inf *etree.Element) (decimal.Decimal, error) {
	vols := inf.FindElements("transp/vol/pesoB")
	if len(vols) > 0 {
		sum := decimal.Zero
		for _, v := range vols {
			d, err := parseDecimal(v.Text())
			if err != nil {
				return decimal.Zero, err
			}
			if d.IsNegative() {
				return decimal.Zero, errNegative
			}
			sum = sum.Add(d)
		}
		return sum, nil
	}
	return decimalAt(inf, ".//pesoB")
}

func seals(inf *etree.Element) []string {
	var out []string
	for _, el := range inf.FindElements("transp/vol/lacres/nLacre") {
		if s := strings.TrimSpace(el.Text()); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func destination(inf *etree.Element) *model.Destination {
	dest := &model.Destination{
		State:            strings.ToUpper(text(inf, "dest/enderDest/UF")),
		Municipality:     text(inf, "dest/enderDest/xMun"),
		MunicipalityCode: text(inf, "dest/enderDest/cMun"),
	}
	if dest.State == "" && dest.Municipality == "" {
		return nil
	}
	return dest
}

func text(el *etree.Element, path string) string {
	if found := el.FindElement(path); found != nil {
		return strings.TrimSpace(found.Text())
	}
	return ""
}

func firstText(el *etree.Element, paths ...string) string {
	for _, p := range paths {
		if s := text(el, p); s != "" {
			return s
		}
	}
	return ""
}

func decimalAt(el *etree.Element, path string) (decimal.Decimal, error) {
	return parseDecimal(text(el, path))
}

// parseDecimal reads a schema decimal; the NF-e layout always uses a dot
func parseDecimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}
