// Package assembler builds the MDF-e document structure from a validated
// form, the imported invoices and the issuer data.
package assembler

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/rezonia/mdfe-builder/internal/codes"
	"github.com/rezonia/mdfe-builder/internal/decimal"
	"github.com/rezonia/mdfe-builder/internal/model"
	"github.com/rezonia/mdfe-builder/internal/validation"
)

// Fixed identification values
const (
	DocumentModel   = "58"
	CheckDigit      = "0"
	EmissionProcess = "0"
	DateTimeLayout  = "2006-01-02T15:04:05-07:00"
)

// Environments (tpAmb)
const (
	EnvironmentProduction   = "1"
	EnvironmentHomologation = "2"
)

// AssemblyConfig carries the tenant settings the assembler needs. It is
// passed explicitly; the assembler reads no global state.
type AssemblyConfig struct {
	Environment   string `yaml:"environment"`
	DefaultSeries string `yaml:"default_series"`
	IssuerType    string `yaml:"issuer_type"`
	EmissionType  string `yaml:"emission_type"`
	AppVersion    string `yaml:"app_version"`
	ModalVersion  string `yaml:"modal_version"`
	TimeZone      string `yaml:"time_zone"`

	// Issuer is the tenant issuer used when no registry record is available
	Issuer *model.LegalEntity `yaml:"issuer,omitempty"`
}

// DefaultAssemblyConfig returns homologation settings
func DefaultAssemblyConfig() AssemblyConfig {
	return AssemblyConfig{
		Environment:   EnvironmentHomologation,
		DefaultSeries: "1",
		IssuerType:    "2",
		EmissionType:  "1",
		AppVersion:    "mdfe-builder/1.0",
		ModalVersion:  "3.00",
		TimeZone:      "America/Sao_Paulo",
	}
}

// Assembler builds documents. It is safe for concurrent use.
type Assembler struct {
	cfg         AssemblyConfig
	loc         *time.Location
	now         func() time.Time
	controlCode func() string
}

// Option configures an Assembler
type Option func(*Assembler)

// WithClock sets the clock used for dhEmi
func WithClock(now func() time.Time) Option {
	return func(a *Assembler) {
		a.now = now
	}
}

// WithControlCode replaces the random cMDF generator
func WithControlCode(gen func() string) Option {
	return func(a *Assembler) {
		a.controlCode = gen
	}
}

// New creates an assembler. Empty config fields take their defaults.
func New(cfg AssemblyConfig, opts ...Option) *Assembler {
	def := DefaultAssemblyConfig()
	if cfg.Environment == "" {
		cfg.Environment = def.Environment
	}
	if cfg.DefaultSeries == "" {
		cfg.DefaultSeries = def.DefaultSeries
	}
	if cfg.IssuerType == "" {
		cfg.IssuerType = def.IssuerType
	}
	if cfg.EmissionType == "" {
		cfg.EmissionType = def.EmissionType
	}
	if cfg.AppVersion == "" {
		cfg.AppVersion = def.AppVersion
	}
	if cfg.ModalVersion == "" {
		cfg.ModalVersion = def.ModalVersion
	}

	loc, err := time.LoadLocation(cfg.TimeZone)
	if cfg.TimeZone == "" || err != nil {
		// Brasília time has had no DST since 2019
		loc = time.FixedZone("BRT", -3*60*60)
	}

	a := &Assembler{
		cfg:         cfg,
		loc:         loc,
		now:         time.Now,
		controlCode: RandomControlCode,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Config returns the effective configuration
func (a *Assembler) Config() AssemblyConfig {
	return a.cfg
}

// RandomControlCode returns an 8-digit pseudo-random numeric string
func RandomControlCode() string {
	return fmt.Sprintf("%08d", rand.IntN(100_000_000))
}

// Assemble builds the document. The form must have passed validation first;
// the result for an invalid form is unspecified. invoices defaults to the
// form's attached invoices when empty. cert and entity may be nil.
func (a *Assembler) Assemble(form *model.FormState, invoices []model.InvoiceRecord, cert *model.CertificateInfo, entity *model.LegalEntity) *model.Document {
	if len(invoices) == 0 {
		invoices = form.Documents.Invoices
	}

	issuer := a.issuer(form, cert, entity)
	seals := collectSeals(form.Transport.Seals, invoices)

	doc := &model.Document{
		Identification: a.identification(form, issuer),
		Issuer:         issuer,
		Modal:          model.ModalBlock{Version: a.cfg.ModalVersion},
		Index:          buildIndex(form, invoices),
		Totals:         buildTotals(form, invoices),
		Downloaders:    buildDownloaders(form.Documents.AuthorizedDownloaders),
		Additional:     buildAdditional(form.Documents),
	}

	switch form.ModalName() {
	case model.ModalRoad:
		doc.Modal.Road = buildRoad(form, seals)
		doc.Insurance = buildInsurance(form.Insurance, issuer)
	case model.ModalAir:
		doc.Modal.Air = buildAir(form.Transport.Air)
		doc.Seals = sealRefs(seals)
	case model.ModalWater:
		doc.Modal.Water = buildWater(form.Transport.Water)
		doc.Seals = sealRefs(seals)
	case model.ModalRail:
		doc.Modal.Rail = buildRail(form.Transport.Rail)
		doc.Seals = sealRefs(seals)
	}

	return doc
}

func (a *Assembler) identification(form *model.FormState, issuer model.Issuer) model.Identification {
	route := form.Route

	state := issuer.Address.State
	if state == "" {
		state = route.LoadingState
	}
	stateCode, _ := codes.StateCode(state)
	modalCode, _ := codes.ModalCode(form.ModalName())

	series := strings.TrimSpace(form.Documents.Series)
	if series == "" {
		series = a.cfg.DefaultSeries
	}
	number, err := decimal.IntegerString(form.Documents.Number)
	if err != nil {
		number = "1"
	}

	id := model.Identification{
		StateCode:       stateCode,
		Environment:     a.cfg.Environment,
		IssuerType:      a.cfg.IssuerType,
		Model:           DocumentModel,
		Series:          series,
		Number:          number,
		ControlCode:     a.controlCode(),
		CheckDigit:      CheckDigit,
		Modal:           modalCode,
		IssuedAt:        a.now().In(a.loc).Format(DateTimeLayout),
		EmissionType:    a.cfg.EmissionType,
		EmissionProcess: EmissionProcess,
		AppVersion:      a.cfg.AppVersion,
		StartState:      strings.ToUpper(strings.TrimSpace(route.LoadingState)),
		EndState:        strings.ToUpper(strings.TrimSpace(route.UnloadingState)),
		Loading:         []model.LoadingMunicipality{{
			Code: strings.TrimSpace(route.LoadingMunicipalityCode),
			Name: strings.TrimSpace(route.LoadingMunicipality),
		}},
	}

	for _, uf := range route.TransitStates {
		uf = strings.ToUpper(strings.TrimSpace(uf))
		if uf != "" {
			id.Route = append(id.Route, model.RouteState{State: uf})
		}
	}

	return id
}

// issuer resolves the emit block from the first complete source: registry
// record, tenant issuer, form-entered owner (when the owner is the issuer),
// then the certificate. Sources are never merged.
func (a *Assembler) issuer(form *model.FormState, cert *model.CertificateInfo, entity *model.LegalEntity) model.Issuer {
	if entity.Complete() {
		return issuerFromEntity(entity)
	}
	if a.cfg.Issuer.Complete() {
		return issuerFromEntity(a.cfg.Issuer)
	}

	owner := form.Transport.Owner
	if !form.Transport.OwnerIsNotIssuer && strings.TrimSpace(owner.Document) != "" && strings.TrimSpace(owner.Name) != "" {
		cnpj, cpf := splitDocument(owner.Document)
		return model.Issuer{
			CNPJ:              cnpj,
			CPF:               cpf,
			StateRegistration: stateRegistration(owner.StateRegistration),
			LegalName:         strings.TrimSpace(owner.Name),
			Address:           model.IssuerAddress{State: strings.ToUpper(strings.TrimSpace(owner.State))},
		}
	}

	if cert != nil && cert.TaxID != "" {
		cnpj, cpf := splitDocument(cert.TaxID)
		return model.Issuer{CNPJ: cnpj, CPF: cpf, LegalName: cert.LegalName}
	}

	return model.Issuer{}
}

func issuerFromEntity(e *model.LegalEntity) model.Issuer {
	cnpj, cpf := splitDocument(e.CNPJ)
	addr := e.Address
	return model.Issuer{
		CNPJ:              cnpj,
		CPF:               cpf,
		StateRegistration: stateRegistration(e.StateRegistration),
		LegalName:         e.LegalName,
		TradeName:         e.TradeName,
		Address:           model.IssuerAddress{
			Street:           addr.Street,
			Number:           addr.Number,
			Complement:       addr.Complement,
			District:         addr.District,
			MunicipalityCode: addr.MunicipalityCode,
			Municipality:     addr.Municipality,
			PostalCode:       validation.OnlyDigits(addr.PostalCode),
			State:            strings.ToUpper(addr.State),
			Phone:            validation.OnlyDigits(e.Phone),
			Email:            e.Email,
		},
	}
}

func buildTotals(form *model.FormState, invoices []model.InvoiceRecord) model.Totals {
	count, value, weight := model.SumInvoices(invoices)
	tot := form.Totalizers

	unit, ok := codes.LookupUnit(tot.UnitCode)
	if !ok {
		unit = codes.UnitKG
	}

	qty, err := decimal.IntegerString(tot.InvoiceCount)
	if err != nil {
		qty = fmt.Sprintf("%d", count)
	}
	cargoValue, err := decimal.MoneyString(tot.CargoValue)
	if err != nil {
		cargoValue = decimal.FormatMoney(value)
	}
	cargoQty := decimal.FormatForUnit(weight, unit)
	if w, err := decimal.ParseQuantity(tot.CargoWeight); err == nil {
		cargoQty = decimal.FormatForUnit(w, unit)
	}

	return model.Totals{
		InvoiceCount:  qty,
		CargoValue:    cargoValue,
		UnitCode:      unit.Code,
		CargoQuantity: cargoQty,
	}
}

// buildDownloaders keeps only entries that carry a tax ID
func buildDownloaders(list []model.AuthorizedDownloader) []model.DownloaderRef {
	var out []model.DownloaderRef
	for _, d := range list {
		cnpj, cpf := splitDocument(d.Document)
		if cnpj == "" && cpf == "" {
			continue
		}
		out = append(out, model.DownloaderRef{CNPJ: cnpj, CPF: cpf})
	}
	return out
}

func buildAdditional(docs model.DocumentsTab) *model.AdditionalInfo {
	notes := strings.TrimSpace(docs.Notes)
	fiscal := strings.TrimSpace(docs.FiscalNotes)
	if notes == "" && fiscal == "" {
		return nil
	}
	return &model.AdditionalInfo{FiscalNotes: fiscal, Notes: notes}
}

// collectSeals merges form seals with invoice seals, dropping blanks and repeats
func collectSeals(formSeals []string, invoices []model.InvoiceRecord) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			return
		}
		seen[s] = true
		out = append(out, s)
	}
	for _, s := range formSeals {
		add(s)
	}
	for _, inv := range invoices {
		for _, s := range inv.SealNumbers {
			add(s)
		}
	}
	return out
}

func sealRefs(seals []string) []model.Seal {
	if len(seals) == 0 {
		return nil
	}
	out := make([]model.Seal, 0, len(seals))
	for _, s := range seals {
		out = append(out, model.Seal{Number: s})
	}
	return out
}

// splitDocument routes a tax ID to the CNPJ or CPF slot by digit count.
// Anything that is neither 11 nor 14 digits yields two empty strings.
func splitDocument(doc string) (cnpj, cpf string) {
	d := validation.OnlyDigits(doc)
	switch len(d) {
	case 14:
		return d, ""
	case 11:
		return "", d
	default:
		return "", ""
	}
}

// stateRegistration keeps the IE digits, or the literal ISENTO for exempt entities
func stateRegistration(ie string) string {
	if strings.EqualFold(strings.TrimSpace(ie), "ISENTO") {
		return "ISENTO"
	}
	return validation.OnlyDigits(ie)
}
