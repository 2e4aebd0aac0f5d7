package model

import (
	"strconv"
	"strings"
)

// Transport modals
const (
	ModalRoad  = "road"
	ModalAir   = "air"
	ModalWater = "water"
	ModalRail  = "rail"
)

// defaultUnitCode is the cUnid for kilograms
const defaultUnitCode = "01"

// FormState is the multi-tab business form. Every field defaults to its zero
// value, so an unset field and an explicitly empty one are the same thing.
type FormState struct {
	Documents  DocumentsTab  `json:"documents"`
	Transport  TransportTab  `json:"transport"`
	Drivers    DriversTab    `json:"drivers"`
	Route      RouteTab      `json:"route"`
	Freight    FreightTab    `json:"freight"`
	Insurance  InsuranceTab  `json:"insurance"`
	Totalizers TotalizersTab `json:"totalizers"`
}

// ModalName returns the selected modal lowercased and trimmed
func (f *FormState) ModalName() string {
	return strings.ToLower(strings.TrimSpace(f.Transport.Modal))
}

// IsRoad reports whether the selected modal is road transport
func (f *FormState) IsRoad() bool {
	return f.ModalName() == ModalRoad
}

// ApplyInvoices replaces the attached invoices and recomputes the totalizers
// from them. A unit already chosen on the form is kept; otherwise KG is used.
func (f *FormState) ApplyInvoices(invoices []InvoiceRecord) {
	f.Documents.Invoices = invoices

	count, value, weight := SumInvoices(invoices)
	f.Totalizers.InvoiceCount = strconv.Itoa(count)
	f.Totalizers.CargoValue = value.StringFixed(2)
	f.Totalizers.CargoWeight = weight.StringFixed(3)
	if f.Totalizers.UnitCode == "" {
		f.Totalizers.UnitCode = defaultUnitCode
	}
}

// DocumentsTab holds the attached invoices and document-level metadata
type DocumentsTab struct {
	Invoices              []InvoiceRecord        `json:"invoices"`
	Series                string                 `json:"series"`
	Number                string                 `json:"number"`
	AuthorizedDownloaders []AuthorizedDownloader `json:"authorized_downloaders"`
	Notes                 string                 `json:"notes"`
	FiscalNotes           string                 `json:"fiscal_notes"`
}

// AuthorizedDownloader is a party allowed to download the issued document
type AuthorizedDownloader struct {
	Name     string `json:"name"`
	Document string `json:"document"`
}

// TransportTab holds the modal selection and vehicle data
type TransportTab struct {
	Modal            string         `json:"modal"`
	Vehicle          Vehicle        `json:"vehicle"`
	OwnerIsNotIssuer bool           `json:"owner_is_not_issuer"`
	Owner            VehicleOwner   `json:"owner"`
	RNTRC            string         `json:"rntrc"`
	Seals            []string       `json:"seals"`
	Air              AirTransport   `json:"air"`
	Water            WaterTransport `json:"water"`
	Rail             RailTransport  `json:"rail"`
}

// Vehicle is the traction vehicle of a road manifest
type Vehicle struct {
	InternalCode  string `json:"internal_code"`
	Plate         string `json:"plate"`
	Renavam       string `json:"renavam"`
	TareKG        string `json:"tare_kg"`
	CapacityKG    string `json:"capacity_kg"`
	CapacityM3    string `json:"capacity_m3"`
	BodyType      string `json:"body_type"`
	CargoBodyType string `json:"cargo_body_type"`
	State         string `json:"state"`
}

// Selected reports whether a vehicle was picked on the form
func (v Vehicle) Selected() bool {
	return strings.TrimSpace(v.InternalCode) != "" || strings.TrimSpace(v.Plate) != ""
}

// VehicleOwner identifies a vehicle owner other than the issuer
type VehicleOwner struct {
	Document          string `json:"document"`
	Name              string `json:"name"`
	RNTRC             string `json:"rntrc"`
	StateRegistration string `json:"state_registration"`
	State             string `json:"state"`
	Type              string `json:"type"`
}

// AirTransport holds the air modal fields
type AirTransport struct {
	Nationality          string `json:"nationality"`
	Registration         string `json:"registration"`
	FlightNumber         string `json:"flight_number"`
	OriginAerodrome      string `json:"origin_aerodrome"`
	DestinationAerodrome string `json:"destination_aerodrome"`
	FlightDate           string `json:"flight_date"`
}

// WaterTransport holds the waterway modal fields
type WaterTransport struct {
	IRIN          string `json:"irin"`
	VesselType    string `json:"vessel_type"`
	VesselCode    string `json:"vessel_code"`
	VesselName    string `json:"vessel_name"`
	VoyageNumber  string `json:"voyage_number"`
	LoadingPort   string `json:"loading_port"`
	UnloadingPort string `json:"unloading_port"`
}

// RailTransport holds the rail modal fields
type RailTransport struct {
	Prefix      string `json:"prefix"`
	DepartureAt string `json:"departure_at"`
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
	WagonCount  string `json:"wagon_count"`
}

// DriversTab lists the selected drivers
type DriversTab struct {
	Drivers []Driver `json:"drivers"`
}

// Driver is a vehicle driver
type Driver struct {
	Name string `json:"name"`
	CPF  string `json:"cpf"`
}

// cpfDigits is the length of a CPF without punctuation
const cpfDigits = 11

// Complete reports whether the driver has a name and an 11-digit CPF.
// Incomplete drivers are left out of the document.
func (d Driver) Complete() bool {
	return strings.TrimSpace(d.Name) != "" && len(OnlyDigits(d.CPF)) == cpfDigits
}

// RouteTab holds the loading and unloading locations
type RouteTab struct {
	LoadingState              string   `json:"loading_state"`
	LoadingMunicipality       string   `json:"loading_municipality"`
	LoadingMunicipalityCode   string   `json:"loading_municipality_code"`
	UnloadingState            string   `json:"unloading_state"`
	UnloadingMunicipality     string   `json:"unloading_municipality"`
	UnloadingMunicipalityCode string   `json:"unloading_municipality_code"`
	TransitStates             []string `json:"transit_states"`
}

// FreightTab holds the road freight contract and payment data
type FreightTab struct {
	Contractors       []Party              `json:"contractors"`
	CIOT              []CIOTEntry          `json:"ciot"`
	TollVouchers      []TollVoucher        `json:"toll_vouchers"`
	PayeeName         string               `json:"payee_name"`
	PayeeDocument     string               `json:"payee_document"`
	Components        []FreightComponent   `json:"components"`
	ContractValue     string               `json:"contract_value"`
	PaymentMethod     string               `json:"payment_method"`
	AdvanceValue      string               `json:"advance_value"`
	Installments      []FreightInstallment `json:"installments"`
	BankCode          string               `json:"bank_code"`
	BankAgency        string               `json:"bank_agency"`
	PixKey            string               `json:"pix_key"`
	ClearinghouseCNPJ string               `json:"clearinghouse_cnpj"`
}

// HasPaymentRoute reports whether any of bank, PIX or clearinghouse routing is filled
func (f FreightTab) HasPaymentRoute() bool {
	bank := strings.TrimSpace(f.BankCode) != "" && strings.TrimSpace(f.BankAgency) != ""
	return bank || strings.TrimSpace(f.PixKey) != "" || OnlyDigits(f.ClearinghouseCNPJ) != ""
}

// OnlyDigits drops every non-digit character from s
func OnlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Party is a named party identified by CPF or CNPJ
type Party struct {
	Name     string `json:"name"`
	Document string `json:"document"`
}

// CIOTEntry is a freight-operation control number with its responsible party
type CIOTEntry struct {
	Code     string `json:"code"`
	Document string `json:"document"`
}

// TollVoucher is a toll-voucher purchase entry
type TollVoucher struct {
	SupplierCNPJ   string `json:"supplier_cnpj"`
	PayerDocument  string `json:"payer_document"`
	PurchaseNumber string `json:"purchase_number"`
	Value          string `json:"value"`
}

// FreightComponent is one line of the freight value breakdown
type FreightComponent struct {
	Type        string `json:"type"`
	Value       string `json:"value"`
	Description string `json:"description"`
}

// FreightInstallment is a scheduled freight payment
type FreightInstallment struct {
	Number  string `json:"number"`
	DueDate string `json:"due_date"`
	Value   string `json:"value"`
}

// InsuranceTab holds the cargo insurance data
type InsuranceTab struct {
	Responsible         string `json:"responsible"`
	ResponsibleDocument string `json:"responsible_document"`
	InsurerName         string `json:"insurer_name"`
	InsurerDocument     string `json:"insurer_document"`
	PolicyNumber        string `json:"policy_number"`
	EndorsementNumber   string `json:"endorsement_number"`
}

// TotalizersTab holds the user-entered totals
type TotalizersTab struct {
	InvoiceCount string `json:"invoice_count"`
	CargoValue   string `json:"cargo_value"`
	CargoWeight  string `json:"cargo_weight"`
	UnitCode     string `json:"unit_code"`
}
