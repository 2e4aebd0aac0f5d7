package model

// Document is the assembled manifest, shaped after the MDF-e infMDFe schema.
// JSON key names are part of the wire contract. Numeric values are
// fixed-precision decimal strings and never use a comma separator.
type Document struct {
	Identification Identification  `json:"ide"`
	Issuer         Issuer          `json:"emit"`
	Modal          ModalBlock      `json:"infModal"`
	Index          DocumentIndex   `json:"infDoc"`
	Insurance      []Insurance     `json:"seg,omitempty"`
	Totals         Totals          `json:"tot"`
	Seals          []Seal          `json:"lacres,omitempty"`
	Downloaders    []DownloaderRef `json:"autXML,omitempty"`
	Additional     *AdditionalInfo `json:"infAdic,omitempty"`
}

// Identification is the ide block
type Identification struct {
	StateCode       string                `json:"cUF"`
	Environment     string                `json:"tpAmb"`
	IssuerType      string                `json:"tpEmit"`
	Model           string                `json:"mod"`
	Series          string                `json:"serie"`
	Number          string                `json:"nMDF"`
	ControlCode     string                `json:"cMDF"`
	CheckDigit      string                `json:"cDV"`
	Modal           string                `json:"modal"`
	IssuedAt        string                `json:"dhEmi"`
	EmissionType    string                `json:"tpEmis"`
	EmissionProcess string                `json:"procEmi"`
	AppVersion      string                `json:"verProc"`
	StartState      string                `json:"UFIni"`
	EndState        string                `json:"UFFim"`
	Loading         []LoadingMunicipality `json:"infMunCarrega"`
	Route           []RouteState          `json:"infPercurso,omitempty"`
}

// LoadingMunicipality is an infMunCarrega entry
type LoadingMunicipality struct {
	Code string `json:"cMunCarrega"`
	Name string `json:"xMunCarrega"`
}

// RouteState is an infPercurso entry
type RouteState struct {
	State string `json:"UFPer"`
}

// Issuer is the emit block
type Issuer struct {
	CNPJ              string        `json:"CNPJ,omitempty"`
	CPF               string        `json:"CPF,omitempty"`
	StateRegistration string        `json:"IE,omitempty"`
	LegalName         string        `json:"xNome"`
	TradeName         string        `json:"xFant,omitempty"`
	Address           IssuerAddress `json:"enderEmit"`
}

// IssuerAddress is the enderEmit block
type IssuerAddress struct {
	Street           string `json:"xLgr,omitempty"`
	Number           string `json:"nro,omitempty"`
	Complement       string `json:"xCpl,omitempty"`
	District         string `json:"xBairro,omitempty"`
	MunicipalityCode string `json:"cMun,omitempty"`
	Municipality     string `json:"xMun,omitempty"`
	PostalCode       string `json:"CEP,omitempty"`
	State            string `json:"UF,omitempty"`
	Phone            string `json:"fone,omitempty"`
	Email            string `json:"email,omitempty"`
}

// ModalBlock is the infModal block; exactly one modal is set
type ModalBlock struct {
	Version string      `json:"versaoModal"`
	Road    *RoadModal  `json:"rodo,omitempty"`
	Air     *AirModal   `json:"aereo,omitempty"`
	Water   *WaterModal `json:"aquav,omitempty"`
	Rail    *RailModal  `json:"ferrov,omitempty"`
}

// RoadModal is the rodo block
type RoadModal struct {
	ANTT    *ANTTInfo       `json:"infANTT,omitempty"`
	Vehicle TractionVehicle `json:"veicTracao"`
	Seals   []Seal          `json:"lacRodo,omitempty"`
}

// ANTTInfo is the infANTT block
type ANTTInfo struct {
	RNTRC       string           `json:"RNTRC,omitempty"`
	CIOT        []CIOT           `json:"infCIOT,omitempty"`
	TollVoucher *TollVoucherInfo `json:"valePed,omitempty"`
	Contractors []Contractor     `json:"infContratante,omitempty"`
	Payments    []FreightPayment `json:"infPag,omitempty"`
}

// Empty reports whether no infANTT content was produced
func (a *ANTTInfo) Empty() bool {
	return a.RNTRC == "" && len(a.CIOT) == 0 && a.TollVoucher == nil &&
		len(a.Contractors) == 0 && len(a.Payments) == 0
}

// CIOT is an infCIOT entry
type CIOT struct {
	Code string `json:"CIOT"`
	CNPJ string `json:"CNPJ,omitempty"`
	CPF  string `json:"CPF,omitempty"`
}

// TollVoucherInfo is the valePed block
type TollVoucherInfo struct {
	Devices []TollDevice `json:"disp"`
}

// TollDevice is a valePed/disp entry
type TollDevice struct {
	SupplierCNPJ   string `json:"CNPJForn"`
	PayerCNPJ      string `json:"CNPJPg,omitempty"`
	PayerCPF       string `json:"CPFPg,omitempty"`
	PurchaseNumber string `json:"nCompra"`
	Value          string `json:"vValePed"`
}

// Contractor is an infContratante entry
type Contractor struct {
	Name string `json:"xNome,omitempty"`
	CNPJ string `json:"CNPJ,omitempty"`
	CPF  string `json:"CPF,omitempty"`
}

// FreightPayment is an infPag entry
type FreightPayment struct {
	Name             string             `json:"xNome,omitempty"`
	CNPJ             string             `json:"CNPJ,omitempty"`
	CPF              string             `json:"CPF,omitempty"`
	Components       []PaymentComponent `json:"Comp"`
	ContractValue    string             `json:"vContrato"`
	PaymentIndicator string             `json:"indPag"`
	AdvanceValue     string             `json:"vAdiant,omitempty"`
	Installments     []Installment      `json:"infPrazo,omitempty"`
	Bank             BankInfo           `json:"infBanc"`
}

// PaymentComponent is a Comp entry
type PaymentComponent struct {
	Type        string `json:"tpComp"`
	Value       string `json:"vComp"`
	Description string `json:"xComp,omitempty"`
}

// Installment is an infPrazo entry
type Installment struct {
	Number  string `json:"nParcela"`
	DueDate string `json:"dVenc"`
	Value   string `json:"vParcela"`
}

// BankInfo is the infBanc block; only one routing option is ever set
type BankInfo struct {
	BankCode          string `json:"codBanco,omitempty"`
	Agency            string `json:"codAgencia,omitempty"`
	ClearinghouseCNPJ string `json:"CNPJIPEF,omitempty"`
	PIX               string `json:"PIX,omitempty"`
}

// TractionVehicle is the veicTracao block
type TractionVehicle struct {
	InternalCode  string       `json:"cInt,omitempty"`
	Plate         string       `json:"placa"`
	Renavam       string       `json:"RENAVAM,omitempty"`
	Tare          string       `json:"tara,omitempty"`
	CapacityKG    string       `json:"capKG,omitempty"`
	CapacityM3    string       `json:"capM3,omitempty"`
	Owner         *VehicleProp `json:"prop,omitempty"`
	Drivers       []DriverRef  `json:"condutor"`
	BodyType      string       `json:"tpRod,omitempty"`
	CargoBodyType string       `json:"tpCar,omitempty"`
	State         string       `json:"UF,omitempty"`
}

// VehicleProp is the prop block
type VehicleProp struct {
	CPF               string `json:"CPF,omitempty"`
	CNPJ              string `json:"CNPJ,omitempty"`
	RNTRC             string `json:"RNTRC"`
	Name              string `json:"xNome"`
	StateRegistration string `json:"IE,omitempty"`
	State             string `json:"UF"`
	Type              string `json:"tpProp"`
}

// DriverRef is a condutor entry
type DriverRef struct {
	Name string `json:"xNome"`
	CPF  string `json:"CPF"`
}

// Seal is a lacre entry
type Seal struct {
	Number string `json:"nLacre"`
}

// AirModal is the aereo block
type AirModal struct {
	Nationality          string `json:"nac"`
	Registration         string `json:"matr"`
	FlightNumber         string `json:"nVoo"`
	OriginAerodrome      string `json:"cAerEmb"`
	DestinationAerodrome string `json:"cAerDes"`
	FlightDate           string `json:"dVoo"`
}

// WaterModal is the aquav block
type WaterModal struct {
	IRIN          string `json:"irin"`
	VesselType    string `json:"tpEmb"`
	VesselCode    string `json:"cEmbar"`
	VesselName    string `json:"xEmbar"`
	VoyageNumber  string `json:"nViag"`
	LoadingPort   string `json:"cPrtEmb"`
	UnloadingPort string `json:"cPrtDest"`
}

// RailModal is the ferrov block
type RailModal struct {
	Train Train `json:"trem"`
}

// Train is the ferrov/trem block
type Train struct {
	Prefix      string `json:"xPref"`
	DepartureAt string `json:"dhTrem,omitempty"`
	Origin      string `json:"xOri"`
	Destination string `json:"xDest"`
	WagonCount  string `json:"qVag"`
}

// DocumentIndex is the infDoc block
type DocumentIndex struct {
	Unloading []UnloadingMunicipality `json:"infMunDescarga"`
}

// UnloadingMunicipality groups the invoices delivered to one municipality
type UnloadingMunicipality struct {
	Code     string       `json:"cMunDescarga"`
	Name     string       `json:"xMunDescarga"`
	Invoices []InvoiceRef `json:"infNFe,omitempty"`
}

// InvoiceRef is an infNFe entry
type InvoiceRef struct {
	AccessKey  string `json:"chNFe"`
	Redelivery string `json:"indReentrega"`
}

// Insurance is a seg entry
type Insurance struct {
	Responsible  InsuranceResponsible `json:"infResp"`
	Insurer      Insurer              `json:"infSeg"`
	PolicyNumber string               `json:"nApol"`
	Endorsements []string             `json:"nAver"`
}

// InsuranceResponsible is the infResp block
type InsuranceResponsible struct {
	Code string `json:"respSeg"`
	CNPJ string `json:"CNPJ,omitempty"`
	CPF  string `json:"CPF,omitempty"`
}

// Insurer is the infSeg block
type Insurer struct {
	Name string `json:"xSeg"`
	CNPJ string `json:"CNPJ"`
}

// Totals is the tot block
type Totals struct {
	InvoiceCount  string `json:"qNFe"`
	CargoValue    string `json:"vCarga"`
	UnitCode      string `json:"cUnid"`
	CargoQuantity string `json:"qCarga"`
}

// DownloaderRef is an autXML entry
type DownloaderRef struct {
	CNPJ string `json:"CNPJ,omitempty"`
	CPF  string `json:"CPF,omitempty"`
}

// AdditionalInfo is the infAdic block
type AdditionalInfo struct {
	FiscalNotes string `json:"infAdFisco,omitempty"`
	Notes       string `json:"infCpl,omitempty"`
}
