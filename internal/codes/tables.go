// Package codes holds the static lookup tables used when building a manifest:
// IBGE state codes, transport modal codes, payment flags and cargo units.
package codes

import "strings"

// stateCodes maps a UF abbreviation to its IBGE numeric code
var stateCodes = map[string]string{
	"RO": "11", "AC": "12", "AM": "13", "RR": "14", "PA": "15", "AP": "16", "TO": "17",
	"MA": "21", "PI": "22", "CE": "23", "RN": "24", "PB": "25", "PE": "26", "AL": "27", "SE": "28", "BA": "29",
	"MG": "31", "ES": "32", "RJ": "33", "SP": "35",
	"PR": "41", "SC": "42", "RS": "43",
	"MS": "50", "MT": "51", "GO": "52", "DF": "53",
}

// StateCode returns the IBGE code for a UF abbreviation, case-insensitively
func StateCode(uf string) (string, bool) {
	code, ok := stateCodes[strings.ToUpper(strings.TrimSpace(uf))]
	return code, ok
}

// IsState reports whether uf is a known UF abbreviation
func IsState(uf string) bool {
	_, ok := StateCode(uf)
	return ok
}

// Modal codes as emitted in ide/modal
const (
	ModalCodeRoad  = "1"
	ModalCodeAir   = "2"
	ModalCodeWater = "3"
	ModalCodeRail  = "4"
)

var modalCodes = map[string]string{
	"road":  ModalCodeRoad,
	"air":   ModalCodeAir,
	"water": ModalCodeWater,
	"rail":  ModalCodeRail,
}

// ModalCode returns the numeric code for a transport modal name
func ModalCode(modal string) (string, bool) {
	code, ok := modalCodes[strings.ToLower(strings.TrimSpace(modal))]
	return code, ok
}

// Payment indicators (indPag)
const (
	PaymentUpfront     = "0"
	PaymentInstallment = "1"
)

var paymentFlags = map[string]string{
	"0":            PaymentUpfront,
	"cash":         PaymentUpfront,
	"upfront":      PaymentUpfront,
	"a_vista":      PaymentUpfront,
	"1":            PaymentInstallment,
	"installment":  PaymentInstallment,
	"installments": PaymentInstallment,
	"a_prazo":      PaymentInstallment,
}

// PaymentFlag maps a payment method to its indPag flag
func PaymentFlag(method string) (string, bool) {
	flag, ok := paymentFlags[strings.ToLower(strings.TrimSpace(method))]
	return flag, ok
}

// Unit is a cargo unit of measure (cUnid)
type Unit struct {
	Code      string
	Name      string
	Precision int32
}

// Cargo units
var (
	UnitKG  = Unit{Code: "01", Name: "KG", Precision: 3}
	UnitTON = Unit{Code: "02", Name: "TON", Precision: 3}
)

var units = []Unit{UnitKG, UnitTON}

// LookupUnit finds a unit by code ("01") or name ("KG"), case-insensitively
func LookupUnit(key string) (Unit, bool) {
	key = strings.ToUpper(strings.TrimSpace(key))
	for _, u := range units {
		if u.Code == key || u.Name == key {
			return u, true
		}
	}
	return Unit{}, false
}

// Insurance responsible codes (respSeg)
const (
	InsuranceByIssuer     = "1"
	InsuranceByContractor = "2"
)

// InsuranceResponsible normalizes the insurance responsible party to its code
func InsuranceResponsible(v string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "issuer":
		return InsuranceByIssuer, true
	case "2", "contractor":
		return InsuranceByContractor, true
	default:
		return "", false
	}
}

// Freight component types (tpComp)
var componentTypes = map[string]string{
	"01": "01", "toll": "01",
	"02": "02", "taxes": "02",
	"03": "03", "expenses": "03",
	"99": "99", "other": "99",
}

// ComponentType maps a freight component name or code to its tpComp code.
// Unknown values map to "99" (other).
func ComponentType(v string) string {
	if code, ok := componentTypes[strings.ToLower(strings.TrimSpace(v))]; ok {
		return code
	}
	return "99"
}

// Owner types (tpProp)
var ownerTypes = map[string]string{
	"0": "0", "aggregated": "0",
	"1": "1", "independent": "1",
	"2": "2", "other": "2",
}

// OwnerType maps an owner type name or code to its tpProp code, defaulting to "2"
func OwnerType(v string) string {
	if code, ok := ownerTypes[strings.ToLower(strings.TrimSpace(v))]; ok {
		return code
	}
	return "2"
}

// Road body types (tpRod); "06" is "other"
var bodyTypes = map[string]string{
	"01": "01", "truck": "01",
	"02": "02", "tractor": "02",
	"03": "03", "rigid": "03",
	"04": "04", "van": "04",
	"05": "05", "utility": "05",
	"06": "06", "other": "06",
}

// BodyType maps a road vehicle body name or code to its tpRod code, defaulting to "06"
func BodyType(v string) string {
	if code, ok := bodyTypes[strings.ToLower(strings.TrimSpace(v))]; ok {
		return code
	}
	return "06"
}

// Cargo body types (tpCar); "00" is "not applicable"
var cargoBodyTypes = map[string]string{
	"00": "00", "none": "00",
	"01": "01", "open": "01",
	"02": "02", "closed": "02",
	"03": "03", "bulk": "03",
	"04": "04", "container": "04",
	"05": "05", "sider": "05",
}

// CargoBodyType maps a cargo body name or code to its tpCar code, defaulting to "00"
func CargoBodyType(v string) string {
	if code, ok := cargoBodyTypes[strings.ToLower(strings.TrimSpace(v))]; ok {
		return code
	}
	return "00"
}
