// Package validation checks a FormState against the required-field rule
// table. Validation never fails: violations come back as data.
package validation

import (
	"strings"

	"github.com/rezonia/mdfe-builder/internal/codes"
	"github.com/rezonia/mdfe-builder/internal/decimal"
	"github.com/rezonia/mdfe-builder/internal/model"
)

// rule is one required-field check. A nil when means the rule always applies.
type rule struct {
	tab     model.Tab
	field   string
	message string
	when    func(f *model.FormState) bool
	ok      func(f *model.FormState) bool
}

func present(s string) bool {
	return strings.TrimSpace(s) != ""
}

func isRoad(f *model.FormState) bool  { return f.IsRoad() }
func isAir(f *model.FormState) bool   { return f.ModalName() == model.ModalAir }
func isWater(f *model.FormState) bool { return f.ModalName() == model.ModalWater }
func isRail(f *model.FormState) bool  { return f.ModalName() == model.ModalRail }

func ownerRequired(f *model.FormState) bool {
	return f.Transport.OwnerIsNotIssuer
}

// rules is declared in tab order; Validate reports violations in this order
var rules = []rule{
	// documents
	{
		tab:     model.TabDocuments,
		field:   "invoices",
		message: "attach at least one invoice",
		ok:      func(f *model.FormState) bool { return len(f.Documents.Invoices) > 0 },
	},

	// transport
	{
		tab:     model.TabTransport,
		field:   "modal",
		message: "select the transport modal",
		ok:      func(f *model.FormState) bool {
			_, ok := codes.ModalCode(f.Transport.Modal)
			return ok
		},
	},
	{
		tab:     model.TabTransport,
		field:   "vehicle",
		message: "select a vehicle",
		ok:      func(f *model.FormState) bool { return f.Transport.Vehicle.Selected() },
	},
	{
		tab:     model.TabTransport,
		field:   "vehicle.plate",
		message: "plate must be 7 characters in the ABC1234 or ABC1D23 format",
		when:    func(f *model.FormState) bool { return f.Transport.Vehicle.Selected() },
		ok:      func(f *model.FormState) bool { return IsValidPlate(f.Transport.Vehicle.Plate) },
	},
	{
		tab:     model.TabTransport,
		field:   "vehicle.renavam",
		message: "RENAVAM must have exactly 11 digits",
		when:    func(f *model.FormState) bool { return present(f.Transport.Vehicle.Renavam) },
		ok:      func(f *model.FormState) bool { return IsValidRenavam(f.Transport.Vehicle.Renavam) },
	},
	{
		tab:     model.TabTransport,
		field:   "owner.document",
		message: "owner CPF or CNPJ is required",
		when:    ownerRequired,
		ok:      func(f *model.FormState) bool { return IsTaxID(f.Transport.Owner.Document) },
	},
	{
		tab:     model.TabTransport,
		field:   "owner.name",
		message: "owner name is required",
		when:    ownerRequired,
		ok:      func(f *model.FormState) bool { return present(f.Transport.Owner.Name) },
	},
	{
		tab:     model.TabTransport,
		field:   "owner.rntrc",
		message: "owner RNTRC is required",
		when:    ownerRequired,
		ok:      func(f *model.FormState) bool { return present(f.Transport.Owner.RNTRC) },
	},
	{
		tab:     model.TabTransport,
		field:   "owner.state",
		message: "owner state is required",
		when:    ownerRequired,
		ok:      func(f *model.FormState) bool { return codes.IsState(f.Transport.Owner.State) },
	},
	{
		tab:     model.TabTransport,
		field:   "air.registration",
		message: "aircraft registration is required",
		when:    isAir,
		ok:      func(f *model.FormState) bool { return present(f.Transport.Air.Registration) },
	},
	{
		tab:     model.TabTransport,
		field:   "air.flight_number",
		message: "flight number is required",
		when:    isAir,
		ok:      func(f *model.FormState) bool { return present(f.Transport.Air.FlightNumber) },
	},
	{
		tab:     model.TabTransport,
		field:   "air.origin_aerodrome",
		message: "origin aerodrome is required",
		when:    isAir,
		ok:      func(f *model.FormState) bool { return present(f.Transport.Air.OriginAerodrome) },
	},
	{
		tab:     model.TabTransport,
		field:   "air.destination_aerodrome",
		message: "destination aerodrome is required",
		when:    isAir,
		ok:      func(f *model.FormState) bool { return present(f.Transport.Air.DestinationAerodrome) },
	},
	{
		tab:     model.TabTransport,
		field:   "air.flight_date",
		message: "flight date is required",
		when:    isAir,
		ok:      func(f *model.FormState) bool { return present(f.Transport.Air.FlightDate) },
	},
	{
		tab:     model.TabTransport,
		field:   "water.irin",
		message: "vessel IRIN is required",
		when:    isWater,
		ok:      func(f *model.FormState) bool { return present(f.Transport.Water.IRIN) },
	},
	{
		tab:     model.TabTransport,
		field:   "water.vessel_name",
		message: "vessel name is required",
		when:    isWater,
		ok:      func(f *model.FormState) bool { return present(f.Transport.Water.VesselName) },
	},
	{
		tab:     model.TabTransport,
		field:   "water.voyage_number",
		message: "voyage number is required",
		when:    isWater,
		ok:      func(f *model.FormState) bool { return present(f.Transport.Water.VoyageNumber) },
	},
	{
		tab:     model.TabTransport,
		field:   "water.loading_port",
		message: "loading port is required",
		when:    isWater,
		ok:      func(f *model.FormState) bool { return present(f.Transport.Water.LoadingPort) },
	},
	{
		tab:     model.TabTransport,
		field:   "water.unloading_port",
		message: "unloading port is required",
		when:    isWater,
		ok:      func(f *model.FormState) bool { return present(f.Transport.Water.UnloadingPort) },
	},
	{
		tab:     model.TabTransport,
		field:   "rail.prefix",
		message: "train prefix is required",
		when:    isRail,
		ok:      func(f *model.FormState) bool { return present(f.Transport.Rail.Prefix) },
	},
	{
		tab:     model.TabTransport,
		field:   "rail.wagon_count",
		message: "wagon count must be a positive integer",
		when:    isRail,
		ok:      func(f *model.FormState) bool {
			n, err := decimal.ParseInteger(f.Transport.Rail.WagonCount)
			return err == nil && n > 0
		},
	},

	// drivers
	{
		tab:     model.TabDrivers,
		field:   "drivers",
		message: "select at least one driver with name and CPF",
		ok:      func(f *model.FormState) bool {
			for _, d := range f.Drivers.Drivers {
				if d.Complete() {
					return true
				}
			}
			return false
		},
	},

	// route
	{
		tab:     model.TabRoute,
		field:   "loading_state",
		message: "loading state is required",
		ok:      func(f *model.FormState) bool { return codes.IsState(f.Route.LoadingState) },
	},
	{
		tab:     model.TabRoute,
		field:   "loading_municipality",
		message: "loading municipality is required",
		ok:      func(f *model.FormState) bool { return present(f.Route.LoadingMunicipality) },
	},
	{
		tab:     model.TabRoute,
		field:   "unloading_state",
		message: "unloading state is required",
		ok:      func(f *model.FormState) bool { return codes.IsState(f.Route.UnloadingState) },
	},
	{
		tab:     model.TabRoute,
		field:   "unloading_municipality",
		message: "unloading municipality is required",
		ok:      func(f *model.FormState) bool { return present(f.Route.UnloadingMunicipality) },
	},

	// freight
	{
		tab:     model.TabFreight,
		field:   "contract_value",
		message: "freight contract value must be greater than zero",
		when:    isRoad,
		ok:      func(f *model.FormState) bool { return decimal.PositiveMoney(f.Freight.ContractValue) },
	},
	{
		tab:     model.TabFreight,
		field:   "payment_method",
		message: "select the payment method",
		when:    isRoad,
		ok:      func(f *model.FormState) bool {
			_, ok := codes.PaymentFlag(f.Freight.PaymentMethod)
			return ok
		},
	},
	{
		tab:     model.TabFreight,
		field:   "installments",
		message: "installment payment requires at least one installment",
		when:    func(f *model.FormState) bool {
			flag, _ := codes.PaymentFlag(f.Freight.PaymentMethod)
			return f.IsRoad() && flag == codes.PaymentInstallment
		},
		ok: func(f *model.FormState) bool { return len(f.Freight.Installments) > 0 },
	},
	{
		tab:     model.TabFreight,
		field:   "payee_document",
		message: "payee CPF or CNPJ is required",
		when:    isRoad,
		ok:      func(f *model.FormState) bool { return IsTaxID(f.Freight.PayeeDocument) },
	},
	{
		tab:     model.TabFreight,
		field:   "payment_route",
		message: "fill bank and agency, a PIX key or a payment institution CNPJ",
		when:    isRoad,
		ok:      func(f *model.FormState) bool { return f.Freight.HasPaymentRoute() },
	},

	// insurance
	{
		tab:     model.TabInsurance,
		field:   "responsible",
		message: "insurance responsible is required",
		when:    isRoad,
		ok:      func(f *model.FormState) bool {
			_, ok := codes.InsuranceResponsible(f.Insurance.Responsible)
			return ok
		},
	},
	{
		tab:     model.TabInsurance,
		field:   "insurer_name",
		message: "insurer name is required",
		when:    isRoad,
		ok:      func(f *model.FormState) bool { return present(f.Insurance.InsurerName) },
	},
	{
		tab:     model.TabInsurance,
		field:   "insurer_document",
		message: "insurer CNPJ is required",
		when:    isRoad,
		ok:      func(f *model.FormState) bool { return present(f.Insurance.InsurerDocument) },
	},
	{
		tab:     model.TabInsurance,
		field:   "policy_number",
		message: "policy number is required",
		when:    isRoad,
		ok:      func(f *model.FormState) bool { return present(f.Insurance.PolicyNumber) },
	},
	{
		tab:     model.TabInsurance,
		field:   "endorsement_number",
		message: "endorsement number is required",
		when:    isRoad,
		ok:      func(f *model.FormState) bool { return present(f.Insurance.EndorsementNumber) },
	},

	// totalizers
	{
		tab:     model.TabTotalizers,
		field:   "invoice_count",
		message: "invoice count must be greater than zero",
		ok:      func(f *model.FormState) bool {
			n, err := decimal.ParseInteger(f.Totalizers.InvoiceCount)
			return err == nil && n > 0
		},
	},
	{
		tab:     model.TabTotalizers,
		field:   "cargo_value",
		message: "cargo value must be greater than zero",
		ok:      func(f *model.FormState) bool { return decimal.PositiveMoney(f.Totalizers.CargoValue) },
	},
	{
		tab:     model.TabTotalizers,
		field:   "cargo_weight",
		message: "cargo weight must be greater than zero",
		ok:      func(f *model.FormState) bool { return decimal.PositiveQuantity(f.Totalizers.CargoWeight) },
	},
	{
		tab:     model.TabTotalizers,
		field:   "unit_code",
		message: "select the cargo unit",
		ok:      func(f *model.FormState) bool {
			_, ok := codes.LookupUnit(f.Totalizers.UnitCode)
			return ok
		},
	},
}

// Validate returns every violation in rule-declaration order. An empty list
// means the form can be submitted. The form is not modified.
func Validate(form *model.FormState) []model.ValidationError {
	errs := make([]model.ValidationError, 0)
	if form == nil {
		form = &model.FormState{}
	}
	for _, r := range rules {
		if r.when != nil && !r.when(form) {
			continue
		}
		if !r.ok(form) {
			errs = append(errs, model.NewValidationError(r.tab, r.field, r.message))
		}
	}
	return errs
}

// FirstTab returns the tab of the first violation, the one the user is sent to
func FirstTab(errs []model.ValidationError) (model.Tab, bool) {
	if len(errs) == 0 {
		return "", false
	}
	return errs[0].Tab, true
}

// ByTab groups violations by tab, keeping their order within each tab
func ByTab(errs []model.ValidationError) map[model.Tab][]model.ValidationError {
	out := make(map[model.Tab][]model.ValidationError)
	for _, e := range errs {
		out[e.Tab] = append(out[e.Tab], e)
	}
	return out
}
