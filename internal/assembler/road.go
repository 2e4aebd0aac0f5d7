package assembler

import (
	"fmt"
	"strings"

	"github.com/rezonia/mdfe-builder/internal/codes"
	"github.com/rezonia/mdfe-builder/internal/decimal"
	"github.com/rezonia/mdfe-builder/internal/model"
	"github.com/rezonia/mdfe-builder/internal/validation"
)

// defaultComponentDescription labels the single component emitted when the
// form lists no freight breakdown
const defaultComponentDescription = "FRETE"

func buildRoad(form *model.FormState, seals []string) *model.RoadModal {
	road := &model.RoadModal{
		Vehicle: buildVehicle(form),
		Seals:   sealRefs(seals),
	}

	antt := buildANTT(form)
	if !antt.Empty() {
		road.ANTT = antt
	}

	return road
}

func buildVehicle(form *model.FormState) model.TractionVehicle {
	v := form.Transport.Vehicle
	veh := model.TractionVehicle{
		InternalCode:  strings.TrimSpace(v.InternalCode),
		Plate:         validation.NormalizePlate(v.Plate),
		Renavam:       strings.TrimSpace(v.Renavam),
		Tare:          nonZeroInteger(v.TareKG),
		CapacityKG:    nonZeroInteger(v.CapacityKG),
		CapacityM3:    nonZeroInteger(v.CapacityM3),
		Drivers:       buildDrivers(form.Drivers.Drivers),
		BodyType:      codes.BodyType(v.BodyType),
		CargoBodyType: codes.CargoBodyType(v.CargoBodyType),
		State:         strings.ToUpper(strings.TrimSpace(v.State)),
	}

	if form.Transport.OwnerIsNotIssuer {
		veh.Owner = buildOwner(form.Transport.Owner)
	}

	return veh
}

// buildDrivers keeps exactly the drivers Driver.Complete accepts
func buildDrivers(drivers []model.Driver) []model.DriverRef {
	out := make([]model.DriverRef, 0, len(drivers))
	for _, d := range drivers {
		if !d.Complete() {
			continue
		}
		out = append(out, model.DriverRef{
			Name: strings.TrimSpace(d.Name),
			CPF:  validation.OnlyDigits(d.CPF),
		})
	}
	return out
}

func buildOwner(o model.VehicleOwner) *model.VehicleProp {
	cnpj, cpf := splitDocument(o.Document)
	return &model.VehicleProp{
		CPF:               cpf,
		CNPJ:              cnpj,
		RNTRC:             validation.OnlyDigits(o.RNTRC),
		Name:              strings.TrimSpace(o.Name),
		StateRegistration: stateRegistration(o.StateRegistration),
		State:             strings.ToUpper(strings.TrimSpace(o.State)),
		Type:              codes.OwnerType(o.Type),
	}
}

func buildANTT(form *model.FormState) *model.ANTTInfo {
	f := form.Freight
	antt := &model.ANTTInfo{
		RNTRC: validation.OnlyDigits(form.Transport.RNTRC),
	}

	for _, c := range f.CIOT {
		code := strings.TrimSpace(c.Code)
		if code == "" {
			continue
		}
		cnpj, cpf := splitDocument(c.Document)
		antt.CIOT = append(antt.CIOT, model.CIOT{Code: code, CNPJ: cnpj, CPF: cpf})
	}

	var devices []model.TollDevice
	for _, tv := range f.TollVouchers {
		supplier := validation.OnlyDigits(tv.SupplierCNPJ)
		value, err := decimal.MoneyString(tv.Value)
		if supplier == "" || err != nil {
			continue
		}
		payerCNPJ, payerCPF := splitDocument(tv.PayerDocument)
		devices = append(devices, model.TollDevice{
			SupplierCNPJ:   supplier,
			PayerCNPJ:      payerCNPJ,
			PayerCPF:       payerCPF,
			PurchaseNumber: strings.TrimSpace(tv.PurchaseNumber),
			Value:          value,
		})
	}
	if len(devices) > 0 {
		antt.TollVoucher = &model.TollVoucherInfo{Devices: devices}
	}

	for _, p := range f.Contractors {
		cnpj, cpf := splitDocument(p.Document)
		if cnpj == "" && cpf == "" {
			continue
		}
		antt.Contractors = append(antt.Contractors, model.Contractor{
			Name: strings.TrimSpace(p.Name),
			CNPJ: cnpj,
			CPF:  cpf,
		})
	}

	if payment := buildPayment(f); payment != nil {
		antt.Payments = []model.FreightPayment{*payment}
	}

	return antt
}

// buildPayment returns nil when the contract value is missing or invalid
func buildPayment(f model.FreightTab) *model.FreightPayment {
	contract, err := decimal.MoneyString(f.ContractValue)
	if err != nil {
		return nil
	}

	indicator, ok := codes.PaymentFlag(f.PaymentMethod)
	if !ok {
		indicator = codes.PaymentUpfront
	}

	cnpj, cpf := splitDocument(f.PayeeDocument)
	payment := &model.FreightPayment{
		Name:             strings.TrimSpace(f.PayeeName),
		CNPJ:             cnpj,
		CPF:              cpf,
		Components:       buildComponents(f.Components, contract),
		ContractValue:    contract,
		PaymentIndicator: indicator,
		Bank:             bankRouting(f),
	}

	if advance, err := decimal.ParseMoney(f.AdvanceValue); err == nil && advance > 0 {
		payment.AdvanceValue = decimal.FormatCents(advance)
	}

	if indicator == codes.PaymentInstallment {
		payment.Installments = buildInstallments(f.Installments)
	}

	return payment
}

func buildComponents(list []model.FreightComponent, contract string) []model.PaymentComponent {
	out := make([]model.PaymentComponent, 0, len(list))
	for _, c := range list {
		value, err := decimal.MoneyString(c.Value)
		if err != nil {
			continue
		}
		out = append(out, model.PaymentComponent{
			Type:        codes.ComponentType(c.Type),
			Value:       value,
			Description: strings.TrimSpace(c.Description),
		})
	}
	if len(out) == 0 {
		out = append(out, model.PaymentComponent{
			Type:        codes.ComponentType("other"),
			Value:       contract,
			Description: defaultComponentDescription,
		})
	}
	return out
}

func buildInstallments(list []model.FreightInstallment) []model.Installment {
	var out []model.Installment
	for i, inst := range list {
		value, err := decimal.MoneyString(inst.Value)
		if err != nil {
			continue
		}
		number := strings.TrimSpace(inst.Number)
		if n, err := decimal.ParseInteger(number); err == nil && n > 0 {
			number = fmt.Sprintf("%03d", n)
		} else {
			number = fmt.Sprintf("%03d", i+1)
		}
		out = append(out, model.Installment{
			Number:  number,
			DueDate: strings.TrimSpace(inst.DueDate),
			Value:   value,
		})
	}
	return out
}

// bankRouting sets exactly one routing option, first match wins: bank code
// and agency, then PIX key, then payment institution CNPJ
func bankRouting(f model.FreightTab) model.BankInfo {
	bank := strings.TrimSpace(f.BankCode)
	agency := strings.TrimSpace(f.BankAgency)
	switch {
	case bank != "" && agency != "":
		return model.BankInfo{BankCode: bank, Agency: agency}
	case strings.TrimSpace(f.PixKey) != "":
		return model.BankInfo{PIX: strings.TrimSpace(f.PixKey)}
	case strings.TrimSpace(f.ClearinghouseCNPJ) != "":
		return model.BankInfo{ClearinghouseCNPJ: validation.OnlyDigits(f.ClearinghouseCNPJ)}
	default:
		return model.BankInfo{}
	}
}

// insuranceComplete reports whether all five required insurance fields are set
func insuranceComplete(ins model.InsuranceTab) bool {
	for _, v := range []string{
		ins.Responsible,
		ins.InsurerName,
		ins.InsurerDocument,
		ins.PolicyNumber,
		ins.EndorsementNumber,
	} {
		if strings.TrimSpace(v) == "" {
			return false
		}
	}
	return true
}

// buildInsurance emits the seg entry only when the insurance data is
// complete; partial data is dropped entirely
func buildInsurance(ins model.InsuranceTab, issuer model.Issuer) []model.Insurance {
	if !insuranceComplete(ins) {
		return nil
	}

	code, ok := codes.InsuranceResponsible(ins.Responsible)
	if !ok {
		return nil
	}

	resp := model.InsuranceResponsible{Code: code}
	resp.CNPJ, resp.CPF = splitDocument(ins.ResponsibleDocument)
	if resp.CNPJ == "" && resp.CPF == "" && code == codes.InsuranceByIssuer {
		resp.CNPJ, resp.CPF = issuer.CNPJ, issuer.CPF
	}

	return []model.Insurance{{
		Responsible: resp,
		Insurer: model.Insurer{
			Name: strings.TrimSpace(ins.InsurerName),
			CNPJ: validation.OnlyDigits(ins.InsurerDocument),
		},
		PolicyNumber: strings.TrimSpace(ins.PolicyNumber),
		Endorsements: []string{strings.TrimSpace(ins.EndorsementNumber)},
	}}
}

// nonZeroInteger renders an integer quantity, or "" when it is zero or unparseable
func nonZeroInteger(s string) string {
	n, err := decimal.ParseInteger(s)
	if err != nil || n == 0 {
		return ""
	}
	return fmt.Sprintf("%d", n)
}
