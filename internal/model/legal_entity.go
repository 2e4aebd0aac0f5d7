package model

// LegalEntity is a company record returned by a registry lookup keyed by CNPJ
type LegalEntity struct {
	CNPJ              string  `json:"cnpj" yaml:"cnpj"`
	LegalName         string  `json:"legal_name" yaml:"legal_name"`
	TradeName         string  `json:"trade_name,omitempty" yaml:"trade_name,omitempty"`
	StateRegistration string  `json:"state_registration,omitempty" yaml:"state_registration,omitempty"`
	Phone             string  `json:"phone,omitempty" yaml:"phone,omitempty"`
	Email             string  `json:"email,omitempty" yaml:"email,omitempty"`
	Address           Address `json:"address" yaml:"address"`
}

// Address is a Brazilian postal address
type Address struct {
	Street           string `json:"street,omitempty" yaml:"street,omitempty"`
	Number           string `json:"number,omitempty" yaml:"number,omitempty"`
	Complement       string `json:"complement,omitempty" yaml:"complement,omitempty"`
	District         string `json:"district,omitempty" yaml:"district,omitempty"`
	MunicipalityCode string `json:"municipality_code,omitempty" yaml:"municipality_code,omitempty"`
	Municipality     string `json:"municipality,omitempty" yaml:"municipality,omitempty"`
	PostalCode       string `json:"postal_code,omitempty" yaml:"postal_code,omitempty"`
	State            string `json:"state,omitempty" yaml:"state,omitempty"`
}

// Complete reports whether the record can stand alone as the issuer block
func (e *LegalEntity) Complete() bool {
	return e != nil &&
		e.CNPJ != "" &&
		e.LegalName != "" &&
		e.Address.Municipality != "" &&
		e.Address.State != ""
}
