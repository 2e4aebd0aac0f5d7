package codes_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rezonia/mdfe-builder/internal/codes"
)

func TestStateCode(t *testing.T) {
	tests := []struct {
		uf       string
		expected string
		ok       bool
	}{
		{"SP", "35", true},
		{"sp", "35", true},
		{" rj ", "33", true},
		{"DF", "53", true},
		{"AC", "12", true},
		{"XX", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.uf, func(t *testing.T) {
			code, ok := codes.StateCode(tt.uf)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, code)
		})
	}
}

func TestModalCode(t *testing.T) {
	tests := []struct {
		modal    string
		expected string
	}{
		{"road", codes.ModalCodeRoad},
		{"AIR", codes.ModalCodeAir},
		{"water", codes.ModalCodeWater},
		{"rail", codes.ModalCodeRail},
	}

	for _, tt := range tests {
		t.Run(tt.modal, func(t *testing.T) {
			code, ok := codes.ModalCode(tt.modal)
			assert.True(t, ok)
			assert.Equal(t, tt.expected, code)
		})
	}

	_, ok := codes.ModalCode("pipeline")
	assert.False(t, ok)
}

func TestPaymentFlag(t *testing.T) {
	flag, ok := codes.PaymentFlag("cash")
	assert.True(t, ok)
	assert.Equal(t, codes.PaymentUpfront, flag)

	flag, ok = codes.PaymentFlag("1")
	assert.True(t, ok)
	assert.Equal(t, codes.PaymentInstallment, flag)

	_, ok = codes.PaymentFlag("barter")
	assert.False(t, ok)
}

func TestLookupUnit(t *testing.T) {
	u, ok := codes.LookupUnit("kg")
	assert.True(t, ok)
	assert.Equal(t, "01", u.Code)
	assert.Equal(t, int32(3), u.Precision)

	u, ok = codes.LookupUnit("02")
	assert.True(t, ok)
	assert.Equal(t, "TON", u.Name)

	_, ok = codes.LookupUnit("LB")
	assert.False(t, ok)
}

func TestComponentTypeAndOwnerType(t *testing.T) {
	assert.Equal(t, "01", codes.ComponentType("toll"))
	assert.Equal(t, "02", codes.ComponentType("02"))
	assert.Equal(t, "99", codes.ComponentType("unknown"))

	assert.Equal(t, "1", codes.OwnerType("independent"))
	assert.Equal(t, "2", codes.OwnerType(""))
}

func TestInsuranceResponsible(t *testing.T) {
	code, ok := codes.InsuranceResponsible("contractor")
	assert.True(t, ok)
	assert.Equal(t, codes.InsuranceByContractor, code)

	_, ok = codes.InsuranceResponsible("nobody")
	assert.False(t, ok)
}

func TestBodyTypes(t *testing.T) {
	assert.Equal(t, "02", codes.BodyType("Tractor"))
	assert.Equal(t, "06", codes.BodyType(""))
	assert.Equal(t, "04", codes.CargoBodyType("container"))
	assert.Equal(t, "00", codes.CargoBodyType("unknown"))
}
