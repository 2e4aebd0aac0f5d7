package validation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rezonia/mdfe-builder/internal/validation"
)

func TestNormalizePlate(t *testing.T) {
	assert.Equal(t, "ABC1234", validation.NormalizePlate("abc-1234"))
	assert.Equal(t, "ABC1D23", validation.NormalizePlate(" abc 1d23 "))
	assert.Equal(t, "ABC1234", validation.NormalizePlate("ABC.1234"))
	assert.Equal(t, "", validation.NormalizePlate("--"))
}

func TestIsValidPlate(t *testing.T) {
	tests := []struct {
		plate string
		want  bool
	}{
		{"ABC1234", true},
		{"abc1234", true},
		{"ABC-1234", true},
		{"ABC1D23", true},
		{"abc1d23", true},
		{"Abc-1D23", true},
		{"", false},
		{"ABC123", false},
		{"ABC12345", false},
		{"AB1C234", false},
		{"1234ABC", false},
		{"ABCD123", false},
		{"ABC12D3", false},
		{"ÁBC1234", false},
	}

	for _, tt := range tests {
		t.Run(tt.plate, func(t *testing.T) {
			assert.Equal(t, tt.want, validation.IsValidPlate(tt.plate))
		})
	}
}

func TestIsValidRenavam(t *testing.T) {
	assert.True(t, validation.IsValidRenavam("12345678901"))
	assert.True(t, validation.IsValidRenavam(" 12345678901 "))
	assert.False(t, validation.IsValidRenavam("1234567890"))
	assert.False(t, validation.IsValidRenavam("123456789012"))
	assert.False(t, validation.IsValidRenavam("1234567890A"))
	assert.False(t, validation.IsValidRenavam(""))
}

func TestIsTaxID(t *testing.T) {
	assert.True(t, validation.IsTaxID("12345678909"))
	assert.True(t, validation.IsTaxID("123.456.789-09"))
	assert.True(t, validation.IsTaxID("12.345.678/0001-90"))
	assert.False(t, validation.IsTaxID("1234567890"))
	assert.False(t, validation.IsTaxID("CPF12345678909"))
	assert.Equal(t, "12345678000190", validation.OnlyDigits("12.345.678/0001-90"))
}
