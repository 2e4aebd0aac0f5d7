package certificate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rezonia/mdfe-builder/internal/certificate"
)

func TestDeriveTaxID(t *testing.T) {
	tests := []struct {
		name    string
		subject string
		want    string
	}{
		{
			name:    "cn with cnpj suffix",
			subject: "CN=EMPRESA LTDA:12345678000190, OU=Certificado PJ A1, O=ICP-Brasil, C=BR",
			want:    "12345678000190",
		},
		{
			name:    "go rfc2253 formatting",
			subject: "CN=EMPRESA LTDA:12345678000190,OU=Certificado PJ A1,O=ICP-Brasil,C=BR",
			want:    "12345678000190",
		},
		{
			name:    "cn suffix wins over earlier bare digits",
			subject: "OU=98765432000110,CN=EMPRESA LTDA:12345678000190,C=BR",
			want:    "12345678000190",
		},
		{
			name:    "bare sequence",
			subject: "CN=EMPRESA LTDA, OU=12345678000190, O=ICP-Brasil, C=BR",
			want:    "12345678000190",
		},
		{
			name:    "serial number attribute",
			subject: "CN=EMPRESA LTDA, serialNumber=CNPJ1234567890, C=BR",
			want:    "CNPJ1234567890",
		},
		{
			name:    "go serial number attribute",
			subject: "SERIALNUMBER=ABCDEFGHIJKLMN,CN=EMPRESA LTDA,C=BR",
			want:    "ABCDEFGHIJKLMN",
		},
		{
			name:    "serial number of wrong length",
			subject: "CN=EMPRESA LTDA, serialNumber=123, C=BR",
			want:    "",
		},
		{
			name:    "fifteen digits is not a cnpj",
			subject: "CN=EMPRESA LTDA, OU=123456780001901",
			want:    "",
		},
		{
			name:    "nothing to find",
			subject: "CN=Fulano de Tal, O=ICP-Brasil, C=BR",
			want:    "",
		},
		{
			name:    "empty",
			subject: "",
			want:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, certificate.DeriveTaxID(tt.subject))
		})
	}
}

func TestDeriveLegalName(t *testing.T) {
	tests := []struct {
		name    string
		subject string
		want    string
	}{
		{
			name:    "cn before cnpj",
			subject: "CN=EMPRESA LTDA:12345678000190, OU=Certificado PJ A1, O=ICP-Brasil, C=BR",
			want:    "EMPRESA LTDA",
		},
		{
			name:    "whole cn",
			subject: "CN=TRANSPORTES ACME SA, O=ICP-Brasil, C=BR",
			want:    "TRANSPORTES ACME SA",
		},
		{
			name:    "cn with short suffix kept",
			subject: "CN=ACME:123, C=BR",
			want:    "ACME:123",
		},
		{
			name:    "organization fallback",
			subject: "OU=Certificado PJ A1, O=TRANSPORTES ACME SA, C=BR",
			want:    "TRANSPORTES ACME SA",
		},
		{
			name:    "ou is not organization",
			subject: "OU=Certificado PJ A1, C=BR",
			want:    "",
		},
		{
			name:    "empty",
			subject: "",
			want:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, certificate.DeriveLegalName(tt.subject))
		})
	}
}
