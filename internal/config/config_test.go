package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/mdfe-builder/internal/assembler"
	"github.com/rezonia/mdfe-builder/internal/config"
)

func noEnv(string) (string, bool) { return "", false }

func envMap(values map[string]string) config.Option {
	return config.WithLookupEnv(func(name string) (string, bool) {
		v, ok := values[name]
		return v, ok
	})
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("", config.WithEnvFile(""), config.WithLookupEnv(noEnv))
	require.NoError(t, err)

	assert.Equal(t, config.Default(), cfg)
	assert.Equal(t, assembler.EnvironmentHomologation, cfg.Assembly.Environment)
	assert.Equal(t, config.BackendNative, cfg.Certificate.Backend)
	assert.Equal(t, 30*time.Second, cfg.Certificate.Timeout)
	assert.False(t, cfg.Certificate.CheckRevocation)
	assert.Equal(t, 10*time.Second, cfg.Certificate.OCSPTimeout)
	assert.False(t, cfg.Invoices.VerifySignatures)
	assert.True(t, cfg.Registry.Enabled)
	assert.Equal(t, ":8080", cfg.Server.Address)
}

func TestLoad_YAMLFile(t *testing.T) {
	path := writeFile(t, "mdfe.yaml", `
assembly:
  environment: "1"
  default_series: "5"
  issuer:
    cnpj: "12345678000190"
    legal_name: TRANSPORTES EXEMPLO LTDA
    address:
      municipality: Campinas
      state: SP
certificate:
  backend: openssl
  timeout: 45s
  trust_roots: /etc/mdfe/icp-brasil.pem
registry:
  enabled: false
server:
  address: 127.0.0.1:9090
`)

	cfg, err := config.Load(path, config.WithEnvFile(""), config.WithLookupEnv(noEnv))
	require.NoError(t, err)

	assert.Equal(t, assembler.EnvironmentProduction, cfg.Assembly.Environment)
	assert.Equal(t, "5", cfg.Assembly.DefaultSeries)
	assert.Equal(t, "3.00", cfg.Assembly.ModalVersion)
	require.NotNil(t, cfg.Assembly.Issuer)
	assert.True(t, cfg.Assembly.Issuer.Complete())
	assert.Equal(t, config.BackendOpenSSL, cfg.Certificate.Backend)
	assert.Equal(t, 45*time.Second, cfg.Certificate.Timeout)
	assert.Equal(t, "/etc/mdfe/icp-brasil.pem", cfg.Certificate.TrustRoots)
	assert.False(t, cfg.Registry.Enabled)
	assert.Equal(t, "127.0.0.1:9090", cfg.Server.Address)
	assert.Equal(t, 5*time.Minute, cfg.Server.WriteTimeout)
}

func TestLoad_Precedence(t *testing.T) {
	path := writeFile(t, "mdfe.yaml", "assembly:\n  default_series: \"2\"\n  app_version: from-yaml\n")
	envFile := writeFile(t, ".env", "MDFE_DEFAULT_SERIES=3\nMDFE_APP_VERSION=from-dotenv\nMDFE_CERT_TIMEOUT=10s\n")

	cfg, err := config.Load(path, config.WithEnvFile(envFile), envMap(map[string]string{
		"MDFE_DEFAULT_SERIES": "4",
		"MDFE_REGISTRY_URL":   "http://registry.local/api",
		"MDFE_DEBUG":          "true",
	}))
	require.NoError(t, err)

	assert.Equal(t, "4", cfg.Assembly.DefaultSeries)
	assert.Equal(t, "from-dotenv", cfg.Assembly.AppVersion)
	assert.Equal(t, 10*time.Second, cfg.Certificate.Timeout)
	assert.Equal(t, "http://registry.local/api", cfg.Registry.BaseURL)
	assert.True(t, cfg.Server.Debug)
}

func TestLoad_ProcessEnvironment(t *testing.T) {
	t.Setenv("MDFE_CERT_BACKEND", "OpenSSL")
	t.Setenv("MDFE_REGISTRY_CACHE_TTL", "1h")
	t.Setenv("MDFE_CERT_CHECK_REVOCATION", "yes")
	t.Setenv("MDFE_OCSP_TIMEOUT", "3s")
	t.Setenv("MDFE_VERIFY_SIGNATURES", "1")

	cfg, err := config.Load("", config.WithEnvFile(""))
	require.NoError(t, err)
	assert.Equal(t, config.BackendOpenSSL, cfg.Certificate.Backend)
	assert.Equal(t, time.Hour, cfg.Registry.CacheTTL)
	assert.True(t, cfg.Certificate.CheckRevocation)
	assert.Equal(t, 3*time.Second, cfg.Certificate.OCSPTimeout)
	assert.True(t, cfg.Invoices.VerifySignatures)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		path string
		opts []config.Option
		want string
	}{
		{
			name: "missing yaml file",
			path: filepath.Join(t.TempDir(), "absent.yaml"),
			want: "read config file",
		},
		{
			name: "malformed yaml",
			path: writeFile(t, "bad.yaml", "assembly: [unclosed"),
			want: "parse config file",
		},
		{
			name: "explicit env file missing",
			opts: []config.Option{config.WithEnvFile(filepath.Join(t.TempDir(), "absent.env"))},
			want: "read env file",
		},
		{
			name: "bad duration",
			opts: []config.Option{envMap(map[string]string{"MDFE_CERT_TIMEOUT": "soon"})},
			want: "MDFE_CERT_TIMEOUT",
		},
		{
			name: "bad boolean",
			opts: []config.Option{envMap(map[string]string{"MDFE_REGISTRY_ENABLED": "maybe"})},
			want: "MDFE_REGISTRY_ENABLED",
		},
		{
			name: "unknown backend",
			opts: []config.Option{envMap(map[string]string{"MDFE_CERT_BACKEND": "pkcs11"})},
			want: "certificate.backend",
		},
		{
			name: "revocation without timeout",
			opts: []config.Option{envMap(map[string]string{"MDFE_CERT_CHECK_REVOCATION": "true", "MDFE_OCSP_TIMEOUT": "0s"})},
			want: "certificate.ocsp_timeout",
		},
		{
			name: "unknown environment",
			opts: []config.Option{envMap(map[string]string{"MDFE_ENVIRONMENT": "3"})},
			want: "assembly.environment",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := append([]config.Option{config.WithEnvFile(""), config.WithLookupEnv(noEnv)}, tt.opts...)
			_, err := config.Load(tt.path, opts...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
