// Package config loads the builder settings from defaults, an optional YAML
// file, an optional .env file and MDFE_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/rezonia/mdfe-builder/internal/assembler"
	"github.com/rezonia/mdfe-builder/internal/certificate"
	"github.com/rezonia/mdfe-builder/internal/registry"
)

// Certificate inspector backends
const (
	BackendNative  = "native"
	BackendOpenSSL = "openssl"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "MDFE_"

// Config is the complete builder configuration
type Config struct {
	Assembly    assembler.AssemblyConfig `yaml:"assembly"`
	Certificate CertificateConfig        `yaml:"certificate"`
	Invoices    InvoiceConfig            `yaml:"invoices"`
	Registry    RegistryConfig           `yaml:"registry"`
	Server      ServerConfig             `yaml:"server"`
}

// CertificateConfig selects and tunes the certificate inspector
type CertificateConfig struct {
	Backend     string        `yaml:"backend"`
	Timeout     time.Duration `yaml:"timeout"`
	OpenSSLPath string        `yaml:"openssl_path"`
	TrustRoots  string        `yaml:"trust_roots"`

	// CheckRevocation queries the leaf's OCSP responders after decoding
	CheckRevocation bool          `yaml:"check_revocation"`
	OCSPTimeout     time.Duration `yaml:"ocsp_timeout"`
}

// InvoiceConfig tunes NF-e import
type InvoiceConfig struct {
	// VerifySignatures checks each invoice's XML signature on import
	VerifySignatures bool `yaml:"verify_signatures"`
}

// RegistryConfig configures the legal-entity lookup
type RegistryConfig struct {
	Enabled  bool          `yaml:"enabled"`
	BaseURL  string        `yaml:"base_url"`
	Timeout  time.Duration `yaml:"timeout"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Address        string        `yaml:"address"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes"`
	Debug          bool          `yaml:"debug"`
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		Assembly:    assembler.DefaultAssemblyConfig(),
		Certificate: CertificateConfig{
			Backend:     BackendNative,
			Timeout:     certificate.DefaultOpenSSLTimeout,
			OCSPTimeout: certificate.DefaultOCSPTimeout,
		},
		Registry: RegistryConfig{
			Enabled:  true,
			BaseURL:  registry.DefaultBaseURL,
			Timeout:  registry.DefaultTimeout,
			CacheTTL: registry.DefaultCacheTTL,
		},
		Server: ServerConfig{
			Address:        ":8080",
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   5 * time.Minute,
			MaxUploadBytes: 10 << 20,
		},
	}
}

type loader struct {
	envFile      string
	envFileSet   bool
	lookupEnv    func(string) (string, bool)
	dotenvValues map[string]string
}

// Option configures Load
type Option func(*loader)

// WithEnvFile reads overrides from the given .env file, which must exist.
// Without this option a .env file in the working directory is used if present.
func WithEnvFile(path string) Option {
	return func(l *loader) {
		l.envFile = path
		l.envFileSet = true
	}
}

// WithLookupEnv replaces os.LookupEnv
func WithLookupEnv(fn func(string) (string, bool)) Option {
	return func(l *loader) {
		l.lookupEnv = fn
	}
}

// Load builds the configuration. An empty path skips the YAML file; a path
// that does not exist is an error. Process environment variables take
// precedence over values read from the .env file.
func Load(path string, opts ...Option) (Config, error) {
	l := &loader{
		envFile:   ".env",
		lookupEnv: os.LookupEnv,
	}
	for _, opt := range opts {
		opt(l)
	}

	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	if l.envFile != "" {
		values, err := godotenv.Read(l.envFile)
		switch {
		case err == nil:
			l.dotenvValues = values
		case errors.Is(err, os.ErrNotExist) && !l.envFileSet:
		default:
			return Config{}, fmt.Errorf("read env file: %w", err)
		}
	}

	if err := l.applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (l *loader) get(name string) string {
	if v, ok := l.lookupEnv(EnvPrefix + name); ok {
		return strings.TrimSpace(v)
	}
	return strings.TrimSpace(l.dotenvValues[EnvPrefix+name])
}

func (l *loader) applyEnv(cfg *Config) error {
	a := &cfg.Assembly
	a.Environment = l.stringOr("ENVIRONMENT", a.Environment)
	a.DefaultSeries = l.stringOr("DEFAULT_SERIES", a.DefaultSeries)
	a.IssuerType = l.stringOr("ISSUER_TYPE", a.IssuerType)
	a.EmissionType = l.stringOr("EMISSION_TYPE", a.EmissionType)
	a.AppVersion = l.stringOr("APP_VERSION", a.AppVersion)
	a.TimeZone = l.stringOr("TIME_ZONE", a.TimeZone)

	c := &cfg.Certificate
	c.Backend = strings.ToLower(l.stringOr("CERT_BACKEND", c.Backend))
	c.OpenSSLPath = l.stringOr("OPENSSL_PATH", c.OpenSSLPath)
	c.TrustRoots = l.stringOr("TRUST_ROOTS", c.TrustRoots)

	r := &cfg.Registry
	r.BaseURL = l.stringOr("REGISTRY_URL", r.BaseURL)

	s := &cfg.Server
	s.Address = l.stringOr("ADDRESS", s.Address)

	var err error
	if c.Timeout, err = l.durationOr("CERT_TIMEOUT", c.Timeout); err != nil {
		return err
	}
	if c.CheckRevocation, err = l.boolOr("CERT_CHECK_REVOCATION", c.CheckRevocation); err != nil {
		return err
	}
	if c.OCSPTimeout, err = l.durationOr("OCSP_TIMEOUT", c.OCSPTimeout); err != nil {
		return err
	}
	if cfg.Invoices.VerifySignatures, err = l.boolOr("VERIFY_SIGNATURES", cfg.Invoices.VerifySignatures); err != nil {
		return err
	}
	if r.Enabled, err = l.boolOr("REGISTRY_ENABLED", r.Enabled); err != nil {
		return err
	}
	if r.Timeout, err = l.durationOr("REGISTRY_TIMEOUT", r.Timeout); err != nil {
		return err
	}
	if r.CacheTTL, err = l.durationOr("REGISTRY_CACHE_TTL", r.CacheTTL); err != nil {
		return err
	}
	if s.Debug, err = l.boolOr("DEBUG", s.Debug); err != nil {
		return err
	}
	if s.MaxUploadBytes, err = l.intOr("MAX_UPLOAD_BYTES", s.MaxUploadBytes); err != nil {
		return err
	}
	return nil
}

func (l *loader) stringOr(name, fallback string) string {
	if v := l.get(name); v != "" {
		return v
	}
	return fallback
}

func (l *loader) durationOr(name string, fallback time.Duration) (time.Duration, error) {
	raw := l.get(name)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s%s: %w", EnvPrefix, name, err)
	}
	return d, nil
}

func (l *loader) boolOr(name string, fallback bool) (bool, error) {
	raw := l.get(name)
	if raw == "" {
		return fallback, nil
	}
	switch strings.ToLower(raw) {
	case "1", "true", "yes":
		return true, nil
	case "0", "false", "no":
		return false, nil
	default:
		return false, fmt.Errorf("invalid %s%s: %q is not a boolean", EnvPrefix, name, raw)
	}
}

func (l *loader) intOr(name string, fallback int64) (int64, error) {
	raw := l.get(name)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s%s: %w", EnvPrefix, name, err)
	}
	return n, nil
}

// Validate checks the settings that would otherwise fail late
func (c Config) Validate() error {
	switch c.Assembly.Environment {
	case assembler.EnvironmentProduction, assembler.EnvironmentHomologation:
	default:
		return fmt.Errorf("assembly.environment must be %q or %q, got %q",
			assembler.EnvironmentProduction, assembler.EnvironmentHomologation, c.Assembly.Environment)
	}

	switch c.Certificate.Backend {
	case BackendNative, BackendOpenSSL:
	default:
		return fmt.Errorf("certificate.backend must be %q or %q, got %q", BackendNative, BackendOpenSSL, c.Certificate.Backend)
	}

	if c.Certificate.Timeout <= 0 {
		return fmt.Errorf("certificate.timeout must be positive")
	}
	if c.Certificate.CheckRevocation && c.Certificate.OCSPTimeout <= 0 {
		return fmt.Errorf("certificate.ocsp_timeout must be positive when revocation checks are enabled")
	}
	if c.Registry.Enabled && c.Registry.BaseURL == "" {
		return fmt.Errorf("registry.base_url is required when the registry is enabled")
	}
	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("server.max_upload_bytes must be positive")
	}
	return nil
}
