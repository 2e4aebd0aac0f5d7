// Package registry looks up company records by CNPJ in a public registry.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rezonia/mdfe-builder/internal/model"
	"github.com/rezonia/mdfe-builder/internal/validation"
)

// Default lookup configuration
const (
	DefaultBaseURL  = "https://brasilapi.com.br/api"
	DefaultTimeout  = 10 * time.Second
	DefaultCacheTTL = 24 * time.Hour

	// MaxResponseBytes caps the registry payload read into memory
	MaxResponseBytes = 1 << 20

	// maxErrorSnippet bounds the upstream body quoted in status errors
	maxErrorSnippet = 256
)

var (
	// ErrNotFound is returned when the registry has no record for the CNPJ
	ErrNotFound = errors.New("registry: company not found")

	// ErrInvalidCNPJ is returned before any request when the key is not 14 digits
	ErrInvalidCNPJ = errors.New("registry: CNPJ must have 14 digits")

	// ErrResponseTooLarge is returned when the payload exceeds MaxResponseBytes
	ErrResponseTooLarge = errors.New("registry: response too large")
)

// Lookup finds a legal entity by CNPJ
type Lookup interface {
	Find(ctx context.Context, cnpj string) (*model.LegalEntity, error)
}

// Client queries a BrasilAPI-style /cnpj/v1/{cnpj} endpoint
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the request timeout of the default HTTP client
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient = &http.Client{Timeout: d}
	}
}

// NewClient creates a registry client. An empty baseURL uses DefaultBaseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// companyResponse is the subset of the registry payload we map
type companyResponse struct {
	CNPJ             string          `json:"cnpj"`
	LegalName        string          `json:"razao_social"`
	TradeName        string          `json:"nome_fantasia"`
	Street           string          `json:"logradouro"`
	Number           string          `json:"numero"`
	Complement       string          `json:"complemento"`
	District         string          `json:"bairro"`
	Municipality     string          `json:"municipio"`
	MunicipalityCode json.RawMessage `json:"codigo_municipio_ibge"`
	State            string          `json:"uf"`
	PostalCode       string          `json:"cep"`
	Phone            string          `json:"ddd_telefone_1"`
	Email            *string         `json:"email"`
}

// Find fetches the company record for cnpj. Punctuation in cnpj is ignored.
func (c *Client) Find(ctx context.Context, cnpj string) (*model.LegalEntity, error) {
	digits := validation.OnlyDigits(cnpj)
	if len(digits) != 14 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCNPJ, cnpj)
	}

	url := c.baseURL + "/cnpj/v1/" + digits
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create registry request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("registry request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read registry response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, digits)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("registry returned status %d: %s", resp.StatusCode, snippet(body))
	case len(body) > MaxResponseBytes:
		return nil, fmt.Errorf("%w: more than %d bytes", ErrResponseTooLarge, MaxResponseBytes)
	}

	var payload companyResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse registry response: %w", err)
	}

	return payload.entity(digits), nil
}

func snippet(body []byte) string {
	if len(body) > maxErrorSnippet {
		body = body[:maxErrorSnippet]
	}
	return strings.TrimSpace(string(body))
}

func (r companyResponse) entity(cnpj string) *model.LegalEntity {
	e := &model.LegalEntity{
		CNPJ:      cnpj,
		LegalName: strings.TrimSpace(r.LegalName),
		TradeName: strings.TrimSpace(r.TradeName),
		Phone:     validation.OnlyDigits(r.Phone),
		Address:   model.Address{
			Street:           strings.TrimSpace(r.Street),
			Number:           strings.TrimSpace(r.Number),
			Complement:       strings.TrimSpace(r.Complement),
			District:         strings.TrimSpace(r.District),
			MunicipalityCode: rawCode(r.MunicipalityCode),
			Municipality:     strings.TrimSpace(r.Municipality),
			PostalCode:       validation.OnlyDigits(r.PostalCode),
			State:            strings.ToUpper(strings.TrimSpace(r.State)),
		},
	}
	if r.Email != nil {
		e.Email = strings.TrimSpace(*r.Email)
	}
	return e
}

// rawCode accepts the IBGE code as either a JSON number or a string
func rawCode(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err == nil && n > 0 {
		return strconv.FormatInt(n, 10)
	}
	return ""
}
