package certificate

import (
	"bytes"
	"context"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rezonia/mdfe-builder/internal/model"
)

// DefaultOpenSSLTimeout bounds a single openssl invocation
const DefaultOpenSSLTimeout = 30 * time.Second

// passwordMarkers are stderr fragments openssl prints when the MAC check fails
var passwordMarkers = []string{
	"mac verify failure",
	"mac verify error",
	"invalid password",
	"bad decrypt",
}

// OpenSSLInspector reads containers by running the openssl command-line tool
type OpenSSLInspector struct {
	opts        options
	opensslPath string
	available   bool
	timeout     time.Duration
}

// NewOpenSSLInspector creates an inspector backed by the openssl binary.
// An empty path searches the usual install locations.
func NewOpenSSLInspector(path string, opts ...InspectorOption) *OpenSSLInspector {
	i := &OpenSSLInspector{timeout: DefaultOpenSSLTimeout}
	if path != "" {
		resolved, err := exec.LookPath(path)
		i.opensslPath, i.available = resolved, err == nil
	} else {
		i.opensslPath, i.available = detectOpenSSL()
	}
	for _, opt := range opts {
		opt(&i.opts)
	}
	return i
}

// SetTimeout sets the execution timeout for openssl
func (i *OpenSSLInspector) SetTimeout(d time.Duration) {
	i.timeout = d
}

// IsAvailable returns whether the openssl tool was found
func (i *OpenSSLInspector) IsAvailable() bool {
	return i.available
}

// Inspect runs openssl against the container at path
func (i *OpenSSLInspector) Inspect(ctx context.Context, path, password string) (*model.CertificateInfo, error) {
	if !i.available {
		return nil, ToolUnavailableError("openssl")
	}
	if _, err := os.Stat(path); err != nil {
		return nil, UnreadableError(path, err)
	}

	// Password file is removed on every exit path
	passFile, err := os.CreateTemp("", "mdfe-pass-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(passFile.Name())
	defer passFile.Close()

	if _, err := passFile.WriteString(password + "\n"); err != nil {
		return nil, fmt.Errorf("failed to write temp file: %w", err)
	}
	passFile.Close()

	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	stdout, err := i.run(ctx, path, passFile.Name(), false)
	if err != nil {
		var credErr *CredentialError
		// OpenSSL 3 refuses RC2/3DES containers unless the legacy provider is loaded
		if errors.As(err, &credErr) && credErr.Kind == KindInvalidContainer &&
			strings.Contains(strings.ToLower(credErr.Message), "unsupported") {
			stdout, err = i.run(ctx, path, passFile.Name(), true)
		}
		if err != nil {
			return nil, err
		}
	}

	var blocks []*pem.Block
	rest := stdout
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		blocks = append(blocks, block)
	}

	certs, err := certificatesFromBlocks(blocks)
	if err != nil {
		var credErr *CredentialError
		if errors.As(err, &credErr) {
			credErr.Path = path
		}
		return nil, err
	}

	info := describe(certs, i.opts.trust)
	i.opts.checkRevocation(ctx, info, certs)
	return info, nil
}

func (i *OpenSSLInspector) run(ctx context.Context, path, passPath string, legacy bool) ([]byte, error) {
	args := []string{"pkcs12", "-in", path, "-nokeys", "-passin", "file:" + passPath}
	if legacy {
		args = append(args, "-legacy")
	}

	cmd := exec.CommandContext(ctx, i.opensslPath, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, TimeoutError(path, ctx.Err())
		}
		diag := strings.TrimSpace(stderr.String())
		if isPasswordDiagnostic(diag) {
			return nil, WrongPasswordError(path, errors.New(diag))
		}
		return nil, InvalidContainerError(path, fmt.Sprintf("openssl failed: %s", diag), err)
	}

	return stdout.Bytes(), nil
}

func isPasswordDiagnostic(diag string) bool {
	lower := strings.ToLower(diag)
	for _, marker := range passwordMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// detectOpenSSL looks for openssl in common locations
func detectOpenSSL() (string, bool) {
	paths := []string{
		"openssl",
		"/usr/bin/openssl",
		"/opt/homebrew/bin/openssl",
		"/usr/local/bin/openssl",
	}

	for _, p := range paths {
		if path, err := exec.LookPath(p); err == nil {
			return path, true
		}
	}

	return "", false
}
