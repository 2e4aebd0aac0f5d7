package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/rezonia/mdfe-builder/internal/certificate"
	"github.com/rezonia/mdfe-builder/internal/model"
	"github.com/rezonia/mdfe-builder/internal/pipeline"
)

var (
	certPassword string
	certBackend  string
	certTimeout  time.Duration
	checkRevoked bool
)

var inspectCmd = &cobra.Command{
	Use:   "inspect-cert [file]",
	Short: "Inspect an A1 certificate container",
	Long: `Open a PKCS#12 (.pfx/.p12) certificate container and show the holder
subject, issuing authority, validity window and tax ID.

Failures are reported by kind: wrong password, invalid container,
unreadable file, timeout or missing openssl tool.

Examples:
  mdfe-builder inspect-cert empresa.pfx --password <password>
  MDFE_CERT_PASSWORD=<password> mdfe-builder inspect-cert empresa.pfx -f table
  mdfe-builder inspect-cert empresa.pfx --backend openssl --timeout 10s
  mdfe-builder inspect-cert empresa.pfx --check-revocation`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().StringVarP(&certPassword, "password", "p", "", "Certificate password (env: MDFE_CERT_PASSWORD)")
	inspectCmd.Flags().StringVar(&certBackend, "backend", "", "Inspector backend (native, openssl)")
	inspectCmd.Flags().DurationVar(&certTimeout, "timeout", 0, "Inspection timeout (default from config)")
	inspectCmd.Flags().BoolVar(&checkRevoked, "check-revocation", false, "Ask the certificate's OCSP responders for its revocation status")
}

// applyCertificateFlags copies inspector overrides into the loaded config
func applyCertificateFlags() {
	if certPassword == "" {
		certPassword = os.Getenv("MDFE_CERT_PASSWORD")
	}
	if certBackend != "" {
		cfg.Certificate.Backend = certBackend
	}
	if certTimeout > 0 {
		cfg.Certificate.Timeout = certTimeout
	}
	if checkRevoked {
		cfg.Certificate.CheckRevocation = true
	}
}

func runInspect(cmd *cobra.Command, args []string) error {
	if err := checkFormat(); err != nil {
		return err
	}
	applyCertificateFlags()

	p, err := newPipeline()
	if err != nil {
		return err
	}

	printVerbose("Inspecting: %s\n", args[0])
	info, err := inspectCertificate(cmd.Context(), p, pipeline.NewSession(nil), args[0])
	if err != nil {
		return err
	}

	if outputFormat == "json" {
		return writeJSON(os.Stdout, info)
	}
	return printCertificate(info)
}

// inspectCertificate runs the inspector and turns credential failures into
// their user-facing message
func inspectCertificate(ctx context.Context, p *pipeline.Pipeline, s *pipeline.Session, path string) (*model.CertificateInfo, error) {
	info, err := p.InspectCertificate(ctx, s, path, certPassword)
	if err != nil {
		var credErr *certificate.CredentialError
		if errors.As(err, &credErr) {
			printVerbose("  %v\n", err)
			return nil, errors.New(credErr.UserMessage())
		}
		return nil, err
	}
	return info, nil
}

func printCertificate(info *model.CertificateInfo) error {
	now := time.Now()
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Subject:\t%s\n", info.SubjectDN)
	fmt.Fprintf(tw, "Issuer:\t%s\n", info.IssuerDN)
	if info.SerialNumber != "" {
		fmt.Fprintf(tw, "Serial:\t%s\n", info.SerialNumber)
	}
	fmt.Fprintf(tw, "Valid from:\t%s\n", info.ValidFrom.Format(time.RFC3339))
	fmt.Fprintf(tw, "Valid to:\t%s\n", info.ValidTo.Format(time.RFC3339))
	if info.Expired(now) {
		fmt.Fprintf(tw, "Status:\tEXPIRED\n")
	} else {
		fmt.Fprintf(tw, "Status:\tvalid (%d days remaining)\n", info.DaysRemaining(now))
	}
	if info.TaxID != "" {
		fmt.Fprintf(tw, "Tax ID:\t%s\n", info.TaxID)
	}
	if info.LegalName != "" {
		fmt.Fprintf(tw, "Legal name:\t%s\n", info.LegalName)
	}
	if info.ChainTrusted != nil {
		fmt.Fprintf(tw, "Chain trusted:\t%t\n", *info.ChainTrusted)
	}
	if info.Revocation != "" {
		fmt.Fprintf(tw, "Revocation:\t%s\n", info.Revocation)
	}
	return tw.Flush()
}
