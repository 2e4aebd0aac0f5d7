package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rezonia/mdfe-builder/internal/model"
	"github.com/rezonia/mdfe-builder/internal/pipeline"
)

var (
	generateCert     string
	generateInvoices []string
	generateOutput   string
)

var generateCmd = &cobra.Command{
	Use:   "generate [form.json]",
	Short: "Generate the MDF-e document from a form",
	Long: `Validate a saved form and, when it is clean, assemble the MDF-e
document structure as JSON.

The issuer comes from the registry record for the certificate's CNPJ when
the lookup is enabled, then the configured tenant issuer, then the
certificate itself.

Examples:
  mdfe-builder generate form.json --cert empresa.pfx --password <password>
  mdfe-builder generate form.json --invoices invoices/ -o mdfe.json
  mdfe-builder generate form.json -f table`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().StringVar(&generateCert, "cert", "", "A1 certificate container (.pfx/.p12)")
	generateCmd.Flags().StringVarP(&certPassword, "password", "p", "", "Certificate password (env: MDFE_CERT_PASSWORD)")
	generateCmd.Flags().StringVar(&certBackend, "backend", "", "Inspector backend (native, openssl)")
	generateCmd.Flags().StringSliceVar(&generateInvoices, "invoices", nil, "Invoice XML files or directories to import before generating")
	generateCmd.Flags().StringVarP(&generateOutput, "output", "o", "", "Output file (default: stdout)")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	if err := checkFormat(); err != nil {
		return err
	}
	applyCertificateFlags()

	form, err := readForm(args[0])
	if err != nil {
		return err
	}

	p, err := newPipeline()
	if err != nil {
		return err
	}

	session := pipeline.NewSession(form)
	if generateCert != "" {
		printVerbose("Inspecting: %s\n", generateCert)
		if _, err := inspectCertificate(cmd.Context(), p, session, generateCert); err != nil {
			return err
		}
	}

	if len(generateInvoices) > 0 {
		files, err := collectFiles(generateInvoices, ".xml")
		if err != nil {
			return err
		}
		batch := p.ImportInvoices(cmd.Context(), session, files)
		printVerbose("Imported %d invoices, skipped %d files\n", len(batch.Records), len(batch.Skipped))
	}

	doc, err := p.Generate(cmd.Context(), session)
	if err != nil {
		var pre *pipeline.PreconditionError
		if errors.As(err, &pre) {
			for _, v := range pre.Violations {
				fmt.Fprintf(os.Stderr, "  - %s.%s: %s\n", v.Tab, v.Field, v.Message)
			}
		}
		return err
	}

	w, closeFn, err := openOutput(generateOutput)
	if err != nil {
		return err
	}
	defer closeFn()

	if outputFormat == "json" {
		return writeJSON(w, doc)
	}
	return printDocument(w, doc)
}

func printDocument(w io.Writer, doc *model.Document) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	id := doc.Identification
	fmt.Fprintf(tw, "Series/number:\t%s/%s\n", id.Series, id.Number)
	fmt.Fprintf(tw, "Control code:\t%s\n", id.ControlCode)
	fmt.Fprintf(tw, "Modal:\t%s\n", id.Modal)
	fmt.Fprintf(tw, "Issued at:\t%s\n", id.IssuedAt)
	fmt.Fprintf(tw, "Issuer:\t%s %s%s\n", doc.Issuer.LegalName, doc.Issuer.CNPJ, doc.Issuer.CPF)
	fmt.Fprintf(tw, "Invoices:\t%s\n", doc.Totals.InvoiceCount)
	fmt.Fprintf(tw, "Cargo value:\t%s\n", doc.Totals.CargoValue)
	fmt.Fprintf(tw, "Cargo quantity:\t%s (unit %s)\n", doc.Totals.CargoQuantity, doc.Totals.UnitCode)
	for _, u := range doc.Index.Unloading {
		fmt.Fprintf(tw, "Unloading:\t%s (%s) %d invoice(s)\n", u.Name, u.Code, len(u.Invoices))
	}
	return tw.Flush()
}
