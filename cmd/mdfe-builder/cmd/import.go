package cmd

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rezonia/mdfe-builder/internal/model"
	"github.com/rezonia/mdfe-builder/internal/nfe"
	"github.com/rezonia/mdfe-builder/internal/pipeline"
)

var (
	importForm       string
	importOutput     string
	verifySignatures bool
)

var importCmd = &cobra.Command{
	Use:   "import [files...]",
	Short: "Import NF-e invoice XML files",
	Long: `Extract invoice records from NF-e XML files. Directories are walked
for .xml files. Files that are not NF-e invoices, fail to parse or repeat
an access key already imported are reported as skipped.

With --verify-signatures, each invoice's XML signature is checked and the
result is reported; an unverified signature does not skip the file.

With --form, the records are merged into the form's documents tab, the
totalizers are recomputed and the form is written back (or to -o).

Examples:
  mdfe-builder import invoices/
  mdfe-builder import nfe1.xml nfe2.xml -f table
  mdfe-builder import invoices/*.xml --form form.json
  mdfe-builder import invoices/ --verify-signatures -f table`,
	Args: cobra.MinimumNArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().StringVar(&importForm, "form", "", "Form JSON to merge the invoices into")
	importCmd.Flags().StringVarP(&importOutput, "output", "o", "", "Output file (default: stdout, or the form file with --form)")
	importCmd.Flags().BoolVar(&verifySignatures, "verify-signatures", false, "Check each invoice's XML signature")
}

func runImport(cmd *cobra.Command, args []string) error {
	if err := checkFormat(); err != nil {
		return err
	}

	files, err := collectFiles(args, ".xml")
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no files found to import")
	}
	printVerbose("Found %d files to import\n", len(files))

	if cmd.Flags().Changed("verify-signatures") {
		cfg.Invoices.VerifySignatures = verifySignatures
	}

	p, err := newPipeline()
	if err != nil {
		return err
	}

	session := pipeline.NewSession(nil)
	if importForm != "" {
		form, err := readForm(importForm)
		if err != nil {
			return err
		}
		session = pipeline.NewSession(form)
	}

	batch := p.ImportInvoices(cmd.Context(), session, files)
	printVerbose("Imported %d invoices, skipped %d files\n", len(batch.Records), len(batch.Skipped))

	if importForm != "" {
		target := importOutput
		if target == "" {
			target = importForm
		}
		if err := writeForm(target, session.Form); err != nil {
			return err
		}
		if outputFormat == "table" {
			return printBatch(os.Stdout, batch)
		}
		return nil
	}

	w, closeFn, err := openOutput(importOutput)
	if err != nil {
		return err
	}
	defer closeFn()

	if outputFormat == "json" {
		return writeJSON(w, batch)
	}
	return printBatch(w, batch)
}

func printBatch(w io.Writer, batch *nfe.BatchResult) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tACCESS KEY\tNUMBER\tVALUE\tWEIGHT\tDESTINATION\tSIGNATURE")
	fmt.Fprintln(tw, "----\t----------\t------\t-----\t------\t-----------\t---------")

	for _, r := range batch.Records {
		dest := ""
		if r.HasDestination() {
			dest = r.Destination.Municipality + "/" + r.Destination.State
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.SourceFile,
			r.AccessKey,
			r.Number,
			r.TotalValue.StringFixed(2),
			r.GrossWeight.StringFixed(3),
			dest,
			signatureLabel(r.Signature),
		)
	}
	for _, s := range batch.Skipped {
		fmt.Fprintf(tw, "%s\tSKIPPED: %s\t\t\t\t\t\n", s.Path, s.Reason)
	}

	return tw.Flush()
}

func signatureLabel(s *model.SignatureStatus) string {
	switch {
	case s == nil:
		return "-"
	case !s.Present:
		return "unsigned"
	case !s.Valid:
		return "invalid"
	case s.Trusted:
		return "valid, trusted"
	default:
		return "valid"
	}
}
