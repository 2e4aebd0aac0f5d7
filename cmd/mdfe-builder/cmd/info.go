package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rezonia/mdfe-builder/internal/model"
	"github.com/rezonia/mdfe-builder/internal/nfe"
)

var infoCmd = &cobra.Command{
	Use:   "info [files...]",
	Short: "Show information about input files",
	Long: `Display information about input files without running the pipeline.

Shows:
  - Detected file kind (NF-e invoice, other XML, PKCS#12 container, form)
  - Invoice access key, number, value and destination
  - Form modal and attached invoice count
  - File metadata

Examples:
  mdfe-builder info nfe.xml
  mdfe-builder info invoices/ empresa.pfx form.json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

// FileKind classifies an input file
type FileKind string

const (
	KindInvoice     FileKind = "NF-e invoice"
	KindXML         FileKind = "XML (not an NF-e)"
	KindCertificate FileKind = "PKCS#12 certificate container"
	KindForm        FileKind = "Manifest form (JSON)"
	KindUnknown     FileKind = "Unknown"
)

func runInfo(cmd *cobra.Command, args []string) error {
	files, err := collectFiles(args)
	if err != nil {
		return err
	}

	if len(files) == 0 {
		return fmt.Errorf("no files found")
	}

	extractor := nfe.NewExtractor(nfe.WithLogger(newLogger()))
	for _, file := range files {
		printFileInfo(extractor, file)
		fmt.Println()
	}

	return nil
}

func detectKind(path string, data []byte) FileKind {
	trimmed := bytes.TrimSpace(data)
	switch {
	case nfe.IsInvoice(data):
		return KindInvoice
	case bytes.HasPrefix(trimmed, []byte("<")):
		return KindXML
	case bytes.HasPrefix(trimmed, []byte("{")):
		return KindForm
	}

	// PKCS#12 is a DER SEQUENCE; the extension settles it
	ext := strings.ToLower(filepath.Ext(path))
	if len(data) > 0 && data[0] == 0x30 && (ext == ".pfx" || ext == ".p12") {
		return KindCertificate
	}
	return KindUnknown
}

func printFileInfo(extractor *nfe.Extractor, filePath string) {
	fmt.Printf("File: %s\n", filePath)

	info, err := os.Stat(filePath)
	if err != nil {
		fmt.Printf("  Error: %v\n", err)
		return
	}

	fmt.Printf("  Size: %d bytes\n", info.Size())
	fmt.Printf("  Modified: %s\n", info.ModTime().Format("2006-01-02 15:04:05"))

	data, err := os.ReadFile(filePath)
	if err != nil {
		fmt.Printf("  Error reading file: %v\n", err)
		return
	}

	kind := detectKind(filePath, data)
	fmt.Printf("  Kind: %s\n", kind)

	switch kind {
	case KindInvoice:
		rec, err := extractor.ExtractOne(data)
		if err != nil {
			fmt.Printf("  Error: %v\n", err)
			return
		}
		if rec == nil {
			return
		}
		fmt.Printf("  Access key: %s\n", rec.AccessKey)
		fmt.Printf("  Number/series: %s/%s\n", rec.Number, rec.Series)
		fmt.Printf("  Issuer: %s\n", rec.IssuerName)
		fmt.Printf("  Value: %s\n", rec.TotalValue.StringFixed(2))
		fmt.Printf("  Gross weight: %s kg\n", rec.GrossWeight.StringFixed(3))
		if rec.HasDestination() {
			fmt.Printf("  Destination: %s/%s\n", rec.Destination.Municipality, rec.Destination.State)
		}

	case KindForm:
		var form model.FormState
		if err := json.Unmarshal(data, &form); err != nil {
			fmt.Printf("  Error: %v\n", err)
			return
		}
		modal := form.ModalName()
		if modal == "" {
			modal = "(not selected)"
		}
		fmt.Printf("  Modal: %s\n", modal)
		fmt.Printf("  Invoices: %d\n", len(form.Documents.Invoices))

	case KindXML:
		if preview := getPreview(string(data), 200); preview != "" {
			fmt.Printf("  Preview: %s\n", preview)
		}
	}
}

func getPreview(content string, maxLen int) string {
	// Remove XML declaration
	if idx := strings.Index(content, "?>"); idx >= 0 {
		content = content[idx+2:]
	}

	content = strings.Join(strings.Fields(content), " ")

	if len(content) > maxLen {
		content = content[:maxLen] + "..."
	}

	return content
}
