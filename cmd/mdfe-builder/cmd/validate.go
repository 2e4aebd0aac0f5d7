package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rezonia/mdfe-builder/internal/model"
	"github.com/rezonia/mdfe-builder/internal/pipeline"
	"github.com/rezonia/mdfe-builder/internal/validation"
)

var validateCmd = &cobra.Command{
	Use:   "validate [form.json]",
	Short: "Validate a manifest form",
	Long: `Run every validation rule against a saved form and report the
violations grouped by tab, in tab order.

Checks performed:
  - Documents: at least one invoice
  - Transport: modal-specific vehicle, aircraft, vessel or train data
  - Drivers: at least one complete driver for road transport
  - Route: loading and unloading state and municipality
  - Freight: contractor, contract value, payment method and routing
  - Insurance: responsible party, insurer, policy and endorsement

Examples:
  mdfe-builder validate form.json
  mdfe-builder validate form.json -f table`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

// ValidationReport is the JSON output of validate
type ValidationReport struct {
	File     string                  `json:"file"`
	Valid    bool                    `json:"valid"`
	FirstTab model.Tab               `json:"first_tab,omitempty"`
	Errors   []model.ValidationError `json:"errors"`
}

func runValidate(cmd *cobra.Command, args []string) error {
	if err := checkFormat(); err != nil {
		return err
	}

	form, err := readForm(args[0])
	if err != nil {
		return err
	}

	p, err := newPipeline()
	if err != nil {
		return err
	}

	errs := p.Validate(pipeline.NewSession(form))
	report := ValidationReport{File: args[0], Valid: len(errs) == 0, Errors: errs}
	if tab, ok := validation.FirstTab(errs); ok {
		report.FirstTab = tab
	}

	if outputFormat == "json" {
		if err := writeJSON(os.Stdout, report); err != nil {
			return err
		}
	} else {
		printValidation(report)
	}

	if !report.Valid {
		return fmt.Errorf("validation failed with %d error(s)", len(errs))
	}
	return nil
}

func printValidation(report ValidationReport) {
	if report.Valid {
		fmt.Printf("✓ %s: VALID\n", report.File)
		return
	}

	fmt.Printf("✗ %s: INVALID (start at the %s tab)\n", report.File, report.FirstTab)
	byTab := validation.ByTab(report.Errors)
	for _, tab := range model.Tabs {
		errs := byTab[tab]
		if len(errs) == 0 {
			continue
		}
		fmt.Printf("  [%s]\n", tab)
		for _, e := range errs {
			fmt.Printf("    - %s: %s\n", e.Field, e.Message)
		}
	}
}
