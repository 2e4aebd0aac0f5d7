package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rezonia/mdfe-builder/internal/config"
	"github.com/rezonia/mdfe-builder/internal/pipeline"
)

var (
	version = "1.0.0"

	// Global flags
	verbose      bool
	outputFormat string
	configFile   string
	envFile      string

	cfg       config.Config
	configErr error
)

var rootCmd = &cobra.Command{
	Use:   "mdfe-builder",
	Short: "Assemble and validate MDF-e cargo manifests",
	Long: `MDF-e Builder prepares Brazilian electronic cargo manifests (MDF-e) from
the issuer's A1 certificate and the NF-e invoices being transported.

Supports:
  - A1 certificates in PKCS#12 containers (native or openssl backend)
  - NF-e invoice XML (nfeProc or bare NFe)
  - Road, air, waterway and rail modals

Examples:
  # Inspect a certificate
  mdfe-builder inspect-cert empresa.pfx --password <password>

  # Import invoices into a form
  mdfe-builder import invoices/ --form form.json

  # Validate a form
  mdfe-builder validate form.json -f table

  # Generate the manifest document
  mdfe-builder generate form.json --cert empresa.pfx --password <password> -o mdfe.json`,
	Version: version,
}

// Execute runs the root command; SIGINT and SIGTERM cancel its context
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "format", "f", "json", "Output format (json, table)")
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "YAML configuration file (env: MDFE_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file with MDFE_* overrides (default: .env when present)")

	cobra.OnInitialize(initConfig)
}

func initConfig() {
	if configFile == "" {
		configFile = os.Getenv("MDFE_CONFIG")
	}

	var opts []config.Option
	if envFile != "" {
		opts = append(opts, config.WithEnvFile(envFile))
	}
	cfg, configErr = config.Load(configFile, opts...)
}

// newLogger writes structured logs to stderr; verbose lowers the level to debug
func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// newPipeline builds the pipeline from the loaded configuration
func newPipeline() (*pipeline.Pipeline, error) {
	if configErr != nil {
		return nil, fmt.Errorf("load config: %w", configErr)
	}
	printVerbose("Certificate backend: %s, registry lookup: %t\n", cfg.Certificate.Backend, cfg.Registry.Enabled)
	return pipeline.NewFromConfig(cfg, pipeline.WithLogger(newLogger()))
}

func printVerbose(format string, args ...interface{}) {
	if verbose {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}
