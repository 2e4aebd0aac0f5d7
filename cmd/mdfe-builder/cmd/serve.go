package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/rezonia/mdfe-builder/internal/server"
)

var (
	serverAddr   string
	serverDebug  bool
	readTimeout  time.Duration
	writeTimeout time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start an HTTP API server exposing the manifest pipeline.

The API provides endpoints for:
  - POST /api/v1/certificates/inspect - Inspect a certificate (multipart: file, password)
  - POST /api/v1/invoices/extract     - Extract one NF-e invoice (raw XML body)
  - POST /api/v1/forms/validate       - Validate a form
  - POST /api/v1/documents/generate   - Validate and assemble the document
  - GET  /health                      - Health check

Examples:
  # Start server on default port
  mdfe-builder serve

  # Start on custom port with a config file
  mdfe-builder serve --address :9090 --config mdfe.yaml

  # Start in debug mode
  mdfe-builder serve --debug`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serverAddr, "address", "", "Server listen address (default from config, :8080)")
	serveCmd.Flags().BoolVar(&serverDebug, "debug", false, "Enable debug mode")
	serveCmd.Flags().DurationVar(&readTimeout, "read-timeout", 0, "HTTP read timeout (default from config, 30s)")
	serveCmd.Flags().DurationVar(&writeTimeout, "write-timeout", 0, "HTTP write timeout (default from config, 5m)")
}

func runServe(cmd *cobra.Command, args []string) error {
	p, err := newPipeline()
	if err != nil {
		return err
	}

	sc := cfg.Server
	if serverAddr != "" {
		sc.Address = serverAddr
	}
	if serverDebug {
		sc.Debug = true
	}
	if readTimeout > 0 {
		sc.ReadTimeout = readTimeout
	}
	if writeTimeout > 0 {
		sc.WriteTimeout = writeTimeout
	}

	srv := server.NewServer(&server.Config{
		Address:        sc.Address,
		ReadTimeout:    sc.ReadTimeout,
		WriteTimeout:   sc.WriteTimeout,
		MaxUploadBytes: sc.MaxUploadBytes,
		Debug:          sc.Debug,
		Logger:         newLogger(),
		Pipeline:       p,
	})

	httpSrv := &http.Server{
		Addr:         sc.Address,
		Handler:      srv.Handler(),
		ReadTimeout:  sc.ReadTimeout,
		WriteTimeout: sc.WriteTimeout,
	}

	// Handle graceful shutdown
	go func() {
		<-cmd.Context().Done()
		fmt.Println("\nShutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(ctx)
	}()

	fmt.Printf("Starting server on %s\n", sc.Address)
	if cfg.Registry.Enabled {
		fmt.Printf("Issuer lookup enabled (%s)\n", cfg.Registry.BaseURL)
	} else {
		fmt.Println("Issuer lookup disabled")
	}

	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
