// Package server exposes the manifest pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/rezonia/mdfe-builder/internal/certificate"
	"github.com/rezonia/mdfe-builder/internal/model"
	"github.com/rezonia/mdfe-builder/internal/pipeline"
	"github.com/rezonia/mdfe-builder/internal/validation"
)

// RequestIDHeader carries the request ID in both directions
const RequestIDHeader = "X-Request-ID"

// Request timeouts
const (
	inspectTimeout  = 60 * time.Second
	generateTimeout = 30 * time.Second
)

// Config holds server configuration
type Config struct {
	Address        string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxUploadBytes int64
	Debug          bool

	// Logger defaults to slog.Default()
	Logger *slog.Logger

	// Pipeline defaults to pipeline.New with the server logger
	Pipeline *pipeline.Pipeline
}

// Server represents the HTTP API server
type Server struct {
	config   *Config
	router   *gin.Engine
	pipeline *pipeline.Pipeline
	logger   *slog.Logger
}

// NewServer creates a new API server
func NewServer(config *Config) *Server {
	if !config.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	p := config.Pipeline
	if p == nil {
		p = pipeline.New(pipeline.WithLogger(logger))
	}
	if config.MaxUploadBytes <= 0 {
		config.MaxUploadBytes = 10 << 20
	}

	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		config:   config,
		router:   router,
		pipeline: p,
		logger:   logger,
	}
	router.Use(s.requestLogger())

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	// Health check
	s.router.GET("/health", s.handleHealth)

	// API v1
	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/certificates/inspect", s.handleInspectCertificate)
		v1.POST("/invoices/extract", s.handleExtractInvoice)
		v1.POST("/forms/validate", s.handleValidateForm)
		v1.POST("/documents/generate", s.handleGenerate)
	}
}

// Run starts the HTTP server
func (s *Server) Run() error {
	srv := &http.Server{
		Addr:         s.config.Address,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}
	return srv.ListenAndServe()
}

// Handler returns the http.Handler for use with custom servers
func (s *Server) Handler() http.Handler {
	return s.router
}

// requestLogger tags every request with an ID and logs it once it completes
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(RequestIDHeader, id)

		start := time.Now()
		c.Next()

		level := slog.LevelInfo
		if c.Writer.Status() >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		s.logger.Log(c.Request.Context(), level, "http request",
			"request_id", id,
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleInspectCertificate(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.config.MaxUploadBytes)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "multipart field \"file\" is required"})
		return
	}
	password := c.PostForm("password")

	upload, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "failed to read uploaded file"})
		return
	}
	defer upload.Close()

	tmp, err := os.CreateTemp("", "mdfe-cert-*.pfx")
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to stage uploaded file"})
		return
	}
	defer os.Remove(tmp.Name())

	_, err = io.Copy(tmp, upload)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to stage uploaded file"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), inspectTimeout)
	defer cancel()

	session := pipeline.NewSession(nil)
	info, err := s.pipeline.InspectCertificate(ctx, session, tmp.Name(), password)
	if err != nil {
		s.credentialError(c, err)
		return
	}

	now := time.Now()
	c.JSON(http.StatusOK, CertificateResponse{
		Certificate:   info,
		Expired:       info.Expired(now),
		DaysRemaining: info.DaysRemaining(now),
	})
}

// credentialError maps each credential failure kind to its own status so
// clients can tell a wrong password from a timeout
func (s *Server) credentialError(c *gin.Context, err error) {
	var credErr *certificate.CredentialError
	if !errors.As(err, &credErr) {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "certificate inspection failed", Details: err.Error()})
		return
	}

	status := http.StatusUnprocessableEntity
	switch credErr.Kind {
	case certificate.KindWrongPassword:
		status = http.StatusUnauthorized
	case certificate.KindTimeout:
		status = http.StatusGatewayTimeout
	case certificate.KindToolUnavailable:
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, ErrorResponse{Error: credErr.UserMessage(), Kind: credErr.Kind})
}

func (s *Server) handleExtractInvoice(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.config.MaxUploadBytes)

	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "failed to read request body"})
		return
	}

	if len(body) == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "empty request body"})
		return
	}

	record, err := s.pipeline.Extractor().ExtractOne(body)
	if err != nil {
		resp := ErrorResponse{Error: "invoice parsing failed", Details: err.Error()}
		var parseErr *model.ParseError
		if errors.As(err, &parseErr) {
			resp.Field = parseErr.Field
		}
		c.JSON(http.StatusUnprocessableEntity, resp)
		return
	}
	if record == nil {
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: "document is not an NF-e invoice"})
		return
	}

	c.JSON(http.StatusOK, InvoiceResponse{Invoice: record})
}

func (s *Server) handleValidateForm(c *gin.Context) {
	var form model.FormState
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid form payload", Details: err.Error()})
		return
	}

	errs := s.pipeline.Validate(pipeline.NewSession(&form))
	c.JSON(http.StatusOK, validationResponse(errs))
}

func (s *Server) handleGenerate(c *gin.Context) {
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid generate payload", Details: err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), generateTimeout)
	defer cancel()

	session := pipeline.NewSession(&req.Form)
	session.Certificate = req.Certificate

	doc, err := s.pipeline.Generate(ctx, session)
	if err != nil {
		var pre *pipeline.PreconditionError
		if errors.As(err, &pre) {
			c.JSON(http.StatusUnprocessableEntity, validationResponse(pre.Violations))
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "document generation failed", Details: err.Error()})
		return
	}

	c.JSON(http.StatusOK, GenerateResponse{Document: doc})
}

func validationResponse(errs []model.ValidationError) ValidationResponse {
	resp := ValidationResponse{Valid: len(errs) == 0, Errors: errs}
	if tab, ok := validation.FirstTab(errs); ok {
		resp.FirstTab = tab
	}
	return resp
}
