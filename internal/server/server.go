package server

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/matijav64/eslog-processor/internal/ledger"
	"github.com/matijav64/eslog-processor/internal/model"
	"github.com/matijav64/eslog-processor/internal/parser/eslog"
	"github.com/matijav64/eslog-processor/internal/reconcile"
)

// Config holds server configuration
type Config struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Debug        bool
	Reconcile    reconcile.Options
	Logger       zerolog.Logger
}

// Server represents the HTTP API server
type Server struct {
	config *Config
	router *gin.Engine
	parser *eslog.Parser
	log    zerolog.Logger
}

// NewServer creates a new API server
func NewServer(config *Config) *Server {
	if !config.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	if config.Debug {
		router.Use(gin.Logger())
	}

	s := &Server{
		config: config,
		router: router,
		parser: eslog.NewParser(eslog.Options{
			BaseTolerance: config.Reconcile.BaseTolerance,
			MaxTolerance:  config.Reconcile.MaxTolerance,
		}),
		log: config.Logger,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	// Health check
	s.router.GET("/health", s.handleHealth)

	// API v1
	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/parse", s.handleParse)
		v1.POST("/totals", s.handleTotals)
		v1.POST("/validate", s.handleValidate)
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
	s.log.Info().Str("address", s.config.Address).Msg("starting API server")
	return srv.ListenAndServe()
}

// Handler returns the http.Handler for use with custom servers
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// readInvoice parses the request body as an eSLOG document. It writes the
// error response itself and returns nil when the request is unusable.
func (s *Server) readInvoice(c *gin.Context) *model.Invoice {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return nil
	}
	if len(body) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty request body"})
		return nil
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	inv, err := s.parser.Parse(ctx, bytes.NewReader(body))
	if err != nil {
		s.log.Warn().Err(err).Msg("parse failed")
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return nil
	}
	return inv
}

// handleParse returns the full reconciled ledger. A reconciliation
// mismatch is still a 200: the caller gets the ledger plus a needs_review
// flag instead of an error.
func (s *Server) handleParse(c *gin.Context) {
	inv := s.readInvoice(c)
	if inv == nil {
		return
	}

	res := reconcile.Reconcile(inv, s.config.Reconcile)
	merged := ledger.Merge(res.Lines)

	c.JSON(http.StatusOK, ParseResponse{
		Invoice:     inv,
		Ledger:      merged,
		Summary:     ledger.Summarize(merged),
		Result:      res,
		NeedsReview: !res.OK,
	})
}

func (s *Server) handleTotals(c *gin.Context) {
	inv := s.readInvoice(c)
	if inv == nil {
		return
	}

	res := reconcile.Reconcile(inv, s.config.Reconcile)

	c.JSON(http.StatusOK, TotalsResponse{
		Net:         res.ComputedNet,
		VAT:         res.ComputedVAT,
		Gross:       res.ComputedGross,
		Header:      res.HeaderTotals,
		Tolerance:   res.Tolerance,
		OK:          res.OK,
		NeedsReview: !res.OK,
		Warnings:    res.Warnings,
	})
}

func (s *Server) handleValidate(c *gin.Context) {
	inv := s.readInvoice(c)
	if inv == nil {
		return
	}

	res := reconcile.Reconcile(inv, s.config.Reconcile)
	errors, warnings := validateInvoice(inv, res)

	c.JSON(http.StatusOK, ValidationResponse{
		Valid:    len(errors) == 0 && res.OK,
		Errors:   errors,
		Warnings: warnings,
	})
}

func validateInvoice(inv *model.Invoice, res *reconcile.Result) ([]string, []string) {
	var errors, warnings []string

	// Required fields
	if inv.Number == "" {
		errors = append(errors, "missing invoice number")
	}
	if inv.SupplierID == "" {
		errors = append(errors, "missing supplier identifier")
	}
	if inv.ServiceDate == "" {
		warnings = append(warnings, "missing service date")
	}
	if inv.HeaderTotals.Net.IsZero() && len(inv.Lines) > 0 {
		warnings = append(warnings, "header net is zero or missing")
	}
	if inv.HeaderTotals.Mismatch {
		warnings = append(warnings, "header amounts are internally inconsistent")
	}

	for _, w := range res.Warnings {
		warnings = append(warnings, w.Message)
	}
	return errors, warnings
}
