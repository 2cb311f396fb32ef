package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/randalmurphal/supportflow/auth"
	"github.com/randalmurphal/supportflow/workflow"
)

// Runner executes and inspects ticket runs. *workflow.Orchestrator
// satisfies it.
type Runner interface {
	Run(ctx context.Context, ticket workflow.Ticket) (*workflow.Outcome, error)
	Resume(ctx context.Context, runID string) (*workflow.Outcome, error)
	Checkpoint(ctx context.Context, runID string) (*workflow.Snapshot, error)
}

// Config configures the HTTP API.
type Config struct {
	// Addr is the listen address (default ":8080").
	Addr string

	// Auth enables bearer token authentication on /api/v1. Nil disables it.
	Auth *auth.JWTConfig

	// Gatherer serves /metrics. Nil uses prometheus.DefaultGatherer.
	Gatherer prometheus.Gatherer

	// Logger receives request logs. Nil uses slog.Default.
	Logger *slog.Logger
}

// Server is the supportflow HTTP API.
type Server struct {
	echo   *echo.Echo
	runner Runner
	cfg    Config
	logger *slog.Logger
}

// New creates a server around runner.
func New(runner Runner, cfg Config) (*Server, error) {
	if runner == nil {
		return nil, errors.New("runner cannot be nil")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Auth != nil && len(cfg.Auth.Secret) < 32 {
		return nil, auth.ErrSecretTooShort
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(requestLogger(cfg.Logger))

	s := &Server{
		echo:   e,
		runner: runner,
		cfg:    cfg,
		logger: cfg.Logger,
	}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.cfg.Gatherer, promhttp.HandlerOpts{})))

	v1 := s.echo.Group("/api/v1")
	if s.cfg.Auth != nil {
		v1.Use(bearerAuth(*s.cfg.Auth))
	}
	v1.POST("/tickets", s.handleSubmit, s.requireScope(auth.ScopeSubmit))
	v1.GET("/runs/:id", s.handleGetRun, s.requireScope(auth.ScopeRead))
	v1.POST("/runs/:id/resume", s.handleResume, s.requireScope(auth.ScopeResume))
}

// Handler returns the HTTP handler, for embedding or tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens on Config.Addr. It returns http.ErrServerClosed after
// Shutdown.
func (s *Server) Start() error {
	s.logger.Info("starting http server", "addr", s.cfg.Addr, "auth", s.cfg.Auth != nil)
	return s.echo.Start(s.cfg.Addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}

// =============================================================================
// Request and response bodies
// =============================================================================

// TicketRequest is the body of POST /api/v1/tickets.
type TicketRequest struct {
	Subject     string `json:"subject"`
	Description string `json:"description"`
}

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
	RunID string `json:"run_id,omitempty"`
	Stage string `json:"stage,omitempty"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string    `json:"status"`
	Time   time.Time `json:"time"`
}

// RunView is the body of GET /api/v1/runs/:id.
type RunView struct {
	RunID     string            `json:"run_id"`
	NextStage workflow.Stage    `json:"next_stage"`
	Finished  bool              `json:"finished"`
	Status    workflow.Status   `json:"status"`
	Category  workflow.Category `json:"category"`
	Retries   int               `json:"retries"`
	Drafts    int               `json:"drafts"`
	UpdatedAt time.Time         `json:"updated_at"`
	State     workflow.State    `json:"state"`
}

// =============================================================================
// Handlers
// =============================================================================

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok", Time: time.Now().UTC()})
}

// handleSubmit runs a ticket to completion within the request. A client
// disconnect interrupts the run, which can be resumed later.
func (s *Server) handleSubmit(c echo.Context) error {
	var req TicketRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}

	out, err := s.runner.Run(c.Request().Context(), workflow.Ticket{
		Subject:     req.Subject,
		Description: req.Description,
	})
	if err != nil {
		return s.runError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// handleResume continues a checkpointed run. A run that is still being
// driven, by a submit or another resume, gets 409.
func (s *Server) handleResume(c echo.Context) error {
	out, err := s.runner.Resume(c.Request().Context(), c.Param("id"))
	if err != nil {
		return s.runError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) handleGetRun(c echo.Context) error {
	snap, err := s.runner.Checkpoint(c.Request().Context(), c.Param("id"))
	if err != nil {
		return s.runError(c, err)
	}
	return c.JSON(http.StatusOK, RunView{
		RunID:     snap.RunID,
		NextStage: snap.Next,
		Finished:  snap.Next == workflow.StageEnd,
		Status:    snap.State.Status,
		Category:  snap.State.Category,
		Retries:   snap.State.Retries,
		Drafts:    len(snap.State.Drafts),
		UpdatedAt: snap.UpdatedAt,
		State:     snap.State,
	})
}

// runError maps pipeline errors to responses.
func (s *Server) runError(c echo.Context, err error) error {
	var (
		validation  *workflow.ValidationError
		interrupted *workflow.InterruptedError
	)
	switch {
	case errors.As(err, &validation):
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Field: validation.Field})
	case errors.Is(err, workflow.ErrRunNotFound):
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error(), RunID: c.Param("id")})
	case errors.Is(err, workflow.ErrRunInProgress):
		return c.JSON(http.StatusConflict, ErrorResponse{Error: "run already in progress", RunID: c.Param("id")})
	case errors.As(err, &interrupted):
		return c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error: "run interrupted; resume it later",
			RunID: interrupted.RunID,
			Stage: string(interrupted.Stage),
		})
	}
	s.logger.Error("run failed", "error", err, "requestId", c.Response().Header().Get(echo.HeaderXRequestID))
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}
