// Package server implements the knowledge-base HTTP service: fuzzy document
// search over a directory of JSON documents.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

// Config holds knowledge-base service configuration.
type Config struct {
	Addr      string
	DataDir   string
	Threshold float64 // relevance threshold, default 60
	// RateLimit caps /search requests per second per client; 0 disables.
	RateLimit rate.Limit
}

// Server is the knowledge-base HTTP service.
type Server struct {
	echo  *echo.Echo
	store *Store
	addr  string
}

// New loads the document store and builds the service.
func New(cfg Config) (*Server, error) {
	store, err := LoadStore(cfg.DataDir, cfg.Threshold)
	if err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	if cfg.RateLimit > 0 {
		e.Use(middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
			Store: middleware.NewRateLimiterMemoryStore(cfg.RateLimit),
		}))
	}

	s := &Server{echo: e, store: store, addr: cfg.Addr}
	e.POST("/search", s.handleSearch)
	e.GET("/healthz", s.handleHealth)
	return s, nil
}

type searchRequest struct {
	Query string `json:"query"`
}

func (s *Server) handleSearch(c echo.Context) error {
	var req searchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query is required")
	}

	start := time.Now()
	result := s.store.Search(req.Query)
	slog.Info("knowledge-base: search",
		"query", req.Query,
		"results", len(result.Results),
		"highest_score", result.HighestScore,
		"duration", time.Since(start),
	)
	return c.JSON(http.StatusOK, result)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":         "ok",
		"document_count": s.store.Count(),
	})
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	slog.Info("knowledge-base: listening", "addr", s.addr)
	if err := s.echo.Start(s.addr); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("knowledge-base server: %w", err)
	}
	return nil
}

// Shutdown stops the service gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
