// Package api provides the HTTP REST API server.
package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/good-yellow-bee/firewatch/internal/analysis"
	"github.com/good-yellow-bee/firewatch/internal/notifier"
	"github.com/good-yellow-bee/firewatch/internal/settings"
	"github.com/good-yellow-bee/firewatch/internal/storage"
)

// Config contains HTTP API server configuration.
type Config struct {
	Address        string
	RateLimitPerIP int           // intake requests per minute per source IP
	QueryTimeout   time.Duration // timeout for storage-backed read calls
	Verbose        bool
}

// SetDefaults applies default values for missing configuration.
func (c *Config) SetDefaults() {
	if c.Address == "" {
		c.Address = ":8080"
	}
	if c.RateLimitPerIP == 0 {
		c.RateLimitPerIP = 300
	}
	if c.QueryTimeout == 0 {
		c.QueryTimeout = 10 * time.Second
	}
}

// Server is the HTTP API server.
type Server struct {
	config     *Config
	storage    storage.Storage
	analyzer   *analysis.Analyzer
	dispatcher notifier.Notifier
	settings   *settings.Store
	server     *http.Server
}

// New creates a new API server.
func New(cfg *Config, store storage.Storage, analyzer *analysis.Analyzer, dispatcher notifier.Notifier, st *settings.Store) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if store == nil {
		return nil, fmt.Errorf("storage is required")
	}
	if analyzer == nil {
		return nil, fmt.Errorf("analyzer is required")
	}
	if st == nil {
		return nil, fmt.Errorf("settings store is required")
	}

	cfg.SetDefaults()

	s := &Server{
		config:     cfg,
		storage:    store,
		analyzer:   analyzer,
		dispatcher: dispatcher,
		settings:   st,
	}

	router := s.setupRouter()

	s.server = &http.Server{
		Addr:         cfg.Address,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Run starts the HTTP server and blocks until context is canceled.
func (s *Server) Run(ctx context.Context) error {
	errChan := make(chan error, 1)

	go func() {
		log.Printf("HTTP API listening on %s", s.config.Address)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Printf("shutting down HTTP API server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errChan:
		return err
	}
}

// Address returns the configured listen address.
func (s *Server) Address() string {
	return s.config.Address
}
