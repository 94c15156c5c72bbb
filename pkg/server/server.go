// Package server exposes the variance pipeline and the metadata
// catalog over HTTP: analysis runs, catalog queries, incremental syncs
// with live WebSocket progress, and health.
package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/nirmalj2002/batchlens/pkg/catalog"
	"github.com/nirmalj2002/batchlens/pkg/config"
	"github.com/nirmalj2002/batchlens/pkg/report"
	"github.com/nirmalj2002/batchlens/pkg/variance"
)

var startTime = time.Now()

// Server wires the pipeline components behind the HTTP API.
type Server struct {
	cfg    *config.Config
	src    variance.Source
	store  catalog.Store
	loader *catalog.Loader
	pruner *catalog.Pruner
	hub    *SyncHub

	router *mux.Router
}

// New creates a server over the given components and registers all
// routes. loader may be nil when no lake is configured; the sync
// endpoints then return 503.
func New(cfg *config.Config, src variance.Source, store catalog.Store, loader *catalog.Loader, pruner *catalog.Pruner) *Server {
	s := &Server{
		cfg:    cfg,
		src:    src,
		store:  store,
		loader: loader,
		pruner: pruner,
		hub:    NewSyncHub(),
		router: mux.NewRouter(),
	}
	s.routes()
	return s
}

// Handler returns the root HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	hubCtx, cancelHub := context.WithCancel(ctx)
	defer cancelHub()
	go s.hub.Run(hubCtx)

	srv := &http.Server{
		Addr:         ":" + s.cfg.Server.Port,
		Handler:      s.router,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: config.ServerWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("server listening on :%s", s.cfg.Server.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Println("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) routes() {
	api := s.router.PathPrefix("/v1").Subrouter()

	api.HandleFunc("/analysis/run", s.handleAnalysisRun).Methods("POST")

	api.HandleFunc("/catalog/summary", s.handleCatalogSummary).Methods("GET")
	api.HandleFunc("/catalog/tables", s.handleCatalogTables).Methods("GET")
	api.HandleFunc("/catalog/tables/{table}/dates", s.handleCatalogDates).Methods("GET")
	api.HandleFunc("/catalog/files", s.handleCatalogFiles).Methods("GET")
	api.HandleFunc("/catalog/sync", s.handleCatalogSync).Methods("POST")
	api.HandleFunc("/catalog/sync/ws", s.handleSyncWS).Methods("GET")

	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// ReportSink builds the artifact sink for one run.
func (s *Server) reportSink(runID string) *report.Sink {
	return report.NewSink(s.cfg.Report.Dir + "/" + runID)
}
