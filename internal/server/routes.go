package server

import (
	"net/http"
	"strings"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// API routes - status and run control
	mux.HandleFunc("/api/status", s.app.StatusHandler.StatusHandler)
	mux.HandleFunc("/api/run/trigger", s.app.RunHandler.TriggerHandler)
	mux.HandleFunc("/api/run/reset", s.app.RunHandler.ResetHandler)
	mux.HandleFunc("/api/credentials/validate", s.app.RunHandler.ValidateHandler)

	// API routes - service info
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)

	// Catch-all for unknown API paths
	mux.HandleFunc("/api/", s.handleAPIFallback)

	return mux
}

// handleAPIFallback returns JSON 404s for unknown API routes
func (s *Server) handleAPIFallback(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		s.app.APIHandler.NotFoundHandler(w, r)
		return
	}
	http.NotFound(w, r)
}
