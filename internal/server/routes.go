package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func (s *Server) RegisterRoutes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(s.SessionMiddleware)

	if s.config.Env == "dev" || s.config.Env == "development" {
		r.Use(middleware.NoCache)
	}

	// CORS configuration; the share surface is fetched cross-origin.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"https://*", "http://*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	// Health check
	r.Get("/health", s.healthHandler)

	// Upload routes
	r.Route("/upload", func(r chi.Router) {
		r.Post("/", s.fileHandler.HandleUpload)
		r.Post("/bulk", s.fileHandler.HandleBulkUpload)
	})

	// Download and share links
	r.Get("/download/{fileID}", s.fileHandler.HandleDownload)
	r.Get("/share/{fileID}", s.fileHandler.HandleShare)
	r.Get("/f/*", s.fileHandler.HandleServeObject)

	// File listing and deletion
	r.Route("/files", func(r chi.Router) {
		r.Get("/", s.fileHandler.HandleListFiles)
		r.Delete("/{fileID}", s.fileHandler.HandleDeleteFile)
	})

	// Statistics
	r.Get("/stats", s.fileHandler.HandleStats)

	return r
}
