package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/rs/zerolog/log"

	"github.com/NiceTop1027/file.dyhs.kr/internal/config"
	"github.com/NiceTop1027/file.dyhs.kr/internal/fileshare"
	"github.com/NiceTop1027/file.dyhs.kr/internal/localstore"
	"github.com/NiceTop1027/file.dyhs.kr/internal/storage"
)

// Server represents the HTTP server and its dependencies
type Server struct {
	config      *config.Config
	backend     *localstore.Store
	provider    storage.Provider
	fileService *fileshare.Service
	fileHandler *fileshare.Handler
}

// NewServer wires the metadata store, storage provider and file
// service together and starts the recurring cleanup sweep.
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	backend, err := localstore.New(cfg.MetadataFile)
	if err != nil {
		return nil, fmt.Errorf("initializing metadata backend: %w", err)
	}

	provider, err := storage.NewProvider(cfg.Storage, cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("initializing storage provider: %w", err)
	}

	store := fileshare.NewStore(backend)
	fileService := fileshare.NewService(store, provider, cfg)
	fileService.StartAutoCleanup(ctx, cfg.CleanupInterval)

	return &Server{
		config:      cfg,
		backend:     backend,
		provider:    provider,
		fileService: fileService,
		fileHandler: fileshare.NewHandler(fileService),
	}, nil
}

// Start initializes the HTTP server
func (s *Server) Start() (*http.Server, error) {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	log.Info().
		Int("port", s.config.Port).
		Str("env", s.config.Env).
		Msg("starting server")

	return srv, nil
}

// Close stops the cleanup worker and releases the storage provider.
func (s *Server) Close() {
	s.fileService.StopAutoCleanup()
	if err := s.provider.Close(); err != nil {
		log.Error().Err(err).Msg("error closing storage provider")
	}
}

// sendJSON sends a JSON response with consistent formatting
func (s *Server) sendJSON(w http.ResponseWriter, status int, success bool, message string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := APIResponse{
		Success: success,
		Message: message,
		Data:    data,
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Error().Err(err).Msg("error encoding JSON response")
	}
}
