package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Config holds server configuration
type Config struct {
	Port            int           // Port to listen on
	Env             string        // Environment (development | production)
	BaseURL         string        // Base URL used to build share links
	UploadMaxSize   int64         // Maximum upload size in bytes
	FileTTL         time.Duration // Lifetime of an uploaded file
	CleanupInterval time.Duration // How often the cleanup sweep runs
	RateLimitMax    int           // Allowed uploads per session within the window
	RateLimitWindow time.Duration // Sliding window for the rate limiter
	MetadataFile    string        // Path of the metadata store file
	Storage         StorageConfig
}

func (c *Config) Log() {
	log.Info().
		Int("port", c.Port).
		Str("env", c.Env).
		Str("base_url", c.BaseURL).
		Int64("upload_max_size", c.UploadMaxSize).
		Dur("file_ttl", c.FileTTL).
		Dur("cleanup_interval", c.CleanupInterval).
		Int("rate_limit_max", c.RateLimitMax).
		Dur("rate_limit_window", c.RateLimitWindow).
		Str("metadata_file", c.MetadataFile).
		Str("storage_provider", c.Storage.Provider).
		Msg("server configuration")
}

type StorageConfig struct {
	// Provider type ("local" or "gcs")
	Provider string `json:"provider"`

	// Local storage config
	LocalPath string `json:"local_path,omitempty"`

	// GCS config
	ProjectID  string `json:"project_id,omitempty"`
	BucketName string `json:"bucket_name,omitempty"`
}

// NewConfig creates a server configuration from environment variables
func NewConfig() (*Config, error) {
	port, err := strconv.Atoi(os.Getenv("PORT"))
	if err != nil || port <= 0 {
		log.Error().Err(err).Msg("invalid PORT environment variable")
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "production"
	}

	baseURL := os.Getenv("BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost"
	}

	uploadMaxSizeStr := os.Getenv("UPLOAD_MAX_SIZE")
	if uploadMaxSizeStr == "" {
		uploadMaxSizeStr = "100MB" // Default value
	}
	uploadMaxSize, err := parseUploadMaxSize(uploadMaxSizeStr)
	if err != nil {
		log.Error().Err(err).Msg("invalid UPLOAD_MAX_SIZE configuration")
		return nil, err
	}

	fileTTL, err := parseDuration("FILE_TTL", "5m")
	if err != nil {
		return nil, err
	}

	cleanupInterval, err := parseDuration("CLEANUP_INTERVAL", "1m")
	if err != nil {
		return nil, err
	}

	rateLimitMax := 10
	if rateLimitMaxStr := os.Getenv("RATE_LIMIT_MAX"); rateLimitMaxStr != "" {
		rateLimitMax, err = strconv.Atoi(rateLimitMaxStr)
		if err != nil || rateLimitMax <= 0 {
			log.Error().Err(err).Msg("invalid RATE_LIMIT_MAX environment variable")
			return nil, fmt.Errorf("invalid RATE_LIMIT_MAX: %w", err)
		}
	}

	rateLimitWindow, err := parseDuration("RATE_LIMIT_WINDOW", "1m")
	if err != nil {
		return nil, err
	}

	metadataFile := os.Getenv("METADATA_FILE")
	if metadataFile == "" {
		metadataFile = "./data/files.json"
	}

	// Configure storage
	storageProvider := os.Getenv("STORAGE_PROVIDER")
	if storageProvider == "" {
		storageProvider = "local"
	}

	storageConfig := StorageConfig{
		Provider:   storageProvider,
		LocalPath:  os.Getenv("UPLOAD_DIR"),
		ProjectID:  os.Getenv("GCS_PROJECT_ID"),
		BucketName: os.Getenv("GCS_BUCKET_NAME"),
	}

	// Validate storage configuration
	if err := validateStorageConfig(storageConfig); err != nil {
		return nil, fmt.Errorf("invalid storage configuration: %w", err)
	}

	return &Config{
		Port:            port,
		Env:             env,
		BaseURL:         baseURL,
		UploadMaxSize:   uploadMaxSize,
		FileTTL:         fileTTL,
		CleanupInterval: cleanupInterval,
		RateLimitMax:    rateLimitMax,
		RateLimitWindow: rateLimitWindow,
		MetadataFile:    metadataFile,
		Storage:         storageConfig,
	}, nil
}

// parseDuration reads a duration environment variable, falling back to
// the given default when unset. Plain numbers are read as minutes.
func parseDuration(name, fallback string) (time.Duration, error) {
	value := os.Getenv(name)
	if value == "" {
		value = fallback
	} else if _, err := strconv.Atoi(value); err == nil {
		value += "m"
	}

	d, err := time.ParseDuration(value)
	if err != nil {
		log.Error().Err(err).Str("variable", name).Msg("invalid duration environment variable")
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	if d <= 0 {
		log.Error().Str("variable", name).Msg("duration must be positive")
		return 0, fmt.Errorf("invalid %s: must be positive", name)
	}
	return d, nil
}

// validateStorageConfig ensures the storage configuration is valid
func validateStorageConfig(cfg StorageConfig) error {
	switch cfg.Provider {
	case "local":
		if cfg.LocalPath == "" {
			return fmt.Errorf("UPLOAD_DIR is required for local storage")
		}
	case "gcs":
		if cfg.ProjectID == "" {
			return fmt.Errorf("GCS_PROJECT_ID is required for GCS storage")
		}
		if cfg.BucketName == "" {
			return fmt.Errorf("GCS_BUCKET_NAME is required for GCS storage")
		}
	default:
		return fmt.Errorf("unsupported storage provider: %s", cfg.Provider)
	}
	return nil
}

// parseUploadMaxSize parses the UPLOAD_MAX_SIZE environment variable
// Value is expected to be postfixed with "MB" for megabytes or "GB" for gigabytes, e.g. "100MB"
// If no postfix is provided, the value is assumed to be in megabytes
func parseUploadMaxSize(size string) (int64, error) {
	if strings.HasSuffix(size, "GB") {
		value, err := strconv.ParseInt(strings.TrimSuffix(size, "GB"), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid UPLOAD_MAX_SIZE: %w", err)
		}
		return value * 1024 * 1024 * 1024, nil
	} else if strings.HasSuffix(size, "MB") {
		value, err := strconv.ParseInt(strings.TrimSuffix(size, "MB"), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid UPLOAD_MAX_SIZE: %w", err)
		}
		return value * 1024 * 1024, nil
	} else {
		value, err := strconv.ParseInt(size, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid UPLOAD_MAX_SIZE: %w", err)
		}
		return value * 1024 * 1024, nil
	}
}
