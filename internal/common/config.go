package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Server      ServerConfig    `toml:"server"`
	Storage     StorageConfig   `toml:"storage"`
	Logging     LoggingConfig   `toml:"logging"`
	Places      PlacesConfig    `toml:"places"`
	Gemini      GeminiConfig    `toml:"gemini"`
	Provider    ProviderConfig  `toml:"provider"`
	Images      ImagesConfig    `toml:"images"`
	Tasks       TasksConfig     `toml:"tasks"`
	Playback    PlaybackConfig  `toml:"playback"`
	WebSocket   WebSocketConfig `toml:"websocket"`
	Cleanup     CleanupConfig   `toml:"cleanup"`
}

type ServerConfig struct {
	Port int    `toml:"port" validate:"gt=0,lte=65535"`
	Host string `toml:"host" validate:"required"`
}

type StorageConfig struct {
	Badger     BadgerConfig     `toml:"badger"`
	Filesystem FilesystemConfig `toml:"filesystem"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path" validate:"required"` // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"`         // Delete database on startup for clean test runs
}

type FilesystemConfig struct {
	Uploads string `toml:"uploads" validate:"required"` // Directory holding uploaded place images
}

type LoggingConfig struct {
	Level      string   `toml:"level"`       // "debug", "info", "warn", "error"
	Format     string   `toml:"format"`      // "json" or "text"
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // Time format for logs (default: "15:04:05.000")
}

// PlacesConfig contains Google Maps web service configuration
type PlacesConfig struct {
	APIKey          string        `toml:"api_key"`          // Google Maps API key (places + geocoding + street view)
	RateLimit       time.Duration `toml:"rate_limit"`       // Minimum time between API requests
	RequestTimeout  time.Duration `toml:"request_timeout"`  // HTTP request timeout
	IdentifyRadius  int           `toml:"identify_radius"`  // Nearby-search radius for point identification (meters)
	CategoryRadius  int           `toml:"category_radius"`  // Nearby-search radius for category filters (meters)
	StreetViewSize  string        `toml:"street_view_size"` // Street View fallback image size, e.g. "300x200"
	MaxResultsLimit int           `toml:"max_results"`      // Cap on results returned per search
}

// GeminiConfig contains Google Gemini API configuration for image analysis
type GeminiConfig struct {
	APIKey      string  `toml:"api_key"`     // Google Gemini API key
	Model       string  `toml:"model"`       // Model for analysis (default: "gemini-3-flash-preview")
	Timeout     string  `toml:"timeout"`     // Operation timeout as duration string (default: "2m")
	Temperature float32 `toml:"temperature"` // Completion temperature (default: 0.7)
}

// ProviderConfig contains the external music-generation provider configuration
type ProviderConfig struct {
	BaseURL        string        `toml:"base_url"`        // Provider API base URL
	APIKey         string        `toml:"api_key"`         // Provider API key
	Model          string        `toml:"model"`           // Generation model identifier
	PollInterval   time.Duration `toml:"poll_interval"`   // Interval between record-info polls (default: 20s)
	PollAttempts   int           `toml:"poll_attempts"`   // Max record-info polls per generation (default: 30)
	RequestTimeout time.Duration `toml:"request_timeout"` // HTTP request timeout
	CallbackURL    string        `toml:"callback_url"`    // Public URL the provider posts completion callbacks to
}

// ImagesConfig constrains uploaded and collected images
type ImagesConfig struct {
	MaxBytes          int64    `toml:"max_bytes"`          // Per-image size cap (default: 16 MiB)
	AllowedExtensions []string `toml:"allowed_extensions"` // Raster types accepted for collection/upload
}

// TasksConfig controls the client-side task polling loop
type TasksConfig struct {
	PollInterval time.Duration `toml:"poll_interval" validate:"gte=0"` // Status poll interval (default: 5s, sane range 3-10s)
	MaxAttempts  int           `toml:"max_attempts" validate:"gte=0"`  // Poll attempt budget (default: 100)
}

// PlaybackConfig controls the slideshow/marker synchronizer
type PlaybackConfig struct {
	SlideInterval time.Duration `toml:"slide_interval"` // Fixed-interval slideshow advance (default: 2.5s)
}

// WebSocketConfig contains configuration for WebSocket log/status streaming
type WebSocketConfig struct {
	MinLevel        string   `toml:"min_level"`        // Minimum log level to broadcast ("debug", "info", "warn", "error")
	ExcludePatterns []string `toml:"exclude_patterns"` // Log message patterns to exclude from broadcasting
}

// CleanupConfig controls the scheduled orphan-file sweep
type CleanupConfig struct {
	Enabled  bool   `toml:"enabled"`
	Schedule string `toml:"schedule"` // Cron schedule (default: hourly)
}

// NewDefaultConfig creates a configuration with default values.
// Technical parameters are hardcoded here for production stability.
// Only user-facing settings should be exposed in placetunes.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data",
			},
			Filesystem: FilesystemConfig{
				Uploads: "./data/uploads",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: []string{"stdout", "file"},
		},
		Places: PlacesConfig{
			APIKey:          "", // User must provide API key in config file
			RateLimit:       1 * time.Second,
			RequestTimeout:  30 * time.Second,
			IdentifyRadius:  50,   // Tight radius: identify the place at a clicked point
			CategoryRadius:  1000, // Wide radius: populate category filter markers
			StreetViewSize:  "300x200",
			MaxResultsLimit: 20,
		},
		Gemini: GeminiConfig{
			APIKey:      "",
			Model:       "gemini-3-flash-preview",
			Timeout:     "2m",
			Temperature: 0.7,
		},
		Provider: ProviderConfig{
			BaseURL:        "https://api.sunoapi.org",
			APIKey:         "",
			Model:          "V4",
			PollInterval:   20 * time.Second,
			PollAttempts:   30,
			RequestTimeout: 30 * time.Second,
		},
		Images: ImagesConfig{
			MaxBytes:          16 * 1024 * 1024,
			AllowedExtensions: []string{"png", "jpg", "jpeg", "gif", "bmp", "webp"},
		},
		Tasks: TasksConfig{
			PollInterval: 5 * time.Second,
			MaxAttempts:  100,
		},
		Playback: PlaybackConfig{
			SlideInterval: 2500 * time.Millisecond,
		},
		WebSocket: WebSocketConfig{
			MinLevel: "info",
			ExcludePatterns: []string{
				"WebSocket client connected",
				"WebSocket client disconnected",
				"HTTP request",
				"HTTP response",
			},
		},
		Cleanup: CleanupConfig{
			Enabled:  true,
			Schedule: "0 * * * *", // Hourly orphan sweep
		},
	}
}

// LoadFromFile loads configuration with priority: default -> file -> env -> CLI
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files with priority:
// default -> file1 -> file2 -> ... -> env -> CLI. Later files override earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks structural constraints on the loaded configuration
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Tasks.PollInterval != 0 && (c.Tasks.PollInterval < 3*time.Second || c.Tasks.PollInterval > 10*time.Second) {
		return fmt.Errorf("invalid configuration: tasks.poll_interval %s outside 3s-10s", c.Tasks.PollInterval)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("PLACETUNES_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	// Server configuration
	if port := os.Getenv("PLACETUNES_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("PLACETUNES_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	// Storage configuration
	if badgerPath := os.Getenv("PLACETUNES_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}
	if uploads := os.Getenv("PLACETUNES_UPLOADS_DIR"); uploads != "" {
		config.Storage.Filesystem.Uploads = uploads
	}

	// Logging configuration
	if level := os.Getenv("PLACETUNES_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if format := os.Getenv("PLACETUNES_LOG_FORMAT"); format != "" {
		config.Logging.Format = format
	}
	if output := os.Getenv("PLACETUNES_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	// Places configuration
	if apiKey := os.Getenv("PLACETUNES_PLACES_API_KEY"); apiKey != "" {
		config.Places.APIKey = apiKey
	} else if apiKey := os.Getenv("GOOGLE_MAPS_API_KEY"); apiKey != "" {
		config.Places.APIKey = apiKey
	}
	if rateLimit := os.Getenv("PLACETUNES_PLACES_RATE_LIMIT"); rateLimit != "" {
		if rl, err := time.ParseDuration(rateLimit); err == nil {
			config.Places.RateLimit = rl
		}
	}

	// Gemini configuration
	if apiKey := os.Getenv("PLACETUNES_GEMINI_API_KEY"); apiKey != "" {
		config.Gemini.APIKey = apiKey
	} else if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" {
		config.Gemini.APIKey = apiKey
	}
	if model := os.Getenv("PLACETUNES_GEMINI_MODEL"); model != "" {
		config.Gemini.Model = model
	}

	// Provider configuration
	if baseURL := os.Getenv("PLACETUNES_PROVIDER_BASE_URL"); baseURL != "" {
		config.Provider.BaseURL = baseURL
	}
	if apiKey := os.Getenv("PLACETUNES_PROVIDER_API_KEY"); apiKey != "" {
		config.Provider.APIKey = apiKey
	} else if apiKey := os.Getenv("SUNO_API_KEY"); apiKey != "" {
		config.Provider.APIKey = apiKey
	}
	if callbackURL := os.Getenv("PLACETUNES_PROVIDER_CALLBACK_URL"); callbackURL != "" {
		config.Provider.CallbackURL = callbackURL
	}
	if pollInterval := os.Getenv("PLACETUNES_PROVIDER_POLL_INTERVAL"); pollInterval != "" {
		if pi, err := time.ParseDuration(pollInterval); err == nil {
			config.Provider.PollInterval = pi
		}
	}
	if pollAttempts := os.Getenv("PLACETUNES_PROVIDER_POLL_ATTEMPTS"); pollAttempts != "" {
		if pa, err := strconv.Atoi(pollAttempts); err == nil {
			config.Provider.PollAttempts = pa
		}
	}

	// Task client configuration
	if pollInterval := os.Getenv("PLACETUNES_TASKS_POLL_INTERVAL"); pollInterval != "" {
		if pi, err := time.ParseDuration(pollInterval); err == nil {
			config.Tasks.PollInterval = pi
		}
	}
	if maxAttempts := os.Getenv("PLACETUNES_TASKS_MAX_ATTEMPTS"); maxAttempts != "" {
		if ma, err := strconv.Atoi(maxAttempts); err == nil {
			config.Tasks.MaxAttempts = ma
		}
	}

	// Cleanup configuration
	if enabled := os.Getenv("PLACETUNES_CLEANUP_ENABLED"); enabled != "" {
		if e, err := strconv.ParseBool(enabled); err == nil {
			config.Cleanup.Enabled = e
		}
	}
	if schedule := os.Getenv("PLACETUNES_CLEANUP_SCHEDULE"); schedule != "" {
		config.Cleanup.Schedule = schedule
	}

	// WebSocket configuration
	if minLevel := os.Getenv("PLACETUNES_WEBSOCKET_MIN_LEVEL"); minLevel != "" {
		config.WebSocket.MinLevel = minLevel
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, port int, host string) {
	// Command-line flags have highest priority
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
