// Package app wires configuration, storage, clients, and services into a
// single application core.
package app

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bniasoff/photoevents-manager/internal/auth"
	"github.com/bniasoff/photoevents-manager/internal/clients/google"
	"github.com/bniasoff/photoevents-manager/internal/common"
	"github.com/bniasoff/photoevents-manager/internal/interfaces"
	"github.com/bniasoff/photoevents-manager/internal/services/events"
	"github.com/bniasoff/photoevents-manager/internal/storage/surrealdb"
)

// App holds all initialized services and clients. It is the shared core
// used by cmd/photoevents-server and by tests.
type App struct {
	Config       *common.Config
	Logger       *common.Logger
	Storage      interfaces.StorageManager
	GoogleClient interfaces.GoogleClient
	AuthManager  *auth.Manager
	EventService interfaces.EventService
	StartupTime  time.Time
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// NewApp initializes configuration, storage, clients, and services.
// configPath may be empty, in which case the default resolution logic is used.
func NewApp(configPath string) (*App, error) {
	startupStart := time.Now()

	binDir := getBinaryDir()

	// Load configuration - check provided path, PHOTOEVENTS_CONFIG, then
	// binary dir, then fallback
	if configPath == "" {
		configPath = os.Getenv("PHOTOEVENTS_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(binDir, "photoevents.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/photoevents.toml" // fallback for development
		}
	}

	config, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := common.NewLogger(config.Logging.Level)

	if config.Google.ClientID == "" || config.Google.ClientSecret == "" {
		return nil, fmt.Errorf("google client_id and client_secret are required")
	}
	if config.Auth.StateSecret == "" {
		return nil, fmt.Errorf("auth state_secret is required")
	}

	storageManager, err := surrealdb.NewManager(logger, config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	googleClient := google.NewClient(
		config.Google.ClientID,
		config.Google.ClientSecret,
		config.Google.RedirectURI,
		google.WithLogger(logger),
		google.WithTimeout(config.Google.GetTimeout()),
		google.WithRateLimit(config.Google.RateLimit),
		google.WithCalendarID(config.Google.CalendarID),
		google.WithTimezone(config.Google.Timezone),
	)

	authManager := auth.NewManager(
		storageManager.TokenStore(),
		googleClient,
		config.Auth.StateSecret,
		auth.WithLogger(logger),
		auth.WithStateTTL(config.Auth.GetStateExpiry()),
	)

	eventService := events.NewService(storageManager, logger)

	logger.Info().
		Str("environment", config.Environment).
		Dur("startup", time.Since(startupStart)).
		Msg("Application initialized")

	return &App{
		Config:       config,
		Logger:       logger,
		Storage:      storageManager,
		GoogleClient: googleClient,
		AuthManager:  authManager,
		EventService: eventService,
		StartupTime:  time.Now(),
	}, nil
}

// Close releases application resources.
func (a *App) Close() {
	if a.Storage != nil {
		if err := a.Storage.Close(); err != nil {
			a.Logger.Error().Err(err).Msg("Failed to close storage")
		}
	}
}
