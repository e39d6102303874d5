package main

import (
	"flag"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/carebridge/intakepipe/internal/api"
	"github.com/carebridge/intakepipe/internal/audit"
	"github.com/carebridge/intakepipe/internal/engine"
	"github.com/carebridge/intakepipe/internal/notify"
	"github.com/carebridge/intakepipe/internal/responder"
	"github.com/carebridge/intakepipe/internal/store"
	"github.com/carebridge/intakepipe/internal/util"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for intakepipe state data
	DefaultStateDir = "/var/lib/intakepipe"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "intakepipe.db"
	// DefaultAPIAddr is the default API listen address
	DefaultAPIAddr = ":8080"
)

func main() {
	initializeLogger()

	config := loadEnvironmentConfig()
	flags := parseCommandLineFlags(config)

	if err := ensureDirectoriesExist(flags); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	st, err := openStore(flags)
	if err != nil {
		slog.Error("Failed to open store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	auditor := audit.NewStoreRecorder(st)
	eng := engine.New(auditor)
	resp := responder.NewClient(responder.WithAPIKey(*flags.openaiKey))
	notifier := buildNotifier(flags)

	server := api.NewServer(st, eng, resp, notifier, auditor, api.WithAddr(*flags.apiAddr))

	slog.Info("Bootstrapping intakepipe with configured modules")
	slog.Debug("Final configuration", "state_dir", *flags.stateDir, "dsn_set", *flags.dbDSN != "", "api_addr", *flags.apiAddr)
	if err := server.Run(); err != nil {
		slog.Error("intakepipe failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("intakepipe exited successfully")
}

// Config holds environment configuration
type Config struct {
	DbDriver    string
	DatabaseURL string
	StateDir    string
	OpenAIKey   string
	APIAddr     string
	TwilioSID   string
	TwilioToken string
	TwilioFrom  string
	OnCallPhone string
	DbMaxConns  int
}

// Flags holds command line flag values
type Flags struct {
	stateDir    *string
	dbDriver    *string
	dbDSN       *string
	openaiKey   *string
	apiAddr     *string
	twilioSID   *string
	twilioToken *string
	twilioFrom  *string
	onCallPhone *string
	dbMaxConns  *int
}

// initializeLogger sets up structured logging; INTAKEPIPE_DEBUG=false drops to info level
func initializeLogger() {
	level := slog.LevelInfo
	if util.ParseBoolEnv("INTAKEPIPE_DEBUG", true) {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		DbDriver:    os.Getenv("INTAKEPIPE_DB_DRIVER"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		StateDir:    util.GetEnvOrDefault("INTAKEPIPE_STATE_DIR", DefaultStateDir),
		OpenAIKey:   os.Getenv("OPENAI_API_KEY"),
		APIAddr:     util.GetEnvOrDefault("API_ADDR", DefaultAPIAddr),
		TwilioSID:   os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioToken: os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioFrom:  os.Getenv("TWILIO_FROM_NUMBER"),
		OnCallPhone: os.Getenv("ONCALL_PHONE_NUMBER"),
		DbMaxConns:  util.ParseIntEnv("INTAKEPIPE_DB_MAX_CONNS", 0),
	}

	// If no database URL is provided, default to SQLite in the state directory
	if config.DatabaseURL == "" {
		config.DatabaseURL = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", config.DatabaseURL)
	}

	slog.Debug("environment variables loaded",
		"INTAKEPIPE_DB_DRIVER", config.DbDriver,
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"INTAKEPIPE_STATE_DIR", config.StateDir,
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"TWILIO_CONFIGURED", config.TwilioSID != "" && config.TwilioToken != "",
		"API_ADDR", config.APIAddr)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		stateDir:    flag.String("state-dir", config.StateDir, "state directory for intakepipe data (overrides $INTAKEPIPE_STATE_DIR)"),
		dbDriver:    flag.String("db-driver", config.DbDriver, "database driver: sqlite3, postgres, or memory (overrides $INTAKEPIPE_DB_DRIVER)"),
		dbDSN:       flag.String("db-dsn", config.DatabaseURL, "database DSN (overrides $DATABASE_URL)"),
		openaiKey:   flag.String("openai-api-key", config.OpenAIKey, "OpenAI API key (overrides $OPENAI_API_KEY)"),
		apiAddr:     flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		twilioSID:   flag.String("twilio-sid", config.TwilioSID, "Twilio account SID (overrides $TWILIO_ACCOUNT_SID)"),
		twilioToken: flag.String("twilio-token", config.TwilioToken, "Twilio auth token (overrides $TWILIO_AUTH_TOKEN)"),
		twilioFrom:  flag.String("twilio-from", config.TwilioFrom, "Twilio sending number (overrides $TWILIO_FROM_NUMBER)"),
		onCallPhone: flag.String("oncall-phone", config.OnCallPhone, "on-call escalation number (overrides $ONCALL_PHONE_NUMBER)"),
		dbMaxConns:  flag.Int("db-max-conns", config.DbMaxConns, "max open database connections, 0 for driver default (overrides $INTAKEPIPE_DB_MAX_CONNS)"),
	}

	flag.Parse()

	slog.Debug("flags parsed",
		"stateDir", *flags.stateDir,
		"dbDriver", *flags.dbDriver,
		"dbDSN_set", *flags.dbDSN != "",
		"openaiKeySet", *flags.openaiKey != "",
		"apiAddr", *flags.apiAddr)

	// Update database DSN if not explicitly set but state directory is provided
	if *flags.dbDSN == config.DatabaseURL && config.DatabaseURL == filepath.Join(config.StateDir, DefaultDBFileName) && *flags.stateDir != config.StateDir {
		*flags.dbDSN = filepath.Join(*flags.stateDir, DefaultDBFileName)
		slog.Debug("Updated dbDSN based on state directory", "new_state_dir", *flags.stateDir)
	}

	return flags
}

// ensureDirectoriesExist creates necessary directories for file-based storage
func ensureDirectoriesExist(flags Flags) error {
	if isPostgresDSN(*flags.dbDSN) || *flags.dbDriver == "memory" {
		return nil
	}
	stateDir := filepath.Dir(*flags.dbDSN)
	slog.Debug("Creating state directory for file-based database", "state_dir", stateDir)
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		slog.Error("Failed to create state directory", "error", err, "state_dir", stateDir)
		return err
	}
	return nil
}

// isPostgresDSN reports whether the DSN targets PostgreSQL rather than a file path.
func isPostgresDSN(dsn string) bool {
	return strings.Contains(dsn, "postgres://") || strings.Contains(dsn, "host=")
}

// openStore selects the storage backend from the driver flag, falling back to
// DSN shape detection when no driver was given.
func openStore(flags Flags) (store.Store, error) {
	driver := *flags.dbDriver
	if driver == "" {
		if isPostgresDSN(*flags.dbDSN) {
			driver = "postgres"
		} else {
			driver = "sqlite3"
		}
	}

	switch driver {
	case "memory":
		slog.Warn("Using in-memory store; all state is lost on restart")
		return store.NewInMemoryStore(), nil
	case "postgres":
		return store.NewPostgresStore(store.WithDSN(*flags.dbDSN), store.WithMaxOpenConns(*flags.dbMaxConns))
	default:
		return store.NewSQLiteStore(store.WithDSN(*flags.dbDSN))
	}
}

// buildNotifier wires the Twilio escalation notifier when fully configured.
func buildNotifier(flags Flags) engine.Notifier {
	if *flags.twilioSID == "" || *flags.twilioToken == "" || *flags.twilioFrom == "" || *flags.onCallPhone == "" {
		slog.Info("Twilio not fully configured; escalations will be logged only")
		return nil
	}
	notifier, err := notify.NewTwilioNotifier(
		notify.WithAccountSID(*flags.twilioSID),
		notify.WithAuthToken(*flags.twilioToken),
		notify.WithFrom(*flags.twilioFrom),
		notify.WithTo(*flags.onCallPhone),
	)
	if err != nil {
		slog.Error("Failed to build Twilio notifier; escalations will be logged only", "error", err)
		return nil
	}
	return notifier
}
