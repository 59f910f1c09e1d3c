package config

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/upb/governed-notebook/models"
)

// Config represents the complete kernel configuration
type Config struct {
	Session       models.SessionContext
	Server        ServerConfig
	AuditDatabase *DatabaseConfig // Optional: when nil, execution tracing is disabled.
	DataDatabase  *DatabaseConfig // Required by the governed data access facade.
	Kernel        KernelConfig
	Auth          AuthConfig
	Observability ObservabilityConfig
	Environment   string
}

// ServerConfig holds HTTP gateway configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds a store connection string and pool settings.
type DatabaseConfig struct {
	ConnectionString string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
}

// KernelConfig holds notebook session settings
type KernelConfig struct {
	AuditWriteTimeout time.Duration
	ShowBanner        bool
}

// AuthConfig holds gateway authentication settings
type AuthConfig struct {
	TokenSecret string // HS256 secret shared with the hub
}

// ObservabilityConfig holds monitoring and logging configuration
type ObservabilityConfig struct {
	LogLevel       string
	LogFormat      string // json or console
	MetricsEnabled bool
}

// New creates a new Config instance by loading environment variables
func New(ctx context.Context) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load(".env")

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Session: models.NewSessionContext(
			getEnv("JUPYTERHUB_USER", ""),
			getEnv("JPY_SESSION_NAME", ""),
		),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getPort(),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 0),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		AuditDatabase: loadDatabaseConfig("AUDIT_DB_CONNECTION"),
		DataDatabase:  loadDatabaseConfig("DATA_DB_CONNECTION"),
		Kernel: KernelConfig{
			AuditWriteTimeout: getEnvAsDuration("AUDIT_WRITE_TIMEOUT", 5*time.Second),
			ShowBanner:        getEnvAsBool("KERNEL_BANNER", true),
		},
		Auth: AuthConfig{
			TokenSecret: getEnv("KERNEL_TOKEN_SECRET", ""),
		},
		Observability: ObservabilityConfig{
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			LogFormat:      getEnv("LOG_FORMAT", "json"),
			MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
		},
	}

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that the loaded values are usable. Missing connection
// strings are not errors here: the audit store is optional and the data store
// is enforced by the facade at construction.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Observability.LogLevel) {
	case "debug", "info", "warn", "error":
	case "":
		return fmt.Errorf("log level is required")
	default:
		return fmt.Errorf("invalid log level %q", c.Observability.LogLevel)
	}

	for name, db := range map[string]*DatabaseConfig{"audit": c.AuditDatabase, "data": c.DataDatabase} {
		if db == nil {
			continue
		}
		if db.MaxOpenConns < 1 {
			return fmt.Errorf("%s database max open connections must be positive", name)
		}
		if db.MaxIdleConns > db.MaxOpenConns {
			return fmt.Errorf("%s database max idle connections exceeds max open connections", name)
		}
	}

	// the audit schema and history queries are postgres only
	if c.AuditDatabase != nil && c.AuditDatabase.IsSQLite() {
		return fmt.Errorf("audit database must be postgres")
	}

	if c.Kernel.AuditWriteTimeout <= 0 {
		return fmt.Errorf("audit write timeout must be positive")
	}

	return nil
}

// AuditEnabled reports whether an audit store is configured
func (c *Config) AuditEnabled() bool {
	return c.AuditDatabase != nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// DSN returns the store connection string
func (c *DatabaseConfig) DSN() string {
	return c.ConnectionString
}

// IsSQLite reports whether the connection string names a sqlite database
func (c *DatabaseConfig) IsSQLite() bool {
	return strings.HasPrefix(c.ConnectionString, "sqlite:") || strings.HasPrefix(c.ConnectionString, "file:")
}

// LogString returns a safe string for logging (no password).
func (c *DatabaseConfig) LogString() string {
	dsn := c.ConnectionString
	if c.IsSQLite() {
		return "sqlite database=" + strings.TrimPrefix(strings.TrimPrefix(dsn, "sqlite:"), "file:")
	}
	if strings.Contains(dsn, "://") {
		u, err := url.Parse(dsn)
		if err == nil {
			host := u.Hostname()
			port := u.Port()
			if port == "" {
				port = "5432"
			}
			db := strings.TrimPrefix(u.Path, "/")
			return fmt.Sprintf("host=%s port=%s database=%s", host, port, db)
		}
		return "host=<unparseable connection string>"
	}
	// key=value form: keep everything but the password
	var kept []string
	for _, part := range strings.Fields(dsn) {
		if strings.HasPrefix(part, "password=") {
			continue
		}
		kept = append(kept, part)
	}
	return strings.Join(kept, " ")
}

// loadDatabaseConfig returns nil when the connection string variable is unset.
func loadDatabaseConfig(key string) *DatabaseConfig {
	dsn := getEnv(key, "")
	if dsn == "" {
		return nil
	}
	return &DatabaseConfig{
		ConnectionString: dsn,
		MaxOpenConns:     getEnvAsInt("DB_MAX_OPEN_CONNS", 4),
		MaxIdleConns:     getEnvAsInt("DB_MAX_IDLE_CONNS", 1),
		ConnMaxLifetime:  getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
	}
}

// Address returns the HTTP server address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Helper functions

// getPort returns the server port from PORT or SERVER_PORT env vars (default: 8888)
func getPort() int {
	if value := os.Getenv("PORT"); value != "" {
		if p, err := strconv.Atoi(value); err == nil {
			return p
		}
	}
	if value := os.Getenv("SERVER_PORT"); value != "" {
		if p, err := strconv.Atoi(value); err == nil {
			return p
		}
	}
	return 8888
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
