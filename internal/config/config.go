package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the configuration settings for the customer map service.
// Values come from the environment (prefixed with MAPA_), an optional .env
// file and an optional YAML file named by MAPA_CONFIG_FILE.
//
// Fields:
// - Env: The current environment (local, development, production).
// - HTTPPort: The port of the widget application server.
// - HealthPort: The port of the monitoring server.
// - Provider: Geocoding provider settings.
// - Storage: Where customers and orders are kept.
// - Geocoding: Queue worker settings.
// - RecentWindow: How far back a sale keeps a marker green.
// - Database: Configuration settings for the PostgreSQL database.
type Config struct {
	Env          string          `yaml:"env"`           // Env is the current environment: local, development, production.
	HTTPPort     int             `yaml:"http.port"`     // HTTPPort is the widget application server port.
	HealthPort   int             `yaml:"health.port"`   // HealthPort is the monitoring server port.
	Provider     ProviderConfig  `yaml:"provider"`      // Provider configures the geocoding provider.
	Storage      StorageConfig   `yaml:"storage"`       // Storage selects the storage backend.
	Geocoding    GeocodingConfig `yaml:"geocoding"`     // Geocoding configures the queue worker.
	RecentWindow time.Duration   `yaml:"recent_window"` // RecentWindow is the age limit of a recent sale.
	Database     PostgresConfig  `yaml:"postgres"`      // Database holds the postgres database configuration
}

// ProviderConfig selects and configures the geocoding provider.
type ProviderConfig struct {
	Type      string `yaml:"type"`       // nominatim, google or visicom
	APIKey    string `yaml:"key"`        // required for google and visicom
	BaseURL   string `yaml:"base_url"`   // overrides the nominatim endpoint
	Language  string `yaml:"language"`   // accept-language for nominatim
	Region    string `yaml:"region"`     // region bias for google
	UserAgent string `yaml:"user_agent"` // user agent for nominatim
	RateLimit int    `yaml:"rate_limit"` // requests per second for google and visicom
}

// StorageConfig selects the storage backend.
type StorageConfig struct {
	Backend string `yaml:"backend"` // file or postgres
	Dir     string `yaml:"dir"`     // directory of the file backend
}

// GeocodingConfig holds the queue worker settings.
type GeocodingConfig struct {
	Country       string        `yaml:"country"`        // appended to every query
	CourtesyDelay time.Duration `yaml:"courtesy_delay"` // after a stored result
	RetryDelay    time.Duration `yaml:"retry_delay"`    // after a bad provider status
	FailureDelay  time.Duration `yaml:"failure_delay"`  // after an unexpected error
}

// PostgresConfig struct holds the configuration details for connecting to a PostgreSQL database.
type PostgresConfig struct {
	Host     string `yaml:"host"`                        // Host is the database server address.
	Port     string `yaml:"port"     env-default:"5432"` // Port is the database server port.
	User     string `yaml:"user"`                        // User is the database user.
	Password string `yaml:"password"`                    // Password is the database user's password.
	Name     string `yaml:"db_name"`                     // Name is the name of the database.
}

var defaults = map[string]string{
	"env":                      "production",
	"http.port":                "8000",
	"health.port":              "8080",
	"provider.type":            "nominatim",
	"provider.language":        "es",
	"provider.region":          "es",
	"provider.rate_limit":      "1",
	"storage.backend":          "file",
	"storage.dir":              "data",
	"geocoding.country":        "España",
	"geocoding.courtesy_delay": "1200ms",
	"geocoding.retry_delay":    "3s",
	"geocoding.failure_delay":  "5s",
	"recent_window":            "720h",
	"postgres.port":            "5432",
}

// Database settings keep the unprefixed names shared with other services.
var databaseEnv = map[string]string{
	"postgres.host":     "DB_HOST",
	"postgres.port":     "DB_PORT",
	"postgres.user":     "DB_USERNAME",
	"postgres.password": "DB_PASSWORD",
	"postgres.db_name":  "DB_NAME",
}

// MustLoad loads the configuration and returns a Config struct.
// It panics when a value cannot be parsed.
func MustLoad() *Config {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("MAPA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	for key, env := range databaseEnv {
		_ = v.BindEnv(key, env)
	}

	if err := v.BindEnv("config_file"); err == nil {
		if file := v.GetString("config_file"); file != "" {
			v.SetConfigFile(file)
			if err = v.ReadInConfig(); err != nil {
				panic("failed to read configuration file: " + err.Error())
			}
		}
	}

	return &Config{
		Env:        v.GetString("env"),
		HTTPPort:   mustInt(v, "http.port", "failed to parse port for application server from configuration"),
		HealthPort: mustInt(v, "health.port", "failed to parse port for monitoring server from configuration"),
		Provider: ProviderConfig{
			Type:      v.GetString("provider.type"),
			APIKey:    v.GetString("provider.key"),
			BaseURL:   v.GetString("provider.base_url"),
			Language:  v.GetString("provider.language"),
			Region:    v.GetString("provider.region"),
			UserAgent: v.GetString("provider.user_agent"),
			RateLimit: mustInt(v, "provider.rate_limit", "failed to parse provider rate limit, must be an integer types"),
		},
		Storage: StorageConfig{
			Backend: v.GetString("storage.backend"),
			Dir:     v.GetString("storage.dir"),
		},
		Geocoding: GeocodingConfig{
			Country:       v.GetString("geocoding.country"),
			CourtesyDelay: mustDuration(v, "geocoding.courtesy_delay", "failed to parse courtesy delay from configuration"),
			RetryDelay:    mustDuration(v, "geocoding.retry_delay", "failed to parse retry delay from configuration"),
			FailureDelay:  mustDuration(v, "geocoding.failure_delay", "failed to parse failure delay from configuration"),
		},
		RecentWindow: mustDuration(v, "recent_window", "failed to parse recent sales window from configuration"),
		Database: PostgresConfig{
			Host:     v.GetString("postgres.host"),
			Port:     v.GetString("postgres.port"),
			User:     v.GetString("postgres.user"),
			Password: v.GetString("postgres.password"),
			Name:     v.GetString("postgres.db_name"),
		},
	}
}

func mustInt(v *viper.Viper, key, message string) int {
	value, err := strconv.Atoi(v.GetString(key))
	if err != nil {
		panic(message)
	}
	return value
}

func mustDuration(v *viper.Viper, key, message string) time.Duration {
	value, err := time.ParseDuration(v.GetString(key))
	if err != nil || value <= 0 {
		panic(message)
	}
	return value
}
