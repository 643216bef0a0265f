// Package config loads the immutable process configuration for the
// lumen server. Configuration is layered: built-in defaults, then an
// optional YAML file, then environment variables. The resulting Config
// is read-only after Load and is passed by value into the components
// that need it, so there are no hidden global lookups.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar overrides the config file search path.
const ConfigPathEnvVar = "LUMEN_CONFIG"

// defaultConfigPaths are searched in order; the first file found wins.
var defaultConfigPaths = []string{
	"lumen.yaml",
	"lumen.yml",
	"/etc/lumen/config.yaml",
}

// Config holds all settings for the server. Immutable after Load and
// safe for concurrent reads.
type Config struct {
	Server Server `koanf:"server"`
	Auth   Auth   `koanf:"auth"`
	Store  Store  `koanf:"store"`
	Upload Upload `koanf:"upload"`
	Log    Log    `koanf:"log"`
}

// Server holds HTTP listener settings.
type Server struct {
	Host        string `koanf:"host"`
	Port        int    `koanf:"port"`
	Environment string `koanf:"environment"` // development | production
	// BaseURL is the public origin of this server, used to turn
	// relative media paths into absolute URLs for the document store.
	BaseURL string `koanf:"base_url"`
}

// Auth holds the access secret, token signing key and session lifetime.
type Auth struct {
	// AccessPassword is the shared access secret. Empty means the
	// system is not configured; every protected request is refused
	// until it is set.
	AccessPassword string `koanf:"access_password"`
	// SigningKey signs session tokens. Required in production; in
	// development a fixed fallback key is substituted when empty.
	SigningKey string `koanf:"signing_key"`
	// SessionExpireHours is the session token lifetime in hours.
	SessionExpireHours int `koanf:"session_expire_hours"`
	// Transport selects the session transport: "cookie" or "mirrored".
	Transport string `koanf:"transport"`
}

// Store selects and configures the document store backend.
type Store struct {
	Backend          string `koanf:"backend"` // notion | local | memory
	NotionAPIKey     string `koanf:"notion_api_key"`
	NotionDatabaseID string `koanf:"notion_database_id"`
	DataDir          string `koanf:"data_dir"`
}

// Upload configures the media upload sink.
type Upload struct {
	Dir             string `koanf:"dir"`
	MaxFileSize     int64  `koanf:"max_file_size"`
	ImageExtensions string `koanf:"image_extensions"` // comma-separated
	VideoExtensions string `koanf:"video_extensions"` // comma-separated
	ToNotion        bool   `koanf:"to_notion"`
}

// Log configures structured logging output.
type Log struct {
	Level  string `koanf:"level"`  // debug | info | warn | error
	Format string `koanf:"format"` // json | text
}

func defaultConfig() *Config {
	return &Config{
		Server: Server{
			Host:        "0.0.0.0",
			Port:        3000,
			Environment: "development",
		},
		Auth: Auth{
			AccessPassword:     "",
			SigningKey:         "",
			SessionExpireHours: 24,
			Transport:          "cookie",
		},
		Store: Store{
			Backend: "notion",
			DataDir: "./data",
		},
		Upload: Upload{
			Dir:             "./data/uploads",
			MaxFileSize:     10 << 20,
			ImageExtensions: "jpg,jpeg,png,gif,webp",
			VideoExtensions: "mp4,mov,avi,mkv",
			ToNotion:        false,
		},
		Log: Log{
			Level:  "info",
			Format: "json",
		},
	}
}

// envMappings maps flat environment variable names onto koanf paths.
// Unlisted variables are ignored.
var envMappings = map[string]string{
	"server_host":     "server.host",
	"server_port":     "server.port",
	"environment":     "server.environment",
	"public_base_url": "server.base_url",

	"access_password":      "auth.access_password",
	"jwt_secret":           "auth.signing_key",
	"session_expire_hours": "auth.session_expire_hours",
	"session_transport":    "auth.transport",

	"store_backend":      "store.backend",
	"notion_api_key":     "store.notion_api_key",
	"notion_database_id": "store.notion_database_id",
	"data_dir":           "store.data_dir",

	"upload_dir":               "upload.dir",
	"max_file_size":            "upload.max_file_size",
	"allowed_image_extensions": "upload.image_extensions",
	"allowed_video_extensions": "upload.video_extensions",
	"upload_to_notion":         "upload.to_notion",

	"log_level":  "log.level",
	"log_format": "log.format",
}

func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}

// Load builds the configuration from defaults, an optional config file
// and environment variables, then validates it.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func findConfigFile() string {
	if path := os.Getenv(ConfigPathEnvVar); path != "" {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	for _, path := range defaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Server.Environment, "production")
}

// SessionLifetime returns the configured session lifetime as a duration.
func (c *Config) SessionLifetime() time.Duration {
	hours := c.Auth.SessionExpireHours
	if hours <= 0 {
		hours = 24
	}
	return time.Duration(hours) * time.Hour
}

// Validate rejects configurations that represent deployment defects.
// A missing access password is NOT a validation error — "not configured"
// is a legal state that the auth gate reports per request — but a
// production deployment without a signing key is fatal.
func (c *Config) Validate() error {
	if c.IsProduction() && c.Auth.SigningKey == "" {
		return fmt.Errorf("auth.signing_key (JWT_SECRET) is required in production")
	}
	switch c.Store.Backend {
	case "notion":
		if c.Store.NotionAPIKey == "" || c.Store.NotionDatabaseID == "" {
			return fmt.Errorf("store backend %q requires NOTION_API_KEY and NOTION_DATABASE_ID", c.Store.Backend)
		}
	case "local", "memory":
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	switch c.Auth.Transport {
	case "cookie", "mirrored":
	default:
		return fmt.Errorf("unknown session transport %q", c.Auth.Transport)
	}
	if c.Upload.MaxFileSize <= 0 {
		return fmt.Errorf("upload.max_file_size must be positive")
	}
	return nil
}

// ImageExtensionList returns the allowed image extensions.
func (c *Config) ImageExtensionList() []string {
	return splitCSV(c.Upload.ImageExtensions)
}

// VideoExtensionList returns the allowed video extensions.
func (c *Config) VideoExtensionList() []string {
	return splitCSV(c.Upload.VideoExtensions)
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, strings.ToLower(p))
		}
	}
	return out
}
