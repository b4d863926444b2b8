package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "MANGATRACK"

// DevJWTSecret signs tokens when auth.jwt_secret is unset. Only for local use.
const DevJWTSecret = "change-me-in-production"

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Generation GenerationConfig `mapstructure:"generation"`
	Chat       ChatConfig       `mapstructure:"chat"`
	Log        LogConfig        `mapstructure:"log"`
}

type ServerConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	CORSOrigins string `mapstructure:"cors_origins"`
}

// Address returns host:port for fiber's Listen
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

// DSN builds a postgres connection string accepted by both lib/pq and pgx
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// URL builds the postgres:// form used by golang-migrate
func (d DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
}

// SigningSecret returns the configured secret, falling back to DevJWTSecret.
// The second result reports whether the fallback was used.
func (a AuthConfig) SigningSecret() (string, bool) {
	if a.JWTSecret == "" {
		return DevJWTSecret, true
	}
	return a.JWTSecret, false
}

type GenerationConfig struct {
	Provider        string        `mapstructure:"provider"`
	APIKey          string        `mapstructure:"api_key"`
	BaseURL         string        `mapstructure:"base_url"`
	Model           string        `mapstructure:"model"`
	MaxTokens       int           `mapstructure:"max_tokens"`
	Temperature     float32       `mapstructure:"temperature"`
	Timeout         time.Duration `mapstructure:"timeout"`
	BreakerFailures uint32        `mapstructure:"breaker_failures"`
	BreakerTimeout  time.Duration `mapstructure:"breaker_timeout"`
}

type ChatConfig struct {
	DailyLimit     int    `mapstructure:"daily_limit"`
	SessionBackend string `mapstructure:"session_backend"`
	BurstPerMinute int    `mapstructure:"burst_per_minute"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads config.json from the usual locations (if any) and applies
// MANGATRACK_* environment overrides on top of the defaults
func Load() (*Config, error) {
	v, err := readConfig()
	if err != nil {
		return nil, err
	}
	return decode(v)
}

// LoadAuth reads only the auth section. Tools that mint tokens use it so they
// sign with the same secret as the server without needing a full server config.
func LoadAuth() (*AuthConfig, error) {
	v, err := readConfig()
	if err != nil {
		return nil, err
	}
	return decodeAuth(v)
}

func readConfig() (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("json")

	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	if homeDir, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(homeDir, ".mangatrack"))
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return v, nil
}

func decode(v *viper.Viper) (*Config, error) {
	cfg, err := unmarshal(v)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decodeAuth(v *viper.Viper) (*AuthConfig, error) {
	cfg, err := unmarshal(v)
	if err != nil {
		return nil, err
	}
	return &cfg.Auth, nil
}

func unmarshal(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", "*")

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "mangatrack")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "mangatrack")
	v.SetDefault("database.sslmode", "disable")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.issuer", "mangatrack")

	v.SetDefault("generation.provider", "openai")
	v.SetDefault("generation.api_key", "")
	v.SetDefault("generation.base_url", "")
	v.SetDefault("generation.model", "gpt-4o-mini")
	v.SetDefault("generation.max_tokens", 400)
	v.SetDefault("generation.temperature", 0.7)
	v.SetDefault("generation.timeout", 30*time.Second)
	v.SetDefault("generation.breaker_failures", 5)
	v.SetDefault("generation.breaker_timeout", 30*time.Second)

	v.SetDefault("chat.daily_limit", 20)
	v.SetDefault("chat.session_backend", "memory")
	v.SetDefault("chat.burst_per_minute", 0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Validate rejects combinations the server cannot start with
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "pgx":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}

	switch c.Chat.SessionBackend {
	case "memory":
	case "postgres":
		if !c.Database.Enabled {
			return errors.New("chat.session_backend=postgres requires database.enabled")
		}
	default:
		return fmt.Errorf("unsupported session backend %q", c.Chat.SessionBackend)
	}

	switch c.Generation.Provider {
	case "openai":
		if c.Generation.APIKey == "" && c.Generation.BaseURL == "" {
			return errors.New("generation.api_key is required (set generation.provider=stub for local development)")
		}
	case "stub":
	default:
		return fmt.Errorf("unsupported generation provider %q", c.Generation.Provider)
	}

	if c.Chat.DailyLimit < 1 {
		return errors.New("chat.daily_limit must be positive")
	}
	if c.Generation.Timeout <= 0 {
		return errors.New("generation.timeout must be positive")
	}
	return nil
}
