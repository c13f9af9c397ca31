package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvPrefix = "SPACEBLOG"
	EnvFile   = ".env"

	FallbackBlocking = "blocking"
	FallbackTrue     = "true"
)

type Config struct {
	Prismic  PrismicConfig `mapstructure:"prismic"`
	Server   ServerConfig  `mapstructure:"server"`
	DB       DBConfig      `mapstructure:"db"`
	Pages    PagesConfig   `mapstructure:"pages"`
	Webhook  WebhookConfig `mapstructure:"webhook"`
	CORS     CORSConfig    `mapstructure:"cors"`
	Locale   string        `mapstructure:"locale"`
	Timezone string        `mapstructure:"timezone"`
	LogLevel string        `mapstructure:"log_level"`
	// LogPretty switches to the human readable console writer.
	LogPretty bool `mapstructure:"log_pretty"`
}

type PrismicConfig struct {
	Endpoint    string        `mapstructure:"endpoint"`
	AccessToken string        `mapstructure:"access_token"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DBConfig struct {
	Path string `mapstructure:"path"`
}

type PagesConfig struct {
	Dir string `mapstructure:"dir"`
	// Fallback is "blocking" or "true".
	Fallback string `mapstructure:"fallback"`
}

type WebhookConfig struct {
	Secret string `mapstructure:"secret"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Location resolves Timezone, defaulting to UTC.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Validate reports settings the server cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if c.Prismic.Endpoint == "" {
		errs = append(errs, errors.New("prismic.endpoint is required"))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d is out of range", c.Server.Port))
	}
	if c.Pages.Fallback != FallbackBlocking && c.Pages.Fallback != FallbackTrue {
		errs = append(errs, fmt.Errorf("pages.fallback must be %q or %q, got %q", FallbackBlocking, FallbackTrue, c.Pages.Fallback))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("prismic.endpoint", "")
	v.SetDefault("prismic.access_token", "")
	v.SetDefault("prismic.timeout", 10*time.Second)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)
	v.SetDefault("db.path", "./spaceblog.db")
	v.SetDefault("pages.dir", "./pages")
	v.SetDefault("pages.fallback", FallbackBlocking)
	v.SetDefault("webhook.secret", "")
	v.SetDefault("cors.allowed_origins", []string{})
	v.SetDefault("locale", "pt-BR")
	v.SetDefault("timezone", "UTC")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_pretty", false)
}

// Load reads configuration from defaults, an optional config file, a .env
// file and SPACEBLOG_ prefixed environment variables, in increasing order of
// precedence. An empty cfgFile looks for ./config.yaml and tolerates its
// absence.
func Load(cfgFile string) (*Config, error) {
	if err := godotenv.Load(EnvFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", EnvFile, err)
	}

	v := viper.New()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// the database path is also read from SQLITE_DB_PATH
	if err := v.BindEnv("db.path", EnvPrefix+"_DB_PATH", "SQLITE_DB_PATH"); err != nil {
		return nil, fmt.Errorf("failed to bind db.path: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || cfgFile != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	return &cfg, nil
}
