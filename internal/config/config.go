// Package config loads database connection and logging settings from an
// optional dotenv file, the process environment and command line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Keys understood by Load. Flags bind onto the same names.
const (
	KeyHost           = "POSTGRES_HOST"
	KeyPort           = "POSTGRES_PORT"
	KeyUser           = "POSTGRES_USER"
	KeyPassword       = "POSTGRES_PASSWORD"
	KeyDatabase       = "POSTGRES_DB"
	KeySSLMode        = "POSTGRES_SSLMODE"
	KeyAppName        = "POSTGRES_APP_NAME"
	KeyConnectTimeout = "POSTGRES_CONNECT_TIMEOUT"
	KeyLogLevel       = "LOG_LEVEL"
)

// Config holds everything needed to open a session against the token database.
type Config struct {
	Host           string        `validate:"required"`
	Port           int           `validate:"min=1,max=65535"`
	User           string        `validate:"required"`
	Password       string
	Database       string        `validate:"required"`
	SSLMode        string        `validate:"oneof=disable allow prefer require verify-ca verify-full"`
	AppName        string
	ConnectTimeout time.Duration
	LogLevel       string        `validate:"oneof=trace debug info warn warning error"`
}

var validate = validator.New()

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyHost, "localhost")
	v.SetDefault(KeyPort, 5432)
	v.SetDefault(KeyUser, "postgres")
	v.SetDefault(KeyPassword, "")
	v.SetDefault(KeyDatabase, "postgres")
	v.SetDefault(KeySSLMode, "disable")
	v.SetDefault(KeyAppName, "tokenstore")
	v.SetDefault(KeyConnectTimeout, 10*time.Second)
	v.SetDefault(KeyLogLevel, "info")
}

// Load reads envFile into the process environment when it exists, then
// resolves every key through v (explicit Set, bound flag, environment,
// default) and validates the result. An empty envFile skips dotenv loading.
func Load(v *viper.Viper, envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	SetDefaults(v)
	v.AutomaticEnv()

	cfg := Config{
		Host:           v.GetString(KeyHost),
		Port:           v.GetInt(KeyPort),
		User:           v.GetString(KeyUser),
		Password:       v.GetString(KeyPassword),
		Database:       v.GetString(KeyDatabase),
		SSLMode:        strings.ToLower(v.GetString(KeySSLMode)),
		AppName:        v.GetString(KeyAppName),
		ConnectTimeout: v.GetDuration(KeyConnectTimeout),
		LogLevel:       strings.ToLower(v.GetString(KeyLogLevel)),
	}

	if err := validate.Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// ConnString renders cfg as a libpq keyword/value connection string.
func (c Config) ConnString() string {
	connStr := fmt.Sprintf("host=%s port=%d user=%s dbname=%s sslmode=%s",
		quoteValue(c.Host), c.Port, quoteValue(c.User), quoteValue(c.Database), quoteValue(c.SSLMode))

	// An empty "password=" swallows the next keyword, so leave it out.
	if c.Password != "" {
		connStr += " password=" + quoteValue(c.Password)
	}
	if c.AppName != "" {
		connStr += " application_name=" + quoteValue(c.AppName)
	}
	if c.ConnectTimeout > 0 {
		// connect_timeout=0 means wait forever
		secs := int(c.ConnectTimeout.Seconds())
		if secs < 1 {
			secs = 1
		}
		connStr += fmt.Sprintf(" connect_timeout=%d", secs)
	}
	return connStr
}

// quoteValue single-quotes v when libpq would otherwise split or misread it.
// Backslashes and single quotes inside the quotes are escaped with a backslash.
func quoteValue(v string) string {
	if v != "" && !strings.ContainsAny(v, " \t\n\r\f\v'\\") {
		return v
	}
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(v) + "'"
}
