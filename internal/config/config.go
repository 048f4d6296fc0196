package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"sms-ingress-server/pkg/logger"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// Config holds all configuration settings
type Config struct {
	Server struct {
		Port int    `json:"port" validate:"min=1,max=65535"`
		Host string `json:"host"`
		// Redirect plain HTTP requests to HTTPS
		ForceHTTPS bool `json:"force_https"`
	} `json:"server"`
	Database struct {
		Driver string `json:"driver" validate:"oneof=sqlite3 pgx"`
		DSN    string `json:"dsn" validate:"required"`
	} `json:"database"`
	Redis struct {
		URL         string        `json:"url" validate:"required"`
		DialTimeout time.Duration `json:"dial_timeout"`
	} `json:"redis"`
	Queue struct {
		Name       string        `json:"name" validate:"required"`
		Prefix     string        `json:"prefix" validate:"required"`
		AddTimeout time.Duration `json:"add_timeout" validate:"gt=0"`
	} `json:"queue"`
	JWT struct {
		Secret      string        `json:"secret" validate:"min=10"`
		TokenExpiry time.Duration `json:"token_expiry"`
	} `json:"jwt"`
	SMS struct {
		MaxSegments    int           `json:"max_segments" validate:"min=1"`
		ExpireMinDelay time.Duration `json:"expire_min_delay" validate:"gt=0"`
		DefaultRegion  string        `json:"default_region" validate:"len=2"`
	} `json:"sms"`
	OTP struct {
		TTL      time.Duration `json:"ttl" validate:"gt=0"`
		HashCost int           `json:"hash_cost" validate:"min=4,max=31"`
	} `json:"otp"`
	SMTP struct {
		Host     string `json:"host"`
		Port     int    `json:"port" validate:"min=0,max=65535"`
		Username string `json:"username"`
		Password string `json:"password"`
		From     string `json:"from" validate:"omitempty,email"`
	} `json:"smtp"`
	CORS struct {
		AllowOrigins []string `json:"allow_origins"`
	} `json:"cors"`
	Logging struct {
		Level   string `json:"level" validate:"omitempty,oneof=debug info warn error"`
		Path    string `json:"path" validate:"required"`
		Console bool   `json:"console"`
	} `json:"logging"`
}

// LoadConfig loads configuration from a JSON file
func LoadConfig(path string) (*Config, error) {
	// Validate path to prevent directory traversal
	cleanPath := filepath.Clean(path)
	if !filepath.IsAbs(cleanPath) {
		return nil, fmt.Errorf("config path must be absolute")
	}

	// Check if file exists and is a regular file
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("config file error: %w", err)
	}
	if !fileInfo.Mode().IsRegular() {
		return nil, fmt.Errorf("config path is not a regular file")
	}

	file, err := os.Open(cleanPath)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			logger.Warn("Failed to close config file", zap.Error(closeErr))
		}
	}()

	// Unset fields keep their defaults
	config := DefaultConfig()
	if err := json.NewDecoder(file).Decode(config); err != nil {
		return nil, err
	}

	return config, nil
}

// LoadFromEnv builds the configuration from defaults, the given .env files
// (".env" when none are named) and the process environment, in increasing
// order of precedence.
func LoadFromEnv(envFiles ...string) (*Config, error) {
	return Load("", envFiles...)
}

// Load layers the JSON file at path (skipped when empty) over the defaults,
// then applies .env files and the process environment on top.
func Load(path string, envFiles ...string) (*Config, error) {
	config := DefaultConfig()
	if path != "" {
		var err error
		if config, err = LoadConfig(path); err != nil {
			return nil, err
		}
	}

	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		// godotenv.Load never overrides variables that are already set
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	if err := config.ApplyEnv(); err != nil {
		return nil, err
	}
	return config, nil
}

// ApplyEnv overrides settings with any environment variables that are set
func (c *Config) ApplyEnv() error {
	var errs []error

	envString("APP_HOST", &c.Server.Host)
	errs = append(errs, envInt("APP_PORT", &c.Server.Port))
	errs = append(errs, envBool("FORCE_HTTPS", &c.Server.ForceHTTPS))
	envString("DB_DRIVER", &c.Database.Driver)
	envString("DB_URL", &c.Database.DSN)
	envString("REDIS_URL", &c.Redis.URL)
	envString("QUEUE_NAME", &c.Queue.Name)
	errs = append(errs, envSeconds("QUEUE_ADD_TIMEOUT_SECONDS", &c.Queue.AddTimeout))
	envString("JWT_SECRET", &c.JWT.Secret)
	errs = append(errs, envInt("MAX_SMS_CHUNKS", &c.SMS.MaxSegments))
	errs = append(errs, envSeconds("SMS_EXPIRE_MINIMUM_DELAY_SECONDS", &c.SMS.ExpireMinDelay))
	envString("SMS_DEFAULT_REGION", &c.SMS.DefaultRegion)
	errs = append(errs, envSeconds("OTP_TTL_SECONDS", &c.OTP.TTL))
	errs = append(errs, envInt("HASH_COST", &c.OTP.HashCost))
	envString("SMTP_HOST", &c.SMTP.Host)
	errs = append(errs, envInt("SMTP_PORT", &c.SMTP.Port))
	envString("SMTP_USERNAME", &c.SMTP.Username)
	envString("SMTP_PASSWORD", &c.SMTP.Password)
	envString("SMTP_FROM", &c.SMTP.From)
	envString("LOG_LEVEL", &c.Logging.Level)
	envString("LOG_PATH", &c.Logging.Path)
	errs = append(errs, envBool("LOG_CONSOLE", &c.Logging.Console))
	if v, ok := os.LookupEnv("CORS_ALLOW_ORIGINS"); ok {
		c.CORS.AllowOrigins = splitList(v)
	}

	return errors.Join(errs...)
}

var validate = validator.New()

// Validate reports every setting that is out of range
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	config := &Config{}
	config.Server.Port = 3000
	config.Server.Host = "0.0.0.0"
	config.Database.Driver = "sqlite3"
	config.Database.DSN = "file:sms.db?cache=shared&mode=rwc"
	config.Redis.URL = "redis://localhost:6379/0"
	config.Redis.DialTimeout = 2 * time.Second
	config.Queue.Name = "api-queue"
	config.Queue.Prefix = "bull"
	config.Queue.AddTimeout = 4 * time.Second
	config.JWT.Secret = "your-secret-key" // This should be changed in production
	config.JWT.TokenExpiry = 24 * time.Hour
	config.SMS.MaxSegments = 6
	config.SMS.ExpireMinDelay = 60 * time.Second
	config.SMS.DefaultRegion = "BD"
	config.OTP.TTL = 10 * time.Minute
	config.OTP.HashCost = 10
	config.SMTP.Port = 587
	config.CORS.AllowOrigins = []string{"*"}
	config.Logging.Level = "info"
	config.Logging.Path = "server.log"
	return config
}

func envString(key string, dst *string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func envInt(key string, dst *int) error {
	v, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func envSeconds(key string, dst *time.Duration) error {
	v, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = time.Duration(n) * time.Second
	return nil
}

func envBool(key string, dst *bool) error {
	v, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = b
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
