package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Store backends.
const (
	BackendPinpoint = "pinpoint"
	BackendDynamoDB = "dynamodb"
	BackendS3       = "s3"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Mail backends.
const (
	MailSMTP = "smtp"
	MailSES  = "ses"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
	AWS        AWSConfig        `yaml:"aws"`
	Store      StoreConfig      `yaml:"store"`
	Mail       MailConfig       `yaml:"mail"`
	Engagement EngagementConfig `yaml:"engagement"`
	Tracking   TrackingConfig   `yaml:"tracking"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port                int      `yaml:"port"`
	Host                string   `yaml:"host"`
	PublicBaseURL       string   `yaml:"public_base_url"` // prefix of every tracking link
	AllowedOrigins      []string `yaml:"allowed_origins"`
	ReadTimeoutSeconds  int      `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds int      `yaml:"write_timeout_seconds"`
}

// Addr returns the listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.GetHost(), c.Port)
}

// GetHost returns the server host, with container detection
func (c ServerConfig) GetHost() string {
	// On ECS/container, listen on all interfaces
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// ReadTimeout returns the configured read timeout as a duration
func (c ServerConfig) ReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutSeconds) * time.Second
}

// WriteTimeout returns the configured write timeout as a duration
func (c ServerConfig) WriteTimeout() time.Duration {
	return time.Duration(c.WriteTimeoutSeconds) * time.Second
}

// LogConfig controls the structured logger.
type LogConfig struct {
	Level            string `yaml:"level"`
	DisableRedaction bool   `yaml:"disable_redaction"`
}

// AWSConfig holds credentials shared by the Pinpoint, DynamoDB, S3 and SES
// clients. Empty keys fall back to the default credential chain.
type AWSConfig struct {
	Region    string `yaml:"region"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Profile   string `yaml:"profile"`
}

// StoreConfig selects and configures the endpoint store.
type StoreConfig struct {
	Backend           string `yaml:"backend"`
	PinpointProjectID string `yaml:"pinpoint_project_id"`
	DynamoDBTable     string `yaml:"dynamodb_table"`
	S3Bucket          string `yaml:"s3_bucket"`
	S3Prefix          string `yaml:"s3_prefix"`
	RedisURL          string `yaml:"redis_url"`
	RedisKeyPrefix    string `yaml:"redis_key_prefix"`
	DatabaseURL       string `yaml:"database_url"`
	TimeoutSeconds    int    `yaml:"timeout_seconds"`
}

// Timeout returns the per-call store timeout as a duration
func (c StoreConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// MailConfig selects and configures the mail dispatcher.
type MailConfig struct {
	Backend          string     `yaml:"backend"`
	Sender           string     `yaml:"sender"`
	Layout           string     `yaml:"layout"` // liquid template; empty uses the built-in layout
	ConfigurationSet string     `yaml:"configuration_set"`
	SMTP             SMTPConfig `yaml:"smtp"`
}

// SMTPConfig holds SMTP relay settings.
type SMTPConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	Username       string `yaml:"username"`
	Password       string `yaml:"password"`
	TimeoutSeconds int    `yaml:"timeout_seconds"` // bounds dialing the relay
}

// Timeout returns the relay dial timeout as a duration
func (c SMTPConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// EngagementConfig controls how endpoint updates are applied.
type EngagementConfig struct {
	// SerializeUpdates wraps every read-merge-write in a distributed lock.
	// Off by default: concurrent updates to one endpoint may then lose an
	// increment.
	SerializeUpdates bool `yaml:"serialize_updates"`
	LockTTLSeconds   int  `yaml:"lock_ttl_seconds"`
	LockWaitMillis   int  `yaml:"lock_wait_millis"`
}

// LockTTL returns the lock expiry as a duration
func (c EngagementConfig) LockTTL() time.Duration {
	return time.Duration(c.LockTTLSeconds) * time.Second
}

// LockWait returns how long an update waits for the lock
func (c EngagementConfig) LockWait() time.Duration {
	return time.Duration(c.LockWaitMillis) * time.Millisecond
}

// TrackingConfig controls the tracking handlers.
type TrackingConfig struct {
	// RedirectOnError still redirects a click when the store write fails.
	RedirectOnError bool `yaml:"redirect_on_error"`
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 3000
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.PublicBaseURL == "" {
		cfg.Server.PublicBaseURL = fmt.Sprintf("http://localhost:%d", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeoutSeconds == 0 {
		cfg.Server.ReadTimeoutSeconds = 5
	}
	if cfg.Server.WriteTimeoutSeconds == 0 {
		cfg.Server.WriteTimeoutSeconds = 30
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.AWS.Region == "" {
		cfg.AWS.Region = "us-east-1"
	}
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = BackendPinpoint
	}
	if cfg.Store.RedisKeyPrefix == "" {
		cfg.Store.RedisKeyPrefix = "endpoint:"
	}
	if cfg.Store.S3Prefix == "" {
		cfg.Store.S3Prefix = "endpoints/"
	}
	if cfg.Store.TimeoutSeconds == 0 {
		cfg.Store.TimeoutSeconds = 10
	}
	if cfg.Mail.Backend == "" {
		cfg.Mail.Backend = MailSMTP
	}
	if cfg.Mail.SMTP.Port == 0 {
		cfg.Mail.SMTP.Port = 587
	}
	if cfg.Mail.SMTP.TimeoutSeconds == 0 {
		cfg.Mail.SMTP.TimeoutSeconds = 30
	}
	if cfg.Engagement.LockTTLSeconds == 0 {
		cfg.Engagement.LockTTLSeconds = 10
	}
	if cfg.Engagement.LockWaitMillis == 0 {
		cfg.Engagement.LockWaitMillis = 2000
	}
}

// LoadFromEnv loads configuration with environment variable overrides.
// It loads a .env file (if present) before reading env vars, so secrets can
// live in .env locally and in real env vars when deployed. A missing config
// file is not an error: the defaults plus the environment are used.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg = &Config{}
		applyDefaults(cfg)
	} else if err != nil {
		return nil, err
	}

	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if v := os.Getenv("PUBLIC_BASE_URL"); v != "" {
		cfg.Server.PublicBaseURL = v
	}
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		cfg.Server.AllowedOrigins = splitList(v)
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("AWS_REGION"); v != "" {
		cfg.AWS.Region = v
	}
	if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" {
		cfg.AWS.AccessKey = v
	}
	if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" {
		cfg.AWS.SecretKey = v
	}
	if v := os.Getenv("STORE_BACKEND"); v != "" {
		cfg.Store.Backend = v
	}
	if v := os.Getenv("PINPOINT_PROJECT_ID"); v != "" {
		cfg.Store.PinpointProjectID = v
	}
	if v := os.Getenv("DYNAMODB_TABLE"); v != "" {
		cfg.Store.DynamoDBTable = v
	}
	if v := os.Getenv("S3_BUCKET"); v != "" {
		cfg.Store.S3Bucket = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Store.RedisURL = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Store.DatabaseURL = v
	}
	if v := os.Getenv("MAIL_BACKEND"); v != "" {
		cfg.Mail.Backend = v
	}
	if v := os.Getenv("SENDER_EMAIL"); v != "" {
		cfg.Mail.Sender = v
	}
	if v := os.Getenv("SMTP_HOST"); v != "" {
		cfg.Mail.SMTP.Host = v
	}
	if v := os.Getenv("SMTP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("SMTP_PORT: %w", err)
		}
		cfg.Mail.SMTP.Port = port
	}
	if v := os.Getenv("SMTP_USERNAME"); v != "" {
		cfg.Mail.SMTP.Username = v
	}
	if v := os.Getenv("SMTP_PASSWORD"); v != "" {
		cfg.Mail.SMTP.Password = v
	}
	if v := os.Getenv("SERIALIZE_UPDATES"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("SERIALIZE_UPDATES: %w", err)
		}
		cfg.Engagement.SerializeUpdates = b
	}

	return cfg, nil
}

// Validate checks that the selected backends have what they need.
func (c *Config) Validate() error {
	return errors.Join(c.ValidateStore(), c.validateMail())
}

// ValidateStore checks only the store and locking settings, for binaries
// that never send mail.
func (c *Config) ValidateStore() error {
	var errs []error
	switch c.Store.Backend {
	case BackendPinpoint:
		if c.Store.PinpointProjectID == "" {
			errs = append(errs, errors.New("store.pinpoint_project_id is required for the pinpoint backend"))
		}
	case BackendDynamoDB:
		if c.Store.DynamoDBTable == "" {
			errs = append(errs, errors.New("store.dynamodb_table is required for the dynamodb backend"))
		}
	case BackendS3:
		if c.Store.S3Bucket == "" {
			errs = append(errs, errors.New("store.s3_bucket is required for the s3 backend"))
		}
	case BackendRedis:
		if c.Store.RedisURL == "" {
			errs = append(errs, errors.New("store.redis_url is required for the redis backend"))
		}
	case BackendPostgres:
		if c.Store.DatabaseURL == "" {
			errs = append(errs, errors.New("store.database_url is required for the postgres backend"))
		}
	case BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown store backend %q", c.Store.Backend))
	}
	if c.Engagement.SerializeUpdates && c.Store.RedisURL == "" && c.Store.DatabaseURL == "" {
		errs = append(errs, errors.New("engagement.serialize_updates needs store.redis_url or store.database_url for locking"))
	}
	return errors.Join(errs...)
}

func (c *Config) validateMail() error {
	var errs []error
	switch c.Mail.Backend {
	case MailSMTP:
		if c.Mail.SMTP.Host == "" {
			errs = append(errs, errors.New("mail.smtp.host is required for the smtp backend"))
		}
	case MailSES:
	default:
		errs = append(errs, fmt.Errorf("unknown mail backend %q", c.Mail.Backend))
	}
	if c.Mail.Sender == "" {
		errs = append(errs, errors.New("mail.sender is required"))
	}
	return errors.Join(errs...)
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
