package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/yourorg/csvkit/pkg/csvwriter"
)

// ConfigSource defines an interface for loading configuration from various sources.
type ConfigSource interface {
	Get(key string) (string, bool)
	GetWithDefault(key, defaultValue string) string
}

// EnvConfigSource loads configuration from environment variables.
type EnvConfigSource struct{}

// Get retrieves an environment variable.
func (e *EnvConfigSource) Get(key string) (string, bool) {
	val := os.Getenv(key)
	return val, val != ""
}

// GetWithDefault retrieves an environment variable or returns a default value.
func (e *EnvConfigSource) GetWithDefault(key, defaultValue string) string {
	if val, ok := e.Get(key); ok {
		return val
	}
	return defaultValue
}

// MapConfigSource serves configuration from an in-memory map.
type MapConfigSource map[string]string

// Get retrieves a value from the map.
func (m MapConfigSource) Get(key string) (string, bool) {
	val, ok := m[key]
	return val, ok && val != ""
}

// GetWithDefault retrieves a value from the map or returns a default.
func (m MapConfigSource) GetWithDefault(key, defaultValue string) string {
	if val, ok := m.Get(key); ok {
		return val
	}
	return defaultValue
}

// FileConfigSource loads configuration from a JSON or YAML file.
type FileConfigSource struct {
	data map[string]interface{}
}

// NewFileConfigSource creates a new file-based config source.
// Supports both JSON and YAML files based on file extension.
func NewFileConfigSource(filePath string) (*FileConfigSource, error) {
	data := make(map[string]interface{})

	fileData, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	switch {
	case strings.HasSuffix(filePath, ".yaml"), strings.HasSuffix(filePath, ".yml"):
		if err := yaml.Unmarshal(fileData, &data); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case strings.HasSuffix(filePath, ".json"):
		if err := json.Unmarshal(fileData, &data); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file format, use .json, .yaml, or .yml")
	}

	return &FileConfigSource{data: data}, nil
}

// Get retrieves a value from the config file. Keys are matched
// case-insensitively against the file's top-level keys first, then resolved
// with dot notation (e.g. "csv.delimiter").
func (f *FileConfigSource) Get(key string) (string, bool) {
	for k, v := range f.data {
		if strings.EqualFold(k, key) {
			return stringify(v), true
		}
	}

	var current interface{} = f.data
	for _, k := range strings.Split(key, ".") {
		m, ok := current.(map[string]interface{})
		if !ok {
			return "", false
		}
		val, exists := m[k]
		if !exists {
			return "", false
		}
		current = val
	}
	return stringify(current), true
}

// GetWithDefault retrieves a value from the config file or returns a default.
func (f *FileConfigSource) GetWithDefault(key, defaultValue string) string {
	if val, ok := f.Get(key); ok {
		return val
	}
	return defaultValue
}

func stringify(v interface{}) string {
	if str, ok := v.(string); ok {
		return str
	}
	return fmt.Sprintf("%v", v)
}

// CompositeConfigSource checks multiple config sources in order.
type CompositeConfigSource struct {
	sources []ConfigSource
}

// NewCompositeConfigSource returns a source that consults sources in order.
func NewCompositeConfigSource(sources ...ConfigSource) *CompositeConfigSource {
	return &CompositeConfigSource{sources: sources}
}

// Get retrieves a value from the first source that has it.
func (c *CompositeConfigSource) Get(key string) (string, bool) {
	for _, source := range c.sources {
		if val, ok := source.Get(key); ok {
			return val, true
		}
	}
	return "", false
}

// GetWithDefault retrieves a value from sources or returns default.
func (c *CompositeConfigSource) GetWithDefault(key, defaultValue string) string {
	if val, ok := c.Get(key); ok {
		return val
	}
	return defaultValue
}

// CSVConfig holds the encoder defaults. Characters are single-rune strings;
// an empty Escape disables the escape convention.
type CSVConfig struct {
	Delimiter string `validate:"required,len=1"`
	Enclosure string `validate:"required,len=1,nefield=Delimiter"`
	Escape    string `validate:"omitempty,len=1,nefield=Delimiter"`
	HasHeader bool
	UseCRLF   bool
}

// Config holds application configuration.
type Config struct {
	CSV CSVConfig

	// Blob Storage configuration
	BlobStorageAccountName string
	BlobStorageAccountKey  string
	BlobContainer          string `validate:"required"`

	// Service Bus configuration
	ServiceBusNamespace string
	ServiceBusKeyName   string
	ServiceBusKeyValue  string
	ServiceBusQueue     string `validate:"required"`

	// HTTP Server configuration
	HTTPPort         int `validate:"min=1,max=65535"`
	HTTPReadTimeout  int `validate:"min=0"` // seconds
	HTTPWriteTimeout int `validate:"min=0"` // seconds
	HTTPIdleTimeout  int `validate:"min=0"` // seconds
	RateLimitRPS     float64
	RateLimitBurst   int
	MaxBodySize      int64 // bytes

	// Auth configuration; empty disables bearer auth
	JWTSecret string `validate:"omitempty,min=32"`

	// Postgres connection string for query exports; empty disables them
	DatabaseURL string
	// Directory that query exports are written to
	ExportDir string `validate:"required"`

	// New Relic configuration; disabled without a license key
	NewRelicEnabled    bool
	NewRelicLicenseKey string

	// Logging configuration
	LogLevel  string `validate:"oneof=debug info warn error"`
	LogFormat string `validate:"oneof=json console"`

	// Application configuration
	AppName     string
	AppVersion  string
	Environment string

	// Retry configuration
	RetryMaxAttempts  int `validate:"min=1"`
	RetryInitialDelay int // milliseconds
	RetryMaxDelay     int // milliseconds
}

var validate = validator.New()

// LoadConfig loads configuration from the provided source.
func LoadConfig(source ConfigSource) (*Config, error) {
	cfg := &Config{}

	getInt := func(key string, defaultValue int) int {
		val, err := strconv.Atoi(source.GetWithDefault(key, strconv.Itoa(defaultValue)))
		if err != nil {
			return defaultValue
		}
		return val
	}
	getBool := func(key string, defaultValue bool) bool {
		val, err := strconv.ParseBool(source.GetWithDefault(key, strconv.FormatBool(defaultValue)))
		if err != nil {
			return defaultValue
		}
		return val
	}
	getFloat := func(key string, defaultValue float64) float64 {
		val, err := strconv.ParseFloat(source.GetWithDefault(key, ""), 64)
		if err != nil {
			return defaultValue
		}
		return val
	}

	defaults := csvwriter.DefaultOptions()
	cfg.CSV = CSVConfig{
		Delimiter: source.GetWithDefault("CSV_DELIMITER", string(defaults.Delimiter)),
		Enclosure: source.GetWithDefault("CSV_ENCLOSURE", string(defaults.Enclosure)),
		Escape:    source.GetWithDefault("CSV_ESCAPE", ""),
		HasHeader: getBool("CSV_HAS_HEADER", defaults.HasHeader),
		UseCRLF:   getBool("CSV_USE_CRLF", defaults.UseCRLF),
	}
	if strings.EqualFold(cfg.CSV.Escape, "none") {
		cfg.CSV.Escape = ""
	}

	cfg.BlobStorageAccountName = source.GetWithDefault("BLOB_STORAGE_ACCOUNT_NAME", "")
	cfg.BlobStorageAccountKey = source.GetWithDefault("BLOB_STORAGE_ACCOUNT_KEY", "")
	cfg.BlobContainer = source.GetWithDefault("BLOB_CONTAINER", "csv-exports")

	cfg.ServiceBusNamespace = source.GetWithDefault("SERVICE_BUS_NAMESPACE", "")
	cfg.ServiceBusKeyName = source.GetWithDefault("SERVICE_BUS_KEY_NAME", "")
	cfg.ServiceBusKeyValue = source.GetWithDefault("SERVICE_BUS_KEY_VALUE", "")
	cfg.ServiceBusQueue = source.GetWithDefault("SERVICE_BUS_QUEUE", "csv-export-events")

	cfg.HTTPPort = getInt("HTTP_PORT", 8080)
	cfg.HTTPReadTimeout = getInt("HTTP_READ_TIMEOUT", 30)
	cfg.HTTPWriteTimeout = getInt("HTTP_WRITE_TIMEOUT", 30)
	cfg.HTTPIdleTimeout = getInt("HTTP_IDLE_TIMEOUT", 120)
	cfg.RateLimitRPS = getFloat("RATE_LIMIT_RPS", 0)
	cfg.RateLimitBurst = getInt("RATE_LIMIT_BURST", 10)
	cfg.MaxBodySize = int64(getInt("MAX_BODY_SIZE", 10<<20))

	cfg.JWTSecret = source.GetWithDefault("JWT_SECRET", "")
	cfg.DatabaseURL = source.GetWithDefault("DATABASE_URL", "")
	cfg.ExportDir = source.GetWithDefault("EXPORT_DIR", "exports")

	cfg.NewRelicEnabled = getBool("NEW_RELIC_ENABLED", false)
	cfg.NewRelicLicenseKey = source.GetWithDefault("NEW_RELIC_LICENSE_KEY", "")

	cfg.LogLevel = source.GetWithDefault("LOG_LEVEL", "info")
	cfg.LogFormat = source.GetWithDefault("LOG_FORMAT", "json")

	cfg.AppName = source.GetWithDefault("APP_NAME", "csv-export-service")
	cfg.AppVersion = source.GetWithDefault("APP_VERSION", "1.0.0")
	cfg.Environment = source.GetWithDefault("ENVIRONMENT", "dev")

	cfg.RetryMaxAttempts = getInt("RETRY_MAX_ATTEMPTS", 3)
	cfg.RetryInitialDelay = getInt("RETRY_INITIAL_DELAY", 100)
	cfg.RetryMaxDelay = getInt("RETRY_MAX_DELAY", 5000)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration against its struct tags.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// CSVOptions converts the CSV section into encoder options.
func (c *Config) CSVOptions() csvwriter.Options {
	opts := csvwriter.Options{
		HasHeader: c.CSV.HasHeader,
		UseCRLF:   c.CSV.UseCRLF,
	}
	opts.Delimiter, _ = utf8.DecodeRuneInString(c.CSV.Delimiter)
	opts.Enclosure, _ = utf8.DecodeRuneInString(c.CSV.Enclosure)
	if c.CSV.Escape != "" {
		opts.Escape, _ = utf8.DecodeRuneInString(c.CSV.Escape)
	}
	return opts
}

// LoadConfigFromEnv loads configuration from environment variables.
func LoadConfigFromEnv() (*Config, error) {
	return LoadConfig(&EnvConfigSource{})
}

// LoadConfigFromFile loads configuration from a JSON or YAML file.
// Environment variables will override file values if both are set.
func LoadConfigFromFile(filePath string) (*Config, error) {
	fileSource, err := NewFileConfigSource(filePath)
	if err != nil {
		return nil, err
	}
	return LoadConfig(NewCompositeConfigSource(&EnvConfigSource{}, fileSource))
}
