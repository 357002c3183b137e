package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the complete application configuration
type Config struct {
	Client   ClientConfig   `yaml:"client" json:"client"`
	Progress ProgressConfig `yaml:"progress" json:"progress"`
	Server   ServerConfig   `yaml:"server" json:"server"`
	Logging  LoggingConfig  `yaml:"logging" json:"logging"`
}

// ClientConfig holds the submission client configuration
type ClientConfig struct {
	BaseURL string        `yaml:"baseUrl" json:"baseUrl" validate:"required,url"`
	Timeout time.Duration `yaml:"timeout" json:"timeout"` // 0 leaves the transport default (none)
	PDFOnly bool          `yaml:"pdfOnly" json:"pdfOnly"`
}

// ProgressConfig holds the progress estimator tuning
type ProgressConfig struct {
	Interval          time.Duration `yaml:"interval" json:"interval"`
	EstimatedDuration time.Duration `yaml:"estimatedDuration" json:"estimatedDuration"`
	Cap               float64       `yaml:"cap" json:"cap" validate:"gt=0,lt=100"`
}

// ServerConfig holds the reference backend configuration
type ServerConfig struct {
	Address      string        `yaml:"address" json:"address" validate:"required"`
	Port         int           `yaml:"port" json:"port" validate:"min=1,max=65535"`
	DataDir      string        `yaml:"dataDir" json:"dataDir" validate:"required"`
	ProcessDelay time.Duration `yaml:"processDelay" json:"processDelay"`
	PendingTTL   time.Duration `yaml:"pendingTtl" json:"pendingTtl"`
	Version      string        `yaml:"version" json:"version"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level" validate:"oneof=DEBUG INFO WARN WARNING ERROR debug info warn warning error"`
	Format string `yaml:"format" json:"format" validate:"oneof=text json"`
	Output string `yaml:"output" json:"output"`
}

// DefaultConfig Default configuration values
var DefaultConfig = Config{
	Client: ClientConfig{
		BaseURL: "http://localhost:8001",
		Timeout: 0,
		PDFOnly: false,
	},
	Progress: ProgressConfig{
		Interval:          500 * time.Millisecond,
		EstimatedDuration: 300 * time.Second,
		Cap:               95,
	},
	Server: ServerConfig{
		Address:      "0.0.0.0",
		Port:         8001,
		DataDir:      "./data/uploads",
		ProcessDelay: 2 * time.Second,
		PendingTTL:   time.Hour,
		Version:      "dev",
	},
	Logging: LoggingConfig{
		Level:  "INFO",
		Format: "text",
		Output: "stderr",
	},
}

var validate = validator.New()

// LoadConfig loads configuration from multiple sources in order of precedence:
// 1. Environment variables, including those from a ./.env file (highest precedence)
// 2. Configuration file
// 3. Default values (lowest precedence)
func LoadConfig() (*Config, string, error) {
	return Load("")
}

// Load is LoadConfig with an explicit config file. An empty path searches the
// default locations.
func Load(path string) (*Config, string, error) {
	config := DefaultConfig

	// a missing .env is the normal case
	_ = godotenv.Load()

	var err error
	if path != "" {
		err = loadFromPath(&config, path)
	} else {
		path, err = loadFromFile(&config)
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to load config file: %w", err)
	}

	if e := loadFromEnv(&config); e != nil {
		return nil, "", fmt.Errorf("failed to load environment variables: %w", e)
	}

	if e := config.Validate(); e != nil {
		return nil, "", fmt.Errorf("configuration validation failed: %w", e)
	}

	return &config, path, nil
}

func configSearchPaths() []string {
	paths := []string{
		os.Getenv("DOCFLOW_CONFIG_PATH"),
		"./docflow.yaml",
		"./config/docflow.yaml",
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".docflow", "config.yaml"))
	}
	return paths
}

// loadFromFile loads configuration from the first YAML file found
func loadFromFile(config *Config) (string, error) {
	for _, path := range configSearchPaths() {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}

		if err := loadFromPath(config, path); err != nil {
			return "", err
		}
		return path, nil
	}

	return "built-in defaults (no config file found)", nil
}

func loadFromPath(config *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// loadFromEnv loads configuration from environment variables
func loadFromEnv(config *Config) error {
	var errs []error

	// UPLOAD_URL is the name the web frontend used for the same value
	if val := os.Getenv("UPLOAD_URL"); val != "" {
		config.Client.BaseURL = val
	}
	if val := os.Getenv("DOCFLOW_BASE_URL"); val != "" {
		config.Client.BaseURL = val
	}
	if val := os.Getenv("DOCFLOW_TIMEOUT"); val != "" {
		setDuration(&config.Client.Timeout, "DOCFLOW_TIMEOUT", val, &errs)
	}
	if val := os.Getenv("DOCFLOW_PDF_ONLY"); val != "" {
		config.Client.PDFOnly = val == "true" || val == "1"
	}

	if val := os.Getenv("DOCFLOW_PROGRESS_INTERVAL"); val != "" {
		setDuration(&config.Progress.Interval, "DOCFLOW_PROGRESS_INTERVAL", val, &errs)
	}
	if val := os.Getenv("DOCFLOW_PROGRESS_ESTIMATE"); val != "" {
		setDuration(&config.Progress.EstimatedDuration, "DOCFLOW_PROGRESS_ESTIMATE", val, &errs)
	}

	if val := os.Getenv("DOCFLOW_SERVER_ADDRESS"); val != "" {
		config.Server.Address = val
	}
	if val := os.Getenv("DOCFLOW_SERVER_PORT"); val != "" {
		port, err := strconv.Atoi(val)
		if err != nil {
			errs = append(errs, fmt.Errorf("DOCFLOW_SERVER_PORT: %w", err))
		} else {
			config.Server.Port = port
		}
	}
	if val := os.Getenv("DOCFLOW_DATA_DIR"); val != "" {
		config.Server.DataDir = val
	}
	if val := os.Getenv("DOCFLOW_PROCESS_DELAY"); val != "" {
		setDuration(&config.Server.ProcessDelay, "DOCFLOW_PROCESS_DELAY", val, &errs)
	}

	if val := os.Getenv("LOG_LEVEL"); val != "" {
		config.Logging.Level = val
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		config.Logging.Format = val
	}
	if val := os.Getenv("LOG_OUTPUT"); val != "" {
		config.Logging.Output = val
	}

	return errors.Join(errs...)
}

func setDuration(dst *time.Duration, name, val string, errs *[]error) {
	d, err := time.ParseDuration(val)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", name, err))
		return
	}
	*dst = d
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return fmt.Errorf("invalid %s: %v (rule %q)", fe.Namespace(), fe.Value(), fe.Tag())
		}
		return err
	}

	if !strings.HasPrefix(c.Client.BaseURL, "http://") && !strings.HasPrefix(c.Client.BaseURL, "https://") {
		return fmt.Errorf("client base URL must use http or https: %s", c.Client.BaseURL)
	}

	if c.Client.Timeout < 0 {
		return fmt.Errorf("invalid client timeout: %s", c.Client.Timeout)
	}

	if c.Progress.Interval <= 0 {
		return fmt.Errorf("invalid progress interval: %s", c.Progress.Interval)
	}

	if c.Progress.EstimatedDuration < c.Progress.Interval {
		return fmt.Errorf("progress estimated duration %s must be at least one interval (%s)",
			c.Progress.EstimatedDuration, c.Progress.Interval)
	}

	if c.Server.ProcessDelay < 0 {
		return fmt.Errorf("invalid server process delay: %s", c.Server.ProcessDelay)
	}

	if c.Server.PendingTTL <= 0 {
		return fmt.Errorf("invalid server pending TTL: %s", c.Server.PendingTTL)
	}

	return nil
}

func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

func (c *Config) ToYAML() ([]byte, error) {
	return yaml.Marshal(c)
}

func (c *Config) SaveToFile(path string) error {
	data, err := c.ToYAML()
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	return os.WriteFile(path, data, 0644)
}

// LoadFromFile loads a specific configuration file
func LoadFromFile(path string) (*Config, error) {
	config := DefaultConfig

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

// GenerateDefaultConfig creates a default configuration file
func GenerateDefaultConfig(path string) error {
	config := DefaultConfig
	return config.SaveToFile(path)
}

// IsDevelopmentMode returns true if running with debug logging
func (c *Config) IsDevelopmentMode() bool {
	return strings.EqualFold(c.Logging.Level, "DEBUG")
}
