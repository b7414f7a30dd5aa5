package config

import (
	"fmt"
	"os"

	"github.com/paulgirard/ricardo-gph-analysis/internal/util"
	"github.com/paulgirard/ricardo-gph-analysis/pkg/common"
	"github.com/paulgirard/ricardo-gph-analysis/pkg/gph"

	"github.com/go-playground/validator"
	"gopkg.in/yaml.v3"
)

// Config holds the settings of a resolution run.
type Config struct {
	// DataDir is the local directory holding the reference tables. When
	// Reference.Bucket is set the tables are read from S3 instead.
	DataDir   string          `yaml:"data_dir"`
	Reference ReferenceConfig `yaml:"reference"`

	StartYear      int `yaml:"start_year" validate:"required,min=1"`
	EndYear        int `yaml:"end_year" validate:"required,gtefield=StartYear"`
	MaxYearGap     int `yaml:"max_year_gap" validate:"min=1"`
	ParallelYears  int `yaml:"parallel_years" validate:"min=1"`
	ParallelRatios int `yaml:"parallel_ratios" validate:"min=1"`

	// StatusPriority ranks status kinds, highest first. Empty keeps the
	// dataset order of the records.
	StatusPriority []common.StatusKind `yaml:"status_priority"`

	DatabaseURL   string        `yaml:"database_url"`
	MigrationsDir string        `yaml:"migrations_dir"`
	Archive       ArchiveConfig `yaml:"archive"`
	Queue         QueueConfig   `yaml:"queue"`
	BatchSize     int           `yaml:"batch_size" validate:"min=1"`

	// HTTPPort serves the API, and the metrics of workers.
	HTTPPort string `yaml:"http_port" validate:"required,numeric"`
	APIKey   string `yaml:"api_key"`
	// AuthURL is the issuer whose /jwks endpoint verifies API tokens.
	AuthURL string `yaml:"auth_url"`

	Debug     bool   `yaml:"debug"`
	LogFormat string `yaml:"log_format" validate:"omitempty,oneof=text json"`
}

// ReferenceConfig locates reference tables published to a bucket.
type ReferenceConfig struct {
	Bucket string `yaml:"bucket"`
	Prefix string `yaml:"prefix"`
}

// ArchiveConfig configures the S3 snapshot archive. An empty Bucket
// disables archiving.
type ArchiveConfig struct {
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

// QueueConfig configures the RabbitMQ connection.
type QueueConfig struct {
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
}

// URL returns the AMQP connection url.
func (q QueueConfig) URL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s/", q.User, q.Password, q.Host, q.Port)
}

// Default returns the settings used when neither the file nor the
// environment sets a value.
func Default() *Config {
	return &Config{
		DataDir:        "data",
		StartYear:      1787,
		EndYear:        1938,
		MaxYearGap:     10,
		ParallelYears:  8,
		ParallelRatios: 5,
		MigrationsDir:  "migrations",
		BatchSize:      10,
		HTTPPort:       "8080",
		LogFormat:      "text",
		Queue: QueueConfig{
			Host: "localhost",
			Port: "5672",
		},
	}
}

// Load reads the YAML settings at path over the defaults, applies
// environment overrides and validates the result. A missing file is not an
// error.
func Load(path string) (*Config, error) {
	c := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("read %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, c); err != nil {
				return nil, fmt.Errorf("unmarshal %s: %w", path, err)
			}
		}
	}

	c.applyEnv()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) applyEnv() {
	c.DatabaseURL = util.GetEnvString("DATABASE_URL", c.DatabaseURL)
	c.MigrationsDir = util.GetEnvString("MIGRATIONS_DIR", c.MigrationsDir)
	c.DataDir = util.GetEnvString("DATA_DIR", c.DataDir)
	c.Reference.Bucket = util.GetEnvString("REFERENCE_BUCKET", c.Reference.Bucket)
	c.Reference.Prefix = util.GetEnvString("REFERENCE_PREFIX", c.Reference.Prefix)
	c.StartYear = util.GetEnvInt("START_YEAR", c.StartYear)
	c.EndYear = util.GetEnvInt("END_YEAR", c.EndYear)
	c.MaxYearGap = util.GetEnvInt("MAX_YEAR_GAP", c.MaxYearGap)
	c.ParallelYears = util.GetEnvInt("PARALLEL_YEARS", c.ParallelYears)
	c.ParallelRatios = util.GetEnvInt("PARALLEL_RATIOS", c.ParallelRatios)
	c.BatchSize = util.GetEnvInt("BATCH_SIZE", c.BatchSize)

	c.Archive.Bucket = util.GetEnvString("AWS_BUCKET", c.Archive.Bucket)
	c.Archive.Prefix = util.GetEnvString("AWS_PREFIX", c.Archive.Prefix)
	c.Archive.Endpoint = util.GetEnvString("AWS_ENDPOINT", c.Archive.Endpoint)
	c.Archive.Region = util.GetEnvString("AWS_REGION", c.Archive.Region)
	c.Archive.AccessKey = util.GetEnvString("AWS_ACCESS_KEY", c.Archive.AccessKey)
	c.Archive.SecretKey = util.GetEnvString("AWS_SECRET_KEY", c.Archive.SecretKey)

	c.Queue.User = util.GetEnvString("RABBITMQ_USER", c.Queue.User)
	c.Queue.Password = util.GetEnvString("RABBITMQ_PASSWORD", c.Queue.Password)
	c.Queue.Host = util.GetEnvString("RABBITMQ_HOST", c.Queue.Host)
	c.Queue.Port = util.GetEnvString("RABBITMQ_PORT", c.Queue.Port)

	c.HTTPPort = util.GetEnvString("PORT", c.HTTPPort)
	c.APIKey = util.GetEnvString("MASTER_API_KEY", c.APIKey)
	c.AuthURL = util.GetEnvString("AUTH_URL", c.AuthURL)
	c.Debug = util.GetEnvBool("DEBUG", c.Debug)
	c.LogFormat = util.GetEnvString("LOG_FORMAT", c.LogFormat)
}

// Validate checks field constraints and the status priority table.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	seen := make(map[common.StatusKind]bool, len(c.StatusPriority))
	for _, kind := range c.StatusPriority {
		if !kind.IsKnown() {
			return fmt.Errorf("invalid config: unknown status kind %q in status_priority", kind)
		}
		if seen[kind] {
			return fmt.Errorf("invalid config: status kind %q listed twice in status_priority", kind)
		}
		seen[kind] = true
	}
	return nil
}

// HTTPAddr is the listen address of the HTTP server.
func (c *Config) HTTPAddr() string {
	return ":" + c.HTTPPort
}

// Years lists every year of the configured range.
func (c *Config) Years() []int {
	years := make([]int, 0, c.EndYear-c.StartYear+1)
	for y := c.StartYear; y <= c.EndYear; y++ {
		years = append(years, y)
	}
	return years
}

// Priority returns the status priority order for the resolver.
func (c *Config) Priority() gph.PriorityOrder {
	return gph.PriorityOrder(c.StatusPriority)
}
