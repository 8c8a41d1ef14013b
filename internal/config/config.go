package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	NATS        NATSConfig        `yaml:"nats"`
	MinIO       MinIOConfig       `yaml:"minio"`
	Recognition RecognitionConfig `yaml:"recognition"`
	Logging     LoggingConfig     `yaml:"logging"`
}

type ServerConfig struct {
	Port        int    `yaml:"port"`
	MetricsPort int    `yaml:"metrics_port"`
	APIKey      string `yaml:"api_key"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	MaxConns int    `yaml:"max_conns"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

type NATSConfig struct {
	URL string `yaml:"url"`
}

type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// Reference set sources.
const (
	SourceFile     = "file"
	SourceObject   = "minio"
	SourceDatabase = "postgres"
)

type RecognitionConfig struct {
	Dimension int `yaml:"dimension"`
	// Source selects where reference embeddings come from: file, minio or postgres.
	Source     string `yaml:"source"`
	LabelsPath string `yaml:"labels_path"`
	RepsPath   string `yaml:"reps_path"`
	LabelsKey  string `yaml:"labels_key"`
	RepsKey    string `yaml:"reps_key"`
	// MaxDistance is the squared distance above which a nearest match is
	// reported as not recognized. Zero disables the threshold.
	MaxDistance      float64       `yaml:"max_distance"`
	WorkerCount      int           `yaml:"worker_count"`
	BatchConcurrency int           `yaml:"batch_concurrency"`
	ReloadInterval   time.Duration `yaml:"reload_interval"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads config from YAML file and applies environment variable overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(cfg)
	setDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that defaults cannot repair.
func (c *Config) Validate() error {
	switch c.Recognition.Source {
	case SourceFile, SourceObject, SourceDatabase:
	default:
		return fmt.Errorf("invalid config: unknown recognition.source %q", c.Recognition.Source)
	}
	if c.Recognition.Dimension < 0 {
		return fmt.Errorf("invalid config: recognition.dimension must not be negative")
	}
	if c.Recognition.MaxDistance < 0 {
		return fmt.Errorf("invalid config: recognition.max_distance must not be negative")
	}
	return nil
}

func setDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.MetricsPort == 0 {
		cfg.Server.MetricsPort = 9090
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = 20
	}
	if cfg.MinIO.Bucket == "" {
		cfg.MinIO.Bucket = "references"
	}
	if cfg.Recognition.Dimension == 0 {
		cfg.Recognition.Dimension = 128
	}
	if cfg.Recognition.Source == "" {
		cfg.Recognition.Source = SourceFile
	}
	if cfg.Recognition.LabelsPath == "" {
		cfg.Recognition.LabelsPath = "data/labels.csv"
	}
	if cfg.Recognition.RepsPath == "" {
		cfg.Recognition.RepsPath = "data/reps.csv"
	}
	if cfg.Recognition.LabelsKey == "" {
		cfg.Recognition.LabelsKey = "labels.csv"
	}
	if cfg.Recognition.RepsKey == "" {
		cfg.Recognition.RepsKey = "reps.csv"
	}
	if cfg.Recognition.WorkerCount == 0 {
		cfg.Recognition.WorkerCount = 4
	}
	if cfg.Recognition.BatchConcurrency == 0 {
		cfg.Recognition.BatchConcurrency = 8
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FM_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("FM_METRICS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.MetricsPort = port
		}
	}
	if v := os.Getenv("FM_API_KEY"); v != "" {
		cfg.Server.APIKey = v
	}
	if v := os.Getenv("FM_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("FM_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("FM_DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("FM_DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("FM_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("FM_NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("FM_MINIO_ENDPOINT"); v != "" {
		cfg.MinIO.Endpoint = v
	}
	if v := os.Getenv("FM_MINIO_ACCESS_KEY"); v != "" {
		cfg.MinIO.AccessKey = v
	}
	if v := os.Getenv("FM_MINIO_SECRET_KEY"); v != "" {
		cfg.MinIO.SecretKey = v
	}
	if v := os.Getenv("FM_MINIO_BUCKET"); v != "" {
		cfg.MinIO.Bucket = v
	}
	if v := os.Getenv("FM_REFERENCE_SOURCE"); v != "" {
		cfg.Recognition.Source = v
	}
	if v := os.Getenv("FM_LABELS_PATH"); v != "" {
		cfg.Recognition.LabelsPath = v
	}
	if v := os.Getenv("FM_REPS_PATH"); v != "" {
		cfg.Recognition.RepsPath = v
	}
	if v := os.Getenv("FM_MAX_DISTANCE"); v != "" {
		if d, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Recognition.MaxDistance = d
		}
	}
	if v := os.Getenv("FM_WORKER_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Recognition.WorkerCount = n
		}
	}
	if v := os.Getenv("FM_RELOAD_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Recognition.ReloadInterval = d
		}
	}
	if v := os.Getenv("FM_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}
