package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port           int               `yaml:"port"`
		APIKeys        map[string]string `yaml:"apiKeys"`
		AllowedOrigins []string          `yaml:"allowedOrigins"`
		RateCapacity   int               `yaml:"rateCapacity"`
		RateRefill     int               `yaml:"rateRefill"`
	} `yaml:"server"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	Reputation struct {
		Timeout      time.Duration `yaml:"timeout"`
		SafeBrowsing struct {
			APIKey  string `yaml:"apiKey"`
			BaseURL string `yaml:"baseURL"`
		} `yaml:"safeBrowsing"`
		MalwareScan struct {
			APIKey  string `yaml:"apiKey"`
			BaseURL string `yaml:"baseURL"`
		} `yaml:"malwareScan"`
		Blocklist []string `yaml:"blocklist"`
		Allowlist []string `yaml:"allowlist"`
	} `yaml:"reputation"`

	Session struct {
		// Driver is "memory" or "redis".
		Driver string `yaml:"driver"`
		Redis  struct {
			Addr     string        `yaml:"addr"`
			Password string        `yaml:"password"`
			DB       int           `yaml:"db"`
			TTL      time.Duration `yaml:"ttl"`
		} `yaml:"redis"`
	} `yaml:"session"`

	Database struct {
		// Driver is "memory", "mysql", "postgres" or "sqlite".
		Driver   string `yaml:"driver"`
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		SSLMode  string `yaml:"sslMode"`
		Path     string `yaml:"path"`
	} `yaml:"database"`

	Minio struct {
		Enabled    bool   `yaml:"enabled"`
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  string `yaml:"secretKey"`
		BucketName string `yaml:"bucketName"`
		Region     string `yaml:"region"`
		UseSSL     bool   `yaml:"useSSL"`
	} `yaml:"minio"`

	OpenAI struct {
		APIKey string `yaml:"apiKey"`
		Model  string `yaml:"model"`
		// Offline triages reports with local keyword rules when no key is set.
		Offline bool `yaml:"offline"`
	} `yaml:"openai"`
}

// Default returns a config that runs fully offline: memory stores and
// simulated reputation services.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

// Load reads the YAML file at path. A missing file yields the defaults.
// Secrets can be overridden from the environment.
func Load(path string) (*Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	envs := []struct {
		name string
		dst  *string
	}{
		{"SAFE_BROWSING_API_KEY", &c.Reputation.SafeBrowsing.APIKey},
		{"MALWARE_SCAN_API_KEY", &c.Reputation.MalwareScan.APIKey},
		{"OPENAI_API_KEY", &c.OpenAI.APIKey},
		{"DB_PASSWORD", &c.Database.Password},
		{"REDIS_PASSWORD", &c.Session.Redis.Password},
		{"MINIO_SECRET_KEY", &c.Minio.SecretKey},
		{"LOG_LEVEL", &c.Log.Level},
	}
	for _, e := range envs {
		if v := os.Getenv(e.name); v != "" {
			*e.dst = v
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.RateCapacity == 0 {
		c.Server.RateCapacity = 60
	}
	if c.Server.RateRefill == 0 {
		c.Server.RateRefill = 10
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Reputation.Timeout <= 0 {
		c.Reputation.Timeout = 3 * time.Second
	}
	if c.Session.Driver == "" {
		c.Session.Driver = "memory"
	}
	if c.Session.Redis.Addr == "" {
		c.Session.Redis.Addr = "localhost:6379"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "memory"
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Database.Path == "" {
		if dir, err := os.UserConfigDir(); err == nil {
			c.Database.Path = filepath.Join(dir, "urlsentry", "reports.db")
		} else {
			c.Database.Path = "reports.db"
		}
	}
	if c.Minio.BucketName == "" {
		c.Minio.BucketName = "urlsentry-reports"
	}
	if c.OpenAI.Model == "" {
		c.OpenAI.Model = "gpt-4o-mini"
	}
}

// Validate rejects unknown drivers.
func (c *Config) Validate() error {
	switch c.Session.Driver {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown session driver %q", c.Session.Driver)
	}
	switch c.Database.Driver {
	case "memory", "mysql", "postgres", "sqlite":
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	return nil
}

// Helper untuk build DSN MySQL
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC&clientFoundRows=true",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}

// PostgresDSN builds a lib/pq keyword/value connection string.
func (c *Config) PostgresDSN() string {
	parts := []string{
		"host=" + c.Database.Host,
		fmt.Sprintf("port=%d", c.Database.Port),
		"user=" + c.Database.User,
		"dbname=" + c.Database.Name,
		"sslmode=" + c.Database.SSLMode,
	}
	if c.Database.Password != "" {
		parts = append(parts, "password="+quoteDSN(c.Database.Password))
	}
	return strings.Join(parts, " ")
}

func quoteDSN(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}
