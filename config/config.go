// Package config loads grantlens settings from a YAML file and the
// environment. Environment variables win over the file; the file wins over
// Default.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Data drivers.
const (
	DriverDir    = "dir"
	DriverS3     = "s3"
	DriverSQL    = "sql"
	DriverSample = "sample"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the full grantlens configuration.
type Config struct {
	Data   Data   `yaml:"data"`
	Server Server `yaml:"server"`
	Log    Log    `yaml:"log"`
	Assets Assets `yaml:"assets"`
	AI     AI     `yaml:"ai"`
	Pages  Pages  `yaml:"pages"`
}

// Data selects where the eight tables are read from.
type Data struct {
	Driver      string `yaml:"driver"`
	Dir         string `yaml:"dir"`
	Concurrency int    `yaml:"concurrency"`
	S3          S3     `yaml:"s3"`
	SQL         SQL    `yaml:"sql"`
}

// S3 locates the CSV objects in a bucket.
type S3 struct {
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	PathStyle bool   `yaml:"path_style"`
}

// SQL names a database/sql driver ("sqlite" or "pgx") and its DSN.
type SQL struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// Server configures the HTTP service.
type Server struct {
	Addr        string        `yaml:"addr"`
	MaxSessions int           `yaml:"max_sessions"`
	SessionTTL  time.Duration `yaml:"session_ttl"`
}

// Log configures logging.
type Log struct {
	Level string `yaml:"level"`
}

// Assets locates static files.
type Assets struct {
	NetworkImage string `yaml:"network_image"`
}

// AI configures the keyword tagger.
type AI struct {
	Terms []string `yaml:"terms"`
}

// Pages configures page computation.
type Pages struct {
	TopN int `yaml:"top_n"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Data:   Data{Driver: DriverDir, Dir: "data", Concurrency: 4, S3: S3{Region: "eu-central-1"}, SQL: SQL{Driver: "sqlite"}},
		Server: Server{Addr: ":8080", MaxSessions: 10000, SessionTTL: 30 * time.Minute},
		Log:    Log{Level: "info"},
		Assets: Assets{NetworkImage: "data/sna1.png"},
		Pages:  Pages{TopN: 10},
	}
}

// Load reads path over Default and applies environment overrides. An empty
// path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type lookupFunc func(string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	str := map[string]*string{
		"GRANTLENS_DATA_DRIVER":   &c.Data.Driver,
		"GRANTLENS_DATA_DIR":      &c.Data.Dir,
		"GRANTLENS_S3_BUCKET":     &c.Data.S3.Bucket,
		"GRANTLENS_S3_PREFIX":     &c.Data.S3.Prefix,
		"GRANTLENS_S3_REGION":     &c.Data.S3.Region,
		"GRANTLENS_S3_ENDPOINT":   &c.Data.S3.Endpoint,
		"GRANTLENS_SQL_DRIVER":    &c.Data.SQL.Driver,
		"GRANTLENS_SQL_DSN":       &c.Data.SQL.DSN,
		"GRANTLENS_ADDR":          &c.Server.Addr,
		"GRANTLENS_LOG_LEVEL":     &c.Log.Level,
		"GRANTLENS_NETWORK_IMAGE": &c.Assets.NetworkImage,
	}
	for key, dst := range str {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}

	if v, ok := lookup("GRANTLENS_TOP_N"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: GRANTLENS_TOP_N=%q", ErrInvalidConfig, v)
		}
		c.Pages.TopN = n
	}
	if v, ok := lookup("GRANTLENS_SESSION_TTL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: GRANTLENS_SESSION_TTL=%q", ErrInvalidConfig, v)
		}
		c.Server.SessionTTL = d
	}
	if v, ok := lookup("GRANTLENS_S3_PATH_STYLE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: GRANTLENS_S3_PATH_STYLE=%q", ErrInvalidConfig, v)
		}
		c.Data.S3.PathStyle = b
	}
	if v, ok := lookup("GRANTLENS_AI_TERMS"); ok {
		c.AI.Terms = splitList(v)
	}
	return nil
}

// Validate checks the driver-specific settings.
func (c Config) Validate() error {
	switch c.Data.Driver {
	case DriverDir:
		if c.Data.Dir == "" {
			return fmt.Errorf("%w: data.dir is required for driver %q", ErrInvalidConfig, DriverDir)
		}
	case DriverS3:
		if c.Data.S3.Bucket == "" {
			return fmt.Errorf("%w: data.s3.bucket is required for driver %q", ErrInvalidConfig, DriverS3)
		}
	case DriverSQL:
		if c.Data.SQL.DSN == "" {
			return fmt.Errorf("%w: data.sql.dsn is required for driver %q", ErrInvalidConfig, DriverSQL)
		}
	case DriverSample:
	default:
		return fmt.Errorf("%w: unknown data driver %q", ErrInvalidConfig, c.Data.Driver)
	}
	if c.Server.MaxSessions < 1 || c.Server.SessionTTL <= 0 {
		return fmt.Errorf("%w: server.max_sessions and server.session_ttl must be positive", ErrInvalidConfig)
	}
	if c.Pages.TopN < 1 {
		return fmt.Errorf("%w: pages.top_n must be positive", ErrInvalidConfig)
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: unknown log level %q", ErrInvalidConfig, c.Log.Level)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
