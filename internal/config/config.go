// Package config provides unified configuration for the Colport export tools.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Supported source drivers.
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// Config holds the unified configuration for the export tools.
type Config struct {
	// Database is the source connection configuration
	Database DatabaseConfig `json:"database" yaml:"database"`

	// Output controls where artifacts are written locally
	Output OutputConfig `json:"output" yaml:"output"`

	// Manifest configures the export catalog
	Manifest ManifestConfig `json:"manifest" yaml:"manifest"`

	// Storage configures optional artifact publishing
	Storage StorageConfig `json:"storage" yaml:"storage"`

	// Exports is the named query set run by colport-batch
	Exports []ExportSpec `json:"exports" yaml:"exports"`
}

// DatabaseConfig holds source connection settings. All fields are opaque
// strings passed through to the driver; empty values are legal and only
// fail when the driver rejects them at dial time.
type DatabaseConfig struct {
	// Driver is the source driver: mysql, postgres, sqlite3
	Driver string `json:"driver" yaml:"driver"`

	// Host is the database server host
	Host string `json:"host" yaml:"host"`

	// Port is the database server port (0 uses the driver default)
	Port int `json:"port" yaml:"port"`

	// User is the database user
	User string `json:"user" yaml:"user"`

	// Password is the database password
	Password string `json:"password" yaml:"password"`

	// Database is the database name, or the file path for sqlite3
	Database string `json:"database" yaml:"database"`
}

// Map returns the connection settings as a name->value mapping for logging
// and debugging only. It must not be used to drive connection behavior.
func (d DatabaseConfig) Map() map[string]string {
	return map[string]string{
		"driver":   d.Driver,
		"host":     d.Host,
		"port":     fmt.Sprintf("%d", d.Port),
		"user":     d.User,
		"password": d.Password,
		"database": d.Database,
	}
}

// OutputConfig holds local artifact output settings.
type OutputConfig struct {
	// Dir is the base directory for exported artifacts
	Dir string `json:"dir" yaml:"dir"`

	// Timestamped places batch runs in a per-run export_YYYYMMDD_HHMMSS subdirectory
	Timestamped bool `json:"timestamped" yaml:"timestamped"`
}

// ManifestConfig holds export catalog settings.
type ManifestConfig struct {
	// Enabled controls whether exports are recorded in the catalog
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Path is the catalog database path
	Path string `json:"path" yaml:"path"`
}

// StorageConfig holds artifact store configuration.
type StorageConfig struct {
	// Type is the store type: none, local, s3
	Type string `json:"type" yaml:"type"`

	// Path is the local store base path (for local type)
	Path string `json:"path" yaml:"path"`

	// Prefix is the object path prefix for published artifacts
	Prefix string `json:"prefix" yaml:"prefix"`

	// S3 configuration (for s3 type)
	S3 S3Config `json:"s3" yaml:"s3"`
}

// S3Config holds S3 store configuration.
type S3Config struct {
	// Bucket is the S3 bucket name
	Bucket string `json:"bucket" yaml:"bucket"`

	// Region is the AWS region
	Region string `json:"region" yaml:"region"`

	// Endpoint is the S3 endpoint (for S3-compatible storage)
	Endpoint string `json:"endpoint" yaml:"endpoint"`

	// UsePathStyle enables path-style addressing (required for MinIO)
	UsePathStyle bool `json:"use_path_style" yaml:"use_path_style"`
}

// ExportSpec names one query and its artifact file for batch runs.
type ExportSpec struct {
	// Name is a human-readable label for logs
	Name string `json:"name" yaml:"name"`

	// Query is the SQL text to execute
	Query string `json:"query" yaml:"query"`

	// File is the artifact filename, relative to the output directory
	File string `json:"file" yaml:"file"`
}

// DefaultConfig returns the default configuration for local development.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver: DriverMySQL,
			Host:   "localhost",
		},
		Output: OutputConfig{
			Dir:         "./exports",
			Timestamped: false,
		},
		Manifest: ManifestConfig{
			Enabled: false,
		},
		Storage: StorageConfig{
			Type: "none",
		},
	}
}

// Resolve fills in paths derived from the output directory.
func (c *Config) Resolve() {
	if c.Output.Dir == "" {
		c.Output.Dir = "./exports"
	}
	if c.Manifest.Path == "" {
		c.Manifest.Path = filepath.Join(c.Output.Dir, "manifest.db")
	}
	if c.Storage.Type == "local" && c.Storage.Path == "" {
		c.Storage.Path = filepath.Join(c.Output.Dir, "store")
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverMySQL, DriverPostgres, DriverSQLite:
		// Valid drivers
	default:
		return fmt.Errorf("invalid driver: %s (must be mysql, postgres, or sqlite3)", c.Database.Driver)
	}

	switch c.Storage.Type {
	case "", "none", "local", "s3":
		// Valid store types
	default:
		return fmt.Errorf("invalid storage type: %s (must be none, local, or s3)", c.Storage.Type)
	}

	if c.Storage.Type == "s3" && c.Storage.S3.Bucket == "" {
		return fmt.Errorf("s3.bucket is required when storage type is s3")
	}

	for i, exp := range c.Exports {
		if exp.Query == "" {
			return fmt.Errorf("exports[%d]: query is required", i)
		}
		if exp.File == "" {
			return fmt.Errorf("exports[%d]: file is required", i)
		}
	}

	return nil
}

// LoadFromFile loads configuration from a YAML or JSON file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file format: %s", ext)
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables use the COLPORT_ prefix.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("COLPORT_DB_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("COLPORT_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("COLPORT_DB_PORT"); v != "" {
		fmt.Sscanf(v, "%d", &cfg.Database.Port)
	}
	if v := os.Getenv("COLPORT_DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("COLPORT_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("COLPORT_DB_DATABASE"); v != "" {
		cfg.Database.Database = v
	}

	if v := os.Getenv("COLPORT_OUTPUT_DIR"); v != "" {
		cfg.Output.Dir = v
	}
	if v := os.Getenv("COLPORT_OUTPUT_TIMESTAMPED"); v != "" {
		cfg.Output.Timestamped = v == "true" || v == "1"
	}

	if v := os.Getenv("COLPORT_MANIFEST_ENABLED"); v != "" {
		cfg.Manifest.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("COLPORT_MANIFEST_PATH"); v != "" {
		cfg.Manifest.Path = v
	}

	if v := os.Getenv("COLPORT_STORAGE_TYPE"); v != "" {
		cfg.Storage.Type = v
	}
	if v := os.Getenv("COLPORT_STORAGE_PATH"); v != "" {
		cfg.Storage.Path = v
	}
	if v := os.Getenv("COLPORT_STORAGE_PREFIX"); v != "" {
		cfg.Storage.Prefix = v
	}
	if v := os.Getenv("COLPORT_S3_BUCKET"); v != "" {
		cfg.Storage.S3.Bucket = v
	}
	if v := os.Getenv("COLPORT_S3_REGION"); v != "" {
		cfg.Storage.S3.Region = v
	}
	if v := os.Getenv("COLPORT_S3_ENDPOINT"); v != "" {
		cfg.Storage.S3.Endpoint = v
	}
}

// EnsureDirectories creates the output directory tree.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Output.Dir}
	if c.Storage.Type == "local" {
		dirs = append(dirs, c.Storage.Path)
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}
