// Package main implements the colport binary: run a single query against a
// relational source and write the result as a columnar artifact.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/colport/colport/internal/app"
	"github.com/colport/colport/internal/config"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	var (
		configFile  string
		driver      string
		host        string
		port        int
		user        string
		password    string
		database    string
		query       string
		output      string
		useManifest bool
		showVersion bool
	)

	flag.StringVar(&configFile, "config", "", "Path to configuration file (YAML or JSON)")
	flag.StringVar(&driver, "driver", "", "Source driver: mysql, postgres, sqlite3")
	flag.StringVar(&host, "host", "", "Database server host")
	flag.IntVar(&port, "port", 0, "Database server port (0 uses the driver default)")
	flag.StringVar(&user, "user", "", "Database user")
	flag.StringVar(&password, "password", "", "Database password")
	flag.StringVar(&database, "database", "", "Database name, or file path for sqlite3")
	flag.StringVar(&query, "query", "", "SQL query to export (required)")
	flag.StringVar(&output, "output", "", "Artifact output path (required)")
	flag.BoolVar(&useManifest, "manifest", false, "Record the export in the catalog")
	flag.BoolVar(&showVersion, "version", false, "Show version information")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "colport - export relational query results as columnar artifacts\n\n")
		fmt.Fprintf(os.Stderr, "Usage: colport [options] -query SQL -output FILE\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  colport -driver mysql -host db.internal -user reader -database shop \\\n")
		fmt.Fprintf(os.Stderr, "      -query 'SELECT * FROM orders' -output orders.cpa\n")
		fmt.Fprintf(os.Stderr, "  colport -config colport.yaml -query 'SELECT * FROM users' -output users.cpa\n")
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  COLPORT_DB_DRIVER      Source driver\n")
		fmt.Fprintf(os.Stderr, "  COLPORT_DB_HOST        Database server host\n")
		fmt.Fprintf(os.Stderr, "  COLPORT_DB_USER        Database user\n")
		fmt.Fprintf(os.Stderr, "  COLPORT_DB_PASSWORD    Database password\n")
		fmt.Fprintf(os.Stderr, "  COLPORT_DB_DATABASE    Database name\n")
		fmt.Fprintf(os.Stderr, "  COLPORT_STORAGE_TYPE   Artifact store type (none, local, s3)\n")
	}

	flag.Parse()

	if showVersion {
		fmt.Printf("colport version %s (commit: %s)\n", version, commit)
		os.Exit(0)
	}

	if query == "" || output == "" {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(configFile, driver, host, port, user, password, database,
		query, output, useManifest); err != nil {
		log.Fatalf("export failed: %v", err)
	}
}

func run(configFile, driver, host string, port int, user, password, database,
	query, output string, useManifest bool) error {

	// A .env file is optional; environment variables win over file config.
	_ = godotenv.Load()

	cfg, err := loadConfig(configFile, driver, host, port, user, password, database, useManifest)
	if err != nil {
		return err
	}

	a, err := app.New(cfg)
	if err != nil {
		return err
	}

	ctx := context.Background()
	if err := a.Open(ctx); err != nil {
		return err
	}
	defer a.Close()

	result, err := a.Exporter().Export(ctx, a.Connection(), query, output)
	if err != nil {
		return err
	}

	log.Printf("exported %d rows to %s (%d bytes, export id %s)",
		result.RowCount, result.OutputPath, result.SizeBytes, result.ExportID)
	return nil
}

// loadConfig layers configuration: file, then environment, then flags.
func loadConfig(configFile, driver, host string, port int, user, password, database string,
	useManifest bool) (*config.Config, error) {

	var cfg *config.Config
	var err error

	if configFile != "" {
		cfg, err = config.LoadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	} else {
		cfg = config.DefaultConfig()
	}

	config.LoadFromEnv(cfg)

	if driver != "" {
		cfg.Database.Driver = driver
	}
	if host != "" {
		cfg.Database.Host = host
	}
	if port != 0 {
		cfg.Database.Port = port
	}
	if user != "" {
		cfg.Database.User = user
	}
	if password != "" {
		cfg.Database.Password = password
	}
	if database != "" {
		cfg.Database.Database = database
	}
	if useManifest {
		cfg.Manifest.Enabled = true
	}

	return cfg, nil
}
