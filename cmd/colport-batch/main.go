// Package main implements the colport-batch binary: run every named export
// from a configuration file into one output directory.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

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
		outputDir   string
		showVersion bool
	)

	flag.StringVar(&configFile, "config", "", "Path to configuration file (required)")
	flag.StringVar(&outputDir, "output-dir", "", "Override the output directory")
	flag.BoolVar(&showVersion, "version", false, "Show version information")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "colport-batch - run a named set of exports from configuration\n\n")
		fmt.Fprintf(os.Stderr, "Usage: colport-batch -config FILE [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nThe exports section of the config names each query and artifact file:\n")
		fmt.Fprintf(os.Stderr, "  exports:\n")
		fmt.Fprintf(os.Stderr, "    - name: active users\n")
		fmt.Fprintf(os.Stderr, "      query: SELECT * FROM users WHERE active = 1\n")
		fmt.Fprintf(os.Stderr, "      file: active_users.cpa\n")
	}

	flag.Parse()

	if showVersion {
		fmt.Printf("colport-batch version %s (commit: %s)\n", version, commit)
		os.Exit(0)
	}

	if configFile == "" {
		flag.Usage()
		os.Exit(2)
	}

	failed, err := run(configFile, outputDir)
	if err != nil {
		log.Fatalf("batch failed: %v", err)
	}
	if failed > 0 {
		log.Fatalf("batch finished with %d failed export(s)", failed)
	}
}

func run(configFile, outputDir string) (int, error) {
	_ = godotenv.Load()

	cfg, err := config.LoadFromFile(configFile)
	if err != nil {
		return 0, fmt.Errorf("failed to load config file: %w", err)
	}
	config.LoadFromEnv(cfg)

	if outputDir != "" {
		cfg.Output.Dir = outputDir
	}
	if len(cfg.Exports) == 0 {
		return 0, fmt.Errorf("no exports defined in %s", configFile)
	}

	a, err := app.New(cfg)
	if err != nil {
		return 0, err
	}

	ctx := context.Background()
	if err := a.Open(ctx); err != nil {
		return 0, err
	}
	defer a.Close()

	runDir := a.Config().Output.Dir
	if a.Config().Output.Timestamped {
		runDir = filepath.Join(runDir, time.Now().Format("export_20060102_150405"))
	}

	// One failed export does not stop the rest of the batch.
	failed := 0
	for _, spec := range cfg.Exports {
		outputPath := filepath.Join(runDir, spec.File)
		result, err := a.Exporter().Export(ctx, a.Connection(), spec.Query, outputPath)
		if err != nil {
			failed++
			log.Printf("export %q failed: %v", spec.Name, err)
			continue
		}
		log.Printf("export %q: %d rows, %d bytes, %s",
			spec.Name, result.RowCount, result.SizeBytes, outputPath)
	}

	log.Printf("batch complete: %d succeeded, %d failed", len(cfg.Exports)-failed, failed)
	return failed, nil
}
