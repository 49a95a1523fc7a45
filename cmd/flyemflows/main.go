// Command flyemflows is the thin entrypoint over the bricked volume
// partitioning engine's core: it loads and validates job configuration
// and, when -stats is given, creates the block-statistics side-file. It
// wires in no VoxelService backend and does not run a
// pipeline.Pipeline. Concrete VoxelService backends (DVID, N5, Zarr,
// HDF5, BrainMaps) and cluster bootstrap are out of scope for the core
// (spec.md §1).
package main

import (
	"flag"
	"os"

	"github.com/aplbrain/flyemflows/internal/config"
	"github.com/aplbrain/flyemflows/internal/logging"
	"github.com/aplbrain/flyemflows/internal/stats"
)

func main() {
	configPath := flag.String("config", "", "path to job configuration YAML")
	statsPath := flag.String("stats", "", "optional path for the block-statistics side-file")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	logger := logging.New("flyemflows", *debug)

	if *configPath == "" {
		logger.Errorf("missing required -config flag")
		os.Exit(2)
	}

	data, err := os.ReadFile(*configPath)
	if err != nil {
		logger.Errorf("reading config: %v", err)
		os.Exit(1)
	}

	cfg, err := config.Parse(data)
	if err != nil {
		logger.Errorf("invalid config: %v", err)
		os.Exit(1)
	}
	logger.Infof("loaded %s", cfg)

	if *statsPath != "" {
		resolved, err := stats.UniqueSideFilePath(*statsPath)
		if err != nil {
			logger.Errorf("resolving stats side-file path: %v", err)
			os.Exit(1)
		}
		if resolved != *statsPath {
			logger.Infof("stats-location already present; writing to %s instead", resolved)
		}
		f, err := os.Create(resolved)
		if err != nil {
			logger.Errorf("creating stats side-file: %v", err)
			os.Exit(1)
		}
		defer f.Close()
		_ = stats.NewWriter(f) // handed to pipeline.Builder.UseStats by the caller wiring in a backend
	}

	logger.Warnf("no VoxelService backend wired in; this binary validates configuration and stats side-file placement only")
}
