package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/levelrank/internal/simulate"
	"github.com/okian/levelrank/pkg/logger"
)

// Default configuration constants.
const (
	defaultPlayers     = 50
	defaultLevels      = 20
	defaultCompletions = 500
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultTimeout     = 30 * time.Second
	defaultRunTimeout  = 10 * time.Minute
)

func main() {
	var (
		baseURL     = flag.String("url", "http://localhost:9080", "Base URL of the service")
		admin       = flag.String("admin", "zmmieh.", "Moderator used to publish and approve")
		players     = flag.Int("players", defaultPlayers, "Number of players to register")
		levels      = flag.Int("levels", defaultLevels, "Number of levels to publish")
		completions = flag.Int("completions", defaultCompletions, "Number of completions to submit")
		workers     = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout     = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		outputFile  = flag.String("output", "", "Write a JSON report to this file")
		verbose     = flag.Bool("verbose", false, "Enable verbose logging")
		help        = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		simulate.ShowHelp()
		return
	}

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	if *verbose {
		_ = logger.SetLevelString("debug")
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	config := &simulate.Config{
		BaseURL:     *baseURL,
		Admin:       *admin,
		Players:     *players,
		Levels:      *levels,
		Completions: *completions,
		Workers:     *workers,
		Timeout:     *timeout,
		OutputFile:  *outputFile,
		Verbose:     *verbose,
	}

	if _, err := simulate.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Simulation failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
