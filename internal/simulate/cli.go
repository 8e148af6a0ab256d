package simulate

import "os"

// ShowHelp prints usage information for the simulation tool.
func ShowHelp() {
	os.Stdout.WriteString(`levelrank simulation
====================

Registers players, publishes levels and pushes concurrent completions
through a running levelrank service, then checks placements, ranks and
points against each player's history.

Usage:
  go run ./cmd/simulate [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -admin string
        Moderator used to publish and approve (default "zmmieh.")
  -players int
        Number of players to register (default 50)
  -levels int
        Number of levels to publish (default 20)
  -completions int
        Number of completions to submit (default 500)
  -workers int
        Number of concurrent workers (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 30s)
  -output string
        Write a JSON report to this file
  -verbose
        Enable verbose logging
  -help
        Show this help message
`)
}
