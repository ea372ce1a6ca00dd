// Command retailpulse resolves, validates and loads retail sales files.
package main

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/adelakul/retail-pulse/internal/cli"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err == nil {
		slog.Debug("loaded .env file (overwriting existing env vars)")
	}

	os.Exit(cli.Execute(os.Args[1:], os.Stdout, os.Stderr))
}
