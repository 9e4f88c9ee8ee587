/*
Package config loads server configuration.

PURPOSE:
  Resolves configuration from three layers, lowest precedence first:
  1. Built-in defaults
  2. Environment variables (a .env file is loaded if present)
  3. Command-line flags

ENVIRONMENT VARIABLES:
  BUDGETHQ_PORT     HTTP server port (default: 8080)
  BUDGETHQ_DB       SQLite database path (default: budgethq.db,
                    use ":memory:" for in-memory)
  BUDGETHQ_ORIGINS  Comma-separated CORS origins

SEE ALSO:
  - cmd/server/main.go: Consumes the resolved Config
*/
package config

import (
	"flag"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config is the resolved server configuration.
type Config struct {
	Port           int
	DBPath         string
	AllowedOrigins []string
}

// Load resolves configuration from defaults, .env/environment, then
// flags. args is os.Args[1:].
func Load(args []string) (*Config, error) {
	// Missing .env is fine; explicit env vars still apply.
	_ = godotenv.Load()

	cfg := &Config{
		Port:           8080,
		DBPath:         "budgethq.db",
		AllowedOrigins: []string{"http://localhost:5173", "http://localhost:8080"},
	}

	if v := os.Getenv("BUDGETHQ_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return nil, err
		}
		cfg.Port = port
	}
	if v := os.Getenv("BUDGETHQ_DB"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("BUDGETHQ_ORIGINS"); v != "" {
		cfg.AllowedOrigins = splitOrigins(v)
	}

	fs := flag.NewFlagSet("budgethq", flag.ContinueOnError)
	port := fs.Int("port", cfg.Port, "HTTP server port")
	dbPath := fs.String("db", cfg.DBPath, "SQLite database path")
	origins := fs.String("origins", "", "comma-separated CORS origins")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg.Port = *port
	cfg.DBPath = *dbPath
	if *origins != "" {
		cfg.AllowedOrigins = splitOrigins(*origins)
	}
	return cfg, nil
}

func splitOrigins(s string) []string {
	var out []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
