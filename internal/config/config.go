// Package config loads the process-wide configuration once at startup and
// hands it to session constructors as an immutable record. Nothing inside
// the exploration core reads the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Provider selects the LLM backend.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderGemini    Provider = "gemini"
)

// Config is the immutable process configuration.
type Config struct {
	// LLM settings.
	LLMProvider Provider
	LLMModel    string
	LLMAPIKey   string

	// Graph store. A URI starting with "mysql://" selects the MySQL
	// backend; anything else is treated as a SQLite file path.
	GraphURI      string
	GraphUser     string
	GraphPassword string

	// Exploration inputs. StartURLs holds one URL per session; sessions
	// run in parallel, each with its own browser and bookkeeping.
	StartURLs []string
	Username  string
	Password  string

	Headless       bool
	RecursionLimit int

	// Logging.
	LogLevel  string
	LogFile   string
	LogFormat string // "text" or "json"

	// Tracing switches event emission from the log stream to
	// OpenTelemetry spans.
	Tracing bool

	// Extra ignore-list selectors appended to the built-in defaults.
	IgnoreSelectors []string

	// JournalPath is the SQLite file for the engine's step journal.
	// Empty selects an in-memory journal.
	JournalPath string

	// MetricsAddr, when non-empty, serves Prometheus metrics there.
	MetricsAddr string
}

const envPrefix = "EXPLORER_"

func env(key, fallback string) string {
	if v, ok := os.LookupEnv(envPrefix + key); ok {
		return v
	}
	return fallback
}

// FromEnv builds the Config from environment variables. Every variable is
// named EXPLORER_*, one per Config field, except that StartURLs is read
// from EXPLORER_START_URLS or, when that is unset, EXPLORER_START_URL.
func FromEnv() (Config, error) {
	cfg := Config{
		LLMProvider:   Provider(strings.ToLower(env("LLM_PROVIDER", string(ProviderOpenAI)))),
		LLMModel:      env("LLM_MODEL", "gpt-4o-mini"),
		LLMAPIKey:     env("LLM_API_KEY", ""),
		GraphURI:      env("GRAPH_URI", "./exploration.db"),
		GraphUser:     env("GRAPH_USER", ""),
		GraphPassword: env("GRAPH_PASSWORD", ""),
		Username:      env("USERNAME", ""),
		Password:      env("PASSWORD", ""),
		LogLevel:      env("LOG_LEVEL", "info"),
		LogFile:       env("LOG_FILE", ""),
		LogFormat:     env("LOG_FORMAT", "text"),
		JournalPath:   env("JOURNAL_PATH", ""),
		MetricsAddr:   env("METRICS_ADDR", ""),
	}

	for _, u := range strings.Split(env("START_URLS", env("START_URL", "")), ",") {
		if trimmed := strings.TrimSpace(u); trimmed != "" {
			cfg.StartURLs = append(cfg.StartURLs, trimmed)
		}
	}

	for _, s := range strings.Split(env("IGNORE_SELECTORS", ""), ",") {
		if trimmed := strings.TrimSpace(s); trimmed != "" {
			cfg.IgnoreSelectors = append(cfg.IgnoreSelectors, trimmed)
		}
	}

	headless, err := strconv.ParseBool(env("HEADLESS", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("config: EXPLORER_HEADLESS: %w", err)
	}
	cfg.Headless = headless

	tracing, err := strconv.ParseBool(env("TRACING", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("config: EXPLORER_TRACING: %w", err)
	}
	cfg.Tracing = tracing

	limit, err := strconv.Atoi(env("RECURSION_LIMIT", "200"))
	if err != nil {
		return Config{}, fmt.Errorf("config: EXPLORER_RECURSION_LIMIT: %w", err)
	}
	cfg.RecursionLimit = limit

	return cfg, cfg.Validate()
}

// Validate checks the invariants a run cannot start without.
func (c Config) Validate() error {
	switch c.LLMProvider {
	case ProviderOpenAI, ProviderAnthropic, ProviderGemini:
	default:
		return fmt.Errorf("config: unknown LLM provider %q", c.LLMProvider)
	}
	if len(c.StartURLs) == 0 {
		return fmt.Errorf("config: at least one start URL is required")
	}
	if c.RecursionLimit <= 0 {
		return fmt.Errorf("config: recursion limit must be positive")
	}
	return nil
}

// HasCredentials reports whether login credentials were supplied.
func (c Config) HasCredentials() bool {
	return c.Username != "" && c.Password != ""
}

// MySQLGraph reports whether GraphURI addresses a MySQL server.
func (c Config) MySQLGraph() bool {
	return strings.HasPrefix(c.GraphURI, "mysql://")
}

// MySQLDSN renders the go-sql-driver DSN for a mysql:// GraphURI,
// splicing in GraphUser/GraphPassword.
func (c Config) MySQLDSN() string {
	hostAndDB := strings.TrimPrefix(c.GraphURI, "mysql://")
	host, db, _ := strings.Cut(hostAndDB, "/")
	dsn := fmt.Sprintf("tcp(%s)/%s", host, db)
	if c.GraphUser != "" {
		dsn = c.GraphUser + ":" + c.GraphPassword + "@" + dsn
	}
	return dsn
}
