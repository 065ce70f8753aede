package config

import (
	"fmt"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"a3p/internal/log"
	"a3p/internal/timeutil"
)

// Backends lists the accepted DATA_BACKEND values.
var Backends = []string{"excel", "csv", "remote", "sheets", "memory"}

type Config struct {
	// HTTP Server
	Port string

	// Source selection
	DataBackend  string
	SourcePath   string
	SourceSheet  string
	SourceURL    string
	CSVDelimiter string
	CSVEncoding  string
	ColumnsFile  string
	DataDir      string

	// Google Sheets
	GoogleSpreadsheetID string
	GoogleSheetName     string

	// Snapshot store, disabled when empty
	SnapshotDBPath string
	SnapshotKeep   int

	// AMQP, disabled when URL is empty
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Caching and polling
	CacheTTL        time.Duration
	CacheSize       int
	RecheckInterval time.Duration
	WatchInterval   time.Duration

	// Latest coverage ceiling accepted by the API, in days after today
	CeilingHorizonDays int

	Timezone  string
	LogLevel  string
	LogFormat string
}

func Load() *Config {
	return &Config{
		Port: getEnv("PORT", "8081"),

		DataBackend:  strings.ToLower(getEnv("DATA_BACKEND", "excel")),
		SourcePath:   getEnv("SOURCE_PATH", "Adesões à A3P - Banco de Dados 3 - Davi.xlsx"),
		SourceSheet:  getEnv("SOURCE_SHEET", "Adesões à A3P"),
		SourceURL:    getEnv("SOURCE_URL", ""),
		CSVDelimiter: getEnv("CSV_DELIMITER", ";"),
		CSVEncoding:  getEnv("CSV_ENCODING", "utf-8"),
		ColumnsFile:  getEnv("COLUMNS_FILE", ""),
		DataDir:      getEnv("DATA_DIR", "data"),

		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:     getEnv("GOOGLE_SHEET_NAME", ""),

		SnapshotDBPath: getEnv("SNAPSHOT_DB_PATH", ""),
		SnapshotKeep:   getEnvInt("SNAPSHOT_KEEP", 5),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "a3p"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "snapshot_changed"),

		CacheTTL:        getEnvDuration("CACHE_TTL", 5*time.Minute),
		CacheSize:       getEnvInt("CACHE_SIZE", 64),
		RecheckInterval: getEnvDuration("RECHECK_INTERVAL", 30*time.Second),
		WatchInterval:   getEnvDuration("WATCH_INTERVAL", time.Minute),

		CeilingHorizonDays: getEnvInt("CEILING_HORIZON_DAYS", 3650),

		Timezone:  getEnv("TIMEZONE", timeutil.DefaultTimezone),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", log.FormatText),
	}
}

// Validate validates the configuration and returns an error listing every
// problem found.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if !slices.Contains(Backends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, Backends))
	}

	switch c.DataBackend {
	case "excel":
		if c.SourcePath == "" {
			errors = append(errors, "SOURCE_PATH is required when using excel backend")
		}
		if c.SourceSheet == "" {
			errors = append(errors, "SOURCE_SHEET is required when using excel backend")
		}
	case "csv":
		if c.SourcePath == "" {
			errors = append(errors, "SOURCE_PATH is required when using csv backend")
		}
		if utf8.RuneCountInString(c.CSVDelimiter) != 1 {
			errors = append(errors, fmt.Sprintf("invalid CSV delimiter '%s': must be a single character", c.CSVDelimiter))
		}
		switch strings.ToLower(c.CSVEncoding) {
		case "utf-8", "utf8", "latin1", "latin-1", "iso-8859-1":
		default:
			errors = append(errors, fmt.Sprintf("invalid CSV encoding '%s': must be utf-8 or latin1", c.CSVEncoding))
		}
	case "remote":
		if u, err := url.Parse(c.SourceURL); err != nil || c.SourceURL == "" {
			errors = append(errors, fmt.Sprintf("invalid SOURCE_URL '%s': required for remote backend", c.SourceURL))
		} else if u.Scheme != "http" && u.Scheme != "https" {
			errors = append(errors, fmt.Sprintf("invalid SOURCE_URL scheme '%s': must be 'http' or 'https'", u.Scheme))
		}
	case "sheets":
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when using sheets backend")
		}
	}

	if c.ColumnsFile != "" {
		if _, err := os.Stat(c.ColumnsFile); err != nil {
			errors = append(errors, fmt.Sprintf("columns file '%s' is not readable: %v", c.ColumnsFile, err))
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.SnapshotDBPath != "" && c.SnapshotKeep < 1 {
		errors = append(errors, fmt.Sprintf("invalid snapshot keep %d: must be at least 1", c.SnapshotKeep))
	}

	if c.CacheTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must be at least 1 second", c.CacheTTL))
	}
	if c.CacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid cache size %d: must be at least 1", c.CacheSize))
	}
	if c.RecheckInterval < 0 {
		errors = append(errors, fmt.Sprintf("invalid recheck interval %v: must not be negative", c.RecheckInterval))
	}
	if c.WatchInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid watch interval %v: must be at least 1 second", c.WatchInterval))
	} else if c.WatchInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid watch interval %v: must be at most 24 hours", c.WatchInterval))
	}

	if c.CeilingHorizonDays < 1 {
		errors = append(errors, fmt.Sprintf("invalid ceiling horizon %d: must be at least 1 day", c.CeilingHorizonDays))
	}

	if _, err := timeutil.LoadLocation(c.Timezone); err != nil {
		errors = append(errors, fmt.Sprintf("invalid timezone '%s'", c.Timezone))
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, err.Error())
	}
	if _, err := log.ParseFormat(c.LogFormat); err != nil {
		errors = append(errors, err.Error())
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// Delimiter returns the CSV delimiter as a rune, ';' when unset.
func (c *Config) Delimiter() rune {
	r, _ := utf8.DecodeRuneInString(c.CSVDelimiter)
	if r == utf8.RuneError {
		return ';'
	}
	return r
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
