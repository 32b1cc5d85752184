// Package config builds the explicit run configuration passed to every
// grading operation: .env file, then EDPUZZLE_* variables, then CLI flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// DefaultAdvisories are graded when no advisory list is configured.
var DefaultAdvisories = []string{"BOS", "SHN", "BNU-Cats", "Casa-Amigos"}

// Config holds everything one grading run needs.
type Config struct {
	Advisories   []string
	FilesDir     string
	GradesDir    string
	TemplatesDir string
	ExportsDir   string
	ArchivePath  string
	Date         time.Time
	Threshold    float64
	LogLevel     string
}

// LoadEnv loads variables from envFile. A missing file is not an error.
func LoadEnv(envFile string) error {
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.WithField("file", envFile).Debug("env file not found, using process environment")
			return nil
		}
		return fmt.Errorf("load %s: %w", envFile, err)
	}
	log.WithField("file", envFile).Debug("loaded environment")
	return nil
}

// FromEnv returns a Config populated from EDPUZZLE_* variables and defaults.
func FromEnv(now time.Time) (Config, error) {
	cfg := Config{
		Advisories:   GetStringSliceEnv("EDPUZZLE_ADVISORIES", DefaultAdvisories),
		FilesDir:     GetEnv("EDPUZZLE_FILES_DIR", "files"),
		GradesDir:    GetEnv("EDPUZZLE_GRADES_DIR", "grades"),
		TemplatesDir: GetEnv("EDPUZZLE_TEMPLATES_DIR", "templates"),
		ExportsDir:   GetEnv("EDPUZZLE_EXPORTS_DIR", "exports"),
		ArchivePath:  GetEnv("EDPUZZLE_ARCHIVE", ""),
		Threshold:    GetFloatEnv("EDPUZZLE_THRESHOLD", 90),
		LogLevel:     GetEnv("EDPUZZLE_LOG_LEVEL", "info"),
		Date:         DateOnly(now),
	}
	if value := GetEnv("EDPUZZLE_DATE", ""); value != "" {
		date, err := ParseDate(value)
		if err != nil {
			return Config{}, fmt.Errorf("invalid EDPUZZLE_DATE: %w", err)
		}
		cfg.Date = date
	}
	return cfg, nil
}

// Validate checks the fields every command relies on.
func (c Config) Validate() error {
	if len(c.Advisories) == 0 {
		return errors.New("at least one advisory is required")
	}
	if c.FilesDir == "" || c.GradesDir == "" {
		return errors.New("files and grades directories are required")
	}
	if c.Date.IsZero() {
		return errors.New("run date is required")
	}
	if c.Threshold < 0 || c.Threshold > 100 {
		return fmt.Errorf("threshold %v must be between 0 and 100", c.Threshold)
	}
	return nil
}

// Only restricts the config to one advisory. Unknown advisories are allowed so
// a new homeroom can be graded before it is added to the list.
func (c Config) Only(advisory string) Config {
	c.Advisories = []string{advisory}
	return c
}

// GetEnv retrieves an environment variable or returns a default value
func GetEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

// GetFloatEnv retrieves a float environment variable or returns a default value
func GetFloatEnv(key string, defaultValue float64) float64 {
	valueStr := GetEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		log.Warnf("invalid number for %s: %s, using default: %v", key, valueStr, defaultValue)
		return defaultValue
	}
	return value
}

// GetStringSliceEnv retrieves a comma-separated list or returns a default value
func GetStringSliceEnv(key string, defaultValue []string) []string {
	valueStr := GetEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	result := SplitList(valueStr)
	if len(result) == 0 {
		return defaultValue
	}
	return result
}

// SplitList splits a comma-separated list, dropping blanks.
func SplitList(value string) []string {
	var result []string
	for _, item := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// ParseDate accepts the date layouts commonly typed on the command line.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, errors.New("empty date")
	}
	layouts := []string{
		"2006-01-02",
		"2006/01/02",
		"01/02/2006",
		"01-02-2006",
		"2006-01-02T15:04:05",
		"2006-01-02T15:04:05Z07:00",
	}
	for _, layout := range layouts {
		if parsed, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return DateOnly(parsed), nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported date format: %s", value)
}

// DateOnly truncates value to midnight in its own location.
func DateOnly(value time.Time) time.Time {
	if value.IsZero() {
		return value
	}
	return time.Date(value.Year(), value.Month(), value.Day(), 0, 0, 0, 0, value.Location())
}
