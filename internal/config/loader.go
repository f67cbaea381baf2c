package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures environment driven configuration values for the planner service.
type Config struct {
	HTTPPort       int
	SQLitePath     string
	SessionSecret  string
	SessionTTL     time.Duration
	TimeZone       string
	HorizonDays    int
	MaxSuggestions int

	// RoutinesPath optionally points at a JSON file of recurring busy
	// blocks fed to the suggestion engine. Empty disables the feature.
	RoutinesPath string
}

// Load parses configuration values from the current process environment.
//
// The loader applies sensible defaults for optional fields while validating
// required values and reporting every broken entry in a single error.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:       8080,
		SQLitePath:     "planner.db",
		SessionTTL:     24 * time.Hour,
		TimeZone:       "UTC",
		HorizonDays:    21,
		MaxSuggestions: 0,
	}

	missing := make([]string, 0, 1)
	invalid := make([]string, 0, 2)

	if portValue := strings.TrimSpace(os.Getenv("PLANNER_HTTP_PORT")); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 {
			invalid = append(invalid, "PLANNER_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if path := strings.TrimSpace(os.Getenv("PLANNER_SQLITE_PATH")); path != "" {
		cfg.SQLitePath = path
	}

	if secret := strings.TrimSpace(os.Getenv("PLANNER_SESSION_SECRET")); secret == "" {
		missing = append(missing, "PLANNER_SESSION_SECRET")
	} else {
		cfg.SessionSecret = secret
	}

	if ttlValue := strings.TrimSpace(os.Getenv("PLANNER_SESSION_TTL")); ttlValue != "" {
		ttl, err := time.ParseDuration(ttlValue)
		if err != nil || ttl <= 0 {
			invalid = append(invalid, "PLANNER_SESSION_TTL")
		} else {
			cfg.SessionTTL = ttl
		}
	}

	if tz := strings.TrimSpace(os.Getenv("PLANNER_TIMEZONE")); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			invalid = append(invalid, "PLANNER_TIMEZONE")
		} else {
			cfg.TimeZone = tz
		}
	}

	if horizonValue := strings.TrimSpace(os.Getenv("PLANNER_HORIZON_DAYS")); horizonValue != "" {
		horizon, err := strconv.Atoi(horizonValue)
		if err != nil || horizon <= 0 {
			invalid = append(invalid, "PLANNER_HORIZON_DAYS")
		} else {
			cfg.HorizonDays = horizon
		}
	}

	if maxValue := strings.TrimSpace(os.Getenv("PLANNER_MAX_SUGGESTIONS")); maxValue != "" {
		max, err := strconv.Atoi(maxValue)
		if err != nil || max < 0 {
			invalid = append(invalid, "PLANNER_MAX_SUGGESTIONS")
		} else {
			cfg.MaxSuggestions = max
		}
	}

	if routinesPath := strings.TrimSpace(os.Getenv("PLANNER_ROUTINES_PATH")); routinesPath != "" {
		cfg.RoutinesPath = routinesPath
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables are not set: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("environment variables carry invalid values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}
