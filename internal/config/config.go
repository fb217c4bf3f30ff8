// Package config loads punchd settings from ~/.punchd/config.json, an
// annotated JSON file supporting single-line // comments. Environment
// variables (optionally from a .env file in the working directory) override
// the file, which keeps kiosk fleets configurable without editing
// per-device files.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the root configuration for punchd.
type Config struct {
	Backend  BackendConfig  `json:"backend"`
	Subject  SubjectConfig  `json:"subject"`
	Capture  CaptureConfig  `json:"capture"`
	Sweep    SweepConfig    `json:"sweep"`
	Schedule ScheduleConfig `json:"schedule"`
}

// BackendConfig holds the attendance backend and identity provider settings.
type BackendConfig struct {
	// BaseURL is the attendance backend API root.
	BaseURL string `json:"base_url"`
	// AuthURL is the identity provider root for the device code flow.
	AuthURL string `json:"auth_url"`
	// TenantID selects the organisation at the identity provider.
	TenantID string `json:"tenant_id"`
	// ClientID is the registered app id for the device code flow.
	ClientID string `json:"client_id"`
}

// SubjectConfig identifies whose punches this device captures.
type SubjectConfig struct {
	ID string `json:"id"`
	// Timezone is the IANA timezone for punch times. Empty = system local.
	Timezone string `json:"timezone"`
}

// CaptureConfig holds the camera and location seams.
type CaptureConfig struct {
	// Command is the external still-capture command; {out} is replaced by
	// the output path (e.g. "fswebcam --png 9 --no-banner {out}").
	Command string `json:"command"`
	// PhotoFile, when set, is read instead of running Command.
	PhotoFile string `json:"photo_file"`
	// FaceDetectURL enables the soft face-presence gate when non-empty.
	FaceDetectURL string `json:"face_detect_url"`
	// GeocodeURL enables reverse geocoding when non-empty.
	GeocodeURL string `json:"geocode_url"`
	// Latitude/Longitude are the fixed kiosk coordinates; both zero
	// disables location capture.
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// SweepConfig tunes reconciliation reporting.
type SweepConfig struct {
	// StaleAfterAttempts marks a queued entry as stale in listings once it
	// failed this many sweeps. Entries are never dropped.
	StaleAfterAttempts int `json:"stale_after_attempts"`
}

// ScheduleConfig feeds the ledger's calendar annotations.
type ScheduleConfig struct {
	// RestDays are weekly rest days by name ("Saturday", "Sunday").
	RestDays []string `json:"rest_days"`
	// Holidays are YYYY-MM-DD dates treated as holidays.
	Holidays []string `json:"holidays"`
}

const (
	DefaultTenantID           = "common"
	DefaultStaleAfterAttempts = 20
)

// defaultConfig returns a Config pre-filled with sensible defaults.
func defaultConfig() Config {
	return Config{
		Backend: BackendConfig{TenantID: DefaultTenantID},
		Sweep:   SweepConfig{StaleAfterAttempts: DefaultStaleAfterAttempts},
		Schedule: ScheduleConfig{
			RestDays: []string{"Saturday", "Sunday"},
		},
	}
}

// configTemplate is the annotated config written on first run.
// Lines whose trimmed content starts with // are stripped before JSON parsing,
// allowing human-readable documentation inside the file.
const configTemplate = `// punchd configuration – ~/.punchd/config.json
//
// Environment variables override this file: PUNCHD_BASE_URL, PUNCHD_AUTH_URL,
// PUNCHD_TENANT_ID, PUNCHD_CLIENT_ID, PUNCHD_SUBJECT_ID, PUNCHD_TIMEZONE,
// PUNCHD_CAPTURE_COMMAND, PUNCHD_PHOTO_FILE, PUNCHD_STALE_AFTER_ATTEMPTS.
// A .env file in the working directory is read first if present.
{
  // Attendance backend and identity provider.
  "backend": {
    // API root of the attendance backend, e.g. "https://attendance.example.com/api".
    "base_url": "",
    // Identity provider root for the OAuth2 device code flow.
    "auth_url": "",
    "tenant_id": "common",
    "client_id": ""
  },

  // Whose punches this device captures.
  "subject": {
    "id": "",
    // IANA timezone for punch times, e.g. "Asia/Manila". Empty = system local.
    "timezone": ""
  },

  // Camera and location seams.
  "capture": {
    // External still-capture command; {out} is replaced by the output path.
    "command": "",
    // Read this file instead of running a command (useful for testing).
    "photo_file": "",
    // Face-presence service; empty disables the soft gate.
    "face_detect_url": "",
    // Reverse-geocoding service; empty keeps coordinates-only locations.
    "geocode_url": "",
    // Fixed kiosk coordinates; both zero disables location capture.
    "latitude": 0,
    "longitude": 0
  },

  // Reconciliation reporting.
  "sweep": {
    // Mark a queued entry stale in listings after this many failed sweeps.
    "stale_after_attempts": 20
  },

  // Calendar annotations for derived records.
  "schedule": {
    "rest_days": ["Saturday", "Sunday"],
    // YYYY-MM-DD dates treated as holidays.
    "holidays": []
  }
}
`

// BaseDir returns the root data directory (~/.punchd).
func BaseDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".punchd"), nil
}

// configFilePath returns the path to ~/.punchd/config.json.
func configFilePath() (string, error) {
	base, err := BaseDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "config.json"), nil
}

// stripLineComments removes lines whose leading non-whitespace content starts
// with //. Only full-line comments are handled; inline comments are not stripped.
func stripLineComments(data []byte) []byte {
	var out []byte
	for _, line := range bytes.Split(data, []byte("\n")) {
		if bytes.HasPrefix(bytes.TrimLeft(line, " \t"), []byte("//")) {
			continue
		}
		out = append(out, line...)
		out = append(out, '\n')
	}
	return out
}

// Load reads ~/.punchd/config.json, creating it with annotated defaults on
// first run, then applies environment overrides.
func Load() (Config, error) {
	path, err := configFilePath()
	if err != nil {
		return defaultConfig(), err
	}

	cfg := defaultConfig()
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// First run: write the annotated template so users can discover options.
		if writeErr := writeDefault(path); writeErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not create config file %s: %v\n", path, writeErr)
		}
	case err != nil:
		return defaultConfig(), fmt.Errorf("reading config file %s: %w", path, err)
	default:
		cleaned := stripLineComments(data)
		if err := json.Unmarshal(cleaned, &cfg); err != nil {
			return defaultConfig(), fmt.Errorf("parsing config file %s: %w\nTip: delete the file to regenerate defaults", path, err)
		}
	}

	applyEnv(&cfg)

	// Fill zero-value fields with built-in defaults so callers always get
	// a usable Config even if the user only partially fills in the file.
	if cfg.Backend.TenantID == "" {
		cfg.Backend.TenantID = DefaultTenantID
	}
	if cfg.Sweep.StaleAfterAttempts <= 0 {
		cfg.Sweep.StaleAfterAttempts = DefaultStaleAfterAttempts
	}
	return cfg, nil
}

// applyEnv overlays PUNCHD_* environment variables, reading a .env file
// first when one exists in the working directory.
func applyEnv(cfg *Config) {
	// A missing .env is the normal case; only an unreadable one warrants
	// a warning.
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not load .env: %v\n", err)
		}
	}

	set := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	set("PUNCHD_BASE_URL", &cfg.Backend.BaseURL)
	set("PUNCHD_AUTH_URL", &cfg.Backend.AuthURL)
	set("PUNCHD_TENANT_ID", &cfg.Backend.TenantID)
	set("PUNCHD_CLIENT_ID", &cfg.Backend.ClientID)
	set("PUNCHD_SUBJECT_ID", &cfg.Subject.ID)
	set("PUNCHD_TIMEZONE", &cfg.Subject.Timezone)
	set("PUNCHD_CAPTURE_COMMAND", &cfg.Capture.Command)
	set("PUNCHD_PHOTO_FILE", &cfg.Capture.PhotoFile)
	if v := os.Getenv("PUNCHD_STALE_AFTER_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Sweep.StaleAfterAttempts = n
		}
	}
}

// writeDefault creates the config directory and writes the annotated default
// config template.
func writeDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(configTemplate), 0o600); err != nil {
		return fmt.Errorf("writing default config: %w", err)
	}
	return nil
}

// RestWeekdays resolves the configured rest day names to weekdays. Unknown
// names are ignored with a warning.
func (c ScheduleConfig) RestWeekdays() []time.Weekday {
	names := map[string]time.Weekday{
		"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday,
		"wednesday": time.Wednesday, "thursday": time.Thursday,
		"friday": time.Friday, "saturday": time.Saturday,
	}
	var days []time.Weekday
	for _, n := range c.RestDays {
		if d, ok := names[strings.ToLower(strings.TrimSpace(n))]; ok {
			days = append(days, d)
		} else {
			fmt.Fprintf(os.Stderr, "Warning: unknown rest day %q in config\n", n)
		}
	}
	return days
}

// HolidaySet is a ledger holiday calendar over the configured date list.
type HolidaySet map[string]struct{}

// HolidaySet builds the holiday lookup from the configured dates.
func (c ScheduleConfig) HolidaySet() HolidaySet {
	s := make(HolidaySet, len(c.Holidays))
	for _, d := range c.Holidays {
		s[d] = struct{}{}
	}
	return s
}

// IsHoliday reports whether the calendar date is configured as a holiday.
func (s HolidaySet) IsHoliday(date string) bool {
	_, ok := s[date]
	return ok
}
