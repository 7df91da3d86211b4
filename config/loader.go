package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"golang.org/x/exp/maps"
	"gopkg.in/yaml.v3"
)

// Defaults applied when the configuration leaves a value unset.
const (
	DefaultPort                = 16181
	DefaultStopID              = "1455"
	DefaultWindowMinutes       = 90
	DefaultDeparturesPerPost   = 5
	DefaultArrivedMarker       = "**"
	DefaultArrivedFreshnessSec = 90
	DefaultPlatformPrefix      = "U"
	DefaultPlatformSeparator   = "Z"
	DefaultRefreshIntervalMS   = 5000
	DefaultReadIntervalMS      = 15000
	DefaultTimeoutMS           = 10000
	DefaultStaticRefreshSec    = 3600
	DefaultNATSSubject         = "departures"
)

// Config is the global application configuration
var Config AppConfig

// LoadAppConfig loads and validates the application configuration from config.yml
func LoadAppConfig() error {
	cfg, err := Load("config.yml", "./config/config.yml")
	if err != nil {
		return err
	}
	Config = *cfg
	return nil
}

// Load reads the first existing path, overlays environment variables
// (after loading .env when present), applies defaults and validates.
func Load(paths ...string) (*AppConfig, error) {
	_ = godotenv.Load()

	var data []byte
	var err error
	for _, p := range paths {
		data, err = os.ReadFile(p)
		if err == nil {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML bytes into an AppConfig with env overrides and defaults.
func Parse(data []byte) (*AppConfig, error) {
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	if cfg.Board.DirectionsFile != "" {
		if err := mergeDirectionsFile(&cfg.Board, cfg.Board.DirectionsFile); err != nil {
			return nil, err
		}
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	if _, err := cfg.Board.Location(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *AppConfig) error {
	if v := os.Getenv("DEPARTURES_STOP_ID"); v != "" {
		cfg.Board.StopID = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.GTFS.DatabaseURL = v
	}
	if v := os.Getenv("GTFS_STATIC_URL"); v != "" {
		cfg.GTFS.StaticURL = v
	}
	if v := os.Getenv("GTFSRT_FEED_URL"); v != "" {
		cfg.GTFSRT.FeedURL = v
	}
	if v := os.Getenv("NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
	}
	if v := os.Getenv("TZ"); v != "" && cfg.Board.Timezone == "" {
		cfg.Board.Timezone = v
	}
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 {
			return fmt.Errorf("invalid PORT: %q", v)
		}
		cfg.Server.Port = port
	}
	if v := os.Getenv("LOG_NATS_SUBJECTS"); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "t", "yes", "y", "on":
			cfg.NATS.LogSubjects = true
		default:
			cfg.NATS.LogSubjects = false
		}
	}
	return nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultPort
	}
	b := &cfg.Board
	if b.StopID == "" {
		b.StopID = DefaultStopID
	}
	if b.WindowMinutes == 0 {
		b.WindowMinutes = DefaultWindowMinutes
	}
	if b.DeparturesPerPost == 0 {
		b.DeparturesPerPost = DefaultDeparturesPerPost
	}
	if b.ArrivedMarker == "" {
		b.ArrivedMarker = DefaultArrivedMarker
	}
	if b.ArrivedFreshnessSec == 0 {
		b.ArrivedFreshnessSec = DefaultArrivedFreshnessSec
	}
	if b.PlatformPrefix == "" {
		b.PlatformPrefix = DefaultPlatformPrefix
	}
	if b.PlatformSeparator == "" {
		b.PlatformSeparator = DefaultPlatformSeparator
	}
	if b.Directions == nil {
		b.Directions = map[string]map[string]string{}
	}
	if cfg.GTFS.Source == "" {
		switch {
		case cfg.GTFS.DatabaseURL != "":
			cfg.GTFS.Source = "postgres"
		case cfg.GTFS.ZipPath != "":
			cfg.GTFS.Source = "zip"
		default:
			cfg.GTFS.Source = "http"
		}
	}
	if cfg.GTFS.RefreshIntervalSec == 0 {
		cfg.GTFS.RefreshIntervalSec = DefaultStaticRefreshSec
	}
	if cfg.GTFSRT.ReadIntervalMS == 0 {
		cfg.GTFSRT.ReadIntervalMS = DefaultReadIntervalMS
	}
	if cfg.GTFSRT.TimeoutMS == 0 {
		cfg.GTFSRT.TimeoutMS = DefaultTimeoutMS
	}
	if cfg.Refresh.IntervalMS == 0 {
		cfg.Refresh.IntervalMS = DefaultRefreshIntervalMS
	}
	if cfg.NATS.Subject == "" {
		cfg.NATS.Subject = DefaultNATSSubject
	}
}

// mergeDirectionsFile loads a stop_id -> direction_id -> name table
// (YAML or JSON) and merges it under the inline table, inline entries winning.
func mergeDirectionsFile(b *BoardConfig, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read directions file: %w", err)
	}
	var fromFile map[string]map[string]string
	if err := yaml.Unmarshal(data, &fromFile); err != nil {
		return fmt.Errorf("parse directions file: %w", err)
	}
	if fromFile == nil {
		fromFile = map[string]map[string]string{}
	}
	for stop, dirs := range b.Directions {
		if fromFile[stop] == nil {
			fromFile[stop] = map[string]string{}
		}
		maps.Copy(fromFile[stop], dirs)
	}
	b.Directions = fromFile
	return nil
}

// Location resolves the board timezone. Empty means the process local zone.
func (b BoardConfig) Location() (*time.Location, error) {
	if b.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(b.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", b.Timezone, err)
	}
	return loc, nil
}

// ResolveStop picks the stop id for a request: an explicit id wins,
// then a known preset, then the configured default.
func (b BoardConfig) ResolveStop(stopID, preset string) string {
	if s := strings.TrimSpace(stopID); s != "" {
		return s
	}
	if preset != "" {
		if s, ok := b.Presets[preset]; ok {
			return s
		}
	}
	return b.StopID
}

// RefreshInterval returns the board recomputation period.
func (c AppConfig) RefreshInterval() time.Duration {
	return time.Duration(c.Refresh.IntervalMS) * time.Millisecond
}

// ReadInterval returns the realtime polling period.
func (c AppConfig) ReadInterval() time.Duration {
	return time.Duration(c.GTFSRT.ReadIntervalMS) * time.Millisecond
}

// StaticRefreshInterval returns the static dataset reload period.
func (c AppConfig) StaticRefreshInterval() time.Duration {
	return time.Duration(c.GTFS.RefreshIntervalSec) * time.Second
}
