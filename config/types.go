package config

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port int `yaml:"port" validate:"gt=0"`
}

// BoardConfig describes the departure board being computed
type BoardConfig struct {
	StopID              string `yaml:"stopID"`
	WindowMinutes       int    `yaml:"windowMinutes" validate:"gte=0"`
	DeparturesPerPost   int    `yaml:"departuresPerPost" validate:"gte=0"`
	PinnedGroup         string `yaml:"pinnedGroup"`
	ArrivedMarker       string `yaml:"arrivedMarker"`
	ArrivedFreshnessSec int    `yaml:"arrivedFreshnessSec" validate:"gte=0"`
	PlatformPrefix      string `yaml:"platformPrefix"`
	PlatformSeparator   string `yaml:"platformSeparator"`
	Timezone            string `yaml:"timezone"`
	// Language is the BCP 47 tag used to collate post names.
	Language string `yaml:"language"`

	// Presets maps the short ?p= selector to a stop id.
	Presets map[string]string `yaml:"presets"`

	// Directions maps stop_id -> direction_id -> display name.
	Directions     map[string]map[string]string `yaml:"directions"`
	DirectionsFile string                       `yaml:"directionsFile"`
}

// GTFSConfig contains GTFS static feed configuration
type GTFSConfig struct {
	Source             string `yaml:"source" validate:"omitempty,oneof=zip http postgres"`
	StaticURL          string `yaml:"staticURL" validate:"omitempty,url"`
	ZipPath            string `yaml:"zipPath"`
	DatabaseURL        string `yaml:"databaseURL"`
	CachePath          string `yaml:"cachePath"`
	RefreshIntervalSec int    `yaml:"refreshIntervalSec" validate:"gte=0"`
}

// GTFSRTConfig contains GTFS-Realtime feed configuration
type GTFSRTConfig struct {
	FeedURL        string `yaml:"feedURL" validate:"omitempty,url"`
	ReadIntervalMS int    `yaml:"readIntervalMS" validate:"gte=0"`
	TimeoutMS      int    `yaml:"timeoutMS" validate:"gte=0"`
	CacheTTLMS     int    `yaml:"cacheTTLMS" validate:"gte=0"`
}

// RefreshConfig controls the recomputation cadence
type RefreshConfig struct {
	IntervalMS int `yaml:"intervalMS" validate:"gte=0"`
}

// NATSConfig controls publishing of computed boards
type NATSConfig struct {
	URL         string `yaml:"url"`
	Subject     string `yaml:"subject"`
	LogSubjects bool   `yaml:"logSubjects"`
}

// MetricsConfig controls the Prometheus listener. Empty Addr disables it.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// AppConfig is the root configuration structure
type AppConfig struct {
	Server  ServerConfig  `yaml:"server" validate:"required"`
	Board   BoardConfig   `yaml:"board"`
	GTFS    GTFSConfig    `yaml:"gtfs"`
	GTFSRT  GTFSRTConfig  `yaml:"gtfsrt"`
	Refresh RefreshConfig `yaml:"refresh"`
	NATS    NATSConfig    `yaml:"nats"`
	Metrics MetricsConfig `yaml:"metrics"`
}
