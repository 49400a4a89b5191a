package config

import (
	"errors"
	"fmt"
	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Environment string
	LogLevel    zerolog.Level
	HTTPTimeout time.Duration

	StormglassBaseURL string
	StormglassAPIKey  string

	Latitude  float64
	Longitude float64

	// HorizonHours is how far ahead of now each fetch reaches
	HorizonHours int
	// HistoryHours is how far before now each fetch starts
	HistoryHours   int
	UpdateInterval time.Duration
	UISamples      int
}

type Option func(*Config)

// WithEnvironment allows setting the environment
func WithEnvironment(env string) Option {
	return func(c *Config) {
		c.Environment = env
	}
}

// WithLogLevel allows setting the log level
func WithLogLevel(level string) Option {
	return func(c *Config) {
		parsedLevel, err := zerolog.ParseLevel(level)
		if err != nil {
			parsedLevel = zerolog.InfoLevel
		}
		c.LogLevel = parsedLevel
	}
}

// WithHTTPTimeout allows setting the HTTP timeout
func WithHTTPTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.HTTPTimeout = timeout
	}
}

func WithStormglassBaseURL(url string) Option {
	return func(c *Config) {
		c.StormglassBaseURL = url
	}
}

func WithAPIKey(key string) Option {
	return func(c *Config) {
		c.StormglassAPIKey = key
	}
}

// WithLocation sets the point tides are requested for
func WithLocation(lat, lng float64) Option {
	return func(c *Config) {
		c.Latitude = lat
		c.Longitude = lng
	}
}

func WithHorizonHours(hours int) Option {
	return func(c *Config) {
		c.HorizonHours = hours
	}
}

func WithHistoryHours(hours int) Option {
	return func(c *Config) {
		c.HistoryHours = hours
	}
}

func WithUpdateInterval(interval time.Duration) Option {
	return func(c *Config) {
		c.UpdateInterval = interval
	}
}

func WithUISamples(samples int) Option {
	return func(c *Config) {
		c.UISamples = samples
	}
}

// New creates a new configuration with default values
func New(opts ...Option) *Config {
	cfg := &Config{
		Environment:       "production",
		LogLevel:          zerolog.InfoLevel,
		HTTPTimeout:       10 * time.Second,
		StormglassBaseURL: "https://api.stormglass.io",
		Latitude:          56.0089507,
		Longitude:         -4.7990904,
		HorizonHours:      48,
		HistoryHours:      12,
		UpdateInterval:    30 * time.Minute,
		UISamples:         96,
	}

	// Apply options
	for _, opt := range opts {
		opt(cfg)
	}

	return cfg
}

// Validate reports settings the pipeline cannot run with
func (c *Config) Validate() error {
	var errs []error
	if c.StormglassAPIKey == "" {
		errs = append(errs, errors.New("stormglass API key is not set"))
	}
	if c.Latitude < -90 || c.Latitude > 90 {
		errs = append(errs, fmt.Errorf("latitude %f out of range", c.Latitude))
	}
	if c.Longitude < -180 || c.Longitude > 180 {
		errs = append(errs, fmt.Errorf("longitude %f out of range", c.Longitude))
	}
	if c.HorizonHours <= 0 {
		errs = append(errs, fmt.Errorf("horizon hours must be positive, got %d", c.HorizonHours))
	}
	if c.HistoryHours < 0 {
		errs = append(errs, fmt.Errorf("history hours must not be negative, got %d", c.HistoryHours))
	}
	if c.UpdateInterval <= 0 {
		errs = append(errs, fmt.Errorf("update interval must be positive, got %s", c.UpdateInterval))
	}
	if c.UISamples < 2 {
		errs = append(errs, fmt.Errorf("ui samples must be at least 2, got %d", c.UISamples))
	}
	return errors.Join(errs...)
}

// InitializeLogging sets up logging based on the configuration
func (c *Config) InitializeLogging() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(c.LogLevel)

	// Setup console logger for development environments
	if c.Environment == "local" || c.Environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	}
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	return New(envOptions()...)
}

// fileConfig is the layout of the device settings file
type fileConfig struct {
	Environment string `toml:"environment"`
	LogLevel    string `toml:"log_level"`
	HTTPTimeout string `toml:"http_timeout"`

	Stormglass struct {
		APIKey  string `toml:"api_key"`
		BaseURL string `toml:"base_url"`
	} `toml:"stormglass"`

	Location struct {
		Latitude  *float64 `toml:"latitude"`
		Longitude *float64 `toml:"longitude"`
	} `toml:"location"`

	Tide struct {
		HorizonHours   int    `toml:"horizon_hours"`
		HistoryHours   *int   `toml:"history_hours"`
		UpdateInterval string `toml:"update_interval"`
		UISamples      int    `toml:"ui_samples"`
	} `toml:"tide"`
}

// LoadFile reads a TOML settings file over the defaults. Environment
// variables still take precedence over the file. A missing file yields the
// environment configuration.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Debug().Str("path", path).Msg("No settings file, using environment")
			return LoadFromEnv(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	var fc fileConfig
	if _, err := toml.Decode(string(data), &fc); err != nil {
		return nil, fmt.Errorf("decode TOML: %w", err)
	}

	opts, err := fc.options()
	if err != nil {
		return nil, err
	}
	return New(append(opts, envOptions()...)...), nil
}

func (fc *fileConfig) options() ([]Option, error) {
	var opts []Option

	if fc.Environment != "" {
		opts = append(opts, WithEnvironment(fc.Environment))
	}
	if fc.LogLevel != "" {
		opts = append(opts, WithLogLevel(fc.LogLevel))
	}
	if fc.HTTPTimeout != "" {
		d, err := time.ParseDuration(fc.HTTPTimeout)
		if err != nil {
			return nil, fmt.Errorf("http_timeout: %w", err)
		}
		opts = append(opts, WithHTTPTimeout(d))
	}
	if fc.Stormglass.APIKey != "" {
		opts = append(opts, WithAPIKey(fc.Stormglass.APIKey))
	}
	if fc.Stormglass.BaseURL != "" {
		opts = append(opts, WithStormglassBaseURL(fc.Stormglass.BaseURL))
	}
	if fc.Location.Latitude != nil || fc.Location.Longitude != nil {
		if fc.Location.Latitude == nil || fc.Location.Longitude == nil {
			return nil, errors.New("location needs both latitude and longitude")
		}
		opts = append(opts, WithLocation(*fc.Location.Latitude, *fc.Location.Longitude))
	}
	if fc.Tide.HorizonHours != 0 {
		opts = append(opts, WithHorizonHours(fc.Tide.HorizonHours))
	}
	if fc.Tide.HistoryHours != nil {
		opts = append(opts, WithHistoryHours(*fc.Tide.HistoryHours))
	}
	if fc.Tide.UpdateInterval != "" {
		d, err := time.ParseDuration(fc.Tide.UpdateInterval)
		if err != nil {
			return nil, fmt.Errorf("update_interval: %w", err)
		}
		opts = append(opts, WithUpdateInterval(d))
	}
	if fc.Tide.UISamples != 0 {
		opts = append(opts, WithUISamples(fc.Tide.UISamples))
	}

	return opts, nil
}

// envOptions returns an option for every recognised variable that is set
func envOptions() []Option {
	var opts []Option

	if v, ok := os.LookupEnv("ENV"); ok && v != "" {
		opts = append(opts, WithEnvironment(v))
	}
	if v, ok := os.LookupEnv("LOG_LEVEL"); ok && v != "" {
		opts = append(opts, WithLogLevel(v))
	}
	if d, ok := lookupDuration("HTTP_TIMEOUT"); ok {
		opts = append(opts, WithHTTPTimeout(d))
	}
	if v, ok := os.LookupEnv("STORMGLASS_API_KEY"); ok && v != "" {
		opts = append(opts, WithAPIKey(v))
	}
	if v, ok := os.LookupEnv("STORMGLASS_BASE_URL"); ok && v != "" {
		opts = append(opts, WithStormglassBaseURL(v))
	}

	lat, latOK := lookupFloat("TIDE_LAT")
	lng, lngOK := lookupFloat("TIDE_LNG")
	switch {
	case latOK && lngOK:
		opts = append(opts, WithLocation(lat, lng))
	case latOK || lngOK:
		log.Warn().Msg("TIDE_LAT and TIDE_LNG must be set together, ignoring")
	}

	if n, ok := lookupInt("TIDE_HORIZON_HOURS"); ok {
		opts = append(opts, WithHorizonHours(n))
	}
	if n, ok := lookupInt("TIDE_HISTORY_HOURS"); ok {
		opts = append(opts, WithHistoryHours(n))
	}
	if d, ok := lookupDuration("TIDE_UPDATE_INTERVAL"); ok {
		opts = append(opts, WithUpdateInterval(d))
	}
	if n, ok := lookupInt("TIDE_UI_SAMPLES"); ok {
		opts = append(opts, WithUISamples(n))
	}

	return opts
}

func lookupDuration(key string) (time.Duration, bool) {
	value := os.Getenv(key)
	if value == "" {
		return 0, false
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		log.Warn().Str("key", key).Msg("Invalid duration value in environment variable, using default")
		return 0, false
	}
	return duration, true
}

func lookupFloat(key string) (float64, bool) {
	value := os.Getenv(key)
	if value == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		log.Warn().Str("key", key).Msg("Invalid float value in environment variable, using default")
		return 0, false
	}
	return f, true
}

func lookupInt(key string) (int, bool) {
	value := os.Getenv(key)
	if value == "" {
		return 0, false
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Warn().Str("key", key).Msg("Invalid integer value in environment variable, using default")
		return 0, false
	}
	return n, true
}
