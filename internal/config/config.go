package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/oshokin/dronpoint-adapter/internal/logger"
)

// Config holds the settings of the dronpoint adapter.
type Config struct {
	// Origin is the DR server the events are read from.
	Origin Origin `yaml:"origin"`
	// Sink is where alarm notifications are sent.
	Sink Sink `yaml:"sink"`
	// TargetClasses is the allow-list of event classes to track.
	TargetClasses Classes `yaml:"target_classes"`
	// HealthAddress enables the gRPC health endpoint when not empty.
	HealthAddress string `yaml:"health_address,omitempty"`
	// Log configures logging.
	Log Log `yaml:"log"`
}

// Origin describes the DR server connection.
type Origin struct {
	// Scheme is http or https.
	Scheme string `yaml:"scheme"`
	// Host is the server hostname or IP address.
	Host string `yaml:"host"`
	// Port is the server port.
	Port int `yaml:"port"`
	// Username for HTTP basic authentication.
	Username string `yaml:"username"`
	// Password for HTTP basic authentication.
	Password string `yaml:"password"`
	// VerifyTLS enables server certificate verification. The DR server ships
	// with a self-signed certificate, so it is off by default.
	VerifyTLS bool `yaml:"verify_tls"`
	// Timeout bounds connection setup and non-streaming requests.
	Timeout time.Duration `yaml:"timeout"`
}

// Sink describes the notification consumer.
type Sink struct {
	// Kind selects the transport: http or mqtt.
	Kind string `yaml:"kind"`
	// Scheme is http or https for the HTTP sink.
	Scheme string `yaml:"scheme"`
	// Host of the HTTP sink.
	Host string `yaml:"host"`
	// Port of the HTTP sink.
	Port int `yaml:"port"`
	// Timeout bounds a single notification.
	Timeout time.Duration `yaml:"timeout"`
	// MQTT holds the MQTT sink settings.
	MQTT MQTT `yaml:"mqtt"`
}

// MQTT describes the MQTT sink.
type MQTT struct {
	// Broker is the broker URL, e.g. tcp://127.0.0.1:1883.
	Broker string `yaml:"broker"`
	// Topic receives alarm payloads.
	Topic string `yaml:"topic"`
	// ClientID identifies the adapter on the broker.
	ClientID string `yaml:"client_id"`
}

// Log configures the logger.
type Log struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
	// File enables a rotating log file when set.
	File string `yaml:"file,omitempty"`
}

const (
	// DefaultConfigFilename is the default filename for adapter settings.
	DefaultConfigFilename = "dronpoint-adapter.yaml"

	// DefaultOriginTimeout is the default timeout for origin requests.
	DefaultOriginTimeout = 10 * time.Second

	// DefaultSinkTimeout is the default timeout for one notification.
	DefaultSinkTimeout = 5 * time.Second

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600

	// SinkKindHTTP sends notifications as HTTP GET requests.
	SinkKindHTTP = "http"
	// SinkKindMQTT publishes notifications to an MQTT topic.
	SinkKindMQTT = "mqtt"

	// EnvOriginUsername overrides Origin.Username.
	EnvOriginUsername = "DRONPOINT_ORIGIN_USERNAME"
	// EnvOriginPassword overrides Origin.Password.
	EnvOriginPassword = "DRONPOINT_ORIGIN_PASSWORD"

	defaultOriginScheme = "https"
	defaultOriginPort   = 5082
	defaultSinkScheme   = "http"
	defaultSinkPort     = 50411
	defaultMQTTClientID = "dronpoint-adapter"
	dotenvFilename      = ".env"
	maxPort             = 65535
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errOriginHostRequired is returned when the DR server host is missing.
	errOriginHostRequired = errors.New("origin host must be provided")
	// errSinkHostRequired is returned when the HTTP sink host is missing.
	errSinkHostRequired = errors.New("sink host must be provided")
	// errMQTTRequired is returned when the MQTT sink lacks broker or topic.
	errMQTTRequired = errors.New("mqtt sink requires broker and topic")
	// errTargetClassesRequired is returned when the allow-list is empty.
	errTargetClassesRequired = errors.New("at least one target class must be provided")
	// ErrInvalid wraps every validation failure about malformed values.
	ErrInvalid = errors.New("invalid configuration")
)

// Load reads configuration from the provided path, applies environment
// overrides and validates it.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	path = filepath.Clean(path)

	if err := loadDotenv(filepath.Join(filepath.Dir(path), dotenvFilename)); err != nil {
		return nil, err
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err = yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	applyEnv(&cfg)

	if err = Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes cfg to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Credentials live here, restrict permissions.
	if err = os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks required fields and fills in defaults.
//
//nolint:cyclop // A flat list of checks reads better than helpers.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.Origin.Host == "" {
		return errOriginHostRequired
	}

	if cfg.Origin.Scheme == "" {
		cfg.Origin.Scheme = defaultOriginScheme
	}

	if cfg.Origin.Port == 0 {
		cfg.Origin.Port = defaultOriginPort
	}

	if cfg.Origin.Timeout <= 0 {
		cfg.Origin.Timeout = DefaultOriginTimeout
	}

	if err := validateEndpoint("origin", cfg.Origin.Scheme, cfg.Origin.Host, cfg.Origin.Port); err != nil {
		return err
	}

	if cfg.Sink.Kind == "" {
		cfg.Sink.Kind = SinkKindHTTP
	}

	if cfg.Sink.Timeout <= 0 {
		cfg.Sink.Timeout = DefaultSinkTimeout
	}

	switch cfg.Sink.Kind {
	case SinkKindHTTP:
		if cfg.Sink.Host == "" {
			return errSinkHostRequired
		}

		if cfg.Sink.Scheme == "" {
			cfg.Sink.Scheme = defaultSinkScheme
		}

		if cfg.Sink.Port == 0 {
			cfg.Sink.Port = defaultSinkPort
		}

		if err := validateEndpoint("sink", cfg.Sink.Scheme, cfg.Sink.Host, cfg.Sink.Port); err != nil {
			return err
		}
	case SinkKindMQTT:
		if cfg.Sink.MQTT.Broker == "" || cfg.Sink.MQTT.Topic == "" {
			return errMQTTRequired
		}

		if _, err := url.ParseRequestURI(cfg.Sink.MQTT.Broker); err != nil {
			return fmt.Errorf("%w: mqtt broker: %w", ErrInvalid, err)
		}

		if cfg.Sink.MQTT.ClientID == "" {
			cfg.Sink.MQTT.ClientID = defaultMQTTClientID
		}
	default:
		return fmt.Errorf("%w: unknown sink kind %q", ErrInvalid, cfg.Sink.Kind)
	}

	if len(cfg.TargetClasses) == 0 {
		return errTargetClassesRequired
	}

	if cfg.HealthAddress != "" {
		if _, _, err := net.SplitHostPort(cfg.HealthAddress); err != nil {
			return fmt.Errorf("%w: health address: %w", ErrInvalid, err)
		}
	}

	if _, ok := logger.ParseLogLevel(cfg.Log.Level); !ok {
		return fmt.Errorf("%w: log level %q", ErrInvalid, cfg.Log.Level)
	}

	return nil
}

// BaseURL returns the root of the DR server API.
func (o *Origin) BaseURL() string {
	return o.Scheme + "://" + net.JoinHostPort(o.Host, strconv.Itoa(o.Port)) + "/dunai/"
}

// BaseURL returns the root of the HTTP sink.
func (s *Sink) BaseURL() string {
	return s.Scheme + "://" + net.JoinHostPort(s.Host, strconv.Itoa(s.Port)) + "/"
}

func validateEndpoint(name, scheme, host string, port int) error {
	if scheme != "http" && scheme != "https" {
		return fmt.Errorf("%w: %s scheme %q", ErrInvalid, name, scheme)
	}

	if port < 1 || port > maxPort {
		return fmt.Errorf("%w: %s port %d", ErrInvalid, name, port)
	}

	if _, err := url.Parse(scheme + "://" + net.JoinHostPort(host, strconv.Itoa(port))); err != nil {
		return fmt.Errorf("%w: %s host %q: %w", ErrInvalid, name, host, err)
	}

	return nil
}

// loadDotenv loads a .env file without overriding variables already set.
// A missing file is not an error.
func loadDotenv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}

	return nil
}

func applyEnv(cfg *Config) {
	if v, ok := os.LookupEnv(EnvOriginUsername); ok {
		cfg.Origin.Username = v
	}

	if v, ok := os.LookupEnv(EnvOriginPassword); ok {
		cfg.Origin.Password = v
	}
}
