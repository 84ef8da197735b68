package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/Comcast/fernspiel/util/logger"

	"gopkg.in/yaml.v2"
)

// Config holds everything "fernspiel run" needs.
type Config struct {
	// Book is the phonebook filename.
	Book string `yaml:"book"`

	LogLevel string `yaml:"log_level,omitempty"`

	// Stdio reads dial strings from stdin and prints transitions.
	Stdio     bool `yaml:"stdio,omitempty"`
	HaltOnEOF bool `yaml:"halt_on_eof,omitempty"`

	// QueueSize bounds both the event channel and the command
	// queue.
	QueueSize int `yaml:"queue_size,omitempty"`

	Remote    Remote     `yaml:"remote,omitempty"`
	MQTT      MQTT       `yaml:"mqtt,omitempty"`
	Journal   Journal    `yaml:"journal,omitempty"`
	Schedules []Schedule `yaml:"schedules,omitempty"`
}

// Remote configures the remote control server.  An empty Listen
// disables it.
type Remote struct {
	Listen   string `yaml:"listen,omitempty"`
	MaxConns int    `yaml:"max_conns,omitempty"`
}

// MQTT configures the hardware bridge.  An empty Broker disables it.
type MQTT struct {
	Broker      string        `yaml:"broker,omitempty"`
	ClientId    string        `yaml:"client_id,omitempty"`
	Username    string        `yaml:"username,omitempty"`
	Password    string        `yaml:"password,omitempty"`
	InputTopic  string        `yaml:"input_topic,omitempty"`
	OutputTopic string        `yaml:"output_topic,omitempty"`
	StateTopic  string        `yaml:"state_topic,omitempty"`
	DoneTopic   string        `yaml:"done_topic,omitempty"`
	KeepAlive   time.Duration `yaml:"keep_alive,omitempty"`

	CAFile   string `yaml:"ca_file,omitempty"`
	CertFile string `yaml:"cert_file,omitempty"`
	KeyFile  string `yaml:"key_file,omitempty"`
	Insecure bool   `yaml:"insecure,omitempty"`

	// Decoder, if not empty, is an ECMAScript file that decodes
	// payloads.
	Decoder string `yaml:"decoder,omitempty"`

	// Requires are libraries for the Decoder.
	Requires []string `yaml:"requires,omitempty"`
}

// Journal kinds.
const (
	JournalNone  = "none"
	JournalBolt  = "bolt"
	JournalRedis = "redis"
)

// Journal configures where transitions are recorded.
type Journal struct {
	Kind      string `yaml:"kind,omitempty"`
	Path      string `yaml:"path,omitempty"`
	RedisAddr string `yaml:"redis_addr,omitempty"`
	RedisDB   int    `yaml:"redis_db,omitempty"`
	Prefix    string `yaml:"prefix,omitempty"`
	MaxLen    int64  `yaml:"max_len,omitempty"`
}

// Schedule posts Symbol whenever Cron fires.
type Schedule struct {
	Cron   string `yaml:"cron"`
	Symbol string `yaml:"symbol"`
}

const (
	// DefaultConfigFilename is the default filename for settings.
	DefaultConfigFilename = "fernspiel.yaml"

	DefaultLogLevel  = "info"
	DefaultQueueSize = 64
	DefaultMaxConns  = 16
	DefaultClientId  = "fernspiel"
	DefaultBoltPath  = "fernspiel.db"

	// DefaultFilePermissions is the permission for saved settings.
	DefaultFilePermissions = 0o600
)

var (
	errConfigIsNotSet = errors.New("configuration is not set")
	errBookRequired   = errors.New("book must be provided")
)

// Load reads the settings from the given path and validates them.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.UnmarshalStrict(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	// A relative book is relative to the settings.
	if cfg.Book != "" && !filepath.IsAbs(cfg.Book) {
		cfg.Book = filepath.Join(filepath.Dir(path), cfg.Book)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the settings to the given path.
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

	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the settings and fills in defaults.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.Book == "" {
		return errBookRequired
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}
	if _, ok := logger.ParseLogLevel(cfg.LogLevel); !ok {
		return fmt.Errorf("invalid log level %q", cfg.LogLevel)
	}

	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}

	if cfg.Remote.Listen != "" {
		if _, err := net.ResolveTCPAddr("tcp", cfg.Remote.Listen); err != nil {
			return fmt.Errorf("invalid remote listen address: %w", err)
		}
		if cfg.Remote.MaxConns <= 0 {
			cfg.Remote.MaxConns = DefaultMaxConns
		}
	}

	if cfg.MQTT.Broker != "" {
		if cfg.MQTT.ClientId == "" {
			cfg.MQTT.ClientId = DefaultClientId
		}
		if cfg.MQTT.InputTopic == "" && cfg.MQTT.OutputTopic == "" && cfg.MQTT.StateTopic == "" {
			return errors.New("mqtt needs at least one topic")
		}
		if (cfg.MQTT.CertFile == "") != (cfg.MQTT.KeyFile == "") {
			return errors.New("mqtt needs both cert_file and key_file")
		}
	}

	switch cfg.Journal.Kind {
	case "":
		cfg.Journal.Kind = JournalNone
	case JournalNone:
	case JournalBolt:
		if cfg.Journal.Path == "" {
			cfg.Journal.Path = DefaultBoltPath
		}
	case JournalRedis:
		if cfg.Journal.RedisAddr == "" {
			return errors.New("redis journal needs redis_addr")
		}
	default:
		return fmt.Errorf("unknown journal kind %q", cfg.Journal.Kind)
	}

	for i, s := range cfg.Schedules {
		if s.Cron == "" || s.Symbol == "" {
			return fmt.Errorf("schedule %d needs both cron and symbol", i)
		}
	}

	return nil
}
