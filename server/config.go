package server

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/armon/go-metrics"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Bind        string `toml:"bind" yaml:"bind"`
	MaxProcs    int    `toml:"max_procs" yaml:"max_procs"`
	LogLevel    string `toml:"log_level" yaml:"log_level"`
	CacheMaxAge int    `toml:"cache_max_age" yaml:"cache_max_age"`
	Profiler    bool   `toml:"profiler" yaml:"profiler"`

	// [limits]
	Limits struct {
		MaxRequests    int           `toml:"max_requests" yaml:"max_requests"`
		BacklogSize    int           `toml:"backlog_size" yaml:"backlog_size"`
		RequestTimeout time.Duration `toml:"-" yaml:"-"`
		BacklogTimeout time.Duration `toml:"-" yaml:"-"`
		MaxFetchers    int           `toml:"max_fetchers" yaml:"max_fetchers"`
		MaxUploadSize  int64         `toml:"max_upload_size" yaml:"max_upload_size"`
		MaxImageSide   int           `toml:"max_image_side" yaml:"max_image_side"`

		RequestTimeoutStr string `toml:"request_timeout" yaml:"request_timeout"`
		BacklogTimeoutStr string `toml:"backlog_timeout" yaml:"backlog_timeout"`
	} `toml:"limits" yaml:"limits"`

	// [db]
	DB struct {
		RedisUri string `toml:"redis_uri" yaml:"redis_uri"`
	} `toml:"db" yaml:"db"`

	// [captcha]
	Captcha struct {
		Width      int           `toml:"width" yaml:"width"`
		Height     int           `toml:"height" yaml:"height"`
		CodeLength int           `toml:"code_length" yaml:"code_length"`
		TTL        time.Duration `toml:"-" yaml:"-"`
		TTLStr     string        `toml:"ttl" yaml:"ttl"`
	} `toml:"captcha" yaml:"captcha"`

	// [qr]
	QR struct {
		Width  int `toml:"width" yaml:"width"`
		Height int `toml:"height" yaml:"height"`
	} `toml:"qr" yaml:"qr"`

	// [sentry]
	Sentry struct {
		DSN string `toml:"dsn" yaml:"dsn"`
	} `toml:"sentry" yaml:"sentry"`

	// [ssl]
	SSL struct {
		Cert string `toml:"cert" yaml:"cert"`
		Key  string `toml:"key" yaml:"key"`
	} `toml:"ssl" yaml:"ssl"`

	// [statsd]
	StatsD struct {
		Enabled     bool   `toml:"enabled" yaml:"enabled"`
		Address     string `toml:"address" yaml:"address"`
		ServiceName string `toml:"service_name" yaml:"service_name"`
	} `toml:"statsd" yaml:"statsd"`

	// Query params appended to fetches of a given host, keyed by host.
	CustomParams map[string]map[string][]string `toml:"custom_params" yaml:"custom_params"`
}

var (
	ErrNoConfigFile = errors.New("no configuration file specified")

	DefaultConfig = Config{}
)

func init() {
	cf := Config{
		Bind:        "0.0.0.0:4446",
		MaxProcs:    -1,
		LogLevel:    "INFO",
		CacheMaxAge: 0,
		Profiler:    false,
	}

	cf.Limits.MaxRequests = 1000
	cf.Limits.BacklogSize = 5000
	cf.Limits.RequestTimeout = 45 * time.Second
	cf.Limits.BacklogTimeout = 1500 * time.Millisecond
	cf.Limits.MaxFetchers = 100
	cf.Limits.MaxUploadSize = 20 << 20
	cf.Limits.MaxImageSide = 4096

	cf.Captcha.Width = 120
	cf.Captcha.Height = 38
	cf.Captcha.CodeLength = 4
	cf.Captcha.TTL = 5 * time.Minute

	cf.QR.Width = 360
	cf.QR.Height = 360

	cf.StatsD.ServiceName = "imgkit"

	DefaultConfig = cf
}

func NewConfig() *Config {
	cf := DefaultConfig
	return &cf
}

// NewConfigFromFile loads confFile, or confEnv when confFile is empty.
// Files ending in .yaml or .yml are read as YAML, everything else as TOML.
func NewConfigFromFile(confFile string, confEnv string) (*Config, error) {
	var err error

	if confFile == "" {
		confFile = confEnv
	}
	if confFile == "" {
		return nil, ErrNoConfigFile
	}
	if _, err = os.Stat(confFile); os.IsNotExist(err) {
		return nil, ErrNoConfigFile
	}

	cf := NewConfig()

	switch strings.ToLower(filepath.Ext(confFile)) {
	case ".yaml", ".yml":
		b, err := os.ReadFile(confFile)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, cf); err != nil {
			return nil, fmt.Errorf("config %s: %w", confFile, err)
		}
	default:
		if _, err = toml.DecodeFile(confFile, cf); err != nil {
			return nil, fmt.Errorf("config %s: %w", confFile, err)
		}
	}
	return cf, nil
}

func (cf *Config) Apply() (err error) {
	// runtime
	if cf.MaxProcs <= 0 {
		cf.MaxProcs = runtime.NumCPU()
	}
	runtime.GOMAXPROCS(cf.MaxProcs)

	// logging
	level, err := logrus.ParseLevel(strings.ToLower(cf.LogLevel))
	if err != nil {
		return err
	}
	logrus.SetLevel(level)

	// limits
	if cf.Limits.RequestTimeoutStr != "" {
		to, err := time.ParseDuration(cf.Limits.RequestTimeoutStr)
		if err != nil {
			return err
		}
		cf.Limits.RequestTimeout = to
	}
	if cf.Limits.BacklogTimeoutStr != "" {
		to, err := time.ParseDuration(cf.Limits.BacklogTimeoutStr)
		if err != nil {
			return err
		}
		cf.Limits.BacklogTimeout = to
	}

	// captcha
	if cf.Captcha.TTLStr != "" {
		ttl, err := time.ParseDuration(cf.Captcha.TTLStr)
		if err != nil {
			return err
		}
		cf.Captcha.TTL = ttl
	}
	if cf.Captcha.CodeLength <= 0 {
		return fmt.Errorf("captcha code_length must be positive, got %d", cf.Captcha.CodeLength)
	}

	return nil
}

// GetStore returns the redis backed challenge store, or an in-process one
// when no redis_uri is configured.
func (cf *Config) GetStore() (ChallengeStore, error) {
	if cf.DB.RedisUri == "" {
		logrus.Warn("db: no redis_uri set, captcha challenges kept in memory")
		return NewMemStore(), nil
	}

	db, err := NewDB(cf.DB.RedisUri)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	return NewRedisStore(db), nil
}

func (cf *Config) SetupStatsD() error {
	if cf.StatsD.Enabled {
		sink, err := metrics.NewStatsdSink(cf.StatsD.Address)
		if err != nil {
			return err
		}

		config := &metrics.Config{
			ServiceName:          cf.StatsD.ServiceName, // Client service name
			HostName:             "",
			EnableHostname:       true,             // Enable hostname prefix
			EnableRuntimeMetrics: true,             // Enable runtime profiling
			EnableTypePrefix:     false,            // Disable type prefix
			TimerGranularity:     time.Millisecond, // Timers are in milliseconds
			ProfileInterval:      time.Second * 60, // Poll runtime every minute
		}

		config.HostName, _ = os.Hostname()

		if _, err := metrics.NewGlobal(config, sink); err != nil {
			return err
		}
	}
	return nil
}
