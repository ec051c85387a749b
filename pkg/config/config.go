package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/ib-77/fwdmc/pkg/mc"
)

const EnvPrefix = "FWDMC_"

type Config struct {
	Trials         int           `yaml:"trials"`
	Workers        int           `yaml:"workers"`
	RequestTimeout time.Duration `yaml:"requestTimeout"`
	Discount       bool          `yaml:"discount"`
	EchoParameters bool          `yaml:"echoParameters"`
	Seed           *uint64       `yaml:"seed,omitempty"`
	Normal         string        `yaml:"normal"`
	LogLevel       string        `yaml:"logLevel"`
	LogFormat      string        `yaml:"logFormat"`
}

func Default() Config {
	return Config{
		Trials:         mc.DefaultTrials,
		Workers:        runtime.NumCPU(),
		EchoParameters: true,
		Normal:         string(mc.Ziggurat),
		LogLevel:       "info",
		LogFormat:      "text",
	}
}

// Load reads a YAML file over the defaults. Keys missing from the file keep
// their default value.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadEnv loads the given .env files, if any, and overlays FWDMC_*
// variables on cfg. Missing env files are not an error.
func LoadEnv(cfg Config, files ...string) (Config, error) {
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return Config{}, fmt.Errorf("failed to load %s file: %v", f, err)
		}
	}

	if v, ok := lookup("TRIALS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, envErr("TRIALS", err)
		}
		cfg.Trials = n
	}
	if v, ok := lookup("WORKERS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, envErr("WORKERS", err)
		}
		cfg.Workers = n
	}
	if v, ok := lookup("REQUEST_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, envErr("REQUEST_TIMEOUT", err)
		}
		cfg.RequestTimeout = d
	}
	if v, ok := lookup("DISCOUNT"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, envErr("DISCOUNT", err)
		}
		cfg.Discount = b
	}
	if v, ok := lookup("ECHO_PARAMETERS"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, envErr("ECHO_PARAMETERS", err)
		}
		cfg.EchoParameters = b
	}
	if v, ok := lookup("SEED"); ok {
		s, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return Config{}, envErr("SEED", err)
		}
		cfg.Seed = &s
	}
	if v, ok := lookup("NORMAL"); ok {
		cfg.Normal = v
	}
	if v, ok := lookup("LOG_LEVEL"); ok {
		cfg.LogLevel = v
	}
	if v, ok := lookup("LOG_FORMAT"); ok {
		cfg.LogFormat = v
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.Trials < 1 {
		errs = append(errs, fmt.Errorf("trials must be >= 1, got %d", c.Trials))
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must be >= 0, got %d", c.Workers))
	}
	if c.RequestTimeout < 0 {
		errs = append(errs, fmt.Errorf("requestTimeout must be >= 0, got %s", c.RequestTimeout))
	}
	if _, err := mc.ParseNormalMethod(c.Normal); err != nil {
		errs = append(errs, err)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("unknown log format %q", c.LogFormat))
	}
	return errors.Join(errs...)
}

// NewLogger builds a logrus logger with the configured level and format.
func NewLogger(c Config) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}

	l := logrus.New()
	l.SetLevel(level)
	if c.LogFormat == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return l, nil
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(EnvPrefix + key)
	return v, ok && v != ""
}

func envErr(key string, err error) error {
	return fmt.Errorf("invalid %s%s: %w", EnvPrefix, key, err)
}
