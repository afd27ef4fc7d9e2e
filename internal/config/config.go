package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rpggio/leadboard/internal/crm"
	"github.com/rpggio/leadboard/internal/domain/lead"
)

const envPrefix = "LEADBOARD_"

// Environment modes.
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

// Transport modes.
const (
	TransportHTTP  = "http"
	TransportStdio = "stdio"
)

// Config defines server configuration.
type Config struct {
	Env       string          `yaml:"env"`
	Server    ServerConfig    `yaml:"server"`
	Transport TransportConfig `yaml:"transport"`
	Auth      AuthConfig      `yaml:"auth"`
	DB        DBConfig        `yaml:"db"`
	Log       LogConfig       `yaml:"log"`
	CRM       CRMConfig       `yaml:"crm"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type TransportConfig struct {
	Mode string `yaml:"mode"`
}

// AuthConfig guards the RPC and MCP endpoints with a static bearer token.
type AuthConfig struct {
	Enabled bool   `yaml:"enabled"`
	Token   string `yaml:"token"`
}

type DBConfig struct {
	Path string `yaml:"path"`
}

// LogConfig sets the log level. An empty level follows the environment mode.
type LogConfig struct {
	Level string `yaml:"level"`
	Path  string `yaml:"path"`
}

// CRMConfig points at the remote lead API.
type CRMConfig struct {
	BaseURL   string        `yaml:"base_url"`
	Token     string        `yaml:"token"`
	Version   string        `yaml:"version"`
	Timeout   time.Duration `yaml:"timeout"`
	RateLimit float64       `yaml:"rate_limit"`
}

// PipelineConfig holds the ordered stage titles. The last stage is terminal.
type PipelineConfig struct {
	Stages      []string `yaml:"stages"`
	LoadOnStart bool     `yaml:"load_on_start"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Env: EnvDevelopment,
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Transport: TransportConfig{
			Mode: TransportHTTP,
		},
		DB: DBConfig{
			Path: "leadboard.db",
		},
		CRM: CRMConfig{
			BaseURL:   crm.DefaultBaseURL,
			Version:   crm.DefaultVersion,
			Timeout:   30 * time.Second,
			RateLimit: 10,
		},
		Pipeline: PipelineConfig{
			Stages:      append([]string(nil), lead.DefaultStages...),
			LoadOnStart: true,
		},
	}
}

// Load reads configuration from an optional YAML file and environment variables.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv(envPrefix + "CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel(cfg.Env)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// DefaultLogLevel maps an environment mode to its log level.
func DefaultLogLevel(env string) string {
	switch env {
	case EnvProduction:
		return "error"
	case EnvStaging:
		return "info"
	default:
		return "debug"
	}
}

// Validate checks the configuration for values the server cannot run with.
func (c Config) Validate() error {
	var errs []error

	switch c.Env {
	case EnvDevelopment, EnvStaging, EnvProduction:
	default:
		errs = append(errs, fmt.Errorf("unknown env %q", c.Env))
	}
	switch c.Transport.Mode {
	case TransportHTTP, TransportStdio:
	default:
		errs = append(errs, fmt.Errorf("unknown transport mode %q", c.Transport.Mode))
	}
	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("unknown log level %q", c.Log.Level))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid server port %d", c.Server.Port))
	}
	if c.Auth.Enabled && c.Auth.Token == "" {
		errs = append(errs, errors.New("auth enabled without a token"))
	}
	if c.CRM.Timeout < 0 {
		errs = append(errs, fmt.Errorf("invalid crm timeout %s", c.CRM.Timeout))
	}
	if c.CRM.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("invalid crm rate limit %v", c.CRM.RateLimit))
	}

	if len(c.Pipeline.Stages) == 0 {
		errs = append(errs, errors.New("pipeline needs at least one stage"))
	}
	seen := make(map[string]bool, len(c.Pipeline.Stages))
	for _, stage := range c.Pipeline.Stages {
		if strings.TrimSpace(stage) == "" {
			errs = append(errs, errors.New("pipeline stage titles must not be empty"))
			continue
		}
		if seen[stage] {
			errs = append(errs, fmt.Errorf("duplicate pipeline stage %q", stage))
		}
		seen[stage] = true
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	get := func(name string) (string, bool) {
		v, ok := lookup(envPrefix + name)
		if !ok || v == "" {
			return "", false
		}
		return v, true
	}

	if v, ok := get("ENV"); ok {
		cfg.Env = strings.ToLower(v)
	}
	if v, ok := get("SERVER_HOST"); ok {
		cfg.Server.Host = v
	}
	if v, ok := get("SERVER_PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %sSERVER_PORT: %w", envPrefix, err)
		}
		cfg.Server.Port = port
	}
	if v, ok := get("TRANSPORT_MODE"); ok {
		cfg.Transport.Mode = strings.ToLower(v)
	}
	if v, ok := get("AUTH_ENABLED"); ok {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %sAUTH_ENABLED: %w", envPrefix, err)
		}
		cfg.Auth.Enabled = enabled
	}
	if v, ok := get("AUTH_TOKEN"); ok {
		cfg.Auth.Token = v
	}
	if v, ok := get("DB_PATH"); ok {
		cfg.DB.Path = v
	}
	if v, ok := get("LOG_LEVEL"); ok {
		cfg.Log.Level = strings.ToLower(v)
	}
	if v, ok := get("LOG_PATH"); ok {
		cfg.Log.Path = v
	}
	if v, ok := get("CRM_BASE_URL"); ok {
		cfg.CRM.BaseURL = v
	}
	if v, ok := get("CRM_TOKEN"); ok {
		cfg.CRM.Token = v
	}
	if v, ok := get("CRM_VERSION"); ok {
		cfg.CRM.Version = v
	}
	if v, ok := get("CRM_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %sCRM_TIMEOUT: %w", envPrefix, err)
		}
		cfg.CRM.Timeout = d
	}
	if v, ok := get("CRM_RATE_LIMIT"); ok {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid %sCRM_RATE_LIMIT: %w", envPrefix, err)
		}
		cfg.CRM.RateLimit = rps
	}
	if v, ok := get("PIPELINE_STAGES"); ok {
		var stages []string
		for _, s := range strings.Split(v, ",") {
			stages = append(stages, strings.TrimSpace(s))
		}
		cfg.Pipeline.Stages = stages
	}
	if v, ok := get("PIPELINE_LOAD_ON_START"); ok {
		load, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %sPIPELINE_LOAD_ON_START: %w", envPrefix, err)
		}
		cfg.Pipeline.LoadOnStart = load
	}
	return nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
