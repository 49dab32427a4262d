package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/angeloszaimis/workerproxy/internal/strategy"
	"github.com/angeloszaimis/workerproxy/internal/worker"
)

const (
	EnvDev     = "dev"
	EnvStaging = "staging"
	EnvProd    = "prod"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

const (
	EnvPrefix   = "WORKERPROXY"
	DefaultPort = 1337
)

type ServerConfig struct {
	Address     string `mapstructure:"address"`
	Port        int    `mapstructure:"port"`
	Environment string `mapstructure:"environment"`
}

// ListenAddr joins Address and Port.
func (s ServerConfig) ListenAddr() string {
	return net.JoinHostPort(s.Address, strconv.Itoa(s.Port))
}

type StrategyConfig struct {
	Type string `mapstructure:"type"`
}

type UpstreamConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

type MetricsConfig struct {
	Address string `mapstructure:"address"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Workers  []string       `mapstructure:"workers"`
	Strategy StrategyConfig `mapstructure:"strategy"`
	Upstream UpstreamConfig `mapstructure:"upstream"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Logging  LoggingConfig  `mapstructure:"logging"`

	// Registry is built from Workers by Load.
	Registry *worker.Registry `mapstructure:"-"`
}

// ConfigError is returned for any configuration that cannot start the proxy.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %v", e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// ErrEmptyRegistry means workers were given but none of them was usable.
var ErrEmptyRegistry = errors.New("no valid worker addresses")

// NewFlagSet returns the flags of the serve command.
func NewFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	fs.Uint16P("port", "p", DefaultPort, "port to listen on")
	fs.StringArrayP("worker", "w", nil, "worker address, repeatable")
	fs.String("config", "", "optional YAML config file")
	return fs
}

// Load parses the serve command's arguments and resolves the configuration.
// The returned viper instance is needed by Watch.
func Load(args []string, logger *slog.Logger) (*Config, *viper.Viper, error) {
	fs := NewFlagSet()
	if err := fs.Parse(args); err != nil {
		return nil, nil, &ConfigError{Err: err}
	}

	if fs.NArg() > 0 {
		return nil, nil, &ConfigError{Err: fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))}
	}

	v := viper.New()
	setDefaults(v)

	if err := v.BindPFlag("server.port", fs.Lookup("port")); err != nil {
		return nil, nil, &ConfigError{Err: err}
	}
	if err := v.BindPFlag("workers", fs.Lookup("worker")); err != nil {
		return nil, nil, &ConfigError{Err: err}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path, _ := fs.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, nil, &ConfigError{Err: fmt.Errorf("reading %s: %w", path, err)}
		}
		logger.Info("Loaded config file", slog.String("file", v.ConfigFileUsed()))
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, nil, err
	}

	registry, err := worker.Parse(cfg.Workers, logger)
	if err != nil {
		return nil, nil, &ConfigError{Err: err}
	}
	if registry.IsEmpty() {
		return nil, nil, &ConfigError{Err: ErrEmptyRegistry}
	}
	cfg.Registry = registry

	return cfg, v, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", "0.0.0.0")
	v.SetDefault("server.port", DefaultPort)
	v.SetDefault("server.environment", EnvDev)
	v.SetDefault("strategy.type", strategy.RoundRobin)
	v.SetDefault("upstream.timeout", "0s")
	v.SetDefault("metrics.address", "")
	v.SetDefault("logging.level", LogLevelInfo)
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, &ConfigError{Err: err}
	}

	if err := cfg.Validate(); err != nil {
		return nil, &ConfigError{Err: err}
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Server,
			validation.Required,
			validation.By(func(value interface{}) error {
				sc, ok := value.(ServerConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a ServerConfig")
				}
				return validation.ValidateStruct(&sc,
					validation.Field(&sc.Environment,
						validation.Required,
						validation.In(EnvDev, EnvStaging, EnvProd),
					),
					validation.Field(&sc.Address,
						validation.Required,
						is.Host,
					),
					validation.Field(&sc.Port,
						validation.Min(0),
						validation.Max(65535),
					),
				)
			}),
		),
		validation.Field(&c.Logging,
			validation.Required,
			validation.By(func(value interface{}) error {
				lc, ok := value.(LoggingConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a LoggingConfig")
				}
				return validation.ValidateStruct(&lc,
					validation.Field(&lc.Level,
						validation.Required,
						validation.In(LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError),
					),
				)
			}),
		),
		validation.Field(&c.Strategy,
			validation.Required,
			validation.By(func(value interface{}) error {
				sc, ok := value.(StrategyConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a StrategyConfig")
				}
				return validation.ValidateStruct(&sc,
					validation.Field(&sc.Type,
						validation.Required,
						validation.In(toInterfaces(strategy.Names())...),
					),
				)
			}),
		),
		validation.Field(&c.Upstream,
			validation.By(func(value interface{}) error {
				uc, ok := value.(UpstreamConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be an UpstreamConfig")
				}
				return validation.ValidateStruct(&uc,
					validation.Field(&uc.Timeout, validation.Min(time.Duration(0))),
				)
			}),
		),
		validation.Field(&c.Metrics,
			validation.By(func(value interface{}) error {
				mc, ok := value.(MetricsConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a MetricsConfig")
				}
				return validation.ValidateStruct(&mc,
					validation.Field(&mc.Address, validation.By(validateHostPort)),
				)
			}),
		),
	)
}

func validateHostPort(value interface{}) error {
	addr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	// Empty disables the listener.
	if addr == "" {
		return nil
	}

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return validation.NewError("validation_invalid_hostport", "must be in host:port format")
	}

	if port == "" {
		return validation.NewError("validation_invalid_port", "port cannot be empty")
	}

	if port != "0" {
		if err := is.Port.Validate(port); err != nil {
			return validation.NewError("validation_invalid_port", "invalid port")
		}
	}

	if host != "" {
		if err := is.Host.Validate(host); err != nil {
			return validation.NewError("validation_invalid_host", "invalid host")
		}
	}

	return nil
}

func toInterfaces(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
