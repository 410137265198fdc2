package config

import (
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// AppConfig holds the monitor configuration after defaults, the optional
// config file and WATCH_* environment variables have been merged.
type AppConfig struct {
	// Env is the runtime environment, either "dev" or "prod".
	Env string `koanf:"env" validate:"required,oneof=dev prod"`

	// LogLevel controls log verbosity: "debug", "info", "warn", or "error".
	LogLevel string `koanf:"log_level" validate:"required,oneof=debug info warn error"`

	CheckIntervalMinutes   int `koanf:"check_interval_minutes" validate:"required,gte=1"`
	FirstCheckDelaySeconds int `koanf:"first_check_delay_seconds" validate:"gte=0"`
	CheckWorkers           int `koanf:"check_workers" validate:"required,gte=1,lte=64"`

	// AuthorityEndpoints are queried in order, host or host:port.
	AuthorityEndpoints        []string `koanf:"authority_endpoints" validate:"required,min=1,dive,endpoint"`
	AuthorityScheme           string   `koanf:"authority_scheme" validate:"required,oneof=http https"`
	PerEndpointTimeoutSeconds int      `koanf:"per_endpoint_timeout_seconds" validate:"required,gte=1"`

	// OperatorIDs is the static allow-list; every alert goes to each of them.
	OperatorIDs []int64 `koanf:"operator_ids" validate:"required,min=1,dive,ne=0"`

	// TelegramToken enables the bot transport. Empty means alerts are logged only.
	TelegramToken              string `koanf:"telegram_token"`
	TelegramAPIURL             string `koanf:"telegram_api_url" validate:"required,url"`
	TelegramPollTimeoutSeconds int    `koanf:"telegram_poll_timeout_seconds" validate:"gte=0,lte=600"`

	// HTTPPort is the admin API port, 0 disables it.
	HTTPPort int `koanf:"http_port" validate:"gte=0,lt=65536"`

	SessionCacheSize int `koanf:"session_cache_size" validate:"required,gte=1"`
}

// DEFAULT_APP_CONFIG defines the defaults every other source overrides.
// OperatorIDs has no default and must be supplied.
var DEFAULT_APP_CONFIG = AppConfig{
	Env:                        "prod",
	LogLevel:                   "info",
	CheckIntervalMinutes:       3,
	FirstCheckDelaySeconds:     10,
	CheckWorkers:               4,
	AuthorityEndpoints:         []string{"180.131.144.144", "180.131.145.145"},
	AuthorityScheme:            "http",
	PerEndpointTimeoutSeconds:  10,
	TelegramAPIURL:             "https://api.telegram.org",
	TelegramPollTimeoutSeconds: 30,
	HTTPPort:                   8080,
	SessionCacheSize:           1024,
}

// CheckInterval returns the period between monitoring cycles.
func (c *AppConfig) CheckInterval() time.Duration {
	return time.Duration(c.CheckIntervalMinutes) * time.Minute
}

// FirstCheckDelay returns the wait before the first cycle after startup.
func (c *AppConfig) FirstCheckDelay() time.Duration {
	return time.Duration(c.FirstCheckDelaySeconds) * time.Second
}

// PerEndpointTimeout bounds a single authority request.
func (c *AppConfig) PerEndpointTimeout() time.Duration {
	return time.Duration(c.PerEndpointTimeoutSeconds) * time.Second
}

func (c *AppConfig) TelegramPollTimeout() time.Duration {
	return time.Duration(c.TelegramPollTimeoutSeconds) * time.Second
}

// IsOperator reports whether id is on the allow-list.
func (c *AppConfig) IsOperator(id int64) bool {
	for _, op := range c.OperatorIDs {
		if op == id {
			return true
		}
	}
	return false
}

var hostnameRE = regexp.MustCompile(`^([a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?\.)*[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?$`)

// validEndpoint accepts an IP address or hostname, optionally followed by a port.
func validEndpoint(fl validator.FieldLevel) bool {
	addr := strings.ToLower(strings.TrimSpace(fl.Field().String()))
	if addr == "" {
		return false
	}
	host := addr
	if h, port, err := net.SplitHostPort(addr); err == nil {
		portNum, err := strconv.ParseUint(port, 10, 16)
		if err != nil || portNum == 0 {
			return false
		}
		host = h
	}
	if net.ParseIP(host) != nil {
		return true
	}
	if len(host) > 253 {
		return false
	}
	return hostnameRE.MatchString(host)
}

// envLoader loads environment variables with the prefix "WATCH_".
// Values containing spaces or commas become lists.
var envLoader = func(k *koanf.Koanf) error {
	return k.Load(env.Provider(".", env.Opt{
		Prefix: "WATCH_",
		TransformFunc: func(key, value string) (string, any) {
			key = strings.ToLower(strings.TrimPrefix(key, "WATCH_"))
			value = strings.TrimSpace(value)

			if value == "" {
				return key, value
			}

			if strings.Contains(value, " ") || strings.Contains(value, ",") {
				parts := strings.FieldsFunc(value, func(r rune) bool {
					return r == ' ' || r == ','
				})
				return key, parts
			}

			return key, value
		},
	}), nil)
}

var defaultLoader = func(k *koanf.Koanf) error {
	return k.Load(structs.Provider(DEFAULT_APP_CONFIG, "koanf"), nil)
}

// fileLoader merges a YAML config file when a path is given.
var fileLoader = func(k *koanf.Koanf, path string) error {
	if path == "" {
		return nil
	}
	return k.Load(file.Provider(path), yaml.Parser())
}

var registerValidation = func(v *validator.Validate) error {
	return v.RegisterValidation("endpoint", validEndpoint)
}

// Load merges defaults, the optional YAML file at path and the environment,
// then validates the result. Environment values win over the file.
func Load(path string) (*AppConfig, error) {
	k := koanf.New(".")

	err := defaultLoader(k)
	if err != nil {
		return nil, fmt.Errorf("error loading default config: %w", err)
	}

	err = fileLoader(k, path)
	if err != nil {
		return nil, fmt.Errorf("error loading config file %s: %w", path, err)
	}

	err = envLoader(k)
	if err != nil {
		return nil, fmt.Errorf("error loading env: %w", err)
	}

	var cfg AppConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	err = registerValidation(validate)
	if err != nil {
		return nil, fmt.Errorf("error registering validation: %w", err)
	}

	err = validate.Struct(&cfg)
	if err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	return &cfg, nil
}
