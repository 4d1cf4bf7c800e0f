package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/familylists/realtime/pkg/observability/logger"
)

// Loader defines the interface for loading configuration
type Loader interface {
	Load() (*Config, error)
	Validate(*Config) error
}

// ViperLoader implements Loader using Viper for configuration management
type ViperLoader struct {
	configFile string
	envPrefix  string
}

// NewViperLoader creates a new ViperLoader
// configFile: path to configuration file (optional, can be empty)
// envPrefix: prefix for environment variables (e.g., "FAMILYLISTS")
func NewViperLoader(configFile, envPrefix string) *ViperLoader {
	return &ViperLoader{
		configFile: configFile,
		envPrefix:  envPrefix,
	}
}

// Load loads configuration with precedence: ENV > file > defaults
func (l *ViperLoader) Load() (*Config, error) {
	v := viper.New()

	defaults := DefaultConfig()
	l.setDefaults(v, defaults)

	if l.configFile != "" {
		v.SetConfigFile(l.configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", l.configFile, err)
		}
	}

	// Environment variables override file config through explicit bindings.
	v.SetEnvPrefix(l.envPrefix)
	l.bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := l.Validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// bindEnvVars explicitly binds environment variables for nested structs
func (l *ViperLoader) bindEnvVars(v *viper.Viper) {
	// Service
	v.BindEnv("service.name", l.prefixedEnv("SERVICE_NAME"))
	v.BindEnv("service.environment", l.prefixedEnv("SERVICE_ENVIRONMENT"), l.prefixedEnv("ENVIRONMENT"))

	// HTTP
	v.BindEnv("http.port", l.prefixedEnv("HTTP_PORT"))
	v.BindEnv("http.read_timeout", l.prefixedEnv("HTTP_READ_TIMEOUT"))
	v.BindEnv("http.write_timeout", l.prefixedEnv("HTTP_WRITE_TIMEOUT"))
	v.BindEnv("http.idle_timeout", l.prefixedEnv("HTTP_IDLE_TIMEOUT"))

	// Management
	v.BindEnv("management.enabled", l.prefixedEnv("MGMT_ENABLED"))
	v.BindEnv("management.port", l.prefixedEnv("MGMT_PORT"))

	// SSE
	v.BindEnv("sse.mailbox_size", l.prefixedEnv("SSE_MAILBOX_SIZE"))
	v.BindEnv("sse.max_subscribers", l.prefixedEnv("SSE_MAX_SUBSCRIBERS"))
	v.BindEnv("sse.heartbeat_interval", l.prefixedEnv("SSE_HEARTBEAT_INTERVAL"))

	// Notify
	v.BindEnv("notify.initial_delay", l.prefixedEnv("NOTIFY_INITIAL_DELAY"))
	v.BindEnv("notify.extend_delay", l.prefixedEnv("NOTIFY_EXTEND_DELAY"))
	v.BindEnv("notify.max_delay", l.prefixedEnv("NOTIFY_MAX_DELAY"))
	v.BindEnv("notify.max_events", l.prefixedEnv("NOTIFY_MAX_EVENTS"))

	// Preferences
	v.BindEnv("preferences.store", l.prefixedEnv("PREFERENCES_STORE"))
	v.BindEnv("preferences.redis_url", l.prefixedEnv("PREFERENCES_REDIS_URL"))
	v.BindEnv("preferences.redis_prefix", l.prefixedEnv("PREFERENCES_REDIS_PREFIX"))
	v.BindEnv("preferences.operation_timeout", l.prefixedEnv("PREFERENCES_OPERATION_TIMEOUT"))

	// Push
	v.BindEnv("push.enabled", l.prefixedEnv("PUSH_ENABLED"))
	v.BindEnv("push.relay_url", l.prefixedEnv("PUSH_RELAY_URL"))
	v.BindEnv("push.auth_token", l.prefixedEnv("PUSH_AUTH_TOKEN"))
	v.BindEnv("push.operation_timeout", l.prefixedEnv("PUSH_OPERATION_TIMEOUT"))

	// Rate limit
	v.BindEnv("ratelimit.enabled", l.prefixedEnv("RATE_LIMIT_ENABLED"))
	v.BindEnv("ratelimit.requests_per_second", l.prefixedEnv("RATE_LIMIT_REQUESTS_PER_SECOND"))
	v.BindEnv("ratelimit.burst", l.prefixedEnv("RATE_LIMIT_BURST"))

	// Log
	v.BindEnv("log.level", l.prefixedEnv("LOG_LEVEL"))
	v.BindEnv("log.format", l.prefixedEnv("LOG_FORMAT"))
}

func (l *ViperLoader) prefixedEnv(suffix string) string {
	prefix := strings.TrimSpace(l.envPrefix)
	if prefix == "" {
		prefix = "FAMILYLISTS"
	}
	return fmt.Sprintf("%s_%s", strings.ToUpper(prefix), suffix)
}

// setDefaults sets default values in Viper from the default config
func (l *ViperLoader) setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("service.name", cfg.Service.Name)
	v.SetDefault("service.environment", cfg.Service.Environment)

	v.SetDefault("http.port", cfg.HTTP.Port)
	v.SetDefault("http.read_timeout", cfg.HTTP.ReadTimeout)
	v.SetDefault("http.write_timeout", cfg.HTTP.WriteTimeout)
	v.SetDefault("http.idle_timeout", cfg.HTTP.IdleTimeout)

	v.SetDefault("management.enabled", cfg.Management.Enabled)
	v.SetDefault("management.port", cfg.Management.Port)

	v.SetDefault("sse.mailbox_size", cfg.SSE.MailboxSize)
	v.SetDefault("sse.max_subscribers", cfg.SSE.MaxSubscribers)
	v.SetDefault("sse.heartbeat_interval", cfg.SSE.HeartbeatInterval)

	v.SetDefault("notify.initial_delay", cfg.Notify.InitialDelay)
	v.SetDefault("notify.extend_delay", cfg.Notify.ExtendDelay)
	v.SetDefault("notify.max_delay", cfg.Notify.MaxDelay)
	v.SetDefault("notify.max_events", cfg.Notify.MaxEvents)

	v.SetDefault("preferences.store", cfg.Preferences.Store)
	v.SetDefault("preferences.redis_url", cfg.Preferences.RedisURL)
	v.SetDefault("preferences.redis_prefix", cfg.Preferences.RedisPrefix)
	v.SetDefault("preferences.operation_timeout", cfg.Preferences.OperationTimeout)

	v.SetDefault("push.enabled", cfg.Push.Enabled)
	v.SetDefault("push.relay_url", cfg.Push.RelayURL)
	v.SetDefault("push.auth_token", cfg.Push.AuthToken)
	v.SetDefault("push.operation_timeout", cfg.Push.OperationTimeout)

	v.SetDefault("ratelimit.enabled", cfg.RateLimit.Enabled)
	v.SetDefault("ratelimit.requests_per_second", cfg.RateLimit.RequestsPerSecond)
	v.SetDefault("ratelimit.burst", cfg.RateLimit.Burst)

	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
}

// Validate validates the configuration and returns detailed errors
func (l *ViperLoader) Validate(cfg *Config) error {
	var errs []error

	if strings.TrimSpace(cfg.Service.Name) == "" {
		errs = append(errs, errors.New("service.name must not be empty"))
	}

	if cfg.HTTP.Port < 1 || cfg.HTTP.Port > 65535 {
		errs = append(errs, fmt.Errorf("http.port must be between 1 and 65535, got %d", cfg.HTTP.Port))
	}
	if cfg.Management.Enabled {
		if cfg.Management.Port < 1 || cfg.Management.Port > 65535 {
			errs = append(errs, fmt.Errorf("management.port must be between 1 and 65535, got %d", cfg.Management.Port))
		}
		if cfg.Management.Port == cfg.HTTP.Port {
			errs = append(errs, fmt.Errorf("management.port must differ from http.port (%d)", cfg.HTTP.Port))
		}
	}

	if cfg.SSE.MailboxSize < 0 {
		errs = append(errs, fmt.Errorf("sse.mailbox_size must not be negative, got %d", cfg.SSE.MailboxSize))
	}
	if cfg.SSE.MaxSubscribers < 0 {
		errs = append(errs, fmt.Errorf("sse.max_subscribers must not be negative, got %d", cfg.SSE.MaxSubscribers))
	}

	if cfg.Notify.InitialDelay < 0 || cfg.Notify.ExtendDelay < 0 || cfg.Notify.MaxDelay < 0 {
		errs = append(errs, errors.New("notify delays must not be negative"))
	}
	if cfg.Notify.MaxDelay > 0 && cfg.Notify.InitialDelay > cfg.Notify.MaxDelay {
		errs = append(errs, fmt.Errorf("notify.initial_delay (%s) must not exceed notify.max_delay (%s)",
			cfg.Notify.InitialDelay, cfg.Notify.MaxDelay))
	}
	if cfg.Notify.MaxEvents < 0 {
		errs = append(errs, fmt.Errorf("notify.max_events must not be negative, got %d", cfg.Notify.MaxEvents))
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Preferences.Store)) {
	case PreferenceStoreMemory:
	case PreferenceStoreRedis:
		if strings.TrimSpace(cfg.Preferences.RedisURL) == "" {
			errs = append(errs, errors.New("preferences.redis_url is required when preferences.store is redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid preferences.store: %s (must be one of: [%s %s])",
			cfg.Preferences.Store, PreferenceStoreMemory, PreferenceStoreRedis))
	}

	if cfg.Push.Enabled && strings.TrimSpace(cfg.Push.RelayURL) == "" {
		errs = append(errs, errors.New("push.relay_url is required when push is enabled"))
	}

	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.RequestsPerSecond <= 0 {
			errs = append(errs, fmt.Errorf("ratelimit.requests_per_second must be positive, got %g", cfg.RateLimit.RequestsPerSecond))
		}
		if cfg.RateLimit.Burst <= 0 {
			errs = append(errs, fmt.Errorf("ratelimit.burst must be positive, got %d", cfg.RateLimit.Burst))
		}
	}

	if _, err := logger.ParseLogLevel(cfg.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if _, err := logger.ParseLogFormat(cfg.Log.Format); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}
