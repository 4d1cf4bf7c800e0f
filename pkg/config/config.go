// Package config defines and loads the service configuration with
// precedence ENV > file > defaults.
package config

import "time"

// Preference store type constants.
const (
	// PreferenceStoreMemory keeps preferences in process memory.
	PreferenceStoreMemory = "memory"
	// PreferenceStoreRedis reads preferences from a shared redis.
	PreferenceStoreRedis = "redis"
)

// Config is the root configuration for the realtime service.
type Config struct {
	Service     ServiceConfig     `mapstructure:"service"`
	HTTP        HTTPConfig        `mapstructure:"http"`
	Management  ManagementConfig  `mapstructure:"management"`
	SSE         SSEConfig         `mapstructure:"sse"`
	Notify      NotifyConfig      `mapstructure:"notify"`
	Preferences PreferencesConfig `mapstructure:"preferences"`
	Push        PushConfig        `mapstructure:"push"`
	RateLimit   RateLimitConfig   `mapstructure:"ratelimit"`
	Log         LogConfig         `mapstructure:"log"`
}

// ServiceConfig identifies the service.
type ServiceConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// HTTPConfig configures the public API server.
type HTTPConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// ManagementConfig configures the management server (metrics, health).
type ManagementConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// SSEConfig configures the broadcaster and stream endpoint.
type SSEConfig struct {
	MailboxSize       int           `mapstructure:"mailbox_size"`
	MaxSubscribers    int           `mapstructure:"max_subscribers"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
}

// NotifyConfig configures the notification batching schedule.
type NotifyConfig struct {
	InitialDelay time.Duration `mapstructure:"initial_delay"`
	ExtendDelay  time.Duration `mapstructure:"extend_delay"`
	MaxDelay     time.Duration `mapstructure:"max_delay"`
	MaxEvents    int           `mapstructure:"max_events"`
}

// PreferencesConfig selects the notification preference store.
type PreferencesConfig struct {
	Store            string        `mapstructure:"store"`
	RedisURL         string        `mapstructure:"redis_url"`
	RedisPrefix      string        `mapstructure:"redis_prefix"`
	OperationTimeout time.Duration `mapstructure:"operation_timeout"`
}

// PushConfig configures the push-relay delivery gateway.
type PushConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	RelayURL         string        `mapstructure:"relay_url"`
	AuthToken        string        `mapstructure:"auth_token"`
	OperationTimeout time.Duration `mapstructure:"operation_timeout"`
}

// RateLimitConfig bounds the internal event-publish endpoint.
type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:        "familylists-realtime",
			Environment: "development",
		},
		HTTP: HTTPConfig{
			Port:         8080,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 0, // streaming responses must not be cut off
			IdleTimeout:  120 * time.Second,
		},
		Management: ManagementConfig{
			Enabled: true,
			Port:    9090,
		},
		SSE: SSEConfig{
			MailboxSize:       100,
			MaxSubscribers:    10000,
			HeartbeatInterval: 30 * time.Second,
		},
		Notify: NotifyConfig{
			InitialDelay: 30 * time.Second,
			ExtendDelay:  10 * time.Second,
			MaxDelay:     120 * time.Second,
			MaxEvents:    15,
		},
		Preferences: PreferencesConfig{
			Store:            PreferenceStoreMemory,
			RedisPrefix:      "notify:prefs",
			OperationTimeout: 3 * time.Second,
		},
		Push: PushConfig{
			Enabled:          false,
			OperationTimeout: 10 * time.Second,
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerSecond: 100,
			Burst:             200,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}
