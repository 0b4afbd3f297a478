// Package config loads hub configuration and resolves the loopback
// hostname embedded in callback URLs, following the teacher-adjacent
// solatis-trapperkeeper's viper-backed loader shape.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds every tunable spec §5's Resource Bounds table and §4.5/4.6
// call out.
type Config struct {
	// MaxClients bounds concurrent registrations.
	MaxClients int
	// MaxPendingQueue bounds each Web client's pull-queue.
	MaxPendingQueue int
	// CallbackConcurrency bounds simultaneous outbound deliveries per
	// target client.
	CallbackConcurrency int
	// HTTPWorkers bounds the Standard/Web Profile HTTP server's worker
	// pool size.
	HTTPWorkers int
	// CallbackTimeout bounds outbound callback POSTs.
	CallbackTimeout time.Duration
	// LockfilePath overrides the Standard Profile's lockfile location;
	// empty means "resolve via lockfile.Locate".
	LockfilePath string
	// WebProfilePort is the port the Web Profile's single HTTP endpoint
	// listens on; 0 means "ask the OS."
	WebProfilePort int
}

// EnvPrefix is the environment variable prefix configuration values bind
// under (e.g. SAMPHUB_MAX_CLIENTS).
const EnvPrefix = "SAMPHUB"

// Load reads configuration from environment variables prefixed SAMPHUB_,
// configPath (if non-empty), and defaults, in that decreasing order of
// precedence.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetDefault("max_clients", 4096)
	v.SetDefault("max_pending_queue", 4096)
	v.SetDefault("callback_concurrency", 16)
	v.SetDefault("http_workers", 20)
	v.SetDefault("callback_timeout", "10s")
	v.SetDefault("lockfile_path", "")
	v.SetDefault("web_profile_port", 0)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	cfg := &Config{
		MaxClients:          v.GetInt("max_clients"),
		MaxPendingQueue:     v.GetInt("max_pending_queue"),
		CallbackConcurrency: v.GetInt("callback_concurrency"),
		HTTPWorkers:         v.GetInt("http_workers"),
		CallbackTimeout:     v.GetDuration("callback_timeout"),
		LockfilePath:        v.GetString("lockfile_path"),
		WebProfilePort:      v.GetInt("web_profile_port"),
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.MaxClients <= 0 {
		return fmt.Errorf("max_clients must be positive, got %d", cfg.MaxClients)
	}
	if cfg.MaxPendingQueue <= 0 {
		return fmt.Errorf("max_pending_queue must be positive, got %d", cfg.MaxPendingQueue)
	}
	if cfg.CallbackConcurrency <= 0 {
		return fmt.Errorf("callback_concurrency must be positive, got %d", cfg.CallbackConcurrency)
	}
	if cfg.HTTPWorkers <= 0 {
		return fmt.Errorf("http_workers must be positive, got %d", cfg.HTTPWorkers)
	}
	if cfg.CallbackTimeout <= 0 {
		return fmt.Errorf("callback_timeout must be positive, got %v", cfg.CallbackTimeout)
	}
	if cfg.WebProfilePort < 0 || cfg.WebProfilePort > 65535 {
		return fmt.Errorf("web_profile_port must be between 0 and 65535, got %d", cfg.WebProfilePort)
	}
	return nil
}
