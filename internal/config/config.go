package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all runtime configuration knobs for the hub.
type Config struct {
	HTTP struct {
		Addr         string        `mapstructure:"addr"`
		ReadTimeout  time.Duration `mapstructure:"read_timeout"`
		WriteTimeout time.Duration `mapstructure:"write_timeout"`
	} `mapstructure:"http"`
	Device struct {
		BaseURL        string        `mapstructure:"base_url"`
		RequestTimeout time.Duration `mapstructure:"request_timeout"`
	} `mapstructure:"device"`
	Storage struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"storage"`
	Auth struct {
		JWTSecret string        `mapstructure:"jwt_secret"`
		TokenTTL  time.Duration `mapstructure:"token_ttl"`
	} `mapstructure:"auth"`
	Presence struct {
		StaleTimeout  time.Duration `mapstructure:"stale_timeout"`
		SweepInterval time.Duration `mapstructure:"sweep_interval"`
	} `mapstructure:"presence"`
	Scheduler struct {
		Tick     time.Duration `mapstructure:"tick"`
		Window   time.Duration `mapstructure:"window"`
		Timezone string        `mapstructure:"timezone"`
	} `mapstructure:"scheduler"`
}

// Load reads the configuration from disk/environment using Viper.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("servopoint")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// v.ReadInConfig returns error if file missing; ignore if not found to allow env-only config
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	// a matching window wider than the tick can fire the same entry twice
	if cfg.Scheduler.Window > cfg.Scheduler.Tick {
		return nil, fmt.Errorf("scheduler window %s must not exceed tick %s", cfg.Scheduler.Window, cfg.Scheduler.Tick)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":3000")
	v.SetDefault("http.read_timeout", "15s")
	v.SetDefault("http.write_timeout", "30s")

	v.SetDefault("device.base_url", "http://192.168.4.1")
	v.SetDefault("device.request_timeout", "10s")

	v.SetDefault("storage.path", "./data/servopoint.db")

	v.SetDefault("auth.jwt_secret", "change-me-secret")
	v.SetDefault("auth.token_ttl", "12h")

	v.SetDefault("presence.stale_timeout", "20s")
	v.SetDefault("presence.sweep_interval", "20s")

	v.SetDefault("scheduler.tick", "2s")
	v.SetDefault("scheduler.window", "2s")
	v.SetDefault("scheduler.timezone", "Asia/Kolkata")
}
