package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/travigo/shuttletrack/pkg/util"
	"gopkg.in/yaml.v3"
)

// Settings are the local options of the tracking client. The backend
// address itself comes from the remote config document.
type Settings struct {
	ConfigURL string `yaml:"config_url"`
	Scheme    string `yaml:"scheme"`

	RefreshInterval   time.Duration `yaml:"refresh_interval"`
	ReconnectInterval time.Duration `yaml:"reconnect_interval"`
	RequestTimeout    time.Duration `yaml:"request_timeout"`

	Listen string `yaml:"listen"`

	RedisAddress        string        `yaml:"redis_address"`
	RedisPassword       string        `yaml:"redis_password"`
	RedisDatabase       int           `yaml:"redis_database"`
	StopCacheExpiration time.Duration `yaml:"stop_cache_expiration"`

	// Positions waiting on the redis location queue before new ones are
	// dropped, 0 disables publishing positions
	LocationQueueLimit int `yaml:"location_queue_limit"`
}

func DefaultSettings() Settings {
	return Settings{
		ConfigURL:           "http://localhost:8000/config",
		Scheme:              "http",
		RefreshInterval:     10 * time.Second,
		ReconnectInterval:   5 * time.Second,
		RequestTimeout:      10 * time.Second,
		Listen:              ":8080",
		StopCacheExpiration: 24 * time.Hour,
		LocationQueueLimit:  1000,
	}
}

// LoadSettings layers defaults, the optional YAML file at path and then
// SHUTTLETRACK_* environment variables (a local .env file is read first).
func LoadSettings(path string) (Settings, error) {
	settings := DefaultSettings()

	_ = godotenv.Load()

	if path != "" {
		contents, err := os.ReadFile(path)
		if err != nil {
			return settings, fmt.Errorf("read settings file: %w", err)
		}
		if err := yaml.Unmarshal(contents, &settings); err != nil {
			return settings, fmt.Errorf("parse settings file %s: %w", path, err)
		}
	}

	if err := settings.applyEnvironment(util.GetEnvironmentVariables()); err != nil {
		return settings, err
	}

	return settings, settings.Validate()
}

func (s *Settings) applyEnvironment(env map[string]string) error {
	util.EnvString(env, "SHUTTLETRACK_CONFIG_URL", &s.ConfigURL)
	util.EnvString(env, "SHUTTLETRACK_SCHEME", &s.Scheme)
	util.EnvString(env, "SHUTTLETRACK_LISTEN", &s.Listen)
	util.EnvString(env, "SHUTTLETRACK_REDIS_ADDRESS", &s.RedisAddress)
	util.EnvString(env, "SHUTTLETRACK_REDIS_PASSWORD", &s.RedisPassword)

	if err := util.EnvInt(env, "SHUTTLETRACK_REDIS_DATABASE", &s.RedisDatabase); err != nil {
		return err
	}
	if err := util.EnvInt(env, "SHUTTLETRACK_LOCATION_QUEUE_LIMIT", &s.LocationQueueLimit); err != nil {
		return err
	}
	if err := util.EnvDuration(env, "SHUTTLETRACK_REFRESH_INTERVAL", &s.RefreshInterval); err != nil {
		return err
	}
	if err := util.EnvDuration(env, "SHUTTLETRACK_RECONNECT_INTERVAL", &s.ReconnectInterval); err != nil {
		return err
	}
	if err := util.EnvDuration(env, "SHUTTLETRACK_REQUEST_TIMEOUT", &s.RequestTimeout); err != nil {
		return err
	}

	return util.EnvDuration(env, "SHUTTLETRACK_STOP_CACHE_EXPIRATION", &s.StopCacheExpiration)
}

func (s Settings) Validate() error {
	if s.ConfigURL == "" {
		return fmt.Errorf("config url must be set")
	}
	if s.Scheme != "http" && s.Scheme != "https" {
		return fmt.Errorf("invalid scheme %q", s.Scheme)
	}
	if s.RefreshInterval <= 0 || s.ReconnectInterval <= 0 || s.RequestTimeout <= 0 {
		return fmt.Errorf("intervals and timeouts must be positive")
	}
	if s.LocationQueueLimit < 0 {
		return fmt.Errorf("location queue limit must not be negative")
	}

	return nil
}

func (s Settings) RedisEnabled() bool {
	return s.RedisAddress != ""
}
