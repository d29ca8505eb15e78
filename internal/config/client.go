package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Способы определения местоположения клиента
const (
	LocatorStatic = "static"
	LocatorIP     = "ip"
)

// ClientConfig - настройки терминального клиента
type ClientConfig struct {
	ServerURL        string        `mapstructure:"server_url"`
	Locator          string        `mapstructure:"locator"`
	Lat              float64       `mapstructure:"lat"`
	Lng              float64       `mapstructure:"lng"`
	IPLocatorURL     string        `mapstructure:"ip_locator_url"`
	NotifyWebhookURL string        `mapstructure:"notify_webhook_url"`
	LogFile          string        `mapstructure:"log_file"`
	LogLevel         string        `mapstructure:"log_level"`
	ToastTTL         time.Duration `mapstructure:"toast_ttl"`
	KeyringDir       string        `mapstructure:"keyring_dir"`
}

// DefaultClientConfigPath returns $XDG_CONFIG_HOME/alertmap/config.yaml
func DefaultClientConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(dir, "alertmap", "config.yaml")
}

func clientDataDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "."
	}
	return filepath.Join(dir, "alertmap")
}

// LoadClient reads the client configuration from path (missing file is
// fine) and ALERTMAP_* environment variables, which take precedence.
func LoadClient(path string) (*ClientConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetEnvPrefix("alertmap")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	dataDir := clientDataDir()
	v.SetDefault("server_url", "http://localhost:8080")
	v.SetDefault("locator", LocatorIP)
	v.SetDefault("lat", 0.0)
	v.SetDefault("lng", 0.0)
	v.SetDefault("ip_locator_url", "")
	v.SetDefault("notify_webhook_url", "")
	v.SetDefault("log_file", filepath.Join(dataDir, "client.log"))
	v.SetDefault("log_level", "info")
	v.SetDefault("toast_ttl", 5*time.Second)
	v.SetDefault("keyring_dir", filepath.Join(dataDir, "keyring"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		var pathErr *os.PathError
		if !errors.As(err, &notFound) && !errors.As(err, &pathErr) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := &ClientConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *ClientConfig) Validate() error {
	if c.ServerURL == "" {
		return errors.New("server_url must be set")
	}
	switch c.Locator {
	case LocatorStatic:
		if c.Lat < -90 || c.Lat > 90 || c.Lng < -180 || c.Lng > 180 {
			return fmt.Errorf("static location %f, %f out of range", c.Lat, c.Lng)
		}
	case LocatorIP:
	default:
		return fmt.Errorf("unknown locator %q", c.Locator)
	}
	if c.ToastTTL <= 0 {
		return fmt.Errorf("toast_ttl must be positive, got %s", c.ToastTTL)
	}
	return nil
}
