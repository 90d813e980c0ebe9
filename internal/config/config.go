package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

const DefaultPort = 5001

type ReceiverConfig struct {
	Addr           string        `toml:"addr"`
	DataDir        string        `toml:"data_dir"`
	MaxPhotoBytes  uint32        `toml:"max_photo_bytes"`
	ReadTimeoutSec int           `toml:"read_timeout_sec"`
	Gallery        GalleryConfig `toml:"gallery"`
}

type GalleryConfig struct {
	Addr        string   `toml:"addr"`
	CorsOrigins []string `toml:"cors_origins"`
}

type SenderConfig struct {
	Host           string `toml:"host"`
	Port           int    `toml:"port"`
	MaxWidth       int    `toml:"max_width"`
	JpegQuality    int    `toml:"jpeg_quality"`
	DialTimeoutSec int    `toml:"dial_timeout_sec"`
}

func LoadReceiverConfig(path string) (ReceiverConfig, error) {
	var cfg ReceiverConfig
	if err := loadToml(path, &cfg); err != nil {
		return ReceiverConfig{}, err
	}
	applyReceiverDefaults(&cfg)
	if err := ValidateReceiverConfig(cfg); err != nil {
		return ReceiverConfig{}, err
	}
	return cfg, nil
}

// DefaultReceiverConfig is the configuration used when no config file is
// present: listen on all interfaces, store under ./data.
func DefaultReceiverConfig() ReceiverConfig {
	var cfg ReceiverConfig
	applyReceiverDefaults(&cfg)
	return cfg
}

func LoadSenderConfig(path string) (SenderConfig, error) {
	var cfg SenderConfig
	if err := loadToml(path, &cfg); err != nil {
		return SenderConfig{}, err
	}
	applySenderDefaults(&cfg)
	if err := ValidateSenderConfig(cfg); err != nil {
		return SenderConfig{}, err
	}
	return cfg, nil
}

func DefaultSenderConfig() SenderConfig {
	var cfg SenderConfig
	applySenderDefaults(&cfg)
	return cfg
}

func applyReceiverDefaults(cfg *ReceiverConfig) {
	if cfg.Addr == "" {
		cfg.Addr = fmt.Sprintf(":%d", DefaultPort)
	}
	if cfg.DataDir == "" {
		cfg.DataDir = "data"
	}
	if cfg.MaxPhotoBytes == 0 {
		cfg.MaxPhotoBytes = 32 * 1024 * 1024
	}
	if cfg.ReadTimeoutSec == 0 {
		cfg.ReadTimeoutSec = 30
	}
	if cfg.Gallery.Addr == "" {
		cfg.Gallery.Addr = ":8080"
	}
}

func applySenderDefaults(cfg *SenderConfig) {
	if cfg.Port <= 0 || cfg.Port > 65535 {
		cfg.Port = DefaultPort
	}
	if cfg.MaxWidth == 0 {
		cfg.MaxWidth = 1280
	}
	if cfg.JpegQuality == 0 {
		cfg.JpegQuality = 80
	}
	if cfg.DialTimeoutSec == 0 {
		cfg.DialTimeoutSec = 10
	}
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

func ValidateReceiverConfig(cfg ReceiverConfig) error {
	if strings.TrimSpace(cfg.Addr) == "" {
		return fmt.Errorf("receiver config missing addr")
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		return fmt.Errorf("receiver config missing data_dir")
	}
	if cfg.ReadTimeoutSec < 0 {
		return fmt.Errorf("receiver config read_timeout_sec must not be negative")
	}
	return nil
}

func ValidateSenderConfig(cfg SenderConfig) error {
	if cfg.MaxWidth <= 0 {
		return fmt.Errorf("sender config max_width must be positive")
	}
	if cfg.JpegQuality < 1 || cfg.JpegQuality > 100 {
		return fmt.Errorf("sender config jpeg_quality must be 1-100")
	}
	return nil
}
