package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"devotion-feed/internal/models"

	"gopkg.in/yaml.v2"
)

// ErrInvalid is wrapped by every validation failure returned from Load
var ErrInvalid = errors.New("invalid configuration")

const (
	DefaultFeedPath         = "devotions.json"
	DefaultMaxEntries       = 30
	DefaultAddr             = ":8080"
	DefaultMailBox          = "INBOX"
	DefaultEmailRefresh     = 5 * time.Minute
	DefaultEmailMaxAge      = 48 * time.Hour
	DefaultWhatsAppRefresh  = 15 * time.Minute
	DefaultWhatsAppSelector = "span.selectable-text"
	DefaultMinistry         = "Dove Ministries Africa"
)

// Load reads the configuration from the specified YAML file, fills in defaults and validates it
func Load(filepath string) (*models.Config, error) {
	configFile, err := os.ReadFile(filepath)
	if err != nil {
		return nil, err
	}

	var config models.Config
	if err := yaml.Unmarshal(configFile, &config); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filepath, err)
	}

	ApplyDefaults(&config)
	if err := Validate(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// ApplyDefaults fills every unset field that has a sensible default
func ApplyDefaults(cfg *models.Config) {
	if cfg.Ministry == "" {
		cfg.Ministry = DefaultMinistry
	}
	if cfg.Feed.Path == "" {
		cfg.Feed.Path = DefaultFeedPath
	}
	if cfg.Feed.MaxEntries <= 0 {
		cfg.Feed.MaxEntries = DefaultMaxEntries
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = DefaultAddr
	}
	if cfg.Email.MailBox == "" {
		cfg.Email.MailBox = DefaultMailBox
	}
	if cfg.Email.RefreshTime <= 0 {
		cfg.Email.RefreshTime = DefaultEmailRefresh
	}
	if cfg.Email.MaxAge <= 0 {
		cfg.Email.MaxAge = DefaultEmailMaxAge
	}
	if cfg.WhatsApp.RefreshTime <= 0 {
		cfg.WhatsApp.RefreshTime = DefaultWhatsAppRefresh
	}
	if cfg.WhatsApp.Selector == "" {
		cfg.WhatsApp.Selector = DefaultWhatsAppSelector
	}
}

// Validate checks that every enabled source has what it needs to run
func Validate(cfg *models.Config) error {
	if cfg.Email.Enabled {
		if cfg.Email.Imap == "" || cfg.Email.Login == "" {
			return fmt.Errorf("%w: email source needs imap and login", ErrInvalid)
		}
	}
	if cfg.WhatsApp.Enabled && cfg.WhatsApp.ChannelURL == "" {
		return fmt.Errorf("%w: whatsapp source needs channelURL", ErrInvalid)
	}
	if cfg.Telegram.Enabled {
		if cfg.Telegram.Token == "" {
			return fmt.Errorf("%w: telegram source needs token", ErrInvalid)
		}
		if len(cfg.Telegram.Channels) == 0 {
			return fmt.Errorf("%w: telegram source needs at least one channel", ErrInvalid)
		}
	}
	return nil
}
