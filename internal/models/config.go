package models

import "time"

// Config represents the application configuration
type Config struct {
	LogLevel string         `yaml:"logLevel"`
	Ministry string         `yaml:"ministry"`
	Feed     FeedConfig     `yaml:"feed"`
	Server   ServerConfig   `yaml:"server"`
	Email    EmailConfig    `yaml:"email"`
	WhatsApp WhatsAppConfig `yaml:"whatsapp"`
	Telegram TelegramConfig `yaml:"telegram"`
}

// FeedConfig points at the devotions.json file served to the widget
type FeedConfig struct {
	Path       string `yaml:"path"`
	MaxEntries int    `yaml:"maxEntries"`
}

// ServerConfig represents the HTTP server and webhook configuration
type ServerConfig struct {
	Addr          string `yaml:"addr"`
	PageURL       string `yaml:"pageURL"`
	WebhookSecret string `yaml:"webhookSecret"`
}

// EmailConfig represents IMAP email configuration
type EmailConfig struct {
	Enabled     bool          `yaml:"enabled"`
	Imap        string        `yaml:"imap"`
	Login       string        `yaml:"login"`
	Password    string        `yaml:"password"`
	RefreshTime time.Duration `yaml:"refreshTime"`
	MailBox     string        `yaml:"mailbox"`
	AllowedFrom []string      `yaml:"allowedFrom"`
	MaxAge      time.Duration `yaml:"maxAge"`
}

// WhatsAppConfig represents the public channel page scraped for new posts
type WhatsAppConfig struct {
	Enabled     bool          `yaml:"enabled"`
	ChannelURL  string        `yaml:"channelURL"`
	Selector    string        `yaml:"selector"`
	RefreshTime time.Duration `yaml:"refreshTime"`
}

// TelegramConfig represents the bot used to follow channel posts
type TelegramConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Token    string   `yaml:"token"`
	Channels []string `yaml:"channels"`
}
