package config

import "time"

// Config holds client configuration values.
type Config struct {
	// APIBaseURL is the base URL of the REST API, e.g. "https://chat.example.com/api".
	APIBaseURL string `mapstructure:"api_base_url" yaml:"api_base_url"`
	// SocketURL is the push transport endpoint, e.g. "wss://chat.example.com/socket".
	// When empty it is derived from APIBaseURL by trimming the "/api" suffix.
	SocketURL        string        `mapstructure:"socket_url" yaml:"socket_url"`
	HTTPTimeout      time.Duration `mapstructure:"http_timeout" yaml:"http_timeout"`
	HandshakeTimeout time.Duration `mapstructure:"handshake_timeout" yaml:"handshake_timeout"`
	// DebugAddr serves /healthz and /metrics. Empty disables the debug server.
	DebugAddr string `mapstructure:"debug_addr" yaml:"debug_addr"`
	// NotificationsDB is the sqlite path for the notification journal.
	// Empty keeps notifications in memory only.
	NotificationsDB string `mapstructure:"notifications_db" yaml:"notifications_db"`
	LogLevel        string `mapstructure:"log_level" yaml:"log_level"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		APIBaseURL:       "http://localhost:4000/api",
		HTTPTimeout:      10 * time.Second,
		HandshakeTimeout: 10 * time.Second,
		DebugAddr:        "",
		NotificationsDB:  "",
		LogLevel:         "info",
	}
}

// PushURL resolves the socket endpoint, deriving it from the API base when unset.
func (c Config) PushURL() string {
	if c.SocketURL != "" {
		return c.SocketURL
	}
	base := c.APIBaseURL
	if len(base) > 4 && base[len(base)-4:] == "/api" {
		base = base[:len(base)-4]
	}
	return base + "/socket"
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.APIBaseURL != "" {
		c.APIBaseURL = other.APIBaseURL
	}
	if other.SocketURL != "" {
		c.SocketURL = other.SocketURL
	}
	if other.HTTPTimeout != 0 {
		c.HTTPTimeout = other.HTTPTimeout
	}
	if other.HandshakeTimeout != 0 {
		c.HandshakeTimeout = other.HandshakeTimeout
	}
	if other.DebugAddr != "" {
		c.DebugAddr = other.DebugAddr
	}
	if other.NotificationsDB != "" {
		c.NotificationsDB = other.NotificationsDB
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
}
