package config

import (
	"errors"
	"fmt"
	"runtime"
	"time"
)

// Config holds server configuration values.
//
// LogFormat is "console" or "json". MaxMessageBytes caps one inbound
// WebSocket frame. EventCapacity bounds each subscriber's event buffer and
// OutboundBuffer the frames queued per connection ahead of the socket writer.
// MessageRateLimit is chat messages per session per minute (0 disables it).
// An empty JournalPath disables the session journal.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`
	LogFormat         string        `mapstructure:"log_format" yaml:"log_format"`
	StaticDir         string        `mapstructure:"static_dir" yaml:"static_dir"`
	MaxMessageBytes   int64         `mapstructure:"max_message_bytes" yaml:"max_message_bytes"`
	EventCapacity     int           `mapstructure:"event_capacity" yaml:"event_capacity"`
	OutboundBuffer    int           `mapstructure:"outbound_buffer" yaml:"outbound_buffer"`
	MessageRateLimit  int           `mapstructure:"message_rate_limit" yaml:"message_rate_limit"`
	WorkerLimit       int           `mapstructure:"worker_limit" yaml:"worker_limit"`
	JournalPath       string        `mapstructure:"journal_path" yaml:"journal_path"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		LogLevel:          "info",
		LogFormat:         "console",
		StaticDir:         "www",
		MaxMessageBytes:   64 << 10,
		EventCapacity:     10,
		OutboundBuffer:    32,
		MessageRateLimit:  120,
		WorkerLimit:       runtime.NumCPU(),
		JournalPath:       "chathub.db",
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.LogFormat != "" {
		c.LogFormat = other.LogFormat
	}
	if other.StaticDir != "" {
		c.StaticDir = other.StaticDir
	}
	if other.MaxMessageBytes != 0 {
		c.MaxMessageBytes = other.MaxMessageBytes
	}
	if other.EventCapacity != 0 {
		c.EventCapacity = other.EventCapacity
	}
	if other.OutboundBuffer != 0 {
		c.OutboundBuffer = other.OutboundBuffer
	}
	if other.MessageRateLimit != 0 {
		c.MessageRateLimit = other.MessageRateLimit
	}
	if other.WorkerLimit != 0 {
		c.WorkerLimit = other.WorkerLimit
	}
	if other.JournalPath != "" {
		c.JournalPath = other.JournalPath
	}
}

// Validate rejects values the server cannot run with.
func (c Config) Validate() error {
	if c.Addr == "" {
		return errors.New("addr is required")
	}
	if c.MaxMessageBytes <= 0 {
		return fmt.Errorf("max_message_bytes must be positive, got %d", c.MaxMessageBytes)
	}
	if c.EventCapacity <= 0 {
		return fmt.Errorf("event_capacity must be positive, got %d", c.EventCapacity)
	}
	if c.OutboundBuffer <= 0 {
		return fmt.Errorf("outbound_buffer must be positive, got %d", c.OutboundBuffer)
	}
	if c.MessageRateLimit < 0 {
		return fmt.Errorf("message_rate_limit must not be negative, got %d", c.MessageRateLimit)
	}
	return nil
}
