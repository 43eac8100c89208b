package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Transport modes for the collector channel.
const (
	ModeBeacon    = "beacon"
	ModeKeepalive = "keepalive"
)

type Config struct {
	Collector struct {
		URL     string
		Timeout time.Duration
	}
	Transport struct {
		Mode       string
		BufferSize int
	}
	Scroll struct {
		Debounce time.Duration
	}
	Server struct {
		Address string
	}
	Storage struct {
		Path       string
		TabTTL     time.Duration
		SweepEvery time.Duration
	}
	Log struct {
		Level string
	}
}

// Load reads configuration from the environment, falling back to defaults.
func Load() Config {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("collector.url", "https://admin.visionui.app/api/track")
	v.SetDefault("collector.timeout", "10s")
	v.SetDefault("transport.mode", ModeBeacon)
	v.SetDefault("transport.buffer_size", 64)
	v.SetDefault("scroll.debounce", "200ms")
	v.SetDefault("server.address", "127.0.0.1:8123")
	v.SetDefault("storage.path", "")
	v.SetDefault("storage.tab_ttl", "30m")
	v.SetDefault("storage.sweep_every", "1m")
	v.SetDefault("log.level", "info")

	v.BindEnv("collector.url", "BEACON_COLLECTOR_URL")
	v.BindEnv("collector.timeout", "BEACON_COLLECTOR_TIMEOUT")
	v.BindEnv("transport.mode", "BEACON_TRANSPORT")
	v.BindEnv("transport.buffer_size", "BEACON_BUFFER_SIZE")
	v.BindEnv("scroll.debounce", "BEACON_SCROLL_DEBOUNCE")
	v.BindEnv("server.address", "BEACON_ADDRESS")
	v.BindEnv("storage.path", "BEACON_DB_PATH")
	v.BindEnv("storage.tab_ttl", "BEACON_TAB_TTL")
	v.BindEnv("storage.sweep_every", "BEACON_SWEEP_EVERY")
	v.BindEnv("log.level", "LOG_LEVEL")

	var c Config
	c.Collector.URL = v.GetString("collector.url")
	c.Collector.Timeout = v.GetDuration("collector.timeout")
	c.Transport.Mode = normalizeMode(v.GetString("transport.mode"))
	c.Transport.BufferSize = v.GetInt("transport.buffer_size")
	c.Scroll.Debounce = v.GetDuration("scroll.debounce")
	c.Server.Address = v.GetString("server.address")
	c.Storage.Path = v.GetString("storage.path")
	c.Storage.TabTTL = v.GetDuration("storage.tab_ttl")
	c.Storage.SweepEvery = v.GetDuration("storage.sweep_every")
	c.Log.Level = v.GetString("log.level")

	if c.Transport.BufferSize <= 0 {
		c.Transport.BufferSize = 64
	}
	return c
}

// Unknown modes fall back to the beacon channel, which is always preferred.
func normalizeMode(mode string) string {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case ModeKeepalive:
		return ModeKeepalive
	default:
		return ModeBeacon
	}
}
