package config

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// ServerConfig configures the HTTP adapter.
type ServerConfig struct {
	Host         string   `yaml:"host"`
	Port         int      `yaml:"port"`
	CORS         bool     `yaml:"cors"`
	AllowOrigins []string `yaml:"allow_origins"`
	ReadTimeout  string   `yaml:"read_timeout"`
	WriteTimeout string   `yaml:"write_timeout"`
	CacheSize    int      `yaml:"cache_size"` // 0 disables the result cache
	CacheTTL     string   `yaml:"cache_ttl"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// GetReadTimeout returns the read timeout as a duration.
func (s ServerConfig) GetReadTimeout() time.Duration {
	return parseDuration(s.ReadTimeout, 10*time.Second)
}

// GetWriteTimeout returns the write timeout as a duration.
func (s ServerConfig) GetWriteTimeout() time.Duration {
	return parseDuration(s.WriteTimeout, 15*time.Second)
}

// GetCacheTTL returns the result cache TTL as a duration.
func (s ServerConfig) GetCacheTTL() time.Duration {
	return parseDuration(s.CacheTTL, 5*time.Minute)
}

// Validate checks the listen address and cache settings.
func (s ServerConfig) Validate() error {
	if s.Port < 0 || s.Port > 65535 {
		return fmt.Errorf("invalid port %d", s.Port)
	}
	if s.CacheSize < 0 {
		return fmt.Errorf("cache_size must not be negative, got %d", s.CacheSize)
	}
	return nil
}
