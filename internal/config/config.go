// Package config loads socksd settings from a config file, the environment
// and command-line flags.
package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/die-net/socksd/internal/socks5"
)

// ErrInvalid wraps every validation failure returned by Validate.
var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	Server      ServerConfig      `mapstructure:"server" yaml:"server"`
	Auth        AuthConfig        `mapstructure:"auth" yaml:"auth"`
	Performance PerformanceConfig `mapstructure:"performance" yaml:"performance"`
	Logging     LoggingConfig     `mapstructure:"logging" yaml:"logging"`
	Limits      LimitsConfig      `mapstructure:"limits" yaml:"limits"`
	Debug       DebugConfig       `mapstructure:"debug" yaml:"debug"`
}

type ServerConfig struct {
	BindAddress           string        `mapstructure:"bind_address" yaml:"bind_address"`
	Port                  int           `mapstructure:"port" yaml:"port"`
	MaxConnections        int           `mapstructure:"max_connections" yaml:"max_connections"`
	ConnectionTimeoutSecs int           `mapstructure:"connection_timeout_secs" yaml:"connection_timeout_secs"`
	AdmissionTimeout      time.Duration `mapstructure:"admission_timeout" yaml:"-"`
	NegotiationTimeout    time.Duration `mapstructure:"negotiation_timeout" yaml:"-"`
}

type AuthConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	// Methods is accepted for compatibility with older config files. The
	// method offered is decided by Enabled alone.
	Methods []string `mapstructure:"methods" yaml:"methods"`
	Users   []User   `mapstructure:"users" yaml:"users"`
}

type User struct {
	Username     string `mapstructure:"username" yaml:"username"`
	Password     string `mapstructure:"password" yaml:"password,omitempty"`
	PasswordHash string `mapstructure:"password_hash" yaml:"password_hash,omitempty"`
}

type PerformanceConfig struct {
	WorkerThreads int    `mapstructure:"worker_threads" yaml:"worker_threads"`
	BufferSize    int    `mapstructure:"buffer_size" yaml:"buffer_size"`
	TCPNoDelay    bool   `mapstructure:"tcp_nodelay" yaml:"tcp_nodelay"`
	TCPKeepAlive  string `mapstructure:"tcp_keepalive" yaml:"tcp_keepalive"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// LimitsConfig is parsed but not enforced.
type LimitsConfig struct {
	MaxConnectionsPerSec      int   `mapstructure:"max_connections_per_sec" yaml:"max_connections_per_sec"`
	MaxBandwidthPerConnection int64 `mapstructure:"max_bandwidth_per_connection" yaml:"max_bandwidth_per_connection"`
}

type DebugConfig struct {
	Listen string `mapstructure:"listen" yaml:"listen"`
}

const (
	FormatPretty = "pretty"
	FormatJSON   = "json"

	defaultMaxConnectionsPerSec = 100
)

var logLevels = []string{"trace", "debug", "info", "warn", "warning", "error"}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			BindAddress:           "0.0.0.0",
			Port:                  1080,
			MaxConnections:        10000,
			ConnectionTimeoutSecs: 300,
		},
		Auth: AuthConfig{
			Methods: []string{"none"},
		},
		Performance: PerformanceConfig{
			BufferSize:   8192,
			TCPNoDelay:   true,
			TCPKeepAlive: "on",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: FormatPretty,
		},
		Limits: LimitsConfig{
			MaxConnectionsPerSec: defaultMaxConnectionsPerSec,
		},
	}
}

// Validate reports every problem with c at once.
func (c *Config) Validate() error {
	var err error

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		err = multierr.Append(err, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Server.MaxConnections < 1 {
		err = multierr.Append(err, fmt.Errorf("server.max_connections must be positive, got %d", c.Server.MaxConnections))
	}
	if c.Server.ConnectionTimeoutSecs < 0 {
		err = multierr.Append(err, fmt.Errorf("server.connection_timeout_secs must not be negative, got %d", c.Server.ConnectionTimeoutSecs))
	}
	if c.Server.AdmissionTimeout < 0 {
		err = multierr.Append(err, fmt.Errorf("server.admission_timeout must not be negative, got %s", c.Server.AdmissionTimeout))
	}
	if c.Server.NegotiationTimeout < 0 {
		err = multierr.Append(err, fmt.Errorf("server.negotiation_timeout must not be negative, got %s", c.Server.NegotiationTimeout))
	}

	for _, m := range c.Auth.Methods {
		if m != "none" && m != "userpass" {
			err = multierr.Append(err, fmt.Errorf("auth.methods: unknown method %q", m))
		}
	}
	if c.Auth.Enabled && len(c.Auth.Users) == 0 {
		err = multierr.Append(err, errors.New("auth.enabled requires at least one auth.users entry"))
	}
	for i, u := range c.Auth.Users {
		if u.Username == "" || len(u.Username) > 255 {
			err = multierr.Append(err, fmt.Errorf("auth.users[%d]: username must be 1-255 bytes", i))
		}
		if len(u.Password) > 255 {
			err = multierr.Append(err, fmt.Errorf("auth.users[%d]: password longer than 255 bytes", i))
		}
	}

	if c.Performance.WorkerThreads < 0 {
		err = multierr.Append(err, fmt.Errorf("performance.worker_threads must not be negative, got %d", c.Performance.WorkerThreads))
	}
	if c.Performance.BufferSize < 1 {
		err = multierr.Append(err, fmt.Errorf("performance.buffer_size must be positive, got %d", c.Performance.BufferSize))
	}
	if _, kaErr := ParseTCPKeepAlive(c.Performance.TCPKeepAlive); kaErr != nil {
		err = multierr.Append(err, fmt.Errorf("performance.tcp_keepalive: %w", kaErr))
	}

	if !containsFold(logLevels, c.Logging.Level) {
		err = multierr.Append(err, fmt.Errorf("logging.level: unknown level %q", c.Logging.Level))
	}
	if !containsFold([]string{FormatPretty, FormatJSON}, c.Logging.Format) {
		err = multierr.Append(err, fmt.Errorf("logging.format: unknown format %q", c.Logging.Format))
	}

	if c.Limits.MaxConnectionsPerSec < 0 || c.Limits.MaxBandwidthPerConnection < 0 {
		err = multierr.Append(err, errors.New("limits must not be negative"))
	}

	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

// ListenAddress is the host:port the proxy listens on.
func (c *Config) ListenAddress() string {
	return net.JoinHostPort(c.Server.BindAddress, strconv.Itoa(c.Server.Port))
}

// ConnectTimeout is the outbound connect timeout. Zero disables it.
func (c *Config) ConnectTimeout() time.Duration {
	return time.Duration(c.Server.ConnectionTimeoutSecs) * time.Second
}

// Credentials converts auth.users for the SOCKS5 authenticator.
func (c *Config) Credentials() socks5.Credentials {
	creds := make(socks5.Credentials, 0, len(c.Auth.Users))
	for _, u := range c.Auth.Users {
		creds = append(creds, socks5.Credential{
			Username:     u.Username,
			Password:     u.Password,
			PasswordHash: u.PasswordHash,
		})
	}
	return creds
}

// LimitsSet reports whether any limits.* key differs from its default, so the
// caller can warn that they are not enforced.
func (c *Config) LimitsSet() bool {
	return c.Limits.MaxConnectionsPerSec != defaultMaxConnectionsPerSec || c.Limits.MaxBandwidthPerConnection != 0
}

const redacted = "********"

// YAML renders c with passwords redacted.
func (c *Config) YAML() ([]byte, error) {
	out := *c
	out.Auth.Users = make([]User, len(c.Auth.Users))
	for i, u := range c.Auth.Users {
		if u.Password != "" {
			u.Password = redacted
		}
		out.Auth.Users[i] = u
	}

	b, err := yaml.Marshal(&out)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return b, nil
}

// MarshalYAML writes durations in their string form.
func (s ServerConfig) MarshalYAML() (any, error) {
	type plain ServerConfig
	return struct {
		plain              `yaml:",inline"`
		AdmissionTimeout   string `yaml:"admission_timeout"`
		NegotiationTimeout string `yaml:"negotiation_timeout"`
	}{
		plain:              plain(s),
		AdmissionTimeout:   s.AdmissionTimeout.String(),
		NegotiationTimeout: s.NegotiationTimeout.String(),
	}, nil
}
