package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	appName   = "socksd"
	envPrefix = "SOCKSD"
)

// Flag names bound onto config keys by Load.
var flagKeys = map[string]string{
	"bind":         "server.bind_address",
	"port":         "server.port",
	"auth":         "auth.enabled",
	"log-level":    "logging.level",
	"debug-listen": "debug.listen",
}

// RegisterFlags adds the flags Load understands to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.StringP("config", "c", "", "Config file (default: search ., $XDG_CONFIG_HOME/socksd, /etc/socksd for socksd.{toml,yaml,json})")
	fs.StringP("bind", "b", "", "Bind address (overrides server.bind_address)")
	fs.IntP("port", "p", 0, "Port to listen on (overrides server.port)")
	fs.Bool("auth", false, "Require username/password authentication (overrides auth.enabled)")
	fs.String("log-level", "", "Log level: trace|debug|info|warn|error (overrides logging.level)")
	fs.String("debug-listen", "", "Debug HTTP listen address exposing /debug/pprof and /debug/vars. Empty disables.")
}

// Load builds the configuration from defaults, then the config file, then
// SOCKSD_* environment variables, then any flags in fs that were set. fs may
// be nil. The result is validated.
func Load(fs *pflag.FlagSet) (*Config, string, error) {
	v := viper.New()
	setDefaults(v, Default())

	path := ""
	if fs != nil {
		if f := fs.Lookup("config"); f != nil {
			path = f.Value.String()
		}
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(appName)
		v.AddConfigPath(".")
		v.AddConfigPath(filepath.Join(xdg.ConfigHome, appName))
		for _, dir := range xdg.ConfigDirs {
			v.AddConfigPath(filepath.Join(dir, appName))
		}
		v.AddConfigPath(filepath.Join("/etc", appName))
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if fs != nil {
		for name, key := range flagKeys {
			f := fs.Lookup(name)
			if f == nil || !f.Changed {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, "", fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, "", fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, "", fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}

	return cfg, v.ConfigFileUsed(), nil
}

// setDefaults registers every key so that environment variables can override
// keys that appear in no config file.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("server.bind_address", d.Server.BindAddress)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.max_connections", d.Server.MaxConnections)
	v.SetDefault("server.connection_timeout_secs", d.Server.ConnectionTimeoutSecs)
	v.SetDefault("server.admission_timeout", d.Server.AdmissionTimeout)
	v.SetDefault("server.negotiation_timeout", d.Server.NegotiationTimeout)

	v.SetDefault("auth.enabled", d.Auth.Enabled)
	v.SetDefault("auth.methods", d.Auth.Methods)
	v.SetDefault("auth.users", d.Auth.Users)

	v.SetDefault("performance.worker_threads", d.Performance.WorkerThreads)
	v.SetDefault("performance.buffer_size", d.Performance.BufferSize)
	v.SetDefault("performance.tcp_nodelay", d.Performance.TCPNoDelay)
	v.SetDefault("performance.tcp_keepalive", d.Performance.TCPKeepAlive)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)

	v.SetDefault("limits.max_connections_per_sec", d.Limits.MaxConnectionsPerSec)
	v.SetDefault("limits.max_bandwidth_per_connection", d.Limits.MaxBandwidthPerConnection)

	v.SetDefault("debug.listen", d.Debug.Listen)
}
