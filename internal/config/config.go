// Package config provides the ambient viper-backed configuration loader
// (CLI config file + PICHI_-prefixed environment overrides) and the
// validated value-object layer that sits between an external management
// surface and internal/proxymgr's managers.
package config

import (
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

// Config is the root configuration tree. Ingresses/Egresses/Rules/Route
// are the static bootstrap set: cmd/pichi-proxy feeds them into
// proxymgr's managers once at startup, after which the same managers
// accept live updates from whatever management layer a deployment wires
// in front of them.
type Config struct {
	Server    ServerConfig `mapstructure:"server"`
	Logger    LoggerConfig `mapstructure:"logger"`
	Geo       GeoConfig    `mapstructure:"geo"`
	Ingresses []IngressVO  `mapstructure:"ingresses"`
	Egresses  []EgressVO   `mapstructure:"egresses"`
	Rules     []RuleVO     `mapstructure:"rules"`
	Route     RouteVO      `mapstructure:"route"`
}

// ServerConfig holds the management-plane listen address; individual
// ingresses carry their own listen address in their VO.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// LoggerConfig configures internal/logging's handler construction.
type LoggerConfig struct {
	Level  string `mapstructure:"level"`  // debug|info|warn|error
	Format string `mapstructure:"format"` // console|json
}

// GeoConfig holds the configured path of the MaxMind country database.
// DBPath is not read by this module: the serve command builds its managers
// with no geo matcher, so router.NoopGeoMatcher is used and country rules
// never match.
type GeoConfig struct {
	DBPath string `mapstructure:"db_path"`
}

var (
	appConfig   *Config
	appConfigMu sync.RWMutex
)

// Load reads configuration from an optional file plus PICHI_-prefixed
// environment variables. configPath, if non-empty, is used exclusively;
// otherwise viper searches the default paths. A missing config file is
// not an error; defaults and env vars still apply.
func Load(configPath ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if len(configPath) > 0 && configPath[0] != "" {
		v.SetConfigFile(configPath[0])
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/pichi")
	}

	v.SetEnvPrefix("PICHI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	appConfigMu.Lock()
	appConfig = &cfg
	appConfigMu.Unlock()

	return &cfg, nil
}

// Get returns the most recently Load-ed configuration, or nil if Load
// hasn't run yet.
func Get() *Config {
	appConfigMu.RLock()
	defer appConfigMu.RUnlock()
	return appConfig
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 1080)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")

	v.SetDefault("geo.db_path", "")

	v.SetDefault("route.default", "direct")
}
