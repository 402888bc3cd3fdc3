package config

import (
	"fmt"
	"strings"
	"sync"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var defineFlagsOnce sync.Once

// Load loads configuration from multiple sources with the following precedence:
// 1. Command line flags
// 2. Environment variables
// 3. Config file
// 4. Default values
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	defineFlags()
	if !pflag.Parsed() {
		pflag.Parse()
	}

	cfgPath, _ := pflag.CommandLine.GetString("config")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.SetConfigName("sqlgraphql")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/sqlgraphql/")
		v.AddConfigPath("$HOME/.sqlgraphql")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if cfgPath != "" {
			return nil, fmt.Errorf("failed to read config file %q: %w", cfgPath, err)
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Canonical keys: dot + snake_case. Env vars: SQLGQL_DATABASE_MAX_OPEN_CONNS
	v.SetEnvPrefix("SQLGQL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	bindChangedFlagsToViper(v)

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.host", "127.0.0.1")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.user", "root")
	v.SetDefault("database.path", "sqlgraphql.db")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "5m")

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.graphiql_enabled", true)
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

func defineFlags() {
	defineFlagsOnce.Do(func() {
		pflag.String("config", "", "path to config file")
		pflag.String("database-driver", "sqlite", "database driver (mysql or sqlite)")
		pflag.String("database-host", "127.0.0.1", "database host")
		pflag.Int("database-port", 3306, "database port")
		pflag.String("database-user", "root", "database user")
		pflag.String("database-password", "", "database password")
		pflag.String("database-name", "", "database name")
		pflag.String("database-path", "sqlgraphql.db", "sqlite database path")
		pflag.Int("server-port", 8080, "HTTP listen port")
		pflag.Bool("graphiql", true, "serve the GraphiQL UI")
		pflag.String("log-level", "info", "log level (debug, info, warn, error)")
		pflag.String("log-format", "text", "log format (json, text)")
	})
}

// bindChangedFlagsToViper maps flags to config keys, only when set on the
// command line, so unset flags do not mask env vars or file values.
func bindChangedFlagsToViper(v *viper.Viper) {
	flagKeys := map[string]string{
		"database-driver":   "database.driver",
		"database-host":     "database.host",
		"database-port":     "database.port",
		"database-user":     "database.user",
		"database-password": "database.password",
		"database-name":     "database.database",
		"database-path":     "database.path",
		"server-port":       "server.port",
		"graphiql":          "server.graphiql_enabled",
		"log-level":         "logging.level",
		"log-format":        "logging.format",
	}
	pflag.CommandLine.Visit(func(f *pflag.Flag) {
		if key, ok := flagKeys[f.Name]; ok {
			v.Set(key, f.Value.String())
		}
	})
}
