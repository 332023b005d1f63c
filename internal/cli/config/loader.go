// Package config loads the askdb configuration by layering sources:
// defaults, then an askdb.yaml file, then ASKDB_* environment
// variables, then explicitly set CLI flags.
package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	intconfig "github.com/askdb-labs/askdb/internal/config"
)

// loggerKey stores the logger in the command context.
type loggerKey struct{}

var (
	k              = koanf.New(".")
	configFileUsed string
	currentConfig  *intconfig.Config
)

// flagKeys maps CLI flag names to config keys where the kebab-to-snake
// default does not apply.
var flagKeys = map[string]string{
	"db":          "target.database",
	"db-type":     "target.type",
	"index":       "index.path",
	"schema-docs": "index.docs_file",
	"audit":       "audit_path",
	"max-rows":    "safety.max_rows",
	"timeout":     "exec.timeout",
}

// findConfigFile finds the config file to use.
// Priority: explicit path > askdb.yaml > askdb.yml
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range []string{"askdb.yaml", "askdb.yml"} {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// ResetConfig resets the loader state. Used for testing.
func ResetConfig() {
	k = koanf.New(".")
	configFileUsed = ""
	currentConfig = nil
}

// Load loads configuration from file, environment variables, and flags.
// Precedence (highest to lowest): flags > env vars > config file > defaults.
func Load(cfgFile string, flags *pflag.FlagSet) (*intconfig.Config, error) {
	k = koanf.New(".")

	// 1. Defaults for the flat keys; nested defaults come from
	// ApplyDefaults after unmarshalling.
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"target.type": "sqlite",
		"verbose":     false,
		"output":      "table",
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file.
	configFileUsed = findConfigFile(cfgFile)
	if configFileUsed != "" {
		if err := k.Load(file.Provider(configFileUsed), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFileUsed, err)
		}
	}

	// 3. Environment variables. Double underscore nests:
	// ASKDB_TARGET__DATABASE -> target.database
	if err := k.Load(env.Provider("ASKDB_", ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, "ASKDB_"))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Explicitly set flags win over everything.
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			key, ok := flagKeys[f.Name]
			if !ok {
				key = strings.ReplaceAll(f.Name, "-", "_")
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg intconfig.Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	cfg.ApplyDefaults()

	// The Gemini SDK's conventional variable works as a fallback so
	// users do not have to repeat the key in askdb.yaml.
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if cfg.Embedding.APIKey == "" {
		cfg.Embedding.APIKey = cfg.LLM.APIKey
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	currentConfig = &cfg
	return &cfg, nil
}

// GetConfigFileUsed returns the path to the config file being used, if any.
func GetConfigFileUsed() string {
	return configFileUsed
}

// GetCurrent returns the most recently loaded configuration.
func GetCurrent() *intconfig.Config {
	return currentConfig
}

// LoggerKey returns the context key for the logger, shared with the
// root command to avoid an import cycle with the commands package.
func LoggerKey() interface{} {
	return loggerKey{}
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.New(slog.DiscardHandler)
}
