package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	env "github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "APP_"

// Load reads configuration in three layers, highest precedence last:
//
//  1. Built-in defaults
//  2. The YAML file at path
//  3. Environment variables with the APP_ prefix
//
// Env var mapping resolves keys against the loaded config so that names
// with internal underscores map correctly:
//
//	APP_DB_SSL_MODE                 -> db.ssl_mode
//	APP_FEED_API_KEY                -> feed.api_key
//	APP_SCHEDULE_DAILY_RATE_FETCH   -> schedule.daily_rate_fetch
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	for key, value := range defaults() {
		if err := k.Set(key, value); err != nil {
			return nil, fmt.Errorf("setting default %s: %w", key, err)
		}
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("loading config file %s: %w", path, err)
	}

	// Build a reverse lookup from known koanf keys so env vars with
	// field-internal underscores resolve unambiguously.
	envLookup := buildEnvLookup(k.Keys())

	err := k.Load(env.Provider(".", env.Opt{
		Prefix: envPrefix,
		TransformFunc: func(key, value string) (string, any) {
			key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
			if koanfKey, ok := envLookup[key]; ok {
				return koanfKey, value
			}
			return strings.ReplaceAll(key, "_", "."), value
		},
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("loading env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return &cfg, nil
}

// buildEnvLookup creates a reverse mapping from env-style keys to koanf
// dotted keys, e.g. "db_ssl_mode" -> "db.ssl_mode"
func buildEnvLookup(keys []string) map[string]string {
	lookup := make(map[string]string, len(keys))
	for _, key := range keys {
		lookup[strings.ReplaceAll(key, ".", "_")] = key
	}
	return lookup
}
