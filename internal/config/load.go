package config

import (
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	env "github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

// EnvPrefix prefixes the environment variables read by Load.
const EnvPrefix = "TRACTFILTER_"

// Load builds the configuration. path may be empty. overrides are koanf keys
// such as "pipeline.jobs" set from the command line.
//
// Environment variables map onto known keys, so TRACTFILTER_PIPELINE_KEEP_GOING
// sets pipeline.keep_going.
func Load(path string, overrides map[string]any) (*Config, error) {
	k := koanf.New(".")

	for key, value := range defaults() {
		err := k.Set(key, value)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to set default %s", key)
		}
	}

	if path != "" {
		err := k.Load(file.Provider(path), yaml.Parser())
		if err != nil {
			return nil, errors.Wrapf(err, "unable to load config file %s", path)
		}
	}

	envLookup := buildEnvLookup(k.Keys())

	err := k.Load(env.Provider(".", env.Opt{
		Prefix: EnvPrefix,
		TransformFunc: func(key, value string) (string, any) {
			key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))

			if koanfKey, ok := envLookup[key]; ok {
				return koanfKey, value
			}

			return strings.ReplaceAll(key, "_", "."), value
		},
	}), nil)
	if err != nil {
		return nil, errors.Wrap(err, "unable to load environment variables")
	}

	for key, value := range overrides {
		err := k.Set(key, value)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to override %s", key)
		}
	}

	var cfg Config

	err = k.Unmarshal("", &cfg)
	if err != nil {
		return nil, errors.Wrap(err, "unable to unmarshal config")
	}

	// slices would be merged with the user list, so defaults apply only when
	// nothing was configured
	if len(cfg.Tracts) == 0 {
		cfg.Tracts = DefaultTracts()
	}

	err = cfg.Validate()
	if err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	return &cfg, nil
}

// Default returns the configuration used when nothing is configured.
func Default() *Config {
	cfg, err := Load("", nil)
	if err != nil {
		// defaults are static and valid
		panic(err)
	}

	return cfg
}

func buildEnvLookup(keys []string) map[string]string {
	lookup := make(map[string]string, len(keys))
	for _, key := range keys {
		lookup[strings.ReplaceAll(key, ".", "_")] = key
	}

	return lookup
}
