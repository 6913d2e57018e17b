package config

import (
	"log"
	"os"

	"github.com/aleksaelezovic/trigo-eval/pkg/sparql/engine"
	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config captures the runtime options of the CLI.
type Config struct {
	Engine  engine.Options `yaml:"engine"`
	Storage Storage        `yaml:"storage"`
	Logging Logging        `yaml:"logging"`
}

// Storage selects the badger dataset.
type Storage struct {
	// Path of the badger directory; ignored when InMemory is set
	Path     string `yaml:"path"`
	InMemory bool   `yaml:"in_memory"`
}

// Logging controls the stdr logger.
type Logging struct {
	Verbosity int    `yaml:"verbosity"`
	Prefix    string `yaml:"prefix"`
}

func defaultConfig() Config {
	return Config{
		Engine: engine.DefaultOptions(),
		Storage: Storage{
			Path: "./trigo_data",
		},
		Logging: Logging{
			Prefix: "trigo-eval ",
		},
	}
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return defaultConfig()
}

// Load reads a YAML config file. Fields missing from the file keep their defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "read config %s", path)
	}
	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrapf(err, "parse config %s", path)
	}
	normalizeConfig(&cfg)
	return cfg, nil
}

func normalizeConfig(cfg *Config) {
	if cfg.Engine.QueryTimeout < 0 {
		cfg.Engine.QueryTimeout = 0
	}
	if cfg.Engine.Culture == "" {
		cfg.Engine.Culture = engine.DefaultOptions().Culture
	}
	if cfg.Storage.Path == "" && !cfg.Storage.InMemory {
		cfg.Storage.Path = defaultConfig().Storage.Path
	}
	if cfg.Logging.Verbosity < 0 {
		cfg.Logging.Verbosity = 0
	}
}

// Logger builds the stderr logger described by the logging section.
func (c Config) Logger() logr.Logger {
	stdr.SetVerbosity(c.Logging.Verbosity)
	return stdr.New(log.New(os.Stderr, c.Logging.Prefix, log.LstdFlags))
}
