// Package config handles loading and parsing application configuration.
// It supports three sources (in priority order):
//  1. An environment variable:  CONFIG_PATH=/path/to/config.yaml
//  2. A command-line flag:      --config=/path/to/config.yaml
//  3. Neither: every value comes from the environment or its default,
//     so a bare start serves on :5678 with records under ./students.
//
// Environment variables always override values read from the file.
package config

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
)

// Storage drivers accepted in storage.driver.
const (
	DriverFS     = "fs"
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverBolt   = "bolt"
)

// Config is the root configuration structure.
// Every field maps to a key in the YAML file AND can be overridden
// by the corresponding environment variable (env:"...").
type Config struct {
	// Env controls log format and verbosity.
	// Valid values: "dev", "staging", "prod"
	Env string `yaml:"env" env:"ENV" env-default:"dev" validate:"oneof=dev staging prod"`

	Storage Storage `yaml:"storage"`

	// PublicDir holds static assets served for any unmatched GET path.
	PublicDir string `yaml:"public_dir" env:"PUBLIC_DIR" env-default:"./public"`

	HTTPServer `yaml:"http_server"`
}

// Storage selects and locates the record store.
type Storage struct {
	// Driver is one of fs, memory, sqlite, bolt.
	Driver string `yaml:"driver" env:"STORAGE_DRIVER" env-default:"fs" validate:"oneof=fs memory sqlite bolt"`

	// Path is the records directory for fs, or the database file for
	// sqlite and bolt. Ignored by memory.
	Path string `yaml:"path" env:"STORAGE_PATH" env-default:"students" validate:"required_unless=Driver memory"`
}

// HTTPServer holds settings specific to the HTTP server.
// Nested under http_server: in the YAML file.
type HTTPServer struct {
	// Addr is the TCP address the server listens on, e.g. ":5678".
	Addr string `yaml:"address" env:"HTTP_SERVER_ADDR" env-default:":5678" validate:"required"`
}

// Load reads the config file at path (or only the environment when path
// is empty) and validates the result.
func Load(path string) (*Config, error) {
	var cfg Config

	if path == "" {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("cannot read config from environment: %w", err)
		}
	} else {
		// Verify the file exists before trying to read it, so the error
		// names the problem instead of a bare "open: no such file".
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config file does not exist: %s", path)
		}
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("cannot read config: %w", err)
		}
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// MustLoad resolves the config path, loads the config and exits the
// process if anything is wrong. If it returns, the config is valid.
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")

	if configPath == "" {
		flags := flag.String("config", "", "Path to the configuration YAML file")
		flag.Parse()
		configPath = *flags
	}

	cfg, err := Load(configPath)
	if err != nil {
		log.Fatal(err)
	}
	return cfg
}
