package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/oxzi/demote"
)

// Config is the struct representation of demoted's YAML configuration file.
//
// Optional values that have a meaningful zero value are pointers, so an
// absent key stays distinguishable from one that was explicitly set to the
// default.
type Config struct {
	User  string `yaml:"user"`
	Group string `yaml:"group"`

	PidFile           string `yaml:"pid-file"`
	PidFileBeforeDrop bool   `yaml:"pid-file-before-drop"`

	Chroot string `yaml:"chroot"`

	LogLevel *string `yaml:"log-level"`

	Listen        string `yaml:"listen"`
	MetricsListen string `yaml:"metrics-listen"`

	DataDir string `yaml:"data-dir"`
}

// defaultConfig is the configuration used when no file is given.
func defaultConfig() Config {
	return Config{
		Listen:  ":8080",
		DataDir: "data",
	}
}

// loadConfig loads a Config from a given YAML configuration file at the path.
func loadConfig(path string) (Config, error) {
	conf := defaultConfig()

	f, err := os.Open(path)
	if err != nil {
		return conf, err
	}
	defer func() { _ = f.Close() }()

	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true)
	if err := decoder.Decode(&conf); err != nil {
		return conf, fmt.Errorf("parsing %q: %w", path, err)
	}

	return conf, nil
}

// logLevel parses the config file's log level, keeping "unset" as nil.
func (conf Config) logLevel() (*demote.Level, error) {
	if conf.LogLevel == nil {
		return nil, nil
	}

	level, err := demote.ParseLevel(*conf.LogLevel)
	if err != nil {
		return nil, err
	}
	return &level, nil
}
