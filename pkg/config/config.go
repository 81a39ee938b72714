// Package config loads typed configuration records from the environment. An
// optional .env file, given via -env or found in the working directory, is
// exported into the process environment before parsing so every record sees
// the same values.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

var (
	envFileFlag string
	registerEnv sync.Once
)

// New fills a T from environment variables carrying the given prefix.
func New[T any](prefix string) (*T, error) {
	if err := loadEnvFile(); err != nil {
		return nil, err
	}

	var conf T
	if err := envconfig.Process(prefix, &conf); err != nil {
		return nil, fmt.Errorf("parse config prefix=%s: %w", prefix, err)
	}
	return &conf, nil
}

// MustNew is New for startup paths where a bad config should stop the
// process.
func MustNew[T any](prefix string) *T {
	conf, err := New[T](prefix)
	if err != nil {
		panic(err)
	}
	return conf
}

func loadEnvFile() error {
	registerEnv.Do(func() {
		if flag.Lookup("env") == nil {
			flag.StringVar(&envFileFlag, "env", "", "path to .env file")
		}
		if !flag.Parsed() {
			flag.Parse()
		}
	})

	if path := strings.TrimSpace(envFileFlag); path != "" {
		if err := exportEnv(path); err != nil {
			return fmt.Errorf("load env file %s: %w", path, err)
		}
		return nil
	}

	// No explicit file: a .env next to the binary is picked up when present.
	info, err := os.Stat(".env")
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if info.IsDir() {
		return nil
	}
	if err := exportEnv(".env"); err != nil {
		return fmt.Errorf("load default env file: %w", err)
	}
	return nil
}

func exportEnv(path string) error {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return err
	}
	for key, value := range v.AllSettings() {
		if err := os.Setenv(strings.ToUpper(key), fmt.Sprint(value)); err != nil {
			return err
		}
	}
	return nil
}
