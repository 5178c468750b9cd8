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
	envFile  string
	flagOnce sync.Once
)

// New fills T from the environment. An -env flag or a ./.env file, when
// present, is exported into the process environment first so envconfig
// sees its values.
func New[T any](prefix string) (*T, error) {
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	conf := new(T)
	if err := envconfig.Process(prefix, conf); err != nil {
		return nil, fmt.Errorf("config: process %s: %w", prefix, err)
	}
	return conf, nil
}

// MustNew is New for startup wiring; it panics instead of returning an error.
func MustNew[T any](prefix string) *T {
	conf, err := New[T](prefix)
	if err != nil {
		panic(err)
	}
	return conf
}

// loadEnvFile exports the env file into the process environment. A missing
// default .env is fine; a missing explicitly flagged file is not.
func loadEnvFile() error {
	flagOnce.Do(func() {
		if flag.Lookup("env") == nil {
			flag.StringVar(&envFile, "env", "", "path to .env file")
		}
		if !flag.Parsed() {
			flag.Parse()
		}
	})

	path := strings.TrimSpace(envFile)
	explicit := path != ""
	if !explicit {
		path = ".env"
	}

	info, err := os.Stat(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if explicit {
			return fmt.Errorf("env file %s does not exist", path)
		}
		return nil
	case err != nil:
		return err
	case info.IsDir():
		if explicit {
			return fmt.Errorf("env file %s is a directory", path)
		}
		return nil
	}

	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		return err
	}
	for k, v := range viper.AllSettings() {
		if err := os.Setenv(strings.ToUpper(k), fmt.Sprint(v)); err != nil {
			return err
		}
	}
	return nil
}
