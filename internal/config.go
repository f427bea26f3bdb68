package internal

import (
	"fmt"
	"strings"
	"time"

	"kind4-archive/errors"
)

type StoreDriver string

const (
	StoreBadger   StoreDriver = "badger"
	StorePostgres StoreDriver = "postgres"
)

type Config struct {
	Host            string        `env:"HOST,default=0.0.0.0"`
	Port            int           `env:"PORT,default=8080"`
	LogLevel        string        `env:"LOG_LEVEL,default=INFO"`
	StoreDriver     string        `env:"STORE_DRIVER,default=badger"`
	BadgerFilepath  string        `env:"BADGER_FILEPATH,default=./data/kind4"`
	PostgresDSN     string        `env:"POSTGRES_DSN"`
	MaxBodySize     int           `env:"MAX_BODY_SIZE,default=262144"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
	DebugPort       int           `env:"DEBUG_PORT,default=8081"`
}

func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Driver resolves STORE_DRIVER and checks the settings that driver needs.
func (c Config) Driver() (StoreDriver, error) {
	switch driver := StoreDriver(strings.ToLower(c.StoreDriver)); driver {
	case StoreBadger:
		if c.BadgerFilepath == "" {
			return "", fmt.Errorf("BADGER_FILEPATH is required with STORE_DRIVER=%s", driver)
		}
		return driver, nil
	case StorePostgres:
		if c.PostgresDSN == "" {
			return "", fmt.Errorf("POSTGRES_DSN is required with STORE_DRIVER=%s", driver)
		}
		return driver, nil
	default:
		return "", fmt.Errorf("%w: %q", errors.ErrUnknownDriver, c.StoreDriver)
	}
}
