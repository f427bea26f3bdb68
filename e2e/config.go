package e2e

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// ARCHIVE_ADDR is the base URL of a running archive; scenarios skip when unset
	ArchiveAddr string `envconfig:"ARCHIVE_ADDR"`
	// E2E_DEBUG_JSON dumps request and response bodies
	DebugJSON bool `envconfig:"E2E_DEBUG_JSON" default:"false"`
	// E2E_COLOURS enables colorized step headers
	Colours bool `envconfig:"E2E_COLOURS" default:"true"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
