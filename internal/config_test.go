package internal

import (
	"testing"
	"time"

	"kind4-archive/errors"

	"github.com/Netflix/go-env"
	"github.com/stretchr/testify/require"
)

func Test_Config_Defaults(t *testing.T) {
	req := require.New(t)

	var config Config
	_, err := env.Unmarshal(env.EnvSet{}, &config)

	req.NoError(err)
	req.Equal("0.0.0.0:8080", config.Address())
	req.Equal(262144, config.MaxBodySize)
	req.Equal(10*time.Second, config.ShutdownTimeout)
	driver, err := config.Driver()
	req.NoError(err)
	req.Equal(StoreBadger, driver)
}

func Test_Config_From_Environment(t *testing.T) {
	req := require.New(t)
	environ := env.EnvSet{
		"PORT":             "9000",
		"STORE_DRIVER":     "Postgres",
		"POSTGRES_DSN":     "postgres://localhost/archive",
		"SHUTDOWN_TIMEOUT": "3s",
	}

	var config Config
	_, err := env.Unmarshal(environ, &config)

	req.NoError(err)
	req.Equal(9000, config.Port)
	req.Equal(3*time.Second, config.ShutdownTimeout)
	driver, err := config.Driver()
	req.NoError(err)
	req.Equal(StorePostgres, driver)
}

func Test_Config_Driver_Errors(t *testing.T) {
	req := require.New(t)

	_, err := Config{StoreDriver: "redis"}.Driver()
	req.ErrorIs(err, errors.ErrUnknownDriver)

	_, err = Config{StoreDriver: "postgres"}.Driver()
	req.ErrorContains(err, "POSTGRES_DSN")

	_, err = Config{StoreDriver: "badger"}.Driver()
	req.ErrorContains(err, "BADGER_FILEPATH")
}
