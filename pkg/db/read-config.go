package db

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
)

// Environment variables
const (
	ENV_DB_ENDPOINT          = "ICEBREAKER_DB_ENDPOINT"
	ENV_DB_CONNECTION_PREFIX = "ICEBREAKER_DB_CONNECTION_PREFIX"
	ENV_DB_USERNAME          = "ICEBREAKER_DB_USERNAME"
	ENV_DB_KEY_SECRET_NAME   = "ICEBREAKER_DB_KEY_SECRET_NAME"
	ENV_DB_NAME              = "ICEBREAKER_DB_NAME"
	ENV_DB_NAME_PREFIX       = "ICEBREAKER_DB_NAME_PREFIX"
	ENV_DB_PAIRS_COLLECTION  = "ICEBREAKER_DB_PAIRS_COLLECTION"
	ENV_DB_TEAMS_COLLECTION  = "ICEBREAKER_DB_TEAMS_COLLECTION"
	ENV_DB_USERS_COLLECTION  = "ICEBREAKER_DB_USERS_COLLECTION"
	ENV_DB_TIMEOUT           = "ICEBREAKER_DB_TIMEOUT"
	ENV_DB_IDLE_CONN_TIMEOUT = "ICEBREAKER_DB_IDLE_CONN_TIMEOUT"
	ENV_DB_MAX_POOL_SIZE     = "ICEBREAKER_DB_MAX_POOL_SIZE"
	ENV_DB_NO_CURSOR_TIMEOUT = "ICEBREAKER_DB_NO_CURSOR_TIMEOUT"
	ENV_DB_THROUGHPUT        = "ICEBREAKER_DB_THROUGHPUT"
)

// ReadDBConfigFromEnv reads the store configuration from the environment and applies defaults
// for optional values. The account key is not part of the environment, only the name of the
// secret holding it.
func ReadDBConfigFromEnv() (DBConfig, error) {
	conf := DBConfig{
		Endpoint:         os.Getenv(ENV_DB_ENDPOINT),
		ConnectionPrefix: os.Getenv(ENV_DB_CONNECTION_PREFIX),
		Username:         os.Getenv(ENV_DB_USERNAME),
		KeySecretName:    os.Getenv(ENV_DB_KEY_SECRET_NAME),
		DatabaseName:     os.Getenv(ENV_DB_NAME),
		DBNamePrefix:     os.Getenv(ENV_DB_NAME_PREFIX),
		PairsCollection:  os.Getenv(ENV_DB_PAIRS_COLLECTION),
		TeamsCollection:  os.Getenv(ENV_DB_TEAMS_COLLECTION),
		UsersCollection:  os.Getenv(ENV_DB_USERS_COLLECTION),
		NoCursorTimeout:  os.Getenv(ENV_DB_NO_CURSOR_TIMEOUT) == "true",
	}

	var err error
	if conf.Timeout, err = intFromEnv(ENV_DB_TIMEOUT); err != nil {
		return conf, err
	}
	if conf.IdleConnTimeout, err = intFromEnv(ENV_DB_IDLE_CONN_TIMEOUT); err != nil {
		return conf, err
	}
	mps, err := intFromEnv(ENV_DB_MAX_POOL_SIZE)
	if err != nil {
		return conf, err
	}
	if mps < 0 {
		return conf, fmt.Errorf("%s must not be negative", ENV_DB_MAX_POOL_SIZE)
	}
	conf.MaxPoolSize = uint64(mps)
	if conf.Throughput, err = intFromEnv(ENV_DB_THROUGHPUT); err != nil {
		return conf, err
	}

	conf.applyDefaults()
	if err := conf.Validate(); err != nil {
		return conf, err
	}
	return conf, nil
}

// DBConfigFromYamlObj converts the yaml representation used by the service config files.
func DBConfigFromYamlObj(yamlObj DBConfigYaml) DBConfig {
	mps := yamlObj.MaxPoolSize
	if mps < 0 {
		mps = 0
	}
	conf := DBConfig{
		Endpoint:         yamlObj.Endpoint,
		ConnectionPrefix: yamlObj.ConnectionPrefix,
		Username:         yamlObj.Username,
		KeySecretName:    yamlObj.KeySecretName,
		DatabaseName:     yamlObj.DatabaseName,
		DBNamePrefix:     yamlObj.DBNamePrefix,
		PairsCollection:  yamlObj.PairsCollection,
		TeamsCollection:  yamlObj.TeamsCollection,
		UsersCollection:  yamlObj.UsersCollection,
		Timeout:          yamlObj.Timeout,
		IdleConnTimeout:  yamlObj.IdleConnTimeout,
		MaxPoolSize:      uint64(mps),
		NoCursorTimeout:  yamlObj.UseNoCursorTimeout,
		Throughput:       yamlObj.Throughput,
	}
	conf.applyDefaults()
	return conf
}

func intFromEnv(name string) (int, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		slog.Error("DB config could not parse value", slog.String("error", err.Error()), slog.String(name, raw))
		return 0, fmt.Errorf("invalid value for %s: %w", name, err)
	}
	return v, nil
}
