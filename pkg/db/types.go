package db

import (
	"fmt"
	"net/url"
)

// defaults applied when the corresponding value is not configured
const (
	DEFAULT_TIMEOUT              = 30
	DEFAULT_IDLE_CONN_TIMEOUT    = 45
	DEFAULT_MAX_POOL_SIZE        = 8
	DEFAULT_THROUGHPUT           = 400
	DEFAULT_PAIRS_COLLECTION     = "PairsHistory"
	DEFAULT_TEAMS_COLLECTION     = "TeamsInstalled"
	DEFAULT_USERS_COLLECTION     = "UsersOptInStatus"
	DEFAULT_KEY_SECRET_NAME      = "icebreaker-db-key"
	DEFAULT_PARTITION_KEY_FIELD  = "_id"
	DEFAULT_SCAN_MAX_PARALLELISM = -1
)

type DBConfig struct {
	Endpoint         string
	ConnectionPrefix string
	Username         string
	KeySecretName    string

	DatabaseName    string
	DBNamePrefix    string
	PairsCollection string
	TeamsCollection string
	UsersCollection string

	Timeout         int
	IdleConnTimeout int
	MaxPoolSize     uint64
	NoCursorTimeout bool

	// Throughput is the default provisioning level (request units) for the database or,
	// when shared throughput is not available, for each collection.
	Throughput int
}

type DBConfigYaml struct {
	Endpoint           string `yaml:"endpoint"`
	ConnectionPrefix   string `yaml:"connection_prefix"`
	Username           string `yaml:"username"`
	KeySecretName      string `yaml:"key_secret_name"`
	DatabaseName       string `yaml:"database_name"`
	DBNamePrefix       string `yaml:"db_name_prefix"`
	PairsCollection    string `yaml:"pairs_collection"`
	TeamsCollection    string `yaml:"teams_collection"`
	UsersCollection    string `yaml:"users_collection"`
	Timeout            int    `yaml:"timeout"`
	IdleConnTimeout    int    `yaml:"idle_conn_timeout"`
	MaxPoolSize        int    `yaml:"max_pool_size"`
	UseNoCursorTimeout bool   `yaml:"use_no_cursor_timeout"`
	Throughput         int    `yaml:"throughput"`
}

// DBName is the name of the database including the optional prefix (used in test mode).
func (c DBConfig) DBName() string {
	return c.DBNamePrefix + c.DatabaseName
}

// BuildURI assembles the connection string. The key is only added when a username is set.
func (c DBConfig) BuildURI(key string) string {
	if c.Username == "" {
		return fmt.Sprintf(`mongodb%s://%s`, c.ConnectionPrefix, c.Endpoint)
	}
	return fmt.Sprintf(`mongodb%s://%s@%s`, c.ConnectionPrefix, url.UserPassword(c.Username, key).String(), c.Endpoint)
}

// CollectionNames lists the logical collections in provisioning order: pairs, teams, users.
func (c DBConfig) CollectionNames() []string {
	return []string{c.PairsCollection, c.TeamsCollection, c.UsersCollection}
}

func (c DBConfig) Validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("db endpoint missing")
	}
	if c.DatabaseName == "" {
		return fmt.Errorf("db name missing")
	}
	if c.PairsCollection == "" || c.TeamsCollection == "" || c.UsersCollection == "" {
		return fmt.Errorf("collection names missing")
	}
	if c.PairsCollection == c.TeamsCollection || c.PairsCollection == c.UsersCollection || c.TeamsCollection == c.UsersCollection {
		return fmt.Errorf("collection names must be distinct")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("db timeout must be positive")
	}
	return nil
}

func (c *DBConfig) applyDefaults() {
	if c.PairsCollection == "" {
		c.PairsCollection = DEFAULT_PAIRS_COLLECTION
	}
	if c.TeamsCollection == "" {
		c.TeamsCollection = DEFAULT_TEAMS_COLLECTION
	}
	if c.UsersCollection == "" {
		c.UsersCollection = DEFAULT_USERS_COLLECTION
	}
	if c.KeySecretName == "" {
		c.KeySecretName = DEFAULT_KEY_SECRET_NAME
	}
	if c.Timeout == 0 {
		c.Timeout = DEFAULT_TIMEOUT
	}
	if c.IdleConnTimeout == 0 {
		c.IdleConnTimeout = DEFAULT_IDLE_CONN_TIMEOUT
	}
	if c.MaxPoolSize == 0 {
		c.MaxPoolSize = DEFAULT_MAX_POOL_SIZE
	}
	if c.Throughput == 0 {
		c.Throughput = DEFAULT_THROUGHPUT
	}
}
