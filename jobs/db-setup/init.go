package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/lucasdreger/microsoft-teams-apps-icebreaker/pkg/db"
	"github.com/lucasdreger/microsoft-teams-apps-icebreaker/pkg/secrets"
	"github.com/lucasdreger/microsoft-teams-apps-icebreaker/pkg/telemetry"
	"github.com/lucasdreger/microsoft-teams-apps-icebreaker/pkg/utils"
	"gopkg.in/yaml.v2"

	icebreakerDB "github.com/lucasdreger/microsoft-teams-apps-icebreaker/pkg/db/icebreaker"
)

// Environment variables
const (
	ENV_CONFIG_FILE_PATH = "CONFIG_FILE_PATH"

	ENV_SECRETS_KEYRING_SERVICE = "SECRETS_KEYRING_SERVICE"
)

type config struct {
	// Logging configs
	Logging utils.LoggerConfig `json:"logging" yaml:"logging"`

	// Leave the endpoint empty to read the whole DB config from the ICEBREAKER_DB_* variables
	DBConfig db.DBConfigYaml `json:"db_config" yaml:"db_config"`

	Secrets struct {
		EnvPrefix      string   `json:"env_prefix" yaml:"env_prefix"`
		KeyringService string   `json:"keyring_service" yaml:"keyring_service"`
		DotEnvFiles    []string `json:"dotenv_files" yaml:"dotenv_files"`
	} `json:"secrets" yaml:"secrets"`

	// Task configurations
	TaskConfigs TaskConfigs `json:"task_configs" yaml:"task_configs"`
}

type TaskConfigs struct {
	// upper bound for connecting and provisioning, e.g. "2m"
	SetupTimeout string `json:"setup_timeout" yaml:"setup_timeout"`
	// scan all collections after setup and log their sizes
	CountDocuments bool `json:"count_documents" yaml:"count_documents"`
}

const defaultSetupTimeout = 5 * time.Minute

var (
	conf         config
	setupTimeout time.Duration
	dbService    *icebreakerDB.IcebreakerDBService
)

func init() {
	configPath := os.Getenv(ENV_CONFIG_FILE_PATH)
	if configPath != "" {
		// Read config from file
		yamlFile, err := os.ReadFile(configPath)
		if err != nil {
			panic(err)
		}

		err = yaml.UnmarshalStrict(yamlFile, &conf)
		if err != nil {
			panic(err)
		}
	}

	if err := utils.LoadDotEnvFiles(conf.Secrets.DotEnvFiles...); err != nil {
		panic(err)
	}
	utils.OverrideFromEnv(&conf.Secrets.KeyringService, ENV_SECRETS_KEYRING_SERVICE)
	utils.OverrideFromEnv(&conf.DBConfig.Endpoint, db.ENV_DB_ENDPOINT)

	// Init logger:
	utils.InitLogger(conf.Logging)

	validateConfig()

	initDB()
}

func validateConfig() {
	setupTimeout = defaultSetupTimeout
	if conf.TaskConfigs.SetupTimeout == "" {
		return
	}
	var err error
	setupTimeout, err = utils.ParseDurationString(conf.TaskConfigs.SetupTimeout)
	if err != nil || setupTimeout <= 0 {
		panic(fmt.Sprintf("invalid task_configs.setup_timeout: %q", conf.TaskConfigs.SetupTimeout))
	}
}

func initDB() {
	providers := []secrets.Provider{secrets.EnvProvider{Prefix: conf.Secrets.EnvPrefix}}
	if conf.Secrets.KeyringService != "" {
		providers = append(providers, secrets.KeyringProvider{Service: conf.Secrets.KeyringService})
	}

	opts := []icebreakerDB.Option{
		icebreakerDB.WithSecrets(secrets.Chain(providers...)),
		icebreakerDB.WithTelemetry(telemetry.NewSlogSink(nil)),
	}
	if conf.DBConfig.Endpoint != "" {
		opts = append(opts, icebreakerDB.WithConfig(db.DBConfigFromYamlObj(conf.DBConfig)))
	}
	dbService = icebreakerDB.NewIcebreakerDBService(opts...)
}

func closeDB() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := dbService.Close(ctx); err != nil {
		slog.Error("Error closing icebreaker DB", slog.String("error", err.Error()))
	}
}
