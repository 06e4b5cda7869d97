package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lucasdreger/microsoft-teams-apps-icebreaker/pkg/apihelpers"
	"github.com/lucasdreger/microsoft-teams-apps-icebreaker/pkg/db"
	"github.com/lucasdreger/microsoft-teams-apps-icebreaker/pkg/secrets"
	"github.com/lucasdreger/microsoft-teams-apps-icebreaker/pkg/telemetry"
	"github.com/lucasdreger/microsoft-teams-apps-icebreaker/pkg/utils"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"gopkg.in/yaml.v2"

	icebreakerDB "github.com/lucasdreger/microsoft-teams-apps-icebreaker/pkg/db/icebreaker"
)

// Environment variables
const (
	ENV_CONFIG_FILE_PATH = "CONFIG_FILE_PATH"

	// Variables to override "secrets" in the config file
	ENV_PAIRING_DATA_API_KEYS   = "PAIRING_DATA_API_KEYS"
	ENV_ADMIN_API_KEYS          = "PAIRING_DATA_ADMIN_API_KEYS"
	ENV_ADMIN_TOKEN_SIGN_KEY    = "ADMIN_TOKEN_SIGN_KEY"
	ENV_PAIRING_DATA_API_PORT   = "PAIRING_DATA_API_LISTEN_PORT"
	ENV_OTEL_EXPORTER_ENDPOINT  = "OTEL_EXPORTER_OTLP_ENDPOINT"
	ENV_SECRETS_KEYRING_SERVICE = "SECRETS_KEYRING_SERVICE"
)

const (
	adminTokenSignKeySecret    = "admin-token-sign-key"
	defaultAdminTokenExpiresIn = "1h"
	defaultDotEnvFile          = ".env"
	defaultPort                = "8080"
)

type Config struct {
	// Logging configs
	Logging utils.LoggerConfig `json:"logging" yaml:"logging"`

	// Tracing configs
	Tracing struct {
		Enabled bool                   `json:"enabled" yaml:"enabled"`
		Config  telemetry.TracerConfig `json:"config" yaml:"config"`
	} `json:"tracing" yaml:"tracing"`

	// Gin configs
	GinConfig struct {
		DebugMode    bool     `json:"debug_mode" yaml:"debug_mode"`
		AllowOrigins []string `json:"allow_origins" yaml:"allow_origins"`
		Port         string   `json:"port" yaml:"port"`

		// Mutual TLS configs
		MTLS struct {
			Use              bool                        `json:"use" yaml:"use"`
			CertificatePaths apihelpers.CertificatePaths `json:"certificate_paths" yaml:"certificate_paths"`
		} `json:"mtls" yaml:"mtls"`
	} `json:"gin_config" yaml:"gin_config"`

	APIKeys []string `json:"api_keys" yaml:"api_keys"`
	// Keys allowed to request admin tokens, kept apart from the bot keys
	AdminAPIKeys        []string `json:"admin_api_keys" yaml:"admin_api_keys"`
	AdminTokenSignKey   string   `json:"admin_token_sign_key" yaml:"admin_token_sign_key"`
	AdminTokenExpiresIn string   `json:"admin_token_expires_in" yaml:"admin_token_expires_in"`

	// Secret sources for the db account key and the token sign key
	Secrets struct {
		EnvPrefix      string   `json:"env_prefix" yaml:"env_prefix"`
		KeyringService string   `json:"keyring_service" yaml:"keyring_service"`
		DotEnvFiles    []string `json:"dotenv_files" yaml:"dotenv_files"`
	} `json:"secrets" yaml:"secrets"`

	// Leave the endpoint empty to read the whole DB config from the ICEBREAKER_DB_* variables
	DBConfig db.DBConfigYaml `json:"db_config" yaml:"db_config"`
}

var (
	conf                Config
	adminTokenExpiresIn time.Duration
	tracerProvider      *sdktrace.TracerProvider
	dbService           *icebreakerDB.IcebreakerDBService
)

func init() {
	var err error
	conf, err = readConfig(os.Getenv(ENV_CONFIG_FILE_PATH))
	if err != nil {
		panic(err)
	}

	if err := utils.LoadDotEnvFiles(conf.Secrets.DotEnvFiles...); err != nil {
		panic(err)
	}

	// Override secrets from environment variables
	secretsOverride()

	// Init logger:
	utils.InitLogger(conf.Logging)

	if !conf.GinConfig.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}

	adminTokenExpiresIn, err = utils.ParseDurationString(conf.AdminTokenExpiresIn)
	if err != nil {
		slog.Error("error during initConfig", slog.String("error", err.Error()), slog.String("admin_token_expires_in", conf.AdminTokenExpiresIn))
		panic(err)
	}

	secretProvider := initSecrets()
	resolveAdminTokenSignKey(secretProvider)

	sink := initTelemetry()
	initDB(secretProvider, sink)
}

func readConfig(path string) (Config, error) {
	c := Config{}
	c.AdminTokenExpiresIn = defaultAdminTokenExpiresIn
	c.Secrets.DotEnvFiles = []string{defaultDotEnvFile}

	if path == "" {
		return c, nil
	}
	yamlFile, err := os.ReadFile(path)
	if err != nil {
		return c, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.UnmarshalStrict(yamlFile, &c); err != nil {
		return c, fmt.Errorf("parsing config file: %w", err)
	}
	return c, nil
}

func secretsOverride() {
	if apiKeys := os.Getenv(ENV_PAIRING_DATA_API_KEYS); apiKeys != "" {
		conf.APIKeys = strings.Split(apiKeys, ",")
	}
	if adminAPIKeys := os.Getenv(ENV_ADMIN_API_KEYS); adminAPIKeys != "" {
		conf.AdminAPIKeys = strings.Split(adminAPIKeys, ",")
	}
	utils.OverrideFromEnv(&conf.AdminTokenSignKey, ENV_ADMIN_TOKEN_SIGN_KEY)
	utils.OverrideFromEnv(&conf.GinConfig.Port, ENV_PAIRING_DATA_API_PORT)
	utils.OverrideFromEnv(&conf.DBConfig.Endpoint, db.ENV_DB_ENDPOINT)
	utils.OverrideFromEnv(&conf.DBConfig.Username, db.ENV_DB_USERNAME)
	utils.OverrideFromEnv(&conf.Tracing.Config.Endpoint, ENV_OTEL_EXPORTER_ENDPOINT)
	utils.OverrideFromEnv(&conf.Secrets.KeyringService, ENV_SECRETS_KEYRING_SERVICE)

	if conf.GinConfig.Port == "" {
		conf.GinConfig.Port = defaultPort
	}
}

func initSecrets() secrets.Provider {
	providers := []secrets.Provider{secrets.EnvProvider{Prefix: conf.Secrets.EnvPrefix}}
	if conf.Secrets.KeyringService != "" {
		providers = append(providers, secrets.KeyringProvider{Service: conf.Secrets.KeyringService})
	}
	return secrets.Chain(providers...)
}

func resolveAdminTokenSignKey(secretProvider secrets.Provider) {
	if conf.AdminTokenSignKey != "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	key, err := secretProvider.GetSecret(ctx, adminTokenSignKeySecret)
	if err != nil {
		slog.Error("Admin token sign key not set", slog.String("error", err.Error()))
		panic(err)
	}
	conf.AdminTokenSignKey = key
}

func initTelemetry() telemetry.Sink {
	sink := telemetry.Sink(telemetry.NewSlogSink(nil))
	if !conf.Tracing.Enabled {
		return sink
	}

	if conf.Tracing.Config.ServiceName == "" {
		conf.Tracing.Config.ServiceName = "pairing-data-api"
	}
	var err error
	tracerProvider, err = telemetry.InitTracer(context.Background(), conf.Tracing.Config)
	if err != nil {
		slog.Error("Error initializing tracer", slog.String("error", err.Error()))
		panic(err)
	}
	return telemetry.Multi(sink, telemetry.NewOTelSink(tracerProvider))
}

func initDB(secretProvider secrets.Provider, sink telemetry.Sink) {
	opts := []icebreakerDB.Option{
		icebreakerDB.WithSecrets(secretProvider),
		icebreakerDB.WithTelemetry(sink),
	}
	if conf.DBConfig.Endpoint != "" {
		opts = append(opts, icebreakerDB.WithConfig(db.DBConfigFromYamlObj(conf.DBConfig)))
	}
	// connects lazily on the first request
	dbService = icebreakerDB.NewIcebreakerDBService(opts...)
}
