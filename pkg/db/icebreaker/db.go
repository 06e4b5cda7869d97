package icebreakerdb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lucasdreger/microsoft-teams-apps-icebreaker/pkg/db"
	"github.com/lucasdreger/microsoft-teams-apps-icebreaker/pkg/secrets"
	"github.com/lucasdreger/microsoft-teams-apps-icebreaker/pkg/telemetry"
)

var (
	ErrProviderClosed = errors.New("icebreaker db service closed")
	ErrEmptyID        = errors.New("document id must not be empty")
)

type IcebreakerDBService struct {
	store      DocumentStore
	secrets    secrets.Provider
	telemetry  telemetry.Sink
	loadConfig func() (db.DBConfig, error)

	initOnce sync.Once
	initDone chan struct{}
	initErr  error
	// valid once initDone is closed without error
	conf db.DBConfig

	closeMu  sync.Mutex
	closed   bool
	closeErr error
}

type Option func(*IcebreakerDBService)

// WithStore replaces the default MongoDB store.
func WithStore(store DocumentStore) Option {
	return func(s *IcebreakerDBService) {
		s.store = store
	}
}

// WithSecrets sets the source of the account key. Defaults to the environment.
func WithSecrets(provider secrets.Provider) Option {
	return func(s *IcebreakerDBService) {
		s.secrets = provider
	}
}

func WithTelemetry(sink telemetry.Sink) Option {
	return func(s *IcebreakerDBService) {
		s.telemetry = sink
	}
}

// WithConfig uses a fixed configuration instead of reading it from the environment.
func WithConfig(conf db.DBConfig) Option {
	return func(s *IcebreakerDBService) {
		s.loadConfig = func() (db.DBConfig, error) {
			return conf, conf.Validate()
		}
	}
}

// NewIcebreakerDBService creates the provider without touching the store. The connection and
// the database layout are set up on first use, see EnsureInitialized.
func NewIcebreakerDBService(opts ...Option) *IcebreakerDBService {
	dbService := &IcebreakerDBService{
		secrets:    secrets.EnvProvider{},
		telemetry:  telemetry.NewSlogSink(nil),
		loadConfig: db.ReadDBConfigFromEnv,
		initDone:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(dbService)
	}
	if dbService.store == nil {
		dbService.store = NewMongoStore()
	}
	if dbService.telemetry == nil {
		dbService.telemetry = telemetry.Nop()
	}
	return dbService
}

// EnsureInitialized connects to the store and creates the database and its collections if
// needed. The setup runs once per service; concurrent callers wait for that single attempt
// and all get its result. A failed setup is not retried.
// The setup is not bound to ctx: a caller giving up only stops waiting.
func (dbService *IcebreakerDBService) EnsureInitialized(ctx context.Context) error {
	dbService.initOnce.Do(func() {
		go dbService.runSetup()
	})

	select {
	case <-dbService.initDone:
		return dbService.initErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close disconnects from the store. Pending and later calls fail with ErrProviderClosed if
// the setup has not started yet. If ctx ends while the setup is still running, Close returns
// ctx.Err() and the store is disconnected as soon as the setup is done.
func (dbService *IcebreakerDBService) Close(ctx context.Context) error {
	dbService.initOnce.Do(func() {
		dbService.initErr = ErrProviderClosed
		close(dbService.initDone)
	})

	select {
	case <-dbService.initDone:
		return dbService.disconnect(ctx)
	case <-ctx.Done():
		go func() {
			<-dbService.initDone
			disconnectCtx, cancel := dbService.getContext(context.Background())
			defer cancel()
			if err := dbService.disconnect(disconnectCtx); err != nil {
				slog.Error("Error closing icebreaker DB", slog.String("error", err.Error()))
			}
		}()
		return ctx.Err()
	}
}

// disconnect runs once after the setup finished; later calls return the first result.
func (dbService *IcebreakerDBService) disconnect(ctx context.Context) error {
	dbService.closeMu.Lock()
	defer dbService.closeMu.Unlock()
	if dbService.closed {
		return dbService.closeErr
	}
	dbService.closed = true
	if dbService.initErr == nil {
		dbService.closeErr = dbService.store.Disconnect(ctx)
	}
	return dbService.closeErr
}

func (dbService *IcebreakerDBService) runSetup() {
	start := time.Now()
	err := dbService.setup()
	if err != nil {
		slog.Error("Error initializing icebreaker DB", slog.String("error", err.Error()))
		dbService.telemetry.TrackException(context.Background(), err, map[string]string{"operation": "EnsureInitialized"})
	} else {
		slog.Info("Icebreaker DB initialized", slog.String("db", dbService.conf.DBName()), slog.String("duration", time.Since(start).String()))
	}
	dbService.initErr = err
	close(dbService.initDone)
}

func (dbService *IcebreakerDBService) setup() error {
	conf, err := dbService.loadConfig()
	if err != nil {
		return fmt.Errorf("reading db config: %w", err)
	}
	stepTimeout := time.Duration(conf.Timeout) * time.Second

	key := ""
	if conf.Username != "" {
		ctx, cancel := context.WithTimeout(context.Background(), stepTimeout)
		key, err = dbService.secrets.GetSecret(ctx, conf.KeySecretName)
		cancel()
		if err != nil {
			return fmt.Errorf("reading db key: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), stepTimeout)
	err = dbService.store.Connect(ctx, conf.BuildURI(key), conf)
	cancel()
	if err != nil {
		return fmt.Errorf("connecting to db: %w", err)
	}

	collectionThroughput, err := dbService.createDatabase(conf)
	if err != nil {
		return err
	}

	for _, name := range conf.CollectionNames() {
		ctx, cancel := context.WithTimeout(context.Background(), stepTimeout)
		err := dbService.store.CreateCollectionIfNotExists(ctx, CollectionSpec{
			Name:         name,
			PartitionKey: db.DEFAULT_PARTITION_KEY_FIELD,
			Throughput:   collectionThroughput,
		})
		cancel()
		if err != nil {
			return fmt.Errorf("creating collection %s: %w", name, err)
		}
	}

	dbService.conf = conf
	return nil
}

// createDatabase returns the throughput each collection has to be provisioned with: 0 when
// the database shares its throughput, the configured default otherwise.
func (dbService *IcebreakerDBService) createDatabase(conf db.DBConfig) (int, error) {
	stepTimeout := time.Duration(conf.Timeout) * time.Second

	ctx, cancel := context.WithTimeout(context.Background(), stepTimeout)
	err := dbService.store.CreateDatabaseIfNotExists(ctx, conf.Throughput)
	cancel()
	if err == nil {
		return 0, nil
	}
	if !db.IsSharedThroughputRejected(err) {
		return 0, fmt.Errorf("creating database %s: %w", conf.DBName(), err)
	}

	slog.Warn("Shared throughput not available, provisioning throughput per collection", slog.String("db", conf.DBName()))
	dbService.telemetry.TrackTrace(context.Background(), "shared throughput disabled, using per-collection throughput", map[string]string{
		"db":         conf.DBName(),
		"throughput": fmt.Sprint(conf.Throughput),
	})

	ctx, cancel = context.WithTimeout(context.Background(), stepTimeout)
	err = dbService.store.CreateDatabaseIfNotExists(ctx, 0)
	cancel()
	if err != nil {
		return 0, fmt.Errorf("creating database %s without shared throughput: %w", conf.DBName(), err)
	}
	return conf.Throughput, nil
}

// Config returns the configuration the service was initialized with.
func (dbService *IcebreakerDBService) Config(ctx context.Context) (db.DBConfig, error) {
	if err := dbService.EnsureInitialized(ctx); err != nil {
		return db.DBConfig{}, err
	}
	return dbService.conf, nil
}

func (dbService *IcebreakerDBService) getContext(parent context.Context) (ctx context.Context, cancel context.CancelFunc) {
	return context.WithTimeout(parent, time.Duration(dbService.conf.Timeout)*time.Second)
}

func (dbService *IcebreakerDBService) trackException(ctx context.Context, err error, operation string, collection string, id string) {
	props := map[string]string{
		"operation":  operation,
		"collection": collection,
	}
	if id != "" {
		props["id"] = id
	}
	dbService.telemetry.TrackException(ctx, err, props)
}
