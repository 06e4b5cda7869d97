package icebreakerdb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lucasdreger/microsoft-teams-apps-icebreaker/pkg/db"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore implements DocumentStore on MongoDB. Throughput and partitioning are applied
// through the Azure Cosmos DB for MongoDB extension commands; on a plain MongoDB server these
// are skipped and the database and collections are created without them.
type MongoStore struct {
	DBClient        *mongo.Client
	dbName          string
	noCursorTimeout bool
}

func NewMongoStore() *MongoStore {
	return &MongoStore{}
}

func (store *MongoStore) Connect(ctx context.Context, uri string, conf db.DBConfig) error {
	dbClient, err := mongo.Connect(ctx,
		options.Client().ApplyURI(uri),
		options.Client().SetMaxConnIdleTime(time.Duration(conf.IdleConnTimeout)*time.Second),
		options.Client().SetMaxPoolSize(conf.MaxPoolSize),
	)
	if err != nil {
		return err
	}

	if err := dbClient.Ping(ctx, nil); err != nil {
		_ = dbClient.Disconnect(context.WithoutCancel(ctx))
		return err
	}

	store.DBClient = dbClient
	store.dbName = conf.DBName()
	store.noCursorTimeout = conf.NoCursorTimeout
	return nil
}

func (store *MongoStore) database() *mongo.Database {
	return store.DBClient.Database(store.dbName)
}

func (store *MongoStore) collection(name string) *mongo.Collection {
	return store.database().Collection(name)
}

func (store *MongoStore) CreateDatabaseIfNotExists(ctx context.Context, throughput int) error {
	names, err := store.DBClient.ListDatabaseNames(ctx, bson.M{"name": store.dbName})
	if err != nil {
		return err
	}
	if len(names) > 0 {
		return nil
	}

	cmd := bson.D{{Key: "customAction", Value: "CreateDatabase"}}
	if throughput > 0 {
		cmd = append(cmd, bson.E{Key: "offerThroughput", Value: throughput})
	}
	err = store.database().RunCommand(ctx, cmd).Err()
	switch {
	case err == nil, db.IsNamespaceExists(err):
		return nil
	case db.IsCommandNotFound(err):
		// plain MongoDB creates the database with its first collection
		slog.Debug("Extension commands not available, database is created implicitly", slog.String("db", store.dbName))
		return nil
	case throughput > 0 && db.IsSharedThroughputRejected(err):
		return fmt.Errorf("%w: %s", db.ErrSharedThroughputDisabled, err.Error())
	default:
		return err
	}
}

func (store *MongoStore) CreateCollectionIfNotExists(ctx context.Context, spec CollectionSpec) error {
	names, err := store.database().ListCollectionNames(ctx, bson.M{"name": spec.Name})
	if err != nil {
		return err
	}
	if len(names) > 0 {
		return nil
	}

	cmd := bson.D{
		{Key: "customAction", Value: "CreateCollection"},
		{Key: "collection", Value: spec.Name},
	}
	if spec.PartitionKey != "" {
		cmd = append(cmd, bson.E{Key: "shardKey", Value: spec.PartitionKey})
	}
	if spec.Throughput > 0 {
		cmd = append(cmd, bson.E{Key: "offerThroughput", Value: spec.Throughput})
	}
	err = store.database().RunCommand(ctx, cmd).Err()
	if db.IsCommandNotFound(err) {
		slog.Debug("Extension commands not available, creating plain collection", slog.String("collection", spec.Name))
		err = store.database().CreateCollection(ctx, spec.Name)
	}
	if err != nil && !db.IsNamespaceExists(err) {
		return err
	}
	return nil
}

func (store *MongoStore) Upsert(ctx context.Context, collection string, id string, doc any) error {
	_, err := store.collection(collection).ReplaceOne(ctx, bson.M{"_id": id}, doc, options.Replace().SetUpsert(true))
	return err
}

func (store *MongoStore) Patch(ctx context.Context, collection string, id string, fields bson.M, upsert bool) error {
	res, err := store.collection(collection).UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": fields},
		options.Update().SetUpsert(upsert),
	)
	if err != nil {
		return err
	}
	if !upsert && res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (store *MongoStore) Insert(ctx context.Context, collection string, doc any) error {
	_, err := store.collection(collection).InsertOne(ctx, doc)
	return err
}

func (store *MongoStore) Delete(ctx context.Context, collection string, id string) error {
	res, err := store.collection(collection).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (store *MongoStore) Read(ctx context.Context, collection string, id string, out any) error {
	return store.collection(collection).FindOne(ctx, bson.M{"_id": id}).Decode(out)
}

// Query scans the whole collection. The parallelism hint is not used: the cross-partition
// fan-out is done by the server.
func (store *MongoStore) Query(ctx context.Context, collection string, spec QuerySpec) (Cursor, error) {
	opts := options.Find()
	if len(spec.Projection) > 0 {
		projection := bson.D{}
		for _, field := range spec.Projection {
			projection = append(projection, bson.E{Key: field, Value: 1})
		}
		opts.SetProjection(projection)
	}
	if spec.BatchSize > 0 {
		opts.SetBatchSize(spec.BatchSize)
	}
	if store.noCursorTimeout {
		opts.SetNoCursorTimeout(true)
	}

	cursor, err := store.collection(collection).Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, err
	}
	return &mongoCursor{cursor: cursor}, nil
}

func (store *MongoStore) Disconnect(ctx context.Context) error {
	if store.DBClient == nil {
		return nil
	}
	err := store.DBClient.Disconnect(ctx)
	if errors.Is(err, mongo.ErrClientDisconnected) {
		return nil
	}
	return err
}

type mongoCursor struct {
	cursor    *mongo.Cursor
	exhausted bool
}

func (c *mongoCursor) HasMoreResults() bool {
	return !c.exhausted
}

// FetchNext returns the documents of the next server batch.
func (c *mongoCursor) FetchNext(ctx context.Context) ([]bson.Raw, error) {
	if c.exhausted {
		return nil, nil
	}
	if !c.cursor.Next(ctx) {
		c.exhausted = true
		return nil, c.cursor.Err()
	}

	batch := []bson.Raw{cloneRaw(c.cursor.Current)}
	for c.cursor.RemainingBatchLength() > 0 && c.cursor.Next(ctx) {
		batch = append(batch, cloneRaw(c.cursor.Current))
	}
	if err := c.cursor.Err(); err != nil {
		return batch, err
	}
	if c.cursor.ID() == 0 && c.cursor.RemainingBatchLength() == 0 {
		c.exhausted = true
	}
	return batch, nil
}

func (c *mongoCursor) Close(ctx context.Context) error {
	return c.cursor.Close(ctx)
}

// the cursor reuses the buffer behind Current
func cloneRaw(raw bson.Raw) bson.Raw {
	return append(bson.Raw(nil), raw...)
}
