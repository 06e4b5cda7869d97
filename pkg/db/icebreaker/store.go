package icebreakerdb

import (
	"context"
	"math"

	"github.com/lucasdreger/microsoft-teams-apps-icebreaker/pkg/db"
	"go.mongodb.org/mongo-driver/bson"
)

type CollectionSpec struct {
	Name         string
	PartitionKey string
	// Throughput provisioned for the collection itself. 0 shares the database throughput.
	Throughput int
}

const MaxBatchSize int32 = math.MaxInt32

type QuerySpec struct {
	// Projection limits the returned fields. Empty returns full documents.
	Projection []string
	// BatchSize of 0 keeps the store default, which for MongoDB is 101 documents in the
	// first batch. MaxBatchSize lets the server fill every batch up to its size limit.
	BatchSize int32
	// MaxParallelism is a hint for cross-partition fan-out. Negative lets the store decide.
	MaxParallelism int
}

// DocumentStore is the backing document database. Every document is addressed by its id,
// which is also its partition key. Reads, patches without upsert and deletes of missing
// documents return mongo.ErrNoDocuments.
type DocumentStore interface {
	Connect(ctx context.Context, uri string, conf db.DBConfig) error
	// CreateDatabaseIfNotExists returns an error matching db.ErrSharedThroughputDisabled if
	// throughput > 0 cannot be provisioned on the database level.
	CreateDatabaseIfNotExists(ctx context.Context, throughput int) error
	CreateCollectionIfNotExists(ctx context.Context, spec CollectionSpec) error

	Upsert(ctx context.Context, collection string, id string, doc any) error
	Patch(ctx context.Context, collection string, id string, fields bson.M, upsert bool) error
	Insert(ctx context.Context, collection string, doc any) error
	Delete(ctx context.Context, collection string, id string) error
	Read(ctx context.Context, collection string, id string, out any) error
	// Query starts a scan over all partitions of the collection.
	Query(ctx context.Context, collection string, spec QuerySpec) (Cursor, error)

	Disconnect(ctx context.Context) error
}

// Cursor pages through a cross-partition scan.
type Cursor interface {
	HasMoreResults() bool
	FetchNext(ctx context.Context) ([]bson.Raw, error)
	Close(ctx context.Context) error
}
