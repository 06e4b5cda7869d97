package icebreakerdb

import (
	"context"
	"errors"
	"hash/fnv"
	"sort"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/lucasdreger/microsoft-teams-apps-icebreaker/pkg/db"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// memoryStore is an in-memory DocumentStore. Documents are spread over a fixed number of
// partitions by id and scans return at most batchSize documents of one partition per batch,
// smaller if the query asks for it.
type memoryStore struct {
	mu sync.Mutex

	partitions int
	batchSize  int

	connectCalls atomic.Int32
	connectGate  chan struct{}
	connectErr   error
	connectedURI string
	disconnected bool

	rejectSharedThroughput bool
	createDatabaseErr      error
	dbCreateCalls          []int
	collectionSpecs        []CollectionSpec

	docs map[string]map[string]bson.Raw

	readErr           error
	queryErr          error
	fetchErr          error
	fetchErrAfter     int
	fetchErrWithDocs  bool
	queryHadDeadline  bool
	writeCount        int
	lastQuerySpec     QuerySpec
	lastQueryBatchCnt int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		partitions: 4,
		batchSize:  3,
		docs:       map[string]map[string]bson.Raw{},
	}
}

func (s *memoryStore) Connect(ctx context.Context, uri string, _ db.DBConfig) error {
	s.connectCalls.Add(1)
	if s.connectGate != nil {
		select {
		case <-s.connectGate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connectedURI = uri
	return s.connectErr
}

func (s *memoryStore) CreateDatabaseIfNotExists(_ context.Context, throughput int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dbCreateCalls = append(s.dbCreateCalls, throughput)
	if s.createDatabaseErr != nil {
		return s.createDatabaseErr
	}
	if throughput > 0 && s.rejectSharedThroughput {
		return mongo.CommandError{Code: 2, Message: "Setting offer throughput or autopilot on container is not supported for serverless accounts."}
	}
	return nil
}

func (s *memoryStore) CreateCollectionIfNotExists(_ context.Context, spec CollectionSpec) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[spec.Name]; ok {
		return nil
	}
	s.collectionSpecs = append(s.collectionSpecs, spec)
	s.docs[spec.Name] = map[string]bson.Raw{}
	return nil
}

func (s *memoryStore) collection(name string) (map[string]bson.Raw, error) {
	c, ok := s.docs[name]
	if !ok {
		return nil, mongo.CommandError{Code: 26, Message: "ns does not exist: " + name}
	}
	return c, nil
}

func (s *memoryStore) Upsert(_ context.Context, collection string, id string, doc any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.collection(collection)
	if err != nil {
		return err
	}
	raw, err := bson.Marshal(doc)
	if err != nil {
		return err
	}
	c[id] = raw
	s.writeCount++
	return nil
}

func (s *memoryStore) Patch(_ context.Context, collection string, id string, fields bson.M, upsert bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.collection(collection)
	if err != nil {
		return err
	}
	doc := bson.M{}
	if raw, ok := c[id]; ok {
		if err := bson.Unmarshal(raw, &doc); err != nil {
			return err
		}
	} else if !upsert {
		return mongo.ErrNoDocuments
	}
	for k, v := range fields {
		doc[k] = v
	}
	doc["_id"] = id
	raw, err := bson.Marshal(doc)
	if err != nil {
		return err
	}
	c[id] = raw
	s.writeCount++
	return nil
}

func (s *memoryStore) Insert(_ context.Context, collection string, doc any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.collection(collection)
	if err != nil {
		return err
	}
	raw, err := bson.Marshal(doc)
	if err != nil {
		return err
	}
	id, ok := bson.Raw(raw).Lookup("_id").StringValueOK()
	if !ok || id == "" {
		return errors.New("document without string _id")
	}
	if _, exists := c[id]; exists {
		return errors.New("E11000 duplicate key error")
	}
	c[id] = raw
	s.writeCount++
	return nil
}

func (s *memoryStore) Delete(_ context.Context, collection string, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.collection(collection)
	if err != nil {
		return err
	}
	if _, ok := c[id]; !ok {
		return mongo.ErrNoDocuments
	}
	delete(c, id)
	s.writeCount++
	return nil
}

func (s *memoryStore) Read(_ context.Context, collection string, id string, out any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readErr != nil {
		return s.readErr
	}
	c, err := s.collection(collection)
	if err != nil {
		return err
	}
	raw, ok := c[id]
	if !ok {
		return mongo.ErrNoDocuments
	}
	return bson.Unmarshal(raw, out)
}

func (s *memoryStore) partitionOf(id string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return int(h.Sum32() % uint32(s.partitions))
}

func (s *memoryStore) Query(ctx context.Context, collection string, spec QuerySpec) (Cursor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastQuerySpec = spec
	_, s.queryHadDeadline = ctx.Deadline()
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	c, err := s.collection(collection)
	if err != nil {
		return nil, err
	}

	byPartition := make([][]string, s.partitions)
	for id := range c {
		p := s.partitionOf(id)
		byPartition[p] = append(byPartition[p], id)
	}

	batchSize := s.batchSize
	if spec.BatchSize > 0 && int(spec.BatchSize) < batchSize {
		batchSize = int(spec.BatchSize)
	}

	cursor := &memoryCursor{failErr: s.fetchErr, failAfter: s.fetchErrAfter, failWithDocs: s.fetchErrWithDocs}
	for _, ids := range byPartition {
		sort.Strings(ids)
		for start := 0; start < len(ids); start += batchSize {
			end := min(start+batchSize, len(ids))
			batch := make([]bson.Raw, 0, end-start)
			for _, id := range ids[start:end] {
				raw, err := project(c[id], spec.Projection)
				if err != nil {
					return nil, err
				}
				batch = append(batch, raw)
			}
			cursor.batches = append(cursor.batches, batch)
		}
	}
	s.lastQueryBatchCnt = len(cursor.batches)
	return cursor, nil
}

func project(raw bson.Raw, fields []string) (bson.Raw, error) {
	if len(fields) == 0 {
		return raw, nil
	}
	keep := map[string]bool{}
	for _, f := range fields {
		keep[f] = true
	}
	var doc bson.D
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	projected := bson.D{}
	for _, e := range doc {
		if keep[e.Key] {
			projected = append(projected, e)
		}
	}
	return bson.Marshal(projected)
}

func (s *memoryStore) Disconnect(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disconnected = true
	return nil
}

func (s *memoryStore) isDisconnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disconnected
}

func (s *memoryStore) writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeCount
}

type memoryCursor struct {
	batches   [][]bson.Raw
	next      int
	failErr   error
	failAfter int
	// the failing fetch returns the first document of its batch along with the error
	failWithDocs bool
}

func (c *memoryCursor) HasMoreResults() bool {
	return c.next < len(c.batches)
}

func (c *memoryCursor) FetchNext(context.Context) ([]bson.Raw, error) {
	if c.failErr != nil && c.next == c.failAfter {
		if c.failWithDocs && c.next < len(c.batches) {
			return c.batches[c.next][:1], c.failErr
		}
		return nil, c.failErr
	}
	if c.next >= len(c.batches) {
		return nil, nil
	}
	batch := c.batches[c.next]
	c.next++
	return batch, nil
}

func (c *memoryCursor) Close(context.Context) error {
	return nil
}

type recordingSink struct {
	mu         sync.Mutex
	traces     []string
	exceptions []error
	props      []map[string]string
}

func (r *recordingSink) TrackTrace(_ context.Context, message string, _ map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.traces = append(r.traces, message)
}

func (r *recordingSink) TrackException(_ context.Context, err error, properties map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exceptions = append(r.exceptions, err)
	r.props = append(r.props, properties)
}

func (r *recordingSink) exceptionCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.exceptions)
}

func testConfig() db.DBConfig {
	return db.DBConfig{
		Endpoint:        "localhost:27017",
		DatabaseName:    "icebreaker",
		PairsCollection: "pairs",
		TeamsCollection: "teams",
		UsersCollection: "users",
		KeySecretName:   "icebreaker-db-key",
		Timeout:         5,
		Throughput:      400,
	}
}

func newTestService(t *testing.T, store *memoryStore, opts ...Option) (*IcebreakerDBService, *recordingSink) {
	t.Helper()
	sink := &recordingSink{}
	opts = append([]Option{
		WithStore(store),
		WithConfig(testConfig()),
		WithTelemetry(sink),
	}, opts...)
	dbService := NewIcebreakerDBService(opts...)
	t.Cleanup(func() {
		_ = dbService.Close(context.Background())
	})
	return dbService, sink
}
