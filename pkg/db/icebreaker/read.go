package icebreakerdb

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
)

// readDocument reads one document by id. Failures are tracked and reported as LookupFailed,
// a missing document as LookupNotFound.
func readDocument[T any](ctx context.Context, dbService *IcebreakerDBService, operation string, collection func() string, id string) Lookup[T] {
	if err := dbService.EnsureInitialized(ctx); err != nil {
		dbService.trackException(ctx, err, operation, "", id)
		return lookupFailed[T](err)
	}
	if id == "" {
		return lookupNotFound[T]()
	}

	ctx, cancel := dbService.getContext(ctx)
	defer cancel()

	var doc T
	err := dbService.store.Read(ctx, collection(), id, &doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return lookupNotFound[T]()
		}
		dbService.trackException(ctx, err, operation, collection(), id)
		return lookupFailed[T](err)
	}
	return lookupFound(doc)
}
