package icebreakerdb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
)

// scanCollection pages through all partitions of a collection and hands every decoded
// document to fn. The scan stops at the first error, which is tracked and returned.
func scanCollection[T any](ctx context.Context, dbService *IcebreakerDBService, operation string, collection func() string, spec QuerySpec, fn func(T)) error {
	if err := dbService.EnsureInitialized(ctx); err != nil {
		dbService.trackException(ctx, err, operation, "", "")
		return err
	}

	err := dbService.scan(ctx, collection(), spec, func(raw bson.Raw) error {
		var doc T
		if err := bson.Unmarshal(raw, &doc); err != nil {
			return fmt.Errorf("decoding document: %w", err)
		}
		fn(doc)
		return nil
	})
	if err != nil {
		dbService.trackException(ctx, err, operation, collection(), "")
	}
	return err
}

func (dbService *IcebreakerDBService) scan(ctx context.Context, collection string, spec QuerySpec, fn func(bson.Raw) error) error {
	queryCtx, cancel := dbService.getContext(ctx)
	cursor, err := dbService.store.Query(queryCtx, collection, spec)
	cancel()
	if err != nil {
		return err
	}
	defer cursor.Close(context.WithoutCancel(ctx))

	for cursor.HasMoreResults() {
		batchCtx, cancel := dbService.getContext(ctx)
		batch, fetchErr := cursor.FetchNext(batchCtx)
		cancel()
		// documents read before a failure are still handed out
		for _, raw := range batch {
			if err := fn(raw); err != nil {
				return err
			}
		}
		if fetchErr != nil {
			return fetchErr
		}
	}
	return nil
}
