package icebreakerdb

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lucasdreger/microsoft-teams-apps-icebreaker/pkg/types/icebreaker"
)

func (dbService *IcebreakerDBService) collectionPairs() string {
	return dbService.conf.PairsCollection
}

// AddPairRecord appends a pairing of two users to the history. Repeated calls add new records.
func (dbService *IcebreakerDBService) AddPairRecord(ctx context.Context, user1ID string, user2ID string, iteration int) (icebreaker.PairInfo, error) {
	pair := icebreaker.PairInfo{
		ID:        uuid.NewString(),
		User1ID:   user1ID,
		User2ID:   user2ID,
		Iteration: iteration,
		CreatedAt: time.Now().Unix(),
	}
	if err := dbService.EnsureInitialized(ctx); err != nil {
		return pair, err
	}
	if user1ID == "" || user2ID == "" {
		return pair, ErrEmptyID
	}

	ctx, cancel := dbService.getContext(ctx)
	defer cancel()

	err := dbService.store.Insert(ctx, dbService.collectionPairs(), pair)
	return pair, err
}

// ListPairHistory returns all pairings. If the scan fails midway, the records read so far are
// returned together with the error.
func (dbService *IcebreakerDBService) ListPairHistory(ctx context.Context) ([]icebreaker.PairInfo, error) {
	pairs := []icebreaker.PairInfo{}
	err := scanCollection(ctx, dbService, "ListPairHistory", dbService.collectionPairs, QuerySpec{MaxParallelism: -1}, func(pair icebreaker.PairInfo) {
		pairs = append(pairs, pair)
	})
	return pairs, err
}
