package icebreakerdb

import (
	"context"

	"github.com/lucasdreger/microsoft-teams-apps-icebreaker/pkg/types/icebreaker"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func (dbService *IcebreakerDBService) collectionUsers() string {
	return dbService.conf.UsersCollection
}

// GetUser reads the pairing state of a user.
func (dbService *IcebreakerDBService) GetUser(ctx context.Context, userID string) Lookup[icebreaker.UserInfo] {
	return readDocument[icebreaker.UserInfo](ctx, dbService, "GetUser", dbService.collectionUsers, userID)
}

// SetUser writes the tenant, service URL and opted-in teams of a user, creating the user if
// needed. Only these fields are replaced: a stored profile is kept.
func (dbService *IcebreakerDBService) SetUser(ctx context.Context, tenantID string, userID string, optedIn map[string]bool, serviceURL string) error {
	if err := dbService.EnsureInitialized(ctx); err != nil {
		return err
	}
	if userID == "" {
		return ErrEmptyID
	}
	if optedIn == nil {
		optedIn = map[string]bool{}
	}

	ctx, cancel := dbService.getContext(ctx)
	defer cancel()

	return dbService.store.Patch(ctx, dbService.collectionUsers(), userID, bson.M{
		"tenantId":   tenantID,
		"userId":     userID,
		"serviceUrl": serviceURL,
		"optedIn":    optedIn,
	}, true)
}

// SetUserProfile updates the profile text of an existing user. Returns mongo.ErrNoDocuments if
// the user is unknown.
func (dbService *IcebreakerDBService) SetUserProfile(ctx context.Context, userID string, profile string) error {
	if err := dbService.EnsureInitialized(ctx); err != nil {
		return err
	}
	if userID == "" {
		return ErrEmptyID
	}

	ctx, cancel := dbService.getContext(ctx)
	defer cancel()

	return dbService.store.Patch(ctx, dbService.collectionUsers(), userID, bson.M{
		"profile": profile,
	}, false)
}

// AddUserTeam opts the user into pairings of the team, creating the user if needed.
// Concurrent changes to the teams of the same user may overwrite each other.
func (dbService *IcebreakerDBService) AddUserTeam(ctx context.Context, tenantID string, userID string, teamID string, serviceURL string) error {
	if teamID == "" {
		return ErrEmptyID
	}
	current := dbService.GetUser(ctx, userID)
	if current.Status == LookupFailed {
		return current.Err
	}

	optedIn := current.Value.CopyOptedIn()
	optedIn[teamID] = true
	return dbService.SetUser(ctx, tenantID, userID, optedIn, serviceURL)
}

// RemoveUserTeam drops the team from the user's opted-in teams. Returns mongo.ErrNoDocuments if
// the user is unknown; a team the user is not part of is ignored.
func (dbService *IcebreakerDBService) RemoveUserTeam(ctx context.Context, userID string, teamID string) error {
	current := dbService.GetUser(ctx, userID)
	switch current.Status {
	case LookupFailed:
		return current.Err
	case LookupNotFound:
		return mongo.ErrNoDocuments
	}

	user := current.Value
	if _, ok := user.OptedIn[teamID]; !ok {
		return nil
	}
	optedIn := user.CopyOptedIn()
	delete(optedIn, teamID)
	return dbService.SetUser(ctx, user.TenantID, userID, optedIn, user.ServiceURL)
}

// GetAllUsersOptInStatus maps every user id to the user's opted-in teams. On failure the map
// is nil and the error is set; no users results in an empty map.
func (dbService *IcebreakerDBService) GetAllUsersOptInStatus(ctx context.Context) (map[string]map[string]bool, error) {
	status := map[string]map[string]bool{}
	err := scanCollection(ctx, dbService, "GetAllUsersOptInStatus", dbService.collectionUsers, QuerySpec{
		Projection:     []string{"_id", "optedIn"},
		BatchSize:      MaxBatchSize,
		MaxParallelism: -1,
	}, func(user icebreaker.UserInfo) {
		status[user.ID] = user.CopyOptedIn()
	})
	if err != nil {
		return nil, err
	}
	return status, nil
}

// GetAllUsersProfile maps every user id to the user's profile text, with the same failure
// reporting as GetAllUsersOptInStatus.
func (dbService *IcebreakerDBService) GetAllUsersProfile(ctx context.Context) (map[string]string, error) {
	profiles := map[string]string{}
	err := scanCollection(ctx, dbService, "GetAllUsersProfile", dbService.collectionUsers, QuerySpec{
		Projection:     []string{"_id", "profile"},
		BatchSize:      MaxBatchSize,
		MaxParallelism: -1,
	}, func(user icebreaker.UserInfo) {
		profiles[user.ID] = user.Profile
	})
	if err != nil {
		return nil, err
	}
	return profiles, nil
}
