package icebreakerdb

import (
	"context"
	"time"

	"github.com/lucasdreger/microsoft-teams-apps-icebreaker/pkg/types/icebreaker"
)

func (dbService *IcebreakerDBService) collectionTeams() string {
	return dbService.conf.TeamsCollection
}

// GetInstalledTeam reads the install record of a team.
func (dbService *IcebreakerDBService) GetInstalledTeam(ctx context.Context, teamID string) Lookup[icebreaker.TeamInstallInfo] {
	return readDocument[icebreaker.TeamInstallInfo](ctx, dbService, "GetInstalledTeam", dbService.collectionTeams, teamID)
}

// UpdateTeamInstallStatus stores the team record when the bot is installed and removes it when
// uninstalled. Removing a team without record returns mongo.ErrNoDocuments.
func (dbService *IcebreakerDBService) UpdateTeamInstallStatus(ctx context.Context, team icebreaker.TeamInstallInfo, installed bool) error {
	if err := dbService.EnsureInitialized(ctx); err != nil {
		return err
	}
	id := team.DocumentID()
	if id == "" {
		return ErrEmptyID
	}

	ctx, cancel := dbService.getContext(ctx)
	defer cancel()

	if !installed {
		return dbService.store.Delete(ctx, dbService.collectionTeams(), id)
	}

	team.ID = id
	if team.TeamID == "" {
		team.TeamID = id
	}
	if team.InstalledAt == 0 {
		team.InstalledAt = time.Now().Unix()
	}
	return dbService.store.Upsert(ctx, dbService.collectionTeams(), id, team)
}

// ListInstalledTeams returns every installed team. If the scan fails midway, the teams read
// so far are returned together with the error.
func (dbService *IcebreakerDBService) ListInstalledTeams(ctx context.Context) ([]icebreaker.TeamInstallInfo, error) {
	teams := []icebreaker.TeamInstallInfo{}
	err := scanCollection(ctx, dbService, "ListInstalledTeams", dbService.collectionTeams, QuerySpec{MaxParallelism: -1}, func(team icebreaker.TeamInstallInfo) {
		teams = append(teams, team)
	})
	return teams, err
}
