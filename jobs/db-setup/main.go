package main

import (
	"context"
	"log/slog"
	"os"
	"time"
)

func main() {
	err := setupDB()
	if err == nil && conf.TaskConfigs.CountDocuments {
		countDocuments()
	}

	closeDB()
	if err != nil {
		os.Exit(1)
	}
}

func setupDB() error {
	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), setupTimeout)
	defer cancel()

	if err := dbService.EnsureInitialized(ctx); err != nil {
		slog.Error("Error setting up icebreaker DB", slog.String("error", err.Error()))
		return err
	}

	dbConf, err := dbService.Config(ctx)
	if err != nil {
		return err
	}
	slog.Info("Icebreaker DB ready",
		slog.String("db", dbConf.DBName()),
		slog.String("pairs", dbConf.PairsCollection),
		slog.String("teams", dbConf.TeamsCollection),
		slog.String("users", dbConf.UsersCollection),
		slog.String("duration", time.Since(start).String()))
	return nil
}

func countDocuments() {
	ctx := context.Background()
	start := time.Now()

	teams, err := dbService.ListInstalledTeams(ctx)
	if err != nil {
		slog.Error("Error counting teams", slog.String("error", err.Error()), slog.Int("partialCount", len(teams)))
	}

	users, err := dbService.GetAllUsersOptInStatus(ctx)
	if err != nil {
		slog.Error("Error counting users", slog.String("error", err.Error()))
	}
	optedIn := 0
	for _, teams := range users {
		for _, active := range teams {
			if active {
				optedIn++
			}
		}
	}

	pairs, err := dbService.ListPairHistory(ctx)
	if err != nil {
		slog.Error("Error counting pairs", slog.String("error", err.Error()), slog.Int("partialCount", len(pairs)))
	}

	slog.Info("Icebreaker DB content",
		slog.Int("teams", len(teams)),
		slog.Int("users", len(users)),
		slog.Int("activeOptIns", optedIn),
		slog.Int("pairs", len(pairs)),
		slog.String("duration", time.Since(start).String()))
}
