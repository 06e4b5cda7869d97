package apihandlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	icebreakerDB "github.com/lucasdreger/microsoft-teams-apps-icebreaker/pkg/db/icebreaker"
	"github.com/lucasdreger/microsoft-teams-apps-icebreaker/pkg/types/icebreaker"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/gin-gonic/gin"
)

// PairingDataProvider is the data layer the handlers work on, implemented by
// icebreakerDB.IcebreakerDBService.
type PairingDataProvider interface {
	GetInstalledTeam(ctx context.Context, teamID string) icebreakerDB.Lookup[icebreaker.TeamInstallInfo]
	UpdateTeamInstallStatus(ctx context.Context, team icebreaker.TeamInstallInfo, installed bool) error
	ListInstalledTeams(ctx context.Context) ([]icebreaker.TeamInstallInfo, error)

	GetUser(ctx context.Context, userID string) icebreakerDB.Lookup[icebreaker.UserInfo]
	SetUser(ctx context.Context, tenantID string, userID string, optedIn map[string]bool, serviceURL string) error
	SetUserProfile(ctx context.Context, userID string, profile string) error
	AddUserTeam(ctx context.Context, tenantID string, userID string, teamID string, serviceURL string) error
	RemoveUserTeam(ctx context.Context, userID string, teamID string) error
	GetAllUsersOptInStatus(ctx context.Context) (map[string]map[string]bool, error)
	GetAllUsersProfile(ctx context.Context) (map[string]string, error)

	AddPairRecord(ctx context.Context, user1ID string, user2ID string, iteration int) (icebreaker.PairInfo, error)
	ListPairHistory(ctx context.Context) ([]icebreaker.PairInfo, error)
}

func HealthCheckHandle(c *gin.Context) {
	serviceInfos := make(map[string]interface{})
	infos, err := os.ReadFile("serviceInfos.json")
	if err != nil {
		slog.Debug("Error reading serviceInfos.json", slog.String("error", err.Error()))
	} else {
		err = json.Unmarshal(infos, &serviceInfos)
		if err != nil {
			slog.Debug("Error unmarshalling serviceInfos.json", slog.String("error", err.Error()))
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":       "ok",
		"serviceInfos": serviceInfos,
	})
}

type HttpEndpoints struct {
	dataProvider   PairingDataProvider
	apiKeys        []string
	adminAPIKeys   []string
	tokenSignKey   string
	tokenExpiresIn time.Duration
}

func NewHTTPHandler(
	dataProvider PairingDataProvider,
	apiKeys []string,
	adminAPIKeys []string,
	tokenSignKey string,
	tokenExpiresIn time.Duration,
) *HttpEndpoints {
	return &HttpEndpoints{
		dataProvider:   dataProvider,
		apiKeys:        apiKeys,
		adminAPIKeys:   adminAPIKeys,
		tokenSignKey:   tokenSignKey,
		tokenExpiresIn: tokenExpiresIn,
	}
}

// statusForLookup maps a failed or missing lookup to a response status.
func statusForLookup(status icebreakerDB.LookupStatus) int {
	if status == icebreakerDB.LookupNotFound {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func statusForWriteError(err error) int {
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return http.StatusNotFound
	case errors.Is(err, icebreakerDB.ErrEmptyID):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
