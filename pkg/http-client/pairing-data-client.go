package httpclient

import (
	"context"
	"net/http"

	"github.com/lucasdreger/microsoft-teams-apps-icebreaker/pkg/types/icebreaker"
)

// PairingDataClient calls the pairing data API on behalf of the bot. Lookups of unknown
// records fail with an error matching ErrNotFound.
type PairingDataClient struct {
	c *client
}

func NewPairingDataClient(cConfig ClientConfig) (*PairingDataClient, error) {
	c, err := newClient(cConfig)
	if err != nil {
		return nil, err
	}
	return &PairingDataClient{c: c}, nil
}

func (p *PairingDataClient) GetInstalledTeam(ctx context.Context, teamID string) (icebreaker.TeamInstallInfo, error) {
	var resp struct {
		Team icebreaker.TeamInstallInfo `json:"team"`
	}
	err := p.c.do(ctx, http.MethodGet, "/v1/teams/"+pathSegment(teamID), nil, &resp)
	return resp.Team, err
}

func (p *PairingDataClient) ListInstalledTeams(ctx context.Context) ([]icebreaker.TeamInstallInfo, error) {
	var resp struct {
		Teams []icebreaker.TeamInstallInfo `json:"teams"`
	}
	err := p.c.do(ctx, http.MethodGet, "/v1/teams", nil, &resp)
	return resp.Teams, err
}

func (p *PairingDataClient) InstallTeam(ctx context.Context, team icebreaker.TeamInstallInfo) error {
	payload := map[string]string{
		"tenantId":      team.TenantID,
		"serviceUrl":    team.ServiceURL,
		"installerName": team.InstallerName,
		"botId":         team.BotID,
	}
	return p.c.do(ctx, http.MethodPut, "/v1/teams/"+pathSegment(team.DocumentID()), payload, nil)
}

func (p *PairingDataClient) UninstallTeam(ctx context.Context, teamID string) error {
	return p.c.do(ctx, http.MethodDelete, "/v1/teams/"+pathSegment(teamID), nil, nil)
}

func (p *PairingDataClient) GetUser(ctx context.Context, userID string) (icebreaker.UserInfo, error) {
	var resp struct {
		User icebreaker.UserInfo `json:"user"`
	}
	err := p.c.do(ctx, http.MethodGet, "/v1/users/"+pathSegment(userID), nil, &resp)
	return resp.User, err
}

func (p *PairingDataClient) SetUser(ctx context.Context, tenantID string, userID string, optedIn map[string]bool, serviceURL string) error {
	payload := map[string]any{
		"tenantId":   tenantID,
		"serviceUrl": serviceURL,
		"optedIn":    optedIn,
	}
	return p.c.do(ctx, http.MethodPut, "/v1/users/"+pathSegment(userID), payload, nil)
}

func (p *PairingDataClient) SetUserProfile(ctx context.Context, userID string, profile string) error {
	payload := map[string]string{"profile": profile}
	return p.c.do(ctx, http.MethodPut, "/v1/users/"+pathSegment(userID)+"/profile", payload, nil)
}

func (p *PairingDataClient) AddUserTeam(ctx context.Context, tenantID string, userID string, teamID string, serviceURL string) error {
	payload := map[string]string{
		"tenantId":   tenantID,
		"serviceUrl": serviceURL,
	}
	return p.c.do(ctx, http.MethodPost, "/v1/users/"+pathSegment(userID)+"/teams/"+pathSegment(teamID), payload, nil)
}

func (p *PairingDataClient) RemoveUserTeam(ctx context.Context, userID string, teamID string) error {
	return p.c.do(ctx, http.MethodDelete, "/v1/users/"+pathSegment(userID)+"/teams/"+pathSegment(teamID), nil, nil)
}

func (p *PairingDataClient) AddPairRecord(ctx context.Context, user1ID string, user2ID string, iteration int) (icebreaker.PairInfo, error) {
	payload := map[string]any{
		"user1Id":   user1ID,
		"user2Id":   user2ID,
		"iteration": iteration,
	}
	var resp struct {
		Pair icebreaker.PairInfo `json:"pair"`
	}
	err := p.c.do(ctx, http.MethodPost, "/v1/pairs", payload, &resp)
	return resp.Pair, err
}
