package apihandlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	mw "github.com/lucasdreger/microsoft-teams-apps-icebreaker/pkg/apihelpers/middlewares"
	icebreakerDB "github.com/lucasdreger/microsoft-teams-apps-icebreaker/pkg/db/icebreaker"
	jwthandling "github.com/lucasdreger/microsoft-teams-apps-icebreaker/pkg/jwt-handling"
	"github.com/lucasdreger/microsoft-teams-apps-icebreaker/pkg/types/icebreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	testAPIKey   = "bot-key"
	testAdminKey = "admin-key"
	testSignKey  = "admin-sign-key"
	testTenantID = "tenant-1"
)

// fakeProvider keeps the pairing data in maps and fails every call once failErr is set.
type fakeProvider struct {
	mu      sync.Mutex
	teams   map[string]icebreaker.TeamInstallInfo
	users   map[string]icebreaker.UserInfo
	pairs   []icebreaker.PairInfo
	failErr error
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		teams: map[string]icebreaker.TeamInstallInfo{},
		users: map[string]icebreaker.UserInfo{},
	}
}

func (f *fakeProvider) GetInstalledTeam(_ context.Context, teamID string) icebreakerDB.Lookup[icebreaker.TeamInstallInfo] {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return icebreakerDB.Lookup[icebreaker.TeamInstallInfo]{Status: icebreakerDB.LookupFailed, Err: f.failErr}
	}
	team, ok := f.teams[teamID]
	if !ok {
		return icebreakerDB.Lookup[icebreaker.TeamInstallInfo]{Status: icebreakerDB.LookupNotFound}
	}
	return icebreakerDB.Lookup[icebreaker.TeamInstallInfo]{Status: icebreakerDB.LookupFound, Value: team}
}

func (f *fakeProvider) UpdateTeamInstallStatus(_ context.Context, team icebreaker.TeamInstallInfo, installed bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return f.failErr
	}
	id := team.DocumentID()
	if !installed {
		if _, ok := f.teams[id]; !ok {
			return mongo.ErrNoDocuments
		}
		delete(f.teams, id)
		return nil
	}
	team.ID = id
	f.teams[id] = team
	return nil
}

func (f *fakeProvider) ListInstalledTeams(context.Context) ([]icebreaker.TeamInstallInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	teams := []icebreaker.TeamInstallInfo{}
	for _, team := range f.teams {
		teams = append(teams, team)
	}
	return teams, f.failErr
}

func (f *fakeProvider) GetUser(_ context.Context, userID string) icebreakerDB.Lookup[icebreaker.UserInfo] {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return icebreakerDB.Lookup[icebreaker.UserInfo]{Status: icebreakerDB.LookupFailed, Err: f.failErr}
	}
	user, ok := f.users[userID]
	if !ok {
		return icebreakerDB.Lookup[icebreaker.UserInfo]{Status: icebreakerDB.LookupNotFound}
	}
	return icebreakerDB.Lookup[icebreaker.UserInfo]{Status: icebreakerDB.LookupFound, Value: user}
}

func (f *fakeProvider) SetUser(_ context.Context, tenantID string, userID string, optedIn map[string]bool, serviceURL string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return f.failErr
	}
	user := f.users[userID]
	user.ID, user.UserID, user.TenantID, user.ServiceURL = userID, userID, tenantID, serviceURL
	user.OptedIn = optedIn
	f.users[userID] = user
	return nil
}

func (f *fakeProvider) SetUserProfile(_ context.Context, userID string, profile string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return f.failErr
	}
	user, ok := f.users[userID]
	if !ok {
		return mongo.ErrNoDocuments
	}
	user.Profile = profile
	f.users[userID] = user
	return nil
}

func (f *fakeProvider) AddUserTeam(ctx context.Context, tenantID string, userID string, teamID string, serviceURL string) error {
	current := f.GetUser(ctx, userID)
	if current.Status == icebreakerDB.LookupFailed {
		return current.Err
	}
	optedIn := current.Value.CopyOptedIn()
	optedIn[teamID] = true
	return f.SetUser(ctx, tenantID, userID, optedIn, serviceURL)
}

func (f *fakeProvider) RemoveUserTeam(ctx context.Context, userID string, teamID string) error {
	current := f.GetUser(ctx, userID)
	switch current.Status {
	case icebreakerDB.LookupFailed:
		return current.Err
	case icebreakerDB.LookupNotFound:
		return mongo.ErrNoDocuments
	}
	optedIn := current.Value.CopyOptedIn()
	delete(optedIn, teamID)
	return f.SetUser(ctx, current.Value.TenantID, userID, optedIn, current.Value.ServiceURL)
}

func (f *fakeProvider) GetAllUsersOptInStatus(context.Context) (map[string]map[string]bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return nil, f.failErr
	}
	status := map[string]map[string]bool{}
	for id, user := range f.users {
		status[id] = user.CopyOptedIn()
	}
	return status, nil
}

func (f *fakeProvider) GetAllUsersProfile(context.Context) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return nil, f.failErr
	}
	profiles := map[string]string{}
	for id, user := range f.users {
		profiles[id] = user.Profile
	}
	return profiles, nil
}

func (f *fakeProvider) AddPairRecord(_ context.Context, user1ID string, user2ID string, iteration int) (icebreaker.PairInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pair := icebreaker.PairInfo{ID: "pair-" + user1ID + "-" + user2ID, User1ID: user1ID, User2ID: user2ID, Iteration: iteration}
	if f.failErr != nil {
		return pair, f.failErr
	}
	f.pairs = append(f.pairs, pair)
	return pair, nil
}

func (f *fakeProvider) ListPairHistory(context.Context) ([]icebreaker.PairInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]icebreaker.PairInfo{}, f.pairs...), f.failErr
}

func newTestRouter(provider PairingDataProvider) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/", HealthCheckHandle)
	v1Root := router.Group("/v1")

	h := NewHTTPHandler(provider, []string{testAPIKey}, []string{testAdminKey}, testSignKey, time.Hour)
	h.AddTeamsAPI(v1Root)
	h.AddUsersAPI(v1Root)
	h.AddPairsAPI(v1Root)
	h.AddAdminAPI(v1Root)
	return router
}

func botRequest(router *gin.Engine, method string, path string, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(mw.HeaderAPIKey, testAPIKey)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func adminRequest(t *testing.T, router *gin.Engine, path string) *httptest.ResponseRecorder {
	t.Helper()
	token, err := jwthandling.GenerateNewAdminToken(time.Minute, "admin", true, nil, testSignKey)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set(mw.HeaderAuthorization, "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]json.RawMessage {
	t.Helper()
	body := map[string]json.RawMessage{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestHealthCheck(t *testing.T) {
	router := newTestRouter(newFakeProvider())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestTeamsAPI(t *testing.T) {
	provider := newFakeProvider()
	router := newTestRouter(provider)

	w := botRequest(router, http.MethodGet, "/v1/teams/19:team@thread.skype", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = botRequest(router, http.MethodPut, "/v1/teams/19:team@thread.skype", `{"tenantId":"tenant-1","serviceUrl":"https://smba.trafficmanager.net/emea/","installerName":"Ada"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = botRequest(router, http.MethodGet, "/v1/teams/19:team@thread.skype", "")
	require.Equal(t, http.StatusOK, w.Code)
	var team icebreaker.TeamInstallInfo
	require.NoError(t, json.Unmarshal(decode(t, w)["team"], &team))
	assert.Equal(t, "19:team@thread.skype", team.TeamID)
	assert.Equal(t, "Ada", team.InstallerName)

	w = botRequest(router, http.MethodGet, "/v1/teams", "")
	require.Equal(t, http.StatusOK, w.Code)
	var teams []icebreaker.TeamInstallInfo
	require.NoError(t, json.Unmarshal(decode(t, w)["teams"], &teams))
	assert.Len(t, teams, 1)

	w = botRequest(router, http.MethodDelete, "/v1/teams/19:team@thread.skype", "")
	assert.Equal(t, http.StatusOK, w.Code)
	w = botRequest(router, http.MethodDelete, "/v1/teams/19:team@thread.skype", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = botRequest(router, http.MethodPut, "/v1/teams/t2", `{"tenantId":"tenant-1"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code, "service url is required")
}

func TestUsersAPI(t *testing.T) {
	provider := newFakeProvider()
	router := newTestRouter(provider)

	w := botRequest(router, http.MethodPut, "/v1/users/u1/profile", `{"profile":"likes chess"}`)
	assert.Equal(t, http.StatusNotFound, w.Code, "profile of an unknown user")

	w = botRequest(router, http.MethodPost, "/v1/users/u1/teams/t1", `{"tenantId":"tenant-1","serviceUrl":"https://smba"}`)
	require.Equal(t, http.StatusOK, w.Code)
	w = botRequest(router, http.MethodPut, "/v1/users/u1/profile", `{"profile":"likes chess"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = botRequest(router, http.MethodGet, "/v1/users/u1", "")
	require.Equal(t, http.StatusOK, w.Code)
	var user icebreaker.UserInfo
	require.NoError(t, json.Unmarshal(decode(t, w)["user"], &user))
	assert.Equal(t, map[string]bool{"t1": true}, user.OptedIn)
	assert.Equal(t, "likes chess", user.Profile)

	w = botRequest(router, http.MethodDelete, "/v1/users/u1/teams/t1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, provider.users["u1"].OptedIn)

	w = botRequest(router, http.MethodDelete, "/v1/users/unknown/teams/t1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = botRequest(router, http.MethodPut, "/v1/users/u2", `{"tenantId":"tenant-1","serviceUrl":"https://smba","optedIn":{"t1":true,"t2":false}}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, testTenantID, provider.users["u2"].TenantID)

	w = botRequest(router, http.MethodPut, "/v1/users/u2", `{"optedIn":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPairsAPI(t *testing.T) {
	provider := newFakeProvider()
	router := newTestRouter(provider)

	w := botRequest(router, http.MethodPost, "/v1/pairs", `{"user1Id":"u1","user2Id":"u2","iteration":3}`)
	require.Equal(t, http.StatusOK, w.Code)
	var pair icebreaker.PairInfo
	require.NoError(t, json.Unmarshal(decode(t, w)["pair"], &pair))
	assert.Equal(t, 3, pair.Iteration)

	w = botRequest(router, http.MethodPost, "/v1/pairs", `{"user1Id":"u1","user2Id":"u1"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = botRequest(router, http.MethodPost, "/v1/pairs", `{"user1Id":"u1"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Len(t, provider.pairs, 1)
}

func TestAuth(t *testing.T) {
	router := newTestRouter(newFakeProvider())

	req := httptest.NewRequest(http.MethodGet, "/v1/teams", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code, "bot routes need an api key")

	req = httptest.NewRequest(http.MethodGet, "/v1/admin/pairs", nil)
	req.Header.Set(mw.HeaderAPIKey, testAPIKey)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code, "admin routes need a token")

	w = botRequest(router, http.MethodPost, "/v1/auth/admin-token", `{"subject":"ops"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code, "bot keys cannot request admin tokens")

	req = httptest.NewRequest(http.MethodPost, "/v1/auth/admin-token", strings.NewReader(`{"subject":"ops"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(mw.HeaderAPIKey, testAdminKey)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	var token string
	require.NoError(t, json.Unmarshal(decode(t, w)["accessToken"], &token))

	req = httptest.NewRequest(http.MethodGet, "/v1/admin/pairs", nil)
	req.Header.Set(mw.HeaderAuthorization, "Bearer "+token)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAdminAPI(t *testing.T) {
	provider := newFakeProvider()
	router := newTestRouter(provider)

	botRequest(router, http.MethodPost, "/v1/users/u1/teams/t1", `{"tenantId":"tenant-1"}`)
	botRequest(router, http.MethodPut, "/v1/users/u1/profile", `{"profile":"p1"}`)
	botRequest(router, http.MethodPost, "/v1/pairs", `{"user1Id":"u1","user2Id":"u2"}`)

	w := adminRequest(t, router, "/v1/admin/pairs")
	require.Equal(t, http.StatusOK, w.Code)
	var pairs []icebreaker.PairInfo
	require.NoError(t, json.Unmarshal(decode(t, w)["pairs"], &pairs))
	assert.Len(t, pairs, 1)

	w = adminRequest(t, router, "/v1/admin/users/opt-in-status")
	require.Equal(t, http.StatusOK, w.Code)
	var status map[string]map[string]bool
	require.NoError(t, json.Unmarshal(decode(t, w)["optInStatus"], &status))
	assert.Equal(t, map[string]map[string]bool{"u1": {"t1": true}}, status)

	w = adminRequest(t, router, "/v1/admin/users/profiles")
	require.Equal(t, http.StatusOK, w.Code)
	var profiles map[string]string
	require.NoError(t, json.Unmarshal(decode(t, w)["profiles"], &profiles))
	assert.Equal(t, map[string]string{"u1": "p1"}, profiles)
}

func TestStoreFailures(t *testing.T) {
	provider := newFakeProvider()
	provider.failErr = errors.New("service unavailable")
	router := newTestRouter(provider)

	assert.Equal(t, http.StatusInternalServerError, botRequest(router, http.MethodGet, "/v1/teams/t1", "").Code)
	assert.Equal(t, http.StatusInternalServerError, botRequest(router, http.MethodGet, "/v1/teams", "").Code)
	assert.Equal(t, http.StatusInternalServerError, botRequest(router, http.MethodGet, "/v1/users/u1", "").Code)
	assert.Equal(t, http.StatusInternalServerError, botRequest(router, http.MethodPost, "/v1/pairs", `{"user1Id":"u1","user2Id":"u2"}`).Code)
	assert.Equal(t, http.StatusInternalServerError, adminRequest(t, router, "/v1/admin/pairs").Code)
	assert.Equal(t, http.StatusInternalServerError, adminRequest(t, router, "/v1/admin/users/profiles").Code)

	provider.failErr = context.DeadlineExceeded
	assert.Equal(t, http.StatusGatewayTimeout, botRequest(router, http.MethodPut, "/v1/users/u1", `{"tenantId":"tenant-1"}`).Code)
}
