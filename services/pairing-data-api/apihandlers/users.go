package apihandlers

import (
	"log/slog"
	"net/http"

	mw "github.com/lucasdreger/microsoft-teams-apps-icebreaker/pkg/apihelpers/middlewares"

	"github.com/gin-gonic/gin"
)

func (h *HttpEndpoints) AddUsersAPI(rg *gin.RouterGroup) {
	usersGroup := rg.Group("/users")
	usersGroup.Use(mw.HasValidAPIKey(h.apiKeys))
	{
		usersGroup.GET("/:userID", h.getUser)
		usersGroup.PUT("/:userID", mw.RequirePayload(), h.setUser)
		usersGroup.PUT("/:userID/profile", mw.RequirePayload(), h.setUserProfile)
		usersGroup.POST("/:userID/teams/:teamID", mw.RequirePayload(), h.addUserTeam)
		usersGroup.DELETE("/:userID/teams/:teamID", h.removeUserTeam)
	}
}

func (h *HttpEndpoints) getUser(c *gin.Context) {
	userID := c.Param("userID")

	result := h.dataProvider.GetUser(c.Request.Context(), userID)
	if !result.Found() {
		if result.Err != nil {
			slog.Error("getUser: error reading user", slog.String("userID", userID), slog.String("error", result.Err.Error()))
		}
		c.JSON(statusForLookup(result.Status), gin.H{"error": "user " + result.Status.String()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": result.Value})
}

type setUserReq struct {
	TenantID   string          `json:"tenantId"`
	ServiceURL string          `json:"serviceUrl"`
	OptedIn    map[string]bool `json:"optedIn"`
}

func (h *HttpEndpoints) setUser(c *gin.Context) {
	userID := c.Param("userID")

	var req setUserReq
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error("setUser: error parsing payload", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "error parsing payload"})
		return
	}

	if err := h.dataProvider.SetUser(c.Request.Context(), req.TenantID, userID, req.OptedIn, req.ServiceURL); err != nil {
		slog.Error("setUser: error storing user", slog.String("userID", userID), slog.String("error", err.Error()))
		c.JSON(statusForWriteError(err), gin.H{"error": "error storing user"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "user updated"})
}

type setUserProfileReq struct {
	Profile string `json:"profile"`
}

func (h *HttpEndpoints) setUserProfile(c *gin.Context) {
	userID := c.Param("userID")

	var req setUserProfileReq
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error("setUserProfile: error parsing payload", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "error parsing payload"})
		return
	}

	if err := h.dataProvider.SetUserProfile(c.Request.Context(), userID, req.Profile); err != nil {
		slog.Error("setUserProfile: error storing profile", slog.String("userID", userID), slog.String("error", err.Error()))
		c.JSON(statusForWriteError(err), gin.H{"error": "error storing profile"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "profile updated"})
}

type addUserTeamReq struct {
	TenantID   string `json:"tenantId"`
	ServiceURL string `json:"serviceUrl"`
}

func (h *HttpEndpoints) addUserTeam(c *gin.Context) {
	userID := c.Param("userID")
	teamID := c.Param("teamID")

	var req addUserTeamReq
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error("addUserTeam: error parsing payload", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "error parsing payload"})
		return
	}

	if err := h.dataProvider.AddUserTeam(c.Request.Context(), req.TenantID, userID, teamID, req.ServiceURL); err != nil {
		slog.Error("addUserTeam: error opting in", slog.String("userID", userID), slog.String("teamID", teamID), slog.String("error", err.Error()))
		c.JSON(statusForWriteError(err), gin.H{"error": "error opting in"})
		return
	}

	slog.Info("addUserTeam: user opted in", slog.String("userID", userID), slog.String("teamID", teamID))
	c.JSON(http.StatusOK, gin.H{"message": "user opted in"})
}

func (h *HttpEndpoints) removeUserTeam(c *gin.Context) {
	userID := c.Param("userID")
	teamID := c.Param("teamID")

	if err := h.dataProvider.RemoveUserTeam(c.Request.Context(), userID, teamID); err != nil {
		slog.Error("removeUserTeam: error opting out", slog.String("userID", userID), slog.String("teamID", teamID), slog.String("error", err.Error()))
		c.JSON(statusForWriteError(err), gin.H{"error": "error opting out"})
		return
	}

	slog.Info("removeUserTeam: user opted out", slog.String("userID", userID), slog.String("teamID", teamID))
	c.JSON(http.StatusOK, gin.H{"message": "user opted out"})
}
