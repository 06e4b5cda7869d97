package apihandlers

import (
	"log/slog"
	"net/http"

	mw "github.com/lucasdreger/microsoft-teams-apps-icebreaker/pkg/apihelpers/middlewares"
	"github.com/lucasdreger/microsoft-teams-apps-icebreaker/pkg/types/icebreaker"

	"github.com/gin-gonic/gin"
)

func (h *HttpEndpoints) AddTeamsAPI(rg *gin.RouterGroup) {
	teamsGroup := rg.Group("/teams")
	teamsGroup.Use(mw.HasValidAPIKey(h.apiKeys))
	{
		teamsGroup.GET("", h.listInstalledTeams)
		teamsGroup.GET("/:teamID", h.getInstalledTeam)
		teamsGroup.PUT("/:teamID", mw.RequirePayload(), h.installTeam)
		teamsGroup.DELETE("/:teamID", h.uninstallTeam)
	}
}

func (h *HttpEndpoints) listInstalledTeams(c *gin.Context) {
	teams, err := h.dataProvider.ListInstalledTeams(c.Request.Context())
	if err != nil {
		slog.Error("listInstalledTeams: error scanning teams", slog.String("error", err.Error()), slog.Int("partialCount", len(teams)))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "error listing teams"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"teams": teams})
}

func (h *HttpEndpoints) getInstalledTeam(c *gin.Context) {
	teamID := c.Param("teamID")

	result := h.dataProvider.GetInstalledTeam(c.Request.Context(), teamID)
	if !result.Found() {
		if result.Err != nil {
			slog.Error("getInstalledTeam: error reading team", slog.String("teamID", teamID), slog.String("error", result.Err.Error()))
		}
		c.JSON(statusForLookup(result.Status), gin.H{"error": "team " + result.Status.String()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"team": result.Value})
}

type installTeamReq struct {
	TenantID      string `json:"tenantId"`
	ServiceURL    string `json:"serviceUrl" binding:"required"`
	InstallerName string `json:"installerName"`
	BotID         string `json:"botId"`
}

func (h *HttpEndpoints) installTeam(c *gin.Context) {
	teamID := c.Param("teamID")

	var req installTeamReq
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error("installTeam: error parsing payload", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "error parsing payload"})
		return
	}

	team := icebreaker.TeamInstallInfo{
		TeamID:        teamID,
		TenantID:      req.TenantID,
		ServiceURL:    req.ServiceURL,
		InstallerName: req.InstallerName,
		BotID:         req.BotID,
	}
	if err := h.dataProvider.UpdateTeamInstallStatus(c.Request.Context(), team, true); err != nil {
		slog.Error("installTeam: error storing team", slog.String("teamID", teamID), slog.String("error", err.Error()))
		c.JSON(statusForWriteError(err), gin.H{"error": "error storing team"})
		return
	}

	slog.Info("installTeam: team installed", slog.String("teamID", teamID), slog.String("tenantID", req.TenantID))
	c.JSON(http.StatusOK, gin.H{"message": "team installed"})
}

func (h *HttpEndpoints) uninstallTeam(c *gin.Context) {
	teamID := c.Param("teamID")

	err := h.dataProvider.UpdateTeamInstallStatus(c.Request.Context(), icebreaker.TeamInstallInfo{TeamID: teamID}, false)
	if err != nil {
		slog.Error("uninstallTeam: error removing team", slog.String("teamID", teamID), slog.String("error", err.Error()))
		c.JSON(statusForWriteError(err), gin.H{"error": "error removing team"})
		return
	}

	slog.Info("uninstallTeam: team removed", slog.String("teamID", teamID))
	c.JSON(http.StatusOK, gin.H{"message": "team removed"})
}
