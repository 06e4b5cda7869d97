package apihandlers

import (
	"log/slog"
	"net/http"

	mw "github.com/lucasdreger/microsoft-teams-apps-icebreaker/pkg/apihelpers/middlewares"
	jwthandling "github.com/lucasdreger/microsoft-teams-apps-icebreaker/pkg/jwt-handling"

	"github.com/gin-gonic/gin"
)

// AddAdminAPI registers the reporting routes and the endpoint issuing tokens for them. Tokens
// are only issued for the admin API keys, bot keys are rejected.
func (h *HttpEndpoints) AddAdminAPI(rg *gin.RouterGroup) {
	rg.POST("/auth/admin-token", mw.HasValidAPIKey(h.adminAPIKeys), mw.RequirePayload(), h.issueAdminToken)

	adminGroup := rg.Group("/admin")
	adminGroup.Use(mw.GetAndValidateAdminJWT(h.tokenSignKey))
	adminGroup.Use(mw.IsAdminUser())
	{
		adminGroup.GET("/pairs", h.listPairHistory)
		adminGroup.GET("/users/opt-in-status", h.getAllUsersOptInStatus)
		adminGroup.GET("/users/profiles", h.getAllUsersProfile)
	}
}

type adminTokenReq struct {
	Subject string            `json:"subject" binding:"required"`
	Payload map[string]string `json:"payload"`
}

func (h *HttpEndpoints) issueAdminToken(c *gin.Context) {
	var req adminTokenReq
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error("issueAdminToken: error parsing payload", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "error parsing payload"})
		return
	}

	token, err := jwthandling.GenerateNewAdminToken(h.tokenExpiresIn, req.Subject, true, req.Payload, h.tokenSignKey)
	if err != nil {
		slog.Error("issueAdminToken: error generating token", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "error generating token"})
		return
	}

	slog.Info("issueAdminToken: token issued", slog.String("subject", req.Subject))
	c.JSON(http.StatusOK, gin.H{
		"accessToken": token,
		"expiresIn":   int64(h.tokenExpiresIn.Seconds()),
	})
}

func (h *HttpEndpoints) listPairHistory(c *gin.Context) {
	token := c.MustGet(mw.ContextKeyValidatedToken).(*jwthandling.AdminClaims)
	slog.Info("listPairHistory: reading pair history", slog.String("userID", token.Subject))

	pairs, err := h.dataProvider.ListPairHistory(c.Request.Context())
	if err != nil {
		slog.Error("listPairHistory: error scanning pairs", slog.String("error", err.Error()), slog.Int("partialCount", len(pairs)))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "error listing pairs"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"pairs": pairs})
}

func (h *HttpEndpoints) getAllUsersOptInStatus(c *gin.Context) {
	token := c.MustGet(mw.ContextKeyValidatedToken).(*jwthandling.AdminClaims)
	slog.Info("getAllUsersOptInStatus: reading opt-in status", slog.String("userID", token.Subject))

	status, err := h.dataProvider.GetAllUsersOptInStatus(c.Request.Context())
	if err != nil {
		slog.Error("getAllUsersOptInStatus: error scanning users", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "error reading opt-in status"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"optInStatus": status})
}

func (h *HttpEndpoints) getAllUsersProfile(c *gin.Context) {
	token := c.MustGet(mw.ContextKeyValidatedToken).(*jwthandling.AdminClaims)
	slog.Info("getAllUsersProfile: reading profiles", slog.String("userID", token.Subject))

	profiles, err := h.dataProvider.GetAllUsersProfile(c.Request.Context())
	if err != nil {
		slog.Error("getAllUsersProfile: error scanning users", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "error reading profiles"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"profiles": profiles})
}
