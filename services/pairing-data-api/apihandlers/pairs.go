package apihandlers

import (
	"log/slog"
	"net/http"

	mw "github.com/lucasdreger/microsoft-teams-apps-icebreaker/pkg/apihelpers/middlewares"

	"github.com/gin-gonic/gin"
)

func (h *HttpEndpoints) AddPairsAPI(rg *gin.RouterGroup) {
	pairsGroup := rg.Group("/pairs")
	pairsGroup.Use(mw.HasValidAPIKey(h.apiKeys))
	{
		pairsGroup.POST("", mw.RequirePayload(), h.addPairRecord)
	}
}

type addPairReq struct {
	User1ID   string `json:"user1Id" binding:"required"`
	User2ID   string `json:"user2Id" binding:"required"`
	Iteration int    `json:"iteration"`
}

func (h *HttpEndpoints) addPairRecord(c *gin.Context) {
	var req addPairReq
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error("addPairRecord: error parsing payload", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "error parsing payload"})
		return
	}
	if req.User1ID == req.User2ID {
		slog.Warn("addPairRecord: user paired with itself", slog.String("userID", req.User1ID))
		c.JSON(http.StatusBadRequest, gin.H{"error": "a pair needs two different users"})
		return
	}

	pair, err := h.dataProvider.AddPairRecord(c.Request.Context(), req.User1ID, req.User2ID, req.Iteration)
	if err != nil {
		slog.Error("addPairRecord: error storing pair", slog.String("error", err.Error()))
		c.JSON(statusForWriteError(err), gin.H{"error": "error storing pair"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"pair": pair})
}
