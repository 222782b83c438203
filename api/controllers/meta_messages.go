package controllers

import (
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
	"github.com/hyepartners-gmail/message-testing-api/api/models"
	"github.com/hyepartners-gmail/message-testing-api/logging"
	"github.com/hyepartners-gmail/message-testing-api/storage"
)

// MessageMetaController serves the read-only listings the voting UI needs:
// active messages and active A/B pairs, in display order.
type MessageMetaController struct {
	messagesStorage storage.MessageStorage
	pairsStorage    storage.PairStorage
}

func NewMessageMetaController(messagesStorage storage.MessageStorage, pairsStorage storage.PairStorage) *MessageMetaController {
	return &MessageMetaController{
		messagesStorage: messagesStorage,
		pairsStorage:    pairsStorage,
	}
}

func (c *MessageMetaController) RegisterRoutes(engine *gin.Engine) {
	group := engine.Group("/api/meta")

	group.GET("/messages", c.listActiveMessages)
	group.GET("/pairs", c.listActivePairs)
}

// listActiveMessages godoc
// @Summary List active messages in display order
// @Tags meta
// @Produce json
// @Success 200 {array} storage.Message
// @Failure 500 {object} models.ErrorResponse
// @Router /api/meta/messages [get]
func (c *MessageMetaController) listActiveMessages(g *gin.Context) {
	messages, err := c.messagesStorage.GetAll(g.Request.Context())
	if err != nil {
		logging.Log.Errorf("META: failed to list messages: %v", err)
		g.JSON(http.StatusInternalServerError, &models.ErrorResponse{Error: "could not list messages"})
		return
	}

	active := make([]*storage.Message, 0, len(messages))
	for _, m := range messages {
		if m.Status == storage.MessageStatusActive {
			active = append(active, m)
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].Rank < active[j].Rank })

	g.JSON(http.StatusOK, active)
}

// listActivePairs godoc
// @Summary List active A/B pairs in display order
// @Tags meta
// @Produce json
// @Success 200 {array} storage.ABPair
// @Failure 500 {object} models.ErrorResponse
// @Router /api/meta/pairs [get]
func (c *MessageMetaController) listActivePairs(g *gin.Context) {
	pairs, err := c.pairsStorage.GetAll(g.Request.Context())
	if err != nil {
		logging.Log.Errorf("META: failed to list pairs: %v", err)
		g.JSON(http.StatusInternalServerError, &models.ErrorResponse{Error: "could not list pairs"})
		return
	}

	active := make([]*storage.ABPair, 0, len(pairs))
	for _, p := range pairs {
		if p.Status == storage.MessageStatusActive {
			active = append(active, p)
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].Rank < active[j].Rank })

	g.JSON(http.StatusOK, active)
}
