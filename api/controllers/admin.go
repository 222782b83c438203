package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hyepartners-gmail/message-testing-api/api/models"
	"github.com/hyepartners-gmail/message-testing-api/api/transport"
	"github.com/hyepartners-gmail/message-testing-api/logging"
	"github.com/hyepartners-gmail/message-testing-api/storage"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

type AdminController struct {
	messagesStorage storage.MessageStorage
	pairsStorage    storage.PairStorage
}

func NewAdminController(messagesStorage storage.MessageStorage, pairsStorage storage.PairStorage) *AdminController {
	return &AdminController{
		messagesStorage: messagesStorage,
		pairsStorage:    pairsStorage,
	}
}

func (c *AdminController) RegisterRoutes(engine *gin.Engine) {
	group := engine.Group("/api/admin", transport.AdminAuthMiddleware())

	group.GET("/messages", c.listMessages)
	group.POST("/messages", c.createMessage)
	group.PATCH("/messages/:id", c.patchMessage)
	group.DELETE("/messages/:id", c.archiveMessage)
	group.POST("/messages/reorder", c.reorderMessages)
	group.GET("/pairs", c.listPairs)
	group.POST("/pairs", c.createPair)
	group.PATCH("/pairs/:id", c.patchPair)
}

// @Security AdminToken
// listMessages godoc
// @Summary List all messages, including drafts and archived ones
// @Tags admin
// @Produce json
// @Success 200 {array} storage.Message
// @Failure 500 {object} models.ErrorResponse
// @Router /api/admin/messages [get]
func (c *AdminController) listMessages(g *gin.Context) {
	messages, err := c.messagesStorage.GetAll(g.Request.Context())
	if err != nil {
		logging.Log.Errorf("ADMIN: failed to list messages: %v", err)
		g.JSON(http.StatusInternalServerError, &models.ErrorResponse{Error: "could not list messages"})
		return
	}

	logging.Log.Infof("ADMIN: listed %d messages", len(messages))
	g.JSON(http.StatusOK, messages)
}

// @Security AdminToken
// createMessage godoc
// @Summary Create a message
// @Tags admin
// @Accept json
// @Produce json
// @Param request body models.CreateMessageRequest true "Create Message Request"
// @Success 200 {object} storage.Message
// @Failure 400 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /api/admin/messages [post]
func (c *AdminController) createMessage(g *gin.Context) {
	var req models.CreateMessageRequest
	if err := g.ShouldBindJSON(&req); err != nil {
		g.JSON(http.StatusBadRequest, &models.ErrorResponse{Error: "invalid request, missing slogan"})
		return
	}

	status := req.Status
	if status == "" {
		status = storage.MessageStatusDraft
	}
	if !validMessageStatus(status) {
		g.JSON(http.StatusBadRequest, &models.ErrorResponse{Error: "invalid status"})
		return
	}

	id, err := gonanoid.Generate(models.Alphabet, 8)
	if err != nil {
		logging.Log.Errorf("ADMIN: failed to generate message id: %v", err)
		g.JSON(http.StatusInternalServerError, &models.ErrorResponse{Error: "could not create message"})
		return
	}

	message := &storage.Message{
		ID:      id,
		Slogan:  req.Slogan,
		Subline: req.Subline,
		Status:  status,
		Rank:    req.Rank,
	}
	if err := c.messagesStorage.Create(g.Request.Context(), message); err != nil {
		logging.Log.Errorf("ADMIN: failed to create message: %v", err)
		g.JSON(http.StatusInternalServerError, &models.ErrorResponse{Error: "could not create message"})
		return
	}

	logging.Log.Infof("ADMIN: created message %s", message.ID)
	g.JSON(http.StatusOK, message)
}

// @Security AdminToken
// patchMessage godoc
// @Summary Partially update a message
// @Tags admin
// @Accept json
// @Produce json
// @Param id path string true "Message ID"
// @Param request body models.PatchMessageRequest true "Patch Message Request"
// @Success 200 {object} storage.Message
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /api/admin/messages/{id} [patch]
func (c *AdminController) patchMessage(g *gin.Context) {
	var req models.PatchMessageRequest
	if err := g.ShouldBindJSON(&req); err != nil {
		g.JSON(http.StatusBadRequest, &models.ErrorResponse{Error: "invalid request format"})
		return
	}

	message, err := c.messagesStorage.Get(g.Request.Context(), g.Param("id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			g.JSON(http.StatusNotFound, &models.ErrorResponse{Error: "message not found"})
			return
		}
		logging.Log.Errorf("ADMIN: failed to load message: %v", err)
		g.JSON(http.StatusInternalServerError, &models.ErrorResponse{Error: "could not load message"})
		return
	}

	if req.Slogan != nil {
		message.Slogan = *req.Slogan
	}
	if req.Subline != nil {
		message.Subline = *req.Subline
	}
	if req.Status != nil {
		if !validMessageStatus(*req.Status) {
			g.JSON(http.StatusBadRequest, &models.ErrorResponse{Error: "invalid status"})
			return
		}
		message.Status = *req.Status
	}
	if req.Rank != nil {
		message.Rank = *req.Rank
	}

	if err := c.messagesStorage.Update(g.Request.Context(), message); err != nil {
		logging.Log.Errorf("ADMIN: failed to update message %s: %v", message.ID, err)
		g.JSON(http.StatusInternalServerError, &models.ErrorResponse{Error: "could not update message"})
		return
	}

	g.JSON(http.StatusOK, message)
}

// @Security AdminToken
// archiveMessage godoc
// @Summary Archive a message
// @Description Messages referenced by votes are never physically deleted, only archived
// @Tags admin
// @Produce json
// @Param id path string true "Message ID"
// @Success 200 {object} storage.Message
// @Failure 404 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /api/admin/messages/{id} [delete]
func (c *AdminController) archiveMessage(g *gin.Context) {
	message, err := c.messagesStorage.Get(g.Request.Context(), g.Param("id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			g.JSON(http.StatusNotFound, &models.ErrorResponse{Error: "message not found"})
			return
		}
		logging.Log.Errorf("ADMIN: failed to load message: %v", err)
		g.JSON(http.StatusInternalServerError, &models.ErrorResponse{Error: "could not load message"})
		return
	}

	message.Status = storage.MessageStatusArchived
	if err := c.messagesStorage.Update(g.Request.Context(), message); err != nil {
		logging.Log.Errorf("ADMIN: failed to archive message %s: %v", message.ID, err)
		g.JSON(http.StatusInternalServerError, &models.ErrorResponse{Error: "could not archive message"})
		return
	}

	logging.Log.Infof("ADMIN: archived message %s", message.ID)
	g.JSON(http.StatusOK, message)
}

// @Security AdminToken
// reorderMessages godoc
// @Summary Bulk update message display ranks
// @Tags admin
// @Accept json
// @Produce json
// @Param request body models.ReorderMessagesRequest true "Reorder Request"
// @Success 200 {object} models.ErrorResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /api/admin/messages/reorder [post]
func (c *AdminController) reorderMessages(g *gin.Context) {
	var req models.ReorderMessagesRequest
	if err := g.ShouldBindJSON(&req); err != nil || len(req.Order) == 0 {
		g.JSON(http.StatusBadRequest, &models.ErrorResponse{Error: "invalid request, missing order"})
		return
	}

	for _, entry := range req.Order {
		message, err := c.messagesStorage.Get(g.Request.Context(), entry.ID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				g.JSON(http.StatusBadRequest, &models.ErrorResponse{Error: "unknown message id " + entry.ID})
				return
			}
			logging.Log.Errorf("ADMIN: failed to load message %s: %v", entry.ID, err)
			g.JSON(http.StatusInternalServerError, &models.ErrorResponse{Error: "could not reorder messages"})
			return
		}
		message.Rank = entry.Rank
		if err := c.messagesStorage.Update(g.Request.Context(), message); err != nil {
			logging.Log.Errorf("ADMIN: failed to update rank for %s: %v", entry.ID, err)
			g.JSON(http.StatusInternalServerError, &models.ErrorResponse{Error: "could not reorder messages"})
			return
		}
	}

	logging.Log.Infof("ADMIN: reordered %d messages", len(req.Order))
	g.JSON(http.StatusOK, gin.H{"message": "reordered"})
}

// @Security AdminToken
// listPairs godoc
// @Summary List all A/B pairs
// @Tags admin
// @Produce json
// @Success 200 {array} storage.ABPair
// @Failure 500 {object} models.ErrorResponse
// @Router /api/admin/pairs [get]
func (c *AdminController) listPairs(g *gin.Context) {
	pairs, err := c.pairsStorage.GetAll(g.Request.Context())
	if err != nil {
		logging.Log.Errorf("ADMIN: failed to list pairs: %v", err)
		g.JSON(http.StatusInternalServerError, &models.ErrorResponse{Error: "could not list pairs"})
		return
	}
	g.JSON(http.StatusOK, pairs)
}

// @Security AdminToken
// createPair godoc
// @Summary Pair two messages for A/B comparison
// @Tags admin
// @Accept json
// @Produce json
// @Param request body models.CreatePairRequest true "Create Pair Request"
// @Success 200 {object} storage.ABPair
// @Failure 400 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /api/admin/pairs [post]
func (c *AdminController) createPair(g *gin.Context) {
	var req models.CreatePairRequest
	if err := g.ShouldBindJSON(&req); err != nil {
		g.JSON(http.StatusBadRequest, &models.ErrorResponse{Error: "invalid request, missing message ids"})
		return
	}
	if req.MessageA == req.MessageB {
		g.JSON(http.StatusBadRequest, &models.ErrorResponse{Error: "a pair must reference two different messages"})
		return
	}

	for _, id := range []string{req.MessageA, req.MessageB} {
		if _, err := c.messagesStorage.Get(g.Request.Context(), id); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				g.JSON(http.StatusBadRequest, &models.ErrorResponse{Error: "unknown message id " + id})
				return
			}
			logging.Log.Errorf("ADMIN: failed to load message %s: %v", id, err)
			g.JSON(http.StatusInternalServerError, &models.ErrorResponse{Error: "could not create pair"})
			return
		}
	}

	status := req.Status
	if status == "" {
		status = storage.MessageStatusActive
	}
	if !validMessageStatus(status) {
		g.JSON(http.StatusBadRequest, &models.ErrorResponse{Error: "invalid status"})
		return
	}

	id, err := gonanoid.Generate(models.Alphabet, 8)
	if err != nil {
		logging.Log.Errorf("ADMIN: failed to generate pair id: %v", err)
		g.JSON(http.StatusInternalServerError, &models.ErrorResponse{Error: "could not create pair"})
		return
	}

	pair := &storage.ABPair{
		ID:       id,
		MessageA: req.MessageA,
		MessageB: req.MessageB,
		Status:   status,
		Rank:     req.Rank,
	}
	if err := c.pairsStorage.Create(g.Request.Context(), pair); err != nil {
		logging.Log.Errorf("ADMIN: failed to create pair: %v", err)
		g.JSON(http.StatusInternalServerError, &models.ErrorResponse{Error: "could not create pair"})
		return
	}

	logging.Log.Infof("ADMIN: created pair %s (%s vs %s)", pair.ID, pair.MessageA, pair.MessageB)
	g.JSON(http.StatusOK, pair)
}

// @Security AdminToken
// patchPair godoc
// @Summary Update an A/B pair's status or rank
// @Tags admin
// @Accept json
// @Produce json
// @Param id path string true "Pair ID"
// @Param request body models.PatchPairRequest true "Patch Pair Request"
// @Success 200 {object} storage.ABPair
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /api/admin/pairs/{id} [patch]
func (c *AdminController) patchPair(g *gin.Context) {
	var req models.PatchPairRequest
	if err := g.ShouldBindJSON(&req); err != nil {
		g.JSON(http.StatusBadRequest, &models.ErrorResponse{Error: "invalid request format"})
		return
	}

	pair, err := c.pairsStorage.Get(g.Request.Context(), g.Param("id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			g.JSON(http.StatusNotFound, &models.ErrorResponse{Error: "pair not found"})
			return
		}
		logging.Log.Errorf("ADMIN: failed to load pair: %v", err)
		g.JSON(http.StatusInternalServerError, &models.ErrorResponse{Error: "could not load pair"})
		return
	}

	if req.Status != nil {
		if !validMessageStatus(*req.Status) {
			g.JSON(http.StatusBadRequest, &models.ErrorResponse{Error: "invalid status"})
			return
		}
		pair.Status = *req.Status
	}
	if req.Rank != nil {
		pair.Rank = *req.Rank
	}

	if err := c.pairsStorage.Update(g.Request.Context(), pair); err != nil {
		logging.Log.Errorf("ADMIN: failed to update pair %s: %v", pair.ID, err)
		g.JSON(http.StatusInternalServerError, &models.ErrorResponse{Error: "could not update pair"})
		return
	}

	g.JSON(http.StatusOK, pair)
}

func validMessageStatus(status string) bool {
	switch status {
	case storage.MessageStatusDraft, storage.MessageStatusActive, storage.MessageStatusArchived:
		return true
	}
	return false
}
