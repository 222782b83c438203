package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hyepartners-gmail/message-testing-api/api/models"
	"github.com/hyepartners-gmail/message-testing-api/logging"
	"github.com/hyepartners-gmail/message-testing-api/voting"
)

type VotingController struct {
	engine  *voting.Engine
	results *voting.Results
}

func NewVotingController(engine *voting.Engine, results *voting.Results) *VotingController {
	return &VotingController{
		engine:  engine,
		results: results,
	}
}

func (c *VotingController) RegisterRoutes(engine *gin.Engine) {
	group := engine.Group("/api")

	group.POST("/votes", c.submitVotes)
	group.GET("/votes/results", c.getVoteResults)
}

// submitVotes godoc
// @Summary Submit a batch of votes
// @Description Accepts a vote batch for one voter; duplicates are dropped, per-vote problems are reported without failing the batch
// @Tags voting
// @Accept json
// @Produce json
// @Param batch body models.SubmitVotesRequest true "Vote batch"
// @Param x-user-id header string false "Authenticated user id"
// @Success 200 {object} models.SubmitVotesResponse
// @Failure 400 {object} models.ErrorResponse "Malformed batch or missing identity"
// @Failure 500 {object} models.ErrorResponse "Storage failure; a retry with the same idempotency key is a no-op, so nothing gets double-counted"
// @Router /api/votes [post]
func (c *VotingController) submitVotes(g *gin.Context) {
	var req models.SubmitVotesRequest
	if err := g.ShouldBindJSON(&req); err != nil {
		g.JSON(http.StatusBadRequest, &models.ErrorResponse{Error: "invalid request format"})
		return
	}

	batch := voting.VoteBatch{
		Votes:          make([]voting.VoteInput, 0, len(req.Votes)),
		IdempotencyKey: req.IdempotencyKey,
		UserID:         g.GetHeader("x-user-id"),
		AnonSessionID:  req.AnonSessionID,
	}
	for _, v := range req.Votes {
		batch.Votes = append(batch.Votes, voting.VoteInput{MessageID: v.MessageID, Value: v.Value})
	}
	if req.UserContext != nil {
		batch.Profile = &voting.Profile{
			Geo:   req.UserContext.Geo,
			Party: req.UserContext.Party,
			Demo:  req.UserContext.Demo,
		}
	}

	result, err := c.engine.ProcessBatch(g.Request.Context(), batch)
	if err != nil {
		var validationErr *voting.ValidationError
		if errors.As(err, &validationErr) {
			g.JSON(http.StatusBadRequest, &models.ErrorResponse{Error: validationErr.Error()})
			return
		}
		logging.Log.Errorf("failed to process vote batch: %v", err)
		g.JSON(http.StatusInternalServerError, &models.ErrorResponse{Error: "could not process votes"})
		return
	}

	g.JSON(http.StatusOK, models.TransformBatchResult(result))
}

// getVoteResults godoc
// @Summary Aggregated vote results
// @Description Sums counters along one dimension; never exposes individual votes
// @Tags voting
// @Produce json
// @Param groupBy query string true "message | geo | party | demo | date"
// @Param messageId query string false "Filter by message id"
// @Param geo query string false "Filter by geography bucket"
// @Param party query string false "Filter by party bucket"
// @Param demo query string false "Filter by demographic bucket"
// @Param from query string false "Inclusive start day YYYY-MM-DD"
// @Param to query string false "Inclusive end day YYYY-MM-DD"
// @Success 200 {object} models.VoteResultsResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /api/votes/results [get]
func (c *VotingController) getVoteResults(g *gin.Context) {
	query := voting.ResultsQuery{
		GroupBy:   voting.Dimension(g.Query("groupBy")),
		MessageID: g.Query("messageId"),
		Geo:       g.Query("geo"),
		Party:     g.Query("party"),
		Demo:      g.Query("demo"),
		From:      g.Query("from"),
		To:        g.Query("to"),
	}

	rows, err := c.results.Aggregate(g.Request.Context(), query)
	if err != nil {
		var validationErr *voting.ValidationError
		if errors.As(err, &validationErr) {
			g.JSON(http.StatusBadRequest, &models.ErrorResponse{Error: validationErr.Error()})
			return
		}
		logging.Log.Errorf("failed to aggregate vote results: %v", err)
		g.JSON(http.StatusInternalServerError, &models.ErrorResponse{Error: "could not aggregate results"})
		return
	}

	g.JSON(http.StatusOK, &models.VoteResultsResponse{Items: rows})
}
