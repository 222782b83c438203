package models

import "github.com/hyepartners-gmail/message-testing-api/voting"

type VoteEntry struct {
	MessageID string `json:"messageId"`
	Value     string `json:"value"`
}

type UserContext struct {
	Geo   string `json:"geo,omitempty"`
	Party string `json:"party,omitempty"`
	Demo  string `json:"demo,omitempty"`
}

type SubmitVotesRequest struct {
	Votes          []VoteEntry  `json:"votes" binding:"required"`
	IdempotencyKey string       `json:"idempotencyKey,omitempty"`
	AnonSessionID  string       `json:"anonSessionId,omitempty"`
	UserContext    *UserContext `json:"userContext,omitempty"`
}

type SubmitVotesResponse struct {
	Accepted int      `json:"accepted"`
	Dropped  int      `json:"dropped"`
	Errors   []string `json:"errors,omitempty"`
}

func TransformBatchResult(r *voting.BatchResult) *SubmitVotesResponse {
	return &SubmitVotesResponse{
		Accepted: r.Accepted,
		Dropped:  r.Dropped,
		Errors:   r.Errors,
	}
}

type VoteResultsResponse struct {
	Items []voting.ResultRow `json:"items"`
}
