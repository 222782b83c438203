package models

type ErrorResponse struct {
	Error string `json:"error"`
}

type CreateMessageRequest struct {
	Slogan  string `json:"slogan" binding:"required"`
	Subline string `json:"subline"`
	Status  string `json:"status"`
	Rank    int    `json:"rank"`
}

// PatchMessageRequest updates only the fields the caller sent.
type PatchMessageRequest struct {
	Slogan  *string `json:"slogan,omitempty"`
	Subline *string `json:"subline,omitempty"`
	Status  *string `json:"status,omitempty"`
	Rank    *int    `json:"rank,omitempty"`
}

type ReorderEntry struct {
	ID   string `json:"id" binding:"required"`
	Rank int    `json:"rank"`
}

type ReorderMessagesRequest struct {
	Order []ReorderEntry `json:"order" binding:"required"`
}

type CreatePairRequest struct {
	MessageA string `json:"messageA" binding:"required"`
	MessageB string `json:"messageB" binding:"required"`
	Status   string `json:"status"`
	Rank     int    `json:"rank"`
}

type PatchPairRequest struct {
	Status *string `json:"status,omitempty"`
	Rank   *int    `json:"rank,omitempty"`
}
