package server

// Request types for WebSocket commands with validation tags.

// AudioUpdateRequest is the request body for audio/update.
type AudioUpdateRequest struct {
	Input string `json:"input" validate:"required,max=256,printascii"`
}

// EventsViewRequest is the request body for events/view.
type EventsViewRequest struct {
	Limit  int    `json:"limit" validate:"omitempty,gte=1,lte=500"`
	Offset int    `json:"offset" validate:"omitempty,gte=0"`
	Filter string `json:"filter" validate:"omitempty,oneof=lifecycle failures"`
}
