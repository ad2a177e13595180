package board

import (
	"encoding/json"

	"github.com/sujalbistaa/raisehand/internal/models"
)

// Inbound message types.
const (
	TypeCreate = "question:create"
	TypeUpvote = "question:upvote"
	TypeAnswer = "question:answer"
	TypePin    = "question:pin"
	TypeDelete = "question:delete"
)

// Outbound message types.
const (
	TypeStateInit   = "state:init"
	TypeRateLimited = "rate:limited"
)

// Envelope is an inbound frame. Data is decoded per type.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// WsMessage is an outbound frame.
type WsMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// RateLimitedData is the payload of a rate:limited frame.
type RateLimitedData struct {
	Wait int `json:"wait"`
}

// EncodeState builds the state:init frame for a view.
func EncodeState(view []models.PublicQuestion) ([]byte, error) {
	if view == nil {
		view = []models.PublicQuestion{}
	}
	return json.Marshal(WsMessage{Type: TypeStateInit, Data: view})
}

// EncodeRateLimited builds the rate:limited frame.
func EncodeRateLimited(wait int) ([]byte, error) {
	return json.Marshal(WsMessage{Type: TypeRateLimited, Data: RateLimitedData{Wait: wait}})
}
