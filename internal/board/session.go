package board

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/sujalbistaa/raisehand/internal/models"
)

// Session is one connection's view of the board: a fixed role and client id
// for as long as the connection lives.
type Session struct {
	board     *Board
	role      models.Role
	clientID  string
	conn      Sender
	closeOnce sync.Once
}

func (s *Session) Role() models.Role { return s.role }
func (s *Session) ClientID() string  { return s.clientID }

// Handle processes one inbound message.
func (s *Session) Handle(ctx context.Context, msgType string, data json.RawMessage) Result {
	return s.board.handle(ctx, s, msgType, data)
}

// Close releases the session. Rate-limit history for the client is dropped
// once its last session closes; votes are kept.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.board.close(s.clientID)
	})
}

func (s *Session) notifyRateLimited(wait int) {
	frame, err := EncodeRateLimited(wait)
	if err != nil {
		log.Printf("Error marshalling rate limit frame: %v", err)
		return
	}
	if s.conn != nil {
		s.conn.Send(frame)
	}
}
