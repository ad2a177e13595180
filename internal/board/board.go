package board

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"github.com/sujalbistaa/raisehand/internal/models"
	"github.com/sujalbistaa/raisehand/internal/ratelimit"
	"github.com/sujalbistaa/raisehand/internal/store"
)

// Outcome is what happened to one inbound message. Only Applied changes the
// board; everything else is dropped without telling the sender, except a
// rate-limited create.
type Outcome int

const (
	Applied Outcome = iota
	RateLimited
	Invalid
	Unauthorized
	NotFound
	Duplicate
	Unknown
)

var outcomeNames = [...]string{
	Applied:      "applied",
	RateLimited:  "rate_limited",
	Invalid:      "invalid",
	Unauthorized: "unauthorized",
	NotFound:     "not_found",
	Duplicate:    "duplicate",
	Unknown:      "unknown",
}

func (o Outcome) String() string {
	if o < 0 || int(o) >= len(outcomeNames) {
		return "outcome(" + strconv.Itoa(int(o)) + ")"
	}
	return outcomeNames[o]
}

// Result is returned by Session.Handle. Wait is set for RateLimited.
type Result struct {
	Outcome Outcome
	Wait    int
}

// Broadcaster fans a frame out to every connection.
type Broadcaster interface {
	Broadcast(msg []byte)
}

// Sender delivers a frame to a single connection.
type Sender interface {
	Send(msg []byte) bool
}

// Board ties the limiter, the store and the hub together. Every inbound
// message runs authorize, rate check, mutate, snapshot and broadcast under
// one lock, so no connection ever sees a half-applied change and frames
// reach the hub in mutation order.
type Board struct {
	mu       sync.Mutex
	store    *store.Store
	limiter  *ratelimit.Limiter
	hub      Broadcaster
	authz    Authorizer
	sessions map[string]int
	outcomes [len(outcomeNames)]uint64
}

func New(st *store.Store, limiter *ratelimit.Limiter, hub Broadcaster, authz Authorizer) *Board {
	if authz == nil {
		authz = DefaultAuthorizer()
	}
	return &Board{
		store:    st,
		limiter:  limiter,
		hub:      hub,
		authz:    authz,
		sessions: make(map[string]int),
	}
}

// StateFrame encodes the current board as a state:init frame.
func (b *Board) StateFrame() ([]byte, error) {
	return EncodeState(b.store.PublicView())
}

// Open binds a connection to a role and client id. An empty client id gets
// a fresh one, so anonymous connections never share rate limits.
func (b *Board) Open(role models.Role, clientID string, conn Sender) *Session {
	if clientID == "" {
		clientID = uuid.NewString()
	}

	b.mu.Lock()
	b.sessions[clientID]++
	b.mu.Unlock()

	return &Session{board: b, role: role, clientID: clientID, conn: conn}
}

// Stats is a point-in-time view of board activity.
type Stats struct {
	Questions   int               `json:"questions"`
	Sessions    int               `json:"sessions"`
	RateClients int               `json:"rateClients"`
	Outcomes    map[string]uint64 `json:"outcomes"`
}

func (b *Board) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()

	st := Stats{
		Questions:   b.store.Len(),
		RateClients: b.limiter.Clients(),
		Outcomes:    make(map[string]uint64, len(b.outcomes)),
	}
	for _, n := range b.sessions {
		st.Sessions += n
	}
	for i, n := range b.outcomes {
		st.Outcomes[Outcome(i).String()] = n
	}
	return st
}

func (b *Board) handle(ctx context.Context, s *Session, msgType string, data json.RawMessage) Result {
	b.mu.Lock()
	defer b.mu.Unlock()

	res := b.dispatch(ctx, s, msgType, data)
	b.outcomes[res.Outcome]++
	return res
}

func (b *Board) dispatch(ctx context.Context, s *Session, msgType string, data json.RawMessage) Result {
	route, ok := actions[msgType]
	if !ok {
		return Result{Outcome: Unknown}
	}
	if !b.authz.Allowed(s.role, route.action) {
		return Result{Outcome: Unauthorized}
	}

	var arg string
	if err := json.Unmarshal(data, &arg); err != nil {
		return Result{Outcome: Invalid}
	}

	decision := b.limiter.Check(s.clientID, route.class)
	if !decision.Allowed {
		if route.action == ActionCreate {
			s.notifyRateLimited(decision.Wait)
		}
		return Result{Outcome: RateLimited, Wait: decision.Wait}
	}

	var err error
	switch route.action {
	case ActionCreate:
		_, err = b.store.Create(ctx, arg)
	case ActionUpvote:
		err = b.store.Upvote(ctx, arg, s.clientID)
	case ActionAnswer:
		err = b.store.ToggleAnswered(ctx, arg)
	case ActionPin:
		err = b.store.TogglePinned(ctx, arg)
	case ActionDelete:
		err = b.store.Delete(ctx, arg)
	}

	switch {
	case errors.Is(err, store.ErrEmptyText), errors.Is(err, store.ErrTextTooLong):
		return Result{Outcome: Invalid}
	case errors.Is(err, store.ErrNotFound):
		return Result{Outcome: NotFound}
	case errors.Is(err, store.ErrAlreadyVoted):
		return Result{Outcome: Duplicate}
	case err != nil:
		// The change is applied in memory; clients still get it.
		log.Printf("Error persisting %s from %s: %v", msgType, s.clientID, err)
	}

	b.broadcast()
	return Result{Outcome: Applied}
}

func (b *Board) broadcast() {
	frame, err := EncodeState(b.store.PublicView())
	if err != nil {
		log.Printf("Error marshalling state frame: %v", err)
		return
	}
	b.hub.Broadcast(frame)
}

func (b *Board) close(clientID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.sessions[clientID]--
	if b.sessions[clientID] > 0 {
		return
	}
	delete(b.sessions, clientID)
	b.limiter.Forget(clientID)
}
