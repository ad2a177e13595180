package http

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/sujalbistaa/raisehand/internal/board"
	"github.com/sujalbistaa/raisehand/internal/store"
	"github.com/sujalbistaa/raisehand/internal/ws"
)

// --- Rate Limiter ---

// IPRateLimiter hands out one token bucket per client IP. It guards the
// websocket upgrade so a single host cannot churn connections to reset its
// per-client message limits.
type IPRateLimiter struct {
	visitors map[string]*visitor
	mu       sync.Mutex
	rps      rate.Limit
	burst    int
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewIPRateLimiter(r rate.Limit, b int) *IPRateLimiter {
	return &IPRateLimiter{
		visitors: make(map[string]*visitor),
		rps:      r,
		burst:    b,
	}
}

func (rl *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	v, exists := rl.visitors[ip]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(rl.rps, rl.burst)}
		rl.visitors[ip] = v
	}
	v.lastSeen = time.Now()
	return v.limiter
}

// Cleanup forgets IPs not seen for idle and returns how many were removed.
func (rl *IPRateLimiter) Cleanup(idle time.Duration) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	removed := 0
	for ip, v := range rl.visitors {
		if time.Since(v.lastSeen) > idle {
			delete(rl.visitors, ip)
			removed++
		}
	}
	return removed
}

func RateLimitMiddleware(limiter *IPRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !limiter.GetLimiter(ip).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many connection attempts. Please wait."})
			return
		}
		c.Next()
	}
}

// --- Handlers ---

type Env struct {
	Board       *board.Board
	Store       *store.Store
	Hub         *ws.Hub
	Upgrader    *websocket.Upgrader
	ConnLimiter *IPRateLimiter
	AdminToken  string
	CORSOrigin  string
}

func (e *Env) Health(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

// GetQuestions returns the board exactly as websocket clients see it.
func (e *Env) GetQuestions(c *gin.Context) {
	c.JSON(http.StatusOK, e.Store.PublicView())
}

// GetStats reports live connections and what happened to inbound messages,
// including the ones clients are never told about.
func (e *Env) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"connections": e.Hub.Count(),
		"board":       e.Board.Stats(),
	})
}

func (e *Env) ServeWs(c *gin.Context) {
	ws.ServeWs(e.Hub, e.Board, e.Upgrader, c.Writer, c.Request)
}
