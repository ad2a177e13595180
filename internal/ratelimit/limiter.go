package ratelimit

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Class is a rate-limited category of actions. Each class has its own window.
type Class string

const (
	Questions Class = "questions"
	Upvotes   Class = "upvotes"
	Teacher   Class = "teacher"
)

// Rule admits at most Count actions within any trailing Window.
type Rule struct {
	Count  int
	Window time.Duration
}

func (r Rule) String() string {
	return strconv.Itoa(r.Count) + "/" + r.Window.String()
}

// DefaultRules are the limits a classroom board runs with unless configured otherwise.
func DefaultRules() map[Class]Rule {
	return map[Class]Rule{
		Questions: {Count: 3, Window: 60 * time.Second},
		Upvotes:   {Count: 10, Window: 10 * time.Second},
		Teacher:   {Count: 15, Window: 30 * time.Second},
	}
}

// ParseRule reads a rule in "count/window" form, e.g. "3/60s" or "10/10s".
func ParseRule(s string) (Rule, error) {
	count, window, ok := strings.Cut(strings.TrimSpace(s), "/")
	if !ok {
		return Rule{}, fmt.Errorf("rate rule %q: want count/window", s)
	}
	n, err := strconv.Atoi(strings.TrimSpace(count))
	if err != nil || n <= 0 {
		return Rule{}, fmt.Errorf("rate rule %q: count must be a positive integer", s)
	}
	d, err := time.ParseDuration(strings.TrimSpace(window))
	if err != nil || d <= 0 {
		return Rule{}, fmt.Errorf("rate rule %q: window must be a positive duration", s)
	}
	return Rule{Count: n, Window: d}, nil
}

// Decision is the result of a Check. Wait is only set when the action is denied
// and is always at least one second.
type Decision struct {
	Allowed bool
	Wait    int
}

// Limiter is a sliding-window counter keyed by client and action class.
// Unlike a token bucket, the window is recomputed from the oldest retained
// timestamp on every check, so enforcement is exact.
type Limiter struct {
	mu      sync.Mutex
	rules   map[Class]Rule
	buckets map[string]map[Class][]time.Time
	now     func() time.Time
}

// NewLimiter creates a limiter. Classes missing from rules are never limited.
func NewLimiter(rules map[Class]Rule) *Limiter {
	if rules == nil {
		rules = DefaultRules()
	}
	return &Limiter{
		rules:   rules,
		buckets: make(map[string]map[Class][]time.Time),
		now:     time.Now,
	}
}

// WithClock replaces the time source. Used by tests.
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	l.mu.Lock()
	l.now = now
	l.mu.Unlock()
	return l
}

// Check admits or denies one action of the given class for clientID.
// Admitted actions are recorded immediately.
func (l *Limiter) Check(clientID string, class Class) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	rule, ok := l.rules[class]
	if !ok {
		return Decision{Allowed: true}
	}

	now := l.now()
	classes, ok := l.buckets[clientID]
	if !ok {
		classes = make(map[Class][]time.Time, len(l.rules))
		l.buckets[clientID] = classes
	}
	bucket := trim(classes[class], now, rule.Window)

	if len(bucket) >= rule.Count {
		classes[class] = bucket
		remaining := rule.Window - now.Sub(bucket[0])
		wait := int(math.Ceil(remaining.Seconds()))
		if wait < 1 {
			wait = 1
		}
		return Decision{Allowed: false, Wait: wait}
	}

	classes[class] = append(bucket, now)
	return Decision{Allowed: true}
}

// Forget drops every bucket held for clientID.
func (l *Limiter) Forget(clientID string) {
	l.mu.Lock()
	delete(l.buckets, clientID)
	l.mu.Unlock()
}

// Sweep removes clients with no timestamps left inside any window and
// returns how many were removed.
func (l *Limiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for clientID, classes := range l.buckets {
		live := false
		for class, bucket := range classes {
			bucket = trim(bucket, now, l.rules[class].Window)
			if len(bucket) == 0 {
				delete(classes, class)
				continue
			}
			classes[class] = bucket
			live = true
		}
		if !live {
			delete(l.buckets, clientID)
			removed++
		}
	}
	return removed
}

// Clients returns the number of clients currently holding rate state.
func (l *Limiter) Clients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// trim drops timestamps that have left the window (age >= window), so waiting
// the reported number of seconds is always enough. Timestamps from the
// future (the wall clock stepped backwards) are pulled back to now.
func trim(bucket []time.Time, now time.Time, window time.Duration) []time.Time {
	for i, t := range bucket {
		if t.After(now) {
			bucket[i] = now
		}
	}
	drop := 0
	for drop < len(bucket) && now.Sub(bucket[drop]) >= window {
		drop++
	}
	if drop == 0 {
		return bucket
	}
	return append(bucket[:0], bucket[drop:]...)
}
