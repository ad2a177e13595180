package ratelimit

import (
	"testing"
	"time"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter() (*Limiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)}
	return NewLimiter(DefaultRules()).WithClock(clock.Now), clock
}

func TestCheckAdmitsUpToCount(t *testing.T) {
	testCases := []struct {
		class Class
		count int
	}{
		{Questions, 3},
		{Upvotes, 10},
		{Teacher, 15},
	}

	for _, tc := range testCases {
		t.Run(string(tc.class), func(t *testing.T) {
			l, _ := newTestLimiter()
			for i := 0; i < tc.count; i++ {
				if d := l.Check("alice", tc.class); !d.Allowed {
					t.Fatalf("check %d denied, want admitted", i+1)
				}
			}
			d := l.Check("alice", tc.class)
			if d.Allowed {
				t.Fatalf("check %d admitted, want denied", tc.count+1)
			}
			if d.Wait <= 0 {
				t.Errorf("Wait = %d, want > 0", d.Wait)
			}
		})
	}
}

func TestCheckWaitThenAdmit(t *testing.T) {
	l, clock := newTestLimiter()

	// Four creates within ten seconds.
	for i := 0; i < 3; i++ {
		if !l.Check("alice", Questions).Allowed {
			t.Fatalf("create %d denied", i+1)
		}
		clock.Advance(3 * time.Second)
	}
	d := l.Check("alice", Questions)
	if d.Allowed {
		t.Fatal("fourth create admitted, want denied")
	}
	// Oldest admit was 9s ago, so 51s remain.
	if d.Wait != 51 {
		t.Errorf("Wait = %d, want 51", d.Wait)
	}

	clock.Advance(time.Duration(d.Wait) * time.Second)
	if !l.Check("alice", Questions).Allowed {
		t.Error("create after waiting was denied")
	}
}

func TestWaitRoundsUp(t *testing.T) {
	l, clock := newTestLimiter()
	for i := 0; i < 10; i++ {
		l.Check("bob", Upvotes)
	}
	clock.Advance(8500 * time.Millisecond)
	d := l.Check("bob", Upvotes)
	if d.Allowed {
		t.Fatal("admitted, want denied")
	}
	if d.Wait != 2 {
		t.Errorf("Wait = %d, want 2", d.Wait)
	}
}

func TestWaitAtWindowEdgeIsPositive(t *testing.T) {
	l, clock := newTestLimiter()
	for i := 0; i < 3; i++ {
		l.Check("carol", Questions)
	}
	clock.Advance(59900 * time.Millisecond)
	d := l.Check("carol", Questions)
	if d.Allowed {
		t.Fatal("admitted inside the window, want denied")
	}
	if d.Wait != 1 {
		t.Errorf("Wait = %d, want 1", d.Wait)
	}

	// Exactly one window old has expired.
	clock.Advance(100 * time.Millisecond)
	if !l.Check("carol", Questions).Allowed {
		t.Error("denied after window elapsed")
	}
}

func TestSlidingWindowNeverExceedsCount(t *testing.T) {
	l, clock := newTestLimiter()
	var admitted []time.Time

	for i := 0; i < 600; i++ {
		if l.Check("dave", Upvotes).Allowed {
			admitted = append(admitted, clock.Now())
		}
		clock.Advance(250 * time.Millisecond)
	}

	for i := range admitted {
		n := 0
		for j := i; j < len(admitted) && admitted[j].Sub(admitted[i]) < 10*time.Second; j++ {
			n++
		}
		if n > 10 {
			t.Fatalf("%d admits within one window starting at %v", n, admitted[i])
		}
	}
}

func TestClassesAndClientsAreIndependent(t *testing.T) {
	l, _ := newTestLimiter()
	for i := 0; i < 3; i++ {
		l.Check("erin", Questions)
	}
	if l.Check("erin", Questions).Allowed {
		t.Fatal("erin questions should be exhausted")
	}
	if !l.Check("erin", Upvotes).Allowed {
		t.Error("erin upvotes affected by questions bucket")
	}
	if !l.Check("frank", Questions).Allowed {
		t.Error("frank affected by erin's bucket")
	}
}

func TestForgetResetsHistory(t *testing.T) {
	l, _ := newTestLimiter()
	for i := 0; i < 3; i++ {
		l.Check("gina", Questions)
	}
	l.Forget("gina")
	if l.Clients() != 0 {
		t.Errorf("Clients() = %d after Forget, want 0", l.Clients())
	}
	if !l.Check("gina", Questions).Allowed {
		t.Error("denied after Forget")
	}
}

func TestClockSteppedBackwards(t *testing.T) {
	l, clock := newTestLimiter()
	for i := 0; i < 3; i++ {
		l.Check("hank", Questions)
	}
	clock.Advance(-2 * time.Hour)

	d := l.Check("hank", Questions)
	if d.Allowed {
		t.Fatal("admitted right after clock jump, want denied")
	}
	if d.Wait > 60 {
		t.Errorf("Wait = %d, want at most one window", d.Wait)
	}

	clock.Advance(61 * time.Second)
	if !l.Check("hank", Questions).Allowed {
		t.Error("still denied one window after clock jump")
	}
}

func TestUnknownClassIsUnlimited(t *testing.T) {
	l := NewLimiter(map[Class]Rule{Questions: {Count: 1, Window: time.Minute}})
	for i := 0; i < 50; i++ {
		if !l.Check("ivy", Teacher).Allowed {
			t.Fatal("class without a rule was limited")
		}
	}
}

func TestSweep(t *testing.T) {
	l, clock := newTestLimiter()
	l.Check("old", Upvotes)
	clock.Advance(30 * time.Second)
	l.Check("fresh", Questions)

	if removed := l.Sweep(); removed != 1 {
		t.Errorf("Sweep() = %d, want 1", removed)
	}
	if l.Clients() != 1 {
		t.Errorf("Clients() = %d, want 1", l.Clients())
	}
}

func TestParseRule(t *testing.T) {
	testCases := []struct {
		in      string
		want    Rule
		wantErr bool
	}{
		{"3/60s", Rule{3, time.Minute}, false},
		{" 10 / 10s ", Rule{10, 10 * time.Second}, false},
		{"15/30s", Rule{15, 30 * time.Second}, false},
		{"3", Rule{}, true},
		{"0/60s", Rule{}, true},
		{"3/soon", Rule{}, true},
		{"3/-1s", Rule{}, true},
	}

	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseRule(tc.in)
			if (err != nil) != tc.wantErr {
				t.Fatalf("ParseRule(%q) error = %v, wantErr %v", tc.in, err, tc.wantErr)
			}
			if got != tc.want {
				t.Errorf("ParseRule(%q) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}
