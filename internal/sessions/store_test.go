package sessions

import (
	"testing"
	"time"
)

func TestGetOrCreateIsIdempotent(t *testing.T) {
	s := NewStore()
	m1 := s.GetOrCreate("sess-1")
	m1.AddTurn("draw a circle", "done")

	m2 := s.GetOrCreate("sess-1")
	if m1 != m2 {
		t.Fatal("second fetch returned a different memory")
	}
	if m2.Len() != 1 {
		t.Fatalf("history lost across fetches: len = %d", m2.Len())
	}
}

func TestWindowEviction(t *testing.T) {
	s := NewStore(WithWindowSize(3))
	m := s.GetOrCreate("sess-1")
	for i := 0; i < 5; i++ {
		m.AddTurn(cmd(i), "ok")
	}

	history := m.History()
	if len(history) != 3 {
		t.Fatalf("window holds %d turns, want 3", len(history))
	}
	if history[0].Command != cmd(2) || history[2].Command != cmd(4) {
		t.Fatalf("wrong turns retained: %+v", history)
	}
}

func cmd(i int) string {
	return string(rune('a' + i))
}

func TestIdleExpirySweepsAllSessions(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	s := NewStore(WithIdleTimeout(30*time.Minute), WithNowFunc(func() time.Time { return now }))

	s.GetOrCreate("old-1")
	s.GetOrCreate("old-2")

	now = now.Add(31 * time.Minute)
	fresh := s.GetOrCreate("fresh")
	if fresh == nil {
		t.Fatal("fresh session not created")
	}
	if got := s.CountActive(); got != 1 {
		t.Fatalf("active sessions = %d, want 1 (expired sessions must be swept)", got)
	}

	// A fetch within the timeout refreshes last access.
	now = now.Add(20 * time.Minute)
	s.GetOrCreate("fresh")
	now = now.Add(20 * time.Minute)
	if got := s.CountActive(); got != 1 {
		t.Fatalf("refreshed session expired: active = %d", got)
	}
}

func TestExpiredSessionStartsEmpty(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	s := NewStore(WithNowFunc(func() time.Time { return now }))

	m := s.GetOrCreate("sess-1")
	m.AddTurn("draw", "ok")

	now = now.Add(DefaultIdleTimeout + time.Minute)
	m2 := s.GetOrCreate("sess-1")
	if m2.Len() != 0 {
		t.Fatalf("expired session kept %d turns", m2.Len())
	}
}

func TestClear(t *testing.T) {
	s := NewStore()
	s.GetOrCreate("sess-1")

	if !s.Clear("sess-1") {
		t.Fatal("Clear returned false for existing session")
	}
	if s.Clear("sess-1") {
		t.Fatal("Clear returned true for missing session")
	}
}

func TestCountObserver(t *testing.T) {
	var last int
	s := NewStore(WithCountObserver(func(n int) { last = n }))
	s.GetOrCreate("a")
	s.GetOrCreate("b")
	if last != 2 {
		t.Fatalf("observer saw %d, want 2", last)
	}
	s.Clear("a")
	if last != 1 {
		t.Fatalf("observer saw %d after clear, want 1", last)
	}
}
