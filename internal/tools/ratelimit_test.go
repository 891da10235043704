package tools

import (
	"testing"
	"time"
)

func TestLimiter_FixedWindow(t *testing.T) {
	now := time.Now()
	l := newLimiter()
	l.now = func() time.Time { return now }

	for i := 1; i <= 5; i++ {
		if !l.allow("create_ticket", "c1", 5) {
			t.Fatalf("call %d denied, want first 5 allowed", i)
		}
	}
	if l.allow("create_ticket", "c1", 5) {
		t.Error("6th call within the window was allowed")
	}

	// Window expiry resets the count.
	now = now.Add(rateWindow)
	if !l.allow("create_ticket", "c1", 5) {
		t.Error("call denied after the window elapsed")
	}
}

func TestLimiter_KeysAreIndependent(t *testing.T) {
	l := newLimiter()

	if !l.allow("create_ticket", "c1", 1) {
		t.Fatal("first call for c1 denied")
	}
	if l.allow("create_ticket", "c1", 1) {
		t.Error("second call for c1 allowed at limit 1")
	}

	// A different conversation and a different tool each have their own
	// window.
	if !l.allow("create_ticket", "c2", 1) {
		t.Error("c2 denied by c1's window")
	}
	if !l.allow("order_status", "c1", 1) {
		t.Error("order_status denied by create_ticket's window")
	}
}

func TestLimiter_ZeroLimitIsUnlimited(t *testing.T) {
	l := newLimiter()
	for i := 0; i < 100; i++ {
		if !l.allow("search", "c1", 0) {
			t.Fatal("unlimited tool was denied")
		}
	}
}
