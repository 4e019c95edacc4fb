package policy

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/tgAuth/internal/replay"
)

func TestEvaluateWindowBoundaries(t *testing.T) {
	const authDate = int64(1700000000)
	base := authDate * 1000

	cases := []struct {
		name      string
		nowMillis int64
		age       int64
		valid     bool
	}{
		{"same second", base, 0, true},
		{"sub-second truncates", base + 999, 0, true},
		{"at window", base + 300_000, 300, true},
		{"window plus one", base + 301_000, 301, false},
		{"future", base - 5_000, -5, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := Evaluate(authDate, tc.nowMillis, 300)
			if res.AgeSeconds != tc.age {
				t.Fatalf("expected age %d, got %d", tc.age, res.AgeSeconds)
			}
			if res.TimestampValid != tc.valid {
				t.Fatalf("expected valid=%v, got %v", tc.valid, res.TimestampValid)
			}
			if res.ReplayProtected {
				t.Fatal("Evaluate must not report replay protection")
			}
		})
	}
}

func TestFreshnessStrictWindow(t *testing.T) {
	e := New(Config{Window: 300 * time.Second, StrictWindow: 60 * time.Second}, nil)
	now := time.Unix(1700000100, 0)

	if res := e.Freshness(1700000000, now, false); !res.TimestampValid {
		t.Fatalf("expected fresh under standard window: %+v", res)
	}
	if res := e.Freshness(1700000000, now, true); res.TimestampValid {
		t.Fatalf("expected stale under strict window: %+v", res)
	}
}

func TestFreshnessRejectsFuturePayload(t *testing.T) {
	e := New(Config{Window: 300 * time.Second}, nil)
	now := time.Unix(1700000000, 0)

	for _, ahead := range []int64{1, 5, 60} {
		res := e.Freshness(1700000000+ahead, now, false)
		if res.TimestampValid {
			t.Fatalf("payload %ds in the future must be rejected, got %+v", ahead, res)
		}
		if res.AgeSeconds != -ahead {
			t.Fatalf("expected age %d reported unchanged, got %d", -ahead, res.AgeSeconds)
		}
	}
	if res := e.Freshness(1700000000, now, false); !res.TimestampValid || res.AgeSeconds != 0 {
		t.Fatalf("expected age 0 accepted, got %+v", res)
	}
}

func TestClaimTTLCoversWindow(t *testing.T) {
	e := New(Config{Window: 300 * time.Second, StrictWindow: 60 * time.Second}, nil)
	if got := e.ClaimTTL(); got != 301*time.Second {
		t.Fatalf("expected 301s, got %s", got)
	}
}

func TestClaimRejectsSecondUse(t *testing.T) {
	guard := replay.NewMemoryGuard(16, time.Minute, nil)
	e := New(Config{Window: 300 * time.Second}, guard)
	ctx := context.Background()

	protected, err := e.Claim(ctx, "abc")
	if err != nil || !protected {
		t.Fatalf("expected first claim to succeed, got %v %v", protected, err)
	}
	if _, err := e.Claim(ctx, "abc"); !errors.Is(err, ErrReplay) {
		t.Fatalf("expected ErrReplay, got %v", err)
	}
}

func TestClaimWithoutGuard(t *testing.T) {
	e := New(Config{}, nil)
	protected, err := e.Claim(context.Background(), "abc")
	if err != nil || protected {
		t.Fatalf("expected unprotected no-op, got %v %v", protected, err)
	}
	if e.ReplayEnabled() {
		t.Fatal("expected replay disabled")
	}
	if e.Window(false) != DefaultWindow {
		t.Fatalf("expected default window, got %s", e.Window(false))
	}
}
