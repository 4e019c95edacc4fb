package tgAuth

import (
	"testing"
	"time"
)

func TestSecurityReportDefaults(t *testing.T) {
	engine, _ := newTestEngine(t, func(c *Config) {
		c.Admin.UserIDs = []int64{1, 2}
		c.Audit.Enabled = true
	})

	r := engine.SecurityReport()
	if r.SigningAlgorithm != "hs256" {
		t.Fatalf("expected hs256, got %q", r.SigningAlgorithm)
	}
	if r.SessionTTL != 24*time.Hour || r.FreshnessWindow != 300*time.Second || r.StrictFreshnessWindow != 60*time.Second {
		t.Fatalf("unexpected durations: %+v", r)
	}
	if !r.ReplayProtection || r.ReplayBackend != ReplayRedis {
		t.Fatalf("expected redis replay protection, got %+v", r)
	}
	if !r.RateLimitingActive || r.SingleActiveSession {
		t.Fatalf("unexpected policy flags: %+v", r)
	}
	if r.AdminCount != 2 || !r.AuditEnabled {
		t.Fatalf("expected 2 admins and audit, got %+v", r)
	}
}

func TestSecurityReportReplayDisabled(t *testing.T) {
	engine, _ := newTestEngine(t, func(c *Config) {
		c.Replay.Enabled = false
		c.RateLimit.Enabled = false
		c.Session.SingleActivePerUser = true
	})

	r := engine.SecurityReport()
	if r.ReplayProtection || r.ReplayBackend != "" {
		t.Fatalf("expected replay protection off, got %+v", r)
	}
	if r.RateLimitingActive || !r.SingleActiveSession {
		t.Fatalf("unexpected policy flags: %+v", r)
	}
	if (*Engine)(nil).SecurityReport() != (SecurityReport{}) {
		t.Fatal("expected zero report for nil engine")
	}
}
