package tgAuth

import "time"

// SecurityReport summarizes the effective security posture of an Engine. It
// carries no key material.
type SecurityReport struct {
	SigningAlgorithm      string
	SessionTTL            time.Duration
	FreshnessWindow       time.Duration
	StrictFreshnessWindow time.Duration
	ReplayProtection      bool
	ReplayBackend         ReplayBackend
	SingleActiveSession   bool
	RateLimitingActive    bool
	AdminCount            int
	AuditEnabled          bool
}

func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}

	report := SecurityReport{
		SigningAlgorithm:      e.config.JWT.SigningMethod,
		SessionTTL:            e.config.Session.TTL,
		FreshnessWindow:       e.config.Freshness.Window,
		StrictFreshnessWindow: e.config.Freshness.StrictWindow,
		ReplayProtection:      e.policy.ReplayEnabled(),
		SingleActiveSession:   e.config.Session.SingleActivePerUser,
		RateLimitingActive: e.config.RateLimit.Enabled &&
			e.config.RateLimit.MaxFailures > 0 &&
			e.config.RateLimit.Cooldown > 0,
		AdminCount:   len(e.admins),
		AuditEnabled: e.audit != nil,
	}
	if report.ReplayProtection {
		report.ReplayBackend = e.config.Replay.Backend
	}
	return report
}
