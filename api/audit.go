package api

import (
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// AuditEvent identifies the type of security-relevant action being logged.
type AuditEvent string

const (
	auditLoginSuccess     AuditEvent = "login_success"
	auditLoginFailure     AuditEvent = "login_failure"
	auditLoginRateLimited AuditEvent = "login_rate_limited"
	auditLoginSpike       AuditEvent = "login_failure_spike"
	auditLogout           AuditEvent = "logout"
	auditConfigError      AuditEvent = "configuration_error"
	auditGateError        AuditEvent = "auth_gate_error"
	auditMomentCreated    AuditEvent = "moment_created"
	auditMomentUpdated    AuditEvent = "moment_updated"
	auditMomentArchived   AuditEvent = "moment_archived"
	auditUploadStored     AuditEvent = "upload_stored"
)

// spikeWindow and spikeThreshold define the sliding window over which
// repeated login failures escalate to a spike event.
const (
	spikeWindow    = 5 * time.Minute
	spikeThreshold = 10
)

// auditLogger wraps slog.Logger for structured security audit logging.
type auditLogger struct {
	logger *slog.Logger

	mu       sync.Mutex
	failures []time.Time
}

func newAuditLogger(logger *slog.Logger) *auditLogger {
	return &auditLogger{
		logger: logger.With("component", "audit"),
	}
}

// log writes a structured audit log entry.
func (al *auditLogger) log(event AuditEvent, r *http.Request, attrs ...slog.Attr) {
	baseAttrs := []slog.Attr{
		slog.String("event", string(event)),
		slog.String("remote_addr", r.RemoteAddr),
		slog.String("path", r.URL.Path),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}
	baseAttrs = append(baseAttrs, attrs...)
	al.logger.LogAttrs(r.Context(), slog.LevelInfo, "audit", baseAttrs...)

	if event == auditLoginFailure {
		al.noteFailure(r)
	}
}

// noteFailure tracks login failures across all sources and emits a
// spike event when they cluster, regardless of per-IP limits.
func (al *auditLogger) noteFailure(r *http.Request) {
	now := time.Now()
	al.mu.Lock()
	kept := al.failures[:0]
	for _, t := range al.failures {
		if now.Sub(t) <= spikeWindow {
			kept = append(kept, t)
		}
	}
	al.failures = append(kept, now)
	spike := len(al.failures) == spikeThreshold
	al.mu.Unlock()

	if spike {
		al.logger.LogAttrs(r.Context(), slog.LevelWarn, "audit",
			slog.String("event", string(auditLoginSpike)),
			slog.Int("failures", spikeThreshold),
			slog.Duration("window", spikeWindow),
		)
	}
}
