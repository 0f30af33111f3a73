package audit

import (
	"strings"
	"time"
)

// Record is an immutable, append-only audit log entry describing one
// authorization decision or sensitive operation.
//
// Invariants:
// - Records are never updated after creation; retention archives or deletes them.
// - Redaction of sensitive values happens before persistence, not after.
// - Audit failures must never fail the governed request.
type Record struct {
	ID        string   `json:"id"`
	EventType string   `json:"event_type"`
	Severity  Severity `json:"severity"`

	ActorID    string `json:"actor_id,omitempty"`
	ActorEmail string `json:"actor_email,omitempty"`
	IPAddress  string `json:"ip_address,omitempty"`
	UserAgent  string `json:"user_agent,omitempty"`

	ResourceType string `json:"resource_type,omitempty"`
	ResourceID   string `json:"resource_id,omitempty"`

	OldValues      map[string]any `json:"old_values,omitempty"`
	NewValues      map[string]any `json:"new_values,omitempty"`
	AdditionalData map[string]any `json:"additional_data,omitempty"`

	Success      bool   `json:"success"`
	ErrorMessage string `json:"error_message,omitempty"`

	RequestPath   string `json:"request_path,omitempty"`
	RequestMethod string `json:"request_method,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Event types emitted by the authorization pipeline. A security reviewer must
// be able to distinguish "allowed by policy" from "allowed by bypass" from
// "allowed by degraded fallback" on event type alone.
const (
	EventPolicyAllowed      = "authz.policy_allowed"
	EventPolicyDenied       = "authz.policy_denied"
	EventBypassAllowed      = "authz.bypass_allowed"
	EventFallbackAllowed    = "authz.fallback_allowed"
	EventFallbackDenied     = "authz.fallback_denied"
	EventFallbackDelegated  = "authz.fallback_delegated"
	EventCheckFailed        = "authz.check_failed"
	EventUnauthenticated    = "authz.unauthenticated"
	EventTokenRejected      = "auth.token_rejected"
	EventRetentionCompleted = "audit.retention_completed"
)

// Classify maps (eventType, statusCode, path) to a severity. It is
// deterministic: same inputs always yield the same severity.
func Classify(eventType string, statusCode int, path string) Severity {
	adminPath := isAdminPath(path)
	authnFailure := strings.HasPrefix(eventType, "auth.") || eventType == EventUnauthenticated

	switch {
	case authnFailure && adminPath:
		return SeverityCritical
	case eventType == EventPolicyDenied || eventType == EventFallbackDenied:
		return SeverityHigh
	case statusCode >= 500:
		return SeverityHigh
	case adminPath:
		return SeverityHigh
	case statusCode >= 400:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

func isAdminPath(path string) bool {
	return strings.Contains(path, "/admin")
}
