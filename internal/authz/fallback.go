package authz

import "github.com/gin-gonic/gin"

// Fallback configures the degraded authorization path used when the PDP is
// unreachable.
//
// With no Handler and FailClosed unset, degraded requests are ALLOWED and a
// high-visibility warning plus a distinct audit event are emitted. That
// keeps the platform usable through a PDP outage at the cost of a bounded
// security degradation window; deployments that prefer fail-closed set
// FailClosed or supply a Handler that owns the response entirely.
type Fallback struct {
	// Handler, when set, takes over the request during an outage, e.g. a
	// legacy role check. It owns its own response and audit trail is
	// recorded as delegated.
	Handler gin.HandlerFunc

	// FailClosed denies degraded requests instead of allowing them.
	// Ignored when Handler is set.
	FailClosed bool
}
