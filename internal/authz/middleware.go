package authz

import (
	"context"
	"log/slog"
	"net/http"

	"officiating-platform/internal/audit"
	"officiating-platform/internal/auth"
	"officiating-platform/internal/metrics"

	"github.com/gin-gonic/gin"
)

// Fixed client-facing messages. Error paths never expose internal detail.
const (
	msgAuthRequired   = "Authentication required"
	msgForbidden      = "You do not have permission to perform this action"
	msgCheckFailed    = "Failed to check permissions"
	msgDegradedDenied = "Authorization temporarily unavailable"
)

// PolicyClient is the PDP contract the guard depends on. *Client implements it.
type PolicyClient interface {
	Check(ctx context.Context, p Principal, r Resource, action string) (Decision, error)
}

// Availability is the monitor contract. *Monitor implements it.
type Availability interface {
	IsAvailable(ctx context.Context) bool
}

// Auditor receives one record per terminal decision. *audit.Recorder
// implements it; recording is asynchronous and never blocks the request.
type Auditor interface {
	Record(rec audit.Record)
}

// Guard is the request-facing authorization orchestrator. One Guard is
// shared by all routes; per-route behavior comes from Require options.
type Guard struct {
	Client   PolicyClient
	Monitor  Availability
	Resolver *Resolver
	Audit    Auditor
	Fallback Fallback
	Log      *slog.Logger
}

type routeOptions struct {
	idParam          string
	fetcher          AttributeFetcher
	attributes       map[string]any
	forbiddenMessage string
}

type Option func(*routeOptions)

// WithIDParam names the route parameter carrying the resource id.
// Default "id". An absent/empty parameter means a create action.
func WithIDParam(name string) Option {
	return func(o *routeOptions) { o.idParam = name }
}

// WithFetcher replaces the registered attribute fetcher for this route.
func WithFetcher(f AttributeFetcher) Option {
	return func(o *routeOptions) { o.fetcher = f }
}

// WithAttributes supplies static attribute overrides; these keys win over
// anything the fetcher returns.
func WithAttributes(attrs map[string]any) Option {
	return func(o *routeOptions) { o.attributes = attrs }
}

// WithForbiddenMessage overrides the 403 message for this route.
func WithForbiddenMessage(msg string) Option {
	return func(o *routeOptions) { o.forbiddenMessage = msg }
}

// RequireAction guards a route with a single action.
func (g *Guard) RequireAction(kind, action string, opts ...Option) gin.HandlerFunc {
	return g.Require(kind, []string{action}, opts...)
}

// Require guards a route with an ordered action list. Every action must be
// allowed; evaluation stops at the first denial and the response cites that
// denial's validation errors.
func (g *Guard) Require(kind string, actions []string, opts ...Option) gin.HandlerFunc {
	o := routeOptions{idParam: "id", forbiddenMessage: msgForbidden}
	for _, opt := range opts {
		opt(&o)
	}

	return func(c *gin.Context) {
		actor, err := auth.ActorFromContext(c.Request.Context())
		if err != nil {
			g.record(c, audit.Record{
				EventType:    audit.EventUnauthenticated,
				ResourceType: kind,
				Success:      false,
				ErrorMessage: "no principal on request",
			}, http.StatusUnauthorized)
			metrics.DecisionsTotal.WithLabelValues("unauthenticated", "policy").Inc()
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized", "message": msgAuthRequired})
			return
		}

		principal := BuildPrincipal(actor, "")

		// Fast path: privileged roles skip attribute resolution, the PDP
		// and per-action validation entirely. Must not require the PDP to
		// be reachable.
		if IsPrivileged(principal.Roles) {
			g.record(c, audit.Record{
				EventType:    audit.EventBypassAllowed,
				ActorID:      actor.UserID,
				ActorEmail:   actor.Email,
				ResourceType: kind,
				ResourceID:   c.Param(o.idParam),
				AdditionalData: map[string]any{
					"actions": actions,
					"roles":   actor.Roles,
				},
				Success: true,
			}, http.StatusOK)
			metrics.DecisionsTotal.WithLabelValues("allowed", "bypass").Inc()
			setDecision(c, Decision{Allowed: true, MatchedRule: "privileged_role_bypass"})
			c.Next()
			return
		}

		resource, err := g.Resolver.Resolve(c.Request.Context(), kind, c.Param(o.idParam), principal.OrganizationID, o.fetcher, o.attributes)
		if err != nil {
			g.Log.Error("attribute resolution failed", "kind", kind, "err", err)
			g.fail(c, actor, kind, resource.ID, actions, err)
			return
		}

		if !g.Monitor.IsAvailable(c.Request.Context()) {
			metrics.PDPUnavailableTotal.Inc()
			g.degraded(c, actor, principal, resource, actions, o)
			return
		}

		for _, action := range actions {
			d, err := g.Client.Check(c.Request.Context(), principal, resource, action)
			if err != nil {
				g.Log.Error("pdp check failed", "action", action, "kind", kind, "err", err)
				g.fail(c, actor, kind, resource.ID, actions, err)
				return
			}
			if !d.Allowed {
				g.record(c, audit.Record{
					EventType:    audit.EventPolicyDenied,
					ActorID:      actor.UserID,
					ActorEmail:   actor.Email,
					ResourceType: kind,
					ResourceID:   resource.ID,
					AdditionalData: map[string]any{
						"action":            action,
						"validation_errors": d.ValidationErrors,
						"matched_rule":      d.MatchedRule,
					},
					Success: false,
				}, http.StatusForbidden)
				metrics.DecisionsTotal.WithLabelValues("denied", "policy").Inc()
				setDecision(c, d)

				body := gin.H{"error": "Forbidden", "message": o.forbiddenMessage}
				if len(d.ValidationErrors) > 0 {
					body["validationErrors"] = d.ValidationErrors
				}
				c.AbortWithStatusJSON(http.StatusForbidden, body)
				return
			}
		}

		g.record(c, audit.Record{
			EventType:    audit.EventPolicyAllowed,
			ActorID:      actor.UserID,
			ActorEmail:   actor.Email,
			ResourceType: kind,
			ResourceID:   resource.ID,
			AdditionalData: map[string]any{
				"actions": actions,
			},
			Success: true,
		}, http.StatusOK)
		metrics.DecisionsTotal.WithLabelValues("allowed", "policy").Inc()
		setDecision(c, Decision{Allowed: true})
		c.Next()
	}
}

// degraded handles the request while the PDP is unreachable.
func (g *Guard) degraded(c *gin.Context, actor auth.Actor, principal Principal, resource Resource, actions []string, o routeOptions) {
	if g.Fallback.Handler != nil {
		g.record(c, audit.Record{
			EventType:    audit.EventFallbackDelegated,
			ActorID:      actor.UserID,
			ActorEmail:   actor.Email,
			ResourceType: resource.Kind,
			ResourceID:   resource.ID,
			AdditionalData: map[string]any{
				"actions": actions,
			},
			Success: true,
		}, http.StatusOK)
		// The delegate owns the rest of the request, including its response.
		g.Fallback.Handler(c)
		return
	}

	if g.Fallback.FailClosed {
		g.record(c, audit.Record{
			EventType:    audit.EventFallbackDenied,
			ActorID:      actor.UserID,
			ActorEmail:   actor.Email,
			ResourceType: resource.Kind,
			ResourceID:   resource.ID,
			AdditionalData: map[string]any{
				"actions": actions,
			},
			Success: false,
		}, http.StatusForbidden)
		metrics.DecisionsTotal.WithLabelValues("denied", "fallback").Inc()
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden", "message": msgDegradedDenied})
		return
	}

	// Fail-open: a deliberate availability-over-enforcement trade-off.
	// Loud on purpose; security review relies on this being visible.
	g.Log.Warn("policy engine unavailable, allowing request via fallback",
		"actor_id", actor.UserID,
		"resource_kind", resource.Kind,
		"resource_id", resource.ID,
		"actions", actions,
	)
	g.record(c, audit.Record{
		EventType:    audit.EventFallbackAllowed,
		ActorID:      actor.UserID,
		ActorEmail:   actor.Email,
		ResourceType: resource.Kind,
		ResourceID:   resource.ID,
		AdditionalData: map[string]any{
			"actions":  actions,
			"degraded": true,
		},
		Success: true,
	}, http.StatusOK)
	metrics.DecisionsTotal.WithLabelValues("allowed", "fallback").Inc()
	setDecision(c, Decision{Allowed: true, MatchedRule: "pdp_unavailable_fallback"})
	c.Next()
}

// fail terminates the request with the generic 500 contract. The underlying
// error is logged server-side only.
func (g *Guard) fail(c *gin.Context, actor auth.Actor, kind, resourceID string, actions []string, err error) {
	g.record(c, audit.Record{
		EventType:    audit.EventCheckFailed,
		ActorID:      actor.UserID,
		ActorEmail:   actor.Email,
		ResourceType: kind,
		ResourceID:   resourceID,
		AdditionalData: map[string]any{
			"actions": actions,
		},
		Success:      false,
		ErrorMessage: err.Error(),
	}, http.StatusInternalServerError)
	metrics.DecisionsTotal.WithLabelValues("error", "policy").Inc()
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error", "message": msgCheckFailed})
}

// record fills request-derived fields and enqueues the audit record.
func (g *Guard) record(c *gin.Context, rec audit.Record, status int) {
	if g.Audit == nil {
		return
	}
	rec.IPAddress = c.ClientIP()
	rec.UserAgent = c.Request.UserAgent()
	rec.RequestPath = c.Request.URL.Path
	rec.RequestMethod = c.Request.Method
	rec.Severity = audit.Classify(rec.EventType, status, rec.RequestPath)
	g.Audit.Record(rec)
}
