package auth

import "github.com/golang-jwt/jwt/v5"

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims are the only supported JWT claims shape for this service.
// Multi-tenant invariant: OrganizationID must be present for all activity.
// Authorization decisions are NOT made from claims alone; the policy pipeline
// (internal/authz) owns every allow/deny.
type Claims struct {
	jwt.RegisteredClaims

	UserID          string    `json:"user_id"`
	Email           string    `json:"email,omitempty"`
	OrganizationID  string    `json:"organization_id"`
	PrimaryRegionID string    `json:"primary_region_id,omitempty"`
	RegionIDs       []string  `json:"region_ids,omitempty"`
	Roles           []string  `json:"roles,omitempty"`
	TokenType       TokenType `json:"token_type"`
}
