package authz

import (
	"encoding/json"

	"officiating-platform/internal/auth"
)

// RoleRecord is the structured role representation used by newer parts of
// the system. Older tokens and legacy rows carry bare role strings; both
// forms must be accepted everywhere roles are compared.
type RoleRecord struct {
	ID          string   `json:"id,omitempty"`
	Name        string   `json:"name"`
	Code        string   `json:"code,omitempty"`
	IsSystem    bool     `json:"is_system,omitempty"`
	IsActive    bool     `json:"is_active,omitempty"`
	Priority    int      `json:"priority,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
}

// Role is a tagged union: either a bare name or a structured record.
// Construct with SimpleRole or StructuredRole; the zero value matches nothing.
type Role struct {
	name   string
	record *RoleRecord
}

func SimpleRole(name string) Role { return Role{name: name} }

func StructuredRole(rec RoleRecord) Role { return Role{record: &rec} }

func (r Role) IsStructured() bool { return r.record != nil }

// Name returns the display name regardless of representation.
func (r Role) Name() string {
	if r.record != nil {
		return r.record.Name
	}
	return r.name
}

// Record returns the structured form, or nil for simple roles.
func (r Role) Record() *RoleRecord { return r.record }

// MarshalJSON serializes simple roles as strings and structured roles as
// objects, matching the wire shape the PDP accepts.
func (r Role) MarshalJSON() ([]byte, error) {
	if r.record != nil {
		return json.Marshal(r.record)
	}
	return json.Marshal(r.name)
}

// Principal is the normalized actor description sent to the PDP.
// Built fresh per request and never persisted; treat as immutable.
type Principal struct {
	ID              string         `json:"id"`
	Roles           []Role         `json:"roles"`
	OrganizationID  string         `json:"organizationId"`
	PrimaryRegionID string         `json:"primaryRegionId,omitempty"`
	RegionIDs       []string       `json:"regionIds,omitempty"`
	Attributes      map[string]any `json:"attributes,omitempty"`
}

// BuildPrincipal converts an authenticated actor into a Principal.
// orgID overrides the actor's organization when non-empty. extraRoles lets
// callers append structured roles resolved from storage. Roles is always
// non-nil so downstream matching is total.
func BuildPrincipal(a auth.Actor, orgID string, extraRoles ...Role) Principal {
	if orgID == "" {
		orgID = a.OrganizationID
	}

	roles := make([]Role, 0, len(a.Roles)+len(extraRoles))
	for _, name := range a.Roles {
		if name == "" {
			continue
		}
		roles = append(roles, SimpleRole(name))
	}
	roles = append(roles, extraRoles...)

	attrs := map[string]any{}
	if a.Email != "" {
		attrs["email"] = a.Email
	}

	return Principal{
		ID:              a.UserID,
		Roles:           roles,
		OrganizationID:  orgID,
		PrimaryRegionID: a.PrimaryRegionID,
		RegionIDs:       a.RegionIDs,
		Attributes:      attrs,
	}
}
