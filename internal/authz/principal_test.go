package authz

import (
	"encoding/json"
	"strings"
	"testing"

	"officiating-platform/internal/auth"
)

func TestBuildPrincipal_EmptyRolesNeverNil(t *testing.T) {
	p := BuildPrincipal(auth.Actor{UserID: "u1", OrganizationID: "org1"}, "")
	if p.Roles == nil {
		t.Fatalf("roles must be non-nil")
	}
	if len(p.Roles) != 0 {
		t.Fatalf("expected empty roles, got %d", len(p.Roles))
	}
}

func TestBuildPrincipal_OrgOverride(t *testing.T) {
	a := auth.Actor{UserID: "u1", OrganizationID: "org1"}
	if p := BuildPrincipal(a, ""); p.OrganizationID != "org1" {
		t.Fatalf("expected actor org as default, got %q", p.OrganizationID)
	}
	if p := BuildPrincipal(a, "org2"); p.OrganizationID != "org2" {
		t.Fatalf("expected explicit org to win, got %q", p.OrganizationID)
	}
}

func TestBuildPrincipal_ExtraStructuredRoles(t *testing.T) {
	a := auth.Actor{UserID: "u1", OrganizationID: "org1", Roles: []string{"referee", ""}}
	p := BuildPrincipal(a, "", StructuredRole(RoleRecord{Name: "Assignor", Code: "ASG"}))
	if len(p.Roles) != 2 {
		t.Fatalf("expected 2 roles (empty string dropped), got %d", len(p.Roles))
	}
	if p.Roles[0].IsStructured() || !p.Roles[1].IsStructured() {
		t.Fatalf("role representations not preserved")
	}
}

func TestRole_MarshalJSON(t *testing.T) {
	p := Principal{
		ID: "u1",
		Roles: []Role{
			SimpleRole("referee"),
			StructuredRole(RoleRecord{Name: "Assignor", Code: "ASG"}),
		},
		OrganizationID: "org1",
	}
	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(data)
	if !strings.Contains(s, `"referee"`) {
		t.Fatalf("simple role should serialize as string: %s", s)
	}
	if !strings.Contains(s, `"code":"ASG"`) {
		t.Fatalf("structured role should serialize as object: %s", s)
	}
}
