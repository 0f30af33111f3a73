package auth

import (
	"testing"
	"time"

	"officiating-platform/internal/config"
)

func testManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(config.AuthConfig{
		JWTSecret:       "test-secret",
		JWTIssuer:       "officiating-platform",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("manager init: %v", err)
	}
	return m
}

func TestIssueAndVerify_RoundTripsActor(t *testing.T) {
	m := testManager(t)
	now := time.Now()

	actor := Actor{
		UserID:          "u1",
		Email:           "ref@example.com",
		OrganizationID:  "org1",
		PrimaryRegionID: "r1",
		RegionIDs:       []string{"r1", "r2"},
		Roles:           []string{"assignor", "referee"},
	}
	pair, err := m.IssuePair(now, actor)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := m.Verify(pair.AccessToken, TokenTypeAccess, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.UserID != "u1" || claims.OrganizationID != "org1" {
		t.Fatalf("identity not round-tripped: %+v", claims)
	}
	if len(claims.Roles) != 2 || claims.Roles[0] != "assignor" {
		t.Fatalf("roles not round-tripped: %v", claims.Roles)
	}
}

func TestVerify_RejectsRefreshAsAccess(t *testing.T) {
	m := testManager(t)
	now := time.Now()

	pair, err := m.IssuePair(now, Actor{UserID: "u1", OrganizationID: "org1"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := m.Verify(pair.RefreshToken, TokenTypeAccess, now.Add(time.Minute)); err == nil {
		t.Fatalf("expected token_type mismatch")
	}
}

func TestVerify_RejectsExpired(t *testing.T) {
	m := testManager(t)
	now := time.Now()

	pair, err := m.IssuePair(now, Actor{UserID: "u1", OrganizationID: "org1"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := m.Verify(pair.AccessToken, TokenTypeAccess, now.Add(16*time.Minute)); err == nil {
		t.Fatalf("expected expiry error")
	}
}
