package authz

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"officiating-platform/internal/config"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(config.PDPConfig{
		Endpoint:       srv.URL,
		Token:          "test-token",
		RequestTimeout: 2 * time.Second,
	})
}

func TestClient_CheckAllowed(t *testing.T) {
	var gotAuth string
	var gotBody checkRequest
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/check" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]any{"allowed": true, "matchedRule": "r42"})
	})

	p := Principal{ID: "u1", Roles: []Role{SimpleRole("referee")}, OrganizationID: "org1"}
	res := Resource{Kind: KindGame, ID: "g1", Attributes: map[string]any{"organizationId": "org1"}}

	d, err := c.Check(context.Background(), p, res, "view")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !d.Allowed || d.MatchedRule != "r42" {
		t.Fatalf("unexpected decision: %+v", d)
	}
	if gotAuth != "Bearer test-token" {
		t.Fatalf("missing bearer token, got %q", gotAuth)
	}
	if gotBody.Action != "view" || gotBody.Principal.ID != "u1" || gotBody.Resource.ID != "g1" {
		t.Fatalf("request body not round-tripped: %+v", gotBody)
	}
}

func TestClient_CheckDeniedIsNotAnError(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"allowed":          false,
			"validationErrors": []string{"game is locked"},
		})
	})

	d, err := c.Check(context.Background(), Principal{ID: "u1"}, Resource{Kind: KindGame, ID: "g1"}, "delete")
	if err != nil {
		t.Fatalf("deny must not be an error: %v", err)
	}
	if d.Allowed {
		t.Fatalf("expected deny")
	}
	if len(d.ValidationErrors) != 1 || d.ValidationErrors[0] != "game is locked" {
		t.Fatalf("validation errors lost: %v", d.ValidationErrors)
	}
}

func TestClient_CheckTransportFailureIsError(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	if _, err := c.Check(context.Background(), Principal{ID: "u1"}, Resource{Kind: KindGame, ID: "g1"}, "view"); err == nil {
		t.Fatalf("expected error on non-200")
	}
}

func TestClient_Healthy(t *testing.T) {
	healthy := true
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/healthz" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if !healthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	})

	if err := c.Healthy(context.Background()); err != nil {
		t.Fatalf("expected healthy: %v", err)
	}
	healthy = false
	if err := c.Healthy(context.Background()); err == nil {
		t.Fatalf("expected unhealthy")
	}
}
