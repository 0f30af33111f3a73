package httpapi

import (
	"net/http"
	"time"

	"officiating-platform/internal/auth"
	"officiating-platform/internal/authz"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
// Authorization is owned entirely by the authz guard in the route chain;
// handlers only consume the decision when they need to know "why".

type Handlers struct {
	Auth *auth.Manager
}

// --- Auth ---

type loginRequest struct {
	UserID         string   `json:"user_id"`
	Email          string   `json:"email"`
	OrganizationID string   `json:"organization_id"`
	Roles          []string `json:"roles"`
}

// Login issues a JWT token pair.
//
// NOTE: This is a skeleton-only endpoint. Real systems must validate credentials.
func (h Handlers) Login(c *gin.Context) {
	if h.Auth == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "auth not configured"})
		return
	}
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.UserID == "" || req.OrganizationID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "user_id and organization_id required"})
		return
	}
	pair, err := h.Auth.IssuePair(time.Now(), auth.Actor{
		UserID:         req.UserID,
		Email:          req.Email,
		OrganizationID: req.OrganizationID,
		Roles:          req.Roles,
	})
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": pair.AccessToken, "refresh_token": pair.RefreshToken})
}

// --- Identity ---

// Me echoes the authenticated actor.
func (h Handlers) Me(c *gin.Context) {
	actor, err := auth.ActorFromContext(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized", "message": "Authentication required"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user_id":         actor.UserID,
		"email":           actor.Email,
		"organization_id": actor.OrganizationID,
		"roles":           actor.Roles,
		"region_ids":      actor.RegionIDs,
	})
}

// --- Games (placeholders; persistence for business entities lives elsewhere) ---

// GetGame runs after the guard allowed "view" on the game.
func (h Handlers) GetGame(c *gin.Context) {
	d, _ := authz.DecisionFromGin(c)
	c.JSON(http.StatusOK, gin.H{
		"id":           c.Param("id"),
		"matched_rule": d.MatchedRule,
	})
}

func (h Handlers) DeleteGame(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"id": c.Param("id"), "status": "deleted"})
}

func (h Handlers) CreateGame(c *gin.Context) {
	c.JSON(http.StatusCreated, gin.H{"status": "created"})
}

// --- Assignments ---

func (h Handlers) GetAssignment(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"id": c.Param("id")})
}

func (h Handlers) UpdateAssignment(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"id": c.Param("id"), "status": "updated"})
}

// --- Users ---

func (h Handlers) GetUser(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"id": c.Param("id")})
}
