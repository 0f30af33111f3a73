package authz

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Resource kinds known to the built-in resolver.
const (
	KindGame       = "game"
	KindAssignment = "assignment"
	KindUser       = "user"
)

// Resource describes the object an action is performed against.
// Attributes always include organizationId once resolved.
type Resource struct {
	Kind       string         `json:"kind"`
	ID         string         `json:"id"`
	Attributes map[string]any `json:"attributes"`
}

// AttributeFetcher loads the minimal attribute set for one resource.
// Implementations return ErrNotFound when the id matches no row.
type AttributeFetcher func(ctx context.Context, resourceID string) (map[string]any, error)

// Resolver builds Resources by fetching policy-relevant attributes from the
// data store. Routes may register or override fetchers per kind.
type Resolver struct {
	fetchers map[string]AttributeFetcher
}

func NewResolver(db *sql.DB) *Resolver {
	r := &Resolver{fetchers: map[string]AttributeFetcher{}}
	if db != nil {
		r.Register(KindGame, gameFetcher(db))
		r.Register(KindAssignment, assignmentFetcher(db))
		r.Register(KindUser, userFetcher(db))
	}
	return r
}

func (r *Resolver) Register(kind string, f AttributeFetcher) {
	r.fetchers[kind] = f
}

// Resolve fetches attributes for (kind, id) and merges caller-supplied
// overrides on top; override keys win. An empty id means a create action:
// a synthetic placeholder id is generated and no fetch occurs. A custom
// fetcher, when non-nil, replaces the registered one for this call.
// orgID is the caller's organization; it backfills organizationId when
// neither the fetcher nor the overrides set one, so the attribute map
// always carries an organization.
func (r *Resolver) Resolve(ctx context.Context, kind, id, orgID string, custom AttributeFetcher, overrides map[string]any) (Resource, error) {
	attrs := map[string]any{}

	if id == "" {
		id = "new:" + uuid.NewString()
	} else {
		fetch := custom
		if fetch == nil {
			fetch = r.fetchers[kind]
		}
		if fetch != nil {
			fetched, err := safeFetch(ctx, fetch, id)
			if err != nil {
				return Resource{}, err
			}
			for k, v := range fetched {
				attrs[k] = v
			}
		}
	}

	for k, v := range overrides {
		attrs[k] = v
	}

	if _, ok := attrs["organizationId"]; !ok && orgID != "" {
		attrs["organizationId"] = orgID
	}

	return Resource{Kind: kind, ID: id, Attributes: attrs}, nil
}

// safeFetch converts fetcher panics into errors so a misbehaving
// route-supplied fetcher cannot take down the request goroutine.
func safeFetch(ctx context.Context, fetch AttributeFetcher, id string) (attrs map[string]any, err error) {
	defer func() {
		if p := recover(); p != nil {
			attrs = nil
			err = fmt.Errorf("authz: attribute fetcher panicked: %v", p)
		}
	}()
	return fetch(ctx, id)
}

func gameFetcher(db *sql.DB) AttributeFetcher {
	return func(ctx context.Context, id string) (map[string]any, error) {
		var orgID, status, createdBy, regionID string
		err := db.QueryRowContext(ctx,
			`SELECT organization_id, status, created_by, region_id FROM games WHERE id = $1`, id,
		).Scan(&orgID, &status, &createdBy, &regionID)
		if err != nil {
			return nil, wrapFetchErr("game", id, err)
		}
		return map[string]any{
			"organizationId": orgID,
			"status":         status,
			"ownerId":        createdBy,
			"regionId":       regionID,
		}, nil
	}
}

func assignmentFetcher(db *sql.DB) AttributeFetcher {
	return func(ctx context.Context, id string) (map[string]any, error) {
		var orgID, status, userID, gameID string
		err := db.QueryRowContext(ctx,
			`SELECT organization_id, status, user_id, game_id FROM assignments WHERE id = $1`, id,
		).Scan(&orgID, &status, &userID, &gameID)
		if err != nil {
			return nil, wrapFetchErr("assignment", id, err)
		}
		return map[string]any{
			"organizationId": orgID,
			"status":         status,
			"ownerId":        userID,
			"gameId":         gameID,
		}, nil
	}
}

func userFetcher(db *sql.DB) AttributeFetcher {
	return func(ctx context.Context, id string) (map[string]any, error) {
		var orgID, status string
		err := db.QueryRowContext(ctx,
			`SELECT organization_id, status FROM users WHERE id = $1`, id,
		).Scan(&orgID, &status)
		if err != nil {
			return nil, wrapFetchErr("user", id, err)
		}
		return map[string]any{
			"organizationId": orgID,
			"status":         status,
		}, nil
	}
}

func wrapFetchErr(kind, id string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
	}
	return fmt.Errorf("authz: fetch %s %s: %w", kind, id, err)
}
