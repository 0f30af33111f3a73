package auth

import (
	"context"
	"errors"
)

// Actor is the authenticated identity attached to a request context.
// It is the raw input to the principal builder in internal/authz; it carries
// roles exactly as issued, without normalization.
type Actor struct {
	UserID          string
	Email           string
	OrganizationID  string
	PrimaryRegionID string
	RegionIDs       []string
	Roles           []string
}

type ctxKey int

const ctxActor ctxKey = iota

func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, ctxActor, a)
}

// ActorFromContext returns the authenticated actor, or an error if the
// request never passed authentication.
func ActorFromContext(ctx context.Context) (Actor, error) {
	v := ctx.Value(ctxActor)
	if a, ok := v.(Actor); ok && a.UserID != "" {
		return a, nil
	}
	return Actor{}, errors.New("actor not in context")
}

func UserID(ctx context.Context) (string, error) {
	a, err := ActorFromContext(ctx)
	if err != nil {
		return "", err
	}
	return a.UserID, nil
}

func OrganizationID(ctx context.Context) (string, error) {
	a, err := ActorFromContext(ctx)
	if err != nil {
		return "", err
	}
	if a.OrganizationID == "" {
		return "", errors.New("organization_id not in context")
	}
	return a.OrganizationID, nil
}
