package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	appchat "rentline/internal/app/services/chat"
	domainchat "rentline/internal/domain/chat"
)

// supportRole is the role attribute marking the single privileged identity.
// The messaging core only ever sees the resulting boolean.
const supportRole = "support"

// IdentityGate resolves bearer tokens against the sessions and users
// collections owned by the auth subsystem.
type IdentityGate struct {
	sessions *mongo.Collection
	users    *mongo.Collection
}

func NewIdentityGate(db *mongo.Database) *IdentityGate {
	return &IdentityGate{
		sessions: db.Collection("sessions"),
		users:    db.Collection("users"),
	}
}

func (g *IdentityGate) ResolveToken(ctx context.Context, token string) (appchat.Principal, error) {
	if token == "" {
		return appchat.Principal{}, domainchat.ErrUnauthenticated
	}
	var session struct {
		UserID    string `bson:"user_id"`
		ExpiresAt int64  `bson:"expires_at"`
	}
	if err := g.sessions.FindOne(ctx, bson.M{"_id": token}).Decode(&session); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return appchat.Principal{}, domainchat.ErrUnauthenticated
		}
		return appchat.Principal{}, err
	}
	if session.ExpiresAt > 0 && time.UnixMilli(session.ExpiresAt).Before(time.Now()) {
		return appchat.Principal{}, domainchat.ErrUnauthenticated
	}
	user := domainchat.UserID(session.UserID)
	privileged, err := g.IsPrivileged(ctx, user)
	if err != nil {
		return appchat.Principal{}, err
	}
	return appchat.Principal{ID: user, Privileged: privileged}, nil
}

func (g *IdentityGate) IsPrivileged(ctx context.Context, user domainchat.UserID) (bool, error) {
	var doc struct {
		Roles []string `bson:"roles"`
	}
	if err := g.users.FindOne(ctx, bson.M{"_id": string(user)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return false, nil
		}
		return false, err
	}
	for _, role := range doc.Roles {
		if role == supportRole {
			return true, nil
		}
	}
	return false, nil
}
