package accesscontrol

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/analytiqhub/docrouter/pkg/apperr"
	"github.com/analytiqhub/docrouter/pkg/models"
)

// Users binds the users collection, consulted only for the system-admin
// flag an access-token-authenticated request needs (a session token
// already carries IsSystemAdmin in its claims, spec.md §4.N).
type Users struct {
	coll *mongo.Collection
}

// NewUsers builds a Users accessor over coll.
func NewUsers(coll *mongo.Collection) *Users {
	return &Users{coll: coll}
}

// Get fetches a single user by id.
func (u *Users) Get(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := u.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}
