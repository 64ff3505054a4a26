// Package tagorg implements the Tag & Organization Model (component O,
// spec.md §4.O): tag CRUD with referential-integrity delete refusal, and
// organization CRUD with upgrade-lattice validation and the
// team/enterprise admin-set requirement. Query shape follows the same
// per-organization bson filter idiom as pkg/registry.
package tagorg

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/analytiqhub/docrouter/pkg/apperr"
	"github.com/analytiqhub/docrouter/pkg/models"
)

// Tags is the Tag Store.
type Tags struct {
	coll    *mongo.Collection
	docs    *mongo.Collection
	prompts *mongo.Collection
}

// NewTags binds a Tags store over coll, with docs/prompts consulted for the
// referential-integrity delete check (spec.md §4.O).
func NewTags(coll, docs, prompts *mongo.Collection) *Tags {
	return &Tags{coll: coll, docs: docs, prompts: prompts}
}

// Create inserts a new tag.
func (t *Tags) Create(ctx context.Context, organizationID, name, color, description, createdBy string) (*models.Tag, error) {
	tag := &models.Tag{
		ID:             uuid.NewString(),
		OrganizationID: organizationID,
		Name:           name,
		Color:          color,
		Description:    description,
		CreatedAt:      time.Now().UTC(),
		CreatedBy:      createdBy,
	}
	if _, err := t.coll.InsertOne(ctx, tag); err != nil {
		return nil, err
	}
	return tag, nil
}

// Get fetches a single tag scoped to organizationID.
func (t *Tags) Get(ctx context.Context, organizationID, id string) (*models.Tag, error) {
	var tag models.Tag
	err := t.coll.FindOne(ctx, bson.M{"_id": id, "organization_id": organizationID}).Decode(&tag)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &tag, nil
}

// List returns every tag belonging to organizationID.
func (t *Tags) List(ctx context.Context, organizationID string) ([]*models.Tag, error) {
	cursor, err := t.coll.Find(ctx, bson.M{"organization_id": organizationID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []*models.Tag
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ValidateBelongsToOrg confirms every id in tagIDs is a tag of
// organizationID (spec.md §4.K step 3: "validate every requested tag
// belongs to the target organization").
func (t *Tags) ValidateBelongsToOrg(ctx context.Context, organizationID string, tagIDs []string) error {
	if len(tagIDs) == 0 {
		return nil
	}
	count, err := t.coll.CountDocuments(ctx, bson.M{"organization_id": organizationID, "_id": bson.M{"$in": tagIDs}})
	if err != nil {
		return err
	}
	if int(count) != len(uniqueStrings(tagIDs)) {
		return fmt.Errorf("%w: one or more tags do not belong to organization %s", apperr.ErrValidationFailed, organizationID)
	}
	return nil
}

// Delete removes a tag, refusing if it is referenced by any document or
// prompt revision (spec.md §4.O referential integrity).
func (t *Tags) Delete(ctx context.Context, organizationID, id string) error {
	if _, err := t.Get(ctx, organizationID, id); err != nil {
		return err
	}

	docCount, err := t.docs.CountDocuments(ctx, bson.M{"organization_id": organizationID, "tag_ids": id})
	if err != nil {
		return err
	}
	if docCount > 0 {
		return fmt.Errorf("%w: tag %s is referenced by %d document(s)", apperr.ErrConflict, id, docCount)
	}

	promptCount, err := t.prompts.CountDocuments(ctx, bson.M{"organization_id": organizationID, "tag_ids": id})
	if err != nil {
		return err
	}
	if promptCount > 0 {
		return fmt.Errorf("%w: tag %s is referenced by %d prompt(s)", apperr.ErrConflict, id, promptCount)
	}

	_, err = t.coll.DeleteOne(ctx, bson.M{"_id": id, "organization_id": organizationID})
	return err
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// Organizations is the Organization Store.
type Organizations struct {
	coll *mongo.Collection
}

// NewOrganizations binds an Organizations store over coll.
func NewOrganizations(coll *mongo.Collection) *Organizations {
	return &Organizations{coll: coll}
}

// Create inserts a new individual-tier organization (spec.md §4.O: new
// organizations start at the bottom of the upgrade lattice).
func (o *Organizations) Create(ctx context.Context, name string, members []models.Member) (*models.Organization, error) {
	now := time.Now().UTC()
	org := &models.Organization{
		ID:        uuid.NewString(),
		Name:      name,
		Type:      models.OrgIndividual,
		Members:   members,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := o.coll.InsertOne(ctx, org); err != nil {
		return nil, err
	}
	return org, nil
}

// Get fetches a single organization.
func (o *Organizations) Get(ctx context.Context, id string) (*models.Organization, error) {
	var org models.Organization
	err := o.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&org)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &org, nil
}

// Upgrade moves an organization to a higher tier, validating the upgrade
// lattice and, for team/enterprise, requiring at least one admin in the
// new member set (spec.md §4.O).
func (o *Organizations) Upgrade(ctx context.Context, id string, next models.OrganizationType, members []models.Member, requestingUserIsSystemAdmin bool) (*models.Organization, error) {
	org, err := o.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !org.Type.CanUpgradeTo(next) {
		return nil, fmt.Errorf("%w: %s cannot upgrade to %s", apperr.ErrValidationFailed, org.Type, next)
	}
	if next == models.OrgEnterprise && !requestingUserIsSystemAdmin {
		return nil, fmt.Errorf("%w: enterprise upgrade requires system-admin", apperr.ErrValidationFailed)
	}
	if (next == models.OrgTeam || next == models.OrgEnterprise) && !hasAdmin(members) {
		return nil, fmt.Errorf("%w: %s tier requires a non-empty admin set", apperr.ErrValidationFailed, next)
	}

	org.Type = next
	org.Members = members
	org.UpdatedAt = time.Now().UTC()

	_, err = o.coll.ReplaceOne(ctx, bson.M{"_id": id}, org)
	if err != nil {
		return nil, err
	}
	return org, nil
}

func hasAdmin(members []models.Member) bool {
	for _, m := range members {
		if m.Role == models.RoleAdmin {
			return true
		}
	}
	return false
}
