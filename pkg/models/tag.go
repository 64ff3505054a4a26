package models

import "time"

// Tag is an organization-scoped label attachable to documents and prompt
// revisions (spec.md §3 Tag, §4.O).
type Tag struct {
	ID             string    `bson:"_id" json:"id"`
	OrganizationID string    `bson:"organization_id" json:"organization_id"`
	Name           string    `bson:"name" json:"name"`
	Color          string    `bson:"color,omitempty" json:"color,omitempty"`
	Description    string    `bson:"description,omitempty" json:"description,omitempty"`
	CreatedAt      time.Time `bson:"created_at" json:"created_at"`
	CreatedBy      string    `bson:"created_by" json:"created_by"`
}
