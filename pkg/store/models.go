// Package store persists serialized resource bundles in a relational
// database through GORM. Records carry an opaque payload plus the queryable
// workflow columns (resource type, catalogue, status, flags, PID); the
// resource type column can be rewritten in place, which is how drafts get
// promoted into the main catalogue storage.
package store

import "time"

// ResourceRecord is one stored bundle of any resource kind.
type ResourceRecord struct {
	RowID        string    `gorm:"primaryKey;column:row_id;type:varchar(36)"`
	ResourceID   string    `gorm:"column:resource_id;uniqueIndex:idx_res_type_id,priority:2;not null"`
	ResourceType string    `gorm:"column:resource_type;uniqueIndex:idx_res_type_id,priority:1;index:idx_res_type_cat,priority:1;not null"`
	CatalogueID  string    `gorm:"column:catalogue_id;index:idx_res_type_cat,priority:2"`
	Status       string    `gorm:"column:status;index"`
	Active       bool      `gorm:"column:active"`
	Suspended    bool      `gorm:"column:suspended"`
	Published    bool      `gorm:"column:published"`
	PID          string    `gorm:"column:pid;index"`
	Payload      []byte    `gorm:"column:payload;type:text;not null"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName returns the GORM table name.
func (ResourceRecord) TableName() string { return "resources" }
