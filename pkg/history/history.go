// Package history keeps an append-only record of committed lifecycle
// operations, independent of the per-bundle logging trail. History events
// survive bundle deletion and are queryable per resource.
package history

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Event is one immutable operation-history entry.
type Event struct {
	ID          string    `gorm:"primaryKey;column:id;type:varchar(36)"`
	ResourceID  string    `gorm:"column:resource_id;index:idx_hist_res_time,priority:1;not null"`
	CatalogueID string    `gorm:"column:catalogue_id;index"`
	Kind        string    `gorm:"column:kind;not null"`
	Action      string    `gorm:"column:action;not null"`
	Actor       string    `gorm:"column:actor"`
	Outcome     string    `gorm:"column:outcome;not null"` // success, failure
	OldStatus   string    `gorm:"column:old_status"`
	NewStatus   string    `gorm:"column:new_status"`
	Comment     string    `gorm:"column:comment"`
	CreatedAt   time.Time `gorm:"column:created_at;index:idx_hist_res_time,priority:2;autoCreateTime"`
}

// TableName returns the GORM table name.
func (Event) TableName() string { return "history_events" }

// Store provides append-only operations over history events.
type Store struct {
	db *gorm.DB
}

// NewStore creates a history Store.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// AutoMigrate creates or updates the history table.
func (s *Store) AutoMigrate() error {
	if err := s.db.AutoMigrate(&Event{}); err != nil {
		return fmt.Errorf("auto-migrate history_events: %w", err)
	}
	return nil
}

// Append records a new history event.
func (s *Store) Append(event *Event) error {
	if err := s.db.Create(event).Error; err != nil {
		return fmt.Errorf("append history event: %w", err)
	}
	return nil
}

// ListByResource returns paginated events for a resource, newest first.
// pageToken is an RFC3339Nano timestamp; events older than it are returned.
func (s *Store) ListByResource(resourceID string, pageSize int, pageToken string) ([]Event, string, int, error) {
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	var totalSize int64
	if err := s.db.Model(&Event{}).Where("resource_id = ?", resourceID).Count(&totalSize).Error; err != nil {
		return nil, "", 0, fmt.Errorf("count history events: %w", err)
	}

	query := s.db.Where("resource_id = ?", resourceID).Order("created_at DESC").Limit(pageSize + 1)
	if pageToken != "" {
		t, err := time.Parse(time.RFC3339Nano, pageToken)
		if err != nil {
			return nil, "", 0, fmt.Errorf("invalid page token: %w", err)
		}
		query = query.Where("created_at < ?", t)
	}

	var events []Event
	if err := query.Find(&events).Error; err != nil {
		return nil, "", 0, fmt.Errorf("list history events: %w", err)
	}

	var nextToken string
	if len(events) > pageSize {
		nextToken = events[pageSize-1].CreatedAt.Format(time.RFC3339Nano)
		events = events[:pageSize]
	}

	return events, nextToken, int(totalSize), nil
}

// DeleteOlderThan removes events created before the cutoff. Returns the
// number of deleted rows.
func (s *Store) DeleteOlderThan(cutoff time.Time) (int64, error) {
	result := s.db.Where("created_at < ?", cutoff).Delete(&Event{})
	if result.Error != nil {
		return 0, fmt.Errorf("delete old history events: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// Get retrieves one event by id. Returns nil, nil on miss.
func (s *Store) Get(id string) (*Event, error) {
	var event Event
	err := s.db.Where("id = ?", id).First(&event).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get history event: %w", err)
	}
	return &event, nil
}
