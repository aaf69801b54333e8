package store

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrResourceNotFound is returned when a lookup by type and id misses.
var ErrResourceNotFound = errors.New("resource not found")

// ErrResourceExists is returned when adding a record whose type and id
// already exist.
var ErrResourceExists = errors.New("resource already exists")

// searchColumns maps the externally addressable search fields to their
// database columns. Lookups outside this map are rejected.
var searchColumns = map[string]string{
	"resource_id":  "resource_id",
	"catalogue_id": "catalogue_id",
	"status":       "status",
	"pid":          "pid",
}

// ResourceStore provides CRUD and search over stored resource records.
type ResourceStore struct {
	db *gorm.DB
}

// NewResourceStore creates a ResourceStore.
func NewResourceStore(db *gorm.DB) *ResourceStore {
	return &ResourceStore{db: db}
}

// AutoMigrate creates or updates the resources table.
func (s *ResourceStore) AutoMigrate() error {
	if err := s.db.AutoMigrate(&ResourceRecord{}); err != nil {
		return fmt.Errorf("auto-migrate resources: %w", err)
	}
	return nil
}

// Add inserts a new record. Returns ErrResourceExists if a record with the
// same resource type and id is already stored.
func (s *ResourceStore) Add(rec *ResourceRecord) error {
	if rec.RowID == "" {
		rec.RowID = uuid.New().String()
	}
	var count int64
	if err := s.db.Model(&ResourceRecord{}).
		Where("resource_type = ? AND resource_id = ?", rec.ResourceType, rec.ResourceID).
		Count(&count).Error; err != nil {
		return fmt.Errorf("check existing resource: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("%s %s: %w", rec.ResourceType, rec.ResourceID, ErrResourceExists)
	}
	if err := s.db.Create(rec).Error; err != nil {
		return fmt.Errorf("add resource: %w", err)
	}
	return nil
}

// Get retrieves a record by resource type and id. Returns nil, nil on miss.
func (s *ResourceStore) Get(resourceType, id string) (*ResourceRecord, error) {
	var rec ResourceRecord
	err := s.db.Where("resource_type = ? AND resource_id = ?", resourceType, id).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get resource: %w", err)
	}
	return &rec, nil
}

// Update rewrites the stored record identified by its resource type and id.
func (s *ResourceStore) Update(rec *ResourceRecord) error {
	result := s.db.Model(&ResourceRecord{}).
		Where("resource_type = ? AND resource_id = ?", rec.ResourceType, rec.ResourceID).
		Updates(map[string]any{
			"catalogue_id": rec.CatalogueID,
			"status":       rec.Status,
			"active":       rec.Active,
			"suspended":    rec.Suspended,
			"published":    rec.Published,
			"pid":          rec.PID,
			"payload":      rec.Payload,
		})
	if result.Error != nil {
		return fmt.Errorf("update resource: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%s %s: %w", rec.ResourceType, rec.ResourceID, ErrResourceNotFound)
	}
	return nil
}

// Delete removes the record identified by resource type and id.
func (s *ResourceStore) Delete(resourceType, id string) error {
	result := s.db.Where("resource_type = ? AND resource_id = ?", resourceType, id).
		Delete(&ResourceRecord{})
	if result.Error != nil {
		return fmt.Errorf("delete resource: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%s %s: %w", resourceType, id, ErrResourceNotFound)
	}
	return nil
}

// ChangeResourceType rewrites the resource type tag of a stored record in
// place, moving it between storage types without touching its payload.
func (s *ResourceStore) ChangeResourceType(oldType, id, newType string) error {
	result := s.db.Model(&ResourceRecord{}).
		Where("resource_type = ? AND resource_id = ?", oldType, id).
		Update("resource_type", newType)
	if result.Error != nil {
		return fmt.Errorf("change resource type: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%s %s: %w", oldType, id, ErrResourceNotFound)
	}
	return nil
}

// FindByField returns the records of the given resource type matching one
// indexed search field. Unknown fields are rejected.
func (s *ResourceStore) FindByField(resourceType, field, value string) ([]ResourceRecord, error) {
	col, ok := searchColumns[field]
	if !ok {
		return nil, fmt.Errorf("field %q is not searchable", field)
	}
	var recs []ResourceRecord
	err := s.db.Where("resource_type = ?", resourceType).
		Where(fmt.Sprintf("%s = ?", col), value).
		Order("resource_id ASC").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("find by %s: %w", field, err)
	}
	return recs, nil
}

// FindByPID returns every stored record carrying the given PID, across all
// resource types. Used to enforce installation-wide PID uniqueness.
func (s *ResourceStore) FindByPID(pid string) ([]ResourceRecord, error) {
	var recs []ResourceRecord
	if err := s.db.Where("pid = ?", pid).Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("find by pid: %w", err)
	}
	return recs, nil
}
