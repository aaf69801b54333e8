package store

import "fmt"

// ListOptions filters and paginates a listing of one resource type.
// PageToken is the resource id of the last record from the previous page.
type ListOptions struct {
	CatalogueID string
	Status      string
	Suspended   *bool
	Active      *bool
	PageSize    int
	PageToken   string
}

// List returns paginated records of one resource type ordered by resource
// id, along with the next page token and the total match count.
func (s *ResourceStore) List(resourceType string, opts ListOptions) ([]ResourceRecord, string, int, error) {
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	base := s.db.Model(&ResourceRecord{}).Where("resource_type = ?", resourceType)
	if opts.CatalogueID != "" {
		base = base.Where("catalogue_id = ?", opts.CatalogueID)
	}
	if opts.Status != "" {
		base = base.Where("status = ?", opts.Status)
	}
	if opts.Suspended != nil {
		base = base.Where("suspended = ?", *opts.Suspended)
	}
	if opts.Active != nil {
		base = base.Where("active = ?", *opts.Active)
	}

	var totalSize int64
	if err := base.Count(&totalSize).Error; err != nil {
		return nil, "", 0, fmt.Errorf("count resources: %w", err)
	}

	query := s.db.Where("resource_type = ?", resourceType).Order("resource_id ASC").Limit(pageSize + 1)
	if opts.CatalogueID != "" {
		query = query.Where("catalogue_id = ?", opts.CatalogueID)
	}
	if opts.Status != "" {
		query = query.Where("status = ?", opts.Status)
	}
	if opts.Suspended != nil {
		query = query.Where("suspended = ?", *opts.Suspended)
	}
	if opts.Active != nil {
		query = query.Where("active = ?", *opts.Active)
	}
	if opts.PageToken != "" {
		query = query.Where("resource_id > ?", opts.PageToken)
	}

	var recs []ResourceRecord
	if err := query.Find(&recs).Error; err != nil {
		return nil, "", 0, fmt.Errorf("list resources: %w", err)
	}

	var nextToken string
	if len(recs) > pageSize {
		nextToken = recs[pageSize-1].ResourceID
		recs = recs[:pageSize]
	}

	return recs, nextToken, int(totalSize), nil
}
