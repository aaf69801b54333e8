package notify

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OutboxStore provides database operations for queued dispatches.
type OutboxStore struct {
	db *gorm.DB
}

// NewOutboxStore creates a new OutboxStore.
func NewOutboxStore(db *gorm.DB) *OutboxStore {
	return &OutboxStore{db: db}
}

// AutoMigrate creates or updates the notification_outbox table.
func (s *OutboxStore) AutoMigrate() error {
	if err := s.db.AutoMigrate(&Dispatch{}); err != nil {
		return fmt.Errorf("auto-migrate notification_outbox: %w", err)
	}
	return nil
}

// Enqueue creates a new queued dispatch.
func (s *OutboxStore) Enqueue(d *Dispatch) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	if d.State == "" {
		d.State = StateQueued
	}
	if err := s.db.Create(d).Error; err != nil {
		return fmt.Errorf("enqueue dispatch: %w", err)
	}
	return nil
}

// Claim picks the oldest queued dispatch and transitions it to running,
// incrementing its attempt count. Returns nil if none are available.
func (s *OutboxStore) Claim(maxRetries int) (*Dispatch, error) {
	var d Dispatch

	err := s.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Where("state = ? AND attempt_count <= ?", StateQueued, maxRetries).
			Order("created_at ASC").
			Limit(1).
			First(&d)
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				return nil
			}
			return result.Error
		}

		now := time.Now()
		return tx.Model(&Dispatch{}).Where("id = ? AND state = ?", d.ID, StateQueued).
			Updates(map[string]any{
				"state":         StateRunning,
				"started_at":    now,
				"attempt_count": gorm.Expr("attempt_count + 1"),
			}).Error
	})
	if err != nil {
		return nil, fmt.Errorf("claim dispatch: %w", err)
	}

	if d.ID == "" {
		return nil, nil
	}

	if err := s.db.First(&d, "id = ?", d.ID).Error; err != nil {
		return nil, fmt.Errorf("reload claimed dispatch: %w", err)
	}
	return &d, nil
}

// Complete marks a dispatch as delivered.
func (s *OutboxStore) Complete(id string) error {
	now := time.Now()
	result := s.db.Model(&Dispatch{}).Where("id = ?", id).Updates(map[string]any{
		"state":        StateDelivered,
		"delivered_at": now,
		"last_error":   "",
	})
	if result.Error != nil {
		return fmt.Errorf("complete dispatch: %w", result.Error)
	}
	return nil
}

// Fail records a delivery failure. Within the retry budget the dispatch is
// re-queued; past it the dispatch lands in the failed state.
func (s *OutboxStore) Fail(id, errMsg string, maxRetries int) error {
	var d Dispatch
	if err := s.db.First(&d, "id = ?", id).Error; err != nil {
		return fmt.Errorf("load dispatch for fail: %w", err)
	}

	updates := map[string]any{"last_error": errMsg}
	if d.AttemptCount < maxRetries {
		updates["state"] = StateQueued
		updates["started_at"] = nil
	} else {
		updates["state"] = StateFailed
	}

	result := s.db.Model(&Dispatch{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("fail dispatch: %w", result.Error)
	}
	return nil
}

// Get retrieves a dispatch by id. Returns nil, nil on miss.
func (s *OutboxStore) Get(id string) (*Dispatch, error) {
	var d Dispatch
	if err := s.db.First(&d, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get dispatch: %w", err)
	}
	return &d, nil
}

// ListByResource returns the dispatches produced for a resource, newest
// first.
func (s *OutboxStore) ListByResource(resourceID string, limit int) ([]Dispatch, error) {
	if limit <= 0 {
		limit = 50
	}
	var dispatches []Dispatch
	err := s.db.Where("resource_id = ?", resourceID).
		Order("created_at DESC").
		Limit(limit).
		Find(&dispatches).Error
	if err != nil {
		return nil, fmt.Errorf("list dispatches: %w", err)
	}
	return dispatches, nil
}

// CleanupStuck re-queues dispatches that have been running longer than the
// claim timeout. Returns the number of recovered rows.
func (s *OutboxStore) CleanupStuck(claimTimeout time.Duration) (int64, error) {
	cutoff := time.Now().Add(-claimTimeout)
	result := s.db.Model(&Dispatch{}).
		Where("state = ? AND started_at < ?", StateRunning, cutoff).
		Updates(map[string]any{"state": StateQueued, "started_at": nil})
	if result.Error != nil {
		return 0, fmt.Errorf("cleanup stuck dispatches: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// DeleteOlderThan removes terminal dispatches created before the cutoff.
func (s *OutboxStore) DeleteOlderThan(cutoff time.Time) (int64, error) {
	result := s.db.Where("state IN ? AND created_at < ?",
		[]DispatchState{StateDelivered, StateFailed}, cutoff).
		Delete(&Dispatch{})
	if result.Error != nil {
		return 0, fmt.Errorf("delete old dispatches: %w", result.Error)
	}
	return result.RowsAffected, nil
}
