// Package notify delivers best-effort notifications (email, bus events)
// through a persisted outbox. Lifecycle operations enqueue dispatches in
// the same step as the primary mutation; a worker pool delivers them
// asynchronously with retries, so delivery survives a crash and never
// blocks or rolls back the mutation that produced it.
package notify

import "time"

// DispatchState represents the lifecycle state of a queued dispatch.
type DispatchState string

const (
	StateQueued    DispatchState = "queued"
	StateRunning   DispatchState = "running"
	StateDelivered DispatchState = "delivered"
	StateFailed    DispatchState = "failed"
)

// DispatchKind distinguishes delivery channels.
type DispatchKind string

const (
	KindEmail DispatchKind = "email"
	KindEvent DispatchKind = "event"
)

// Dispatch is the GORM model for one queued notification.
type Dispatch struct {
	ID           string        `gorm:"primaryKey;column:id;type:varchar(36)"`
	Kind         DispatchKind  `gorm:"column:kind;not null"`
	Recipient    string        `gorm:"column:recipient;not null"` // address or topic
	Subject      string        `gorm:"column:subject"`
	Body         string        `gorm:"column:body;type:text"`
	ResourceID   string        `gorm:"column:resource_id;index"`
	Action       string        `gorm:"column:action"`
	State        DispatchState `gorm:"column:state;index;not null;default:queued"`
	AttemptCount int           `gorm:"column:attempt_count;default:0"`
	LastError    string        `gorm:"column:last_error"`
	StartedAt    *time.Time    `gorm:"column:started_at"`
	DeliveredAt  *time.Time    `gorm:"column:delivered_at"`
	CreatedAt    time.Time     `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time     `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName returns the GORM table name.
func (Dispatch) TableName() string { return "notification_outbox" }

// IsTerminal returns true if the dispatch is in a terminal state.
func (d *Dispatch) IsTerminal() bool {
	return d.State == StateDelivered || d.State == StateFailed
}
