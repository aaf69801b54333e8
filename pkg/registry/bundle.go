// Package registry defines the domain model shared by every resource kind:
// the Bundle wrapper carrying workflow metadata, the immutable LoggingInfo
// audit trail, identifiers, and the typed error taxonomy.
package registry

// AuditState classifies the outcome of the most recent audit of a resource.
type AuditState string

const (
	NotAudited           AuditState = "Not Audited"
	Valid                AuditState = "Valid"
	InvalidAndNotUpdated AuditState = "Invalid and not updated"
	InvalidAndUpdated    AuditState = "Invalid and updated"
)

// Metadata records who registered and last modified a resource, whether it
// has been projected to the public catalogue, and accepted terms.
type Metadata struct {
	RegisteredBy string   `json:"registeredBy,omitempty"`
	RegisteredAt string   `json:"registeredAt,omitempty"` // epoch millis
	ModifiedBy   string   `json:"modifiedBy,omitempty"`
	ModifiedAt   string   `json:"modifiedAt,omitempty"` // epoch millis
	Published    bool     `json:"published"`
	Terms        []string `json:"terms,omitempty"`
}

// AlternativeIdentifier is an external identifier attached to a resource.
// The PID type is unique across the whole installation.
type AlternativeIdentifier struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Identifiers groups the persistent identifier of a resource with any
// alternative identifiers supplied by the onboarding catalogue.
type Identifiers struct {
	PID                    string                  `json:"pid,omitempty"`
	AlternativeIdentifiers []AlternativeIdentifier `json:"alternativeIdentifiers,omitempty"`
}

// MigrationStatus tracks an in-flight move of a resource between catalogues.
type MigrationStatus struct {
	CurrentCatalogue string `json:"currentCatalogueId,omitempty"`
	TargetCatalogue  string `json:"targetCatalogueId,omitempty"`
	Comment          string `json:"comment,omitempty"`
}

// Payload is the contract every domain entity wrapped by a Bundle satisfies.
type Payload interface {
	GetID() string
	SetID(id string)
	GetCatalogueID() string
	SetCatalogueID(id string)
	GetName() string
}

// Bundle wraps a domain entity with its workflow state. The zero value is
// not usable; bundles are built by the lifecycle manager on Add.
type Bundle[T Payload] struct {
	Payload T `json:"payload"`

	ID         string     `json:"id"`
	Status     string     `json:"status,omitempty"`
	Active     bool       `json:"active"`
	Suspended  bool       `json:"suspended"`
	AuditState AuditState `json:"auditState,omitempty"`

	Metadata        *Metadata        `json:"metadata,omitempty"`
	Identifiers     *Identifiers     `json:"identifiers,omitempty"`
	MigrationStatus *MigrationStatus `json:"migrationStatus,omitempty"`

	// LoggingInfo is append-only and kept sorted ascending by date.
	LoggingInfo []LoggingInfo `json:"loggingInfo,omitempty"`

	LatestOnboardingInfo *LoggingInfo `json:"latestOnboardingInfo,omitempty"`
	LatestUpdateInfo     *LoggingInfo `json:"latestUpdateInfo,omitempty"`
	LatestAuditInfo      *LoggingInfo `json:"latestAuditInfo,omitempty"`

	// TemplateStatus is meaningful on provider bundles only: it gates
	// whether resources submitted under the provider auto-approve.
	TemplateStatus string `json:"templateStatus,omitempty"`
}

// Published reports whether the bundle is a public projection.
func (b *Bundle[T]) IsPublished() bool {
	return b.Metadata != nil && b.Metadata.Published
}

// EnsureMetadata returns the bundle's metadata, allocating it if absent.
// Legacy records imported from older installations may lack it.
func (b *Bundle[T]) EnsureMetadata() *Metadata {
	if b.Metadata == nil {
		b.Metadata = &Metadata{}
	}
	return b.Metadata
}

// PID returns the persistent identifier of the bundle, or "".
func (b *Bundle[T]) PID() string {
	if b.Identifiers == nil {
		return ""
	}
	return b.Identifiers.PID
}
