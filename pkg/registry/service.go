package registry

// Service is a resource offered by a provider through the catalogue.
type Service struct {
	ResourceBase
	Abbreviation         string   `json:"abbreviation,omitempty"`
	ResourceOrganisation string   `json:"resourceOrganisation,omitempty"` // owning provider id
	ResourceProviders    []string `json:"resourceProviders,omitempty"`
	Webpage              string   `json:"webpage,omitempty"`
	Description          string   `json:"description,omitempty"`
	Tagline              string   `json:"tagline,omitempty"`
	ScientificDomains    []string `json:"scientificDomains,omitempty"`
	Categories           []string `json:"categories,omitempty"`
	TargetUsers          []string `json:"targetUsers,omitempty"`
	Tags                 []string `json:"tags,omitempty"`
	RequiredResources    []string `json:"requiredResources,omitempty"`
	RelatedResources     []string `json:"relatedResources,omitempty"`
	TRL                  string   `json:"trl,omitempty"`
	OrderType            string   `json:"orderType,omitempty"`
	SecurityContactEmail string   `json:"securityContactEmail,omitempty"`
}

// TrainingResource is a learning material resource offered by a provider.
type TrainingResource struct {
	ResourceBase
	ResourceOrganisation string   `json:"resourceOrganisation,omitempty"`
	ResourceProviders    []string `json:"resourceProviders,omitempty"`
	AuthorNames          []string `json:"authors,omitempty"`
	URL                  string   `json:"url,omitempty"`
	Description          string   `json:"description,omitempty"`
	License              string   `json:"license,omitempty"`
	AccessRights         string   `json:"accessRights,omitempty"`
	Versions             []string `json:"versionDate,omitempty"`
	TargetGroups         []string `json:"targetGroups,omitempty"`
	LearningOutcomes     []string `json:"learningOutcomes,omitempty"`
	Languages            []string `json:"languages,omitempty"`
	ScientificDomains    []string `json:"scientificDomains,omitempty"`
	ContactEmail         string   `json:"contactEmail,omitempty"`
}

// InteroperabilityRecord is a published interoperability guideline.
type InteroperabilityRecord struct {
	ResourceBase
	ProviderID        string   `json:"providerId,omitempty"`
	Creators          []string `json:"creators,omitempty"`
	PublicationYear   int      `json:"publicationYear,omitempty"`
	Description       string   `json:"description,omitempty"`
	Status            string   `json:"status,omitempty"` // document status, not workflow status
	Domain            string   `json:"domain,omitempty"`
	EoscGuidelineType string   `json:"guidelineType,omitempty"`
	RelatedStandards  []string `json:"relatedStandards,omitempty"`
	Rights            []string `json:"rights,omitempty"`
}

// Datasource is the datasource sub-profile of a service.
type Datasource struct {
	ResourceBase
	ServiceID               string   `json:"serviceId,omitempty"`
	Jurisdiction            string   `json:"jurisdiction,omitempty"`
	Classification          string   `json:"datasourceClassification,omitempty"`
	ResearchEntityTypes     []string `json:"researchEntityTypes,omitempty"`
	ThematicAreas           []string `json:"thematicAreas,omitempty"`
	Submission              string   `json:"submissionPolicyURL,omitempty"`
	PersistentIdentitySystems []string `json:"persistentIdentitySystems,omitempty"`
}
