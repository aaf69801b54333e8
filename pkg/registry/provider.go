package registry

// ResourceBase carries the identity fields every domain payload shares.
// Embed it by pointer receiver convention: payload types are used as *T.
type ResourceBase struct {
	ID          string `json:"id"`
	Name        string `json:"name,omitempty"`
	CatalogueID string `json:"catalogueId,omitempty"`
}

func (b *ResourceBase) GetID() string             { return b.ID }
func (b *ResourceBase) SetID(id string)           { b.ID = id }
func (b *ResourceBase) GetCatalogueID() string    { return b.CatalogueID }
func (b *ResourceBase) SetCatalogueID(id string)  { b.CatalogueID = id }
func (b *ResourceBase) GetName() string           { return b.Name }

// Provider is an organisation onboarding resources into a catalogue.
type Provider struct {
	ResourceBase
	Abbreviation      string   `json:"abbreviation,omitempty"`
	Website           string   `json:"website,omitempty"`
	LegalEntity       bool     `json:"legalEntity"`
	LegalStatus       string   `json:"legalStatus,omitempty"`
	Description       string   `json:"description,omitempty"`
	ScientificDomains []string `json:"scientificDomains,omitempty"`
	Tags              []string `json:"tags,omitempty"`
	Country           string   `json:"country,omitempty"`
	Users             []User   `json:"users,omitempty"`
	MainContactEmail  string   `json:"mainContactEmail,omitempty"`
}

// User identifies a provider administrator.
type User struct {
	Email    string `json:"email"`
	Name     string `json:"name,omitempty"`
	Surname  string `json:"surname,omitempty"`
}

// Catalogue is a federated catalogue installation owning providers.
type Catalogue struct {
	ResourceBase
	Abbreviation     string   `json:"abbreviation,omitempty"`
	Website          string   `json:"website,omitempty"`
	Description      string   `json:"description,omitempty"`
	Country          string   `json:"country,omitempty"`
	Users            []User   `json:"users,omitempty"`
	Scope            string   `json:"scope,omitempty"`
	AffiliatedEntity []string `json:"affiliations,omitempty"`
}

// Adapter is an integration component registered against a service or
// guideline of the catalogue.
type Adapter struct {
	ResourceBase
	Description    string `json:"description,omitempty"`
	LinkedResource string `json:"linkedResourceId,omitempty"`
	Repository     string `json:"repository,omitempty"`
	Documentation  string `json:"documentation,omitempty"`
	ReleaseVersion string `json:"releaseVersion,omitempty"`
	AdminEmail     string `json:"adminEmail,omitempty"`
}
