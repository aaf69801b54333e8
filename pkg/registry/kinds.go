package registry

// Kind names a resource kind managed by the catalogue.
type Kind string

const (
	KindCatalogue                      Kind = "catalogue"
	KindProvider                       Kind = "provider"
	KindService                        Kind = "service"
	KindTrainingResource               Kind = "training_resource"
	KindInteroperabilityRecord         Kind = "interoperability_record"
	KindDatasource                     Kind = "datasource"
	KindHelpdesk                       Kind = "helpdesk"
	KindMonitoring                     Kind = "monitoring"
	KindResourceInteroperabilityRecord Kind = "resource_interoperability_record"
	KindConfigurationTemplateInstance  Kind = "configuration_template_instance"
	KindAdapter                        Kind = "adapter"
)

// Kinds lists every managed kind in a stable order.
func Kinds() []Kind {
	return []Kind{
		KindCatalogue,
		KindProvider,
		KindService,
		KindTrainingResource,
		KindInteroperabilityRecord,
		KindDatasource,
		KindHelpdesk,
		KindMonitoring,
		KindResourceInteroperabilityRecord,
		KindConfigurationTemplateInstance,
		KindAdapter,
	}
}

// ResourceType is the storage type name records of this kind live under.
func (k Kind) ResourceType() string { return string(k) }

// DraftType is the storage type name for drafts of this kind.
func (k Kind) DraftType() string { return "draft-" + string(k) }

// PublicType is the storage type name for public projections of this kind.
func (k Kind) PublicType() string { return "public-" + string(k) }

// StateType is the vocabulary type that status values of this kind must
// belong to. Providers and catalogues carry their own state vocabularies;
// every other kind shares the generic resource state vocabulary.
func (k Kind) StateType() string {
	switch k {
	case KindProvider:
		return "provider-state"
	case KindCatalogue:
		return "catalogue-state"
	default:
		return "resource-state"
	}
}

// TemplateStateType is the vocabulary type for provider template statuses.
const TemplateStateType = "template-state"
