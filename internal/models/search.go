package models

// LocationType is the expander's hint about what kind of place a free-text
// location refers to.
type LocationType string

const (
	LocationTypeRegion      LocationType = "region"
	LocationTypeDepartement LocationType = "departement"
	LocationTypeCommune     LocationType = "commune"
	LocationTypeUnknown     LocationType = "unknown"
)

// GeoScope is the provider-side geographic filter key.
type GeoScope string

const (
	ScopeRegion      GeoScope = "region"
	ScopeDepartement GeoScope = "departement"
	// ScopeCommune maps to the provider's "commune" INSEE-code filter.
	ScopeCommune GeoScope = "commune"
)

// SearchVariation is one candidate query produced by the query expander.
// The orchestrator only reads it.
type SearchVariation struct {
	Keywords              string       `json:"keywords"`
	LocationRaw           string       `json:"location_raw,omitempty"`
	LocationType          LocationType `json:"location_type,omitempty"`
	ExperienceLevel       string       `json:"experience_level,omitempty"`
	ExperienceRequirement string       `json:"experience_requirement,omitempty"`
	ContractType          string       `json:"contract_type,omitempty"`
	IsFullTime            *bool        `json:"is_full_time,omitempty"`
}

// ResolvedLocation is the geographic filter produced by the location
// resolver: exactly one scope with its provider code.
type ResolvedLocation struct {
	Scope GeoScope `json:"scope"`
	Code  string   `json:"code"`
}

// LocationMeta carries secondary-scope hints surfaced by a resolution.
// Dept is the parent department of a resolved commune; the dispatcher uses
// it to spawn one additional department-wide task.
type LocationMeta struct {
	Dept string `json:"dept,omitempty"`
}

// SearchTask is a fully resolved variation ready to dispatch. Location is
// nil for a nation-wide task. Task identity is positional.
type SearchTask struct {
	Variation SearchVariation
	Location  *ResolvedLocation
}
