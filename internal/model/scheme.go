package model

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

type RationCardType string

const (
	CardBPL       RationCardType = "BPL"
	CardAntyodaya RationCardType = "Antyodaya"
	CardAPL       RationCardType = "APL"
	CardAnnapurna RationCardType = "Annapurna"
)

type IncomeCategory string

const (
	IncomeAntyodaya IncomeCategory = "antyodaya"
	IncomeBPL       IncomeCategory = "bpl"
	IncomeAPLLower  IncomeCategory = "apl_lower"
	IncomeAPLUpper  IncomeCategory = "apl_upper"
)

// IncomeCeilings maps each category to its annual-income ceiling in rupees.
// Fixed configuration data, not derived.
var IncomeCeilings = map[IncomeCategory]int64{
	IncomeAntyodaya: 15000,
	IncomeBPL:       27000,
	IncomeAPLLower:  100000,
	IncomeAPLUpper:  1000000,
}

// EligibilityCriteria is the declarative predicate set attached to a
// scheme. Nil pointer fields mean the criterion is not defined and never
// blocks a match.
type EligibilityCriteria struct {
	MinAge               *int              `json:"min_age,omitempty"`
	MaxAge               *int              `json:"max_age,omitempty"`
	Gender               *Gender           `json:"gender,omitempty"`
	MaxIncome            *int64            `json:"max_income,omitempty"`
	RequiresRationCard   bool              `json:"requires_ration_card"`
	AllowedCardTypes     []RationCardType  `json:"allowed_card_types,omitempty"`
	ForPregnantWomen     bool              `json:"for_pregnant_women"`
	ForChildren          bool              `json:"for_children"`
	AdditionalConditions map[string]string `json:"additional_conditions,omitempty"`
}

// Consistent reports whether the criteria are internally consistent.
func (c EligibilityCriteria) Consistent() bool {
	if c.MinAge != nil && c.MaxAge != nil && *c.MinAge > *c.MaxAge {
		return false
	}
	return true
}

// HealthScheme is reference data owned by the download pass.
type HealthScheme struct {
	Syncable
	Name               string              `json:"name" db:"name" validate:"required"`
	LocalizedName      string              `json:"localized_name" db:"localized_name"`
	Description        string              `json:"description" db:"description"`
	Benefits           []string            `json:"benefits" db:"-"`
	Criteria           EligibilityCriteria `json:"criteria" db:"-"`
	Documents          []string            `json:"documents" db:"-"`
	ApplicationProcess string              `json:"application_process" db:"application_process"`
	ContactInfo        string              `json:"contact_info" db:"contact_info"`
	// Position preserves server insertion order for evaluation output.
	Position int `json:"position" db:"position"`
}

// EligibilityResult reports one scheme's evaluation against a profile.
// Unmatched schemes carry the reasons they failed; they are never omitted.
type EligibilityResult struct {
	Scheme  HealthScheme `json:"scheme"`
	Matched bool         `json:"matched"`
	Reasons []string     `json:"reasons,omitempty"`
}
