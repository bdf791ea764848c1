package model

// UserProfile is the demographic record eligibility evaluation reads.
// User data: originated on-device, uploaded by the sync manager.
type UserProfile struct {
	Syncable
	Age               int            `json:"age" db:"age" validate:"gte=0"`
	Gender            Gender         `json:"gender" db:"gender" validate:"required"`
	IncomeCategory    IncomeCategory `json:"income_category" db:"income_category"`
	HasRationCard     bool           `json:"has_ration_card" db:"has_ration_card"`
	RationCardType    RationCardType `json:"ration_card_type,omitempty" db:"ration_card_type"`
	IsPregnant        bool           `json:"is_pregnant" db:"is_pregnant"`
	HasChildren       bool           `json:"has_children" db:"has_children"`
	District          string         `json:"district" db:"district"`
	Village           string         `json:"village" db:"village"`
	PreferredLanguage string         `json:"preferred_language" db:"preferred_language" validate:"language"`
}

// Attribute resolves an additionalConditions key against the profile.
// Scalar attributes resolve to their string form; unknown keys report
// ok=false so the evaluator can fail open on them.
func (p UserProfile) Attribute(key string) (value string, ok bool) {
	switch key {
	case "district":
		return p.District, true
	case "village":
		return p.Village, true
	case "gender":
		return string(p.Gender), true
	case "income_category":
		return string(p.IncomeCategory), true
	case "ration_card_type":
		return string(p.RationCardType), true
	case "preferred_language":
		return p.PreferredLanguage, true
	}
	return "", false
}
