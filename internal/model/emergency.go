package model

type EmergencyServiceType string

const (
	ServiceAmbulance      EmergencyServiceType = "ambulance"
	ServicePolice         EmergencyServiceType = "police"
	ServiceFire           EmergencyServiceType = "fire"
	ServiceWomenHelpline  EmergencyServiceType = "women_helpline"
	ServiceChildHelpline  EmergencyServiceType = "child_helpline"
	ServiceHealthHelpline EmergencyServiceType = "health_helpline"
)

// EmergencyContact is reference data owned by the download pass.
type EmergencyContact struct {
	Syncable
	ServiceName string               `json:"service_name" db:"service_name" validate:"required"`
	Phone       string               `json:"phone" db:"phone" validate:"required"`
	ServiceType EmergencyServiceType `json:"service_type" db:"service_type" validate:"required"`
	District    string               `json:"district" db:"district"`
	ServiceArea string               `json:"service_area" db:"service_area"`
}
