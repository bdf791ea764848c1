package model

import (
	"github.com/gramseva/swasthya-sahayak/pkg/geo"
)

type FacilityType string

const (
	FacilitySubCenter        FacilityType = "sub_center"
	FacilityPHC              FacilityType = "primary_health_center"
	FacilityCHC              FacilityType = "community_health_center"
	FacilityDistrictHospital FacilityType = "district_hospital"
	FacilityPrivateHospital  FacilityType = "private_hospital"
)

// HealthcareCenter is reference data: created and overwritten only by the
// sync download pass, never originated locally.
type HealthcareCenter struct {
	Syncable
	Name     string       `json:"name" db:"name" validate:"required"`
	Type     FacilityType `json:"type" db:"type" validate:"required"`
	Location geo.Point    `json:"location" validate:"required"`
	Address  string       `json:"address" db:"address"`
	Phone    string       `json:"phone" db:"phone"`
	Services []string     `json:"services" db:"-"`
	District string       `json:"district" db:"district" validate:"required"`
}

// FacilityFilters narrows a healthcare center lookup.
type FacilityFilters struct {
	District string
	Type     FacilityType
	Near     *geo.Point
	Limit    int
}

// RankedFacility pairs a center with its straight-line distance from the
// caller's position. DistanceKm is negative when no position was available.
type RankedFacility struct {
	Center     HealthcareCenter `json:"center"`
	DistanceKm float64          `json:"distance_km"`
}
