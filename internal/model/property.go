package model

import (
	"strings"
	"time"
)

// PropertyType is the kind of tenant a listing targets.
type PropertyType string

const (
	PropertyTypeBachelor PropertyType = "bachelor"
	PropertyTypeFamily   PropertyType = "family"
)

func (t PropertyType) Valid() bool {
	return t == PropertyTypeBachelor || t == PropertyTypeFamily
}

// Rent type filter values accepted by the listing search.
const (
	RentTypeTemporary = "temporary"
	RentTypeMonthly   = "monthly"
	FilterAll         = "all"
)

// Property is a listing stored under `property:<id>`. Listings are append
// only: nothing mutates a property after creation.
type Property struct {
	ID                string       `json:"id"`
	UserID            string       `json:"userId"`
	Location          string       `json:"location"`
	MonthlyPriceRange *string      `json:"monthlyPriceRange"`
	PhoneNumber       string       `json:"phoneNumber"`
	RoomDetails       string       `json:"roomDetails"`
	PropertyType      PropertyType `json:"propertyType"`
	Images            []string     `json:"images"`
	TemporaryRent     bool         `json:"temporaryRent"`
	TemporaryRentDays *int         `json:"temporaryRentDays"`
	UploadedAt        time.Time    `json:"uploadedAt"`
}

// PropertyFilter holds the optional search predicates. Empty fields do not
// filter.
type PropertyFilter struct {
	Location     string
	RentType     string
	PropertyType string
}

// Matches reports whether p satisfies every predicate of f.
func (f PropertyFilter) Matches(p Property) bool {
	if f.Location != "" && !containsFold(p.Location, f.Location) {
		return false
	}
	switch f.RentType {
	case RentTypeTemporary:
		if !p.TemporaryRent {
			return false
		}
	case RentTypeMonthly:
		if p.TemporaryRent {
			return false
		}
	}
	if f.PropertyType != "" && f.PropertyType != FilterAll && string(p.PropertyType) != f.PropertyType {
		return false
	}
	return true
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
