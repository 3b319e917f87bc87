package models

import "time"

// AccompanistProfile is the public-facing profile of an accompanist.
// ID equals the owning account's UID from the identity provider.
type AccompanistProfile struct {
	ID             string    `bson:"_id" json:"uid"`
	DisplayName    string    `bson:"display_name" json:"displayName"`
	Region         string    `bson:"region" json:"region"`
	Specialties    []string  `bson:"specialties" json:"specialties"`
	Purposes       []string  `bson:"purposes" json:"purposes"`
	PriceMin       int64     `bson:"price_min" json:"priceMin"`
	PriceMax       int64     `bson:"price_max" json:"priceMax"`
	Bio            string    `bson:"bio" json:"bio"`
	Education      string    `bson:"education" json:"education"`
	Experience     string    `bson:"experience" json:"experience"`
	PortfolioLinks []string  `bson:"portfolio_links" json:"portfolioLinks"`
	AvailableSlots string    `bson:"available_slots" json:"availableSlots"`
	IsPublic       bool      `bson:"is_public" json:"isPublic"`
	NotifyEmail    string    `bson:"notify_email,omitempty" json:"-"` // Account email for notifications, never public
	CreatedAt      time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt      time.Time `bson:"updated_at" json:"updatedAt"`
}

// NewEmptyProfile returns the private, blank profile created on first dashboard access.
func NewEmptyProfile(uid, notifyEmail string, now time.Time) *AccompanistProfile {
	return &AccompanistProfile{
		ID:             uid,
		Specialties:    []string{},
		Purposes:       []string{},
		PortfolioLinks: []string{},
		IsPublic:       false,
		NotifyEmail:    notifyEmail,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// ProfileFilter narrows a public profile listing. Empty fields match everything.
type ProfileFilter struct {
	Region    string
	Purpose   string
	Specialty string
}
