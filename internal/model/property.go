package model

import (
	"time"

	"github.com/gosimple/slug"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Property Types
type PropertyType string

const (
	PropertyTypeHouse      PropertyType = "house"
	PropertyTypeApartment  PropertyType = "apartment"
	PropertyTypeLand       PropertyType = "land"
	PropertyTypeCommercial PropertyType = "commercial"
	PropertyTypeOffice     PropertyType = "office"
)

// Listing Types
type ListingType string

const (
	ListingTypeSale  ListingType = "sale"
	ListingTypeRent  ListingType = "rent"
	ListingTypeLease ListingType = "lease"
)

// Property Status
type PropertyStatus string

const (
	PropertyStatusPending  PropertyStatus = "pending"
	PropertyStatusActive   PropertyStatus = "active"
	PropertyStatusSold     PropertyStatus = "sold"
	PropertyStatusRented   PropertyStatus = "rented"
	PropertyStatusInactive PropertyStatus = "inactive"
)

// ApprovalStatus is the admin-controlled gate, distinct from the listing
// status. Only approved listings are publicly visible.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// Tier is the paid promotion level affecting listing placement.
type Tier string

const (
	TierNone     Tier = "none"
	TierBasic    Tier = "basic"
	TierStandard Tier = "standard"
	TierPremium  Tier = "premium"
)

type Property struct {
	gorm.Model
	Title       string       `json:"title" gorm:"not null"`
	Slug        string       `json:"slug" gorm:"uniqueIndex:idx_agent_property_slug;not null"`
	Description string       `json:"description" gorm:"type:text;not null"`
	Type        PropertyType `json:"type" gorm:"not null"`
	ListingType ListingType  `json:"listing_type" gorm:"not null"`
	Price       float64      `json:"price" gorm:"not null"`
	Currency    string       `json:"currency" gorm:"not null;default:'GHS'"`

	// Location fields
	Address    string  `json:"address" gorm:"type:text;not null"`
	City       string  `json:"city" gorm:"not null;index"`
	Region     string  `json:"region" gorm:"not null;index"`
	PostalCode string  `json:"postal_code"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`

	// Detail fields
	Bedrooms      int `json:"bedrooms"`
	Bathrooms     int `json:"bathrooms"`
	SquareFootage int `json:"square_footage"`
	LotSize       int `json:"lot_size"`
	YearBuilt     int `json:"year_built"`

	Features  datatypes.JSON `json:"features"`
	Amenities datatypes.JSON `json:"amenities"`

	Status          PropertyStatus `json:"status" gorm:"not null;default:'pending'"`
	ApprovalStatus  ApprovalStatus `json:"approval_status" gorm:"not null;default:'pending';index"`
	RejectionReason string         `json:"rejection_reason,omitempty"`
	Tier            Tier           `json:"tier" gorm:"not null;default:'none'"`

	AgentID uint `json:"agent_id" gorm:"uniqueIndex:idx_agent_property_slug;index"`

	Agent  User            `json:"-" gorm:"foreignKey:AgentID"`
	Images []PropertyImage `json:"images" gorm:"foreignKey:PropertyID;constraint:OnDelete:CASCADE"`
}

// PubliclyVisible reports whether the listing shows up in marketplace queries.
func (p *Property) PubliclyVisible() bool {
	return p.ApprovalStatus == ApprovalApproved && p.Status == PropertyStatusActive
}

// BeforeCreate assigns a slug derived from the title, unique per agent.
func (p *Property) BeforeCreate(tx *gorm.DB) error {
	if p.Slug == "" {
		s := slug.Make(p.Title)

		var count int64
		tx.Model(&Property{}).Where("agent_id = ? AND slug = ?", p.AgentID, s).Count(&count)
		if count > 0 {
			s = s + "-" + time.Now().Format("20060102150405")
		}

		p.Slug = s
	}
	return nil
}
