package model

import (
	"time"

	"gorm.io/gorm"
)

// Promotion Status
type PromotionStatus string

const (
	PromotionStatusPending   PromotionStatus = "pending"
	PromotionStatusActive    PromotionStatus = "active"
	PromotionStatusExpired   PromotionStatus = "expired"
	PromotionStatusCancelled PromotionStatus = "cancelled"
)

// Promotion records a paid tier purchase for a listing. The Stripe checkout
// session id links the row to the payment; the webhook activates it.
type Promotion struct {
	gorm.Model
	PropertyID      uint            `json:"property_id" gorm:"index"`
	UserID          uint            `json:"user_id" gorm:"index"`
	Tier            Tier            `json:"tier" gorm:"not null"`
	Status          PromotionStatus `json:"status" gorm:"not null;default:'pending'"`
	AmountPaid      float64         `json:"amount_paid"`
	Currency        string          `json:"currency"`
	StripeSessionID string          `json:"stripe_session_id" gorm:"index"`
	StartsAt        *time.Time      `json:"starts_at"`
	ExpiresAt       *time.Time      `json:"expires_at"`

	Property Property `json:"-" gorm:"foreignKey:PropertyID"`
	User     User     `json:"-" gorm:"foreignKey:UserID"`
}

// TierPlan describes a purchasable promotion level.
type TierPlan struct {
	gorm.Model
	Tier          Tier    `json:"tier" gorm:"uniqueIndex;not null"`
	Name          string  `json:"name" gorm:"not null"`
	Description   string  `json:"description"`
	Price         float64 `json:"price" gorm:"not null"`
	Currency      string  `json:"currency" gorm:"not null;default:'USD'"`
	DurationDays  int     `json:"duration_days" gorm:"not null"`
	StripePriceID string  `json:"stripe_price_id"`
}
