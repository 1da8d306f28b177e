package model

import (
	"time"

	"gorm.io/gorm"
)

// PropertyView is a single recorded view of a listing.
type PropertyView struct {
	gorm.Model
	PropertyID uint      `json:"property_id" gorm:"index"`
	UserID     *uint     `json:"user_id" gorm:"index"`
	IP         string    `json:"ip" gorm:"index"`
	SessionID  string    `json:"session_id" gorm:"index"`
	UserAgent  string    `json:"user_agent"`
	ViewedAt   time.Time `json:"viewed_at" gorm:"index"`
	IsUnique   bool      `json:"is_unique" gorm:"default:true"`

	Property Property `json:"-" gorm:"foreignKey:PropertyID"`
	User     *User    `json:"-" gorm:"foreignKey:UserID"`
}

// PropertyStats holds per-listing view aggregates.
type PropertyStats struct {
	gorm.Model
	PropertyID  uint      `json:"property_id" gorm:"uniqueIndex"`
	TotalViews  int64     `json:"total_views"`
	UniqueViews int64     `json:"unique_views"`
	LastUpdated time.Time `json:"last_updated"`

	Property Property `json:"-" gorm:"foreignKey:PropertyID"`
}

// BeforeCreate marks repeat views from the same IP within 24 hours as
// non-unique.
func (pv *PropertyView) BeforeCreate(tx *gorm.DB) error {
	var count int64
	tx.Model(&PropertyView{}).
		Where("property_id = ? AND ip = ? AND viewed_at > ?",
			pv.PropertyID,
			pv.IP,
			time.Now().Add(-24*time.Hour)).
		Count(&count)

	if count > 0 {
		pv.IsUnique = false
	}

	return nil
}

// AfterCreate rolls the view into the per-listing aggregates.
func (pv *PropertyView) AfterCreate(tx *gorm.DB) error {
	var stats PropertyStats
	tx.FirstOrCreate(&stats, PropertyStats{PropertyID: pv.PropertyID})

	updates := map[string]interface{}{
		"total_views":  gorm.Expr("total_views + ?", 1),
		"last_updated": time.Now(),
	}

	if pv.IsUnique {
		updates["unique_views"] = gorm.Expr("unique_views + ?", 1)
	}

	return tx.Model(&stats).Updates(updates).Error
}
