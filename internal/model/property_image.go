package model

import (
	"gorm.io/gorm"
)

// Image Types
type ImageType string

const (
	ImageTypePrimary   ImageType = "primary"
	ImageTypeGallery   ImageType = "gallery"
	ImageTypeFloorplan ImageType = "floorplan"
	ImageTypeExterior  ImageType = "exterior"
	ImageTypeInterior  ImageType = "interior"
)

func (t ImageType) Valid() bool {
	switch t {
	case ImageTypePrimary, ImageTypeGallery, ImageTypeFloorplan, ImageTypeExterior, ImageTypeInterior:
		return true
	}
	return false
}

type PropertyImage struct {
	gorm.Model
	PropertyID uint      `json:"property_id" gorm:"index"`
	URL        string    `json:"url" gorm:"not null"`
	Type       ImageType `json:"type" gorm:"not null;default:'gallery'"`
	IsPrimary  bool      `json:"is_primary" gorm:"default:false"`
	Position   int       `json:"position" gorm:"default:0"`

	// DraftID carries the temporary wizard id images were uploaded under
	// before the property row existed. Claiming clears it.
	DraftID string `json:"draft_id,omitempty" gorm:"index"`

	// UploaderID records who uploaded the file. Draft claims are filtered by
	// it so one user cannot claim another user's pending uploads.
	UploaderID uint `json:"-" gorm:"index"`

	Property Property `json:"-" gorm:"foreignKey:PropertyID"`
}

// SetPrimaryImage flags one image as primary and unsets any previous primary
// in the same statement batch. Runs inside the caller's transaction.
func SetPrimaryImage(tx *gorm.DB, propertyID, imageID uint) error {
	if err := tx.Model(&PropertyImage{}).
		Where("property_id = ? AND is_primary = ?", propertyID, true).
		Update("is_primary", false).Error; err != nil {
		return err
	}
	return tx.Model(&PropertyImage{}).
		Where("id = ? AND property_id = ?", imageID, propertyID).
		Updates(map[string]interface{}{"is_primary": true, "type": ImageTypePrimary}).Error
}
