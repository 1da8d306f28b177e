package controller

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/hometrove/marketplace-api/internal/middleware"
	"github.com/hometrove/marketplace-api/internal/model"
	"github.com/hometrove/marketplace-api/pkg/apperr"
	"github.com/hometrove/marketplace-api/pkg/storage"
)

type ImageController struct {
	db    *gorm.DB
	errs  *apperr.Classifier
	store *storage.Client
	log   *logrus.Logger
}

func NewImageController(db *gorm.DB, errs *apperr.Classifier, store *storage.Client, log *logrus.Logger) *ImageController {
	return &ImageController{db: db, errs: errs, store: store, log: log}
}

// Upload stores one image for an owned property. The first image a property
// receives becomes its primary.
func (ic *ImageController) Upload(c *fiber.Ctx) error {
	claims := middleware.Claims(c)
	property := middleware.OwnedProperty(c)

	file, err := c.FormFile("image")
	if err != nil {
		return ic.errs.Respond(c, apperr.Validation("No file uploaded", nil))
	}

	imgType := model.ImageType(c.FormValue("type", string(model.ImageTypeGallery)))
	if !imgType.Valid() {
		return ic.errs.Respond(c, apperr.Validation("Unknown image type", nil))
	}

	url, err := ic.store.UploadPropertyImage(c.Context(), file, claims.UserID, strconv.FormatUint(uint64(property.ID), 10))
	if err != nil {
		return ic.errs.Respond(c, apperr.Wrap(apperr.CodeUpstream, err))
	}

	var count int64
	ic.db.Model(&model.PropertyImage{}).
		Where("property_id = ?", property.ID).
		Count(&count)

	image := model.PropertyImage{
		PropertyID: property.ID,
		URL:        url,
		Type:       imgType,
		Position:   int(count),
		IsPrimary:  count == 0,
		UploaderID: claims.UserID,
	}
	if image.IsPrimary {
		image.Type = model.ImageTypePrimary
	}

	if err := ic.db.Create(&image).Error; err != nil {
		return ic.errs.Respond(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(image)
}

// UploadForDraft stores an image under a wizard draft's temporary id before
// the property row exists. Claim moves it over once the draft is submitted.
func (ic *ImageController) UploadForDraft(c *fiber.Ctx) error {
	claims := middleware.Claims(c)
	draftID := c.Params("draftID")

	file, err := c.FormFile("image")
	if err != nil {
		return ic.errs.Respond(c, apperr.Validation("No file uploaded", nil))
	}

	imgType := model.ImageType(c.FormValue("type", string(model.ImageTypeGallery)))
	if !imgType.Valid() {
		return ic.errs.Respond(c, apperr.Validation("Unknown image type", nil))
	}

	url, err := ic.store.UploadPropertyImage(c.Context(), file, claims.UserID, "draft-"+draftID)
	if err != nil {
		return ic.errs.Respond(c, apperr.Wrap(apperr.CodeUpstream, err))
	}

	var count int64
	ic.db.Model(&model.PropertyImage{}).
		Where("draft_id = ?", draftID).
		Count(&count)

	image := model.PropertyImage{
		DraftID:    draftID,
		URL:        url,
		Type:       imgType,
		Position:   int(count),
		IsPrimary:  count == 0,
		UploaderID: claims.UserID,
	}
	if image.IsPrimary {
		image.Type = model.ImageTypePrimary
	}

	if err := ic.db.Create(&image).Error; err != nil {
		return ic.errs.Respond(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(image)
}

// SetPrimary flags one image as primary and unsets the previous one in the
// same transaction; a property never carries two primaries.
func (ic *ImageController) SetPrimary(c *fiber.Ctx) error {
	property := middleware.OwnedProperty(c)

	var image model.PropertyImage
	if err := ic.db.Where("id = ? AND property_id = ?", c.Params("imageID"), property.ID).
		First(&image).Error; err != nil {
		return ic.errs.Respond(c, apperr.NotFound("Image"))
	}

	err := ic.db.Transaction(func(tx *gorm.DB) error {
		return model.SetPrimaryImage(tx, property.ID, image.ID)
	})
	if err != nil {
		return ic.errs.Respond(c, err)
	}

	ic.db.First(&image, image.ID)
	return c.JSON(image)
}

// Delete removes an image from storage and the database. When the primary
// goes, the lowest-position survivor is promoted.
func (ic *ImageController) Delete(c *fiber.Ctx) error {
	property := middleware.OwnedProperty(c)

	var image model.PropertyImage
	if err := ic.db.Where("id = ? AND property_id = ?", c.Params("imageID"), property.ID).
		First(&image).Error; err != nil {
		return ic.errs.Respond(c, apperr.NotFound("Image"))
	}

	if err := ic.store.Delete(c.Context(), image.URL); err != nil && ic.log != nil {
		// Storage cleanup failure is not fatal; the row still goes.
		ic.log.WithError(err).WithField("url", image.URL).Warn("could not delete stored image")
	}

	err := ic.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Delete(&image).Error; err != nil {
			return err
		}

		if !image.IsPrimary {
			return nil
		}

		var next model.PropertyImage
		err := tx.Where("property_id = ?", property.ID).
			Order("position ASC").
			First(&next).Error
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil
			}
			return err
		}

		return model.SetPrimaryImage(tx, property.ID, next.ID)
	})
	if err != nil {
		return ic.errs.Respond(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

type claimInput struct {
	DraftID string `json:"draft_id" validate:"required"`
}

// Claim reassigns images uploaded under a wizard draft's temporary id to the
// real property row. A failure here leaves the property pending and the
// images claimable again; nothing is rolled back.
func (ic *ImageController) Claim(c *fiber.Ctx) error {
	claims := middleware.Claims(c)
	property := middleware.OwnedProperty(c)

	input := new(claimInput)
	if err := c.BodyParser(input); err != nil || input.DraftID == "" {
		return ic.errs.Respond(c, apperr.Validation("draft_id is required", nil))
	}

	// Only the uploader's own pending uploads are claimable; a draft id alone
	// is not proof of ownership.
	result := ic.db.Model(&model.PropertyImage{}).
		Where("draft_id = ? AND property_id = 0 AND uploader_id = ?", input.DraftID, claims.UserID).
		Updates(map[string]interface{}{
			"property_id": property.ID,
			"draft_id":    "",
		})
	if result.Error != nil {
		return ic.errs.Respond(c, result.Error)
	}

	// Ensure exactly one primary after the claim.
	var primaries int64
	ic.db.Model(&model.PropertyImage{}).
		Where("property_id = ? AND is_primary = ?", property.ID, true).
		Count(&primaries)

	if primaries != 1 {
		var first model.PropertyImage
		if err := ic.db.Where("property_id = ?", property.ID).
			Order("position ASC").
			First(&first).Error; err == nil {
			if err := ic.db.Transaction(func(tx *gorm.DB) error {
				return model.SetPrimaryImage(tx, property.ID, first.ID)
			}); err != nil {
				return ic.errs.Respond(c, err)
			}
		}
	}

	if ic.log != nil {
		ic.log.WithFields(logrus.Fields{
			"property_id": property.ID,
			"draft_id":    input.DraftID,
			"claimed":     result.RowsAffected,
			"user_id":     claims.UserID,
		}).Info("draft images claimed")
	}

	var images []model.PropertyImage
	ic.db.Where("property_id = ?", property.ID).Order("position ASC").Find(&images)

	return c.JSON(fiber.Map{
		"claimed": result.RowsAffected,
		"images":  images,
	})
}
