package controller

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/hometrove/marketplace-api/internal/middleware"
	"github.com/hometrove/marketplace-api/internal/model"
	"github.com/hometrove/marketplace-api/internal/wizard"
	"github.com/hometrove/marketplace-api/pkg/apperr"
	"github.com/hometrove/marketplace-api/pkg/validate"
)

// DraftController exposes the multi-step listing wizard over HTTP. Each
// mutation saves the posted fields first, then applies the requested
// transition, so a failed advance never discards entered data.
type DraftController struct {
	db       *gorm.DB
	store    *wizard.Store
	validate *validate.Validator
	errs     *apperr.Classifier
	log      *logrus.Logger
}

func NewDraftController(db *gorm.DB, store *wizard.Store, v *validate.Validator, errs *apperr.Classifier, log *logrus.Logger) *DraftController {
	return &DraftController{db: db, store: store, validate: v, errs: errs, log: log}
}

func (dc *DraftController) respondStoreErr(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, wizard.ErrDraftNotFound):
		return dc.errs.Respond(c, apperr.NotFound("Draft"))
	case errors.Is(err, wizard.ErrNotDraftOwner):
		return dc.errs.Respond(c, apperr.New(apperr.CodeForbidden, ""))
	case errors.Is(err, wizard.ErrSubmitInFlight):
		return dc.errs.Respond(c, apperr.New(apperr.CodeConflict, "A submission is already in progress"))
	default:
		return dc.errs.Respond(c, err)
	}
}

// Create opens a fresh wizard session on the first step.
func (dc *DraftController) Create(c *fiber.Ctx) error {
	claims := middleware.Claims(c)
	draft := dc.store.Create(claims.UserID)
	return c.Status(fiber.StatusCreated).JSON(draft)
}

// Get returns the session, its step pointer and per-step validity.
func (dc *DraftController) Get(c *fiber.Ctx) error {
	claims := middleware.Claims(c)

	draft, err := dc.store.Get(c.Params("id"), claims.UserID)
	if err != nil {
		return dc.respondStoreErr(c, err)
	}

	return c.JSON(fiber.Map{
		"draft":  draft,
		"errors": draft.ValidateAll(dc.validate),
	})
}

// Save merges posted fields into the draft and, unless save_only is set,
// advances to the next step. An invalid current step leaves the pointer
// unchanged and returns the field errors for inline display.
func (dc *DraftController) Save(c *fiber.Ctx) error {
	claims := middleware.Claims(c)

	fields := new(wizard.Fields)
	if err := c.BodyParser(fields); err != nil {
		return dc.errs.Respond(c, apperr.Validation("Invalid input", nil))
	}

	// A second decode into a key set records which fields the client actually
	// sent, so an explicit zero ("bedrooms": 0) is distinguishable from an
	// omitted field.
	var present map[string]json.RawMessage
	if err := json.Unmarshal(c.Body(), &present); err != nil {
		return dc.errs.Respond(c, apperr.Validation("Invalid input", nil))
	}

	saveOnly := c.QueryBool("save_only")

	var stepErrs []validate.FieldError
	var out wizard.Draft
	err := dc.store.With(c.Params("id"), claims.UserID, func(d *wizard.Draft) error {
		mergeFields(&d.Fields, fields, present)
		if !saveOnly {
			stepErrs = d.Advance(dc.validate)
		}
		out = *d
		return nil
	})
	if err != nil {
		return dc.respondStoreErr(c, err)
	}

	if len(stepErrs) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   apperr.CodeValidation,
			"message": "Fix the highlighted fields to continue",
			"details": stepErrs,
			"draft":   out,
		})
	}

	return c.JSON(out)
}

// Back moves one step backwards without clearing anything.
func (dc *DraftController) Back(c *fiber.Ctx) error {
	claims := middleware.Claims(c)

	var out wizard.Draft
	err := dc.store.With(c.Params("id"), claims.UserID, func(d *wizard.Draft) error {
		d.Retreat()
		out = *d
		return nil
	})
	if err != nil {
		return dc.respondStoreErr(c, err)
	}

	return c.JSON(out)
}

// Submit turns a fully valid draft into a pending property. The in-flight
// flag refuses concurrent submits; a failed submit resets it and keeps the
// draft so the user loses nothing. Retrying is the user's call.
func (dc *DraftController) Submit(c *fiber.Ctx) error {
	claims := middleware.Claims(c)
	id := c.Params("id")

	draft, err := dc.store.Get(id, claims.UserID)
	if err != nil {
		return dc.respondStoreErr(c, err)
	}

	if allErrs := draft.ValidateAll(dc.validate); len(allErrs) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   apperr.CodeValidation,
			"message": "The draft has invalid steps",
			"details": allErrs,
		})
	}

	// Submit is only offered from the final step, even when every step
	// already validates.
	if !draft.CanSubmit(dc.validate) {
		return dc.errs.Respond(c, apperr.Validation("Complete the remaining steps before submitting", nil))
	}

	if err := dc.store.BeginSubmit(id, claims.UserID); err != nil {
		return dc.respondStoreErr(c, err)
	}

	property, err := dc.persist(&draft, claims.UserID, id)
	if err != nil {
		if ferr := dc.store.FinishSubmit(id, claims.UserID, false); ferr != nil && dc.log != nil {
			dc.log.WithError(ferr).Warn("could not reset draft submit flag")
		}
		return dc.errs.Respond(c, err)
	}

	if err := dc.store.FinishSubmit(id, claims.UserID, true); err != nil && dc.log != nil {
		dc.log.WithError(err).Warn("could not discard submitted draft")
	}

	return c.Status(fiber.StatusCreated).JSON(property)
}

// persist writes the property and claims any images uploaded under the
// draft's temporary id. An image-claim failure leaves the created property
// pending and recoverable rather than rolling the whole submit back.
func (dc *DraftController) persist(d *wizard.Draft, userID uint, draftID string) (*model.Property, error) {
	f := d.Fields

	property := model.Property{
		AgentID:        userID,
		Title:          f.Title,
		Description:    f.Description,
		Type:           model.PropertyType(f.Type),
		ListingType:    model.ListingType(f.ListingType),
		Price:          f.Price,
		Currency:       normalizedCurrency(f.Currency),
		Address:        f.Address,
		City:           f.City,
		Region:         f.Region,
		PostalCode:     f.PostalCode,
		Latitude:       f.Latitude,
		Longitude:      f.Longitude,
		Bedrooms:       f.Bedrooms,
		Bathrooms:      f.Bathrooms,
		SquareFootage:  f.SquareFootage,
		LotSize:        f.LotSize,
		YearBuilt:      f.YearBuilt,
		Features:       jsonSet(f.Features),
		Amenities:      jsonSet(f.Amenities),
		Status:         model.PropertyStatusPending,
		ApprovalStatus: model.ApprovalPending,
		Tier:           model.TierNone,
	}

	if err := dc.db.Create(&property).Error; err != nil {
		return nil, err
	}

	res := dc.db.Model(&model.PropertyImage{}).
		Where("draft_id = ? AND property_id = 0 AND uploader_id = ?", draftID, userID).
		Updates(map[string]interface{}{"property_id": property.ID, "draft_id": ""})
	if res.Error != nil && dc.log != nil {
		dc.log.WithError(res.Error).WithField("property_id", property.ID).
			Warn("image claim failed, property left pending for manual recovery")
	}

	dc.db.Preload("Images", func(db *gorm.DB) *gorm.DB {
		return db.Order("property_images.position ASC")
	}).First(&property, property.ID)

	return &property, nil
}

// mergeFields copies exactly the fields named in the request body into the
// draft, leaving everything the client omitted untouched. Presence-keyed
// merging lets a client reset a numeric field to zero or clear a string.
func mergeFields(dst, src *wizard.Fields, present map[string]json.RawMessage) {
	if len(present) == 0 {
		return
	}

	dv := reflect.ValueOf(dst).Elem()
	sv := reflect.ValueOf(src).Elem()
	st := sv.Type()

	for i := 0; i < st.NumField(); i++ {
		tag := strings.SplitN(st.Field(i).Tag.Get("json"), ",", 2)[0]
		if _, ok := present[tag]; ok {
			dv.Field(i).Set(sv.Field(i))
		}
	}
}

// Discard drops the draft outright.
func (dc *DraftController) Discard(c *fiber.Ctx) error {
	claims := middleware.Claims(c)

	if err := dc.store.Delete(c.Params("id"), claims.UserID); err != nil {
		return dc.respondStoreErr(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
