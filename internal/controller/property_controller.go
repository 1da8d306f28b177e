package controller

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/hometrove/marketplace-api/internal/middleware"
	"github.com/hometrove/marketplace-api/internal/model"
	"github.com/hometrove/marketplace-api/pkg/apperr"
	"github.com/hometrove/marketplace-api/pkg/currency"
	"github.com/hometrove/marketplace-api/pkg/jwtutil"
	"github.com/hometrove/marketplace-api/pkg/storage"
	"github.com/hometrove/marketplace-api/pkg/validate"
)

// tierPlacement ranks paid tiers above free listings in public results.
const tierPlacement = "CASE tier WHEN 'premium' THEN 0 WHEN 'standard' THEN 1 WHEN 'basic' THEN 2 ELSE 3 END"

type PropertyController struct {
	db       *gorm.DB
	validate *validate.Validator
	errs     *apperr.Classifier
	tokens   *jwtutil.Manager
	store    *storage.Client
	log      *logrus.Logger
}

func NewPropertyController(db *gorm.DB, v *validate.Validator, errs *apperr.Classifier, tokens *jwtutil.Manager, store *storage.Client, log *logrus.Logger) *PropertyController {
	return &PropertyController{db: db, validate: v, errs: errs, tokens: tokens, store: store, log: log}
}

type ImageInput struct {
	URL  string          `json:"url" validate:"required,url"`
	Type model.ImageType `json:"type" validate:"omitempty,oneof=primary gallery floorplan exterior interior"`
}

type PropertyInput struct {
	Title       string             `json:"title" validate:"required,max=150"`
	Description string             `json:"description" validate:"required,min=20"`
	Type        model.PropertyType `json:"type" validate:"required,oneof=house apartment land commercial office"`
	ListingType model.ListingType  `json:"listing_type" validate:"required,oneof=sale rent lease"`
	Price       float64            `json:"price" validate:"required,gt=0"`
	Currency    string             `json:"currency" validate:"omitempty,oneof=GHS USD EUR GBP NGN"`

	Address    string  `json:"address" validate:"required,min=10"`
	City       string  `json:"city" validate:"required"`
	Region     string  `json:"region" validate:"required"`
	PostalCode string  `json:"postal_code"`
	Latitude   float64 `json:"latitude" validate:"omitempty,gte=-90,lte=90"`
	Longitude  float64 `json:"longitude" validate:"omitempty,gte=-180,lte=180"`

	Bedrooms      int `json:"bedrooms" validate:"gte=0,lte=50"`
	Bathrooms     int `json:"bathrooms" validate:"gte=0,lte=50"`
	SquareFootage int `json:"square_footage" validate:"gte=0"`
	LotSize       int `json:"lot_size" validate:"gte=0"`
	YearBuilt     int `json:"year_built" validate:"omitempty,gte=1800,lte=2100"`

	Features  []string `json:"features" validate:"required,min=1,dive,required"`
	Amenities []string `json:"amenities" validate:"required,min=1,dive,required"`

	Images []ImageInput `json:"images" validate:"omitempty,dive"`
}

// validateInput runs the schema plus the image-count rule that the validator
// tags cannot express: images are optional, but 1-2 of them is rejected.
func (pc *PropertyController) validateInput(input *PropertyInput) *apperr.Error {
	if errs := pc.validate.Struct(input); len(errs) > 0 {
		return apperr.Validation("", errs)
	}

	if n := len(input.Images); n > 0 && n < 3 {
		return apperr.Validation("at least 3 images required", []validate.FieldError{
			{Field: "images", Rule: "min", Message: "at least 3 images required"},
		})
	}

	return nil
}

func normalizedCurrency(raw string) string {
	return string(currency.Normalize(raw))
}

func jsonSet(values []string) datatypes.JSON {
	b, _ := json.Marshal(values)
	return datatypes.JSON(b)
}

func (pc *PropertyController) preloaded() *gorm.DB {
	return pc.db.Preload("Images", func(db *gorm.DB) *gorm.DB {
		return db.Order("property_images.position ASC")
	})
}

// Create makes a new listing in the pending state, awaiting admin approval.
func (pc *PropertyController) Create(c *fiber.Ctx) error {
	claims := middleware.Claims(c)
	input := new(PropertyInput)

	if err := c.BodyParser(input); err != nil {
		return pc.errs.Respond(c, apperr.Validation("Invalid input", nil))
	}
	if appErr := pc.validateInput(input); appErr != nil {
		return pc.errs.Respond(c, appErr)
	}

	property := model.Property{
		AgentID:        claims.UserID,
		Title:          input.Title,
		Description:    input.Description,
		Type:           input.Type,
		ListingType:    input.ListingType,
		Price:          input.Price,
		Currency:       normalizedCurrency(input.Currency),
		Address:        input.Address,
		City:           input.City,
		Region:         input.Region,
		PostalCode:     input.PostalCode,
		Latitude:       input.Latitude,
		Longitude:      input.Longitude,
		Bedrooms:       input.Bedrooms,
		Bathrooms:      input.Bathrooms,
		SquareFootage:  input.SquareFootage,
		LotSize:        input.LotSize,
		YearBuilt:      input.YearBuilt,
		Features:       jsonSet(input.Features),
		Amenities:      jsonSet(input.Amenities),
		Status:         model.PropertyStatusPending,
		ApprovalStatus: model.ApprovalPending,
		Tier:           model.TierNone,
	}

	tx := pc.db.Begin()

	if err := tx.Create(&property).Error; err != nil {
		tx.Rollback()
		return pc.errs.Respond(c, err)
	}

	if err := pc.saveImages(tx, property.ID, claims.UserID, input.Images); err != nil {
		tx.Rollback()
		return pc.errs.Respond(c, err)
	}

	if err := tx.Commit().Error; err != nil {
		return pc.errs.Respond(c, err)
	}

	pc.preloaded().First(&property, property.ID)

	return c.Status(fiber.StatusCreated).JSON(property)
}

// saveImages persists the image list; the first image of a fresh set becomes
// primary. Only URLs pointing into our bucket are accepted.
func (pc *PropertyController) saveImages(tx *gorm.DB, propertyID, uploaderID uint, images []ImageInput) error {
	for i, in := range images {
		if pc.store != nil && !pc.store.Owns(in.URL) {
			continue
		}
		imgType := in.Type
		if imgType == "" {
			imgType = model.ImageTypeGallery
		}
		if i == 0 {
			imgType = model.ImageTypePrimary
		}
		image := model.PropertyImage{
			PropertyID: propertyID,
			URL:        in.URL,
			Type:       imgType,
			Position:   i,
			IsPrimary:  i == 0,
			UploaderID: uploaderID,
		}
		if err := tx.Create(&image).Error; err != nil {
			return err
		}
	}
	return nil
}

// Update rewrites a listing. Edits to an approved listing send it back
// through review.
func (pc *PropertyController) Update(c *fiber.Ctx) error {
	property := middleware.OwnedProperty(c)
	input := new(PropertyInput)

	if err := c.BodyParser(input); err != nil {
		return pc.errs.Respond(c, apperr.Validation("Invalid input", nil))
	}
	if appErr := pc.validateInput(input); appErr != nil {
		return pc.errs.Respond(c, appErr)
	}

	tx := pc.db.Begin()

	property.Title = input.Title
	property.Description = input.Description
	property.Type = input.Type
	property.ListingType = input.ListingType
	property.Price = input.Price
	property.Currency = normalizedCurrency(input.Currency)
	property.Address = input.Address
	property.City = input.City
	property.Region = input.Region
	property.PostalCode = input.PostalCode
	property.Latitude = input.Latitude
	property.Longitude = input.Longitude
	property.Bedrooms = input.Bedrooms
	property.Bathrooms = input.Bathrooms
	property.SquareFootage = input.SquareFootage
	property.LotSize = input.LotSize
	property.YearBuilt = input.YearBuilt
	property.Features = jsonSet(input.Features)
	property.Amenities = jsonSet(input.Amenities)

	if property.ApprovalStatus == model.ApprovalApproved {
		property.ApprovalStatus = model.ApprovalPending
		property.Status = model.PropertyStatusPending
	}
	property.RejectionReason = ""

	if err := tx.Save(property).Error; err != nil {
		tx.Rollback()
		return pc.errs.Respond(c, err)
	}

	if len(input.Images) > 0 {
		if err := tx.Where("property_id = ?", property.ID).Delete(&model.PropertyImage{}).Error; err != nil {
			tx.Rollback()
			return pc.errs.Respond(c, err)
		}
		if err := pc.saveImages(tx, property.ID, property.AgentID, input.Images); err != nil {
			tx.Rollback()
			return pc.errs.Respond(c, err)
		}
	}

	if err := tx.Commit().Error; err != nil {
		return pc.errs.Respond(c, err)
	}

	pc.preloaded().First(property, property.ID)

	return c.JSON(property)
}

// List serves the public marketplace query: approved, active listings with
// pagination and filter predicates. Paid tiers rank first.
func (pc *PropertyController) List(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	page, limit = clampPaging(page, limit)

	base := pc.publicQuery(c)

	// Region text search runs two ranked sub-queries merged in application
	// code: exact city/address matches ahead of broader region matches.
	if q := c.Query("region"); q != "" {
		return pc.listByRegion(c, base, q, page, limit)
	}

	var total int64
	if err := base.Model(&model.Property{}).Count(&total).Error; err != nil {
		return pc.errs.Respond(c, err)
	}

	var properties []model.Property
	err := base.
		Preload("Images", func(db *gorm.DB) *gorm.DB {
			return db.Order("property_images.position ASC")
		}).
		Order(tierPlacement).
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&properties).Error
	if err != nil {
		return pc.errs.Respond(c, err)
	}

	return c.JSON(fiber.Map{
		"data":        properties,
		"page":        page,
		"limit":       limit,
		"total":       total,
		"total_pages": (total + int64(limit) - 1) / int64(limit),
	})
}

// publicQuery applies the shared visibility rule and the simple filters.
func (pc *PropertyController) publicQuery(c *fiber.Ctx) *gorm.DB {
	q := pc.db.Where("approval_status = ? AND status = ?", model.ApprovalApproved, model.PropertyStatusActive)

	if t := c.Query("type"); t != "" {
		q = q.Where("type = ?", t)
	}
	if lt := c.Query("listing_type"); lt != "" {
		q = q.Where("listing_type = ?", lt)
	}
	if city := c.Query("city"); city != "" {
		q = q.Where("LOWER(city) = LOWER(?)", city)
	}
	if minPrice := c.QueryFloat("min_price"); minPrice > 0 {
		q = q.Where("price >= ?", minPrice)
	}
	if maxPrice := c.QueryFloat("max_price"); maxPrice > 0 {
		q = q.Where("price <= ?", maxPrice)
	}
	if minBeds := c.QueryInt("min_bedrooms"); minBeds > 0 {
		q = q.Where("bedrooms >= ?", minBeds)
	}
	if days := c.QueryInt("listed_within_days"); days > 0 {
		q = q.Where("created_at >= ?", time.Now().AddDate(0, 0, -days))
	}

	return q
}

func (pc *PropertyController) listByRegion(c *fiber.Ctx, base *gorm.DB, q string, page, limit int) error {
	like := "%" + q + "%"

	imgOrder := func(db *gorm.DB) *gorm.DB {
		return db.Order("property_images.position ASC")
	}

	var exact []model.Property
	if err := base.Session(&gorm.Session{}).
		Where("LOWER(city) = LOWER(?) OR address ILIKE ?", q, like).
		Preload("Images", imgOrder).
		Order(tierPlacement).
		Order("created_at DESC").
		Find(&exact).Error; err != nil {
		return pc.errs.Respond(c, err)
	}

	var broad []model.Property
	if err := base.Session(&gorm.Session{}).
		Where("region ILIKE ?", like).
		Preload("Images", imgOrder).
		Order(tierPlacement).
		Order("created_at DESC").
		Find(&broad).Error; err != nil {
		return pc.errs.Respond(c, err)
	}

	merged := mergeRanked(exact, broad)
	pageItems, total, totalPages := paginate(merged, page, limit)

	return c.JSON(fiber.Map{
		"data":        pageItems,
		"page":        page,
		"limit":       limit,
		"total":       total,
		"total_pages": totalPages,
	})
}

// Get serves a listing detail. Hidden listings are visible only to their
// agent or an admin; everyone else sees a 404, not a 403.
func (pc *PropertyController) Get(c *fiber.Ctx) error {
	var property model.Property
	if err := pc.preloaded().First(&property, c.Params("id")).Error; err != nil {
		return pc.errs.Respond(c, apperr.NotFound("Property"))
	}

	if property.PubliclyVisible() {
		return c.JSON(property)
	}

	if claims := pc.optionalClaims(c); claims != nil {
		if claims.UserID == property.AgentID || claims.Role == model.RoleAdmin {
			return c.JSON(property)
		}
	}

	return pc.errs.Respond(c, apperr.NotFound("Property"))
}

func (pc *PropertyController) optionalClaims(c *fiber.Ctx) *jwtutil.Claims {
	header := c.Get(fiber.HeaderAuthorization)
	if len(header) <= len("Bearer ") {
		return nil
	}
	claims, err := pc.tokens.Validate(header[len("Bearer "):])
	if err != nil {
		return nil
	}
	return claims
}

// ListMine returns the caller's own listings regardless of visibility.
func (pc *PropertyController) ListMine(c *fiber.Ctx) error {
	claims := middleware.Claims(c)

	var properties []model.Property
	err := pc.preloaded().
		Where("agent_id = ?", claims.UserID).
		Order("created_at DESC").
		Find(&properties).Error
	if err != nil {
		return pc.errs.Respond(c, err)
	}

	return c.JSON(properties)
}

// Archive soft-deletes the listing: it disappears from public queries but
// the row survives.
func (pc *PropertyController) Archive(c *fiber.Ctx) error {
	property := middleware.OwnedProperty(c)

	if err := pc.db.Delete(property).Error; err != nil {
		return pc.errs.Respond(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
