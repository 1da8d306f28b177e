package controller

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/hometrove/marketplace-api/internal/middleware"
	"github.com/hometrove/marketplace-api/internal/model"
	"github.com/hometrove/marketplace-api/pkg/apperr"
	"github.com/hometrove/marketplace-api/pkg/email"
	"github.com/hometrove/marketplace-api/pkg/validate"
)

type LeadController struct {
	db       *gorm.DB
	validate *validate.Validator
	errs     *apperr.Classifier
	mailer   *email.Service
	log      *logrus.Logger
}

func NewLeadController(db *gorm.DB, v *validate.Validator, errs *apperr.Classifier, mailer *email.Service, log *logrus.Logger) *LeadController {
	return &LeadController{db: db, validate: v, errs: errs, mailer: mailer, log: log}
}

type LeadInput struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required,email"`
	Phone   string `json:"phone"`
	Message string `json:"message" validate:"required,min=10"`
}

// Create records a public enquiry against a visible listing and notifies
// its agent.
func (lc *LeadController) Create(c *fiber.Ctx) error {
	input := new(LeadInput)
	if err := c.BodyParser(input); err != nil {
		return lc.errs.Respond(c, apperr.Validation("Invalid input", nil))
	}
	if errs := lc.validate.Struct(input); len(errs) > 0 {
		return lc.errs.Respond(c, apperr.Validation("", errs))
	}

	var property model.Property
	if err := lc.db.Preload("Agent").First(&property, c.Params("id")).Error; err != nil {
		return lc.errs.Respond(c, apperr.NotFound("Property"))
	}
	if !property.PubliclyVisible() {
		return lc.errs.Respond(c, apperr.NotFound("Property"))
	}

	lead := model.Lead{
		PropertyID: property.ID,
		Name:       input.Name,
		Email:      input.Email,
		Phone:      input.Phone,
		Message:    input.Message,
	}

	if err := lc.db.Create(&lead).Error; err != nil {
		return lc.errs.Respond(c, err)
	}

	if lc.mailer != nil {
		err := lc.mailer.SendLeadNotification(
			property.Agent.Email, property.Title,
			lead.Name, lead.Email, lead.Phone, lead.Message)
		if err != nil && lc.log != nil {
			lc.log.WithError(err).Warn("could not send lead notification")
		}
	}

	return c.Status(fiber.StatusCreated).JSON(lead)
}

// ListMine returns leads across all of the caller's listings, newest first.
func (lc *LeadController) ListMine(c *fiber.Ctx) error {
	claims := middleware.Claims(c)

	var leads []model.Lead
	err := lc.db.
		Joins("JOIN properties ON leads.property_id = properties.id").
		Where("properties.agent_id = ?", claims.UserID).
		Preload("Property").
		Order("leads.created_at DESC").
		Find(&leads).Error
	if err != nil {
		return lc.errs.Respond(c, err)
	}

	return c.JSON(leads)
}

type LeadStatusInput struct {
	Status string `json:"status" validate:"required,oneof=new contacted qualified converted closed"`
}

// UpdateStatus moves a lead through the pipeline. Only the listing's agent
// may touch it.
func (lc *LeadController) UpdateStatus(c *fiber.Ctx) error {
	claims := middleware.Claims(c)

	input := new(LeadStatusInput)
	if err := c.BodyParser(input); err != nil {
		return lc.errs.Respond(c, apperr.Validation("Invalid input", nil))
	}
	if errs := lc.validate.Struct(input); len(errs) > 0 {
		return lc.errs.Respond(c, apperr.Validation("", errs))
	}

	var lead model.Lead
	err := lc.db.
		Joins("JOIN properties ON leads.property_id = properties.id").
		Where("leads.id = ? AND properties.agent_id = ?", c.Params("id"), claims.UserID).
		First(&lead).Error
	if err != nil {
		return lc.errs.Respond(c, apperr.NotFound("Lead"))
	}

	lead.Status = input.Status
	lead.ReadStatus = true
	if input.Status == "contacted" && lead.ContactedAt == nil {
		now := time.Now()
		lead.ContactedAt = &now
	}

	if err := lc.db.Save(&lead).Error; err != nil {
		return lc.errs.Respond(c, err)
	}

	return c.JSON(lead)
}
