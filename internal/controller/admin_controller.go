package controller

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/hometrove/marketplace-api/internal/model"
	"github.com/hometrove/marketplace-api/pkg/apperr"
	"github.com/hometrove/marketplace-api/pkg/email"
	"github.com/hometrove/marketplace-api/pkg/validate"
)

type AdminController struct {
	db       *gorm.DB
	validate *validate.Validator
	errs     *apperr.Classifier
	mailer   *email.Service
	log      *logrus.Logger
}

func NewAdminController(db *gorm.DB, v *validate.Validator, errs *apperr.Classifier, mailer *email.Service, log *logrus.Logger) *AdminController {
	return &AdminController{db: db, validate: v, errs: errs, mailer: mailer, log: log}
}

// ListProperties returns listings for review, filterable by approval status.
func (adm *AdminController) ListProperties(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	page, limit = clampPaging(page, limit)

	q := adm.db.Model(&model.Property{})
	if status := c.Query("approval_status"); status != "" {
		q = q.Where("approval_status = ?", status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return adm.errs.Respond(c, err)
	}

	var properties []model.Property
	err := q.
		Preload("Images", func(db *gorm.DB) *gorm.DB {
			return db.Order("property_images.position ASC")
		}).
		Preload("Agent").
		Order("created_at ASC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&properties).Error
	if err != nil {
		return adm.errs.Respond(c, err)
	}

	return c.JSON(fiber.Map{
		"data":        properties,
		"page":        page,
		"limit":       limit,
		"total":       total,
		"total_pages": (total + int64(limit) - 1) / int64(limit),
	})
}

// Approve publishes a pending listing.
func (adm *AdminController) Approve(c *fiber.Ctx) error {
	var property model.Property
	if err := adm.db.Preload("Agent").First(&property, c.Params("id")).Error; err != nil {
		return adm.errs.Respond(c, apperr.NotFound("Property"))
	}

	property.ApprovalStatus = model.ApprovalApproved
	property.Status = model.PropertyStatusActive
	property.RejectionReason = ""

	if err := adm.db.Save(&property).Error; err != nil {
		return adm.errs.Respond(c, err)
	}

	if adm.mailer != nil {
		if err := adm.mailer.SendListingApproved(property.Agent.Email, property.Agent.FullName(), property.Title); err != nil && adm.log != nil {
			adm.log.WithError(err).Warn("could not send approval email")
		}
	}

	return c.JSON(property)
}

type RejectInput struct {
	Reason string `json:"reason" validate:"required,min=10"`
}

// Reject bounces a listing back to its agent with a reason.
func (adm *AdminController) Reject(c *fiber.Ctx) error {
	input := new(RejectInput)
	if err := c.BodyParser(input); err != nil {
		return adm.errs.Respond(c, apperr.Validation("Invalid input", nil))
	}
	if errs := adm.validate.Struct(input); len(errs) > 0 {
		return adm.errs.Respond(c, apperr.Validation("", errs))
	}

	var property model.Property
	if err := adm.db.Preload("Agent").First(&property, c.Params("id")).Error; err != nil {
		return adm.errs.Respond(c, apperr.NotFound("Property"))
	}

	property.ApprovalStatus = model.ApprovalRejected
	property.Status = model.PropertyStatusInactive
	property.RejectionReason = input.Reason

	if err := adm.db.Save(&property).Error; err != nil {
		return adm.errs.Respond(c, err)
	}

	if adm.mailer != nil {
		if err := adm.mailer.SendListingRejected(property.Agent.Email, property.Agent.FullName(), property.Title, input.Reason); err != nil && adm.log != nil {
			adm.log.WithError(err).Warn("could not send rejection email")
		}
	}

	return c.JSON(property)
}

// VerifyUser marks an account as verified so it may publish listings.
func (adm *AdminController) VerifyUser(c *fiber.Ctx) error {
	var user model.User
	if err := adm.db.First(&user, c.Params("id")).Error; err != nil {
		return adm.errs.Respond(c, apperr.NotFound("User"))
	}

	user.IsVerified = true
	if err := adm.db.Save(&user).Error; err != nil {
		return adm.errs.Respond(c, err)
	}

	return c.JSON(fiber.Map{"user": user.PublicProfile()})
}

// Remove archives any listing regardless of owner.
func (adm *AdminController) Remove(c *fiber.Ctx) error {
	var property model.Property
	if err := adm.db.First(&property, c.Params("id")).Error; err != nil {
		return adm.errs.Respond(c, apperr.NotFound("Property"))
	}

	if err := adm.db.Delete(&property).Error; err != nil {
		return adm.errs.Respond(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// Stats summarizes the marketplace for the admin dashboard.
func (adm *AdminController) Stats(c *fiber.Ctx) error {
	var stats struct {
		TotalUsers      int64 `json:"total_users"`
		UnverifiedUsers int64 `json:"unverified_users"`
		TotalListings   int64 `json:"total_listings"`
		PendingReview   int64 `json:"pending_review"`
		ActiveListings  int64 `json:"active_listings"`
		TotalViews      int64 `json:"total_views"`
		TotalLeads      int64 `json:"total_leads"`
	}

	adm.db.Model(&model.User{}).Count(&stats.TotalUsers)
	adm.db.Model(&model.User{}).Where("is_verified = ?", false).Count(&stats.UnverifiedUsers)
	adm.db.Model(&model.Property{}).Count(&stats.TotalListings)
	adm.db.Model(&model.Property{}).Where("approval_status = ?", model.ApprovalPending).Count(&stats.PendingReview)
	adm.db.Model(&model.Property{}).
		Where("approval_status = ? AND status = ?", model.ApprovalApproved, model.PropertyStatusActive).
		Count(&stats.ActiveListings)
	adm.db.Model(&model.PropertyView{}).Count(&stats.TotalViews)
	adm.db.Model(&model.Lead{}).Count(&stats.TotalLeads)

	var byType []struct {
		Type  string `json:"type"`
		Count int64  `json:"count"`
	}
	adm.db.Model(&model.Property{}).
		Select("type, COUNT(*) as count").
		Group("type").
		Scan(&byType)

	return c.JSON(fiber.Map{
		"totals":  stats,
		"by_type": byType,
	})
}
