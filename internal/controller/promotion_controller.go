package controller

import (
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/checkout/session"
	"github.com/stripe/stripe-go/v74/webhook"
	"gorm.io/gorm"

	"github.com/hometrove/marketplace-api/internal/middleware"
	"github.com/hometrove/marketplace-api/internal/model"
	"github.com/hometrove/marketplace-api/pkg/apperr"
	"github.com/hometrove/marketplace-api/pkg/config"
	"github.com/hometrove/marketplace-api/pkg/currency"
	"github.com/hometrove/marketplace-api/pkg/email"
	"github.com/hometrove/marketplace-api/pkg/validate"
)

// PromotionController sells tier placement through Stripe Checkout. Payment
// processing itself stays on Stripe's side; this service only creates
// sessions and reacts to the webhook.
type PromotionController struct {
	db       *gorm.DB
	validate *validate.Validator
	errs     *apperr.Classifier
	mailer   *email.Service
	cfg      config.StripeConfig
	log      *logrus.Logger
}

func NewPromotionController(db *gorm.DB, v *validate.Validator, errs *apperr.Classifier, mailer *email.Service, cfg config.StripeConfig, log *logrus.Logger) *PromotionController {
	stripe.Key = cfg.SecretKey
	return &PromotionController{db: db, validate: v, errs: errs, mailer: mailer, cfg: cfg, log: log}
}

// ListTiers returns the purchasable promotion levels.
func (pc *PromotionController) ListTiers(c *fiber.Ctx) error {
	var plans []model.TierPlan
	if err := pc.db.Order("price ASC").Find(&plans).Error; err != nil {
		return pc.errs.Respond(c, err)
	}
	return c.JSON(plans)
}

type PromoteInput struct {
	Tier model.Tier `json:"tier" validate:"required,oneof=basic standard premium"`
}

// Promote opens a Stripe checkout session for a tier purchase on an owned
// listing and records the pending promotion.
func (pc *PromotionController) Promote(c *fiber.Ctx) error {
	claims := middleware.Claims(c)
	property := middleware.OwnedProperty(c)

	input := new(PromoteInput)
	if err := c.BodyParser(input); err != nil {
		return pc.errs.Respond(c, apperr.Validation("Invalid input", nil))
	}
	if errs := pc.validate.Struct(input); len(errs) > 0 {
		return pc.errs.Respond(c, apperr.Validation("", errs))
	}

	var plan model.TierPlan
	if err := pc.db.Where("tier = ?", input.Tier).First(&plan).Error; err != nil {
		return pc.errs.Respond(c, apperr.NotFound("Tier plan"))
	}

	sess, err := session.New(pc.checkoutParams(plan, property.ID, claims.UserID))
	if err != nil {
		return pc.errs.Respond(c, apperr.Wrap(apperr.CodeUpstream, err))
	}

	promotion := model.Promotion{
		PropertyID:      property.ID,
		UserID:          claims.UserID,
		Tier:            plan.Tier,
		Status:          model.PromotionStatusPending,
		AmountPaid:      plan.Price,
		Currency:        plan.Currency,
		StripeSessionID: sess.ID,
	}
	if err := pc.db.Create(&promotion).Error; err != nil {
		return pc.errs.Respond(c, err)
	}

	return c.JSON(fiber.Map{
		"checkout_url": sess.URL,
		"session_id":   sess.ID,
	})
}

func jsonNumber(v uint) string {
	b, _ := json.Marshal(v)
	return string(b)
}

// checkoutParams builds the session for one tier purchase. Metadata goes
// through AddMetadata; it lives on the embedded Params and cannot be set in
// the literal.
func (pc *PromotionController) checkoutParams(plan model.TierPlan, propertyID, userID uint) *stripe.CheckoutSessionParams {
	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(pc.cfg.SuccessURL),
		CancelURL:  stripe.String(pc.cfg.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(plan.StripePriceID),
				Quantity: stripe.Int64(1),
			},
		},
	}
	params.AddMetadata("property_id", jsonNumber(propertyID))
	params.AddMetadata("user_id", jsonNumber(userID))
	params.AddMetadata("tier", string(plan.Tier))

	return params
}

// Webhook handles Stripe events. Only checkout.session.completed matters:
// it activates the pending promotion and applies the tier to the listing.
func (pc *PromotionController) Webhook(c *fiber.Ctx) error {
	event, err := webhook.ConstructEvent(c.Body(), c.Get("Stripe-Signature"), pc.cfg.WebhookSecret)
	if err != nil {
		return pc.errs.Respond(c, apperr.Wrap(apperr.CodeValidation, err))
	}

	if event.Type != "checkout.session.completed" {
		return c.SendStatus(fiber.StatusOK)
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return pc.errs.Respond(c, apperr.Wrap(apperr.CodeValidation, err))
	}

	var promotion model.Promotion
	if err := pc.db.Where("stripe_session_id = ?", sess.ID).First(&promotion).Error; err != nil {
		// Unknown session: acknowledge so Stripe stops retrying.
		if pc.log != nil {
			pc.log.WithField("session_id", sess.ID).Warn("webhook for unknown promotion session")
		}
		return c.SendStatus(fiber.StatusOK)
	}

	if promotion.Status == model.PromotionStatusActive {
		return c.SendStatus(fiber.StatusOK)
	}

	var plan model.TierPlan
	if err := pc.db.Where("tier = ?", promotion.Tier).First(&plan).Error; err != nil {
		return pc.errs.Respond(c, err)
	}

	now := time.Now()
	expires := now.AddDate(0, 0, plan.DurationDays)

	err = pc.db.Transaction(func(tx *gorm.DB) error {
		promotion.Status = model.PromotionStatusActive
		promotion.StartsAt = &now
		promotion.ExpiresAt = &expires
		if err := tx.Save(&promotion).Error; err != nil {
			return err
		}

		return tx.Model(&model.Property{}).
			Where("id = ?", promotion.PropertyID).
			Update("tier", promotion.Tier).Error
	})
	if err != nil {
		return pc.errs.Respond(c, err)
	}

	if pc.mailer != nil {
		var user model.User
		var property model.Property
		if pc.db.First(&user, promotion.UserID).Error == nil &&
			pc.db.First(&property, promotion.PropertyID).Error == nil {
			amount := currency.Format(promotion.AmountPaid, currency.Code(promotion.Currency), currency.FormatOptions{WithCode: true})
			if err := pc.mailer.SendPromotionReceipt(user.Email, user.FullName(), property.Title, string(promotion.Tier), amount, expires); err != nil && pc.log != nil {
				pc.log.WithError(err).Warn("could not send promotion receipt")
			}
		}
	}

	return c.SendStatus(fiber.StatusOK)
}
