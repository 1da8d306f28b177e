package controller

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/hometrove/marketplace-api/internal/middleware"
	"github.com/hometrove/marketplace-api/internal/model"
	"github.com/hometrove/marketplace-api/pkg/apperr"
	"github.com/hometrove/marketplace-api/pkg/jwtutil"
)

type StatsController struct {
	db     *gorm.DB
	errs   *apperr.Classifier
	tokens *jwtutil.Manager
}

func NewStatsController(db *gorm.DB, errs *apperr.Classifier, tokens *jwtutil.Manager) *StatsController {
	return &StatsController{db: db, errs: errs, tokens: tokens}
}

type DashboardStats struct {
	TotalListings  int64         `json:"total_listings"`
	ActiveListings int64         `json:"active_listings"`
	PendingReview  int64         `json:"pending_review"`
	TotalViews     int64         `json:"total_views"`
	UniqueViews    int64         `json:"unique_views"`
	NewLeads       int64         `json:"new_leads"`
	TopProperties  []TopProperty `json:"top_properties"`
	DailyStats     []DailyStat   `json:"daily_stats"`
}

type TopProperty struct {
	ID           uint    `json:"id"`
	Title        string  `json:"title"`
	Views        int64   `json:"views"`
	Price        float64 `json:"price"`
	City         string  `json:"city"`
	Type         string  `json:"type"`
	PrimaryImage string  `json:"primary_image"`
}

type DailyStat struct {
	Date        string `json:"date"`
	Views       int64  `json:"views"`
	NewListings int64  `json:"new_listings"`
	NewLeads    int64  `json:"new_leads"`
}

// Dashboard aggregates the agent's listing performance.
func (sc *StatsController) Dashboard(c *fiber.Ctx) error {
	claims := middleware.Claims(c)
	db := sc.db

	var stats DashboardStats

	db.Model(&model.Property{}).
		Where("agent_id = ?", claims.UserID).
		Count(&stats.TotalListings)

	db.Model(&model.Property{}).
		Where("agent_id = ? AND approval_status = ? AND status = ?",
			claims.UserID, model.ApprovalApproved, model.PropertyStatusActive).
		Count(&stats.ActiveListings)

	db.Model(&model.Property{}).
		Where("agent_id = ? AND approval_status = ?", claims.UserID, model.ApprovalPending).
		Count(&stats.PendingReview)

	db.Model(&model.PropertyView{}).
		Joins("JOIN properties ON property_views.property_id = properties.id").
		Where("properties.agent_id = ?", claims.UserID).
		Count(&stats.TotalViews)

	db.Model(&model.PropertyView{}).
		Joins("JOIN properties ON property_views.property_id = properties.id").
		Where("properties.agent_id = ? AND property_views.is_unique = ?", claims.UserID, true).
		Count(&stats.UniqueViews)

	db.Model(&model.Lead{}).
		Joins("JOIN properties ON leads.property_id = properties.id").
		Where("properties.agent_id = ? AND leads.status = ?", claims.UserID, "new").
		Count(&stats.NewLeads)

	var topProps []TopProperty
	db.Table("properties").
		Select("properties.id, properties.title, properties.price, properties.city, properties.type, COUNT(property_views.id) as views").
		Joins("LEFT JOIN property_views ON properties.id = property_views.property_id").
		Where("properties.agent_id = ? AND properties.deleted_at IS NULL", claims.UserID).
		Group("properties.id").
		Order("views DESC").
		Limit(5).
		Scan(&topProps)

	for i := range topProps {
		var primary model.PropertyImage
		if err := db.Where("property_id = ? AND is_primary = ?", topProps[i].ID, true).
			First(&primary).Error; err == nil {
			topProps[i].PrimaryImage = primary.URL
		}
	}
	stats.TopProperties = topProps

	var dailyStats []DailyStat
	for i := 6; i >= 0; i-- {
		date := time.Now().AddDate(0, 0, -i)
		day := date.Format("2006-01-02")
		stat := DailyStat{Date: day}

		db.Model(&model.PropertyView{}).
			Joins("JOIN properties ON property_views.property_id = properties.id").
			Where("properties.agent_id = ? AND DATE(property_views.created_at) = ?", claims.UserID, day).
			Count(&stat.Views)

		db.Model(&model.Property{}).
			Where("agent_id = ? AND DATE(created_at) = ?", claims.UserID, day).
			Count(&stat.NewListings)

		db.Model(&model.Lead{}).
			Joins("JOIN properties ON leads.property_id = properties.id").
			Where("properties.agent_id = ? AND DATE(leads.created_at) = ?", claims.UserID, day).
			Count(&stat.NewLeads)

		dailyStats = append(dailyStats, stat)
	}
	stats.DailyStats = dailyStats

	return c.JSON(stats)
}

// RecordView logs a listing view. Views from the same IP within 24 hours
// count as repeat, not unique.
func (sc *StatsController) RecordView(c *fiber.Ctx) error {
	var property model.Property
	if err := sc.db.First(&property, c.Params("id")).Error; err != nil {
		return sc.errs.Respond(c, apperr.NotFound("Property"))
	}

	ip := c.IP()
	sessionID := c.Get("X-Session-ID")
	if sessionID == "" {
		sessionID = fmt.Sprintf("%s_%s", ip, time.Now().Format("20060102"))
	}

	var userID *uint
	if header := c.Get(fiber.HeaderAuthorization); len(header) > len("Bearer ") {
		if claims, err := sc.tokens.Validate(header[len("Bearer "):]); err == nil {
			userID = &claims.UserID
		}
	}

	view := model.PropertyView{
		PropertyID: property.ID,
		UserID:     userID,
		IP:         ip,
		SessionID:  sessionID,
		UserAgent:  c.Get("User-Agent"),
		ViewedAt:   time.Now(),
	}

	if err := sc.db.Create(&view).Error; err != nil {
		return sc.errs.Respond(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
