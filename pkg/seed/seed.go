// Package seed provisions the rows the service cannot run without: the
// admin account and the tier catalog.
package seed

import (
	"os"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/hometrove/marketplace-api/internal/model"
)

func Run(db *gorm.DB) error {
	if err := seedAdmin(db); err != nil {
		return err
	}
	return seedTierPlans(db)
}

func seedAdmin(db *gorm.DB) error {
	adminEmail := os.Getenv("ADMIN_EMAIL")
	adminPassword := os.Getenv("ADMIN_PASSWORD")
	if adminEmail == "" || adminPassword == "" {
		return nil
	}

	var count int64
	db.Model(&model.User{}).Where("email = ?", adminEmail).Count(&count)
	if count > 0 {
		return nil
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	return db.Create(&model.User{
		Email:      adminEmail,
		Password:   string(hashed),
		Role:       model.RoleAdmin,
		FirstName:  "Marketplace",
		LastName:   "Admin",
		IsVerified: true,
	}).Error
}

func seedTierPlans(db *gorm.DB) error {
	plans := []model.TierPlan{
		{
			Tier:          model.TierBasic,
			Name:          "Basic Boost",
			Description:   "Ranked above free listings for two weeks",
			Price:         9.99,
			Currency:      "USD",
			DurationDays:  14,
			StripePriceID: os.Getenv("STRIPE_PRICE_BASIC"),
		},
		{
			Tier:          model.TierStandard,
			Name:          "Standard Boost",
			Description:   "Priority placement for a month",
			Price:         24.99,
			Currency:      "USD",
			DurationDays:  30,
			StripePriceID: os.Getenv("STRIPE_PRICE_STANDARD"),
		},
		{
			Tier:          model.TierPremium,
			Name:          "Premium Boost",
			Description:   "Top placement for a month",
			Price:         49.99,
			Currency:      "USD",
			DurationDays:  30,
			StripePriceID: os.Getenv("STRIPE_PRICE_PREMIUM"),
		},
	}

	for _, plan := range plans {
		var existing model.TierPlan
		err := db.Where("tier = ?", plan.Tier).First(&existing).Error
		if err == gorm.ErrRecordNotFound {
			if err := db.Create(&plan).Error; err != nil {
				return err
			}
			continue
		}
		if err != nil {
			return err
		}
	}

	return nil
}
