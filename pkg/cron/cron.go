// Package cron wires the recurring jobs: currency-rate refresh, abandoned
// draft sweep, promotion expiry and the weekly stats digest.
package cron

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/hometrove/marketplace-api/internal/model"
	"github.com/hometrove/marketplace-api/internal/wizard"
	"github.com/hometrove/marketplace-api/pkg/currency"
	"github.com/hometrove/marketplace-api/pkg/email"
)

type Runner struct {
	cron   *cron.Cron
	db     *gorm.DB
	drafts *wizard.Store
	rates  *currency.Table
	mailer *email.Service
	log    *logrus.Logger
}

func NewRunner(db *gorm.DB, drafts *wizard.Store, rates *currency.Table, mailer *email.Service, log *logrus.Logger) *Runner {
	return &Runner{
		cron:   cron.New(),
		db:     db,
		drafts: drafts,
		rates:  rates,
		mailer: mailer,
		log:    log,
	}
}

// Start registers and launches all jobs. Schedule errors are reported and
// the remaining jobs still run.
func (r *Runner) Start() {
	jobs := []struct {
		spec string
		name string
		fn   func()
	}{
		{"0 * * * *", "rate refresh", r.refreshRates},
		{"*/30 * * * *", "draft sweep", r.sweepDrafts},
		{"15 0 * * *", "promotion expiry", r.expirePromotions},
		{"0 20 * * 0", "weekly stats digest", r.sendWeeklyStats},
	}

	for _, job := range jobs {
		if _, err := r.cron.AddFunc(job.spec, job.fn); err != nil {
			r.log.WithError(err).WithField("job", job.name).Error("could not schedule job")
		}
	}

	r.cron.Start()
}

func (r *Runner) Stop() {
	r.cron.Stop()
}

func (r *Runner) refreshRates() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := r.rates.Refresh(ctx); err != nil {
		r.log.WithError(err).Warn("rate refresh failed, static defaults remain in effect")
	}
}

func (r *Runner) sweepDrafts() {
	if n := r.drafts.Sweep(); n > 0 {
		r.log.WithField("count", n).Info("swept abandoned listing drafts")
	}
}

// expirePromotions demotes listings whose paid placement has run out.
func (r *Runner) expirePromotions() {
	var due []model.Promotion
	err := r.db.
		Where("status = ? AND expires_at IS NOT NULL AND expires_at < ?",
			model.PromotionStatusActive, time.Now()).
		Find(&due).Error
	if err != nil {
		r.log.WithError(err).Error("could not load expiring promotions")
		return
	}

	for _, promo := range due {
		err := r.db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(&model.Promotion{}).
				Where("id = ?", promo.ID).
				Update("status", model.PromotionStatusExpired).Error; err != nil {
				return err
			}

			// Another active promotion may still cover the listing.
			var remaining int64
			tx.Model(&model.Promotion{}).
				Where("property_id = ? AND status = ? AND expires_at > ?",
					promo.PropertyID, model.PromotionStatusActive, time.Now()).
				Count(&remaining)
			if remaining > 0 {
				return nil
			}

			return tx.Model(&model.Property{}).
				Where("id = ?", promo.PropertyID).
				Update("tier", model.TierNone).Error
		})
		if err != nil {
			r.log.WithError(err).WithField("promotion_id", promo.ID).Error("could not expire promotion")
		}
	}

	if len(due) > 0 {
		r.log.WithField("count", len(due)).Info("expired promotions processed")
	}
}

type agentDigest struct {
	AgentID     uint
	AgentEmail  string
	AgentName   string
	TotalViews  int64
	UniqueViews int64
	LeadCount   int64
}

// sendWeeklyStats emails each agent a digest of the past week. Agents with
// no traffic are skipped.
func (r *Runner) sendWeeklyStats() {
	if r.mailer == nil {
		return
	}

	since := time.Now().AddDate(0, 0, -7)

	var digests []agentDigest
	err := r.db.Raw(`
        SELECT
            u.id AS agent_id,
            u.email AS agent_email,
            TRIM(u.first_name || ' ' || u.last_name) AS agent_name,
            COUNT(pv.id) AS total_views,
            COUNT(DISTINCT pv.ip) AS unique_views,
            COUNT(DISTINCT l.id) AS lead_count
        FROM users u
        JOIN properties p ON u.id = p.agent_id
        LEFT JOIN property_views pv ON p.id = pv.property_id AND pv.created_at >= ?
        LEFT JOIN leads l ON p.id = l.property_id AND l.created_at >= ?
        GROUP BY u.id
        HAVING COUNT(pv.id) > 0
    `, since, since).Scan(&digests).Error
	if err != nil {
		r.log.WithError(err).Error("could not compute weekly digests")
		return
	}

	for _, d := range digests {
		err := r.mailer.SendWeeklyDigest(d.AgentEmail, d.AgentName, d.TotalViews, d.UniqueViews, d.LeadCount, since)
		if err != nil {
			r.log.WithError(err).WithField("agent", d.AgentEmail).Warn("could not send weekly digest")
		}
	}
}
