package main

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hometrove/marketplace-api/internal/controller"
	"github.com/hometrove/marketplace-api/internal/middleware"
	"github.com/hometrove/marketplace-api/internal/wizard"
	"github.com/hometrove/marketplace-api/pkg/apperr"
	"github.com/hometrove/marketplace-api/pkg/config"
	"github.com/hometrove/marketplace-api/pkg/currency"
	"github.com/hometrove/marketplace-api/pkg/jwtutil"
	"github.com/hometrove/marketplace-api/pkg/validate"
)

// newTestApp wires the full route table without a database. Only routes
// whose handlers never reach the DB are exercised.
func newTestApp(t *testing.T) *fiber.App {
	t.Helper()

	log := newLogger("error")
	errs := apperr.NewClassifier(nil)
	tokens := jwtutil.NewManager("test-secret", time.Hour)
	validator := validate.New()
	rateTable := currency.NewTable("", nil)
	draftStore := wizard.NewStore(time.Hour)

	mw := middleware.New(nil, tokens, errs)

	auth := controller.NewAuthController(nil, validator, errs, tokens, nil, nil, log)
	props := controller.NewPropertyController(nil, validator, errs, tokens, nil, log)
	images := controller.NewImageController(nil, errs, nil, log)
	drafts := controller.NewDraftController(nil, draftStore, validator, errs, log)
	admin := controller.NewAdminController(nil, validator, errs, nil, log)
	stats := controller.NewStatsController(nil, errs, tokens)
	leads := controller.NewLeadController(nil, validator, errs, nil, log)
	promos := controller.NewPromotionController(nil, validator, errs, nil, config.StripeConfig{}, log)
	rates := controller.NewRatesController(rateTable)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return errs.Respond(c, err)
		},
	})
	setupRoutes(app, mw, auth, props, images, drafts, admin, stats, leads, promos, rates)

	return app
}

func TestPublicRatesNeedsNoToken(t *testing.T) {
	app := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/rates", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestStripeWebhookNeedsNoToken(t *testing.T) {
	app := newTestApp(t)

	// Stripe signs its deliveries; it never carries a bearer token. A bad
	// signature must fail validation, not authentication.
	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestProtectedRouteStillDemandsToken(t *testing.T) {
	app := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/dashboard/stats", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestUnmatchedRouteIsNotFoundNotInternal(t *testing.T) {
	app := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/definitely-not-a-route", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var envelope struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(body, &envelope))
	assert.Equal(t, apperr.CodeNotFound, envelope.Error)
}
