package controller

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hometrove/marketplace-api/internal/middleware"
	"github.com/hometrove/marketplace-api/internal/wizard"
	"github.com/hometrove/marketplace-api/pkg/apperr"
	"github.com/hometrove/marketplace-api/pkg/jwtutil"
	"github.com/hometrove/marketplace-api/pkg/validate"
)

func draftTestApp(t *testing.T, userID uint) (*fiber.App, *wizard.Store) {
	t.Helper()

	store := wizard.NewStore(time.Hour)
	dc := NewDraftController(nil, store, validate.New(), apperr.NewClassifier(nil), nil)

	app := fiber.New()
	asUser := func(c *fiber.Ctx) error {
		c.Locals(middleware.ClaimsKey, &jwtutil.Claims{UserID: userID})
		return c.Next()
	}
	app.Put("/drafts/:id", asUser, dc.Save)
	app.Post("/drafts/:id/submit", asUser, dc.Submit)

	return app, store
}

func fillValidDraft(f *wizard.Fields) {
	f.Title = "2BR Flat"
	f.Description = "A bright two bedroom flat close to the city center"
	f.Type = "apartment"
	f.ListingType = "sale"
	f.Price = 50000
	f.Currency = "GHS"
	f.Address = "12 Oxford Street, Osu"
	f.City = "Accra"
	f.Region = "Greater Accra"
	f.Bedrooms = 2
	f.Bathrooms = 1
	f.Features = []string{"Balcony"}
	f.Amenities = []string{"Parking"}
}

func TestSubmitRefusedOffTheFinalStep(t *testing.T) {
	app, store := draftTestApp(t, 7)

	d := store.Create(7)
	require.NoError(t, store.With(d.ID, 7, func(d *wizard.Draft) error {
		// Every step validates, but the pointer never left the first step.
		fillValidDraft(&d.Fields)
		return nil
	}))

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/drafts/"+d.ID+"/submit", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	got, err := store.Get(d.ID, 7)
	require.NoError(t, err)
	assert.False(t, got.Submitting, "a refused submit must not leave the in-flight flag set")
	assert.Equal(t, wizard.StepBasic, got.Step)
}

func TestMergeFieldsHonorsPresence(t *testing.T) {
	dst := wizard.Fields{Title: "Old title", Bedrooms: 3, City: "Accra"}
	src := wizard.Fields{Bedrooms: 0, Title: ""}

	mergeFields(&dst, &src, map[string]json.RawMessage{"bedrooms": nil})

	assert.Equal(t, 0, dst.Bedrooms, "an explicitly sent zero must stick")
	assert.Equal(t, "Old title", dst.Title, "omitted fields stay untouched")
	assert.Equal(t, "Accra", dst.City)
}

func TestMergeFieldsNoOpWithoutBodyKeys(t *testing.T) {
	dst := wizard.Fields{Title: "Kept"}
	mergeFields(&dst, &wizard.Fields{}, nil)
	assert.Equal(t, "Kept", dst.Title)
}

func TestSaveResetsNumericFieldToZero(t *testing.T) {
	app, store := draftTestApp(t, 7)

	d := store.Create(7)
	require.NoError(t, store.With(d.ID, 7, func(d *wizard.Draft) error {
		d.Fields.Bedrooms = 3
		d.Fields.Title = "2BR Flat"
		return nil
	}))

	req := httptest.NewRequest(http.MethodPut, "/drafts/"+d.ID+"?save_only=true",
		strings.NewReader(`{"bedrooms":0}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	got, err := store.Get(d.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Fields.Bedrooms)
	assert.Equal(t, "2BR Flat", got.Fields.Title, "fields absent from the body survive")
}
