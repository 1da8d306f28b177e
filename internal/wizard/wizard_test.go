package wizard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hometrove/marketplace-api/pkg/validate"
)

func validBasic(f *Fields) {
	f.Title = "2BR Flat"
	f.Description = "A bright two bedroom flat close to the city center"
	f.Type = "apartment"
	f.ListingType = "sale"
	f.Price = 50000
	f.Currency = "GHS"
}

func validLocation(f *Fields) {
	f.Address = "12 Oxford Street, Osu"
	f.City = "Accra"
	f.Region = "Greater Accra"
}

func validDetails(f *Fields) {
	f.Bedrooms = 2
	f.Bathrooms = 1
	f.Features = []string{"Balcony"}
	f.Amenities = []string{"Parking"}
}

func newDraft(t *testing.T) (*Store, *Draft, *validate.Validator) {
	t.Helper()
	store := NewStore(time.Hour)
	d := store.Create(7)
	return store, d, validate.New()
}

func TestAdvanceBlockedOnInvalidStep(t *testing.T) {
	store, d, v := newDraft(t)

	err := store.With(d.ID, 7, func(d *Draft) error {
		errs := d.Advance(v)
		assert.NotEmpty(t, errs, "empty basic step must not validate")
		assert.Equal(t, StepBasic, d.Step, "pointer must not move on invalid step")
		return nil
	})
	require.NoError(t, err)
}

func TestAdvanceWalksAllSteps(t *testing.T) {
	_, d, v := newDraft(t)

	validBasic(&d.Fields)
	require.Empty(t, d.Advance(v))
	assert.Equal(t, StepLocation, d.Step)

	validLocation(&d.Fields)
	require.Empty(t, d.Advance(v))
	assert.Equal(t, StepDetails, d.Step)

	validDetails(&d.Fields)
	require.Empty(t, d.Advance(v))
	assert.Equal(t, StepImages, d.Step)

	// Images are optional; advancing from the last step stays put.
	require.Empty(t, d.Advance(v))
	assert.Equal(t, StepImages, d.Step)
}

func TestAdvanceReportsOffendingFields(t *testing.T) {
	_, d, v := newDraft(t)

	d.Fields.Title = "2BR Flat"
	d.Fields.Description = "too short"
	d.Fields.Type = "apartment"
	d.Fields.ListingType = "sale"
	d.Fields.Price = 50000
	d.Fields.Currency = "GHS"

	errs := d.Advance(v)
	require.Len(t, errs, 1)
	assert.Equal(t, "description", errs[0].Field)
	assert.Equal(t, StepBasic, d.Step)
}

func TestRetreatKeepsData(t *testing.T) {
	_, d, v := newDraft(t)

	assert.False(t, d.Retreat(), "cannot retreat from the first step")

	validBasic(&d.Fields)
	require.Empty(t, d.Advance(v))

	assert.True(t, d.Retreat())
	assert.Equal(t, StepBasic, d.Step)
	assert.Equal(t, "2BR Flat", d.Fields.Title, "retreat must not clear entered data")
}

func TestImagesStepRejectsOneOrTwo(t *testing.T) {
	_, d, v := newDraft(t)
	validBasic(&d.Fields)
	validLocation(&d.Fields)
	validDetails(&d.Fields)

	d.Fields.Images = []DraftImage{{URL: "https://bucket.s3.amazonaws.com/a.webp"}}
	errs := d.ValidateStep(v, StepImages)
	require.NotEmpty(t, errs, "one image must be rejected")

	d.Fields.Images = append(d.Fields.Images,
		DraftImage{URL: "https://bucket.s3.amazonaws.com/b.webp"},
		DraftImage{URL: "https://bucket.s3.amazonaws.com/c.webp"},
	)
	assert.Empty(t, d.ValidateStep(v, StepImages), "three images must pass")

	d.Fields.Images = nil
	assert.Empty(t, d.ValidateStep(v, StepImages), "no images at all is allowed")
}

func TestCanSubmitRequiresLastStepAndFullValidity(t *testing.T) {
	_, d, v := newDraft(t)

	validBasic(&d.Fields)
	validLocation(&d.Fields)
	validDetails(&d.Fields)

	assert.False(t, d.CanSubmit(v), "not on last step yet")

	for i := 0; i < 3; i++ {
		require.Empty(t, d.Advance(v))
	}
	assert.True(t, d.CanSubmit(v))

	d.Fields.Title = ""
	assert.False(t, d.CanSubmit(v), "an invalid earlier step blocks submit")

	all := d.ValidateAll(v)
	require.Contains(t, all, StepBasic)
}

func TestSubmitFlagRefusesConcurrentSubmits(t *testing.T) {
	store, d, _ := newDraft(t)

	require.NoError(t, store.BeginSubmit(d.ID, 7))
	assert.ErrorIs(t, store.BeginSubmit(d.ID, 7), ErrSubmitInFlight)

	// Failure keeps the draft and re-arms submit.
	require.NoError(t, store.FinishSubmit(d.ID, 7, false))
	require.NoError(t, store.BeginSubmit(d.ID, 7))

	// Success discards the draft.
	require.NoError(t, store.FinishSubmit(d.ID, 7, true))
	_, err := store.Get(d.ID, 7)
	assert.ErrorIs(t, err, ErrDraftNotFound)
}

func TestStoreOwnership(t *testing.T) {
	store, d, _ := newDraft(t)

	_, err := store.Get(d.ID, 99)
	assert.ErrorIs(t, err, ErrNotDraftOwner)

	err = store.Delete(d.ID, 99)
	assert.ErrorIs(t, err, ErrNotDraftOwner)
}

func TestSweepDropsIdleDrafts(t *testing.T) {
	store := NewStore(time.Minute)
	stale := store.Create(1)
	fresh := store.Create(2)

	store.mu.Lock()
	store.drafts[stale.ID].UpdatedAt = time.Now().Add(-2 * time.Minute)
	store.mu.Unlock()

	assert.Equal(t, 1, store.Sweep())
	assert.Equal(t, 1, store.Len())

	_, err := store.Get(fresh.ID, 2)
	assert.NoError(t, err)
}

func TestSweepSparesInFlightSubmit(t *testing.T) {
	store := NewStore(time.Minute)
	d := store.Create(1)
	require.NoError(t, store.BeginSubmit(d.ID, 1))

	store.mu.Lock()
	store.drafts[d.ID].UpdatedAt = time.Now().Add(-2 * time.Minute)
	store.mu.Unlock()

	assert.Equal(t, 0, store.Sweep(), "an in-flight submit must not be swept")
}
