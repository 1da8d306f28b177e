package controller

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hometrove/marketplace-api/internal/model"
	"github.com/hometrove/marketplace-api/pkg/apperr"
	"github.com/hometrove/marketplace-api/pkg/validate"
)

func testPropertyController() *PropertyController {
	return &PropertyController{validate: validate.New()}
}

func validInput() *PropertyInput {
	return &PropertyInput{
		Title:       "2BR Flat",
		Description: "A bright two bedroom flat close to the city center",
		Type:        model.PropertyTypeApartment,
		ListingType: model.ListingTypeSale,
		Price:       50000,
		Address:     "12 Oxford Street, Osu",
		City:        "Accra",
		Region:      "Greater Accra",
		Features:    []string{"Balcony"},
		Amenities:   []string{"Parking"},
	}
}

func detailFields(appErr *apperr.Error) map[string]bool {
	out := make(map[string]bool)
	for _, fe := range appErr.Details.([]validate.FieldError) {
		out[fe.Field] = true
	}
	return out
}

func TestValidInputPasses(t *testing.T) {
	assert.Nil(t, testPropertyController().validateInput(validInput()))
}

func TestEmptyInputNamesEveryRequiredField(t *testing.T) {
	appErr := testPropertyController().validateInput(&PropertyInput{})
	require.NotNil(t, appErr)
	assert.Equal(t, apperr.CodeValidation, appErr.Code)

	fields := detailFields(appErr)
	for _, want := range []string{"title", "description", "type", "listing_type", "price", "address", "city", "region", "features", "amenities"} {
		assert.True(t, fields[want], "expected %s in details", want)
	}
}

func TestShortDescriptionRejected(t *testing.T) {
	input := validInput()
	input.Description = "too short"

	appErr := testPropertyController().validateInput(input)
	require.NotNil(t, appErr)
	assert.True(t, detailFields(appErr)["description"])
}

func TestShortAddressRejected(t *testing.T) {
	input := validInput()
	input.Address = "short"

	appErr := testPropertyController().validateInput(input)
	require.NotNil(t, appErr)
	assert.True(t, detailFields(appErr)["address"])
}

func TestZeroPriceRejected(t *testing.T) {
	input := validInput()
	input.Price = 0

	appErr := testPropertyController().validateInput(input)
	require.NotNil(t, appErr)
	assert.True(t, detailFields(appErr)["price"])
}

func TestUnknownEnumsRejected(t *testing.T) {
	input := validInput()
	input.Type = "castle"
	input.ListingType = "barter"

	appErr := testPropertyController().validateInput(input)
	require.NotNil(t, appErr)
	fields := detailFields(appErr)
	assert.True(t, fields["type"])
	assert.True(t, fields["listing_type"])
}

func TestOneOrTwoImagesRejected(t *testing.T) {
	for _, n := range []int{1, 2} {
		input := validInput()
		for i := 0; i < n; i++ {
			input.Images = append(input.Images, ImageInput{URL: "https://bucket.s3.amazonaws.com/a.webp"})
		}

		appErr := testPropertyController().validateInput(input)
		require.NotNil(t, appErr, "%d images must be rejected", n)
		assert.Equal(t, "at least 3 images required", appErr.Message)
	}
}

func TestZeroOrThreeImagesAccepted(t *testing.T) {
	input := validInput()
	assert.Nil(t, testPropertyController().validateInput(input), "no images is fine")

	for i := 0; i < 3; i++ {
		input.Images = append(input.Images, ImageInput{URL: "https://bucket.s3.amazonaws.com/a.webp"})
	}
	assert.Nil(t, testPropertyController().validateInput(input), "three images is fine")
}
