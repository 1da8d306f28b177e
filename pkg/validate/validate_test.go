package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleInput struct {
	Title       string  `json:"title" validate:"required"`
	Description string  `json:"description" validate:"required,min=20"`
	Price       float64 `json:"price" validate:"required,gt=0"`
	Address     string  `json:"address" validate:"required,min=10"`
	City        string  `json:"city" validate:"required"`
	Region      string  `json:"region" validate:"required"`
	Email       string  `json:"email" validate:"omitempty,email"`
}

func TestStructNamesEveryOffendingField(t *testing.T) {
	errs := New().Struct(&sampleInput{})
	require.Len(t, errs, 6)

	fields := make(map[string]bool)
	for _, fe := range errs {
		fields[fe.Field] = true
	}

	for _, want := range []string{"title", "description", "price", "address", "city", "region"} {
		assert.True(t, fields[want], "expected %s in details", want)
	}
}

func TestStructUsesJSONNames(t *testing.T) {
	errs := New().Struct(&sampleInput{
		Title:       "ok",
		Description: "long enough description here",
		Price:       1,
		Address:     "12 Oxford Street",
		City:        "Accra",
		Region:      "Greater Accra",
		Email:       "not-an-email",
	})
	require.Len(t, errs, 1)
	assert.Equal(t, "email", errs[0].Field)
	assert.Equal(t, "email", errs[0].Rule)
	assert.Contains(t, errs[0].Message, "valid email")
}

func TestStructNilOnValid(t *testing.T) {
	errs := New().Struct(&sampleInput{
		Title:       "2BR Flat",
		Description: "a description of at least twenty characters",
		Price:       50000,
		Address:     "12 Oxford Street",
		City:        "Accra",
		Region:      "Greater Accra",
	})
	assert.Nil(t, errs)
}

func TestMinMessageDistinguishesStrings(t *testing.T) {
	errs := New().Struct(&sampleInput{
		Title:       "x",
		Description: "short",
		Price:       1,
		Address:     "12 Oxford Street",
		City:        "Accra",
		Region:      "Greater Accra",
	})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Message, "at least 20 characters")
}
