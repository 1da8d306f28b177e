// Package wizard implements the four-step listing form: an ordered sequence
// of validated steps accumulating a property draft that is submitted exactly
// once. Drafts are transient; they live in memory and expire if abandoned.
package wizard

import (
	"time"

	"github.com/hometrove/marketplace-api/pkg/validate"
)

type Step string

const (
	StepBasic    Step = "basic"
	StepLocation Step = "location"
	StepDetails  Step = "details"
	StepImages   Step = "images"
)

// StepOrder fixes the traversal order of the form.
var StepOrder = []Step{StepBasic, StepLocation, StepDetails, StepImages}

// DraftImage references an image uploaded under the draft's temporary id
// before the property row exists.
type DraftImage struct {
	URL  string `json:"url" validate:"required,url"`
	Type string `json:"type" validate:"omitempty,oneof=primary gallery floorplan exterior interior"`
}

// Fields accumulates the property attributes across all steps. A single flat
// struct keeps retreat trivial: moving back never clears entered data.
type Fields struct {
	// basic
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Type        string  `json:"type"`
	ListingType string  `json:"listing_type"`
	Price       float64 `json:"price"`
	Currency    string  `json:"currency"`

	// location
	Address    string  `json:"address"`
	City       string  `json:"city"`
	Region     string  `json:"region"`
	PostalCode string  `json:"postal_code"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`

	// details
	Bedrooms      int      `json:"bedrooms"`
	Bathrooms     int      `json:"bathrooms"`
	SquareFootage int      `json:"square_footage"`
	LotSize       int      `json:"lot_size"`
	YearBuilt     int      `json:"year_built"`
	Features      []string `json:"features"`
	Amenities     []string `json:"amenities"`

	// images
	Images []DraftImage `json:"images"`
}

// Per-step schemas. The same rules are enforced again by the property routes;
// the wizard gives immediate feedback, the routes stay authoritative.

type basicStep struct {
	Title       string  `json:"title" validate:"required,max=150"`
	Description string  `json:"description" validate:"required,min=20"`
	Type        string  `json:"type" validate:"required,oneof=house apartment land commercial office"`
	ListingType string  `json:"listing_type" validate:"required,oneof=sale rent lease"`
	Price       float64 `json:"price" validate:"required,gt=0"`
	Currency    string  `json:"currency" validate:"required,oneof=GHS USD EUR GBP NGN"`
}

type locationStep struct {
	Address   string  `json:"address" validate:"required,min=10"`
	City      string  `json:"city" validate:"required"`
	Region    string  `json:"region" validate:"required"`
	Latitude  float64 `json:"latitude" validate:"omitempty,gte=-90,lte=90"`
	Longitude float64 `json:"longitude" validate:"omitempty,gte=-180,lte=180"`
}

type detailsStep struct {
	Bedrooms      int      `json:"bedrooms" validate:"gte=0,lte=50"`
	Bathrooms     int      `json:"bathrooms" validate:"gte=0,lte=50"`
	SquareFootage int      `json:"square_footage" validate:"gte=0"`
	LotSize       int      `json:"lot_size" validate:"gte=0"`
	YearBuilt     int      `json:"year_built" validate:"omitempty,gte=1800,lte=2100"`
	Features      []string `json:"features" validate:"required,min=1,dive,required"`
	Amenities     []string `json:"amenities" validate:"required,min=1,dive,required"`
}

// Images are optional at creation, but a listing that provides any must
// provide at least three.
type imagesStep struct {
	Images []DraftImage `json:"images" validate:"omitempty,min=3,dive"`
}

// Draft is one wizard session: the step pointer, the accumulated fields, and
// the submission-in-flight flag. Synchronization lives in the Store.
type Draft struct {
	ID         string    `json:"id"`
	UserID     uint      `json:"user_id"`
	Step       Step      `json:"step"`
	Fields     Fields    `json:"fields"`
	Submitting bool      `json:"submitting"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func stepIndex(s Step) int {
	for i, step := range StepOrder {
		if step == s {
			return i
		}
	}
	return 0
}

func (d *Draft) stepPayload(s Step) interface{} {
	f := d.Fields
	switch s {
	case StepBasic:
		return basicStep{f.Title, f.Description, f.Type, f.ListingType, f.Price, f.Currency}
	case StepLocation:
		return locationStep{f.Address, f.City, f.Region, f.Latitude, f.Longitude}
	case StepDetails:
		return detailsStep{f.Bedrooms, f.Bathrooms, f.SquareFootage, f.LotSize, f.YearBuilt, f.Features, f.Amenities}
	case StepImages:
		return imagesStep{f.Images}
	}
	return nil
}

// ValidateStep checks one step's fields against its schema.
func (d *Draft) ValidateStep(v *validate.Validator, s Step) []validate.FieldError {
	return v.Struct(d.stepPayload(s))
}

// Advance moves the pointer to the next step if and only if the current
// step validates. On failure the pointer stays put and the violations are
// returned for inline display.
func (d *Draft) Advance(v *validate.Validator) []validate.FieldError {
	if errs := d.ValidateStep(v, d.Step); len(errs) > 0 {
		return errs
	}

	idx := stepIndex(d.Step)
	if idx < len(StepOrder)-1 {
		d.Step = StepOrder[idx+1]
	}
	return nil
}

// Retreat moves back one step without clearing entered data. It reports
// false from the first step.
func (d *Draft) Retreat() bool {
	idx := stepIndex(d.Step)
	if idx == 0 {
		return false
	}
	d.Step = StepOrder[idx-1]
	return true
}

// ValidateAll runs every step's schema, keyed by step. An empty map means the
// draft is submittable.
func (d *Draft) ValidateAll(v *validate.Validator) map[Step][]validate.FieldError {
	out := make(map[Step][]validate.FieldError)
	for _, s := range StepOrder {
		if errs := d.ValidateStep(v, s); len(errs) > 0 {
			out[s] = errs
		}
	}
	return out
}

// CanSubmit requires the pointer to be on the last step with every step valid.
func (d *Draft) CanSubmit(v *validate.Validator) bool {
	return d.Step == StepOrder[len(StepOrder)-1] && len(d.ValidateAll(v)) == 0
}
