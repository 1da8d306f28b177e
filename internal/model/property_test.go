package model

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestArchiveIsASoftDelete(t *testing.T) {
	f, ok := reflect.TypeOf(Property{}).FieldByName("DeletedAt")
	require.True(t, ok)

	// gorm.DeletedAt puts the default query scope on every lookup: archived
	// rows stay in the table but vanish from unscoped-free queries.
	assert.Equal(t, reflect.TypeOf(gorm.DeletedAt{}), f.Type)
}

func TestPubliclyVisibleRequiresApprovalAndActive(t *testing.T) {
	p := Property{ApprovalStatus: ApprovalApproved, Status: PropertyStatusActive}
	assert.True(t, p.PubliclyVisible())

	p.Status = PropertyStatusInactive
	assert.False(t, p.PubliclyVisible())

	p = Property{ApprovalStatus: ApprovalPending, Status: PropertyStatusActive}
	assert.False(t, p.PubliclyVisible())

	p = Property{ApprovalStatus: ApprovalRejected, Status: PropertyStatusActive}
	assert.False(t, p.PubliclyVisible())
}

func TestDraftImagesCarryTheirUploader(t *testing.T) {
	f, ok := reflect.TypeOf(PropertyImage{}).FieldByName("UploaderID")
	require.True(t, ok, "pending uploads must record the uploading user")
	assert.Contains(t, f.Tag.Get("gorm"), "index")
	assert.Equal(t, reflect.Uint, f.Type.Kind())
}
