package controller

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/hometrove/marketplace-api/internal/model"
)

func props(ids ...uint) []model.Property {
	out := make([]model.Property, len(ids))
	for i, id := range ids {
		out[i] = model.Property{Model: gorm.Model{ID: id}}
	}
	return out
}

func ids(items []model.Property) []uint {
	out := make([]uint, len(items))
	for i, p := range items {
		out[i] = p.ID
	}
	return out
}

func TestMergeRankedExactTierFirst(t *testing.T) {
	merged := mergeRanked(props(3, 1), props(5, 2))
	assert.Equal(t, []uint{3, 1, 5, 2}, ids(merged))
}

func TestMergeRankedDropsDuplicates(t *testing.T) {
	// A listing matching both sub-queries keeps its exact-tier rank.
	merged := mergeRanked(props(3, 1), props(1, 2, 3, 4))
	assert.Equal(t, []uint{3, 1, 2, 4}, ids(merged))
}

func TestMergeRankedEmptyTiers(t *testing.T) {
	assert.Empty(t, mergeRanked(nil, nil))
	assert.Equal(t, []uint{9}, ids(mergeRanked(nil, props(9))))
	assert.Equal(t, []uint{9}, ids(mergeRanked(props(9), nil)))
}

func TestPaginateTotalsFromMergedSet(t *testing.T) {
	merged := mergeRanked(props(1, 2, 3), props(4, 5))

	page1, total, totalPages := paginate(merged, 1, 2)
	require.Equal(t, 5, total)
	require.Equal(t, 3, totalPages)
	assert.Equal(t, []uint{1, 2}, ids(page1))

	page3, _, _ := paginate(merged, 3, 2)
	assert.Equal(t, []uint{5}, ids(page3))
}

func TestPaginatePastEndIsEmptyNotError(t *testing.T) {
	page, total, totalPages := paginate(props(1, 2), 9, 10)
	assert.Empty(t, page)
	assert.Equal(t, 2, total)
	assert.Equal(t, 1, totalPages)
}

func TestClampPaging(t *testing.T) {
	page, limit := clampPaging(0, 0)
	assert.Equal(t, 1, page)
	assert.Equal(t, 20, limit)

	_, limit = clampPaging(2, 5000)
	assert.Equal(t, 100, limit)
}
