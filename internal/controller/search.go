package controller

import (
	"github.com/hometrove/marketplace-api/internal/model"
)

// mergeRanked concatenates the exact-match tier ahead of the broad-match tier
// and drops duplicates by id. The store has no ranking-aware query primitive,
// so region search runs two sub-queries and merges here in application code.
func mergeRanked(exact, broad []model.Property) []model.Property {
	seen := make(map[uint]bool, len(exact)+len(broad))
	out := make([]model.Property, 0, len(exact)+len(broad))

	for _, p := range exact {
		if !seen[p.ID] {
			seen[p.ID] = true
			out = append(out, p)
		}
	}
	for _, p := range broad {
		if !seen[p.ID] {
			seen[p.ID] = true
			out = append(out, p)
		}
	}

	return out
}

// paginate slices the merged set. Totals are computed from the de-duplicated
// set so total_pages stays consistent with what the pages actually hold.
func paginate(items []model.Property, page, limit int) (pageItems []model.Property, total int, totalPages int) {
	total = len(items)
	totalPages = (total + limit - 1) / limit

	start := (page - 1) * limit
	if start >= total {
		return []model.Property{}, total, totalPages
	}

	end := start + limit
	if end > total {
		end = total
	}

	return items[start:end], total, totalPages
}

// clampPaging normalizes user-supplied paging parameters.
func clampPaging(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}
