package controller

import (
	"github.com/gofiber/fiber/v2"

	"github.com/hometrove/marketplace-api/pkg/currency"
)

type RatesController struct {
	table *currency.Table
}

func NewRatesController(table *currency.Table) *RatesController {
	return &RatesController{table: table}
}

// Get returns the live rate table and where it came from. "default" means
// the remote source has not delivered yet and the static table is serving.
func (rc *RatesController) Get(c *fiber.Ctx) error {
	rates, source, refreshed := rc.table.Snapshot()

	resp := fiber.Map{
		"base":   "USD",
		"rates":  rates,
		"source": source,
	}
	if !refreshed.IsZero() {
		resp["refreshed_at"] = refreshed
	}

	return c.JSON(resp)
}
