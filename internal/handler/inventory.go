package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/floradistro/websitev2-sub018/internal/repository"
)

// InventoryHandler exposes read access to stock levels. Reads go
// straight to the store; levels are never cached in-process because
// stale quantities would reintroduce the races the ledger exists to
// prevent.
type InventoryHandler struct {
	InventoryRepo *repository.InventoryRepo
}

// NewInventoryHandler constructs an InventoryHandler.
func NewInventoryHandler(inventoryRepo *repository.InventoryRepo) *InventoryHandler {
	if inventoryRepo == nil {
		panic("nil repository passed to NewInventoryHandler")
	}
	return &InventoryHandler{InventoryRepo: inventoryRepo}
}

// Get handles GET /v1/inventory?productId=&locationId=.
func (h *InventoryHandler) Get(c echo.Context) error {
	productID, err := strconv.ParseUint(c.QueryParam("productId"), 10, 64)
	if err != nil || productID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid productId"})
	}
	locationID, err := strconv.ParseUint(c.QueryParam("locationId"), 10, 64)
	if err != nil || locationID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid locationId"})
	}
	rec, err := h.InventoryRepo.GetByProductLocation(c.Request().Context(), productID, locationID)
	if err != nil {
		if errors.Is(err, repository.ErrInventoryNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "inventory record not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"inventory": rec,
		"available": rec.Available(),
	})
}
