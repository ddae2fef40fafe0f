package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/cultivo-lab/internal/application/cultivation"
	"github.com/jhoicas/cultivo-lab/internal/application/dto"
)

// InventoryHandler maneja ítems, lotes, consumos, ubicaciones y la valoración del laboratorio.
type InventoryHandler struct {
	engine *cultivation.Engine
}

// NewInventoryHandler construye el handler.
func NewInventoryHandler(engine *cultivation.Engine) *InventoryHandler {
	return &InventoryHandler{engine: engine}
}

// CreateItem godoc
// @Summary      Crear ítem de inventario
// @Tags         Inventario
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      dto.CreateItemRequest  true  "Ítem"
// @Success      201   {object}  entity.InventoryItem
// @Router       /api/inventory/items [post]
func (h *InventoryHandler) CreateItem(c *fiber.Ctx) error {
	var req dto.CreateItemRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "cuerpo inválido")
	}
	out, err := h.engine.CreateInventoryItem(c.UserContext(), cultivation.ItemInput{
		Name:              req.Name,
		AssetType:         req.AssetType,
		Unit:              req.Unit,
		IncludeInGrowCost: req.IncludeInGrowCost,
		CurrentValue:      req.CurrentValue,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// ListItems ítems no archivados del usuario.
func (h *InventoryHandler) ListItems(c *fiber.Ctx) error {
	out, err := h.engine.InventoryItems(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewList(out))
}

// AddLot godoc
// @Summary      Registrar compra de un lote
// @Description  El costo unitario es purchase_cost / quantity.
// @Tags         Inventario
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string                true  "ID del ítem"
// @Param        body  body      dto.CreateLotRequest  true  "Lote"
// @Success      201   {object}  entity.InventoryLot
// @Router       /api/inventory/items/{id}/lots [post]
func (h *InventoryHandler) AddLot(c *fiber.Ctx) error {
	var req dto.CreateLotRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "cuerpo inválido")
	}
	out, err := h.engine.AddLot(c.UserContext(), cultivation.LotInput{
		ItemID:       c.Params("id"),
		Quantity:     req.Quantity,
		PurchaseCost: req.PurchaseCost,
		PurchasedAt:  req.PurchasedAt,
		ExpiresAt:    req.ExpiresAt,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// ListLots lotes del ítem.
func (h *InventoryHandler) ListLots(c *fiber.Ctx) error {
	out, err := h.engine.InventoryLots(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewList(out))
}

// Consume godoc
// @Summary      Consumir inventario
// @Description  Descuenta del lote y registra el consumo; si la referencia es un Grow, recalcula sus costos.
// @Tags         Inventario
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      dto.ConsumeRequest  true  "Consumo"
// @Success      201   {object}  entity.InventoryUsage
// @Failure      409   {object}  dto.ErrorResponse  "Stock insuficiente"
// @Router       /api/inventory/usage [post]
func (h *InventoryHandler) Consume(c *fiber.Ctx) error {
	var req dto.ConsumeRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "cuerpo inválido")
	}
	out, err := h.engine.ConsumeInventory(c.UserContext(), cultivation.UsageInput{
		LotID:         req.LotID,
		Quantity:      req.Quantity,
		ReferenceType: req.ReferenceType,
		ReferenceID:   req.ReferenceID,
		Notes:         req.Notes,
		UsedAt:        req.UsedAt,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// CreateLocation alta de una ubicación con su costo fijo.
func (h *InventoryHandler) CreateLocation(c *fiber.Ctx) error {
	var req dto.CreateLocationRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "cuerpo inválido")
	}
	out, err := h.engine.CreateLocation(c.UserContext(), cultivation.LocationInput{Name: req.Name, FixedCost: req.FixedCost})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// ListLocations ubicaciones del usuario.
func (h *InventoryHandler) ListLocations(c *fiber.Ctx) error {
	out, err := h.engine.Locations(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewList(out))
}

// Valuation godoc
// @Summary      Valoración del laboratorio
// @Tags         Inventario
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  cultivation.Valuation
// @Router       /api/valuation [get]
func (h *InventoryHandler) Valuation(c *fiber.Ctx) error {
	out, err := h.engine.LabValuation(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}
