package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/cultivo-lab/internal/application/cultivation"
	"github.com/jhoicas/cultivo-lab/internal/application/dto"
	"github.com/jhoicas/cultivo-lab/internal/domain/entity"
)

// GrowHandler maneja las peticiones HTTP de cultivos de fructificación (Grow).
type GrowHandler struct {
	engine *cultivation.Engine
}

// NewGrowHandler construye el handler.
func NewGrowHandler(engine *cultivation.Engine) *GrowHandler {
	return &GrowHandler{engine: engine}
}

// Create godoc
// @Summary      Crear Grow
// @Description  Crea un Grow en etapa spawning; el costo del cultivo origen se calcula sobre spawn_weight.
// @Tags         Grows
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      dto.CreateGrowRequest  true  "Datos del Grow"
// @Success      201   {object}  entity.Grow
// @Router       /api/grows [post]
func (h *GrowHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateGrowRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "cuerpo inválido")
	}
	out, err := h.engine.CreateGrow(c.UserContext(), cultivation.GrowInput{
		Name:            req.Name,
		StrainID:        req.StrainID,
		SourceCultureID: req.SourceCultureID,
		LocationID:      req.LocationID,
		SpawnWeight:     req.SpawnWeight,
		SubstrateWeight: req.SubstrateWeight,
		SpawnedAt:       req.SpawnedAt,
		LaborCost:       req.LaborCost,
		OverheadCost:    req.OverheadCost,
		Revenue:         req.Revenue,
		Notes:           req.Notes,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// List godoc
// @Summary      Listar Grows activos
// @Tags         Grows
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  dto.ListResponse[entity.Grow]
// @Router       /api/grows [get]
func (h *GrowHandler) List(c *fiber.Ctx) error {
	out, err := h.engine.ActiveGrows(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewList(out))
}

// GetByID godoc
// @Summary      Obtener una versión de Grow
// @Tags         Grows
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "ID de la versión"
// @Success      200  {object}  entity.Grow
// @Router       /api/grows/{id} [get]
func (h *GrowHandler) GetByID(c *fiber.Ctx) error {
	out, err := h.engine.GrowByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Amend godoc
// @Summary      Enmendar Grow
// @Tags         Grows
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string                true  "ID de la versión vigente"
// @Param        body  body      dto.AmendGrowRequest  true  "Cambios"
// @Success      200   {object}  entity.Grow
// @Router       /api/grows/{id} [put]
func (h *GrowHandler) Amend(c *fiber.Ctx) error {
	var req dto.AmendGrowRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "cuerpo inválido")
	}
	out, err := h.engine.AmendGrow(c.UserContext(), c.Params("id"), func(g *entity.Grow) {
		setIf(&g.Name, req.Name)
		setIf(&g.StrainID, req.StrainID)
		setIf(&g.SourceCultureID, req.SourceCultureID)
		setIf(&g.LocationID, req.LocationID)
		setIf(&g.SpawnWeight, req.SpawnWeight)
		setIf(&g.SubstrateWeight, req.SubstrateWeight)
		setIf(&g.LaborCost, req.LaborCost)
		setIf(&g.OverheadCost, req.OverheadCost)
		if req.Revenue != nil {
			v := *req.Revenue
			g.Revenue = &v
		}
		setIf(&g.Notes, req.Notes)
	}, req.AmendmentType, req.Reason)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Advance godoc
// @Summary      Avanzar etapa
// @Description  spawning → colonization → fruiting → harvesting → completed. Una etapa terminal no cambia.
// @Tags         Grows
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "ID del Grow"
// @Success      200  {object}  entity.Grow
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/grows/{id}/advance [post]
func (h *GrowHandler) Advance(c *fiber.Ctx) error {
	out, err := h.engine.AdvanceStage(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	if out == nil {
		return notFound(c, "grow no encontrado")
	}
	return c.JSON(out)
}

// Contaminate godoc
// @Summary      Marcar contaminado
// @Tags         Grows
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string            true   "ID del Grow"
// @Param        body  body      dto.NotesRequest  false  "Notas"
// @Success      200   {object}  entity.Grow
// @Router       /api/grows/{id}/contaminate [post]
func (h *GrowHandler) Contaminate(c *fiber.Ctx) error {
	notes, err := optionalNotes(c)
	if err != nil {
		return badRequest(c, "cuerpo inválido")
	}
	out, err := h.engine.MarkContaminated(c.UserContext(), c.Params("id"), notes)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Abort godoc
// @Summary      Abortar Grow
// @Tags         Grows
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string            true   "ID del Grow"
// @Param        body  body      dto.NotesRequest  false  "Motivo"
// @Success      200   {object}  entity.Grow
// @Router       /api/grows/{id}/abort [post]
func (h *GrowHandler) Abort(c *fiber.Ctx) error {
	notes, err := optionalNotes(c)
	if err != nil {
		return badRequest(c, "cuerpo inválido")
	}
	out, err := h.engine.AbortGrow(c.UserContext(), c.Params("id"), notes)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// AddObservation godoc
// @Summary      Registrar observación sobre un Grow
// @Description  Puede disparar transiciones: contaminación → contaminated; pinning durante colonización → fruiting.
// @Tags         Grows
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string                  true  "ID del Grow"
// @Param        body  body      dto.ObservationRequest  true  "Observación"
// @Success      201   {object}  entity.Grow
// @Router       /api/grows/{id}/observations [post]
func (h *GrowHandler) AddObservation(c *fiber.Ctx) error {
	var req dto.ObservationRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "cuerpo inválido")
	}
	out, err := h.engine.AddObservation(c.UserContext(), c.Params("id"), toObservationInput(req))
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// RecordFlush godoc
// @Summary      Registrar cosecha
// @Tags         Grows
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string            true  "ID del Grow"
// @Param        body  body      dto.FlushRequest  true  "Cosecha"
// @Success      201   {object}  entity.Grow
// @Router       /api/grows/{id}/flushes [post]
func (h *GrowHandler) RecordFlush(c *fiber.Ctx) error {
	var req dto.FlushRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "cuerpo inválido")
	}
	out, err := h.engine.RecordFlush(c.UserContext(), c.Params("id"), cultivation.FlushInput{
		WetWeight:   req.WetWeight,
		DryWeight:   req.DryWeight,
		HarvestedAt: req.HarvestedAt,
		Notes:       req.Notes,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// InventoryCost godoc
// @Summary      Costo de inventario imputado al Grow
// @Tags         Grows
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "ID del Grow"
// @Success      200  {object}  dto.GrowCostResponse
// @Router       /api/grows/{id}/inventory-cost [get]
func (h *GrowHandler) InventoryCost(c *fiber.Ctx) error {
	id := c.Params("id")
	cost, err := h.engine.GrowInventoryCost(c.UserContext(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.GrowCostResponse{GrowID: id, InventoryCost: cost})
}

// Recalculate godoc
// @Summary      Recalcular costos del Grow
// @Tags         Grows
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "ID del Grow"
// @Success      200  {object}  entity.Grow
// @Router       /api/grows/{id}/recalculate [post]
func (h *GrowHandler) Recalculate(c *fiber.Ctx) error {
	out, err := h.engine.RecalculateGrowCosts(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Delete godoc
// @Summary      Eliminar Grow
// @Description  Registra el desenlace del body (opcional) y elimina todas las versiones del Grow.
// @Tags         Grows
// @Accept       json
// @Security     BearerAuth
// @Param        id    path  string              true   "ID del Grow"
// @Param        body  body  dto.OutcomeRequest  false  "Desenlace"
// @Success      204
// @Router       /api/grows/{id} [delete]
func (h *GrowHandler) Delete(c *fiber.Ctx) error {
	outcome, err := optionalOutcome(c)
	if err != nil {
		return badRequest(c, "cuerpo inválido")
	}
	if err := h.engine.DeleteGrow(c.UserContext(), c.Params("id"), outcome); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func optionalNotes(c *fiber.Ctx) (string, error) {
	if len(c.Body()) == 0 {
		return "", nil
	}
	var req dto.NotesRequest
	if err := c.BodyParser(&req); err != nil {
		return "", err
	}
	return req.Notes, nil
}

// PreparedSpawnHandler maneja las peticiones HTTP de spawn preparado.
type PreparedSpawnHandler struct {
	engine *cultivation.Engine
}

// NewPreparedSpawnHandler construye el handler.
func NewPreparedSpawnHandler(engine *cultivation.Engine) *PreparedSpawnHandler {
	return &PreparedSpawnHandler{engine: engine}
}

// Create godoc
// @Summary      Crear spawn preparado
// @Tags         Spawn
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      dto.CreatePreparedSpawnRequest  true  "Datos del lote"
// @Success      201   {object}  entity.PreparedSpawn
// @Router       /api/prepared-spawn [post]
func (h *PreparedSpawnHandler) Create(c *fiber.Ctx) error {
	var req dto.CreatePreparedSpawnRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "cuerpo inválido")
	}
	out, err := h.engine.CreatePreparedSpawn(c.UserContext(), cultivation.PreparedSpawnInput{
		Name:            req.Name,
		SpawnType:       req.SpawnType,
		Weight:          req.Weight,
		Cost:            req.Cost,
		Status:          req.Status,
		SourceCultureID: req.SourceCultureID,
		Notes:           req.Notes,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// List spawn preparado vigente del usuario.
func (h *PreparedSpawnHandler) List(c *fiber.Ctx) error {
	out, err := h.engine.ActivePreparedSpawn(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewList(out))
}

// GetByID una versión de spawn preparado.
func (h *PreparedSpawnHandler) GetByID(c *fiber.Ctx) error {
	out, err := h.engine.PreparedSpawnByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Amend nueva versión del spawn preparado con los campos presentes.
func (h *PreparedSpawnHandler) Amend(c *fiber.Ctx) error {
	var req dto.AmendPreparedSpawnRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "cuerpo inválido")
	}
	out, err := h.engine.AmendPreparedSpawn(c.UserContext(), c.Params("id"), func(p *entity.PreparedSpawn) {
		setIf(&p.Name, req.Name)
		setIf(&p.SpawnType, req.SpawnType)
		setIf(&p.Weight, req.Weight)
		setIf(&p.Cost, req.Cost)
		setIf(&p.Status, req.Status)
		setIf(&p.Notes, req.Notes)
	}, req.AmendmentType, req.Reason)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}
