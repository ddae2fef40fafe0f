package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/cultivo-lab/internal/application/cultivation"
	"github.com/jhoicas/cultivo-lab/internal/application/dto"
	"github.com/jhoicas/cultivo-lab/internal/domain/entity"
)

// CultureHandler maneja las peticiones HTTP de cultivos (jeringas, líquidos, agar, slants).
type CultureHandler struct {
	engine *cultivation.Engine
}

// NewCultureHandler construye el handler.
func NewCultureHandler(engine *cultivation.Engine) *CultureHandler {
	return &CultureHandler{engine: engine}
}

// Create godoc
// @Summary      Crear cultivo
// @Description  Crea un cultivo. Con parent_id la generación se deriva del padre.
// @Tags         Cultivos
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      dto.CreateCultureRequest  true  "Datos del cultivo"
// @Success      201   {object}  entity.Culture
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/cultures [post]
func (h *CultureHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateCultureRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "cuerpo inválido")
	}
	out, err := h.engine.CreateCulture(c.UserContext(), cultivation.CultureInput{
		Name:           req.Name,
		Type:           req.Type,
		StrainID:       req.StrainID,
		ParentID:       req.ParentID,
		FillVolumeMl:   req.FillVolumeMl,
		PurchaseCost:   req.PurchaseCost,
		ProductionCost: req.ProductionCost,
		Status:         req.Status,
		LocationID:     req.LocationID,
		Notes:          req.Notes,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// List godoc
// @Summary      Listar cultivos activos
// @Tags         Cultivos
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  dto.ListResponse[entity.Culture]
// @Router       /api/cultures [get]
func (h *CultureHandler) List(c *fiber.Ctx) error {
	out, err := h.engine.ActiveCultures(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewList(out))
}

// GetByID godoc
// @Summary      Obtener una versión de cultivo
// @Tags         Cultivos
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "ID de la versión"
// @Success      200  {object}  entity.Culture
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/cultures/{id} [get]
func (h *CultureHandler) GetByID(c *fiber.Ctx) error {
	out, err := h.engine.CultureByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Amend godoc
// @Summary      Enmendar cultivo
// @Description  Crea una nueva versión con los campos presentes; la anterior queda reemplazada.
// @Tags         Cultivos
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string                   true  "ID de la versión vigente"
// @Param        body  body      dto.AmendCultureRequest  true  "Cambios"
// @Success      200   {object}  entity.Culture
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/cultures/{id} [put]
func (h *CultureHandler) Amend(c *fiber.Ctx) error {
	var req dto.AmendCultureRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "cuerpo inválido")
	}
	out, err := h.engine.AmendCulture(c.UserContext(), c.Params("id"), func(cu *entity.Culture) {
		setIf(&cu.Name, req.Name)
		setIf(&cu.Type, req.Type)
		setIf(&cu.StrainID, req.StrainID)
		setIf(&cu.ParentID, req.ParentID)
		setIf(&cu.FillVolumeMl, req.FillVolumeMl)
		setIf(&cu.PurchaseCost, req.PurchaseCost)
		setIf(&cu.ProductionCost, req.ProductionCost)
		setIf(&cu.Status, req.Status)
		setIf(&cu.LocationID, req.LocationID)
		setIf(&cu.Notes, req.Notes)
	}, req.AmendmentType, req.Reason)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Transfer godoc
// @Summary      Traspasar desde un cultivo
// @Description  Descuenta volumen del origen y, si el destino es un tipo de cultivo, crea (o alimenta) el cultivo destino con el costo heredado.
// @Tags         Cultivos
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string               true  "ID del cultivo origen"
// @Param        body  body      dto.TransferRequest  true  "Traspaso"
// @Success      201   {object}  entity.Culture
// @Success      204
// @Router       /api/cultures/{id}/transfers [post]
func (h *CultureHandler) Transfer(c *fiber.Ctx) error {
	var req dto.TransferRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "cuerpo inválido")
	}
	child, err := h.engine.Transfer(c.UserContext(), c.Params("id"), cultivation.TransferSpec{
		Quantity: req.Quantity,
		Unit:     req.Unit,
		ToType:   req.ToType,
		ToID:     req.ToID,
		Name:     req.Name,
		Date:     req.Date,
		Notes:    req.Notes,
	})
	if err != nil {
		return writeError(c, err)
	}
	if child == nil {
		return c.SendStatus(fiber.StatusNoContent)
	}
	return c.Status(fiber.StatusCreated).JSON(child)
}

// Lineage godoc
// @Summary      Linaje de un cultivo
// @Tags         Cultivos
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "ID del cultivo"
// @Success      200  {object}  cultivation.Lineage
// @Router       /api/cultures/{id}/lineage [get]
func (h *CultureHandler) Lineage(c *fiber.Ctx) error {
	out, err := h.engine.Lineage(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// AddObservation godoc
// @Summary      Registrar observación sobre un cultivo
// @Tags         Cultivos
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string                  true  "ID del cultivo"
// @Param        body  body      dto.ObservationRequest  true  "Observación"
// @Success      201   {object}  entity.Culture
// @Router       /api/cultures/{id}/observations [post]
func (h *CultureHandler) AddObservation(c *fiber.Ctx) error {
	var req dto.ObservationRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "cuerpo inválido")
	}
	out, err := h.engine.AddCultureObservation(c.UserContext(), c.Params("id"), toObservationInput(req))
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// Delete godoc
// @Summary      Eliminar cultivo
// @Description  Registra el desenlace del body (opcional) y elimina todas las versiones del cultivo.
// @Tags         Cultivos
// @Accept       json
// @Security     BearerAuth
// @Param        id    path  string              true   "ID del cultivo"
// @Param        body  body  dto.OutcomeRequest  false  "Desenlace"
// @Success      204
// @Router       /api/cultures/{id} [delete]
func (h *CultureHandler) Delete(c *fiber.Ctx) error {
	outcome, err := optionalOutcome(c)
	if err != nil {
		return badRequest(c, "cuerpo inválido")
	}
	if err := h.engine.DeleteCulture(c.UserContext(), c.Params("id"), outcome); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// setIf sobrescribe dst con *src cuando el campo vino en el body.
func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func toObservationInput(req dto.ObservationRequest) cultivation.ObservationInput {
	return cultivation.ObservationInput{
		Type:         req.Type,
		Title:        req.Title,
		Notes:        req.Notes,
		Date:         req.Date,
		HealthRating: req.HealthRating,
	}
}

func toOutcomeInput(req dto.OutcomeRequest) cultivation.OutcomeInput {
	in := cultivation.OutcomeInput{
		EntityType:    req.EntityType,
		EntityID:      req.EntityID,
		EntityName:    req.EntityName,
		Category:      req.Category,
		Code:          req.Code,
		Notes:         req.Notes,
		TotalCost:     req.TotalCost,
		TotalYieldWet: req.TotalYieldWet,
		TotalYieldDry: req.TotalYieldDry,
		StartedAt:     req.StartedAt,
		EndedAt:       req.EndedAt,
	}
	if req.Contamination != nil {
		in.Contamination = &cultivation.ContaminationInput{
			Type:           req.Contamination.Type,
			SuspectedCause: req.Contamination.SuspectedCause,
			Stage:          req.Contamination.Stage,
			Notes:          req.Contamination.Notes,
		}
	}
	return in
}

// optionalOutcome desenlace del body de un DELETE; sin body no se registra desenlace.
func optionalOutcome(c *fiber.Ctx) (*cultivation.OutcomeInput, error) {
	if len(c.Body()) == 0 {
		return nil, nil
	}
	var req dto.OutcomeRequest
	if err := c.BodyParser(&req); err != nil {
		return nil, err
	}
	in := toOutcomeInput(req)
	return &in, nil
}
