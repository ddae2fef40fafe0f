package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/cultivo-lab/internal/application/cultivation"
	"github.com/jhoicas/cultivo-lab/internal/application/dto"
)

// RecordsHandler operaciones transversales sobre registros versionados (archivo, historial, bitácora)
// y desenlaces.
type RecordsHandler struct {
	engine *cultivation.Engine
}

// NewRecordsHandler construye el handler.
func NewRecordsHandler(engine *cultivation.Engine) *RecordsHandler {
	return &RecordsHandler{engine: engine}
}

// Archive godoc
// @Summary      Archivar registro
// @Description  Archiva la versión vigente; type es culture, grow o prepared_spawn.
// @Tags         Registros
// @Accept       json
// @Security     BearerAuth
// @Param        type  path  string              true  "Tipo de entidad"
// @Param        id    path  string              true  "ID de la versión vigente"
// @Param        body  body  dto.ArchiveRequest  true  "Motivo"
// @Success      204
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/records/{type}/{id}/archive [post]
func (h *RecordsHandler) Archive(c *fiber.Ctx) error {
	var req dto.ArchiveRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "cuerpo inválido")
	}
	if err := h.engine.Archive(c.UserContext(), c.Params("type"), c.Params("id"), req.Reason); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ArchiveAll godoc
// @Summary      Archivar todos los registros del usuario
// @Tags         Registros
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      dto.ArchiveRequest  true  "Motivo"
// @Success      200   {object}  cultivation.ArchiveCounts
// @Router       /api/records/archive-all [post]
func (h *RecordsHandler) ArchiveAll(c *fiber.Ctx) error {
	var req dto.ArchiveRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "cuerpo inválido")
	}
	counts, err := h.engine.ArchiveAll(c.UserContext(), req.Reason)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(counts)
}

// History godoc
// @Summary      Historial de versiones de un grupo
// @Tags         Registros
// @Produce      json
// @Security     BearerAuth
// @Param        type   path      string  true  "Tipo de entidad"
// @Param        group  path      string  true  "record_group_id"
// @Success      200    {object}  dto.ListResponse[entity.VersionSummary]
// @Router       /api/records/{type}/{group}/history [get]
func (h *RecordsHandler) History(c *fiber.Ctx) error {
	out, err := h.engine.History(c.UserContext(), c.Params("type"), c.Params("group"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewList(out))
}

// Audit godoc
// @Summary      Bitácora de enmiendas de un grupo
// @Tags         Registros
// @Produce      json
// @Security     BearerAuth
// @Param        group  path      string  true  "record_group_id"
// @Success      200    {object}  dto.ListResponse[entity.DataAmendmentLogEntry]
// @Router       /api/records/{group}/audit [get]
func (h *RecordsHandler) Audit(c *fiber.Ctx) error {
	out, err := h.engine.AuditLog(c.UserContext(), c.Params("group"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewList(out))
}

// RecordOutcome godoc
// @Summary      Registrar desenlace
// @Description  Nunca falla: si el almacén rechaza la escritura el desenlace vuelve con un ID local.
// @Tags         Desenlaces
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      dto.OutcomeRequest  true  "Desenlace"
// @Success      201   {object}  entity.EntityOutcome
// @Failure      403   {object}  dto.ErrorResponse
// @Router       /api/outcomes [post]
func (h *RecordsHandler) RecordOutcome(c *fiber.Ctx) error {
	var req dto.OutcomeRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "cuerpo inválido")
	}
	in := toOutcomeInput(req)
	if err := h.engine.AuthorizeOutcomeTarget(c.UserContext(), in.EntityType, in.EntityID); err != nil {
		return writeError(c, err)
	}
	out := h.engine.RecordOutcome(c.UserContext(), in)
	if in.Contamination != nil {
		h.engine.RecordContaminationDetails(c.UserContext(), out.ID, *in.Contamination)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// ListOutcomes godoc
// @Summary      Listar desenlaces
// @Description  Desenlaces del usuario, del más reciente al más antiguo.
// @Tags         Desenlaces
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  dto.ListResponse[entity.EntityOutcome]
// @Failure      401  {object}  dto.ErrorResponse
// @Router       /api/outcomes [get]
func (h *RecordsHandler) ListOutcomes(c *fiber.Ctx) error {
	out, err := h.engine.Outcomes(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewList(out))
}
