package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/jhoicas/cultivo-lab/internal/application/cultivation"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Engine    *cultivation.Engine
	JWTSecret string
	// Gatherer si no es nil se expone en MetricsPath.
	Gatherer    prometheus.Gatherer
	MetricsPath string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	if deps.Gatherer != nil {
		path := deps.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		app.Get(path, adaptor.HTTPHandler(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	api := app.Group("/api")

	// Todas las rutas requieren Bearer Token: cada registro pertenece a un usuario.
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))

	cultures := protected.Group("/cultures")
	cultureHandler := NewCultureHandler(deps.Engine)
	cultures.Post("/", cultureHandler.Create)
	cultures.Get("/", cultureHandler.List)
	cultures.Get("/:id", cultureHandler.GetByID)
	cultures.Put("/:id", cultureHandler.Amend)
	cultures.Delete("/:id", cultureHandler.Delete)
	cultures.Post("/:id/transfers", cultureHandler.Transfer)
	cultures.Get("/:id/lineage", cultureHandler.Lineage)
	cultures.Post("/:id/observations", cultureHandler.AddObservation)

	grows := protected.Group("/grows")
	growHandler := NewGrowHandler(deps.Engine)
	grows.Post("/", growHandler.Create)
	grows.Get("/", growHandler.List)
	grows.Get("/:id", growHandler.GetByID)
	grows.Put("/:id", growHandler.Amend)
	grows.Delete("/:id", growHandler.Delete)
	grows.Post("/:id/advance", growHandler.Advance)
	grows.Post("/:id/contaminate", growHandler.Contaminate)
	grows.Post("/:id/abort", growHandler.Abort)
	grows.Post("/:id/observations", growHandler.AddObservation)
	grows.Post("/:id/flushes", growHandler.RecordFlush)
	grows.Get("/:id/inventory-cost", growHandler.InventoryCost)
	grows.Post("/:id/recalculate", growHandler.Recalculate)

	spawn := protected.Group("/prepared-spawn")
	spawnHandler := NewPreparedSpawnHandler(deps.Engine)
	spawn.Post("/", spawnHandler.Create)
	spawn.Get("/", spawnHandler.List)
	spawn.Get("/:id", spawnHandler.GetByID)
	spawn.Put("/:id", spawnHandler.Amend)

	inventoryHandler := NewInventoryHandler(deps.Engine)
	inv := protected.Group("/inventory")
	inv.Post("/items", inventoryHandler.CreateItem)
	inv.Get("/items", inventoryHandler.ListItems)
	inv.Post("/items/:id/lots", inventoryHandler.AddLot)
	inv.Get("/items/:id/lots", inventoryHandler.ListLots)
	inv.Post("/usage", inventoryHandler.Consume)
	protected.Post("/locations", inventoryHandler.CreateLocation)
	protected.Get("/locations", inventoryHandler.ListLocations)
	protected.Get("/valuation", inventoryHandler.Valuation)

	recordsHandler := NewRecordsHandler(deps.Engine)
	records := protected.Group("/records")
	records.Post("/archive-all", recordsHandler.ArchiveAll)
	records.Get("/:group/audit", recordsHandler.Audit)
	records.Post("/:type/:id/archive", recordsHandler.Archive)
	records.Get("/:type/:group/history", recordsHandler.History)
	protected.Post("/outcomes", recordsHandler.RecordOutcome)
	protected.Get("/outcomes", recordsHandler.ListOutcomes)
}
