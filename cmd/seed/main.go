// seed carga el inventario inicial de un laboratorio (ubicaciones, ítems y lotes) desde un catálogo XML
// en el almacén configurado, a nombre de un usuario.
//
// Uso: go run ./cmd/seed <user_id> [ruta/catalogo.xml]
// Por defecto busca catalogo.xml en el directorio actual.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jhoicas/cultivo-lab/internal/application/cultivation"
	"github.com/jhoicas/cultivo-lab/internal/domain/repository"
	"github.com/jhoicas/cultivo-lab/internal/infrastructure/memory"
	"github.com/jhoicas/cultivo-lab/internal/infrastructure/postgres"
	"github.com/jhoicas/cultivo-lab/pkg/config"
	"github.com/jhoicas/cultivo-lab/pkg/logger"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "Uso: seed <user_id> [catalogo.xml]")
		os.Exit(2)
	}
	userID := os.Args[1]
	xmlPath := "catalogo.xml"
	if len(os.Args) > 2 {
		xmlPath = os.Args[2]
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cargar configuración: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, App: "seed"})

	f, err := os.Open(xmlPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", xmlPath).Msg("abrir catálogo")
	}
	defer f.Close()
	cat, err := parseCatalog(f)
	if err != nil {
		log.Fatal().Err(err).Str("path", xmlPath).Msg("leer catálogo")
	}

	ctx := context.Background()
	var store repository.Store
	if cfg.DB.Configured() {
		pg, err := postgres.Open(ctx, cfg.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a PostgreSQL")
		}
		store = pg
	} else {
		log.Warn().Msg("sin base de datos configurada: el catálogo se carga en memoria y se descarta al salir")
		store = memory.NewStore()
	}
	defer store.Close()

	engine := cultivation.New(store, cultivation.WithLogger(log.Component("cultivation")))
	if err := engine.Refresh(ctx); err != nil {
		log.Fatal().Err(err).Msg("carga de la proyección")
	}

	sum, err := loadCatalog(cultivation.WithActor(ctx, userID), engine, cat)
	if err != nil {
		log.Error().Err(err).Int("locations", sum.Locations).Int("items", sum.Items).Int("lots", sum.Lots).Msg("carga interrumpida")
		os.Exit(1)
	}
	log.Info().Str("backend", store.Backend()).Int("locations", sum.Locations).Int("items", sum.Items).Int("lots", sum.Lots).Msg("catálogo cargado")
}
