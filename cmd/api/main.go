package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"
	"github.com/jhoicas/cultivo-lab/internal/application/cultivation"
	"github.com/jhoicas/cultivo-lab/internal/domain/repository"
	"github.com/jhoicas/cultivo-lab/internal/infrastructure/events"
	"github.com/jhoicas/cultivo-lab/internal/infrastructure/memory"
	"github.com/jhoicas/cultivo-lab/internal/infrastructure/metrics"
	"github.com/jhoicas/cultivo-lab/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/cultivo-lab/internal/interfaces/http"
	"github.com/jhoicas/cultivo-lab/pkg/config"
	"github.com/jhoicas/cultivo-lab/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
		App:   cfg.App.Name,
	})
	instanceID := cfg.App.InstanceID
	if instanceID == "" {
		instanceID = uuid.NewString()
	}
	log.Info().
		Str("env", cfg.App.Env).
		Str("instance_id", instanceID).
		Msg("iniciando aplicación")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Sin PostgreSQL configurado el motor trabaja sobre el almacén en memoria.
	var store repository.Store
	if cfg.DB.Configured() {
		pg, err := postgres.Open(ctx, cfg.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a PostgreSQL")
		}
		store = pg
	} else {
		log.Warn().Msg("sin base de datos configurada: usando almacén en memoria")
		store = memory.NewStore()
	}
	defer store.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder, err := metrics.NewRecorder(reg)
	if err != nil {
		log.Fatal().Err(err).Msg("registro de métricas")
	}

	var notifier cultivation.Notifier
	var kafkaNotifier *events.KafkaNotifier
	if cfg.Kafka.Enabled() {
		kafkaNotifier = events.NewKafkaNotifier(cfg.Kafka.Topic, events.KafkaWriterFactory(cfg.Kafka.Brokers), log.Component("events"))
		notifier = kafkaNotifier
	} else {
		notifier = events.NewLogNotifier(log.Component("events"))
	}

	engine := cultivation.New(store,
		cultivation.WithLogger(log.Component("cultivation")),
		cultivation.WithNotifier(notifier),
		cultivation.WithMetrics(recorder),
		cultivation.WithInstanceID(instanceID),
	)
	if err := engine.Refresh(ctx); err != nil {
		log.Fatal().Err(err).Str("backend", store.Backend()).Msg("carga inicial de la proyección")
	}

	// Cada instancia consume con su propio grupo para recibir todos los cambios.
	var listener *events.Listener
	if cfg.Kafka.Enabled() {
		groupID := cfg.Kafka.GroupID
		if groupID == "" {
			groupID = cfg.App.Name + "-" + instanceID
		}
		reader := events.NewKafkaReader(cfg.Kafka.Brokers, cfg.Kafka.Topic, groupID)
		listener = events.NewListener(reader, engine.HandleChange, log.Component("listener"))
		go func() {
			if err := listener.Run(ctx); err != nil {
				log.Error().Err(err).Msg("listener de cambios finalizado")
			}
		}()
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	if _, err := os.Stat(cfg.HTTP.DocsFile); err == nil {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/",
			FilePath: cfg.HTTP.DocsFile,
			Path:     "docs",
			Title:    "Cultivo Lab API",
		}))
	} else {
		log.Debug().Str("path", cfg.HTTP.DocsFile).Msg("sin swagger.json: /docs deshabilitado")
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name, "backend": store.Backend()})
	})

	deps := httpRouter.RouterDeps{Engine: engine, JWTSecret: cfg.JWT.Secret}
	if cfg.Metrics.Enabled {
		deps.Gatherer = reg
		deps.MetricsPath = cfg.Metrics.Path
	}
	httpRouter.Router(app, deps)

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}
	if listener != nil {
		if err := listener.Close(); err != nil {
			log.Error().Err(err).Msg("cierre del listener")
		}
	}
	if kafkaNotifier != nil {
		if err := kafkaNotifier.Close(); err != nil {
			log.Error().Err(err).Msg("cierre del notificador")
		}
	}

	log.Info().Msg("aplicación detenida")
}
