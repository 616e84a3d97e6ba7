package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	ginprometheus "github.com/zsais/go-gin-prometheus"

	"sentinel-bot/internal/commands"
	"sentinel-bot/internal/config"
	"sentinel-bot/internal/database"
	"sentinel-bot/internal/gateway"
	"sentinel-bot/internal/messaging"
	"sentinel-bot/internal/notify"
	"sentinel-bot/internal/prompt"
	"sentinel-bot/internal/repository"
)

const migrationsDir = "migrations"

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Printf("Warning: could not load .env file: %v\n", err)
	}

	initLogger()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	applyLogLevel(cfg.Log.Level)

	ctx := context.Background()

	log.Info().Msg("connecting to database...")
	dbPool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer dbPool.Close()
	log.Info().Msg("database connection established")

	log.Info().Msg("applying database migrations...")
	if err := database.ApplyMigrations(cfg.Database, migrationsDir); err != nil {
		log.Fatal().Err(err).Msg("failed to apply migrations")
	}

	guildRepo, caseRepo := setupRepositories(ctx, cfg, dbPool)
	events := setupCaseEvents(cfg)

	discord, err := gateway.NewDiscord(cfg.Discord.Token, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create discord gateway")
	}

	prompts := prompt.NewRegistry(cfg.PromptTTL, log.Logger)
	defer prompts.Close()

	notifier := notify.NewNotifier(discord, log.Logger)

	dispatcher := commands.NewDispatcher(guildRepo, log.Logger)
	dispatcher.Register("warn", func() (commands.Command, error) {
		return commands.NewWarnCommand(caseRepo, prompts, notifier, events, discord, cfg.ConfirmWindow, log.Logger), nil
	})

	discord.OnCommand(dispatcher.Dispatch)
	discord.OnComponent(func(token string, r gateway.Responder) {
		// Buttons that are not prompt tokens are someone else's business.
		id, err := uuid.Parse(token)
		if err != nil {
			return
		}
		prompts.Resolve(id, r)
	})

	if err := discord.Open(); err != nil {
		log.Fatal().Err(err).Msg("failed to open discord gateway")
	}
	defer discord.Close()

	if err := discord.RegisterApplicationCommands(); err != nil {
		log.Fatal().Err(err).Msg("failed to register application commands")
	}

	opsServer := startOpsServer(cfg.OpsPort, dbPool)

	log.Info().Msg("sentinel initialization complete, ready to serve")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := opsServer.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("ops server shutdown failed")
	}
}

func initLogger() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.With().Caller().Logger()

	if os.Getenv("ENV") != "production" {
		output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		log.Logger = log.Output(output)
	}
}

func applyLogLevel(level string) {
	parsed, err := zerolog.ParseLevel(level)
	if err != nil {
		log.Warn().Str("level", level).Msg("unknown log level, keeping info")
		parsed = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(parsed)
}

// setupRepositories wires the postgres repositories, wrapping the guild
// repository in the redis cache when redis is configured.
func setupRepositories(ctx context.Context, cfg *config.Config, dbPool *pgxpool.Pool) (repository.GuildRepository, repository.CaseRepository) {
	var guildRepo repository.GuildRepository = repository.NewPgGuildRepository(dbPool)
	caseRepo := repository.NewPgCaseRepository(dbPool)

	if cfg.Redis.Addr == "" {
		return guildRepo, caseRepo
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis unavailable, guild cache disabled")
		return guildRepo, caseRepo
	}

	log.Info().Str("addr", cfg.Redis.Addr).Dur("ttl", cfg.Redis.CacheTTL).Msg("guild cache enabled")
	return repository.NewCachedGuildRepository(guildRepo, client, cfg.Redis.CacheTTL), caseRepo
}

// setupCaseEvents connects the RabbitMQ publisher, degrading to a no-op
// publisher when no broker is configured.
func setupCaseEvents(cfg *config.Config) messaging.CaseEventPublisher {
	if cfg.RabbitMQ.URI == "" {
		log.Info().Msg("rabbitmq not configured, case events disabled")
		return messaging.NopPublisher{}
	}

	conn, err := amqp.Dial(cfg.RabbitMQ.URI)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to rabbitmq")
	}

	publisher, err := messaging.NewRabbitCasePublisher(conn, cfg.RabbitMQ.CaseQueue, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize case event publisher")
	}
	return publisher
}

// startOpsServer serves /healthz and prometheus metrics.
func startOpsServer(port string, dbPool *pgxpool.Pool) *http.Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	p := ginprometheus.NewPrometheus("sentinel")
	p.Use(engine)

	engine.GET("/healthz", func(c *gin.Context) {
		pingCtx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := dbPool.Ping(pingCtx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	server := &http.Server{Addr: ":" + port, Handler: engine}
	go func() {
		log.Info().Str("port", port).Msg("ops server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("ops server failed")
		}
	}()
	return server
}
