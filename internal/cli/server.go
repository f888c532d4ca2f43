package cli

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"exam-practice-service/internal/app"
	"exam-practice-service/internal/config"
	"exam-practice-service/internal/infra/memory"
	pgstore "exam-practice-service/internal/infra/postgres"
	redisstore "exam-practice-service/internal/infra/redis"
	transport "exam-practice-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the exam practice server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	tokenTTL := config.TTLDuration(cfg.Auth.TokenTTL, 24*time.Hour)
	cacheTTL := config.TTLDuration(cfg.Catalog.CacheTTL, 10*time.Minute)

	var tokens app.TokenStore = memory.NewTokenStore()
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		tokens = redisstore.NewTokenStore(redisClient, tokenTTL)
	}

	mem := memory.NewStore()
	var (
		users    app.UserStore    = mem
		catalog  app.CatalogStore = mem
		sessions app.SessionStore = mem
		stats    app.StatsReader  = mem
	)
	if cfg.Postgres.URL != "" {
		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.URL)))
		db := bun.NewDB(sqldb, pgdialect.New())
		defer db.Close()
		store := pgstore.NewStore(db)
		users, catalog, sessions = store, store, store

		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		stats = pgstore.NewStatsReader(pool)
	}

	cache := memory.NewQuestionCache(catalog, cacheTTL)

	authService := app.NewAuthService(users, tokens, tokenTTL)
	catalogService := app.NewCatalogService(catalog, users, cache)
	sessionService := app.NewSessionService(sessions, catalog, users, stats)

	api := transport.NewAPI(authService, catalogService, sessionService)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      api.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting exam practice service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
