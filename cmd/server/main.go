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

	"team_chat/internal/config"
	"team_chat/internal/handler"
	"team_chat/internal/metrics"
	"team_chat/internal/middleware"
	"team_chat/internal/realtime"
	"team_chat/internal/repository"
	"team_chat/internal/search"
	"team_chat/internal/service"
	"team_chat/internal/storage"
	"team_chat/internal/sweeper"
	"team_chat/pkg/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v2"
)

const version = "0.3.0"

func main() {
	app := &cli.App{
		Name:    "team-chat",
		Usage:   "Team chat API server",
		Version: version,
		Action:  serve,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API, realtime feed and upload sweeper",
				Action: serve,
			},
			{
				Name:   "migrate",
				Usage:  "Apply embedded database migrations and exit",
				Action: migrate,
			},
			{
				Name:   "sweep",
				Usage:  "Remove orphan uploads once and exit",
				Action: sweepOnce,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) logger.Logger {
	if cfg.Log.Pretty {
		return logger.NewConsole(cfg.Log.Level)
	}
	return logger.New(cfg.Log.Level)
}

// infra - общие подключения для всех команд
type infra struct {
	cfg     *config.Config
	log     logger.Logger
	db      *pgxpool.Pool
	redis   *redis.Client
	objects storage.ObjectStore
}

func (i *infra) Close() {
	if i.redis != nil {
		_ = i.redis.Close()
	}
	if i.db != nil {
		i.db.Close()
	}
}

func connect(ctx context.Context, withStorage bool) (*infra, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	i := &infra{cfg: cfg, log: newLogger(cfg)}

	// Подключение к PostgreSQL
	i.db, err = repository.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	i.log.Info("Database connection established")

	if err := repository.ApplyMigrations(ctx, i.db, i.log); err != nil {
		i.Close()
		return nil, err
	}

	// Подключение к Redis
	i.redis = redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := i.redis.Ping(ctx).Err(); err != nil {
		i.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	i.log.Info("Redis connection established")

	if withStorage {
		i.objects, err = storage.NewMinioStore(cfg.Storage, i.log)
		if err != nil {
			i.Close()
			return nil, err
		}
		if err := storage.EnsureBucket(ctx, i.objects); err != nil {
			i.Close()
			return nil, err
		}
		i.log.Info("Object storage ready", "bucket", cfg.Storage.Bucket)
	}

	return i, nil
}

func migrate(c *cli.Context) error {
	i, err := connect(c.Context, false)
	if err != nil {
		return err
	}
	defer i.Close()

	i.log.Info("Migrations are up to date")
	return nil
}

func sweepOnce(c *cli.Context) error {
	i, err := connect(c.Context, true)
	if err != nil {
		return err
	}
	defer i.Close()

	repos := repository.NewRepositories(i.db, i.redis, i.log)
	n, err := sweeper.New(repos.Upload, i.objects, i.cfg.Sweep, nil, i.log).RunOnce(c.Context)
	if err != nil {
		return err
	}
	i.log.Info("Sweep finished", "removed", n)
	return nil
}

func serve(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	i, err := connect(ctx, true)
	if err != nil {
		return err
	}
	defer i.Close()
	cfg, appLogger := i.cfg, i.log

	m := metrics.New()

	// Инициализация репозиториев
	repos := repository.NewRepositories(i.db, i.redis, appLogger)

	var meili *search.Meili
	if cfg.Search.URL != "" {
		meili = search.NewMeili(cfg.Search.URL, cfg.Search.APIKey, cfg.Search.Index, appLogger)
		defer meili.Close()
	} else {
		appLogger.Info("Meilisearch is not configured, search uses the database")
	}
	indexer := search.NewService(meili, repos.Message, appLogger)

	hub := realtime.NewHub(repos.FeedEvents, cfg.Feed.EventsPerSecond, m.Subscribers, appLogger)

	// Инициализация сервисов
	services := service.NewServices(repos, i.objects, indexer, hub, m, cfg, appLogger)

	sw := sweeper.New(repos.Upload, i.objects, cfg.Sweep, m.UploadsSwept, appLogger)
	if err := sw.Start(ctx); err != nil {
		return err
	}

	checks := map[string]handler.Check{
		"postgres": i.db.Ping,
		"redis":    func(ctx context.Context) error { return i.redis.Ping(ctx).Err() },
		"storage":  i.objects.Ping,
	}
	handlers := handler.NewHandlers(services, hub, checks, cfg, appLogger)

	router := handler.SetupRouter(
		handlers,
		middleware.NewAuthMiddleware(services.Auth, appLogger),
		middleware.NewRateLimitMiddleware(services.RateLimit, appLogger),
		m,
		cfg,
		appLogger,
	)

	// WriteTimeout не ставим: websocket соединения живут долго
	srv := &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:     router,
		ReadTimeout: cfg.Server.ReadTimeout,
		IdleTimeout: 60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		appLogger.Info("Starting server", "addr", srv.Addr, "version", version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}

	appLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	appLogger.Info("Server exited")
	return nil
}
