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

	"github.com/lalith-99/confide/internal/access"
	"github.com/lalith-99/confide/internal/api"
	"github.com/lalith-99/confide/internal/auth"
	"github.com/lalith-99/confide/internal/config"
	"github.com/lalith-99/confide/internal/db"
	"github.com/lalith-99/confide/internal/events"
	"github.com/lalith-99/confide/internal/match"
	"github.com/lalith-99/confide/internal/observ"
	"github.com/lalith-99/confide/internal/payment"
	"github.com/lalith-99/confide/internal/realtime"
	"github.com/lalith-99/confide/internal/repository"
	"github.com/lalith-99/confide/internal/repository/postgres"
	"github.com/lalith-99/confide/internal/repository/sqlite"
	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func main() {
	app := &cli.App{
		Name:   "confide",
		Usage:  "narrative matching and private messaging API",
		Action: serve,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP API (default)",
				Action: serve,
			},
			{
				Name:   "migrate",
				Usage:  "apply the database schema and exit",
				Action: migrate,
			},
			{
				Name:  "user",
				Usage: "manage users",
				Subcommands: []*cli.Command{
					{
						Name:  "add",
						Usage: "create a user and print a development token",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "name", Usage: "display name", Required: true},
							&cli.DurationFlag{Name: "ttl", Usage: "token lifetime", Value: 24 * time.Hour},
						},
						Action: addUser,
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// base is the config, logger and store every command starts from.
type base struct {
	cfg    *config.Config
	logger *zap.Logger
	store  repository.Store
	health func(context.Context) error
	close  func()
}

func setup(ctx context.Context) (*base, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := observ.NewLogger(cfg.Env, cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	rt := &base{cfg: cfg, logger: logger}
	switch cfg.DBDriver {
	case "sqlite":
		conn, err := db.OpenSQLite(cfg.SQLiteDir)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		logger.Info("using sqlite store", zap.String("dir", cfg.SQLiteDir))
		rt.store = sqlite.NewStore(conn)
		rt.health = conn.PingContext
		rt.close = func() { conn.Close() }
	default:
		database, err := db.New(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		if err := database.Migrate(ctx); err != nil {
			database.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		rt.store = postgres.NewStore(database.Pool())
		rt.health = database.Health
		rt.close = database.Close
	}
	return rt, nil
}

func (rt *base) shutdown() {
	rt.close()
	_ = rt.logger.Sync()
}

// migrate relies on setup, which applies pending migrations on open.
func migrate(c *cli.Context) error {
	rt, err := setup(c.Context)
	if err != nil {
		return err
	}
	defer rt.shutdown()
	rt.logger.Info("schema up to date", zap.String("driver", rt.cfg.DBDriver))
	return nil
}

func addUser(c *cli.Context) error {
	rt, err := setup(c.Context)
	if err != nil {
		return err
	}
	defer rt.shutdown()

	user, err := rt.store.Users.Create(c.Context, c.String("name"))
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	token, err := auth.GenerateToken(user.ID, rt.cfg.JWTSecret, c.Duration("ttl"))
	if err != nil {
		return fmt.Errorf("generate token: %w", err)
	}
	fmt.Fprintf(c.App.Writer, "user_id=%s\ntoken=%s\n", user.ID, token)
	return nil
}

func serve(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := setup(ctx)
	if err != nil {
		return err
	}
	defer rt.shutdown()
	cfg, logger, store := rt.cfg, rt.logger, rt.store

	shutdownTracer, err := observ.InitTracer(ctx, cfg.OtelEnabled, cfg.OtelEndpoint, logger)
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(sctx); err != nil {
			logger.Warn("tracer shutdown failed", zap.Error(err))
		}
	}()

	metrics := observ.NewMetrics("confide")

	// Redis fans messages out across instances; without it delivery stays
	// in-process.
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("parse redis url: %w", err)
		}
		rdb = redis.NewClient(opts)
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}
		logger.Info("redis connected", zap.String("addr", opts.Addr))
	}

	var publisher events.Publisher = events.Nop{}
	if cfg.NatsURL != "" {
		nats, err := events.NewNatsPublisher(ctx, cfg.NatsURL, logger)
		if err != nil {
			return fmt.Errorf("connect to nats: %w", err)
		}
		defer nats.Close()
		publisher = nats
	}
	emitter := events.NewEmitter(publisher, logger)

	hub := realtime.NewHub(rdb, logger)
	go hub.Run(ctx)

	relationships := access.NewRelationships(store.Users, store.Relationships, emitter, logger)
	ledger := access.NewLedger(store.Unlocks, emitter, logger)
	gate := access.NewGate(relationships, ledger, metrics)
	threads := access.NewThreads(gate, store.Threads, store.Messages, hub, emitter, metrics, logger)

	var snapClient payment.SnapClient
	if cfg.MidtransServerKey != "" {
		snapClient = payment.NewSnapClient(cfg.MidtransServerKey, cfg.MidtransProduction)
	} else {
		logger.Warn("MIDTRANS_SERVER_KEY not set, payments disabled")
	}
	payments := payment.NewService(payment.Config{
		ServerKey: cfg.MidtransServerKey,
		Price:     cfg.UnlockPrice,
		ClientURL: cfg.ClientURL,
	}, snapClient, ledger, store.Users, metrics, logger)

	router := api.NewRouter(api.Deps{
		Logger:        logger,
		Metrics:       metrics,
		JWTSecret:     cfg.JWTSecret,
		AllowedOrigin: cfg.ClientURL,
		Health:        rt.health,
		Users:         store.Users,
		Matcher:       match.NewMatcher(store.Narratives, metrics, logger),
		Relationships: relationships,
		Gate:          gate,
		Threads:       threads,
		Payments:      payments,
		Hub:           hub,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting confide",
			zap.String("port", cfg.Port),
			zap.String("env", cfg.Env),
			zap.String("db_driver", cfg.DBDriver),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	// Shutdown does not track hijacked websocket connections.
	hub.Close()
	sctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
