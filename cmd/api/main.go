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

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	httpadp "loanflow/internal/adapter/http"
	"loanflow/internal/adapter/middleware"
	"loanflow/internal/adapter/repository/mysql"
	"loanflow/internal/config"
	domain "loanflow/internal/domain/loan"
	"loanflow/internal/infrastructure/auth"
	"loanflow/internal/infrastructure/broker"
	"loanflow/internal/infrastructure/cache"
	"loanflow/internal/infrastructure/db"
	"loanflow/internal/infrastructure/logger"
	loanuc "loanflow/internal/usecase/loan"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gdb, err := db.OpenGorm(cfg, log)
	if err != nil {
		return err
	}
	if err := db.Migrate(gdb); err != nil {
		return err
	}

	checks := []httpadp.Check{{Name: "db", Fn: db.Ping(gdb)}}

	var rdb *redis.Client
	var revocations *auth.RedisRevocations
	authOpts := []auth.Option{}
	if cfg.RedisAddr != "" {
		rdb, err = cache.OpenRedis(cfg, log)
		if err != nil {
			return err
		}
		defer rdb.Close()
		revocations = auth.NewRedisRevocations(rdb)
		authOpts = append(authOpts, auth.WithRevocations(revocations))
		checks = append(checks, httpadp.Check{Name: "redis", Fn: cache.Ping(rdb)})
	} else {
		log.Warn("redis not configured: idempotency and token revocation disabled")
	}

	publisher, closeBroker, err := openPublisher(cfg, log)
	if err != nil {
		return err
	}
	defer closeBroker()

	loans := mysql.NewLoanRepository(gdb)
	usecase := loanuc.NewUsecase(
		mysql.NewGormUoW(gdb), loans, mysql.NewTransitionRepository(gdb),
		loanuc.WithLogger(log),
		loanuc.WithPublisher(broker.NewCounting(publisher)),
	)

	var revoker httpadp.Revoker
	if revocations != nil {
		revoker = revocations
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = httpadp.NewValidator()
	e.Use(echomw.Recover(), echomw.RequestID())
	e.Use(middleware.RequestContext(log), middleware.RequestLogger(), middleware.Metrics())
	if cfg.RateLimitEnabled {
		rl := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, log)
		go rl.Cleanup(ctx, time.Minute)
		e.Use(rl.Middleware())
	}
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	httpadp.Register(e, httpadp.Routes{
		Health:         httpadp.NewHandler(checks...),
		Loans:          httpadp.NewLoanHandler(usecase),
		Users:          httpadp.NewUserHandler(revoker, cfg.JWTTTL),
		Verifier:       auth.NewService(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL, authOpts...),
		Policy:         cfg.Policy(),
		Idempotency:    rdb,
		IdempotencyTTL: cfg.IdempotencyTTL(),
	})

	errc := make(chan error, 1)
	go func() {
		addr := ":" + cfg.AppPort
		log.Info("listening", zap.String("addr", addr), zap.String("env", cfg.AppEnv))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

// openPublisher connects to RabbitMQ when configured. Without a broker URL
// loan events are dropped.
func openPublisher(cfg *config.Config, log *zap.Logger) (domain.Publisher, func(), error) {
	if cfg.RabbitMQURL == "" {
		log.Info("rabbitmq not configured: loan events are not published")
		return domain.NopPublisher{}, func() {}, nil
	}
	conn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		return nil, nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	p, err := broker.NewRabbitMQPublisher(conn, cfg.RabbitMQExchange, log)
	if err != nil {
		_ = conn.Close()
		return nil, nil, err
	}
	return p, func() {
		if err := conn.Close(); err != nil {
			log.Warn("close rabbitmq", zap.Error(err))
		}
	}, nil
}
