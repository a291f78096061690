package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	audithandler "companyapp/internal/audit/handler"
	jwttoken "companyapp/internal/jwt_token"
	"companyapp/internal/platform/config"
	"companyapp/internal/platform/httpserver"
	"companyapp/internal/platform/logger"
	"companyapp/internal/platform/metrics"
	redisclient "companyapp/internal/platform/redis"
	"companyapp/internal/records"
	recordshandler "companyapp/internal/records/handler"
	httptransport "companyapp/internal/transport/http"
	audit "companyapp/pkg/platform/audit"
	auditpostgres "companyapp/pkg/platform/audit/store/postgres"
	auditredis "companyapp/pkg/platform/audit/store/redis"
	auditsqlite "companyapp/pkg/platform/audit/store/sqlite"
	auditworker "companyapp/pkg/platform/audit/worker"
	"companyapp/pkg/platform/database"
	"companyapp/pkg/platform/tx"
	"companyapp/pkg/platform/uow"
)

const redactionMask = "***"

// main wires the records service, the audited committer and the HTTP
// router, then runs the server and the audit mirror until a signal arrives.
func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cfg := config.FromEnv()
	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	m := metrics.New()

	db, err := database.Open(ctx, database.Options{
		Driver:     cfg.Database.Driver,
		DSN:        cfg.Database.DSN,
		SQLitePath: cfg.Database.SQLitePath,
		MaxOpen:    cfg.Database.MaxOpen,
	})
	if err != nil {
		return err
	}
	defer db.Close()

	if err := records.Migrate(ctx, db); err != nil {
		return err
	}
	auditStore, err := openAuditStore(ctx, db)
	if err != nil {
		return err
	}

	health := map[string]httptransport.HealthCheck{"database": db.PingContext}

	opts := []audit.Option{
		audit.WithLogger(log),
		audit.WithMetrics(audit.NewMetrics(m.Registry)),
	}
	if len(cfg.Audit.Redact) > 0 {
		opts = append(opts, audit.WithRedactor(audit.RedactProperties(redactionMask, cfg.Audit.Redact...)))
	}

	var worker *auditworker.Worker
	if cfg.Audit.Mirror {
		rc, err := redisclient.New(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		if rc == nil {
			return fmt.Errorf("AUDIT_MIRROR requires REDIS_URL")
		}
		defer rc.Close()
		mirror, err := auditredis.New(rc.Client)
		if err != nil {
			return err
		}
		worker = auditworker.NewWorker(mirror,
			auditworker.WithLogger(log),
			auditworker.WithBuffer(cfg.Audit.MirrorBuffer),
		)
		opts = append(opts, audit.WithSink(worker))
		health["redis"] = rc.Health
		health["audit_mirror"] = func(context.Context) error {
			if !worker.Healthy() {
				return errors.New("audit mirror writes are failing")
			}
			return nil
		}
	}

	committer := audit.NewCommitter(
		tx.NewTransactor(db.DB),
		uow.NewSQLWriter(db.DB, db.Dialect),
		auditStore,
		opts...,
	)
	service := records.NewService(records.NewStore(db.DB, db.Dialect), committer, records.WithLogger(log))
	jwtService := jwttoken.NewJWTService(cfg.Server.JWTSigningKey, cfg.Server.JWTIssuer, cfg.Server.JWTAudience)

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:     log,
		Metrics:    m,
		Validator:  jwtService,
		AdminToken: cfg.Server.AdminToken,
		Records:    recordshandler.New(service, log),
		Audit:      audithandler.New(committer, log, cfg.Audit.QueryLimit),
		Health:     health,
	})
	srv := httpserver.New(cfg.Server, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting companyapp", "addr", cfg.Server.Addr, "driver", db.Dialect.Name())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	})
	if worker != nil {
		g.Go(func() error {
			if err := worker.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}
	return g.Wait()
}

func openAuditStore(ctx context.Context, db *database.DB) (audit.Store, error) {
	if db.Dialect == uow.Postgres {
		if err := auditpostgres.Migrate(ctx, db.DB); err != nil {
			return nil, err
		}
		return auditpostgres.New(db.DB), nil
	}
	if err := auditsqlite.Migrate(ctx, db.DB); err != nil {
		return nil, err
	}
	return auditsqlite.New(db.DB), nil
}
