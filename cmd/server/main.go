package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	evalservice "gradegate/internal/evaluation/service"
	evalstore "gradegate/internal/evaluation/store"
	"gradegate/internal/identity"
	"gradegate/internal/identity/revocation"
	"gradegate/internal/platform/config"
	"gradegate/internal/platform/httpserver"
	"gradegate/internal/platform/logger"
	"gradegate/internal/platform/metrics"
	platformredis "gradegate/internal/platform/redis"
	rosterservice "gradegate/internal/roster/service"
	rosterstore "gradegate/internal/roster/store"
	"gradegate/internal/storage"
	httptransport "gradegate/internal/transport/http"
	"gradegate/pkg/platform/tx"
)

// main wires stores, services and the two HTTP listeners (app and ops) and
// keeps the lifecycle small. Business logic lives in the internal services.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	var (
		users       rosterstore.UserStore
		subjects    rosterstore.SubjectStore
		questions   rosterstore.QuestionStore
		enrollments rosterstore.EnrollmentStore
		evals       evalstore.Store
		runner      tx.Runner = tx.NewPassthroughRunner()
	)
	if cfg.DatabaseURL != "" {
		db, err := storage.Open(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := storage.EnsureSchema(ctx, db); err != nil {
			return err
		}
		users = rosterstore.NewPostgresUserStore(db)
		subjects = rosterstore.NewPostgresSubjectStore(db)
		questions = rosterstore.NewPostgresQuestionStore(db)
		enrollments = rosterstore.NewPostgresEnrollmentStore(db)
		evals = evalstore.NewPostgres(db)
		runner = tx.NewSQLRunner(db)
		log.Info("using postgres stores")
	} else {
		users = rosterstore.NewInMemoryUserStore()
		subjects = rosterstore.NewInMemorySubjectStore()
		questions = rosterstore.NewInMemoryQuestionStore()
		enrollments = rosterstore.NewInMemoryEnrollmentStore()
		evals = evalstore.NewInMemory()
		log.Warn("DATABASE_URL not set, using in-memory stores")
	}

	var trl revocation.TokenRevocationList = revocation.NewInMemoryTRL()
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		trl = revocation.NewRedisTRL(redisClient.Client)
		log.Info("using redis token revocation list")
	}

	tokens := identity.NewTokenService(cfg.JWTSigningKey, cfg.TokenTTL)
	verifier := identity.NewHS256Verifier(cfg.AssertionKey)
	identitySvc := identity.New(users, tokens, verifier, trl,
		identity.WithLogger(log),
		identity.WithMetrics(m),
	)

	evalSvc := evalservice.New(evals, users, questions,
		evalservice.WithLogger(log),
		evalservice.WithMetrics(m),
		evalservice.WithTxRunner(runner),
		evalservice.WithStoreTimeout(cfg.StoreTimeout),
	)
	rosterSvc := rosterservice.New(users, subjects, questions, enrollments, evals,
		rosterservice.WithLogger(log),
		rosterservice.WithMetrics(m),
		rosterservice.WithTxRunner(runner),
		rosterservice.WithStoreTimeout(cfg.StoreTimeout),
	)

	var handlerOpts []httptransport.HandlerOption
	if cfg.BootstrapAdminTokenHash != "" {
		handlerOpts = append(handlerOpts, httptransport.WithBootstrapTokenHash(cfg.BootstrapAdminTokenHash))
	}
	handler := httptransport.NewHandler(rosterSvc, evalSvc, identitySvc, identitySvc, log, handlerOpts...)

	appSrv := httpserver.New(cfg.Addr, handler.Router())

	opsMux := http.NewServeMux()
	opsMux.Handle("/metrics", promhttp.Handler())
	opsMux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	opsSrv := httpserver.New(cfg.OpsAddr, opsMux)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting gradegate", "addr", cfg.Addr)
		if err := appSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		log.Info("starting ops listener", "addr", cfg.OpsAddr)
		if err := opsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := appSrv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return opsSrv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
