// Command server runs the NGOConnect contribution API: donation payments,
// volunteer applications and certificate approval over HTTP.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	"golang.org/x/sync/errgroup"

	"ngoconnect/internal/approval"
	"ngoconnect/internal/campaign/store"
	"ngoconnect/internal/certificate"
	certificatehandler "ngoconnect/internal/certificate/handler"
	certificatestore "ngoconnect/internal/certificate/store"
	donationhandler "ngoconnect/internal/donation/handler"
	donationmetrics "ngoconnect/internal/donation/metrics"
	donationservice "ngoconnect/internal/donation/service"
	donationstore "ngoconnect/internal/donation/store"
	"ngoconnect/internal/gateway"
	jwttoken "ngoconnect/internal/jwt_token"
	"ngoconnect/internal/platform/config"
	"ngoconnect/internal/platform/httpserver"
	"ngoconnect/internal/platform/logger"
	platformredis "ngoconnect/internal/platform/redis"
	"ngoconnect/internal/sequence"
	httptransport "ngoconnect/internal/transport/http"
	volunteerhandler "ngoconnect/internal/volunteer/handler"
	volunteermetrics "ngoconnect/internal/volunteer/metrics"
	volunteerservice "ngoconnect/internal/volunteer/service"
	volunteerstore "ngoconnect/internal/volunteer/store"
	audit "ngoconnect/pkg/platform/audit"
	"ngoconnect/pkg/platform/audit/publisher"
	auditmemory "ngoconnect/pkg/platform/audit/store/memory"
	auditpostgres "ngoconnect/pkg/platform/audit/store/postgres"
)

const shutdownTimeout = 10 * time.Second

func main() {
	log := logger.New()
	cfg := config.FromEnv()

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Server, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		donations    donationstore.Store
		applications volunteerstore.Store
		campaigns    store.Store
		certificates certificatestore.Store
		auditStore   audit.Store
		healthChecks []func() error
	)

	if cfg.DatabaseURL != "" {
		db, err := sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := migrateUp(cfg.DatabaseURL); err != nil {
			return err
		}

		donations = donationstore.NewPostgres(db)
		applications = volunteerstore.NewPostgres(db)
		campaigns = store.NewPostgres(db)
		certificates = certificatestore.NewPostgres(db)
		auditStore = auditpostgres.New(db)
		healthChecks = append(healthChecks, db.Ping)
		log.Info("using postgres stores")
	} else {
		donations = donationstore.NewInMemory()
		applications = volunteerstore.NewInMemory()
		campaigns = store.NewInMemory()
		certificates = certificatestore.NewInMemory()
		auditStore = auditmemory.NewInMemoryStore()
		log.Warn("DATABASE_URL not set, using in-memory stores")
	}

	rdb, err := platformredis.New(cfg.Redis)
	if err != nil {
		return err
	}
	var sequences sequence.Store
	if rdb != nil {
		defer rdb.Close()
		sequences = sequence.NewRedis(rdb.Client)
		healthChecks = append(healthChecks, func() error {
			return rdb.Health(context.Background())
		})
		log.Info("using redis sequences")
	} else {
		sequences = sequence.NewInMemory()
	}

	var gw gateway.Adapter
	switch cfg.Gateway.Provider {
	case "razorpay":
		gw = gateway.NewRazorpay(cfg.Gateway.RazorpayKeyID, cfg.Gateway.RazorpayKeySecret)
	default:
		gw = gateway.NewMock()
	}
	log.Info("payment gateway configured", "provider", cfg.Gateway.Provider)

	auditor := publisher.NewPublisher(auditStore,
		publisher.WithAsyncBuffer(256),
		publisher.WithLogger(log),
	)
	defer auditor.Close()

	issuer := certificate.NewIssuer(certificates, sequences, log)
	gate := approval.NewGate(issuer, auditor, log)

	donationSvc := donationservice.New(
		donations, campaigns, gw, sequences, gate, auditor,
		donationmetrics.New(), log, cfg.Gateway.Currency,
	)
	volunteerSvc := volunteerservice.New(
		applications, campaigns, gate, auditor,
		volunteermetrics.New(), log,
	)

	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, "ngoconnect", "ngoconnect-api")

	router := httptransport.NewRouter(httptransport.Handlers{
		Donations:    donationhandler.New(donationSvc, log),
		Volunteering: volunteerhandler.New(volunteerSvc, log),
		Certificates: certificatehandler.New(certificates, log),
	}, jwttoken.NewJWTServiceAdapter(jwtService), log, func() error {
		for _, check := range healthChecks {
			if err := check(); err != nil {
				return err
			}
		}
		return nil
	})

	srv := httpserver.New(cfg.Addr, router)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		ticker := time.NewTicker(cfg.Sweep.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				n, err := donationSvc.ExpireStale(ctx, cfg.Sweep.StaleAfter)
				if err != nil {
					log.Error("stale donation sweep failed", "error", err)
					continue
				}
				if n > 0 {
					log.Info("expired stale donations", "count", n)
				}
			}
		}
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func migrateUp(databaseURL string) error {
	m, err := migrate.New("file://migrations", databaseURL)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}
