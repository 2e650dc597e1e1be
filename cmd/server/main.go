package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	flag "github.com/spf13/pflag"

	"github.com/iliyamo/raffle-console/internal/backend"
	"github.com/iliyamo/raffle-console/internal/config"
	"github.com/iliyamo/raffle-console/internal/console"
	"github.com/iliyamo/raffle-console/internal/database"
	"github.com/iliyamo/raffle-console/internal/handler"
	"github.com/iliyamo/raffle-console/internal/middleware"
	"github.com/iliyamo/raffle-console/internal/model"
	"github.com/iliyamo/raffle-console/internal/queue"
	"github.com/iliyamo/raffle-console/internal/reportcache"
	"github.com/iliyamo/raffle-console/internal/reports"
	"github.com/iliyamo/raffle-console/internal/repository"
	"github.com/iliyamo/raffle-console/internal/router"
	publisher "github.com/iliyamo/raffle-console/internal/service"
	"github.com/iliyamo/raffle-console/internal/settlement"
)

func main() {
	envFile := flag.String("env-file", ".env", "dotenv file to load before reading the environment")
	port := flag.String("port", "", "listen port, overrides APP_PORT")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warnf("env: reading %s: %v", *envFile, err)
	}
	log.SetLevel(log.INFO)
	if *debug {
		log.SetLevel(log.DEBUG)
	}

	cfg := config.Load() // Load environment config
	if *port != "" {
		cfg.Port = *port
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := backend.New(backend.Options{
		BaseURL:     cfg.BackendURL,
		Timeout:     cfg.RequestTimeout,
		ReleaseMode: cfg.ReleaseMode,
		Policy:      model.Policy{VoidResellable: cfg.VoidResellable},
	})

	// Redis is optional: reports fall back to memory, rate limiting is off.
	rdb := config.NewRedisClient(config.LoadRedisConfig())
	cacheCfg := config.LoadReportCacheConfig()
	var store reportcache.Store = reportcache.NewMemoryStore()
	cacheMode := "memory"
	if rdb != nil {
		store = reportcache.NewRedisStore(rdb)
		cacheMode = "redis"
	}
	if !cacheCfg.Enabled {
		cacheMode = "off"
	}
	reportSvc := reports.New(reportcache.New(store, cacheCfg.Prefix, cacheCfg.TTL))

	shared := console.Shared{
		Reports:  reportSvc,
		Receipts: settlement.DirStore{Dir: cfg.ReceiptDir},
	}

	var journal *repository.JournalRepo
	if cfg.DB.Enabled() {
		db, err := database.Open(cfg.DB)
		if err != nil {
			log.Fatalf("journal: %v", err)
		}
		defer db.Close()
		journal = repository.NewJournalRepo(db)
		if err := journal.EnsureSchema(ctx); err != nil {
			log.Fatalf("journal: creating schema: %v", err)
		}
		shared.Journal = journal
	}

	if cfg.AMQPURL != "" {
		shared.Events = publisher.New(cfg.AMQPURL)
		go func() {
			if err := queue.StartSettlementConsumer(ctx, cfg.AMQPURL, cfg.LogDir); err != nil && !errors.Is(err, context.Canceled) {
				log.Errorf("settlement-consumer: %v", err)
			}
		}()
	}

	sessions := console.NewManager(
		func(token string) console.Backend { return client.As(token) },
		console.Settings{DefaultDrawID: cfg.DefaultDrawID, SeatPrice: cfg.SeatPrice, IdleTimeout: cfg.SessionIdle},
		shared,
	)
	go sessions.RunSweeper(ctx, time.Minute)

	e := echo.New() // Create Echo instance
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())

	guard := []echo.MiddlewareFunc{
		middleware.BearerAuth(sessions.Drop),
		middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
	}

	router.RegisterRoutes(e, &handler.HealthHandler{
		Sessions:    sessions,
		Journal:     journal != nil,
		Events:      cfg.AMQPURL != "",
		ReportCache: cacheMode,
	})
	router.RegisterAuth(e, handler.NewAuthHandler(client, sessions), guard...)
	router.RegisterConsole(e, handler.NewConsoleHandler(sessions,
		func(c echo.Context, token string, saleID int64) ([]byte, error) {
			return client.As(token).Receipt(c.Request().Context(), saleID)
		}), guard...)
	router.RegisterReports(e, handler.NewReportHandler(reportSvc,
		func(token string) reports.Conn { return client.As(token) }, sessions), guard...)

	jh := &handler.JournalHandler{}
	if journal != nil {
		jh.Journal = journal
	}
	router.RegisterJournal(e, jh, guard...)

	addr := ":" + cfg.Port // Address string with port
	log.Infof("listening on %s (env=%s, backend=%s, reports=%s)", addr, cfg.Env, cfg.BackendURL, cacheMode)

	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err) // Log and exit if server fails
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Errorf("shutdown: %v", err)
	}
	if rdb != nil {
		_ = rdb.Close()
	}
}
