package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"kcal_tracker_bot/internal/config"
	"kcal_tracker_bot/internal/feature/diary"
	"kcal_tracker_bot/internal/feature/owner"
	"kcal_tracker_bot/internal/feature/user"
	"kcal_tracker_bot/internal/health"
	"kcal_tracker_bot/internal/logging"
	"kcal_tracker_bot/internal/shutdown"
	"kcal_tracker_bot/internal/store"
	"kcal_tracker_bot/internal/store/sqlite"
	"kcal_tracker_bot/internal/telegram"
)

const (
	mongoConnectTimeout     = 10 * time.Second
	mongoIndexTimeout       = 5 * time.Second
	ownerBootstrapTimeout   = 5 * time.Second
	telegramShutdownTimeout = 10 * time.Second
	healthShutdownTimeout   = 5 * time.Second
)

// storeGateway is satisfied by both persistence backends.
type storeGateway interface {
	diary.Store
	RegisterUser(ctx context.Context, userID int64, registeredAt time.Time) (bool, error)
	Ping(ctx context.Context) error
	Close() error
}

func main() {
	configOnly := flag.Bool("config-only", false, "load and print configuration then exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logging.Error("configuration error", logging.Fields{"error": err})
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.Setup(cfg)
	if err != nil {
		logging.Error("logger setup error", logging.Fields{"error": err})
		fmt.Fprintf(os.Stderr, "logger setup error: %v\n", err)
		os.Exit(1)
	}

	if *configOnly {
		logging.Info("configuration check", logging.Fields{"event": "config_only"})
		fmt.Println("configuration check: ok")
		fmt.Println(config.FormatRedacted(cfg))
		return
	}

	logger.WithFields(logging.Fields{
		"event":        "startup",
		"store_driver": cfg.StoreDriver,
	}).Info("configuration loaded")

	if err := run(cfg, logger); err != nil {
		logger.WithError(err).Error("bot stopped with error")
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	logger.WithField("event", "shutdown_complete").Info("shutdown complete")
}

func run(cfg config.Config, logger *logrus.Entry) error {
	gateway, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := gateway.Close(); err != nil {
			logger.WithError(err).Error("store close error")
			return
		}
		logger.WithField("event", "store_closed").Info("store closed")
	}()

	gate := owner.NewGate(cfg.BotOwnerID, gateway, logger)
	ownerCtx, cancelOwner := context.WithTimeout(context.Background(), ownerBootstrapTimeout)
	err = gate.EnsureOwner(ownerCtx)
	cancelOwner()
	if err != nil {
		return fmt.Errorf("owner bootstrap: %w", err)
	}

	stopSignal := shutdown.New()
	dispatcher, err := diary.NewDispatcher(gateway, logger,
		diary.WithRegistrar(user.NewRegistrar(gateway, logger)),
		diary.WithGate(gate),
		diary.WithShutdown(stopSignal, cfg.ShutdownDelay),
	)
	if err != nil {
		return fmt.Errorf("dispatcher setup: %w", err)
	}

	tgClient, err := telegram.NewClient(cfg, logger, telegram.WithHandler(dispatcher))
	if err != nil {
		return fmt.Errorf("telegram client setup: %w", err)
	}

	logger.WithField("event", "telegram_ready").Info("telegram client initialized")

	healthServer := health.NewServer(cfg.HTTPPort, cfg.StoreDriver, gateway, logger)

	signalCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	telegramCtx, cancelTelegram := context.WithCancel(context.Background())
	defer cancelTelegram()
	tgDone := make(chan struct{})

	group, groupCtx := errgroup.WithContext(context.Background())
	group.Go(func() error {
		defer close(tgDone)
		tgClient.Start(telegramCtx)
		return nil
	})
	group.Go(healthServer.ListenAndServe)

	select {
	case <-signalCtx.Done():
		logger.WithField("event", "shutdown_signal").Info("received termination signal, stopping telegram polling")
	case <-stopSignal.Done():
		logger.WithField("event", "shutdown_command").Info("shutdown requested by owner, stopping telegram polling")
	case <-tgDone:
		logger.WithField("event", "telegram_stopped_early").Warn("telegram client stopped before shutdown signal")
	case <-groupCtx.Done():
		logger.WithField("event", "health_stopped_early").Warn("health server stopped before shutdown signal")
	}

	cancelTelegram()

	waitCtx, cancelWait := context.WithTimeout(context.Background(), telegramShutdownTimeout)
	select {
	case <-tgDone:
	case <-waitCtx.Done():
		logger.WithField("event", "telegram_shutdown_timeout").Warn("timed out waiting for telegram client to stop")
	}
	cancelWait()

	healthCtx, cancelHealth := context.WithTimeout(context.Background(), healthShutdownTimeout)
	if err := healthServer.Shutdown(healthCtx); err != nil {
		logger.WithError(err).Error("health server shutdown error")
	}
	cancelHealth()

	if err := group.Wait(); err != nil {
		return err
	}
	return nil
}

func openStore(cfg config.Config, logger *logrus.Entry) (storeGateway, error) {
	switch cfg.StoreDriver {
	case config.DriverSQLite:
		db, err := sqlite.Open(cfg.SQLitePath, logger)
		if err != nil {
			return nil, fmt.Errorf("sqlite setup: %w", err)
		}
		return sqlite.NewGateway(db)
	case config.DriverMongo:
		return openMongo(cfg, logger)
	default:
		return nil, errors.New("unsupported store driver: " + cfg.StoreDriver)
	}
}

func openMongo(cfg config.Config, logger *logrus.Entry) (storeGateway, error) {
	connectCtx, cancel := context.WithTimeout(context.Background(), mongoConnectTimeout)
	manager, err := store.NewManager(connectCtx, cfg)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("mongo connection: %w", err)
	}

	logger.WithFields(logging.Fields{
		"event":    "mongo_connect",
		"mongo_db": cfg.MongoDB,
	}).Info("connected to mongo")

	indexCtx, cancelIndexes := context.WithTimeout(context.Background(), mongoIndexTimeout)
	err = manager.EnsureBaseIndexes(indexCtx)
	cancelIndexes()
	if err != nil {
		closeCtx, cancelClose := context.WithTimeout(context.Background(), mongoConnectTimeout)
		if closeErr := manager.Close(closeCtx); closeErr != nil {
			logger.WithError(closeErr).Error("mongo disconnect error")
		}
		cancelClose()
		return nil, fmt.Errorf("mongo index setup: %w", err)
	}

	logger.WithField("event", "mongo_indexes").Info("ensured base mongo indexes")

	return store.NewGateway(manager)
}
