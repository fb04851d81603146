package main

import (
	"chat-link/api"
	"chat-link/auth"
	"chat-link/internal"
	"chat-link/moderation"
	"chat-link/observability"
	"chat-link/repositories"
	"chat-link/runtime"
	"chat-link/runtime/workers"
	"chat-link/services"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run returns instead of exiting so that every deferred close runs.
func run() error {
	// 1. Configuration & Logger
	config, err := internal.LoadConfig()
	if err != nil {
		return err
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Database (BadgerDB) and name index (Bluge)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	userIndex, err := repositories.OpenUserIndex(config.BlugeFilepath, log)
	if err != nil {
		return err
	}
	defer func() { _ = userIndex.Close() }()

	userRepository := repositories.NewUserRepository(db, log)
	blacklistRepository := repositories.NewBlacklistRepository(db, log)

	users, err := userRepository.ListUsers("")
	if err != nil {
		return fmt.Errorf("failed to load users: %w", err)
	}
	if err := userIndex.Rebuild(users); err != nil {
		return err
	}

	// 3. Domain
	censorChar, err := internal.CharacterRune(config.CharacterReplacement)
	if err != nil {
		return err
	}
	moderator, err := moderation.NewModerator(config.CensoredWordList(), censorChar)
	if err != nil {
		return fmt.Errorf("failed to build moderator: %w", err)
	}

	registry := runtime.NewRegistry()
	metrics := observability.NewMetrics(registry.Len)
	coordinator := runtime.NewDeliveryCoordinator(
		userRepository, registry, moderator, metrics, log, config.DeliveryTimeout)

	issuer := auth.NewTokenIssuer(auth.TokenConfig{
		AccessSecret:       []byte(config.JwtSecret),
		RefreshSecret:      []byte(config.RefSecret),
		AccessTTL:          config.AccessTokenDuration,
		RefreshTTL:         config.RefreshTokenDuration,
		RefreshedAccessTTL: config.RefreshedAccessTokenDuration,
	})
	hasher := auth.NewPasswordHasher(uint32(config.PasswordHashIterations), uint32(config.PasswordHashMemoryKB))
	credentials := services.NewCredentialService(log, userRepository, blacklistRepository, userIndex, hasher, issuer)

	// 4. HTTP surface
	processStats := workers.NewProcessStatsWorker(log, metrics, config.MetricInterval)
	handlers := api.NewHandlers(log, credentials,
		services.NewMessageService(log, userRepository),
		services.NewDirectoryService(log, userRepository, userIndex),
		registry, processStats)
	socket := api.NewSocketHandler(log, registry, coordinator,
		config.Origins(), config.ConnectionBufferSize, config.WriteTimeout)
	server := &http.Server{
		Addr:    config.Address(),
		Handler: api.NewRouter(log, handlers, socket, credentials, metrics),
	}

	// 5. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 6. Supervision, blocks until a signal arrives
	workers.NewSupervisor(log, config.RestartInterval).
		Add(
			workers.NewHTTPServer(log, server, config.ShutdownTimeout),
			workers.NewBadgerGC(log, db, config.GCInterval),
			processStats,
		).
		Run(ctx)

	log.Info("Program stopped cleanly")
	return nil
}
