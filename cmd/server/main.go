package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"dm-relay/auth"
	"dm-relay/infrastructure/httpapi"
	"dm-relay/internal"
	"dm-relay/observability"
	"dm-relay/repositories"
	"dm-relay/runtime"
	"dm-relay/runtime/workers"
	"dm-relay/services"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
)

// Exit codes to provide meaningful status to the operating system or
// service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	// The main function acts as a thin wrapper. Its only responsibility
	// is to call run() and handle the OS exit code.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Server terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run initializes all components, manages the server lifecycle and
// centralizes error reporting, so deferred cleanups (database close)
// execute before the process exits.
func run() (int, error) {
	// 1. Configuration & logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	logger := newLogger(config.LogLevel)

	// 2. Database (BadgerDB)
	db, err := badger.Open(buildBadgerOpts(config))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	messageRepository := repositories.NewMessageRepository(db, logger)
	userRepository := repositories.NewUserRepository(db)

	// 3. Core: registry + dispatcher
	metrics := observability.NewMetrics()
	registry := runtime.NewConnectionRegistry()
	dispatcher := runtime.NewDispatcher(logger, registry, messageRepository, userRepository, metrics)

	// 4. Services & transport
	issuer := auth.NewTokenIssuer(config.JWTSecret, config.AuthTokenDuration)
	authService := services.NewAuthService(userRepository, issuer)
	chatService := services.NewChatService(messageRepository, userRepository)

	handlers := httpapi.NewHandlers(logger, authService, chatService, config.AuthTokenDuration)
	wsHandler := httpapi.NewWSHandler(logger, dispatcher,
		config.ConnectionBufferSize, config.WriteTimeout, config.PongTimeout)
	router := httpapi.NewRouter(handlers, wsHandler, issuer)

	// 5. Optional operator inspector, local only
	if config.DebugPort != nil {
		logger.Info("Debug Badger inspector available",
			"url", fmt.Sprintf("http://localhost:%d/inspect", *config.DebugPort))
		internal.StartDebugServer(db, *config.DebugPort, "/inspect", internal.DefaultMapper,
			func() map[string]any {
				snap := metrics.GetLatest()
				return map[string]any{
					"messages_persisted": snap.MessagesPersisted,
					"delivery_misses":    snap.DeliveryMisses,
					"sink_drops":         snap.SinkDrops,
				}
			})
	}

	// 6. Supervised lifecycle
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	supervisor := workers.NewSupervisor(logger)
	supervisor.Add(httpapi.NewServerWorker(logger, config.ListenAddr(), router))
	supervisor.Add(workers.NewBadgerGCWorker(logger, db, config.GCInterval))
	supervisor.Add(workers.NewReporterWorker(logger, metrics, config.MetricInterval))

	logger.Info("Starting dm-relay", "addr", config.ListenAddr())
	supervisor.Run(ctx)

	logger.Info("Shutdown complete")
	return exitOK, nil
}

func buildBadgerOpts(config internal.Config) badger.Options {
	return badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.ERROR)
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToUpper(level) {
	case "DEBUG":
		lvl = slog.LevelDebug
	case "WARN":
		lvl = slog.LevelWarn
	case "ERROR":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
