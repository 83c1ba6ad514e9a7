// main package for the tts-batch-service
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/book-expert/logger"
	"github.com/book-expert/tts-batch-service/internal/api"
	"github.com/book-expert/tts-batch-service/internal/archive"
	"github.com/book-expert/tts-batch-service/internal/batch"
	"github.com/book-expert/tts-batch-service/internal/config"
	"github.com/book-expert/tts-batch-service/internal/core"
	"github.com/book-expert/tts-batch-service/internal/notifier"
	"github.com/book-expert/tts-batch-service/internal/store"
	"github.com/book-expert/tts-batch-service/internal/tts"
)

const (
	readHeaderTimeout = 15 * time.Second
	idleTimeout       = 120 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func setupLogger(logPath, fileName string) (*logger.Logger, error) {
	log, err := logger.New(logPath, fileName)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger in %s: %w", logPath, err)
	}

	return log, nil
}

func setupNotifier(cfg *config.Config, log *logger.Logger) (core.Notifier, func()) {
	if cfg.NATS.URL == "" {
		return notifier.Nop{}, func() {}
	}

	natsNotifier, err := notifier.Connect(cfg.NATS.URL, cfg.NATS.AudioCreatedSubject, log)
	if err != nil {
		log.Warn("Audio notifications disabled: %v", err)

		return notifier.Nop{}, func() {}
	}

	log.Info("Publishing audio notifications on %s", cfg.NATS.AudioCreatedSubject)

	return natsNotifier, func() {
		closeErr := natsNotifier.Close()
		if closeErr != nil {
			log.Warn("Failed to close NATS notifier: %v", closeErr)
		}
	}
}

func run(configPath string) error {
	// 1. Create a temporary logger for the bootstrap process
	bootstrapLog, err := setupLogger(os.TempDir(), "tts-batch-service-bootstrap.log")
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to create bootstrap logger: %v\n", err)

		return err
	}

	defer func() { _ = bootstrapLog.Close() }()

	// 2. Load configuration: defaults, environment, then the optional file
	cfg, err := config.Load(configPath, bootstrapLog)
	if err != nil {
		bootstrapLog.Error("Failed to load configuration: %v", err)

		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// 3. The front end must be present before anything is served
	staticErr := api.CheckStaticDir(cfg.Server.StaticDir)
	if staticErr != nil {
		bootstrapLog.Error("Static asset directory is unusable: %v", staticErr)

		return staticErr
	}

	// 4. Initialize the final logger based on the loaded configuration
	log, err := setupLogger(cfg.Paths.BaseLogsDir, "tts-batch-service.log")
	if err != nil {
		bootstrapLog.Error("Failed to create final logger: %v", err)

		return err
	}

	defer func() {
		closeErr := log.Close()
		if closeErr != nil {
			fmt.Fprintf(os.Stderr, "error closing final logger: %v\n", closeErr)
		}
	}()

	audioStore, err := store.New(cfg.Output.Directory)
	if err != nil {
		log.Error("Failed to prepare output directory: %v", err)

		return err
	}

	if cfg.Azure.SubscriptionKey == "" || cfg.Azure.Region == "" {
		log.Warn("Azure speech credentials are not set; synthesis requests will fail")
	}

	speechClient := tts.NewAzureClient(cfg.Azure)

	audioNotifier, closeNotifier := setupNotifier(cfg, log)
	defer closeNotifier()

	processor := batch.NewProcessor(speechClient, audioStore, log, batch.WithNotifier(audioNotifier))
	archives := archive.NewBuilder(audioStore, log)
	router := api.NewRouter(processor, audioStore, archives, speechClient, cfg.Server.StaticDir, log)

	return serve(cfg, router.Setup(), log)
}

func serve(cfg *config.Config, handler http.Handler, log *logger.Logger) error {
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		IdleTimeout:       idleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 1)

	go func() {
		log.System("TTS batch service listening on %s (debug=%t, output=%s)",
			cfg.Addr(), cfg.Server.Debug, cfg.Output.Directory)

		listenErr := srv.ListenAndServe()
		if listenErr != nil && !errors.Is(listenErr, http.ErrServerClosed) {
			errChan <- listenErr
		}

		close(errChan)
	}()

	select {
	case listenErr := <-errChan:
		if listenErr != nil {
			log.Error("Server error: %v", listenErr)

			return fmt.Errorf("server failed: %w", listenErr)
		}

		return nil
	case <-ctx.Done():
	}

	log.System("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	shutdownErr := srv.Shutdown(shutdownCtx)
	if shutdownErr != nil {
		return fmt.Errorf("server forced shutdown: %w", shutdownErr)
	}

	log.System("Server stopped")

	return nil
}

func main() {
	configPath := flag.String("config", "", "Path to config.toml (defaults to $CONFIG_FILE or ./config.toml)")
	flag.Parse()

	err := run(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Service exited with error: %v\n", err)
		os.Exit(1)
	}
}
