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

	"github.com/rs/zerolog/log"
	"github.com/tansive/datacatalog/internal/catalogsrv/blobstore"
	"github.com/tansive/datacatalog/internal/catalogsrv/config"
	"github.com/tansive/datacatalog/internal/catalogsrv/db"
	"github.com/tansive/datacatalog/internal/catalogsrv/server"
	"github.com/tansive/datacatalog/internal/common/logtrace"
)

const shutdownTimeout = 15 * time.Second

type cmdoptions struct {
	configFile *string
}

func main() {
	opt := parseFlags()

	cfg, err := config.LoadConfig(*opt.configFile)
	if err != nil {
		logtrace.InitLogger("info")
		log.Error().Str("config_file", *opt.configFile).Err(err).Msg("unable to load config file")
		os.Exit(1)
	}
	logtrace.InitLogger(cfg.LogLevel)
	if err := run(cfg); err != nil {
		log.Error().Err(err).Msg("server exited")
		os.Exit(1)
	}
}

func run(cfg *config.ConfigParam) error {
	slog := log.With().Str("state", "init").Logger()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = slog.WithContext(ctx)

	store, err := db.Open(ctx, cfg.MetadataStore)
	if err != nil {
		return fmt.Errorf("unable to open metadata store: %w", err)
	}
	defer store.Close()

	blobs, err := blobstore.Open(ctx, cfg.ObjectStore)
	if err != nil {
		return fmt.Errorf("unable to open object store: %w", err)
	}
	defer blobs.Close()

	s, err := server.CreateNewServer(cfg, store, blobs)
	if err != nil {
		return fmt.Errorf("unable to create server: %w", err)
	}
	if err := s.Bootstrap(ctx); err != nil {
		return fmt.Errorf("unable to create bootstrap admin: %w", err)
	}
	s.MountHandlers()

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           s.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		slog.Info().Str("port", cfg.ServerPort).Msg("catalog server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func parseFlags() cmdoptions {
	var opt cmdoptions
	opt.configFile = flag.String("config", "", "Path to the config file (development defaults when empty)")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [options]\n\n", os.Args[0])
		fmt.Println("Options:")
		flag.PrintDefaults()
	}
	flag.Parse()
	return opt
}
