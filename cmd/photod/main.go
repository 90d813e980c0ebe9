package main

import (
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/photodrop/internal/config"
	"github.com/danmuck/photodrop/internal/gallery"
	"github.com/danmuck/photodrop/internal/logging"
	"github.com/danmuck/photodrop/internal/protocol"
	"github.com/danmuck/photodrop/internal/receiver"
	"github.com/danmuck/photodrop/internal/storage"
)

func main() {
	logging.ConfigureRuntime()

	configPath := flag.String("config", "config.toml", "path to receiver config")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load receiver config")
	}

	store := storage.NewStore(cfg.DataDir)
	viewer := gallery.New(cfg.Gallery.Addr, cfg.Gallery.CorsOrigins)
	viewer.RegisterRoutes()

	srv := receiver.New(cfg.Addr, store)
	srv.Limits = protocol.Limits{MaxPayloadBytes: cfg.MaxPhotoBytes}
	srv.ReadTimeout = time.Duration(cfg.ReadTimeoutSec) * time.Second
	srv.Notify = viewer

	if err := srv.Listen(); err != nil {
		log.Fatal().Err(err).Msg("receiver failed to bind")
	}

	go func() {
		log.Info().Str("addr", cfg.Gallery.Addr).Msg("gallery started")
		if err := viewer.Serve(); err != nil {
			log.Fatal().Err(err).Msg("gallery stopped")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-stop
		log.Info().Str("signal", sig.String()).Msg("shutting down")
		srv.Close()
	}()

	log.Info().
		Str("addr", cfg.Addr).
		Str("data_dir", cfg.DataDir).
		Msg("photo receiver started")
	if err := srv.Serve(); err != nil {
		log.Fatal().Err(err).Msg("receiver stopped")
	}
}

// loadConfig falls back to defaults when the default config file is simply
// absent; an explicitly broken config is still fatal.
func loadConfig(path string) (config.ReceiverConfig, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		log.Info().Str("path", path).Msg("no config file, using defaults")
		return config.DefaultReceiverConfig(), nil
	}
	cfg, err := config.LoadReceiverConfig(path)
	if err != nil {
		return config.ReceiverConfig{}, err
	}
	log.Info().Str("path", path).Msg("loaded receiver config")
	return cfg, nil
}
