package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/photodrop/internal/capture"
	"github.com/danmuck/photodrop/internal/config"
	"github.com/danmuck/photodrop/internal/imaging"
	"github.com/danmuck/photodrop/internal/observability"
	"github.com/danmuck/photodrop/internal/sender"
)

func main() {
	observability.InitLogger("photosend")

	configPath := flag.String("config", "", "path to sender config (optional)")
	host := flag.String("host", "", "destination host (overrides config)")
	port := flag.String("port", "", "destination port (overrides config)")
	file := flag.String("file", "", "image file to send")
	flag.Parse()

	if *file == "" {
		log.Fatal().Msg("missing -file: nothing to send")
	}

	cfg := config.DefaultSenderConfig()
	if *configPath != "" {
		loaded, err := config.LoadSenderConfig(*configPath)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to load sender config")
		}
		cfg = loaded
	}
	if *host != "" {
		cfg.Host = *host
	}
	portText := strconv.Itoa(cfg.Port)
	if *port != "" {
		portText = *port
	}

	addr, err := sender.HostPort(cfg.Host, portText)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid destination")
	}

	ctx, cancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.DialTimeoutSec)*time.Second+2*time.Minute)
	defer cancel()

	// Standing in for the camera: the file read completes the capture
	// exactly once, success or failure.
	pending := capture.NewPending()
	go func() {
		data, err := os.ReadFile(*file)
		if err != nil {
			pending.Fail(err)
			return
		}
		pending.Deliver(data)
	}()

	raw, err := pending.Await(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("capture failed")
	}

	payload, err := imaging.Normalize(raw, imaging.Options{
		MaxWidth: cfg.MaxWidth,
		Quality:  cfg.JpegQuality,
	})
	if err != nil {
		if errors.Is(err, imaging.ErrDecode) {
			log.Fatal().Err(err).Msg("source image unreadable, transfer not attempted")
		}
		log.Fatal().Err(err).Msg("normalization failed")
	}

	s := sender.New(addr)
	s.DialTimeout = time.Duration(cfg.DialTimeoutSec) * time.Second
	s.Status = func(status string) {
		fmt.Println(status)
	}

	if err := s.Send(ctx, payload); err != nil {
		log.Fatal().Err(err).Msg("transfer failed")
	}
	log.Info().Str("addr", addr).Int("bytes", len(payload)).Msg("photo delivered")
}
