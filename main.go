package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"filtro/internal/adapters/handler"
	"filtro/internal/adapters/store"
	"filtro/internal/adapters/transformer"
	"filtro/internal/core/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const defaultMaxUploadBytes = 16 << 20

func main() {
	log.Info().Msg("starting filtro...")

	viper.AddConfigPath(".")
	viper.SetConfigType("toml")

	log.Info().Msg("reading config file...")
	err := viper.ReadInConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("could not read config file")
	}

	var logLevel zerolog.Level

	switch viper.GetString("server.log_level") {
	case "info":
		logLevel = zerolog.InfoLevel
	case "debug":
		logLevel = zerolog.DebugLevel
	default:
		logLevel = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(logLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	auth, err := service.NewTokenService()
	if err != nil {
		log.Fatal().Err(err).Msg("failed initializing token service")
	}

	images := store.NewMemory()
	engine := transformer.NewFilterEngine()

	workers := viper.GetInt("pipeline.workers")
	processor := service.NewProcessor(engine, images, workers)

	maxUpload := viper.GetInt64("pipeline.max_upload_bytes")
	if maxUpload == 0 {
		maxUpload = defaultMaxUploadBytes
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	srv := handler.NewServer(auth, processor, images, maxUpload)
	srv.Register(router)

	addr := viper.GetString("server.listen_addr")
	if addr == "" {
		addr = ":8080"
	}

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("failed to shut down cleanly")
		}
	}()

	log.Info().Str("addr", addr).Msg("server listening")

	err = httpServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server stopped unexpectedly")
	}

	log.Info().Msg("server stopped")
}
