package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"vidar/internal/api"
	"vidar/internal/engine"
	"vidar/internal/journal"
	"vidar/internal/notify"
)

func main() {
	addr := flag.String("addr", "0.0.0.0:9001", "http listen address")
	journalDir := flag.String("journal", "./journal", "terminal order journal directory, empty to disable")
	kafkaBrokers := flag.String("kafka-brokers", "", "comma separated kafka brokers, empty to disable")
	kafkaTopic := flag.String("kafka-topic", "book-events", "kafka topic for events")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGTERM,
		syscall.SIGINT,
	)
	defer stop()

	book := engine.NewBook()

	if *journalDir != "" {
		j, err := journal.Open(*journalDir)
		if err != nil {
			log.Error().Err(err).Str("dir", *journalDir).Msg("unable to open journal")
			os.Exit(1)
		}
		defer j.Close()
		book.SetArchive(j)
	}

	sinks := []notify.Sink{notify.LogSink{}}
	if *kafkaBrokers != "" {
		kafka := notify.NewKafkaSink(strings.Split(*kafkaBrokers, ","), *kafkaTopic)
		defer kafka.Close()
		sinks = append(sinks, kafka)
	}
	broadcaster := notify.NewBroadcaster(sinks...)
	book.SetNotifier(broadcaster)
	go func() {
		if err := broadcaster.Run(ctx); err != nil {
			log.Error().Err(err).Msg("broadcaster exited")
		}
	}()

	router := gin.New()
	router.Use(gin.Recovery(), api.PrometheusMiddleware())
	api.NewHandler(book).RegisterRoutes(router)

	srv := &http.Server{Addr: *addr, Handler: router}
	go func() {
		log.Info().Str("addr", *addr).Msg("server running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server exited")
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("unable to shut down cleanly")
	}
	broadcaster.Shutdown()
	log.Info().Msg("server shut down")
}
