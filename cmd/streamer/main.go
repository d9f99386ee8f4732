package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	commonlog "renamer/server/common/log"
	streamerapp "renamer/server/streamer/app"
)

func main() {
	cfg := streamerapp.LoadConfig()
	server, err := streamerapp.NewServer(cfg)
	if err != nil {
		log.Fatalf("initialize streamer server: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := server.RunSource(ctx); err != nil && !errors.Is(err, context.Canceled) {
			commonlog.Errorf("run %s source: %v", cfg.Source, err)
			stop()
		}
	}()

	go func() {
		commonlog.Infof("start streamer http server on :%s", cfg.Port)
		if err := server.HTTPServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("run streamer http server: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		commonlog.Errorf("shutdown streamer server gracefully: %v", err)
	}
}
