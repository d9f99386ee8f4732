package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	commonlog "renamer/server/common/log"
	renamebotapp "renamer/server/renamebot/app"
)

func main() {
	cfg := renamebotapp.LoadConfig()
	server, err := renamebotapp.NewServer(cfg)
	if err != nil {
		log.Fatalf("initialize renamebot server: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		commonlog.Infof("start renamebot http server on :%s", cfg.Port)
		if err := server.HTTPServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("run renamebot http server: %v", err)
		}
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		commonlog.Infof("renamebot polling updates for owner %d", cfg.OwnerID)
		server.RunBot(ctx)
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	select {
	case <-done:
	case <-shutdownCtx.Done():
		commonlog.Warnf("renamebot handlers still running at shutdown")
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		commonlog.Errorf("shutdown renamebot server gracefully: %v", err)
	}
}
