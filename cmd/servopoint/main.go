package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/servopoint/servopoint/internal/config"
	"github.com/servopoint/servopoint/internal/deviceclient"
	"github.com/servopoint/servopoint/internal/pairing"
	"github.com/servopoint/servopoint/internal/presence"
	"github.com/servopoint/servopoint/internal/scheduler"
	"github.com/servopoint/servopoint/internal/server"
	"github.com/servopoint/servopoint/internal/service"
	"github.com/servopoint/servopoint/internal/servostate"
	"github.com/servopoint/servopoint/internal/storage/bolt"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	device, err := deviceclient.New(cfg.Device.BaseURL, cfg.Device.RequestTimeout)
	if err != nil {
		log.Fatalf("init device client: %v", err)
	}

	store, err := bolt.New(cfg.Storage.Path)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer store.Close()

	tracker := presence.New(cfg.Presence.StaleTimeout)
	servo := servostate.New()
	coordinator := pairing.New(tracker, store)
	authSvc := service.NewAuthService(store, cfg)
	activitySvc := service.NewActivityService(store)

	reconciler, err := scheduler.New(store, device, servo, store, cfg.Scheduler.Timezone, cfg.Scheduler.Tick, cfg.Scheduler.Window)
	if err != nil {
		log.Fatalf("init scheduler: %v", err)
	}

	srv := server.New(cfg, tracker, servo, coordinator, authSvc, activitySvc, store, device)

	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()
	go tracker.RunSweeper(bgCtx, cfg.Presence.SweepInterval)
	go reconciler.Run(bgCtx)

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatalf("server stopped: %v", err)
		}
	}()

	// graceful shutdown
	waitForSignal()
	log.Println("shutting down...")
	bgCancel()
	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.WriteTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}

func waitForSignal() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
}
