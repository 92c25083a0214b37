package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lifelock/internal/bot"
	"lifelock/internal/bus"
	"lifelock/internal/config"
	"lifelock/internal/gateway"
	"lifelock/internal/repository"
	"lifelock/internal/service"
	"lifelock/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := repository.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	sqlDB, err := db.DB()
	if err == nil {
		defer sqlDB.Close()
	}

	changeBus := bus.New(64)
	defer changeBus.Close()
	taskRepo := repository.NewTaskRepository(db, changeBus)

	prefs, err := config.LoadPrefs(cfg.PrefsPath)
	if err != nil {
		log.Printf("[warn] prefs: %v, using defaults", err)
		prefs = config.DefaultPrefs()
	}

	taskStore := store.New(store.WithViewConfigs(prefs.Views))
	taskStore.SetActiveView(prefs.ActiveView)
	taskStore.SetFilters(prefs.Filter.ToFilter())

	gw, err := gateway.New(gateway.Options{
		Store:           taskStore,
		Remote:          taskRepo,
		Bus:             changeBus,
		ListTTL:         cfg.ListCacheTTL,
		SearchTTL:       cfg.SearchCacheTTL,
		TaskTTL:         cfg.TaskCacheTTL,
		MutationTimeout: cfg.MutationTimeout,
		ReadTimeout:     cfg.ReadTimeout,
		RefreshStrategy: cfg.RefreshStrategy,
	})
	if err != nil {
		log.Fatalf("gateway: %v", err)
	}

	if err := gw.RefreshAll(ctx); err != nil {
		log.Fatalf("initial refresh: %v", err)
	}
	go gw.Run(ctx)

	summarySvc := service.NewSummaryService(taskStore)

	scheduler := service.NewScheduler(time.Local)
	if _, err := scheduler.ScheduleInterval(cfg.PollInterval, func() {
		jobCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := gw.RefreshAll(jobCtx); err != nil {
			log.Printf("poll refresh: %v", err)
		}
	}); err != nil {
		log.Fatalf("schedule poll refresh: %v", err)
	}
	if _, err := scheduler.ScheduleInterval(cfg.SweepInterval, gw.SweepCache); err != nil {
		log.Fatalf("schedule cache sweep: %v", err)
	}

	var telegramBot *bot.Bot
	if cfg.TelegramToken != "" {
		telegramBot, err = bot.New(cfg.TelegramToken, gw, summarySvc, &cfg)
		if err != nil {
			log.Fatalf("bot: %v", err)
		}
		if cfg.SummaryTime != "" {
			if _, err := scheduler.ScheduleDaily(cfg.SummaryTime, func() {
				if err := telegramBot.SendSummary(time.Now()); err != nil {
					log.Printf("summary: %v", err)
				}
			}); err != nil {
				log.Fatalf("schedule summary: %v", err)
			}
		}
	}

	scheduler.Start()
	defer scheduler.Stop()

	defer func() {
		prefs.ActiveView = taskStore.ActiveView()
		prefs.Views = taskStore.ViewConfigs()
		prefs.Filter = config.FilterPrefsFrom(taskStore.Filter())
		if err := config.SavePrefs(cfg.PrefsPath, prefs); err != nil {
			log.Printf("[warn] save prefs: %v", err)
		}
	}()

	log.Println("LifeLock started.")
	if telegramBot != nil {
		if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Fatalf("bot stopped with error: %v", err)
		}
	} else {
		<-ctx.Done()
	}
	log.Println("Shutdown complete.")
}
