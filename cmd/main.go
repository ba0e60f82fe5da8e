package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prevura-jpg/AI-assistant/internal/api"
	"github.com/prevura-jpg/AI-assistant/internal/config"
	"github.com/prevura-jpg/AI-assistant/internal/db"
	"github.com/prevura-jpg/AI-assistant/internal/engine"
	"github.com/prevura-jpg/AI-assistant/internal/kafka"
	"github.com/prevura-jpg/AI-assistant/internal/logging"
	"github.com/prevura-jpg/AI-assistant/internal/match"
	"github.com/prevura-jpg/AI-assistant/internal/models"
	"github.com/prevura-jpg/AI-assistant/internal/monitor"
	"github.com/prevura-jpg/AI-assistant/internal/notify"
	"github.com/prevura-jpg/AI-assistant/internal/scheduler"
	slackclient "github.com/prevura-jpg/AI-assistant/internal/slack"
	"github.com/prevura-jpg/AI-assistant/internal/state"
)

func main() {
	// Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Logging.Dir, cfg.Logging.Level)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var wg sync.WaitGroup

	// Chat collaborator
	chat := slackclient.NewClient(cfg.Slack.BotToken)

	// Optional on-call Telegram mirror
	mirror, err := notify.NewTelegramMirror(cfg.Telegram.BotToken, cfg.Telegram.ChatID, logger)
	if err != nil {
		logger.Errorf("Telegram mirror disabled: %v", err)
	}

	// Optional notification audit store
	var auditDB *db.DB
	var sinks []notify.Sink
	if cfg.DB.DSN != "" {
		auditDB, err = db.New(cfg.DB.DSN)
		if err != nil {
			logger.Errorf("DB connect failed: %v", err)
			log.Fatalf("Database connection failed: %v", err)
		}
		defer auditDB.Close()
		sinks = append(sinks, db.NewSink(auditDB, logger))
	}

	// WebSocket action stream
	wsManager := api.NewWSManager(logger)
	sinks = append(sinks, wsManager)

	notifier := notify.New(chat, logger, mirror, sinks...)

	// Monitoring core
	store := state.New(cfg.Monitor.StateTTL)
	store.StartSweeper(ctx, time.Hour, &wg)

	eng := engine.New(cfg)
	sched := scheduler.New(logger, notifier)

	svc := monitor.New(cfg, logger, store, eng, notifier, sched)
	svc.ResolveSelf(ctx, chat)
	svc.Start(&wg)

	// Daily report checks
	registerDailyChecks(ctx, &wg, cfg, eng, sched)
	sched.Start(ctx, &wg)

	// Optional Kafka event source
	var consumer *kafka.Consumer
	if cfg.Kafka.Broker != "" {
		consumer = kafka.NewConsumer(cfg, svc, logger)
		consumer.Start(ctx, &wg)
	}

	// API server
	router := api.NewRouter(svc, auditDB, wsManager, logger, cfg)
	go func() {
		logger.Infof("Starting API server on %s", cfg.API.Port)
		if err := router.Run(cfg.API.Port); err != nil {
			logger.Errorf("API server failed: %v", err)
		}
	}()

	// Handle graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
	logger.Info("Shutting down...")
	cancel()
	svc.Stop()
	if consumer != nil {
		consumer.Close()
	}
	wg.Wait()
	logger.Info("Service stopped")
}

// registerDailyChecks wires the report-channel deadlines: the minute-polled
// report checks, the warehouse point check and the manager report window.
func registerDailyChecks(ctx context.Context, wg *sync.WaitGroup, cfg config.Config,
	eng *engine.Engine, sched *scheduler.Scheduler) {
	ch := cfg.Slack.Channels

	if ch.HarixxReports != "" {
		sched.AddWindowCheck(scheduler.WindowCheck{
			ID:        monitor.CheckSummaryReport,
			ChannelID: ch.HarixxReports,
			Hour:      10, Minute: 4,
			Missing: eng.MissingReportMessage("Summary report"),
		})
		sched.AddWindowCheck(scheduler.WindowCheck{
			ID:        monitor.CheckShopReport,
			ChannelID: ch.HarixxReports,
			Hour:      10, Minute: 6,
			Missing: eng.MissingReportMessage("Report by shop"),
		})
		sched.AddWindowCheck(scheduler.WindowCheck{
			ID:        monitor.CheckBusinessReport,
			ChannelID: ch.HarixxReports,
			Hour:      10, Minute: 6,
			Missing: eng.MissingReportMessage("Report by Business"),
		})
	}

	if ch.Warehouse != "" {
		sched.RunPointCheck(ctx, wg, scheduler.PointCheck{
			ID:        monitor.CheckWarehouse,
			ChannelID: ch.Warehouse,
			Hour:      12, Minute: 30,
			SinceHour: 12, SinceMinute: 0,
			Matches: func(ev models.Event) bool {
				return ev.Subtype == "" && match.ContainsPhrase(ev, monitor.WarehousePhrase)
			},
			Missing: eng.MissingWarehouseMessage("12:30"),
		})
	}

	if ch.ManagerAlerts != "" {
		sched.RunWindowScan(ctx, wg, scheduler.WindowScan{
			ID:        monitor.CheckManagerReport,
			ChannelID: ch.ManagerAlerts,
			StartHour: 13, StartMinute: 25,
			EndHour: 13, EndMinute: 35,
			Matches: func(ev models.Event) bool {
				return engine.IsDeviationReport(ev.Text)
			},
			Missing: eng.MissingReportMessage(engine.DeviationReportName),
		})
	}
}
