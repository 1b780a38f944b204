package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/leonelquinteros/gotext"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
	log "github.com/sirupsen/logrus"

	"steam-tracker-bot/config"
	"steam-tracker-bot/internal/api"
	"steam-tracker-bot/internal/database"
	"steam-tracker-bot/internal/steam"
	syncsvc "steam-tracker-bot/internal/sync"
	"steam-tracker-bot/internal/telegram"
	"steam-tracker-bot/internal/tracking"
	"steam-tracker-bot/internal/watcher"
)

type BotMetrics struct {
	MessagesHandled   prometheus.Counter
	CommandsProcessed prometheus.Counter
	PriceChecks       prometheus.Counter
	NotificationsSent prometheus.Counter
}

var metrics = NewBotMetrics()

func init() {
	config.InitConfig()
	setupLogging()
}

func NewBotMetrics() *BotMetrics {
	metrics := &BotMetrics{
		MessagesHandled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "steamtracker",
			Subsystem: "telegram_bot",
			Name:      "messages_handled",
			Help:      "The total number of handled messages",
		}),
		CommandsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "steamtracker",
			Subsystem: "telegram_bot",
			Name:      "commands_processed",
			Help:      "The total number of processed commands",
		}),
		PriceChecks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "steamtracker",
			Subsystem: "watcher",
			Name:      "price_checks",
			Help:      "The total number of tracked-item price checks",
		}),
		NotificationsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "steamtracker",
			Subsystem: "watcher",
			Name:      "notifications_sent",
			Help:      "The total number of price-rise notifications sent",
		}),
	}

	prometheus.MustRegister(metrics.MessagesHandled)
	prometheus.MustRegister(metrics.CommandsProcessed)
	prometheus.MustRegister(metrics.PriceChecks)
	prometheus.MustRegister(metrics.NotificationsSent)

	return metrics
}

func main() {
	gotext.Configure("locales", strings.ToLower(config.GetString("lang")), "default")

	store, err := database.Open(config.GetString("db_path"))
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	loadMetrics(store)

	steamClient := steam.NewClient(steam.Config{
		Timeout:           config.GetDuration("steam_timeout"),
		RequestsPerSecond: config.GetFloat64("steam_rps"),
		Currency:          config.GetInt("steam_currency"),
	})

	syncService := syncsvc.NewService(steamClient, store)
	trackingService := tracking.NewService(steamClient, store)

	bot, err := telegram.NewBot(telegram.BotConfig{
		Token:          config.GetString("telegram_bot_token"),
		Debug:          config.GetBool("debug"),
		UpdatesTimeout: 60,
		WebAppURL:      config.GetString("webapp_url"),
	}, steamClient, store, syncService, trackingService)
	if err != nil {
		log.Fatalf("Failed to create bot: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	priceWatcher := watcher.New(steamClient, store, bot, config.GetDuration("check_interval"), watcher.Metrics{
		PriceChecks:       metrics.PriceChecks.Inc,
		NotificationsSent: metrics.NotificationsSent.Inc,
	})
	priceWatcher.Start(ctx)

	apiServer := api.NewServer(config.GetInt("http_port"), api.Config{
		Store:     store,
		Steam:     steamClient,
		Sync:      syncService,
		Tracking:  trackingService,
		StaticDir: config.GetString("static_dir"),
		PageSize:  config.GetInt("page_size"),
	})
	go func() {
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start mini app server: %v", err)
		}
	}()

	go handleUpdates(bot, bot.GetUpdatesChannel())

	go func() {
		for {
			time.Sleep(5 * time.Minute)
			saveMetrics(store)
		}
	}()

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		cancel()
		saveMetrics(store)

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			log.Errorf("Mini app server shutdown: %v", err)
		}

		store.Close()
		log.Println("Metrics saved, shutting down...")
		os.Exit(0)
	}()

	if err := launchMetricsAndHealthServer(config.GetInt("metrics_port")); err != nil {
		log.Fatalf("Failed to start metrics and health server: %v", err)
	}
}

func setupLogging() {
	log.SetLevel(log.ErrorLevel)
	if config.GetBool("debug") {
		log.SetLevel(log.DebugLevel)
	}
	log.Debug("Starting steam tracker bot...")
}

func handleUpdates(bot *telegram.Bot, updates tgbotapi.UpdatesChannel) {
	for update := range updates {
		if update.Message == nil {
			log.Debug("Received non-message update")
			continue
		}

		metrics.MessagesHandled.Inc()
		handleMessage(bot, update)
	}
}

func handleMessage(bot *telegram.Bot, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			stackBuf := make([]byte, 1024)
			stackSize := runtime.Stack(stackBuf, false)
			stackTrace := bytes.TrimRight(stackBuf[:stackSize], "\x00")
			log.Errorf("Recovered from panic: %v\nStack trace: %s", r, stackTrace)
		}
	}()

	text := bot.HandleUpdate(update)
	if text == "" {
		metrics.CommandsProcessed.Inc()
		return
	}

	err := bot.SendMessage(telegram.Message{
		ChatID:    update.Message.Chat.ID,
		Text:      text,
		MessageID: update.Message.MessageID,
	})

	if err != nil {
		log.Errorf("Failed to send message: %v", err)
	} else {
		metrics.CommandsProcessed.Inc()
	}
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func launchMetricsAndHealthServer(port int) error {
	http.Handle("/metrics", promhttp.Handler())
	http.HandleFunc("/health", healthCheckHandler)

	log.Infof("Launching metrics and health endpoint on :%d", port)
	return http.ListenAndServe(fmt.Sprintf(":%d", port), http.DefaultServeMux)
}

var persistedCounters = []string{"messages_handled", "commands_processed", "price_checks", "notifications_sent"}

func counterByName(name string) prometheus.Counter {
	switch name {
	case "messages_handled":
		return metrics.MessagesHandled
	case "commands_processed":
		return metrics.CommandsProcessed
	case "price_checks":
		return metrics.PriceChecks
	case "notifications_sent":
		return metrics.NotificationsSent
	}
	return nil
}

func loadMetrics(store *database.Store) {
	for _, name := range persistedCounters {
		value, err := store.GetMetric(name)
		if err != nil {
			log.Errorf("Failed to load metric %s: %v", name, err)
			continue
		}
		counterByName(name).Add(value)
	}
	log.Println("Metrics loaded from database.")
}

func saveMetrics(store *database.Store) {
	for _, name := range persistedCounters {
		if err := store.SaveMetric(name, getMetricValue(counterByName(name))); err != nil {
			log.Errorf("Failed to save metric %s: %v", name, err)
		}
	}
	log.Println("Metrics saved to database.")
}

func getMetricValue(metric prometheus.Collector) float64 {
	metricChan := make(chan prometheus.Metric, 1)
	metric.Collect(metricChan)
	close(metricChan)

	metricProto := &dto.Metric{}
	if err := (<-metricChan).Write(metricProto); err != nil {
		log.Printf("Failed to read metric value: %v", err)
		return 0
	}

	if metricProto.Counter != nil {
		return metricProto.Counter.GetValue()
	}
	return 0
}
