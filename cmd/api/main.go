package main

import (
	"context"
	"log"
	"net/http"

	"restock-watcher/api"
	"restock-watcher/internal/config"
	"restock-watcher/internal/types"
	"restock-watcher/monitor"
	"restock-watcher/notify"
	"restock-watcher/store"
	"restock-watcher/utils"
)

func main() {
	env := config.FromEnv()

	logger, err := utils.NewLogger(utils.LogOptions{Level: env.LogLevel, Dir: env.LogDir})
	if err != nil {
		log.Fatal(err)
	}

	token, chatID, err := env.Credentials()
	if err != nil {
		logger.Fatal(err)
	}
	var opts []notify.Option
	if env.TelegramAPIURL != "" {
		opts = append(opts, notify.WithAPIURL(env.TelegramAPIURL))
	}
	dispatcher, err := notify.NewTelegram(token, chatID, logger, opts...)
	if err != nil {
		logger.Fatal(err)
	}

	targets, err := config.LoadTargets(env.TargetsFile, logger)
	if err != nil {
		logger.Fatal(err)
	}

	// the server lives long enough for an in-memory store to be useful
	dsn := env.StateDSN
	if dsn == "" {
		dsn = "memory"
	}
	statusStore, err := store.Open(context.Background(), dsn)
	if err != nil {
		logger.Fatalf("Failed to open status store: %v", err)
	}
	defer statusStore.Close()

	cfg := types.DefaultConfig()
	loaders := func(ctx context.Context) (types.PageLoader, error) {
		return utils.NewPageLoader(ctx, cfg, logger)
	}
	m := monitor.NewMonitor(cfg, targets, loaders, dispatcher, statusStore, logger)
	server := api.NewServer(m, statusStore, logger)

	logger.Infof("Starting API server on port %s", env.APIPort)
	logger.Info("Available endpoints:")
	logger.Info("  GET  /health - Health check")
	logger.Info("  GET  /status - Targets, last cycle and remembered statuses")
	logger.Info("  POST /check  - Run one cycle now")

	if err := http.ListenAndServe(":"+env.APIPort, server.Router()); err != nil {
		logger.Fatal(err)
	}
}
