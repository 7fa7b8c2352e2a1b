package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/inkmath/equation-solver/internal/backend"
	"github.com/inkmath/equation-solver/internal/logging"
	"github.com/inkmath/equation-solver/internal/models"
	"github.com/inkmath/equation-solver/internal/session"
	"github.com/inkmath/equation-solver/internal/telegram"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	config, err := models.LoadConfig(*configPath)
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}
	logging.Setup(config.LogLevel, config.LogJSON)

	if config.Telegram.Token == "" {
		logrus.Fatal("telegram token is empty: set TELEGRAM_BOT_TOKEN or telegram.token")
	}

	b, err := backend.New(config, "")
	if err != nil {
		logrus.Fatalf("Failed to create recognition backend: %v", err)
	}
	pipeline, err := session.NewPipeline(config, b)
	if err != nil {
		logrus.Fatalf("Failed to build pipeline: %v", err)
	}

	api, err := tgbotapi.NewBotAPI(config.Telegram.Token)
	if err != nil {
		logrus.Fatal(err)
	}
	api.Debug = config.Telegram.Debug

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logrus.Infof("Authorized on account %s, backend %s", api.Self.UserName, b.Name)
	telegram.New(api, pipeline, config.Sessions).Run(ctx, api)
}
