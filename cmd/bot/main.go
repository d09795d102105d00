package main

import (
	"context"
	"time"

	"github.com/xaenox/digest-bot/internal/archive"
	"github.com/xaenox/digest-bot/internal/bot"
	"github.com/xaenox/digest-bot/internal/briefing"
	"github.com/xaenox/digest-bot/internal/llm"
	"github.com/xaenox/digest-bot/internal/storage"
	"github.com/xaenox/digest-bot/internal/tagger"
	"github.com/xaenox/digest-bot/internal/tracker"
	"github.com/xaenox/digest-bot/pkg/config"
	"go.uber.org/zap"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Load configuration
	cfg, err := config.LoadConfig("config.yaml")
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err), zap.String("path", "config.yaml"))
	}

	// Initialize storage
	var store storage.Storage
	switch cfg.Database.Driver {
	case "postgres":
		logger.Info("Using PostgreSQL storage")
		store, err = storage.NewPostgresStorage(storage.DatabaseConfig{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			DBName:   cfg.Database.DBName,
			SSLMode:  cfg.Database.SSLMode,
		}, logger)
		if err != nil {
			logger.Fatal("Failed to initialize storage", zap.Error(err))
		}
	case "mongo":
		logger.Info("Using MongoDB storage")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		store, err = storage.NewMongoStorage(ctx, cfg.Database.MongoURI, cfg.Database.DBName, logger)
		cancel()
		if err != nil {
			logger.Fatal("Failed to initialize storage", zap.Error(err))
		}
	default:
		logger.Info("Using in-memory storage")
		store = storage.NewMemoryStorage()
	}
	defer store.Close()

	// Generative service client shared by the tagger and briefings
	generator := llm.NewOpenAIGenerator(
		cfg.OpenAI.APIKey,
		cfg.OpenAI.Model,
		cfg.OpenAI.MaxTokens,
		cfg.OpenAI.Temperature,
	)

	vocabulary := tagger.NewVocabulary()
	tags := tagger.New(generator, vocabulary, logger)

	chats := tracker.New(logger)
	archiver := archive.New(store, tags, chats, logger)
	briefings := briefing.NewEngine(store, generator, cfg.Briefing.Window, cfg.Briefing.Limit, logger)

	// Initialize bot
	b, err := bot.New(cfg.Telegram.Token, store, archiver, briefings, chats, cfg.Telegram.UpdateTimeout, logger)
	if err != nil {
		logger.Fatal("Failed to create bot", zap.Error(err))
	}

	// Start the bot
	if err := b.Start(); err != nil {
		logger.Fatal("Bot error", zap.Error(err))
	}
}
