package main

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/valkey-io/valkey-go"

	"github.com/campushelp/canvas-assistant/internal/domain/assistant"
	"github.com/campushelp/canvas-assistant/internal/domain/export"
	"github.com/campushelp/canvas-assistant/internal/domain/knowledge"
	"github.com/campushelp/canvas-assistant/internal/infra/answercache"
	"github.com/campushelp/canvas-assistant/internal/infra/config"
	"github.com/campushelp/canvas-assistant/internal/infra/export/objectstore"
	"github.com/campushelp/canvas-assistant/internal/infra/knowledgerepo"
	"github.com/campushelp/canvas-assistant/internal/infra/llm/gemini"
	"github.com/campushelp/canvas-assistant/internal/infra/translate/libretranslate"
)

func provideAssistantConfig(cfg *config.Config) assistant.Config {
	return assistant.Config{
		Prompt:           cfg.Assistant.Prompt,
		Greeting:         cfg.Assistant.Greeting,
		Apology:          cfg.Assistant.Apology,
		FollowUpPrompt:   cfg.Assistant.FollowUpPrompt,
		ContextWindow:    cfg.Assistant.ContextWindow,
		CacheTTL:         cfg.Assistant.CacheTTL,
		TopQuestions:     cfg.Assistant.TopQuestions,
		GenerateTimeout:  cfg.Assistant.GenerateTimeout,
		TranslateTimeout: cfg.Translate.Timeout,
	}
}

func provideGeminiClient(cfg *config.Config) (*gemini.Client, error) {
	return gemini.NewClient(cfg.LLM.APIKey, cfg.LLM.BaseURL, cfg.LLM.Model, gemini.GenerationConfig{
		Temperature:     cfg.LLM.Temperature,
		TopP:            cfg.LLM.TopP,
		TopK:            cfg.LLM.TopK,
		MaxOutputTokens: cfg.LLM.MaxOutputTokens,
	})
}

// provideTranslator returns a nil collaborator when translation is disabled;
// the assistant treats that as "everything is already English".
func provideTranslator(cfg *config.Config, logger *slog.Logger) (assistant.Translator, error) {
	if !cfg.Translate.Enabled {
		logger.Info("translation disabled")
		return nil, nil
	}
	client, err := libretranslate.NewClient(cfg.Translate.BaseURL, cfg.Translate.APIKey)
	if err != nil {
		return nil, err
	}
	logger.Info("translation enabled", "baseUrl", cfg.Translate.BaseURL)
	return client, nil
}

func provideRepository(cfg *config.Config, logger *slog.Logger) knowledge.Repository {
	fallback := knowledgerepo.NewMemoryRepository()
	dsn := strings.TrimSpace(cfg.Postgres.DSN)
	if dsn == "" {
		logger.Info("postgres dsn not set, using memory repository")
		return fallback
	}
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		logger.Error("invalid postgres dsn, using memory repository", "error", err)
		return fallback
	}
	if cfg.Postgres.MaxConns > 0 {
		poolConfig.MaxConns = cfg.Postgres.MaxConns
	}
	if cfg.Postgres.MinConns > 0 {
		poolConfig.MinConns = cfg.Postgres.MinConns
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		logger.Error("failed to initialize postgres pool, using memory repository", "error", err)
		return fallback
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("postgres ping failed, using memory repository", "error", err)
		pool.Close()
		return fallback
	}
	logger.Info("postgres repository enabled")
	return knowledgerepo.NewPostgresRepository(pool)
}

func provideAnswerCache(cfg *config.Config, logger *slog.Logger) assistant.AnswerCache {
	if cfg.Cache.Enabled {
		opt, err := buildValkeyOptions(cfg)
		if err != nil {
			logger.Error("invalid valkey configuration, falling back to memory cache", "error", err)
			return answercache.NewMemoryCache()
		}
		client, err := valkey.NewClient(opt)
		if err != nil {
			logger.Error("failed to create valkey client, falling back to memory cache", "error", err)
			return answercache.NewMemoryCache()
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
			logger.Error("valkey ping failed, falling back to memory cache", "error", err)
		} else {
			logger.Info("valkey answer cache enabled", "addr", cfg.Cache.Addr)
			return answercache.NewValkeyCache(client, "assistant")
		}
	}
	return answercache.NewMemoryCache()
}

func provideExportSink(cfg *config.Config, logger *slog.Logger) export.Sink {
	if strings.TrimSpace(cfg.Export.Endpoint) != "" {
		sink, err := objectstore.NewMinioSink(cfg.Export.Endpoint, cfg.Export.AccessKey, cfg.Export.SecretKey, cfg.Export.Bucket, cfg.Export.Region, logger)
		if err != nil {
			logger.Error("object storage unavailable, falling back to filesystem sink", "error", err)
		} else {
			logger.Info("object storage export sink enabled", "bucket", cfg.Export.Bucket)
			return sink
		}
	}
	return objectstore.NewFilesystemSink(cfg.Export.LocalDir)
}

func buildValkeyOptions(cfg *config.Config) (valkey.ClientOption, error) {
	var (
		opt valkey.ClientOption
		err error
	)
	if strings.Contains(cfg.Cache.Addr, "://") {
		opt, err = valkey.ParseURL(cfg.Cache.Addr)
	} else {
		opt = valkey.ClientOption{InitAddress: []string{cfg.Cache.Addr}}
	}
	if err != nil {
		return valkey.ClientOption{}, err
	}
	return opt, nil
}
