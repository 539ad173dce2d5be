//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/campushelp/canvas-assistant/internal/bootstrap"
	"github.com/campushelp/canvas-assistant/internal/domain/assistant"
	"github.com/campushelp/canvas-assistant/internal/domain/export"
	"github.com/campushelp/canvas-assistant/internal/infra/config"
	"github.com/campushelp/canvas-assistant/internal/infra/llm/gemini"
	httpiface "github.com/campushelp/canvas-assistant/internal/interface/http"
	"github.com/campushelp/canvas-assistant/pkg/logger"
)

func initializeApp() (*bootstrap.App, error) {
	wire.Build(
		config.Load,
		logger.New,
		provideAssistantConfig,
		provideGeminiClient,
		provideTranslator,
		provideRepository,
		provideAnswerCache,
		provideExportSink,
		assistant.NewService,
		export.NewService,
		wire.Bind(new(assistant.Generator), new(*gemini.Client)),
		httpiface.NewHandler,
		httpiface.NewRouter,
		bootstrap.NewApp,
	)
	return nil, nil
}
