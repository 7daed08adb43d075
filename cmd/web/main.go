package main

import (
	"context"
	"embed"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/time/rate"

	"scenestudio/internal/http/handlers"
	httpapi "scenestudio/internal/http/httpapi"
	"scenestudio/internal/infra"
	"scenestudio/internal/providers/genai"
	"scenestudio/internal/providers/image"
	"scenestudio/internal/providers/script"
	"scenestudio/internal/session"
	"scenestudio/internal/studio"
)

//go:embed static/*
var staticFS embed.FS

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	client, err := genai.NewClient(genai.Options{
		APIKey:     cfg.GeminiAPIKey,
		BaseURL:    cfg.GeminiBaseURL,
		ImageModel: cfg.GeminiImageModel,
		TextModel:  cfg.GeminiTextModel,
		HTTPClient: &http.Client{Timeout: cfg.UpstreamTimeout},
		Logger:     &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build gemini client")
	}

	images := image.NewGeminiGenerator(client)
	scripts := script.NewGeminiGenerator(client)

	// One shared upstream budget across all sessions.
	limiter := rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.GenerationsPerMin)), cfg.GenerationsPerMin)

	sessions := session.NewManager(cfg.SessionTTL, func() *studio.Studio {
		return studio.New(studio.Options{
			Images:       images,
			Scripts:      scripts,
			Limiter:      limiter,
			Logger:       &logger,
			MaxFileBytes: cfg.MaxUploadBytes,
		})
	})

	app := handlers.NewApp(sessions, logger, cfg.MaxUploadBytes)

	static, err := fs.Sub(staticFS, "static")
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open embedded page")
	}

	router := httpapi.NewRouter(httpapi.Options{
		App:    app,
		Logger: logger,
		Config: cfg,
		Static: static,
	})

	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("studio listening on %s", server.Addr())
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
