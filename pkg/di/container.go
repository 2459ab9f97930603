package di

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/histochat/backend/ai"
	"github.com/histochat/backend/internal/service"
	"github.com/histochat/backend/pkg/config"
	"github.com/histochat/backend/pkg/logger"
	"github.com/histochat/backend/pkg/resilience"
)

// Container holds all the dependencies for the application
type Container struct {
	Config           *config.Config
	Logger           *logger.Logger
	CharacterService *service.CharacterService
	GeminiClient     *ai.GeminiClient
	TTSClient        *ai.TTSClient
	TTSInitErr       error
	Metrics          *service.Metrics
	SessionService   *service.SessionService
	ChatRetrier      *resilience.Retrier
}

// New wires config into services. The TTS client is allowed to fail
// construction (missing credentials) without taking the whole app down; the
// error is kept and surfaced per request instead.
func New(cfg *config.Config, log *logger.Logger) (*Container, error) {
	characters, err := service.NewCharacterService(cfg.Characters.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to load characters: %w", err)
	}

	gemini, err := ai.NewGeminiClient(cfg.Gemini.APIKey, ai.WithBaseURL(cfg.Gemini.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	tts, ttsErr := ai.NewTTSClient(ai.ServiceAccount{
		ClientEmail: cfg.GoogleCloud.ClientEmail,
		PrivateKey:  cfg.GoogleCloud.PrivateKey,
		ProjectID:   cfg.GoogleCloud.ProjectID,
	},
		ai.WithTTSEndpoint(cfg.GoogleCloud.TTSEndpoint),
		ai.WithTokenURL(cfg.GoogleCloud.TokenURL),
	)
	if ttsErr != nil {
		log.Warn("TTS client unavailable", "error", ttsErr.Error())
	}

	metrics := service.NewMetrics(prometheus.DefaultRegisterer)

	sessionCfg := service.DefaultSessionConfig()
	sessionCfg.TTL = cfg.Sessions.TTL
	sessionCfg.PurgeWindow = cfg.Sessions.PurgeWindow
	sessionCfg.MaxSessions = cfg.Sessions.MaxSessions
	sessionCfg.MaxMessagesPerSession = cfg.Sessions.MaxMessagesPerSession
	sessionCfg.RetryCount = cfg.Gemini.RetryCount
	sessionCfg.RetryDelay = cfg.Gemini.RetryDelay

	sessions := service.NewSessionService(characters, gemini, metrics, log, sessionCfg)

	chatRetrier := resilience.NewRetrier(resilience.RetryConfig{
		Name:     "gemini-proxy",
		Attempts: cfg.Gemini.RetryCount,
		Delay:    cfg.Gemini.RetryDelay,
	}, log)

	return &Container{
		Config:           cfg,
		Logger:           log,
		CharacterService: characters,
		GeminiClient:     gemini,
		TTSClient:        tts,
		TTSInitErr:       ttsErr,
		Metrics:          metrics,
		SessionService:   sessions,
		ChatRetrier:      chatRetrier,
	}, nil
}
