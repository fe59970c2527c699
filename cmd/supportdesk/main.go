package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	"github.com/ericfisherdev/supportdesk/internal/adapter/driven/llm"
	sqliteadapter "github.com/ericfisherdev/supportdesk/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/supportdesk/internal/adapter/driven/vapi"
	httphandler "github.com/ericfisherdev/supportdesk/internal/adapter/driving/http"
	"github.com/ericfisherdev/supportdesk/internal/application"
	"github.com/ericfisherdev/supportdesk/internal/cipher"
	"github.com/ericfisherdev/supportdesk/internal/config"
	"github.com/ericfisherdev/supportdesk/internal/domain/port/driven"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on missing required env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"llm_provider", cfg.LLMProvider,
		"llm_model", cfg.LLMModel,
		"agent_max_steps", cfg.AgentMaxSteps,
		"session_sweep_interval", cfg.SessionSweepInterval,
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open database (dual reader/writer with WAL mode).
	db, err := sqliteadapter.NewDB(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	slog.Info("database opened", "path", cfg.DBPath)

	// 4. Run migrations on writer connection.
	version, err := sqliteadapter.RunMigrations(db.Writer)
	if err != nil {
		return err
	}
	slog.Info("migrations complete", "version", version)

	// 5. Wire adapters.
	credentialStore := sqliteadapter.NewCredentialRepo(db)
	conversationStore := sqliteadapter.NewConversationRepo(db)
	sessionStore := sqliteadapter.NewContactSessionRepo(db)
	threadStore := sqliteadapter.NewThreadRepo(db)
	documentIndex := sqliteadapter.NewDocumentRepo(db)
	voiceFactory := vapi.NewFactory(cfg.VapiBaseURL)

	// 6. Create the language model (nil until a provider key is configured).
	model := newLanguageModel(cfg)
	modelProvider := application.NewModelProvider(model)

	// 7. Create application services.
	logger := slog.Default()

	vaultSvc := application.NewVaultService(credentialStore, cipher.NewKeyring(), cfg.EncryptionKey, logger)
	pluginSvc := application.NewPluginService(vaultSvc, voiceFactory, logger)
	conversationSvc := application.NewConversationService(conversationStore, sessionStore, logger)
	documentSvc := application.NewDocumentService(documentIndex, logger)

	// 7b. Start the contact-session sweeper.
	sweeper := application.NewSessionSweeper(sessionStore, cfg.SessionSweepInterval, logger)
	go sweeper.Start(ctx)

	// 7c. Rebuild the language model from the environment on SIGHUP.
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go modelProvider.ReloadOn(ctx, hup, func() (driven.LanguageModel, error) {
		reloaded, err := config.Load()
		if err != nil {
			return nil, err
		}
		return newLanguageModel(reloaded), nil
	}, logger)

	tools, err := application.NewToolRegistry(conversationSvc, documentIndex, modelProvider, logger)
	if err != nil {
		return err
	}
	agent := application.NewAgent(modelProvider, threadStore, tools, cfg.AgentMaxSteps, logger)
	messageSvc := application.NewMessageService(conversationSvc, sessionStore, threadStore, agent, modelProvider, logger)

	// 8. Create HTTP handler and routes.
	verifier := httphandler.NewTokenVerifier([]byte(cfg.JWTSecret))
	apiHandler := httphandler.NewHandler(vaultSvc, pluginSvc, conversationSvc, messageSvc, documentSvc, modelProvider, verifier, logger)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           httphandler.NewServeMux(apiHandler, logger),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      90 * time.Second, // agent turns call the model several times
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()

	slog.Info("supportdesk started", "listen_addr", cfg.ListenAddr)

	// 9. Wait for shutdown signal.
	<-ctx.Done()
	slog.Info("shutting down")

	// 10. Graceful shutdown with 10s timeout for in-flight requests.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}

// newLanguageModel builds the configured provider's model, or nil when no
// provider key is set.
func newLanguageModel(cfg *config.Config) driven.LanguageModel {
	if !cfg.HasLLMCredentials() {
		slog.Info("no language model key configured, agent features disabled")
		return nil
	}

	slog.Info("language model configured", "provider", cfg.LLMProvider, "model", cfg.LLMModel)
	switch cfg.LLMProvider {
	case config.ProviderAnthropic:
		return llm.NewAnthropicModel(cfg.LLMAPIKey, cfg.LLMBaseURL, cfg.LLMModel)
	default:
		return llm.NewOpenAIModel(cfg.LLMAPIKey, cfg.LLMBaseURL, cfg.LLMModel)
	}
}
