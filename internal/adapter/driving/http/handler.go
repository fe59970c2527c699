// Package httphandler is the HTTP driving adapter: the operator JSON API,
// authenticated with identity-provider tokens, and the public widget API.
package httphandler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/ericfisherdev/supportdesk/internal/application"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 1 << 20

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	vault         *application.VaultService
	plugins       *application.PluginService
	conversations *application.ConversationService
	messages      *application.MessageService
	documents     *application.DocumentService
	models        *application.ModelProvider
	verifier      *TokenVerifier
	logger        *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(
	vault *application.VaultService,
	plugins *application.PluginService,
	conversations *application.ConversationService,
	messages *application.MessageService,
	documents *application.DocumentService,
	models *application.ModelProvider,
	verifier *TokenVerifier,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		vault:         vault,
		plugins:       plugins,
		conversations: conversations,
		messages:      messages,
		documents:     documents,
		models:        models,
		verifier:      verifier,
		logger:        logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with logging and recovery middleware. Operator routes under /api/v1
// require a bearer token; widget routes and the health check do not.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()
	operator := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, authMiddleware(h.verifier, fn))
	}

	mux.HandleFunc("GET /api/v1/health", h.Health)

	operator("PUT /api/v1/secrets/{service}", h.UpsertSecret)
	operator("PUT /api/v1/secrets/{service}/both", h.UpsertBothKeys)

	operator("GET /api/v1/plugins/{service}", h.GetPlugin)
	operator("DELETE /api/v1/plugins/{service}", h.DisconnectPlugin)
	operator("GET /api/v1/plugins/{service}/keys", h.ListPluginKeys)
	operator("GET /api/v1/plugins/vapi/phone-numbers", h.ListPhoneNumbers)
	operator("GET /api/v1/plugins/vapi/assistants", h.ListAssistants)

	operator("GET /api/v1/conversations", h.ListConversations)
	operator("GET /api/v1/conversations/{id}", h.GetConversation)
	operator("PATCH /api/v1/conversations/{id}/status", h.UpdateConversationStatus)
	operator("GET /api/v1/conversations/{id}/contact-session", h.GetContactSession)
	operator("POST /api/v1/conversations/{id}/messages", h.CreateOperatorMessage)
	operator("GET /api/v1/threads/{threadID}/messages", h.ListMessages)
	operator("POST /api/v1/messages/enhance", h.EnhanceResponse)

	operator("POST /api/v1/documents", h.AddDocument)
	operator("GET /api/v1/documents", h.ListDocuments)
	operator("DELETE /api/v1/documents/{id}", h.DeleteDocument)

	mux.HandleFunc("POST /widget/{org}/contact-sessions", h.CreateContactSession)
	mux.HandleFunc("POST /widget/{org}/conversations", h.StartConversation)
	mux.HandleFunc("POST /widget/{org}/conversations/{id}/messages", h.SendUserMessage)
	mux.HandleFunc("GET /widget/{org}/plugins/{service}/public-key", h.GetPublicKey)

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)
	wrapped = requestIDMiddleware(wrapped)

	return wrapped
}

// Health returns a simple health check response. The service stays healthy
// without a language model; only agent replies are disabled.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	languageModel := "missing"
	if h.models.HasModel() {
		languageModel = "configured"
	}
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:        "ok",
		LanguageModel: languageModel,
		Time:          time.Now().UTC().Format(time.RFC3339),
	})
}

// decodeJSON reads a bounded JSON body into v, writing a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
