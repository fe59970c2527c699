package httphandler

import (
	"net/http"
	"strconv"

	"github.com/ericfisherdev/supportdesk/internal/domain/model"
	"github.com/ericfisherdev/supportdesk/internal/domain/port/driven"
)

// defaultConversationPageSize is the conversation page size when no limit is given.
const defaultConversationPageSize = 20

// UpsertSecret stores one key of a service for the caller's organization.
func (h *Handler) UpsertSecret(w http.ResponseWriter, r *http.Request) {
	service, err := model.ParseService(r.PathValue("service"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown service")
		return
	}

	var req UpsertSecretRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	keyType := model.KeyTypePrivate
	if req.KeyType != "" {
		if keyType, err = model.ParseKeyType(req.KeyType); err != nil {
			writeError(w, http.StatusBadRequest, "unknown key type")
			return
		}
	}

	cred, err := h.vault.Upsert(r.Context(), identityFrom(r.Context()), service, keyType, req.Value)
	if err != nil {
		writeServiceError(w, h.logger, "upsert secret", err)
		return
	}

	writeJSON(w, http.StatusOK, toCredentialResponse(cred))
}

// UpsertBothKeys stores the public and private keys of a service.
func (h *Handler) UpsertBothKeys(w http.ResponseWriter, r *http.Request) {
	service, err := model.ParseService(r.PathValue("service"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown service")
		return
	}

	var req UpsertBothKeysRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.vault.UpsertBothKeys(r.Context(), identityFrom(r.Context()), service, req.PublicKey, req.PrivateKey); err != nil {
		writeServiceError(w, h.logger, "upsert both keys", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetPlugin returns the masked private key of a connected service.
func (h *Handler) GetPlugin(w http.ResponseWriter, r *http.Request) {
	service, err := model.ParseService(r.PathValue("service"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown service")
		return
	}

	view, err := h.plugins.GetOne(r.Context(), identityFrom(r.Context()), service)
	if err != nil {
		writeServiceError(w, h.logger, "get plugin", err)
		return
	}

	writeJSON(w, http.StatusOK, toPluginResponse(view))
}

// ListPluginKeys returns every stored key of a service, masked, so operators
// can see which half of a connection is missing.
func (h *Handler) ListPluginKeys(w http.ResponseWriter, r *http.Request) {
	service, err := model.ParseService(r.PathValue("service"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown service")
		return
	}

	views, err := h.plugins.Keys(r.Context(), identityFrom(r.Context()), service)
	if err != nil {
		writeServiceError(w, h.logger, "list plugin keys", err)
		return
	}

	resp := make([]PluginResponse, 0, len(views))
	for _, v := range views {
		resp = append(resp, toPluginResponse(v))
	}
	writeJSON(w, http.StatusOK, resp)
}

// DisconnectPlugin removes every stored key of a service.
func (h *Handler) DisconnectPlugin(w http.ResponseWriter, r *http.Request) {
	service, err := model.ParseService(r.PathValue("service"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown service")
		return
	}

	if err := h.plugins.Disconnect(r.Context(), identityFrom(r.Context()), service); err != nil {
		writeServiceError(w, h.logger, "disconnect plugin", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListPhoneNumbers returns the voice provider's phone numbers.
func (h *Handler) ListPhoneNumbers(w http.ResponseWriter, r *http.Request) {
	numbers, err := h.plugins.ListPhoneNumbers(r.Context(), identityFrom(r.Context()))
	if err != nil {
		writeServiceError(w, h.logger, "list phone numbers", err)
		return
	}

	resp := make([]PhoneNumberResponse, 0, len(numbers))
	for _, n := range numbers {
		resp = append(resp, toPhoneNumberResponse(n))
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListAssistants returns the voice provider's assistants.
func (h *Handler) ListAssistants(w http.ResponseWriter, r *http.Request) {
	assistants, err := h.plugins.ListAssistants(r.Context(), identityFrom(r.Context()))
	if err != nil {
		writeServiceError(w, h.logger, "list assistants", err)
		return
	}

	resp := make([]AssistantResponse, 0, len(assistants))
	for _, a := range assistants {
		resp = append(resp, toAssistantResponse(a))
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListConversations returns the caller's conversations, newest first.
// Query parameters: status, cursor (last conversation ID seen), limit.
func (h *Handler) ListConversations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var filter driven.ConversationFilter
	if s := q.Get("status"); s != "" {
		status, err := model.ParseConversationStatus(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "unknown status")
			return
		}
		filter.Status = status
	}
	filter.Cursor = q.Get("cursor")

	limit, ok := parseLimit(w, q.Get("limit"))
	if !ok {
		return
	}
	if limit == 0 {
		limit = defaultConversationPageSize
	}
	filter.Limit = limit

	convs, err := h.conversations.List(r.Context(), identityFrom(r.Context()), filter)
	if err != nil {
		writeServiceError(w, h.logger, "list conversations", err)
		return
	}

	resp := ConversationListResponse{Conversations: make([]ConversationResponse, 0, len(convs))}
	for _, c := range convs {
		resp.Conversations = append(resp.Conversations, toConversationResponse(c))
	}
	if len(convs) == limit {
		resp.NextCursor = convs[len(convs)-1].ID
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetConversation returns one conversation of the caller's organization.
func (h *Handler) GetConversation(w http.ResponseWriter, r *http.Request) {
	conv, err := h.conversations.Get(r.Context(), identityFrom(r.Context()), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, h.logger, "get conversation", err)
		return
	}
	writeJSON(w, http.StatusOK, toConversationResponse(conv))
}

// UpdateConversationStatus applies an operator status toggle.
func (h *Handler) UpdateConversationStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	status, err := model.ParseConversationStatus(req.Status)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown status")
		return
	}

	conv, err := h.conversations.UpdateStatus(r.Context(), identityFrom(r.Context()), r.PathValue("id"), status, req.Version)
	if err != nil {
		writeServiceError(w, h.logger, "update conversation status", err)
		return
	}
	writeJSON(w, http.StatusOK, toConversationResponse(conv))
}

// GetContactSession returns the visitor behind a conversation.
func (h *Handler) GetContactSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.conversations.ContactSession(r.Context(), identityFrom(r.Context()), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, h.logger, "get contact session", err)
		return
	}
	writeJSON(w, http.StatusOK, toContactSessionResponse(session))
}

// CreateOperatorMessage appends an operator reply to a conversation.
func (h *Handler) CreateOperatorMessage(w http.ResponseWriter, r *http.Request) {
	var req PromptRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	msg, err := h.messages.CreateOperatorMessage(r.Context(), identityFrom(r.Context()), r.PathValue("id"), req.Prompt)
	if err != nil {
		writeServiceError(w, h.logger, "create operator message", err)
		return
	}
	writeJSON(w, http.StatusCreated, toMessageResponse(msg))
}

// ListMessages returns a page of a thread. Query parameters: cursor (last
// message ID seen), limit.
func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var cursor int64
	if c := q.Get("cursor"); c != "" {
		var err error
		if cursor, err = strconv.ParseInt(c, 10, 64); err != nil || cursor < 0 {
			writeError(w, http.StatusBadRequest, "invalid cursor")
			return
		}
	}

	limit, ok := parseLimit(w, q.Get("limit"))
	if !ok {
		return
	}

	page, err := h.messages.List(r.Context(), identityFrom(r.Context()), r.PathValue("threadID"), cursor, limit)
	if err != nil {
		writeServiceError(w, h.logger, "list messages", err)
		return
	}

	resp := MessagePageResponse{
		Messages:   make([]MessageResponse, 0, len(page.Messages)),
		NextCursor: page.NextCursor,
	}
	for _, m := range page.Messages {
		resp.Messages = append(resp.Messages, toMessageResponse(m))
	}
	writeJSON(w, http.StatusOK, resp)
}

// EnhanceResponse refines an operator's draft reply.
func (h *Handler) EnhanceResponse(w http.ResponseWriter, r *http.Request) {
	var req PromptRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	text, err := h.messages.EnhanceResponse(r.Context(), identityFrom(r.Context()), req.Prompt)
	if err != nil {
		writeServiceError(w, h.logger, "enhance response", err)
		return
	}
	writeJSON(w, http.StatusOK, EnhanceResponse{Text: text})
}

// AddDocument indexes a knowledge-base entry.
func (h *Handler) AddDocument(w http.ResponseWriter, r *http.Request) {
	var req AddDocumentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	doc, err := h.documents.Add(r.Context(), identityFrom(r.Context()), req.Title, req.Content)
	if err != nil {
		writeServiceError(w, h.logger, "add document", err)
		return
	}
	writeJSON(w, http.StatusCreated, toDocumentResponse(doc))
}

// ListDocuments returns the caller's knowledge base.
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := h.documents.List(r.Context(), identityFrom(r.Context()))
	if err != nil {
		writeServiceError(w, h.logger, "list documents", err)
		return
	}

	resp := make([]DocumentResponse, 0, len(docs))
	for _, d := range docs {
		resp = append(resp, toDocumentResponse(d))
	}
	writeJSON(w, http.StatusOK, resp)
}

// DeleteDocument removes a knowledge-base entry.
func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := h.documents.Delete(r.Context(), identityFrom(r.Context()), r.PathValue("id")); err != nil {
		writeServiceError(w, h.logger, "delete document", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// parseLimit parses an optional positive page size, writing a 400 on failure.
func parseLimit(w http.ResponseWriter, raw string) (int, bool) {
	if raw == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		writeError(w, http.StatusBadRequest, "invalid limit")
		return 0, false
	}
	return limit, true
}
