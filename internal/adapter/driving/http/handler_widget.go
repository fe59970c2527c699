package httphandler

import (
	"net/http"

	"github.com/ericfisherdev/supportdesk/internal/domain/model"
)

// CreateContactSession registers a widget visitor for an organization.
func (h *Handler) CreateContactSession(w http.ResponseWriter, r *http.Request) {
	var req CreateContactSessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	session, err := h.messages.CreateContactSession(r.Context(), r.PathValue("org"), req.Name, req.Email, req.Metadata)
	if err != nil {
		writeServiceError(w, h.logger, "create contact session", err)
		return
	}
	writeJSON(w, http.StatusCreated, toContactSessionResponse(session))
}

// StartConversation opens a conversation for a widget visitor.
func (h *Handler) StartConversation(w http.ResponseWriter, r *http.Request) {
	var req StartConversationRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	conv, err := h.messages.StartConversation(r.Context(), r.PathValue("org"), req.ContactSessionID)
	if err != nil {
		writeServiceError(w, h.logger, "start conversation", err)
		return
	}
	writeJSON(w, http.StatusCreated, toConversationResponse(conv))
}

// SendUserMessage appends a visitor message and returns the agent reply, if any.
func (h *Handler) SendUserMessage(w http.ResponseWriter, r *http.Request) {
	var req SendMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	msg, reply, err := h.messages.SendUserMessage(r.Context(), r.PathValue("org"), r.PathValue("id"), req.ContactSessionID, req.Content)
	if err != nil {
		writeServiceError(w, h.logger, "send user message", err)
		return
	}

	resp := SendMessageResponse{Message: toMessageResponse(msg)}
	if reply != nil {
		out := toMessageResponse(*reply)
		resp.Reply = &out
	}
	writeJSON(w, http.StatusCreated, resp)
}

// GetPublicKey returns the public key of a connected service so the widget
// can open a voice session. The private key is never served here.
func (h *Handler) GetPublicKey(w http.ResponseWriter, r *http.Request) {
	service, err := model.ParseService(r.PathValue("service"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown service")
		return
	}

	key, err := h.plugins.PublicKey(r.Context(), r.PathValue("org"), service)
	if err != nil {
		writeServiceError(w, h.logger, "get public key", err)
		return
	}
	writeJSON(w, http.StatusOK, PublicKeyResponse{PublicKey: key})
}
