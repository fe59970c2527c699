package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ericfisherdev/supportdesk/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status        string `json:"status"`
	LanguageModel string `json:"language_model"`
	Time          string `json:"time"`
}

// UpsertSecretRequest is the JSON body for storing one key.
type UpsertSecretRequest struct {
	KeyType string `json:"key_type"` // Defaults to "private".
	Value   string `json:"value"`
}

// UpsertBothKeysRequest is the JSON body for storing a service's key pair.
type UpsertBothKeysRequest struct {
	PublicKey  string `json:"public_key"`
	PrivateKey string `json:"private_key"`
}

// CredentialResponse describes a stored credential without its payload.
type CredentialResponse struct {
	Service   string `json:"service"`
	KeyType   string `json:"key_type"`
	KeyName   string `json:"key_name"`
	Version   int64  `json:"version"`
	UpdatedAt string `json:"updated_at"`
}

// PluginResponse is the operator view of a connected service.
type PluginResponse struct {
	Service   string `json:"service"`
	KeyType   string `json:"key_type"`
	KeyName   string `json:"key_name"`
	MaskedKey string `json:"masked_key"`
	IsActive  bool   `json:"is_active"`
	UpdatedAt string `json:"updated_at"`
}

// PublicKeyResponse carries a service's public key to widget clients.
type PublicKeyResponse struct {
	PublicKey string `json:"public_key"`
}

// PhoneNumberResponse is a voice-provider phone number.
type PhoneNumberResponse struct {
	ID          string `json:"id"`
	Number      string `json:"number"`
	Name        string `json:"name"`
	Status      string `json:"status"`
	Provider    string `json:"provider"`
	AssistantID string `json:"assistant_id,omitempty"`
	CreatedAt   string `json:"created_at"`
}

// AssistantResponse is a voice-provider assistant.
type AssistantResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	FirstMessage string `json:"first_message"`
	Model        string `json:"model"`
	CreatedAt    string `json:"created_at"`
}

// ConversationResponse is the JSON representation of a conversation.
type ConversationResponse struct {
	ID               string `json:"id"`
	OrganizationID   string `json:"organization_id"`
	ThreadID         string `json:"thread_id"`
	ContactSessionID string `json:"contact_session_id"`
	Status           string `json:"status"`
	Version          int64  `json:"version"`
	CreatedAt        string `json:"created_at"`
	UpdatedAt        string `json:"updated_at"`
}

// ConversationListResponse is one page of conversations.
type ConversationListResponse struct {
	Conversations []ConversationResponse `json:"conversations"`
	NextCursor    string                 `json:"next_cursor,omitempty"`
}

// UpdateStatusRequest is the JSON body for an operator status toggle.
// Version is optional; when set it must match the stored version.
type UpdateStatusRequest struct {
	Status  string `json:"status"`
	Version int64  `json:"version"`
}

// ContactSessionResponse is the JSON representation of a widget visitor.
type ContactSessionResponse struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Email     string            `json:"email"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	ExpiresAt string            `json:"expires_at"`
	CreatedAt string            `json:"created_at"`
}

// CreateContactSessionRequest is the JSON body for registering a visitor.
type CreateContactSessionRequest struct {
	Name     string            `json:"name"`
	Email    string            `json:"email"`
	Metadata map[string]string `json:"metadata"`
}

// StartConversationRequest is the JSON body for opening a widget conversation.
type StartConversationRequest struct {
	ContactSessionID string `json:"contact_session_id"`
}

// MessageResponse is one thread message with its content rendered to HTML.
type MessageResponse struct {
	ID        int64  `json:"id"`
	ThreadID  string `json:"thread_id"`
	Role      string `json:"role"`
	AgentName string `json:"agent_name,omitempty"`
	Content   string `json:"content"`
	HTML      string `json:"html"`
	CreatedAt string `json:"created_at"`
}

// MessagePageResponse is one page of a thread.
type MessagePageResponse struct {
	Messages   []MessageResponse `json:"messages"`
	NextCursor int64             `json:"next_cursor,omitempty"`
}

// PromptRequest is the JSON body for operator messages and draft enhancement.
type PromptRequest struct {
	Prompt string `json:"prompt"`
}

// EnhanceResponse carries a refined operator draft.
type EnhanceResponse struct {
	Text string `json:"text"`
}

// SendMessageRequest is the JSON body for a widget visitor message.
type SendMessageRequest struct {
	ContactSessionID string `json:"contact_session_id"`
	Content          string `json:"content"`
}

// SendMessageResponse returns the visitor message and the agent reply, if
// the agent answered.
type SendMessageResponse struct {
	Message MessageResponse  `json:"message"`
	Reply   *MessageResponse `json:"reply,omitempty"`
}

// AddDocumentRequest is the JSON body for adding a knowledge-base entry.
type AddDocumentRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// DocumentResponse is the JSON representation of a knowledge-base entry.
type DocumentResponse struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// toCredentialResponse converts a stored credential to its JSON representation.
func toCredentialResponse(c model.Credential) CredentialResponse {
	return CredentialResponse{
		Service:   string(c.Service),
		KeyType:   string(c.KeyType),
		KeyName:   c.KeyName,
		Version:   c.Version,
		UpdatedAt: formatTime(c.UpdatedAt),
	}
}

func toPluginResponse(v model.PluginView) PluginResponse {
	return PluginResponse{
		Service:   string(v.Service),
		KeyType:   string(v.KeyType),
		KeyName:   v.KeyName,
		MaskedKey: v.MaskedKey,
		IsActive:  v.IsActive,
		UpdatedAt: formatTime(v.UpdatedAt),
	}
}

func toPhoneNumberResponse(p model.PhoneNumber) PhoneNumberResponse {
	return PhoneNumberResponse{
		ID:          p.ID,
		Number:      p.Number,
		Name:        p.Name,
		Status:      p.Status,
		Provider:    p.Provider,
		AssistantID: p.AssistantID,
		CreatedAt:   formatTime(p.CreatedAt),
	}
}

func toAssistantResponse(a model.Assistant) AssistantResponse {
	return AssistantResponse{
		ID:           a.ID,
		Name:         a.Name,
		FirstMessage: a.FirstMessage,
		Model:        a.Model,
		CreatedAt:    formatTime(a.CreatedAt),
	}
}

// toConversationResponse converts a domain Conversation to its JSON representation.
func toConversationResponse(c model.Conversation) ConversationResponse {
	return ConversationResponse{
		ID:               c.ID,
		OrganizationID:   c.OrganizationID,
		ThreadID:         c.ThreadID,
		ContactSessionID: c.ContactSessionID,
		Status:           string(c.Status),
		Version:          c.Version,
		CreatedAt:        formatTime(c.CreatedAt),
		UpdatedAt:        formatTime(c.UpdatedAt),
	}
}

func toContactSessionResponse(s model.ContactSession) ContactSessionResponse {
	return ContactSessionResponse{
		ID:        s.ID,
		Name:      s.Name,
		Email:     s.Email,
		Metadata:  s.Metadata,
		ExpiresAt: formatTime(s.ExpiresAt),
		CreatedAt: formatTime(s.CreatedAt),
	}
}

// toMessageResponse converts a thread message and renders its markdown.
func toMessageResponse(m model.Message) MessageResponse {
	return MessageResponse{
		ID:        m.ID,
		ThreadID:  m.ThreadID,
		Role:      string(m.Role),
		AgentName: m.AgentName,
		Content:   m.Content,
		HTML:      renderMessageHTML(m.Content),
		CreatedAt: formatTime(m.CreatedAt),
	}
}

func toDocumentResponse(d model.Document) DocumentResponse {
	return DocumentResponse{
		ID:        d.ID,
		Title:     d.Title,
		Content:   d.Content,
		CreatedAt: formatTime(d.CreatedAt),
	}
}
