package application_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ericfisherdev/supportdesk/internal/domain/model"
	"github.com/ericfisherdev/supportdesk/internal/domain/port/driven"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- Credential store ---

type credentialKey struct {
	org     string
	service model.Service
	keyType model.KeyType
}

type mockCredentialStore struct {
	mu     sync.Mutex
	rows   map[credentialKey]model.Credential
	nextID int64
}

func newMockCredentialStore() *mockCredentialStore {
	return &mockCredentialStore{rows: make(map[credentialKey]model.Credential)}
}

func (m *mockCredentialStore) Upsert(_ context.Context, cred model.Credential) (model.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := credentialKey{cred.OrganizationID, cred.Service, cred.KeyType}
	if existing, ok := m.rows[k]; ok {
		existing.KeyName = cred.KeyName
		existing.EncryptedPayload = cred.EncryptedPayload
		existing.IsActive = cred.IsActive
		existing.Version++
		m.rows[k] = existing
		return existing, nil
	}

	m.nextID++
	cred.ID = m.nextID
	cred.Version = 1
	m.rows[k] = cred
	return cred, nil
}

func (m *mockCredentialStore) Get(_ context.Context, org string, service model.Service, keyType model.KeyType) (model.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cred, ok := m.rows[credentialKey{org, service, keyType}]
	if !ok {
		return model.Credential{}, fmt.Errorf("credential %s/%s/%s: %w", org, service, keyType, model.ErrNotFound)
	}
	return cred, nil
}

func (m *mockCredentialStore) ListByService(_ context.Context, org string, service model.Service) ([]model.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []model.Credential
	for k, cred := range m.rows {
		if k.org == org && k.service == service {
			out = append(out, cred)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockCredentialStore) DeleteByService(_ context.Context, org string, service model.Service) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for k := range m.rows {
		if k.org == org && k.service == service {
			delete(m.rows, k)
			n++
		}
	}
	if n == 0 {
		return 0, fmt.Errorf("plugin %s/%s: %w", org, service, model.ErrNotFound)
	}
	return n, nil
}

func (m *mockCredentialStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

// --- Conversation and contact session stores ---

type mockConversationStore struct {
	mu    sync.Mutex
	convs map[string]model.Conversation
	order []string

	// beforeUpdate runs once before the next UpdateStatus, simulating a
	// concurrent writer.
	beforeUpdate func()
}

func newMockConversationStore() *mockConversationStore {
	return &mockConversationStore{convs: make(map[string]model.Conversation)}
}

func (m *mockConversationStore) Create(_ context.Context, conv model.Conversation) (model.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	conv.Version = 1
	m.convs[conv.ID] = conv
	m.order = append(m.order, conv.ID)
	return conv, nil
}

func (m *mockConversationStore) GetByID(_ context.Context, id string) (model.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	conv, ok := m.convs[id]
	if !ok {
		return model.Conversation{}, fmt.Errorf("conversation %q: %w", id, model.ErrNotFound)
	}
	return conv, nil
}

func (m *mockConversationStore) GetByThreadID(_ context.Context, threadID string) (model.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, conv := range m.convs {
		if conv.ThreadID == threadID {
			return conv, nil
		}
	}
	return model.Conversation{}, fmt.Errorf("thread %q: %w", threadID, model.ErrNotFound)
}

func (m *mockConversationStore) ListByOrganization(_ context.Context, org string, filter driven.ConversationFilter) ([]model.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []model.Conversation
	for i := len(m.order) - 1; i >= 0; i-- {
		conv := m.convs[m.order[i]]
		if conv.OrganizationID != org {
			continue
		}
		if filter.Status != "" && conv.Status != filter.Status {
			continue
		}
		out = append(out, conv)
	}
	return out, nil
}

func (m *mockConversationStore) UpdateStatus(_ context.Context, id string, status model.ConversationStatus, expectedVersion int64) (model.Conversation, error) {
	if hook := m.beforeUpdate; hook != nil {
		m.beforeUpdate = nil
		hook()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	conv, ok := m.convs[id]
	if !ok {
		return model.Conversation{}, fmt.Errorf("conversation %q: %w", id, model.ErrNotFound)
	}
	if conv.Version != expectedVersion {
		return conv, fmt.Errorf("conversation %q: %w", id, model.ErrConflict)
	}
	conv.Status = status
	conv.Version++
	m.convs[id] = conv
	return conv, nil
}

// force sets a conversation's status directly, bumping its version.
func (m *mockConversationStore) force(id string, status model.ConversationStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()

	conv := m.convs[id]
	conv.Status = status
	conv.Version++
	m.convs[id] = conv
}

type mockSessionStore struct {
	mu       sync.Mutex
	sessions map[string]model.ContactSession
	sweepErr error
	sweeps   int
}

func newMockSessionStore() *mockSessionStore {
	return &mockSessionStore{sessions: make(map[string]model.ContactSession)}
}

func (m *mockSessionStore) Create(_ context.Context, session model.ContactSession) (model.ContactSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.ID] = session
	return session, nil
}

func (m *mockSessionStore) GetByID(_ context.Context, id string) (model.ContactSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[id]
	if !ok {
		return model.ContactSession{}, fmt.Errorf("contact session %q: %w", id, model.ErrNotFound)
	}
	return session, nil
}

func (m *mockSessionStore) DeleteExpired(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sweeps++
	if m.sweepErr != nil {
		return 0, m.sweepErr
	}
	var n int64
	for id, s := range m.sessions {
		if s.ExpiresAt.Before(cutoff) {
			delete(m.sessions, id)
			n++
		}
	}
	return n, nil
}

func (m *mockSessionStore) sweepCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sweeps
}

// --- Thread store ---

type mockThreadStore struct {
	mu     sync.Mutex
	msgs   []model.Message
	nextID int64
}

func (m *mockThreadStore) Append(_ context.Context, msg model.Message) (model.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	msg.ID = m.nextID
	m.msgs = append(m.msgs, msg)
	return msg, nil
}

func (m *mockThreadStore) List(_ context.Context, threadID string, cursor int64, limit int) (model.MessagePage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var page model.MessagePage
	for _, msg := range m.msgs {
		if msg.ThreadID != threadID || msg.ID <= cursor {
			continue
		}
		if len(page.Messages) == limit {
			page.NextCursor = page.Messages[limit-1].ID
			break
		}
		page.Messages = append(page.Messages, msg)
	}
	return page, nil
}

func (m *mockThreadStore) Recent(_ context.Context, threadID string, limit int) ([]model.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []model.Message
	for _, msg := range m.msgs {
		if msg.ThreadID == threadID {
			out = append(out, msg)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (m *mockThreadStore) thread(threadID string) []model.Message {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []model.Message
	for _, msg := range m.msgs {
		if msg.ThreadID == threadID {
			out = append(out, msg)
		}
	}
	return out
}

// --- Document index ---

type mockDocumentIndex struct {
	docs []model.Document

	searchedNamespace string
	searchedLimit     int
}

func (m *mockDocumentIndex) Add(_ context.Context, doc model.Document) (model.Document, error) {
	m.docs = append(m.docs, doc)
	return doc, nil
}

func (m *mockDocumentIndex) List(_ context.Context, namespace string) ([]model.Document, error) {
	var out []model.Document
	for _, d := range m.docs {
		if d.Namespace == namespace {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *mockDocumentIndex) Delete(_ context.Context, namespace, id string) error {
	for i, d := range m.docs {
		if d.Namespace == namespace && d.ID == id {
			m.docs = append(m.docs[:i], m.docs[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("document %q: %w", id, model.ErrNotFound)
}

func (m *mockDocumentIndex) Search(_ context.Context, namespace, query string, limit int) ([]model.SearchResult, error) {
	m.searchedNamespace = namespace
	m.searchedLimit = limit

	var out []model.SearchResult
	for _, d := range m.docs {
		if d.Namespace == namespace && strings.Contains(strings.ToLower(d.Content), strings.ToLower(query)) {
			out = append(out, model.SearchResult{DocumentID: d.ID, Title: d.Title, Text: d.Content})
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// --- Language model ---

// scriptedModel replays canned completions in order and records requests.
type scriptedModel struct {
	mu       sync.Mutex
	replies  []driven.Completion
	err      error
	requests []driven.CompletionRequest
}

func (m *scriptedModel) Complete(_ context.Context, req driven.CompletionRequest) (driven.Completion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, req)
	if m.err != nil {
		return driven.Completion{}, m.err
	}
	if len(m.replies) == 0 {
		return driven.Completion{Text: "default reply"}, nil
	}
	reply := m.replies[0]
	m.replies = m.replies[1:]
	return reply, nil
}

// --- Voice provider ---

// mockVoiceProvider is also its own factory.
type mockVoiceProvider struct {
	org        string
	key        string
	forgotten  []string
	numbers    []model.PhoneNumber
	assistants []model.Assistant
	err        error
}

func (m *mockVoiceProvider) Provider(org, key string) driven.VoiceProvider {
	m.org, m.key = org, key
	return m
}

func (m *mockVoiceProvider) Forget(org string) {
	m.forgotten = append(m.forgotten, org)
}

func (m *mockVoiceProvider) ListPhoneNumbers(_ context.Context) ([]model.PhoneNumber, error) {
	return m.numbers, m.err
}

func (m *mockVoiceProvider) ListAssistants(_ context.Context) ([]model.Assistant, error) {
	return m.assistants, m.err
}
