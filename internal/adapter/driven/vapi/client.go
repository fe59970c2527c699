// Package vapi implements the VoiceProvider port against the Vapi REST API.
package vapi

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gregjones/httpcache"

	"github.com/ericfisherdev/supportdesk/internal/domain/model"
	"github.com/ericfisherdev/supportdesk/internal/domain/port/driven"
)

// DefaultBaseURL is the public Vapi API endpoint.
const DefaultBaseURL = "https://api.vapi.ai"

// Compile-time interface satisfaction check.
var _ driven.VoiceProvider = (*Client)(nil)

// Client calls the Vapi API with one organization's private key.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewClient creates a Client whose transport caches responses in memory and
// revalidates them with ETags. The cache belongs to this client alone.
func NewClient(baseURL, apiKey string) *Client {
	httpClient := &http.Client{
		Transport: httpcache.NewMemoryCacheTransport(),
		Timeout:   15 * time.Second,
	}
	return NewClientWithHTTPClient(httpClient, baseURL, apiKey)
}

// NewClientWithHTTPClient creates a Client with a custom http.Client.
// This constructor is intended for testing, allowing injection of an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL, apiKey string) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
	}
}

// phoneNumberResponse is the subset of a Vapi phone number the dashboard shows.
type phoneNumberResponse struct {
	ID          string    `json:"id"`
	Number      string    `json:"number"`
	Name        string    `json:"name"`
	Status      string    `json:"status"`
	Provider    string    `json:"provider"`
	AssistantID string    `json:"assistantId"`
	CreatedAt   time.Time `json:"createdAt"`
}

// assistantResponse is the subset of a Vapi assistant the dashboard shows.
type assistantResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	FirstMessage string `json:"firstMessage"`
	Model        struct {
		Provider string `json:"provider"`
		Model    string `json:"model"`
	} `json:"model"`
	CreatedAt time.Time `json:"createdAt"`
}

// ListPhoneNumbers returns the phone numbers of the key's Vapi account.
func (c *Client) ListPhoneNumbers(ctx context.Context) ([]model.PhoneNumber, error) {
	var raw []phoneNumberResponse
	if err := c.get(ctx, "/phone-number", &raw); err != nil {
		return nil, err
	}

	numbers := make([]model.PhoneNumber, 0, len(raw))
	for _, r := range raw {
		numbers = append(numbers, model.PhoneNumber{
			ID:          r.ID,
			Number:      r.Number,
			Name:        r.Name,
			Status:      r.Status,
			Provider:    r.Provider,
			AssistantID: r.AssistantID,
			CreatedAt:   r.CreatedAt,
		})
	}
	return numbers, nil
}

// ListAssistants returns the assistants of the key's Vapi account.
func (c *Client) ListAssistants(ctx context.Context) ([]model.Assistant, error) {
	var raw []assistantResponse
	if err := c.get(ctx, "/assistant", &raw); err != nil {
		return nil, err
	}

	assistants := make([]model.Assistant, 0, len(raw))
	for _, r := range raw {
		assistants = append(assistants, model.Assistant{
			ID:           r.ID,
			Name:         r.Name,
			FirstMessage: r.FirstMessage,
			Model:        r.Model.Model,
			CreatedAt:    r.CreatedAt,
		})
	}
	return assistants, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("vapi: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("vapi: GET %s: %w: %w", path, model.ErrUpstreamService, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("vapi: GET %s returned %d: %s: %w", path, resp.StatusCode, strings.TrimSpace(string(body)), model.ErrUpstreamService)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("vapi: decode %s: %w: %w", path, model.ErrUpstreamService, err)
	}
	return nil
}

// Compile-time interface satisfaction check.
var _ driven.VoiceProviderFactory = (*Factory)(nil)

// Factory hands out one Client per organization so each keeps its own
// response cache. At most one key per organization stays in memory.
type Factory struct {
	baseURL string

	mu      sync.Mutex
	clients map[string]factoryEntry
}

type factoryEntry struct {
	keyHash [sha256.Size]byte
	client  *Client
}

// NewFactory creates a Factory for the given API base URL.
func NewFactory(baseURL string) *Factory {
	return &Factory{
		baseURL: baseURL,
		clients: make(map[string]factoryEntry),
	}
}

// Provider returns the organization's Client, building a new one on first
// use or when privateKey differs from the key the cached Client holds.
func (f *Factory) Provider(organizationID, privateKey string) driven.VoiceProvider {
	keyHash := sha256.Sum256([]byte(privateKey))

	f.mu.Lock()
	defer f.mu.Unlock()

	if e, ok := f.clients[organizationID]; ok && e.keyHash == keyHash {
		return e.client
	}
	c := NewClient(f.baseURL, privateKey)
	f.clients[organizationID] = factoryEntry{keyHash: keyHash, client: c}
	return c
}

// Forget drops the organization's Client.
func (f *Factory) Forget(organizationID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.clients, organizationID)
}
