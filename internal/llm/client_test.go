package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewClient(t *testing.T) {
	client := NewClient("http://localhost:8081", "test-key", "test-model")
	if client == nil {
		t.Fatal("NewClient() returned nil")
	}
	if client.BaseURL != "http://localhost:8081" {
		t.Errorf("NewClient() BaseURL = %v, want http://localhost:8081", client.BaseURL)
	}
	if client.APIKey != "test-key" {
		t.Errorf("NewClient() APIKey = %v, want test-key", client.APIKey)
	}
	if client.Model != "test-model" {
		t.Errorf("NewClient() Model = %v, want test-model", client.Model)
	}
	if client.client == nil {
		t.Error("NewClient() client should not be nil")
	}
}

func TestClient_ChatWithMessages(t *testing.T) {
	tests := []struct {
		name       string
		messages   []Message
		params     ChatParams
		serverResp func(t *testing.T, w http.ResponseWriter, r *http.Request)
		wantReply  string
		wantErr    bool
		wantErrIs  error
	}{
		{
			name: "successful chat",
			messages: []Message{
				{Role: "system", Content: "You are helpful."},
				{Role: "user", Content: "Hello"},
			},
			serverResp: func(t *testing.T, w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("expected POST, got %s", r.Method)
				}
				if r.URL.Path != "/v1/chat/completions" {
					t.Errorf("expected /v1/chat/completions, got %s", r.URL.Path)
				}
				if !strings.Contains(r.Header.Get("Authorization"), "Bearer") {
					t.Error("missing Authorization header")
				}

				var req ChatRequest
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
					t.Errorf("failed to decode request: %v", err)
				}
				if len(req.Messages) != 2 {
					t.Errorf("expected 2 messages, got %d", len(req.Messages))
				}

				resp := ChatResponse{
					ID:     "test-id",
					Object: "chat.completion",
					Choices: []ChatChoice{
						{
							Index: 0,
							Message: Message{
								Role:    "assistant",
								Content: "Hi there!",
							},
							FinishReason: "stop",
						},
					},
				}
				w.Header().Set("Content-Type", "application/json")
				_ = json.NewEncoder(w).Encode(resp)
			},
			wantReply: "Hi there!",
		},
		{
			name:     "model override in params",
			messages: []Message{{Role: "user", Content: "Hello"}},
			params:   ChatParams{Model: "other-model"},
			serverResp: func(t *testing.T, w http.ResponseWriter, r *http.Request) {
				var req ChatRequest
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
					t.Errorf("failed to decode request: %v", err)
				}
				if req.Model != "other-model" {
					t.Errorf("expected model other-model, got %s", req.Model)
				}
				resp := ChatResponse{
					Choices: []ChatChoice{
						{Message: Message{Role: "assistant", Content: "ok"}},
					},
				}
				_ = json.NewEncoder(w).Encode(resp)
			},
			wantReply: "ok",
		},
		{
			name:     "no messages",
			messages: nil,
			serverResp: func(t *testing.T, w http.ResponseWriter, r *http.Request) {
				t.Error("server should not be called")
			},
			wantErr: true,
		},
		{
			name:     "no choices returned",
			messages: []Message{{Role: "user", Content: "Hello"}},
			serverResp: func(t *testing.T, w http.ResponseWriter, r *http.Request) {
				resp := ChatResponse{ID: "test-id", Object: "chat.completion"}
				_ = json.NewEncoder(w).Encode(resp)
			},
			wantErr: true,
		},
		{
			name:     "rate limited maps to ErrRateLimited",
			messages: []Message{{Role: "user", Content: "Hello"}},
			serverResp: func(t *testing.T, w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte("slow down"))
			},
			wantErr:   true,
			wantErrIs: ErrRateLimited,
		},
		{
			name:     "policy rejection maps to ErrContentPolicy",
			messages: []Message{{Role: "user", Content: "Hello"}},
			serverResp: func(t *testing.T, w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error":{"code":"content_policy_violation"}}`))
			},
			wantErr:   true,
			wantErrIs: ErrContentPolicy,
		},
		{
			name:     "gateway timeout maps to ErrTimeout",
			messages: []Message{{Role: "user", Content: "Hello"}},
			serverResp: func(t *testing.T, w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusGatewayTimeout)
			},
			wantErr:   true,
			wantErrIs: ErrTimeout,
		},
		{
			name:     "server error stays untyped",
			messages: []Message{{Role: "user", Content: "Hello"}},
			serverResp: func(t *testing.T, w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte("internal server error"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				tt.serverResp(t, w, r)
			}))
			defer server.Close()

			client := NewClient(server.URL, "test-key", "test-model")
			reply, err := client.ChatWithMessages(context.Background(), tt.messages, tt.params)

			if tt.wantErr {
				if err == nil {
					t.Fatal("ChatWithMessages() expected error, got nil")
				}
				if tt.wantErrIs != nil && !errors.Is(err, tt.wantErrIs) {
					t.Errorf("ChatWithMessages() error = %v, want %v", err, tt.wantErrIs)
				}
				if tt.wantErrIs == nil && IsTransient(err) {
					t.Errorf("ChatWithMessages() error %v should not be transient", err)
				}
				return
			}

			if err != nil {
				t.Fatalf("ChatWithMessages() unexpected error: %v", err)
			}
			if reply != tt.wantReply {
				t.Errorf("ChatWithMessages() reply = %v, want %v", reply, tt.wantReply)
			}
		})
	}
}

func TestIsTransient(t *testing.T) {
	if !IsTransient(ErrRateLimited) {
		t.Error("ErrRateLimited should be transient")
	}
	if !IsTransient(ErrTimeout) {
		t.Error("ErrTimeout should be transient")
	}
	if IsTransient(ErrContentPolicy) {
		t.Error("ErrContentPolicy should not be transient")
	}
	if IsTransient(errors.New("boom")) {
		t.Error("untyped errors should not be transient")
	}
}
