package anthropic

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"polychat/internal/core"
)

func TestConvertRequest(t *testing.T) {
	tests := []struct {
		name    string
		input   *core.ChatRequest
		checkFn func(*testing.T, *anthropicRequest)
	}{
		{
			name:  "system travels in top-level field, not messages",
			input: &core.ChatRequest{Message: "Hello"},
			checkFn: func(t *testing.T, req *anthropicRequest) {
				if !strings.HasPrefix(req.System, "You are Claude") {
					t.Errorf("System = %q, want Claude instruction", req.System)
				}
				if len(req.Messages) != 1 {
					t.Fatalf("len(Messages) = %d, want 1", len(req.Messages))
				}
				if req.Messages[0].Role != "user" {
					t.Errorf("role = %q, want user", req.Messages[0].Role)
				}
			},
		},
		{
			name:  "defaults applied",
			input: &core.ChatRequest{Message: "Hello"},
			checkFn: func(t *testing.T, req *anthropicRequest) {
				if req.Model != "claude-3-5-haiku-20241022" {
					t.Errorf("Model = %q, want default haiku", req.Model)
				}
				if req.MaxTokens != 1024 {
					t.Errorf("MaxTokens = %d, want 1024", req.MaxTokens)
				}
				if req.Temperature != 0.7 {
					t.Errorf("Temperature = %v, want 0.7", req.Temperature)
				}
			},
		},
		{
			name: "history precedes new message",
			input: &core.ChatRequest{
				Message: "Continue",
				History: []core.HistoryMessage{
					{Role: "user", Content: "Hi"},
					{Role: "assistant", Content: "Hello"},
				},
			},
			checkFn: func(t *testing.T, req *anthropicRequest) {
				if len(req.Messages) != 3 {
					t.Fatalf("len(Messages) = %d, want 3", len(req.Messages))
				}
				if req.Messages[1].Role != "assistant" {
					t.Errorf("history role = %q, want assistant", req.Messages[1].Role)
				}
				if req.Messages[2].Content != "Continue" {
					t.Errorf("last content = %q, want Continue", req.Messages[2].Content)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.checkFn(t, convertRequest(tt.input))
		})
	}
}

func TestCallSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/messages" {
			t.Errorf("path = %q, want /messages", r.URL.Path)
		}
		if got := r.Header.Get("x-api-key"); got != "sk-ant-test" {
			t.Errorf("x-api-key = %q, want sk-ant-test", got)
		}
		if got := r.Header.Get("anthropic-version"); got != "2023-06-01" {
			t.Errorf("anthropic-version = %q, want 2023-06-01", got)
		}
		w.Write([]byte(`{
			"model": "claude-3-5-haiku-20241022",
			"content": [{"type": "text", "text": "Bonjour!"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 20, "output_tokens": 5}
		}`))
	}))
	defer srv.Close()

	p := NewWithHTTPClient(srv.Client())
	p.SetBaseURL(srv.URL)

	result, err := p.Call(context.Background(), &core.ChatRequest{Message: "Bonjour", Credential: "sk-ant-test"})
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if result.Text != "Bonjour!" {
		t.Errorf("Text = %q, want Bonjour!", result.Text)
	}
	if result.Usage == nil || result.Usage.TotalTokens == nil || *result.Usage.TotalTokens != 25 {
		t.Errorf("Usage = %+v, want computed total 25", result.Usage)
	}
	if result.StopReason == nil || *result.StopReason != "end_turn" {
		t.Errorf("StopReason = %v, want end_turn", result.StopReason)
	}
}

func TestCallErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantKind core.ErrorKind
	}{
		{
			name:     "authentication error",
			status:   http.StatusUnauthorized,
			body:     `{"type": "error", "error": {"type": "authentication_error", "message": "invalid x-api-key"}}`,
			wantKind: core.KindAuth,
		},
		{
			name:     "permission error",
			status:   http.StatusForbidden,
			body:     `{"type": "error", "error": {"type": "permission_error", "message": "not allowed"}}`,
			wantKind: core.KindPermission,
		},
		{
			name:     "rate limit",
			status:   http.StatusTooManyRequests,
			body:     `{"type": "error", "error": {"type": "rate_limit_error", "message": "slow down"}}`,
			wantKind: core.KindRateLimited,
		},
		{
			name:     "billing",
			status:   http.StatusBadRequest,
			body:     `{"type": "error", "error": {"type": "billing_error", "message": "credit balance too low"}}`,
			wantKind: core.KindBilling,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			p := NewWithHTTPClient(srv.Client())
			p.SetBaseURL(srv.URL)

			_, err := p.Call(context.Background(), &core.ChatRequest{Message: "Hi", Credential: "sk-ant-test"})
			var upstream *core.UpstreamError
			if !errors.As(err, &upstream) {
				t.Fatalf("Call() error = %v, want *core.UpstreamError", err)
			}
			if upstream.Kind != tt.wantKind {
				t.Errorf("Kind = %q, want %q", upstream.Kind, tt.wantKind)
			}
		})
	}
}

func TestCallEmptyContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"model": "claude-3-5-haiku-20241022", "content": []}`))
	}))
	defer srv.Close()

	p := NewWithHTTPClient(srv.Client())
	p.SetBaseURL(srv.URL)

	_, err := p.Call(context.Background(), &core.ChatRequest{Message: "Hi", Credential: "sk-ant-test"})
	var upstream *core.UpstreamError
	if !errors.As(err, &upstream) || upstream.Kind != core.KindEmptyUpstreamResponse {
		t.Fatalf("Call() error = %v, want empty_upstream_response", err)
	}
}
