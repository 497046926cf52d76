package providers

import (
	"context"
	"errors"
	"testing"

	"polychat/internal/core"
)

type stubProvider struct {
	name   string
	calls  int
	result *core.ChatResult
	err    error
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Call(_ context.Context, _ *core.ChatRequest) (*core.ChatResult, error) {
	s.calls++
	return s.result, s.err
}

func TestDispatch(t *testing.T) {
	stub := &stubProvider{name: "openai", result: &core.ChatResult{Text: "hi"}}
	d := NewDispatcherWith(map[string]core.Provider{"openai": stub})

	result, err := d.Dispatch(context.Background(), "openai", &core.ChatRequest{Message: "Hi"})
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if result.Text != "hi" {
		t.Errorf("Text = %q, want hi", result.Text)
	}
	if stub.calls != 1 {
		t.Errorf("calls = %d, want 1", stub.calls)
	}
}

func TestDispatchCaseInsensitive(t *testing.T) {
	stub := &stubProvider{name: "anthropic", result: &core.ChatResult{}}
	d := NewDispatcherWith(map[string]core.Provider{"anthropic": stub})

	if _, err := d.Dispatch(context.Background(), "Anthropic", &core.ChatRequest{Message: "Hi"}); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if stub.calls != 1 {
		t.Errorf("calls = %d, want 1", stub.calls)
	}
}

func TestDispatchUnknownProvider(t *testing.T) {
	d := NewDispatcherWith(map[string]core.Provider{})

	_, err := d.Dispatch(context.Background(), "mystery", &core.ChatRequest{Message: "Hi"})
	var upstream *core.UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("Dispatch() error = %v, want *core.UpstreamError", err)
	}
	if upstream.Kind != core.KindInvalidRequest {
		t.Errorf("Kind = %q, want %q", upstream.Kind, core.KindInvalidRequest)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name              string
		req               *core.ChatRequest
		requireCredential bool
		wantErr           bool
	}{
		{"valid with credential", &core.ChatRequest{Message: "Hi", Credential: "key"}, true, false},
		{"valid without credential when not required", &core.ChatRequest{Message: "Hi"}, false, false},
		{"missing message", &core.ChatRequest{Credential: "key"}, true, true},
		{"missing credential when required", &core.ChatRequest{Message: "Hi"}, true, true},
		{"nil request", nil, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.req, tt.requireCredential)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
