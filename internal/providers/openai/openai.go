// Package openai adapts the internal chat format to the OpenAI chat completions API.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"polychat/internal/core"
	"polychat/internal/httpclient"
	"polychat/internal/providers"
)

const (
	defaultBaseURL   = "https://api.openai.com/v1"
	defaultModel     = "gpt-4o-mini"
	defaultMaxTokens = 1000

	systemInstruction = "You are a helpful AI assistant. Respond in the same language as the user's question."
)

func init() {
	providers.Register("openai", func(httpClient *http.Client) core.Provider {
		return NewWithHTTPClient(httpClient)
	})
}

// errorKinds maps OpenAI's error.type values onto the stable internal kinds.
// Anything absent classifies by HTTP status, then KindUnknown.
var errorKinds = map[string]core.ErrorKind{
	"invalid_api_key":       core.KindAuth,
	"invalid_request_error": core.KindInvalidRequest,
	"insufficient_quota":    core.KindBilling,
	"rate_limit_exceeded":   core.KindRateLimited,
	"model_not_found":       core.KindInvalidRequest,
}

// Provider implements core.Provider for OpenAI.
type Provider struct {
	httpClient *http.Client
	baseURL    string
}

// New creates a new OpenAI provider.
func New() *Provider {
	return NewWithHTTPClient(httpclient.NewDefaultHTTPClient())
}

// NewWithHTTPClient creates a new OpenAI provider with a custom HTTP client.
// If httpClient is nil, a default client is used.
func NewWithHTTPClient(httpClient *http.Client) *Provider {
	if httpClient == nil {
		httpClient = httpclient.NewDefaultHTTPClient()
	}
	return &Provider{httpClient: httpClient, baseURL: defaultBaseURL}
}

// SetBaseURL allows configuring a custom base URL for the provider.
func (p *Provider) SetBaseURL(url string) {
	p.baseURL = url
}

// Name returns the provider identifier.
func (p *Provider) Name() string { return "openai" }

// openaiMessage represents a message in OpenAI format.
type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// openaiRequest represents the OpenAI chat completions request body.
type openaiRequest struct {
	Model            string          `json:"model"`
	Messages         []openaiMessage `json:"messages"`
	Temperature      float64         `json:"temperature"`
	MaxTokens        int             `json:"max_tokens"`
	TopP             float64         `json:"top_p"`
	FrequencyPenalty float64         `json:"frequency_penalty"`
	PresencePenalty  float64         `json:"presence_penalty"`
}

// openaiResponse represents the fields of the OpenAI response the gateway
// reads. Everything is optional; extraction tolerates absence.
type openaiResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     *int `json:"prompt_tokens"`
		CompletionTokens *int `json:"completion_tokens"`
		TotalTokens      *int `json:"total_tokens"`
	} `json:"usage"`
}

// text returns the first choice's content, reporting absence explicitly.
func (r *openaiResponse) text() (string, bool) {
	if len(r.Choices) == 0 || r.Choices[0].Message.Content == "" {
		return "", false
	}
	return r.Choices[0].Message.Content, true
}

// convertRequest builds the OpenAI payload: a fixed leading system
// instruction, then history, then the new user message.
func convertRequest(req *core.ChatRequest) *openaiRequest {
	messages := make([]openaiMessage, 0, len(req.History)+2)
	messages = append(messages, openaiMessage{Role: "system", Content: systemInstruction})

	for _, m := range req.History {
		role := core.RoleUser
		if m.Role == core.RoleAssistant {
			role = core.RoleAssistant
		}
		messages = append(messages, openaiMessage{Role: role, Content: m.Content})
	}
	messages = append(messages, openaiMessage{Role: core.RoleUser, Content: req.Message})

	model := req.Model
	if model == "" {
		model = defaultModel
	}

	return &openaiRequest{
		Model:       model,
		Messages:    messages,
		Temperature: req.TemperatureOrDefault(),
		MaxTokens:   req.MaxTokensOrDefault(defaultMaxTokens),
		TopP:        1,
	}
}

// Call sends one chat completion request to OpenAI. No retries.
func (p *Provider) Call(ctx context.Context, req *core.ChatRequest) (*core.ChatResult, error) {
	if err := providers.Validate(req, true); err != nil {
		return nil, err
	}

	body, err := json.Marshal(convertRequest(req))
	if err != nil {
		return nil, core.NewInvalidRequestError("failed to marshal request: " + err.Error())
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, core.NewInvalidRequestError("failed to create request: " + err.Error())
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+req.Credential)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, core.NewTransportError("openai", err)
	}
	defer func() {
		_ = resp.Body.Close() //nolint:errcheck
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, core.NewTransportError("openai", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, core.ParseUpstreamError("openai", resp.StatusCode, respBody, errorKinds)
	}

	var openaiResp openaiResponse
	if err := json.Unmarshal(respBody, &openaiResp); err != nil {
		return nil, core.NewEmptyResponseError("openai")
	}

	text, ok := openaiResp.text()
	if !ok {
		return nil, core.NewEmptyResponseError("openai")
	}

	result := &core.ChatResult{
		Text:  text,
		Model: openaiResp.Model,
	}
	if result.Model == "" {
		result.Model = req.Model
	}
	if openaiResp.Usage != nil {
		result.Usage = &core.Usage{
			InputTokens:  openaiResp.Usage.PromptTokens,
			OutputTokens: openaiResp.Usage.CompletionTokens,
			TotalTokens:  openaiResp.Usage.TotalTokens,
		}
	}
	if fr := openaiResp.Choices[0].FinishReason; fr != "" {
		result.StopReason = &fr
	}
	return result, nil
}
