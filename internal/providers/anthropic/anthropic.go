// Package anthropic adapts the internal chat format to the Anthropic messages API.
package anthropic

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
	defaultBaseURL      = "https://api.anthropic.com/v1"
	anthropicAPIVersion = "2023-06-01"
	defaultModel        = "claude-3-5-haiku-20241022"
	defaultMaxTokens    = 1024

	systemInstruction = "You are Claude, a helpful AI assistant created by Anthropic. Respond in the same language as the user's question."
)

func init() {
	providers.Register("anthropic", func(httpClient *http.Client) core.Provider {
		return NewWithHTTPClient(httpClient)
	})
}

var errorKinds = map[string]core.ErrorKind{
	"authentication_error":  core.KindAuth,
	"permission_error":      core.KindPermission,
	"rate_limit_error":      core.KindRateLimited,
	"billing_error":         core.KindBilling,
	"invalid_request_error": core.KindInvalidRequest,
}

// Provider implements core.Provider for Anthropic.
type Provider struct {
	httpClient *http.Client
	baseURL    string
}

// New creates a new Anthropic provider.
func New() *Provider {
	return NewWithHTTPClient(httpclient.NewDefaultHTTPClient())
}

// NewWithHTTPClient creates a new Anthropic provider with a custom HTTP client.
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
func (p *Provider) Name() string { return "anthropic" }

// anthropicMessage represents a message in Anthropic format. The messages
// list never carries a system entry; the instruction travels in the
// top-level system field.
type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// anthropicRequest represents the Anthropic messages API request body.
type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature"`
	Messages    []anthropicMessage `json:"messages"`
	System      string             `json:"system"`
}

// anthropicResponse represents the fields of the response the gateway reads.
type anthropicResponse struct {
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      *struct {
		InputTokens  *int `json:"input_tokens"`
		OutputTokens *int `json:"output_tokens"`
	} `json:"usage"`
}

// text returns the first content block's text, reporting absence explicitly.
func (r *anthropicResponse) text() (string, bool) {
	if len(r.Content) == 0 || r.Content[0].Text == "" {
		return "", false
	}
	return r.Content[0].Text, true
}

func convertRequest(req *core.ChatRequest) *anthropicRequest {
	messages := make([]anthropicMessage, 0, len(req.History)+1)
	for _, m := range req.History {
		role := core.RoleUser
		if m.Role == core.RoleAssistant {
			role = core.RoleAssistant
		}
		messages = append(messages, anthropicMessage{Role: role, Content: m.Content})
	}
	messages = append(messages, anthropicMessage{Role: core.RoleUser, Content: req.Message})

	model := req.Model
	if model == "" {
		model = defaultModel
	}

	return &anthropicRequest{
		Model:       model,
		MaxTokens:   req.MaxTokensOrDefault(defaultMaxTokens),
		Temperature: req.TemperatureOrDefault(),
		Messages:    messages,
		System:      systemInstruction,
	}
}

// Call sends one messages request to Anthropic. No retries.
func (p *Provider) Call(ctx context.Context, req *core.ChatRequest) (*core.ChatResult, error) {
	if err := providers.Validate(req, true); err != nil {
		return nil, err
	}

	body, err := json.Marshal(convertRequest(req))
	if err != nil {
		return nil, core.NewInvalidRequestError("failed to marshal request: " + err.Error())
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return nil, core.NewInvalidRequestError("failed to create request: " + err.Error())
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", req.Credential)
	httpReq.Header.Set("anthropic-version", anthropicAPIVersion)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, core.NewTransportError("anthropic", err)
	}
	defer func() {
		_ = resp.Body.Close() //nolint:errcheck
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, core.NewTransportError("anthropic", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, core.ParseUpstreamError("anthropic", resp.StatusCode, respBody, errorKinds)
	}

	var anthropicResp anthropicResponse
	if err := json.Unmarshal(respBody, &anthropicResp); err != nil {
		return nil, core.NewEmptyResponseError("anthropic")
	}

	text, ok := anthropicResp.text()
	if !ok {
		return nil, core.NewEmptyResponseError("anthropic")
	}

	result := &core.ChatResult{
		Text:  text,
		Model: anthropicResp.Model,
	}
	if result.Model == "" {
		result.Model = req.Model
	}
	if anthropicResp.Usage != nil {
		u := &core.Usage{
			InputTokens:  anthropicResp.Usage.InputTokens,
			OutputTokens: anthropicResp.Usage.OutputTokens,
		}
		if u.InputTokens != nil && u.OutputTokens != nil {
			total := *u.InputTokens + *u.OutputTokens
			u.TotalTokens = &total
		}
		result.Usage = u
	}
	if anthropicResp.StopReason != "" {
		sr := anthropicResp.StopReason
		result.StopReason = &sr
	}
	return result, nil
}
