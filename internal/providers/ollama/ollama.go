// Package ollama adapts the internal chat format to a local Ollama server's
// native chat API.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"polychat/internal/core"
	"polychat/internal/httpclient"
	"polychat/internal/providers"
)

const (
	// DefaultBaseURL is used when the request carries no baseUrl.
	DefaultBaseURL = "http://localhost:11434"

	defaultModel      = "llama2"
	defaultNumPredict = 1024
)

func init() {
	providers.Register("ollama", func(httpClient *http.Client) core.Provider {
		return NewWithHTTPClient(httpClient)
	})
}

// Provider implements core.Provider for Ollama. No credential is required;
// the base URL is caller-supplied per request because every user runs their
// own server.
type Provider struct {
	httpClient *http.Client
}

// New creates a new Ollama provider.
func New() *Provider {
	return NewWithHTTPClient(httpclient.NewDefaultHTTPClient())
}

// NewWithHTTPClient creates a new Ollama provider with a custom HTTP client.
func NewWithHTTPClient(httpClient *http.Client) *Provider {
	if httpClient == nil {
		httpClient = httpclient.NewDefaultHTTPClient()
	}
	return &Provider{httpClient: httpClient}
}

// Name returns the provider identifier.
func (p *Provider) Name() string { return "ollama" }

// CheckAvailability verifies the local server is reachable.
func (p *Provider) CheckAvailability(ctx context.Context, baseURL string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(baseURL, "/")+"/api/tags", nil)
	if err != nil {
		return err
	}
	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return err
	}
	_ = resp.Body.Close() //nolint:errcheck
	return nil
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ollamaOptions is the sampler options block, always attached.
type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
	TopK        int     `json:"top_k"`
	NumPredict  int     `json:"num_predict"`
}

type ollamaRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  ollamaOptions   `json:"options"`
}

// ollamaResponse represents the fields of the response the gateway reads.
type ollamaResponse struct {
	Model   string `json:"model"`
	Message *struct {
		Content string `json:"content"`
	} `json:"message"`
	DoneReason      string `json:"done_reason"`
	PromptEvalCount *int   `json:"prompt_eval_count"`
	EvalCount       *int   `json:"eval_count"`
}

func (r *ollamaResponse) text() (string, bool) {
	if r.Message == nil || r.Message.Content == "" {
		return "", false
	}
	return r.Message.Content, true
}

// convertRequest builds the Ollama payload. Roles pass through natively
// (user/assistant, no translation) and streaming is pinned off.
func convertRequest(req *core.ChatRequest) *ollamaRequest {
	messages := make([]ollamaMessage, 0, len(req.History)+1)
	for _, m := range req.History {
		messages = append(messages, ollamaMessage{Role: m.Role, Content: m.Content})
	}
	messages = append(messages, ollamaMessage{Role: core.RoleUser, Content: req.Message})

	model := req.Model
	if model == "" {
		model = defaultModel
	}

	return &ollamaRequest{
		Model:    model,
		Messages: messages,
		Stream:   false,
		Options: ollamaOptions{
			Temperature: req.TemperatureOrDefault(),
			TopP:        0.9,
			TopK:        40,
			NumPredict:  req.MaxTokensOrDefault(defaultNumPredict),
		},
	}
}

// Call sends one chat request to the Ollama server. No retries.
func (p *Provider) Call(ctx context.Context, req *core.ChatRequest) (*core.ChatResult, error) {
	if err := providers.Validate(req, false); err != nil {
		return nil, err
	}

	baseURL := req.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	body, err := json.Marshal(convertRequest(req))
	if err != nil {
		return nil, core.NewInvalidRequestError("failed to marshal request: " + err.Error())
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(baseURL, "/")+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, core.NewInvalidRequestError("failed to create request: " + err.Error())
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, core.NewTransportError("ollama", err)
	}
	defer func() {
		_ = resp.Body.Close() //nolint:errcheck
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, core.NewTransportError("ollama", err)
	}

	if resp.StatusCode != http.StatusOK {
		// Ollama has no error-type vocabulary; classify by status alone.
		return nil, core.ParseUpstreamError("ollama", resp.StatusCode, respBody, nil)
	}

	var ollamaResp ollamaResponse
	if err := json.Unmarshal(respBody, &ollamaResp); err != nil {
		return nil, core.NewEmptyResponseError("ollama")
	}

	text, ok := ollamaResp.text()
	if !ok {
		return nil, core.NewEmptyResponseError("ollama")
	}

	result := &core.ChatResult{
		Text:  text,
		Model: ollamaResp.Model,
	}
	if result.Model == "" {
		result.Model = req.Model
	}
	result.Usage = &core.Usage{
		InputTokens:  ollamaResp.PromptEvalCount,
		OutputTokens: ollamaResp.EvalCount,
	}
	if ollamaResp.PromptEvalCount != nil || ollamaResp.EvalCount != nil {
		total := 0
		if ollamaResp.PromptEvalCount != nil {
			total += *ollamaResp.PromptEvalCount
		}
		if ollamaResp.EvalCount != nil {
			total += *ollamaResp.EvalCount
		}
		result.Usage.TotalTokens = &total
	}
	if ollamaResp.DoneReason != "" {
		dr := ollamaResp.DoneReason
		result.StopReason = &dr
	}
	return result, nil
}
