// Package gemini adapts the internal chat format to the Google Gemini
// generateContent API.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"

	"polychat/internal/core"
	"polychat/internal/httpclient"
	"polychat/internal/providers"
)

const (
	defaultBaseURL   = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel     = "gemini-1.5-flash"
	defaultMaxTokens = 1024

	// roleModel is Gemini's name for assistant turns. It stays inside this
	// package: inbound history says "assistant", outbound payloads say "model".
	roleModel = "model"
)

func init() {
	providers.Register("gemini", func(httpClient *http.Client) core.Provider {
		return NewWithHTTPClient(httpClient)
	})
}

// errorKinds maps Gemini's error.status values (google.rpc codes) onto the
// stable internal kinds.
var errorKinds = map[string]core.ErrorKind{
	"UNAUTHENTICATED":    core.KindAuth,
	"PERMISSION_DENIED":  core.KindPermission,
	"RESOURCE_EXHAUSTED": core.KindRateLimited,
	"INVALID_ARGUMENT":   core.KindInvalidRequest,
}

// Provider implements core.Provider for Google Gemini.
type Provider struct {
	httpClient *http.Client
	baseURL    string
}

// New creates a new Gemini provider.
func New() *Provider {
	return NewWithHTTPClient(httpclient.NewDefaultHTTPClient())
}

// NewWithHTTPClient creates a new Gemini provider with a custom HTTP client.
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
func (p *Provider) Name() string { return "gemini" }

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role"`
	Parts []geminiPart `json:"parts"`
}

// geminiGenerationConfig carries the generation options. Always attached to
// the request, never optional.
type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopK            int     `json:"topK"`
	TopP            float64 `json:"topP"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

// geminiResponse represents the fields of the response the gateway reads.
type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata *struct {
		PromptTokenCount     *int `json:"promptTokenCount"`
		CandidatesTokenCount *int `json:"candidatesTokenCount"`
		TotalTokenCount      *int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

// text returns the first candidate's first part, reporting absence explicitly.
func (r *geminiResponse) text() (string, bool) {
	if len(r.Candidates) == 0 || len(r.Candidates[0].Content.Parts) == 0 {
		return "", false
	}
	t := r.Candidates[0].Content.Parts[0].Text
	return t, t != ""
}

// convertRequest builds the Gemini payload. Internal assistant turns become
// role "model" on the wire.
func convertRequest(req *core.ChatRequest) *geminiRequest {
	contents := make([]geminiContent, 0, len(req.History)+1)
	for _, m := range req.History {
		role := core.RoleUser
		if m.Role == core.RoleAssistant {
			role = roleModel
		}
		contents = append(contents, geminiContent{
			Role:  role,
			Parts: []geminiPart{{Text: m.Content}},
		})
	}
	contents = append(contents, geminiContent{
		Role:  core.RoleUser,
		Parts: []geminiPart{{Text: req.Message}},
	})

	return &geminiRequest{
		Contents: contents,
		GenerationConfig: geminiGenerationConfig{
			Temperature:     req.TemperatureOrDefault(),
			TopK:            40,
			TopP:            0.95,
			MaxOutputTokens: req.MaxTokensOrDefault(defaultMaxTokens),
		},
	}
}

// Call sends one generateContent request to Gemini. No retries.
func (p *Provider) Call(ctx context.Context, req *core.ChatRequest) (*core.ChatResult, error) {
	if err := providers.Validate(req, true); err != nil {
		return nil, err
	}

	body, err := json.Marshal(convertRequest(req))
	if err != nil {
		return nil, core.NewInvalidRequestError("failed to marshal request: " + err.Error())
	}

	model := req.Model
	if model == "" {
		model = defaultModel
	}

	// The API key rides as a query parameter; Google's native Gemini API
	// offers no header-based alternative for this endpoint.
	endpoint := p.baseURL + "/models/" + url.PathEscape(model) + ":generateContent?key=" + url.QueryEscape(req.Credential)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, core.NewInvalidRequestError("failed to create request: " + err.Error())
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, core.NewTransportError("gemini", err)
	}
	defer func() {
		_ = resp.Body.Close() //nolint:errcheck
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, core.NewTransportError("gemini", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, core.ParseUpstreamError("gemini", resp.StatusCode, respBody, errorKinds)
	}

	var geminiResp geminiResponse
	if err := json.Unmarshal(respBody, &geminiResp); err != nil {
		return nil, core.NewEmptyResponseError("gemini")
	}

	text, ok := geminiResp.text()
	if !ok {
		return nil, core.NewEmptyResponseError("gemini")
	}

	result := &core.ChatResult{
		Text:  text,
		Model: model,
	}
	if geminiResp.UsageMetadata != nil {
		result.Usage = &core.Usage{
			InputTokens:  geminiResp.UsageMetadata.PromptTokenCount,
			OutputTokens: geminiResp.UsageMetadata.CandidatesTokenCount,
			TotalTokens:  geminiResp.UsageMetadata.TotalTokenCount,
		}
	}
	if fr := geminiResp.Candidates[0].FinishReason; fr != "" {
		result.StopReason = &fr
	}
	return result, nil
}
