package core

// RoleUser and RoleAssistant are the only roles the gateway accepts in
// conversation history. Provider-specific vocabularies (Gemini's "model",
// OpenAI's "system") are adapter-internal and never exposed inward.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// HistoryMessage is a single prior turn in a conversation, oldest first.
type HistoryMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the internal chat format every provider adapter consumes.
type ChatRequest struct {
	Message     string           `json:"message"`
	Credential  string           `json:"apiKey,omitempty"`
	History     []HistoryMessage `json:"conversationHistory,omitempty"`
	Model       string           `json:"model,omitempty"`
	Temperature *float64         `json:"temperature,omitempty"`
	MaxTokens   *int             `json:"maxTokens,omitempty"`
	BaseURL     string           `json:"baseUrl,omitempty"`
}

// TemperatureOrDefault returns the request temperature, defaulting to 0.7.
func (r *ChatRequest) TemperatureOrDefault() float64 {
	if r.Temperature != nil {
		return *r.Temperature
	}
	return 0.7
}

// MaxTokensOrDefault returns the requested output token cap, falling back to
// the provider-specific default.
func (r *ChatRequest) MaxTokensOrDefault(def int) int {
	if r.MaxTokens != nil {
		return *r.MaxTokens
	}
	return def
}

// Usage holds token counts for one completion. Fields are pointers because
// not every provider reports every count; absent is distinct from zero.
type Usage struct {
	InputTokens  *int `json:"prompt_tokens"`
	OutputTokens *int `json:"completion_tokens"`
	TotalTokens  *int `json:"total_tokens"`
}

// ChatResult is the normalized outcome of one provider call. It lives for a
// single request/response cycle and is never persisted.
type ChatResult struct {
	Text       string  `json:"message"`
	Model      string  `json:"model"`
	Usage      *Usage  `json:"usage,omitempty"`
	StopReason *string `json:"stop_reason,omitempty"`
}

// Image generation enumerations. Unrecognized values substitute the default
// rather than failing the request.
var (
	ValidImageSizes  = []string{"256x256", "512x512", "1024x1024", "1792x1024", "1024x1792"}
	ValidImageStyles = []string{"natural", "vivid", "artistic", "photographic", "anime", "cartoon"}
	ValidImageModels = []string{"raphael-creative", "raphael-realistic", "raphael-artistic", "raphael-anime"}
)

const (
	DefaultImageSize  = "1024x1024"
	DefaultImageStyle = "natural"
	DefaultImageModel = "raphael-creative"
	MaxImageCount     = 4
)

// ImageRequest is the internal image generation request.
type ImageRequest struct {
	Prompt   string `json:"prompt"`
	ModelTag string `json:"model,omitempty"`
	Size     string `json:"size,omitempty"`
	Style    string `json:"style,omitempty"`
	Count    int    `json:"n,omitempty"`
}

// Sanitize clamps Count to [1,4] and substitutes defaults for unrecognized
// size/style/model values. It mutates the request in place.
func (r *ImageRequest) Sanitize() {
	if !containsString(ValidImageSizes, r.Size) {
		r.Size = DefaultImageSize
	}
	if !containsString(ValidImageStyles, r.Style) {
		r.Style = DefaultImageStyle
	}
	if !containsString(ValidImageModels, r.ModelTag) {
		r.ModelTag = DefaultImageModel
	}
	if r.Count < 1 {
		r.Count = 1
	}
	if r.Count > MaxImageCount {
		r.Count = MaxImageCount
	}
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// ImageResult is the outcome of one fallback-chain run.
type ImageResult struct {
	URLs           []string `json:"images"`
	ServiceName    string   `json:"provider"`
	EnhancedPrompt string   `json:"enhancedPrompt"`
	ElapsedMs      int64    `json:"processingTime"`
}
