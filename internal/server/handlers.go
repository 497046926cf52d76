// Package server provides HTTP handlers and server setup for the gateway.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"polychat/internal/conversation"
	"polychat/internal/core"
	"polychat/internal/observability"
)

// ChatDispatcher routes a chat request to a provider adapter.
type ChatDispatcher interface {
	Dispatch(ctx context.Context, providerID string, req *core.ChatRequest) (*core.ChatResult, error)
}

// ImageGenerator runs the image fallback chain.
type ImageGenerator interface {
	Generate(ctx context.Context, req *core.ImageRequest) (*core.ImageResult, error)
}

// Handler holds the HTTP handlers
type Handler struct {
	dispatcher ChatDispatcher
	images     ImageGenerator
	store      conversation.Store
	logger     *slog.Logger
}

// NewHandler creates a new handler over the gateway's services
func NewHandler(dispatcher ChatDispatcher, images ImageGenerator, store conversation.Store, logger *slog.Logger) *Handler {
	return &Handler{
		dispatcher: dispatcher,
		images:     images,
		store:      store,
		logger:     logger,
	}
}

// chatPayload is the wire form of a chat request. ConversationID is optional;
// when set, stored history is prepended and the exchange is persisted.
type chatPayload struct {
	core.ChatRequest
	ConversationID string `json:"conversationId,omitempty"`
}

type chatResponse struct {
	Message        string      `json:"message"`
	Model          string      `json:"model"`
	Provider       string      `json:"provider"`
	Usage          *core.Usage `json:"usage,omitempty"`
	StopReason     *string     `json:"stop_reason,omitempty"`
	ConversationID string      `json:"conversationId,omitempty"`
}

// Chat handles POST /chat/:provider
func (h *Handler) Chat(c echo.Context) error {
	providerID := c.Param("provider")

	var payload chatPayload
	if err := c.Bind(&payload); err != nil {
		return handleError(c, core.NewInvalidRequestError("invalid request body: "+err.Error()))
	}

	ctx := c.Request().Context()

	if payload.ConversationID != "" {
		conv, err := h.store.Get(ctx, payload.ConversationID)
		if errors.Is(err, conversation.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "conversation not found"})
		}
		if err != nil {
			return handleError(c, err)
		}
		// Stored transcript comes first; request-supplied history follows it.
		payload.History = append(conv.Messages, payload.History...)
	}

	result, err := h.dispatcher.Dispatch(ctx, providerID, &payload.ChatRequest)
	if err != nil {
		outcome := errorOutcome(err)
		observability.RecordChatRequest(providerID, outcome)
		h.logger.Warn("chat request failed",
			slog.String("provider", providerID),
			slog.String("kind", outcome),
			slog.Any("error", err))
		return handleError(c, err)
	}
	observability.RecordChatRequest(providerID, "ok")

	if payload.ConversationID != "" {
		h.persistExchange(ctx, payload.ConversationID, payload.Message, result.Text)
	}

	return c.JSON(http.StatusOK, chatResponse{
		Message:        result.Text,
		Model:          result.Model,
		Provider:       providerID,
		Usage:          result.Usage,
		StopReason:     result.StopReason,
		ConversationID: payload.ConversationID,
	})
}

// persistExchange appends the user turn and the assistant reply. Store
// failures degrade the transcript, not the response, so they only warn.
func (h *Handler) persistExchange(ctx context.Context, id, userMessage, assistantReply string) {
	for _, msg := range []core.HistoryMessage{
		{Role: core.RoleUser, Content: userMessage},
		{Role: core.RoleAssistant, Content: assistantReply},
	} {
		if err := h.store.AppendMessage(ctx, id, msg); err != nil {
			h.logger.Warn("failed to persist conversation message",
				slog.String("request_id", core.GetRequestID(ctx)),
				slog.String("conversation_id", id),
				slog.Any("error", err))
			return
		}
	}
}

type imageResponse struct {
	Images         []string `json:"images"`
	Model          string   `json:"model"`
	Prompt         string   `json:"prompt"`
	Size           string   `json:"size"`
	Style          string   `json:"style"`
	Created        int64    `json:"created"`
	Provider       string   `json:"provider"`
	Success        bool     `json:"success"`
	TotalGenerated int      `json:"totalGenerated"`
	Message        string   `json:"message"`
	EnhancedPrompt string   `json:"enhancedPrompt"`
	ProcessingTime int64    `json:"processingTime"`
}

// GenerateImages handles POST /raphael
func (h *Handler) GenerateImages(c echo.Context) error {
	var req core.ImageRequest
	if err := c.Bind(&req); err != nil {
		return handleError(c, core.NewInvalidRequestError("invalid request body: "+err.Error()))
	}
	if req.Prompt == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Prompt is required and must be a non-empty string"})
	}

	result, err := h.images.Generate(c.Request().Context(), &req)
	if err != nil {
		if errors.Is(err, core.ErrOrchestrationTimeout) {
			observability.RecordImageGeneration("none", "timeout")
			return c.JSON(http.StatusRequestTimeout, echo.Map{
				"error":   "Image generation timeout",
				"message": "The image generation service took too long to respond. Please try again.",
			})
		}
		observability.RecordImageGeneration("none", "error")
		return handleError(c, err)
	}
	observability.RecordImageGeneration(result.ServiceName, "ok")
	observability.ObserveImageDuration(float64(result.ElapsedMs) / 1000)

	// Generate mutates req in place, so these fields hold effective values.
	return c.JSON(http.StatusOK, imageResponse{
		Images:         result.URLs,
		Model:          req.ModelTag,
		Prompt:         req.Prompt,
		Size:           req.Size,
		Style:          req.Style,
		Created:        time.Now().Unix(),
		Provider:       result.ServiceName,
		Success:        true,
		TotalGenerated: len(result.URLs),
		Message:        fmt.Sprintf("Successfully generated %d image(s)", len(result.URLs)),
		EnhancedPrompt: result.EnhancedPrompt,
		ProcessingTime: result.ElapsedMs,
	})
}

// ImageCapabilities handles GET /raphael
func (h *Handler) ImageCapabilities(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"service":      "Raphael AI Image Generator",
		"status":       "operational",
		"models":       core.ValidImageModels,
		"sizes":        core.ValidImageSizes,
		"styles":       core.ValidImageStyles,
		"maxImages":    core.MaxImageCount,
		"defaultModel": core.DefaultImageModel,
		"defaultSize":  core.DefaultImageSize,
		"defaultStyle": core.DefaultImageStyle,
	})
}

type createConversationPayload struct {
	Provider string `json:"provider"`
}

// CreateConversation handles POST /conversations
func (h *Handler) CreateConversation(c echo.Context) error {
	var payload createConversationPayload
	if err := c.Bind(&payload); err != nil {
		return handleError(c, core.NewInvalidRequestError("invalid request body: "+err.Error()))
	}

	conv, err := h.store.Create(c.Request().Context(), payload.Provider)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusCreated, conv)
}

// ListConversations handles GET /conversations
func (h *Handler) ListConversations(c echo.Context) error {
	convs, err := h.store.List(c.Request().Context())
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"conversations": convs})
}

// GetConversation handles GET /conversations/:id
func (h *Handler) GetConversation(c echo.Context) error {
	conv, err := h.store.Get(c.Request().Context(), c.Param("id"))
	if errors.Is(err, conversation.ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "conversation not found"})
	}
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, conv)
}

// ListMessages handles GET /conversations/:id/messages
func (h *Handler) ListMessages(c echo.Context) error {
	conv, err := h.store.Get(c.Request().Context(), c.Param("id"))
	if errors.Is(err, conversation.ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "conversation not found"})
	}
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"messages": conv.Messages})
}

// AppendMessage handles POST /conversations/:id/messages
func (h *Handler) AppendMessage(c echo.Context) error {
	var msg core.HistoryMessage
	if err := c.Bind(&msg); err != nil {
		return handleError(c, core.NewInvalidRequestError("invalid request body: "+err.Error()))
	}
	if msg.Role != core.RoleUser && msg.Role != core.RoleAssistant {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "role must be user or assistant"})
	}
	if msg.Content == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "content is required"})
	}

	err := h.store.AppendMessage(c.Request().Context(), c.Param("id"), msg)
	if errors.Is(err, conversation.ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "conversation not found"})
	}
	if err != nil {
		return handleError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// DeleteConversation handles DELETE /conversations/:id
func (h *Handler) DeleteConversation(c echo.Context) error {
	err := h.store.Delete(c.Request().Context(), c.Param("id"))
	if errors.Is(err, conversation.ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "conversation not found"})
	}
	if err != nil {
		return handleError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Health handles GET /health
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// handleError converts normalized errors to HTTP responses
func handleError(c echo.Context, err error) error {
	var upstream *core.UpstreamError
	if errors.As(err, &upstream) {
		resp := echo.Map{"error": upstream.Message}
		if len(upstream.Details) > 0 {
			resp["details"] = upstream.Details
		}
		return c.JSON(upstream.StatusCode(), resp)
	}

	// Fallback for unexpected errors
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "an unexpected error occurred"})
}

// errorOutcome labels a failed call for metrics.
func errorOutcome(err error) string {
	var upstream *core.UpstreamError
	if errors.As(err, &upstream) {
		return string(upstream.Kind)
	}
	return "error"
}
