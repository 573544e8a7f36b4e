// Package tool provides the chat tools exposed by the MCP server.
package tool

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/brizzai/agency-chat/internal/logger"
	"github.com/brizzai/agency-chat/internal/models"
	"github.com/brizzai/agency-chat/internal/session"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

const notSignedIn = "Not signed in: run `agency-chat login` first"

// ChatSession is the part of the session manager the tools use.
type ChatSession interface {
	CurrentUser(ctx context.Context) *models.User
	SendMessage(ctx context.Context, text string) (*models.ChatReply, error)
	ChatHistory(ctx context.Context, limit int) []models.ChatMessage
}

// Handler builds the tool handlers for one session.
type Handler struct {
	session      ChatSession
	historyLimit int
}

// NewHandler creates a new tool handler.
func NewHandler(s ChatSession, historyLimit int) *Handler {
	return &Handler{session: s, historyLimit: historyLimit}
}

// Tools returns every tool with its handler.
func (h *Handler) Tools() []mcpserver.ServerTool {
	return []mcpserver.ServerTool{
		{
			Tool: mcp.NewTool("send_message",
				mcp.WithDescription("Send a message to the agency's assistant and return its reply"),
				mcp.WithString("message",
					mcp.Required(),
					mcp.Description("The message text. Start with /web, /app, /ai, /budget or /human to pick a topic."),
				),
			),
			Handler: h.SendMessage,
		},
		{
			Tool: mcp.NewTool("chat_history",
				mcp.WithDescription("List the most recent messages of the signed-in user's conversation"),
				mcp.WithNumber("limit",
					mcp.Description("Maximum number of messages to return"),
					mcp.Min(1),
				),
				mcp.WithReadOnlyHintAnnotation(true),
			),
			Handler: h.ChatHistory,
		},
		{
			Tool: mcp.NewTool("whoami",
				mcp.WithDescription("Show the account the chat session belongs to"),
				mcp.WithReadOnlyHintAnnotation(true),
			),
			Handler: h.WhoAmI,
		},
	}
}

// SendMessage relays the message argument and returns the reply text.
func (h *Handler) SendMessage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := request.RequireString("message")
	if err != nil || strings.TrimSpace(text) == "" {
		return mcp.NewToolResultError("message is required"), nil
	}

	reply, err := h.session.SendMessage(ctx, text)
	if err != nil {
		logger.Warn("send_message failed", zap.Error(err))
		return mcp.NewToolResultError(describe(err)), nil
	}
	return mcp.NewToolResultText(reply.Message), nil
}

// ChatHistory returns the history as JSON. Without a verified session it
// returns the not-signed-in tool error; a failed fetch yields an empty list.
func (h *Handler) ChatHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := request.GetInt("limit", h.historyLimit)
	if limit <= 0 {
		limit = h.historyLimit
	}
	if h.session.CurrentUser(ctx) == nil {
		return mcp.NewToolResultError(notSignedIn), nil
	}

	data, err := json.Marshal(models.HistoryResponse{Messages: h.session.ChatHistory(ctx, limit)})
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(data)), nil
}

// WhoAmI reports the verified user.
func (h *Handler) WhoAmI(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	user := h.session.CurrentUser(ctx)
	if user == nil {
		return mcp.NewToolResultError(notSignedIn), nil
	}
	data, err := json.Marshal(user)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(data)), nil
}

func describe(err error) string {
	var apiErr *session.APIError
	switch {
	case errors.Is(err, session.ErrNotAuthenticated):
		return notSignedIn
	case errors.Is(err, session.ErrSessionInvalid):
		return "Session expired: run `agency-chat login` again"
	case errors.As(err, &apiErr):
		return apiErr.Message
	default:
		return err.Error()
	}
}
