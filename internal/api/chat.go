package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/histochat/backend/internal/service"
	"github.com/histochat/backend/pkg/logger"
	"github.com/histochat/backend/pkg/resilience"
)

// ChatController exposes the stateless completion proxy the browser client
// calls directly. It forwards one message with its persona context and
// retries transient upstream failures before giving up.
type ChatController struct {
	chat    service.ChatClient
	retrier *resilience.Retrier
	log     *logger.Logger
}

// NewChatController creates a chat proxy controller
func NewChatController(chat service.ChatClient, retrier *resilience.Retrier, log *logger.Logger) *ChatController {
	return &ChatController{
		chat:    chat,
		retrier: retrier,
		log:     log,
	}
}

// RegisterRoutes registers the legacy unversioned proxy route
func (c *ChatController) RegisterRoutes(router *gin.Engine) {
	router.POST("/api/chat", c.Chat)
}

// RegisterRoutesV1 registers the versioned proxy route
func (c *ChatController) RegisterRoutesV1(group *gin.RouterGroup) {
	group.POST("/chat", c.Chat)
}

type chatRequest struct {
	Message     string `json:"message"`
	CharacterID string `json:"characterId"`
	Context     string `json:"context"`
}

// Chat proxies one completion call. The response mirrors the upstream
// candidates shape the browser client already consumes.
func (c *ChatController) Chat(ctx *gin.Context) {
	var request chatRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
		return
	}
	if request.Message == "" || request.CharacterID == "" || request.Context == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
		return
	}

	var reply string
	_, err := c.retrier.Do(ctx.Request.Context(), func(rctx context.Context) error {
		text, sendErr := c.chat.Send(rctx, request.Message, request.Context)
		if sendErr != nil {
			return sendErr
		}
		reply = text
		return nil
	})
	if err != nil {
		c.log.WithCharacter(request.CharacterID).LogError(err, "chat proxy failed")
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to get response from AI",
			"details": err.Error(),
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"candidates": []gin.H{
			{
				"content": gin.H{
					"parts": []gin.H{
						{"text": reply},
					},
				},
			},
		},
	})
}
