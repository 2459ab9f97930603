package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/histochat/backend/internal/models"
	"github.com/histochat/backend/internal/service"
)

// SessionController exposes the server-side conversation state: creating
// sessions, sending messages through the retrying controller, and the
// tone / clear / character-switch operations.
type SessionController struct {
	sessions *service.SessionService
}

// NewSessionController creates a session controller
func NewSessionController(sessions *service.SessionService) *SessionController {
	return &SessionController{sessions: sessions}
}

// RegisterRoutesV1 registers session routes on the versioned group
func (c *SessionController) RegisterRoutesV1(group *gin.RouterGroup) {
	sessions := group.Group("/sessions")
	{
		sessions.POST("", c.CreateSession)
		sessions.GET("/:id", c.GetSession)
		sessions.POST("/:id/messages", c.SendMessage)
		sessions.POST("/:id/clear", c.ClearSession)
		sessions.PUT("/:id/tone", c.SetTone)
		sessions.PUT("/:id/character", c.SwitchCharacter)
	}
}

type createSessionRequest struct {
	CharacterID string          `json:"characterId" binding:"required"`
	Tone        models.ToneType `json:"tone"`
}

// CreateSession starts a conversation with a character
func (c *SessionController) CreateSession(ctx *gin.Context) {
	var request createSessionRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	session, err := c.sessions.Create(request.CharacterID, request.Tone)
	if err != nil {
		if errors.Is(err, service.ErrCharacterUnknown) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Character not found"})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create session"})
		return
	}

	ctx.JSON(http.StatusCreated, session.Snapshot())
}

// GetSession returns a session with its transcript
func (c *SessionController) GetSession(ctx *gin.Context) {
	session, err := c.sessions.Get(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}
	ctx.JSON(http.StatusOK, session.Snapshot())
}

type sendMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

// SendMessage runs one chat turn. A reply is returned even when the upstream
// failed; fallback reports whether the user got the apology text instead of
// a real answer.
func (c *SessionController) SendMessage(ctx *gin.Context) {
	var request sendMessageRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Message content is required"})
		return
	}

	reply, fallback, err := c.sessions.SendMessage(ctx.Request.Context(), ctx.Param("id"), request.Content)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSessionNotFound):
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		case errors.Is(err, service.ErrSessionBusy):
			ctx.JSON(http.StatusConflict, gin.H{"error": "A message is already in flight for this session"})
		case errors.Is(err, service.ErrStaleResponse):
			ctx.JSON(http.StatusConflict, gin.H{"error": "Session changed while the reply was in flight"})
		case errors.Is(err, service.ErrEmptyMessage):
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Message content is required"})
		case errors.Is(err, service.ErrSessionFull):
			ctx.JSON(http.StatusConflict, gin.H{"error": "Session has reached its message limit"})
		default:
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send message"})
		}
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"reply":    reply,
		"fallback": fallback,
	})
}

// ClearSession resets the transcript for a fresh conversation
func (c *SessionController) ClearSession(ctx *gin.Context) {
	if err := c.sessions.Clear(ctx.Param("id")); err != nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"status": "cleared"})
}

type setToneRequest struct {
	Tone models.ToneType `json:"tone" binding:"required"`
}

// SetTone changes the tone used for subsequent sends
func (c *SessionController) SetTone(ctx *gin.Context) {
	var request setToneRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Tone is required"})
		return
	}

	if err := c.sessions.SetTone(ctx.Param("id"), request.Tone); err != nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"status": "ok", "tone": request.Tone})
}

type switchCharacterRequest struct {
	CharacterID string `json:"characterId" binding:"required"`
}

// SwitchCharacter points the session at a different persona, discarding the
// prior transcript
func (c *SessionController) SwitchCharacter(ctx *gin.Context) {
	var request switchCharacterRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Character id is required"})
		return
	}

	if err := c.sessions.SwitchCharacter(ctx.Param("id"), request.CharacterID); err != nil {
		if errors.Is(err, service.ErrCharacterUnknown) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Character not found"})
			return
		}
		ctx.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"status": "ok", "characterId": request.CharacterID})
}
