package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/histochat/backend/ai"
	"github.com/histochat/backend/pkg/logger"
)

// TTSController proxies speech-synthesis requests. When credentials were
// missing at startup the controller still registers its routes and surfaces
// the configuration error per request, so the rest of the API stays up.
type TTSController struct {
	tts     *ai.TTSClient
	initErr error
	log     *logger.Logger
}

// NewTTSController creates a TTS proxy controller. initErr records why the
// speech client could not be constructed, if it could not.
func NewTTSController(tts *ai.TTSClient, initErr error, log *logger.Logger) *TTSController {
	return &TTSController{tts: tts, initErr: initErr, log: log}
}

// RegisterRoutes registers the legacy unversioned proxy route
func (c *TTSController) RegisterRoutes(router *gin.Engine) {
	router.POST("/api/tts", c.Synthesize)
}

// RegisterRoutesV1 registers the versioned proxy route
func (c *TTSController) RegisterRoutesV1(group *gin.RouterGroup) {
	group.POST("/tts", c.Synthesize)
}

type ttsRequest struct {
	Text string `json:"text"`
}

// Synthesize converts text to MP3 audio and streams the raw bytes back
func (c *TTSController) Synthesize(ctx *gin.Context) {
	var request ttsRequest
	if err := ctx.ShouldBindJSON(&request); err != nil || request.Text == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Text is required"})
		return
	}

	if c.initErr != nil {
		c.log.LogError(c.initErr, "TTS unavailable")
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to convert text to speech",
			"details": c.initErr.Error(),
		})
		return
	}

	audio, err := c.tts.Synthesize(ctx.Request.Context(), request.Text)
	if err != nil {
		c.log.LogError(err, "TTS synthesis failed")

		var emptyErr *ai.EmptyAudioError
		if errors.As(err, &emptyErr) {
			ctx.JSON(http.StatusInternalServerError, gin.H{
				"error":   "Failed to convert text to speech",
				"details": "No audio content received",
			})
			return
		}

		ctx.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to convert text to speech",
			"details": err.Error(),
		})
		return
	}

	ctx.Data(http.StatusOK, "audio/mpeg", audio)
}
