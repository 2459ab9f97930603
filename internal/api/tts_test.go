package api

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/histochat/backend/ai"
)

func newTTSEngine(t *testing.T, tts *ai.TTSClient, initErr error) *gin.Engine {
	t.Helper()
	engine := gin.New()
	controller := NewTTSController(tts, initErr, testLogger())
	controller.RegisterRoutes(engine)
	return engine
}

func ttsTestClient(t *testing.T, audioContent string) *ai.TTSClient {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)
	pemKey := string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}))

	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"access_token": "t", "expires_in": 3600})
	}))
	t.Cleanup(tokenServer.Close)

	synthServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"audioContent": audioContent})
	}))
	t.Cleanup(synthServer.Close)

	client, err := ai.NewTTSClient(ai.ServiceAccount{
		ClientEmail: "svc@project.iam.gserviceaccount.com",
		PrivateKey:  pemKey,
		ProjectID:   "test-project",
	},
		ai.WithTTSEndpoint(synthServer.URL),
		ai.WithTokenURL(tokenServer.URL),
	)
	require.NoError(t, err)
	return client
}

func TestTTSProxyStreamsAudio(t *testing.T) {
	audio := []byte("mp3-bytes")
	client := ttsTestClient(t, base64.StdEncoding.EncodeToString(audio))
	engine := newTTSEngine(t, client, nil)

	w := doJSON(t, engine, http.MethodPost, "/api/tts", gin.H{"text": "hello"})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "audio/mpeg", w.Header().Get("Content-Type"))
	assert.Equal(t, audio, w.Body.Bytes())
}

func TestTTSProxyRequiresText(t *testing.T) {
	engine := newTTSEngine(t, nil, nil)

	for _, body := range []any{gin.H{}, gin.H{"text": ""}} {
		w := doJSON(t, engine, http.MethodPost, "/api/tts", body)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Text is required", decodeBody(t, w)["error"])
	}
}

func TestTTSProxySurfacesInitError(t *testing.T) {
	initErr := &ai.ConfigurationError{Reason: "client email is required"}
	engine := newTTSEngine(t, nil, initErr)

	w := doJSON(t, engine, http.MethodPost, "/api/tts", gin.H{"text": "hello"})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "Failed to convert text to speech", body["error"])
	assert.Contains(t, body["details"], "client email")
}

func TestTTSProxyEmptyAudio(t *testing.T) {
	client := ttsTestClient(t, "")
	engine := newTTSEngine(t, client, nil)

	w := doJSON(t, engine, http.MethodPost, "/api/tts", gin.H{"text": "hello"})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "Failed to convert text to speech", body["error"])
	assert.Equal(t, "No audio content received", body["details"])
}
