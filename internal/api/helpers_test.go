package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/histochat/backend/internal/models"
	"github.com/histochat/backend/internal/service"
	"github.com/histochat/backend/pkg/logger"
	"github.com/histochat/backend/pkg/resilience"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "error", Output: io.Discard})
}

// fakeChat is a programmable stand-in for the completion upstream
type fakeChat struct {
	mu       sync.Mutex
	calls    int
	contexts []string
	reply    string
	err      error
}

func (f *fakeChat) Send(ctx context.Context, message, systemContext string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.contexts = append(f.contexts, systemContext)
	return f.reply, f.err
}

func (f *fakeChat) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func testCharacterService(t *testing.T) *service.CharacterService {
	t.Helper()
	dir := t.TempDir()

	gandhi := models.Character{
		ID:          "gandhi",
		Name:        "Mahatma Gandhi",
		ChatContext: "You are Mahatma Gandhi.",
		ToneModifiers: map[string]string{
			"genZ": "Speak like gen Z.",
		},
	}
	data, err := json.Marshal(&gandhi)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "gandhi.json"), data, 0o644))

	einstein := models.Character{
		ID:          "einstein",
		Name:        "Albert Einstein",
		ChatContext: "You are Albert Einstein.",
	}
	data, err = json.Marshal(&einstein)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "einstein.json"), data, 0o644))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "_categories.json"),
		[]byte(`{"freedomFighters":["gandhi"],"scientists":["einstein"]}`), 0o644))

	characters, err := service.NewCharacterService(dir)
	require.NoError(t, err)
	return characters
}

func testSessionService(t *testing.T, chat service.ChatClient) *service.SessionService {
	t.Helper()
	config := service.DefaultSessionConfig()
	config.RetryDelay = time.Millisecond

	metrics := service.NewMetrics(prometheus.NewRegistry())
	return service.NewSessionService(testCharacterService(t), chat, metrics, testLogger(), config)
}

func testRetrier() *resilience.Retrier {
	return resilience.NewRetrier(resilience.RetryConfig{Name: "test", Attempts: 3, Delay: time.Millisecond}, nil)
}

func doJSON(t *testing.T, engine *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}
