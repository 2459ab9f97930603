package api

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCharacterEngine(t *testing.T) *gin.Engine {
	t.Helper()
	engine := gin.New()
	controller := NewCharacterController(testCharacterService(t))
	controller.RegisterRoutesV1(engine.Group("/api/v1"))
	return engine
}

func TestListCharacters(t *testing.T) {
	engine := newCharacterEngine(t)

	w := doJSON(t, engine, http.MethodGet, "/api/v1/characters", nil)

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, float64(2), body["count"])

	characters := body["characters"].([]any)
	require.Len(t, characters, 2)
	// Stable id order
	assert.Equal(t, "einstein", characters[0].(map[string]any)["id"])
	assert.Equal(t, "gandhi", characters[1].(map[string]any)["id"])
}

func TestGetCharacter(t *testing.T) {
	engine := newCharacterEngine(t)

	w := doJSON(t, engine, http.MethodGet, "/api/v1/characters/gandhi", nil)

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "gandhi", body["id"])
	assert.Equal(t, "Mahatma Gandhi", body["name"])
}

func TestGetCharacterNotFound(t *testing.T) {
	engine := newCharacterEngine(t)

	w := doJSON(t, engine, http.MethodGet, "/api/v1/characters/cleopatra", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Character not found", decodeBody(t, w)["error"])
}

func TestListCategories(t *testing.T) {
	engine := newCharacterEngine(t)

	w := doJSON(t, engine, http.MethodGet, "/api/v1/characters/categories", nil)

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	categories := body["categories"].(map[string]any)
	assert.Equal(t, []any{"gandhi"}, categories["freedomFighters"])
	assert.Equal(t, []any{"einstein"}, categories["scientists"])
}
