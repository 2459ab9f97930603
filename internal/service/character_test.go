package service

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCharacterServiceLoadsDirectory(t *testing.T) {
	dir := t.TempDir()
	writeCharacterFile(t, dir, "tesla", "You are Nikola Tesla.", nil)
	writeCharacterFile(t, dir, "newton", "You are Isaac Newton.", nil)
	writeCharacterFile(t, dir, "gandhi", "You are Mahatma Gandhi.", nil)

	// Non-JSON files are ignored
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("# personas"), 0o644))

	svc, err := NewCharacterService(dir)
	require.NoError(t, err)
	assert.Equal(t, 3, svc.Count())

	tesla, ok := svc.Get("tesla")
	require.True(t, ok)
	assert.Equal(t, "Test tesla", tesla.Name)
	assert.Equal(t, "You are Nikola Tesla.", tesla.ChatContext)

	_, ok = svc.Get("cleopatra")
	assert.False(t, ok)
}

func TestCharacterServiceGetAllStableOrder(t *testing.T) {
	dir := t.TempDir()
	writeCharacterFile(t, dir, "tesla", "context", nil)
	writeCharacterFile(t, dir, "einstein", "context", nil)
	writeCharacterFile(t, dir, "newton", "context", nil)

	svc, err := NewCharacterService(dir)
	require.NoError(t, err)

	all := svc.GetAll()
	require.Len(t, all, 3)
	assert.Equal(t, "einstein", all[0].ID)
	assert.Equal(t, "newton", all[1].ID)
	assert.Equal(t, "tesla", all[2].ID)
}

func TestCharacterServiceCategories(t *testing.T) {
	dir := t.TempDir()
	writeCharacterFile(t, dir, "tesla", "context", nil)
	writeCharacterFile(t, dir, "gandhi", "context", nil)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "_categories.json"),
		[]byte(`{"scientists":["tesla"],"freedomFighters":["gandhi"]}`), 0o644))

	svc, err := NewCharacterService(dir)
	require.NoError(t, err)

	// The categories file is not a persona
	assert.Equal(t, 2, svc.Count())

	categories := svc.Categories()
	assert.Equal(t, []string{"tesla"}, categories["scientists"])
	assert.Equal(t, []string{"gandhi"}, categories["freedomFighters"])
}

func TestCharacterServiceRejectsInvalidFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte(`{not json`), 0o644))

	_, err := NewCharacterService(dir)
	assert.Error(t, err)
}

func TestCharacterServiceRejectsMissingFields(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "anon.json"),
		[]byte(`{"name":"Nobody","chat_context":"context"}`), 0o644))

	_, err := NewCharacterService(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing an id")
}

func TestCharacterServiceRejectsDuplicateIDs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.json"),
		[]byte(`{"id":"tesla","name":"Tesla","chat_context":"context"}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.json"),
		[]byte(`{"id":"tesla","name":"Also Tesla","chat_context":"context"}`), 0o644))

	_, err := NewCharacterService(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate character id")
}

func TestCharacterServiceClearAndReload(t *testing.T) {
	dir := t.TempDir()
	writeCharacterFile(t, dir, "tesla", "context", nil)

	svc, err := NewCharacterService(dir)
	require.NoError(t, err)
	require.Equal(t, 1, svc.Count())

	svc.Clear()
	assert.Equal(t, 0, svc.Count())
	assert.Empty(t, svc.GetAll())

	require.NoError(t, svc.Reload())
	assert.Equal(t, 1, svc.Count())
}

func TestCharacterServiceMissingDirectory(t *testing.T) {
	_, err := NewCharacterService(filepath.Join(t.TempDir(), "nowhere"))
	assert.Error(t, err)
}
