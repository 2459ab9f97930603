package service

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/histochat/backend/internal/models"
)

// categoriesFile is an optional file in the characters directory mapping
// category names to character ids
const categoriesFile = "_categories.json"

// CharacterService loads persona records from a directory of JSON files and
// serves them from memory. It is an explicitly constructed service object,
// created once at process start and passed to whoever needs it; Clear wipes
// the loaded set so tests never leak state into each other.
type CharacterService struct {
	dir        string
	mu         sync.RWMutex
	characters map[string]*models.Character
	order      []string
	categories map[string][]string
}

// NewCharacterService loads every persona file under dir
func NewCharacterService(dir string) (*CharacterService, error) {
	s := &CharacterService{dir: dir}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload re-reads the character directory, replacing the loaded set
func (s *CharacterService) Reload() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("cannot read characters directory %s: %w", s.dir, err)
	}

	characters := make(map[string]*models.Character)
	var order []string
	categories := make(map[string][]string)

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		path := filepath.Join(s.dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("cannot read character file %s: %w", path, err)
		}

		if entry.Name() == categoriesFile {
			if err := json.Unmarshal(data, &categories); err != nil {
				return fmt.Errorf("invalid categories file %s: %w", path, err)
			}
			continue
		}

		var character models.Character
		if err := json.Unmarshal(data, &character); err != nil {
			return fmt.Errorf("invalid character file %s: %w", path, err)
		}
		if err := character.Validate(); err != nil {
			return fmt.Errorf("invalid character file %s: %w", path, err)
		}
		if _, exists := characters[character.ID]; exists {
			return fmt.Errorf("duplicate character id %q in %s", character.ID, path)
		}

		characters[character.ID] = &character
		order = append(order, character.ID)
	}

	sort.Strings(order)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.characters = characters
	s.order = order
	s.categories = categories
	return nil
}

// Get returns the character with the given id
func (s *CharacterService) Get(id string) (*models.Character, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	character, ok := s.characters[id]
	return character, ok
}

// GetAll returns every loaded character in stable id order
func (s *CharacterService) GetAll() []*models.Character {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]*models.Character, 0, len(s.order))
	for _, id := range s.order {
		all = append(all, s.characters[id])
	}
	return all
}

// Categories returns the category-to-ids mapping, if the directory defines one
func (s *CharacterService) Categories() map[string][]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string][]string, len(s.categories))
	for name, ids := range s.categories {
		out[name] = append([]string(nil), ids...)
	}
	return out
}

// Count returns the number of loaded characters
func (s *CharacterService) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.characters)
}

// Clear wipes the loaded set; the next Reload repopulates it
func (s *CharacterService) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.characters = make(map[string]*models.Character)
	s.order = nil
	s.categories = make(map[string][]string)
}
