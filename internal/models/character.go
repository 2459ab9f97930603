package models

import "fmt"

// Personality describes how a character speaks and what shaped it
type Personality struct {
	Traits            []string `json:"traits"`
	SpeakingStyle     string   `json:"speaking_style"`
	BackgroundContext string   `json:"background_context"`
}

// Character is an immutable persona record loaded from static configuration.
// ChatContext seeds the system context of every completion request; the
// optional ToneModifiers map appends extra context per tone variant.
type Character struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	Title         string            `json:"title"`
	Description   string            `json:"description"`
	ImageURL      string            `json:"image_url"`
	Era           string            `json:"era"`
	Expertise     []string          `json:"expertise"`
	Personality   Personality       `json:"personality"`
	ChatContext   string            `json:"chat_context"`
	ToneModifiers map[string]string `json:"tone_modifiers,omitempty"`
}

// Validate checks the fields a persona file must carry
func (c *Character) Validate() error {
	switch {
	case c.ID == "":
		return fmt.Errorf("character is missing an id")
	case c.Name == "":
		return fmt.Errorf("character %q is missing a name", c.ID)
	case c.ChatContext == "":
		return fmt.Errorf("character %q is missing chat_context", c.ID)
	}
	return nil
}

// ContextForTone builds the effective system context for a tone. A tone the
// persona does not define contributes nothing; the base context is returned
// unchanged with no trailing separator.
func (c *Character) ContextForTone(tone ToneType) string {
	if modifier, ok := c.ToneModifiers[string(tone)]; ok && modifier != "" {
		return c.ChatContext + "\n\n" + modifier
	}
	return c.ChatContext
}
