// Package catalog loads the persona reference catalog: the read-only
// mapping from persona id to the reference audio clip, its transcript, and
// the scene description used to condition TTS prompts.
package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lokutor-ai/stream-orchestrator/pkg/domain"
	"github.com/lokutor-ai/stream-orchestrator/pkg/orchestrator"
)

// Entry is one persona's on-disk reference bundle, before its audio bytes
// are loaded.
type Entry struct {
	ID               string
	AudioPath        string
	ReferenceText    string
	SceneDescription string
}

// Catalog is the immutable, loaded-at-boot persona reference table.
type Catalog struct {
	defaultPersona string
	personas       map[string]domain.Persona
}

// Load reads every entry's reference audio off disk and normalizes persona
// keys (lowercase, spaces to underscores). Fails fast if any file is
// missing — this is a startup-fatal condition per the error taxonomy.
func Load(entries []Entry, defaultPersona string) (*Catalog, error) {
	c := &Catalog{
		defaultPersona: normalizeKey(defaultPersona),
		personas:       make(map[string]domain.Persona, len(entries)),
	}

	for _, e := range entries {
		audioBytes, err := os.ReadFile(e.AudioPath)
		if err != nil {
			return nil, fmt.Errorf("%w: reference audio for %q: %v", orchestrator.ErrCatalogNotLoaded, e.ID, err)
		}
		key := normalizeKey(e.ID)
		c.personas[key] = domain.Persona{
			ID:               key,
			ReferenceAudio:   audioBytes,
			ReferenceFormat:  strings.TrimPrefix(filepath.Ext(e.AudioPath), "."),
			ReferenceText:    strings.TrimSpace(e.ReferenceText),
			SceneDescription: e.SceneDescription,
		}
	}

	if _, ok := c.personas[c.defaultPersona]; !ok {
		return nil, fmt.Errorf("%w: default persona %q has no reference entry", orchestrator.ErrCatalogNotLoaded, defaultPersona)
	}

	return c, nil
}

// Resolve normalizes the requested persona key and falls back to the
// configured default persona when it isn't in the catalog. Returns
// ErrUnknownPersona only if even the default is missing (a startup-time
// invariant Load already checked, kept here as a defensive last resort).
func (c *Catalog) Resolve(persona string) (domain.Persona, error) {
	key := normalizeKey(persona)
	if p, ok := c.personas[key]; ok {
		return p, nil
	}
	if p, ok := c.personas[c.defaultPersona]; ok {
		return p, nil
	}
	return domain.Persona{}, orchestrator.ErrUnknownPersona
}

// DefaultPersona returns the configured default persona's normalized key.
func (c *Catalog) DefaultPersona() string {
	return c.defaultPersona
}

func normalizeKey(persona string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(persona)), " ", "_")
}
