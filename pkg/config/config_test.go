package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/lokutor-ai/stream-orchestrator/pkg/catalog"
)

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Processor.LoopInterval != 500 {
		t.Errorf("expected default loop interval 500, got %d", cfg.Processor.LoopInterval)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("expected default http addr :8080, got %s", cfg.HTTPAddr)
	}
	if cfg.SaveTTSWav {
		t.Error("expected SaveTTSWav to default to false")
	}
}

func TestLoadReadsOverridesFromEnv(t *testing.T) {
	t.Setenv("BOSON_API_KEYS", "key-a, key-b ,key-c")
	t.Setenv("PROCESSOR_LOOP_INTERVAL", "0.25")
	t.Setenv("SAVE_TTS_WAV", "true")
	t.Setenv("DEFAULT_PERSONA", "gamer")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.BosonAPIKeys) != 3 || cfg.BosonAPIKeys[1] != "key-b" {
		t.Errorf("expected trimmed 3-key list, got %v", cfg.BosonAPIKeys)
	}
	if cfg.Processor.LoopInterval != 250 {
		t.Errorf("expected overridden loop interval, got %d", cfg.Processor.LoopInterval)
	}
	if !cfg.SaveTTSWav {
		t.Error("expected SaveTTSWav to be true")
	}
	if cfg.Processor.DefaultPersona != "gamer" {
		t.Errorf("expected overridden default persona, got %s", cfg.Processor.DefaultPersona)
	}
}

func TestLoadCatalogReadsManifest(t *testing.T) {
	dir := t.TempDir()
	audioPath := filepath.Join(dir, "speed.wav")
	if err := os.WriteFile(audioPath, []byte("RIFF....WAVEfmt "), 0o644); err != nil {
		t.Fatalf("write wav: %v", err)
	}

	manifest := []catalog.Entry{
		{ID: "speed", AudioPath: audioPath, ReferenceText: "hey chat", SceneDescription: "energetic streamer"},
	}
	body, _ := json.Marshal(manifest)
	manifestPath := filepath.Join(dir, "catalog.json")
	if err := os.WriteFile(manifestPath, body, 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}

	t.Setenv("CATALOG_MANIFEST_PATH", manifestPath)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	cat, err := cfg.LoadCatalog()
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	p, err := cat.Resolve("speed")
	if err != nil || p.ReferenceText != "hey chat" {
		t.Errorf("unexpected resolved persona: %+v err=%v", p, err)
	}
}

func TestLoadCatalogRequiresManifestPath(t *testing.T) {
	cfg := Config{}
	if _, err := cfg.LoadCatalog(); err == nil {
		t.Fatal("expected error when CATALOG_MANIFEST_PATH is unset")
	}
}
