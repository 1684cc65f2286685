package orchestrator

import "testing"

func TestMessage(t *testing.T) {
	msg := Message{Role: "user", Content: "Hello"}
	if msg.Role != "user" {
		t.Errorf("Expected role 'user', got '%s'", msg.Role)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.LoopInterval != 500 {
		t.Errorf("Expected loop interval 500, got %d", cfg.LoopInterval)
	}
	if cfg.DefaultPersona == "" {
		t.Errorf("Expected a non-empty default persona")
	}
	if cfg.DefaultScript == "" {
		t.Errorf("Expected a non-empty default script")
	}
}

func TestNoOpLogger(t *testing.T) {
	var l Logger = &NoOpLogger{}
	l.Debug("test", "k", "v")
	l.Info("test")
	l.Warn("test")
	l.Error("test")
}
