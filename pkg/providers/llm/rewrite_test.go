package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/lokutor-ai/stream-orchestrator/pkg/orchestrator"
)

type fakeLLM struct {
	completion string
	err        error
	lastPrompt string
}

func (f *fakeLLM) Complete(ctx context.Context, messages []orchestrator.Message) (string, error) {
	if len(messages) > 1 {
		f.lastPrompt = messages[1].Content
	}
	return f.completion, f.err
}

func (f *fakeLLM) Name() string { return "fake-llm" }

func TestRewriteReturnsCompletionOnSuccess(t *testing.T) {
	fake := &fakeLLM{completion: "[Speed] Thanks for the gift!"}
	r := NewRewriter(fake, "speed", "energetic streamer", nil)

	got, err := r.Rewrite(context.Background(), "history here", "gift sent", "[Speed] old line", "gift")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "[Speed] Thanks for the gift!" {
		t.Errorf("unexpected rewrite result: %q", got)
	}
	if !strings.Contains(fake.lastPrompt, "gift sent") {
		t.Errorf("expected prompt to embed trigger text, got %q", fake.lastPrompt)
	}
	if !strings.Contains(fake.lastPrompt, "old line") {
		t.Errorf("expected prompt to embed remaining script, got %q", fake.lastPrompt)
	}
}

func TestRewriteKeepsExistingScriptOnProviderError(t *testing.T) {
	fake := &fakeLLM{err: errors.New("upstream unavailable")}
	r := NewRewriter(fake, "speed", "energetic streamer", nil)

	got, err := r.Rewrite(context.Background(), "history", "trigger", "[Speed] unchanged", "chatter")
	if err != nil {
		t.Fatalf("rewrite failure should not propagate as an error: %v", err)
	}
	if got != "[Speed] unchanged" {
		t.Errorf("expected existing script to survive a provider error, got %q", got)
	}
}

func TestRewriteKeepsExistingScriptOnEmptyCompletion(t *testing.T) {
	fake := &fakeLLM{completion: "   "}
	r := NewRewriter(fake, "speed", "energetic streamer", nil)

	got, err := r.Rewrite(context.Background(), "history", "trigger", "[Speed] unchanged", "chatter")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "[Speed] unchanged" {
		t.Errorf("expected existing script to survive an empty completion, got %q", got)
	}
}
