package tts

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/lokutor-ai/stream-orchestrator/pkg/orchestrator"
)

type fakeSTT struct {
	transcript string
	err        error
	gotLang    orchestrator.Language
}

func (f *fakeSTT) Name() string { return "fake_stt" }

func (f *fakeSTT) Transcribe(ctx context.Context, audio []byte, lang orchestrator.Language) (string, error) {
	f.gotLang = lang
	if f.err != nil {
		return "", f.err
	}
	return f.transcript, nil
}

func TestSTTScorerScoreExactTranscription(t *testing.T) {
	stub := &fakeSTT{transcript: "welcome back to the stream"}
	s := NewSTTScorer(stub, orchestrator.LanguageEn)

	audioB64 := base64.StdEncoding.EncodeToString([]byte("pcm-bytes"))
	score, err := s.Score(context.Background(), audioB64, "welcome back to the stream")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if score != 1.0 {
		t.Errorf("expected exact transcription to score 1.0, got %v", score)
	}
	if stub.gotLang != orchestrator.LanguageEn {
		t.Errorf("expected language to be forwarded, got %s", stub.gotLang)
	}
}

func TestSTTScorerScorePartialMatch(t *testing.T) {
	stub := &fakeSTT{transcript: "completely different words"}
	s := NewSTTScorer(stub, "")

	audioB64 := base64.StdEncoding.EncodeToString([]byte("pcm-bytes"))
	score, err := s.Score(context.Background(), audioB64, "welcome back to the stream")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if score >= 1.0 {
		t.Errorf("expected a partial mismatch to score below 1.0, got %v", score)
	}
}

func TestSTTScorerScorePropagatesProviderError(t *testing.T) {
	stub := &fakeSTT{err: errors.New("transcription backend unavailable")}
	s := NewSTTScorer(stub, "")

	audioB64 := base64.StdEncoding.EncodeToString([]byte("pcm-bytes"))
	if _, err := s.Score(context.Background(), audioB64, "hello"); err == nil {
		t.Fatal("expected error to propagate from the provider")
	}
}

func TestSTTScorerScoreRejectsInvalidBase64(t *testing.T) {
	stub := &fakeSTT{transcript: "irrelevant"}
	s := NewSTTScorer(stub, "")

	if _, err := s.Score(context.Background(), "not-valid-base64!!", "hello"); err == nil {
		t.Fatal("expected error decoding invalid base64")
	}
}
