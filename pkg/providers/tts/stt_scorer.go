package tts

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/lokutor-ai/stream-orchestrator/pkg/orchestrator"
)

// STTScorer computes Valid-Score by re-transcribing a clip through any
// orchestrator.STTProvider, rather than the Boson-style chat-completions
// re-transcription Scorer performs. Useful when the deployment's
// transcription backend is a dedicated STT service instead of an
// audio-understanding chat model.
type STTScorer struct {
	provider orchestrator.STTProvider
	lang     orchestrator.Language
}

// NewSTTScorer wraps provider for use as a ScoreProvider. lang is passed
// through to Transcribe unchanged; pass "" to let the provider auto-detect.
func NewSTTScorer(provider orchestrator.STTProvider, lang orchestrator.Language) *STTScorer {
	return &STTScorer{provider: provider, lang: lang}
}

func (s *STTScorer) Score(ctx context.Context, audioB64, referenceText string) (float64, error) {
	pcm, err := base64.StdEncoding.DecodeString(audioB64)
	if err != nil {
		return 0, fmt.Errorf("decode audio for scoring: %w", err)
	}
	transcription, err := s.provider.Transcribe(ctx, pcm, s.lang)
	if err != nil {
		return 0, fmt.Errorf("transcribe for scoring: %w", err)
	}
	return validScore(referenceText, transcription), nil
}
