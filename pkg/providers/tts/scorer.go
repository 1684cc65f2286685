package tts

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/lokutor-ai/stream-orchestrator/pkg/audio"
)

// Scorer sends synthesized audio to a transcription-capable chat-completions
// endpoint and returns the Valid-Score (1 - WER) of the re-transcription
// against the text that was supposed to be spoken.
type Scorer struct {
	apiKey string
	url    string
	model  string
}

// NewScorer points the scorer at the same family of OpenAI-compatible
// chat-completions endpoint the TTS call itself uses, since the reference
// backend re-transcribes through its own audio-understanding model rather
// than a dedicated REST transcription route.
func NewScorer(apiKey, baseURL, model string) *Scorer {
	if model == "" {
		model = "audio-transcription"
	}
	return &Scorer{apiKey: apiKey, url: baseURL, model: model}
}

// Score transcribes audioB64 (a base64-encoded raw PCM clip, the same
// payload the TTS endpoint returns) and returns its Valid-Score against
// referenceText. The clip is wrapped in a WAV header before it is sent,
// since the scoring endpoint expects a self-describing container.
func (s *Scorer) Score(ctx context.Context, audioB64, referenceText string) (float64, error) {
	pcm, err := base64.StdEncoding.DecodeString(audioB64)
	if err != nil {
		return 0, fmt.Errorf("decode audio for scoring: %w", err)
	}
	wavB64 := base64.StdEncoding.EncodeToString(audio.NewWavBuffer(pcm, audio.StreamSampleRate))

	payload := map[string]interface{}{
		"model": s.model,
		"messages": []map[string]interface{}{
			{"role": "system", "content": "Transcribe this audio."},
			{
				"role": "user",
				"content": []map[string]interface{}{
					{
						"type": "input_audio",
						"input_audio": map[string]string{
							"data":   wavB64,
							"format": "wav",
						},
					},
				},
			},
		},
		"max_completion_tokens": 1024,
		"temperature":           0.0,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("marshal score request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("score request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("scoring endpoint error (status %d)", resp.StatusCode)
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("decode score response: %w", err)
	}
	if len(result.Choices) == 0 {
		return 0, fmt.Errorf("no transcription returned for scoring")
	}

	return validScore(referenceText, result.Choices[0].Message.Content), nil
}
