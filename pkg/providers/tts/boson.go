// Package tts implements the TTS Generator contract: synchronous
// persona-conditioned synthesis with retry, optional best-of-N fan-out, and
// WER-based selection among candidates.
package tts

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/lokutor-ai/stream-orchestrator/pkg/audio"
	"github.com/lokutor-ai/stream-orchestrator/pkg/catalog"
	"github.com/lokutor-ai/stream-orchestrator/pkg/domain"
	"github.com/lokutor-ai/stream-orchestrator/pkg/orchestrator"
)

// stop tokens the upstream endpoint honors to terminate an audio turn.
var stopTokens = []string{"<|eot_id|>", "<|end_of_text|>", "<|audio_eos|>"}

// Params configures one Generate call. A Params whose MaxCompletionTokens is
// zero is treated as unset, and each of its zero fields is filled from
// DefaultParams; otherwise the fields are sent as given.
type Params struct {
	MaxCompletionTokens int
	Temperature         float64
	TopP                float64
	TopK                int
	LineIndex           *int
	N                   int // best-of-N count; 0 or 1 means a single request
	ValidSampling       bool

	// RASWinLen and RawWinMaxNumRepeat tune the upstream endpoint's repeat-
	// aware sampling window; when MaxCompletionTokens is set, 0 leaves them
	// unset on the request.
	RASWinLen          int
	RawWinMaxNumRepeat int
}

// DefaultParams mirrors the contract's documented defaults.
func DefaultParams() Params {
	return Params{
		MaxCompletionTokens: 1024,
		Temperature:         1.0,
		TopP:                0.95,
		TopK:                50,
		RASWinLen:           100,
		RawWinMaxNumRepeat:  20,
	}
}

// Generator is the TTS Generator: generate(persona, text, params) -> audio_base64.
type Generator struct {
	apiKey  string
	url     string
	model   string
	catalog *catalog.Catalog
	scorer  ScoreProvider
	logger  orchestrator.Logger

	bestsDir   string
	outputDir  string
	saveTTSWav bool
}

// ScoreProvider computes the Valid-Score of a synthesized clip against the
// text it was supposed to speak. Scorer (a Boson-style chat-completions
// re-transcription) and STTScorer (any orchestrator.STTProvider) both
// implement it.
type ScoreProvider interface {
	Score(ctx context.Context, audioB64, referenceText string) (float64, error)
}

// NewGenerator wires a TTS client against baseURL (an OpenAI-compatible
// chat-completions endpoint that accepts input_audio and modalities
// ["text","audio"]). scorer may be nil if best-of-N valid-sampling is never
// requested.
func NewGenerator(apiKey, baseURL, model string, cat *catalog.Catalog, scorer ScoreProvider, logger orchestrator.Logger) *Generator {
	if logger == nil {
		logger = &orchestrator.NoOpLogger{}
	}
	return &Generator{
		apiKey:    apiKey,
		url:       baseURL,
		model:     model,
		catalog:   cat,
		scorer:    scorer,
		logger:    logger,
		bestsDir:  filepath.Join("assets", "bests"),
		outputDir: "output_audio",
	}
}

// SetSaveWav enables writing every synthesized clip to outputDir as a WAV
// file, mirroring the SAVE_TTS_WAV config flag.
func (g *Generator) SetSaveWav(enabled bool, outputDir string) {
	g.saveTTSWav = enabled
	if outputDir != "" {
		g.outputDir = outputDir
	}
}

// SetBestsDir overrides the directory checked for cached best-of-N clips.
func (g *Generator) SetBestsDir(dir string) {
	g.bestsDir = dir
}

// Generate synthesizes speech for text as persona, honoring the cache
// bypass, best-of-N fan-out, and WER-based selection described in the
// contract.
func (g *Generator) Generate(ctx context.Context, personaID, text string, params Params) (string, error) {
	p, err := g.catalog.Resolve(personaID)
	if err != nil {
		return "", err
	}

	if params.LineIndex != nil {
		if cached, ok, err := g.readCachedBest(p.ID, *params.LineIndex); err != nil {
			return "", err
		} else if ok {
			g.logger.Info("using cached best audio", "persona", p.ID, "lineIndex", *params.LineIndex)
			return cached, nil
		}
	}

	var audioB64 string
	if params.N > 1 {
		audioB64, err = g.bestOfN(ctx, p, text, params)
	} else {
		audioB64, err = g.callWithRetry(ctx, p, text, params)
	}
	if err != nil {
		return "", err
	}

	g.maybeSaveWav(p.ID, params.LineIndex, audioB64)
	return audioB64, nil
}

// bestOfN fans out params.N concurrent synthesis attempts. When
// ValidSampling is set, each candidate is re-transcribed and scored, and
// the highest-scoring clip wins; otherwise the first successful response is
// used. A candidate that errors after retries is simply excluded, not
// fatal, unless every candidate fails.
func (g *Generator) bestOfN(ctx context.Context, p domain.Persona, text string, params Params) (string, error) {
	type candidate struct {
		audioB64 string
		score    float64
		err      error
	}

	results := make([]candidate, params.N)
	var wg sync.WaitGroup
	for i := 0; i < params.N; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			clip, err := g.callWithRetry(ctx, p, text, params)
			results[idx] = candidate{audioB64: clip, err: err}
		}(i)
	}
	wg.Wait()

	var successes []candidate
	for _, r := range results {
		if r.err == nil {
			successes = append(successes, r)
		}
	}
	if len(successes) == 0 {
		return "", fmt.Errorf("all %d best-of-n attempts failed: %w", params.N, results[0].err)
	}

	if !params.ValidSampling || g.scorer == nil {
		return successes[0].audioB64, nil
	}

	bestIdx := 0
	bestScore := -1.0
	for i, r := range successes {
		score, err := g.scorer.Score(ctx, r.audioB64, text)
		if err != nil {
			g.logger.Warn("valid-score scoring failed, skipping candidate", "error", err)
			continue
		}
		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}
	return successes[bestIdx].audioB64, nil
}

// callWithRetry wraps a single synthesis attempt in unbounded exponential
// backoff with jitter (base 1s, max 10s).
func (g *Generator) callWithRetry(ctx context.Context, p domain.Persona, text string, params Params) (string, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Second
	bo.MaxInterval = 10 * time.Second
	bo.MaxElapsedTime = 0 // unbounded

	var audioB64 string
	operation := func() error {
		clip, err := g.call(ctx, p, text, params)
		if err != nil {
			g.logger.Warn("tts synthesis attempt failed, retrying", "persona", p.ID, "error", err)
			return err
		}
		audioB64 = clip
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		return "", fmt.Errorf("tts synthesis failed for persona %s: %w", p.ID, err)
	}
	return audioB64, nil
}

// call issues a single synthesis request and returns the base64 audio
// content of the first choice.
func (g *Generator) call(ctx context.Context, p domain.Persona, text string, params Params) (string, error) {
	if params.MaxCompletionTokens == 0 {
		params = mergeDefaults(params)
	}

	systemPrompt := buildSystemPrompt(p.SceneDescription)
	referenceB64 := base64.StdEncoding.EncodeToString(p.ReferenceAudio)

	payload := map[string]interface{}{
		"model": g.model,
		"messages": []map[string]interface{}{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": p.ReferenceText},
			{
				"role": "assistant",
				"content": []map[string]interface{}{
					{
						"type": "input_audio",
						"input_audio": map[string]string{
							"data":   referenceB64,
							"format": p.ReferenceFormat,
						},
					},
				},
			},
			{"role": "user", "content": text},
		},
		"modalities":            []string{"text", "audio"},
		"max_completion_tokens": params.MaxCompletionTokens,
		"temperature":           params.Temperature,
		"top_p":                 params.TopP,
		"top_k":                 params.TopK,
		"stop":                  stopTokens,
	}

	extraBody := map[string]interface{}{}
	if params.RASWinLen != 0 {
		extraBody["ras_win_len"] = params.RASWinLen
	}
	if params.RawWinMaxNumRepeat != 0 {
		extraBody["raw_win_max_num_repeat"] = params.RawWinMaxNumRepeat
	}
	if len(extraBody) > 0 {
		payload["extra_body"] = extraBody
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal tts request: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, g.url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("tts request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errBody interface{}
		json.NewDecoder(resp.Body).Decode(&errBody)
		return "", fmt.Errorf("tts endpoint error (status %d): %v", resp.StatusCode, errBody)
	}

	var result struct {
		Choices []struct {
			Message struct {
				Audio struct {
					Data string `json:"data"`
				} `json:"audio"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode tts response: %w", err)
	}
	if len(result.Choices) == 0 || result.Choices[0].Message.Audio.Data == "" {
		return "", fmt.Errorf("no audio returned from tts endpoint")
	}

	return result.Choices[0].Message.Audio.Data, nil
}

func mergeDefaults(p Params) Params {
	d := DefaultParams()
	if p.MaxCompletionTokens == 0 {
		p.MaxCompletionTokens = d.MaxCompletionTokens
	}
	if p.Temperature == 0 {
		p.Temperature = d.Temperature
	}
	if p.TopP == 0 {
		p.TopP = d.TopP
	}
	if p.TopK == 0 {
		p.TopK = d.TopK
	}
	if p.RASWinLen == 0 {
		p.RASWinLen = d.RASWinLen
	}
	if p.RawWinMaxNumRepeat == 0 {
		p.RawWinMaxNumRepeat = d.RawWinMaxNumRepeat
	}
	return p
}

func buildSystemPrompt(sceneDescription string) string {
	return "Generate audio following instruction. Speak consistently, naturally, and continuously.\n" +
		"<|scene_desc_start|>\n" + sceneDescription + "\n<|scene_desc_end|>"
}

func (g *Generator) maybeSaveWav(personaKey string, lineIndex *int, audioB64 string) {
	if !g.saveTTSWav {
		return
	}
	decoded, err := base64.StdEncoding.DecodeString(audioB64)
	if err != nil {
		g.logger.Warn("failed to decode audio for wav save", "error", err)
		return
	}
	if err := os.MkdirAll(g.outputDir, 0o755); err != nil {
		g.logger.Warn("failed to create output audio dir", "error", err)
		return
	}

	var path string
	if lineIndex == nil {
		path = filepath.Join(g.outputDir, fmt.Sprintf("%s_%d.wav", personaKey, time.Now().UnixMilli()))
	} else {
		seq := nextSeqFor(g.outputDir, personaKey, *lineIndex)
		path = filepath.Join(g.outputDir, fmt.Sprintf("%s_%d_%d.wav", personaKey, *lineIndex, seq))
	}

	wav := audio.NewWavBuffer(decoded, audio.StreamSampleRate)
	if err := os.WriteFile(path, wav, 0o644); err != nil {
		g.logger.Warn("failed to write wav file", "path", path, "error", err)
		return
	}
	g.logger.Info("saved tts audio", "path", path)
}

// nextSeqFor scans outputDir for existing "{persona}_{lineIndex}_N.wav"
// files and returns the next sequence number.
func nextSeqFor(outputDir, personaKey string, lineIndex int) int {
	entries, err := os.ReadDir(outputDir)
	if err != nil {
		return 0
	}
	prefix := fmt.Sprintf("%s_%d_", personaKey, lineIndex)
	best := -1
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		rest := strings.TrimSuffix(strings.TrimPrefix(name, prefix), ".wav")
		n, err := strconv.Atoi(rest)
		if err != nil {
			continue
		}
		if n > best {
			best = n
		}
	}
	return best + 1
}

func (g *Generator) readCachedBest(personaKey string, lineIndex int) (string, bool, error) {
	path := filepath.Join(g.bestsDir, fmt.Sprintf("%s_%d_best.wav", personaKey, lineIndex))
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("read cached best audio: %w", err)
	}
	return base64.StdEncoding.EncodeToString(data), true, nil
}
