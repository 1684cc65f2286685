package tts

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestScorerScoreExactTranscription(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		resp := map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]interface{}{"content": "welcome back to the stream"}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	s := NewScorer("test-key", server.URL, "")
	score, err := s.Score(context.Background(), "ZmFrZS1hdWRpbw==", "welcome back to the stream")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if score != 1.0 {
		t.Errorf("expected exact transcription to score 1.0, got %v", score)
	}
}

func TestScorerScoreNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	s := NewScorer("test-key", server.URL, "")
	if _, err := s.Score(context.Background(), "ZmFrZQ==", "hello"); err == nil {
		t.Fatal("expected error on non-200 response")
	}
}

func TestScorerScoreNoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"choices": []interface{}{}})
	}))
	defer server.Close()

	s := NewScorer("test-key", server.URL, "")
	if _, err := s.Score(context.Background(), "ZmFrZQ==", "hello"); err == nil {
		t.Fatal("expected error when no choices are returned")
	}
}

func TestNewScorerDefaultsModel(t *testing.T) {
	s := NewScorer("key", "http://example.invalid", "")
	if s.model != "audio-transcription" {
		t.Errorf("expected default model, got %s", s.model)
	}
}
